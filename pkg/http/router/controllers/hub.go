package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/julienschmidt/httprouter"
	"github.com/lintang-b-s/graphcut/pkg/optimizer"
	"go.uber.org/zap"
)

// Session is one websocket client of the progress stream.
type Session struct {
	io   sync.Mutex
	conn net.Conn

	id  uint
	hub *Hub
}

// readRequest skips control frames until the first data frame and decodes it.
func (s *Session) readRequest() (*solveRequest, error) {
	s.io.Lock()
	defer s.io.Unlock()

	for {
		h, r, err := wsutil.NextReader(s.conn, ws.StateServerSide)
		if err != nil {
			return nil, err
		}
		if h.OpCode.IsControl() {
			if err := wsutil.ControlFrameHandler(s.conn, ws.StateServerSide)(h, r); err != nil {
				return nil, err
			}
			continue
		}

		req := &solveRequest{}
		decoder := json.NewDecoder(r)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(req); err != nil {
			return nil, err
		}
		return req, nil
	}
}

// Solve reads one solve request, streams a frame per optimizer cycle and ends with the
// result frame.
func (s *Session) Solve(ctx context.Context) error {
	req, err := s.readRequest()
	if err != nil {
		var closed wsutil.ClosedError
		if errors.As(err, &closed) {
			return nil
		}
		return s.write(errorEnvelope(http.StatusBadRequest, err.Error()))
	}

	if err := s.hub.validate.Struct(req); err != nil {
		return s.write(errorEnvelope(http.StatusBadRequest, err.Error()))
	}

	opts := req.toSolveOptions()
	opts.Optimizer.OnCycle = func(info optimizer.CycleInfo) {
		if err := s.write(envelope{"cycle": info}); err != nil {
			s.hub.log.Debug("progress frame not delivered", zap.Uint("session", s.id), zap.Error(err))
		}
	}

	sol, err := s.hub.solverService.Solve(ctx, req.Instance, opts)
	if err != nil {
		status, message := statusOf(err)
		if status == http.StatusInternalServerError {
			s.hub.log.Error("websocket solve failed", zap.Uint("session", s.id), zap.Error(err))
		}
		return s.write(errorEnvelope(status, message))
	}
	return s.write(envelope{"data": NewSolveResponse(sol)})
}

func (s *Session) write(x interface{}) error {
	w := wsutil.NewWriter(s.conn, ws.StateServerSide, ws.OpText)
	encoder := json.NewEncoder(w)

	s.io.Lock()
	defer s.io.Unlock()

	if err := encoder.Encode(x); err != nil {
		return err
	}

	return w.Flush()
}

// close sends a close frame unless another goroutine is using the connection. Closing the
// connection unblocks a pending read.
func (s *Session) close() error {
	if s.io.TryLock() {
		body := ws.NewCloseFrameBody(ws.StatusNormalClosure, "")
		_ = ws.WriteFrame(s.conn, ws.NewCloseFrame(body))
		s.io.Unlock()
	}
	return s.conn.Close()
}

// Hub keeps track of the open websocket sessions so they can be closed on shutdown.
type Hub struct {
	mu            sync.RWMutex
	seq           uint
	sessions      map[uint]*Session
	solverService SolverService
	validate      *requestValidator
	log           *zap.Logger
}

func NewHub(solverService SolverService, log *zap.Logger) *Hub {
	return &Hub{
		sessions:      make(map[uint]*Session),
		solverService: solverService,
		validate:      newRequestValidator(),
		log:           log,
	}
}

func (h *Hub) Register(conn net.Conn) *Session {
	s := &Session{
		hub:  h,
		conn: conn,
	}

	h.mu.Lock()
	s.id = h.seq
	h.sessions[s.id] = s
	h.seq++
	h.mu.Unlock()

	return s
}

func (h *Hub) Remove(s *Session) {
	h.mu.Lock()
	if _, ok := h.sessions[s.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, s.id)
	h.mu.Unlock()

	_ = s.close()
}

func (h *Hub) NumSessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) RemoveAll() {
	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		h.Remove(s)
	}
}

// solveStream upgrades the connection and serves a single solve request over it.
//
//	@Summary		minimize the energy and stream the energy after every cycle
//	@Tags			solver
//	@Router			/ws/solve [get]
func (api *solverAPI) solveStream(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		api.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	session := api.hub.Register(conn)
	defer api.hub.Remove(session)

	if err := session.Solve(r.Context()); err != nil {
		api.log.Debug("websocket session ended", zap.Uint("session", session.id), zap.Error(err))
	}
}
