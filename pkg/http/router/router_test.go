package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/lintang-b-s/graphcut/pkg/http/usecases"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const chainInstance = `{
	"num_sites": 3,
	"num_labels": 2,
	"data_cost": [0, 5, 5, 0, 0, 5],
	"smooth": {"kind": "potts", "lambda": 1},
	"neighbors": [{"a": 0, "b": 1, "weight": 3}, {"a": 1, "b": 2, "weight": 3}],
	"labels": [1, 1, 1]
}`

type responseBody struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newHandler(t *testing.T, maxSites int) http.Handler {
	log := zaptest.NewLogger(t)
	service := usecases.NewSolverService(log, usecases.Limits{MaxConcurrent: 2, MaxSites: maxSites, MaxIterations: 100})
	return NewAPI(log).Handler(false, service)
}

func post(t *testing.T, h http.Handler, path, contentType, body string) (*httptest.ResponseRecorder, responseBody) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp responseBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func TestSolveEndpoint(t *testing.T) {
	h := newHandler(t, 0)

	tests := []struct {
		name       string
		body       string
		wantEnergy int64
		wantLabels []int32
	}{
		{name: "expansion", body: `{"instance": ` + chainInstance + `}`, wantEnergy: 5, wantLabels: []int32{0, 0, 0}},
		{name: "swap with dinic", body: `{"instance": ` + chainInstance + `, "algorithm": "swap", "solver": "dinic"}`,
			wantEnergy: 5, wantLabels: []int32{0, 0, 0}},
		{name: "no cycles", body: `{"instance": ` + chainInstance + `, "max_iterations": 0}`,
			wantEnergy: 10, wantLabels: []int32{1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := post(t, h, "/api/solve", "application/json", tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var got struct {
				Labels    []int32 `json:"labels"`
				Energy    int64   `json:"energy"`
				Breakdown struct {
					Total int64 `json:"energy"`
				} `json:"breakdown"`
			}
			require.NoError(t, json.Unmarshal(resp.Data, &got))
			assert.Equal(t, tt.wantEnergy, got.Energy)
			assert.Equal(t, tt.wantEnergy, got.Breakdown.Total)
			assert.Equal(t, tt.wantLabels, got.Labels)
		})
	}
}

func TestSolveErrors(t *testing.T) {
	h := newHandler(t, 2)

	tests := []struct {
		name        string
		contentType string
		body        string
		wantStatus  int
	}{
		{name: "malformed", contentType: "application/json", body: `{"instance": `, wantStatus: http.StatusBadRequest},
		{name: "missing instance", contentType: "application/json", body: `{}`, wantStatus: http.StatusBadRequest},
		{name: "unknown algorithm", contentType: "application/json",
			body: `{"instance": {"num_sites": 1, "num_labels": 1}, "algorithm": "icm"}`, wantStatus: http.StatusBadRequest},
		{name: "neighbor out of range", contentType: "application/json",
			body: `{"instance": {"num_sites": 2, "num_labels": 2, "neighbors": [{"a": 0, "b": 5, "weight": 1}]}}`,
			wantStatus: http.StatusBadRequest},
		{name: "too many sites", contentType: "application/json", body: `{"instance": ` + chainInstance + `}`,
			wantStatus: http.StatusUnprocessableEntity},
		{name: "not json", contentType: "text/plain", body: `{}`, wantStatus: http.StatusUnsupportedMediaType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := post(t, h, "/api/solve", tt.contentType, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, http.StatusText(tt.wantStatus), resp.Error.Code)
			assert.NotEmpty(t, resp.Error.Message)
		})
	}
}

func TestEnergyEndpoint(t *testing.T) {
	h := newHandler(t, 0)

	tests := []struct {
		name       string
		labels     string
		wantStatus int
		wantData   int64
		wantSmooth int64
	}{
		{name: "given labels", labels: `, "labels": [0, 1, 0]`, wantStatus: http.StatusOK, wantData: 0, wantSmooth: 6},
		{name: "initial labels", labels: ``, wantStatus: http.StatusOK, wantData: 10, wantSmooth: 0},
		{name: "wrong length", labels: `, "labels": [0, 1]`, wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := post(t, h, "/api/energy", "application/json", `{"instance": `+chainInstance+tt.labels+`}`)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus != http.StatusOK {
				return
			}
			var got struct {
				Data   int64 `json:"data_energy"`
				Smooth int64 `json:"smooth_energy"`
				Total  int64 `json:"energy"`
			}
			require.NoError(t, json.Unmarshal(resp.Data, &got))
			assert.Equal(t, tt.wantData, got.Data)
			assert.Equal(t, tt.wantSmooth, got.Smooth)
			assert.Equal(t, tt.wantData+tt.wantSmooth, got.Total)
		})
	}
}

func TestHeartbeat(t *testing.T) {
	h := newHandler(t, 0)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecoverPanic(t *testing.T) {
	api := NewAPI(zaptest.NewLogger(t))
	h := api.recoverPanic(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "close", rec.Header().Get("Connection"))
}

func TestRealIP(t *testing.T) {
	var got string
	h := RealIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.RemoteAddr
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "10.0.0.1", got)
}

func TestIPRateLimiter(t *testing.T) {
	l := newIPRateLimiter(1, 2)
	now := time.Now()

	assert.True(t, l.allow("a", now))
	assert.True(t, l.allow("a", now))
	assert.False(t, l.allow("a", now))
	assert.True(t, l.allow("b", now))
	assert.True(t, l.allow("a", now.Add(2*time.Second)))

	l.evict(now.Add(time.Hour), time.Minute)
	assert.Empty(t, l.clients)

	h := l.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	codes := []int{}
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

type rw struct {
	io.Reader
	io.Writer
}

func TestSolveStream(t *testing.T) {
	srv := httptest.NewServer(newHandler(t, 0))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	conn, br, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/api/ws/solve")
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(10*time.Second)))

	var stream io.ReadWriter = conn
	if br != nil {
		stream = rw{Reader: io.MultiReader(br, conn), Writer: conn}
	}

	require.NoError(t, wsutil.WriteClientText(stream, []byte(`{"instance": `+chainInstance+`}`)))

	var (
		cycles []int64
		result struct {
			Energy int64   `json:"energy"`
			Labels []int32 `json:"labels"`
		}
	)
	for {
		msg, err := wsutil.ReadServerText(stream)
		require.NoError(t, err)

		var frame struct {
			Cycle *struct {
				Cycle  int   `json:"cycle"`
				Energy int64 `json:"energy"`
			} `json:"cycle"`
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, json.NewDecoder(bytes.NewReader(msg)).Decode(&frame), string(msg))
		if frame.Cycle != nil {
			cycles = append(cycles, frame.Cycle.Energy)
			continue
		}
		require.NotNil(t, frame.Data, string(msg))
		require.NoError(t, json.Unmarshal(frame.Data, &result))
		break
	}

	require.NotEmpty(t, cycles)
	for i := 1; i < len(cycles); i++ {
		assert.LessOrEqual(t, cycles[i], cycles[i-1])
	}
	assert.Equal(t, cycles[len(cycles)-1], result.Energy)
	assert.Equal(t, int64(5), result.Energy)
	assert.Equal(t, []int32{0, 0, 0}, result.Labels)
}

func TestSolveStreamValidation(t *testing.T) {
	srv := httptest.NewServer(newHandler(t, 0))
	defer srv.Close()

	conn, br, _, err := ws.Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http")+"/api/ws/solve")
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(10*time.Second)))

	var stream io.ReadWriter = conn
	if br != nil {
		stream = rw{Reader: io.MultiReader(br, conn), Writer: conn}
	}
	require.NoError(t, wsutil.WriteClientText(stream, []byte(`{"algorithm": "swap"}`)))

	msg, err := wsutil.ReadServerText(stream)
	require.NoError(t, err)
	var resp responseBody
	require.NoError(t, json.Unmarshal(msg, &resp))
	assert.Equal(t, http.StatusText(http.StatusBadRequest), resp.Error.Code)
}
