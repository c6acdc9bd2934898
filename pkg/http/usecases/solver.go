package usecases

import (
	"context"
	"errors"

	"github.com/lintang-b-s/graphcut/pkg"
	"github.com/lintang-b-s/graphcut/pkg/energy"
	"github.com/lintang-b-s/graphcut/pkg/instance"
	"github.com/lintang-b-s/graphcut/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Limits bound the work a single request can ask for. Zero means no limit beyond the
// model's own.
type Limits struct {
	MaxConcurrent int
	MaxSites      int
	MaxLabels     int
	// MaxEntries bounds sites*labels and labels*labels, the dense tables of a model.
	MaxEntries    int
	MaxIterations int
}

type SolverService struct {
	log    *zap.Logger
	solve  SolveFunc
	sem    *semaphore.Weighted
	limits Limits
}

// NewSolverService runs at most limits.MaxConcurrent solves at a time. Instances over the
// size limits are rejected and unbounded runs are capped at limits.MaxIterations cycles.
func NewSolverService(log *zap.Logger, limits Limits) *SolverService {
	if limits.MaxConcurrent < 1 {
		limits.MaxConcurrent = 1
	}
	return &SolverService{
		log:    log,
		solve:  instance.Solve,
		sem:    semaphore.NewWeighted(int64(limits.MaxConcurrent)),
		limits: limits,
	}
}

func (s *SolverService) checkSize(inst *instance.Instance) error {
	tooLarge := func(format string, a ...interface{}) error {
		return util.WrapErrorf(pkg.ErrInvalidArgument, util.ErrUnprocessable, format, a...)
	}
	if s.limits.MaxSites > 0 && inst.NumSites > s.limits.MaxSites {
		return tooLarge("instance has %d sites, the server accepts at most %d", inst.NumSites, s.limits.MaxSites)
	}
	if s.limits.MaxLabels > 0 && inst.NumLabels > s.limits.MaxLabels {
		return tooLarge("instance has %d labels, the server accepts at most %d", inst.NumLabels,
			s.limits.MaxLabels)
	}
	if s.limits.MaxEntries > 0 && inst.NumLabels > 0 {
		if inst.NumSites > s.limits.MaxEntries/inst.NumLabels {
			return tooLarge("%d sites x %d labels exceeds %d entries", inst.NumSites, inst.NumLabels,
				s.limits.MaxEntries)
		}
		if inst.NumLabels > s.limits.MaxEntries/inst.NumLabels {
			return tooLarge("a %d x %d label table exceeds %d entries", inst.NumLabels, inst.NumLabels,
				s.limits.MaxEntries)
		}
	}
	return nil
}

// Solve optimizes inst. The returned errors carry a util.Error code for the http layer.
func (s *SolverService) Solve(ctx context.Context, inst *instance.Instance,
	opts instance.SolveOptions) (*instance.Solution, error) {
	if err := s.checkSize(inst); err != nil {
		return nil, err
	}
	if limit := s.limits.MaxIterations; limit > 0 && (opts.MaxIterations < 0 || opts.MaxIterations > limit) {
		opts.MaxIterations = limit
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "solver is busy")
	}
	defer s.sem.Release(1)

	sol, err := s.solve(inst, opts, s.log)
	if err != nil {
		return nil, wrapSolveError(err)
	}
	s.log.Info("instance solved", zap.Int("num_sites", inst.NumSites), zap.Int("num_labels", inst.NumLabels),
		zap.String("algorithm", opts.Algorithm.String()), zap.Int64("energy", sol.Energy),
		zap.Int("cycles", sol.Cycles), zap.Bool("converged", sol.Converged))
	return sol, nil
}

// Energy evaluates labels, or the initial labeling of inst when labels is empty.
func (s *SolverService) Energy(ctx context.Context, inst *instance.Instance, labels []int32) (energy.Breakdown, error) {
	if err := s.checkSize(inst); err != nil {
		return energy.Breakdown{}, err
	}
	m, err := inst.Build()
	if err != nil {
		return energy.Breakdown{}, wrapSolveError(err)
	}
	ls := make([]energy.LabelID, 0, len(labels))
	for _, l := range labels {
		ls = append(ls, energy.LabelID(l))
	}
	if len(ls) == 0 {
		ls = m.Labels()
	}
	breakdown, err := m.Breakdown(ls)
	if err != nil {
		return energy.Breakdown{}, wrapSolveError(err)
	}
	return breakdown, nil
}

func wrapSolveError(err error) error {
	switch {
	case errors.Is(err, pkg.ErrInvalidArgument), errors.Is(err, pkg.ErrOutOfRange):
		return util.WrapErrorf(err, util.ErrBadParamInput, "invalid instance")
	case errors.Is(err, pkg.ErrPreconditionViolated):
		return util.WrapErrorf(err, util.ErrUnprocessable, "instance cannot be solved with the requested options")
	default:
		return util.WrapErrorf(err, util.ErrInternalServerError, "solve failed")
	}
}
