package instance

import (
	"context"
	"fmt"

	"github.com/lintang-b-s/graphcut/pkg"
	"github.com/lintang-b-s/graphcut/pkg/concurrent"
	"github.com/lintang-b-s/graphcut/pkg/energy"
	"github.com/lintang-b-s/graphcut/pkg/optimizer"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type SolveOptions struct {
	Algorithm     pkg.MoveType
	MaxIterations int
	Optimizer     optimizer.Options
}

func DefaultSolveOptions() SolveOptions {
	return SolveOptions{
		Algorithm:     pkg.EXPANSION,
		MaxIterations: pkg.UNBOUNDED_ITERATIONS,
		Optimizer:     optimizer.DefaultOptions(),
	}
}

type Solution struct {
	*optimizer.Result
	Breakdown energy.Breakdown `json:"breakdown"`
}

// Solve builds the model of inst and optimizes it.
func Solve(inst *Instance, opts SolveOptions, log *zap.Logger) (*Solution, error) {
	m, err := inst.Build()
	if err != nil {
		return nil, err
	}
	return SolveModel(m, opts, log)
}

func SolveModel(m *energy.Model, opts SolveOptions, log *zap.Logger) (*Solution, error) {
	o := optimizer.New(m, opts.Optimizer, log)

	var (
		res *optimizer.Result
		err error
	)
	switch opts.Algorithm {
	case pkg.EXPANSION:
		res, err = o.Expansion(opts.MaxIterations)
	case pkg.SWAP:
		res, err = o.Swap(opts.MaxIterations)
	default:
		return nil, fmt.Errorf("%w: unknown algorithm %d", pkg.ErrInvalidArgument, opts.Algorithm)
	}
	if err != nil {
		return nil, err
	}
	breakdown, err := m.Breakdown(res.Labels)
	if err != nil {
		return nil, err
	}
	return &Solution{Result: res, Breakdown: breakdown}, nil
}

// BatchResult is the outcome of one instance of a batch. A failing instance does not stop
// the others.
type BatchResult struct {
	Name     string
	Solution *Solution
	Err      error
}

// NamedInstance is one batch entry.
type NamedInstance struct {
	Name     string
	Instance *Instance
}

// SolveBatch solves independent instances on numWorkers goroutines, each with its own model
// and optimizer. Results come back in input order.
func SolveBatch(ctx context.Context, instances []NamedInstance, opts SolveOptions, numWorkers int,
	log *zap.Logger) ([]BatchResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	wp := concurrent.NewWorkerPool[NamedInstance, BatchResult](numWorkers, len(instances))
	results := make([]BatchResult, len(instances))
	done := make([]bool, len(instances))

	wp.Start(ctx, func(ctx context.Context, job NamedInstance) BatchResult {
		sol, err := Solve(job.Instance, opts, log.With(zap.String("instance", job.Name)))
		if err != nil {
			log.Error("solve failed", zap.String("instance", job.Name), zap.Error(err))
		}
		return BatchResult{Name: job.Name, Solution: sol, Err: err}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer wp.Close()
		for i, inst := range instances {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			wp.AddJob(i, inst)
		}
		return nil
	})
	g.Go(func() error {
		wp.Wait()
		return nil
	})

	for res := range wp.CollectResults() {
		results[res.Index] = res.Value
		done[res.Index] = true
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i := range done {
		if !done[i] {
			return nil, fmt.Errorf("instance %q was not solved: %w", instances[i].Name, ctx.Err())
		}
	}
	return results, nil
}
