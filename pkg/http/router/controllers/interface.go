package controllers

import (
	"context"

	"github.com/lintang-b-s/graphcut/pkg/energy"
	"github.com/lintang-b-s/graphcut/pkg/instance"
)

type SolverService interface {
	Solve(ctx context.Context, inst *instance.Instance, opts instance.SolveOptions) (*instance.Solution, error)
	Energy(ctx context.Context, inst *instance.Instance, labels []int32) (energy.Breakdown, error)
}
