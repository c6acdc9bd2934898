package controllers

import (
	"github.com/lintang-b-s/graphcut/pkg"
	"github.com/lintang-b-s/graphcut/pkg/energy"
	"github.com/lintang-b-s/graphcut/pkg/instance"
)

type solveRequest struct {
	Instance      *instance.Instance `json:"instance" validate:"required"`
	Algorithm     string             `json:"algorithm" validate:"omitempty,oneof=expansion swap alpha_expansion alpha_beta_swap"`
	MaxIterations *int               `json:"max_iterations" validate:"omitempty,gte=-1"`
	RandomOrder   bool               `json:"random_order"`
	Seed          *uint64            `json:"seed"`
	Solver        string             `json:"solver" validate:"omitempty,oneof=bk boykov_kolmogorov dinic"`
	Strict        bool               `json:"strict"`
}

// toSolveOptions assumes the request passed validation.
func (r *solveRequest) toSolveOptions() instance.SolveOptions {
	opts := instance.DefaultSolveOptions()
	if r.Algorithm != "" {
		opts.Algorithm, _ = pkg.GetMoveType(r.Algorithm)
	}
	if r.MaxIterations != nil {
		opts.MaxIterations = *r.MaxIterations
	}
	if r.Solver != "" {
		opts.Optimizer.Solver, _ = pkg.GetSolverType(r.Solver)
	}
	if r.Seed != nil {
		opts.Optimizer.Seed = *r.Seed
	}
	opts.Optimizer.RandomOrder = r.RandomOrder
	opts.Optimizer.Strict = r.Strict
	return opts
}

type solveResponse struct {
	Labels          []int32          `json:"labels"`
	Energy          int64            `json:"energy"`
	Breakdown       energy.Breakdown `json:"breakdown"`
	Converged       bool             `json:"converged"`
	Cycles          int              `json:"cycles"`
	AcceptedMoves   int              `json:"accepted_moves"`
	NonRegularTerms int              `json:"non_regular_terms"`
}

func NewSolveResponse(sol *instance.Solution) solveResponse {
	labels := make([]int32, len(sol.Labels))
	for i, l := range sol.Labels {
		labels[i] = int32(l)
	}
	return solveResponse{
		Labels:          labels,
		Energy:          sol.Energy,
		Breakdown:       sol.Breakdown,
		Converged:       sol.Converged,
		Cycles:          sol.Cycles,
		AcceptedMoves:   sol.AcceptedMoves,
		NonRegularTerms: sol.NonRegularTerms,
	}
}

type energyRequest struct {
	Instance *instance.Instance `json:"instance" validate:"required"`
	// empty evaluates the initial labeling of the instance
	Labels   []int32            `json:"labels" validate:"omitempty,dive,gte=0"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
