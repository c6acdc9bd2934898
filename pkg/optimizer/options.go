package optimizer

import (
	"github.com/lintang-b-s/graphcut/pkg"
	"github.com/lintang-b-s/graphcut/pkg/energy"
)

type Options struct {
	// RandomOrder visits the labels (or label pairs) in a seeded random order, reshuffled
	// every cycle.
	RandomOrder bool
	Seed        uint64
	Solver      pkg.SolverType
	// Strict fails a move whose network cannot represent the energy exactly instead of
	// approximating it.
	Strict bool
	// Debug checks every cut against its flow value.
	Debug     bool
	Verbosity int
	// OnCycle is called after every full cycle over the labels.
	OnCycle func(CycleInfo)
}

func DefaultOptions() Options {
	return Options{
		Seed:      pkg.DEFAULT_SEED,
		Solver:    pkg.BOYKOV_KOLMOGOROV,
		Verbosity: pkg.VERBOSITY_SILENT,
	}
}

type CycleInfo struct {
	Move          string `json:"move"`
	Cycle         int    `json:"cycle"`
	Energy        int64  `json:"energy"`
	AcceptedMoves int    `json:"accepted_moves"`
}

type Result struct {
	Labels          []energy.LabelID `json:"labels"`
	Energy          int64            `json:"energy"`
	Converged       bool             `json:"converged"`
	Cycles          int              `json:"cycles"`
	AcceptedMoves   int              `json:"accepted_moves"`
	NonRegularTerms int              `json:"non_regular_terms"`
}

// enum of optimizer state
type State uint8

const (
	IDLE State = iota
	ROUND_IN_PROGRESS
	CONVERGED
)

func (s State) String() string {
	switch s {
	case IDLE:
		return "idle"
	case ROUND_IN_PROGRESS:
		return "round_in_progress"
	case CONVERGED:
		return "converged"
	default:
		return "unknown"
	}
}
