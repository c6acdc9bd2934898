package pkg

// enum of move_type
type MoveType uint8

const (
	EXPANSION MoveType = iota
	SWAP
)

func (m MoveType) String() string {
	switch m {
	case EXPANSION:
		return "expansion"
	case SWAP:
		return "swap"
	default:
		return "unknown"
	}
}

func GetMoveType(name string) (MoveType, bool) {
	switch name {
	case "expansion", "alpha_expansion":
		return EXPANSION, true
	case "swap", "alpha_beta_swap":
		return SWAP, true
	default:
		return EXPANSION, false
	}
}

// enum of max-flow solver
type SolverType uint8

const (
	BOYKOV_KOLMOGOROV SolverType = iota
	DINIC
)

func (s SolverType) String() string {
	switch s {
	case BOYKOV_KOLMOGOROV:
		return "bk"
	case DINIC:
		return "dinic"
	default:
		return "unknown"
	}
}

func GetSolverType(name string) (SolverType, bool) {
	switch name {
	case "bk", "boykov_kolmogorov":
		return BOYKOV_KOLMOGOROV, true
	case "dinic":
		return DINIC, true
	default:
		return BOYKOV_KOLMOGOROV, false
	}
}

const (
	// every user supplied term (data cost, smooth table entry, edge weight, label cost)
	// must lie in [0, MAX_ENERGY_TERM]. products weight*smooth stay below 2^60.
	MAX_ENERGY_TERM int64 = 1 << 30

	INF_CAPACITY int64 = 1 << 62

	// upper bound on sites*labels and labels*labels of one model, the size of its dense
	// data cost and label tables.
	MAX_MODEL_ENTRIES = 1 << 27

	// max_iterations < 0 runs until no move improves the energy
	UNBOUNDED_ITERATIONS = -1

	DEFAULT_SEED uint64 = 1
)

const (
	VERBOSITY_SILENT = 0
	VERBOSITY_CYCLE  = 1
	VERBOSITY_MOVE   = 2
)
