package maxflow

import (
	"fmt"

	"github.com/lintang-b-s/graphcut/pkg"
	"github.com/lintang-b-s/graphcut/pkg/datastructure"
)

type MinCut struct {
	flags                  []bool // true if the vertex is on the source side of the cut (partition one), else partition two
	numNodesInPartitionTwo int    // number of nodes on the sink side
	minCut                 int64  // maxflow value = capacity of this cut
}

func NewMinCut(numberOfVertices int) *MinCut {
	return &MinCut{
		flags: make([]bool, numberOfVertices),
	}
}

func (mc *MinCut) SetFlag(u datastructure.Index, flag bool) {
	mc.flags[u] = flag
}

func (mc *MinCut) GetFlag(u datastructure.Index) bool {
	return mc.flags[u]
}

func (mc *MinCut) GetSegment(u datastructure.Index) datastructure.Segment {
	if mc.flags[u] {
		return datastructure.SOURCE
	}
	return datastructure.SINK
}

func (mc *MinCut) GetNumNodesInPartitionTwo() int {
	return mc.numNodesInPartitionTwo
}

func (mc *MinCut) incrementNumNodesInPartitionTwo() {
	mc.numNodesInPartitionTwo++
}

func (mc *MinCut) GetMinCut() int64 {
	return mc.minCut
}

func (mc *MinCut) setMinCut(maxflow int64) {
	mc.minCut = maxflow
}

// Solver computes a maximum flow / minimum cut of the network it was built on. A solver may
// be called again after the network was rebuilt in place.
type Solver interface {
	ComputeMaxflowMinCut() (*MinCut, error)
	NumberOfAugmentations() int
}

// NewSolver returns the solver of the given type bound to network. With debug set every
// cut is checked against the flow value.
func NewSolver(solverType pkg.SolverType, network *datastructure.FlowNetwork, debug bool) (Solver, error) {
	switch solverType {
	case pkg.BOYKOV_KOLMOGOROV:
		bk := NewBoykovKolmogorov(network)
		bk.SetDebug(debug)
		return bk, nil
	case pkg.DINIC:
		return NewDinicMaxFlow(network, debug), nil
	default:
		return nil, fmt.Errorf("%w: unknown max-flow solver %d", pkg.ErrInvalidArgument, solverType)
	}
}

// verifyCut checks that the flow value equals the capacity of the cut.
func verifyCut(graph *datastructure.FlowNetwork, minCut *MinCut) error {
	if capacity := graph.CutCapacity(minCut.GetSegment); capacity != minCut.GetMinCut() {
		return fmt.Errorf("%w: flow %d differs from the cut capacity %d", pkg.ErrInvalidNetwork,
			minCut.GetMinCut(), capacity)
	}
	return nil
}
