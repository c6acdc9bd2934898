package datastructure

import (
	"fmt"

	"github.com/lintang-b-s/graphcut/pkg"
	"github.com/lintang-b-s/graphcut/pkg/util"
)

type Index uint32

type ArcID int32

const NO_ARC ArcID = -1

// enum of cut side
type Segment uint8

const (
	SOURCE Segment = iota
	SINK
)

func (s Segment) String() string {
	if s == SOURCE {
		return "source"
	}
	return "sink"
}

type FlowNode struct {
	firstArc ArcID // head of the singly linked list of outgoing arcs, NO_ARC if none
	// trCap residual terminal capacity: > 0 is residual capacity from the source,
	// < 0 is (negated) residual capacity to the sink
	trCap int64

	// accumulated terminal weights as passed to AddTWeights, kept for cut verification
	sourceWeight int64
	sinkWeight   int64
	initialTrCap int64
}

func (n *FlowNode) GetFirstArc() ArcID {
	return n.firstArc
}

func (n *FlowNode) GetTrCap() int64 {
	return n.trCap
}

// arcs are stored in pairs: arc 2k and arc 2k+1 are sisters.
type FlowArc struct {
	head     Index
	next     ArcID
	sister   ArcID
	rCap     int64
	capacity int64
}

func (a *FlowArc) GetHead() Index {
	return a.head
}

func (a *FlowArc) GetNext() ArcID {
	return a.next
}

func (a *FlowArc) GetSister() ArcID {
	return a.sister
}

func (a *FlowArc) GetResidual() int64 {
	return a.rCap
}

func (a *FlowArc) GetCapacity() int64 {
	return a.capacity
}

// FlowNetwork is an index based arena of nodes and paired residual arcs. The source and
// the sink are implicit: every node carries a signed terminal residual capacity.
// Terminal weights that would be paid on both sides are folded into a constant flow,
// so a network always reports maxflow = constant + augmented flow.
type FlowNetwork struct {
	nodes []FlowNode
	arcs  []FlowArc
	flow  int64

	// bumped on every structural change, solvers keeping state between calls compare it
	generation uint64
}

func NewFlowNetwork(nodeHint, edgeHint int) *FlowNetwork {
	return &FlowNetwork{
		nodes: make([]FlowNode, 0, nodeHint),
		arcs:  make([]FlowArc, 0, 2*edgeHint),
	}
}

// Reset drops all nodes and arcs but keeps the allocated memory.
func (fn *FlowNetwork) Reset() {
	fn.nodes = fn.nodes[:0]
	fn.arcs = fn.arcs[:0]
	fn.flow = 0
	fn.generation++
}

// Generation changes whenever nodes or arcs are added, or the network is reset. Terminal
// weight updates keep the generation.
func (fn *FlowNetwork) Generation() uint64 {
	return fn.generation
}

// ResetFlow removes all augmented flow, restoring residual capacities to the
// capacities the network was built with.
func (fn *FlowNetwork) ResetFlow() {
	fn.generation++
	fn.flow = 0
	for i := range fn.nodes {
		node := &fn.nodes[i]
		node.trCap = node.sourceWeight - node.sinkWeight
		node.initialTrCap = node.trCap
		fn.flow += util.Min(node.sourceWeight, node.sinkWeight)
	}
	for a := range fn.arcs {
		fn.arcs[a].rCap = fn.arcs[a].capacity
	}
}

// AddNode appends num nodes and returns the index of the first one.
func (fn *FlowNetwork) AddNode(num int) Index {
	first := Index(len(fn.nodes))
	fn.generation++
	for i := 0; i < num; i++ {
		fn.nodes = append(fn.nodes, FlowNode{firstArc: NO_ARC})
	}
	return first
}

func (fn *FlowNetwork) NumberOfVertices() int {
	return len(fn.nodes)
}

func (fn *FlowNetwork) NumberOfArcs() int {
	return len(fn.arcs)
}

func (fn *FlowNetwork) validNode(i Index) bool {
	return int(i) < len(fn.nodes)
}

// AddEdge adds the directed arc i->j with capacity capacity and the arc j->i with capacity
// revCapacity.
func (fn *FlowNetwork) AddEdge(i, j Index, capacity, revCapacity int64) error {
	if !fn.validNode(i) || !fn.validNode(j) {
		return fmt.Errorf("%w: arc %d->%d references a missing node", pkg.ErrInvalidNetwork, i, j)
	}
	if i == j {
		return fmt.Errorf("%w: self loop on node %d", pkg.ErrInvalidNetwork, i)
	}
	if capacity < 0 || revCapacity < 0 {
		return fmt.Errorf("%w: negative capacity on arc %d->%d (%d, %d)", pkg.ErrInvalidNetwork, i, j,
			capacity, revCapacity)
	}
	if capacity > pkg.INF_CAPACITY || revCapacity > pkg.INF_CAPACITY {
		return fmt.Errorf("%w: capacity of arc %d->%d exceeds %d", pkg.ErrOverflow, i, j, pkg.INF_CAPACITY)
	}

	a := ArcID(len(fn.arcs))
	aRev := a + 1

	fn.arcs = append(fn.arcs,
		FlowArc{head: j, next: fn.nodes[i].firstArc, sister: aRev, rCap: capacity, capacity: capacity},
		FlowArc{head: i, next: fn.nodes[j].firstArc, sister: a, rCap: revCapacity, capacity: revCapacity},
	)
	fn.nodes[i].firstArc = a
	fn.nodes[j].firstArc = aRev
	fn.generation++
	return nil
}

// AddTWeights adds capSource to the source->i arc and capSink to the i->sink arc. Only
// the difference is kept as residual capacity, the common part goes straight into
// the flow. Each terminal arc holds at most pkg.INF_CAPACITY in total, a larger sum is
// reported as pkg.ErrOverflow.
func (fn *FlowNetwork) AddTWeights(i Index, capSource, capSink int64) error {
	if !fn.validNode(i) {
		return fmt.Errorf("%w: terminal weights for missing node %d", pkg.ErrInvalidNetwork, i)
	}
	if capSource < 0 || capSink < 0 {
		return fmt.Errorf("%w: negative terminal capacity on node %d (%d, %d)", pkg.ErrInvalidNetwork, i,
			capSource, capSink)
	}
	node := &fn.nodes[i]

	sourceWeight, err := util.AddInt64(node.sourceWeight, capSource)
	if err != nil {
		return fmt.Errorf("source weight of node %d: %w", i, err)
	}
	sinkWeight, err := util.AddInt64(node.sinkWeight, capSink)
	if err != nil {
		return fmt.Errorf("sink weight of node %d: %w", i, err)
	}
	if sourceWeight > pkg.INF_CAPACITY || sinkWeight > pkg.INF_CAPACITY {
		return fmt.Errorf("%w: terminal capacity of node %d exceeds %d", pkg.ErrOverflow, i, pkg.INF_CAPACITY)
	}

	delta := node.trCap
	if delta > 0 {
		capSource += delta
	} else {
		capSink -= delta
	}
	flow, err := util.AddInt64(fn.flow, util.Min(capSource, capSink))
	if err != nil {
		return fmt.Errorf("flow constant: %w", err)
	}

	fn.flow = flow
	node.trCap = capSource - capSink
	node.initialTrCap += capSource - capSink - delta
	node.sourceWeight = sourceWeight
	node.sinkWeight = sinkWeight
	return nil
}

func (fn *FlowNetwork) GetNode(i Index) *FlowNode {
	return &fn.nodes[i]
}

func (fn *FlowNetwork) GetFirstArc(i Index) ArcID {
	return fn.nodes[i].firstArc
}

func (fn *FlowNetwork) GetTrCap(i Index) int64 {
	return fn.nodes[i].trCap
}

func (fn *FlowNetwork) SetTrCap(i Index, trCap int64) {
	fn.nodes[i].trCap = trCap
}

func (fn *FlowNetwork) GetArc(a ArcID) *FlowArc {
	return &fn.arcs[a]
}

func (fn *FlowNetwork) GetArcHead(a ArcID) Index {
	return fn.arcs[a].head
}

func (fn *FlowNetwork) GetArcNext(a ArcID) ArcID {
	return fn.arcs[a].next
}

func (fn *FlowNetwork) GetArcSister(a ArcID) ArcID {
	return fn.arcs[a].sister
}

func (fn *FlowNetwork) GetResidual(a ArcID) int64 {
	return fn.arcs[a].rCap
}

// PushFlow moves delta units of flow along arc a.
func (fn *FlowNetwork) PushFlow(a ArcID, delta int64) {
	fn.arcs[a].rCap -= delta
	fn.arcs[fn.arcs[a].sister].rCap += delta
}

// GetArcFlow returns the net flow currently carried by arc a.
func (fn *FlowNetwork) GetArcFlow(a ArcID) int64 {
	return fn.arcs[a].capacity - fn.arcs[a].rCap
}

func (fn *FlowNetwork) GetFlow() int64 {
	return fn.flow
}

func (fn *FlowNetwork) AddFlow(delta int64) {
	fn.flow += delta
}

// GetTerminalFlow returns the net flow entering node i from the terminals
// (flow from the source minus flow to the sink).
func (fn *FlowNetwork) GetTerminalFlow(i Index) int64 {
	return fn.nodes[i].initialTrCap - fn.nodes[i].trCap
}

func (fn *FlowNetwork) ForEachArcOfVertex(i Index, handle func(a ArcID, arc *FlowArc)) {
	for a := fn.nodes[i].firstArc; a != NO_ARC; a = fn.arcs[a].next {
		handle(a, &fn.arcs[a])
	}
}

// CutCapacity returns the capacity of the s-t cut induced by segment, measured on the
// original (not residual) capacities.
func (fn *FlowNetwork) CutCapacity(segment func(i Index) Segment) int64 {
	var total int64
	for i := range fn.nodes {
		u := Index(i)
		if segment(u) == SINK {
			total += fn.nodes[i].sourceWeight
			continue
		}
		total += fn.nodes[i].sinkWeight
		fn.ForEachArcOfVertex(u, func(_ ArcID, arc *FlowArc) {
			if segment(arc.head) == SINK {
				total += arc.capacity
			}
		})
	}
	return total
}

// Validate checks the structural invariants the solvers rely on.
func (fn *FlowNetwork) Validate() error {
	if len(fn.arcs)%2 != 0 {
		return fmt.Errorf("%w: unpaired arc", pkg.ErrInvalidNetwork)
	}
	for a := range fn.arcs {
		arc := &fn.arcs[a]
		if !fn.validNode(arc.head) {
			return fmt.Errorf("%w: arc %d points to missing node %d", pkg.ErrInvalidNetwork, a, arc.head)
		}
		if arc.sister < 0 || int(arc.sister) >= len(fn.arcs) || fn.arcs[arc.sister].sister != ArcID(a) {
			return fmt.Errorf("%w: arc %d has a broken sister link", pkg.ErrInvalidNetwork, a)
		}
		if arc.rCap < 0 {
			return fmt.Errorf("%w: negative residual capacity on arc %d", pkg.ErrInvalidNetwork, a)
		}
	}
	return nil
}
