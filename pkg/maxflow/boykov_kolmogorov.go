package maxflow

import (
	"math"

	"github.com/lintang-b-s/graphcut/pkg/datastructure"
)

const (
	// parent markers, real parents are arc ids >= 0
	NO_PARENT datastructure.ArcID = -1
	TERMINAL  datastructure.ArcID = -2
	ORPHAN    datastructure.ArcID = -3

	INFINITE_DIST = math.MaxInt32
)

type bkNode struct {
	parent   datastructure.ArcID // arc from this node to its parent in the search tree
	isSink   bool                // tree membership when parent != NO_PARENT
	active   bool                // in the active queue (or the node currently being grown)
	isMarked bool
	ts       int // time stamp of the last dist computation
	dist     int // distance to the terminal along the tree
}

/*
BoykovKolmogorov. [An Experimental Comparison of Min-Cut/Max-Flow Algorithms for Energy Minimization in Vision,
Yuri Boykov & Vladimir Kolmogorov]

two search trees, rooted at the source and at the sink, grow until they touch; the path through the touching arc is
augmented and the nodes that lose their parent arc (orphans) are re-adopted instead of rebuilding the trees from
scratch. the trees survive between calls: after changing terminal capacities of some nodes (AddTWeights + MarkNode)
the next ComputeMaxflowMinCut only repairs the trees around the marked nodes.

nodes that belong to neither tree after termination are reported on the source side.
*/
type BoykovKolmogorov struct {
	graph *datastructure.FlowNetwork
	nodes []bkNode
	debug bool

	activeQueue  []datastructure.Index
	activeHead   int
	nextQueue    []datastructure.Index // nodes activated by MarkNode, processed on reuse
	orphans      []datastructure.Index
	orphanHead   int
	time         int
	iteration    int
	currentNode  datastructure.Index
	hasCurrent   bool
	numAugmented int
	generation   uint64 // network generation the trees were built on
}

func NewBoykovKolmogorov(graph *datastructure.FlowNetwork) *BoykovKolmogorov {
	return &BoykovKolmogorov{graph: graph}
}

// SetDebug makes every call check the flow value against the capacity of the returned cut.
func (bk *BoykovKolmogorov) SetDebug(debug bool) {
	bk.debug = debug
}

// NumberOfAugmentations returns the number of augmenting paths found by the last call.
func (bk *BoykovKolmogorov) NumberOfAugmentations() int {
	return bk.numAugmented
}

func (bk *BoykovKolmogorov) setActive(i datastructure.Index) {
	if !bk.nodes[i].active {
		bk.nodes[i].active = true
		bk.activeQueue = append(bk.activeQueue, i)
	}
}

func (bk *BoykovKolmogorov) nextActive() (datastructure.Index, bool) {
	for bk.activeHead < len(bk.activeQueue) {
		i := bk.activeQueue[bk.activeHead]
		bk.activeHead++
		bk.nodes[i].active = false
		// a node in the queue is active iff it has a parent
		if bk.nodes[i].parent != NO_PARENT {
			return i, true
		}
	}
	bk.activeQueue = bk.activeQueue[:0]
	bk.activeHead = 0
	return 0, false
}

func (bk *BoykovKolmogorov) setOrphan(i datastructure.Index) {
	bk.nodes[i].parent = ORPHAN
	bk.orphans = append(bk.orphans, i)
}

func (bk *BoykovKolmogorov) nextOrphan() (datastructure.Index, bool) {
	if bk.orphanHead < len(bk.orphans) {
		i := bk.orphans[bk.orphanHead]
		bk.orphanHead++
		return i, true
	}
	bk.orphans = bk.orphans[:0]
	bk.orphanHead = 0
	return 0, false
}

// MarkNode tells the solver that the terminal capacity of node i (or the residual capacity
// of one of its arcs) changed since the last call.
func (bk *BoykovKolmogorov) MarkNode(i datastructure.Index) {
	if int(i) >= len(bk.nodes) {
		return
	}
	if !bk.nodes[i].isMarked {
		bk.nodes[i].isMarked = true
		bk.nextQueue = append(bk.nextQueue, i)
	}
}

// AddTWeights forwards to the network and marks the node for the next incremental solve.
func (bk *BoykovKolmogorov) AddTWeights(i datastructure.Index, capSource, capSink int64) error {
	if err := bk.graph.AddTWeights(i, capSource, capSink); err != nil {
		return err
	}
	bk.MarkNode(i)
	return nil
}

func (bk *BoykovKolmogorov) init() {
	n := bk.graph.NumberOfVertices()
	if cap(bk.nodes) < n {
		bk.nodes = make([]bkNode, n)
	}
	bk.nodes = bk.nodes[:n]
	bk.activeQueue = bk.activeQueue[:0]
	bk.activeHead = 0
	bk.nextQueue = bk.nextQueue[:0]
	bk.orphans = bk.orphans[:0]
	bk.orphanHead = 0
	bk.time = 0
	bk.hasCurrent = false

	for v := 0; v < n; v++ {
		i := datastructure.Index(v)
		node := &bk.nodes[v]
		*node = bkNode{parent: NO_PARENT, ts: bk.time}
		trCap := bk.graph.GetTrCap(i)
		if trCap > 0 {
			// connected to the source
			node.isSink = false
			node.parent = TERMINAL
			node.dist = 1
			bk.setActive(i)
		} else if trCap < 0 {
			// connected to the sink
			node.isSink = true
			node.parent = TERMINAL
			node.dist = 1
			bk.setActive(i)
		}
	}
}

func (bk *BoykovKolmogorov) reuseTreesInit() {
	bk.activeQueue = bk.activeQueue[:0]
	bk.activeHead = 0
	bk.orphans = bk.orphans[:0]
	bk.orphanHead = 0
	bk.hasCurrent = false
	bk.time++

	for _, i := range bk.nextQueue {
		node := &bk.nodes[i]
		node.isMarked = false
		bk.setActive(i)

		trCap := bk.graph.GetTrCap(i)
		if trCap == 0 {
			if node.parent != NO_PARENT {
				bk.setOrphan(i)
			}
			continue
		}

		if trCap > 0 {
			if node.parent == NO_PARENT || node.isSink {
				node.isSink = false
				bk.graph.ForEachArcOfVertex(i, func(a datastructure.ArcID, arc *datastructure.FlowArc) {
					j := arc.GetHead()
					nj := &bk.nodes[j]
					if nj.isMarked {
						return
					}
					if nj.parent == arc.GetSister() {
						bk.setOrphan(j)
					}
					if nj.parent != NO_PARENT && nj.isSink && arc.GetResidual() > 0 {
						bk.setActive(j)
					}
				})
			}
		} else {
			if node.parent == NO_PARENT || !node.isSink {
				node.isSink = true
				bk.graph.ForEachArcOfVertex(i, func(a datastructure.ArcID, arc *datastructure.FlowArc) {
					j := arc.GetHead()
					nj := &bk.nodes[j]
					if nj.isMarked {
						return
					}
					if nj.parent == arc.GetSister() {
						bk.setOrphan(j)
					}
					if nj.parent != NO_PARENT && !nj.isSink && bk.graph.GetResidual(arc.GetSister()) > 0 {
						bk.setActive(j)
					}
				})
			}
		}
		node.parent = TERMINAL
		node.ts = bk.time
		node.dist = 1
	}
	bk.nextQueue = bk.nextQueue[:0]

	bk.adopt()
}

// grow expands the tree of node i by one level. it returns the arc from the source tree
// to the sink tree when the trees touch, NO_ARC otherwise.
func (bk *BoykovKolmogorov) grow(i datastructure.Index) datastructure.ArcID {
	ni := &bk.nodes[i]
	if !ni.isSink {
		// grow source tree
		for a := bk.graph.GetFirstArc(i); a != datastructure.NO_ARC; a = bk.graph.GetArcNext(a) {
			if bk.graph.GetResidual(a) == 0 {
				continue
			}
			j := bk.graph.GetArcHead(a)
			nj := &bk.nodes[j]
			if nj.parent == NO_PARENT {
				nj.isSink = false
				nj.parent = bk.graph.GetArcSister(a)
				nj.ts = ni.ts
				nj.dist = ni.dist + 1
				bk.setActive(j)
			} else if nj.isSink {
				return a
			} else if nj.ts <= ni.ts && nj.dist > ni.dist {
				// heuristic - trying to make the distance from j to the source shorter
				nj.parent = bk.graph.GetArcSister(a)
				nj.ts = ni.ts
				nj.dist = ni.dist + 1
			}
		}
		return datastructure.NO_ARC
	}

	// grow sink tree
	for a := bk.graph.GetFirstArc(i); a != datastructure.NO_ARC; a = bk.graph.GetArcNext(a) {
		sister := bk.graph.GetArcSister(a)
		if bk.graph.GetResidual(sister) == 0 {
			continue
		}
		j := bk.graph.GetArcHead(a)
		nj := &bk.nodes[j]
		if nj.parent == NO_PARENT {
			nj.isSink = true
			nj.parent = sister
			nj.ts = ni.ts
			nj.dist = ni.dist + 1
			bk.setActive(j)
		} else if !nj.isSink {
			return sister
		} else if nj.ts <= ni.ts && nj.dist > ni.dist {
			// heuristic - trying to make the distance from j to the sink shorter
			nj.parent = sister
			nj.ts = ni.ts
			nj.dist = ni.dist + 1
		}
	}
	return datastructure.NO_ARC
}

// augment pushes the bottleneck capacity along source -> middle arc -> sink.
func (bk *BoykovKolmogorov) augment(middle datastructure.ArcID) {
	g := bk.graph

	// 1. finding bottleneck capacity
	// 1a - the source tree
	bottleneck := g.GetResidual(middle)
	i := g.GetArcHead(g.GetArcSister(middle))
	for {
		a := bk.nodes[i].parent
		if a == TERMINAL {
			break
		}
		if r := g.GetResidual(g.GetArcSister(a)); bottleneck > r {
			bottleneck = r
		}
		i = g.GetArcHead(a)
	}
	if trCap := g.GetTrCap(i); bottleneck > trCap {
		bottleneck = trCap
	}
	// 1b - the sink tree
	i = g.GetArcHead(middle)
	for {
		a := bk.nodes[i].parent
		if a == TERMINAL {
			break
		}
		if r := g.GetResidual(a); bottleneck > r {
			bottleneck = r
		}
		i = g.GetArcHead(a)
	}
	if trCap := -g.GetTrCap(i); bottleneck > trCap {
		bottleneck = trCap
	}

	// 2. augmenting
	// 2a - the source tree
	g.PushFlow(middle, bottleneck)
	i = g.GetArcHead(g.GetArcSister(middle))
	for {
		a := bk.nodes[i].parent
		if a == TERMINAL {
			break
		}
		sister := g.GetArcSister(a)
		g.PushFlow(sister, bottleneck)
		if g.GetResidual(sister) == 0 {
			bk.setOrphan(i)
		}
		i = g.GetArcHead(a)
	}
	g.SetTrCap(i, g.GetTrCap(i)-bottleneck)
	if g.GetTrCap(i) == 0 {
		bk.setOrphan(i)
	}
	// 2b - the sink tree
	i = g.GetArcHead(middle)
	for {
		a := bk.nodes[i].parent
		if a == TERMINAL {
			break
		}
		g.PushFlow(a, bottleneck)
		if g.GetResidual(a) == 0 {
			bk.setOrphan(i)
		}
		i = g.GetArcHead(a)
	}
	g.SetTrCap(i, g.GetTrCap(i)+bottleneck)
	if g.GetTrCap(i) == 0 {
		bk.setOrphan(i)
	}

	g.AddFlow(bottleneck)
	bk.numAugmented++
}

// originDist follows the parent chain of j and returns its distance to the terminal of its
// tree, or INFINITE_DIST when the chain ends in an orphan.
func (bk *BoykovKolmogorov) originDist(j datastructure.Index) int {
	d := 0
	for {
		nj := &bk.nodes[j]
		if nj.ts == bk.time {
			d += nj.dist
			break
		}
		a := nj.parent
		d++
		if a == TERMINAL {
			nj.ts = bk.time
			nj.dist = 1
			break
		}
		if a == ORPHAN {
			return INFINITE_DIST
		}
		j = bk.graph.GetArcHead(a)
	}
	return d
}

// markPath stamps the distances along the (valid) parent chain starting at j.
func (bk *BoykovKolmogorov) markPath(j datastructure.Index, d int) {
	for bk.nodes[j].ts != bk.time {
		bk.nodes[j].ts = bk.time
		bk.nodes[j].dist = d
		d--
		j = bk.graph.GetArcHead(bk.nodes[j].parent)
	}
}

func (bk *BoykovKolmogorov) processOrphan(i datastructure.Index) {
	g := bk.graph
	isSink := bk.nodes[i].isSink

	// residual capacity of the arc that would carry flow from the new parent towards i
	// (source tree) or from i towards the new parent (sink tree)
	usable := func(a datastructure.ArcID) bool {
		if isSink {
			return g.GetResidual(a) > 0
		}
		return g.GetResidual(g.GetArcSister(a)) > 0
	}

	minArc := datastructure.NO_ARC
	minDist := INFINITE_DIST

	// trying to find a new parent
	for a := g.GetFirstArc(i); a != datastructure.NO_ARC; a = g.GetArcNext(a) {
		if !usable(a) {
			continue
		}
		j := g.GetArcHead(a)
		nj := &bk.nodes[j]
		if nj.isSink != isSink || nj.parent == NO_PARENT {
			continue
		}
		// checking the origin of j
		d := bk.originDist(j)
		if d < INFINITE_DIST {
			// j originates from the terminal - done
			if d < minDist {
				minArc = a
				minDist = d
			}
			bk.markPath(j, d)
		}
	}

	if minArc != datastructure.NO_ARC {
		bk.nodes[i].parent = minArc
		bk.nodes[i].ts = bk.time
		bk.nodes[i].dist = minDist + 1
		return
	}

	// no parent is found
	bk.nodes[i].parent = NO_PARENT

	// process neighbors
	for a := g.GetFirstArc(i); a != datastructure.NO_ARC; a = g.GetArcNext(a) {
		j := g.GetArcHead(a)
		nj := &bk.nodes[j]
		if nj.isSink != isSink || nj.parent == NO_PARENT {
			continue
		}
		if usable(a) {
			bk.setActive(j)
		}
		if nj.parent != TERMINAL && nj.parent != ORPHAN && g.GetArcHead(nj.parent) == i {
			bk.setOrphan(j)
		}
	}
}

func (bk *BoykovKolmogorov) adopt() {
	for {
		i, ok := bk.nextOrphan()
		if !ok {
			return
		}
		bk.processOrphan(i)
	}
}

// ComputeMaxflowMinCut runs the solver. the first call builds the search trees from scratch,
// later calls reuse them and only repair the trees around marked nodes, as long as the network
// was not reset or extended in between.
func (bk *BoykovKolmogorov) ComputeMaxflowMinCut() (*MinCut, error) {
	if err := bk.graph.Validate(); err != nil {
		return nil, err
	}

	bk.numAugmented = 0
	if bk.iteration == 0 || bk.generation != bk.graph.Generation() ||
		len(bk.nodes) != bk.graph.NumberOfVertices() {
		bk.init()
		bk.generation = bk.graph.Generation()
	} else {
		bk.reuseTreesInit()
	}

	for {
		var (
			i  datastructure.Index
			ok bool
		)
		if bk.hasCurrent {
			i = bk.currentNode
			bk.nodes[i].active = false
			ok = bk.nodes[i].parent != NO_PARENT
			bk.hasCurrent = false
		}
		if !ok {
			if i, ok = bk.nextActive(); !ok {
				break
			}
		}

		middle := bk.grow(i)
		bk.time++

		if middle == datastructure.NO_ARC {
			continue
		}

		// keep growing i after the augmentation, it may touch the other tree again
		bk.nodes[i].active = true
		bk.currentNode = i
		bk.hasCurrent = true

		bk.augment(middle)
		bk.adopt()
	}

	bk.iteration++
	minCut := bk.makeMinCut()
	if bk.debug {
		if err := verifyCut(bk.graph, minCut); err != nil {
			return nil, err
		}
	}
	return minCut, nil
}

// WhatSegment returns the side of node i in the last computed cut.
func (bk *BoykovKolmogorov) WhatSegment(i datastructure.Index) datastructure.Segment {
	if bk.nodes[i].parent != NO_PARENT && bk.nodes[i].isSink {
		return datastructure.SINK
	}
	return datastructure.SOURCE
}

func (bk *BoykovKolmogorov) makeMinCut() *MinCut {
	minCut := NewMinCut(bk.graph.NumberOfVertices())
	for u := datastructure.Index(0); u < datastructure.Index(bk.graph.NumberOfVertices()); u++ {
		if bk.WhatSegment(u) == datastructure.SOURCE {
			minCut.SetFlag(u, true)
		} else {
			minCut.incrementNumNodesInPartitionTwo()
		}
	}
	minCut.setMinCut(bk.graph.GetFlow())
	return minCut
}
