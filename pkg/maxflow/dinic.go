package maxflow

import (
	"container/list"
	"math"

	"github.com/lintang-b-s/graphcut/pkg/datastructure"
	"github.com/lintang-b-s/graphcut/pkg/util"
)

const INVALID_LEVEL = -1

// DinicMaxFlow runs Dinic's blocking-flow algorithm on a FlowNetwork. The terminals are
// implicit: a node with positive terminal capacity is adjacent to the source, a node with
// negative terminal capacity is adjacent to the sink.
type DinicMaxFlow struct {
	graph *datastructure.FlowNetwork
	debug bool

	level        []int
	lastEdge     []datastructure.ArcID
	sinkLevel    int
	numAugmented int
}

func NewDinicMaxFlow(graph *datastructure.FlowNetwork, debug bool) *DinicMaxFlow {
	return &DinicMaxFlow{graph: graph, debug: debug}
}

// NumberOfAugmentations returns the number of augmenting paths found by the last call.
func (dmf *DinicMaxFlow) NumberOfAugmentations() int {
	return dmf.numAugmented
}

func (dmf *DinicMaxFlow) bfsLevelGraph() bool {
	for v := range dmf.level {
		dmf.level[v] = INVALID_LEVEL
	}
	dmf.sinkLevel = math.MaxInt

	levelQueue := list.New()
	for v := 0; v < dmf.graph.NumberOfVertices(); v++ {
		if dmf.graph.GetTrCap(datastructure.Index(v)) > 0 {
			dmf.level[v] = 1
			levelQueue.PushBack(datastructure.Index(v))
		}
	}

	for levelQueue.Len() > 0 {
		u := levelQueue.Front().Value.(datastructure.Index)
		levelQueue.Remove(levelQueue.Front())

		uLevel := dmf.level[u]
		if dmf.graph.GetTrCap(u) < 0 && dmf.sinkLevel == math.MaxInt {
			dmf.sinkLevel = uLevel + 1
		}
		level := uLevel + 1
		if level >= dmf.sinkLevel {
			// longer than the shortest augmenting path
			continue
		}

		dmf.graph.ForEachArcOfVertex(u, func(_ datastructure.ArcID, arc *datastructure.FlowArc) {
			v := arc.GetHead()
			if arc.GetResidual() > 0 && dmf.level[v] == INVALID_LEVEL {
				dmf.level[v] = level
				levelQueue.PushBack(v)
			}
		})
	}
	return dmf.sinkLevel != math.MaxInt
}

func (dmf *DinicMaxFlow) dfsAugmentPath(u datastructure.Index, f int64) int64 {
	// termination
	if f == 0 {
		return 0
	}
	if trCap := dmf.graph.GetTrCap(u); trCap < 0 && dmf.level[u]+1 == dmf.sinkLevel {
		pushed := util.Min(f, -trCap)
		dmf.graph.SetTrCap(u, trCap+pushed)
		return pushed
	}
	if dmf.level[u]+1 >= dmf.sinkLevel {
		return 0
	}

	for ; dmf.lastEdge[u] != datastructure.NO_ARC; dmf.lastEdge[u] = dmf.graph.GetArcNext(dmf.lastEdge[u]) {
		a := dmf.lastEdge[u]
		v := dmf.graph.GetArcHead(a)
		residual := dmf.graph.GetResidual(a)
		if residual == 0 || dmf.level[v] != dmf.level[u]+1 {
			continue
		}

		if pushed := dmf.dfsAugmentPath(v, util.Min(residual, f)); pushed > 0 {
			dmf.graph.PushFlow(a, pushed)
			return pushed
		}
	}

	return 0
}

func (dmf *DinicMaxFlow) resetCurrentEdges() {
	for i := 0; i < dmf.graph.NumberOfVertices(); i++ {
		dmf.lastEdge[i] = dmf.graph.GetFirstArc(datastructure.Index(i))
	}
}

/*
ComputeMaxflowMinCut. time complexity: O(N^2 * M), N,M = number of nodes & arcs of the flow network.
the returned cut puts every node reachable from the source in the residual network on the source side.
*/
func (dmf *DinicMaxFlow) ComputeMaxflowMinCut() (*MinCut, error) {
	if err := dmf.graph.Validate(); err != nil {
		return nil, err
	}
	n := dmf.graph.NumberOfVertices()
	if cap(dmf.level) < n {
		dmf.level = make([]int, n)
		dmf.lastEdge = make([]datastructure.ArcID, n)
	}
	dmf.level = dmf.level[:n]
	dmf.lastEdge = dmf.lastEdge[:n]
	dmf.numAugmented = 0

	for dmf.bfsLevelGraph() {
		dmf.resetCurrentEdges()

		for s := 0; s < n; s++ {
			u := datastructure.Index(s)
			if dmf.level[u] != 1 {
				continue
			}
			for {
				trCap := dmf.graph.GetTrCap(u)
				if trCap <= 0 {
					break
				}
				flow := dmf.dfsAugmentPath(u, trCap)
				if flow == 0 {
					break
				}
				dmf.graph.SetTrCap(u, dmf.graph.GetTrCap(u)-flow)
				dmf.graph.AddFlow(flow)
				dmf.numAugmented++
			}
		}
	}

	minCut := NewMinCut(n)
	dmf.makeMinCutFlags(minCut, dmf.graph.GetFlow())
	if dmf.debug {
		if err := verifyCut(dmf.graph, minCut); err != nil {
			return nil, err
		}
	}
	return minCut, nil
}

func (dmf *DinicMaxFlow) makeMinCutFlags(minCut *MinCut, maxflow int64) {
	for u := datastructure.Index(0); u < datastructure.Index(dmf.graph.NumberOfVertices()); u++ {
		if dmf.level[u] != INVALID_LEVEL {
			minCut.SetFlag(u, true)
		} else {
			minCut.incrementNumNodesInPartitionTwo()
		}
	}
	minCut.setMinCut(maxflow)
}
