package movegraph

import (
	"fmt"

	"github.com/lintang-b-s/graphcut/pkg"
	"github.com/lintang-b-s/graphcut/pkg/datastructure"
	"github.com/lintang-b-s/graphcut/pkg/energy"
	"github.com/lintang-b-s/graphcut/pkg/maxflow"
	"github.com/lintang-b-s/graphcut/pkg/util"
)

// NoSite marks auxiliary nodes in the reverse map.
const NoSite energy.SiteID = -1

const noNode = -1

// MoveGraph is the network of one move together with what is needed to read its cut back.
// It is owned by the Builder that made it and is invalid after the next Build call.
type MoveGraph struct {
	network  *datastructure.FlowNetwork
	nodeSite []energy.SiteID
	moveType pkg.MoveType
	alpha    energy.LabelID
	beta     energy.LabelID

	constant        int64
	nonRegularTerms int
	numSiteNodes    int
}

func (mg *MoveGraph) Network() *datastructure.FlowNetwork {
	return mg.network
}

// Site returns the site of network node i, or NoSite for an auxiliary node.
func (mg *MoveGraph) Site(i datastructure.Index) energy.SiteID {
	return mg.nodeSite[i]
}

func (mg *MoveGraph) NumNodes() int {
	return len(mg.nodeSite)
}

// NumSiteNodes returns the number of sites taking part in the move.
func (mg *MoveGraph) NumSiteNodes() int {
	return mg.numSiteNodes
}

func (mg *MoveGraph) MoveType() pkg.MoveType {
	return mg.moveType
}

// Constant returns the part of the energy that does not depend on the cut.
func (mg *MoveGraph) Constant() int64 {
	return mg.constant
}

// NonRegularTerms returns how many pairwise terms could not be represented exactly.
func (mg *MoveGraph) NonRegularTerms() int {
	return mg.nonRegularTerms
}

// Exact reports whether the cut value equals the energy of the labeling it induces.
func (mg *MoveGraph) Exact() bool {
	return mg.nonRegularTerms == 0
}

// PredictedEnergy returns the energy of the labeling induced by cut. It is exact only when
// every term was regular.
func (mg *MoveGraph) PredictedEnergy(cut *maxflow.MinCut) (int64, error) {
	return util.AddInt64(mg.constant, cut.GetMinCut())
}

// Apply returns a copy of labels with the move described by cut applied.
func (mg *MoveGraph) Apply(cut *maxflow.MinCut, labels []energy.LabelID) []energy.LabelID {
	next := make([]energy.LabelID, len(labels))
	copy(next, labels)
	for i, s := range mg.nodeSite {
		if s == NoSite {
			continue
		}
		seg := cut.GetSegment(datastructure.Index(i))
		switch mg.moveType {
		case pkg.EXPANSION:
			if seg == datastructure.SINK {
				next[s] = mg.alpha
			}
		case pkg.SWAP:
			if seg == datastructure.SOURCE {
				next[s] = mg.alpha
			} else {
				next[s] = mg.beta
			}
		}
	}
	return next
}

// Builder turns a labeling and a move into a flow network. One builder serves one model
// and reuses a single network between moves.
type Builder struct {
	model    *energy.Model
	strict   bool
	network  *datastructure.FlowNetwork
	be       *binaryEnergy
	siteNode []int64
	graph    *MoveGraph
}

// NewBuilder creates a builder for model. In strict mode a term that cannot be represented
// exactly fails the build with pkg.ErrPreconditionViolated instead of being approximated.
func NewBuilder(model *energy.Model, strict bool) *Builder {
	network := datastructure.NewFlowNetwork(model.NumSites(), model.NumEdges())
	siteNode := make([]int64, model.NumSites())
	return &Builder{
		model:    model,
		strict:   strict,
		network:  network,
		be:       newBinaryEnergy(network),
		siteNode: siteNode,
	}
}

func (b *Builder) begin(labels []energy.LabelID, moveType pkg.MoveType, alpha, beta energy.LabelID) error {
	if len(labels) != b.model.NumSites() {
		return fmt.Errorf("%w: labeling has %d entries, want %d", pkg.ErrInvalidArgument, len(labels),
			b.model.NumSites())
	}
	for _, l := range []energy.LabelID{alpha, beta} {
		if l < 0 || int(l) >= b.model.NumLabels() {
			return fmt.Errorf("%w: label %d not in [0, %d)", pkg.ErrOutOfRange, l, b.model.NumLabels())
		}
	}
	b.be.reset()
	b.graph = &MoveGraph{
		network:  b.network,
		nodeSite: make([]energy.SiteID, 0),
		moveType: moveType,
		alpha:    alpha,
		beta:     beta,
	}
	for s := range b.siteNode {
		b.siteNode[s] = noNode
	}
	return nil
}

func (b *Builder) addSiteNode(s energy.SiteID) datastructure.Index {
	x := b.be.addVariable()
	b.siteNode[s] = int64(x)
	b.graph.nodeSite = append(b.graph.nodeSite, s)
	b.graph.numSiteNodes++
	return x
}

func (b *Builder) addAuxNode() datastructure.Index {
	x := b.be.addVariable()
	b.graph.nodeSite = append(b.graph.nodeSite, NoSite)
	return x
}

func (b *Builder) node(s energy.SiteID) (datastructure.Index, bool) {
	x := b.siteNode[s]
	if x == noNode {
		return 0, false
	}
	return datastructure.Index(x), true
}

// nonRegular records a term that cannot be represented exactly.
func (b *Builder) nonRegular(e energy.Edge, a, bb, c, d int64) error {
	b.graph.nonRegularTerms++
	if b.strict {
		return fmt.Errorf("%w: %s move alpha=%d: edge (%d, %d) gives the non-regular term "+
			"E(0,0)=%d E(0,1)=%d E(1,0)=%d E(1,1)=%d", pkg.ErrPreconditionViolated, b.graph.moveType,
			b.graph.alpha, e.A, e.B, a, bb, c, d)
	}
	return nil
}

func (b *Builder) finish() (*MoveGraph, error) {
	if err := b.be.finalize(); err != nil {
		return nil, err
	}
	b.graph.constant = b.be.constant
	return b.graph, nil
}
