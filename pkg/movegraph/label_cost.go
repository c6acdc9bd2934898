package movegraph

import (
	"github.com/lintang-b-s/graphcut/pkg/datastructure"
	"github.com/lintang-b-s/graphcut/pkg/energy"
)

func containsLabel(labels []energy.LabelID, l energy.LabelID) bool {
	for _, x := range labels {
		if x == l {
			return true
		}
	}
	return false
}

// siteNodes returns the nodes of the sites in the move, restricted to sites whose current
// label is in subset when subset is not nil.
func (b *Builder) siteNodes(labels []energy.LabelID, subset []energy.LabelID) []datastructure.Index {
	nodes := make([]datastructure.Index, 0)
	for i, l := range labels {
		x, ok := b.node(energy.SiteID(i))
		if !ok {
			continue
		}
		if subset != nil && !containsLabel(subset, l) {
			continue
		}
		nodes = append(nodes, x)
	}
	return nodes
}

// costIfAnyOne adds h * [some x in nodes is 1] through an auxiliary node w:
// E_w(0) = 0, E_w(1) = h and h for every pair (w = 0, x = 1).
func (b *Builder) costIfAnyOne(nodes []datastructure.Index, h int64) error {
	if len(nodes) == 0 {
		return nil
	}
	w := b.addAuxNode()
	b.be.addTerm1(w, 0, h)
	for _, x := range nodes {
		if err := b.be.addTerm2(w, x, 0, h, 0, 0); err != nil {
			return err
		}
	}
	return nil
}

// costIfAnyZero adds h * [some x in nodes is 0] through an auxiliary node z:
// E_z(0) = h, E_z(1) = 0 and h for every pair (z = 1, x = 0).
func (b *Builder) costIfAnyZero(nodes []datastructure.Index, h int64) error {
	if len(nodes) == 0 {
		return nil
	}
	z := b.addAuxNode()
	b.be.addTerm1(z, h, 0)
	for _, x := range nodes {
		if err := b.be.addTerm2(z, x, 0, 0, h, 0); err != nil {
			return err
		}
	}
	return nil
}
