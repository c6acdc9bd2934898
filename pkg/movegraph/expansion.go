package movegraph

import (
	"github.com/lintang-b-s/graphcut/pkg"
	"github.com/lintang-b-s/graphcut/pkg/energy"
)

/*
BuildExpansion builds the alpha-expansion network [Fast Approximate Energy Minimization via Graph Cuts,
Boykov, Veksler & Zabih]. every site not labeled alpha gets a node, x = 0 (source) keeps the current
label, x = 1 (sink) switches to alpha. sites already labeled alpha keep it and only contribute to the
constant.

a pairwise term between two nodes that is not regular (the smooth cost is not a metric on these
labels) gets an auxiliary node instead of a direct arc:

	p --V(lp,alpha)-- a --V(alpha,lq)-- q,   a --V(lp,lq)--> sink

which is exact for metrics and a lower bound of the term otherwise.
*/
func (b *Builder) BuildExpansion(labels []energy.LabelID, alpha energy.LabelID) (*MoveGraph, error) {
	if err := b.begin(labels, pkg.EXPANSION, alpha, alpha); err != nil {
		return nil, err
	}
	m := b.model

	// data costs
	for i, l := range labels {
		s := energy.SiteID(i)
		if l == alpha {
			cost, err := m.DataCost(s, alpha)
			if err != nil {
				return nil, err
			}
			b.be.addConstant(cost)
			continue
		}
		x := b.addSiteNode(s)
		stay, err := m.DataCost(s, l)
		if err != nil {
			return nil, err
		}
		switchCost, err := m.DataCost(s, alpha)
		if err != nil {
			return nil, err
		}
		b.be.addTerm1(x, stay, switchCost)
	}

	// smooth costs
	for i := 0; i < m.NumEdges(); i++ {
		e := m.Edge(i)
		if err := b.expansionEdge(e, labels[e.A], labels[e.B], alpha); err != nil {
			return nil, err
		}
	}

	if err := b.expansionLabelCosts(labels, alpha); err != nil {
		return nil, err
	}
	return b.finish()
}

func (b *Builder) expansionEdge(e energy.Edge, lp, lq, alpha energy.LabelID) error {
	m := b.model
	p, pActive := b.node(e.A)
	q, qActive := b.node(e.B)

	switch {
	case !pActive && !qActive:
		cost, err := m.PairwiseCost(e, alpha, alpha)
		if err != nil {
			return err
		}
		b.be.addConstant(cost)
		return nil
	case pActive && !qActive:
		e0, err := m.PairwiseCost(e, lp, alpha)
		if err != nil {
			return err
		}
		e1, err := m.PairwiseCost(e, alpha, alpha)
		if err != nil {
			return err
		}
		b.be.addTerm1(p, e0, e1)
		return nil
	case !pActive && qActive:
		e0, err := m.PairwiseCost(e, alpha, lq)
		if err != nil {
			return err
		}
		e1, err := m.PairwiseCost(e, alpha, alpha)
		if err != nil {
			return err
		}
		b.be.addTerm1(q, e0, e1)
		return nil
	}

	e00, err := m.PairwiseCost(e, lp, lq)
	if err != nil {
		return err
	}
	e01, err := m.PairwiseCost(e, lp, alpha)
	if err != nil {
		return err
	}
	e10, err := m.PairwiseCost(e, alpha, lq)
	if err != nil {
		return err
	}
	e11, err := m.PairwiseCost(e, alpha, alpha)
	if err != nil {
		return err
	}

	if isRegular(e00, e01, e10, e11) {
		return b.be.addTerm2(p, q, e00, e01, e10, e11)
	}
	if err := b.nonRegular(e, e00, e01, e10, e11); err != nil {
		return err
	}

	a := b.addAuxNode()
	if err := b.network.AddEdge(p, a, e01, e01); err != nil {
		return err
	}
	if err := b.network.AddEdge(a, q, e10, e10); err != nil {
		return err
	}
	b.be.addTerm1(a, e00, 0)
	return nil
}

/*
expansionLabelCosts. a subset S with cost h is paid after the move iff some site ends with a label in S.

  - alpha in S and S already used: sites with a label in S either keep it or take alpha, so h is constant.
  - alpha in S and S unused: paid iff some node switches to alpha, "h if any x = 1".
  - alpha not in S: paid iff some site labeled in S stays, "h if any of these x = 0".
*/
func (b *Builder) expansionLabelCosts(labels []energy.LabelID, alpha energy.LabelID) error {
	if !b.model.HasLabelCosts() {
		return nil
	}
	used := energy.UsedLabels(labels, b.model.NumLabels())

	for _, term := range b.model.LabelCostTerms() {
		if containsLabel(term.Labels, alpha) {
			if energy.AnyUsed(term.Labels, used) {
				b.be.addConstant(term.Cost)
				continue
			}
			if err := b.costIfAnyOne(b.siteNodes(labels, nil), term.Cost); err != nil {
				return err
			}
			continue
		}

		if !energy.AnyUsed(term.Labels, used) {
			continue
		}
		if err := b.costIfAnyZero(b.siteNodes(labels, term.Labels), term.Cost); err != nil {
			return err
		}
	}
	return nil
}
