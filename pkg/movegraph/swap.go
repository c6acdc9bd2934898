package movegraph

import (
	"fmt"

	"github.com/lintang-b-s/graphcut/pkg"
	"github.com/lintang-b-s/graphcut/pkg/energy"
)

// BuildSwap builds the alpha-beta swap network. every site labeled alpha or beta gets a node,
// x = 0 (source) takes alpha and x = 1 (sink) takes beta. a non-regular pairwise term is
// truncated by raising E(1,0) until the term is regular.
func (b *Builder) BuildSwap(labels []energy.LabelID, alpha, beta energy.LabelID) (*MoveGraph, error) {
	if alpha == beta {
		return nil, fmt.Errorf("%w: swap needs two different labels, got %d twice", pkg.ErrInvalidArgument, alpha)
	}
	if err := b.begin(labels, pkg.SWAP, alpha, beta); err != nil {
		return nil, err
	}
	m := b.model

	for i, l := range labels {
		s := energy.SiteID(i)
		if l != alpha && l != beta {
			cost, err := m.DataCost(s, l)
			if err != nil {
				return nil, err
			}
			b.be.addConstant(cost)
			continue
		}
		x := b.addSiteNode(s)
		costAlpha, err := m.DataCost(s, alpha)
		if err != nil {
			return nil, err
		}
		costBeta, err := m.DataCost(s, beta)
		if err != nil {
			return nil, err
		}
		b.be.addTerm1(x, costAlpha, costBeta)
	}

	for i := 0; i < m.NumEdges(); i++ {
		e := m.Edge(i)
		if err := b.swapEdge(e, labels[e.A], labels[e.B], alpha, beta); err != nil {
			return nil, err
		}
	}

	if err := b.swapLabelCosts(labels, alpha, beta); err != nil {
		return nil, err
	}
	return b.finish()
}

func (b *Builder) swapEdge(e energy.Edge, lp, lq, alpha, beta energy.LabelID) error {
	m := b.model
	p, pActive := b.node(e.A)
	q, qActive := b.node(e.B)

	switch {
	case !pActive && !qActive:
		cost, err := m.PairwiseCost(e, lp, lq)
		if err != nil {
			return err
		}
		b.be.addConstant(cost)
		return nil
	case pActive && !qActive:
		e0, err := m.PairwiseCost(e, alpha, lq)
		if err != nil {
			return err
		}
		e1, err := m.PairwiseCost(e, beta, lq)
		if err != nil {
			return err
		}
		b.be.addTerm1(p, e0, e1)
		return nil
	case !pActive && qActive:
		e0, err := m.PairwiseCost(e, lp, alpha)
		if err != nil {
			return err
		}
		e1, err := m.PairwiseCost(e, lp, beta)
		if err != nil {
			return err
		}
		b.be.addTerm1(q, e0, e1)
		return nil
	}

	e00, err := m.PairwiseCost(e, alpha, alpha)
	if err != nil {
		return err
	}
	e01, err := m.PairwiseCost(e, alpha, beta)
	if err != nil {
		return err
	}
	e10, err := m.PairwiseCost(e, beta, alpha)
	if err != nil {
		return err
	}
	e11, err := m.PairwiseCost(e, beta, beta)
	if err != nil {
		return err
	}

	if !isRegular(e00, e01, e10, e11) {
		if err := b.nonRegular(e, e00, e01, e10, e11); err != nil {
			return err
		}
		e10 = e00 + e11 - e01
	}
	return b.be.addTerm2(p, q, e00, e01, e10, e11)
}

/*
swapLabelCosts. only sites labeled alpha or beta change, so a subset S with cost h is

  - constant when a site outside the move keeps a label of S,
  - constant when alpha and beta are both in S and the move is not empty,
  - "h if any x = 0" when only alpha is in S,
  - "h if any x = 1" when only beta is in S.
*/
func (b *Builder) swapLabelCosts(labels []energy.LabelID, alpha, beta energy.LabelID) error {
	if !b.model.HasLabelCosts() {
		return nil
	}
	outside := make([]bool, b.model.NumLabels())
	for _, l := range labels {
		if l != alpha && l != beta {
			outside[l] = true
		}
	}
	nodes := b.siteNodes(labels, nil)

	for _, term := range b.model.LabelCostTerms() {
		if energy.AnyUsed(term.Labels, outside) {
			b.be.addConstant(term.Cost)
			continue
		}
		hasAlpha := containsLabel(term.Labels, alpha)
		hasBeta := containsLabel(term.Labels, beta)

		var err error
		switch {
		case hasAlpha && hasBeta:
			if len(nodes) > 0 {
				b.be.addConstant(term.Cost)
			}
		case hasAlpha:
			err = b.costIfAnyZero(nodes, term.Cost)
		case hasBeta:
			err = b.costIfAnyOne(nodes, term.Cost)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
