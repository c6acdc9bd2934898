package energy

import (
	"fmt"

	"github.com/lintang-b-s/graphcut/pkg"
)

// Edge is an undirected neighbor pair. A is the smaller site id.
type Edge struct {
	A      SiteID
	B      SiteID
	Weight int64
}

func edgeKey(a, b SiteID) uint64 {
	if a > b {
		a, b = b, a
	}
	return uint64(a)<<32 | uint64(b)
}

func (m *Model) checkWeight(weight int64) error {
	if err := checkTerm("edge weight", weight); err != nil {
		return err
	}
	if m.smoothFn != nil && weight != 1 {
		return fmt.Errorf("%w: edge weight %d with a smooth cost function, only 1 is allowed",
			pkg.ErrInvalidArgument, weight)
	}
	return nil
}

// SetNeighbors registers the undirected edge {siteA, siteB}. Registering the same pair twice
// is rejected, use UpdateNeighborWeight to change a weight. The edge set cannot change once
// the model has been optimized.
func (m *Model) SetNeighbors(siteA, siteB SiteID, weight int64) error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	if m.frozen {
		return fmt.Errorf("%w: edge set is fixed after the first optimization round", pkg.ErrPreconditionViolated)
	}
	if err := m.checkSite(siteA); err != nil {
		return err
	}
	if err := m.checkSite(siteB); err != nil {
		return err
	}
	if siteA == siteB {
		return fmt.Errorf("%w: self edge on site %d", pkg.ErrInvalidArgument, siteA)
	}
	if err := m.checkWeight(weight); err != nil {
		return err
	}
	key := edgeKey(siteA, siteB)
	if _, ok := m.edgeIndex[key]; ok {
		return fmt.Errorf("%w: duplicate edge (%d, %d)", pkg.ErrInvalidArgument, siteA, siteB)
	}

	if siteA > siteB {
		siteA, siteB = siteB, siteA
	}
	m.edgeIndex[key] = len(m.edges)
	m.edges = append(m.edges, Edge{A: siteA, B: siteB, Weight: weight})
	return nil
}

// UpdateNeighborWeight changes the weight of an existing edge between rounds.
func (m *Model) UpdateNeighborWeight(siteA, siteB SiteID, weight int64) error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	if err := m.checkSite(siteA); err != nil {
		return err
	}
	if err := m.checkSite(siteB); err != nil {
		return err
	}
	idx, ok := m.edgeIndex[edgeKey(siteA, siteB)]
	if !ok {
		return fmt.Errorf("%w: no edge (%d, %d)", pkg.ErrInvalidArgument, siteA, siteB)
	}
	if err := m.checkWeight(weight); err != nil {
		return err
	}
	m.edges[idx].Weight = weight
	return nil
}

func (m *Model) NumEdges() int {
	return len(m.edges)
}

func (m *Model) Edge(i int) Edge {
	return m.edges[i]
}

// NeighborWeight returns the weight of edge {siteA, siteB} and whether it exists.
func (m *Model) NeighborWeight(siteA, siteB SiteID) (int64, bool) {
	idx, ok := m.edgeIndex[edgeKey(siteA, siteB)]
	if !ok {
		return 0, false
	}
	return m.edges[idx].Weight, true
}
