package energy

import (
	"fmt"

	"github.com/lintang-b-s/graphcut/pkg"
	"github.com/lintang-b-s/graphcut/pkg/util"
)

// SmoothCost is the pairwise cost of labeling the two ends of an edge.
type SmoothCost interface {
	Cost(siteA SiteID, labelA LabelID, siteB SiteID, labelB LabelID) int64
}

// SmoothCostFunc is a general pairwise functor. When set it replaces weight * table for every
// edge, so all edge weights must be 1.
type SmoothCostFunc func(siteA SiteID, labelA LabelID, siteB SiteID, labelB LabelID) int64

func (f SmoothCostFunc) Cost(siteA SiteID, labelA LabelID, siteB SiteID, labelB LabelID) int64 {
	return f(siteA, labelA, siteB, labelB)
}

// LabelTable is a dense numLabels x numLabels smooth cost, independent of the sites. A nil
// table is potts with lambda 1.
type LabelTable struct {
	numLabels int
	costs     []int64
}

func (t LabelTable) Cost(_ SiteID, labelA LabelID, _ SiteID, labelB LabelID) int64 {
	if t.costs == nil {
		if labelA != labelB {
			return 1
		}
		return 0
	}
	return t.costs[int(labelA)*t.numLabels+int(labelB)]
}

func (t LabelTable) NumLabels() int {
	return t.numLabels
}

// Potts returns the table lambda * [a != b].
func Potts(numLabels int, lambda int64) []int64 {
	table := make([]int64, numLabels*numLabels)
	for a := 0; a < numLabels; a++ {
		for b := 0; b < numLabels; b++ {
			if a != b {
				table[a*numLabels+b] = lambda
			}
		}
	}
	return table
}

// TruncatedLinear returns the table lambda * min(|a-b|, truncation).
func TruncatedLinear(numLabels int, lambda, truncation int64) []int64 {
	table := make([]int64, numLabels*numLabels)
	for a := 0; a < numLabels; a++ {
		for b := 0; b < numLabels; b++ {
			table[a*numLabels+b] = lambda * util.Min(util.Abs(int64(a-b)), truncation)
		}
	}
	return table
}

func (m *Model) ensureSmoothTable() {
	if m.smoothTable == nil {
		m.smoothTable = make([]int64, m.numLabels*m.numLabels)
	}
}

// SetSmoothCost sets V(labelA, labelB). The table starts all zero on first use (replacing
// the default potts cost) and setting it switches the model back from a functor to
// weight * table.
func (m *Model) SetSmoothCost(labelA, labelB LabelID, cost int64) error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	if err := m.checkLabel(labelA); err != nil {
		return err
	}
	if err := m.checkLabel(labelB); err != nil {
		return err
	}
	if err := checkTerm("smooth cost", cost); err != nil {
		return err
	}
	m.ensureSmoothTable()
	m.smoothTable[int(labelA)*m.numLabels+int(labelB)] = cost
	m.smoothFn = nil
	m.resetTableChecks()
	return nil
}

// SetSmoothCostTable replaces the label table (row-major, numLabels*numLabels entries).
func (m *Model) SetSmoothCostTable(table []int64) error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	if len(table) != m.numLabels*m.numLabels {
		return fmt.Errorf("smooth cost table has %d entries, want %d: %w", len(table), m.numLabels*m.numLabels,
			errTableSize)
	}
	for i, c := range table {
		if err := checkTerm("smooth cost", c); err != nil {
			return fmt.Errorf("labels (%d, %d): %w", i/m.numLabels, i%m.numLabels, err)
		}
	}
	m.ensureSmoothTable()
	copy(m.smoothTable, table)
	m.smoothFn = nil
	m.resetTableChecks()
	return nil
}

// SetSmoothCostFunc replaces weight * table with fn. It fails when an edge already carries
// a weight other than 1.
func (m *Model) SetSmoothCostFunc(fn SmoothCostFunc) error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	if fn == nil {
		return fmt.Errorf("nil smooth cost function: %w", errNilFunc)
	}
	for _, e := range m.edges {
		if e.Weight != 1 {
			return fmt.Errorf("%w: edge (%d, %d) has weight %d, a smooth cost function requires unit weights",
				pkg.ErrInvalidArgument, e.A, e.B, e.Weight)
		}
	}
	m.smoothFn = fn
	return nil
}

// HasSmoothCostFunc reports whether the pairwise term is a general functor.
func (m *Model) HasSmoothCostFunc() bool {
	return m.smoothFn != nil
}

// SmoothCost returns the label part of the pairwise term: the functor when set, the label
// table otherwise.
func (m *Model) SmoothCost() SmoothCost {
	if m.smoothFn != nil {
		return m.smoothFn
	}
	return LabelTable{numLabels: m.numLabels, costs: m.smoothTable}
}

func (m *Model) tableCost(labelA, labelB LabelID) int64 {
	return LabelTable{numLabels: m.numLabels, costs: m.smoothTable}.Cost(0, labelA, 0, labelB)
}

// PairwiseCost returns the cost of edge e when its ends take labelA (e.A) and labelB (e.B).
func (m *Model) PairwiseCost(e Edge, labelA, labelB LabelID) (int64, error) {
	if m.smoothFn != nil {
		cost := m.smoothFn(e.A, labelA, e.B, labelB)
		if err := checkTerm("smooth cost", cost); err != nil {
			return 0, fmt.Errorf("edge (%d, %d) labels (%d, %d): %w", e.A, e.B, labelA, labelB, err)
		}
		return cost, nil
	}
	return util.MulInt64(e.Weight, m.tableCost(labelA, labelB))
}
