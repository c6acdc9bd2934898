package energy

import (
	"fmt"

	"github.com/lintang-b-s/graphcut/pkg"
)

// LabelSubsetCost is charged once when any of Labels appears in the labeling.
type LabelSubsetCost struct {
	Labels []LabelID
	Cost   int64
}

// SetLabelCost charges cost for every label that is used.
func (m *Model) SetLabelCost(cost int64) error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	if err := checkTerm("label cost", cost); err != nil {
		return err
	}
	for l := range m.labelCost {
		m.labelCost[l] = cost
	}
	return nil
}

// SetLabelCosts sets one cost per label.
func (m *Model) SetLabelCosts(costs []int64) error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	if len(costs) != m.numLabels {
		return fmt.Errorf("label cost table has %d entries, want %d: %w", len(costs), m.numLabels, errTableSize)
	}
	for l, c := range costs {
		if err := checkTerm("label cost", c); err != nil {
			return fmt.Errorf("label %d: %w", l, err)
		}
	}
	copy(m.labelCost, costs)
	return nil
}

// SetLabelSubsetCost charges cost once if any label of labels is used. Setting the same
// subset again replaces its cost.
func (m *Model) SetLabelSubsetCost(labels []LabelID, cost int64) error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	if len(labels) == 0 {
		return fmt.Errorf("%w: empty label subset", pkg.ErrInvalidArgument)
	}
	if err := checkTerm("label cost", cost); err != nil {
		return err
	}
	seen := make(map[LabelID]struct{}, len(labels))
	subset := make([]LabelID, 0, len(labels))
	for _, l := range labels {
		if err := m.checkLabel(l); err != nil {
			return err
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		subset = append(subset, l)
	}

	if len(subset) == 1 {
		m.labelCost[subset[0]] = cost
		return nil
	}
	for i := range m.subsetCosts {
		if sameSubset(m.subsetCosts[i].Labels, seen) {
			m.subsetCosts[i].Cost = cost
			return nil
		}
	}
	m.subsetCosts = append(m.subsetCosts, LabelSubsetCost{Labels: subset, Cost: cost})
	return nil
}

func sameSubset(labels []LabelID, set map[LabelID]struct{}) bool {
	if len(labels) != len(set) {
		return false
	}
	for _, l := range labels {
		if _, ok := set[l]; !ok {
			return false
		}
	}
	return true
}

// LabelCostTerms returns every non-zero label cost, single label costs as subsets of size one.
func (m *Model) LabelCostTerms() []LabelSubsetCost {
	terms := make([]LabelSubsetCost, 0)
	for l, c := range m.labelCost {
		if c > 0 {
			terms = append(terms, LabelSubsetCost{Labels: []LabelID{LabelID(l)}, Cost: c})
		}
	}
	for _, sc := range m.subsetCosts {
		if sc.Cost > 0 {
			terms = append(terms, sc)
		}
	}
	return terms
}

func (m *Model) HasLabelCosts() bool {
	for _, c := range m.labelCost {
		if c > 0 {
			return true
		}
	}
	for _, sc := range m.subsetCosts {
		if sc.Cost > 0 {
			return true
		}
	}
	return false
}
