package energy

import (
	"fmt"
)

// DataCostFunc computes the cost of assigning label to site. Results must lie in
// [0, pkg.MAX_ENERGY_TERM].
type DataCostFunc func(site SiteID, label LabelID) int64

// SetDataCost sets one entry of the dense data cost table. On error the model is unchanged.
func (m *Model) SetDataCost(site SiteID, label LabelID, cost int64) error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	if err := m.checkSite(site); err != nil {
		return err
	}
	if err := m.checkLabel(label); err != nil {
		return err
	}
	if err := checkTerm("data cost", cost); err != nil {
		return err
	}
	m.dataCost[int(site)*m.numLabels+int(label)] = cost
	m.dataCostFn = nil
	return nil
}

// SetDataCostTable replaces the dense table (site-major, numSites*numLabels entries).
// The table is validated in full before anything is written.
func (m *Model) SetDataCostTable(costs []int64) error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	if len(costs) != m.numSites*m.numLabels {
		return fmt.Errorf("data cost table has %d entries, want %d: %w", len(costs), m.numSites*m.numLabels,
			errTableSize)
	}
	for i, c := range costs {
		if err := checkTerm("data cost", c); err != nil {
			return fmt.Errorf("site %d label %d: %w", i/m.numLabels, i%m.numLabels, err)
		}
	}
	copy(m.dataCost, costs)
	m.dataCostFn = nil
	return nil
}

// SetDataCostFunc replaces the dense table with fn. Results are validated when evaluated.
func (m *Model) SetDataCostFunc(fn DataCostFunc) error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	if fn == nil {
		return fmt.Errorf("nil data cost function: %w", errNilFunc)
	}
	m.dataCostFn = fn
	return nil
}

// DataCost returns the cost of assigning label to site.
func (m *Model) DataCost(site SiteID, label LabelID) (int64, error) {
	if m.dataCostFn == nil {
		return m.dataCost[int(site)*m.numLabels+int(label)], nil
	}
	cost := m.dataCostFn(site, label)
	if err := checkTerm("data cost", cost); err != nil {
		return 0, fmt.Errorf("site %d label %d: %w", site, label, err)
	}
	return cost, nil
}
