package energy

import (
	"github.com/lintang-b-s/graphcut/pkg/util"
)

// Breakdown splits the energy of a labeling into its three parts.
type Breakdown struct {
	Data   int64 `json:"data_energy"`
	Smooth int64 `json:"smooth_energy"`
	Label  int64 `json:"label_energy"`
	Total  int64 `json:"energy"`
}

// ComputeEnergy returns the energy of labels. It does not touch the model.
func (m *Model) ComputeEnergy(labels []LabelID) (int64, error) {
	b, err := m.Breakdown(labels)
	if err != nil {
		return 0, err
	}
	return b.Total, nil
}

// Energy returns the energy of the current labeling.
func (m *Model) Energy() (int64, error) {
	return m.ComputeEnergy(m.labels)
}

func (m *Model) Breakdown(labels []LabelID) (Breakdown, error) {
	var b Breakdown
	if err := m.checkLabeling(labels); err != nil {
		return b, err
	}
	var err error
	if b.Data, err = m.dataEnergy(labels); err != nil {
		return b, err
	}
	if b.Smooth, err = m.smoothEnergy(labels); err != nil {
		return b, err
	}
	if b.Label, err = m.labelEnergy(labels); err != nil {
		return b, err
	}
	b.Total, err = util.SumInt64(b.Data, b.Smooth, b.Label)
	return b, err
}

func (m *Model) dataEnergy(labels []LabelID) (int64, error) {
	var total int64
	for s, l := range labels {
		cost, err := m.DataCost(SiteID(s), l)
		if err != nil {
			return 0, err
		}
		if total, err = util.AddInt64(total, cost); err != nil {
			return 0, err
		}
	}
	return total, nil
}

func (m *Model) smoothEnergy(labels []LabelID) (int64, error) {
	var total int64
	for _, e := range m.edges {
		cost, err := m.PairwiseCost(e, labels[e.A], labels[e.B])
		if err != nil {
			return 0, err
		}
		if total, err = util.AddInt64(total, cost); err != nil {
			return 0, err
		}
	}
	return total, nil
}

func (m *Model) labelEnergy(labels []LabelID) (int64, error) {
	if !m.HasLabelCosts() {
		return 0, nil
	}
	used := UsedLabels(labels, m.numLabels)

	var (
		total int64
		err   error
	)
	for _, term := range m.LabelCostTerms() {
		if !AnyUsed(term.Labels, used) {
			continue
		}
		if total, err = util.AddInt64(total, term.Cost); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// UsedLabels marks the labels present in labels.
func UsedLabels(labels []LabelID, numLabels int) []bool {
	used := make([]bool, numLabels)
	for _, l := range labels {
		used[l] = true
	}
	return used
}

func AnyUsed(subset []LabelID, used []bool) bool {
	for _, l := range subset {
		if used[l] {
			return true
		}
	}
	return false
}
