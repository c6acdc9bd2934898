package energy

import (
	"fmt"

	"github.com/lintang-b-s/graphcut/pkg"
)

type SiteID int32

type LabelID int32

var (
	errTableSize = fmt.Errorf("%w: table size mismatch", pkg.ErrInvalidArgument)
	errNilFunc   = fmt.Errorf("%w: nil function", pkg.ErrInvalidArgument)
)

// Model holds one labeling problem: data costs, the neighbor structure with its smooth
// cost, label costs and the current labeling. Every instance owns its tables, there is
// no shared state between models.
type Model struct {
	numSites  int
	numLabels int

	dataCost   []int64 // site-major, numSites*numLabels
	dataCostFn DataCostFunc

	smoothTable []int64 // numLabels*numLabels, nil means potts
	smoothFn    SmoothCostFunc
	// checks of smoothTable, reset whenever it is written
	metric         tableProperty
	regularForSwap tableProperty

	edges     []Edge
	edgeIndex map[uint64]int
	frozen    bool // edge set is fixed once the model has been optimized

	labelCost   []int64 // per label, charged once if the label is used
	subsetCosts []LabelSubsetCost

	labels  []LabelID
	inRound bool
}

// New creates a model with numSites sites and numLabels labels. Data costs start at zero,
// the smooth cost is potts and every site is labeled 0.
func New(numSites, numLabels int) (*Model, error) {
	if numSites <= 0 || numLabels <= 0 {
		return nil, fmt.Errorf("%w: numSites and numLabels must be positive, got %d and %d",
			pkg.ErrInvalidArgument, numSites, numLabels)
	}
	if numSites > pkg.MAX_MODEL_ENTRIES/numLabels {
		return nil, fmt.Errorf("%w: %d sites x %d labels exceeds %d entries", pkg.ErrInvalidArgument,
			numSites, numLabels, pkg.MAX_MODEL_ENTRIES)
	}
	if numLabels > pkg.MAX_MODEL_ENTRIES/numLabels {
		return nil, fmt.Errorf("%w: a %d x %d label table exceeds %d entries", pkg.ErrInvalidArgument,
			numLabels, numLabels, pkg.MAX_MODEL_ENTRIES)
	}
	return &Model{
		numSites:  numSites,
		numLabels: numLabels,
		dataCost:  make([]int64, numSites*numLabels),
		edges:     make([]Edge, 0),
		edgeIndex: make(map[uint64]int),
		labelCost: make([]int64, numLabels),
		labels:    make([]LabelID, numSites),
	}, nil
}

func (m *Model) NumSites() int {
	return m.numSites
}

func (m *Model) NumLabels() int {
	return m.numLabels
}

func (m *Model) checkSite(site SiteID) error {
	if site < 0 || int(site) >= m.numSites {
		return fmt.Errorf("%w: site %d not in [0, %d)", pkg.ErrOutOfRange, site, m.numSites)
	}
	return nil
}

func (m *Model) checkLabel(label LabelID) error {
	if label < 0 || int(label) >= m.numLabels {
		return fmt.Errorf("%w: label %d not in [0, %d)", pkg.ErrOutOfRange, label, m.numLabels)
	}
	return nil
}

func checkTerm(what string, cost int64) error {
	if cost < 0 {
		return fmt.Errorf("%w: negative %s %d", pkg.ErrInvalidArgument, what, cost)
	}
	if cost > pkg.MAX_ENERGY_TERM {
		return fmt.Errorf("%w: %s %d exceeds %d", pkg.ErrInvalidArgument, what, cost, pkg.MAX_ENERGY_TERM)
	}
	return nil
}

func (m *Model) checkMutable() error {
	if m.inRound {
		return fmt.Errorf("%w: model is read-only while an optimization round is in progress",
			pkg.ErrPreconditionViolated)
	}
	return nil
}

// BeginRound makes the model read-only until EndRound. The edge set stays frozen
// afterwards.
func (m *Model) BeginRound() error {
	if m.inRound {
		return fmt.Errorf("%w: round already in progress", pkg.ErrPreconditionViolated)
	}
	m.inRound = true
	m.frozen = true
	return nil
}

// EndRound stores the labeling produced by the round and makes the model writable again.
func (m *Model) EndRound(labels []LabelID) error {
	if !m.inRound {
		return fmt.Errorf("%w: no round in progress", pkg.ErrPreconditionViolated)
	}
	if labels != nil {
		if err := m.checkLabeling(labels); err != nil {
			return err
		}
		copy(m.labels, labels)
	}
	m.inRound = false
	return nil
}

func (m *Model) InRound() bool {
	return m.inRound
}

func (m *Model) checkLabeling(labels []LabelID) error {
	if len(labels) != m.numSites {
		return fmt.Errorf("%w: labeling has %d entries, want %d", pkg.ErrInvalidArgument, len(labels), m.numSites)
	}
	for s, l := range labels {
		if err := m.checkLabel(l); err != nil {
			return fmt.Errorf("site %d: %w", s, err)
		}
	}
	return nil
}

func (m *Model) SetLabel(site SiteID, label LabelID) error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	if err := m.checkSite(site); err != nil {
		return err
	}
	if err := m.checkLabel(label); err != nil {
		return err
	}
	m.labels[site] = label
	return nil
}

func (m *Model) Label(site SiteID) (LabelID, error) {
	if err := m.checkSite(site); err != nil {
		return 0, err
	}
	return m.labels[site], nil
}

// SetLabels replaces the whole labeling.
func (m *Model) SetLabels(labels []LabelID) error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	if err := m.checkLabeling(labels); err != nil {
		return err
	}
	copy(m.labels, labels)
	return nil
}

// Labels returns a copy of the current labeling.
func (m *Model) Labels() []LabelID {
	labels := make([]LabelID, len(m.labels))
	copy(labels, m.labels)
	return labels
}
