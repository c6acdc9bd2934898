package instance

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/lintang-b-s/graphcut/pkg"
	"github.com/lintang-b-s/graphcut/pkg/energy"
)

const (
	SMOOTH_POTTS            = "potts"
	SMOOTH_TRUNCATED_LINEAR = "truncated_linear"
	SMOOTH_TABLE            = "table"
)

// Instance is the serialized form of a labeling problem.
type Instance struct {
	NumSites         int           `json:"num_sites" validate:"required,gt=0"`
	NumLabels        int           `json:"num_labels" validate:"required,gt=0"`
	Grid             *Grid         `json:"grid,omitempty"`
	DataCost         []int64       `json:"data_cost,omitempty" validate:"dive,gte=0"`
	Smooth           *Smooth       `json:"smooth,omitempty"`
	Neighbors        []Neighbor    `json:"neighbors,omitempty" validate:"dive"`
	LabelCosts       []int64       `json:"label_costs,omitempty" validate:"dive,gte=0"`
	LabelSubsetCosts []LabelSubset `json:"label_subset_costs,omitempty" validate:"dive"`
	Labels           []int32       `json:"labels,omitempty" validate:"dive,gte=0"`
}

// Grid describes a 4-connected width x height grid, site = x + y*width. Vertical and
// Horizontal are optional per-site weights (see energy.Grid.SetSmoothCostVH).
type Grid struct {
	Width      int     `json:"width" validate:"required,gt=0"`
	Height     int     `json:"height" validate:"required,gt=0"`
	Vertical   []int64 `json:"vertical,omitempty" validate:"dive,gte=0"`
	Horizontal []int64 `json:"horizontal,omitempty" validate:"dive,gte=0"`
}

type Smooth struct {
	Kind       string  `json:"kind" validate:"required,oneof=potts truncated_linear table"`
	Lambda     int64   `json:"lambda,omitempty" validate:"gte=0"`
	Truncation int64   `json:"truncation,omitempty" validate:"gte=0"`
	Table      []int64 `json:"table,omitempty" validate:"dive,gte=0"`
}

type Neighbor struct {
	A      int32 `json:"a" validate:"gte=0"`
	B      int32 `json:"b" validate:"gte=0"`
	Weight int64 `json:"weight" validate:"gte=0"`
}

type LabelSubset struct {
	Labels []int32 `json:"labels" validate:"required,min=1,dive,gte=0"`
	Cost   int64   `json:"cost" validate:"gte=0"`
}

var validate = validator.New()

// Validate checks the structural constraints of the instance. Index bounds and cost limits
// are checked again by the model when the instance is built.
func (inst *Instance) Validate() error {
	if err := validate.Struct(inst); err != nil {
		return fmt.Errorf("%w: %v", pkg.ErrInvalidArgument, err)
	}
	if inst.Grid != nil && inst.Grid.Width*inst.Grid.Height != inst.NumSites {
		return fmt.Errorf("%w: grid %dx%d does not have %d sites", pkg.ErrInvalidArgument,
			inst.Grid.Width, inst.Grid.Height, inst.NumSites)
	}
	return nil
}

func (inst *Instance) smoothTable() ([]int64, error) {
	if inst.Smooth == nil {
		return nil, nil
	}
	switch inst.Smooth.Kind {
	case SMOOTH_POTTS:
		return energy.Potts(inst.NumLabels, inst.Smooth.Lambda), nil
	case SMOOTH_TRUNCATED_LINEAR:
		return energy.TruncatedLinear(inst.NumLabels, inst.Smooth.Lambda, inst.Smooth.Truncation), nil
	case SMOOTH_TABLE:
		return inst.Smooth.Table, nil
	default:
		return nil, fmt.Errorf("%w: unknown smooth cost kind %q", pkg.ErrInvalidArgument, inst.Smooth.Kind)
	}
}

func toLabels(labels []int32) []energy.LabelID {
	out := make([]energy.LabelID, len(labels))
	for i, l := range labels {
		out[i] = energy.LabelID(l)
	}
	return out
}

// Build validates the instance and creates its model.
func (inst *Instance) Build() (*energy.Model, error) {
	if err := inst.Validate(); err != nil {
		return nil, err
	}

	var m *energy.Model
	if inst.Grid != nil {
		g, err := energy.NewGrid(inst.Grid.Width, inst.Grid.Height, inst.NumLabels)
		if err != nil {
			return nil, err
		}
		m = g.Model
		if inst.Grid.Vertical != nil || inst.Grid.Horizontal != nil {
			table, err := inst.smoothTable()
			if err != nil {
				return nil, err
			}
			if table == nil {
				table = energy.Potts(inst.NumLabels, 1)
			}
			if err := g.SetSmoothCostVH(table, inst.Grid.Vertical, inst.Grid.Horizontal); err != nil {
				return nil, err
			}
		}
	} else {
		var err error
		if m, err = energy.New(inst.NumSites, inst.NumLabels); err != nil {
			return nil, err
		}
	}

	if inst.DataCost != nil {
		if err := m.SetDataCostTable(inst.DataCost); err != nil {
			return nil, err
		}
	}
	table, err := inst.smoothTable()
	if err != nil {
		return nil, err
	}
	if table != nil {
		if err := m.SetSmoothCostTable(table); err != nil {
			return nil, err
		}
	}
	for _, nb := range inst.Neighbors {
		if err := m.SetNeighbors(energy.SiteID(nb.A), energy.SiteID(nb.B), nb.Weight); err != nil {
			return nil, err
		}
	}
	if inst.LabelCosts != nil {
		if err := m.SetLabelCosts(inst.LabelCosts); err != nil {
			return nil, err
		}
	}
	for _, sc := range inst.LabelSubsetCosts {
		if err := m.SetLabelSubsetCost(toLabels(sc.Labels), sc.Cost); err != nil {
			return nil, err
		}
	}
	if inst.Labels != nil {
		if err := m.SetLabels(toLabels(inst.Labels)); err != nil {
			return nil, err
		}
	}
	return m, nil
}
