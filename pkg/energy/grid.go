package energy

import (
	"fmt"

	"github.com/lintang-b-s/graphcut/pkg"
)

// Grid is a model over a width x height 4-connected grid. Site of pixel (x, y) is x + y*width.
type Grid struct {
	*Model
	width  int
	height int
}

// NewGrid creates the grid model with all horizontal and vertical neighbor edges registered
// with weight 1.
func NewGrid(width, height, numLabels int) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: grid dimensions must be positive, got %dx%d", pkg.ErrInvalidArgument,
			width, height)
	}
	m, err := New(width*height, numLabels)
	if err != nil {
		return nil, err
	}
	g := &Grid{Model: m, width: width, height: height}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			s := g.Site(x, y)
			if x+1 < width {
				if err := m.SetNeighbors(s, s+1, 1); err != nil {
					return nil, err
				}
			}
			if y+1 < height {
				if err := m.SetNeighbors(s, s+SiteID(width), 1); err != nil {
					return nil, err
				}
			}
		}
	}
	return g, nil
}

func (g *Grid) Width() int {
	return g.width
}

func (g *Grid) Height() int {
	return g.height
}

func (g *Grid) Site(x, y int) SiteID {
	return SiteID(x + y*g.width)
}

// SetSmoothCostVH sets the label table together with spatially varying weights: vertical[s]
// weighs the edge between s and the site below it, horizontal[s] the edge between s and the
// site to its right. Entries for edges that fall outside the grid are ignored.
func (g *Grid) SetSmoothCostVH(table []int64, vertical, horizontal []int64) error {
	if err := g.checkMutable(); err != nil {
		return err
	}
	n := g.width * g.height
	if len(vertical) != n || len(horizontal) != n {
		return fmt.Errorf("weights have %d vertical and %d horizontal entries, want %d: %w",
			len(vertical), len(horizontal), n, errTableSize)
	}
	if g.smoothFn != nil {
		return fmt.Errorf("%w: spatially varying weights with a smooth cost function", pkg.ErrInvalidArgument)
	}
	for s := 0; s < n; s++ {
		if err := checkTerm("vertical weight", vertical[s]); err != nil {
			return fmt.Errorf("site %d: %w", s, err)
		}
		if err := checkTerm("horizontal weight", horizontal[s]); err != nil {
			return fmt.Errorf("site %d: %w", s, err)
		}
	}
	if err := g.SetSmoothCostTable(table); err != nil {
		return err
	}

	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			s := g.Site(x, y)
			if x+1 < g.width {
				g.edges[g.edgeIndex[edgeKey(s, s+1)]].Weight = horizontal[s]
			}
			if y+1 < g.height {
				g.edges[g.edgeIndex[edgeKey(s, s+SiteID(g.width))]].Weight = vertical[s]
			}
		}
	}
	return nil
}
