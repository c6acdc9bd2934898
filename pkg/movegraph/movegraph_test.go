package movegraph

import (
	"testing"

	"github.com/lintang-b-s/graphcut/pkg"
	"github.com/lintang-b-s/graphcut/pkg/energy"
	"github.com/lintang-b-s/graphcut/pkg/maxflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func randomModel(t *testing.T, rd *rand.Rand, withLabelCosts bool) (*energy.Model, []energy.LabelID) {
	t.Helper()
	numSites := 1 + rd.Intn(6)
	numLabels := 2 + rd.Intn(3)
	m, err := energy.New(numSites, numLabels)
	require.NoError(t, err)

	for s := 0; s < numSites; s++ {
		for l := 0; l < numLabels; l++ {
			require.NoError(t, m.SetDataCost(energy.SiteID(s), energy.LabelID(l), int64(rd.Intn(20))))
		}
	}
	for a := 0; a < numSites; a++ {
		for b := a + 1; b < numSites; b++ {
			if rd.Intn(2) == 0 {
				require.NoError(t, m.SetNeighbors(energy.SiteID(a), energy.SiteID(b), int64(1+rd.Intn(5))))
			}
		}
	}
	if rd.Intn(2) == 0 {
		require.NoError(t, m.SetSmoothCostTable(energy.TruncatedLinear(numLabels, int64(1+rd.Intn(3)), 2)))
	} else {
		require.NoError(t, m.SetSmoothCostTable(energy.Potts(numLabels, int64(1+rd.Intn(4)))))
	}
	if withLabelCosts {
		for l := 0; l < numLabels; l++ {
			require.NoError(t, m.SetLabelSubsetCost([]energy.LabelID{energy.LabelID(l)}, int64(rd.Intn(15))))
		}
		require.NoError(t, m.SetLabelSubsetCost([]energy.LabelID{0, energy.LabelID(numLabels - 1)}, int64(rd.Intn(15))))
	}

	labels := make([]energy.LabelID, numSites)
	for s := range labels {
		labels[s] = energy.LabelID(rd.Intn(numLabels))
	}
	return m, labels
}

func solve(t *testing.T, mg *MoveGraph) *maxflow.MinCut {
	t.Helper()
	cut, err := maxflow.NewBoykovKolmogorov(mg.Network()).ComputeMaxflowMinCut()
	require.NoError(t, err)
	return cut
}

// bestMove enumerates every binary choice of the sites in the move.
func bestMove(t *testing.T, m *energy.Model, labels []energy.LabelID, active []int,
	choose func(s int, one bool) energy.LabelID) int64 {
	t.Helper()
	best := int64(-1)
	for mask := 0; mask < 1<<len(active); mask++ {
		candidate := append([]energy.LabelID{}, labels...)
		for k, s := range active {
			candidate[s] = choose(s, mask&(1<<k) != 0)
		}
		e, err := m.ComputeEnergy(candidate)
		require.NoError(t, err)
		if best < 0 || e < best {
			best = e
		}
	}
	return best
}

func TestExpansionIsOptimalMove(t *testing.T) {
	rd := rand.New(rand.NewSource(3))
	for iter := 0; iter < 150; iter++ {
		m, labels := randomModel(t, rd, iter%2 == 0)
		b := NewBuilder(m, true)

		for alpha := energy.LabelID(0); int(alpha) < m.NumLabels(); alpha++ {
			mg, err := b.BuildExpansion(labels, alpha)
			require.NoError(t, err)
			require.True(t, mg.Exact())

			cut := solve(t, mg)
			next := mg.Apply(cut, labels)
			predicted, err := mg.PredictedEnergy(cut)
			require.NoError(t, err)
			actual, err := m.ComputeEnergy(next)
			require.NoError(t, err)
			require.Equal(t, actual, predicted, "instance %d alpha %d", iter, alpha)

			active := make([]int, 0)
			for s, l := range labels {
				if l != alpha {
					active = append(active, s)
				} else {
					require.Equal(t, alpha, next[s], "alpha sites keep alpha")
				}
			}
			want := bestMove(t, m, labels, active, func(s int, one bool) energy.LabelID {
				if one {
					return alpha
				}
				return labels[s]
			})
			require.Equal(t, want, predicted, "instance %d alpha %d", iter, alpha)
		}
	}
}

func TestSwapIsOptimalMove(t *testing.T) {
	rd := rand.New(rand.NewSource(11))
	for iter := 0; iter < 150; iter++ {
		m, labels := randomModel(t, rd, iter%2 == 1)
		b := NewBuilder(m, true)

		for alpha := energy.LabelID(0); int(alpha) < m.NumLabels(); alpha++ {
			for beta := alpha + 1; int(beta) < m.NumLabels(); beta++ {
				mg, err := b.BuildSwap(labels, alpha, beta)
				require.NoError(t, err)

				cut := solve(t, mg)
				next := mg.Apply(cut, labels)
				predicted, err := mg.PredictedEnergy(cut)
				require.NoError(t, err)
				actual, err := m.ComputeEnergy(next)
				require.NoError(t, err)
				require.Equal(t, actual, predicted, "instance %d pair (%d, %d)", iter, alpha, beta)

				active := make([]int, 0)
				for s, l := range labels {
					if l == alpha || l == beta {
						active = append(active, s)
					} else {
						require.Equal(t, l, next[s])
					}
				}
				require.Equal(t, len(active), mg.NumSiteNodes())
				want := bestMove(t, m, labels, active, func(_ int, one bool) energy.LabelID {
					if one {
						return beta
					}
					return alpha
				})
				require.Equal(t, want, predicted, "instance %d pair (%d, %d)", iter, alpha, beta)
			}
		}
	}
}

func TestDinicAgreesOnMoveGraphs(t *testing.T) {
	rd := rand.New(rand.NewSource(5))
	for iter := 0; iter < 50; iter++ {
		m, labels := randomModel(t, rd, true)
		b := NewBuilder(m, false)

		mg, err := b.BuildExpansion(labels, 1)
		require.NoError(t, err)
		cut, err := maxflow.NewDinicMaxFlow(mg.Network(), false).ComputeMaxflowMinCut()
		require.NoError(t, err)

		predicted, err := mg.PredictedEnergy(cut)
		require.NoError(t, err)
		actual, err := m.ComputeEnergy(mg.Apply(cut, labels))
		require.NoError(t, err)
		require.Equal(t, actual, predicted)
	}
}

func TestSolverReusedAcrossMoves(t *testing.T) {
	rd := rand.New(rand.NewSource(11))
	for iter := 0; iter < 200; iter++ {
		m, labels := randomModel(t, rd, rd.Intn(2) == 0)
		b := NewBuilder(m, false)

		var bk *maxflow.BoykovKolmogorov
		for alpha := 1; alpha < m.NumLabels(); alpha++ {
			mg, err := b.BuildExpansion(labels, energy.LabelID(alpha))
			require.NoError(t, err)
			if mg.NumSiteNodes() == 0 {
				continue
			}
			if bk == nil {
				bk = maxflow.NewBoykovKolmogorov(mg.Network())
			}
			cut, err := bk.ComputeMaxflowMinCut()
			require.NoError(t, err)
			require.Equal(t, mg.Network().CutCapacity(cut.GetSegment), cut.GetMinCut(),
				"instance %d alpha %d", iter, alpha)

			predicted, err := mg.PredictedEnergy(cut)
			require.NoError(t, err)
			next := mg.Apply(cut, labels)
			actual, err := m.ComputeEnergy(next)
			require.NoError(t, err)
			require.Equal(t, actual, predicted, "instance %d alpha %d", iter, alpha)
			labels = next
		}
	}
}

func squaredModel(t *testing.T) *energy.Model {
	t.Helper()
	m, err := energy.New(2, 3)
	require.NoError(t, err)
	require.NoError(t, m.SetNeighbors(0, 1, 1))
	require.NoError(t, m.SetSmoothCostTable([]int64{
		0, 1, 4,
		1, 0, 1,
		4, 1, 0,
	}))
	return m
}

func TestExpansionNonMetric(t *testing.T) {
	m := squaredModel(t)
	labels := []energy.LabelID{0, 2}

	// V(0,2) = 4 > V(0,1) + V(1,2)
	mg, err := NewBuilder(m, false).BuildExpansion(labels, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, mg.NonRegularTerms())
	assert.False(t, mg.Exact())
	assert.Equal(t, 3, mg.NumNodes())
	assert.Equal(t, 2, mg.NumSiteNodes())
	assert.Equal(t, NoSite, mg.Site(2))

	cut := solve(t, mg)
	next := mg.Apply(cut, labels)
	actual, err := m.ComputeEnergy(next)
	require.NoError(t, err)
	predicted, err := mg.PredictedEnergy(cut)
	require.NoError(t, err)
	assert.LessOrEqual(t, predicted, actual)

	_, err = NewBuilder(m, true).BuildExpansion(labels, 1)
	require.ErrorIs(t, err, pkg.ErrPreconditionViolated)
}

func TestSwapNonRegular(t *testing.T) {
	m, err := energy.New(2, 2)
	require.NoError(t, err)
	require.NoError(t, m.SetNeighbors(0, 1, 1))
	require.NoError(t, m.SetSmoothCostTable([]int64{
		3, 1,
		1, 3,
	}))
	require.NoError(t, m.SetDataCostTable([]int64{0, 2, 2, 0}))

	mg, err := NewBuilder(m, false).BuildSwap([]energy.LabelID{0, 1}, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, mg.NonRegularTerms())

	_, err = NewBuilder(m, true).BuildSwap([]energy.LabelID{0, 1}, 0, 1)
	require.ErrorIs(t, err, pkg.ErrPreconditionViolated)
}

func TestBuildErrors(t *testing.T) {
	m, err := energy.New(2, 2)
	require.NoError(t, err)
	b := NewBuilder(m, false)

	_, err = b.BuildExpansion([]energy.LabelID{0}, 1)
	require.ErrorIs(t, err, pkg.ErrInvalidArgument)
	_, err = b.BuildExpansion([]energy.LabelID{0, 0}, 2)
	require.ErrorIs(t, err, pkg.ErrOutOfRange)
	_, err = b.BuildSwap([]energy.LabelID{0, 0}, 1, 1)
	require.ErrorIs(t, err, pkg.ErrInvalidArgument)
}

func TestTerminalWeightOverflow(t *testing.T) {
	// site 0 pays V(0,1) * w = 2^60 to each of its five neighbors while it keeps label 0
	m, err := energy.New(6, 2)
	require.NoError(t, err)
	require.NoError(t, m.SetSmoothCostTable(energy.Potts(2, pkg.MAX_ENERGY_TERM)))
	for s := 1; s < 6; s++ {
		require.NoError(t, m.SetNeighbors(0, energy.SiteID(s), pkg.MAX_ENERGY_TERM))
	}
	labels := []energy.LabelID{0, 1, 1, 1, 1, 1}
	current, err := m.ComputeEnergy(labels)
	require.NoError(t, err)
	assert.Equal(t, 5*pkg.MAX_ENERGY_TERM*pkg.MAX_ENERGY_TERM, current)

	_, err = NewBuilder(m, false).BuildExpansion(labels, 1)
	require.ErrorIs(t, err, pkg.ErrOverflow)
	assert.NotErrorIs(t, err, pkg.ErrInvalidNetwork)

	// the same degree stays representable below the bound
	require.NoError(t, m.SetSmoothCostTable(energy.Potts(2, pkg.MAX_ENERGY_TERM/4)))
	mg, err := NewBuilder(m, false).BuildExpansion(labels, 1)
	require.NoError(t, err)
	cut := solve(t, mg)
	predicted, err := mg.PredictedEnergy(cut)
	require.NoError(t, err)
	assert.Equal(t, int64(0), predicted)
}

func TestExpansionConstantOnly(t *testing.T) {
	m, err := energy.New(2, 2)
	require.NoError(t, err)
	require.NoError(t, m.SetDataCostTable([]int64{4, 0, 6, 0}))
	require.NoError(t, m.SetNeighbors(0, 1, 2))

	// every site already has alpha, the network is empty
	mg, err := NewBuilder(m, true).BuildExpansion([]energy.LabelID{0, 0}, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, mg.NumNodes())
	assert.Equal(t, int64(10), mg.Constant())

	cut := solve(t, mg)
	predicted, err := mg.PredictedEnergy(cut)
	require.NoError(t, err)
	assert.Equal(t, int64(10), predicted)
}
