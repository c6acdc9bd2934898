package optimizer

import (
	"testing"

	"github.com/lintang-b-s/graphcut/pkg"
	"github.com/lintang-b-s/graphcut/pkg/energy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/exp/rand"
)

func trivialModel(t *testing.T) *energy.Model {
	t.Helper()
	m, err := energy.New(2, 2)
	require.NoError(t, err)
	require.NoError(t, m.SetDataCostTable([]int64{
		0, 10,
		10, 0,
	}))
	return m
}

func chainModel(t *testing.T) *energy.Model {
	t.Helper()
	m, err := energy.New(3, 2)
	require.NoError(t, err)
	require.NoError(t, m.SetDataCostTable([]int64{
		0, 5,
		5, 0,
		0, 5,
	}))
	require.NoError(t, m.SetNeighbors(0, 1, 3))
	require.NoError(t, m.SetNeighbors(1, 2, 3))
	return m
}

func randomModel(t *testing.T, rd *rand.Rand, numSites, numLabels int) *energy.Model {
	t.Helper()
	m, err := energy.New(numSites, numLabels)
	require.NoError(t, err)
	costs := make([]int64, numSites*numLabels)
	for i := range costs {
		costs[i] = int64(rd.Intn(30))
	}
	require.NoError(t, m.SetDataCostTable(costs))
	for a := 0; a < numSites; a++ {
		for b := a + 1; b < numSites; b++ {
			if rd.Intn(3) == 0 {
				require.NoError(t, m.SetNeighbors(energy.SiteID(a), energy.SiteID(b), int64(1+rd.Intn(8))))
			}
		}
	}
	labels := make([]energy.LabelID, numSites)
	for s := range labels {
		labels[s] = energy.LabelID(rd.Intn(numLabels))
	}
	require.NoError(t, m.SetLabels(labels))
	return m
}

// bruteForce returns the minimum energy over all labelings.
func bruteForce(t *testing.T, m *energy.Model) int64 {
	t.Helper()
	labels := make([]energy.LabelID, m.NumSites())
	best := int64(-1)
	var rec func(s int)
	rec = func(s int) {
		if s == len(labels) {
			e, err := m.ComputeEnergy(labels)
			require.NoError(t, err)
			if best < 0 || e < best {
				best = e
			}
			return
		}
		for l := 0; l < m.NumLabels(); l++ {
			labels[s] = energy.LabelID(l)
			rec(s + 1)
		}
	}
	rec(0)
	return best
}

type runFunc func(o *Optimizer, maxIterations int) (*Result, error)

var algorithms = map[string]runFunc{
	"expansion": func(o *Optimizer, maxIterations int) (*Result, error) { return o.Expansion(maxIterations) },
	"swap":      func(o *Optimizer, maxIterations int) (*Result, error) { return o.Swap(maxIterations) },
}

func TestTrivialInstance(t *testing.T) {
	for name, run := range algorithms {
		t.Run(name, func(t *testing.T) {
			m := trivialModel(t)
			o := New(m, DefaultOptions(), zaptest.NewLogger(t))

			res, err := run(o, pkg.UNBOUNDED_ITERATIONS)
			require.NoError(t, err)
			assert.Equal(t, []energy.LabelID{0, 1}, res.Labels)
			assert.Equal(t, int64(0), res.Energy)
			assert.True(t, res.Converged)
			assert.Equal(t, CONVERGED, o.State())
			assert.Equal(t, res.Labels, m.Labels())
		})
	}
}

func TestChainMatchesBruteForce(t *testing.T) {
	for name, run := range algorithms {
		t.Run(name, func(t *testing.T) {
			for _, start := range [][]energy.LabelID{{0, 0, 0}, {1, 1, 1}, {0, 1, 0}, {1, 0, 1}} {
				m := chainModel(t)
				require.NoError(t, m.SetLabels(start))
				want := bruteForce(t, m)

				res, err := run(New(m, DefaultOptions(), nil), pkg.UNBOUNDED_ITERATIONS)
				require.NoError(t, err)
				assert.Equal(t, want, res.Energy, "start %v", start)
				assert.Equal(t, int64(5), res.Energy)

				e, err := m.Energy()
				require.NoError(t, err)
				assert.Equal(t, res.Energy, e)
			}
		})
	}
}

func TestMonotonicAndIdempotent(t *testing.T) {
	rd := rand.New(rand.NewSource(17))
	for name, run := range algorithms {
		t.Run(name, func(t *testing.T) {
			for iter := 0; iter < 30; iter++ {
				m := randomModel(t, rd, 2+rd.Intn(7), 2+rd.Intn(3))
				before, err := m.Energy()
				require.NoError(t, err)

				opts := DefaultOptions()
				last := before
				opts.OnCycle = func(info CycleInfo) {
					require.LessOrEqual(t, info.Energy, last)
					last = info.Energy
				}
				o := New(m, opts, nil)

				res, err := run(o, pkg.UNBOUNDED_ITERATIONS)
				require.NoError(t, err)
				require.LessOrEqual(t, res.Energy, before)
				require.True(t, res.Converged)

				again, err := run(o, pkg.UNBOUNDED_ITERATIONS)
				require.NoError(t, err)
				assert.Equal(t, 0, again.AcceptedMoves)
				assert.Equal(t, 1, again.Cycles)
				assert.Equal(t, res.Energy, again.Energy)
				assert.Equal(t, res.Labels, again.Labels)
				assert.True(t, again.Converged)
			}
		})
	}
}

func TestExpansionPottsBound(t *testing.T) {
	rd := rand.New(rand.NewSource(23))
	for iter := 0; iter < 30; iter++ {
		m := randomModel(t, rd, 2+rd.Intn(5), 2+rd.Intn(2))
		optimum := bruteForce(t, m)

		res, err := New(m, DefaultOptions(), nil).Expansion(pkg.UNBOUNDED_ITERATIONS)
		require.NoError(t, err)
		assert.LessOrEqual(t, res.Energy, 2*optimum, "instance %d", iter)
		assert.GreaterOrEqual(t, res.Energy, optimum)
	}
}

func TestConvergedFlag(t *testing.T) {
	for name, run := range algorithms {
		t.Run(name, func(t *testing.T) {
			m := trivialModel(t)
			o := New(m, DefaultOptions(), nil)

			res, err := run(o, 0)
			require.NoError(t, err)
			assert.False(t, res.Converged)
			assert.Equal(t, 0, res.Cycles)
			assert.Equal(t, int64(10), res.Energy)
			assert.Equal(t, IDLE, o.State())

			// the first cycle improves the labeling, so one cycle cannot prove convergence
			res, err = run(o, 1)
			require.NoError(t, err)
			assert.False(t, res.Converged)
			assert.Equal(t, 1, res.Cycles)
			assert.Equal(t, int64(0), res.Energy)

			res, err = run(o, 1)
			require.NoError(t, err)
			assert.True(t, res.Converged)
		})
	}
}

func TestSeededRandomOrderIsDeterministic(t *testing.T) {
	for name, run := range algorithms {
		t.Run(name, func(t *testing.T) {
			collect := func() (*Result, []CycleInfo) {
				m := randomModel(t, rand.New(rand.NewSource(99)), 12, 4)
				infos := make([]CycleInfo, 0)
				opts := DefaultOptions()
				opts.RandomOrder = true
				opts.Seed = 1234
				opts.OnCycle = func(info CycleInfo) {
					infos = append(infos, info)
				}
				res, err := run(New(m, opts, nil), pkg.UNBOUNDED_ITERATIONS)
				require.NoError(t, err)
				return res, infos
			}
			res1, infos1 := collect()
			res2, infos2 := collect()
			assert.Equal(t, res1, res2)
			assert.Equal(t, infos1, infos2)
		})
	}
}

func TestDinicSolver(t *testing.T) {
	for name, run := range algorithms {
		t.Run(name, func(t *testing.T) {
			m := chainModel(t)
			opts := DefaultOptions()
			opts.Solver = pkg.DINIC
			res, err := run(New(m, opts, nil), pkg.UNBOUNDED_ITERATIONS)
			require.NoError(t, err)
			assert.Equal(t, int64(5), res.Energy)
		})
	}
}

func TestSolverSharedBetweenMoves(t *testing.T) {
	rd := rand.New(rand.NewSource(3))
	for _, st := range []pkg.SolverType{pkg.BOYKOV_KOLMOGOROV, pkg.DINIC} {
		for iter := 0; iter < 40; iter++ {
			m := randomModel(t, rd, 5, 3)
			want := bruteForce(t, m)
			opts := DefaultOptions()
			opts.Solver = st
			opts.Debug = true
			opts.Verbosity = pkg.VERBOSITY_MOVE
			o := New(m, opts, zaptest.NewLogger(t))

			res, err := o.Expansion(pkg.UNBOUNDED_ITERATIONS)
			require.NoError(t, err, "%s instance %d", st, iter)
			assert.LessOrEqual(t, res.Energy, 2*want)

			// the same solver keeps serving after the move type changes
			swapped, err := o.Swap(pkg.UNBOUNDED_ITERATIONS)
			require.NoError(t, err, "%s instance %d", st, iter)
			assert.LessOrEqual(t, swapped.Energy, res.Energy)
			e, err := m.Energy()
			require.NoError(t, err)
			assert.Equal(t, swapped.Energy, e)
		}
	}
}

func TestFailedMoveEndsRound(t *testing.T) {
	m, err := energy.New(2, 3)
	require.NoError(t, err)
	require.NoError(t, m.SetNeighbors(0, 1, 1))
	require.NoError(t, m.SetSmoothCostTable([]int64{
		0, 1, 4,
		1, 0, 1,
		4, 1, 0,
	}))
	require.NoError(t, m.SetLabels([]energy.LabelID{0, 2}))

	opts := DefaultOptions()
	opts.Strict = true
	o := New(m, opts, nil)
	_, err = o.AlphaExpansion(1)
	require.ErrorIs(t, err, pkg.ErrPreconditionViolated)
	assert.Equal(t, IDLE, o.State())
	assert.False(t, m.InRound())
	assert.Equal(t, []energy.LabelID{0, 2}, m.Labels())

	// a failed move leaves the optimizer usable
	ok, err := o.AlphaExpansion(0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []energy.LabelID{0, 0}, m.Labels())
}

func TestNonMetricExpansion(t *testing.T) {
	newModel := func() *energy.Model {
		m, err := energy.New(2, 3)
		require.NoError(t, err)
		require.NoError(t, m.SetNeighbors(0, 1, 1))
		require.NoError(t, m.SetSmoothCostTable([]int64{
			0, 1, 4,
			1, 0, 1,
			4, 1, 0,
		}))
		require.NoError(t, m.SetDataCostTable([]int64{0, 3, 9, 9, 3, 0}))
		require.NoError(t, m.SetLabels([]energy.LabelID{0, 2}))
		return m
	}

	m := newModel()
	before, err := m.Energy()
	require.NoError(t, err)
	res, err := New(m, DefaultOptions(), nil).Expansion(pkg.UNBOUNDED_ITERATIONS)
	require.NoError(t, err)
	assert.Greater(t, res.NonRegularTerms, 0)
	assert.LessOrEqual(t, res.Energy, before)

	opts := DefaultOptions()
	opts.Strict = true
	m = newModel()
	o := New(m, opts, nil)
	_, err = o.Expansion(pkg.UNBOUNDED_ITERATIONS)
	require.ErrorIs(t, err, pkg.ErrPreconditionViolated)
	assert.Equal(t, IDLE, o.State())
	assert.False(t, m.InRound())
}

func TestRoundGuard(t *testing.T) {
	m := chainModel(t)
	opts := DefaultOptions()
	var o *Optimizer
	calls := 0
	opts.OnCycle = func(CycleInfo) {
		calls++
		assert.Equal(t, ROUND_IN_PROGRESS, o.State())
		assert.ErrorIs(t, m.SetDataCost(0, 0, 1), pkg.ErrPreconditionViolated)
		assert.ErrorIs(t, m.SetLabel(0, 1), pkg.ErrPreconditionViolated)
		_, err := o.Expansion(1)
		assert.ErrorIs(t, err, pkg.ErrPreconditionViolated)
	}
	o = New(m, opts, nil)
	_, err := o.Expansion(pkg.UNBOUNDED_ITERATIONS)
	require.NoError(t, err)
	assert.Greater(t, calls, 0)

	// writable again once the round is over, but the edge set is fixed
	require.NoError(t, m.SetDataCost(0, 0, 1))
	require.ErrorIs(t, m.SetNeighbors(0, 2, 1), pkg.ErrPreconditionViolated)
}

func TestSingleMoves(t *testing.T) {
	m := trivialModel(t)
	o := New(m, DefaultOptions(), nil)

	ok, err := o.AlphaExpansion(0)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = o.AlphaExpansion(1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []energy.LabelID{0, 1}, m.Labels())

	require.NoError(t, m.SetLabels([]energy.LabelID{1, 0}))
	ok, err = o.AlphaBetaSwap(0, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []energy.LabelID{0, 1}, m.Labels())

	_, err = o.AlphaExpansion(5)
	require.ErrorIs(t, err, pkg.ErrOutOfRange)
	_, err = o.AlphaBetaSwap(1, 1)
	require.ErrorIs(t, err, pkg.ErrInvalidArgument)
	assert.False(t, m.InRound())
}

func TestLabelOrder(t *testing.T) {
	m := trivialModel(t)
	o := New(m, DefaultOptions(), nil)

	require.ErrorIs(t, o.SetLabelOrder(nil), pkg.ErrInvalidArgument)
	require.ErrorIs(t, o.SetLabelOrder([]energy.LabelID{0, 0}), pkg.ErrInvalidArgument)
	require.ErrorIs(t, o.SetLabelOrder([]energy.LabelID{2}), pkg.ErrOutOfRange)

	// label 1 is never expanded
	require.NoError(t, o.SetLabelOrder([]energy.LabelID{0}))
	res, err := o.Expansion(pkg.UNBOUNDED_ITERATIONS)
	require.NoError(t, err)
	assert.Equal(t, []energy.LabelID{0, 0}, res.Labels)
	assert.True(t, res.Converged)

	require.NoError(t, o.SetLabelOrder([]energy.LabelID{1, 0}))
	res, err = o.Expansion(pkg.UNBOUNDED_ITERATIONS)
	require.NoError(t, err)
	assert.Equal(t, []energy.LabelID{0, 1}, res.Labels)
}

func TestLabelCostsAreMinimized(t *testing.T) {
	m, err := energy.New(4, 3)
	require.NoError(t, err)
	// label 2 is slightly better everywhere it is not used, but it costs 10 to use
	require.NoError(t, m.SetDataCostTable([]int64{
		0, 5, 4,
		5, 0, 4,
		0, 5, 4,
		5, 0, 4,
	}))
	require.NoError(t, m.SetLabelCosts([]int64{1, 1, 10}))
	require.NoError(t, m.SetLabels([]energy.LabelID{2, 2, 2, 2}))
	want := bruteForce(t, m)

	for name, run := range algorithms {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, m.SetLabels([]energy.LabelID{2, 2, 2, 2}))
			res, err := run(New(m, DefaultOptions(), nil), pkg.UNBOUNDED_ITERATIONS)
			require.NoError(t, err)
			assert.Equal(t, want, res.Energy)
			assert.Equal(t, []energy.LabelID{0, 1, 0, 1}, res.Labels)
		})
	}
}
