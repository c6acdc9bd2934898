package optimizer

import (
	"errors"
	"fmt"

	"github.com/lintang-b-s/graphcut/pkg"
	"github.com/lintang-b-s/graphcut/pkg/energy"
	"github.com/lintang-b-s/graphcut/pkg/maxflow"
	"github.com/lintang-b-s/graphcut/pkg/movegraph"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

// Optimizer runs alpha-expansion and alpha-beta swap on one model. It is not safe for
// concurrent use, independent models get independent optimizers.
type Optimizer struct {
	model      *energy.Model
	builder    *movegraph.Builder
	opts       Options
	log        *zap.Logger
	rd         *rand.Rand
	labelOrder []energy.LabelID
	state      State
	// solver is bound to the builder's network and reused by every move
	solver maxflow.Solver

	nonRegularTerms int
}

func New(model *energy.Model, opts Options, log *zap.Logger) *Optimizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Optimizer{
		model:   model,
		builder: movegraph.NewBuilder(model, opts.Strict),
		opts:    opts,
		log:     log,
		rd:      rand.New(rand.NewSource(opts.Seed)),
		state:   IDLE,
	}
}

func (o *Optimizer) State() State {
	return o.state
}

// SetLabelOrder fixes the labels visited in each cycle and their order. Labels that are left
// out are never expanded (or swapped).
func (o *Optimizer) SetLabelOrder(order []energy.LabelID) error {
	if o.state == ROUND_IN_PROGRESS {
		return fmt.Errorf("%w: label order cannot change during a round", pkg.ErrPreconditionViolated)
	}
	if len(order) == 0 {
		return fmt.Errorf("%w: empty label order", pkg.ErrInvalidArgument)
	}
	seen := make([]bool, o.model.NumLabels())
	for _, l := range order {
		if l < 0 || int(l) >= o.model.NumLabels() {
			return fmt.Errorf("%w: label %d not in [0, %d)", pkg.ErrOutOfRange, l, o.model.NumLabels())
		}
		if seen[l] {
			return fmt.Errorf("%w: label %d appears twice in the order", pkg.ErrInvalidArgument, l)
		}
		seen[l] = true
	}
	o.labelOrder = append([]energy.LabelID{}, order...)
	return nil
}

// order returns the labels of the next cycle.
func (o *Optimizer) order() []energy.LabelID {
	var order []energy.LabelID
	if o.labelOrder != nil {
		order = append(order, o.labelOrder...)
	} else {
		order = make([]energy.LabelID, o.model.NumLabels())
		for l := range order {
			order[l] = energy.LabelID(l)
		}
	}
	if o.opts.RandomOrder {
		o.rd.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}
	return order
}

type labelPair struct {
	alpha, beta energy.LabelID
}

func (o *Optimizer) pairOrder() []labelPair {
	labels := o.order()
	pairs := make([]labelPair, 0, len(labels)*(len(labels)-1)/2)
	for i := 0; i < len(labels); i++ {
		for j := i + 1; j < len(labels); j++ {
			pairs = append(pairs, labelPair{alpha: labels[i], beta: labels[j]})
		}
	}
	if o.opts.RandomOrder {
		o.rd.Shuffle(len(pairs), func(i, j int) {
			pairs[i], pairs[j] = pairs[j], pairs[i]
		})
	}
	return pairs
}

func (o *Optimizer) beginRound() error {
	if o.state == ROUND_IN_PROGRESS {
		return fmt.Errorf("%w: optimizer is already running a round", pkg.ErrPreconditionViolated)
	}
	if err := o.model.BeginRound(); err != nil {
		return err
	}
	o.state = ROUND_IN_PROGRESS
	o.nonRegularTerms = 0
	return nil
}

func (o *Optimizer) endRound(labels []energy.LabelID, converged bool) error {
	if converged {
		o.state = CONVERGED
	} else {
		o.state = IDLE
	}
	return o.model.EndRound(labels)
}

// move is the outcome of one expansion or swap move.
type move struct {
	labels   []energy.LabelID
	energy   int64
	accepted bool
}

// solveMove cuts mg and accepts the induced labeling only if it strictly lowers the energy.
func (o *Optimizer) solveMove(mg *movegraph.MoveGraph, labels []energy.LabelID, current int64) (move, error) {
	if mg.NumSiteNodes() == 0 {
		return move{labels: labels, energy: current}, nil
	}
	if o.solver == nil {
		solver, err := maxflow.NewSolver(o.opts.Solver, mg.Network(), o.opts.Debug)
		if err != nil {
			return move{}, err
		}
		o.solver = solver
	}
	cut, err := o.solver.ComputeMaxflowMinCut()
	if err != nil {
		return move{}, err
	}
	next := mg.Apply(cut, labels)
	e, err := o.model.ComputeEnergy(next)
	if err != nil {
		return move{}, err
	}

	if mg.Exact() {
		predicted, err := mg.PredictedEnergy(cut)
		if err != nil {
			return move{}, err
		}
		if predicted != e {
			return move{}, fmt.Errorf("%w: cut predicts energy %d but the labeling has energy %d",
				pkg.ErrInvalidNetwork, predicted, e)
		}
	} else {
		o.nonRegularTerms += mg.NonRegularTerms()
		o.log.Warn("move network approximates non-regular terms",
			zap.String("move", mg.MoveType().String()),
			zap.Int("non_regular_terms", mg.NonRegularTerms()))
	}

	if e < current {
		return move{labels: next, energy: e, accepted: true}, nil
	}
	return move{labels: labels, energy: current}, nil
}

func (o *Optimizer) expansionMove(labels []energy.LabelID, current int64, alpha energy.LabelID) (move, error) {
	mg, err := o.builder.BuildExpansion(labels, alpha)
	if err != nil {
		return move{}, err
	}
	mv, err := o.solveMove(mg, labels, current)
	if err != nil {
		return move{}, err
	}
	if o.opts.Verbosity >= pkg.VERBOSITY_MOVE {
		o.log.Debug("expansion move",
			zap.Int32("alpha", int32(alpha)),
			zap.Int("nodes", mg.NumNodes()),
			zap.Int("augmentations", o.augmentations(mg)),
			zap.Bool("accepted", mv.accepted),
			zap.Int64("energy", mv.energy))
	}
	return mv, nil
}

func (o *Optimizer) swapMove(labels []energy.LabelID, current int64, alpha, beta energy.LabelID) (move, error) {
	mg, err := o.builder.BuildSwap(labels, alpha, beta)
	if err != nil {
		return move{}, err
	}
	mv, err := o.solveMove(mg, labels, current)
	if err != nil {
		return move{}, err
	}
	if o.opts.Verbosity >= pkg.VERBOSITY_MOVE {
		o.log.Debug("swap move",
			zap.Int32("alpha", int32(alpha)),
			zap.Int32("beta", int32(beta)),
			zap.Int("nodes", mg.NumNodes()),
			zap.Int("augmentations", o.augmentations(mg)),
			zap.Bool("accepted", mv.accepted),
			zap.Int64("energy", mv.energy))
	}
	return mv, nil
}

func (o *Optimizer) augmentations(mg *movegraph.MoveGraph) int {
	if o.solver == nil || mg.NumSiteNodes() == 0 {
		return 0
	}
	return o.solver.NumberOfAugmentations()
}

// Expansion runs alpha-expansion cycles until a cycle accepts no move or maxIterations cycles
// have run (maxIterations < 0 means no limit). The final labeling is stored in the model.
func (o *Optimizer) Expansion(maxIterations int) (*Result, error) {
	if !o.model.IsMetric() {
		o.log.Warn("smooth cost is not a metric, expansion is not guaranteed to be optimal")
	}
	return o.run(pkg.EXPANSION, maxIterations, func(labels []energy.LabelID, current int64) (move, int, error) {
		accepted := 0
		for _, alpha := range o.order() {
			mv, err := o.expansionMove(labels, current, alpha)
			if err != nil {
				return move{labels: labels, energy: current}, accepted, err
			}
			if mv.accepted {
				accepted++
				labels, current = mv.labels, mv.energy
			}
		}
		return move{labels: labels, energy: current}, accepted, nil
	})
}

// Swap runs alpha-beta swap cycles over all label pairs, see Expansion.
func (o *Optimizer) Swap(maxIterations int) (*Result, error) {
	if !o.model.IsRegularForSwap() {
		o.log.Warn("smooth cost is not regular for swap moves, swap is not guaranteed to be optimal")
	}
	return o.run(pkg.SWAP, maxIterations, func(labels []energy.LabelID, current int64) (move, int, error) {
		accepted := 0
		for _, p := range o.pairOrder() {
			mv, err := o.swapMove(labels, current, p.alpha, p.beta)
			if err != nil {
				return move{labels: labels, energy: current}, accepted, err
			}
			if mv.accepted {
				accepted++
				labels, current = mv.labels, mv.energy
			}
		}
		return move{labels: labels, energy: current}, accepted, nil
	})
}

type cycleFunc func(labels []energy.LabelID, current int64) (move, int, error)

func (o *Optimizer) run(moveType pkg.MoveType, maxIterations int, cycle cycleFunc) (*Result, error) {
	if err := o.beginRound(); err != nil {
		return nil, err
	}
	labels := o.model.Labels()
	current, err := o.model.ComputeEnergy(labels)
	if err != nil {
		return nil, errors.Join(err, o.endRound(nil, false))
	}

	res := &Result{}
	converged := false
	for maxIterations < 0 || res.Cycles < maxIterations {
		res.Cycles++
		mv, accepted, err := cycle(labels, current)
		labels, current = mv.labels, mv.energy
		res.AcceptedMoves += accepted
		if err != nil {
			// moves accepted before the failure are kept
			return nil, errors.Join(err, o.endRound(labels, false))
		}

		info := CycleInfo{Move: moveType.String(), Cycle: res.Cycles, Energy: current, AcceptedMoves: accepted}
		if o.opts.Verbosity >= pkg.VERBOSITY_CYCLE {
			o.log.Info("cycle done",
				zap.String("move", info.Move),
				zap.Int("cycle", info.Cycle),
				zap.Int64("energy", info.Energy),
				zap.Int("accepted_moves", info.AcceptedMoves))
		}
		if o.opts.OnCycle != nil {
			o.opts.OnCycle(info)
		}

		if accepted == 0 {
			converged = true
			break
		}
	}

	if err := o.endRound(labels, converged); err != nil {
		return nil, err
	}
	res.Labels = o.model.Labels()
	res.Energy = current
	res.Converged = converged
	res.NonRegularTerms = o.nonRegularTerms
	return res, nil
}

// AlphaExpansion runs the single expansion move for alpha on the model's labeling and reports
// whether it lowered the energy.
func (o *Optimizer) AlphaExpansion(alpha energy.LabelID) (bool, error) {
	return o.single(func(labels []energy.LabelID, current int64) (move, error) {
		return o.expansionMove(labels, current, alpha)
	})
}

// AlphaBetaSwap runs the single swap move for the pair (alpha, beta).
func (o *Optimizer) AlphaBetaSwap(alpha, beta energy.LabelID) (bool, error) {
	return o.single(func(labels []energy.LabelID, current int64) (move, error) {
		return o.swapMove(labels, current, alpha, beta)
	})
}

func (o *Optimizer) single(step func(labels []energy.LabelID, current int64) (move, error)) (bool, error) {
	if err := o.beginRound(); err != nil {
		return false, err
	}
	labels := o.model.Labels()
	current, err := o.model.ComputeEnergy(labels)
	if err != nil {
		return false, errors.Join(err, o.endRound(nil, false))
	}
	mv, err := step(labels, current)
	if err != nil {
		return false, errors.Join(err, o.endRound(nil, false))
	}
	if err := o.endRound(mv.labels, false); err != nil {
		return false, err
	}
	return mv.accepted, nil
}

// NonRegularTerms returns the number of approximated terms seen by the last round.
func (o *Optimizer) NonRegularTerms() int {
	return o.nonRegularTerms
}
