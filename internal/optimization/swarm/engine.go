package swarm

import (
	"context"
	"io"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"github.com/copyleftdev/HORDE/internal/logging"
	"github.com/copyleftdev/HORDE/internal/optimization"
)

// Engine states. An engine moves Created -> Running -> Completed exactly
// once.
const (
	StateCreated int32 = iota
	StateRunning
	StateCompleted
)

// Engine drives the iteration loop over a generated swarm: velocity update,
// position update, global best refresh, probe notification, in that fixed
// order. It implements optimization.Optimizer.
type Engine struct {
	cfg    Config
	swarm  *Swarm
	probe  Probe
	logger *logging.Logger
	state  atomic.Int32

	mu      sync.RWMutex
	best    *optimization.Solution
	history []optimization.Evaluation
}

// noopProbe stands in when no probe is attached.
type noopProbe struct{}

func (noopProbe) OnBegin(*Snapshot) error              { return nil }
func (noopProbe) OnNewGeneration(*Snapshot, int) error { return nil }
func (noopProbe) OnEnd(*Snapshot) error                { return nil }

// NewEngine fills in reference defaults, validates the configuration, and
// generates the swarm. A configuration error prevents any iteration from
// running: the engine is not created.
func NewEngine(cfg Config, logger *logging.Logger) (*Engine, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1))

	sw, err := Generate(cfg, rng)
	if err != nil {
		return nil, err
	}

	probe := cfg.Probe
	if probe == nil {
		probe = noopProbe{}
	}
	if logger == nil {
		logger = logging.New(logging.InfoLevel, io.Discard)
	}

	e := &Engine{
		cfg:     cfg,
		swarm:   sw,
		probe:   probe,
		logger:  logger,
		history: make([]optimization.Evaluation, 0, cfg.Iterations/cfg.NotificationInterval+1),
	}
	e.recordBest()
	return e, nil
}

// Execute runs the optimization to completion. It may be called at most
// once per engine; re-entrant calls fail with a state error.
//
// The call order inside one iteration is load-bearing: velocities are
// computed against the previous iteration's global best before any position
// moves, and the global best is refreshed only after all particles have
// moved. A cooperative cancellation check runs between iterations.
//
// Probe delivery errors never abort the run: they are collected and
// returned alongside the result, which stays valid.
func (e *Engine) Execute(ctx context.Context) (*optimization.Result, error) {
	if !e.state.CompareAndSwap(StateCreated, StateRunning) {
		return nil, optimization.WrapError(optimization.ErrAlreadyExecuted, "execute").WithComponent("swarm.Engine")
	}

	e.logger.Info("optimization started", map[string]interface{}{
		"particles":  e.cfg.ParticleCount,
		"dimensions": e.cfg.Dimensions,
		"iterations": e.cfg.Iterations,
	})

	var probeErrs error
	probeErrs = multierr.Append(probeErrs, e.probe.OnBegin(e.swarm.Snapshot(0)))

	for iteration := 0; iteration < e.cfg.Iterations; iteration++ {
		select {
		case <-ctx.Done():
			e.state.Store(StateCompleted)
			return nil, ctx.Err()
		default:
		}

		e.swarm.UpdateVelocities(e.cfg.InertiaWeight, e.cfg.CognitiveCoefficient, e.cfg.SocialCoefficient)
		e.swarm.UpdatePositions(e.cfg.Objective)
		e.swarm.UpdateBestPosition()
		e.recordBest()

		if (iteration+1)%e.cfg.NotificationInterval == 0 {
			generation := iteration + 1
			snap := e.swarm.Snapshot(generation)
			e.recordEvaluation(generation, snap)
			probeErrs = multierr.Append(probeErrs, e.probe.OnNewGeneration(snap, generation))
		}
	}

	probeErrs = multierr.Append(probeErrs, e.probe.OnEnd(e.swarm.Snapshot(e.cfg.Iterations)))
	e.state.Store(StateCompleted)

	result := &optimization.Result{
		BestSolution: e.BestSolution(),
		History:      e.History(),
		Iterations:   e.cfg.Iterations,
	}

	e.logger.Info("optimization completed", map[string]interface{}{
		"best_fitness": result.BestSolution.Fitness,
	})

	if probeErrs != nil {
		// The run itself succeeded; the error only reports failed probe
		// deliveries.
		return result, optimization.WrapError(probeErrs, "probe delivery").WithComponent("swarm.Engine")
	}
	return result, nil
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() int32 {
	return e.state.Load()
}

// BestSolution returns a copy of the best solution found so far. Safe to
// call concurrently with Execute.
func (e *Engine) BestSolution() *optimization.Solution {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.best.Clone()
}

// History returns the per-generation records collected so far. Safe to call
// concurrently with Execute.
func (e *Engine) History() []optimization.Evaluation {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]optimization.Evaluation(nil), e.history...)
}

func (e *Engine) recordBest() {
	e.mu.Lock()
	e.best = &optimization.Solution{
		Position: append([]float64(nil), e.swarm.GlobalBestPosition...),
		Fitness:  e.swarm.GlobalBestFitness,
	}
	e.mu.Unlock()
}

func (e *Engine) recordEvaluation(generation int, snap *Snapshot) {
	e.mu.Lock()
	e.history = append(e.history, optimization.Evaluation{
		Iteration: generation,
		Best: optimization.Solution{
			Position: append([]float64(nil), snap.GlobalBestPosition...),
			Fitness:  snap.GlobalBestFitness,
		},
	})
	e.mu.Unlock()
}
