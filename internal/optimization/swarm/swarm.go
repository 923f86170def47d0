// Package swarm implements particle swarm optimization: a population of
// candidate solutions iteratively refines its positions according to the
// inertia/cognitive/social velocity rule, guided by a caller-supplied
// objective function, with attached probes observing every state
// transition.
package swarm

import (
	"math"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/copyleftdev/HORDE/internal/optimization"
)

// Swarm owns the full particle population plus the best solution found by
// any particle so far. It is exclusively owned by one engine for the
// duration of a run and is not safe for concurrent use.
type Swarm struct {
	// Particles in stable iteration order; this order is also the
	// notification and tie-break order
	Particles []*Particle

	// GlobalBestPosition and GlobalBestFitness track the best fitness found
	// by any particle at any point. GlobalBestFitness is monotonically
	// non-increasing across iterations.
	GlobalBestPosition []float64
	GlobalBestFitness  float64

	dimensions int
	lower      float64
	upper      float64
	clamp      bool
	workers    int
	rng        *rand.Rand

	// scratch buffer for parallel fitness evaluation
	fitness []float64
}

// Generate builds a swarm from the configuration: positions drawn uniformly
// from [lower, upper] per dimension, velocities uniformly from
// [-(upper-lower), upper-lower] (or zero with cfg.ZeroVelocity), personal
// bests seeded from the starting points. Fails with a configuration error
// when the particle count or dimensionality is zero or the bounds are
// inverted; no swarm is created in that case.
func Generate(cfg Config, rng *rand.Rand) (*Swarm, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	span := cfg.UpperBound - cfg.LowerBound
	posDist := distuv.Uniform{Min: cfg.LowerBound, Max: cfg.UpperBound, Src: rng}
	velDist := distuv.Uniform{Min: -span, Max: span, Src: rng}

	s := &Swarm{
		Particles:  make([]*Particle, cfg.ParticleCount),
		dimensions: cfg.Dimensions,
		lower:      cfg.LowerBound,
		upper:      cfg.UpperBound,
		clamp:      cfg.ClampPositions,
		workers:    cfg.Workers,
		rng:        rng,
		fitness:    make([]float64, cfg.ParticleCount),
	}

	for i := range s.Particles {
		s.Particles[i] = newParticle(cfg.Dimensions, posDist, velDist, cfg.ZeroVelocity, cfg.Objective)
	}

	// Seed the global best from the first particle so ties keep iteration
	// order, then let the rescan improve on it.
	first := s.Particles[0]
	s.GlobalBestPosition = append([]float64(nil), first.BestPosition...)
	s.GlobalBestFitness = first.BestFitness
	s.UpdateBestPosition()

	return s, nil
}

// UpdateVelocities recomputes every particle's velocity as a linear
// combination of inertia times the previous velocity, a cognitive pull
// toward the particle's own best, and a social pull toward the global best.
// The global best is frozen at the start of the pass, so every velocity in
// one iteration is computed against the same snapshot regardless of update
// order.
func (s *Swarm) UpdateVelocities(inertia, cognitive, social float64) {
	globalBest := append([]float64(nil), s.GlobalBestPosition...)

	for _, p := range s.Particles {
		r1 := s.rng.Float64()
		r2 := s.rng.Float64()
		for d := range p.Velocity {
			p.Velocity[d] = inertia*p.Velocity[d] +
				cognitive*r1*(p.BestPosition[d]-p.Position[d]) +
				social*r2*(globalBest[d]-p.Position[d])
		}
	}
}

// UpdatePositions applies each particle's velocity to its position,
// recomputes the objective value, and overwrites personal bests on strict
// improvement. Positions drift outside the configured bounds unless
// clamping was opted into. Fitness evaluation runs on a worker pool when
// the swarm was configured with more than one worker; results are written
// back by particle index, so parallelism changes nothing observable.
func (s *Swarm) UpdatePositions(objective optimization.ObjectiveFunc) {
	for _, p := range s.Particles {
		for d := range p.Position {
			p.Position[d] += p.Velocity[d]
			if s.clamp {
				p.Position[d] = math.Max(s.lower, math.Min(p.Position[d], s.upper))
			}
		}
	}

	s.evaluate(objective)

	for i, p := range s.Particles {
		p.observeFitness(s.fitness[i])
	}
}

// evaluate fills s.fitness with objective values per particle index.
func (s *Swarm) evaluate(objective optimization.ObjectiveFunc) {
	if s.workers < 2 {
		for i, p := range s.Particles {
			s.fitness[i] = objective(p.Position)
		}
		return
	}

	workers := s.workers
	if workers > len(s.Particles) {
		workers = len(s.Particles)
	}

	var wg sync.WaitGroup
	indices := make(chan int)

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range indices {
				s.fitness[i] = objective(s.Particles[i].Position)
			}
		}()
	}

	for i := range s.Particles {
		indices <- i
	}
	close(indices)
	wg.Wait()
}

// UpdateBestPosition rescans all personal bests and updates the global best
// if any improves on it. The comparison is strict <, so the first particle
// in iteration order wins ties and a NaN fitness never replaces the global
// best.
func (s *Swarm) UpdateBestPosition() {
	for _, p := range s.Particles {
		if p.BestFitness < s.GlobalBestFitness {
			s.GlobalBestFitness = p.BestFitness
			copy(s.GlobalBestPosition, p.BestPosition)
		}
	}
}

// Snapshot returns a deep copy of the swarm state tagged with the given
// iteration number.
func (s *Swarm) Snapshot(iteration int) *Snapshot {
	particles := make([]ParticleState, len(s.Particles))
	for i, p := range s.Particles {
		particles[i] = p.state()
	}
	return &Snapshot{
		Iteration:          iteration,
		Particles:          particles,
		GlobalBestPosition: append([]float64(nil), s.GlobalBestPosition...),
		GlobalBestFitness:  s.GlobalBestFitness,
	}
}

// Dimensions returns the configured dimensionality of the search space.
func (s *Swarm) Dimensions() int {
	return s.dimensions
}
