package swarm

import (
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/copyleftdev/HORDE/internal/optimization"
)

// Particle is a single candidate solution: a position in the search space,
// a per-dimension velocity, and the best position this particle has
// individually visited.
type Particle struct {
	Position     []float64
	Velocity     []float64
	BestPosition []float64
	BestFitness  float64
}

// newParticle draws a starting position from posDist per dimension and a
// starting velocity from velDist (or zero when zeroVelocity is set), then
// seeds the personal best from the starting point.
func newParticle(dimensions int, posDist, velDist distuv.Uniform, zeroVelocity bool, objective optimization.ObjectiveFunc) *Particle {
	position := make([]float64, dimensions)
	velocity := make([]float64, dimensions)
	for d := 0; d < dimensions; d++ {
		position[d] = posDist.Rand()
		if !zeroVelocity {
			velocity[d] = velDist.Rand()
		}
	}

	return &Particle{
		Position:     position,
		Velocity:     velocity,
		BestPosition: append([]float64(nil), position...),
		BestFitness:  objective(position),
	}
}

// observeFitness overwrites the personal best if the given fitness improves
// on it. The comparison is strict <, so a NaN fitness never counts as an
// improvement.
func (p *Particle) observeFitness(fitness float64) {
	if fitness < p.BestFitness {
		p.BestFitness = fitness
		copy(p.BestPosition, p.Position)
	}
}

// state returns a deep copy of the particle for read-only snapshots.
func (p *Particle) state() ParticleState {
	return ParticleState{
		Position:     append([]float64(nil), p.Position...),
		Velocity:     append([]float64(nil), p.Velocity...),
		BestPosition: append([]float64(nil), p.BestPosition...),
		BestFitness:  p.BestFitness,
	}
}
