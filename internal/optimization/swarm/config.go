package swarm

import (
	"github.com/copyleftdev/HORDE/internal/optimization"
)

// Reference parameter values. They match the documented defaults of the
// algorithm and are used wherever the caller leaves a field unset.
const (
	DefaultDimensions           = 2
	DefaultLowerBound           = -10.0
	DefaultUpperBound           = 10.0
	DefaultParticleCount        = 30
	DefaultInertiaWeight        = 0.5
	DefaultCognitiveCoefficient = 1.0
	DefaultSocialCoefficient    = 3.0
	DefaultIterations           = 500
	DefaultNotificationInterval = 10
)

// Config contains the configuration for a particle swarm run. It is
// immutable for the duration of the run. Numeric fields left at their zero
// value take the reference defaults above when the config is handed to
// NewEngine.
type Config struct {
	// Dimensions is the dimensionality of the objective function's domain
	Dimensions int

	// LowerBound and UpperBound restrict the initial search area in every
	// dimension. Positions are NOT clamped back into the bounds during the
	// run unless ClampPositions is set: unbounded drift is the reference
	// behavior.
	LowerBound float64
	UpperBound float64

	// ParticleCount is the number of particles, fixed for the run
	ParticleCount int

	// InertiaWeight specifies how much particles retain their velocity from
	// the previous iteration (1 - no slowdown). The zero value selects the
	// reference default, like every numeric field here; a literal
	// zero-inertia run is driven through Swarm.UpdateVelocities directly.
	InertiaWeight float64

	// CognitiveCoefficient scales the pull toward a particle's own best.
	// Zero selects the reference default.
	CognitiveCoefficient float64

	// SocialCoefficient scales the pull toward the swarm's global best.
	// Zero selects the reference default.
	SocialCoefficient float64

	// Objective is the function to optimize (minimization)
	Objective optimization.ObjectiveFunc

	// Iterations is the number of generations to run
	Iterations int

	// NotificationInterval controls how often the probe receives a
	// generation snapshot: every NotificationInterval-th iteration
	NotificationInterval int

	// Probe receives lifecycle events; nil disables observation
	Probe Probe

	// Seed for the run's random source. Runs with the same configuration
	// and seed are bit-identical; zero means a time-derived seed.
	Seed int64

	// ClampPositions clamps positions back into [LowerBound, UpperBound]
	// after every move. Off by default; clamping changes convergence
	// dynamics and must be opted into explicitly.
	ClampPositions bool

	// ZeroVelocity initializes particle velocities to zero instead of a
	// uniform draw from [-(upper-lower), upper-lower]
	ZeroVelocity bool

	// Workers is the number of goroutines used for fitness evaluation
	// within a position update pass. Values below 2 keep the single
	// threaded reference behavior. Evaluation results are written back by
	// particle index, so the observable output does not depend on Workers.
	Workers int
}

// withDefaults returns a copy of the config with unset numeric fields
// replaced by the reference values.
func (c Config) withDefaults() Config {
	if c.Dimensions == 0 {
		c.Dimensions = DefaultDimensions
	}
	if c.LowerBound == 0 && c.UpperBound == 0 {
		c.LowerBound = DefaultLowerBound
		c.UpperBound = DefaultUpperBound
	}
	if c.ParticleCount == 0 {
		c.ParticleCount = DefaultParticleCount
	}
	if c.InertiaWeight == 0 {
		c.InertiaWeight = DefaultInertiaWeight
	}
	if c.CognitiveCoefficient == 0 {
		c.CognitiveCoefficient = DefaultCognitiveCoefficient
	}
	if c.SocialCoefficient == 0 {
		c.SocialCoefficient = DefaultSocialCoefficient
	}
	if c.Iterations == 0 {
		c.Iterations = DefaultIterations
	}
	if c.NotificationInterval == 0 {
		c.NotificationInterval = DefaultNotificationInterval
	}
	return c
}

// Validate checks the configuration. Every returned error matches
// optimization.ErrInvalidConfig.
func (c Config) Validate() error {
	if c.Objective == nil {
		return optimization.ConfigErrorf("objective function is required").WithComponent("swarm")
	}
	if c.ParticleCount <= 0 {
		return optimization.ConfigErrorf("particle count must be positive, got %d", c.ParticleCount).WithComponent("swarm")
	}
	if c.Dimensions <= 0 {
		return optimization.ConfigErrorf("dimensions must be positive, got %d", c.Dimensions).WithComponent("swarm")
	}
	if c.LowerBound >= c.UpperBound {
		return optimization.ConfigErrorf("lower bound %v must be below upper bound %v", c.LowerBound, c.UpperBound).WithComponent("swarm")
	}
	if c.Iterations < 0 {
		return optimization.ConfigErrorf("iterations must not be negative, got %d", c.Iterations).WithComponent("swarm")
	}
	if c.NotificationInterval <= 0 {
		return optimization.ConfigErrorf("notification interval must be positive, got %d", c.NotificationInterval).WithComponent("swarm")
	}
	return nil
}
