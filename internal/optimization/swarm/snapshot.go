package swarm

// Probe is notified of optimization lifecycle events. All three methods are
// called synchronously from the engine's goroutine and receive read-only
// snapshots; they must not block indefinitely. A non-nil return value is a
// delivery error: it is collected and surfaced to the caller but never
// affects the optimization result.
type Probe interface {
	// OnBegin is called once with the freshly generated swarm, before any
	// iteration runs
	OnBegin(snap *Snapshot) error

	// OnNewGeneration is called after every NotificationInterval-th
	// iteration with the 1-based generation number
	OnNewGeneration(snap *Snapshot, iteration int) error

	// OnEnd is called once with the final swarm state
	OnEnd(snap *Snapshot) error
}

// ParticleState is a read-only copy of a single particle.
type ParticleState struct {
	Position     []float64 `json:"position"`
	Velocity     []float64 `json:"velocity"`
	BestPosition []float64 `json:"best_position"`
	BestFitness  float64   `json:"best_fitness"`
}

// Snapshot is a deep copy of swarm state at a point in the run. Particle
// order is the swarm's stable iteration order. Probes own their snapshots
// and cannot reach the live swarm through them.
type Snapshot struct {
	Iteration          int             `json:"iteration"`
	Particles          []ParticleState `json:"particles"`
	GlobalBestPosition []float64       `json:"global_best_position"`
	GlobalBestFitness  float64         `json:"global_best_fitness"`
}

// Best returns the global best recorded in the snapshot.
func (s *Snapshot) Best() ([]float64, float64) {
	return s.GlobalBestPosition, s.GlobalBestFitness
}
