package probe

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/copyleftdev/HORDE/internal/optimization/swarm"
)

// Metrics exports swarm progress as Prometheus metrics. Notification never
// fails: metric updates are in-process.
type Metrics struct {
	generations prometheus.Counter
	bestFitness prometheus.Gauge
	particles   prometheus.Gauge
}

// NewMetrics registers the swarm metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		generations: factory.NewCounter(prometheus.CounterOpts{
			Name: "swarm_generations_total",
			Help: "Number of observed generations across all runs.",
		}),
		bestFitness: factory.NewGauge(prometheus.GaugeOpts{
			Name: "swarm_best_fitness",
			Help: "Best fitness found so far in the current run.",
		}),
		particles: factory.NewGauge(prometheus.GaugeOpts{
			Name: "swarm_particles",
			Help: "Particle count of the current run.",
		}),
	}
}

// OnBegin publishes the initial swarm shape.
func (m *Metrics) OnBegin(snap *swarm.Snapshot) error {
	m.particles.Set(float64(len(snap.Particles)))
	m.bestFitness.Set(snap.GlobalBestFitness)
	return nil
}

// OnNewGeneration bumps the generation counter and refreshes the best
// fitness gauge.
func (m *Metrics) OnNewGeneration(snap *swarm.Snapshot, iteration int) error {
	m.generations.Inc()
	m.bestFitness.Set(snap.GlobalBestFitness)
	return nil
}

// OnEnd publishes the final best fitness.
func (m *Metrics) OnEnd(snap *swarm.Snapshot) error {
	m.bestFitness.Set(snap.GlobalBestFitness)
	return nil
}
