package probe

import (
	"go.uber.org/multierr"

	"github.com/copyleftdev/HORDE/internal/optimization/swarm"
)

// Multi broadcasts each lifecycle event to an ordered list of inner probes
// in registration order. A delivery failure in one probe does not prevent
// the others from being notified; all errors are collected and returned
// combined.
type Multi struct {
	probes []swarm.Probe
}

// NewMulti creates a fan-out probe over the given probes. Registration
// order is notification order.
func NewMulti(probes ...swarm.Probe) *Multi {
	return &Multi{probes: probes}
}

// Add appends a probe to the end of the notification order.
func (m *Multi) Add(p swarm.Probe) {
	m.probes = append(m.probes, p)
}

// OnBegin notifies every inner probe.
func (m *Multi) OnBegin(snap *swarm.Snapshot) error {
	var errs error
	for _, p := range m.probes {
		errs = multierr.Append(errs, p.OnBegin(snap))
	}
	return errs
}

// OnNewGeneration notifies every inner probe.
func (m *Multi) OnNewGeneration(snap *swarm.Snapshot, iteration int) error {
	var errs error
	for _, p := range m.probes {
		errs = multierr.Append(errs, p.OnNewGeneration(snap, iteration))
	}
	return errs
}

// OnEnd notifies every inner probe.
func (m *Multi) OnEnd(snap *swarm.Snapshot) error {
	var errs error
	for _, p := range m.probes {
		errs = multierr.Append(errs, p.OnEnd(snap))
	}
	return errs
}
