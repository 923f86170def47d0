// Package probe provides observers for swarm optimization runs: sinks that
// consume lifecycle events (start, per-generation snapshot, end) without
// affecting the optimization result. All probes implement swarm.Probe and
// can be combined with Multi.
package probe

import (
	"fmt"
)

// DeliveryError reports a sink-backed probe failing to deliver or persist
// an event. Delivery errors are non-fatal to the optimization: the fan-out
// keeps notifying the remaining probes and the errors are surfaced to the
// caller after the run.
type DeliveryError struct {
	// Probe names the failing probe, e.g. "csv"
	Probe string
	// Op is the lifecycle operation that failed, e.g. "OnEnd"
	Op string
	// Err is the underlying sink error
	Err error
}

// Error returns the string representation of the error.
func (e *DeliveryError) Error() string {
	return fmt.Sprintf("probe %s: %s: %v", e.Probe, e.Op, e.Err)
}

// Unwrap returns the underlying sink error.
func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// deliveryError wraps err unless it is nil.
func deliveryError(probe, op string, err error) error {
	if err == nil {
		return nil
	}
	return &DeliveryError{Probe: probe, Op: op, Err: err}
}
