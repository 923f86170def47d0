package probe

import (
	"sync"

	"github.com/copyleftdev/HORDE/internal/optimization/swarm"
)

// Event kinds carried by the stream probe.
const (
	EventBegin      = "begin"
	EventGeneration = "generation"
	EventEnd        = "end"
)

// Event is one probe notification flattened for transport to an external
// consumer (e.g. a websocket client).
type Event struct {
	Type         string    `json:"type"`
	Iteration    int       `json:"iteration"`
	BestFitness  float64   `json:"best_fitness"`
	BestPosition []float64 `json:"best_position"`
	Particles    int       `json:"particles"`
}

// Stream forwards lifecycle events onto a buffered channel. Sends never
// block the engine: when the consumer falls behind and the buffer is full,
// intermediate events are dropped. The channel is closed on OnEnd, after
// the final event was delivered.
type Stream struct {
	events    chan Event
	closeOnce sync.Once
}

// NewStream creates a stream probe with the given buffer size.
func NewStream(buffer int) *Stream {
	if buffer < 1 {
		buffer = 1
	}
	return &Stream{events: make(chan Event, buffer)}
}

// Events returns the receive side of the event channel.
func (s *Stream) Events() <-chan Event {
	return s.events
}

// OnBegin emits a begin event.
func (s *Stream) OnBegin(snap *swarm.Snapshot) error {
	s.send(EventBegin, snap)
	return nil
}

// OnNewGeneration emits a generation event.
func (s *Stream) OnNewGeneration(snap *swarm.Snapshot, iteration int) error {
	s.send(EventGeneration, snap)
	return nil
}

// OnEnd emits the final event and closes the channel.
func (s *Stream) OnEnd(snap *swarm.Snapshot) error {
	// The final event must not be dropped: make room if the buffer is full.
	ev := s.event(EventEnd, snap)
	for {
		select {
		case s.events <- ev:
			s.close()
			return nil
		default:
			select {
			case <-s.events:
			default:
			}
		}
	}
}

// Close closes the event channel without a final event. Runs that end
// before OnEnd fires, such as a cancelled run, must call it so consumers
// ranging over Events do not block forever. Safe to call after OnEnd.
func (s *Stream) Close() {
	s.close()
}

func (s *Stream) close() {
	s.closeOnce.Do(func() { close(s.events) })
}

func (s *Stream) send(kind string, snap *swarm.Snapshot) {
	select {
	case s.events <- s.event(kind, snap):
	default:
	}
}

func (s *Stream) event(kind string, snap *swarm.Snapshot) Event {
	return Event{
		Type:         kind,
		Iteration:    snap.Iteration,
		BestFitness:  snap.GlobalBestFitness,
		BestPosition: append([]float64(nil), snap.GlobalBestPosition...),
		Particles:    len(snap.Particles),
	}
}
