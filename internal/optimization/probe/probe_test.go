package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/copyleftdev/HORDE/internal/optimization/swarm"
)

// recorder appends one entry per notification to a shared log, so tests can
// assert both completeness and relative order across probes.
type recorder struct {
	name string
	log  *[]string
	fail string
}

func (r *recorder) note(op string) error {
	*r.log = append(*r.log, r.name+"."+op)
	if r.fail == op {
		return deliveryError(r.name, op, errors.New("sink unavailable"))
	}
	return nil
}

func (r *recorder) OnBegin(*swarm.Snapshot) error              { return r.note("OnBegin") }
func (r *recorder) OnNewGeneration(*swarm.Snapshot, int) error { return r.note("OnNewGeneration") }
func (r *recorder) OnEnd(*swarm.Snapshot) error                { return r.note("OnEnd") }

func sampleSnapshot(iteration int) *swarm.Snapshot {
	return &swarm.Snapshot{
		Iteration: iteration,
		Particles: []swarm.ParticleState{
			{Position: []float64{1, 2}, Velocity: []float64{0.1, 0.1}, BestPosition: []float64{1, 2}, BestFitness: 5},
			{Position: []float64{0.5, 0.5}, Velocity: []float64{0, 0}, BestPosition: []float64{0.5, 0.5}, BestFitness: 0.5},
		},
		GlobalBestPosition: []float64{0.5, 0.5},
		GlobalBestFitness:  0.5,
	}
}

func TestMultiNotifiesInOrder(t *testing.T) {
	var log []string
	first := &recorder{name: "first", log: &log}
	second := &recorder{name: "second", log: &log}

	m := NewMulti(first)
	m.Add(second)

	snap := sampleSnapshot(0)
	require.NoError(t, m.OnBegin(snap))
	require.NoError(t, m.OnNewGeneration(sampleSnapshot(10), 10))
	require.NoError(t, m.OnEnd(sampleSnapshot(20)))

	assert.Equal(t, []string{
		"first.OnBegin", "second.OnBegin",
		"first.OnNewGeneration", "second.OnNewGeneration",
		"first.OnEnd", "second.OnEnd",
	}, log)
}

func TestMultiContinuesPastFailure(t *testing.T) {
	tests := []struct {
		name string
		op   string
	}{
		{"begin failure", "OnBegin"},
		{"generation failure", "OnNewGeneration"},
		{"end failure", "OnEnd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var log []string
			failing := &recorder{name: "failing", log: &log, fail: tt.op}
			trailing := &recorder{name: "trailing", log: &log}
			m := NewMulti(failing, trailing)

			var err error
			switch tt.op {
			case "OnBegin":
				err = m.OnBegin(sampleSnapshot(0))
			case "OnNewGeneration":
				err = m.OnNewGeneration(sampleSnapshot(10), 10)
			case "OnEnd":
				err = m.OnEnd(sampleSnapshot(20))
			}

			require.Error(t, err)
			var derr *DeliveryError
			require.True(t, errors.As(err, &derr))
			assert.Equal(t, "failing", derr.Probe)
			assert.Equal(t, tt.op, derr.Op)

			// The probe after the failing one was still notified.
			assert.Contains(t, log, "trailing."+tt.op)
		})
	}
}

func TestMultiCollectsAllFailures(t *testing.T) {
	var log []string
	a := &recorder{name: "a", log: &log, fail: "OnEnd"}
	b := &recorder{name: "b", log: &log, fail: "OnEnd"}
	m := NewMulti(a, b)

	err := m.OnEnd(sampleSnapshot(5))
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
}

func TestEngineNotificationSchedule(t *testing.T) {
	var log []string
	rec := &recorder{name: "rec", log: &log}

	e, err := swarm.NewEngine(swarm.Config{
		ParticleCount:        5,
		Iterations:           50,
		NotificationInterval: 10,
		Objective: func(x []float64) float64 {
			var sum float64
			for _, v := range x {
				sum += v * v
			}
			return sum
		},
		Probe: rec,
		Seed:  9,
	}, nil)
	require.NoError(t, err)

	_, err = e.Execute(context.Background())
	require.NoError(t, err)

	counts := map[string]int{}
	for _, entry := range log {
		counts[entry]++
	}
	assert.Equal(t, 1, counts["rec.OnBegin"])
	assert.Equal(t, 5, counts["rec.OnNewGeneration"])
	assert.Equal(t, 1, counts["rec.OnEnd"])
	assert.Equal(t, "rec.OnBegin", log[0])
	assert.Equal(t, "rec.OnEnd", log[len(log)-1])
}

func TestEngineSurfacesDeliveryErrors(t *testing.T) {
	var log []string
	failing := &recorder{name: "failing", log: &log, fail: "OnNewGeneration"}

	e, err := swarm.NewEngine(swarm.Config{
		ParticleCount:        5,
		Iterations:           20,
		NotificationInterval: 10,
		Objective: func(x []float64) float64 {
			var sum float64
			for _, v := range x {
				sum += v * v
			}
			return sum
		},
		Probe: NewMulti(failing),
		Seed:  9,
	}, nil)
	require.NoError(t, err)

	result, err := e.Execute(context.Background())
	require.Error(t, err)
	var derr *DeliveryError
	assert.True(t, errors.As(err, &derr))

	// The result stays valid despite the delivery failures.
	require.NotNil(t, result)
	assert.Equal(t, 20, result.Iterations)
	assert.NotEmpty(t, result.BestSolution.Position)
}

func TestComposedSinksObserveOneRun(t *testing.T) {
	var console, csvOut, jsonOut bytes.Buffer
	m := NewMulti(NewConsole(&console), NewCSV(&csvOut), NewJSON(&jsonOut))

	e, err := swarm.NewEngine(swarm.Config{
		ParticleCount:        5,
		Iterations:           30,
		NotificationInterval: 10,
		Objective: func(x []float64) float64 {
			var sum float64
			for _, v := range x {
				sum += v * v
			}
			return sum
		},
		Probe: m,
		Seed:  21,
	}, nil)
	require.NoError(t, err)

	_, err = e.Execute(context.Background())
	require.NoError(t, err)

	assert.Contains(t, console.String(), "swarm generated")
	assert.Contains(t, console.String(), "finished")

	// Header plus generations 0, 10, 20, 30.
	lines := strings.Split(strings.TrimSpace(csvOut.String()), "\n")
	assert.Len(t, lines, 5)
	assert.Equal(t, "generation,best_fitness", lines[0])

	var records []jsonRecord
	require.NoError(t, json.Unmarshal(jsonOut.Bytes(), &records))
	// Generations 0, 10, 20, 30; the final state coincides with the last
	// progress record and is not repeated.
	assert.Len(t, records, 4)
}

func TestDeliveryErrorUnwrap(t *testing.T) {
	inner := errors.New("disk full")
	err := deliveryError("csv", "OnEnd", inner)
	require.Error(t, err)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, fmt.Sprintf("probe csv: OnEnd: %v", inner), err.Error())

	assert.NoError(t, deliveryError("csv", "OnEnd", nil))
}
