package probe

import (
	"encoding/json"
	"io"

	"github.com/copyleftdev/HORDE/internal/optimization/swarm"
)

// jsonRecord is the serialized form of one observed generation.
type jsonRecord struct {
	Generation   int       `json:"generation"`
	BestFitness  float64   `json:"best_fitness"`
	BestPosition []float64 `json:"best_position"`
}

// JSON accumulates per-generation records in memory and writes a single
// JSON document to the sink at OnEnd.
type JSON struct {
	w       io.Writer
	records []jsonRecord
}

// NewJSON creates a JSON probe writing to w at the end of the run.
func NewJSON(w io.Writer) *JSON {
	return &JSON{w: w}
}

// OnBegin records the initial best as generation 0.
func (j *JSON) OnBegin(snap *swarm.Snapshot) error {
	j.record(0, snap)
	return nil
}

// OnNewGeneration appends one record; nothing is written yet.
func (j *JSON) OnNewGeneration(snap *swarm.Snapshot, iteration int) error {
	j.record(iteration, snap)
	return nil
}

// OnEnd records the final state and writes the whole document. When the
// last generation already produced a record, the final state carries the
// same generation number and is not recorded again.
func (j *JSON) OnEnd(snap *swarm.Snapshot) error {
	if n := len(j.records); n == 0 || j.records[n-1].Generation != snap.Iteration {
		j.record(snap.Iteration, snap)
	}
	enc := json.NewEncoder(j.w)
	enc.SetIndent("", "  ")
	return deliveryError("json", "OnEnd", enc.Encode(j.records))
}

func (j *JSON) record(generation int, snap *swarm.Snapshot) {
	j.records = append(j.records, jsonRecord{
		Generation:   generation,
		BestFitness:  snap.GlobalBestFitness,
		BestPosition: append([]float64(nil), snap.GlobalBestPosition...),
	})
}
