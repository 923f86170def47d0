package probe

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/copyleftdev/HORDE/internal/optimization/swarm"
)

// csvRecord is one row of probe output: the swarm-wide best at the end of a
// generation.
type csvRecord struct {
	generation  int
	bestFitness float64
}

// CSV accumulates one record per observed generation in memory and performs
// a single bulk write to the sink at OnEnd. A write failure is reported as
// a DeliveryError and never aborts the optimization.
type CSV struct {
	w       io.Writer
	records []csvRecord
}

// NewCSV creates a CSV probe writing to w at the end of the run.
func NewCSV(w io.Writer) *CSV {
	return &CSV{w: w}
}

// OnBegin records the initial best as generation 0.
func (c *CSV) OnBegin(snap *swarm.Snapshot) error {
	c.records = append(c.records, csvRecord{generation: 0, bestFitness: snap.GlobalBestFitness})
	return nil
}

// OnNewGeneration appends one record; nothing is written yet.
func (c *CSV) OnNewGeneration(snap *swarm.Snapshot, iteration int) error {
	c.records = append(c.records, csvRecord{generation: iteration, bestFitness: snap.GlobalBestFitness})
	return nil
}

// OnEnd flushes all accumulated records to the sink.
func (c *CSV) OnEnd(snap *swarm.Snapshot) error {
	return deliveryError("csv", "OnEnd", c.flush())
}

func (c *CSV) flush() error {
	w := csv.NewWriter(c.w)
	if err := w.Write([]string{"generation", "best_fitness"}); err != nil {
		return err
	}
	for _, r := range c.records {
		row := []string{
			strconv.Itoa(r.generation),
			strconv.FormatFloat(r.bestFitness, 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
