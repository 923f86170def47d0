package probe

import (
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/stat"

	"github.com/copyleftdev/HORDE/internal/optimization/swarm"
)

// Console writes human-readable progress to a text stream.
type Console struct {
	w io.Writer
}

// NewConsole creates a console probe writing to w; a nil writer means
// stdout.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{w: w}
}

// OnBegin prints the initial swarm summary.
func (c *Console) OnBegin(snap *swarm.Snapshot) error {
	_, err := fmt.Fprintf(c.w, "swarm generated: %d particles, initial best fitness %.6g\n",
		len(snap.Particles), snap.GlobalBestFitness)
	return deliveryError("console", "OnBegin", err)
}

// OnNewGeneration prints one progress line with population statistics.
func (c *Console) OnNewGeneration(snap *swarm.Snapshot, iteration int) error {
	mean, stddev := fitnessStats(snap)
	_, err := fmt.Fprintf(c.w, "generation %4d: best %.6g  mean %.6g  stddev %.6g\n",
		iteration, snap.GlobalBestFitness, mean, stddev)
	return deliveryError("console", "OnNewGeneration", err)
}

// OnEnd prints the final result.
func (c *Console) OnEnd(snap *swarm.Snapshot) error {
	_, err := fmt.Fprintf(c.w, "finished: best fitness %.6g at %v\n",
		snap.GlobalBestFitness, snap.GlobalBestPosition)
	return deliveryError("console", "OnEnd", err)
}

// fitnessStats returns mean and standard deviation of the particles'
// personal best fitnesses.
func fitnessStats(snap *swarm.Snapshot) (mean, stddev float64) {
	values := make([]float64, len(snap.Particles))
	for i, p := range snap.Particles {
		values[i] = p.BestFitness
	}
	mean = stat.Mean(values, nil)
	stddev = stat.StdDev(values, nil)
	return mean, stddev
}
