package optimization

import (
	"context"
)

// Optimizer defines the interface for optimization algorithms
type Optimizer interface {
	// Execute runs the optimization to completion
	Execute(ctx context.Context) (*Result, error)

	// BestSolution returns the best solution found so far
	BestSolution() *Solution

	// History returns the per-generation records collected during the run
	History() []Evaluation
}

// ObjectiveFunc defines the function to be optimized.
// It must be pure and free of hidden global state: it is called from the
// hot loop of every generation and may be invoked from a worker pool.
// A NaN or infinite return value is propagated through comparisons and
// never counts as an improvement (strict < under IEEE-754 semantics).
type ObjectiveFunc func(x []float64) float64

// Solution represents a point in the search space with its fitness
type Solution struct {
	Position []float64 `json:"position"`
	Fitness  float64   `json:"fitness"`
}

// Clone returns a deep copy of the solution
func (s *Solution) Clone() *Solution {
	if s == nil {
		return nil
	}
	return &Solution{
		Position: append([]float64(nil), s.Position...),
		Fitness:  s.Fitness,
	}
}

// Evaluation records the swarm-wide best at the end of one generation
type Evaluation struct {
	Iteration int      `json:"iteration"`
	Best      Solution `json:"best"`
}

// Result contains the outcome of an optimization run
type Result struct {
	BestSolution *Solution
	History      []Evaluation
	Iterations   int
}
