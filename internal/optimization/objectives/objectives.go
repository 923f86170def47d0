// Package objectives provides the benchmark objective functions used by the
// HTTP surface and the test suite. All functions are pure, defined on ℝⁿ,
// and have a known global minimum of 0.
package objectives

import (
	"math"
	"sort"

	"github.com/copyleftdev/HORDE/internal/optimization"
)

// Sphere is the sum of squares; minimum 0 at the origin.
func Sphere(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return sum
}

// Rosenbrock is the classic banana-valley function; minimum 0 at (1, ..., 1).
func Rosenbrock(x []float64) float64 {
	value := 0.0
	for i := 0; i < len(x)-1; i++ {
		a := x[i+1] - x[i]*x[i]
		b := 1 - x[i]
		value += 100*a*a + b*b
	}
	return value
}

// Rastrigin is highly multimodal; minimum 0 at the origin.
func Rastrigin(x []float64) float64 {
	value := 10 * float64(len(x))
	for _, v := range x {
		value += v*v - 10*math.Cos(2*math.Pi*v)
	}
	return value
}

// Ackley has a nearly flat outer region and a large hole at the origin;
// minimum 0 at the origin.
func Ackley(x []float64) float64 {
	n := float64(len(x))
	sumSq, sumCos := 0.0, 0.0
	for _, v := range x {
		sumSq += v * v
		sumCos += math.Cos(2 * math.Pi * v)
	}
	return -20*math.Exp(-0.2*math.Sqrt(sumSq/n)) - math.Exp(sumCos/n) + 20 + math.E
}

var registry = map[string]optimization.ObjectiveFunc{
	"sphere":     Sphere,
	"rosenbrock": Rosenbrock,
	"rastrigin":  Rastrigin,
	"ackley":     Ackley,
}

// Lookup returns the objective function registered under name.
func Lookup(name string) (optimization.ObjectiveFunc, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Names returns the registered objective names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
