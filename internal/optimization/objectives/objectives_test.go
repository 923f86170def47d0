package objectives

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/HORDE/internal/optimization"
)

func TestKnownMinima(t *testing.T) {
	tests := []struct {
		name    string
		fn      optimization.ObjectiveFunc
		minimum []float64
	}{
		{"sphere at origin", Sphere, []float64{0, 0, 0}},
		{"rosenbrock at ones", Rosenbrock, []float64{1, 1, 1}},
		{"rastrigin at origin", Rastrigin, []float64{0, 0, 0}},
		{"ackley at origin", Ackley, []float64{0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, 0.0, tt.fn(tt.minimum), 1e-9)
			// The minimum is global: a small perturbation only worsens the value.
			perturbed := append([]float64(nil), tt.minimum...)
			perturbed[0] += 0.1
			assert.Greater(t, tt.fn(perturbed), tt.fn(tt.minimum))
		})
	}
}

func TestSphereValues(t *testing.T) {
	assert.Equal(t, 14.0, Sphere([]float64{1, 2, 3}))
	assert.Equal(t, 0.0, Sphere(nil))
}

func TestRastriginMultimodal(t *testing.T) {
	// Integer coordinates are local minima of the cosine term.
	local := Rastrigin([]float64{1, 1})
	nearby := Rastrigin([]float64{1.2, 1.2})
	assert.Less(t, local, nearby)
	assert.Greater(t, local, 0.0)
}

func TestLookup(t *testing.T) {
	fn, ok := Lookup("sphere")
	require.True(t, ok)
	assert.Equal(t, 14.0, fn([]float64{1, 2, 3}))

	_, ok = Lookup("unknown")
	assert.False(t, ok)
}

func TestNamesSorted(t *testing.T) {
	assert.Equal(t, []string{"ackley", "rastrigin", "rosenbrock", "sphere"}, Names())
}
