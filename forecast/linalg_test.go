package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRidge_RecoversLinearFit(t *testing.T) {
	// GIVEN: y = 2 + 3x sampled at x = 0..9
	var x [][]float64
	var y []float64
	for i := 0; i < 10; i++ {
		x = append(x, []float64{1, float64(i)})
		y = append(y, 2+3*float64(i))
	}

	// WHEN: Solved with a negligible penalty
	w, err := ridge(x, y, []float64{1e-9, 1e-9})

	// THEN: The coefficients come back
	require.NoError(t, err)
	require.Len(t, w, 2)
	assert.InDelta(t, 2, w[0], 1e-6)
	assert.InDelta(t, 3, w[1], 1e-6)
}

func TestRidge_PenaltyShrinksTowardZero(t *testing.T) {
	x := [][]float64{{1}, {1}, {1}, {1}}
	y := []float64{4, 4, 4, 4}

	// X'X = 4, X'y = 16; w = 16 / (4 + 4)
	w, err := ridge(x, y, []float64{4})

	require.NoError(t, err)
	assert.InDelta(t, 2, w[0], 1e-12)
}

func TestRidge_SingularWithoutPenalty(t *testing.T) {
	// An all-zero column and no penalty leave X'X with a zero pivot.
	x := [][]float64{{1, 0}, {2, 0}, {3, 0}}
	y := []float64{1, 2, 3}

	_, err := ridge(x, y, []float64{0, 0})
	assert.ErrorIs(t, err, errSingular)

	_, err = ridge(nil, nil, nil)
	assert.ErrorIs(t, err, errSingular)
}

func TestDot(t *testing.T) {
	assert.Equal(t, 32.0, dot([]float64{1, 2, 3}, []float64{4, 5, 6}))
}
