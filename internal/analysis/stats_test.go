package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMannWhitneyU_DisjointSamples(t *testing.T) {
	// Fully ordered disjoint sets: U is 0 (or 9 with the groups swapped) and
	// the exact two-sided p-value is 2/20.
	res, err := MannWhitneyU([]float64{1, 2, 3}, []float64{4, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Statistic)
	assert.InDelta(t, 0.1, res.PValue, 1e-9)

	swapped, err := MannWhitneyU([]float64{4, 5, 6}, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 9.0, swapped.Statistic)
	assert.InDelta(t, 0.1, swapped.PValue, 1e-9)
}

func TestMannWhitneyU_EmptySample(t *testing.T) {
	_, err := MannWhitneyU(nil, []float64{1, 2})
	assert.ErrorIs(t, err, ErrTooFewSamples)
}

func TestKruskalWallis_TwoGroups(t *testing.T) {
	res, err := KruskalWallis([]float64{1, 2, 3}, []float64{4, 5, 6})
	require.NoError(t, err)
	// H for rank sums 6 and 15 over N=6.
	assert.InDelta(t, 3.8571, res.Statistic, 1e-3)
	assert.InDelta(t, 0.0495, res.PValue, 1e-3)
}

func TestKruskalWallis_IdenticalGroups(t *testing.T) {
	res, err := KruskalWallis([]float64{1, 2, 3}, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, res.Statistic, 1e-9)
	assert.InDelta(t, 1.0, res.PValue, 1e-9)
}

func TestCliffsDelta(t *testing.T) {
	assert.Equal(t, 0.0, CliffsDelta([]float64{1, 2, 3}, []float64{1, 2, 3}))
	assert.Equal(t, 1.0, CliffsDelta([]float64{4, 5, 6}, []float64{1, 2, 3}))
	assert.Equal(t, -1.0, CliffsDelta([]float64{1, 2, 3}, []float64{4, 5, 6}))
	// Half the pairs greater, half less.
	assert.InDelta(t, 0.0, CliffsDelta([]float64{1, 4}, []float64{2, 3}), 1e-9)
}

func TestSpearman_Monotonic(t *testing.T) {
	rho, err := Spearman([]float64{1, 2, 3, 4}, []float64{10, 20, 300, 4000})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, rho, 1e-9)

	rho, err = Spearman([]float64{1, 2, 3, 4}, []float64{9, 7, 5, 3})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, rho, 1e-9)
}

func TestSpearmanByReviewer_IntersectsKeys(t *testing.T) {
	a := Aggregate{"alice": 1, "bob": 2, "carol": 3, "dave": 4}
	b := Aggregate{"alice": 10, "bob": 20, "carol": 30, "erin": 99}

	rho, n, err := SpearmanByReviewer(a, b)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.InDelta(t, 1.0, rho, 1e-9)
}

func TestSpearmanByReviewer_TooFewShared(t *testing.T) {
	a := Aggregate{"alice": 1, "bob": 2}
	b := Aggregate{"alice": 10}

	_, n, err := SpearmanByReviewer(a, b)
	assert.ErrorIs(t, err, ErrTooFewSamples)
	assert.Equal(t, 1, n)
}

func TestRankWithTies(t *testing.T) {
	ranks := rankWithTies([]float64{10, 20, 20, 30})
	assert.Equal(t, []float64{1, 2.5, 2.5, 4}, ranks)
}

func TestShapiroWilk_UniformRampIsPlausiblyNormalish(t *testing.T) {
	x := make([]float64, 20)
	for i := range x {
		x[i] = float64(i + 1)
	}

	res, err := ShapiroWilk(x)
	require.NoError(t, err)
	assert.Greater(t, res.Statistic, 0.9)
	assert.LessOrEqual(t, res.Statistic, 1.0)
	assert.Greater(t, res.PValue, 0.01)
}

func TestShapiroWilk_ExtremeOutlierRejectsNormality(t *testing.T) {
	x := []float64{1, 1.1, 1.2, 1.3, 1.4, 1.5, 1.6, 1.7, 1.8, 1.9, 1000}

	res, err := ShapiroWilk(x)
	require.NoError(t, err)
	assert.Less(t, res.PValue, 0.05)
}

func TestShapiroWilk_DegenerateInputs(t *testing.T) {
	_, err := ShapiroWilk([]float64{1, 2})
	assert.ErrorIs(t, err, ErrTooFewSamples)

	_, err = ShapiroWilk([]float64{5, 5, 5, 5})
	assert.Error(t, err)
}
