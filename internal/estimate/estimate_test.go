package estimate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

const tolerance = 1e-3

func TestSearchSpace(t *testing.T) {
	assert.Equal(t, 1.0, SearchSpace(1))
	assert.Equal(t, 2.0, SearchSpace(2))
	assert.Equal(t, 4.0, SearchSpace(3))
	assert.Equal(t, 524288.0, SearchSpace(20))
	for bits := 1; bits <= 63; bits++ {
		assert.Equal(t, math.Pow(2, float64(bits-1)), SearchSpace(bits), "bits=%d", bits)
	}
}

func TestSystematic(t *testing.T) {
	expected, worst := Systematic(524288, 16, 30)
	assert.Equal(t, 491520.0, expected)
	assert.Equal(t, 983040.0, worst)
	assert.Equal(t, 2*expected, worst)
}

func TestSystematicFloorsAtOneDerivation(t *testing.T) {
	for bits := 1; bits <= 5; bits++ {
		_, worst := Systematic(SearchSpace(bits), 16, 30)
		assert.Equal(t, 30.0, worst, "bits=%d", bits)
	}
	_, worst := Systematic(SearchSpace(6), 16, 30)
	assert.Equal(t, 60.0, worst)
	_, worst = Systematic(SearchSpace(7), 16, 30)
	assert.Equal(t, 120.0, worst)
}

func TestRandom(t *testing.T) {
	expected, p99, p999 := Random(524288, 16, 30)
	assert.Equal(t, 983040.0, expected)
	assert.InDelta(t, 4.605, p99/expected, tolerance)
	assert.InDelta(t, 6.908, p999/expected, tolerance)

	expected, _, _ = Random(SearchSpace(20), 2048, 30)
	assert.Equal(t, 7680.0, expected)
}

func TestPercentileMultiplier(t *testing.T) {
	assert.InDelta(t, 4.605, PercentileMultiplier(0.99), tolerance)
	assert.InDelta(t, 6.908, PercentileMultiplier(0.999), tolerance)
	assert.InDelta(t, math.Ln2, PercentileMultiplier(0.5), 1e-12)
	for _, p := range []float64{0.1, 0.5, 0.9, 0.95, 0.99, 0.9999} {
		assert.InDelta(t, -math.Log(1-p), PercentileMultiplier(p), 1e-9, "p=%v", p)
	}
}

func TestForBitsInvariants(t *testing.T) {
	for bits := 1; bits <= 63; bits++ {
		for _, threads := range []int{1, 2, 16, 2048} {
			r := ForBits(bits, threads, 0.75)
			assert.Greater(t, r.Random99thSecs, r.RandomExpectedSecs)
			assert.Greater(t, r.Random999thSecs, r.Random99thSecs)
			assert.GreaterOrEqual(t, r.SystematicWorstSecs, r.SystematicExpectedSecs)
			if SearchSpace(bits) < float64(2*threads) {
				// Both figures sit on the one-derivation floor.
				continue
			}
			assert.InEpsilon(t, 2*r.SystematicExpectedSecs, r.SystematicWorstSecs, tolerance,
				"bits=%d threads=%d", bits, threads)
			assert.InEpsilon(t, r.SystematicWorstSecs, r.RandomExpectedSecs, tolerance,
				"bits=%d threads=%d", bits, threads)
		}
	}
}

func TestForBits20(t *testing.T) {
	r := ForBits(20, 16, 30)
	assert.Equal(t, 491520.0, r.SystematicExpectedSecs)
	assert.Equal(t, 983040.0, r.SystematicWorstSecs)
	assert.Equal(t, 983040.0, r.RandomExpectedSecs)
	assert.Equal(t, r.SystematicWorstSecs, r.RandomExpectedSecs)
	assert.Equal(t, "11d 9h", Pretty(r.SystematicWorstSecs))
	assert.Equal(t, "5d 17h", Pretty(r.SystematicExpectedSecs))
}

func TestDoublingThreadsHalvesTimes(t *testing.T) {
	for _, threads := range []int{1, 2, 8, 64} {
		one := ForBits(24, threads, 30)
		two := ForBits(24, 2*threads, 30)
		assert.InEpsilon(t, one.SystematicExpectedSecs, 2*two.SystematicExpectedSecs, tolerance)
		assert.InEpsilon(t, one.SystematicWorstSecs, 2*two.SystematicWorstSecs, tolerance)
		assert.InEpsilon(t, one.RandomExpectedSecs, 2*two.RandomExpectedSecs, tolerance)
		assert.InEpsilon(t, one.Random99thSecs, 2*two.Random99thSecs, tolerance)
		assert.InEpsilon(t, one.Random999thSecs, 2*two.Random999thSecs, tolerance)
	}

	one := ForBits(20, 1, 30)
	sixteen := ForBits(20, 16, 30)
	assert.Equal(t, one.SystematicExpectedSecs, 16*sixteen.SystematicExpectedSecs)
	assert.Equal(t, one.SystematicWorstSecs, 16*sixteen.SystematicWorstSecs)
	assert.Equal(t, one.RandomExpectedSecs, 16*sixteen.RandomExpectedSecs)
}

func TestTable(t *testing.T) {
	rows := Table(1, 32, 16, 30)
	assert.Len(t, rows, 32)
	assert.Equal(t, 1, rows[0].Bits)
	assert.Equal(t, 32, rows[31].Bits)
	assert.Equal(t, ForBits(20, 16, 30), rows[19].Result)
	assert.Nil(t, Table(5, 4, 1, 1))
}
