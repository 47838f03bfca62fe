// Package estimate predicts brute-force completion times from the average
// cost of one derivation.
//
// Systematic search splits the space evenly between threads; a thread finds
// the target halfway through its partition on average and at the very end in
// the worst case. Random search has every thread sample independently, which
// makes the waiting time geometric with success probability 1/space per trial.
package estimate

import "math"

// Confidence levels reported for random search.
const (
	P99  = 0.99
	P999 = 0.999
)

type Result struct {
	SystematicExpectedSecs float64
	SystematicWorstSecs    float64
	RandomExpectedSecs     float64
	Random99thSecs         float64
	Random999thSecs        float64
}

// Row is a Result tagged with the bit length it was computed for.
type Row struct {
	Bits int
	Result
}

// SearchSpace is 2^(bits-1): the top bit of every preimage is fixed.
func SearchSpace(bits int) float64 {
	return math.Ldexp(1, bits-1)
}

// PercentileMultiplier is the factor on the expected time of a geometric
// process below which it completes with probability p: -ln(1-p).
func PercentileMultiplier(p float64) float64 {
	return -math.Log1p(-p)
}

// Systematic returns the expected and worst-case seconds. Both are floored
// at one derivation.
func Systematic(space float64, threads int, avgSecs float64) (expected, worst float64) {
	t := float64(threads)
	expected = math.Max(space/(2*t), 1) * avgSecs
	worst = math.Max(space/t, 1) * avgSecs
	return expected, worst
}

// Random returns the expected seconds and the 99th and 99.9th percentiles.
func Random(space float64, threads int, avgSecs float64) (expected, p99, p999 float64) {
	expected = space / float64(threads) * avgSecs
	return expected, RandomPercentile(space, threads, avgSecs, P99), RandomPercentile(space, threads, avgSecs, P999)
}

// RandomPercentile is the time by which random search finishes with
// probability p.
func RandomPercentile(space float64, threads int, avgSecs, p float64) float64 {
	return space / float64(threads) * avgSecs * PercentileMultiplier(p)
}

func ForBits(bits, threads int, avgSecs float64) Result {
	space := SearchSpace(bits)
	sysExpected, sysWorst := Systematic(space, threads, avgSecs)
	rndExpected, rnd99, rnd999 := Random(space, threads, avgSecs)
	return Result{
		SystematicExpectedSecs: sysExpected,
		SystematicWorstSecs:    sysWorst,
		RandomExpectedSecs:     rndExpected,
		Random99thSecs:         rnd99,
		Random999thSecs:        rnd999,
	}
}

// Table computes one row per bit length in [minBits, maxBits].
func Table(minBits, maxBits, threads int, avgSecs float64) []Row {
	if maxBits < minBits {
		return nil
	}
	rows := make([]Row, 0, maxBits-minBits+1)
	for bits := minBits; bits <= maxBits; bits++ {
		rows = append(rows, Row{Bits: bits, Result: ForBits(bits, threads, avgSecs)})
	}
	return rows
}
