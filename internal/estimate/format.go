package estimate

import (
	"fmt"
	"math"
)

const (
	minute = 60.0
	hour   = 60 * minute
	day    = 24 * hour
	year   = 365 * day
)

var units = []struct {
	size float64
	name string
}{
	{year, "y"},
	{day, "d"},
	{hour, "h"},
	{minute, "min"},
	{1, "s"},
}

// Pretty renders secs as the largest unit it reaches, truncated, followed by
// the rounded remainder in the next smaller unit: "11d 9h", "1min 0s".
// Durations under a minute print whole seconds only. A year is 365 days.
func Pretty(secs float64) string {
	if secs < 0 || math.IsNaN(secs) {
		secs = 0
	}
	if math.IsInf(secs, 1) {
		return "forever"
	}
	for i, u := range units[:len(units)-1] {
		if secs < u.size {
			continue
		}
		whole := math.Floor(secs / u.size)
		next := units[i+1]
		rest := math.Round((secs - whole*u.size) / next.size)
		return fmt.Sprintf("%.0f%s %.0f%s", whole, u.name, rest, next.name)
	}
	return fmt.Sprintf("%.0fs", math.Floor(secs))
}
