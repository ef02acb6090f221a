// Package indicator implements technical indicators as single-pass
// recurrences over a price series.
//
// Every function returns a slice of the same length as its input.
// Positions where the indicator is not yet defined hold NaN; callers
// convert those to nulls at the serialization boundary.
package indicator

import "math"

// undefined returns a slice of n NaN values.
func undefined(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// IsDefined reports whether v holds a computed value.
func IsDefined(v float64) bool {
	return !math.IsNaN(v)
}
