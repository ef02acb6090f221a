package indicator

// EWM applies exponential smoothing with factor alpha:
//
//	s[i] = s[i-1] + alpha*(x[i]-s[i-1])
//
// The recurrence is seeded with the first defined input, not a windowed
// average, so there is no warm-up gap after it. Leading NaN inputs stay NaN;
// a NaN after the seed carries the previous smoothed value forward.
func EWM(values []float64, alpha float64) []float64 {
	out := undefined(len(values))
	seeded := false
	var s float64
	for i, x := range values {
		if !IsDefined(x) {
			if seeded {
				out[i] = s
			}
			continue
		}
		if !seeded {
			s = x
			seeded = true
		} else {
			s += alpha * (x - s)
		}
		out[i] = s
	}
	return out
}

// EMA returns the exponential moving average for the given span,
// using alpha = 2/(span+1). EMA[0] equals values[0].
func EMA(values []float64, span int) []float64 {
	if span <= 0 {
		return undefined(len(values))
	}
	return EWM(values, 2.0/float64(span+1))
}
