package indicator

// RSI returns the relative strength index. Gains and losses are smoothed
// with EWM at alpha = 1/period (center of mass period-1, the exponential
// form of Wilder's smoothing).
//
// Position 0 is undefined because it has no preceding close. A smoothed
// loss of exactly zero saturates the index at 100.
func RSI(values []float64, period int) []float64 {
	n := len(values)
	if n == 0 || period <= 0 {
		return undefined(n)
	}

	gains := undefined(n)
	losses := undefined(n)
	for i := 1; i < n; i++ {
		d := values[i] - values[i-1]
		gains[i], losses[i] = 0, 0
		if d > 0 {
			gains[i] = d
		} else {
			losses[i] = -d
		}
	}

	alpha := 1.0 / float64(period)
	avgGain := EWM(gains, alpha)
	avgLoss := EWM(losses, alpha)

	out := undefined(n)
	for i := 1; i < n; i++ {
		g, l := avgGain[i], avgLoss[i]
		if !IsDefined(g) || !IsDefined(l) {
			continue
		}
		if l == 0 {
			out[i] = 100
			continue
		}
		out[i] = 100 - 100/(1+g/l)
	}
	return out
}
