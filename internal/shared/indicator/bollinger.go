package indicator

import "math"

// RollingStd returns the sample standard deviation (n-1 denominator) over a
// trailing window of period values. The first period-1 positions are undefined.
func RollingStd(values []float64, period int) []float64 {
	out := undefined(len(values))
	if period < 2 {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		w := values[i-period+1 : i+1]
		m := mean(w)
		var ss float64
		for _, v := range w {
			ss += (v - m) * (v - m)
		}
		out[i] = math.Sqrt(ss / float64(period-1))
	}
	return out
}

// Bands holds Bollinger band series.
type Bands struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// Bollinger returns bands at k sample standard deviations around the
// period SMA. Undefined wherever the SMA is undefined.
func Bollinger(values []float64, period int, k float64) Bands {
	middle := SMA(values, period)
	std := RollingStd(values, period)

	b := Bands{
		Upper:  undefined(len(values)),
		Middle: middle,
		Lower:  undefined(len(values)),
	}
	for i := range values {
		if !IsDefined(middle[i]) || !IsDefined(std[i]) {
			continue
		}
		b.Upper[i] = middle[i] + k*std[i]
		b.Lower[i] = middle[i] - k*std[i]
	}
	return b
}
