package indicator

// MACD returns the convergence/divergence line (EMA(fast) - EMA(slow)) and
// its signal line (EMA of the line over the signal span). Both are defined
// from position 0.
func MACD(values []float64, fast, slow, signal int) (line, signalLine []float64) {
	emaFast := EMA(values, fast)
	emaSlow := EMA(values, slow)

	line = make([]float64, len(values))
	for i := range values {
		line[i] = emaFast[i] - emaSlow[i]
	}
	return line, EMA(line, signal)
}
