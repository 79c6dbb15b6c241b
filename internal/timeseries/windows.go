// Package timeseries turns a flat sequence into fixed-length sliding windows
// paired with the value that follows each window.
package timeseries

// Windows returns, for every i in [0, len(seq)-length), the window
// seq[i:i+length] and its label seq[i+length]. A length that is not positive
// or not shorter than the sequence yields no windows.
func Windows(seq []float64, length int) ([][]float64, []float64) {
	if length <= 0 || length >= len(seq) {
		return nil, nil
	}

	n := len(seq) - length
	inputs := make([][]float64, n)
	labels := make([]float64, n)
	for i := 0; i < n; i++ {
		window := make([]float64, length)
		copy(window, seq[i:i+length])
		inputs[i] = window
		labels[i] = seq[i+length]
	}
	return inputs, labels
}

// LastWindow returns the most recent window Windows would produce. The final
// sample of seq is that window's label, so it is not part of the window.
func LastWindow(seq []float64, length int) ([]float64, bool) {
	if length <= 0 || length >= len(seq) {
		return nil, false
	}

	start := len(seq) - length - 1
	window := make([]float64, length)
	copy(window, seq[start:start+length])
	return window, true
}
