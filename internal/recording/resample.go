package recording

import (
	"sort"

	"gonum.org/v1/gonum/interp"
)

// sortByTimestamp reorders timestamps and every channel by time. Rows with
// equal timestamps keep their file order.
func sortByTimestamp(timestamps []float64, channels [][]float64) ([]float64, [][]float64) {
	order := make([]int, len(timestamps))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return timestamps[order[a]] < timestamps[order[b]]
	})

	sorted := make([]float64, len(order))
	for i, j := range order {
		sorted[i] = timestamps[j]
	}
	out := make([][]float64, len(channels))
	for ch, row := range channels {
		out[ch] = make([]float64, len(order))
		for i, j := range order {
			out[ch][i] = row[j]
		}
	}
	return sorted, out
}

// spreadDuplicates returns sorted timestamps with every run of equal values
// spaced evenly across the gap to the next distinct timestamp. The final run
// is spaced by interval. Bluetooth exports stamp whole packets this way.
func spreadDuplicates(timestamps []float64, interval float64) []float64 {
	out := append([]float64(nil), timestamps...)
	for start := 0; start < len(out); {
		end := start + 1
		for end < len(out) && timestamps[end] == timestamps[start] {
			end++
		}
		step := interval
		if end < len(out) {
			step = (timestamps[end] - timestamps[start]) / float64(end-start)
		}
		for i := start + 1; i < end; i++ {
			out[i] = timestamps[start] + float64(i-start)*step
		}
		start = end
	}
	return out
}

// resampleUniform linearly interpolates every channel onto the grid
// t0 + k/rate, k = 0..n-1, where n is the original sample count. Grid points
// past the last timestamp take the last value. timestamps must be strictly
// increasing; PiecewiseLinear.Fit panics otherwise.
func resampleUniform(timestamps []float64, channels [][]float64, rate float64) [][]float64 {
	n := len(timestamps)
	t0 := timestamps[0]
	out := make([][]float64, len(channels))
	for ch, row := range channels {
		var pl interp.PiecewiseLinear
		_ = pl.Fit(timestamps, row)
		out[ch] = make([]float64, n)
		for k := range out[ch] {
			out[ch][k] = pl.Predict(t0 + float64(k)/rate)
		}
	}
	return out
}
