package utils

import "math"

// FiniteOr returns v, or fallback when v is NaN or infinite. encoding/json
// refuses non-finite floats.
func FiniteOr(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

// FiniteSlice copies vs replacing non-finite entries with fallback. A nil
// input yields an empty, non-nil slice so it encodes as [].
func FiniteSlice(vs []float64, fallback float64) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = FiniteOr(v, fallback)
	}
	return out
}

// Mean of vs; 0 for an empty slice.
func Mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

// RowMeans averages each row of a row-major matrix.
func RowMeans(m [][]float64) []float64 {
	out := make([]float64, len(m))
	for i, row := range m {
		out[i] = Mean(row)
	}
	return out
}
