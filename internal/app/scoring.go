package app

import "math"

// normRating maps a 1..5 rating onto [0,1], clamping out-of-range input.
func normRating(r float64) float64 {
	if r < 1 {
		r = 1
	}
	if r > 5 {
		r = 5
	}
	return (r - 1) / 4
}

// applyEMA folds a normalized rating into the running affinity of each
// token. First sighting seeds the affinity with the value itself; after
// that accumulated history dominates as alpha grows.
func applyEMA(affinity map[string]float64, tokens []string, alpha, val float64) {
	for _, token := range tokens {
		if prev, ok := affinity[token]; ok {
			affinity[token] = alpha*prev + (1-alpha)*val
		} else {
			affinity[token] = val
		}
	}
}

// jaccard computes |A∩B| / |A∪B| over two token slices. Two empty sets
// score 0, not NaN.
func jaccard(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, tok := range a {
		setA[tok] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, tok := range b {
		setB[tok] = struct{}{}
	}
	inter := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// minMaxNormalize rescales values onto [0,1] across the slice. A constant
// slice normalizes to all zeros.
func minMaxNormalize(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	out := make([]float64, len(values))
	if max == min {
		return out
	}
	for i, v := range values {
		out[i] = (v - min) / (max - min)
	}
	return out
}

// ratingSignal is popularity-adjusted quality: average rating damped by
// the log of how many ratings back it.
func ratingSignal(avg float64, count int) float64 {
	return avg * math.Log(1+float64(count))
}

// tokensAbove returns the tokens whose affinity exceeds the floor.
func tokensAbove(affinity map[string]float64, floor float64) []string {
	out := make([]string, 0, len(affinity))
	for token, v := range affinity {
		if v > floor {
			out = append(out, token)
		}
	}
	return out
}
