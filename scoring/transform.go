package scoring

import "math"

// LowestScore is the floor applied to log-domain scores.
const LowestScore float32 = -100

// TransformScore maps a probability onto the log domain, floored at
// LowestScore. Zero, negative and NaN inputs map to LowestScore.
func TransformScore(p float32) float32 {
	if !(p > 0) {
		return LowestScore
	}
	v := float32(math.Log(float64(p)))
	if v < LowestScore {
		return LowestScore
	}
	return v
}

// TransformScores applies TransformScore to every element of src, writing
// into dst. dst and src may alias.
func TransformScores(dst, src []float32) {
	for i, p := range src {
		dst[i] = TransformScore(p)
	}
}
