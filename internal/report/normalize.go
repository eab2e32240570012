package report

import "math"

// NormalizePercent maps a raw service score to a canonical integer percentage
// in [0,100]. The service is inconsistent about scale: some fields arrive on
// 0..1, others on 0..100. Values above 1 are assumed to already be
// percentages; values at or below 1 are assumed fractional and scaled up.
// A true fractional 1.0 is therefore indistinguishable from 1% — that
// ambiguity is upstream and is deliberately not second-guessed here.
func NormalizePercent(n float64) int {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	if n > 1 {
		return clampInt(int(math.Round(n)), 0, 100)
	}
	return clampInt(int(math.Round(n*100)), 0, 100)
}

// NormalizePercentPtr treats a missing score as 0.
func NormalizePercentPtr(n *float64) int {
	if n == nil {
		return 0
	}
	return NormalizePercent(*n)
}

// ClampConfidence bounds a confidence value to [0,100]. Unlike the score
// fields, confidence is always reported on a 0..100 scale, so no rescaling
// happens — only clamping.
func ClampConfidence(c float64) float64 {
	if math.IsNaN(c) {
		return 0
	}
	return math.Min(100, math.Max(0, c))
}

// RoundConfidence is the rounded integer form used in summaries.
func RoundConfidence(c float64) int {
	return int(math.Round(ClampConfidence(c)))
}

func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
