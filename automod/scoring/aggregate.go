package scoring

// Label name to score. Scores are expected in the range [0.0, 1.0], but nothing enforces that for raw classifier output.
type ScoreMap map[string]float64

// Combines raw classifier output in to per-label weighted scores and a single composite score.
//
// Each label's raw score is multiplied by its positive weight (zero if the label has no weight). Then, for every negatively-weighted label which is present in the raw output with a non-zero score, the weighted score is multiplicatively suppressed by `1 - raw[other] * weight`.
//
// The composite is the arithmetic mean of the weighted scores which are strictly positive, or 0.0 if there are none. Pure function; inputs are not modified.
func Aggregate(raw, positive, negative ScoreMap) (ScoreMap, float64) {
	weighted := make(ScoreMap, len(raw))
	for label, score := range raw {
		val := score * positive[label]
		for other, w := range negative {
			if rs := raw[other]; rs > 0 {
				val *= 1 - rs*w
			}
		}
		weighted[label] = val
	}

	var sum float64
	var n int
	for _, val := range weighted {
		if val > 0 {
			sum += val
			n++
		}
	}
	if n == 0 {
		return weighted, 0.0
	}
	return weighted, sum / float64(n)
}

// Helper which converts a composite score to an integer percentage (rounded half away from zero), for threshold comparisons and display.
func Percent(composite float64) int {
	p := composite * 100
	if p < 0 {
		return int(p - 0.5)
	}
	return int(p + 0.5)
}
