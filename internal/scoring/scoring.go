// Package scoring holds the pure similarity primitives and the weighted
// blend used by the matching engine. Everything here is side-effect free so
// sub-scores can be computed concurrently and tested in isolation.
package scoring

import (
	"math"
	"strings"
)

// Weights is the immutable blend configuration for a final match score.
// Missing signals contribute zero; weights are never renormalized, so
// missing data penalizes the score instead of inflating the remaining
// signals.
type Weights struct {
	PlanSim float64 `yaml:"plan_sim"`
	GeoSim  float64 `yaml:"geo_sim"`
	AgeSim  float64 `yaml:"age_sim"`
}

func DefaultWeights() Weights {
	return Weights{PlanSim: 0.6, GeoSim: 0.2, AgeSim: 0.2}
}

// Breakdown carries every sub-score that went into a final match score.
type Breakdown struct {
	PlanSimScore float64 `json:"planSimScore"`
	GeoSimScore  float64 `json:"geoSimScore"`
	AgeSimScore  float64 `json:"ageSimScore"`
	FinalScore   float64 `json:"finalScore"`
}

// Aggregate blends the three sub-scores into a final score. Callers pass 0
// for any unavailable signal.
func Aggregate(w Weights, planSim, geoSim, ageSim float64) float64 {
	return planSim*w.PlanSim + geoSim*w.GeoSim + ageSim*w.AgeSim
}

const (
	compressSteepness = 10.0
	compressMidpoint  = 0.5
)

// CompressSimilarity pushes a raw cosine similarity through a logistic
// curve centered at 0.5. Mediocre semantic matches get suppressed toward 0
// while strong matches pass through nearly unchanged, so small differences
// in the middle of the raw range stop counting linearly.
func CompressSimilarity(raw float64) float64 {
	return 1.0 / (1.0 + math.Exp(-compressSteepness*(raw-compressMidpoint)))
}

// AgeSimilarity decays exponentially in the squared log-ratio of the two
// ages: 1.0 for equal ages, symmetric under swapping, approaching 0 as the
// ratio diverges. Both ages must be positive; callers guard presence and
// validity before calling.
func AgeSimilarity(age1, age2 int) float64 {
	ratio := float64(age1) / float64(age2)
	ln := math.Log(ratio)
	return math.Exp(-2.0 * ln * ln)
}

// GeoSimilarity is a coarse categorical time-zone heuristic, not a geodesic
// distance: identical identifiers score 1.0, the same top-level region
// (the part before the first '/') scores 0.8, anything else 0.3.
func GeoSimilarity(tz1, tz2 string) float64 {
	if tz1 == tz2 {
		return 1.0
	}
	if tzRegion(tz1) == tzRegion(tz2) {
		return 0.8
	}
	return 0.3
}

func tzRegion(tz string) string {
	if idx := strings.Index(tz, "/"); idx >= 0 {
		return tz[:idx]
	}
	return tz
}

// ActivityConsistencyTarget is the activity-entry count over the trailing
// window that counts as fully consistent.
const ActivityConsistencyTarget = 5

// ActivityConsistency maps an activity-entry count to [0,1]: count divided
// by the target, clamped. Available as a signal but not part of the
// weighted blend.
func ActivityConsistency(count int64) float64 {
	score := float64(count) / float64(ActivityConsistencyTarget)
	if score > 1.0 {
		return 1.0
	}
	if score < 0 {
		return 0
	}
	return score
}
