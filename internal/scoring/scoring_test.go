package scoring

import (
	"math"
	"testing"
)

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestCompressSimilarityMidpoint(t *testing.T) {
	if got := CompressSimilarity(0.5); !almostEqual(got, 0.5, 1e-12) {
		t.Fatalf("CompressSimilarity(0.5) = %v, want 0.5", got)
	}
}

func TestCompressSimilarityMonotoneAndBounded(t *testing.T) {
	prev := -1.0
	for x := 0.0; x <= 1.0; x += 0.01 {
		got := CompressSimilarity(x)
		if got <= 0 || got >= 1 {
			t.Fatalf("CompressSimilarity(%v) = %v, out of (0,1)", x, got)
		}
		if got < prev {
			t.Fatalf("CompressSimilarity not monotone at %v: %v < %v", x, got, prev)
		}
		prev = got
	}
	if got := CompressSimilarity(0.0); got > 0.01 {
		t.Fatalf("CompressSimilarity(0) = %v, want near 0", got)
	}
	if got := CompressSimilarity(1.0); got < 0.99 {
		t.Fatalf("CompressSimilarity(1) = %v, want near 1", got)
	}
}

func TestCompressSimilaritySuppressesMediocreMatches(t *testing.T) {
	if got := CompressSimilarity(0.3); got >= 0.3 {
		t.Fatalf("CompressSimilarity(0.3) = %v, want suppressed below raw", got)
	}
	if got := CompressSimilarity(0.8); got <= 0.8 {
		t.Fatalf("CompressSimilarity(0.8) = %v, want boosted above raw", got)
	}
}

func TestAgeSimilarityEqualAges(t *testing.T) {
	for _, age := range []int{18, 30, 75} {
		if got := AgeSimilarity(age, age); !almostEqual(got, 1.0, 1e-12) {
			t.Fatalf("AgeSimilarity(%d, %d) = %v, want 1.0", age, age, got)
		}
	}
}

func TestAgeSimilaritySymmetric(t *testing.T) {
	cases := [][2]int{{20, 30}, {25, 60}, {18, 19}}
	for _, c := range cases {
		ab := AgeSimilarity(c[0], c[1])
		ba := AgeSimilarity(c[1], c[0])
		if !almostEqual(ab, ba, 1e-12) {
			t.Fatalf("AgeSimilarity(%d,%d)=%v != AgeSimilarity(%d,%d)=%v", c[0], c[1], ab, c[1], c[0], ba)
		}
	}
}

func TestAgeSimilarityDecaysWithRatio(t *testing.T) {
	near := AgeSimilarity(30, 33)
	far := AgeSimilarity(30, 90)
	if near <= far {
		t.Fatalf("expected nearer ages to score higher: near=%v far=%v", near, far)
	}
	if far > 0.15 {
		t.Fatalf("AgeSimilarity(30, 90) = %v, want near 0", far)
	}
}

func TestGeoSimilarityTiers(t *testing.T) {
	cases := []struct {
		tz1, tz2 string
		want     float64
	}{
		{"America/New_York", "America/New_York", 1.0},
		{"America/New_York", "America/Chicago", 0.8},
		{"America/New_York", "Europe/Lisbon", 0.3},
		{"Europe/Berlin", "Europe/Paris", 0.8},
		{"Asia/Tokyo", "Australia/Sydney", 0.3},
	}
	for _, c := range cases {
		if got := GeoSimilarity(c.tz1, c.tz2); got != c.want {
			t.Fatalf("GeoSimilarity(%q, %q) = %v, want %v", c.tz1, c.tz2, got, c.want)
		}
	}
}

func TestAggregateWeightedBlend(t *testing.T) {
	got := Aggregate(DefaultWeights(), 0.8, 1.0, 0.5)
	if !almostEqual(got, 0.78, 1e-9) {
		t.Fatalf("Aggregate = %v, want 0.78", got)
	}
}

func TestAggregateMissingSignalsPenalize(t *testing.T) {
	// A missing signal contributes zero; the remaining weights are not
	// renormalized.
	got := Aggregate(DefaultWeights(), 0.8, 0, 0)
	if !almostEqual(got, 0.48, 1e-9) {
		t.Fatalf("Aggregate with missing geo/age = %v, want 0.48", got)
	}
}

func TestAggregateCustomWeights(t *testing.T) {
	w := Weights{PlanSim: 1.0, GeoSim: 0, AgeSim: 0}
	if got := Aggregate(w, 0.7, 1.0, 1.0); !almostEqual(got, 0.7, 1e-12) {
		t.Fatalf("Aggregate with plan-only weights = %v, want 0.7", got)
	}
}

func TestActivityConsistency(t *testing.T) {
	cases := []struct {
		count int64
		want  float64
	}{
		{0, 0},
		{1, 0.2},
		{3, 0.6},
		{5, 1.0},
		{12, 1.0},
	}
	for _, c := range cases {
		if got := ActivityConsistency(c.count); !almostEqual(got, c.want, 1e-12) {
			t.Fatalf("ActivityConsistency(%d) = %v, want %v", c.count, got, c.want)
		}
	}
}
