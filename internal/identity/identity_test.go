package identity

import (
	"math"
	"testing"
)

func TestSimilarityFromDistance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		distance float64
		want     float64
	}{
		{name: "identical", distance: 0, want: 100},
		{name: "at threshold", distance: 0.62, want: 60},
		{name: "half threshold", distance: 0.31, want: 80},
		{name: "max distance", distance: 1.0, want: 0},
		{name: "beyond max", distance: 1.5, want: 0},
		{name: "negative clamps", distance: -0.1, want: 100},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := similarityFromDistance(tt.distance)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("similarityFromDistance(%v) = %v, want %v", tt.distance, got, tt.want)
			}
		})
	}
}

func TestSimilarityIsMonotonicallyDecreasing(t *testing.T) {
	t.Parallel()

	prev := similarityFromDistance(0)
	for d := 0.01; d <= 1.2; d += 0.01 {
		got := similarityFromDistance(d)
		if got > prev {
			t.Fatalf("similarity increased from %v to %v at distance %v", prev, got, d)
		}
		prev = got
	}
}

func TestSimilarityMidpointOfUpperBand(t *testing.T) {
	t.Parallel()

	// Halfway between threshold and 1.0 should score half the band.
	mid := distanceThreshold + (1-distanceThreshold)/2
	got := similarityFromDistance(mid)
	if math.Abs(got-30) > 1e-9 {
		t.Errorf("similarityFromDistance(%v) = %v, want 30", mid, got)
	}
}

func TestNameAppearsIn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		who  string
		text string
		want bool
	}{
		{name: "exact", who: "Priya Sharma", text: "REPUBLIC OF INDIA\nPRIYA SHARMA\nDOB 1994", want: true},
		{name: "case insensitive", who: "priya sharma", text: "Priya Sharma", want: true},
		{name: "partial missing", who: "Priya Sharma", text: "PRIYA VERMA", want: false},
		{name: "initials skipped", who: "Priya R Sharma", text: "PRIYA SHARMA", want: true},
		{name: "empty name", who: "", text: "anything", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := nameAppearsIn(tt.who, tt.text); got != tt.want {
				t.Errorf("nameAppearsIn(%q, %q) = %v, want %v", tt.who, tt.text, got, tt.want)
			}
		})
	}
}
