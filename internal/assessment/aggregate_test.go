package assessment

import (
	"strings"
	"testing"

	"interview-backend/internal/evaluator"
	"interview-backend/internal/identity"
	"interview-backend/internal/quality"
	"interview-backend/internal/transcribe"
)

func stateWithScores(content, behavioral float64, faceVerified bool) *State {
	return &State{
		Identity: &identity.Result{
			FaceVerified: faceVerified,
			Similarity:   85,
		},
		Quality: &quality.Result{OverallScore: 75, Passed: true},
		Transcripts: &transcribe.Result{Transcripts: []transcribe.VideoTranscript{
			{Transcript: "answer", Confidence: 0.92},
		}},
		Evaluation: &evaluator.Result{
			QuestionScores:  []evaluator.QuestionScore{{Question: "q", Score: content}},
			BehavioralScore: behavioral,
		},
		StageErrors: map[string]string{},
	}
}

func TestAggregateDegradedEvaluationIsReview(t *testing.T) {
	t.Parallel()

	// Neutral fallback scores never FAIL a candidate: a degraded
	// evaluation means nothing was really measured.
	degraded := stateWithScores(50, 50, true)
	degraded.Evaluation.Degraded = true
	decision := Aggregate(degraded)
	if decision.Decision != DecisionReview {
		t.Errorf("degraded evaluation: Decision = %q, want REVIEW", decision.Decision)
	}
	if !strings.Contains(decision.Recommendation, "incomplete") {
		t.Errorf("degraded evaluation: Recommendation = %q", decision.Recommendation)
	}
}

func TestAggregateWeightedScore(t *testing.T) {
	t.Parallel()

	decision := Aggregate(stateWithScores(80, 60, true))
	// 80*0.70 + 60*0.30 = 74
	if decision.FinalScore != 74 {
		t.Errorf("FinalScore = %v, want 74", decision.FinalScore)
	}
	if decision.Decision != DecisionPass {
		t.Errorf("Decision = %q, want PASS", decision.Decision)
	}
}

func TestAggregateThresholdBoundaries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		score float64
		want  string
	}{
		{name: "pass boundary", score: 65, want: DecisionPass},
		{name: "just below pass", score: 64.9, want: DecisionReview},
		{name: "review boundary", score: 55, want: DecisionReview},
		{name: "just below review", score: 54.9, want: DecisionFail},
		{name: "zero", score: 0, want: DecisionFail},
		{name: "perfect", score: 100, want: DecisionPass},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			// Same score on both components makes the weighted sum equal it.
			decision := Aggregate(stateWithScores(tt.score, tt.score, true))
			if decision.Decision != tt.want {
				t.Errorf("score %v: Decision = %q, want %q", tt.score, decision.Decision, tt.want)
			}
		})
	}
}

func TestAggregateIdentityFailureDowngradesPassOnly(t *testing.T) {
	t.Parallel()

	// PASS becomes REVIEW.
	decision := Aggregate(stateWithScores(90, 90, false))
	if decision.Decision != DecisionReview {
		t.Errorf("passing score with failed identity: Decision = %q, want REVIEW", decision.Decision)
	}
	if !strings.Contains(decision.Recommendation, "Identity verification failed") {
		t.Errorf("Recommendation = %q", decision.Recommendation)
	}

	// FAIL stays FAIL.
	decision = Aggregate(stateWithScores(30, 30, false))
	if decision.Decision != DecisionFail {
		t.Errorf("failing score with failed identity: Decision = %q, want FAIL", decision.Decision)
	}

	// Identity failure never upgrades anything.
	if got := Aggregate(stateWithScores(60, 60, false)); got.Decision != DecisionReview {
		t.Errorf("review score with failed identity: Decision = %q, want REVIEW", got.Decision)
	}
}

func TestAggregateNameMismatchCountsAsIdentityFailure(t *testing.T) {
	t.Parallel()

	state := stateWithScores(90, 90, true)
	no := false
	state.Identity.NameMatched = &no

	decision := Aggregate(state)
	if decision.Decision != DecisionReview {
		t.Errorf("Decision = %q, want REVIEW on name mismatch", decision.Decision)
	}
	if !containsFlag(decision.RedFlags, "IDENTITY_VERIFICATION_FAILED") {
		t.Errorf("RedFlags = %v, missing IDENTITY_VERIFICATION_FAILED", decision.RedFlags)
	}
}

func TestAggregateMissingEvaluationIsReview(t *testing.T) {
	t.Parallel()

	state := stateWithScores(90, 90, true)
	state.Evaluation = nil

	decision := Aggregate(state)
	if decision.Decision != DecisionReview {
		t.Errorf("Decision = %q, want REVIEW for incomplete assessment", decision.Decision)
	}
	if !strings.Contains(decision.Recommendation, "incomplete") {
		t.Errorf("Recommendation = %q", decision.Recommendation)
	}

	if got := Aggregate(nil); got.Decision != DecisionReview {
		t.Errorf("nil state: Decision = %q, want REVIEW", got.Decision)
	}
}

func TestAggregateAlwaysProducesDecision(t *testing.T) {
	t.Parallel()

	// Every stage failed.
	state := &State{StageErrors: map[string]string{
		StageIdentity:   "boom",
		StageQuality:    "boom",
		StageTranscribe: "boom",
	}}
	decision := Aggregate(state)
	if decision.Decision != DecisionReview {
		t.Errorf("Decision = %q, want REVIEW", decision.Decision)
	}
	if decision.ComponentScores == nil {
		t.Error("ComponentScores missing")
	}
}

func TestAggregateRedFlags(t *testing.T) {
	t.Parallel()

	state := stateWithScores(30, 40, false)
	state.Identity.Similarity = 40
	state.Quality.OverallScore = 35
	state.Quality.Videos = []quality.VideoReport{{FaceVisibility: 0.33}}
	state.Transcripts.Transcripts[0].Confidence = 0.5

	decision := Aggregate(state)
	for _, want := range []string{
		"IDENTITY_VERIFICATION_FAILED",
		"FACE_VERIFICATION_FAILED",
		"POOR_VIDEO_QUALITY",
		"POOR_FACE_VISIBILITY",
		"INSUFFICIENT_RELEVANT_RESPONSES",
		"SIGNIFICANT_COMMUNICATION_CONCERNS",
	} {
		if !containsFlag(decision.RedFlags, want) {
			t.Errorf("RedFlags = %v, missing %q", decision.RedFlags, want)
		}
	}

	// Flags are deduplicated.
	seen := map[string]int{}
	for _, flag := range decision.RedFlags {
		seen[flag]++
		if seen[flag] > 1 {
			t.Errorf("duplicate red flag %q", flag)
		}
	}
}

func TestAggregateStrengthsForGoodRun(t *testing.T) {
	t.Parallel()

	decision := Aggregate(stateWithScores(85, 92, true))
	if len(decision.Strengths) == 0 {
		t.Fatal("no strengths for a strong candidate")
	}
	if len(decision.RedFlags) != 0 {
		t.Errorf("RedFlags = %v, want none", decision.RedFlags)
	}
	joined := strings.Join(decision.Concerns, "|")
	if !strings.Contains(joined, "No major concerns") {
		t.Errorf("Concerns = %v, want the no-concerns placeholder", decision.Concerns)
	}
}

func containsFlag(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}
