package assessment

import (
	"fmt"
	"math"
)

// Score weights and decision thresholds. Identity and quality act as
// gatekeepers only and carry no weight in the final score.
const (
	contentWeight    = 0.70
	behavioralWeight = 0.30

	passThreshold   = 65.0
	reviewThreshold = 55.0
)

// Aggregate folds the stage results into a final decision. It always
// produces a decision: a run whose evaluation never completed, or
// completed only with neutral fallback scores, comes out as REVIEW,
// never PASS or FAIL.
func Aggregate(state *State) Decision {
	if state == nil || state.Evaluation == nil || state.Evaluation.Degraded {
		return incompleteDecision()
	}

	contentScore := state.Evaluation.ContentScore()
	behavioralScore := state.Evaluation.BehavioralScore
	finalScore := contentScore*contentWeight + behavioralScore*behavioralWeight

	components := map[string]float64{
		"identity":      0,
		"quality":       0,
		"content":       round1(contentScore),
		"behavioral":    round1(behavioralScore),
		"transcription": 0,
	}
	if state.Identity != nil {
		components["identity"] = round1(state.Identity.Similarity)
	}
	if state.Quality != nil {
		components["quality"] = round1(state.Quality.OverallScore)
	}
	if state.Transcripts != nil {
		components["transcription"] = round1(avgTranscriptConfidence(state) * 100)
	}

	decision, recommendation := decide(finalScore)

	// Identity failure downgrades PASS to REVIEW. It never upgrades and
	// never turns a decision into FAIL on its own.
	verified := identityVerified(state)
	if !verified {
		if decision == DecisionPass {
			decision = DecisionReview
		}
		if decision == DecisionReview {
			recommendation = "MANUAL REVIEW REQUIRED - Identity verification failed, requires human review"
		}
	}

	out := Decision{
		Decision:        decision,
		FinalScore:      round1(finalScore),
		ComponentScores: components,
		Recommendation:  recommendation,
	}
	out.Strengths, out.Concerns, out.RedFlags = annotate(state, components, verified)
	return out
}

func decide(finalScore float64) (string, string) {
	switch {
	case finalScore >= passThreshold:
		return DecisionPass, "PROCEED TO NEXT ROUND - Shows potential and positive intent"
	case finalScore >= reviewThreshold:
		return DecisionReview, "MANUAL REVIEW REQUIRED - Borderline but salvageable"
	default:
		return DecisionFail, "REJECT - Significant concerns or poor performance"
	}
}

// identityVerified reports whether every configured identity check
// passed. A run whose identity stage failed outright counts as not
// verified.
func identityVerified(state *State) bool {
	if state.Identity == nil {
		return false
	}
	if !state.Identity.FaceVerified {
		return false
	}
	if state.Identity.NameMatched != nil && !*state.Identity.NameMatched {
		return false
	}
	return true
}

func annotate(state *State, components map[string]float64, verified bool) (strengths, concerns, redFlags []string) {
	// Identity
	switch {
	case !verified:
		redFlags = append(redFlags, "IDENTITY_VERIFICATION_FAILED")
		if state.Identity == nil || !state.Identity.FaceVerified {
			concerns = append(concerns, "Face verification failed across video samples")
			redFlags = append(redFlags, "FACE_VERIFICATION_FAILED")
		}
	case components["identity"] >= 80:
		strengths = append(strengths, fmt.Sprintf("Strong identity verification: Face verified across videos (%.1f%% confidence)", components["identity"]))
	case components["identity"] < 60:
		concerns = append(concerns, "Low identity confidence")
		redFlags = append(redFlags, "LOW_SIMILARITY_SCORE")
	}

	// Quality
	if components["quality"] < 50 {
		concerns = append(concerns, "Poor video quality detected")
		redFlags = append(redFlags, "POOR_VIDEO_QUALITY")
	}
	if state.Quality != nil {
		for _, v := range state.Quality.Videos {
			if v.FaceVisibility*100 < 50 {
				redFlags = append(redFlags, "POOR_FACE_VISIBILITY")
				concerns = append(concerns, "Face was not clearly visible in the videos")
				break
			}
		}
	}

	// Content
	switch {
	case components["content"] >= 80:
		strengths = append(strengths, "Excellent responses showing strong understanding and relevant experience")
	case components["content"] >= 70:
		strengths = append(strengths, "Good responses demonstrating motivation and relevant background")
	case components["content"] >= 65:
		strengths = append(strengths, "Solid responses showing genuine interest and basic qualifications")
	case components["content"] >= 55:
		strengths = append(strengths, "Shows potential with room for growth")
	case components["content"] < 50:
		concerns = append(concerns, "Responses could be more detailed and focused")
	}
	if components["content"] < 40 {
		redFlags = append(redFlags, "INSUFFICIENT_RELEVANT_RESPONSES")
	}

	// Behavioral
	switch {
	case components["behavioral"] >= 90:
		strengths = append(strengths, "Excellent communication skills and high engagement")
	case components["behavioral"] >= 80:
		strengths = append(strengths, "Good engagement and willingness to participate")
	case components["behavioral"] >= 75:
		strengths = append(strengths, "Shows adequate communication and participation")
	case components["behavioral"] < 70:
		concerns = append(concerns, "Communication could be clearer, but shows effort")
	}
	if components["behavioral"] < 50 {
		redFlags = append(redFlags, "SIGNIFICANT_COMMUNICATION_CONCERNS")
	}

	// Transcription
	switch {
	case components["transcription"] >= 90:
		strengths = append(strengths, fmt.Sprintf("High-quality audio leading to accurate transcription (%.0f%% confidence)", components["transcription"]))
	case components["transcription"] < 70:
		concerns = append(concerns, "Poor audio quality impacting transcription accuracy")
	}

	if len(concerns) == 0 {
		concerns = append(concerns, "No major concerns identified")
	}
	return strengths, concerns, dedupe(redFlags)
}

func incompleteDecision() Decision {
	return Decision{
		Decision:   DecisionReview,
		FinalScore: 0,
		ComponentScores: map[string]float64{
			"identity":      0,
			"quality":       0,
			"content":       0,
			"behavioral":    0,
			"transcription": 0,
		},
		Recommendation: "MANUAL REVIEW - Assessment incomplete",
		Concerns:       []string{"Assessment processing failed"},
		RedFlags:       []string{},
	}
}

func avgTranscriptConfidence(state *State) float64 {
	if state.Transcripts == nil || len(state.Transcripts.Transcripts) == 0 {
		return 0
	}
	var sum float64
	var n int
	for _, t := range state.Transcripts.Transcripts {
		if t.Failed {
			continue
		}
		sum += t.Confidence
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
