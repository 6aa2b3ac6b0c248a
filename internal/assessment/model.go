package assessment

import (
	"interview-backend/internal/evaluator"
	"interview-backend/internal/identity"
	"interview-backend/internal/quality"
	"interview-backend/internal/transcribe"
	"interview-backend/internal/workspace"
)

// Request starts an assessment run for one candidate.
type Request struct {
	CandidateID   string   `json:"candidate_id" binding:"required"`
	CandidateName string   `json:"display_name"`
	Role          string   `json:"role"`
	Questions     []string `json:"questions"`

	// StorageBucket is accepted for caller compatibility; the store is
	// chosen at startup, so the value is recorded but not used to route.
	StorageBucket string `json:"storage_bucket"`
}

// Stage names used in logs, metrics and error reporting.
const (
	StageIdentity   = "identity"
	StageQuality    = "quality"
	StageTranscribe = "transcription"
	StageEvaluate   = "evaluation"
)

// State collects the per-stage results of one run. Each analysis stage
// writes only its own slot, so the three goroutines never contend.
type State struct {
	Identity    *identity.Result
	Quality     *quality.Result
	Transcripts *transcribe.Result
	Evaluation  *evaluator.Result

	// StageErrors records which stages failed and why. A failed stage
	// leaves its slot nil and the rest of the run continues.
	StageErrors map[string]string
}

// Decision values.
const (
	DecisionPass   = "PASS"
	DecisionReview = "REVIEW"
	DecisionFail   = "FAIL"
)

// Decision is the aggregated outcome of a run.
type Decision struct {
	Decision        string             `json:"decision"`
	FinalScore      float64            `json:"final_score"`
	ComponentScores map[string]float64 `json:"component_scores"`
	Recommendation  string             `json:"reasoning"`
	Strengths       []string           `json:"strengths"`
	Concerns        []string           `json:"concerns"`
	RedFlags        []string           `json:"red_flags"`
}

// Report is the full response returned for one assessment run.
type Report struct {
	AssessmentID  string                   `json:"assessment_id"`
	CandidateID   string                   `json:"candidate_id"`
	Decision      Decision                 `json:"final_decision"`
	Identity      *identity.Result         `json:"identity_verification,omitempty"`
	Quality       *quality.Result          `json:"video_quality,omitempty"`
	Transcripts   *transcribe.Result       `json:"transcriptions,omitempty"`
	Evaluation    *evaluator.Result        `json:"content_evaluation,omitempty"`
	StageErrors   map[string]string        `json:"stage_errors,omitempty"`
	Cleanup       *workspace.CleanupReport `json:"cleanup,omitempty"`
	DurationSecs  float64                  `json:"processing_time_seconds"`
}
