package evaluator

import "context"

// Answer pairs an interview question with the candidate's transcribed
// response.
type Answer struct {
	Question   string
	Transcript string
}

// Input is everything the evaluator needs for one candidate.
type Input struct {
	CandidateID string
	Role        string
	Answers     []Answer
}

// QuestionScore is the evaluation of a single answer.
type QuestionScore struct {
	Question string  `json:"question"`
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// Result is the full evaluation of a candidate's interview.
type Result struct {
	QuestionScores    []QuestionScore `json:"question_scores"`
	BehavioralScore   float64         `json:"behavioral_score"`
	BehavioralSummary string          `json:"behavioral_summary"`
	// Degraded is set when the model output could not be parsed and
	// neutral scores were substituted.
	Degraded bool `json:"degraded,omitempty"`
}

// ContentScore averages the per-question scores. An empty result scores
// zero.
func (r Result) ContentScore() float64 {
	if len(r.QuestionScores) == 0 {
		return 0
	}
	var sum float64
	for _, qs := range r.QuestionScores {
		sum += qs.Score
	}
	return sum / float64(len(r.QuestionScores))
}

// Client evaluates interview answers. Implementations issue a single
// model call covering every answer plus the behavioral assessment.
type Client interface {
	Evaluate(ctx context.Context, input Input) (Result, error)
}
