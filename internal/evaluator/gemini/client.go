package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"interview-backend/internal/evaluator"
	"interview-backend/internal/shared/telemetry"
)

const neutralScore = 50.0

// Client implements evaluator.Client using the Gemini API.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient constructs a Gemini-backed evaluator.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Client{client: client, model: model}, nil
}

// Evaluate scores every answer plus the behavioral dimension in a
// single model call. Unparseable model output degrades to neutral
// scores instead of failing the run.
func (c *Client) Evaluate(ctx context.Context, input evaluator.Input) (evaluator.Result, error) {
	if len(input.Answers) == 0 {
		return evaluator.Result{}, fmt.Errorf("no answers to evaluate")
	}

	temp := float32(0.2)
	config := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: 4096,
	}

	prompt := buildPrompt(input)
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		return evaluator.Result{}, fmt.Errorf("gemini generate: %w", err)
	}
	if resp == nil {
		return evaluator.Result{}, fmt.Errorf("gemini returned empty response")
	}

	result, err := parseResult(resp.Text(), input)
	if err != nil {
		telemetry.Warn("evaluator.parse_failed", map[string]any{
			"candidate_id": input.CandidateID,
			"error":        err.Error(),
		})
		return neutralResult(input), nil
	}
	return result, nil
}

type rawResult struct {
	QuestionScores []struct {
		Question string   `json:"question"`
		Score    *float64 `json:"score"`
		Feedback string   `json:"feedback"`
	} `json:"question_scores"`
	Behavioral struct {
		Score   *float64 `json:"score"`
		Summary string   `json:"summary"`
	} `json:"behavioral"`
}

func parseResult(text string, input evaluator.Input) (evaluator.Result, error) {
	payload := extractJSON(text)
	if payload == "" {
		return evaluator.Result{}, fmt.Errorf("no JSON object in model output")
	}

	var raw rawResult
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return evaluator.Result{}, fmt.Errorf("decode model output: %w", err)
	}
	if len(raw.QuestionScores) == 0 {
		return evaluator.Result{}, fmt.Errorf("model output missing question scores")
	}

	out := evaluator.Result{
		BehavioralScore:   neutralScore,
		BehavioralSummary: raw.Behavioral.Summary,
	}
	if raw.Behavioral.Score != nil {
		out.BehavioralScore = clampScore(*raw.Behavioral.Score)
	}
	for i, qs := range raw.QuestionScores {
		score := neutralScore
		if qs.Score != nil {
			score = clampScore(*qs.Score)
		}
		question := qs.Question
		if question == "" && i < len(input.Answers) {
			question = input.Answers[i].Question
		}
		out.QuestionScores = append(out.QuestionScores, evaluator.QuestionScore{
			Question: question,
			Score:    score,
			Feedback: qs.Feedback,
		})
	}
	return out, nil
}

func neutralResult(input evaluator.Input) evaluator.Result {
	out := evaluator.Result{
		BehavioralScore:   neutralScore,
		BehavioralSummary: "Behavioral assessment unavailable",
		Degraded:          true,
	}
	for _, ans := range input.Answers {
		out.QuestionScores = append(out.QuestionScores, evaluator.QuestionScore{
			Question: ans.Question,
			Score:    neutralScore,
			Feedback: "Evaluation unavailable",
		})
	}
	return out
}

// extractJSON pulls the JSON object out of model output that may be
// wrapped in markdown code fences or surrounding prose.
func extractJSON(text string) string {
	s := strings.TrimSpace(text)
	if idx := strings.Index(s, "```json"); idx != -1 {
		s = s[idx+len("```json"):]
		if end := strings.Index(s, "```"); end != -1 {
			s = s[:end]
		}
	} else if idx := strings.Index(s, "```"); idx != -1 {
		s = s[idx+len("```"):]
		if end := strings.Index(s, "```"); end != -1 {
			s = s[:end]
		}
	}
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return s[start : end+1]
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

var _ evaluator.Client = (*Client)(nil)
