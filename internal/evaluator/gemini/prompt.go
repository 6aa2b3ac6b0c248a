package gemini

import (
	"fmt"
	"strings"

	"interview-backend/internal/evaluator"
)

func buildPrompt(input evaluator.Input) string {
	var b strings.Builder

	b.WriteString("You are an experienced technical interviewer assessing a candidate's recorded video interview.\n")
	if input.Role != "" {
		fmt.Fprintf(&b, "The candidate is applying for the role: %s.\n", input.Role)
	}
	b.WriteString("Score each answer from 0 to 100 for relevance, depth and clarity, with one sentence of feedback.\n")
	b.WriteString("Then score the candidate's behavioral presentation (communication, confidence, professionalism) from 0 to 100 across all answers, with a short summary.\n\n")

	for i, ans := range input.Answers {
		fmt.Fprintf(&b, "Question %d: %s\n", i+1, ans.Question)
		transcript := strings.TrimSpace(ans.Transcript)
		if transcript == "" {
			transcript = "(no usable transcript)"
		}
		fmt.Fprintf(&b, "Answer transcript: %s\n\n", transcript)
	}

	b.WriteString("Respond with only a JSON object in this exact shape:\n")
	b.WriteString(`{
  "question_scores": [
    {"question": "...", "score": 0, "feedback": "..."}
  ],
  "behavioral": {"score": 0, "summary": "..."}
}`)
	b.WriteString("\nInclude one entry in question_scores per question, in order.")

	return b.String()
}
