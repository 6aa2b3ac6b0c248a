package assessment

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"interview-backend/internal/evaluator"
	"interview-backend/internal/shared/telemetry"
)

const evaluatorRetryBaseDelay = 300 * time.Millisecond

// retryingEvaluator retries a single transient evaluator failure before
// giving up.
type retryingEvaluator struct {
	base         evaluator.Client
	assessmentID string
}

func newRetryingEvaluator(base evaluator.Client, assessmentID string) evaluator.Client {
	if base == nil {
		return nil
	}
	return retryingEvaluator{base: base, assessmentID: assessmentID}
}

func (r retryingEvaluator) Evaluate(ctx context.Context, input evaluator.Input) (evaluator.Result, error) {
	result, err := r.base.Evaluate(ctx, input)
	if err == nil || !shouldRetryEvaluation(err) {
		return result, err
	}

	telemetry.Warn("evaluator.retry", map[string]any{
		"assessment_id": r.assessmentID,
		"candidate_id":  input.CandidateID,
		"error":         sanitizeError(err),
	})
	select {
	case <-time.After(evaluatorRetryBaseDelay):
	case <-ctx.Done():
		return evaluator.Result{}, ctx.Err()
	}

	return r.base.Evaluate(ctx, input)
}

func shouldRetryEvaluation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "internal") || strings.Contains(msg, "unavailable") {
		return true
	}
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline") {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}

	return false
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
