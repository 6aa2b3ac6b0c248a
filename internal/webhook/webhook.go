package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"interview-backend/internal/identity"
	"interview-backend/internal/shared/telemetry"
)

const requestTimeout = 10 * time.Second

// Notifier pushes review-required events to the admin panel. Delivery
// is best effort; a failed webhook never fails an assessment run.
type Notifier struct {
	baseURL    string
	httpClient *http.Client
}

// NewNotifier constructs a Notifier. An empty baseURL disables
// notifications.
func NewNotifier(baseURL string) *Notifier {
	return &Notifier{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// Enabled reports whether a webhook endpoint is configured.
func (n *Notifier) Enabled() bool { return n.baseURL != "" }

type identityFailurePayload struct {
	CandidateID          string          `json:"candidate_id"`
	CandidateName        string          `json:"candidate_name"`
	AssessmentID         string          `json:"assessment_id"`
	IdentityVerification identity.Result `json:"identity_verification"`
	RequiresHumanReview  bool            `json:"requires_human_review"`
	FailureReason        string          `json:"failure_reason"`
}

// SendIdentityFailure notifies the admin panel that identity
// verification failed and a human needs to look. The returned bool
// reports delivery; errors are logged, not propagated.
func (n *Notifier) SendIdentityFailure(ctx context.Context, candidateID, candidateName, assessmentID string, result identity.Result) bool {
	if !n.Enabled() {
		return false
	}
	if assessmentID == "" {
		assessmentID = candidateID
	}

	payload := identityFailurePayload{
		CandidateID:          candidateID,
		CandidateName:        candidateName,
		AssessmentID:         assessmentID,
		IdentityVerification: result,
		RequiresHumanReview:  true,
		FailureReason:        failureReason(result),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		telemetry.Error("webhook.marshal_failed", map[string]any{
			"candidate_id": candidateID,
			"error":        err.Error(),
		})
		return false
	}

	endpoint := n.baseURL + "/api/webhooks/identity-failure"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		telemetry.Error("webhook.request_failed", map[string]any{
			"candidate_id": candidateID,
			"error":        err.Error(),
		})
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		telemetry.Error("webhook.send_failed", map[string]any{
			"candidate_id": candidateID,
			"error":        err.Error(),
		})
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		telemetry.Error("webhook.rejected", map[string]any{
			"candidate_id": candidateID,
			"status":       resp.StatusCode,
		})
		return false
	}

	telemetry.Info("webhook.identity_failure_sent", map[string]any{
		"candidate_id":  candidateID,
		"assessment_id": assessmentID,
	})
	return true
}

func failureReason(result identity.Result) string {
	nameFailed := result.NameMatched != nil && !*result.NameMatched
	switch {
	case nameFailed && !result.FaceVerified:
		return "Both name and face verification failed"
	case nameFailed:
		return "Name on id document did not match candidate"
	case !result.FaceVerified:
		return fmt.Sprintf("Face verification failed (similarity: %.1f%%)", result.Similarity)
	default:
		return "Identity verification confidence below threshold"
	}
}
