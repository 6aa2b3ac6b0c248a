package assessment

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"interview-backend/internal/discovery"
	"interview-backend/internal/shared/server/respond"
)

var errTestDownload = errors.New("connection reset")

func newTestRouter(t *testing.T, f *pipelineFixture) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	handler := NewHandler(f.pipeline(), discovery.NewFinder(f.store))
	handler.RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func postAssessment(t *testing.T, engine *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assessments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestRunAssessmentEndpoint(t *testing.T) {
	f := newFixture(t, "cand-h1")
	engine := newTestRouter(t, f)

	rec := postAssessment(t, engine, `{"candidate_id":"cand-h1","display_name":"Priya Sharma"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var report Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.CandidateID != "cand-h1" {
		t.Errorf("CandidateID = %q", report.CandidateID)
	}
	if report.Decision.Decision != DecisionPass {
		t.Errorf("Decision = %q, want PASS", report.Decision.Decision)
	}
	if report.Cleanup == nil || !report.Cleanup.Verified {
		t.Errorf("Cleanup = %+v, want verified", report.Cleanup)
	}
}

func TestRunAssessmentRejectsBadRequests(t *testing.T) {
	f := newFixture(t, "cand-h2")
	engine := newTestRouter(t, f)

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ``},
		{"missing candidate_id", `{"display_name":"x"}`},
		{"blank candidate_id", `{"candidate_id":"   "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postAssessment(t, engine, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			var resp respond.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if resp.Error.Code != "invalid_request" {
				t.Errorf("code = %q", resp.Error.Code)
			}
		})
	}
}

func TestRunAssessmentMissingAssets(t *testing.T) {
	f := newFixture(t, "cand-h3")
	delete(f.store.objects, "cand-h3/documents/gov_id/gov_id.jpg")
	engine := newTestRouter(t, f)

	rec := postAssessment(t, engine, `{"candidate_id":"cand-h3"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp respond.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if resp.Error.Code != "missing_assets" {
		t.Errorf("code = %q", resp.Error.Code)
	}
	if !strings.Contains(rec.Body.String(), "gov_id") {
		t.Errorf("body does not name the missing asset: %s", rec.Body.String())
	}
}

func TestRunAssessmentDownloadFailure(t *testing.T) {
	f := newFixture(t, "cand-h4")
	f.store.failKeys["cand-h4/interview_videos/video_2.webm"] = errTestDownload
	engine := newTestRouter(t, f)

	rec := postAssessment(t, engine, `{"candidate_id":"cand-h4"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp respond.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if resp.Error.Code != "asset_fetch_failed" {
		t.Errorf("code = %q", resp.Error.Code)
	}
}

func TestListFilesEndpoint(t *testing.T) {
	f := newFixture(t, "cand-h5")
	engine := newTestRouter(t, f)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/assessments/files/cand-h5", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		CandidateID  string   `json:"candidate_id"`
		ProfileImage string   `json:"profile_image"`
		GovID        string   `json:"gov_id"`
		Videos       []string `json:"videos"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ProfileImage != "cand-h5/profile_images/headshot.jpg" {
		t.Errorf("ProfileImage = %q", resp.ProfileImage)
	}
	if len(resp.Videos) != 6 {
		t.Errorf("videos = %d, want 6", len(resp.Videos))
	}
}

func TestListFilesUnknownCandidate(t *testing.T) {
	f := newFixture(t, "cand-h6")
	engine := newTestRouter(t, f)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/assessments/files/nobody", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}
