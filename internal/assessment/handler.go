package assessment

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"interview-backend/internal/discovery"
	"interview-backend/internal/shared/server/respond"
	"interview-backend/internal/shared/util"
)

// Handler exposes assessment runs over HTTP.
type Handler struct {
	pipeline *Pipeline
	finder   *discovery.Finder
}

// NewHandler constructs a Handler.
func NewHandler(pipeline *Pipeline, finder *discovery.Finder) *Handler {
	return &Handler{pipeline: pipeline, finder: finder}
}

// RegisterRoutes mounts the assessment endpoints on the group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/assessments", h.runAssessment)
	rg.GET("/assessments/files/:candidateID", h.listFiles)
}

func (h *Handler) runAssessment(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "candidate_id is required", nil)
		return
	}

	sanitized, err := util.SanitizeCandidateID(req.CandidateID)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "candidate_id is invalid", nil)
		return
	}
	c.Set("candidateId", sanitized)

	report, err := h.pipeline.Run(c.Request.Context(), req)
	if err != nil {
		var missing *discovery.MissingAssetsError
		if errors.As(err, &missing) {
			respond.Error(c, http.StatusBadRequest, "missing_assets", missing.Error(), gin.H{"missing": missing.Missing})
			return
		}
		var asset *AssetError
		if errors.As(err, &asset) {
			respond.Error(c, http.StatusBadGateway, "asset_fetch_failed", asset.Error(), gin.H{"asset": asset.Asset})
			return
		}
		var cleanup *CleanupError
		if errors.As(err, &cleanup) {
			respond.Error(c, http.StatusInternalServerError, "cleanup_failed", "Workspace cleanup could not be verified", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal", "Assessment failed", nil)
		return
	}

	c.Set("assessmentDecision", report.Decision.Decision)
	respond.OK(c, report)
}

// listFiles previews which assets discovery would pick for a candidate,
// useful for debugging upload layouts before starting a run.
func (h *Handler) listFiles(c *gin.Context) {
	candidateID := c.Param("candidateID")
	if _, err := util.SanitizeCandidateID(candidateID); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "candidate id is invalid", nil)
		return
	}
	c.Set("candidateId", candidateID)

	bundle, err := h.finder.Find(c.Request.Context(), candidateID)
	if err != nil {
		var missing *discovery.MissingAssetsError
		if errors.As(err, &missing) {
			respond.Error(c, http.StatusNotFound, "missing_assets", missing.Error(), gin.H{"missing": missing.Missing})
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal", "File discovery failed", nil)
		return
	}

	respond.OK(c, gin.H{
		"candidate_id":  candidateID,
		"profile_image": bundle.ProfileImage,
		"gov_id":        bundle.GovID,
		"videos":        bundle.Videos,
	})
}
