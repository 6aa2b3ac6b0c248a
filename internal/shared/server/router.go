package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"interview-backend/internal/assessment"
	"interview-backend/internal/discovery"
	"interview-backend/internal/evaluator/gemini"
	"interview-backend/internal/identity"
	"interview-backend/internal/media"
	"interview-backend/internal/perception"
	"interview-backend/internal/perception/faceapi"
	"interview-backend/internal/perception/speechapi"
	"interview-backend/internal/perception/visionapi"
	"interview-backend/internal/quality"
	"interview-backend/internal/shared/config"
	"interview-backend/internal/shared/metrics"
	"interview-backend/internal/shared/server/middleware"
	"interview-backend/internal/shared/server/respond"
	"interview-backend/internal/shared/storage/object"
	localstore "interview-backend/internal/shared/storage/object/local"
	s3store "interview-backend/internal/shared/storage/object/s3"
	"interview-backend/internal/transcribe"
	"interview-backend/internal/webhook"
	"interview-backend/internal/workspace"
)

// NewRouter constructs the Gin engine with middleware, dependencies and
// routes registered.
func NewRouter(cfg config.Config) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
	)

	// Dependencies
	store, err := newObjectStore(cfg)
	if err != nil {
		return nil, err
	}

	faces, err := faceapi.NewClient(cfg.FaceAPIURL, cfg.FaceAPIKey)
	if err != nil {
		return nil, err
	}
	recognizer, err := speechapi.NewClient(cfg.SpeechAPIURL, cfg.SpeechAPIKey)
	if err != nil {
		return nil, err
	}
	var ocr perception.TextReader
	if cfg.IdentityProfile == identity.ProfileFaceAndName {
		client, err := visionapi.NewClient(cfg.OCRAPIURL, cfg.OCRAPIKey)
		if err != nil {
			return nil, err
		}
		ocr = client
	}

	eval, err := gemini.NewClient(context.Background(), cfg.GeminiAPIKey, cfg.LLMModel)
	if err != nil {
		return nil, err
	}

	tools := media.NewToolchain(cfg.FFmpegPath, cfg.FFprobePath)
	pipeline := assessment.NewPipeline(assessment.PipelineConfig{
		Store:               store,
		Workspaces:          workspace.NewManager(cfg.WorkspaceRoot),
		Identity:            identity.NewAnalyzer(faces, ocr, tools),
		Quality:             quality.NewAnalyzer(faces, tools),
		Transcriber:         transcribe.New(recognizer, store, tools, cfg.BatchAudioSeconds),
		Evaluator:           eval,
		Notifier:            webhook.NewNotifier(cfg.WebhookBaseURL),
		DownloadConcurrency: cfg.DownloadConcurrency,
		IdentityProfile:     cfg.IdentityProfile,
	})
	handler := assessment.NewHandler(pipeline, discovery.NewFinder(store))

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	handler.RegisterRoutes(api)

	return r, nil
}

func newObjectStore(cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		store, err := s3store.New(context.Background(), cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			return nil, fmt.Errorf("init s3 store: %w", err)
		}
		return store, nil
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
