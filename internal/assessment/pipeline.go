package assessment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"interview-backend/internal/discovery"
	"interview-backend/internal/evaluator"
	"interview-backend/internal/identity"
	"interview-backend/internal/quality"
	"interview-backend/internal/shared/metrics"
	"interview-backend/internal/shared/storage/object"
	"interview-backend/internal/shared/telemetry"
	"interview-backend/internal/transcribe"
	"interview-backend/internal/webhook"
	"interview-backend/internal/workspace"
)

// CleanupError means the run finished but the workspace could not be
// removed or verified gone. It is never downgraded to a success.
type CleanupError struct {
	CandidateID string
	Err         error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("workspace cleanup for %s: %v", e.CandidateID, e.Err)
}

func (e *CleanupError) Unwrap() error { return e.Err }

// IdentityStage verifies the candidate against reference images.
type IdentityStage interface {
	Analyze(ctx context.Context, ws *workspace.Workspace, p identity.Params) (identity.Result, error)
}

// QualityStage scores the technical quality of the recordings.
type QualityStage interface {
	Analyze(ctx context.Context, ws *workspace.Workspace, videoPaths []string) (quality.Result, error)
}

// TranscribeStage converts the answer videos to text.
type TranscribeStage interface {
	Run(ctx context.Context, ws *workspace.Workspace, videoPaths []string) (transcribe.Result, error)
}

// Pipeline runs a full candidate assessment: discover and download the
// assets, run the three analysis stages in parallel, evaluate the
// answers, aggregate a decision and clean the workspace up.
type Pipeline struct {
	store       object.ObjectStore
	finder      *discovery.Finder
	workspaces  *workspace.Manager
	acquire     *acquirer
	identity    IdentityStage
	quality     QualityStage
	transcriber TranscribeStage
	evaluator   evaluator.Client
	notifier    *webhook.Notifier

	identityProfile string
}

// PipelineConfig wires the pipeline's collaborators.
type PipelineConfig struct {
	Store               object.ObjectStore
	Workspaces          *workspace.Manager
	Identity            IdentityStage
	Quality             QualityStage
	Transcriber         TranscribeStage
	Evaluator           evaluator.Client
	Notifier            *webhook.Notifier
	DownloadConcurrency int
	IdentityProfile     string
}

// NewPipeline constructs a Pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	return &Pipeline{
		store:           cfg.Store,
		finder:          discovery.NewFinder(cfg.Store),
		workspaces:      cfg.Workspaces,
		acquire:         newAcquirer(cfg.Store, cfg.DownloadConcurrency),
		identity:        cfg.Identity,
		quality:         cfg.Quality,
		transcriber:     cfg.Transcriber,
		evaluator:       cfg.Evaluator,
		notifier:        cfg.Notifier,
		identityProfile: cfg.IdentityProfile,
	}
}

// Run executes one assessment end to end. The workspace is always
// removed before Run returns, whether the run succeeded or not.
func (p *Pipeline) Run(ctx context.Context, req Request) (Report, error) {
	assessmentID := uuid.NewString()
	start := time.Now()
	metrics.IncAssessmentStarted()

	startedFields := map[string]any{
		"assessment_id": assessmentID,
		"candidate_id":  req.CandidateID,
	}
	if req.StorageBucket != "" {
		startedFields["storage_bucket"] = req.StorageBucket
	}
	telemetry.Info("assessment.started", startedFields)

	bundle, err := p.finder.Find(ctx, req.CandidateID)
	if err != nil {
		metrics.IncAssessmentFailed()
		return Report{}, err
	}

	ws, err := p.workspaces.Create(req.CandidateID)
	if err != nil {
		metrics.IncAssessmentFailed()
		return Report{}, err
	}

	cleaned := false
	defer func() {
		if cleaned {
			return
		}
		// Emergency path: the normal cleanup never ran.
		if _, cerr := ws.Cleanup(); cerr != nil {
			metrics.IncCleanupFailed()
			telemetry.Error("assessment.emergency_cleanup_failed", map[string]any{
				"assessment_id": assessmentID,
				"candidate_id":  req.CandidateID,
				"error":         cerr.Error(),
			})
		}
	}()

	local, err := p.acquire.Fetch(ctx, ws, bundle)
	if err != nil {
		metrics.IncAssessmentFailed()
		return Report{}, err
	}

	state := p.runStages(ctx, ws, req, local)
	p.evaluate(ctx, assessmentID, req, state)

	decision := Aggregate(state)
	p.notifyIdentityFailure(ctx, assessmentID, req, state)

	report := Report{
		AssessmentID: assessmentID,
		CandidateID:  req.CandidateID,
		Decision:     decision,
		Identity:     state.Identity,
		Quality:      state.Quality,
		Transcripts:  state.Transcripts,
		Evaluation:   state.Evaluation,
		StageErrors:  state.StageErrors,
	}

	cleanupReport, cleanupErr := ws.Cleanup()
	cleaned = true
	if cleanupErr != nil {
		metrics.IncCleanupFailed()
		metrics.IncAssessmentFailed()
		telemetry.Error("assessment.cleanup_failed", map[string]any{
			"assessment_id": assessmentID,
			"candidate_id":  req.CandidateID,
			"error":         cleanupErr.Error(),
		})
		return Report{}, &CleanupError{CandidateID: req.CandidateID, Err: cleanupErr}
	}
	report.Cleanup = &cleanupReport

	elapsed := float64(time.Since(start).Microseconds()) / 1000.0
	report.DurationSecs = elapsed / 1000.0
	metrics.ObserveAssessmentDurationMs(elapsed)
	metrics.IncAssessmentCompleted()

	telemetry.Info("assessment.completed", map[string]any{
		"assessment_id": assessmentID,
		"candidate_id":  req.CandidateID,
		"decision":      decision.Decision,
		"final_score":   decision.FinalScore,
		"duration_ms":   elapsed,
	})
	return report, nil
}

// runStages executes identity, quality and transcription concurrently.
// Each goroutine owns one State slot, so the results are deterministic
// regardless of completion order. A stage failure is recorded and the
// others keep running.
func (p *Pipeline) runStages(ctx context.Context, ws *workspace.Workspace, req Request, local LocalBundle) *State {
	state := &State{StageErrors: make(map[string]string)}
	var mu sync.Mutex
	fail := func(stage string, err error) {
		metrics.IncStageFailed()
		mu.Lock()
		state.StageErrors[stage] = sanitizeError(err)
		mu.Unlock()
		telemetry.Error("assessment.stage_failed", map[string]any{
			"candidate_id": req.CandidateID,
			"stage":        stage,
			"error":        sanitizeError(err),
		})
	}

	// A panicking stage must come out as a stage failure, not a dead
	// process with an orphaned workspace.
	guard := func(stage string) {
		if rec := recover(); rec != nil {
			fail(stage, fmt.Errorf("panic: %v", rec))
		}
	}

	identityVideo := local.Videos[0]
	answerVideos := local.Videos[1:]

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		defer guard(StageIdentity)
		result, err := p.identity.Analyze(ctx, ws, identity.Params{
			CandidateID:      req.CandidateID,
			CandidateName:    req.CandidateName,
			ProfileImagePath: local.ProfileImage,
			GovIDImagePath:   local.GovID,
			VideoPath:        identityVideo,
			Profile:          p.identityProfile,
		})
		if err != nil {
			fail(StageIdentity, err)
			return
		}
		state.Identity = &result
	}()

	go func() {
		defer wg.Done()
		defer guard(StageQuality)
		result, err := p.quality.Analyze(ctx, ws, local.Videos)
		if err != nil {
			fail(StageQuality, err)
			return
		}
		state.Quality = &result
	}()

	go func() {
		defer wg.Done()
		defer guard(StageTranscribe)
		result, err := p.transcriber.Run(ctx, ws, answerVideos)
		if err != nil {
			fail(StageTranscribe, err)
			return
		}
		state.Transcripts = &result
	}()

	wg.Wait()
	return state
}

// evaluate pairs transcripts with their questions and issues one
// evaluator call covering all of them.
func (p *Pipeline) evaluate(ctx context.Context, assessmentID string, req Request, state *State) {
	if state.Transcripts == nil || len(state.Transcripts.Transcripts) == 0 {
		state.StageErrors[StageEvaluate] = "no transcripts to evaluate"
		return
	}

	input := evaluator.Input{
		CandidateID: req.CandidateID,
		Role:        req.Role,
	}
	for i, t := range state.Transcripts.Transcripts {
		question := fmt.Sprintf("Question %d", i+1)
		if i < len(req.Questions) && req.Questions[i] != "" {
			question = req.Questions[i]
		}
		input.Answers = append(input.Answers, evaluator.Answer{
			Question:   question,
			Transcript: t.Transcript,
		})
	}

	client := newRetryingEvaluator(p.evaluator, assessmentID)
	result, err := client.Evaluate(ctx, input)
	if err != nil {
		metrics.IncStageFailed()
		state.StageErrors[StageEvaluate] = sanitizeError(err)
		return
	}
	state.Evaluation = &result
}

// notifyIdentityFailure fires the human-review webhook when identity
// verification did not pass. Delivery problems never affect the run.
func (p *Pipeline) notifyIdentityFailure(ctx context.Context, assessmentID string, req Request, state *State) {
	if p.notifier == nil || !p.notifier.Enabled() {
		return
	}
	if identityVerified(state) {
		return
	}

	var result identity.Result
	if state.Identity != nil {
		result = *state.Identity
	}
	p.notifier.SendIdentityFailure(ctx, req.CandidateID, req.CandidateName, assessmentID, result)
}
