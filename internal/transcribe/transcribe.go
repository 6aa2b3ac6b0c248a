package transcribe

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"interview-backend/internal/media"
	"interview-backend/internal/perception"
	"interview-backend/internal/shared/storage/object"
	"interview-backend/internal/shared/telemetry"
	"interview-backend/internal/workspace"
)

const (
	// batchWaitCeiling bounds how long a long-running recognition may
	// take before the clip is written off.
	batchWaitCeiling = 300 * time.Second

	defaultLanguage  = "en-US"
	fallbackLanguage = "en-IN"

	tempPrefix = "temp_transcriptions"
)

var fillerWords = []string{"um", "uh", "like", "you know", "basically", "actually"}

// VideoTranscript is the transcription of one interview answer.
type VideoTranscript struct {
	Video            string  `json:"video"`
	Transcript       string  `json:"transcript"`
	Confidence       float64 `json:"confidence"`
	WordCount        int     `json:"word_count"`
	FillerWords      int     `json:"filler_words"`
	SpeakingRate     float64 `json:"speaking_rate"`
	DurationSeconds  float64 `json:"duration_seconds"`
	DetectedLanguage string  `json:"detected_language"`
	Failed           bool    `json:"failed,omitempty"`
}

// Result holds the transcriptions for all videos of a run.
type Result struct {
	Transcripts []VideoTranscript `json:"transcripts"`
}

// Transcriber extracts audio from interview videos and converts it to
// text. Audio longer than the batch threshold is staged in object
// storage for long-running recognition and removed afterwards.
type Transcriber struct {
	recognizer perception.Recognizer
	store      object.ObjectStore
	media      *media.Toolchain
	batchAfter float64
}

// New constructs a Transcriber. batchAfterSeconds is the audio duration
// above which recognition switches to the batch path.
func New(recognizer perception.Recognizer, store object.ObjectStore, tools *media.Toolchain, batchAfterSeconds float64) *Transcriber {
	if batchAfterSeconds <= 0 {
		batchAfterSeconds = 60
	}
	return &Transcriber{
		recognizer: recognizer,
		store:      store,
		media:      tools,
		batchAfter: batchAfterSeconds,
	}
}

// Run transcribes every video. A failed clip yields an empty transcript
// marked failed instead of aborting the others.
func (t *Transcriber) Run(ctx context.Context, ws *workspace.Workspace, videoPaths []string) (Result, error) {
	if len(videoPaths) == 0 {
		return Result{}, fmt.Errorf("transcribe: no videos")
	}

	var out Result
	for _, videoPath := range videoPaths {
		vt, err := t.transcribeVideo(ctx, ws, videoPath)
		if err != nil {
			telemetry.Warn("transcribe.video_failed", map[string]any{
				"candidate_id": ws.CandidateID(),
				"video":        filepath.Base(videoPath),
				"error":        err.Error(),
			})
			vt = VideoTranscript{Video: filepath.Base(videoPath), Failed: true}
		}
		out.Transcripts = append(out.Transcripts, vt)
	}
	return out, nil
}

func (t *Transcriber) transcribeVideo(ctx context.Context, ws *workspace.Workspace, videoPath string) (VideoTranscript, error) {
	base := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	audioPath := ws.AudioPath(base + ".flac")

	if err := t.media.ExtractAudio(ctx, videoPath, audioPath); err != nil {
		return VideoTranscript{}, err
	}

	duration, err := t.media.Duration(ctx, audioPath)
	if err != nil {
		return VideoTranscript{}, err
	}

	transcript, language, err := t.recognize(ctx, ws, audioPath, duration)
	if err != nil {
		return VideoTranscript{}, err
	}

	return buildTranscript(filepath.Base(videoPath), transcript, language, duration), nil
}

// recognize picks sync or batch recognition by duration and retries
// once with the fallback language when the default detects nothing.
func (t *Transcriber) recognize(ctx context.Context, ws *workspace.Workspace, audioPath string, duration float64) (perception.Transcript, string, error) {
	transcript, err := t.recognizeWithLanguage(ctx, ws, audioPath, duration, defaultLanguage)
	if err != nil {
		return perception.Transcript{}, "", err
	}
	if strings.TrimSpace(transcript.Text) != "" {
		return transcript, defaultLanguage, nil
	}

	telemetry.Info("transcribe.language_fallback", map[string]any{
		"candidate_id": ws.CandidateID(),
		"language":     fallbackLanguage,
	})
	transcript, err = t.recognizeWithLanguage(ctx, ws, audioPath, duration, fallbackLanguage)
	if err != nil {
		return perception.Transcript{}, "", err
	}
	return transcript, fallbackLanguage, nil
}

func (t *Transcriber) recognizeWithLanguage(ctx context.Context, ws *workspace.Workspace, audioPath string, duration float64, language string) (perception.Transcript, error) {
	if duration < t.batchAfter {
		return t.recognizer.Recognize(ctx, audioPath, language)
	}
	return t.recognizeBatch(ctx, ws, audioPath, language)
}

// recognizeBatch stages the audio in object storage, runs long-running
// recognition against it, and always removes the staged copy.
func (t *Transcriber) recognizeBatch(ctx context.Context, ws *workspace.Workspace, audioPath, language string) (perception.Transcript, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return perception.Transcript{}, fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	key := path.Join(tempPrefix, ws.CandidateID(), uuid.NewString()+".flac")
	if _, err := t.store.SaveWithKey(ctx, key, "audio/flac", f); err != nil {
		return perception.Transcript{}, fmt.Errorf("stage audio: %w", err)
	}
	defer func() {
		if err := t.store.Delete(context.WithoutCancel(ctx), key); err != nil {
			telemetry.Warn("transcribe.temp_delete_failed", map[string]any{
				"candidate_id": ws.CandidateID(),
				"key":          key,
				"error":        err.Error(),
			})
		}
	}()

	return t.recognizer.RecognizeBatch(ctx, key, language, batchWaitCeiling)
}

func buildTranscript(video string, transcript perception.Transcript, language string, duration float64) VideoTranscript {
	text := strings.TrimSpace(transcript.Text)
	wordCount := len(strings.Fields(text))

	rate := 0.0
	if duration > 0 {
		rate = float64(wordCount) / duration * 60
	}

	return VideoTranscript{
		Video:            video,
		Transcript:       text,
		Confidence:       transcript.Confidence,
		WordCount:        wordCount,
		FillerWords:      countFillers(text),
		SpeakingRate:     rate,
		DurationSeconds:  duration,
		DetectedLanguage: language,
	}
}

// countFillers counts substring occurrences of common filler phrases.
func countFillers(text string) int {
	lower := strings.ToLower(text)
	total := 0
	for _, filler := range fillerWords {
		total += strings.Count(lower, filler)
	}
	return total
}
