package quality

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"os"
	"path/filepath"

	"interview-backend/internal/media"
	"interview-backend/internal/perception"
	"interview-backend/internal/shared/telemetry"
	"interview-backend/internal/workspace"
)

const (
	maxProcessingWidth = 640
	sharpnessFloor     = 100.0
	faceVisibleFloor   = 0.6
	passScore          = 60.0

	weightResolution = 0.25
	weightFPS        = 0.15
	weightBrightness = 0.20
	weightSharpness  = 0.20
	weightFace       = 0.20
)

// VideoReport holds the quality analysis of a single interview video.
type VideoReport struct {
	Video          string   `json:"video"`
	QualityScore   float64  `json:"quality_score"`
	Brightness     float64  `json:"brightness"`
	Sharpness      float64  `json:"sharpness"`
	FaceVisibility float64  `json:"face_visibility"`
	Width          int      `json:"width"`
	Height         int      `json:"height"`
	FPS            float64  `json:"fps"`
	Issues         []string `json:"issues,omitempty"`
}

// Result aggregates quality across all videos of a run.
type Result struct {
	OverallScore float64       `json:"overall_score"`
	Passed       bool          `json:"passed"`
	Videos       []VideoReport `json:"videos"`
}

// Analyzer scores the technical quality of interview recordings.
type Analyzer struct {
	faces perception.FaceVerifier
	media *media.Toolchain
}

// NewAnalyzer constructs a quality Analyzer.
func NewAnalyzer(faces perception.FaceVerifier, tools *media.Toolchain) *Analyzer {
	return &Analyzer{faces: faces, media: tools}
}

// Analyze samples three frames per video and scores resolution, frame
// rate, brightness, sharpness and face visibility. A video that cannot
// be analyzed scores zero and flags an issue rather than failing the
// run.
func (a *Analyzer) Analyze(ctx context.Context, ws *workspace.Workspace, videoPaths []string) (Result, error) {
	if len(videoPaths) == 0 {
		return Result{}, fmt.Errorf("quality: no videos to analyze")
	}

	var out Result
	var sum float64
	for i, videoPath := range videoPaths {
		report := a.analyzeVideo(ctx, ws, i, videoPath)
		sum += report.QualityScore
		out.Videos = append(out.Videos, report)
	}
	out.OverallScore = sum / float64(len(out.Videos))
	out.Passed = out.OverallScore >= passScore

	telemetry.Info("quality.analyzed", map[string]any{
		"candidate_id":  ws.CandidateID(),
		"overall_score": out.OverallScore,
		"passed":        out.Passed,
		"videos":        len(out.Videos),
	})
	return out, nil
}

func (a *Analyzer) analyzeVideo(ctx context.Context, ws *workspace.Workspace, index int, videoPath string) VideoReport {
	report := VideoReport{Video: filepath.Base(videoPath)}

	info, err := a.media.Probe(ctx, videoPath)
	if err != nil {
		report.Issues = append(report.Issues, "analysis failed")
		return report
	}
	report.Width = info.Width
	report.Height = info.Height
	report.FPS = info.FPS

	var stats frameStats
	positions := media.FramePositions(info.DurationSeconds)
	for i, at := range positions {
		framePath := ws.ImagePath(fmt.Sprintf("quality_frame_%d_%d.jpg", index, i))
		if err := a.media.ExtractFrameScaled(ctx, videoPath, at, maxProcessingWidth, framePath); err != nil {
			continue
		}

		gray, err := loadGrayscale(framePath)
		if err != nil {
			continue
		}

		faceFound := false
		if det, err := a.faces.Detect(ctx, framePath); err == nil && det.Found {
			faceFound = true
		}
		stats.add(gray.mean(), gray.laplacianVariance(), faceFound)
	}

	if !stats.apply(&report) {
		report.Issues = append(report.Issues, "analysis failed")
		return report
	}

	if report.Sharpness < sharpnessFloor {
		report.Issues = append(report.Issues, "Blurry/out of focus")
	}
	if report.FaceVisibility < faceVisibleFloor {
		report.Issues = append(report.Issues, "Poor face visibility")
	}

	report.QualityScore = scoreVideo(report)
	return report
}

// frameStats accumulates per-frame measurements. Frames that could not
// be extracted or decoded are left out entirely, so face visibility is
// the fraction of sampled frames with a detected face.
type frameStats struct {
	sampled       int
	facesSeen     int
	brightnessSum float64
	sharpnessSum  float64
}

func (s *frameStats) add(brightness, sharpness float64, faceFound bool) {
	s.sampled++
	s.brightnessSum += brightness
	s.sharpnessSum += sharpness
	if faceFound {
		s.facesSeen++
	}
}

func (s *frameStats) apply(report *VideoReport) bool {
	if s.sampled == 0 {
		return false
	}
	report.Brightness = s.brightnessSum / float64(s.sampled)
	report.Sharpness = s.sharpnessSum / float64(s.sampled)
	report.FaceVisibility = float64(s.facesSeen) / float64(s.sampled)
	return true
}

func scoreVideo(r VideoReport) float64 {
	resolutionScore := min100(float64(r.Width*r.Height) / (1920 * 1080) * 100)
	fpsScore := min100(r.FPS / 30 * 100)
	brightnessScore := brightnessScore(r.Brightness)
	sharpnessScore := min100(r.Sharpness / 500 * 100)
	faceScore := r.FaceVisibility * 100

	return resolutionScore*weightResolution +
		fpsScore*weightFPS +
		brightnessScore*weightBrightness +
		sharpnessScore*weightSharpness +
		faceScore*weightFace
}

// brightnessScore gives full marks inside the comfortable luminance
// band and decays linearly outside it.
func brightnessScore(avg float64) float64 {
	if avg >= 80 && avg <= 180 {
		return 100
	}
	diff := avg - 130
	if diff < 0 {
		diff = -diff
	}
	if diff > 100 {
		return 0
	}
	return 100 - diff
}

func min100(v float64) float64 {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}

// grayImage is a luminance plane extracted from a decoded frame.
type grayImage struct {
	pix    []float64
	width  int
	height int
}

func loadGrayscale(path string) (*grayImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return toGrayscale(img), nil
}

func toGrayscale(img image.Image) *grayImage {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := &grayImage{pix: make([]float64, w*h), width: w, height: h}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// Standard luma weights, 16-bit channels scaled to 0-255.
			out.pix[y*w+x] = (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 257.0
		}
	}
	return out
}

func (g *grayImage) at(x, y int) float64 {
	return g.pix[y*g.width+x]
}

func (g *grayImage) mean() float64 {
	if len(g.pix) == 0 {
		return 0
	}
	var sum float64
	for _, v := range g.pix {
		sum += v
	}
	return sum / float64(len(g.pix))
}

// laplacianVariance measures focus with a 4-neighbor Laplacian kernel.
// Higher variance means sharper edges.
func (g *grayImage) laplacianVariance() float64 {
	if g.width < 3 || g.height < 3 {
		return 0
	}

	responses := make([]float64, 0, (g.width-2)*(g.height-2))
	var sum float64
	for y := 1; y < g.height-1; y++ {
		for x := 1; x < g.width-1; x++ {
			v := g.at(x-1, y) + g.at(x+1, y) + g.at(x, y-1) + g.at(x, y+1) - 4*g.at(x, y)
			responses = append(responses, v)
			sum += v
		}
	}

	mean := sum / float64(len(responses))
	var varSum float64
	for _, v := range responses {
		d := v - mean
		varSum += d * d
	}
	return varSum / float64(len(responses))
}
