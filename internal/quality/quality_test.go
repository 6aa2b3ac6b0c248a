package quality

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func TestBrightnessScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		avg  float64
		want float64
	}{
		{name: "band low edge", avg: 80, want: 100},
		{name: "band high edge", avg: 180, want: 100},
		{name: "band middle", avg: 130, want: 100},
		{name: "too dark", avg: 60, want: 30},
		{name: "too bright", avg: 200, want: 30},
		{name: "pitch black", avg: 0, want: 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := brightnessScore(tt.avg); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("brightnessScore(%v) = %v, want %v", tt.avg, got, tt.want)
			}
		})
	}
}

func TestScoreVideoWeights(t *testing.T) {
	t.Parallel()

	// A flawless 1080p30 recording scores 100.
	perfect := VideoReport{
		Width: 1920, Height: 1080, FPS: 30,
		Brightness: 130, Sharpness: 500, FaceVisibility: 1,
	}
	if got := scoreVideo(perfect); math.Abs(got-100) > 1e-9 {
		t.Errorf("scoreVideo(perfect) = %v, want 100", got)
	}

	// Dropping only face visibility loses exactly its weight.
	noFace := perfect
	noFace.FaceVisibility = 0
	if got := scoreVideo(noFace); math.Abs(got-80) > 1e-9 {
		t.Errorf("scoreVideo(no face) = %v, want 80", got)
	}

	// Scores never exceed 100 even with overshooting inputs.
	overdone := VideoReport{
		Width: 3840, Height: 2160, FPS: 120,
		Brightness: 130, Sharpness: 5000, FaceVisibility: 1,
	}
	if got := scoreVideo(overdone); got > 100 {
		t.Errorf("scoreVideo(overdone) = %v, want <= 100", got)
	}
}

func TestFrameStatsSkipsUnsampledFrames(t *testing.T) {
	t.Parallel()

	// Three planned positions, but only two frames decoded: the lost
	// frame must not drag face visibility down.
	var stats frameStats
	stats.add(130, 400, true)
	stats.add(120, 300, false)

	var report VideoReport
	if !stats.apply(&report) {
		t.Fatal("apply returned false with samples present")
	}
	if math.Abs(report.FaceVisibility-0.5) > 1e-9 {
		t.Errorf("FaceVisibility = %v, want 0.5", report.FaceVisibility)
	}
	if math.Abs(report.Brightness-125) > 1e-9 {
		t.Errorf("Brightness = %v, want 125", report.Brightness)
	}
	if math.Abs(report.Sharpness-350) > 1e-9 {
		t.Errorf("Sharpness = %v, want 350", report.Sharpness)
	}

	var empty frameStats
	if empty.apply(&VideoReport{}) {
		t.Error("apply returned true with no samples")
	}
}

func uniformImage(w, h int, level uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: level, G: level, B: level, A: 255})
		}
	}
	return img
}

func TestGrayscaleMean(t *testing.T) {
	t.Parallel()

	gray := toGrayscale(uniformImage(10, 10, 128))
	if got := gray.mean(); math.Abs(got-128) > 1.0 {
		t.Errorf("mean of uniform 128 image = %v, want ~128", got)
	}
}

func TestLaplacianVarianceSeparatesFlatFromEdges(t *testing.T) {
	t.Parallel()

	flat := toGrayscale(uniformImage(20, 20, 128))
	if got := flat.laplacianVariance(); got > 1e-9 {
		t.Errorf("flat image variance = %v, want 0", got)
	}

	// Checkerboard has maximal edge response.
	board := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			level := uint8(0)
			if (x+y)%2 == 0 {
				level = 255
			}
			board.Set(x, y, color.RGBA{R: level, G: level, B: level, A: 255})
		}
	}
	sharp := toGrayscale(board)
	if got := sharp.laplacianVariance(); got < 1000 {
		t.Errorf("checkerboard variance = %v, want large", got)
	}
}
