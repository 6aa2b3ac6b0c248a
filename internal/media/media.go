package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Toolchain wraps the ffmpeg and ffprobe binaries used for audio
// extraction and frame sampling.
type Toolchain struct {
	ffmpeg  string
	ffprobe string
}

// NewToolchain returns a Toolchain using the given binary paths. Empty
// paths fall back to the bare command names resolved via PATH.
func NewToolchain(ffmpeg, ffprobe string) *Toolchain {
	if strings.TrimSpace(ffmpeg) == "" {
		ffmpeg = "ffmpeg"
	}
	if strings.TrimSpace(ffprobe) == "" {
		ffprobe = "ffprobe"
	}
	return &Toolchain{ffmpeg: ffmpeg, ffprobe: ffprobe}
}

// VideoInfo describes the primary video stream of a media file.
type VideoInfo struct {
	DurationSeconds float64
	Width           int
	Height          int
	FPS             float64
}

// Probe inspects the file's primary video stream.
func (t *Toolchain) Probe(ctx context.Context, path string) (VideoInfo, error) {
	out, err := t.run(ctx, t.ffprobe, probeArgs(path))
	if err != nil {
		return VideoInfo{}, fmt.Errorf("probe video: %w", err)
	}

	var parsed struct {
		Streams []struct {
			Width        int    `json:"width"`
			Height       int    `json:"height"`
			AvgFrameRate string `json:"avg_frame_rate"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &parsed); err != nil {
		return VideoInfo{}, fmt.Errorf("probe video: parse: %w", err)
	}
	if len(parsed.Streams) == 0 {
		return VideoInfo{}, fmt.Errorf("probe video: no video stream in %s", path)
	}

	info := VideoInfo{
		Width:  parsed.Streams[0].Width,
		Height: parsed.Streams[0].Height,
		FPS:    parseFrameRate(parsed.Streams[0].AvgFrameRate),
	}
	if seconds, err := strconv.ParseFloat(strings.TrimSpace(parsed.Format.Duration), 64); err == nil {
		info.DurationSeconds = seconds
	}
	return info, nil
}

// Duration probes the media file and returns its duration in seconds.
func (t *Toolchain) Duration(ctx context.Context, path string) (float64, error) {
	out, err := t.run(ctx, t.ffprobe, durationArgs(path))
	if err != nil {
		return 0, fmt.Errorf("probe duration: %w", err)
	}
	raw := strings.TrimSpace(string(out))
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("probe duration: parse %q: %w", raw, err)
	}
	return seconds, nil
}

// ExtractAudio transcodes the video's audio track to 16kHz mono FLAC.
func (t *Toolchain) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	if _, err := t.run(ctx, t.ffmpeg, extractAudioArgs(videoPath, audioPath)); err != nil {
		return fmt.Errorf("extract audio: %w", err)
	}
	return nil
}

// ExtractFrame grabs a single frame at the given offset in seconds.
func (t *Toolchain) ExtractFrame(ctx context.Context, videoPath string, atSeconds float64, framePath string) error {
	if _, err := t.run(ctx, t.ffmpeg, extractFrameArgs(videoPath, atSeconds, 0, framePath)); err != nil {
		return fmt.Errorf("extract frame at %.2fs: %w", atSeconds, err)
	}
	return nil
}

// ExtractFrameScaled grabs a single frame downscaled so its width does
// not exceed maxWidth.
func (t *Toolchain) ExtractFrameScaled(ctx context.Context, videoPath string, atSeconds float64, maxWidth int, framePath string) error {
	if _, err := t.run(ctx, t.ffmpeg, extractFrameArgs(videoPath, atSeconds, maxWidth, framePath)); err != nil {
		return fmt.Errorf("extract frame at %.2fs: %w", atSeconds, err)
	}
	return nil
}

func (t *Toolchain) run(ctx context.Context, bin string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 500 {
			msg = msg[len(msg)-500:]
		}
		return nil, fmt.Errorf("%s: %w: %s", bin, err, msg)
	}
	return stdout.Bytes(), nil
}

func durationArgs(path string) []string {
	return []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
}

func extractAudioArgs(videoPath, audioPath string) []string {
	return []string{
		"-i", videoPath,
		"-vn",
		"-acodec", "flac",
		"-ar", "16000",
		"-ac", "1",
		"-y",
		audioPath,
	}
}

func extractFrameArgs(videoPath string, atSeconds float64, maxWidth int, framePath string) []string {
	args := []string{
		"-ss", strconv.FormatFloat(atSeconds, 'f', 3, 64),
		"-i", videoPath,
		"-frames:v", "1",
		"-q:v", "2",
	}
	if maxWidth > 0 {
		args = append(args, "-vf", fmt.Sprintf("scale='min(%d,iw)':-2", maxWidth))
	}
	return append(args, "-y", framePath)
}

func probeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,avg_frame_rate",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	}
}

// parseFrameRate converts ffprobe's fractional frame rate ("30/1") to
// frames per second.
func parseFrameRate(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "0/0" {
		return 0
	}
	if num, den, ok := strings.Cut(raw, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0
		}
		return n / d
	}
	fps, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return fps
}

// FramePositions returns the sample offsets at 25%, 50% and 75% of the
// given duration.
func FramePositions(durationSeconds float64) []float64 {
	return []float64{
		durationSeconds * 0.25,
		durationSeconds * 0.50,
		durationSeconds * 0.75,
	}
}
