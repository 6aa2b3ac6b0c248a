package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"interview-backend/internal/shared/telemetry"
	"interview-backend/internal/shared/util"
)

// ErrSafetyViolation is returned when a cleanup target does not look like
// a workspace owned by the candidate being cleaned up.
var ErrSafetyViolation = errors.New("workspace: path failed safety check")

const (
	videosDir = "videos"
	audiosDir = "audios"
	imagesDir = "images"
)

// Workspace is an isolated scratch directory for a single assessment run.
type Workspace struct {
	root        string
	dir         string
	candidateID string
}

// Manager creates and destroys per-run workspaces under a common root.
type Manager struct {
	root string
}

// NewManager returns a Manager rooted at root. An empty root falls back
// to the system temp directory.
func NewManager(root string) *Manager {
	if strings.TrimSpace(root) == "" {
		root = os.TempDir()
	}
	return &Manager{root: root}
}

// Create builds a fresh workspace for the candidate. The directory name
// embeds the sanitized candidate id and a millisecond timestamp so that
// concurrent runs for the same candidate never collide.
func (m *Manager) Create(candidateID string) (*Workspace, error) {
	sanitized, err := util.SanitizeCandidateID(candidateID)
	if err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}

	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return nil, fmt.Errorf("workspace: create root: %w", err)
	}

	// Claim the directory with Mkdir so two runs for the same candidate
	// in the same millisecond can never share a workspace.
	var dir string
	base := fmt.Sprintf("%s_%d", sanitized, time.Now().UnixMilli())
	for attempt := 0; ; attempt++ {
		name := base
		if attempt > 0 {
			name = fmt.Sprintf("%s_%d", base, attempt)
		}
		dir = filepath.Join(m.root, name)
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("workspace: create: %w", err)
		}
	}

	for _, sub := range []string{videosDir, audiosDir, imagesDir} {
		if err := os.Mkdir(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("workspace: create %s: %w", sub, err)
		}
	}

	telemetry.Info("workspace.created", map[string]any{
		"candidate_id": sanitized,
		"path":         dir,
	})

	return &Workspace{root: m.root, dir: dir, candidateID: sanitized}, nil
}

// Dir returns the workspace root directory.
func (w *Workspace) Dir() string { return w.dir }

// CandidateID returns the sanitized candidate id the workspace belongs to.
func (w *Workspace) CandidateID() string { return w.candidateID }

// VideoPath returns the destination path for a downloaded video file.
func (w *Workspace) VideoPath(name string) string {
	return filepath.Join(w.dir, videosDir, name)
}

// AudioPath returns the destination path for an extracted audio file.
func (w *Workspace) AudioPath(name string) string {
	return filepath.Join(w.dir, audiosDir, name)
}

// ImagePath returns the destination path for a downloaded image file.
func (w *Workspace) ImagePath(name string) string {
	return filepath.Join(w.dir, imagesDir, name)
}

// CleanupReport describes the outcome of a workspace cleanup.
type CleanupReport struct {
	FilesRemoved int
	Verified     bool
}

// Cleanup removes the workspace directory and everything under it.
// It refuses to touch paths that fail the ownership safety check, and
// verifies after removal that the directory is actually gone. Calling
// Cleanup on an already-removed workspace succeeds with zero files.
func (w *Workspace) Cleanup() (CleanupReport, error) {
	if err := w.safetyCheck(); err != nil {
		return CleanupReport{}, err
	}

	if _, err := os.Stat(w.dir); os.IsNotExist(err) {
		return CleanupReport{FilesRemoved: 0, Verified: true}, nil
	}

	removed := countFiles(w.dir)

	if err := os.RemoveAll(w.dir); err != nil {
		return CleanupReport{FilesRemoved: 0, Verified: false}, fmt.Errorf("workspace: remove: %w", err)
	}

	report := CleanupReport{FilesRemoved: removed, Verified: w.VerifyRemoved()}
	if !report.Verified {
		return report, fmt.Errorf("workspace: directory still present after removal: %s", w.dir)
	}

	telemetry.Info("workspace.cleaned", map[string]any{
		"candidate_id":  w.candidateID,
		"path":          w.dir,
		"files_removed": removed,
	})
	return report, nil
}

// VerifyRemoved re-stats the workspace directory and reports whether it
// is gone.
func (w *Workspace) VerifyRemoved() bool {
	_, err := os.Stat(w.dir)
	return os.IsNotExist(err)
}

func (w *Workspace) safetyCheck() error {
	cleanRoot := filepath.Clean(w.root)
	cleanDir := filepath.Clean(w.dir)

	rel, err := filepath.Rel(cleanRoot, cleanDir)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("%w: %s not under %s", ErrSafetyViolation, cleanDir, cleanRoot)
	}
	if w.candidateID == "" || !strings.Contains(filepath.Base(cleanDir), w.candidateID) {
		return fmt.Errorf("%w: %s does not belong to candidate %q", ErrSafetyViolation, cleanDir, w.candidateID)
	}
	return nil
}

func countFiles(dir string) int {
	count := 0
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			count++
		}
		return nil
	})
	return count
}
