package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCreateLaysOutSubdirectories(t *testing.T) {
	t.Parallel()

	m := NewManager(t.TempDir())
	ws, err := m.Create("cand-001")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	for _, p := range []string{ws.VideoPath("q1.webm"), ws.AudioPath("q1.flac"), ws.ImagePath("profile.jpg")} {
		if _, err := os.Stat(filepath.Dir(p)); err != nil {
			t.Errorf("expected directory for %s: %v", p, err)
		}
	}

	if !strings.Contains(filepath.Base(ws.Dir()), "cand-001") {
		t.Errorf("workspace dir %q does not embed candidate id", ws.Dir())
	}
}

func TestCreateSanitizesCandidateID(t *testing.T) {
	t.Parallel()

	m := NewManager(t.TempDir())
	ws, err := m.Create("cand/../etc 01")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	base := filepath.Base(ws.Dir())
	if strings.ContainsAny(base, "/ ") || strings.Contains(base, "..") {
		t.Errorf("workspace dir %q contains unsanitized characters", base)
	}
}

func TestConcurrentWorkspacesAreIsolated(t *testing.T) {
	t.Parallel()

	m := NewManager(t.TempDir())
	a, err := m.Create("cand-002")
	if err != nil {
		t.Fatalf("Create a: %v", err)
	}
	b, err := m.Create("cand-002")
	if err != nil {
		t.Fatalf("Create b: %v", err)
	}

	if a.Dir() == b.Dir() {
		t.Fatalf("two runs share workspace %q", a.Dir())
	}

	if err := os.WriteFile(a.VideoPath("q1.webm"), []byte("data"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := a.Cleanup(); err != nil {
		t.Fatalf("Cleanup a: %v", err)
	}
	if _, err := os.Stat(b.Dir()); err != nil {
		t.Errorf("cleanup of a removed b's workspace: %v", err)
	}
}

func TestCreateInSameMillisecondGetsDistinctDirs(t *testing.T) {
	t.Parallel()

	m := NewManager(t.TempDir())
	seen := make(map[string]bool)
	var spaces []*Workspace
	for i := 0; i < 20; i++ {
		ws, err := m.Create("cand-007")
		if err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
		if seen[ws.Dir()] {
			t.Fatalf("two runs share workspace %q", ws.Dir())
		}
		seen[ws.Dir()] = true
		spaces = append(spaces, ws)
	}

	// Cleaning one up leaves every other workspace intact.
	if _, err := spaces[0].Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	for _, ws := range spaces[1:] {
		if _, err := os.Stat(ws.Dir()); err != nil {
			t.Errorf("workspace %q gone after sibling cleanup: %v", ws.Dir(), err)
		}
	}
}

func TestCleanupRemovesEverythingAndVerifies(t *testing.T) {
	t.Parallel()

	m := NewManager(t.TempDir())
	ws, err := m.Create("cand-003")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	files := []string{
		ws.VideoPath("q1.webm"),
		ws.VideoPath("q2.webm"),
		ws.AudioPath("q1.flac"),
		ws.ImagePath("frame_0.jpg"),
	}
	for _, f := range files {
		if err := os.WriteFile(f, []byte("data"), 0o644); err != nil {
			t.Fatalf("write %s: %v", f, err)
		}
	}

	report, err := ws.Cleanup()
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if report.FilesRemoved != len(files) {
		t.Errorf("FilesRemoved = %d, want %d", report.FilesRemoved, len(files))
	}
	if !report.Verified {
		t.Error("cleanup not verified")
	}
	if !ws.VerifyRemoved() {
		t.Error("workspace directory still present")
	}
}

func TestCleanupIsIdempotent(t *testing.T) {
	t.Parallel()

	m := NewManager(t.TempDir())
	ws, err := m.Create("cand-004")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := ws.Cleanup(); err != nil {
		t.Fatalf("first Cleanup: %v", err)
	}
	report, err := ws.Cleanup()
	if err != nil {
		t.Fatalf("second Cleanup: %v", err)
	}
	if report.FilesRemoved != 0 || !report.Verified {
		t.Errorf("second cleanup report = %+v, want zero files and verified", report)
	}
}

func TestCleanupRefusesForeignPath(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	outside := t.TempDir()

	ws := &Workspace{root: root, dir: outside, candidateID: "cand-005"}
	if _, err := ws.Cleanup(); !errors.Is(err, ErrSafetyViolation) {
		t.Fatalf("Cleanup outside root: err = %v, want ErrSafetyViolation", err)
	}

	ws = &Workspace{root: root, dir: filepath.Join(root, "other_999"), candidateID: "cand-005"}
	if _, err := ws.Cleanup(); !errors.Is(err, ErrSafetyViolation) {
		t.Fatalf("Cleanup foreign dir: err = %v, want ErrSafetyViolation", err)
	}

	if _, err := os.Stat(outside); err != nil {
		t.Errorf("refused cleanup still removed %s: %v", outside, err)
	}
}
