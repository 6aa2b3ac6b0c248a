package discovery

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"interview-backend/internal/shared/storage/object"
	"interview-backend/internal/shared/telemetry"
)

// requiredVideos is the expected interview recording count: one
// identity clip plus five answers.
const requiredVideos = 6

var (
	imageExts = []string{".jpg", ".jpeg", ".png"}
	videoExts = []string{".webm", ".mp4", ".avi", ".mov"}
)

// Bundle names the storage keys of every asset an assessment needs.
type Bundle struct {
	ProfileImage string
	GovID        string
	Videos       []string
}

// MissingAssetsError reports which required assets could not be found.
type MissingAssetsError struct {
	CandidateID string
	Missing     []string
}

func (e *MissingAssetsError) Error() string {
	return fmt.Sprintf("missing required files for candidate %s: %s", e.CandidateID, strings.Join(e.Missing, ", "))
}

// Finder locates candidate assets in object storage.
type Finder struct {
	store object.ObjectStore
}

// NewFinder constructs a Finder over the given store.
func NewFinder(store object.ObjectStore) *Finder {
	return &Finder{store: store}
}

// Find lists everything under the candidate's prefix and classifies it
// into profile image, government id and interview videos. Directory
// conventions win; filename patterns are the fallback for uploads that
// land flat under the candidate prefix.
func (f *Finder) Find(ctx context.Context, candidateID string) (Bundle, error) {
	prefix := candidateID + "/"
	keys, err := f.store.List(ctx, prefix)
	if err != nil {
		return Bundle{}, fmt.Errorf("discovery: list %s: %w", prefix, err)
	}
	if len(keys) == 0 {
		return Bundle{}, &MissingAssetsError{
			CandidateID: candidateID,
			Missing:     []string{"profile_pic", "gov_id", "videos (found 0, need 6)"},
		}
	}

	var bundle Bundle
	for _, key := range keys {
		rel := strings.TrimPrefix(key, prefix)
		if rel == "" {
			continue
		}
		lower := strings.ToLower(rel)
		base := path.Base(lower)
		if !strings.Contains(base, ".") {
			continue
		}

		switch {
		case hasExt(base, imageExts):
			if isProfileImage(lower, base) {
				if bundle.ProfileImage == "" {
					bundle.ProfileImage = key
				}
			} else if isGovID(lower, base) {
				if bundle.GovID == "" {
					bundle.GovID = key
				}
			}
		case hasExt(base, videoExts):
			if isInterviewVideo(lower, base) {
				bundle.Videos = append(bundle.Videos, key)
			}
		}
	}

	var missing []string
	if bundle.ProfileImage == "" {
		missing = append(missing, "profile_pic")
	}
	if bundle.GovID == "" {
		missing = append(missing, "gov_id")
	}
	if len(bundle.Videos) < requiredVideos {
		missing = append(missing, fmt.Sprintf("videos (found %d, need %d)", len(bundle.Videos), requiredVideos))
	}
	if len(missing) > 0 {
		return Bundle{}, &MissingAssetsError{CandidateID: candidateID, Missing: missing}
	}

	// Name order puts video_0 (identity clip) first, then the answers.
	sort.Strings(bundle.Videos)
	bundle.Videos = bundle.Videos[:requiredVideos]

	telemetry.Info("discovery.complete", map[string]any{
		"candidate_id": candidateID,
		"videos":       len(bundle.Videos),
	})
	return bundle, nil
}

func hasExt(base string, exts []string) bool {
	for _, ext := range exts {
		if strings.Contains(base, ext) {
			return true
		}
	}
	return false
}

func isProfileImage(rel, base string) bool {
	if strings.Contains(rel, "profile_images") {
		return true
	}
	if strings.HasPrefix(base, "profile_pic") || strings.HasPrefix(base, "profile") {
		return true
	}
	return strings.Contains(base, "profile") && strings.Contains(base, "pic")
}

func isGovID(rel, base string) bool {
	if strings.Contains(rel, "documents/gov_id") ||
		strings.Contains(rel, "documents/govt_id") ||
		strings.Contains(rel, "/gov_id/") {
		return true
	}
	if strings.HasPrefix(base, "gov_id") ||
		strings.HasPrefix(base, "govt_id") ||
		strings.HasPrefix(base, "government_id") {
		return true
	}
	if strings.HasPrefix(base, "id") {
		if head, _, _ := strings.Cut(base, "_"); len(head) <= 3 {
			return true
		}
	}
	return strings.Contains(base, "gov") && strings.Contains(base, "id")
}

func isInterviewVideo(rel, base string) bool {
	return strings.Contains(rel, "interview_videos") || strings.Contains(base, "video")
}
