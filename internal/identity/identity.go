package identity

import (
	"context"
	"fmt"
	"strings"

	"interview-backend/internal/media"
	"interview-backend/internal/perception"
	"interview-backend/internal/shared/telemetry"
	"interview-backend/internal/workspace"
)

const (
	// distanceThreshold is the face embedding distance at or below
	// which two faces are considered the same person.
	distanceThreshold = 0.62
	// lenientFactor widens the threshold slightly to tolerate webcam
	// quality and lighting differences.
	lenientFactor = 1.04
	// minSimilarity is the similarity floor a verified match must
	// still clear.
	minSimilarity = 60.0

	// ProfileFace verifies against the profile photo only.
	ProfileFace = "face"
	// ProfileFaceAndName additionally reads the name off the
	// government id and matches it against the candidate's name.
	ProfileFaceAndName = "face+name"
)

// Result is the outcome of identity verification for one candidate.
type Result struct {
	FaceVerified  bool     `json:"face_verified"`
	Similarity    float64  `json:"similarity"`
	BestDistance  float64  `json:"best_distance"`
	FramesChecked int      `json:"frames_checked"`
	NameMatched   *bool    `json:"name_matched,omitempty"`
	Notes         []string `json:"notes,omitempty"`
}

// Params describes one verification request.
type Params struct {
	CandidateID      string
	CandidateName    string
	ProfileImagePath string
	GovIDImagePath   string
	VideoPath        string
	Profile          string
}

// Analyzer verifies that the person in the interview video matches the
// candidate's reference images.
type Analyzer struct {
	faces perception.FaceVerifier
	ocr   perception.TextReader
	media *media.Toolchain
}

// NewAnalyzer constructs an identity Analyzer. The ocr reader may be
// nil when name matching is not configured.
func NewAnalyzer(faces perception.FaceVerifier, ocr perception.TextReader, tools *media.Toolchain) *Analyzer {
	return &Analyzer{faces: faces, ocr: ocr, media: tools}
}

// Analyze samples frames from the interview video and compares each
// against the profile image, keeping the best match. Individual frame
// failures are tolerated as long as at least one frame compares.
func (a *Analyzer) Analyze(ctx context.Context, ws *workspace.Workspace, p Params) (Result, error) {
	duration, err := a.media.Duration(ctx, p.VideoPath)
	if err != nil {
		return Result{}, fmt.Errorf("identity: %w", err)
	}

	best := Result{BestDistance: 1.0}
	var notes []string

	for i, at := range media.FramePositions(duration) {
		framePath := ws.ImagePath(fmt.Sprintf("identity_frame_%d.jpg", i))
		if err := a.media.ExtractFrame(ctx, p.VideoPath, at, framePath); err != nil {
			notes = append(notes, fmt.Sprintf("frame %d extraction failed", i))
			continue
		}

		match, err := a.faces.Compare(ctx, p.ProfileImagePath, framePath)
		if err != nil {
			notes = append(notes, fmt.Sprintf("frame %d comparison failed", i))
			continue
		}
		if !match.Found {
			notes = append(notes, fmt.Sprintf("no face in frame %d", i))
			continue
		}

		best.FramesChecked++
		if match.Distance < best.BestDistance {
			best.BestDistance = match.Distance
		}
	}

	if best.FramesChecked == 0 {
		return Result{}, fmt.Errorf("identity: no frame could be compared for candidate %s", p.CandidateID)
	}

	best.Similarity = similarityFromDistance(best.BestDistance)
	verified := best.BestDistance <= distanceThreshold*lenientFactor
	best.FaceVerified = verified && best.Similarity >= minSimilarity
	best.Notes = notes

	if p.Profile == ProfileFaceAndName && a.ocr != nil && p.GovIDImagePath != "" {
		matched := a.matchName(ctx, p)
		best.NameMatched = &matched
		if !matched {
			best.Notes = append(best.Notes, "name on id document did not match candidate")
		}
	}

	telemetry.Info("identity.analyzed", map[string]any{
		"candidate_id":   p.CandidateID,
		"face_verified":  best.FaceVerified,
		"similarity":     best.Similarity,
		"best_distance":  best.BestDistance,
		"frames_checked": best.FramesChecked,
	})
	return best, nil
}

func (a *Analyzer) matchName(ctx context.Context, p Params) bool {
	text, err := a.ocr.ReadText(ctx, p.GovIDImagePath)
	if err != nil {
		telemetry.Warn("identity.ocr_failed", map[string]any{
			"candidate_id": p.CandidateID,
			"error":        err.Error(),
		})
		return false
	}
	return nameAppearsIn(p.CandidateName, text)
}

// nameAppearsIn reports whether every significant token of the
// candidate's name shows up in the document text.
func nameAppearsIn(name, text string) bool {
	haystack := strings.ToLower(text)
	tokens := strings.Fields(strings.ToLower(name))
	if len(tokens) == 0 {
		return false
	}
	for _, tok := range tokens {
		if len(tok) < 2 {
			continue
		}
		if !strings.Contains(haystack, tok) {
			return false
		}
	}
	return true
}

// similarityFromDistance maps embedding distance to a 0-100 similarity
// score. Distances within the threshold land in [60, 100]; distances
// beyond it fall off linearly to zero at distance 1.
func similarityFromDistance(d float64) float64 {
	if d < 0 {
		d = 0
	}
	if d <= distanceThreshold {
		return 100 - (d/distanceThreshold)*40
	}
	if d >= 1 {
		return 0
	}
	return 60 * (1 - (d-distanceThreshold)/(1-distanceThreshold))
}
