package perception

import (
	"context"
	"time"
)

// FaceMatch is the result of comparing a candidate frame against a
// reference image.
type FaceMatch struct {
	// Distance is the embedding distance between the two faces. Lower
	// means more similar.
	Distance float64
	// Found reports whether both images contained a detectable face.
	Found bool
}

// FaceDetection describes the most prominent face in a single image.
type FaceDetection struct {
	// Confidence is the detection confidence in [0, 1].
	Confidence float64
	Found      bool
}

// FaceVerifier compares and detects faces in still images.
type FaceVerifier interface {
	// Compare measures the distance between the face in the reference
	// image and the face in the frame image.
	Compare(ctx context.Context, referencePath, framePath string) (FaceMatch, error)
	// Detect locates the most prominent face in the image.
	Detect(ctx context.Context, imagePath string) (FaceDetection, error)
}

// Transcript is the text output of a speech recognition request.
type Transcript struct {
	Text       string
	Confidence float64
}

// Recognizer converts recorded audio to text. Short clips go through
// Recognize; longer audio must be staged in object storage and handled
// by RecognizeBatch.
type Recognizer interface {
	Recognize(ctx context.Context, audioPath, languageCode string) (Transcript, error)
	RecognizeBatch(ctx context.Context, audioURI, languageCode string, wait time.Duration) (Transcript, error)
}

// TextReader extracts printed text from an image, for reading names off
// identity documents.
type TextReader interface {
	ReadText(ctx context.Context, imagePath string) (string, error)
}
