package faceapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"interview-backend/internal/perception"
)

// Client implements perception.FaceVerifier against a face analysis
// HTTP service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient constructs a face API client.
func NewClient(baseURL, apiKey string) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("FACE_API_URL is required")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

type compareRequest struct {
	ReferenceImage string `json:"reference_image"`
	ProbeImage     string `json:"probe_image"`
}

type compareResponse struct {
	Distance  float64 `json:"distance"`
	FaceFound bool    `json:"face_found"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type detectRequest struct {
	Image string `json:"image"`
}

type detectResponse struct {
	Confidence float64 `json:"confidence"`
	FaceFound  bool    `json:"face_found"`
	Error      *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Compare measures embedding distance between the faces in two images.
func (c *Client) Compare(ctx context.Context, referencePath, framePath string) (perception.FaceMatch, error) {
	refB64, err := encodeImage(referencePath)
	if err != nil {
		return perception.FaceMatch{}, err
	}
	probeB64, err := encodeImage(framePath)
	if err != nil {
		return perception.FaceMatch{}, err
	}

	var parsed compareResponse
	if err := c.post(ctx, "/v1/faces/compare", compareRequest{ReferenceImage: refB64, ProbeImage: probeB64}, &parsed); err != nil {
		return perception.FaceMatch{}, err
	}
	if parsed.Error != nil {
		return perception.FaceMatch{}, fmt.Errorf("face api error: %s", parsed.Error.Message)
	}
	return perception.FaceMatch{Distance: parsed.Distance, Found: parsed.FaceFound}, nil
}

// Detect locates the most prominent face in the image.
func (c *Client) Detect(ctx context.Context, imagePath string) (perception.FaceDetection, error) {
	imgB64, err := encodeImage(imagePath)
	if err != nil {
		return perception.FaceDetection{}, err
	}

	var parsed detectResponse
	if err := c.post(ctx, "/v1/faces/detect", detectRequest{Image: imgB64}, &parsed); err != nil {
		return perception.FaceDetection{}, err
	}
	if parsed.Error != nil {
		return perception.FaceDetection{}, fmt.Errorf("face api error: %s", parsed.Error.Message)
	}
	return perception.FaceDetection{Confidence: parsed.Confidence, Found: parsed.FaceFound}, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return fmt.Errorf("face api request timeout: %w", err)
		}
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("face api status %d: %s", resp.StatusCode, truncate(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("face api response parse: %w", err)
	}
	return nil
}

func encodeImage(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image %s: %w", path, err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func truncate(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 300 {
		return s[:300]
	}
	return s
}

var _ perception.FaceVerifier = (*Client)(nil)
