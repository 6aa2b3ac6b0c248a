package speechapi

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

const pollInterval = 5 * time.Second

// Client implements perception.Recognizer against a speech-to-text
// HTTP service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient constructs a speech API client.
func NewClient(baseURL, apiKey string) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("SPEECH_API_URL is required")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

type recognitionConfig struct {
	Encoding        string `json:"encoding"`
	SampleRateHertz int    `json:"sampleRateHertz"`
	LanguageCode    string `json:"languageCode"`
}

type recognizeRequest struct {
	Config recognitionConfig `json:"config"`
	Audio  struct {
		Content string `json:"content,omitempty"`
		URI     string `json:"uri,omitempty"`
	} `json:"audio"`
}

type recognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
	Error *apiError `json:"error,omitempty"`
}

type operationResponse struct {
	Name     string             `json:"name"`
	Done     bool               `json:"done"`
	Response *recognizeResponse `json:"response,omitempty"`
	Error    *apiError          `json:"error,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Recognize transcribes a short audio file synchronously.
func (c *Client) Recognize(ctx context.Context, audioPath, languageCode string) (perception.Transcript, error) {
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return perception.Transcript{}, fmt.Errorf("read audio %s: %w", audioPath, err)
	}

	req := newRequest(languageCode)
	req.Audio.Content = base64.StdEncoding.EncodeToString(data)

	var parsed recognizeResponse
	if err := c.post(ctx, "/v1/speech:recognize", req, &parsed); err != nil {
		return perception.Transcript{}, err
	}
	if parsed.Error != nil {
		return perception.Transcript{}, fmt.Errorf("speech api error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	return collectTranscript(&parsed), nil
}

// RecognizeBatch starts a long-running transcription of audio staged at
// the given URI and polls until it finishes or the wait ceiling passes.
func (c *Client) RecognizeBatch(ctx context.Context, audioURI, languageCode string, wait time.Duration) (perception.Transcript, error) {
	req := newRequest(languageCode)
	req.Audio.URI = audioURI

	var op operationResponse
	if err := c.post(ctx, "/v1/speech:longrunningrecognize", req, &op); err != nil {
		return perception.Transcript{}, err
	}
	if op.Error != nil {
		return perception.Transcript{}, fmt.Errorf("speech api error %d: %s", op.Error.Code, op.Error.Message)
	}
	if op.Name == "" {
		return perception.Transcript{}, fmt.Errorf("speech api operation missing name")
	}

	deadline := time.Now().Add(wait)
	for {
		if op.Done {
			break
		}
		if time.Now().After(deadline) {
			return perception.Transcript{}, fmt.Errorf("speech api operation %s timed out after %s", op.Name, wait)
		}
		select {
		case <-ctx.Done():
			return perception.Transcript{}, ctx.Err()
		case <-time.After(pollInterval):
		}
		if err := c.get(ctx, "/v1/operations/"+op.Name, &op); err != nil {
			return perception.Transcript{}, err
		}
		if op.Error != nil {
			return perception.Transcript{}, fmt.Errorf("speech api error %d: %s", op.Error.Code, op.Error.Message)
		}
	}

	if op.Response == nil {
		return perception.Transcript{}, fmt.Errorf("speech api operation %s finished without response", op.Name)
	}
	return collectTranscript(op.Response), nil
}

func newRequest(languageCode string) recognizeRequest {
	var req recognizeRequest
	req.Config = recognitionConfig{
		Encoding:        "FLAC",
		SampleRateHertz: 16000,
		LanguageCode:    languageCode,
	}
	return req
}

func collectTranscript(resp *recognizeResponse) perception.Transcript {
	var parts []string
	var confSum float64
	var confCount int
	for _, res := range resp.Results {
		if len(res.Alternatives) == 0 {
			continue
		}
		best := res.Alternatives[0]
		if best.Transcript != "" {
			parts = append(parts, strings.TrimSpace(best.Transcript))
		}
		if best.Confidence > 0 {
			confSum += best.Confidence
			confCount++
		}
	}
	out := perception.Transcript{Text: strings.Join(parts, " ")}
	if confCount > 0 {
		out.Confidence = confSum / float64(confCount)
	}
	return out
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
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return fmt.Errorf("speech api request timeout: %w", err)
		}
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("speech api status %d: %s", resp.StatusCode, truncate(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("speech api response parse: %w", err)
	}
	return nil
}

func truncate(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 300 {
		return s[:300]
	}
	return s
}

var _ perception.Recognizer = (*Client)(nil)
