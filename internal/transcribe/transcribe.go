package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// State is the processing state of a submitted transcription job.
type State string

const (
	StateProcessing State = "PROCESSING"
	StateReady      State = "READY"
	StateFailed     State = "FAILED"
)

// Transcriber converts a local audio file to text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// Client talks to an async transcription API: audio is uploaded, a job is
// created, and the result is polled until ready.
type Client struct {
	http         *http.Client
	baseURL      string
	apiKey       string
	pollInterval time.Duration
	maxPolls     int
	sleep        func(ctx context.Context, d time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Client) { t.http = c }
}

// WithPollInterval overrides the delay between status polls.
func WithPollInterval(d time.Duration) Option {
	return func(t *Client) { t.pollInterval = d }
}

// New creates a transcription client.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		http:         &http.Client{Timeout: 60 * time.Second},
		baseURL:      baseURL,
		apiKey:       apiKey,
		pollInterval: time.Second,
		maxPolls:     30,
		sleep:        sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Upload submits a local audio file and returns the job handle.
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	audio, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("transcribe: read audio: %w", err)
	}

	var uploaded struct {
		UploadURL string `json:"upload_url"`
	}
	if err := c.post(ctx, "/upload", "application/octet-stream", audio, &uploaded); err != nil {
		return "", fmt.Errorf("transcribe: upload: %w", err)
	}

	payload, _ := json.Marshal(map[string]string{"audio_url": uploaded.UploadURL})
	var job struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/transcript", "application/json", payload, &job); err != nil {
		return "", fmt.Errorf("transcribe: create job: %w", err)
	}
	if job.ID == "" {
		return "", fmt.Errorf("transcribe: create job: empty id")
	}
	return job.ID, nil
}

// Status polls a job's processing state.
func (c *Client) Status(ctx context.Context, handle string) (State, error) {
	job, err := c.job(ctx, handle)
	if err != nil {
		return StateFailed, err
	}
	switch job.Status {
	case "completed":
		return StateReady, nil
	case "error":
		return StateFailed, nil
	default: // queued, processing
		return StateProcessing, nil
	}
}

// Text fetches the transcription of a completed job.
func (c *Client) Text(ctx context.Context, handle string) (string, error) {
	job, err := c.job(ctx, handle)
	if err != nil {
		return "", err
	}
	if job.Status != "completed" {
		return "", fmt.Errorf("transcribe: job %s not completed (status %s)", handle, job.Status)
	}
	return job.Text, nil
}

// Transcribe uploads an audio file and polls until the text is ready.
func (c *Client) Transcribe(ctx context.Context, path string) (string, error) {
	handle, err := c.Upload(ctx, path)
	if err != nil {
		return "", err
	}

	for i := 0; i < c.maxPolls; i++ {
		state, err := c.Status(ctx, handle)
		if err != nil {
			return "", err
		}
		switch state {
		case StateReady:
			return c.Text(ctx, handle)
		case StateFailed:
			return "", fmt.Errorf("transcribe: job %s failed", handle)
		}
		if err := c.sleep(ctx, c.pollInterval); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("transcribe: job %s timed out after %d polls", handle, c.maxPolls)
}

type jobResponse struct {
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

func (c *Client) job(ctx context.Context, handle string) (*jobResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transcript/"+handle, nil)
	if err != nil {
		return nil, fmt.Errorf("transcribe: create request: %w", err)
	}
	c.auth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcribe: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transcribe: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transcribe: api error (status %d): %s", resp.StatusCode, string(body))
	}

	var job jobResponse
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("transcribe: unmarshal response: %w", err)
	}
	return &job, nil
}

func (c *Client) post(ctx context.Context, path, contentType string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	c.auth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("api error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return json.Unmarshal(respBody, out)
}

func (c *Client) auth(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
