package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/deskbot-io/deskbot/pkg/protocol"
)

// HTTPService fetches the active client list from a JSON directory endpoint.
type HTTPService struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// HTTPOption configures an HTTPService.
type HTTPOption func(*HTTPService)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPService) { s.client = c }
}

// NewHTTPService creates a directory client for the given base URL.
func NewHTTPService(baseURL, apiKey string, opts ...HTTPOption) *HTTPService {
	s := &HTTPService{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type clientsResponse struct {
	Clients []protocol.Client `json:"clients"`
}

// ListActiveClients fetches GET {base}/clients?active=true.
func (s *HTTPService) ListActiveClients(ctx context.Context) ([]protocol.Client, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/clients?active=true", nil)
	if err != nil {
		return nil, fmt.Errorf("directory: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("directory: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory: api error (status %d): %s", resp.StatusCode, string(body))
	}

	var parsed clientsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("directory: unmarshal response: %w", err)
	}
	return parsed.Clients, nil
}
