package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Summarizer converts a scraped plain-text description into markdown. The
// backing service is an external AI vendor treated as opaque: a prompt goes
// in, JSON comes out.
type Summarizer interface {
	Summarize(ctx context.Context, description string) (string, error)
}

// HTTPSummarizer calls the vendor's HTTP endpoint.
type HTTPSummarizer struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPSummarizer returns a summarizer for the given endpoint, or nil when
// the endpoint is unset (summaries disabled).
func NewHTTPSummarizer(endpoint, apiKey string) *HTTPSummarizer {
	if endpoint == "" {
		return nil
	}
	return &HTTPSummarizer{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type summarizeRequest struct {
	Text string `json:"text"`
}

type summarizeResponse struct {
	Markdown string `json:"markdown"`
}

func (s *HTTPSummarizer) Summarize(ctx context.Context, description string) (string, error) {
	payload, err := json.Marshal(summarizeRequest{Text: description})
	if err != nil {
		return "", fmt.Errorf("encode summarize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build summarize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("summarize request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("summarize request: unexpected status %d", resp.StatusCode)
	}

	var out summarizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode summarize response: %w", err)
	}
	return out.Markdown, nil
}
