// internal/recognition/semantic_http.go
package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrSemanticSearchFailed = errors.New("SEMANTIC_SEARCH_FAILED")
	ErrSemanticTimeout      = errors.New("SEMANTIC_SEARCH_TIMEOUT")
)

// HTTPSearcherConfig configures the vector search service client.
type HTTPSearcherConfig struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// HTTPSearcher queries the embedding-based metric search service.
type HTTPSearcher struct {
	config HTTPSearcherConfig
	client *http.Client
}

func NewHTTPSearcher(config HTTPSearcherConfig) *HTTPSearcher {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	return &HTTPSearcher{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type searchResponse struct {
	Candidates []Candidate `json:"candidates"`
}

// Search posts the query to the vector service, retrying transient
// failures with exponential backoff. Context expiry surfaces as
// ErrSemanticTimeout so the orchestrator treats it like any other tier
// failure.
func (s *HTTPSearcher) Search(ctx context.Context, query string, topK int) ([]Candidate, error) {
	body, err := json.Marshal(searchRequest{Query: query, TopK: topK})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSemanticSearchFailed, err)
	}

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ErrSemanticTimeout
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			s.config.BaseURL+"/api/search/subjects", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSemanticSearchFailed, err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, lastErr = s.client.Do(req)

		if ctx.Err() != nil ||
			errors.Is(lastErr, context.DeadlineExceeded) ||
			errors.Is(lastErr, context.Canceled) {
			return nil, ErrSemanticTimeout
		}

		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrSemanticSearchFailed, lastErr)
	}
	defer resp.Body.Close()

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSemanticSearchFailed, err)
	}
	return decoded.Candidates, nil
}
