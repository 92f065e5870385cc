// internal/recognition/inferrer.go
package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	ErrInferenceFailed  = errors.New("LLM_INFERENCE_FAILED")
	ErrInferenceTimeout = errors.New("LLM_TIMEOUT")
)

// Inference is the model's structured reading of a query. Fields arrive
// as free-form strings and are mapped onto the closed intent sets by
// the orchestrator; an unparsable field degrades to unset, never to an
// error.
type Inference struct {
	Subject        string            `json:"subject"`
	TimeDescriptor string            `json:"time_descriptor,omitempty"`
	Granularity    string            `json:"granularity,omitempty"`
	Aggregation    string            `json:"aggregation,omitempty"`
	Dimensions     []string          `json:"dimensions,omitempty"`
	Comparison     string            `json:"comparison,omitempty"`
	Filters        map[string]string `json:"filters,omitempty"`
	Confidence     float64           `json:"confidence"`
	Rationale      string            `json:"rationale,omitempty"`
	Usage          TokenUsage        `json:"usage,omitempty"`
}

// TokenUsage reports model token consumption for cost tracking.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// GenerativeInferrer is the last-resort recognition collaborator. The
// candidate list from tier 2, when present, narrows the model's choice
// of subject.
type GenerativeInferrer interface {
	Infer(ctx context.Context, query string, candidates []Candidate) (*Inference, error)
}

// HTTPInferrerConfig configures the reasoning service client.
type HTTPInferrerConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// HTTPInferrer calls the reasoning gateway, which wraps the LLM with
// the few-shot intent extraction prompt.
type HTTPInferrer struct {
	config HTTPInferrerConfig
	client *http.Client
}

func NewHTTPInferrer(config HTTPInferrerConfig) *HTTPInferrer {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &HTTPInferrer{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

type inferRequest struct {
	Query      string      `json:"query"`
	Candidates []Candidate `json:"candidates,omitempty"`
	Model      string      `json:"model,omitempty"`
}

func (i *HTTPInferrer) Infer(ctx context.Context, query string, candidates []Candidate) (*Inference, error) {
	body, err := json.Marshal(inferRequest{Query: query, Candidates: candidates, Model: i.config.Model})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInferenceFailed, err)
	}

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= i.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(200*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ErrInferenceTimeout
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			i.config.BaseURL+"/api/ai/parse-intent", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInferenceFailed, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if i.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+i.config.APIKey)
		}

		resp, lastErr = i.client.Do(req)

		if ctx.Err() != nil ||
			errors.Is(lastErr, context.DeadlineExceeded) ||
			errors.Is(lastErr, context.Canceled) {
			return nil, ErrInferenceTimeout
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
		return nil, fmt.Errorf("%w: %v", ErrInferenceFailed, lastErr)
	}
	defer resp.Body.Close()

	var raw struct {
		Content string `json:"content"`
		Inference
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrInferenceFailed, err)
	}

	// Some gateway deployments proxy the raw model completion instead
	// of parsed fields; in that case the JSON payload hides inside a
	// markdown fence.
	if raw.Content != "" && raw.Subject == "" {
		parsed, err := parseFencedInference(raw.Content)
		if err != nil {
			return nil, err
		}
		return parsed, nil
	}

	inference := raw.Inference
	return &inference, nil
}

// parseFencedInference extracts the first JSON object from a model
// completion, tolerating ```json fences around it.
func parseFencedInference(content string) (*Inference, error) {
	text := strings.TrimSpace(content)
	if idx := strings.Index(text, "```"); idx >= 0 {
		text = text[idx+3:]
		text = strings.TrimPrefix(text, "json")
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	}
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object in completion", ErrInferenceFailed)
	}

	var inference Inference
	if err := json.Unmarshal([]byte(text[start:end+1]), &inference); err != nil {
		return nil, fmt.Errorf("%w: parse completion: %v", ErrInferenceFailed, err)
	}
	return &inference, nil
}
