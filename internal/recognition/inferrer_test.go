// internal/recognition/inferrer_test.go
package recognition

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPInferrerStructuredResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/parse-intent", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req inferRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "成交数据看一下", req.Query)
		assert.Len(t, req.Candidates, 1)

		w.Write([]byte(`{
			"subject": "GMV",
			"aggregation": "sum",
			"granularity": "day",
			"confidence": 0.87,
			"rationale": "query refers to merchandise volume",
			"usage": {"prompt_tokens": 120, "completion_tokens": 30, "total_tokens": 150}
		}`))
	}))
	defer srv.Close()

	inf := NewHTTPInferrer(HTTPInferrerConfig{BaseURL: srv.URL, APIKey: "secret", Timeout: time.Second})
	got, err := inf.Infer(context.Background(), "成交数据看一下", []Candidate{{Subject: "GMV", Score: 0.5}})
	require.NoError(t, err)
	assert.Equal(t, "GMV", got.Subject)
	assert.Equal(t, "sum", got.Aggregation)
	assert.Equal(t, 0.87, got.Confidence)
	assert.Equal(t, 150, got.Usage.TotalTokens)
}

func TestHTTPInferrerFencedCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content": "Here is the extraction:\n` + "```json\\n" +
			`{\"subject\": \"DAU\", \"confidence\": 0.8}` + "\\n```" + `"}`))
	}))
	defer srv.Close()

	inf := NewHTTPInferrer(HTTPInferrerConfig{BaseURL: srv.URL, Timeout: time.Second})
	got, err := inf.Infer(context.Background(), "日活", nil)
	require.NoError(t, err)
	assert.Equal(t, "DAU", got.Subject)
	assert.Equal(t, 0.8, got.Confidence)
}

func TestHTTPInferrerTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	inf := NewHTTPInferrer(HTTPInferrerConfig{BaseURL: srv.URL, Timeout: time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := inf.Infer(ctx, "GMV", nil)
	assert.ErrorIs(t, err, ErrInferenceTimeout)
}

func TestHTTPInferrerServerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	inf := NewHTTPInferrer(HTTPInferrerConfig{BaseURL: srv.URL, Timeout: time.Second, MaxRetries: 1})
	_, err := inf.Infer(context.Background(), "GMV", nil)
	assert.ErrorIs(t, err, ErrInferenceFailed)
}

func TestParseFencedInference(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{"plain json", `{"subject": "GMV"}`, "GMV", false},
		{"fenced json", "```json\n{\"subject\": \"GMV\"}\n```", "GMV", false},
		{"fence without language tag", "```\n{\"subject\": \"GMV\"}\n```", "GMV", false},
		{"prose around the object", "Sure! {\"subject\": \"GMV\"} Hope that helps.", "GMV", false},
		{"no object at all", "cannot extract anything", "", true},
		{"broken json", "{\"subject\": ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFencedInference(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Subject)
		})
	}
}
