// internal/recognition/searcher_test.go
package recognition

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JourneytoNewland/chatBI-sub000/pkg/registry"
)

const searcherCatalog = `{
  "version": "1.0.0",
  "subjects": [
    {
      "id": "subj-gmv",
      "name": "GMV",
      "code": "gmv",
      "description": "Gross merchandise volume across all channels",
      "fact_table": "fact_sales",
      "value_column": "gmv",
      "synonyms": ["成交额", "交易额"]
    },
    {
      "id": "subj-dau",
      "name": "DAU",
      "code": "dau",
      "description": "Daily active users",
      "fact_table": "fact_user_activity",
      "value_column": "dau",
      "synonyms": ["日活"]
    },
    {
      "id": "subj-refund",
      "name": "退货率",
      "code": "refund_rate",
      "description": "Share of orders refunded",
      "fact_table": "fact_refunds",
      "value_column": "refund_rate"
    }
  ]
}`

func newSearcherRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.Parse([]byte(searcherCatalog))
	require.NoError(t, err)
	return reg
}

func TestRegistrySearcherScoreLadder(t *testing.T) {
	s := NewRegistrySearcher(newSearcherRegistry(t))
	ctx := context.Background()

	tests := []struct {
		name      string
		query     string
		wantFirst string
		wantScore float64
	}{
		{"exact name", "GMV", "GMV", 1.0},
		{"exact code", "dau", "DAU", 1.0},
		{"exact synonym", "成交额", "GMV", 0.98},
		{"name inside longer query", "GMV总和", "GMV", 0.85},
		{"synonym inside longer query", "日活数据", "DAU", 0.80},
		{"description overlap", "refunded", "退货率", 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Search(ctx, tt.query, 5)
			require.NoError(t, err)
			require.NotEmpty(t, got)
			assert.Equal(t, tt.wantFirst, got[0].Subject)
			assert.Equal(t, tt.wantScore, got[0].Score)
		})
	}
}

func TestRegistrySearcherBoundsAndMisses(t *testing.T) {
	s := NewRegistrySearcher(newSearcherRegistry(t))
	ctx := context.Background()

	got, err := s.Search(ctx, "毫无关联的文本", 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.Search(ctx, "", 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.Search(ctx, "GMV", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRegistrySearcherHonorsTopK(t *testing.T) {
	s := NewRegistrySearcher(newSearcherRegistry(t))

	got, err := s.Search(context.Background(), "a", 1)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(got), 1)
}

func TestRegistrySearcherRespectsCancelledContext(t *testing.T) {
	s := NewRegistrySearcher(newSearcherRegistry(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Search(ctx, "GMV", 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPSearcher(t *testing.T) {
	t.Run("decodes candidates", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/search/subjects", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"candidates":[{"subject":"GMV","score":0.91},{"subject":"DAU","score":0.40}]}`))
		}))
		defer srv.Close()

		s := NewHTTPSearcher(HTTPSearcherConfig{BaseURL: srv.URL, Timeout: time.Second})
		got, err := s.Search(context.Background(), "成交情况", 5)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "GMV", got[0].Subject)
		assert.Equal(t, 0.91, got[0].Score)
	})

	t.Run("retries transient server errors", func(t *testing.T) {
		var hits int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits++
			if hits == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Write([]byte(`{"candidates":[{"subject":"GMV","score":0.9}]}`))
		}))
		defer srv.Close()

		s := NewHTTPSearcher(HTTPSearcherConfig{BaseURL: srv.URL, Timeout: time.Second, MaxRetries: 2})
		got, err := s.Search(context.Background(), "GMV", 5)
		require.NoError(t, err)
		assert.Len(t, got, 1)
		assert.Equal(t, 2, hits)
	})

	t.Run("context expiry maps to timeout error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		s := NewHTTPSearcher(HTTPSearcherConfig{BaseURL: srv.URL, Timeout: time.Second})
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := s.Search(ctx, "GMV", 5)
		assert.ErrorIs(t, err, ErrSemanticTimeout)
	})

	t.Run("exhausted retries surface a search failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		s := NewHTTPSearcher(HTTPSearcherConfig{BaseURL: srv.URL, Timeout: time.Second, MaxRetries: 1})
		_, err := s.Search(context.Background(), "GMV", 5)
		assert.ErrorIs(t, err, ErrSemanticSearchFailed)
	})
}
