// internal/recognition/elastic.go
package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticSearcher retrieves candidate subjects from an Elasticsearch
// index of the catalog. It is the keyword middle ground between the
// pure in-process RegistrySearcher and the vector service.
type ElasticSearcher struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticSearcher(client *elasticsearch.Client, index string) *ElasticSearcher {
	if index == "" {
		index = "subject-catalog"
	}
	return &ElasticSearcher{client: client, index: index}
}

type esHit struct {
	Score  float64 `json:"_score"`
	Source struct {
		Name        string `json:"name"`
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"_source"`
}

type esSearchResponse struct {
	Hits struct {
		MaxScore float64 `json:"max_score"`
		Hits     []esHit `json:"hits"`
	} `json:"hits"`
}

// Search issues a multi_match over name, synonyms and description.
// Elasticsearch scores are unbounded, so each hit is scaled against
// max_score and capped at 0.95 to keep exact rule matches ahead of
// keyword retrieval.
func (s *ElasticSearcher) Search(ctx context.Context, query string, topK int) ([]Candidate, error) {
	if topK <= 0 {
		return nil, nil
	}

	body := map[string]interface{}{
		"size": topK,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"name^3", "synonyms^2", "code^2", "description"},
			},
		},
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSemanticSearchFailed, err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(encoded)),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ErrSemanticTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrSemanticSearchFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrSemanticSearchFailed, res.Status())
	}

	var decoded esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSemanticSearchFailed, err)
	}

	maxScore := decoded.Hits.MaxScore
	if maxScore <= 0 {
		return nil, nil
	}
	out := make([]Candidate, 0, len(decoded.Hits.Hits))
	for _, hit := range decoded.Hits.Hits {
		out = append(out, Candidate{
			Subject:     hit.Source.Name,
			Code:        hit.Source.Code,
			Description: hit.Source.Description,
			Score:       0.95 * hit.Score / maxScore,
		})
	}
	return out, nil
}
