// internal/recognition/searcher.go
package recognition

import (
	"context"
	"sort"
	"strings"

	"github.com/JourneytoNewland/chatBI-sub000/pkg/registry"
)

// Candidate is one subject proposed by semantic retrieval, scored in
// [0,1].
type Candidate struct {
	Subject     string  `json:"subject"`
	Code        string  `json:"code,omitempty"`
	Description string  `json:"description,omitempty"`
	Score       float64 `json:"score"`
}

// SemanticSearcher retrieves candidate subjects for a free-text query.
// Implementations are network-bound or index-bound; the orchestrator
// bounds every call with a timeout and treats errors as an ordinary
// tier failure.
type SemanticSearcher interface {
	Search(ctx context.Context, query string, topK int) ([]Candidate, error)
}

// RegistrySearcher is the in-process keyword fallback: it scores
// catalog subjects by lexical overlap with the query. It needs no
// external service and is the default searcher when neither the vector
// service nor Elasticsearch is configured.
type RegistrySearcher struct {
	registry *registry.Registry
}

func NewRegistrySearcher(reg *registry.Registry) *RegistrySearcher {
	return &RegistrySearcher{registry: reg}
}

// Search scores every registered subject and returns the topK best
// hits, highest score first. The score ladder rewards exact alias
// matches over containment over description overlap.
func (s *RegistrySearcher) Search(ctx context.Context, query string, topK int) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || topK <= 0 {
		return nil, nil
	}

	var out []Candidate
	for _, subject := range s.registry.Subjects() {
		score := scoreSubject(q, subject)
		if score <= 0 {
			continue
		}
		out = append(out, Candidate{
			Subject:     subject.Name,
			Code:        subject.Code,
			Description: subject.Description,
			Score:       score,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Subject < out[j].Subject
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func scoreSubject(q string, subject registry.Subject) float64 {
	name := strings.ToLower(subject.Name)
	code := strings.ToLower(subject.Code)

	if q == name || q == code {
		return 1.0
	}
	for _, syn := range subject.Synonyms {
		if q == strings.ToLower(syn) {
			return 0.98
		}
	}
	if strings.Contains(q, name) || strings.Contains(name, q) {
		return 0.85
	}
	for _, syn := range subject.Synonyms {
		ls := strings.ToLower(syn)
		if strings.Contains(q, ls) || strings.Contains(ls, q) {
			return 0.80
		}
	}
	if desc := strings.ToLower(subject.Description); desc != "" && strings.Contains(desc, q) {
		return 0.75
	}
	return 0
}
