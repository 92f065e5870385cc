// internal/workers/bi/recognize-query-intent/models.go
package recognizequeryintent

import (
	"github.com/JourneytoNewland/chatBI-sub000/internal/intent"
	"github.com/JourneytoNewland/chatBI-sub000/internal/recognition"
)

type Input struct {
	Query     string `json:"query"`
	SessionID string `json:"sessionId,omitempty"`
}

type Output struct {
	// QueryID correlates this recognition with the downstream
	// compile and execute steps in process logs.
	QueryID       string                   `json:"queryId"`
	Intent        *intent.QueryIntent      `json:"intent"`
	ResolvedQuery string                   `json:"resolvedQuery"`
	Source        string                   `json:"source"`
	Confidence    float64                  `json:"confidence"`
	Layers        []recognition.LayerResult `json:"layers"`
}
