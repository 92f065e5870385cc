// internal/recognition/layer.go

// Package recognition implements the tiered intent recognition ladder:
// rule patterns first, semantic subject retrieval second, generative
// inference last. Cheaper tiers short-circuit more expensive ones.
package recognition

import (
	"time"

	"github.com/JourneytoNewland/chatBI-sub000/internal/intent"
)

// Tier identifies one rung of the escalation ladder.
type Tier string

const (
	TierRule       Tier = "rule"
	TierSemantic   Tier = "semantic"
	TierGenerative Tier = "generative"
	// TierFallback marks a synthesized minimal intent produced after
	// every tier failed to clear its threshold.
	TierFallback Tier = "fallback"
)

// LayerResult is the outcome of one tier invocation. A tier that
// failed, timed out or panicked still yields a LayerResult, with
// Success false and Confidence zero.
type LayerResult struct {
	Tier       Tier                   `json:"tier"`
	Success    bool                   `json:"success"`
	Intent     *intent.QueryIntent    `json:"intent,omitempty"`
	Confidence float64                `json:"confidence"`
	Duration   time.Duration          `json:"duration"`
	Err        string                 `json:"error,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Usable reports whether this result carries an intent the orchestrator
// may consider at all, regardless of thresholds.
func (lr LayerResult) Usable() bool {
	return lr.Success && lr.Intent != nil
}

// Result is the orchestrator's answer for one query.
type Result struct {
	Query      string              `json:"query"`
	Intent     *intent.QueryIntent `json:"intent"`
	Source     Tier                `json:"source"`
	Confidence float64             `json:"confidence"`
	Layers     []LayerResult       `json:"layers"`
	Duration   time.Duration       `json:"duration"`
}
