// internal/recognition/orchestrator.go
package recognition

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JourneytoNewland/chatBI-sub000/internal/common/logger"
	"github.com/JourneytoNewland/chatBI-sub000/internal/intent"
)

// Config carries the escalation thresholds and tier timeouts. Zero
// values fall back to the defaults below.
type Config struct {
	// RuleThreshold gates acceptance of the pattern tier.
	RuleThreshold float64
	// SemanticThreshold gates acceptance of the retrieval tier.
	SemanticThreshold float64
	SemanticTimeout   time.Duration
	GenerativeTimeout time.Duration
	// TopK bounds the candidate list requested from semantic search.
	TopK int
}

const (
	defaultRuleThreshold     = 0.90
	defaultSemanticThreshold = 0.75
	defaultSemanticTimeout   = 3 * time.Second
	defaultGenerativeTimeout = 10 * time.Second
	defaultTopK              = 5
)

func (c Config) withDefaults() Config {
	if c.RuleThreshold <= 0 {
		c.RuleThreshold = defaultRuleThreshold
	}
	if c.SemanticThreshold <= 0 {
		c.SemanticThreshold = defaultSemanticThreshold
	}
	if c.SemanticTimeout <= 0 {
		c.SemanticTimeout = defaultSemanticTimeout
	}
	if c.GenerativeTimeout <= 0 {
		c.GenerativeTimeout = defaultGenerativeTimeout
	}
	if c.TopK <= 0 {
		c.TopK = defaultTopK
	}
	return c
}

// Orchestrator runs the three recognition tiers in strictly escalating
// order. A tier that clears its threshold short-circuits everything
// more expensive; a tier that fails, times out or panics contributes a
// zero-confidence layer result and never aborts the request.
type Orchestrator struct {
	config   Config
	rules    *intent.Recognizer
	searcher SemanticSearcher
	inferrer GenerativeInferrer
	stats    StatsSink
	logger   logger.Logger
}

// NewOrchestrator wires the ladder. searcher and inferrer may be nil;
// their tiers then always report failure and escalation moves on.
func NewOrchestrator(
	config Config,
	rules *intent.Recognizer,
	searcher SemanticSearcher,
	inferrer GenerativeInferrer,
	stats StatsSink,
	log logger.Logger,
) *Orchestrator {
	if stats == nil {
		stats = NewMemorySink()
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Orchestrator{
		config:   config.withDefaults(),
		rules:    rules,
		searcher: searcher,
		inferrer: inferrer,
		stats:    stats,
		logger:   log,
	}
}

// Recognize maps free text to an intent. It is total: every input
// yields a non-nil result with a non-nil intent, even when all three
// tiers fail.
func (o *Orchestrator) Recognize(ctx context.Context, query string) *Result {
	start := time.Now()
	o.stats.RecordAttempt()

	result := &Result{Query: query}

	ruleLayer := o.runTier(TierRule, func() (LayerResult, error) {
		qi := o.rules.Recognize(query)
		return LayerResult{Success: true, Intent: qi, Confidence: o.rules.Confidence(qi)}, nil
	})
	result.Layers = append(result.Layers, ruleLayer)
	if ruleLayer.Usable() && ruleLayer.Confidence >= o.config.RuleThreshold {
		return o.accept(result, ruleLayer, start)
	}

	semanticLayer, candidates := o.runSemantic(ctx, query, ruleLayer)
	result.Layers = append(result.Layers, semanticLayer)
	if semanticLayer.Usable() && semanticLayer.Confidence >= o.config.SemanticThreshold {
		return o.accept(result, semanticLayer, start)
	}

	generativeLayer := o.runGenerative(ctx, query, candidates, ruleLayer)
	result.Layers = append(result.Layers, generativeLayer)
	if generativeLayer.Usable() {
		return o.accept(result, generativeLayer, start)
	}

	return o.fallback(result, start)
}

func (o *Orchestrator) accept(result *Result, layer LayerResult, start time.Time) *Result {
	o.stats.RecordAcceptance(layer.Tier)
	result.Intent = layer.Intent
	result.Source = layer.Tier
	result.Confidence = layer.Confidence
	result.Duration = time.Since(start)
	o.logger.Debug("intent recognized", map[string]interface{}{
		"tier":       string(layer.Tier),
		"confidence": layer.Confidence,
		"subject":    layer.Intent.CoreSubject,
	})
	return result
}

// fallback picks the most confident intent any tier produced; when
// nothing usable exists it synthesizes a minimal intent carrying only
// the trimmed query as subject.
func (o *Orchestrator) fallback(result *Result, start time.Time) *Result {
	o.stats.RecordFallback()

	var best *LayerResult
	for i := range result.Layers {
		lr := &result.Layers[i]
		if !lr.Usable() {
			continue
		}
		if best == nil || lr.Confidence > best.Confidence {
			best = lr
		}
	}

	if best != nil {
		result.Intent = best.Intent
		result.Source = best.Tier
		result.Confidence = best.Confidence
	} else {
		result.Intent = &intent.QueryIntent{
			Query:       result.Query,
			CoreSubject: strings.TrimSpace(result.Query),
		}
		result.Source = TierFallback
		result.Confidence = 0
	}
	result.Duration = time.Since(start)
	o.logger.Warn("no tier cleared its threshold", map[string]interface{}{
		"query":  result.Query,
		"source": string(result.Source),
	})
	return result
}

// runTier times one tier and absorbs its panics into a failed layer
// result.
func (o *Orchestrator) runTier(tier Tier, fn func() (LayerResult, error)) (lr LayerResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			lr = LayerResult{Tier: tier, Err: fmt.Sprintf("panic: %v", r)}
			o.logger.Error("recognition tier panicked", map[string]interface{}{
				"tier":  string(tier),
				"panic": fmt.Sprintf("%v", r),
			})
		}
		lr.Tier = tier
		lr.Duration = time.Since(start)
		o.stats.RecordTierDuration(tier, lr.Duration)
	}()

	lr, err := fn()
	if err != nil {
		lr = LayerResult{Tier: tier, Err: err.Error()}
	}
	return lr
}

// runSemantic invokes tier 2 under its timeout. The returned candidate
// list is forwarded to tier 3 even when tier 2 fails its threshold,
// since a weak shortlist still narrows the model's search space.
func (o *Orchestrator) runSemantic(ctx context.Context, query string, ruleLayer LayerResult) (LayerResult, []Candidate) {
	var candidates []Candidate
	layer := o.runTier(TierSemantic, func() (LayerResult, error) {
		if o.searcher == nil {
			return LayerResult{Err: "semantic searcher not configured"}, nil
		}
		tierCtx, cancel := context.WithTimeout(ctx, o.config.SemanticTimeout)
		defer cancel()

		found, err := o.searcher.Search(tierCtx, query, o.config.TopK)
		if err != nil {
			return LayerResult{}, err
		}
		if len(found) == 0 {
			return LayerResult{Err: "no candidates"}, nil
		}
		candidates = found

		// The retrieval tier reuses the rule tier's facets and replaces
		// the subject with the best-scoring catalog entry.
		qi := ruleLayer.Intent.Clone()
		if qi == nil {
			qi = &intent.QueryIntent{Query: query}
		}
		qi.CoreSubject = found[0].Subject
		return LayerResult{
			Success:    true,
			Intent:     qi,
			Confidence: clamp01(found[0].Score),
			Metadata:   map[string]interface{}{"candidates": found},
		}, nil
	})
	return layer, candidates
}

// runGenerative invokes tier 3 under its timeout and maps the model's
// free-form fields onto the closed intent sets.
func (o *Orchestrator) runGenerative(ctx context.Context, query string, candidates []Candidate, ruleLayer LayerResult) LayerResult {
	return o.runTier(TierGenerative, func() (LayerResult, error) {
		if o.inferrer == nil {
			return LayerResult{Err: "generative inferrer not configured"}, nil
		}
		tierCtx, cancel := context.WithTimeout(ctx, o.config.GenerativeTimeout)
		defer cancel()

		inference, err := o.inferrer.Infer(tierCtx, query, candidates)
		if err != nil {
			return LayerResult{}, err
		}
		if inference == nil || inference.Subject == "" {
			return LayerResult{Err: "inference carried no subject"}, nil
		}

		qi := o.intentFromInference(query, inference, ruleLayer)
		return LayerResult{
			Success:    true,
			Intent:     qi,
			Confidence: clamp01(inference.Confidence),
			Metadata: map[string]interface{}{
				"rationale":    inference.Rationale,
				"total_tokens": inference.Usage.TotalTokens,
			},
		}, nil
	})
}

// intentFromInference overlays the model's answer on the rule tier's
// reading. Unparsable enum fields stay at the rule tier's value.
func (o *Orchestrator) intentFromInference(query string, inf *Inference, ruleLayer LayerResult) *intent.QueryIntent {
	var qi *intent.QueryIntent
	if ruleLayer.Intent != nil {
		qi = ruleLayer.Intent.Clone()
	} else {
		qi = &intent.QueryIntent{Query: query}
	}
	qi.CoreSubject = inf.Subject

	if agg := intent.ParseAggregation(inf.Aggregation); agg != "" {
		qi.Aggregation = agg
	}
	if gran := intent.ParseGranularity(inf.Granularity); gran != "" {
		qi.Granularity = gran
	}
	if cmp := intent.ParseComparison(inf.Comparison); cmp != "" {
		qi.Comparison = cmp
	}
	if len(inf.Dimensions) > 0 {
		qi.Dimensions = append([]string(nil), inf.Dimensions...)
	}
	if inf.TimeDescriptor != "" {
		// The descriptor is plain text ("last 7 days"); the time rule
		// table resolves it the same way it resolves raw queries.
		if resolved := o.rules.Recognize(inf.TimeDescriptor); resolved.TimeRange != nil {
			qi.TimeRange = resolved.TimeRange
			qi.Granularity = resolved.Granularity
		}
	}
	if len(inf.Filters) > 0 {
		if qi.Filters == nil {
			qi.Filters = make(map[string]string, len(inf.Filters))
		}
		for k, v := range inf.Filters {
			qi.Filters[k] = v
		}
	}
	return qi
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
