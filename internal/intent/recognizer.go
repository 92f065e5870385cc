// internal/intent/recognizer.go
package intent

import (
	"strings"
	"time"
)

// Recognizer extracts a QueryIntent from raw query text using the
// ordered rule tables in this package. It holds no mutable state and is
// safe for concurrent use.
type Recognizer struct {
	clock func() time.Time
}

// NewRecognizer returns a Recognizer that resolves relative time
// expressions against the wall clock.
func NewRecognizer() *Recognizer {
	return &Recognizer{clock: time.Now}
}

// NewRecognizerAt pins the reference clock, so ranges like "last 7
// days" resolve deterministically.
func NewRecognizerAt(clock func() time.Time) *Recognizer {
	return &Recognizer{clock: clock}
}

// Recognize reads every facet it can from query. It is total: any
// input, including the empty string, yields a non-nil intent with the
// unrecognized facets left unset. Facets are independent, so a failure
// to read one never suppresses another.
func (r *Recognizer) Recognize(query string) *QueryIntent {
	qi := &QueryIntent{Query: query}
	now := r.clock()

	timeRange, granularity, timeText := resolveTime(now, query)
	qi.TimeRange = timeRange
	qi.Granularity = granularity

	for _, rule := range aggregationRules {
		if rule.pattern.MatchString(query) {
			qi.Aggregation = rule.agg
			break
		}
	}

	for _, rule := range comparisonRules {
		if rule.pattern.MatchString(query) {
			qi.Comparison = rule.mode
			break
		}
	}

	seenDim := make(map[string]bool)
	for _, rule := range dimensionRules {
		if rule.pattern.MatchString(query) && !seenDim[rule.name] {
			seenDim[rule.name] = true
			qi.Dimensions = append(qi.Dimensions, rule.name)
		}
	}

	// A trend word at the very start of the query has no metric in
	// front of it to describe, so it is not read as a trend request.
	for _, rule := range trendRules {
		if loc := rule.pattern.FindStringIndex(query); loc != nil && loc[0] > 0 {
			qi.Trend = rule.trend
			break
		}
	}

	qi.Thresholds = extractThresholds(query)

	for _, rule := range filterRules {
		if rule.pattern.MatchString(query) {
			if qi.Filters == nil {
				qi.Filters = make(map[string]string)
			}
			if _, ok := qi.Filters[rule.key]; !ok {
				qi.Filters[rule.key] = rule.value
			}
		}
	}

	qi.CoreSubject = deriveCoreSubject(query, timeText)

	// Sort matching runs on the query with the time expression removed,
	// so "前7天" is never misread as a "前N" ranking.
	sortSource := query
	if timeText != "" {
		sortSource = strings.Replace(sortSource, timeText, "", 1)
	}
	for _, rule := range sortRules {
		m := rule.pattern.FindStringSubmatch(sortSource)
		if m == nil {
			continue
		}
		sort := &SortRequirement{Order: rule.order, Metric: qi.CoreSubject}
		if rule.bounded {
			if n := submatchInt(m); n > 0 {
				sort.TopN = &n
			}
		}
		qi.Sort = sort
		break
	}

	return qi
}

// deriveCoreSubject strips the matched time expression and filler
// phrases from the query. When nothing recognizable remains, the raw
// query stands in as the subject.
func deriveCoreSubject(query, timeText string) string {
	residual := query
	if timeText != "" {
		residual = strings.Replace(residual, timeText, "", 1)
	}
	for {
		next := leadingFiller.ReplaceAllString(residual, "")
		next = trailingFiller.ReplaceAllString(next, "")
		next = strings.TrimSpace(next)
		if next == residual {
			break
		}
		residual = next
	}
	if residual == "" {
		return strings.TrimSpace(query)
	}
	return residual
}

// Confidence scores a rule-extracted intent. The base acknowledges that
// the rule tables fired at all; each recognized facet adds a fixed
// increment, and the sum is capped at 1.0.
func (r *Recognizer) Confidence(qi *QueryIntent) float64 {
	if qi == nil {
		return 0
	}
	score := 0.5
	if qi.CoreSubject != "" && strings.Contains(qi.Query, qi.CoreSubject) {
		score += 0.2
	}
	if qi.TimeRange != nil {
		score += 0.15
	}
	if qi.Aggregation != "" {
		score += 0.1
	}
	if len(qi.Dimensions) > 0 {
		score += 0.1
	}
	if qi.CoreSubject != "" && len([]rune(qi.CoreSubject))*2 < len([]rune(qi.Query)) {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
