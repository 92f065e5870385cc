// internal/mql/query.go

// Package mql defines the canonical metric query: the engine-neutral
// contract between intent recognition and SQL compilation. A canonical
// query says what to measure, over which window, grouped and filtered
// how, and carries none of the phrasing of the original question.
package mql

import (
	"fmt"
	"strings"
	"time"
)

// Operator is the aggregation applied to the metric value. SELECT means
// no aggregation: the raw series is returned.
type Operator string

const (
	OpSelect Operator = "SELECT"
	OpSum    Operator = "SUM"
	OpAvg    Operator = "AVG"
	OpCount  Operator = "COUNT"
	OpMax    Operator = "MAX"
	OpMin    Operator = "MIN"
	OpRate   Operator = "RATE"
	OpRatio  Operator = "RATIO"
)

// Comparison names a period-over-period comparison on the result.
type Comparison string

const (
	ComparisonYoY Comparison = "yoy"
	ComparisonMoM Comparison = "mom"
	ComparisonWoW Comparison = "wow"
	ComparisonDoD Comparison = "dod"
)

// Filter is one predicate over a field. Value is either a string or a
// float64 depending on the source facet.
type Filter struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
}

// Ordering asks for the result to be sorted by the measured value.
type Ordering struct {
	Metric    string `json:"metric"`
	Direction string `json:"direction"` // "asc" or "desc"
}

// TimeWindow is the closed reporting interval of a canonical query.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// CanonicalQuery is the structured metric request handed to the SQL
// compiler. Optional parts are nil or empty when absent.
type CanonicalQuery struct {
	Metric      string      `json:"metric"`
	Operator    Operator    `json:"operator"`
	TimeWindow  *TimeWindow `json:"time_window,omitempty"`
	Granularity string      `json:"granularity,omitempty"`
	Dimensions  []string    `json:"dimensions,omitempty"`
	Filters     []Filter    `json:"filters,omitempty"`
	Comparison  Comparison  `json:"comparison,omitempty"`
	OrderBy     *Ordering   `json:"order_by,omitempty"`
	Limit       *int        `json:"limit,omitempty"`
}

// Aggregated reports whether the value column must be wrapped in an
// aggregate function. A raw SELECT still aggregates once grouping
// dimensions or a time granularity are in play.
func (q *CanonicalQuery) Aggregated() bool {
	if q.Operator != OpSelect {
		return true
	}
	if len(q.Dimensions) > 0 {
		return true
	}
	return q.TimeWindow != nil && q.Granularity != ""
}

// String renders a compact human-readable form for logs.
func (q *CanonicalQuery) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s(%s)", q.Operator, q.Metric)
	if len(q.Dimensions) > 0 {
		fmt.Fprintf(&b, " BY %s", strings.Join(q.Dimensions, ","))
	}
	if q.TimeWindow != nil {
		fmt.Fprintf(&b, " FROM %s TO %s",
			q.TimeWindow.Start.Format("2006-01-02"), q.TimeWindow.End.Format("2006-01-02"))
	}
	for i, f := range q.Filters {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		fmt.Fprintf(&b, "%s %s %v", f.Field, f.Operator, f.Value)
	}
	if q.Comparison != "" {
		fmt.Fprintf(&b, " COMPARE %s", q.Comparison)
	}
	if q.OrderBy != nil {
		fmt.Fprintf(&b, " ORDER %s %s", q.OrderBy.Metric, q.OrderBy.Direction)
	}
	if q.Limit != nil {
		fmt.Fprintf(&b, " LIMIT %d", *q.Limit)
	}
	return b.String()
}
