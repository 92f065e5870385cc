// internal/mql/generator.go
package mql

import (
	"strings"

	"github.com/JourneytoNewland/chatBI-sub000/internal/intent"
)

// operatorByAggregation maps recognized aggregation facets onto
// canonical operators. Absent aggregation falls through to OpSelect.
var operatorByAggregation = map[intent.AggregationType]Operator{
	intent.AggregationSum:   OpSum,
	intent.AggregationAvg:   OpAvg,
	intent.AggregationCount: OpCount,
	intent.AggregationMax:   OpMax,
	intent.AggregationMin:   OpMin,
	intent.AggregationRate:  OpRate,
	intent.AggregationRatio: OpRatio,
}

var comparisonByMode = map[intent.ComparisonMode]Comparison{
	intent.ComparisonYearOverYear:   ComparisonYoY,
	intent.ComparisonMonthOverMonth: ComparisonMoM,
	intent.ComparisonWeekOverWeek:   ComparisonWoW,
	intent.ComparisonDayOverDay:     ComparisonDoD,
}

// FromIntent lowers a recognized intent into a canonical query. The
// mapping is a pure projection: it reads the intent, writes the query,
// touches nothing else, and never fails. Facets the canonical model has
// no slot for (trend, freshness) are simply not carried.
func FromIntent(qi *intent.QueryIntent) *CanonicalQuery {
	q := &CanonicalQuery{
		Metric:   qi.CoreSubject,
		Operator: OpSelect,
	}

	if op, ok := operatorByAggregation[qi.Aggregation]; ok {
		q.Operator = op
	}

	if qi.TimeRange != nil {
		q.TimeWindow = &TimeWindow{Start: qi.TimeRange.Start, End: qi.TimeRange.End}
	}
	if qi.Granularity != "" && qi.Granularity != intent.GranularityRealtime {
		q.Granularity = string(qi.Granularity)
	}

	if len(qi.Dimensions) > 0 {
		q.Dimensions = append([]string(nil), qi.Dimensions...)
	}

	// Of the free-form filters only "domain" has a warehouse column
	// behind it; the rest stay advisory.
	if domain, ok := qi.Filters["domain"]; ok {
		q.Filters = append(q.Filters, Filter{Field: "domain", Operator: "==", Value: domain})
	}
	for _, th := range qi.Thresholds {
		q.Filters = append(q.Filters, Filter{
			Field:    th.Metric,
			Operator: th.Operator,
			Value:    th.Value * unitScale(th.Unit),
		})
	}

	// An unknown comparison mode leaves the slot unset rather than
	// guessing.
	if cmp, ok := comparisonByMode[qi.Comparison]; ok {
		q.Comparison = cmp
	}

	if qi.Sort != nil {
		q.OrderBy = &Ordering{Metric: qi.Sort.Metric, Direction: string(qi.Sort.Order)}
		if qi.Sort.TopN != nil {
			n := *qi.Sort.TopN
			q.Limit = &n
		}
	}

	return q
}

// unitScale converts a magnitude unit kept verbatim on the threshold
// into a multiplier, so "100万" lowers to 1000000. Unknown units scale
// by one.
func unitScale(unit string) float64 {
	switch strings.ToLower(unit) {
	case "万":
		return 1e4
	case "亿":
		return 1e8
	case "万亿":
		return 1e12
	case "千", "k", "thousand":
		return 1e3
	case "m", "million":
		return 1e6
	case "b", "bn", "billion":
		return 1e9
	default:
		return 1
	}
}
