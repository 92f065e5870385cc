// internal/mql/generator_test.go
package mql

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JourneytoNewland/chatBI-sub000/internal/intent"
)

func TestFromIntentOperators(t *testing.T) {
	tests := []struct {
		agg  intent.AggregationType
		want Operator
	}{
		{intent.AggregationSum, OpSum},
		{intent.AggregationAvg, OpAvg},
		{intent.AggregationCount, OpCount},
		{intent.AggregationMax, OpMax},
		{intent.AggregationMin, OpMin},
		{intent.AggregationRate, OpRate},
		{intent.AggregationRatio, OpRatio},
		{"", OpSelect},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			q := FromIntent(&intent.QueryIntent{CoreSubject: "GMV", Aggregation: tt.agg})
			assert.Equal(t, tt.want, q.Operator)
			assert.Equal(t, "GMV", q.Metric)
		})
	}
}

func TestFromIntentCarriesTimeAndDimensions(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)

	qi := &intent.QueryIntent{
		CoreSubject: "GMV",
		Aggregation: intent.AggregationSum,
		TimeRange:   &intent.TimeRange{Start: start, End: end},
		Granularity: intent.GranularityMonth,
		Dimensions:  []string{"region", "channel"},
		Comparison:  intent.ComparisonYearOverYear,
	}

	q := FromIntent(qi)
	require.NotNil(t, q.TimeWindow)
	assert.Equal(t, start, q.TimeWindow.Start)
	assert.Equal(t, end, q.TimeWindow.End)
	assert.Equal(t, "month", q.Granularity)
	assert.Equal(t, []string{"region", "channel"}, q.Dimensions)
	assert.Equal(t, ComparisonYoY, q.Comparison)

	// The dimension slice is a copy, not an alias.
	q.Dimensions[0] = "mutated"
	assert.Equal(t, "region", qi.Dimensions[0])
}

func TestFromIntentUnknownComparisonStaysUnset(t *testing.T) {
	q := FromIntent(&intent.QueryIntent{CoreSubject: "GMV", Comparison: "sideways"})
	assert.Empty(t, q.Comparison)
}

func TestFromIntentFilters(t *testing.T) {
	t.Run("domain filter lowers, freshness does not", func(t *testing.T) {
		q := FromIntent(&intent.QueryIntent{
			CoreSubject: "GMV",
			Filters:     map[string]string{"domain": "电商", "freshness": "realtime"},
		})
		require.Len(t, q.Filters, 1)
		assert.Equal(t, Filter{Field: "domain", Operator: "==", Value: "电商"}, q.Filters[0])
	})

	t.Run("thresholds lower with unit scaling", func(t *testing.T) {
		q := FromIntent(&intent.QueryIntent{
			CoreSubject: "GMV",
			Thresholds: []intent.ThresholdFilter{
				{Metric: "GMV", Operator: ">", Value: 100, Unit: "万"},
				{Metric: "orders", Operator: "<=", Value: 500},
			},
		})
		require.Len(t, q.Filters, 2)
		assert.Equal(t, 1000000.0, q.Filters[0].Value)
		assert.Equal(t, ">", q.Filters[0].Operator)
		assert.Equal(t, 500.0, q.Filters[1].Value)
	})
}

func TestFromIntentSort(t *testing.T) {
	n := 10
	q := FromIntent(&intent.QueryIntent{
		CoreSubject: "GMV",
		Sort:        &intent.SortRequirement{TopN: &n, Order: intent.SortDescending, Metric: "GMV"},
	})
	require.NotNil(t, q.OrderBy)
	assert.Equal(t, "desc", q.OrderBy.Direction)
	require.NotNil(t, q.Limit)
	assert.Equal(t, 10, *q.Limit)

	q = FromIntent(&intent.QueryIntent{CoreSubject: "GMV"})
	assert.Nil(t, q.OrderBy)
	assert.Nil(t, q.Limit)
}

func TestFromIntentIsPure(t *testing.T) {
	qi := intent.NewRecognizerAt(func() time.Time {
		return time.Date(2024, 5, 15, 10, 30, 0, 0, time.UTC)
	}).Recognize("最近7天按地区的GMV总和前10名")

	before := qi.String()
	_ = FromIntent(qi)
	assert.Equal(t, before, qi.String(), "lowering must not mutate the intent")
}

func TestAggregated(t *testing.T) {
	window := &TimeWindow{Start: time.Now().AddDate(0, 0, -7), End: time.Now()}

	tests := []struct {
		name string
		q    CanonicalQuery
		want bool
	}{
		{"explicit aggregation", CanonicalQuery{Operator: OpSum}, true},
		{"raw select", CanonicalQuery{Operator: OpSelect}, false},
		{"select with dimensions", CanonicalQuery{Operator: OpSelect, Dimensions: []string{"region"}}, true},
		{"select with window and granularity", CanonicalQuery{Operator: OpSelect, TimeWindow: window, Granularity: "day"}, true},
		{"select with window only", CanonicalQuery{Operator: OpSelect, TimeWindow: window}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.q.Aggregated())
		})
	}
}

func TestCanonicalQueryString(t *testing.T) {
	n := 5
	q := &CanonicalQuery{
		Metric:     "GMV",
		Operator:   OpSum,
		Dimensions: []string{"region"},
		TimeWindow: &TimeWindow{
			Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC),
		},
		Filters: []Filter{{Field: "domain", Operator: "==", Value: "电商"}},
		OrderBy: &Ordering{Metric: "GMV", Direction: "desc"},
		Limit:   &n,
	}
	assert.Equal(t,
		"SUM(GMV) BY region FROM 2024-03-01 TO 2024-03-31 WHERE domain == 电商 ORDER GMV desc LIMIT 5",
		q.String())
}
