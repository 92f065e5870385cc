// internal/intent/intent.go
package intent

import (
	"fmt"
	"strings"
	"time"
)

// TimeGranularity is the reporting granularity attached to a recognized
// time range. The empty string means no granularity was recognized.
type TimeGranularity string

const (
	GranularityHour     TimeGranularity = "hour"
	GranularityDay      TimeGranularity = "day"
	GranularityWeek     TimeGranularity = "week"
	GranularityMonth    TimeGranularity = "month"
	GranularityQuarter  TimeGranularity = "quarter"
	GranularityYear     TimeGranularity = "year"
	GranularityRealtime TimeGranularity = "realtime"
)

// AggregationType is the aggregation requested by the user.
// The empty string means no aggregation keyword was recognized.
type AggregationType string

const (
	AggregationSum   AggregationType = "sum"
	AggregationAvg   AggregationType = "avg"
	AggregationCount AggregationType = "count"
	AggregationMax   AggregationType = "max"
	AggregationMin   AggregationType = "min"
	AggregationRate  AggregationType = "rate"
	AggregationRatio AggregationType = "ratio"
)

// ComparisonMode names a period-over-period comparison.
type ComparisonMode string

const (
	ComparisonYearOverYear   ComparisonMode = "yoy"
	ComparisonMonthOverMonth ComparisonMode = "mom"
	ComparisonWeekOverWeek   ComparisonMode = "wow"
	ComparisonDayOverDay     ComparisonMode = "dod"
)

// TrendDirection names the trend the user asked about.
type TrendDirection string

const (
	TrendUpward      TrendDirection = "upward"
	TrendDownward    TrendDirection = "downward"
	TrendFluctuating TrendDirection = "fluctuating"
	TrendStable      TrendDirection = "stable"
)

// SortOrder is the direction of a ranking request.
type SortOrder string

const (
	SortDescending SortOrder = "desc"
	SortAscending  SortOrder = "asc"
)

// TimeRange is a closed interval resolved from a time expression.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the range, inclusive.
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.Start) && !t.After(tr.End)
}

func (tr TimeRange) String() string {
	return fmt.Sprintf("[%s, %s]", tr.Start.Format("2006-01-02 15:04:05"), tr.End.Format("2006-01-02 15:04:05"))
}

// SortRequirement captures a ranking request such as "top 10 by GMV".
// TopN is nil when the ranking is unbounded ("highest", "the top ones").
type SortRequirement struct {
	TopN   *int      `json:"top_n,omitempty"`
	Order  SortOrder `json:"order"`
	Metric string    `json:"metric,omitempty"`
}

// ThresholdFilter is a numeric comparison against a metric, e.g.
// "GMV > 1,000,000". Unit keeps the verbatim surface form ("万", "k")
// and is empty when no unit followed the number.
type ThresholdFilter struct {
	Metric   string  `json:"metric"`
	Operator string  `json:"operator"`
	Value    float64 `json:"value"`
	Unit     string  `json:"unit,omitempty"`
}

// QueryIntent is the structured reading of one natural-language query.
// Facets that were not recognized stay at their unset value: nil for
// pointer fields, "" for the enum types, empty slice or map otherwise.
type QueryIntent struct {
	Query       string            `json:"query"`
	CoreSubject string            `json:"core_subject"`
	TimeRange   *TimeRange        `json:"time_range,omitempty"`
	Granularity TimeGranularity   `json:"granularity,omitempty"`
	Aggregation AggregationType   `json:"aggregation,omitempty"`
	Dimensions  []string          `json:"dimensions,omitempty"`
	Comparison  ComparisonMode    `json:"comparison,omitempty"`
	Trend       TrendDirection    `json:"trend,omitempty"`
	Sort        *SortRequirement  `json:"sort,omitempty"`
	Thresholds  []ThresholdFilter `json:"thresholds,omitempty"`
	Filters     map[string]string `json:"filters,omitempty"`
}

// Clone returns a deep copy, so callers can amend one tier's intent
// without mutating another's.
func (qi *QueryIntent) Clone() *QueryIntent {
	if qi == nil {
		return nil
	}
	out := *qi
	if qi.TimeRange != nil {
		tr := *qi.TimeRange
		out.TimeRange = &tr
	}
	if qi.Sort != nil {
		s := *qi.Sort
		if qi.Sort.TopN != nil {
			n := *qi.Sort.TopN
			s.TopN = &n
		}
		out.Sort = &s
	}
	if len(qi.Dimensions) > 0 {
		out.Dimensions = append([]string(nil), qi.Dimensions...)
	}
	if len(qi.Thresholds) > 0 {
		out.Thresholds = append([]ThresholdFilter(nil), qi.Thresholds...)
	}
	if len(qi.Filters) > 0 {
		out.Filters = make(map[string]string, len(qi.Filters))
		for k, v := range qi.Filters {
			out.Filters[k] = v
		}
	}
	return &out
}

func (qi *QueryIntent) String() string {
	var parts []string
	parts = append(parts, "subject="+qi.CoreSubject)
	if qi.Aggregation != "" {
		parts = append(parts, "agg="+string(qi.Aggregation))
	}
	if qi.TimeRange != nil {
		parts = append(parts, "time="+qi.TimeRange.String())
	}
	if len(qi.Dimensions) > 0 {
		parts = append(parts, "dims="+strings.Join(qi.Dimensions, ","))
	}
	if qi.Comparison != "" {
		parts = append(parts, "cmp="+string(qi.Comparison))
	}
	return "QueryIntent{" + strings.Join(parts, " ") + "}"
}

// ParseGranularity maps a free-form granularity word onto the closed
// set, returning "" when the word is not recognized.
func ParseGranularity(s string) TimeGranularity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hour", "hourly", "小时":
		return GranularityHour
	case "day", "daily", "日", "天":
		return GranularityDay
	case "week", "weekly", "周":
		return GranularityWeek
	case "month", "monthly", "月":
		return GranularityMonth
	case "quarter", "quarterly", "季度":
		return GranularityQuarter
	case "year", "yearly", "annual", "年":
		return GranularityYear
	case "realtime", "real-time", "实时":
		return GranularityRealtime
	}
	return ""
}

// ParseAggregation maps a free-form aggregation word onto the closed
// set, returning "" when the word is not recognized.
func ParseAggregation(s string) AggregationType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sum", "total", "求和":
		return AggregationSum
	case "avg", "average", "mean", "平均":
		return AggregationAvg
	case "count", "计数":
		return AggregationCount
	case "max", "maximum", "最大":
		return AggregationMax
	case "min", "minimum", "最小":
		return AggregationMin
	case "rate", "增长率":
		return AggregationRate
	case "ratio", "占比":
		return AggregationRatio
	}
	return ""
}

// ParseComparison maps a free-form comparison word onto the closed set,
// returning "" when the word is not recognized.
func ParseComparison(s string) ComparisonMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yoy", "year-over-year", "同比":
		return ComparisonYearOverYear
	case "mom", "month-over-month", "环比":
		return ComparisonMonthOverMonth
	case "wow", "week-over-week", "周环比":
		return ComparisonWeekOverWeek
	case "dod", "day-over-day", "日环比":
		return ComparisonDayOverDay
	}
	return ""
}
