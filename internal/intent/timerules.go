// internal/intent/timerules.go
package intent

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// timeRule is one entry in the ordered time-expression table. The first
// rule whose pattern matches wins; later rules are never consulted for
// the same query. resolve receives the reference clock and the regexp
// submatches and returns the resolved range (nil when the rule only
// fixes a granularity, as for "realtime").
type timeRule struct {
	name        string
	pattern     *regexp.Regexp
	granularity TimeGranularity
	resolve     func(now time.Time, match []string) *TimeRange
}

var monthNames = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June, "july": time.July,
	"august": time.August, "september": time.September, "october": time.October,
	"november": time.November, "december": time.December,
}

// timeRules is ordered from most to least specific: absolute
// expressions, then offset-relative, then zero-offset periods.
var timeRules = []timeRule{
	{
		name:        "absolute-year-month",
		pattern:     regexp.MustCompile(`(\d{4})年(\d{1,2})月`),
		granularity: GranularityMonth,
		resolve: func(now time.Time, m []string) *TimeRange {
			year, _ := strconv.Atoi(m[1])
			month, _ := strconv.Atoi(m[2])
			return monthRange(year, time.Month(month), now.Location())
		},
	},
	{
		name:        "absolute-month-name",
		pattern:     regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{4})\b`),
		granularity: GranularityMonth,
		resolve: func(now time.Time, m []string) *TimeRange {
			year, _ := strconv.Atoi(m[2])
			return monthRange(year, monthNames[strings.ToLower(m[1])], now.Location())
		},
	},
	{
		name:        "absolute-year",
		pattern:     regexp.MustCompile(`(\d{4})年|(?i)\b(?:in|year|during)\s+(\d{4})\b`),
		granularity: GranularityYear,
		resolve: func(now time.Time, m []string) *TimeRange {
			digits := m[1]
			if digits == "" {
				digits = m[2]
			}
			year, _ := strconv.Atoi(digits)
			start := time.Date(year, time.January, 1, 0, 0, 0, 0, now.Location())
			end := time.Date(year, time.December, 31, 23, 59, 59, 0, now.Location())
			return &TimeRange{Start: start, End: end}
		},
	},
	{
		name:        "last-n-days",
		pattern:     regexp.MustCompile(`(?:最近|过去|近|前)(\d+)[天日]|(?i)\b(?:last|past|previous)\s+(\d+)\s+days?\b`),
		granularity: GranularityDay,
		resolve: func(now time.Time, m []string) *TimeRange {
			n := submatchInt(m)
			return &TimeRange{Start: now.AddDate(0, 0, -n), End: now}
		},
	},
	{
		name:        "last-n-weeks",
		pattern:     regexp.MustCompile(`(?:最近|过去|近)(\d+)个?周|(?i)\b(?:last|past|previous)\s+(\d+)\s+weeks?\b`),
		granularity: GranularityWeek,
		resolve: func(now time.Time, m []string) *TimeRange {
			n := submatchInt(m)
			return &TimeRange{Start: now.AddDate(0, 0, -7*n), End: now}
		},
	},
	{
		name:        "last-n-months",
		pattern:     regexp.MustCompile(`(?:最近|过去|近)(\d+)个月|(?i)\b(?:last|past|previous)\s+(\d+)\s+months?\b`),
		granularity: GranularityMonth,
		resolve: func(now time.Time, m []string) *TimeRange {
			n := submatchInt(m)
			return &TimeRange{Start: now.AddDate(0, -n, 0), End: now}
		},
	},
	{
		name:        "previous-month",
		pattern:     regexp.MustCompile(`上个?月|(?i)\blast month\b`),
		granularity: GranularityMonth,
		resolve: func(now time.Time, m []string) *TimeRange {
			prev := now.AddDate(0, -1, -now.Day()+1)
			return monthRange(prev.Year(), prev.Month(), now.Location())
		},
	},
	{
		name:        "previous-year",
		pattern:     regexp.MustCompile(`去年|(?i)\blast year\b`),
		granularity: GranularityYear,
		resolve: func(now time.Time, m []string) *TimeRange {
			year := now.Year() - 1
			start := time.Date(year, time.January, 1, 0, 0, 0, 0, now.Location())
			end := time.Date(year, time.December, 31, 23, 59, 59, 0, now.Location())
			return &TimeRange{Start: start, End: end}
		},
	},
	{
		name:        "previous-week",
		pattern:     regexp.MustCompile(`上周|上个?星期|(?i)\blast week\b`),
		granularity: GranularityWeek,
		resolve: func(now time.Time, m []string) *TimeRange {
			return weekRange(now.AddDate(0, 0, -7))
		},
	},
	{
		name:        "current-day",
		pattern:     regexp.MustCompile(`今天|今日|(?i)\btoday\b`),
		granularity: GranularityDay,
		resolve: func(now time.Time, m []string) *TimeRange {
			start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
			return &TimeRange{Start: start, End: start.AddDate(0, 0, 1).Add(-time.Second)}
		},
	},
	{
		name:        "current-week",
		pattern:     regexp.MustCompile(`本周|这周|这个?星期|(?i)\bthis week\b`),
		granularity: GranularityWeek,
		resolve: func(now time.Time, m []string) *TimeRange {
			return weekRange(now)
		},
	},
	{
		name:        "current-month",
		pattern:     regexp.MustCompile(`本月|这个月|当月|(?i)\bthis month\b`),
		granularity: GranularityMonth,
		resolve: func(now time.Time, m []string) *TimeRange {
			return monthRange(now.Year(), now.Month(), now.Location())
		},
	},
	{
		name:        "current-quarter",
		pattern:     regexp.MustCompile(`本季度?|这个季度|(?i)\bthis quarter\b`),
		granularity: GranularityQuarter,
		resolve: func(now time.Time, m []string) *TimeRange {
			quarter := (int(now.Month()) - 1) / 3
			start := time.Date(now.Year(), time.Month(quarter*3+1), 1, 0, 0, 0, 0, now.Location())
			end := start.AddDate(0, 3, 0).Add(-time.Second)
			return &TimeRange{Start: start, End: end}
		},
	},
	{
		name:        "current-year",
		pattern:     regexp.MustCompile(`今年|本年度?|(?i)\bthis year\b`),
		granularity: GranularityYear,
		resolve: func(now time.Time, m []string) *TimeRange {
			start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
			end := time.Date(now.Year(), time.December, 31, 23, 59, 59, 0, now.Location())
			return &TimeRange{Start: start, End: end}
		},
	},
	{
		name:        "realtime",
		pattern:     regexp.MustCompile(`实时|(?i)\breal[- ]?time\b`),
		granularity: GranularityRealtime,
		resolve: func(now time.Time, m []string) *TimeRange {
			return nil
		},
	},
}

// monthRange covers the whole calendar month. The end is computed as
// the first day of the next month minus one second, which stays correct
// across 28/29/30/31-day months.
func monthRange(year int, month time.Month, loc *time.Location) *TimeRange {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 1, 0).Add(-time.Second)
	return &TimeRange{Start: start, End: end}
}

// weekRange covers the ISO week of t, Monday 00:00:00 through Sunday
// 23:59:59.
func weekRange(t time.Time) *TimeRange {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	monday := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).AddDate(0, 0, -(weekday - 1))
	return &TimeRange{Start: monday, End: monday.AddDate(0, 0, 7).Add(-time.Second)}
}

// submatchInt returns the first non-empty numeric capture. Bilingual
// alternations leave the unmatched branch's group empty.
func submatchInt(m []string) int {
	for _, g := range m[1:] {
		if g != "" {
			n, err := strconv.Atoi(g)
			if err == nil {
				return n
			}
		}
	}
	return 0
}

// resolveTime walks the ordered rule table and resolves the first
// matching time expression. It returns the resolved range (possibly
// nil), the granularity, and the matched surface text so the caller can
// strip it from the query when deriving the core subject.
func resolveTime(now time.Time, query string) (*TimeRange, TimeGranularity, string) {
	for _, rule := range timeRules {
		m := rule.pattern.FindStringSubmatch(query)
		if m == nil {
			continue
		}
		return rule.resolve(now, m), rule.granularity, m[0]
	}
	return nil, "", ""
}
