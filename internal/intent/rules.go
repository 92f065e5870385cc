// internal/intent/rules.go
package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// aggregationRules is ordered, first match wins. Rate and ratio come
// before sum so "增长率" is not swallowed by a broader keyword.
var aggregationRules = []struct {
	agg     AggregationType
	pattern *regexp.Regexp
}{
	{AggregationRate, regexp.MustCompile(`增长率|增长幅度|增速|(?i)\bgrowth rate\b`)},
	{AggregationRatio, regexp.MustCompile(`占比|比率|比例|(?i)\bratio\b|\bproportion\b|\bshare of\b`)},
	{AggregationAvg, regexp.MustCompile(`平均|人均|均值|(?i)\baverage\b|\bavg\b|\bmean\b|\bper capita\b`)},
	{AggregationCount, regexp.MustCompile(`计数|数量|个数|有多少|多少个|(?i)\bcount\b|\bhow many\b|\bnumber of\b`)},
	{AggregationMax, regexp.MustCompile(`最高|最大|峰值|(?i)\bmax(?:imum)?\b|\bhighest\b|\bpeak\b`)},
	{AggregationMin, regexp.MustCompile(`最低|最小|谷值|(?i)\bmin(?:imum)?\b|\blowest\b`)},
	{AggregationSum, regexp.MustCompile(`总和|总计|合计|总额|总数|汇总|(?i)\btotal\b|\bsum\b|\boverall\b`)},
}

// comparisonRules keeps the more specific period words ahead of 环比,
// which is a substring of both 周环比 and 日环比.
var comparisonRules = []struct {
	mode    ComparisonMode
	pattern *regexp.Regexp
}{
	{ComparisonYearOverYear, regexp.MustCompile(`同比|(?i)\byear[- ]over[- ]year\b|\byoy\b`)},
	{ComparisonDayOverDay, regexp.MustCompile(`日环比|(?i)\bday[- ]over[- ]day\b|\bdod\b`)},
	{ComparisonWeekOverWeek, regexp.MustCompile(`周环比|(?i)\bweek[- ]over[- ]week\b|\bwow\b`)},
	{ComparisonMonthOverMonth, regexp.MustCompile(`环比|(?i)\bmonth[- ]over[- ]month\b|\bmom\b`)},
}

// dimensionRules map surface keywords onto canonical dimension names.
// All matching rules contribute, in table order, one entry each.
var dimensionRules = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"region", regexp.MustCompile(`按地区|分地区|各地区|地区|(?i)\bby region\b|\bper region\b|\bregions?\b`)},
	{"category", regexp.MustCompile(`按品类|分品类|各品类|品类|类目|(?i)\bby category\b|\bper category\b|\bcategor(?:y|ies)\b`)},
	{"channel", regexp.MustCompile(`按渠道|分渠道|各渠道|渠道|(?i)\bby channel\b|\bper channel\b|\bchannels?\b`)},
	{"user_level", regexp.MustCompile(`按用户等级|用户等级|会员等级|(?i)\bby user level\b|\buser levels?\b`)},
	{"user", regexp.MustCompile(`按用户|分用户|各用户|(?i)\bby user\b|\bper user\b`)},
}

// trendRules is ordered, first match wins; conflicting trend words keep
// the earlier direction.
var trendRules = []struct {
	trend   TrendDirection
	pattern *regexp.Regexp
}{
	{TrendUpward, regexp.MustCompile(`上升|上涨|攀升|增长趋势|走高|(?i)\brising\b|\bupward\b|\bincreasing\b|\bgrowing\b`)},
	{TrendDownward, regexp.MustCompile(`下降|下跌|下滑|降低|走低|(?i)\bfalling\b|\bdownward\b|\bdeclining\b|\bdropping\b`)},
	{TrendFluctuating, regexp.MustCompile(`波动|起伏|震荡|(?i)\bfluctuating\b|\bvolatile\b|\bchoppy\b`)},
	{TrendStable, regexp.MustCompile(`稳定|平稳|持平|(?i)\bstable\b|\bsteady\b|\bflat\b`)},
}

// sortRules is ordered with bounded forms ("top 10") ahead of the
// unbounded superlatives, so the numeric capture is not lost to a
// looser rule.
var sortRules = []struct {
	order   SortOrder
	bounded bool
	pattern *regexp.Regexp
}{
	{SortDescending, true, regexp.MustCompile(`前(\d+)(?:名|个|位|家)?|(?i)\btop\s*(\d+)\b`)},
	{SortAscending, true, regexp.MustCompile(`后(\d+)(?:名|个|位|家)?|倒数(\d+)|(?i)\bbottom\s*(\d+)\b`)},
	{SortDescending, false, regexp.MustCompile(`前几|排名最高|降序|从高到低|(?i)\bhighest\b|\blargest\b|\bdescending\b`)},
	{SortAscending, false, regexp.MustCompile(`排名最低|升序|从低到高|(?i)\blowest\b|\bsmallest\b|\bascending\b`)},
}

// thresholdOperators maps comparison phrases to symbolic operators.
// Longer phrases sit ahead of their prefixes (不低于 before 低于).
var thresholdOperators = []struct {
	op     string
	phrase *regexp.Regexp
}{
	{">=", regexp.MustCompile(`不低于|不少于|至少|(?i)at least|no less than`)},
	{"<=", regexp.MustCompile(`不超过|不高于|至多|最多|(?i)at most|no more than`)},
	{"!=", regexp.MustCompile(`不等于|(?i)not equal to`)},
	{">", regexp.MustCompile(`大于|超过|高于|多于|(?i)greater than|more than|over|above|exceed(?:s|ing)?`)},
	{"<", regexp.MustCompile(`小于|低于|少于|不足|(?i)less than|below|under`)},
	{"==", regexp.MustCompile(`等于|(?i)equal to|equals`)},
}

const (
	metricToken = `[A-Za-z\x{4e00}-\x{9fff}][A-Za-z0-9_\x{4e00}-\x{9fff}]*`
	numberToken = `-?\d[\d,]*(?:\.\d+)?`
	unitToken   = `(万亿|亿|万|千|(?i:k|m|bn|b|thousand|million|billion))?`
)

var (
	// symbolicThreshold matches "GMV >= 1,000,000" style comparisons.
	symbolicThreshold = regexp.MustCompile(
		`(` + metricToken + `)\s*(>=|<=|!=|==|>|<|=)\s*(` + numberToken + `)` + unitToken)
	// phraseThreshold matches "GMV大于100万" and "orders above 500".
	phraseThreshold = regexp.MustCompile(
		`(` + metricToken + `)\s*(不低于|不少于|至少|不超过|不高于|至多|最多|不等于|大于|超过|高于|多于|小于|低于|少于|不足|等于|(?i:at least|no less than|at most|no more than|not equal to|greater than|more than|over|above|exceeds|exceeding|exceed|less than|below|under|equal to|equals))\s*(` + numberToken + `)` + unitToken)
)

// extractThresholds collects every numeric comparison in the query, in
// order of appearance. Symbolic and phrase forms are merged and
// de-duplicated by match position.
func extractThresholds(query string) []ThresholdFilter {
	type span struct {
		start int
		f     ThresholdFilter
	}
	var spans []span
	seen := make(map[int]bool)

	collect := func(re *regexp.Regexp, opAt func(string) string) {
		for _, idx := range re.FindAllStringSubmatchIndex(query, -1) {
			if seen[idx[0]] {
				continue
			}
			group := func(n int) string {
				if idx[2*n] < 0 {
					return ""
				}
				return query[idx[2*n]:idx[2*n+1]]
			}
			raw := strings.ReplaceAll(group(3), ",", "")
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				continue
			}
			op := opAt(group(2))
			if op == "" {
				continue
			}
			seen[idx[0]] = true
			spans = append(spans, span{start: idx[0], f: ThresholdFilter{
				Metric:   trimConjunction(group(1)),
				Operator: op,
				Value:    value,
				Unit:     group(4),
			}})
		}
	}

	collect(symbolicThreshold, func(sym string) string {
		if sym == "=" {
			return "=="
		}
		return sym
	})
	collect(phraseThreshold, func(phrase string) string {
		for _, entry := range thresholdOperators {
			if entry.phrase.MatchString(phrase) {
				return entry.op
			}
		}
		return ""
	})

	if len(spans) == 0 {
		return nil
	}
	for i := 1; i < len(spans); i++ {
		for j := i; j > 0 && spans[j].start < spans[j-1].start; j-- {
			spans[j], spans[j-1] = spans[j-1], spans[j]
		}
	}
	out := make([]ThresholdFilter, len(spans))
	for i, s := range spans {
		out[i] = s.f
	}
	return out
}

// trimConjunction drops a leading conjunction picked up when two
// comparisons run together ("收入大于100万且成本小于50万").
func trimConjunction(metric string) string {
	for _, prefix := range []string{"并且", "而且", "以及", "且", "和", "与"} {
		if strings.HasPrefix(metric, prefix) {
			return strings.TrimPrefix(metric, prefix)
		}
	}
	return metric
}

// filterRules populate the free-form filter map. Each rule writes one
// fixed key; later rules never overwrite an earlier value for the same
// key.
var filterRules = []struct {
	key     string
	value   string
	pattern *regexp.Regexp
}{
	{"domain", "电商", regexp.MustCompile(`电商|(?i)\be-?commerce\b`)},
	{"domain", "物流", regexp.MustCompile(`物流|(?i)\blogistics\b`)},
	{"domain", "金融", regexp.MustCompile(`金融|(?i)\bfinance\b|\bfinancial\b`)},
	{"freshness", "realtime", regexp.MustCompile(`实时|(?i)\breal[- ]?time\b`)},
	{"freshness", "offline", regexp.MustCompile(`离线|(?i)\boffline\b`)},
}

// Filler stripping is edge-anchored: interrogatives and polite framing
// are peeled off the front and back of the residual text, and interior
// words are left alone so the core subject stays a contiguous slice of
// the original query.
var (
	leadingFiller = regexp.MustCompile(
		`^\s*(?:请问|帮我|给我|我想看|我想|我要|麻烦|查询一下|查一下|看一下|查询|查看|统计|分析|展示|显示|一下|的|` +
			`(?i:please|show me|tell me|give me|what is|what are|how much is|can you|i want to see|query))[\s，,]*`)
	trailingFiller = regexp.MustCompile(
		`[\s，,]*(?:是多少|有多少|多少|情况如何|怎么样|情况怎样|如何|情况|数据|一下|的|呢|吗|呀|啊|？|\?|。|！|!|，|,|` +
			`(?i:please|right now))\s*$`)
)
