// internal/engine/analysis.go
package engine

import "math"

// Analysis summarizes a metric series for the answer layer: overall
// direction, spread and outliers.
type Analysis struct {
	Trend      string    `json:"trend"`
	ChangeRate float64   `json:"change_rate"`
	Min        float64   `json:"min"`
	Max        float64   `json:"max"`
	Avg        float64   `json:"avg"`
	StdDev     float64   `json:"std_dev"`
	Anomalies  []Anomaly `json:"anomalies,omitempty"`
}

// Anomaly is one value more than two standard deviations from the
// series mean.
type Anomaly struct {
	Index int     `json:"index"`
	Value float64 `json:"value"`
}

const (
	TrendUpward      = "upward"
	TrendDownward    = "downward"
	TrendStable      = "stable"
	TrendFluctuating = "fluctuating"
)

// Analyze computes series statistics. The change rate compares the
// last value against the first, in percent; the trend labels follow
// fixed cutoffs (over +10% up, under -10% down, within ±5% stable,
// fluctuating otherwise). An empty series yields a zero Analysis.
func Analyze(values []float64) Analysis {
	if len(values) == 0 {
		return Analysis{Trend: TrendStable}
	}

	a := Analysis{Min: values[0], Max: values[0]}
	var sum float64
	for _, v := range values {
		sum += v
		if v < a.Min {
			a.Min = v
		}
		if v > a.Max {
			a.Max = v
		}
	}
	a.Avg = sum / float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - a.Avg
		variance += d * d
	}
	variance /= float64(len(values))
	a.StdDev = math.Sqrt(variance)

	if first := values[0]; first != 0 {
		a.ChangeRate = (values[len(values)-1] - first) / math.Abs(first) * 100
	}

	switch {
	case len(values) < 2:
		a.Trend = TrendStable
	case a.ChangeRate > 10:
		a.Trend = TrendUpward
	case a.ChangeRate < -10:
		a.Trend = TrendDownward
	case math.Abs(a.ChangeRate) <= 5:
		a.Trend = TrendStable
	default:
		a.Trend = TrendFluctuating
	}

	// Anomaly detection needs enough points for the deviation to mean
	// anything.
	if len(values) > 3 && a.StdDev > 0 {
		for i, v := range values {
			if math.Abs(v-a.Avg) > 2*a.StdDev {
				a.Anomalies = append(a.Anomalies, Anomaly{Index: i, Value: v})
			}
		}
	}
	return a
}
