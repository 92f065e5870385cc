// internal/workers/bi/compile-metric-sql/models.go
package compilemetricsql

import (
	"github.com/JourneytoNewland/chatBI-sub000/internal/intent"
	"github.com/JourneytoNewland/chatBI-sub000/internal/mql"
)

type Input struct {
	Intent *intent.QueryIntent `json:"intent"`
}

type Output struct {
	SQL       string                 `json:"sql"`
	Params    map[string]interface{} `json:"params"`
	Subject   string                 `json:"subject"`
	Canonical *mql.CanonicalQuery    `json:"canonicalQuery"`
}
