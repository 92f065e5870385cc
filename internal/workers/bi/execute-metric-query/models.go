// internal/workers/bi/execute-metric-query/models.go
package executemetricquery

import (
	"github.com/JourneytoNewland/chatBI-sub000/internal/engine"
	"github.com/JourneytoNewland/chatBI-sub000/internal/mql"
)

type Input struct {
	Canonical *mql.CanonicalQuery `json:"canonicalQuery"`
}

type Output struct {
	SQL        string          `json:"sql"`
	Rows       []engine.Row    `json:"rows"`
	RowCount   int             `json:"rowCount"`
	Analysis   engine.Analysis `json:"analysis"`
	DurationMs int64           `json:"durationMs"`
}
