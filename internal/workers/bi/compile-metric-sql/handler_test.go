// internal/workers/bi/compile-metric-sql/handler_test.go
package compilemetricsql

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JourneytoNewland/chatBI-sub000/internal/common/logger"
	"github.com/JourneytoNewland/chatBI-sub000/internal/intent"
	"github.com/JourneytoNewland/chatBI-sub000/internal/sqlgen"
	"github.com/JourneytoNewland/chatBI-sub000/pkg/registry"
)

const testCatalog = `{
  "version": "1.0",
  "subjects": [
    {
      "id": "gmv",
      "name": "GMV",
      "code": "gmv",
      "fact_table": "fact_sales",
      "value_column": "gmv",
      "synonyms": ["成交额", "交易额"],
      "dimensions": {
        "region": {"table": "dim_region", "join_key": "region_id", "name_column": "region_name"}
      }
    }
  ]
}`

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	reg, err := registry.Parse([]byte(testCatalog))
	require.NoError(t, err)
	return NewHandler(LoadConfig(), sqlgen.NewCompiler(reg), logger.NewTestLogger(t))
}

func TestExecuteCompilesIntent(t *testing.T) {
	h := newTestHandler(t)

	qi := &intent.QueryIntent{
		Query:       "2024年3月的GMV总和",
		CoreSubject: "GMV",
		TimeRange: &intent.TimeRange{
			Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC),
		},
		Granularity: intent.GranularityMonth,
		Aggregation: intent.AggregationSum,
	}

	out, err := h.Execute(context.Background(), &Input{Intent: qi})
	require.NoError(t, err)

	assert.Equal(t, "GMV", out.Subject)
	assert.Contains(t, out.SQL, "SUM(f.gmv)")
	assert.Contains(t, out.SQL, "FROM fact_sales f")
	assert.Contains(t, out.SQL, ":start_date")
	assert.Equal(t, "2024-03-01", out.Params["start_date"])
	require.NotNil(t, out.Canonical)
	assert.Equal(t, "GMV", out.Canonical.Metric)
}

func TestExecuteUnknownSubject(t *testing.T) {
	h := newTestHandler(t)

	qi := &intent.QueryIntent{Query: "库存周转率", CoreSubject: "库存周转率"}
	_, err := h.Execute(context.Background(), &Input{Intent: qi})

	var unresolved *sqlgen.UnresolvedSubjectError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "库存周转率", unresolved.Subject)
}

func TestExecuteMissingIntent(t *testing.T) {
	h := newTestHandler(t)

	_, err := h.Execute(context.Background(), &Input{})
	assert.ErrorIs(t, err, ErrMissingIntent)
}
