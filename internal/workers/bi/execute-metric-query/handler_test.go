// internal/workers/bi/execute-metric-query/handler_test.go
package executemetricquery

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JourneytoNewland/chatBI-sub000/internal/common/logger"
	"github.com/JourneytoNewland/chatBI-sub000/internal/engine"
	"github.com/JourneytoNewland/chatBI-sub000/internal/mql"
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
      "value_column": "gmv"
    }
  ]
}`

func newTestHandler(t *testing.T) (*Handler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	reg, err := registry.Parse([]byte(testCatalog))
	require.NoError(t, err)

	eng := engine.New(db, sqlgen.NewCompiler(reg), logger.NewTestLogger(t))
	return NewHandler(LoadConfig(), eng, logger.NewTestLogger(t)), mock
}

func window() *mql.TimeWindow {
	return &mql.TimeWindow{
		Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC),
	}
}

func TestExecuteReturnsRowsAndAnalysis(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectQuery(`SELECT dd.date, f.gmv AS metric_value`).
		WithArgs("2024-03-01", "2024-03-31").
		WillReturnRows(sqlmock.NewRows([]string{"date", "metric_value"}).
			AddRow("2024-03-01", 100.0).
			AddRow("2024-03-02", 150.0).
			AddRow("2024-03-03", 200.0))

	out, err := h.Execute(context.Background(), &Input{Canonical: &mql.CanonicalQuery{
		Metric:     "GMV",
		Operator:   mql.OpSelect,
		TimeWindow: window(),
	}})
	require.NoError(t, err)

	assert.Equal(t, 3, out.RowCount)
	assert.Len(t, out.Rows, 3)
	assert.Equal(t, engine.TrendUpward, out.Analysis.Trend)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteUnknownSubjectSkipsDatabase(t *testing.T) {
	h, _ := newTestHandler(t)

	_, err := h.Execute(context.Background(), &Input{Canonical: &mql.CanonicalQuery{
		Metric:   "库存周转率",
		Operator: mql.OpSum,
	}})

	var unresolved *sqlgen.UnresolvedSubjectError
	assert.ErrorAs(t, err, &unresolved)
}

func TestExecuteMissingQuery(t *testing.T) {
	h, _ := newTestHandler(t)

	_, err := h.Execute(context.Background(), &Input{})
	assert.ErrorIs(t, err, ErrMissingQuery)
}

func TestExecuteCapsRows(t *testing.T) {
	h, mock := newTestHandler(t)
	h.config.MaxRows = 2

	mock.ExpectQuery(`SELECT dd.date, f.gmv AS metric_value`).
		WillReturnRows(sqlmock.NewRows([]string{"date", "metric_value"}).
			AddRow("2024-03-01", 1.0).
			AddRow("2024-03-02", 2.0).
			AddRow("2024-03-03", 3.0))

	out, err := h.Execute(context.Background(), &Input{Canonical: &mql.CanonicalQuery{
		Metric:     "GMV",
		Operator:   mql.OpSelect,
		TimeWindow: window(),
	}})
	require.NoError(t, err)

	assert.Len(t, out.Rows, 2)
	// RowCount still reports the full result size.
	assert.Equal(t, 3, out.RowCount)
}
