// internal/sqlgen/compiler_test.go
package sqlgen

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JourneytoNewland/chatBI-sub000/internal/mql"
	"github.com/JourneytoNewland/chatBI-sub000/pkg/registry"
)

const testCatalog = `{
  "version": "1.0.0",
  "subjects": [
    {
      "id": "subj-gmv",
      "name": "GMV",
      "code": "gmv",
      "domain": "电商",
      "fact_table": "fact_sales",
      "value_column": "gmv",
      "synonyms": ["成交额"],
      "dimensions": {
        "region":   {"table": "dim_region",   "join_key": "region_key",   "name_column": "region_name"},
        "category": {"table": "dim_category", "join_key": "category_key", "name_column": "category_name"},
        "channel":  {"table": "dim_channel",  "join_key": "channel_key",  "name_column": "channel_name"}
      }
    },
    {
      "id": "subj-dau",
      "name": "DAU",
      "code": "dau",
      "fact_table": "fact_user_activity",
      "value_column": "dau",
      "synonyms": ["日活"],
      "dimensions": {
        "region": {"table": "dim_region", "join_key": "region_key", "name_column": "region_name"}
      }
    }
  ]
}`

func newTestCompiler(t *testing.T) *Compiler {
	t.Helper()
	reg, err := registry.Parse([]byte(testCatalog))
	require.NoError(t, err)
	return NewCompiler(reg)
}

func window(y1 int, m1 time.Month, d1, y2 int, m2 time.Month, d2 int) *mql.TimeWindow {
	return &mql.TimeWindow{
		Start: time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(y2, m2, d2, 23, 59, 59, 0, time.UTC),
	}
}

func TestCompileAggregateOverWindow(t *testing.T) {
	c := newTestCompiler(t)

	stmt, err := c.Compile(&mql.CanonicalQuery{
		Metric:     "GMV",
		Operator:   mql.OpSum,
		TimeWindow: window(2024, 1, 1, 2024, 1, 7),
	})
	require.NoError(t, err)

	assert.Contains(t, stmt.SQL, "SUM(f.gmv) AS metric_value")
	assert.Contains(t, stmt.SQL, "JOIN dim_date dd ON f.date_key = dd.date_key")
	assert.Contains(t, stmt.SQL, "WHERE dd.date BETWEEN :start_date AND :end_date")
	assert.NotContains(t, stmt.SQL, "GROUP BY")
	assert.Equal(t, "2024-01-01", stmt.Params["start_date"])
	assert.Equal(t, "2024-01-07", stmt.Params["end_date"])
}

func TestCompileGroupedByDimension(t *testing.T) {
	c := newTestCompiler(t)

	stmt, err := c.Compile(&mql.CanonicalQuery{
		Metric:     "DAU",
		Operator:   mql.OpSelect,
		Dimensions: []string{"region"},
	})
	require.NoError(t, err)

	// Grouping forces aggregation even without an explicit operator.
	assert.Contains(t, stmt.SQL, "SUM(f.dau) AS metric_value")
	assert.Contains(t, stmt.SQL, "d0.region_name AS region")
	assert.Contains(t, stmt.SQL, "GROUP BY d0.region_name")
	assert.Equal(t, 1, strings.Count(stmt.SQL, "JOIN dim_region"))
	// Exactly the date join plus one dimension join.
	assert.Equal(t, 2, strings.Count(stmt.SQL, "JOIN "))
}

func TestCompileRawSeries(t *testing.T) {
	c := newTestCompiler(t)

	stmt, err := c.Compile(&mql.CanonicalQuery{
		Metric:     "GMV",
		Operator:   mql.OpSelect,
		TimeWindow: window(2024, 3, 1, 2024, 3, 31),
	})
	require.NoError(t, err)

	assert.Contains(t, stmt.SQL, "SELECT dd.date, f.gmv AS metric_value")
	assert.NotContains(t, stmt.SQL, "GROUP BY")
	assert.Contains(t, stmt.SQL, "ORDER BY dd.date DESC")
}

func TestCompileGroupedTimeSeries(t *testing.T) {
	c := newTestCompiler(t)

	stmt, err := c.Compile(&mql.CanonicalQuery{
		Metric:      "GMV",
		Operator:    mql.OpSum,
		TimeWindow:  window(2024, 3, 1, 2024, 3, 31),
		Granularity: "day",
		Dimensions:  []string{"region"},
	})
	require.NoError(t, err)

	assert.Contains(t, stmt.SQL, "SELECT dd.date, d0.region_name AS region, SUM(f.gmv) AS metric_value")
	assert.Contains(t, stmt.SQL, "GROUP BY dd.date, d0.region_name")
	assert.Contains(t, stmt.SQL, "ORDER BY dd.date DESC")
}

func TestCompileClauseOrder(t *testing.T) {
	c := newTestCompiler(t)
	limit := 10

	stmt, err := c.Compile(&mql.CanonicalQuery{
		Metric:      "GMV",
		Operator:    mql.OpSum,
		TimeWindow:  window(2024, 3, 1, 2024, 3, 31),
		Granularity: "day",
		Dimensions:  []string{"region"},
		Filters:     []mql.Filter{{Field: "domain", Operator: "==", Value: "电商"}},
		OrderBy:     &mql.Ordering{Metric: "GMV", Direction: "desc"},
		Limit:       &limit,
	})
	require.NoError(t, err)

	positions := []int{
		strings.Index(stmt.SQL, "SELECT "),
		strings.Index(stmt.SQL, "FROM "),
		strings.Index(stmt.SQL, "JOIN "),
		strings.Index(stmt.SQL, "WHERE "),
		strings.Index(stmt.SQL, "GROUP BY "),
		strings.Index(stmt.SQL, "ORDER BY "),
		strings.Index(stmt.SQL, "LIMIT "),
	}
	for i, pos := range positions {
		require.GreaterOrEqual(t, pos, 0, "clause %d missing in:\n%s", i, stmt.SQL)
		if i > 0 {
			assert.Greater(t, pos, positions[i-1], "clause order broken in:\n%s", stmt.SQL)
		}
	}
	assert.Contains(t, stmt.SQL, "ORDER BY metric_value DESC")
	assert.Contains(t, stmt.SQL, "LIMIT 10")
}

func TestCompileFilters(t *testing.T) {
	c := newTestCompiler(t)

	t.Run("domain and value threshold are parameter bound", func(t *testing.T) {
		stmt, err := c.Compile(&mql.CanonicalQuery{
			Metric:   "GMV",
			Operator: mql.OpSum,
			Filters: []mql.Filter{
				{Field: "domain", Operator: "==", Value: "电商"},
				{Field: "GMV", Operator: ">", Value: 1000000.0},
			},
		})
		require.NoError(t, err)

		assert.Contains(t, stmt.SQL, "f.domain = :filter_0")
		assert.Contains(t, stmt.SQL, "f.gmv > :filter_1")
		assert.Equal(t, "电商", stmt.Params["filter_0"])
		assert.Equal(t, 1000000.0, stmt.Params["filter_1"])
		assert.NotContains(t, stmt.SQL, "电商", "values never appear in SQL text")
	})

	t.Run("synonym resolves to the value column", func(t *testing.T) {
		stmt, err := c.Compile(&mql.CanonicalQuery{
			Metric:   "GMV",
			Operator: mql.OpSum,
			Filters:  []mql.Filter{{Field: "成交额", Operator: ">=", Value: 500.0}},
		})
		require.NoError(t, err)
		assert.Contains(t, stmt.SQL, "f.gmv >= :filter_0")
	})

	t.Run("field text never reaches SQL, only registry columns do", func(t *testing.T) {
		stmt, err := c.Compile(&mql.CanonicalQuery{
			Metric:   "GMV",
			Operator: mql.OpSum,
			Filters:  []mql.Filter{{Field: "gmv; DROP TABLE fact_sales", Operator: ">", Value: 1.0}},
		})
		require.NoError(t, err)
		assert.NotContains(t, stmt.SQL, "DROP TABLE")
		assert.Contains(t, stmt.SQL, "f.gmv > :filter_0")
	})

	t.Run("unresolvable field is dropped", func(t *testing.T) {
		stmt, err := c.Compile(&mql.CanonicalQuery{
			Metric:   "GMV",
			Operator: mql.OpSum,
			Filters:  []mql.Filter{{Field: "随便什么字段", Operator: ">", Value: 1.0}},
		})
		require.NoError(t, err)
		assert.NotContains(t, stmt.SQL, "WHERE")
	})

	t.Run("unknown operator is dropped", func(t *testing.T) {
		stmt, err := c.Compile(&mql.CanonicalQuery{
			Metric:   "GMV",
			Operator: mql.OpSum,
			Filters:  []mql.Filter{{Field: "GMV", Operator: "LIKE", Value: "x"}},
		})
		require.NoError(t, err)
		assert.NotContains(t, stmt.SQL, "WHERE")
	})
}

func TestCompileUnknownSubject(t *testing.T) {
	c := newTestCompiler(t)

	stmt, err := c.Compile(&mql.CanonicalQuery{Metric: "完全未知的指标", Operator: mql.OpSum})
	require.Error(t, err)
	assert.Nil(t, stmt)

	var unresolved *UnresolvedSubjectError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "完全未知的指标", unresolved.Subject)
	assert.Contains(t, err.Error(), "完全未知的指标")
}

func TestCompileUnregisteredDimensionDropped(t *testing.T) {
	c := newTestCompiler(t)

	stmt, err := c.Compile(&mql.CanonicalQuery{
		Metric:     "DAU",
		Operator:   mql.OpSum,
		Dimensions: []string{"channel"}, // DAU registers only region
	})
	require.NoError(t, err)
	assert.NotContains(t, stmt.SQL, "dim_channel")
	assert.NotContains(t, stmt.SQL, "GROUP BY")
}

func TestCompileRateUsesAverage(t *testing.T) {
	c := newTestCompiler(t)

	stmt, err := c.Compile(&mql.CanonicalQuery{Metric: "GMV", Operator: mql.OpRate})
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "AVG(f.gmv) AS metric_value")
}

func TestCompileIsDeterministic(t *testing.T) {
	c := newTestCompiler(t)
	limit := 5
	q := &mql.CanonicalQuery{
		Metric:      "GMV",
		Operator:    mql.OpAvg,
		TimeWindow:  window(2024, 2, 1, 2024, 2, 29),
		Granularity: "day",
		Dimensions:  []string{"region", "category"},
		Filters: []mql.Filter{
			{Field: "domain", Operator: "==", Value: "电商"},
			{Field: "GMV", Operator: ">", Value: 100.0},
		},
		Limit: &limit,
	}

	first, err := c.Compile(q)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := c.Compile(q)
		require.NoError(t, err)
		assert.Equal(t, first.SQL, again.SQL)
		assert.Equal(t, first.Params, again.Params)
	}
}
