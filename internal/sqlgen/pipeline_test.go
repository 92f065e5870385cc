// internal/sqlgen/pipeline_test.go
package sqlgen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JourneytoNewland/chatBI-sub000/internal/intent"
	"github.com/JourneytoNewland/chatBI-sub000/internal/mql"
)

// These tests run the full rule path: raw text through the recognizer,
// lowered to a canonical query, compiled against the registry.

func pipelineRecognizer() *intent.Recognizer {
	return intent.NewRecognizerAt(func() time.Time {
		return time.Date(2024, 5, 15, 10, 30, 0, 0, time.UTC)
	})
}

func TestPipelineAggregateQuery(t *testing.T) {
	c := newTestCompiler(t)
	r := pipelineRecognizer()

	qi := r.Recognize("2024年3月的GMV总和")
	q := mql.FromIntent(qi)
	assert.Equal(t, mql.OpSum, q.Operator)

	stmt, err := c.Compile(q)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "SUM(f.gmv) AS metric_value")
	assert.Equal(t, "2024-03-01", stmt.Params["start_date"])
	assert.Equal(t, "2024-03-31", stmt.Params["end_date"])
	assert.Equal(t, "subj-gmv", stmt.Subject.ID)
}

func TestPipelineDimensionalQuery(t *testing.T) {
	c := newTestCompiler(t)
	r := pipelineRecognizer()

	qi := r.Recognize("最近7天按地区的GMV")
	q := mql.FromIntent(qi)

	stmt, err := c.Compile(q)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "d0.region_name AS region")
	assert.Contains(t, stmt.SQL, "GROUP BY")
	assert.Contains(t, stmt.SQL, "JOIN dim_region")
}

func TestPipelineRankedQuery(t *testing.T) {
	c := newTestCompiler(t)
	r := pipelineRecognizer()

	qi := r.Recognize("本月GMV前10名的地区")
	q := mql.FromIntent(qi)
	require.NotNil(t, q.Limit)

	stmt, err := c.Compile(q)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "ORDER BY metric_value DESC")
	assert.Contains(t, stmt.SQL, "LIMIT 10")
}

func TestPipelineThresholdQuery(t *testing.T) {
	c := newTestCompiler(t)
	r := pipelineRecognizer()

	qi := r.Recognize("GMV大于100万的地区")
	require.Len(t, qi.Thresholds, 1)
	assert.Equal(t, "万", qi.Thresholds[0].Unit, "parser keeps the unit verbatim")
	assert.Equal(t, 100.0, qi.Thresholds[0].Value)

	q := mql.FromIntent(qi)
	stmt, err := c.Compile(q)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "f.gmv >")
	assert.Equal(t, 1000000.0, stmt.Params["filter_0"])
}

func TestPipelineUnknownSubjectFailsCompilation(t *testing.T) {
	c := newTestCompiler(t)
	r := pipelineRecognizer()

	q := mql.FromIntent(r.Recognize("不存在的指标总和"))
	_, err := c.Compile(q)

	var unresolved *UnresolvedSubjectError
	require.ErrorAs(t, err, &unresolved)
}
