// internal/engine/engine.go

// Package engine executes compiled metric queries against the
// PostgreSQL warehouse and summarizes the returned series.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/JourneytoNewland/chatBI-sub000/internal/common/logger"
	"github.com/JourneytoNewland/chatBI-sub000/internal/common/metrics"
	"github.com/JourneytoNewland/chatBI-sub000/internal/mql"
	"github.com/JourneytoNewland/chatBI-sub000/internal/sqlgen"
)

var ErrQueryExecutionFailed = errors.New("QUERY_EXECUTION_FAILED")

// Row is one warehouse result row, keyed by output column name.
type Row map[string]interface{}

// ResultSet carries the executed SQL, its rows and a summary of the
// metric series.
type ResultSet struct {
	SQL      string        `json:"sql"`
	Rows     []Row         `json:"rows"`
	RowCount int           `json:"row_count"`
	Duration time.Duration `json:"duration"`
	Analysis Analysis      `json:"analysis"`
}

// Engine compiles and runs canonical queries. It is safe for
// concurrent use; all state lives in the pooled *sql.DB.
type Engine struct {
	db       *sql.DB
	compiler *sqlgen.Compiler
	logger   logger.Logger
}

func New(db *sql.DB, compiler *sqlgen.Compiler, log logger.Logger) *Engine {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Engine{db: db, compiler: compiler, logger: log}
}

// Execute compiles q and runs it. Compilation errors (unknown subject)
// pass through untouched so callers can map them; execution errors wrap
// ErrQueryExecutionFailed.
func (e *Engine) Execute(ctx context.Context, q *mql.CanonicalQuery) (*ResultSet, error) {
	stmt, err := e.compiler.Compile(q)
	if err != nil {
		return nil, err
	}

	text, args := bindPositional(stmt.SQL, stmt.Params)
	start := time.Now()

	rows, err := e.db.QueryContext(ctx, text, args...)
	if err != nil {
		metrics.QueriesExecuted.WithLabelValues("error").Inc()
		e.logger.Error("warehouse query failed", map[string]interface{}{
			"subject": stmt.Subject.Name,
			"error":   err.Error(),
		})
		return nil, fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
	}
	defer rows.Close()

	out, err := scanRows(rows)
	if err != nil {
		metrics.QueriesExecuted.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
	}

	elapsed := time.Since(start)
	metrics.QueriesExecuted.WithLabelValues("ok").Inc()
	metrics.QueryExecutionDuration.Observe(elapsed.Seconds())

	rs := &ResultSet{
		SQL:      stmt.SQL,
		Rows:     out,
		RowCount: len(out),
		Duration: elapsed,
		Analysis: Analyze(metricSeries(out)),
	}
	e.logger.Info("warehouse query executed", map[string]interface{}{
		"subject":     stmt.Subject.Name,
		"rows":        rs.RowCount,
		"duration_ms": elapsed.Milliseconds(),
	})
	return rs, nil
}

// ExecuteBatch runs several canonical queries sequentially on the
// shared pool. The result slice is index-aligned with the input; a
// failed query leaves a nil entry and the first error is returned
// alongside the partial results.
func (e *Engine) ExecuteBatch(ctx context.Context, queries []*mql.CanonicalQuery) ([]*ResultSet, error) {
	results := make([]*ResultSet, len(queries))
	var firstErr error
	for i, q := range queries {
		rs, err := e.Execute(ctx, q)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		results[i] = rs
	}
	return results, firstErr
}

var namedParam = regexp.MustCompile(`:([a-z][a-z0-9_]*)`)

// bindPositional rewrites :name placeholders into PostgreSQL's $n form
// and returns the argument list in placeholder order. A name reused in
// the SQL text reuses its ordinal.
func bindPositional(text string, params map[string]interface{}) (string, []interface{}) {
	ordinals := make(map[string]int)
	var args []interface{}
	rewritten := namedParam.ReplaceAllStringFunc(text, func(m string) string {
		name := m[1:]
		n, ok := ordinals[name]
		if !ok {
			args = append(args, params[name])
			n = len(args)
			ordinals[name] = n
		}
		return fmt.Sprintf("$%d", n)
	})
	return rewritten, args
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Row
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// metricSeries pulls the measured value out of each row, tolerating the
// numeric types different drivers hand back.
func metricSeries(rows []Row) []float64 {
	var series []float64
	for _, row := range rows {
		switch v := row["metric_value"].(type) {
		case float64:
			series = append(series, v)
		case int64:
			series = append(series, float64(v))
		case string:
			var f float64
			if _, err := fmt.Sscanf(v, "%g", &f); err == nil {
				series = append(series, f)
			}
		}
	}
	return series
}
