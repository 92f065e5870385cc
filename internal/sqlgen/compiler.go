// internal/sqlgen/compiler.go

// Package sqlgen compiles canonical metric queries into parameterized
// SQL over the warehouse star schema. Compilation is deterministic:
// the same query and registry always produce byte-identical SQL and an
// identical parameter map.
package sqlgen

import (
	"fmt"
	"strings"

	"github.com/JourneytoNewland/chatBI-sub000/internal/mql"
	"github.com/JourneytoNewland/chatBI-sub000/pkg/registry"
)

const (
	factAlias    = "f"
	dateAlias    = "dd"
	dateTable    = "dim_date"
	dateJoinKey  = "date_key"
	dateColumn   = "date"
	valueAlias   = "metric_value"
	dateParamLo  = "start_date"
	dateParamHi  = "end_date"
	filterPrefix = "filter_"
)

// UnresolvedSubjectError reports a canonical query whose metric is not
// in the subject registry. No SQL is emitted in that case.
type UnresolvedSubjectError struct {
	Subject string
}

func (e *UnresolvedSubjectError) Error() string {
	return fmt.Sprintf("subject %q not found in registry", e.Subject)
}

// Statement is a compiled query: SQL text with named placeholders of
// the form :name, plus the values to bind. Identifiers come from the
// validated registry; user-supplied values only ever travel through
// Params.
type Statement struct {
	SQL     string
	Params  map[string]interface{}
	Subject *registry.Subject
}

// sqlFunc maps canonical operators onto SQL aggregate functions. RATE
// and RATIO have no native aggregate; their per-row values are averaged
// over the window.
var sqlFunc = map[mql.Operator]string{
	mql.OpSum:   "SUM",
	mql.OpAvg:   "AVG",
	mql.OpCount: "COUNT",
	mql.OpMax:   "MAX",
	mql.OpMin:   "MIN",
	mql.OpRate:  "AVG",
	mql.OpRatio: "AVG",
}

// comparisonSQL whitelists the filter operators that may reach SQL
// text.
var comparisonSQL = map[string]string{
	">": ">", "<": "<", ">=": ">=", "<=": "<=", "==": "=", "!=": "<>",
}

// Compiler turns canonical queries into SQL using an immutable subject
// registry. It is stateless beyond the registry reference and safe for
// concurrent use.
type Compiler struct {
	registry *registry.Registry
}

func NewCompiler(reg *registry.Registry) *Compiler {
	return &Compiler{registry: reg}
}

// Compile resolves the subject and assembles the statement with a
// fixed clause order: SELECT, FROM/JOIN, WHERE, GROUP BY, ORDER BY,
// LIMIT.
func (c *Compiler) Compile(q *mql.CanonicalQuery) (*Statement, error) {
	subject, ok := c.registry.Resolve(q.Metric)
	if !ok {
		return nil, &UnresolvedSubjectError{Subject: q.Metric}
	}

	params := make(map[string]interface{})
	aggregated := q.Aggregated()

	// The date column is projected for every raw series, and for
	// aggregated series that group by time.
	projectDate := !aggregated || (q.TimeWindow != nil && q.Granularity != "")

	var selectCols, groupCols []string
	if projectDate {
		col := fmt.Sprintf("%s.%s", dateAlias, dateColumn)
		selectCols = append(selectCols, col)
		groupCols = append(groupCols, col)
	}

	joins := []string{fmt.Sprintf("JOIN %s %s ON %s.%s = %s.%s",
		dateTable, dateAlias, factAlias, dateJoinKey, dateAlias, dateJoinKey)}

	dimIndex := 0
	for _, name := range q.Dimensions {
		dim, ok := subject.ResolveDimension(name)
		if !ok {
			// Dimensions the subject does not register are not
			// joinable and are dropped from the projection.
			continue
		}
		alias := fmt.Sprintf("d%d", dimIndex)
		dimIndex++
		col := fmt.Sprintf("%s.%s", alias, dim.NameColumn)
		selectCols = append(selectCols, fmt.Sprintf("%s AS %s", col, name))
		groupCols = append(groupCols, col)
		joins = append(joins, fmt.Sprintf("JOIN %s %s ON %s.%s = %s.%s",
			dim.Table, alias, factAlias, dim.JoinKey, alias, dim.JoinKey))
	}

	if aggregated {
		fn := sqlFunc[q.Operator]
		if fn == "" {
			fn = "SUM"
		}
		selectCols = append(selectCols, fmt.Sprintf("%s(%s.%s) AS %s", fn, factAlias, subject.ValueColumn, valueAlias))
	} else {
		selectCols = append(selectCols, fmt.Sprintf("%s.%s AS %s", factAlias, subject.ValueColumn, valueAlias))
	}

	var conditions []string
	if q.TimeWindow != nil {
		conditions = append(conditions, fmt.Sprintf("%s.%s BETWEEN :%s AND :%s",
			dateAlias, dateColumn, dateParamLo, dateParamHi))
		params[dateParamLo] = q.TimeWindow.Start.Format("2006-01-02")
		params[dateParamHi] = q.TimeWindow.End.Format("2006-01-02")
	}
	for i, f := range q.Filters {
		column, ok := c.filterColumn(subject, f.Field)
		if !ok {
			continue
		}
		op, ok := comparisonSQL[f.Operator]
		if !ok {
			continue
		}
		name := fmt.Sprintf("%s%d", filterPrefix, i)
		conditions = append(conditions, fmt.Sprintf("%s.%s %s :%s", factAlias, column, op, name))
		params[name] = f.Value
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s\nFROM %s %s\n%s",
		strings.Join(selectCols, ", "), subject.FactTable, factAlias, strings.Join(joins, "\n"))
	if len(conditions) > 0 {
		fmt.Fprintf(&b, "\nWHERE %s", strings.Join(conditions, " AND "))
	}
	if aggregated && len(groupCols) > 0 {
		fmt.Fprintf(&b, "\nGROUP BY %s", strings.Join(groupCols, ", "))
	}
	if order := orderClause(q, projectDate); order != "" {
		b.WriteString("\n" + order)
	}
	if q.Limit != nil && *q.Limit > 0 {
		fmt.Fprintf(&b, "\nLIMIT %d", *q.Limit)
	}

	return &Statement{SQL: b.String(), Params: params, Subject: subject}, nil
}

// filterColumn maps a canonical filter field onto a fact-table column.
// Only the domain column and the subject's own value column are
// addressable; anything else is discarded rather than interpolated, so
// free-text metric names can never reach SQL text.
func (c *Compiler) filterColumn(subject *registry.Subject, field string) (string, bool) {
	switch {
	case field == "domain":
		return "domain", true
	case strings.EqualFold(field, subject.ValueColumn),
		strings.EqualFold(field, subject.Name),
		strings.EqualFold(field, subject.Code):
		return subject.ValueColumn, true
	}
	if s, ok := c.registry.Resolve(field); ok && s.ID == subject.ID {
		return subject.ValueColumn, true
	}
	return "", false
}

// orderClause prefers an explicit ranking; otherwise results with a
// projected date column come back newest first.
func orderClause(q *mql.CanonicalQuery, projectDate bool) string {
	if q.OrderBy != nil {
		dir := "DESC"
		if strings.EqualFold(q.OrderBy.Direction, "asc") {
			dir = "ASC"
		}
		return fmt.Sprintf("ORDER BY %s %s", valueAlias, dir)
	}
	if q.TimeWindow != nil && projectDate {
		return fmt.Sprintf("ORDER BY %s.%s DESC", dateAlias, dateColumn)
	}
	return ""
}
