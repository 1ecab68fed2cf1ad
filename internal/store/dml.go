package store

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Now is a sentinel write value rendered as the dialect's current-timestamp
// expression instead of a bound parameter.
type nowSentinel struct{}

var Now = nowSentinel{}

var tmplPlaceholder = regexp.MustCompile(`%(\d+)`)

// Clause resolves a positional template like "id = %1 AND slug = %2" into a
// parameter-bound SQL fragment for the dialect.
func Clause(d Dialect, tmpl string, args ...any) (string, []any) {
	return clauseOffset(d, tmpl, 0), args
}

// clauseOffset rewrites %N placeholders to dialect placeholders N+offset.
// Used when the fragment is appended after already-bound parameters.
func clauseOffset(d Dialect, tmpl string, offset int) string {
	return tmplPlaceholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		n, err := strconv.Atoi(m[1:])
		if err != nil {
			return m
		}
		return d.Placeholder(n + offset)
	})
}

// Insert inserts a values map into table and returns the inserted row.
func Insert(ctx context.Context, q Querier, d Dialect, table string, values map[string]any) (map[string]any, error) {
	if err := checkIdent(table); err != nil {
		return nil, err
	}

	cols := sortedKeys(values)
	pb := d.NewParamBuilder()
	phs := make([]string, 0, len(cols))
	for _, c := range cols {
		if err := checkIdent(c); err != nil {
			return nil, err
		}
		if _, ok := values[c].(nowSentinel); ok {
			phs = append(phs, d.NowExpr())
			continue
		}
		phs = append(phs, pb.Add(values[c]))
	}

	var sqlStr string
	if len(cols) == 0 {
		sqlStr = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING *", table)
	} else {
		sqlStr = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
			table, strings.Join(cols, ", "), strings.Join(phs, ", "))
	}

	row, err := QueryRow(ctx, q, sqlStr, pb.Params()...)
	if err != nil {
		return nil, d.MapError(err)
	}
	return row, nil
}

// Update updates rows matching the where template and returns the affected count.
func Update(ctx context.Context, q Querier, d Dialect, table string, values map[string]any, whereTmpl string, args ...any) (int64, error) {
	if err := checkIdent(table); err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, nil
	}

	cols := sortedKeys(values)
	pb := d.NewParamBuilder()
	sets := make([]string, 0, len(cols))
	for _, c := range cols {
		if err := checkIdent(c); err != nil {
			return 0, err
		}
		if _, ok := values[c].(nowSentinel); ok {
			sets = append(sets, fmt.Sprintf("%s = %s", c, d.NowExpr()))
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = %s", c, pb.Add(values[c])))
	}

	where := clauseOffset(d, whereTmpl, pb.Count())
	sqlStr := fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, strings.Join(sets, ", "), where)

	n, err := Exec(ctx, q, sqlStr, append(pb.Params(), args...)...)
	if err != nil {
		return 0, d.MapError(err)
	}
	return n, nil
}

// Delete removes rows matching the where template and returns the affected count.
func Delete(ctx context.Context, q Querier, d Dialect, table string, whereTmpl string, args ...any) (int64, error) {
	if err := checkIdent(table); err != nil {
		return 0, err
	}
	where := clauseOffset(d, whereTmpl, 0)
	return Exec(ctx, q, fmt.Sprintf("DELETE FROM %s WHERE %s", table, where), args...)
}

// Choose returns the single row with the given id, or ErrNotFound.
func Choose(ctx context.Context, q Querier, d Dialect, table string, id any) (map[string]any, error) {
	if err := checkIdent(table); err != nil {
		return nil, err
	}
	return QueryRow(ctx, q,
		fmt.Sprintf("SELECT * FROM %s WHERE id = %s", table, d.Placeholder(1)), id)
}

// Fetch returns all rows matching the where template.
func Fetch(ctx context.Context, q Querier, d Dialect, table string, whereTmpl string, args ...any) ([]map[string]any, error) {
	if err := checkIdent(table); err != nil {
		return nil, err
	}
	where := clauseOffset(d, whereTmpl, 0)
	return QueryRows(ctx, q, fmt.Sprintf("SELECT * FROM %s WHERE %s", table, where), args...)
}

// RecursiveQuery walks a self-referencing table with a recursive CTE.
// anchorWhere selects the starting row(s); joinOn relates the alias p (the
// table) to the accumulated set rec, e.g. "p.id = rec.parent_id".
func RecursiveQuery(ctx context.Context, q Querier, d Dialect, table string, columns []string, anchorWhere string, joinOn string, args ...any) ([]map[string]any, error) {
	if err := checkIdent(table); err != nil {
		return nil, err
	}
	cols := strings.Join(columns, ", ")
	pcols := make([]string, len(columns))
	for i, c := range columns {
		pcols[i] = "p." + c
	}

	sqlStr := fmt.Sprintf(`WITH RECURSIVE rec AS (
  SELECT %s FROM %s WHERE %s
  UNION ALL
  SELECT %s FROM %s p JOIN rec ON %s
)
SELECT * FROM rec`,
		cols, table, clauseOffset(d, anchorWhere, 0),
		strings.Join(pcols, ", "), table, joinOn)

	return QueryRows(ctx, q, sqlStr, args...)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CheckIdent rejects names that cannot be safely interpolated as SQL
// identifiers. Exported for callers that assemble their own statements.
func CheckIdent(name string) error { return checkIdent(name) }

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// checkIdent rejects table/column names that cannot be safely interpolated.
// Identifiers come from slugified metadata, never from raw caller SQL.
func checkIdent(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("invalid identifier: %q", name)
	}
	return nil
}
