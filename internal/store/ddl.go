package store

import (
	"context"
	"fmt"
	"strings"
)

// ColumnSpec describes one column contributed by a field kind. Type is a
// logical type tag resolved through Dialect.ColumnType; Extra carries literal
// trailing clauses such as "NOT NULL DEFAULT CURRENT_TIMESTAMP".
type ColumnSpec struct {
	Name  string
	Type  string
	Extra string
}

// DDL returns the column definition for the dialect.
func (c ColumnSpec) DDL(d Dialect) string {
	def := c.Name + " " + d.ColumnType(c.Type)
	if c.Extra != "" {
		def += " " + c.Extra
	}
	return def
}

// CreateTable creates a table with the given columns. Idempotent.
func CreateTable(ctx context.Context, q Querier, d Dialect, table string, cols []ColumnSpec) error {
	if err := checkIdent(table); err != nil {
		return err
	}
	defs := make([]string, 0, len(cols))
	for _, c := range cols {
		if err := checkIdent(c.Name); err != nil {
			return err
		}
		defs = append(defs, c.DDL(d))
	}
	sqlStr := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", table, strings.Join(defs, ",\n  "))
	if _, err := Exec(ctx, q, sqlStr); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

// AddColumn appends a column to an existing table.
func AddColumn(ctx context.Context, q Querier, d Dialect, table string, col ColumnSpec) error {
	if err := checkIdent(table); err != nil {
		return err
	}
	if err := checkIdent(col.Name); err != nil {
		return err
	}
	col.Extra = d.AddColumnExtra(col.Extra)
	sqlStr := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", table, col.DDL(d))
	if _, err := Exec(ctx, q, sqlStr); err != nil {
		return fmt.Errorf("add column %s.%s: %w", table, col.Name, err)
	}
	return nil
}

// RenameColumn renames a column in place.
func RenameColumn(ctx context.Context, q Querier, d Dialect, table, oldName, newName string) error {
	for _, n := range []string{table, oldName, newName} {
		if err := checkIdent(n); err != nil {
			return err
		}
	}
	sqlStr := fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", table, oldName, newName)
	if _, err := Exec(ctx, q, sqlStr); err != nil {
		return fmt.Errorf("rename column %s.%s: %w", table, oldName, err)
	}
	return nil
}

// DropColumn removes a column.
func DropColumn(ctx context.Context, q Querier, d Dialect, table, name string) error {
	for _, n := range []string{table, name} {
		if err := checkIdent(n); err != nil {
			return err
		}
	}
	sqlStr := fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", table, name)
	if _, err := Exec(ctx, q, sqlStr); err != nil {
		return fmt.Errorf("drop column %s.%s: %w", table, name, err)
	}
	return nil
}

// RenameTable renames a table.
func RenameTable(ctx context.Context, q Querier, d Dialect, oldName, newName string) error {
	for _, n := range []string{oldName, newName} {
		if err := checkIdent(n); err != nil {
			return err
		}
	}
	sqlStr := fmt.Sprintf("ALTER TABLE %s RENAME TO %s", oldName, newName)
	if _, err := Exec(ctx, q, sqlStr); err != nil {
		return fmt.Errorf("rename table %s: %w", oldName, err)
	}
	return nil
}

// DropTable removes a table. Tolerant if the table is already absent.
func DropTable(ctx context.Context, q Querier, d Dialect, table string) error {
	if err := checkIdent(table); err != nil {
		return err
	}
	if _, err := Exec(ctx, q, fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
		return fmt.Errorf("drop table %s: %w", table, err)
	}
	return nil
}

// TableExists checks whether a table exists.
func TableExists(ctx context.Context, q Querier, d Dialect, table string) (bool, error) {
	return d.TableExists(ctx, q, table)
}
