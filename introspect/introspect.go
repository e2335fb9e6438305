// Package introspect reads the live structure of database tables.
package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ridoystarlord/ormschema/dialect"
	"github.com/ridoystarlord/ormschema/schema"
)

// Inspector reads tables of one database connection.
type Inspector interface {
	Tables(ctx context.Context) ([]string, error)
	HasTable(ctx context.Context, table string) (bool, error)
	// Table returns the current structure of an existing table, with
	// columns in ordinal order and primary keys in key order.
	Table(ctx context.Context, table string) (schema.State, error)
}

// Querier is the subset of *sql.DB used by inspectors.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New returns the inspector for a dialect.
func New(d dialect.Dialect, db Querier) (Inspector, error) {
	switch d.Name() {
	case dialect.Postgres:
		return &Postgres{db: db, dialect: d}, nil
	case dialect.MySQL:
		return &MySQL{db: db, dialect: d}, nil
	case dialect.SQLite:
		return &SQLite{db: db, dialect: d}, nil
	}
	return nil, fmt.Errorf("no inspector for dialect %q", d.Name())
}

// rawColumn is a column as read from the catalog, before classification.
type rawColumn struct {
	column        schema.Column
	autoIncrement bool
}

func classify(d dialect.Dialect, raw []rawColumn, primaryKeys []string) []schema.Column {
	cols := make([]schema.Column, 0, len(raw))
	for _, r := range raw {
		c := r.column
		primary := false
		for _, pk := range primaryKeys {
			if pk == c.Name {
				primary = true
			}
		}
		c.AbstractType = d.Abstract(c, primary, r.autoIncrement)
		cols = append(cols, c)
	}
	return cols
}

// groupIndexes folds (name, unique, column) rows ordered by index name and
// column position into indexes.
func groupIndexes(rows *sql.Rows) ([]schema.Index, error) {
	var out []schema.Index
	for rows.Next() {
		var (
			name, column string
			unique       bool
		)
		if err := rows.Scan(&name, &unique, &column); err != nil {
			return nil, fmt.Errorf("scanning index: %w", err)
		}
		if n := len(out); n > 0 && out[n-1].Name == name {
			out[n-1].Columns = append(out[n-1].Columns, column)
			continue
		}
		out = append(out, schema.Index{Name: name, Unique: unique, Columns: []string{column}})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating index rows: %w", err)
	}
	return out, nil
}

// groupForeignKeys folds (name, column, foreign table, foreign column,
// update rule, delete rule) rows ordered by constraint and position.
func groupForeignKeys(rows *sql.Rows) ([]schema.ForeignKey, error) {
	var out []schema.ForeignKey
	for rows.Next() {
		var name, column, foreignTable, foreignColumn, onUpdate, onDelete string
		if err := rows.Scan(&name, &column, &foreignTable, &foreignColumn, &onUpdate, &onDelete); err != nil {
			return nil, fmt.Errorf("scanning foreign key: %w", err)
		}
		if n := len(out); n > 0 && out[n-1].Name == name {
			out[n-1].Columns = append(out[n-1].Columns, column)
			out[n-1].ForeignColumns = append(out[n-1].ForeignColumns, foreignColumn)
			continue
		}
		out = append(out, schema.ForeignKey{
			Name:           name,
			Columns:        []string{column},
			ForeignTable:   foreignTable,
			ForeignColumns: []string{foreignColumn},
			OnDelete:       NormalizeAction(onDelete),
			OnUpdate:       NormalizeAction(onUpdate),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating foreign key rows: %w", err)
	}
	return out, nil
}

// NormalizeAction upper-cases a referential action and maps the implicit
// NO ACTION to the empty string.
func NormalizeAction(action string) string {
	action = strings.ToUpper(strings.TrimSpace(action))
	if action == "NO ACTION" {
		return ""
	}
	return action
}

func queryStrings(ctx context.Context, db Querier, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
