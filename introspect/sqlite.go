package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/ridoystarlord/ormschema/dialect"
	"github.com/ridoystarlord/ormschema/schema"
)

// SQLite inspects tables of the main database.
type SQLite struct {
	db      Querier
	dialect dialect.Dialect
}

const (
	liteTablesQuery      = `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
	liteHasTableQuery    = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	liteColumnsQuery     = `SELECT name, type, "notnull", dflt_value, pk FROM pragma_table_info(?) ORDER BY cid`
	liteIndexListQuery   = `SELECT name, "unique", origin FROM pragma_index_list(?)`
	liteIndexInfoQuery   = `SELECT name FROM pragma_index_info(?) ORDER BY seqno`
	liteForeignKeysQuery = `SELECT id, "table", "from", "to", on_update, on_delete FROM pragma_foreign_key_list(?) ORDER BY id, seq`
)

func (s *SQLite) Tables(ctx context.Context) ([]string, error) {
	tables, err := queryStrings(ctx, s.db, liteTablesQuery)
	if err != nil {
		return nil, fmt.Errorf("querying tables: %w", err)
	}
	return tables, nil
}

func (s *SQLite) HasTable(ctx context.Context, table string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, liteHasTableQuery, table).Scan(&n); err != nil {
		return false, fmt.Errorf("checking table %s: %w", table, err)
	}
	return n > 0, nil
}

func (s *SQLite) Table(ctx context.Context, table string) (schema.State, error) {
	raw, pks, err := s.columns(ctx, table)
	if err != nil {
		return schema.State{}, fmt.Errorf("getting columns for table %s: %w", table, err)
	}
	indexes, err := s.indexes(ctx, table)
	if err != nil {
		return schema.State{}, fmt.Errorf("getting indexes for table %s: %w", table, err)
	}
	fks, err := s.foreignKeys(ctx, table)
	if err != nil {
		return schema.State{}, fmt.Errorf("getting foreign keys for table %s: %w", table, err)
	}
	return schema.State{
		Columns:     classify(s.dialect, raw, pks),
		Indexes:     indexes,
		ForeignKeys: fks,
		PrimaryKeys: pks,
	}, nil
}

func (s *SQLite) columns(ctx context.Context, table string) ([]rawColumn, []string, error) {
	rows, err := s.db.QueryContext(ctx, liteColumnsQuery, table)
	if err != nil {
		return nil, nil, fmt.Errorf("querying columns: %w", err)
	}
	defer rows.Close()

	type keyPart struct {
		name string
		pos  int
	}
	var (
		out   []rawColumn
		parts []keyPart
	)
	for rows.Next() {
		var (
			name, declared string
			notNull, pk    int
			def            sql.NullString
		)
		if err := rows.Scan(&name, &declared, &notNull, &def, &pk); err != nil {
			return nil, nil, fmt.Errorf("scanning column: %w", err)
		}
		typ, size, precision, scale := dialect.ParseSQLiteType(declared)
		out = append(out, rawColumn{column: schema.Column{
			Name:      name,
			Type:      typ,
			Size:      size,
			Precision: precision,
			Scale:     scale,
			Nullable:  notNull == 0,
			Default:   dialect.ParseDefault(def.String),
		}})
		if pk > 0 {
			parts = append(parts, keyPart{name: name, pos: pk})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterating column rows: %w", err)
	}

	sort.Slice(parts, func(i, j int) bool { return parts[i].pos < parts[j].pos })
	pks := make([]string, 0, len(parts))
	for _, p := range parts {
		pks = append(pks, p.name)
	}
	// a single integer primary key aliases the rowid and auto increments
	if len(pks) == 1 {
		for i := range out {
			if out[i].column.Name == pks[0] && out[i].column.Type == "integer" {
				out[i].autoIncrement = true
			}
		}
	}
	return out, pks, nil
}

func (s *SQLite) indexes(ctx context.Context, table string) ([]schema.Index, error) {
	rows, err := s.db.QueryContext(ctx, liteIndexListQuery, table)
	if err != nil {
		return nil, fmt.Errorf("querying index list: %w", err)
	}
	var list []schema.Index
	for rows.Next() {
		var (
			name, origin string
			unique       bool
		)
		if err := rows.Scan(&name, &unique, &origin); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning index: %w", err)
		}
		if origin == "pk" || strings.HasPrefix(name, "sqlite_autoindex_") {
			continue
		}
		list = append(list, schema.Index{Name: name, Unique: unique})
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("iterating index rows: %w", err)
	}

	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	for i := range list {
		cols, err := queryStrings(ctx, s.db, liteIndexInfoQuery, list[i].Name)
		if err != nil {
			return nil, fmt.Errorf("querying index %s: %w", list[i].Name, err)
		}
		list[i].Columns = cols
	}
	return list, nil
}

func (s *SQLite) foreignKeys(ctx context.Context, table string) ([]schema.ForeignKey, error) {
	rows, err := s.db.QueryContext(ctx, liteForeignKeysQuery, table)
	if err != nil {
		return nil, fmt.Errorf("querying foreign keys: %w", err)
	}
	defer rows.Close()

	var (
		out    []schema.ForeignKey
		lastID = -1
	)
	for rows.Next() {
		var (
			id                                     int
			foreignTable, from, onUpdate, onDelete string
			to                                     sql.NullString
		)
		if err := rows.Scan(&id, &foreignTable, &from, &to, &onUpdate, &onDelete); err != nil {
			return nil, fmt.Errorf("scanning foreign key: %w", err)
		}
		if id == lastID {
			fk := &out[len(out)-1]
			fk.Columns = append(fk.Columns, from)
			fk.ForeignColumns = append(fk.ForeignColumns, to.String)
			continue
		}
		lastID = id
		out = append(out, schema.ForeignKey{
			Columns:        []string{from},
			ForeignTable:   foreignTable,
			ForeignColumns: []string{to.String},
			OnDelete:       NormalizeAction(onDelete),
			OnUpdate:       NormalizeAction(onUpdate),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating foreign key rows: %w", err)
	}
	// SQLite keeps no constraint names
	for i := range out {
		out[i].Name = schema.ForeignKeyName(table, out[i].Columns...)
	}
	return out, nil
}
