package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ridoystarlord/ormschema/dialect"
	"github.com/ridoystarlord/ormschema/schema"
)

// Postgres inspects tables of the current schema.
type Postgres struct {
	db      Querier
	dialect dialect.Dialect
}

const pgTablesQuery = `
	SELECT table_name
	FROM information_schema.tables
	WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
	ORDER BY table_name`

const pgHasTableQuery = `
	SELECT COUNT(*)
	FROM information_schema.tables
	WHERE table_schema = current_schema() AND table_name = $1`

const pgColumnsQuery = `
	SELECT
		column_name,
		data_type,
		is_nullable,
		column_default,
		character_maximum_length,
		numeric_precision,
		numeric_scale
	FROM information_schema.columns
	WHERE table_schema = current_schema() AND table_name = $1
	ORDER BY ordinal_position`

const pgPrimaryKeysQuery = `
	SELECT kcu.column_name
	FROM information_schema.table_constraints AS tc
	JOIN information_schema.key_column_usage AS kcu
		ON tc.constraint_name = kcu.constraint_name
		AND tc.table_schema = kcu.table_schema
	WHERE tc.constraint_type = 'PRIMARY KEY'
		AND tc.table_schema = current_schema()
		AND tc.table_name = $1
	ORDER BY kcu.ordinal_position`

const pgIndexesQuery = `
	SELECT ic.relname, ix.indisunique, a.attname
	FROM pg_index ix
	JOIN pg_class t ON t.oid = ix.indrelid
	JOIN pg_class ic ON ic.oid = ix.indexrelid
	JOIN pg_namespace n ON n.oid = t.relnamespace
	JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
	WHERE n.nspname = current_schema() AND t.relname = $1 AND NOT ix.indisprimary
	ORDER BY ic.relname, array_position(ix.indkey::int2[], a.attnum)`

const pgForeignKeysQuery = `
	SELECT
		kcu.constraint_name,
		kcu.column_name,
		fk.table_name,
		fk.column_name,
		rc.update_rule,
		rc.delete_rule
	FROM information_schema.referential_constraints AS rc
	JOIN information_schema.key_column_usage AS kcu
		ON kcu.constraint_name = rc.constraint_name
		AND kcu.constraint_schema = rc.constraint_schema
	JOIN information_schema.key_column_usage AS fk
		ON fk.constraint_name = rc.unique_constraint_name
		AND fk.constraint_schema = rc.unique_constraint_schema
		AND fk.ordinal_position = kcu.position_in_unique_constraint
	WHERE kcu.table_schema = current_schema() AND kcu.table_name = $1
	ORDER BY kcu.constraint_name, kcu.ordinal_position`

func (p *Postgres) Tables(ctx context.Context) ([]string, error) {
	tables, err := queryStrings(ctx, p.db, pgTablesQuery)
	if err != nil {
		return nil, fmt.Errorf("querying tables: %w", err)
	}
	return tables, nil
}

func (p *Postgres) HasTable(ctx context.Context, table string) (bool, error) {
	var n int
	if err := p.db.QueryRowContext(ctx, pgHasTableQuery, table).Scan(&n); err != nil {
		return false, fmt.Errorf("checking table %s: %w", table, err)
	}
	return n > 0, nil
}

func (p *Postgres) Table(ctx context.Context, table string) (schema.State, error) {
	raw, err := p.columns(ctx, table)
	if err != nil {
		return schema.State{}, fmt.Errorf("getting columns for table %s: %w", table, err)
	}
	pks, err := queryStrings(ctx, p.db, pgPrimaryKeysQuery, table)
	if err != nil {
		return schema.State{}, fmt.Errorf("getting primary keys for table %s: %w", table, err)
	}
	for i := range raw {
		// serial keys surface as an integer column defaulting to nextval()
		d := raw[i].column.Default
		if d.Kind == schema.DefaultExpr && strings.HasPrefix(d.Value, "nextval(") && len(pks) == 1 && pks[0] == raw[i].column.Name {
			raw[i].autoIncrement = true
			raw[i].column.Default = schema.Default{}
		}
	}

	rows, err := p.db.QueryContext(ctx, pgIndexesQuery, table)
	if err != nil {
		return schema.State{}, fmt.Errorf("querying indexes: %w", err)
	}
	indexes, err := groupIndexes(rows)
	rows.Close()
	if err != nil {
		return schema.State{}, err
	}

	rows, err = p.db.QueryContext(ctx, pgForeignKeysQuery, table)
	if err != nil {
		return schema.State{}, fmt.Errorf("querying foreign keys: %w", err)
	}
	fks, err := groupForeignKeys(rows)
	rows.Close()
	if err != nil {
		return schema.State{}, err
	}

	return schema.State{
		Columns:     classify(p.dialect, raw, pks),
		Indexes:     indexes,
		ForeignKeys: fks,
		PrimaryKeys: pks,
	}, nil
}

func (p *Postgres) columns(ctx context.Context, table string) ([]rawColumn, error) {
	rows, err := p.db.QueryContext(ctx, pgColumnsQuery, table)
	if err != nil {
		return nil, fmt.Errorf("querying columns: %w", err)
	}
	defer rows.Close()

	var out []rawColumn
	for rows.Next() {
		var (
			name, dataType, nullable string
			def                      sql.NullString
			length, precision, scale sql.NullInt64
		)
		if err := rows.Scan(&name, &dataType, &nullable, &def, &length, &precision, &scale); err != nil {
			return nil, fmt.Errorf("scanning column: %w", err)
		}
		c := schema.Column{
			Name:     name,
			Type:     dataType,
			Nullable: nullable == "YES",
			Default:  dialect.ParseDefault(def.String),
		}
		switch dataType {
		case "character varying", "character":
			c.Size = int(length.Int64)
		case "numeric":
			c.Precision, c.Scale = int(precision.Int64), int(scale.Int64)
		}
		out = append(out, rawColumn{column: c})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating column rows: %w", err)
	}
	return out, nil
}
