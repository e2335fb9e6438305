package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ridoystarlord/ormschema/dialect"
	"github.com/ridoystarlord/ormschema/schema"
)

// MySQL inspects tables of the connection's current database.
type MySQL struct {
	db      Querier
	dialect dialect.Dialect
}

const myTablesQuery = `
	SELECT TABLE_NAME
	FROM information_schema.TABLES
	WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE'
	ORDER BY TABLE_NAME`

const myHasTableQuery = `
	SELECT COUNT(*)
	FROM information_schema.TABLES
	WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?`

const myColumnsQuery = `
	SELECT
		COLUMN_NAME,
		DATA_TYPE,
		COLUMN_TYPE,
		IS_NULLABLE,
		COLUMN_DEFAULT,
		CHARACTER_MAXIMUM_LENGTH,
		NUMERIC_PRECISION,
		NUMERIC_SCALE,
		EXTRA
	FROM information_schema.COLUMNS
	WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
	ORDER BY ORDINAL_POSITION`

const myPrimaryKeysQuery = `
	SELECT COLUMN_NAME
	FROM information_schema.KEY_COLUMN_USAGE
	WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND CONSTRAINT_NAME = 'PRIMARY'
	ORDER BY ORDINAL_POSITION`

const myIndexesQuery = `
	SELECT INDEX_NAME, NON_UNIQUE = 0, COLUMN_NAME
	FROM information_schema.STATISTICS
	WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND INDEX_NAME <> 'PRIMARY'
	ORDER BY INDEX_NAME, SEQ_IN_INDEX`

const myForeignKeysQuery = `
	SELECT
		kcu.CONSTRAINT_NAME,
		kcu.COLUMN_NAME,
		kcu.REFERENCED_TABLE_NAME,
		kcu.REFERENCED_COLUMN_NAME,
		rc.UPDATE_RULE,
		rc.DELETE_RULE
	FROM information_schema.KEY_COLUMN_USAGE AS kcu
	JOIN information_schema.REFERENTIAL_CONSTRAINTS AS rc
		ON rc.CONSTRAINT_SCHEMA = kcu.CONSTRAINT_SCHEMA
		AND rc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
	WHERE kcu.TABLE_SCHEMA = DATABASE() AND kcu.TABLE_NAME = ?
	ORDER BY kcu.CONSTRAINT_NAME, kcu.ORDINAL_POSITION`

func (m *MySQL) Tables(ctx context.Context) ([]string, error) {
	tables, err := queryStrings(ctx, m.db, myTablesQuery)
	if err != nil {
		return nil, fmt.Errorf("querying tables: %w", err)
	}
	return tables, nil
}

func (m *MySQL) HasTable(ctx context.Context, table string) (bool, error) {
	var n int
	if err := m.db.QueryRowContext(ctx, myHasTableQuery, table).Scan(&n); err != nil {
		return false, fmt.Errorf("checking table %s: %w", table, err)
	}
	return n > 0, nil
}

func (m *MySQL) Table(ctx context.Context, table string) (schema.State, error) {
	raw, err := m.columns(ctx, table)
	if err != nil {
		return schema.State{}, fmt.Errorf("getting columns for table %s: %w", table, err)
	}
	pks, err := queryStrings(ctx, m.db, myPrimaryKeysQuery, table)
	if err != nil {
		return schema.State{}, fmt.Errorf("getting primary keys for table %s: %w", table, err)
	}

	rows, err := m.db.QueryContext(ctx, myIndexesQuery, table)
	if err != nil {
		return schema.State{}, fmt.Errorf("querying indexes: %w", err)
	}
	indexes, err := groupIndexes(rows)
	rows.Close()
	if err != nil {
		return schema.State{}, err
	}

	rows, err = m.db.QueryContext(ctx, myForeignKeysQuery, table)
	if err != nil {
		return schema.State{}, fmt.Errorf("querying foreign keys: %w", err)
	}
	fks, err := groupForeignKeys(rows)
	rows.Close()
	if err != nil {
		return schema.State{}, err
	}

	return schema.State{
		Columns:     classify(m.dialect, raw, pks),
		Indexes:     indexes,
		ForeignKeys: fks,
		PrimaryKeys: pks,
	}, nil
}

func (m *MySQL) columns(ctx context.Context, table string) ([]rawColumn, error) {
	rows, err := m.db.QueryContext(ctx, myColumnsQuery, table)
	if err != nil {
		return nil, fmt.Errorf("querying columns: %w", err)
	}
	defer rows.Close()

	var out []rawColumn
	for rows.Next() {
		var (
			name, dataType, columnType, nullable, extra string
			def                                         sql.NullString
			length, precision, scale                    sql.NullInt64
		)
		if err := rows.Scan(&name, &dataType, &columnType, &nullable, &def, &length, &precision, &scale, &extra); err != nil {
			return nil, fmt.Errorf("scanning column: %w", err)
		}
		c := schema.Column{
			Name:     name,
			Type:     strings.ToLower(dataType),
			Nullable: nullable == "YES",
		}
		if strings.EqualFold(columnType, "tinyint(1)") {
			c.Type = "tinyint(1)"
		}
		switch c.Type {
		case "varchar", "char":
			c.Size = int(length.Int64)
		case "decimal":
			c.Precision, c.Scale = int(precision.Int64), int(scale.Int64)
		}
		switch {
		case !def.Valid:
		case strings.Contains(strings.ToUpper(extra), "DEFAULT_GENERATED"):
			c.Default = schema.Expr(def.String)
		default:
			c.Default = schema.Literal(def.String)
		}
		out = append(out, rawColumn{
			column:        c,
			autoIncrement: strings.Contains(strings.ToLower(extra), "auto_increment"),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating column rows: %w", err)
	}
	return out, nil
}
