// Package dialect maps portable column types onto database types and renders
// the DDL statements used by migrations and table synchronization.
package dialect

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ridoystarlord/ormschema/schema"
)

const (
	Postgres = "postgres"
	MySQL    = "mysql"
	SQLite   = "sqlite"
)

// Abstract column types.
const (
	TypePrimary    = "primary"
	TypeBigPrimary = "bigPrimary"
	TypeInteger    = "integer"
	TypeBigInteger = "bigInteger"
	TypeString     = "string"
	TypeText       = "text"
	TypeBoolean    = "boolean"
	TypeFloat      = "float"
	TypeDecimal    = "decimal"
	TypeDatetime   = "datetime"
	TypeDate       = "date"
	TypeTime       = "time"
	TypeJSON       = "json"
	TypeUUID       = "uuid"
	TypeBinary     = "binary"
)

// AbstractTypes lists every supported abstract type.
var AbstractTypes = []string{
	TypePrimary, TypeBigPrimary, TypeInteger, TypeBigInteger, TypeString, TypeText,
	TypeBoolean, TypeFloat, TypeDecimal, TypeDatetime, TypeDate, TypeTime,
	TypeJSON, TypeUUID, TypeBinary,
}

func IsAbstractType(t string) bool {
	for _, a := range AbstractTypes {
		if a == t {
			return true
		}
	}
	return false
}

func IsPrimaryType(t string) bool { return t == TypePrimary || t == TypeBigPrimary }

// Type is the portable description of a column.
type Type struct {
	Abstract  string
	Size      int
	Precision int
	Scale     int
	Nullable  bool
	Default   schema.Default
}

type Dialect interface {
	Name() string
	Quote(ident string) string

	// Column declares a column of the given portable type in the exact form
	// introspection reports it back, so unchanged declarations compare equal.
	Column(name string, t Type) (schema.Column, error)
	// Abstract classifies an introspected column.
	Abstract(c schema.Column, primary, autoIncrement bool) string

	// CanAlter reports whether columns, foreign keys and primary keys of an
	// existing table can be altered in place. Otherwise Rebuild is used.
	CanAlter() bool

	CreateTable(table string, s schema.State) []string
	DropTable(table string) []string
	AddColumn(table string, c schema.Column) []string
	DropColumn(table string, c schema.Column) []string
	AlterColumn(table string, old, new schema.Column) []string
	AddIndex(table string, idx schema.Index) []string
	DropIndex(table string, idx schema.Index) []string
	AddForeignKey(table string, fk schema.ForeignKey) []string
	DropForeignKey(table string, fk schema.ForeignKey) []string
	AlterPrimaryKey(table string, old, new []string) []string
	Rebuild(table string, from, to schema.State) []string
}

var dialects = map[string]Dialect{
	Postgres: postgres{},
	MySQL:    mysql{},
	SQLite:   sqlite{},
}

// Get returns the dialect registered for a driver name. "pgx" and
// "sqlite3" are accepted as aliases.
func Get(driver string) (Dialect, error) {
	switch driver {
	case "pgx", "postgresql":
		driver = Postgres
	case "sqlite3":
		driver = SQLite
	}
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported dialect %q", driver)
	}
	return d, nil
}

// Names returns the registered dialect names, sorted.
func Names() []string {
	names := make([]string, 0, len(dialects))
	for n := range dialects {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// normalizeDefault folds defaults a database cannot tell apart from "no
// default" when reading them back.
func normalizeDefault(d schema.Default) schema.Default {
	if d.Kind == schema.DefaultNull {
		return schema.Default{}
	}
	return d
}

// ParseDefault turns a raw introspected default into a schema.Default.
// Quoted strings, numbers and booleans are literals, NULL is no default and
// anything else is an expression.
func ParseDefault(raw string) schema.Default {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "null") {
		return schema.Default{}
	}
	if strings.HasPrefix(raw, "'") {
		// 'value'::type
		end := strings.LastIndex(raw, "'")
		if end > 0 {
			return schema.Literal(strings.ReplaceAll(raw[1:end], "''", "'"))
		}
	}
	if strings.HasPrefix(strings.ToUpper(raw), "NULL::") {
		return schema.Default{}
	}
	if isNumber(raw) || strings.EqualFold(raw, "true") || strings.EqualFold(raw, "false") {
		return schema.Literal(strings.ToLower(raw))
	}
	return schema.Expr(raw)
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	dot := false
	for i, r := range s {
		switch {
		case r == '-' && i == 0:
		case r == '.' && !dot:
			dot = true
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return s != "-" && s != "."
}

func quoteAll(d Dialect, names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = d.Quote(n)
	}
	return strings.Join(quoted, ", ")
}

func nullability(c schema.Column) string {
	if c.Nullable {
		return " NULL"
	}
	return " NOT NULL"
}

func defaultClause(c schema.Column) string {
	if c.Default.IsZero() {
		return ""
	}
	return " DEFAULT " + c.Default.String()
}

func referentialActions(fk schema.ForeignKey) string {
	var sb strings.Builder
	if fk.OnDelete != "" {
		sb.WriteString(" ON DELETE " + strings.ToUpper(fk.OnDelete))
	}
	if fk.OnUpdate != "" {
		sb.WriteString(" ON UPDATE " + strings.ToUpper(fk.OnUpdate))
	}
	return sb.String()
}

func foreignKeyClause(d Dialect, fk schema.ForeignKey) string {
	return fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)%s",
		d.Quote(fk.Name), quoteAll(d, fk.Columns), d.Quote(fk.ForeignTable), quoteAll(d, fk.ForeignColumns), referentialActions(fk))
}

func createIndex(d Dialect, table string, idx schema.Index) string {
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX %s ON %s (%s);", unique, d.Quote(idx.Name), d.Quote(table), quoteAll(d, idx.Columns))
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
