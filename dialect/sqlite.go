package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ridoystarlord/ormschema/schema"
)

type sqlite struct{}

func (sqlite) Name() string { return SQLite }

func (sqlite) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// SQLite cannot alter column definitions, constraints or keys of an existing
// table. Such changes rebuild the table.
func (sqlite) CanAlter() bool { return false }

func (sqlite) Column(name string, t Type) (schema.Column, error) {
	c := schema.Column{Name: name, AbstractType: t.Abstract, Nullable: t.Nullable, Default: normalizeDefault(t.Default)}
	switch t.Abstract {
	case TypePrimary, TypeBigPrimary:
		// only "integer primary key" aliases the rowid
		c.Type, c.AbstractType, c.Nullable, c.Default = "integer", TypePrimary, false, schema.Default{}
	case TypeInteger:
		c.Type = "integer"
	case TypeBigInteger:
		c.Type = "bigint"
	case TypeString:
		c.Type, c.Size = "varchar", orDefault(t.Size, 255)
	case TypeText:
		c.Type = "text"
	case TypeBoolean:
		c.Type = "boolean"
	case TypeFloat:
		c.Type = "real"
	case TypeDecimal:
		c.Type, c.Precision, c.Scale = "numeric", orDefault(t.Precision, 10), t.Scale
	case TypeDatetime:
		c.Type = "datetime"
	case TypeDate:
		c.Type = "date"
	case TypeTime:
		c.Type = "time"
	case TypeJSON:
		c.Type = "json"
	case TypeUUID:
		c.Type, c.Size = "char", 36
	case TypeBinary:
		c.Type = "blob"
	default:
		return schema.Column{}, fmt.Errorf("sqlite: unsupported column type %q", t.Abstract)
	}
	return c, nil
}

func (sqlite) Abstract(c schema.Column, primary, autoIncrement bool) string {
	switch strings.ToLower(c.Type) {
	case "integer", "int":
		if primary && autoIncrement {
			return TypePrimary
		}
		return TypeInteger
	case "bigint":
		return TypeBigInteger
	case "varchar", "character varying":
		return TypeString
	case "char":
		if c.Size == 36 {
			return TypeUUID
		}
		return TypeString
	case "text", "clob":
		return TypeText
	case "boolean", "bool":
		return TypeBoolean
	case "real", "double", "float":
		return TypeFloat
	case "numeric", "decimal":
		return TypeDecimal
	case "datetime", "timestamp":
		return TypeDatetime
	case "date":
		return TypeDate
	case "time":
		return TypeTime
	case "json":
		return TypeJSON
	case "blob":
		return TypeBinary
	}
	return strings.ToLower(c.Type)
}

// ParseSQLiteType splits a declared SQLite column type such as
// "varchar(255)" or "numeric(10, 2)" into its name and arguments.
func ParseSQLiteType(declared string) (name string, size, precision, scale int) {
	declared = strings.ToLower(strings.TrimSpace(declared))
	open := strings.IndexByte(declared, '(')
	if open < 0 || !strings.HasSuffix(declared, ")") {
		return declared, 0, 0, 0
	}
	name = strings.TrimSpace(declared[:open])
	args := strings.Split(declared[open+1:len(declared)-1], ",")
	first, _ := strconv.Atoi(strings.TrimSpace(args[0]))
	switch name {
	case "numeric", "decimal":
		precision = first
		if len(args) > 1 {
			scale, _ = strconv.Atoi(strings.TrimSpace(args[1]))
		}
	default:
		size = first
	}
	return name, size, precision, scale
}

func (sqlite) typeSQL(c schema.Column) string {
	switch c.Type {
	case "varchar", "char":
		return fmt.Sprintf("%s(%d)", c.Type, c.Size)
	case "numeric":
		return fmt.Sprintf("numeric(%d, %d)", c.Precision, c.Scale)
	}
	return c.Type
}

func (d sqlite) definition(c schema.Column, rowid bool) string {
	if rowid {
		return d.Quote(c.Name) + " integer NOT NULL PRIMARY KEY AUTOINCREMENT"
	}
	return d.Quote(c.Name) + " " + d.typeSQL(c) + nullability(c) + defaultClause(c)
}

// rowidColumn returns the autoincrement primary key column of s, if any.
func rowidColumn(s schema.State) string {
	if len(s.PrimaryKeys) != 1 {
		return ""
	}
	if c, ok := s.Column(s.PrimaryKeys[0]); ok && c.AbstractType == TypePrimary {
		return c.Name
	}
	return ""
}

func (d sqlite) createTable(table string, s schema.State) string {
	rowid := rowidColumn(s)
	var parts []string
	for _, c := range s.Columns {
		parts = append(parts, d.definition(c, c.Name == rowid))
	}
	if rowid == "" && len(s.PrimaryKeys) > 0 {
		parts = append(parts, fmt.Sprintf("PRIMARY KEY (%s)", quoteAll(d, s.PrimaryKeys)))
	}
	for _, fk := range s.ForeignKeys {
		parts = append(parts, foreignKeyClause(d, fk))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s);", d.Quote(table), strings.Join(parts, ", "))
}

func (d sqlite) CreateTable(table string, s schema.State) []string {
	stmts := []string{d.createTable(table, s)}
	for _, idx := range s.Indexes {
		stmts = append(stmts, createIndex(d, table, idx))
	}
	return stmts
}

func (d sqlite) DropTable(table string) []string {
	return []string{fmt.Sprintf("DROP TABLE IF EXISTS %s;", d.Quote(table))}
}

func (d sqlite) AddColumn(table string, c schema.Column) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", d.Quote(table), d.definition(c, false))}
}

func (d sqlite) DropColumn(table string, c schema.Column) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", d.Quote(table), d.Quote(c.Name))}
}

func (sqlite) AlterColumn(string, schema.Column, schema.Column) []string { return nil }

func (d sqlite) AddIndex(table string, idx schema.Index) []string {
	return []string{createIndex(d, table, idx)}
}

func (d sqlite) DropIndex(_ string, idx schema.Index) []string {
	return []string{fmt.Sprintf("DROP INDEX IF EXISTS %s;", d.Quote(idx.Name))}
}

func (sqlite) AddForeignKey(string, schema.ForeignKey) []string { return nil }
func (sqlite) DropForeignKey(string, schema.ForeignKey) []string { return nil }
func (sqlite) AlterPrimaryKey(string, []string, []string) []string { return nil }

// Rebuild copies the table into a new one with the target structure. Data of
// columns present in both states is preserved.
func (d sqlite) Rebuild(table string, from, to schema.State) []string {
	tmp := "_" + table + "_new"
	var common []string
	for _, c := range to.Columns {
		if _, ok := from.Column(c.Name); ok {
			common = append(common, c.Name)
		}
	}
	stmts := []string{d.createTable(tmp, to)}
	if len(common) > 0 {
		cols := quoteAll(d, common)
		stmts = append(stmts, fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s;", d.Quote(tmp), cols, cols, d.Quote(table)))
	}
	stmts = append(stmts,
		fmt.Sprintf("DROP TABLE %s;", d.Quote(table)),
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s;", d.Quote(tmp), d.Quote(table)),
	)
	for _, idx := range to.Indexes {
		stmts = append(stmts, createIndex(d, table, idx))
	}
	return stmts
}
