package dialect

import (
	"fmt"
	"strings"

	"github.com/ridoystarlord/ormschema/schema"
)

type mysql struct{}

func (mysql) Name() string { return MySQL }

func (mysql) Quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func (mysql) CanAlter() bool { return true }

func (mysql) Column(name string, t Type) (schema.Column, error) {
	c := schema.Column{Name: name, AbstractType: t.Abstract, Nullable: t.Nullable, Default: normalizeDefault(t.Default)}
	switch t.Abstract {
	case TypePrimary:
		c.Type, c.Nullable, c.Default = "int", false, schema.Default{}
	case TypeBigPrimary:
		c.Type, c.Nullable, c.Default = "bigint", false, schema.Default{}
	case TypeInteger:
		c.Type = "int"
	case TypeBigInteger:
		c.Type = "bigint"
	case TypeString:
		c.Type, c.Size = "varchar", orDefault(t.Size, 255)
	case TypeText:
		c.Type = "text"
	case TypeBoolean:
		// information_schema reports booleans as tinyint(1)
		c.Type = "tinyint(1)"
	case TypeFloat:
		c.Type = "double"
	case TypeDecimal:
		c.Type, c.Precision, c.Scale = "decimal", orDefault(t.Precision, 10), t.Scale
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
		return schema.Column{}, fmt.Errorf("mysql: unsupported column type %q", t.Abstract)
	}
	return c, nil
}

func (mysql) Abstract(c schema.Column, primary, autoIncrement bool) string {
	switch strings.ToLower(c.Type) {
	case "int", "integer", "mediumint", "smallint":
		if primary && autoIncrement {
			return TypePrimary
		}
		return TypeInteger
	case "bigint":
		if primary && autoIncrement {
			return TypeBigPrimary
		}
		return TypeBigInteger
	case "tinyint(1)":
		return TypeBoolean
	case "tinyint":
		return TypeInteger
	case "varchar":
		return TypeString
	case "char":
		if c.Size == 36 {
			return TypeUUID
		}
		return TypeString
	case "text", "mediumtext", "longtext", "tinytext":
		return TypeText
	case "double", "float":
		return TypeFloat
	case "decimal":
		return TypeDecimal
	case "datetime", "timestamp":
		return TypeDatetime
	case "date":
		return TypeDate
	case "time":
		return TypeTime
	case "json":
		return TypeJSON
	case "blob", "mediumblob", "longblob", "varbinary", "binary":
		return TypeBinary
	}
	return strings.ToLower(c.Type)
}

func (mysql) typeSQL(c schema.Column) string {
	switch c.Type {
	case "varchar", "char":
		return fmt.Sprintf("%s(%d)", c.Type, c.Size)
	case "decimal":
		return fmt.Sprintf("decimal(%d, %d)", c.Precision, c.Scale)
	}
	return c.Type
}

func (d mysql) definition(c schema.Column) string {
	def := d.Quote(c.Name) + " " + d.typeSQL(c) + nullability(c) + defaultClause(c)
	if IsPrimaryType(c.AbstractType) {
		def += " AUTO_INCREMENT"
	}
	return def
}

func (d mysql) CreateTable(table string, s schema.State) []string {
	var parts []string
	for _, c := range s.Columns {
		parts = append(parts, d.definition(c))
	}
	if len(s.PrimaryKeys) > 0 {
		parts = append(parts, fmt.Sprintf("PRIMARY KEY (%s)", quoteAll(d, s.PrimaryKeys)))
	}
	stmts := []string{fmt.Sprintf("CREATE TABLE %s (%s);", d.Quote(table), strings.Join(parts, ", "))}
	for _, idx := range s.Indexes {
		stmts = append(stmts, createIndex(d, table, idx))
	}
	for _, fk := range s.ForeignKeys {
		stmts = append(stmts, d.AddForeignKey(table, fk)...)
	}
	return stmts
}

func (d mysql) DropTable(table string) []string {
	return []string{fmt.Sprintf("DROP TABLE IF EXISTS %s;", d.Quote(table))}
}

func (d mysql) AddColumn(table string, c schema.Column) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", d.Quote(table), d.definition(c))}
}

func (d mysql) DropColumn(table string, c schema.Column) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", d.Quote(table), d.Quote(c.Name))}
}

func (d mysql) AlterColumn(table string, _, new schema.Column) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s;", d.Quote(table), d.definition(new))}
}

func (d mysql) AddIndex(table string, idx schema.Index) []string {
	return []string{createIndex(d, table, idx)}
}

func (d mysql) DropIndex(table string, idx schema.Index) []string {
	return []string{fmt.Sprintf("DROP INDEX %s ON %s;", d.Quote(idx.Name), d.Quote(table))}
}

func (d mysql) AddForeignKey(table string, fk schema.ForeignKey) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s ADD %s;", d.Quote(table), foreignKeyClause(d, fk))}
}

func (d mysql) DropForeignKey(table string, fk schema.ForeignKey) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s;", d.Quote(table), d.Quote(fk.Name))}
}

func (d mysql) AlterPrimaryKey(table string, old, new []string) []string {
	var stmts []string
	if len(old) > 0 {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s DROP PRIMARY KEY;", d.Quote(table)))
	}
	if len(new) > 0 {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD PRIMARY KEY (%s);", d.Quote(table), quoteAll(d, new)))
	}
	return stmts
}

func (mysql) Rebuild(string, schema.State, schema.State) []string { return nil }
