package dialect

import (
	"fmt"
	"strings"

	"github.com/ridoystarlord/ormschema/schema"
)

type postgres struct{}

func (postgres) Name() string { return Postgres }

func (postgres) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (postgres) CanAlter() bool { return true }

func (postgres) Column(name string, t Type) (schema.Column, error) {
	c := schema.Column{Name: name, AbstractType: t.Abstract, Nullable: t.Nullable, Default: normalizeDefault(t.Default)}
	switch t.Abstract {
	case TypePrimary:
		c.Type, c.Nullable, c.Default = "integer", false, schema.Default{}
	case TypeBigPrimary:
		c.Type, c.Nullable, c.Default = "bigint", false, schema.Default{}
	case TypeInteger:
		c.Type = "integer"
	case TypeBigInteger:
		c.Type = "bigint"
	case TypeString:
		c.Type, c.Size = "character varying", orDefault(t.Size, 255)
	case TypeText:
		c.Type = "text"
	case TypeBoolean:
		c.Type = "boolean"
	case TypeFloat:
		c.Type = "double precision"
	case TypeDecimal:
		c.Type, c.Precision, c.Scale = "numeric", orDefault(t.Precision, 10), t.Scale
	case TypeDatetime:
		c.Type = "timestamp without time zone"
	case TypeDate:
		c.Type = "date"
	case TypeTime:
		c.Type = "time without time zone"
	case TypeJSON:
		c.Type = "jsonb"
	case TypeUUID:
		c.Type = "uuid"
	case TypeBinary:
		c.Type = "bytea"
	default:
		return schema.Column{}, fmt.Errorf("postgres: unsupported column type %q", t.Abstract)
	}
	return c, nil
}

func (postgres) Abstract(c schema.Column, primary, autoIncrement bool) string {
	switch strings.ToLower(c.Type) {
	case "integer", "int", "int4", "smallint":
		if primary && autoIncrement {
			return TypePrimary
		}
		return TypeInteger
	case "bigint", "int8":
		if primary && autoIncrement {
			return TypeBigPrimary
		}
		return TypeBigInteger
	case "character varying", "character", "varchar":
		return TypeString
	case "text":
		return TypeText
	case "boolean":
		return TypeBoolean
	case "double precision", "real":
		return TypeFloat
	case "numeric":
		return TypeDecimal
	case "timestamp without time zone", "timestamp with time zone":
		return TypeDatetime
	case "date":
		return TypeDate
	case "time without time zone", "time with time zone":
		return TypeTime
	case "json", "jsonb":
		return TypeJSON
	case "uuid":
		return TypeUUID
	case "bytea":
		return TypeBinary
	}
	return strings.ToLower(c.Type)
}

func (d postgres) typeSQL(c schema.Column) string {
	switch c.AbstractType {
	case TypePrimary:
		return "SERIAL"
	case TypeBigPrimary:
		return "BIGSERIAL"
	}
	switch c.Type {
	case "character varying":
		return fmt.Sprintf("varchar(%d)", c.Size)
	case "numeric":
		return fmt.Sprintf("numeric(%d, %d)", c.Precision, c.Scale)
	}
	return c.Type
}

func (d postgres) definition(c schema.Column) string {
	return d.Quote(c.Name) + " " + d.typeSQL(c) + nullability(c) + defaultClause(c)
}

func (d postgres) CreateTable(table string, s schema.State) []string {
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

func (d postgres) DropTable(table string) []string {
	return []string{fmt.Sprintf("DROP TABLE IF EXISTS %s;", d.Quote(table))}
}

func (d postgres) AddColumn(table string, c schema.Column) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", d.Quote(table), d.definition(c))}
}

func (d postgres) DropColumn(table string, c schema.Column) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", d.Quote(table), d.Quote(c.Name))}
}

func (d postgres) AlterColumn(table string, old, new schema.Column) []string {
	prefix := fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s", d.Quote(table), d.Quote(new.Name))
	var stmts []string
	if !strings.EqualFold(old.Type, new.Type) || old.Size != new.Size || old.Precision != new.Precision || old.Scale != new.Scale {
		t := d.typeSQL(new)
		if IsPrimaryType(new.AbstractType) {
			t = new.Type
		}
		stmts = append(stmts, fmt.Sprintf("%s TYPE %s USING %s::%s;", prefix, t, d.Quote(new.Name), t))
	}
	if old.Nullable != new.Nullable {
		if new.Nullable {
			stmts = append(stmts, prefix+" DROP NOT NULL;")
		} else {
			stmts = append(stmts, prefix+" SET NOT NULL;")
		}
	}
	if old.Default != new.Default {
		if new.Default.IsZero() {
			stmts = append(stmts, prefix+" DROP DEFAULT;")
		} else {
			stmts = append(stmts, prefix+" SET DEFAULT "+new.Default.String()+";")
		}
	}
	return stmts
}

func (d postgres) AddIndex(table string, idx schema.Index) []string {
	return []string{createIndex(d, table, idx)}
}

func (d postgres) DropIndex(_ string, idx schema.Index) []string {
	return []string{fmt.Sprintf("DROP INDEX IF EXISTS %s;", d.Quote(idx.Name))}
}

func (d postgres) AddForeignKey(table string, fk schema.ForeignKey) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s ADD %s;", d.Quote(table), foreignKeyClause(d, fk))}
}

func (d postgres) DropForeignKey(table string, fk schema.ForeignKey) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s;", d.Quote(table), d.Quote(fk.Name))}
}

func (d postgres) AlterPrimaryKey(table string, old, new []string) []string {
	var stmts []string
	if len(old) > 0 {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s;", d.Quote(table), d.Quote(table+"_pkey")))
	}
	if len(new) > 0 {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD PRIMARY KEY (%s);", d.Quote(table), quoteAll(d, new)))
	}
	return stmts
}

func (postgres) Rebuild(string, schema.State, schema.State) []string { return nil }
