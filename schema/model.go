package schema

import (
	"slices"
	"strings"
)

// DefaultKind tells how a column default is expressed.
type DefaultKind uint8

const (
	DefaultNone DefaultKind = iota
	DefaultLiteral
	DefaultNull
	DefaultExpr // raw SQL evaluated by the database, e.g. now()
)

// Default is a column default value.
type Default struct {
	Kind  DefaultKind
	Value string
}

func Literal(v string) Default { return Default{Kind: DefaultLiteral, Value: v} }
func Null() Default            { return Default{Kind: DefaultNull} }
func Expr(sql string) Default  { return Default{Kind: DefaultExpr, Value: sql} }

func (d Default) IsZero() bool { return d.Kind == DefaultNone }

func (d Default) String() string {
	switch d.Kind {
	case DefaultLiteral:
		return "'" + strings.ReplaceAll(d.Value, "'", "''") + "'"
	case DefaultNull:
		return "NULL"
	case DefaultExpr:
		return d.Value
	}
	return ""
}

type Column struct {
	Name         string
	Type         string // database type, e.g. integer, character varying
	AbstractType string // portable type, e.g. primary, string, decimal
	Size         int
	Precision    int
	Scale        int
	Nullable     bool
	Default      Default
}

// Equal reports whether two columns have the same definition.
func (c Column) Equal(o Column) bool {
	return c.Name == o.Name &&
		strings.EqualFold(c.Type, o.Type) &&
		c.AbstractType == o.AbstractType &&
		c.Size == o.Size &&
		c.Precision == o.Precision &&
		c.Scale == o.Scale &&
		c.Nullable == o.Nullable &&
		c.Default == o.Default
}

type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

func (i Index) Equal(o Index) bool {
	return i.Name == o.Name && i.Unique == o.Unique && slices.Equal(i.Columns, o.Columns)
}

type ForeignKey struct {
	Name           string
	Columns        []string
	ForeignTable   string
	ForeignColumns []string
	OnDelete       string // CASCADE, SET NULL, RESTRICT, NO ACTION
	OnUpdate       string
}

func (fk ForeignKey) Equal(o ForeignKey) bool {
	return fk.Name == o.Name &&
		fk.ForeignTable == o.ForeignTable &&
		slices.Equal(fk.Columns, o.Columns) &&
		slices.Equal(fk.ForeignColumns, o.ForeignColumns) &&
		strings.EqualFold(fk.OnDelete, o.OnDelete) &&
		strings.EqualFold(fk.OnUpdate, o.OnUpdate)
}

// State is the structure of a table at one point in time. Columns keep
// their declaration (or ordinal) order.
type State struct {
	Columns     []Column
	Indexes     []Index
	ForeignKeys []ForeignKey
	PrimaryKeys []string
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := State{
		Columns:     slices.Clone(s.Columns),
		Indexes:     make([]Index, len(s.Indexes)),
		ForeignKeys: make([]ForeignKey, len(s.ForeignKeys)),
		PrimaryKeys: slices.Clone(s.PrimaryKeys),
	}
	for i, idx := range s.Indexes {
		idx.Columns = slices.Clone(idx.Columns)
		out.Indexes[i] = idx
	}
	for i, fk := range s.ForeignKeys {
		fk.Columns = slices.Clone(fk.Columns)
		fk.ForeignColumns = slices.Clone(fk.ForeignColumns)
		out.ForeignKeys[i] = fk
	}
	return out
}

func (s State) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

func (s State) Index(name string) (Index, bool) {
	for _, idx := range s.Indexes {
		if idx.Name == name {
			return idx, true
		}
	}
	return Index{}, false
}

func (s State) ForeignKey(name string) (ForeignKey, bool) {
	for _, fk := range s.ForeignKeys {
		if fk.Name == name {
			return fk, true
		}
	}
	return ForeignKey{}, false
}

func (s State) IsPrimary(column string) bool {
	return slices.Contains(s.PrimaryKeys, column)
}

// IndexName is the conventional name of an index over columns of table.
func IndexName(table string, columns ...string) string {
	return table + "_index_" + strings.Join(columns, "_")
}

// ForeignKeyName is the conventional name of a foreign key. SQLite does not
// report constraint names, so introspection names foreign keys the same way.
func ForeignKeyName(table string, columns ...string) string {
	return table + "_" + strings.Join(columns, "_") + "_fk"
}
