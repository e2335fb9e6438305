package registry

import (
	"slices"

	"github.com/ridoystarlord/ormschema/schema"
)

// Field is one mapped property of an entity.
type Field struct {
	Name      string
	Column    string
	Type      string // abstract column type
	Size      int
	Precision int
	Scale     int
	Nullable  bool
	Default   schema.Default
	Typecast  string
	Primary   bool
}

type RelationType string

const (
	BelongsTo  RelationType = "belongsTo"
	HasOne     RelationType = "hasOne"
	HasMany    RelationType = "hasMany"
	ManyToMany RelationType = "manyToMany"
)

func (t RelationType) Valid() bool {
	switch t {
	case BelongsTo, HasOne, HasMany, ManyToMany:
		return true
	}
	return false
}

// Relation links an entity to a target entity. Key names are column names;
// empty keys are filled in by relation generation.
type Relation struct {
	Name     string
	Type     RelationType
	Target   string
	InnerKey string
	OuterKey string
	Nullable bool
	Cascade  bool
	OnDelete string

	// many to many only
	Through         string
	ThroughInnerKey string
	ThroughOuterKey string
}

// Index is a table index declared on an entity, over column names.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

// Entity is the declaration of one persistent type.
type Entity struct {
	Role       string
	Class      string
	Mapper     string
	Repository string
	Database   string
	Table      string

	Fields      []Field
	PrimaryKeys []string // field names
	Relations   []Relation
	Indexes     []Index

	// Columns are table-level columns that map to no field.
	Columns []Field
}

func (e *Entity) Field(name string) (*Field, bool) {
	for i := range e.Fields {
		if e.Fields[i].Name == name {
			return &e.Fields[i], true
		}
	}
	return nil, false
}

func (e *Entity) FieldByColumn(column string) (*Field, bool) {
	for i := range e.Fields {
		if e.Fields[i].Column == column {
			return &e.Fields[i], true
		}
	}
	return nil, false
}

// PrimaryColumns returns the column names of the primary key fields.
func (e *Entity) PrimaryColumns() []string {
	cols := make([]string, 0, len(e.PrimaryKeys))
	for _, pk := range e.PrimaryKeys {
		if f, ok := e.Field(pk); ok {
			cols = append(cols, f.Column)
		}
	}
	return cols
}

// Clone returns a deep copy of e.
func (e *Entity) Clone() *Entity {
	out := *e
	out.Fields = slices.Clone(e.Fields)
	out.PrimaryKeys = slices.Clone(e.PrimaryKeys)
	out.Relations = slices.Clone(e.Relations)
	out.Columns = slices.Clone(e.Columns)
	out.Indexes = make([]Index, len(e.Indexes))
	for i, idx := range e.Indexes {
		idx.Columns = slices.Clone(idx.Columns)
		out.Indexes[i] = idx
	}
	return &out
}
