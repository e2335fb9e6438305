// Package schema models one database table twice: as it currently exists in
// the live database and as it is declared by the schema generators. The
// Comparator reports the delta between the two.
package schema

import (
	"fmt"
	"slices"
)

type Status int

const (
	StatusAsIs Status = iota
	StatusDeclaredDropped
	StatusNew
)

func (s Status) String() string {
	switch s {
	case StatusDeclaredDropped:
		return "declared-dropped"
	case StatusNew:
		return "new"
	}
	return "as-is"
}

// Table holds the current and declared structure of one table.
type Table struct {
	database string
	name     string
	exists   bool
	dropped  bool

	current  State
	declared State
}

// NewTable returns a table that does not exist in the database yet.
func NewTable(database, name string) *Table {
	return &Table{database: database, name: name}
}

// LoadTable returns a table seeded from introspection. Declared state starts
// as an exact copy of the current state.
func LoadTable(database, name string, current State) *Table {
	return &Table{
		database: database,
		name:     name,
		exists:   true,
		current:  current.Clone(),
		declared: current.Clone(),
	}
}

func (t *Table) Database() string { return t.database }
func (t *Table) Name() string     { return t.name }
func (t *Table) FullName() string { return t.database + "." + t.name }
func (t *Table) Exists() bool     { return t.exists }

func (t *Table) Status() Status {
	switch {
	case t.dropped:
		return StatusDeclaredDropped
	case !t.exists && len(t.declared.Columns) > 0:
		return StatusNew
	}
	return StatusAsIs
}

// Current returns a copy of the structure read from the database.
func (t *Table) Current() State { return t.current.Clone() }

// Declared returns a copy of the structure declared by generators.
func (t *Table) Declared() State { return t.declared.Clone() }

func (t *Table) Columns() []Column         { return slices.Clone(t.declared.Columns) }
func (t *Table) Indexes() []Index          { return t.Declared().Indexes }
func (t *Table) ForeignKeys() []ForeignKey { return t.Declared().ForeignKeys }
func (t *Table) PrimaryKeys() []string     { return slices.Clone(t.declared.PrimaryKeys) }

func (t *Table) Column(name string) (Column, bool) { return t.declared.Column(name) }
func (t *Table) HasColumn(name string) bool {
	_, ok := t.declared.Column(name)
	return ok
}

// DeclareColumn adds c, or replaces the declared column with the same name
// in place so declaration order is kept.
func (t *Table) DeclareColumn(c Column) {
	t.dropped = false
	for i := range t.declared.Columns {
		if t.declared.Columns[i].Name == c.Name {
			t.declared.Columns[i] = c
			return
		}
	}
	t.declared.Columns = append(t.declared.Columns, c)
}

func (t *Table) DropColumn(name string) {
	t.declared.Columns = slices.DeleteFunc(t.declared.Columns, func(c Column) bool { return c.Name == name })
	t.declared.PrimaryKeys = slices.DeleteFunc(t.declared.PrimaryKeys, func(pk string) bool { return pk == name })
}

func (t *Table) SetPrimaryKeys(columns ...string) error {
	for _, c := range columns {
		if !t.HasColumn(c) {
			return fmt.Errorf("primary key column %q is not declared on %s", c, t.FullName())
		}
	}
	t.declared.PrimaryKeys = slices.Clone(columns)
	return nil
}

func (t *Table) DeclareIndex(idx Index) {
	idx.Columns = slices.Clone(idx.Columns)
	for i := range t.declared.Indexes {
		if t.declared.Indexes[i].Name == idx.Name {
			t.declared.Indexes[i] = idx
			return
		}
	}
	t.declared.Indexes = append(t.declared.Indexes, idx)
}

func (t *Table) DropIndex(name string) {
	t.declared.Indexes = slices.DeleteFunc(t.declared.Indexes, func(i Index) bool { return i.Name == name })
}

func (t *Table) DeclareForeignKey(fk ForeignKey) {
	fk.Columns = slices.Clone(fk.Columns)
	fk.ForeignColumns = slices.Clone(fk.ForeignColumns)
	for i := range t.declared.ForeignKeys {
		if t.declared.ForeignKeys[i].Name == fk.Name {
			t.declared.ForeignKeys[i] = fk
			return
		}
	}
	t.declared.ForeignKeys = append(t.declared.ForeignKeys, fk)
}

func (t *Table) DropForeignKey(name string) {
	t.declared.ForeignKeys = slices.DeleteFunc(t.declared.ForeignKeys, func(fk ForeignKey) bool { return fk.Name == name })
}

// DeclareDropped marks the table for removal.
func (t *Table) DeclareDropped() {
	t.dropped = true
	t.declared = State{}
}

// Reset clears the declared structure so it can be declared again from
// scratch. Anything not re-declared is reported as dropped.
func (t *Table) Reset() {
	t.dropped = false
	t.declared = State{}
}

// Commit makes the declared structure the current one, as after the table
// has been synchronized with the database.
func (t *Table) Commit() {
	if t.dropped {
		t.exists = false
		t.dropped = false
		t.current = State{}
		t.declared = State{}
		return
	}
	t.exists = true
	t.current = t.declared.Clone()
}

func (t *Table) Comparator() *Comparator {
	return &Comparator{table: t}
}
