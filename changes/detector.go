// Package changes reports the differences between the declared and the live
// database schema.
package changes

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/ridoystarlord/ormschema/registry"
	"github.com/ridoystarlord/ormschema/schema"
)

// Change is one changed table.
type Change struct {
	Database string
	Table    string
	Schema   *schema.Table
}

// Detector is a generator printing the changed tables of the registry. It
// keeps the changes of its last run.
type Detector struct {
	Out     io.Writer
	Verbose bool

	changes []Change
}

func New(out io.Writer, verbose bool) *Detector {
	return &Detector{Out: out, Verbose: verbose}
}

func (d *Detector) Name() string { return "ShowChanges" }

func (d *Detector) Run(_ context.Context, r *registry.Registry) (*registry.Registry, error) {
	d.changes = nil
	for _, t := range r.Tables() {
		if t.Comparator().HasChanges() {
			d.changes = append(d.changes, Change{Database: t.Database(), Table: t.Name(), Schema: t})
		}
	}
	if d.Out == nil {
		return r, nil
	}

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	fmt.Fprintln(d.Out, green.Sprint("Detecting schema changes:"))
	if len(d.changes) == 0 {
		fmt.Fprintln(d.Out, yellow.Sprint("no database changes has been detected"))
		return r, nil
	}

	for _, c := range d.changes {
		name := cyan.Sprintf("%s.%s", c.Database, c.Table)
		if !d.Verbose {
			fmt.Fprintf(d.Out, "• %s: %s change(s) detected\n", name, green.Sprint(numChanges(c.Schema)))
			continue
		}
		fmt.Fprintf(d.Out, "• %s\n", name)
		for _, line := range Describe(c.Schema) {
			fmt.Fprintf(d.Out, "    - %s\n", line)
		}
	}
	return r, nil
}

// HasChanges reports whether the last run found changed tables.
func (d *Detector) HasChanges() bool { return len(d.changes) > 0 }

// Changes returns the tables changed at the last run.
func (d *Detector) Changes() []Change {
	return append([]Change(nil), d.changes...)
}

// numChanges counts a created or dropped table as a single change.
func numChanges(t *schema.Table) int {
	if t.Status() == schema.StatusDeclaredDropped {
		return 1
	}
	return t.Comparator().NumChanges()
}

// Describe lists the changes of a table, one line each.
func Describe(t *schema.Table) []string {
	var out []string
	if !t.Exists() {
		out = append(out, "create table")
	}
	if t.Status() == schema.StatusDeclaredDropped {
		return append(out, "drop table")
	}

	cmp := t.Comparator()
	for _, c := range cmp.AddedColumns() {
		out = append(out, "add column "+c.Name)
	}
	for _, c := range cmp.DroppedColumns() {
		out = append(out, "drop column "+c.Name)
	}
	for _, p := range cmp.AlteredColumns() {
		out = append(out, "alter column "+p.Old.Name)
	}
	if cmp.PrimaryKeysChanged() {
		out = append(out, fmt.Sprintf("alter primary key [%s]", strings.Join(t.PrimaryKeys(), ", ")))
	}

	for _, idx := range cmp.AddedIndexes() {
		out = append(out, fmt.Sprintf("add index on [%s]", strings.Join(idx.Columns, ", ")))
	}
	for _, idx := range cmp.DroppedIndexes() {
		out = append(out, fmt.Sprintf("drop index on [%s]", strings.Join(idx.Columns, ", ")))
	}
	for _, p := range cmp.AlteredIndexes() {
		out = append(out, fmt.Sprintf("alter index on [%s]", strings.Join(p.Old.Columns, ", ")))
	}

	for _, fk := range cmp.AddedForeignKeys() {
		out = append(out, "add foreign key on "+strings.Join(fk.Columns, ", "))
	}
	for _, fk := range cmp.DroppedForeignKeys() {
		out = append(out, "drop foreign key "+strings.Join(fk.Columns, ", "))
	}
	for _, p := range cmp.AlteredForeignKeys() {
		out = append(out, "alter foreign key "+strings.Join(p.Old.Columns, ", "))
	}
	return out
}
