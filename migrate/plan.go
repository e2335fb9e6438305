// Package migrate renders table changes as SQL, writes them as migration
// files and executes them.
package migrate

import (
	"github.com/ridoystarlord/ormschema/dialect"
	"github.com/ridoystarlord/ormschema/diff"
	"github.com/ridoystarlord/ormschema/registry"
	"github.com/ridoystarlord/ormschema/schema"
)

// Change is the pending change of one table.
type Change struct {
	Database string
	Table    *schema.Table
	Ops      []diff.Operation
}

// Action names the change in migration file names.
func (c Change) Action() string {
	switch c.Table.Status() {
	case schema.StatusNew:
		return "create"
	case schema.StatusDeclaredDropped:
		return "drop"
	}
	return "change"
}

// Changes collects the changed tables of a registry. Tables come before
// the tables referencing them.
func Changes(r *registry.Registry) []Change {
	var out []Change
	for _, t := range r.Tables() {
		if !t.Comparator().HasChanges() {
			continue
		}
		ops := diff.Table(t)
		if len(ops) == 0 {
			continue
		}
		out = append(out, Change{Database: t.Database(), Table: t, Ops: ops})
	}
	return sortByDependency(out)
}

// sortByDependency moves referenced tables first, keeping the original
// order otherwise. Cycles keep their original order.
func sortByDependency(changes []Change) []Change {
	index := make(map[string]int, len(changes))
	for i, c := range changes {
		index[c.Database+"."+c.Table.Name()] = i
	}
	var (
		out     = make([]Change, 0, len(changes))
		visited = make([]bool, len(changes))
		active  = make([]bool, len(changes))
		visit   func(i int)
	)
	visit = func(i int) {
		if visited[i] || active[i] {
			return
		}
		active[i] = true
		c := changes[i]
		for _, fk := range c.Table.ForeignKeys() {
			if j, ok := index[c.Database+"."+fk.ForeignTable]; ok && j != i {
				visit(j)
			}
		}
		active[i] = false
		visited[i] = true
		out = append(out, c)
	}
	for i := range changes {
		visit(i)
	}
	return out
}

// Up renders the statements applying changes, in order.
func Up(d dialect.Dialect, changes []Change) []string {
	var stmts, deferred []string
	for _, c := range changes {
		s, fks := render(d, c.Table.Name(), c.Ops, c.Table.Current(), c.Table.Declared())
		stmts = append(stmts, s...)
		deferred = append(deferred, fks...)
	}
	return append(stmts, deferred...)
}

// Down renders the statements reverting changes.
func Down(d dialect.Dialect, changes []Change) []string {
	var stmts, deferred []string
	for i := len(changes) - 1; i >= 0; i-- {
		c := changes[i]
		s, fks := render(d, c.Table.Name(), diff.Reverse(c.Ops), c.Table.Declared(), c.Table.Current())
		stmts = append(stmts, s...)
		deferred = append(deferred, fks...)
	}
	return append(stmts, deferred...)
}

// render returns the statements of ops, and the foreign keys of created
// tables, which are added once every table exists.
func render(d dialect.Dialect, table string, ops []diff.Operation, from, to schema.State) (stmts, deferred []string) {
	if needsRebuild(d, ops) {
		return d.Rebuild(table, from, to), nil
	}
	for _, op := range ops {
		switch op.Type {
		case diff.CreateTable:
			state := op.State
			if d.CanAlter() {
				for _, fk := range state.ForeignKeys {
					deferred = append(deferred, d.AddForeignKey(table, fk)...)
				}
				state.ForeignKeys = nil
			}
			stmts = append(stmts, d.CreateTable(table, state)...)
		case diff.DropTable:
			stmts = append(stmts, d.DropTable(table)...)
		case diff.AddColumn:
			stmts = append(stmts, d.AddColumn(table, op.Column)...)
		case diff.AlterColumn:
			stmts = append(stmts, d.AlterColumn(table, op.OldColumn, op.Column)...)
		case diff.DropColumn:
			stmts = append(stmts, d.DropColumn(table, op.Column)...)
		case diff.CreateIndex:
			stmts = append(stmts, d.AddIndex(table, op.Index)...)
		case diff.DropIndex:
			stmts = append(stmts, d.DropIndex(table, op.Index)...)
		case diff.AddForeignKey:
			stmts = append(stmts, d.AddForeignKey(table, op.ForeignKey)...)
		case diff.DropForeignKey:
			stmts = append(stmts, d.DropForeignKey(table, op.ForeignKey)...)
		case diff.AlterPrimaryKey:
			stmts = append(stmts, d.AlterPrimaryKey(table, op.OldPrimaryKeys, op.PrimaryKeys)...)
		}
	}
	return stmts, deferred
}

// needsRebuild reports changes to an existing table that a dialect
// without ALTER support can only apply by copying the table.
func needsRebuild(d dialect.Dialect, ops []diff.Operation) bool {
	if d.CanAlter() {
		return false
	}
	for _, op := range ops {
		switch op.Type {
		case diff.AlterColumn, diff.DropColumn, diff.AddForeignKey, diff.DropForeignKey, diff.AlterPrimaryKey:
			return true
		case diff.AddColumn:
			if !op.Column.Nullable && op.Column.Default.IsZero() {
				return true
			}
		}
	}
	return false
}
