// Package diff turns the delta of a table into ordered migration
// operations.
package diff

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ridoystarlord/ormschema/schema"
)

type OperationType string

const (
	CreateTable     OperationType = "CREATE_TABLE"
	DropTable       OperationType = "DROP_TABLE"
	AddColumn       OperationType = "ADD_COLUMN"
	AlterColumn     OperationType = "ALTER_COLUMN"
	DropColumn      OperationType = "DROP_COLUMN"
	CreateIndex     OperationType = "CREATE_INDEX"
	DropIndex       OperationType = "DROP_INDEX"
	AddForeignKey   OperationType = "ADD_FOREIGN_KEY"
	DropForeignKey  OperationType = "DROP_FOREIGN_KEY"
	AlterPrimaryKey OperationType = "ALTER_PRIMARY_KEY"
)

// Operation is one change to one table. Operations carry the full old and
// new definitions so they can be reversed.
type Operation struct {
	Type  OperationType
	Table string

	State          schema.State      // CREATE_TABLE, DROP_TABLE
	Column         schema.Column     // column operations
	OldColumn      schema.Column     // ALTER_COLUMN
	Index          schema.Index      // index operations
	ForeignKey     schema.ForeignKey // foreign key operations
	PrimaryKeys    []string          // ALTER_PRIMARY_KEY
	OldPrimaryKeys []string
}

// Reverse returns the operation undoing op.
func (op Operation) Reverse() Operation {
	out := op
	switch op.Type {
	case CreateTable:
		out.Type = DropTable
	case DropTable:
		out.Type = CreateTable
	case AddColumn:
		out.Type = DropColumn
	case DropColumn:
		out.Type = AddColumn
	case AlterColumn:
		out.Column, out.OldColumn = op.OldColumn, op.Column
	case CreateIndex:
		out.Type = DropIndex
	case DropIndex:
		out.Type = CreateIndex
	case AddForeignKey:
		out.Type = DropForeignKey
	case DropForeignKey:
		out.Type = AddForeignKey
	case AlterPrimaryKey:
		out.PrimaryKeys, out.OldPrimaryKeys = op.OldPrimaryKeys, op.PrimaryKeys
	}
	return out
}

func (op Operation) String() string {
	switch op.Type {
	case CreateTable:
		return "create table " + op.Table
	case DropTable:
		return "drop table " + op.Table
	case AddColumn:
		return fmt.Sprintf("add column %s.%s", op.Table, op.Column.Name)
	case AlterColumn:
		return fmt.Sprintf("alter column %s.%s", op.Table, op.Column.Name)
	case DropColumn:
		return fmt.Sprintf("drop column %s.%s", op.Table, op.Column.Name)
	case CreateIndex:
		return fmt.Sprintf("add index on %s [%s]", op.Table, strings.Join(op.Index.Columns, ", "))
	case DropIndex:
		return fmt.Sprintf("drop index on %s [%s]", op.Table, strings.Join(op.Index.Columns, ", "))
	case AddForeignKey:
		return fmt.Sprintf("add foreign key on %s %s", op.Table, strings.Join(op.ForeignKey.Columns, ", "))
	case DropForeignKey:
		return fmt.Sprintf("drop foreign key on %s %s", op.Table, strings.Join(op.ForeignKey.Columns, ", "))
	case AlterPrimaryKey:
		return fmt.Sprintf("alter primary key of %s to (%s)", op.Table, strings.Join(op.PrimaryKeys, ", "))
	}
	return string(op.Type)
}

// Table returns the operations bringing the current structure of t to its
// declared structure. Constraints are dropped before the columns they use
// and added after them.
func Table(t *schema.Table) []Operation {
	name := t.Name()
	switch t.Status() {
	case schema.StatusNew:
		return []Operation{{Type: CreateTable, Table: name, State: t.Declared()}}
	case schema.StatusDeclaredDropped:
		if !t.Exists() {
			return nil
		}
		return []Operation{{Type: DropTable, Table: name, State: t.Current()}}
	}
	if !t.Exists() {
		return nil
	}

	cmp := t.Comparator()
	var ops []Operation

	for _, fk := range cmp.DroppedForeignKeys() {
		ops = append(ops, Operation{Type: DropForeignKey, Table: name, ForeignKey: fk})
	}
	for _, p := range cmp.AlteredForeignKeys() {
		ops = append(ops, Operation{Type: DropForeignKey, Table: name, ForeignKey: p.Old})
	}
	for _, idx := range cmp.DroppedIndexes() {
		ops = append(ops, Operation{Type: DropIndex, Table: name, Index: idx})
	}
	for _, p := range cmp.AlteredIndexes() {
		ops = append(ops, Operation{Type: DropIndex, Table: name, Index: p.Old})
	}

	for _, c := range cmp.AddedColumns() {
		ops = append(ops, Operation{Type: AddColumn, Table: name, Column: c})
	}
	for _, p := range cmp.AlteredColumns() {
		ops = append(ops, Operation{Type: AlterColumn, Table: name, Column: p.New, OldColumn: p.Old})
	}
	if cmp.PrimaryKeysChanged() {
		current := t.Current()
		ops = append(ops, Operation{
			Type:           AlterPrimaryKey,
			Table:          name,
			PrimaryKeys:    t.PrimaryKeys(),
			OldPrimaryKeys: slices.Clone(current.PrimaryKeys),
		})
	}
	for _, c := range cmp.DroppedColumns() {
		ops = append(ops, Operation{Type: DropColumn, Table: name, Column: c})
	}

	for _, idx := range cmp.AddedIndexes() {
		ops = append(ops, Operation{Type: CreateIndex, Table: name, Index: idx})
	}
	for _, p := range cmp.AlteredIndexes() {
		ops = append(ops, Operation{Type: CreateIndex, Table: name, Index: p.New})
	}
	for _, fk := range cmp.AddedForeignKeys() {
		ops = append(ops, Operation{Type: AddForeignKey, Table: name, ForeignKey: fk})
	}
	for _, p := range cmp.AlteredForeignKeys() {
		ops = append(ops, Operation{Type: AddForeignKey, Table: name, ForeignKey: p.New})
	}
	return ops
}

// Reverse returns the operations undoing ops, in reverse order.
func Reverse(ops []Operation) []Operation {
	out := make([]Operation, 0, len(ops))
	for i := len(ops) - 1; i >= 0; i-- {
		out = append(out, ops[i].Reverse())
	}
	return out
}
