package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/ormschema/schema"
)

func existing() *schema.Table {
	return schema.LoadTable("default", "articles", schema.State{
		Columns: []schema.Column{
			{Name: "id", Type: "integer", AbstractType: "primary"},
			{Name: "a", Type: "text", AbstractType: "text"},
			{Name: "b", Type: "text", AbstractType: "text"},
		},
		Indexes:     []schema.Index{{Name: "articles_index_b", Columns: []string{"b"}}},
		PrimaryKeys: []string{"id"},
	})
}

func types(ops []Operation) []OperationType {
	out := make([]OperationType, len(ops))
	for i, op := range ops {
		out[i] = op.Type
	}
	return out
}

func TestTable_NoChanges(t *testing.T) {
	assert.Empty(t, Table(existing()))
}

func TestTable_New(t *testing.T) {
	table := schema.NewTable("default", "tags")
	table.DeclareColumn(schema.Column{Name: "id", Type: "integer", AbstractType: "primary"})
	require.NoError(t, table.SetPrimaryKeys("id"))

	ops := Table(table)
	require.Len(t, ops, 1)
	assert.Equal(t, CreateTable, ops[0].Type)
	assert.Equal(t, []string{"id"}, ops[0].State.PrimaryKeys)
	assert.Equal(t, DropTable, ops[0].Reverse().Type)

	assert.Empty(t, Table(schema.NewTable("default", "empty")))
}

func TestTable_Dropped(t *testing.T) {
	table := existing()
	table.DeclareDropped()

	ops := Table(table)
	require.Len(t, ops, 1)
	assert.Equal(t, DropTable, ops[0].Type)
	assert.Len(t, ops[0].State.Columns, 3)
}

// A renamed column is a dropped column plus an added one.
func TestTable_RenameIsDropAndAdd(t *testing.T) {
	table := existing()
	table.DropColumn("b")
	table.DropIndex("articles_index_b")
	table.DeclareColumn(schema.Column{Name: "c", Type: "text", AbstractType: "text"})

	ops := Table(table)
	assert.Equal(t, []OperationType{DropIndex, AddColumn, DropColumn}, types(ops))
	assert.Equal(t, "c", ops[1].Column.Name)
	assert.Equal(t, "b", ops[2].Column.Name)
}

func TestTable_Ordering(t *testing.T) {
	table := existing()
	table.DeclareColumn(schema.Column{Name: "a", Type: "varchar", AbstractType: "string", Size: 255})
	table.DeclareColumn(schema.Column{Name: "author_id", Type: "integer", AbstractType: "integer", Nullable: true})
	table.DeclareIndex(schema.Index{Name: "articles_index_b", Columns: []string{"b"}, Unique: true})
	table.DeclareForeignKey(schema.ForeignKey{Name: "articles_author_id_fk", Columns: []string{"author_id"}, ForeignTable: "customers", ForeignColumns: []string{"id"}})

	ops := Table(table)
	assert.Equal(t, []OperationType{DropIndex, AddColumn, AlterColumn, CreateIndex, AddForeignKey}, types(ops))

	alter := ops[2]
	assert.Equal(t, "text", alter.OldColumn.Type)
	assert.Equal(t, "varchar", alter.Column.Type)
	assert.False(t, ops[0].Index.Unique)
	assert.True(t, ops[3].Index.Unique)
}

func TestTable_PrimaryKey(t *testing.T) {
	table := existing()
	require.NoError(t, table.SetPrimaryKeys("id", "a"))

	ops := Table(table)
	require.Len(t, ops, 1)
	assert.Equal(t, AlterPrimaryKey, ops[0].Type)
	assert.Equal(t, []string{"id"}, ops[0].OldPrimaryKeys)
	assert.Equal(t, []string{"id", "a"}, ops[0].PrimaryKeys)

	back := ops[0].Reverse()
	assert.Equal(t, []string{"id"}, back.PrimaryKeys)
}

func TestReverse(t *testing.T) {
	ops := []Operation{
		{Type: AddColumn, Table: "t", Column: schema.Column{Name: "x"}},
		{Type: AlterColumn, Table: "t", Column: schema.Column{Name: "y", Type: "new"}, OldColumn: schema.Column{Name: "y", Type: "old"}},
		{Type: CreateIndex, Table: "t", Index: schema.Index{Name: "i"}},
	}
	rev := Reverse(ops)
	assert.Equal(t, []OperationType{DropIndex, AlterColumn, DropColumn}, types(rev))
	assert.Equal(t, "old", rev[1].Column.Type)
	assert.Equal(t, "new", rev[1].OldColumn.Type)
}

func TestOperation_String(t *testing.T) {
	assert.Equal(t, "add column t.x", Operation{Type: AddColumn, Table: "t", Column: schema.Column{Name: "x"}}.String())
	assert.Equal(t, "add index on t [a, b]", Operation{Type: CreateIndex, Table: "t", Index: schema.Index{Columns: []string{"a", "b"}}}.String())
}
