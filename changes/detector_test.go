package changes

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/ridoystarlord/ormschema/compiler"
	"github.com/ridoystarlord/ormschema/database"
	"github.com/ridoystarlord/ormschema/generator"
	"github.com/ridoystarlord/ormschema/loader"
	"github.com/ridoystarlord/ormschema/migrate"
	"github.com/ridoystarlord/ormschema/registry"
	"github.com/ridoystarlord/ormschema/schema"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func entities() loader.Static {
	return loader.Static{
		{
			Role: "article",
			Fields: []registry.Field{
				{Name: "id", Column: "id", Type: "primary", Primary: true},
				{Name: "title", Column: "title", Type: "string"},
			},
			PrimaryKeys: []string{"id"},
			Relations:   []registry.Relation{{Name: "author", Type: registry.BelongsTo, Target: "customer", Nullable: true}},
			Indexes:     []registry.Index{{Columns: []string{"title"}}},
		},
		{
			Role: "customer",
			Fields: []registry.Field{
				{Name: "id", Column: "id", Type: "primary", Primary: true},
				{Name: "name", Column: "name", Type: "string"},
			},
			PrimaryKeys: []string{"id"},
		},
	}
}

func newManager(t *testing.T) *database.Manager {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	m := database.NewManager(nil, "default", zerolog.Nop())
	require.NoError(t, m.Attach("default", "sqlite", db))
	t.Cleanup(func() { m.Close() })
	return m
}

func compile(t *testing.T, m *database.Manager, gens ...generator.Generator) {
	t.Helper()
	q, err := generator.Build(generator.Builtins(generator.Deps{Source: entities(), Dialects: m}), generator.Defaults())
	require.NoError(t, err)
	for _, g := range gens {
		q, err = q.AddGenerator(generator.GroupPostprocess, g)
		require.NoError(t, err)
	}
	_, err = compiler.New(m, m.Default(), zerolog.Nop()).Run(context.Background(), q)
	require.NoError(t, err)
}

func TestDetector_NewTables(t *testing.T) {
	m := newManager(t)
	var out bytes.Buffer
	d := New(&out, true)
	compile(t, m, d)

	require.True(t, d.HasChanges())
	require.Len(t, d.Changes(), 2)
	assert.Equal(t, "articles", d.Changes()[0].Table)
	assert.Equal(t, "default", d.Changes()[0].Database)

	text := out.String()
	assert.Contains(t, text, "Detecting schema changes:\n")
	assert.Contains(t, text, "• default.articles\n    - create table\n    - add column id\n")
	assert.Contains(t, text, "    - add index on [title]\n")
	assert.Contains(t, text, "    - add foreign key on author_id\n")
	assert.Contains(t, text, "• default.customers\n")
}

func TestDetector_NoChangesAfterSync(t *testing.T) {
	m := newManager(t)
	d := New(nil, false)
	compile(t, m, d, &migrate.SyncTables{Databases: m, Logger: zerolog.Nop()})
	require.True(t, d.HasChanges())

	var out bytes.Buffer
	d.Out = &out
	compile(t, m, d)
	assert.False(t, d.HasChanges(), "changes reset on every run")
	assert.Empty(t, d.Changes())
	assert.Equal(t, "Detecting schema changes:\nno database changes has been detected\n", out.String())
}

// A renamed column shows up as a dropped column plus an added one.
func TestDetector_Rename(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()
	db, err := m.Database(ctx, "default")
	require.NoError(t, err)
	_, err = db.DB.ExecContext(ctx, `CREATE TABLE "customers" ("id" integer NOT NULL PRIMARY KEY AUTOINCREMENT, "full_name" varchar(255) NOT NULL)`)
	require.NoError(t, err)

	var out bytes.Buffer
	compile(t, m, New(&out, false))
	assert.Contains(t, out.String(), "• default.customers: 2 change(s) detected\n")

	out.Reset()
	compile(t, m, New(&out, true))
	assert.Contains(t, out.String(), "• default.customers\n    - add column name\n    - drop column full_name\n")
}

func TestDescribe(t *testing.T) {
	existing := schema.LoadTable("default", "tags", schema.State{
		Columns: []schema.Column{
			{Name: "id", Type: "integer", AbstractType: "primary"},
			{Name: "label", Type: "text", AbstractType: "text"},
		},
		Indexes:     []schema.Index{{Name: "tags_index_label", Columns: []string{"label"}}},
		ForeignKeys: []schema.ForeignKey{{Name: "tags_label_fk", Columns: []string{"label"}, ForeignTable: "labels", ForeignColumns: []string{"id"}}},
		PrimaryKeys: []string{"id"},
	})
	existing.DeclareColumn(schema.Column{Name: "label", Type: "varchar", AbstractType: "string", Size: 64})
	existing.DeclareIndex(schema.Index{Name: "tags_index_label", Columns: []string{"label"}, Unique: true})
	existing.DropForeignKey("tags_label_fk")

	assert.Equal(t, []string{
		"alter column label",
		"alter index on [label]",
		"drop foreign key label",
	}, Describe(existing))

	existing.DeclareDropped()
	assert.Equal(t, []string{"drop table"}, Describe(existing))
	assert.Equal(t, 1, numChanges(existing))
}
