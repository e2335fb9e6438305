package migrate

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	atlas "ariga.io/atlas/sql/migrate"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/ridoystarlord/ormschema/compiler"
	"github.com/ridoystarlord/ormschema/database"
	"github.com/ridoystarlord/ormschema/dialect"
	"github.com/ridoystarlord/ormschema/generator"
	"github.com/ridoystarlord/ormschema/loader"
	"github.com/ridoystarlord/ormschema/registry"
)

func blog() loader.Static {
	return loader.Static{
		{
			Role: "article",
			Fields: []registry.Field{
				{Name: "id", Column: "id", Type: "primary", Primary: true},
				{Name: "title", Column: "title", Type: "string", Size: 120},
			},
			PrimaryKeys: []string{"id"},
			Relations: []registry.Relation{
				{Name: "author", Type: registry.BelongsTo, Target: "customer", Nullable: true},
			},
			Indexes: []registry.Index{{Columns: []string{"title"}, Unique: true}},
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

// compile runs the default pipeline plus extra postprocess generators.
func compile(t *testing.T, loaderFor registry.TableLoader, dialects generator.Dialects, extra ...generator.Generator) *registry.Registry {
	t.Helper()
	q, err := generator.Build(generator.Builtins(generator.Deps{Source: blog(), Dialects: dialects}), generator.Defaults())
	require.NoError(t, err)
	for _, g := range extra {
		q, err = q.AddGenerator(generator.GroupPostprocess, g)
		require.NoError(t, err)
	}
	r, err := compiler.New(loaderFor, "default", zerolog.Nop()).Run(context.Background(), q)
	require.NoError(t, err)
	return r
}

func postgres(t *testing.T) dialect.Dialect {
	t.Helper()
	d, err := dialect.Get(dialect.Postgres)
	require.NoError(t, err)
	return d
}

func tableNames(changes []Change) []string {
	out := make([]string, len(changes))
	for i, c := range changes {
		out[i] = c.Table.Name()
	}
	return out
}

func TestChanges_ReferencedTablesFirst(t *testing.T) {
	r := compile(t, nil, generator.FixedDialect(postgres(t)))

	changes := Changes(r)
	assert.Equal(t, []string{"customers", "articles"}, tableNames(changes))
	for _, c := range changes {
		assert.Equal(t, "create", c.Action())
		assert.Equal(t, "default", c.Database)
	}
}

func TestUp_DefersForeignKeys(t *testing.T) {
	d := postgres(t)
	r := compile(t, nil, generator.FixedDialect(d))

	up := Up(d, Changes(r))
	require.NotEmpty(t, up)
	assert.True(t, strings.HasPrefix(up[0], `CREATE TABLE "customers"`), up[0])
	last := up[len(up)-1]
	assert.True(t, strings.HasPrefix(last, `ALTER TABLE "articles" ADD CONSTRAINT "articles_author_id_fk"`), last)
	assert.Contains(t, last, "ON DELETE SET NULL")
	for _, stmt := range up[:len(up)-1] {
		assert.NotContains(t, stmt, "FOREIGN KEY")
	}

	down := Down(d, Changes(r))
	assert.Equal(t, []string{`DROP TABLE IF EXISTS "articles";`, `DROP TABLE IF EXISTS "customers";`}, down)
}

func TestSyncTables_SQLite(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	r := compile(t, m, m, &SyncTables{Databases: m, Logger: zerolog.Nop()})
	assert.Empty(t, Changes(r), "synchronized tables are committed")

	db, err := m.Database(ctx, "default")
	require.NoError(t, err)
	for _, name := range []string{"articles", "customers"} {
		ok, err := db.Inspector.HasTable(ctx, name)
		require.NoError(t, err)
		assert.True(t, ok, name)
	}

	// a second run sees the synchronized tables as unchanged
	again := compile(t, m, m)
	assert.Empty(t, Changes(again))
}

func TestSyncTables_AddColumn(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()
	db, err := m.Database(ctx, "default")
	require.NoError(t, err)
	_, err = db.DB.ExecContext(ctx, `CREATE TABLE "customers" ("id" integer NOT NULL PRIMARY KEY AUTOINCREMENT)`)
	require.NoError(t, err)

	r := compile(t, m, m)
	var customers *Change
	for _, c := range Changes(r) {
		if c.Table.Name() == "customers" {
			customers = &c
		}
	}
	require.NotNil(t, customers)
	assert.Equal(t, "change", customers.Action())

	compile(t, m, m, &SyncTables{Databases: m, Logger: zerolog.Nop()})
	state, err := db.Inspector.Table(ctx, "customers")
	require.NoError(t, err)
	_, ok := state.Column("name")
	assert.True(t, ok)
}

func fixedNow() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }

func TestGenerateMigrations(t *testing.T) {
	m := newManager(t)
	dir, err := OpenDir(filepath.Join(t.TempDir(), "migrations"))
	require.NoError(t, err)

	gen := &GenerateMigrations{Dir: dir, Dialects: m, Now: fixedNow, Logger: zerolog.Nop()}
	compile(t, m, m, gen)

	assert.Equal(t, []string{
		"20261019120000001_default_create_customers.sql",
		"20261019120000002_default_create_articles.sql",
	}, gen.Files())
	require.NoError(t, atlas.Validate(dir))

	files, err := dir.Files()
	require.NoError(t, err)
	require.Len(t, files, 2)
	f, err := ParseFile(files[1].Name(), files[1].Bytes())
	require.NoError(t, err)
	assert.Equal(t, "default", f.Database)
	assert.Equal(t, "create table default.articles", f.Description)
	assert.Equal(t, []string{`DROP TABLE IF EXISTS "articles";`}, f.Down)
	assert.Contains(t, f.Up[0], `CREATE TABLE "articles"`)
	assert.Contains(t, f.Up[0], "FOREIGN KEY")
}

func TestGenerateMigrations_NoChanges(t *testing.T) {
	m := newManager(t)
	compile(t, m, m, &SyncTables{Databases: m, Logger: zerolog.Nop()})

	path := filepath.Join(t.TempDir(), "migrations")
	dir, err := OpenDir(path)
	require.NoError(t, err)
	gen := &GenerateMigrations{Dir: dir, Dialects: m, Now: fixedNow, Logger: zerolog.Nop()}
	compile(t, m, m, gen)

	assert.Empty(t, gen.Files())
	entries, err := os.ReadDir(path)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func generated(t *testing.T, m *database.Manager) *atlas.LocalDir {
	t.Helper()
	dir, err := OpenDir(t.TempDir())
	require.NoError(t, err)
	compile(t, m, m, &GenerateMigrations{Dir: dir, Dialects: m, Now: fixedNow, Logger: zerolog.Nop()})
	return dir
}

func TestMigrator_RunAndRollback(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	mig := NewMigrator(generated(t, m), m, "", zerolog.Nop())

	ok, err := mig.IsConfigured(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mig.Configure(ctx))
	require.NoError(t, mig.Configure(ctx), "configure is idempotent")

	all, err := mig.Migrations(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, StatusPending, all[0].Status)
	assert.Equal(t, "20261019120000001", all[0].Version)
	assert.Equal(t, fixedNow(), all[0].CreatedAt)

	first, err := mig.Run(ctx)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "20261019120000001_default_create_customers.sql", first.Name)
	assert.Equal(t, StatusExecuted, first.Status)

	second, err := mig.Run(ctx)
	require.NoError(t, err)
	require.NotNil(t, second)

	none, err := mig.Run(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)

	// the schema now matches the entities
	assert.Empty(t, Changes(compile(t, m, m)))

	all, err = mig.Migrations(ctx)
	require.NoError(t, err)
	for _, mg := range all {
		assert.Equal(t, StatusExecuted, mg.Status)
		assert.False(t, mg.ExecutedAt.IsZero())
		assert.False(t, mg.Modified)
	}

	back, err := mig.Rollback(ctx)
	require.NoError(t, err)
	require.NotNil(t, back)
	assert.Equal(t, second.Name, back.Name)
	assert.Equal(t, StatusPending, back.Status)

	db, err := m.Database(ctx, "default")
	require.NoError(t, err)
	exists, err := db.Inspector.HasTable(ctx, "articles")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = mig.Rollback(ctx)
	require.NoError(t, err)
	none, err = mig.Rollback(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestMigrator_ChecksumMismatch(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	dir := generated(t, m)
	mig := NewMigrator(dir, m, "", zerolog.Nop())
	require.NoError(t, mig.Configure(ctx))

	require.NoError(t, dir.WriteFile("20261019120000003_default_change_customers.sql", File{
		Name: "20261019120000003_default_change_customers.sql",
		Up:   []string{`SELECT 1;`},
	}.Bytes()))

	_, err := mig.Run(ctx)
	assert.ErrorIs(t, err, atlas.ErrChecksumMismatch)
}

func TestMigrator_NotConfigured(t *testing.T) {
	m := newManager(t)
	mig := NewMigrator(generated(t, m), m, "schema_migrations", zerolog.Nop())
	_, err := mig.Migrations(context.Background())
	assert.Error(t, err)
}

func TestFile_RoundTrip(t *testing.T) {
	f := File{
		Name:        "1_x.sql",
		Database:    "secondary",
		Description: "change table secondary.x",
		Up:          []string{"ALTER TABLE \"x\"\nADD COLUMN \"y\" text;", `CREATE INDEX "x_index_y" ON "x" ("y");`},
		Down:        []string{`DROP INDEX IF EXISTS "x_index_y";`},
	}
	got, err := ParseFile(f.Name, f.Bytes())
	require.NoError(t, err)
	assert.Equal(t, f, got)

	_, err = ParseFile("bad.sql", []byte("SELECT 1;"))
	assert.Error(t, err)
}

func TestPlaceholder(t *testing.T) {
	assert.Equal(t, "$2", placeholder(postgres(t), 2))
	s, err := dialect.Get(dialect.SQLite)
	require.NoError(t, err)
	assert.Equal(t, "?", placeholder(s, 2))
}
