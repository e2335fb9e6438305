package introspect

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/ridoystarlord/ormschema/dialect"
	"github.com/ridoystarlord/ormschema/schema"
)

func mustDialect(t *testing.T, name string) dialect.Dialect {
	t.Helper()
	d, err := dialect.Get(name)
	require.NoError(t, err)
	return d
}

func TestPostgres_Table(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("articles").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "column_default", "character_maximum_length", "numeric_precision", "numeric_scale"}).
			AddRow("id", "integer", "NO", "nextval('articles_id_seq'::regclass)", nil, 32, 0).
			AddRow("title", "character varying", "NO", "'untitled'::character varying", 255, nil, nil).
			AddRow("price", "numeric", "YES", nil, nil, 10, 2).
			AddRow("author_id", "integer", "YES", nil, nil, 32, 0))
	mock.ExpectQuery("PRIMARY KEY").
		WithArgs("articles").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("id"))
	mock.ExpectQuery("FROM pg_index").
		WithArgs("articles").
		WillReturnRows(sqlmock.NewRows([]string{"relname", "indisunique", "attname"}).
			AddRow("articles_index_author_id_title", false, "author_id").
			AddRow("articles_index_author_id_title", false, "title"))
	mock.ExpectQuery("FROM information_schema.referential_constraints").
		WithArgs("articles").
		WillReturnRows(sqlmock.NewRows([]string{"constraint_name", "column_name", "table_name", "column_name", "update_rule", "delete_rule"}).
			AddRow("articles_author_id_fk", "author_id", "authors", "id", "NO ACTION", "CASCADE"))

	ins, err := New(mustDialect(t, dialect.Postgres), db)
	require.NoError(t, err)
	state, err := ins.Table(context.Background(), "articles")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, []string{"id"}, state.PrimaryKeys)
	require.Len(t, state.Columns, 4)
	assert.Equal(t, schema.Column{Name: "id", Type: "integer", AbstractType: dialect.TypePrimary}, state.Columns[0])
	assert.Equal(t, schema.Column{Name: "title", Type: "character varying", AbstractType: dialect.TypeString, Size: 255, Default: schema.Literal("untitled")}, state.Columns[1])
	assert.Equal(t, schema.Column{Name: "price", Type: "numeric", AbstractType: dialect.TypeDecimal, Precision: 10, Scale: 2, Nullable: true}, state.Columns[2])
	assert.Equal(t, dialect.TypeInteger, state.Columns[3].AbstractType)

	require.Len(t, state.Indexes, 1)
	assert.Equal(t, []string{"author_id", "title"}, state.Indexes[0].Columns)
	require.Len(t, state.ForeignKeys, 1)
	assert.Equal(t, schema.ForeignKey{
		Name:           "articles_author_id_fk",
		Columns:        []string{"author_id"},
		ForeignTable:   "authors",
		ForeignColumns: []string{"id"},
		OnDelete:       "CASCADE",
	}, state.ForeignKeys[0])
}

func TestPostgres_DeclaredColumnsMatchIntrospection(t *testing.T) {
	d := mustDialect(t, dialect.Postgres)
	declared, err := d.Column("id", dialect.Type{Abstract: dialect.TypePrimary})
	require.NoError(t, err)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery("FROM information_schema.columns").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "column_default", "character_maximum_length", "numeric_precision", "numeric_scale"}).
			AddRow("id", "integer", "NO", "nextval('t_id_seq'::regclass)", nil, 32, 0))
	mock.ExpectQuery("PRIMARY KEY").WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("id"))
	mock.ExpectQuery("FROM pg_index").WillReturnRows(sqlmock.NewRows([]string{"relname", "indisunique", "attname"}))
	mock.ExpectQuery("FROM information_schema.referential_constraints").
		WillReturnRows(sqlmock.NewRows([]string{"constraint_name", "column_name", "table_name", "column_name", "update_rule", "delete_rule"}))

	ins, _ := New(d, db)
	state, err := ins.Table(context.Background(), "t")
	require.NoError(t, err)
	assert.True(t, declared.Equal(state.Columns[0]))
}

func TestPostgres_TablesAndHasTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM information_schema.tables").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("articles").AddRow("customers"))
	mock.ExpectQuery("SELECT COUNT").WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	ins, _ := New(mustDialect(t, dialect.Postgres), db)
	tables, err := ins.Tables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"articles", "customers"}, tables)

	ok, err := ins.HasTable(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQL_Table(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM information_schema.COLUMNS").
		WithArgs("customers").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME", "DATA_TYPE", "COLUMN_TYPE", "IS_NULLABLE", "COLUMN_DEFAULT", "CHARACTER_MAXIMUM_LENGTH", "NUMERIC_PRECISION", "NUMERIC_SCALE", "EXTRA"}).
			AddRow("id", "int", "int", "NO", nil, nil, 10, 0, "auto_increment").
			AddRow("name", "varchar", "varchar(255)", "NO", "anonymous", 255, nil, nil, "").
			AddRow("active", "tinyint", "tinyint(1)", "NO", "1", nil, 3, 0, "").
			AddRow("created_at", "datetime", "datetime", "YES", "CURRENT_TIMESTAMP", nil, nil, nil, "DEFAULT_GENERATED"))
	mock.ExpectQuery("CONSTRAINT_NAME = 'PRIMARY'").
		WithArgs("customers").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME"}).AddRow("id"))
	mock.ExpectQuery("FROM information_schema.STATISTICS").
		WithArgs("customers").
		WillReturnRows(sqlmock.NewRows([]string{"INDEX_NAME", "NON_UNIQUE", "COLUMN_NAME"}).
			AddRow("customers_index_name", true, "name"))
	mock.ExpectQuery("FROM information_schema.KEY_COLUMN_USAGE AS kcu").
		WithArgs("customers").
		WillReturnRows(sqlmock.NewRows([]string{"CONSTRAINT_NAME", "COLUMN_NAME", "REFERENCED_TABLE_NAME", "REFERENCED_COLUMN_NAME", "UPDATE_RULE", "DELETE_RULE"}))

	d := mustDialect(t, dialect.MySQL)
	ins, err := New(d, db)
	require.NoError(t, err)
	state, err := ins.Table(context.Background(), "customers")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, state.Columns, 4)
	assert.Equal(t, dialect.TypePrimary, state.Columns[0].AbstractType)
	assert.Equal(t, schema.Literal("anonymous"), state.Columns[1].Default)
	assert.Equal(t, 255, state.Columns[1].Size)
	assert.Equal(t, dialect.TypeBoolean, state.Columns[2].AbstractType)
	assert.Equal(t, schema.Expr("CURRENT_TIMESTAMP"), state.Columns[3].Default)
	assert.Equal(t, []schema.Index{{Name: "customers_index_name", Columns: []string{"name"}, Unique: true}}, state.Indexes)
	assert.Empty(t, state.ForeignKeys)

	declared, err := d.Column("name", dialect.Type{Abstract: dialect.TypeString, Default: schema.Literal("anonymous")})
	require.NoError(t, err)
	assert.True(t, declared.Equal(state.Columns[1]))
}

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLite_RoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	d := mustDialect(t, dialect.SQLite)

	col := func(name string, typ dialect.Type) schema.Column {
		c, err := d.Column(name, typ)
		require.NoError(t, err)
		return c
	}
	authors := schema.State{
		Columns:     []schema.Column{col("id", dialect.Type{Abstract: dialect.TypePrimary})},
		PrimaryKeys: []string{"id"},
	}
	articles := schema.State{
		Columns: []schema.Column{
			col("id", dialect.Type{Abstract: dialect.TypePrimary}),
			col("title", dialect.Type{Abstract: dialect.TypeString, Size: 120, Default: schema.Literal("untitled")}),
			col("price", dialect.Type{Abstract: dialect.TypeDecimal, Precision: 8, Scale: 2, Nullable: true}),
			col("published", dialect.Type{Abstract: dialect.TypeBoolean, Default: schema.Literal("false")}),
			col("created_at", dialect.Type{Abstract: dialect.TypeDatetime, Default: schema.Expr("CURRENT_TIMESTAMP")}),
			col("author_id", dialect.Type{Abstract: dialect.TypeInteger, Nullable: true}),
		},
		Indexes: []schema.Index{
			{Name: "articles_index_author_id", Columns: []string{"author_id"}},
			{Name: "articles_index_title", Columns: []string{"title"}, Unique: true},
		},
		ForeignKeys: []schema.ForeignKey{{
			Name:           schema.ForeignKeyName("articles", "author_id"),
			Columns:        []string{"author_id"},
			ForeignTable:   "authors",
			ForeignColumns: []string{"id"},
			OnDelete:       "CASCADE",
		}},
		PrimaryKeys: []string{"id"},
	}
	for _, stmt := range append(d.CreateTable("authors", authors), d.CreateTable("articles", articles)...) {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err, stmt)
	}

	ins, err := New(d, db)
	require.NoError(t, err)

	tables, err := ins.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"articles", "authors"}, tables)

	ok, err := ins.HasTable(ctx, "articles")
	require.NoError(t, err)
	assert.True(t, ok)

	state, err := ins.Table(ctx, "articles")
	require.NoError(t, err)

	table := schema.LoadTable("default", "articles", state)
	table.Reset()
	for _, c := range articles.Columns {
		table.DeclareColumn(c)
	}
	require.NoError(t, table.SetPrimaryKeys("id"))
	for _, idx := range articles.Indexes {
		table.DeclareIndex(idx)
	}
	for _, fk := range articles.ForeignKeys {
		table.DeclareForeignKey(fk)
	}
	cmp := table.Comparator()
	assert.Empty(t, cmp.AlteredColumns())
	assert.Empty(t, cmp.AlteredIndexes())
	assert.Empty(t, cmp.AlteredForeignKeys())
	assert.False(t, cmp.HasChanges())
}

func TestNormalizeAction(t *testing.T) {
	assert.Equal(t, "", NormalizeAction("NO ACTION"))
	assert.Equal(t, "SET NULL", NormalizeAction("set null"))
}
