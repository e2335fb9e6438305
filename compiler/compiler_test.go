package compiler

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/ridoystarlord/ormschema/database"
	"github.com/ridoystarlord/ormschema/generator"
	"github.com/ridoystarlord/ormschema/loader"
	"github.com/ridoystarlord/ormschema/registry"
)

func articleAndCustomer() loader.Static {
	return loader.Static{
		{
			Role:  "article",
			Class: "app.Article",
			Fields: []registry.Field{
				{Name: "id", Column: "id", Type: "primary", Primary: true},
				{Name: "title", Column: "title", Type: "string"},
				{Name: "description", Column: "description", Type: "string"},
			},
			PrimaryKeys: []string{"id"},
		},
		{
			Role:  "customer",
			Class: "app.Customer",
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

func defaultQueue(t *testing.T, m *database.Manager, src loader.Source) generator.Queue {
	t.Helper()
	catalog := generator.Builtins(generator.Deps{Source: src, Dialects: m, Logger: zerolog.Nop()})
	q, err := generator.Build(catalog, generator.Defaults())
	require.NoError(t, err)
	return q
}

func TestCompile_ArticleAndCustomer(t *testing.T) {
	m := newManager(t)
	c := New(m, m.Default(), zerolog.Nop())

	s, err := c.Compile(context.Background(), defaultQueue(t, m, articleAndCustomer()))
	require.NoError(t, err)
	assert.Equal(t, []string{"article", "customer"}, s.Roles())

	article, ok := s.Entity("article")
	require.True(t, ok)
	assert.Equal(t, "articles", article.Table)
	assert.Equal(t, "app.Article", article.Class)
	require.Len(t, article.Columns, 3)
	assert.Equal(t, "id", article.Columns[0].Column)
	assert.True(t, article.Columns[0].Primary)
	assert.Equal(t, "int", article.Columns[0].Typecast)
	assert.Equal(t, "title", article.Columns[1].Column)
	assert.False(t, article.Columns[1].Primary)
	assert.Equal(t, "description", article.Columns[2].Column)
	assert.Equal(t, []string{"id"}, article.PrimaryKey)
}

func TestCompile_Deterministic(t *testing.T) {
	m := newManager(t)
	c := New(m, m.Default(), zerolog.Nop())
	q := defaultQueue(t, m, articleAndCustomer())

	first, err := c.Compile(context.Background(), q)
	require.NoError(t, err)
	second, err := c.Compile(context.Background(), q)
	require.NoError(t, err)

	a, err := first.Marshal()
	require.NoError(t, err)
	b, err := second.Marshal()
	require.NoError(t, err)
	assert.Equal(t, a, b)

	decoded, err := Unmarshal(a)
	require.NoError(t, err)
	assert.Equal(t, first, decoded)
}

func TestCompile_GeneratorError(t *testing.T) {
	boom := errors.New("boom")
	failing := generator.Func(func(context.Context, *registry.Registry) (*registry.Registry, error) {
		return nil, boom
	})
	ran := false
	after := generator.Func(func(_ context.Context, r *registry.Registry) (*registry.Registry, error) {
		ran = true
		return r, nil
	})

	q, err := generator.NewQueue(nil).AddGenerator(generator.GroupIndex, failing)
	require.NoError(t, err)
	q, err = q.AddGenerator(generator.GroupRender, after)
	require.NoError(t, err)

	s, err := New(nil, "", zerolog.Nop()).Compile(context.Background(), q)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "generator Func")
	assert.False(t, ran)
}

func TestCompile_ResolutionError(t *testing.T) {
	q, err := generator.NewQueue(generator.NewCatalog()).AddRef(generator.GroupIndex, "missing")
	require.NoError(t, err)
	_, err = New(nil, "", zerolog.Nop()).Compile(context.Background(), q)
	assert.ErrorIs(t, err, generator.ErrGeneratorResolution)
}

func TestCompile_EmptyQueue(t *testing.T) {
	s, err := New(nil, "", zerolog.Nop()).Compile(context.Background(), generator.NewQueue(nil))
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestUnmarshal_Invalid(t *testing.T) {
	_, err := Unmarshal([]byte{0xc1})
	assert.Error(t, err)
}

func TestCompile_PrimaryFromKeyList(t *testing.T) {
	m := newManager(t)
	src := loader.Static{{
		Role: "customer",
		Fields: []registry.Field{
			{Name: "id", Column: "id", Type: "integer"},
			{Name: "name", Column: "name", Type: "string"},
		},
		PrimaryKeys: []string{"id"},
	}}

	s, err := New(m, m.Default(), zerolog.Nop()).Compile(context.Background(), defaultQueue(t, m, src))
	require.NoError(t, err)

	customer, ok := s.Entity("customer")
	require.True(t, ok)
	assert.Equal(t, []string{"id"}, customer.PrimaryKey)
	assert.True(t, customer.Columns[0].Primary)
	assert.False(t, customer.Columns[1].Primary)
}

func TestCompile_RelationKeysAreColumns(t *testing.T) {
	m := newManager(t)
	src := articleAndCustomer()
	src[0].Relations = []registry.Relation{{Name: "author", Type: registry.BelongsTo, Target: "customer", Nullable: true}}

	s, err := New(m, m.Default(), zerolog.Nop()).Compile(context.Background(), defaultQueue(t, m, src))
	require.NoError(t, err)

	article, ok := s.Entity("article")
	require.True(t, ok)
	require.Len(t, article.Relations, 1)
	assert.Equal(t, "author_id", article.Relations[0].InnerKey)

	require.Len(t, article.Columns, 4)
	key := article.Columns[3]
	assert.Equal(t, "author_id", key.Column)
	assert.Equal(t, "int", key.Typecast)
	assert.True(t, key.Nullable)
	assert.False(t, key.Primary)
}
