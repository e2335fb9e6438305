package generator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/ormschema/dialect"
	"github.com/ridoystarlord/ormschema/loader"
	"github.com/ridoystarlord/ormschema/registry"
)

// syncTables stands in for a generator registered outside this package.
type syncTables struct{}

func (syncTables) Run(_ context.Context, r *registry.Registry) (*registry.Registry, error) {
	return r, nil
}

func defaultQueue(t *testing.T) Queue {
	t.Helper()
	d, err := dialect.Get(dialect.SQLite)
	require.NoError(t, err)
	catalog := Builtins(Deps{Source: loader.Static{}, Dialects: FixedDialect(d)}).
		Instance("sync-tables", syncTables{})
	q, err := Build(catalog, Defaults())
	require.NoError(t, err)
	return q
}

func names(t *testing.T, q Queue) []string {
	t.Helper()
	gens, err := q.Generators()
	require.NoError(t, err)
	out := make([]string, len(gens))
	for i, g := range gens {
		out[i] = Name(g)
	}
	return out
}

func TestQueue_DefaultPipeline(t *testing.T) {
	q := defaultQueue(t)
	assert.Equal(t, 9, q.Len())
	assert.Equal(t, []string{
		"Entities", "MergeColumns", "ResetTables", "GenerateRelations", "ValidateEntities",
		"RenderTables", "RenderRelations", "MergeIndexes", "GenerateTypecast",
	}, names(t, q))
}

func TestQueue_AddIsCopyOnWrite(t *testing.T) {
	q := defaultQueue(t)

	added, err := q.AddRef(GroupRender, "sync-tables")
	require.NoError(t, err)

	assert.Equal(t, 9, q.Len())
	assert.Equal(t, 10, added.Len())
	got := names(t, added)
	assert.Equal(t, "syncTables", got[8])
	assert.Equal(t, "GenerateTypecast", got[9])
	assert.NotContains(t, names(t, q), "syncTables")
}

func TestQueue_GroupOrder(t *testing.T) {
	var order []string
	step := func(name string) Generator {
		return Func(func(_ context.Context, r *registry.Registry) (*registry.Registry, error) {
			order = append(order, name)
			return r, nil
		})
	}

	q := NewQueue(nil)
	var err error
	q, err = q.AddGenerator(GroupPostprocess, step("post"))
	require.NoError(t, err)
	q, err = q.AddGenerator(GroupRender, step("render-1"))
	require.NoError(t, err)
	q, err = q.AddGenerator(GroupIndex, step("index"))
	require.NoError(t, err)
	q, err = q.AddGenerator(GroupRender, step("render-2"))
	require.NoError(t, err)

	gens, err := q.Generators()
	require.NoError(t, err)
	r := registry.New(nil, "")
	for _, g := range gens {
		r, err = g.Run(context.Background(), r)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"index", "render-1", "render-2", "post"}, order)
}

func TestQueue_InvalidGroup(t *testing.T) {
	q := NewQueue(nil)
	_, err := q.AddGenerator("compile", syncTables{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidGroup))

	var gerr *InvalidGroupError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, Group("compile"), gerr.Group)

	_, err = Build(nil, map[string][]string{"compile": {"entities"}})
	assert.True(t, errors.Is(err, ErrInvalidGroup))
}

func TestRemove(t *testing.T) {
	q := defaultQueue(t)

	removed := Remove[*Entities](q)
	removed = Remove[MergeColumns](removed)
	removed = Remove[MergeIndexes](removed)

	assert.Equal(t, 9, q.Len())
	assert.Equal(t, 6, removed.Len())
	assert.NotContains(t, names(t, removed), "Entities")
	assert.NotContains(t, names(t, removed), "MergeIndexes")

	// no match leaves an equal copy
	same := Remove[syncTables](q)
	assert.Equal(t, names(t, q), names(t, same))
}

func TestRemove_Interface(t *testing.T) {
	q, err := NewQueue(nil).AddGenerator(GroupIndex, syncTables{})
	require.NoError(t, err)
	q, err = q.AddGenerator(GroupRender, named{"kept"})
	require.NoError(t, err)

	out := Remove[Namer](q)
	assert.Equal(t, 1, out.Len())
	assert.Equal(t, 2, q.Len())
}

type named struct{ name string }

func (n named) Name() string { return n.name }
func (named) Run(_ context.Context, r *registry.Registry) (*registry.Registry, error) {
	return r, nil
}

func TestRemove_KeepsUnresolvableRefs(t *testing.T) {
	q, err := NewQueue(NewCatalog()).AddRef(GroupIndex, "missing")
	require.NoError(t, err)

	out := Remove[*Entities](q)
	assert.Equal(t, 1, out.Len())

	_, err = out.Generators()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGeneratorResolution))
	assert.True(t, errors.Is(err, ErrUnknownGenerator))

	var rerr *ResolutionError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, Ref("missing"), rerr.Ref)
}

func TestQueue_RemoveRefAndWithout(t *testing.T) {
	q := defaultQueue(t)

	out := q.RemoveRef(RefValidateEntities)
	assert.Equal(t, 8, out.Len())
	assert.Equal(t, 9, q.Len())

	empty := q.WithoutGenerators()
	assert.Equal(t, 0, empty.Len())
	assert.Equal(t, 9, q.Len())

	// the resolver survives
	empty, err := empty.AddRef(GroupIndex, RefEntities)
	require.NoError(t, err)
	assert.Equal(t, []string{"Entities"}, names(t, empty))
}

func TestQueue_NoResolver(t *testing.T) {
	q, err := NewQueue(nil).AddRef(GroupIndex, RefEntities)
	require.NoError(t, err)
	_, err = q.Generators()
	assert.True(t, errors.Is(err, ErrGeneratorResolution))
}

func TestDefaultsAreFresh(t *testing.T) {
	d := Defaults()
	d[string(GroupIndex)] = append(d[string(GroupIndex)], "extra")
	assert.Len(t, Defaults()[string(GroupIndex)], 2)
}

func TestCatalog(t *testing.T) {
	c := NewCatalog().Instance("a", syncTables{})
	assert.True(t, c.Has("a"))
	assert.False(t, c.Has("b"))
	assert.Equal(t, []Ref{"a"}, c.Names())

	_, err := c.Resolve("b")
	assert.True(t, errors.Is(err, ErrUnknownGenerator))

	c.Register("broken", func() (Generator, error) { return nil, errors.New("boom") })
	_, err = c.Resolve("broken")
	assert.EqualError(t, err, "boom")
}
