package generator

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ridoystarlord/ormschema/dialect"
	"github.com/ridoystarlord/ormschema/loader"
)

// Names of the built-in generators.
const (
	RefEntities          Ref = "entities"
	RefMergeColumns      Ref = "merge-columns"
	RefResetTables       Ref = "reset-tables"
	RefGenerateRelations Ref = "generate-relations"
	RefValidateEntities  Ref = "validate-entities"
	RefRenderTables      Ref = "render-tables"
	RefRenderRelations   Ref = "render-relations"
	RefMergeIndexes      Ref = "merge-indexes"
	RefGenerateTypecast  Ref = "generate-typecast"
)

// Dialects returns the dialect of a named database.
type Dialects interface {
	Dialect(ctx context.Context, database string) (dialect.Dialect, error)
}

// DialectsFunc adapts a function to Dialects.
type DialectsFunc func(ctx context.Context, database string) (dialect.Dialect, error)

func (f DialectsFunc) Dialect(ctx context.Context, database string) (dialect.Dialect, error) {
	return f(ctx, database)
}

// FixedDialect uses d for every database.
func FixedDialect(d dialect.Dialect) Dialects {
	return DialectsFunc(func(context.Context, string) (dialect.Dialect, error) { return d, nil })
}

// Deps are the collaborators of the built-in generators.
type Deps struct {
	Source   loader.Source
	Dialects Dialects
	Logger   zerolog.Logger
}

// Builtins returns a catalog holding every built-in generator. Callers may
// register more generators on it.
func Builtins(deps Deps) *Catalog {
	return NewCatalog().
		Register(RefEntities, func() (Generator, error) {
			return &Entities{Source: deps.Source, Logger: deps.Logger}, nil
		}).
		Instance(RefMergeColumns, MergeColumns{}).
		Instance(RefResetTables, ResetTables{}).
		Instance(RefGenerateRelations, GenerateRelations{}).
		Instance(RefValidateEntities, ValidateEntities{}).
		Register(RefRenderTables, func() (Generator, error) {
			return &RenderTables{Dialects: deps.Dialects}, nil
		}).
		Register(RefRenderRelations, func() (Generator, error) {
			return &RenderRelations{Dialects: deps.Dialects}, nil
		}).
		Instance(RefMergeIndexes, MergeIndexes{}).
		Instance(RefGenerateTypecast, GenerateTypecast{})
}

// Defaults returns the default pipeline, by group. Every call returns a
// fresh copy.
func Defaults() map[string][]string {
	return map[string][]string{
		string(GroupIndex): {
			string(RefEntities),
			string(RefMergeColumns),
		},
		string(GroupRender): {
			string(RefResetTables),
			string(RefGenerateRelations),
			string(RefValidateEntities),
			string(RefRenderTables),
			string(RefRenderRelations),
			string(RefMergeIndexes),
		},
		string(GroupPostprocess): {
			string(RefGenerateTypecast),
		},
	}
}
