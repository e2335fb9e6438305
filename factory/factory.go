// Package factory decides where the schema of a run comes from.
package factory

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/ridoystarlord/ormschema/cache"
	"github.com/ridoystarlord/ormschema/compiler"
	"github.com/ridoystarlord/ormschema/generator"
)

// Origin tells where a schema came from.
type Origin string

const (
	FromCache    Origin = "cache"
	FromManual   Origin = "manual"
	FromCompiler Origin = "compiler"
)

// Factory returns the cached schema when there is one, then the manually
// defined schema, and compiles the queue otherwise. Compiled schemas are
// not written to the cache.
type Factory struct {
	cache    *cache.Manager
	manual   compiler.Schema
	compiler *compiler.Compiler
	queue    generator.Queue
	logger   zerolog.Logger
}

// New returns a factory. cache may be nil, and a nil manual schema means
// none is configured. An empty, non-nil manual schema is used as is.
func New(c *cache.Manager, manual compiler.Schema, comp *compiler.Compiler, q generator.Queue, logger zerolog.Logger) *Factory {
	return &Factory{cache: c, manual: manual, compiler: comp, queue: q, logger: logger}
}

func (f *Factory) Create(ctx context.Context) (compiler.Schema, error) {
	s, _, err := f.Load(ctx)
	return s, err
}

// Load is like Create and also reports the origin of the schema.
func (f *Factory) Load(ctx context.Context) (compiler.Schema, Origin, error) {
	if f.cache != nil {
		s, found, err := f.cache.Read(ctx)
		if err != nil {
			return nil, "", err
		}
		if found {
			f.logger.Debug().Int("entities", len(s)).Msg("schema loaded from cache")
			return s, FromCache, nil
		}
	}
	if f.manual != nil {
		f.logger.Debug().Int("entities", len(f.manual)).Msg("using manually defined schema")
		return f.manual, FromManual, nil
	}
	if f.compiler == nil {
		return nil, "", errors.New("no schema compiler configured")
	}
	s, err := f.compiler.Compile(ctx, f.queue)
	if err != nil {
		return nil, "", err
	}
	return s, FromCompiler, nil
}
