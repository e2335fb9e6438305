// Package compiler runs a generator queue over a fresh registry and turns
// the result into a Schema.
package compiler

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/ridoystarlord/ormschema/generator"
	"github.com/ridoystarlord/ormschema/registry"
)

type Compiler struct {
	loader          registry.TableLoader
	defaultDatabase string
	logger          zerolog.Logger
}

// New returns a compiler loading live tables through loader. A nil loader
// compiles against empty databases.
func New(loader registry.TableLoader, defaultDatabase string, logger zerolog.Logger) *Compiler {
	return &Compiler{loader: loader, defaultDatabase: defaultDatabase, logger: logger}
}

// Compile runs every generator of q in order and returns the compiled
// schema. Nothing is returned when a generator fails.
func (c *Compiler) Compile(ctx context.Context, q generator.Queue) (Schema, error) {
	r, err := c.Run(ctx, q)
	if err != nil {
		return nil, err
	}
	return Extract(r), nil
}

// Run is like Compile but returns the registry the generators produced.
func (c *Compiler) Run(ctx context.Context, q generator.Queue) (*registry.Registry, error) {
	start := time.Now()
	gens, err := q.Generators()
	if err != nil {
		return nil, err
	}

	r := registry.New(c.loader, c.defaultDatabase)
	for _, g := range gens {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := generator.Name(g)
		c.logger.Debug().Str("generator", name).Msg("running generator")
		next, err := g.Run(ctx, r)
		if err != nil {
			return nil, fmt.Errorf("generator %s: %w", name, err)
		}
		if next == nil {
			return nil, fmt.Errorf("generator %s returned no registry", name)
		}
		r = next
	}

	c.logger.Info().
		Int("generators", len(gens)).
		Int("entities", r.Len()).
		Dur("took", time.Since(start)).
		Msg("schema compiled")
	return r, nil
}

// Extract builds the declarative schema of a registry.
func Extract(r *registry.Registry) Schema {
	out := make(Schema, r.Len())
	for _, e := range r.Entities() {
		ce := Entity{
			Role:       e.Role,
			Class:      e.Class,
			Mapper:     e.Mapper,
			Repository: e.Repository,
			Database:   e.Database,
			Table:      e.Table,
			PrimaryKey: append([]string{}, e.PrimaryKeys...),
			Columns:    make([]Column, 0, len(e.Fields)),
		}
		for _, f := range e.Fields {
			ce.Columns = append(ce.Columns, Column{
				Field:    f.Name,
				Column:   f.Column,
				Type:     f.Type,
				Typecast: f.Typecast,
				Nullable: f.Nullable,
				Primary:  slices.Contains(e.PrimaryKeys, f.Name),
			})
		}
		for _, rel := range e.Relations {
			ce.Relations = append(ce.Relations, Relation{
				Name:            rel.Name,
				Type:            string(rel.Type),
				Target:          rel.Target,
				InnerKey:        rel.InnerKey,
				OuterKey:        rel.OuterKey,
				Nullable:        rel.Nullable,
				Cascade:         rel.Cascade,
				Through:         rel.Through,
				ThroughInnerKey: rel.ThroughInnerKey,
				ThroughOuterKey: rel.ThroughOuterKey,
			})
		}
		out[e.Role] = ce
	}
	return out
}
