package generator

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ridoystarlord/ormschema/loader"
	"github.com/ridoystarlord/ormschema/registry"
	"github.com/ridoystarlord/ormschema/validator"
)

// Entities registers the declared entities and links each of them to its
// table, as loaded from the database.
type Entities struct {
	Source loader.Source
	Logger zerolog.Logger
}

func (g *Entities) Run(ctx context.Context, r *registry.Registry) (*registry.Registry, error) {
	if g.Source == nil {
		return nil, errors.New("no entity source configured")
	}
	entities, err := g.Source.Entities(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range entities {
		if e.Table == "" {
			e.Table = loader.TableName(e.Role)
		}
		if err := r.Register(e); err != nil {
			return nil, err
		}
	}
	for _, e := range entities {
		if err := r.LinkTable(ctx, e.Role, e.Database, e.Table); err != nil {
			return nil, err
		}
	}
	g.Logger.Debug().Int("entities", len(entities)).Int("tables", len(r.Tables())).Msg("entities registered")
	return r, nil
}

// MergeColumns turns table level column declarations into entity fields.
type MergeColumns struct{}

func (MergeColumns) Run(_ context.Context, r *registry.Registry) (*registry.Registry, error) {
	for _, e := range r.Entities() {
		for _, c := range e.Columns {
			if c.Name == "" {
				c.Name = c.Column
			}
			if _, ok := e.FieldByColumn(c.Column); ok {
				return nil, fmt.Errorf("entity %q: column %q is declared by a field and by the table", e.Role, c.Column)
			}
			if _, ok := e.Field(c.Name); ok {
				return nil, fmt.Errorf("entity %q: table column %q conflicts with field %q", e.Role, c.Column, c.Name)
			}
			e.Fields = append(e.Fields, c)
		}
		e.Columns = nil
	}
	return r, nil
}

// ResetTables clears the declared structure of every existing table so the
// render generators declare it from scratch.
type ResetTables struct{}

func (ResetTables) Run(_ context.Context, r *registry.Registry) (*registry.Registry, error) {
	for _, t := range r.Tables() {
		if t.Exists() {
			t.Reset()
		}
	}
	return r, nil
}

// ValidateEntities stops the compilation at the first invalid entity.
type ValidateEntities struct{}

func (ValidateEntities) Run(_ context.Context, r *registry.Registry) (*registry.Registry, error) {
	for _, e := range r.Entities() {
		if !r.HasTable(e.Role) {
			return nil, &registry.ValidationError{Role: e.Role, Problems: []string{"no table linked"}}
		}
		if err := validator.Validate(r, e); err != nil {
			return nil, err
		}
	}
	return r, nil
}
