// Package loader discovers entity declarations from YAML files and from Go
// struct tags.
package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/ridoystarlord/ormschema/registry"
)

// Source yields entity declarations. Entities come back in a stable order.
type Source interface {
	Entities(ctx context.Context) ([]*registry.Entity, error)
}

// Sources concatenates the entities of several sources.
type Sources []Source

func (s Sources) Entities(ctx context.Context) ([]*registry.Entity, error) {
	var out []*registry.Entity
	for _, src := range s {
		entities, err := src.Entities(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, entities...)
	}
	return out, nil
}

// Static is a fixed list of entities. Each call returns fresh copies.
type Static []*registry.Entity

func (s Static) Entities(context.Context) ([]*registry.Entity, error) {
	out := make([]*registry.Entity, len(s))
	for i, e := range s {
		out[i] = e.Clone()
	}
	return out, nil
}

// TableName is the default table of a role: the plural of its snake case
// form.
func TableName(role string) string {
	return inflect.Pluralize(ToSnakeCase(role))
}

// ToSnakeCase converts PascalCase or camelCase to snake_case.
func ToSnakeCase(s string) string {
	var (
		sb   strings.Builder
		prev rune
	)
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' && ((prev >= 'a' && prev <= 'z') || (prev >= '0' && prev <= '9')) {
			sb.WriteByte('_')
		}
		sb.WriteRune(r)
		prev = r
	}
	return strings.ToLower(sb.String())
}

// finalize fills column names and the primary key list.
func finalize(e *registry.Entity) {
	for i := range e.Fields {
		f := &e.Fields[i]
		if f.Column == "" {
			f.Column = ToSnakeCase(f.Name)
		}
		if f.Type == "primary" || f.Type == "bigPrimary" {
			f.Primary = true
		}
	}
	for i := range e.Columns {
		if e.Columns[i].Column == "" {
			e.Columns[i].Column = ToSnakeCase(e.Columns[i].Name)
		}
	}
	if len(e.PrimaryKeys) == 0 {
		for _, f := range e.Fields {
			if f.Primary {
				e.PrimaryKeys = append(e.PrimaryKeys, f.Name)
			}
		}
	} else {
		for _, pk := range e.PrimaryKeys {
			if f, ok := e.Field(pk); ok {
				f.Primary = true
			}
		}
	}
}

func sourceError(origin string, err error) error {
	return fmt.Errorf("loading entities from %s: %w", origin, err)
}
