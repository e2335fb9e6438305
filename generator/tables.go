package generator

import (
	"context"
	"fmt"

	"github.com/ridoystarlord/ormschema/dialect"
	"github.com/ridoystarlord/ormschema/registry"
	"github.com/ridoystarlord/ormschema/schema"
)

// RenderTables declares the columns and primary key of every entity table.
type RenderTables struct {
	Dialects Dialects
}

func (g *RenderTables) Run(ctx context.Context, r *registry.Registry) (*registry.Registry, error) {
	for _, e := range r.Entities() {
		table, ok := r.TableSchema(e.Role)
		if !ok {
			continue
		}
		d, err := g.Dialects.Dialect(ctx, e.Database)
		if err != nil {
			return nil, fmt.Errorf("rendering entity %q: %w", e.Role, err)
		}
		for _, f := range e.Fields {
			col, err := d.Column(f.Column, dialect.Type{
				Abstract:  f.Type,
				Size:      f.Size,
				Precision: f.Precision,
				Scale:     f.Scale,
				Nullable:  f.Nullable,
				Default:   f.Default,
			})
			if err != nil {
				return nil, fmt.Errorf("rendering field %q of entity %q: %w", f.Name, e.Role, err)
			}
			table.DeclareColumn(col)
		}
		if err := table.SetPrimaryKeys(e.PrimaryColumns()...); err != nil {
			return nil, fmt.Errorf("rendering entity %q: %w", e.Role, err)
		}
	}
	return r, nil
}

// MergeIndexes declares the indexes listed on entities.
type MergeIndexes struct{}

func (MergeIndexes) Run(_ context.Context, r *registry.Registry) (*registry.Registry, error) {
	for _, e := range r.Entities() {
		table, ok := r.TableSchema(e.Role)
		if !ok {
			continue
		}
		for _, idx := range e.Indexes {
			for _, c := range idx.Columns {
				if !table.HasColumn(c) {
					return nil, fmt.Errorf("index of entity %q: column %q is not declared on %s", e.Role, c, table.FullName())
				}
			}
			name := idx.Name
			if name == "" {
				name = schema.IndexName(table.Name(), idx.Columns...)
			}
			table.DeclareIndex(schema.Index{Name: name, Columns: idx.Columns, Unique: idx.Unique})
		}
	}
	return r, nil
}

// GenerateTypecast sets the typecast of fields that do not carry one.
// String-like fields need none.
type GenerateTypecast struct{}

func (GenerateTypecast) Run(_ context.Context, r *registry.Registry) (*registry.Registry, error) {
	for _, e := range r.Entities() {
		for i := range e.Fields {
			f := &e.Fields[i]
			if f.Typecast == "" {
				f.Typecast = Typecast(f.Type)
			}
		}
	}
	return r, nil
}

// Typecast returns the typecast of an abstract type, or "" when values are
// kept as strings.
func Typecast(abstract string) string {
	switch abstract {
	case dialect.TypePrimary, dialect.TypeBigPrimary, dialect.TypeInteger, dialect.TypeBigInteger:
		return "int"
	case dialect.TypeBoolean:
		return "bool"
	case dialect.TypeFloat, dialect.TypeDecimal:
		return "float"
	case dialect.TypeDatetime, dialect.TypeDate, dialect.TypeTime:
		return "datetime"
	case dialect.TypeJSON:
		return "json"
	}
	return ""
}
