package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/ridoystarlord/ormschema/dialect"
	"github.com/ridoystarlord/ormschema/loader"
	"github.com/ridoystarlord/ormschema/registry"
	"github.com/ridoystarlord/ormschema/schema"
)

// GenerateRelations checks relation targets and fills in the keys that
// were left to convention:
//
//	belongsTo   inner {relation}_{target pk}, outer target pk
//	hasOne/Many inner source pk, outer {source role}_{source pk}
//	manyToMany  through {role}_{plural target}, keys {role}_{pk} and {target}_{pk}
type GenerateRelations struct{}

func (GenerateRelations) Run(_ context.Context, r *registry.Registry) (*registry.Registry, error) {
	for _, e := range r.Entities() {
		for i := range e.Relations {
			rel := &e.Relations[i]
			target, ok := r.Entity(rel.Target)
			if !ok {
				return nil, fmt.Errorf("relation %q of entity %q targets unknown entity %q", rel.Name, e.Role, rel.Target)
			}
			sourcePK := firstPrimaryColumn(e)
			targetPK := firstPrimaryColumn(target)

			switch rel.Type {
			case registry.BelongsTo:
				rel.OuterKey = orString(rel.OuterKey, targetPK)
				if rel.OuterKey != "" {
					rel.InnerKey = orString(rel.InnerKey, loader.ToSnakeCase(rel.Name)+"_"+rel.OuterKey)
				}
			case registry.HasOne, registry.HasMany:
				rel.InnerKey = orString(rel.InnerKey, sourcePK)
				if rel.InnerKey != "" {
					rel.OuterKey = orString(rel.OuterKey, loader.ToSnakeCase(e.Role)+"_"+rel.InnerKey)
				}
			case registry.ManyToMany:
				rel.InnerKey = orString(rel.InnerKey, sourcePK)
				rel.OuterKey = orString(rel.OuterKey, targetPK)
				rel.Through = orString(rel.Through, loader.ToSnakeCase(e.Role)+"_"+inflect.Pluralize(loader.ToSnakeCase(target.Role)))
				if rel.InnerKey != "" {
					rel.ThroughInnerKey = orString(rel.ThroughInnerKey, loader.ToSnakeCase(e.Role)+"_"+rel.InnerKey)
				}
				if rel.OuterKey != "" {
					rel.ThroughOuterKey = orString(rel.ThroughOuterKey, loader.ToSnakeCase(target.Role)+"_"+rel.OuterKey)
				}
			}
		}
	}
	return r, nil
}

// RenderRelations declares the key columns, indexes and foreign keys that
// relations need.
type RenderRelations struct {
	Dialects Dialects
}

func (g *RenderRelations) Run(ctx context.Context, r *registry.Registry) (*registry.Registry, error) {
	pivots := make(map[*schema.Table]bool)
	for _, e := range r.Entities() {
		for _, rel := range e.Relations {
			target, ok := r.Entity(rel.Target)
			if !ok {
				return nil, fmt.Errorf("relation %q of entity %q targets unknown entity %q", rel.Name, e.Role, rel.Target)
			}
			var err error
			switch rel.Type {
			case registry.BelongsTo:
				err = g.renderKey(ctx, r, e, rel.InnerKey, target, rel.OuterKey, rel)
			case registry.HasOne, registry.HasMany:
				err = g.renderKey(ctx, r, target, rel.OuterKey, e, rel.InnerKey, rel)
			case registry.ManyToMany:
				err = g.renderPivot(ctx, r, e, target, rel, pivots)
			}
			if err != nil {
				return nil, fmt.Errorf("relation %q of entity %q: %w", rel.Name, e.Role, err)
			}
		}
	}
	return r, nil
}

// renderKey declares column key on the table of owner, referencing column
// ref of the table of referenced.
func (g *RenderRelations) renderKey(ctx context.Context, r *registry.Registry, owner *registry.Entity, key string, referenced *registry.Entity, ref string, rel registry.Relation) error {
	table, ok := r.TableSchema(owner.Role)
	if !ok {
		return fmt.Errorf("entity %q has no table", owner.Role)
	}
	refField, ok := referenced.FieldByColumn(ref)
	if !ok {
		return fmt.Errorf("column %q is not mapped by entity %q", ref, referenced.Role)
	}
	d, err := g.Dialects.Dialect(ctx, owner.Database)
	if err != nil {
		return err
	}

	t := keyType(*refField)
	t.Nullable = rel.Nullable
	if !table.HasColumn(key) {
		col, err := d.Column(key, t)
		if err != nil {
			return err
		}
		table.DeclareColumn(col)
	}
	// the key is hydrated like any other column
	if _, ok := owner.FieldByColumn(key); !ok {
		owner.Fields = append(owner.Fields, registry.Field{
			Name:      key,
			Column:    key,
			Type:      t.Abstract,
			Size:      t.Size,
			Precision: t.Precision,
			Scale:     t.Scale,
			Nullable:  rel.Nullable,
		})
	}
	table.DeclareIndex(schema.Index{Name: schema.IndexName(table.Name(), key), Columns: []string{key}})

	if owner.Database != referenced.Database {
		return nil
	}
	table.DeclareForeignKey(schema.ForeignKey{
		Name:           schema.ForeignKeyName(table.Name(), key),
		Columns:        []string{key},
		ForeignTable:   referenced.Table,
		ForeignColumns: []string{ref},
		OnDelete:       onDelete(rel),
	})
	return nil
}

func (g *RenderRelations) renderPivot(ctx context.Context, r *registry.Registry, source, target *registry.Entity, rel registry.Relation, rendered map[*schema.Table]bool) error {
	innerField, ok := source.FieldByColumn(rel.InnerKey)
	if !ok {
		return fmt.Errorf("column %q is not mapped by entity %q", rel.InnerKey, source.Role)
	}
	outerField, ok := target.FieldByColumn(rel.OuterKey)
	if !ok {
		return fmt.Errorf("column %q is not mapped by entity %q", rel.OuterKey, target.Role)
	}
	d, err := g.Dialects.Dialect(ctx, source.Database)
	if err != nil {
		return err
	}
	pivot, err := r.LoadTable(ctx, source.Database, rel.Through)
	if err != nil {
		return err
	}
	if !rendered[pivot] && pivot.Exists() {
		pivot.Reset()
	}
	rendered[pivot] = true

	for _, k := range []struct {
		column string
		field  registry.Field
	}{{rel.ThroughInnerKey, *innerField}, {rel.ThroughOuterKey, *outerField}} {
		if pivot.HasColumn(k.column) {
			continue
		}
		col, err := d.Column(k.column, keyType(k.field))
		if err != nil {
			return err
		}
		pivot.DeclareColumn(col)
	}
	if err := pivot.SetPrimaryKeys(rel.ThroughInnerKey, rel.ThroughOuterKey); err != nil {
		return err
	}
	pivot.DeclareIndex(schema.Index{
		Name:    schema.IndexName(pivot.Name(), rel.ThroughOuterKey),
		Columns: []string{rel.ThroughOuterKey},
	})
	pivot.DeclareForeignKey(schema.ForeignKey{
		Name:           schema.ForeignKeyName(pivot.Name(), rel.ThroughInnerKey),
		Columns:        []string{rel.ThroughInnerKey},
		ForeignTable:   source.Table,
		ForeignColumns: []string{rel.InnerKey},
		OnDelete:       "CASCADE",
	})
	if source.Database == target.Database {
		pivot.DeclareForeignKey(schema.ForeignKey{
			Name:           schema.ForeignKeyName(pivot.Name(), rel.ThroughOuterKey),
			Columns:        []string{rel.ThroughOuterKey},
			ForeignTable:   target.Table,
			ForeignColumns: []string{rel.OuterKey},
			OnDelete:       "CASCADE",
		})
	}
	return nil
}

// keyType is the type of a column referencing f. Auto increment keys are
// referenced by plain integers.
func keyType(f registry.Field) dialect.Type {
	t := dialect.Type{Abstract: f.Type, Size: f.Size, Precision: f.Precision, Scale: f.Scale}
	switch f.Type {
	case dialect.TypePrimary:
		t.Abstract = dialect.TypeInteger
	case dialect.TypeBigPrimary:
		t.Abstract = dialect.TypeBigInteger
	}
	return t
}

func onDelete(rel registry.Relation) string {
	switch {
	case rel.OnDelete != "":
		return strings.ToUpper(rel.OnDelete)
	case rel.Cascade:
		return "CASCADE"
	case rel.Nullable:
		return "SET NULL"
	}
	return ""
}

func firstPrimaryColumn(e *registry.Entity) string {
	if cols := e.PrimaryColumns(); len(cols) > 0 {
		return cols[0]
	}
	return ""
}

func orString(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
