// Package validator checks entity declarations before tables are rendered
// from them.
package validator

import (
	"fmt"

	"github.com/ridoystarlord/ormschema/dialect"
	"github.com/ridoystarlord/ormschema/registry"
)

const maxIdentifierLength = 63

// Validate checks one entity against the registry it belongs to. All
// problems are collected into a *registry.ValidationError.
func Validate(r *registry.Registry, e *registry.Entity) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if err := validateIdentifier("table", e.Table); err != nil {
		add("%v", err)
	}
	if len(e.Fields) == 0 {
		add("no fields declared")
	}

	names := make(map[string]bool)
	columns := make(map[string]bool)
	for _, f := range append(append([]registry.Field{}, e.Fields...), e.Columns...) {
		if f.Name == "" {
			add("field without name")
			continue
		}
		if names[f.Name] {
			add("field %q declared twice", f.Name)
		}
		names[f.Name] = true
		if err := validateIdentifier("column", f.Column); err != nil {
			add("field %q: %v", f.Name, err)
		} else if columns[f.Column] {
			add("column %q mapped twice", f.Column)
		}
		columns[f.Column] = true
		for _, p := range validateField(f) {
			add("field %q: %s", f.Name, p)
		}
	}

	if len(e.PrimaryKeys) == 0 {
		add("no primary key")
	}
	for _, pk := range e.PrimaryKeys {
		f, ok := e.Field(pk)
		switch {
		case !ok:
			add("primary key %q is not a field", pk)
		case f.Nullable:
			add("primary key %q is nullable", pk)
		}
	}

	for _, rel := range e.Relations {
		if names[rel.Name] {
			add("relation %q conflicts with a field", rel.Name)
		}
		if !rel.Type.Valid() {
			add("relation %q has unknown type %q", rel.Name, rel.Type)
		}
		if !r.HasEntity(rel.Target) {
			add("relation %q targets unknown entity %q", rel.Name, rel.Target)
		}
		if rel.Type == registry.BelongsTo && rel.InnerKey != "" {
			columns[rel.InnerKey] = true
		}
	}

	for _, idx := range e.Indexes {
		if len(idx.Columns) == 0 {
			add("index %q has no columns", idx.Name)
		}
		for _, c := range idx.Columns {
			if !columns[c] {
				add("index on unknown column %q", c)
			}
		}
	}

	if len(problems) > 0 {
		return &registry.ValidationError{Role: e.Role, Problems: problems}
	}
	return nil
}

func validateField(f registry.Field) []string {
	var problems []string
	switch {
	case f.Type == "":
		problems = append(problems, "no type")
	case !dialect.IsAbstractType(f.Type):
		problems = append(problems, fmt.Sprintf("unknown type %q", f.Type))
	}
	if f.Size < 0 {
		problems = append(problems, fmt.Sprintf("negative size %d", f.Size))
	}
	if f.Type == dialect.TypeDecimal && f.Precision > 0 && f.Scale > f.Precision {
		problems = append(problems, fmt.Sprintf("scale %d exceeds precision %d", f.Scale, f.Precision))
	}
	if dialect.IsPrimaryType(f.Type) && f.Nullable {
		problems = append(problems, "auto increment key cannot be nullable")
	}
	return problems
}

func validateIdentifier(kind, name string) error {
	if name == "" {
		return fmt.Errorf("%s name cannot be empty", kind)
	}
	if len(name) > maxIdentifierLength {
		return fmt.Errorf("%s name '%s' is too long (max %d characters)", kind, name, maxIdentifierLength)
	}
	for _, char := range name {
		if !((char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '_') {
			return fmt.Errorf("%s name '%s' contains invalid character '%c'", kind, name, char)
		}
	}
	return nil
}
