package loader

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ridoystarlord/ormschema/registry"
	"github.com/ridoystarlord/ormschema/schema"
)

type yamlFile struct {
	Entities []yamlEntity `yaml:"entities"`
}

type yamlEntity struct {
	Role       string         `yaml:"role"`
	Class      string         `yaml:"class"`
	Mapper     string         `yaml:"mapper"`
	Repository string         `yaml:"repository"`
	Database   string         `yaml:"database"`
	Table      string         `yaml:"table"`
	PrimaryKey []string       `yaml:"primary_key"`
	Fields     []yamlField    `yaml:"fields"`
	Relations  []yamlRelation `yaml:"relations"`
	Indexes    []yamlIndex    `yaml:"indexes"`
	Columns    []yamlField    `yaml:"columns"`
}

type yamlField struct {
	Name        string  `yaml:"name"`
	Column      string  `yaml:"column"`
	Type        string  `yaml:"type"`
	Size        int     `yaml:"size"`
	Precision   int     `yaml:"precision"`
	Scale       int     `yaml:"scale"`
	Nullable    bool    `yaml:"nullable"`
	Primary     bool    `yaml:"primary"`
	Typecast    string  `yaml:"typecast"`
	Default     *string `yaml:"default"`
	DefaultExpr string  `yaml:"default_expr"`
	DefaultNull bool    `yaml:"default_null"`
}

type yamlRelation struct {
	Name            string `yaml:"name"`
	Type            string `yaml:"type"`
	Target          string `yaml:"target"`
	InnerKey        string `yaml:"inner_key"`
	OuterKey        string `yaml:"outer_key"`
	Nullable        bool   `yaml:"nullable"`
	Cascade         bool   `yaml:"cascade"`
	OnDelete        string `yaml:"on_delete"`
	Through         string `yaml:"through"`
	ThroughInnerKey string `yaml:"through_inner_key"`
	ThroughOuterKey string `yaml:"through_outer_key"`
}

type yamlIndex struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
	Unique  bool     `yaml:"unique"`
}

// YAMLSource reads entities from YAML files, in file order.
type YAMLSource struct {
	Files []string
}

func (s YAMLSource) Entities(_ context.Context) ([]*registry.Entity, error) {
	var out []*registry.Entity
	for _, file := range s.Files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, sourceError(file, fmt.Errorf("reading entity file: %w", err))
		}
		entities, err := ParseYAML(data)
		if err != nil {
			return nil, sourceError(file, err)
		}
		out = append(out, entities...)
	}
	return out, nil
}

// ParseYAML decodes an entity document.
func ParseYAML(data []byte) ([]*registry.Entity, error) {
	var yf yamlFile
	if err := yaml.Unmarshal(data, &yf); err != nil {
		return nil, fmt.Errorf("unmarshalling YAML: %w", err)
	}

	out := make([]*registry.Entity, 0, len(yf.Entities))
	for _, ye := range yf.Entities {
		e := &registry.Entity{
			Role:        ye.Role,
			Class:       ye.Class,
			Mapper:      ye.Mapper,
			Repository:  ye.Repository,
			Database:    ye.Database,
			Table:       ye.Table,
			PrimaryKeys: ye.PrimaryKey,
		}
		if e.Role == "" && e.Class != "" {
			e.Role = ToSnakeCase(e.Class)
		}
		for _, f := range ye.Fields {
			e.Fields = append(e.Fields, f.field())
		}
		for _, f := range ye.Columns {
			e.Columns = append(e.Columns, f.field())
		}
		for _, r := range ye.Relations {
			e.Relations = append(e.Relations, registry.Relation{
				Name:            r.Name,
				Type:            registry.RelationType(r.Type),
				Target:          r.Target,
				InnerKey:        r.InnerKey,
				OuterKey:        r.OuterKey,
				Nullable:        r.Nullable,
				Cascade:         r.Cascade,
				OnDelete:        r.OnDelete,
				Through:         r.Through,
				ThroughInnerKey: r.ThroughInnerKey,
				ThroughOuterKey: r.ThroughOuterKey,
			})
		}
		for _, idx := range ye.Indexes {
			e.Indexes = append(e.Indexes, registry.Index{Name: idx.Name, Columns: idx.Columns, Unique: idx.Unique})
		}
		finalize(e)
		out = append(out, e)
	}
	return out, nil
}

func (f yamlField) field() registry.Field {
	out := registry.Field{
		Name:      f.Name,
		Column:    f.Column,
		Type:      f.Type,
		Size:      f.Size,
		Precision: f.Precision,
		Scale:     f.Scale,
		Nullable:  f.Nullable,
		Primary:   f.Primary,
		Typecast:  f.Typecast,
	}
	switch {
	case f.DefaultNull:
		out.Default = schema.Null()
	case f.DefaultExpr != "":
		out.Default = schema.Expr(f.DefaultExpr)
	case f.Default != nil:
		out.Default = schema.Literal(*f.Default)
	}
	return out
}
