package loader

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/ridoystarlord/ormschema/registry"
	"github.com/ridoystarlord/ormschema/schema"
)

// TagSource reads entities from Go structs with orm tags. Files are parsed,
// not compiled, so the models directory does not need to build.
//
//	type Article struct {
//		_     struct{} `orm:"entity;table:articles"`
//		ID    int      `orm:"primary"`
//		Title string   `orm:"type:string;size:120"`
//	}
//
// A struct is an entity when it has an "entity" marker or at least one tagged
// field. Untagged fields are ignored.
type TagSource struct {
	Dir string
}

func (s TagSource) Entities(_ context.Context) ([]*registry.Entity, error) {
	if _, err := os.Stat(s.Dir); os.IsNotExist(err) {
		return nil, sourceError(s.Dir, fmt.Errorf("models directory %q does not exist", s.Dir))
	}

	var files []string
	err := filepath.Walk(s.Dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, sourceError(s.Dir, err)
	}
	sort.Strings(files)

	var out []*registry.Entity
	for _, file := range files {
		entities, err := parseGoFile(file)
		if err != nil {
			return nil, sourceError(file, err)
		}
		out = append(out, entities...)
	}
	return out, nil
}

func parseGoFile(path string) ([]*registry.Entity, error) {
	fset := token.NewFileSet()
	node, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Go file: %w", err)
	}

	var (
		out      []*registry.Entity
		parseErr error
	)
	ast.Inspect(node, func(n ast.Node) bool {
		ts, ok := n.(*ast.TypeSpec)
		if !ok || parseErr != nil {
			return parseErr == nil
		}
		st, ok := ts.Type.(*ast.StructType)
		if !ok {
			return true
		}
		e, err := parseStruct(node.Name.Name, ts.Name.Name, st)
		if err != nil {
			parseErr = fmt.Errorf("struct %s: %w", ts.Name.Name, err)
			return false
		}
		if e != nil {
			out = append(out, e)
		}
		return true
	})
	return out, parseErr
}

func parseStruct(pkg, name string, st *ast.StructType) (*registry.Entity, error) {
	e := &registry.Entity{
		Role:  ToSnakeCase(name),
		Class: pkg + "." + name,
	}
	entity := false

	for _, field := range st.Fields.List {
		if len(field.Names) == 0 || field.Tag == nil {
			continue
		}
		raw, ok := lookupTag(field.Tag)
		if !ok || raw == "-" {
			continue
		}
		tag := parseTag(raw)
		fieldName := field.Names[0].Name

		switch {
		case fieldName == "_":
			if !tag.flags["entity"] {
				continue
			}
			entity = true
			e.Role = tag.get("role", e.Role)
			e.Table = tag.get("table", "")
			e.Database = tag.get("database", "")
			e.Mapper = tag.get("mapper", "")
			e.Repository = tag.get("repository", "")
		case !ast.IsExported(fieldName):
			continue
		case tag.values["relation"] != "":
			entity = true
			e.Relations = append(e.Relations, tag.relation(fieldName, field.Type))
		default:
			entity = true
			f, err := tag.field(fieldName, field.Type)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", fieldName, err)
			}
			e.Fields = append(e.Fields, f)
			if tag.flags["index"] || tag.flags["unique"] {
				e.Indexes = append(e.Indexes, registry.Index{Columns: []string{f.Column}, Unique: tag.flags["unique"]})
			}
		}
	}
	if !entity {
		return nil, nil
	}
	finalize(e)
	return e, nil
}

func lookupTag(lit *ast.BasicLit) (string, bool) {
	value, err := strconv.Unquote(lit.Value)
	if err != nil {
		return "", false
	}
	return reflect.StructTag(value).Lookup("orm")
}

type fieldTag struct {
	values map[string]string
	flags  map[string]bool
}

// parseTag splits "column:title;type:string;nullable" into values and flags.
func parseTag(raw string) fieldTag {
	tag := fieldTag{values: map[string]string{}, flags: map[string]bool{}}
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if k, v, ok := strings.Cut(part, ":"); ok {
			tag.values[strings.TrimSpace(k)] = strings.TrimSpace(v)
			continue
		}
		tag.flags[part] = true
	}
	return tag
}

func (t fieldTag) get(key, def string) string {
	if v, ok := t.values[key]; ok {
		return v
	}
	return def
}

func (t fieldTag) int(key string) (int, error) {
	v, ok := t.values[key]
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", key, v)
	}
	return n, nil
}

func (t fieldTag) field(name string, expr ast.Expr) (registry.Field, error) {
	goType, pointer := goTypeName(expr)
	f := registry.Field{
		Name:     name,
		Column:   t.get("column", ""),
		Type:     t.get("type", ""),
		Typecast: t.get("typecast", ""),
		Nullable: t.flags["nullable"] || pointer,
		Primary:  t.flags["primary"],
	}
	if f.Type == "" {
		f.Type = inferType(goType, f.Primary)
	}
	var err error
	if f.Size, err = t.int("size"); err != nil {
		return f, err
	}
	if f.Precision, err = t.int("precision"); err != nil {
		return f, err
	}
	if f.Scale, err = t.int("scale"); err != nil {
		return f, err
	}
	switch {
	case t.flags["default_null"]:
		f.Default = schema.Null()
	case t.values["default_expr"] != "":
		f.Default = schema.Expr(t.values["default_expr"])
	default:
		if v, ok := t.values["default"]; ok {
			f.Default = schema.Literal(v)
		}
	}
	return f, nil
}

func (t fieldTag) relation(name string, expr ast.Expr) registry.Relation {
	goType, _ := goTypeName(expr)
	target := t.get("target", "")
	if target == "" {
		target = ToSnakeCase(strings.TrimPrefix(goType, "[]"))
	}
	return registry.Relation{
		Name:            t.get("name", ToSnakeCase(name)),
		Type:            registry.RelationType(t.values["relation"]),
		Target:          target,
		InnerKey:        t.get("inner_key", ""),
		OuterKey:        t.get("outer_key", ""),
		Nullable:        t.flags["nullable"],
		Cascade:         t.flags["cascade"],
		OnDelete:        t.get("on_delete", ""),
		Through:         t.get("through", ""),
		ThroughInnerKey: t.get("through_inner_key", ""),
		ThroughOuterKey: t.get("through_outer_key", ""),
	}
}

// goTypeName returns the type name of a field without package qualifier on
// struct targets, and whether the field is a pointer.
func goTypeName(expr ast.Expr) (string, bool) {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name, false
	case *ast.StarExpr:
		name, _ := goTypeName(t.X)
		return name, true
	case *ast.ArrayType:
		name, _ := goTypeName(t.Elt)
		return "[]" + name, false
	case *ast.MapType:
		return "map", false
	case *ast.SelectorExpr:
		if x, ok := t.X.(*ast.Ident); ok {
			return x.Name + "." + t.Sel.Name, false
		}
	}
	return "", false
}

// inferType maps a Go type to an abstract column type.
func inferType(goType string, primary bool) string {
	switch goType {
	case "int", "int32", "uint", "uint32", "int16", "int8":
		if primary {
			return "primary"
		}
		return "integer"
	case "int64", "uint64":
		if primary {
			return "bigPrimary"
		}
		return "bigInteger"
	case "string":
		return "string"
	case "bool":
		return "boolean"
	case "float32", "float64":
		return "float"
	case "time.Time":
		return "datetime"
	case "uuid.UUID":
		return "uuid"
	case "[]byte":
		return "binary"
	case "map", "json.RawMessage":
		return "json"
	}
	if strings.HasPrefix(goType, "[]") {
		return "json"
	}
	return "text"
}
