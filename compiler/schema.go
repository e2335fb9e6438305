package compiler

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
)

// Schema is the compiled mapping description, keyed by entity role. It
// holds plain values only and can be stored in any cache.
type Schema map[string]Entity

// Entity is the compiled form of one entity.
type Entity struct {
	Role       string     `msgpack:"role" yaml:"role" json:"role"`
	Class      string     `msgpack:"class,omitempty" yaml:"class,omitempty" json:"class,omitempty"`
	Mapper     string     `msgpack:"mapper,omitempty" yaml:"mapper,omitempty" json:"mapper,omitempty"`
	Repository string     `msgpack:"repository,omitempty" yaml:"repository,omitempty" json:"repository,omitempty"`
	Database   string     `msgpack:"database" yaml:"database" json:"database"`
	Table      string     `msgpack:"table" yaml:"table" json:"table"`
	PrimaryKey []string   `msgpack:"primary_key" yaml:"primary_key" json:"primary_key"`
	Columns    []Column   `msgpack:"columns" yaml:"columns" json:"columns"`
	Relations  []Relation `msgpack:"relations,omitempty" yaml:"relations,omitempty" json:"relations,omitempty"`
}

// Column maps an entity field onto a table column.
type Column struct {
	Field    string `msgpack:"field" yaml:"field" json:"field"`
	Column   string `msgpack:"column" yaml:"column" json:"column"`
	Type     string `msgpack:"type" yaml:"type" json:"type"`
	Typecast string `msgpack:"typecast,omitempty" yaml:"typecast,omitempty" json:"typecast,omitempty"`
	Nullable bool   `msgpack:"nullable,omitempty" yaml:"nullable,omitempty" json:"nullable,omitempty"`
	Primary  bool   `msgpack:"primary,omitempty" yaml:"primary,omitempty" json:"primary,omitempty"`
}

type Relation struct {
	Name            string `msgpack:"name" yaml:"name" json:"name"`
	Type            string `msgpack:"type" yaml:"type" json:"type"`
	Target          string `msgpack:"target" yaml:"target" json:"target"`
	InnerKey        string `msgpack:"inner_key" yaml:"inner_key" json:"inner_key"`
	OuterKey        string `msgpack:"outer_key" yaml:"outer_key" json:"outer_key"`
	Nullable        bool   `msgpack:"nullable,omitempty" yaml:"nullable,omitempty" json:"nullable,omitempty"`
	Cascade         bool   `msgpack:"cascade,omitempty" yaml:"cascade,omitempty" json:"cascade,omitempty"`
	Through         string `msgpack:"through,omitempty" yaml:"through,omitempty" json:"through,omitempty"`
	ThroughInnerKey string `msgpack:"through_inner_key,omitempty" yaml:"through_inner_key,omitempty" json:"through_inner_key,omitempty"`
	ThroughOuterKey string `msgpack:"through_outer_key,omitempty" yaml:"through_outer_key,omitempty" json:"through_outer_key,omitempty"`
}

// Entity returns the compiled entity of a role.
func (s Schema) Entity(role string) (Entity, bool) {
	e, ok := s[role]
	return e, ok
}

// Roles returns every role, sorted.
func (s Schema) Roles() []string {
	out := make([]string, 0, len(s))
	for role := range s {
		out = append(out, role)
	}
	sort.Strings(out)
	return out
}

// Marshal encodes s as msgpack. Map keys are sorted, so equal schemas
// encode to equal bytes.
func (s Schema) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(map[string]Entity(s)); err != nil {
		return nil, fmt.Errorf("encoding schema: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a schema encoded by Marshal.
func Unmarshal(data []byte) (Schema, error) {
	var out map[string]Entity
	if err := msgpack.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding schema: %w", err)
	}
	if out == nil {
		out = map[string]Entity{}
	}
	return Schema(out), nil
}
