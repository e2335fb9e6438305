// Package registry holds the entities of one schema compilation together
// with the table schema each of them is stored in.
package registry

import (
	"context"
	"fmt"

	"github.com/ridoystarlord/ormschema/schema"
)

// TableLoader loads the live structure of a table. Missing tables load as
// non-existing, empty tables.
type TableLoader interface {
	LoadTable(ctx context.Context, database, table string) (*schema.Table, error)
}

// Registry maps entity roles to entities and their tables. A registry
// belongs to a single compilation and is not safe for concurrent use.
type Registry struct {
	loader          TableLoader
	defaultDatabase string

	roles    []string
	entities map[string]*Entity
	links    map[string]string

	tableKeys []string
	tables    map[string]*schema.Table
}

// New returns an empty registry. Without a loader every linked table
// starts out as a new table.
func New(loader TableLoader, defaultDatabase string) *Registry {
	if defaultDatabase == "" {
		defaultDatabase = "default"
	}
	return &Registry{
		loader:          loader,
		defaultDatabase: defaultDatabase,
		entities:        make(map[string]*Entity),
		links:           make(map[string]string),
		tables:          make(map[string]*schema.Table),
	}
}

func (r *Registry) DefaultDatabase() string { return r.defaultDatabase }

// Register adds an entity. Roles are unique.
func (r *Registry) Register(e *Entity) error {
	if e.Role == "" {
		return fmt.Errorf("entity %q has no role", e.Class)
	}
	if _, ok := r.entities[e.Role]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateEntity, e.Role)
	}
	if e.Database == "" {
		e.Database = r.defaultDatabase
	}
	r.roles = append(r.roles, e.Role)
	r.entities[e.Role] = e
	return nil
}

func (r *Registry) HasEntity(role string) bool {
	_, ok := r.entities[role]
	return ok
}

func (r *Registry) Entity(role string) (*Entity, bool) {
	e, ok := r.entities[role]
	return e, ok
}

// Entities returns the entities in registration order.
func (r *Registry) Entities() []*Entity {
	out := make([]*Entity, 0, len(r.roles))
	for _, role := range r.roles {
		out = append(out, r.entities[role])
	}
	return out
}

func (r *Registry) Len() int { return len(r.roles) }

// LinkTable associates an entity with a table, loading the table once per
// database and name. Several entities may share one table.
func (r *Registry) LinkTable(ctx context.Context, role, database, table string) error {
	e, ok := r.entities[role]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEntity, role)
	}
	if database == "" {
		database = r.defaultDatabase
	}
	if _, err := r.LoadTable(ctx, database, table); err != nil {
		return fmt.Errorf("linking entity %q: %w", role, err)
	}
	e.Database, e.Table = database, table
	r.links[role] = database + "." + table
	return nil
}

// LoadTable returns the table with the given database and name, loading it
// on first use. Tables loaded without an entity, such as pivot tables, are
// part of Tables all the same.
func (r *Registry) LoadTable(ctx context.Context, database, table string) (*schema.Table, error) {
	if database == "" {
		database = r.defaultDatabase
	}
	key := database + "." + table
	if t, ok := r.tables[key]; ok {
		return t, nil
	}
	var t *schema.Table
	if r.loader == nil {
		t = schema.NewTable(database, table)
	} else {
		var err error
		if t, err = r.loader.LoadTable(ctx, database, table); err != nil {
			return nil, fmt.Errorf("loading table %s: %w", key, err)
		}
	}
	r.tables[key] = t
	r.tableKeys = append(r.tableKeys, key)
	return t, nil
}

func (r *Registry) HasTable(role string) bool {
	_, ok := r.links[role]
	return ok
}

// TableSchema returns the table linked to an entity.
func (r *Registry) TableSchema(role string) (*schema.Table, bool) {
	key, ok := r.links[role]
	if !ok {
		return nil, false
	}
	return r.tables[key], true
}

// Tables returns every linked table in the order it was first linked.
func (r *Registry) Tables() []*schema.Table {
	out := make([]*schema.Table, 0, len(r.tableKeys))
	for _, key := range r.tableKeys {
		out = append(out, r.tables[key])
	}
	return out
}

// Table returns a linked table by database and name.
func (r *Registry) Table(database, table string) (*schema.Table, bool) {
	if database == "" {
		database = r.defaultDatabase
	}
	t, ok := r.tables[database+"."+table]
	return t, ok
}
