package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/ridoystarlord/ormschema/compiler"
)

// Key is the cache key of the compiled schema.
const Key = "orm.schema"

// Manager reads and writes the compiled schema in a Store.
type Manager struct {
	store Store
}

func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

func (m *Manager) IsCached(ctx context.Context) (bool, error) {
	ok, err := m.store.Has(ctx, Key)
	if err != nil {
		return false, fmt.Errorf("checking schema cache: %w", err)
	}
	return ok, nil
}

// Read returns the cached schema. found is false when nothing is cached.
func (m *Manager) Read(ctx context.Context) (s compiler.Schema, found bool, err error) {
	data, err := m.store.Get(ctx, Key)
	if errors.Is(err, ErrMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading schema cache: %w", err)
	}
	s, err = compiler.Unmarshal(data)
	if err != nil {
		return nil, false, fmt.Errorf("reading schema cache: %w", err)
	}
	return s, true, nil
}

// Write replaces the cached schema.
func (m *Manager) Write(ctx context.Context, s compiler.Schema) error {
	data, err := s.Marshal()
	if err != nil {
		return err
	}
	if err := m.store.Set(ctx, Key, data); err != nil {
		return fmt.Errorf("writing schema cache: %w", err)
	}
	return nil
}

// Clear removes the cached schema. Clearing an empty cache is not an error.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.store.Delete(ctx, Key); err != nil {
		return fmt.Errorf("clearing schema cache: %w", err)
	}
	return nil
}
