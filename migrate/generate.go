package migrate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	atlas "ariga.io/atlas/sql/migrate"
	"github.com/rs/zerolog"

	"github.com/ridoystarlord/ormschema/generator"
	"github.com/ridoystarlord/ormschema/registry"
)

// OpenDir opens a migration directory, creating it when missing.
func OpenDir(path string) (*atlas.LocalDir, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating migrations folder: %w", err)
	}
	dir, err := atlas.NewLocalDir(path)
	if err != nil {
		return nil, fmt.Errorf("opening migrations folder: %w", err)
	}
	return dir, nil
}

// GenerateMigrations writes one migration file per changed table and
// refreshes the directory checksum.
type GenerateMigrations struct {
	Dir      *atlas.LocalDir
	Dialects generator.Dialects
	Now      func() time.Time
	Logger   zerolog.Logger

	written []string
}

func (g *GenerateMigrations) Run(ctx context.Context, r *registry.Registry) (*registry.Registry, error) {
	g.written = nil
	changes := Changes(r)
	if len(changes) == 0 {
		return r, nil
	}
	if err := atlas.Validate(g.Dir); err != nil {
		return nil, fmt.Errorf("validating migrations folder: %w", err)
	}

	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	version := now().UTC().Format("20060102150405")

	for i, c := range changes {
		d, err := g.Dialects.Dialect(ctx, c.Database)
		if err != nil {
			return nil, err
		}
		name := fmt.Sprintf("%s%03d_%s_%s_%s.sql", version, i+1, c.Database, c.Action(), c.Table.Name())
		f := File{
			Name:        name,
			Database:    c.Database,
			Description: fmt.Sprintf("%s table %s", c.Action(), c.Table.FullName()),
			Up:          Up(d, []Change{c}),
			Down:        Down(d, []Change{c}),
		}
		if err := g.Dir.WriteFile(name, f.Bytes()); err != nil {
			return nil, fmt.Errorf("writing migration file: %w", err)
		}
		g.written = append(g.written, name)
		g.Logger.Info().Str("file", name).Int("statements", len(f.Up)).Msg("migration generated")
	}

	sum, err := g.Dir.Checksum()
	if err != nil {
		return nil, fmt.Errorf("computing migrations checksum: %w", err)
	}
	if err := atlas.WriteSumFile(g.Dir, sum); err != nil {
		return nil, fmt.Errorf("writing %s: %w", atlas.HashFileName, err)
	}
	return r, nil
}

// Files returns the names written by the last run.
func (g *GenerateMigrations) Files() []string {
	return append([]string(nil), g.written...)
}

// SyncTables applies every table change directly to its database and
// marks the tables as synchronized.
type SyncTables struct {
	Databases Databases
	Logger    zerolog.Logger
}

func (g *SyncTables) Run(ctx context.Context, r *registry.Registry) (*registry.Registry, error) {
	changes := Changes(r)
	var order []string
	byDatabase := make(map[string][]Change)
	for _, c := range changes {
		if _, ok := byDatabase[c.Database]; !ok {
			order = append(order, c.Database)
		}
		byDatabase[c.Database] = append(byDatabase[c.Database], c)
	}

	for _, name := range order {
		db, err := g.Databases.Database(ctx, name)
		if err != nil {
			return nil, err
		}
		group := byDatabase[name]
		stmts := Up(db.Dialect, group)
		if err := execAll(ctx, db.DB, stmts); err != nil {
			return nil, fmt.Errorf("synchronizing database %s: %w", name, err)
		}
		for _, c := range group {
			c.Table.Commit()
		}
		g.Logger.Info().Str("database", name).Int("tables", len(group)).Int("statements", len(stmts)).Msg("tables synchronized")
	}
	return r, nil
}

var errNoDatabases = errors.New("no databases configured")
