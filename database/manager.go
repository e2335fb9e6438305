// Package database manages the named database connections of a project and
// loads table structure from them.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/ridoystarlord/ormschema/dialect"
	"github.com/ridoystarlord/ormschema/introspect"
	"github.com/ridoystarlord/ormschema/schema"
)

// Config describes one named database.
type Config struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Database is an open connection with its dialect and inspector.
type Database struct {
	Name      string
	Dialect   dialect.Dialect
	DB        *sql.DB
	Inspector introspect.Inspector

	pool *pgxpool.Pool
}

// Manager opens configured databases on first use.
type Manager struct {
	mu          sync.Mutex
	configs     map[string]Config
	defaultName string
	open        map[string]*Database
	logger      zerolog.Logger
}

func NewManager(configs map[string]Config, defaultName string, logger zerolog.Logger) *Manager {
	if defaultName == "" && len(configs) == 1 {
		for name := range configs {
			defaultName = name
		}
	}
	return &Manager{
		configs:     configs,
		defaultName: defaultName,
		open:        make(map[string]*Database),
		logger:      logger,
	}
}

// Default returns the name used when no database is given.
func (m *Manager) Default() string { return m.defaultName }

// Names returns every configured or attached database name, sorted.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	var names []string
	for name := range m.configs {
		seen[name] = true
		names = append(names, name)
	}
	for name := range m.open {
		if !seen[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Attach registers an already open connection under name.
func (m *Manager) Attach(name, driver string, db *sql.DB) error {
	d, err := dialect.Get(driver)
	if err != nil {
		return err
	}
	ins, err := introspect.New(d, db)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open[name] = &Database{Name: name, Dialect: d, DB: db, Inspector: ins}
	return nil
}

// Database returns the named database, opening it when needed. An empty
// name selects the default database.
func (m *Manager) Database(ctx context.Context, name string) (*Database, error) {
	if name == "" {
		name = m.defaultName
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if db, ok := m.open[name]; ok {
		return db, nil
	}
	cfg, ok := m.configs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrDatabaseNotFound, name)
	}
	db, err := connect(ctx, name, cfg)
	if err != nil {
		return nil, err
	}
	m.logger.Debug().Str("database", name).Str("driver", db.Dialect.Name()).Msg("database connected")
	m.open[name] = db
	return db, nil
}

// Dialect returns the dialect of the named database.
func (m *Manager) Dialect(ctx context.Context, name string) (dialect.Dialect, error) {
	db, err := m.Database(ctx, name)
	if err != nil {
		return nil, err
	}
	return db.Dialect, nil
}

func connect(ctx context.Context, name string, cfg Config) (*Database, error) {
	d, err := dialect.Get(cfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("database %s: %w", name, err)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database %s: dsn not set", name)
	}

	out := &Database{Name: name, Dialect: d}
	switch d.Name() {
	case dialect.Postgres:
		out.pool, err = pgxpool.New(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("unable to create connection pool for %s: %w", name, err)
		}
		out.DB = stdlib.OpenDBFromPool(out.pool)
	case dialect.MySQL:
		mc, err := mysql.ParseDSN(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("parsing mysql dsn for %s: %w", name, err)
		}
		conn, err := mysql.NewConnector(mc)
		if err != nil {
			return nil, fmt.Errorf("creating mysql connector for %s: %w", name, err)
		}
		out.DB = sql.OpenDB(conn)
	case dialect.SQLite:
		out.DB, err = sql.Open("sqlite", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite database %s: %w", name, err)
		}
		// a single connection keeps in-memory databases alive and serializes writes
		out.DB.SetMaxOpenConns(1)
	}

	if err := out.DB.PingContext(ctx); err != nil {
		out.close()
		return nil, fmt.Errorf("unable to ping database %s: %w", name, err)
	}
	out.Inspector, err = introspect.New(d, out.DB)
	if err != nil {
		out.close()
		return nil, err
	}
	return out, nil
}

func (d *Database) close() error {
	err := d.DB.Close()
	if d.pool != nil {
		d.pool.Close()
	}
	return err
}

// LoadTable returns the schema of a table, loaded from the database when it
// exists and empty otherwise.
func (m *Manager) LoadTable(ctx context.Context, database, table string) (*schema.Table, error) {
	db, err := m.Database(ctx, database)
	if err != nil {
		return nil, err
	}
	exists, err := db.Inspector.HasTable(ctx, table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return schema.NewTable(db.Name, table), nil
	}
	state, err := db.Inspector.Table(ctx, table)
	if err != nil {
		return nil, err
	}
	m.logger.Debug().Str("database", db.Name).Str("table", table).Int("columns", len(state.Columns)).Msg("table loaded")
	return schema.LoadTable(db.Name, table, state), nil
}

// Table is like LoadTable but requires the table to exist.
func (m *Manager) Table(ctx context.Context, database, table string) (*schema.Table, error) {
	t, err := m.LoadTable(ctx, database, table)
	if err != nil {
		return nil, err
	}
	if !t.Exists() {
		return nil, &TableNotFoundError{Database: t.Database(), Table: table}
	}
	return t, nil
}

// Close closes every open connection.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var first error
	for name, db := range m.open {
		if err := db.close(); err != nil && first == nil {
			first = err
		}
		delete(m.open, name)
	}
	return first
}
