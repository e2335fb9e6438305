package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	atlas "ariga.io/atlas/sql/migrate"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/ormschema/cache"
	"github.com/ridoystarlord/ormschema/compiler"
	"github.com/ridoystarlord/ormschema/config"
	"github.com/ridoystarlord/ormschema/database"
	"github.com/ridoystarlord/ormschema/factory"
	"github.com/ridoystarlord/ormschema/generator"
	"github.com/ridoystarlord/ormschema/loader"
	"github.com/ridoystarlord/ormschema/migrate"
)

// RefSyncTables names the generator applying changes directly.
const RefSyncTables generator.Ref = "sync-tables"

// app holds what a command run needs: configuration, logger and the
// database connections, opened lazily.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	dbs    *database.Manager
	closer []func()
}

var current *app

// load returns the app of the running command, loading configuration on
// first use.
func load(cmd *cobra.Command) (*app, error) {
	if current != nil {
		return current, nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	logger := newLogger(cmd.ErrOrStderr(), level)
	current = &app{
		cfg:    cfg,
		logger: logger,
		dbs:    database.NewManager(cfg.Databases, cfg.DefaultDatabase, logger),
	}
	return current, nil
}

func closeApp() {
	if current == nil {
		return
	}
	for _, fn := range current.closer {
		fn()
	}
	current.dbs.Close()
	current = nil
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(lvl).
		With().Timestamp().
		Logger()
}

func (a *app) source() loader.Source {
	var sources loader.Sources
	if len(a.cfg.Entities.Files) > 0 {
		sources = append(sources, loader.YAMLSource{Files: a.cfg.Entities.Files})
	}
	if a.cfg.Entities.Models != "" {
		sources = append(sources, loader.TagSource{Dir: a.cfg.Entities.Models})
	}
	return sources
}

func (a *app) catalog() *generator.Catalog {
	return generator.Builtins(generator.Deps{Source: a.source(), Dialects: a.dbs, Logger: a.logger}).
		Register(RefSyncTables, func() (generator.Generator, error) {
			return &migrate.SyncTables{Databases: a.dbs, Logger: a.logger}, nil
		})
}

// queue returns the configured generator pipeline.
func (a *app) queue() (generator.Queue, error) {
	return generator.Build(a.catalog(), a.cfg.Schema.Generators)
}

func (a *app) compiler() *compiler.Compiler {
	return compiler.New(a.dbs, a.dbs.Default(), a.logger)
}

// cache returns the configured cache manager, nil when caching is disabled.
func (a *app) cache(ctx context.Context) (*cache.Manager, error) {
	c := a.cfg.Schema.Cache
	switch c.Store {
	case config.StoreMemory:
		return cache.NewManager(cache.NewMemoryStore()), nil
	case config.StoreFile:
		return cache.NewManager(cache.FileStore{Dir: c.Path}), nil
	case config.StoreRedis:
		client, err := cache.OpenRedis(ctx, c.Redis)
		if err != nil {
			return nil, err
		}
		a.closer = append(a.closer, func() { client.Close() })
		return cache.NewManager(cache.NewRedisStore(client, c.Prefix, c.TTL)), nil
	}
	return nil, nil
}

func (a *app) factory(ctx context.Context) (*factory.Factory, error) {
	cm, err := a.cache(ctx)
	if err != nil {
		return nil, err
	}
	q, err := a.queue()
	if err != nil {
		return nil, err
	}
	return factory.New(cm, a.cfg.Schema.Map, a.compiler(), q, a.logger), nil
}

func (a *app) migrationsDir() (*atlas.LocalDir, error) {
	return migrate.OpenDir(a.cfg.Migrations.Directory)
}

func (a *app) migrator() (*migrate.Migrator, error) {
	dir, err := a.migrationsDir()
	if err != nil {
		return nil, err
	}
	return migrate.NewMigrator(dir, a.dbs, a.cfg.Migrations.Table, a.logger), nil
}

// confirm asks before touching the database, unless forced or the
// environment is configured as safe.
func (a *app) confirm(cmd *cobra.Command, force bool) bool {
	if force || a.cfg.Migrations.Safe {
		return true
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Confirmation is required to run migrations!")
	fmt.Fprint(out, "Would you like to continue? [y/N] ")

	answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	fmt.Fprintln(out, "Cancelling operation...")
	return false
}
