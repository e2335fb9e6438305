// Package config loads the project configuration from ormschema.yaml, a
// .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ridoystarlord/ormschema/compiler"
	"github.com/ridoystarlord/ormschema/database"
	"github.com/ridoystarlord/ormschema/dialect"
	"github.com/ridoystarlord/ormschema/generator"
)

// DefaultFile is read when no path is given.
const DefaultFile = "ormschema.yaml"

// Cache stores.
const (
	StoreNone   = "none"
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

type Config struct {
	Databases       map[string]database.Config `yaml:"databases"`
	DefaultDatabase string                     `yaml:"default_database"`
	Schema          SchemaConfig               `yaml:"schema"`
	Entities        EntitiesConfig             `yaml:"entities"`
	Migrations      MigrationsConfig           `yaml:"migrations"`
	Logging         LoggingConfig              `yaml:"logging"`
}

type SchemaConfig struct {
	Cache CacheConfig `yaml:"cache"`
	// Map is a manually defined schema used instead of compiling entities.
	// Absent means none; an empty map is a valid, empty schema.
	Map compiler.Schema `yaml:"map"`
	// Generators replaces the default pipeline, group name to generator names.
	Generators map[string][]string `yaml:"generators"`
}

type CacheConfig struct {
	Store  string        `yaml:"store"` // none, memory, file, redis
	Path   string        `yaml:"path"`  // file store directory
	Redis  string        `yaml:"redis"` // redis URL
	Prefix string        `yaml:"prefix"`
	TTL    time.Duration `yaml:"ttl"`
}

type EntitiesConfig struct {
	Files  []string `yaml:"files"`  // YAML entity documents
	Models string   `yaml:"models"` // directory of tagged Go structs
}

type MigrationsConfig struct {
	Directory string `yaml:"directory"`
	Table     string `yaml:"table"`
	// Safe skips confirmation prompts.
	Safe bool `yaml:"safe"`
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Load reads configuration from path, DefaultFile when empty. A missing
// default file is not an error: configuration then comes from defaults and
// the environment.
func Load(path string) (*Config, error) {
	// a missing .env file is fine
	_ = godotenv.Load()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := Parse(data, &cfg); err != nil {
			return nil, err
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// Parse decodes a configuration document after expanding environment
// variables.
func Parse(data []byte, cfg *Config) error {
	data = []byte(os.ExpandEnv(string(data)))
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies ORMSCHEMA_* variables. DATABASE_URL configures
// the default database when the file declares none.
func applyEnvOverrides(cfg *Config) {
	if len(cfg.Databases) == 0 {
		if url := os.Getenv("DATABASE_URL"); url != "" {
			cfg.Databases = map[string]database.Config{
				"default": fromURL(url),
			}
		}
	}
	if v := os.Getenv("ORMSCHEMA_DEFAULT_DATABASE"); v != "" {
		cfg.DefaultDatabase = v
	}
	if v := os.Getenv("ORMSCHEMA_MIGRATIONS_DIR"); v != "" {
		cfg.Migrations.Directory = v
	}
	if v := os.Getenv("ORMSCHEMA_CACHE_STORE"); v != "" {
		cfg.Schema.Cache.Store = v
	}
	if v := os.Getenv("ORMSCHEMA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.DefaultDatabase == "" {
		if _, ok := cfg.Databases["default"]; ok || len(cfg.Databases) != 1 {
			cfg.DefaultDatabase = "default"
		} else {
			for name := range cfg.Databases {
				cfg.DefaultDatabase = name
			}
		}
	}
	if cfg.Schema.Cache.Store == "" {
		cfg.Schema.Cache.Store = StoreFile
	}
	if cfg.Schema.Cache.Path == "" {
		cfg.Schema.Cache.Path = ".ormschema/cache"
	}
	if cfg.Schema.Cache.Prefix == "" {
		cfg.Schema.Cache.Prefix = "ormschema:"
	}
	if cfg.Schema.Generators == nil {
		cfg.Schema.Generators = generator.Defaults()
	}
	if len(cfg.Entities.Files) == 0 && cfg.Entities.Models == "" {
		cfg.Entities.Files = []string{"entities.yaml"}
	}
	if cfg.Migrations.Directory == "" {
		cfg.Migrations.Directory = "migrations"
	}
	if cfg.Migrations.Table == "" {
		cfg.Migrations.Table = "migrations"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "warn"
	}
}

func validate(cfg *Config) error {
	for name, db := range cfg.Databases {
		if _, err := dialect.Get(db.Driver); err != nil {
			return fmt.Errorf("database %s: %w", name, err)
		}
	}
	if len(cfg.Databases) > 0 {
		if _, ok := cfg.Databases[cfg.DefaultDatabase]; !ok {
			return fmt.Errorf("default database %q is not configured", cfg.DefaultDatabase)
		}
	}

	switch cfg.Schema.Cache.Store {
	case StoreNone, StoreMemory, StoreFile:
	case StoreRedis:
		if cfg.Schema.Cache.Redis == "" {
			return errors.New("schema cache: redis store requires a redis url")
		}
	default:
		return fmt.Errorf("schema cache: unknown store %q", cfg.Schema.Cache.Store)
	}

	for group := range cfg.Schema.Generators {
		if !generator.Group(group).Valid() {
			return &generator.InvalidGroupError{Group: generator.Group(group)}
		}
	}
	return nil
}

// fromURL builds a database config from a DATABASE_URL. The driver is
// taken from the scheme, postgres by default.
func fromURL(url string) database.Config {
	switch {
	case strings.HasPrefix(url, "mysql://"):
		return database.Config{Driver: dialect.MySQL, DSN: strings.TrimPrefix(url, "mysql://")}
	case strings.HasPrefix(url, "sqlite://"):
		return database.Config{Driver: dialect.SQLite, DSN: strings.TrimPrefix(url, "sqlite://")}
	case strings.HasPrefix(url, "file:"), strings.HasSuffix(url, ".db"), strings.HasSuffix(url, ".sqlite"):
		return database.Config{Driver: dialect.SQLite, DSN: url}
	}
	return database.Config{Driver: dialect.Postgres, DSN: url}
}
