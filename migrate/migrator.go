package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	atlas "ariga.io/atlas/sql/migrate"
	"github.com/rs/zerolog"

	"github.com/ridoystarlord/ormschema/database"
	"github.com/ridoystarlord/ormschema/dialect"
	"github.com/ridoystarlord/ormschema/schema"
)

// DefaultTable records executed migrations.
const DefaultTable = "migrations"

// Databases gives access to named databases.
type Databases interface {
	Default() string
	Database(ctx context.Context, name string) (*database.Database, error)
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusExecuted Status = "executed"
)

// Migration is a migration file together with its execution state.
type Migration struct {
	Version     string
	Name        string
	Database    string
	Description string
	CreatedAt   time.Time
	ExecutedAt  time.Time
	Status      Status
	// Modified is set on executed migrations whose file changed since.
	Modified bool

	file     File
	checksum string
}

// Migrator executes migration files of a directory. Executed migrations
// are recorded in a table of the default database.
type Migrator struct {
	dir    *atlas.LocalDir
	dbs    Databases
	table  string
	logger zerolog.Logger
}

func NewMigrator(dir *atlas.LocalDir, dbs Databases, table string, logger zerolog.Logger) *Migrator {
	if table == "" {
		table = DefaultTable
	}
	return &Migrator{dir: dir, dbs: dbs, table: table, logger: logger}
}

func (m *Migrator) records(ctx context.Context) (*database.Database, error) {
	if m.dbs == nil {
		return nil, errNoDatabases
	}
	return m.dbs.Database(ctx, m.dbs.Default())
}

// IsConfigured reports whether the migrations table exists.
func (m *Migrator) IsConfigured(ctx context.Context) (bool, error) {
	db, err := m.records(ctx)
	if err != nil {
		return false, err
	}
	return db.Inspector.HasTable(ctx, m.table)
}

// Configure creates the migrations table when needed.
func (m *Migrator) Configure(ctx context.Context) error {
	db, err := m.records(ctx)
	if err != nil {
		return err
	}
	ok, err := db.Inspector.HasTable(ctx, m.table)
	if err != nil || ok {
		return err
	}

	var state schema.State
	for _, c := range []struct {
		name string
		size int
	}{{"version", 64}, {"migration", 255}, {"checksum", 64}, {"executed_at", 32}} {
		col, err := db.Dialect.Column(c.name, dialect.Type{Abstract: dialect.TypeString, Size: c.size})
		if err != nil {
			return err
		}
		state.Columns = append(state.Columns, col)
	}
	state.PrimaryKeys = []string{"version"}

	if err := execAll(ctx, db.DB, db.Dialect.CreateTable(m.table, state)); err != nil {
		return fmt.Errorf("failed to create %s table: %w", m.table, err)
	}
	m.logger.Info().Str("table", m.table).Str("database", db.Name).Msg("migrations table created")
	return nil
}

type record struct {
	checksum   string
	executedAt time.Time
}

func (m *Migrator) executed(ctx context.Context, db *database.Database) (map[string]record, error) {
	rows, err := db.DB.QueryContext(ctx, fmt.Sprintf("SELECT version, checksum, executed_at FROM %s", db.Dialect.Quote(m.table)))
	if err != nil {
		return nil, fmt.Errorf("query executed migrations: %w", err)
	}
	defer rows.Close()

	out := make(map[string]record)
	for rows.Next() {
		var version, checksum, executedAt string
		if err := rows.Scan(&version, &checksum, &executedAt); err != nil {
			return nil, fmt.Errorf("scan migration record: %w", err)
		}
		t, _ := time.Parse(time.DateTime, executedAt)
		out[version] = record{checksum: checksum, executedAt: t}
	}
	return out, rows.Err()
}

// Migrations returns every migration of the directory, ordered by version.
func (m *Migrator) Migrations(ctx context.Context) ([]Migration, error) {
	db, err := m.records(ctx)
	if err != nil {
		return nil, err
	}
	executed, err := m.executed(ctx, db)
	if err != nil {
		return nil, err
	}
	files, err := m.dir.Files()
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	sum, err := m.dir.Checksum()
	if err != nil {
		return nil, err
	}

	out := make([]Migration, 0, len(files))
	for _, f := range files {
		pf, err := ParseFile(f.Name(), f.Bytes())
		if err != nil {
			return nil, err
		}
		if pf.Database == "" {
			pf.Database = m.dbs.Default()
		}
		checksum, _ := sum.SumByName(f.Name())
		mig := Migration{
			Version:     f.Version(),
			Name:        f.Name(),
			Database:    pf.Database,
			Description: pf.Description,
			CreatedAt:   versionTime(f.Version()),
			Status:      StatusPending,
			file:        pf,
			checksum:    checksum,
		}
		if rec, ok := executed[mig.Version]; ok {
			mig.Status = StatusExecuted
			mig.ExecutedAt = rec.executedAt
			mig.Modified = rec.checksum != checksum
		}
		out = append(out, mig)
	}
	return out, nil
}

// Run executes the first pending migration. It returns nil when nothing is
// pending.
func (m *Migrator) Run(ctx context.Context) (*Migration, error) {
	if err := atlas.Validate(m.dir); err != nil {
		return nil, fmt.Errorf("validating migrations folder: %w", err)
	}
	migrations, err := m.Migrations(ctx)
	if err != nil {
		return nil, err
	}
	for i := range migrations {
		mig := &migrations[i]
		if mig.Status != StatusPending {
			continue
		}
		if err := m.apply(ctx, mig.Database, mig.file.Up); err != nil {
			return nil, fmt.Errorf("executing migration %s: %w", mig.Name, err)
		}

		records, err := m.records(ctx)
		if err != nil {
			return nil, err
		}
		now := time.Now().UTC()
		_, err = records.DB.ExecContext(ctx, fmt.Sprintf(
			"INSERT INTO %s (version, migration, checksum, executed_at) VALUES (%s, %s, %s, %s)",
			records.Dialect.Quote(m.table),
			placeholder(records.Dialect, 1), placeholder(records.Dialect, 2),
			placeholder(records.Dialect, 3), placeholder(records.Dialect, 4),
		), mig.Version, mig.Name, mig.checksum, now.Format(time.DateTime))
		if err != nil {
			return nil, fmt.Errorf("recording migration %s: %w", mig.Name, err)
		}

		mig.Status = StatusExecuted
		mig.ExecutedAt = now.Truncate(time.Second)
		m.logger.Info().Str("migration", mig.Name).Msg("migration executed")
		return mig, nil
	}
	return nil, nil
}

// Rollback reverts the last executed migration. It returns nil when no
// migration was executed.
func (m *Migrator) Rollback(ctx context.Context) (*Migration, error) {
	migrations, err := m.Migrations(ctx)
	if err != nil {
		return nil, err
	}
	for i := len(migrations) - 1; i >= 0; i-- {
		mig := &migrations[i]
		if mig.Status != StatusExecuted {
			continue
		}
		if err := m.apply(ctx, mig.Database, mig.file.Down); err != nil {
			return nil, fmt.Errorf("executing rollback for %s: %w", mig.Name, err)
		}

		records, err := m.records(ctx)
		if err != nil {
			return nil, err
		}
		_, err = records.DB.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE version = %s",
			records.Dialect.Quote(m.table), placeholder(records.Dialect, 1)), mig.Version)
		if err != nil {
			return nil, fmt.Errorf("removing migration record for %s: %w", mig.Name, err)
		}

		mig.Status = StatusPending
		mig.ExecutedAt = time.Time{}
		m.logger.Info().Str("migration", mig.Name).Msg("migration rolled back")
		return mig, nil
	}
	return nil, nil
}

func (m *Migrator) apply(ctx context.Context, name string, stmts []string) error {
	db, err := m.dbs.Database(ctx, name)
	if err != nil {
		return err
	}
	return execAll(ctx, db.DB, stmts)
}

// execAll runs statements in one transaction.
func execAll(ctx context.Context, db *sql.DB, stmts []string) error {
	if len(stmts) == 0 {
		return nil
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("%w\n  in: %s", err, stmt)
		}
	}
	return tx.Commit()
}

func placeholder(d dialect.Dialect, n int) string {
	if d.Name() == dialect.Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func versionTime(version string) time.Time {
	if len(version) < 14 {
		return time.Time{}
	}
	t, err := time.Parse("20060102150405", version[:14])
	if err != nil {
		return time.Time{}
	}
	return t
}
