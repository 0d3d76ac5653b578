package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"slices"
	"strconv"

	"go.uber.org/zap"
)

// Migrations holds the schema shipped with the binary
//
//go:embed migrations/*.sql
var Migrations embed.FS

// migrationFile matches "001_upload_records.sql".
var migrationFile = regexp.MustCompile(`^(\d+)_([A-Za-z0-9_]+)\.sql$`)

// Migration is one versioned schema step.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrator applies Migration files and records them in schema_migrations.
type Migrator struct {
	db     *DB
	logger *zap.Logger
}

func NewMigrator(db *DB, logger *zap.Logger) *Migrator {
	return &Migrator{db: db, logger: logger}
}

const schemaMigrationsDDL = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
)`

// RunMigrations applies every migration in fsys that has not been recorded
// yet, in version order, each in its own transaction. fsys is usually
// Migrations or an os.DirFS.
func (m *Migrator) RunMigrations(ctx context.Context, fsys fs.FS) error {
	pending, err := m.Pending(ctx, fsys)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		m.logger.Debug("Schema is up to date")
		return nil
	}

	for _, mig := range pending {
		m.logger.Info("Applying migration", zap.Int("version", mig.Version), zap.String("name", mig.Name))
		if err := m.apply(ctx, mig); err != nil {
			return fmt.Errorf("migration %03d_%s: %w", mig.Version, mig.Name, err)
		}
	}

	m.logger.Info("Migrations applied", zap.Int("count", len(pending)))
	return nil
}

// Pending lists the migrations in fsys that have not been applied.
func (m *Migrator) Pending(ctx context.Context, fsys fs.FS) ([]Migration, error) {
	if _, err := m.db.ExecContext(ctx, schemaMigrationsDDL); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	all, err := ReadMigrations(fsys)
	if err != nil {
		return nil, err
	}

	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	return slices.DeleteFunc(all, func(mig Migration) bool {
		_, done := applied[mig.Version]
		return done
	}), nil
}

// Version returns the highest applied version, 0 for a fresh database.
func (m *Migrator) Version(ctx context.Context) (int, error) {
	var v sql.NullInt64
	if err := m.db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return int(v.Int64), nil
}

func (m *Migrator) applied(ctx context.Context) (map[int]struct{}, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()

	done := make(map[int]struct{})
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		done[v] = struct{}{}
	}
	return done, rows.Err()
}

func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	return m.db.WithTx(ctx, nil, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, mig.SQL); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, name) VALUES (?, ?)", mig.Version, mig.Name)
		return err
	})
}

// ReadMigrations loads every *.sql file under fsys sorted by version.
// Two files claiming the same version are an error.
func ReadMigrations(fsys fs.FS) ([]Migration, error) {
	var out []Migration
	seen := make(map[int]string)

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".sql" {
			return nil
		}

		base := path.Base(p)
		match := migrationFile.FindStringSubmatch(base)
		if match == nil {
			return fmt.Errorf("invalid migration filename %q: want NNN_name.sql", base)
		}
		version, err := strconv.Atoi(match[1])
		if err != nil {
			return fmt.Errorf("invalid migration filename %q: %w", base, err)
		}
		if prev, dup := seen[version]; dup {
			return fmt.Errorf("migration version %d used by both %s and %s", version, prev, base)
		}
		seen[version] = base

		body, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		out = append(out, Migration{Version: version, Name: match[2], SQL: string(body)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(out, func(a, b Migration) int { return a.Version - b.Version })
	return out, nil
}
