package recording

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// SQLitePersister stores each recording as one row of a SQLite database.
// The database is opened for every Load and Save, so a persister can be
// shared by sessions without lifecycle management.
type SQLitePersister struct {
	Path string

	now func() time.Time
}

// NewSQLitePersister creates a persister backed by the database file at path.
func NewSQLitePersister(path string) *SQLitePersister {
	return &SQLitePersister{Path: path, now: time.Now}
}

type migration struct {
	Version int
	Name    string
	SQL     string
}

func sqliteMigrations() []migration {
	return []migration{
		{
			Version: 1,
			Name:    "create_recordings",
			SQL: `
CREATE TABLE IF NOT EXISTS recordings (
  name TEXT PRIMARY KEY,
  data TEXT NOT NULL,
  interactions INTEGER NOT NULL DEFAULT 0,
  updated_at TEXT NOT NULL
);
`,
		},
	}
}

// Load reads and validates the named recording.
func (p *SQLitePersister) Load(ctx context.Context, name string) (*Recording, error) {
	db, err := p.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording database: %w", err)
	}
	defer db.Close()

	var data string
	err = db.QueryRowContext(ctx, `SELECT data FROM recordings WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &RecordingNotFoundError{Name: name, Path: p.location(name)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read recording: %w", err)
	}

	rec, err := Unmarshal([]byte(data), p.location(name))
	if err != nil {
		return nil, err
	}
	if rec.Name == "" {
		rec.Name = name
	}
	return rec, nil
}

// Save replaces the named recording in a single statement.
func (p *SQLitePersister) Save(ctx context.Context, name string, rec *Recording) error {
	loc := p.location(name)
	data, err := Marshal(rec)
	if err != nil {
		return &PersistenceError{Op: "marshal", Path: loc, Err: err}
	}

	db, err := p.open(ctx)
	if err != nil {
		return &PersistenceError{Op: "open", Path: loc, Err: err}
	}
	defer db.Close()

	now := p.now
	if now == nil {
		now = time.Now
	}
	_, err = db.ExecContext(ctx, `
INSERT INTO recordings(name, data, interactions, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
  data = excluded.data,
  interactions = excluded.interactions,
  updated_at = excluded.updated_at`,
		name, string(data), len(rec.Interactions), now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return &PersistenceError{Op: "write", Path: loc, Err: err}
	}
	return nil
}

// Names lists the stored recording names in order.
func (p *SQLitePersister) Names(ctx context.Context) ([]string, error) {
	db, err := p.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording database: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT name FROM recordings ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (p *SQLitePersister) location(name string) string {
	return p.Path + "#" + name
}

func (p *SQLitePersister) open(ctx context.Context) (*sql.DB, error) {
	if p.Path == "" {
		return nil, errors.New("database path is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(p.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", p.Path)
	if err != nil {
		return nil, err
	}
	if err := migrate(ctx, db, sqliteMigrations()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrate(ctx context.Context, db *sql.DB, migrations []migration) error {
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  name TEXT NOT NULL,
  applied_at TEXT NOT NULL
);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		var applied int
		if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, m.Version).Scan(&applied); err != nil {
			return fmt.Errorf("migration %d: %w", m.Version, err)
		}
		if applied > 0 {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations(version, name, applied_at) VALUES (?, ?, ?)`,
			m.Version, m.Name, time.Now().UTC().Format(time.RFC3339Nano),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
	}
	return nil
}
