package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/sadopc/tinynotes/internal/dates"
)

const currentVersion = 2

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var ErrNotFound = errors.New("not found")

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// rebind rewrites ? placeholders into the dialect's positional form.
func (d dialect) rebind(query string) string {
	if d != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Store is the persistence adapter. It translates tasks to and from rows and
// performs no business logic.
type Store struct {
	db      *sql.DB
	dialect dialect
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	return Open(DriverSQLite, dbPath)
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

// Open connects to driver ("sqlite" or "postgres") at dsn and runs migrations.
func Open(driver, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite:
		return openSQLite(dsn)
	case DriverPostgres:
		return openPostgres(dsn)
	}
	return nil, fmt.Errorf("unsupported driver %q", driver)
}

func openSQLite(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, dialect: dialectSQLite}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func openPostgres(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db, dialect: dialectPostgres}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) exec(query string, args ...any) (sql.Result, error) {
	return s.db.Exec(s.dialect.rebind(query), args...)
}

func (s *Store) schemaVersion() (int, error) {
	var version int
	if s.dialect == dialectSQLite {
		err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
		return version, err
	}
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return 0, err
	}
	err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	return version, err
}

func (s *Store) setSchemaVersion(version int) error {
	if s.dialect == dialectSQLite {
		_, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", version))
		return err
	}
	if _, err := s.db.Exec(`DELETE FROM schema_version`); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES ($1)`, version)
	return err
}

func (s *Store) migrate() error {
	version, err := s.schemaVersion()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}
	if version < 2 {
		if err := s.migrateV2(); err != nil {
			return err
		}
	}

	return s.setSchemaVersion(currentVersion)
}

func (s *Store) migrateV1() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			description TEXT,
			area        TEXT NOT NULL,
			date        TEXT,
			"order"     INTEGER NOT NULL DEFAULT 0,
			completed   INTEGER NOT NULL DEFAULT 0,
			color       TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_area ON tasks(area)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_date ON tasks(date)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`INSERT INTO settings (key, value) VALUES
			('snap_minutes',         '30'),
			('min_duration_minutes', '30'),
			('day_start_hour',       '6')
		ON CONFLICT (key) DO NOTHING`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate v1: %w", err)
		}
	}
	return nil
}

// migrateV2 adds scheduled times and gives timed tasks without an end a
// default half-hour slot.
func (s *Store) migrateV2() error {
	for _, stmt := range []string{
		`ALTER TABLE tasks ADD COLUMN time TEXT`,
		`ALTER TABLE tasks ADD COLUMN end_time TEXT`,
	} {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate v2: %w", err)
		}
	}
	return s.backfillEndTimes()
}

func (s *Store) backfillEndTimes() error {
	rows, err := s.db.Query(`SELECT id, time FROM tasks WHERE time IS NOT NULL AND end_time IS NULL`)
	if err != nil {
		return fmt.Errorf("backfill end times: %w", err)
	}
	type pending struct{ id, end string }
	var fill []pending
	for rows.Next() {
		var id, start string
		if err := rows.Scan(&id, &start); err != nil {
			rows.Close()
			return err
		}
		end, err := dates.AddMinutes(start, 30)
		if err != nil {
			continue
		}
		fill = append(fill, pending{id: id, end: end})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()
	for _, f := range fill {
		if _, err := s.exec(`UPDATE tasks SET end_time = ? WHERE id = ?`, f.end, f.id); err != nil {
			return fmt.Errorf("backfill end times: %w", err)
		}
	}
	return nil
}
