package store

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/teslashibe/go-posegame/internal/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store on a single SQLite table. Records are kept as
// the same JSON documents the file store writes.
type SQLiteStore struct {
	db  *sql.DB
	log *slog.Logger
}

// NewSQLiteStore opens (or creates) the database at path and applies pending
// migrations. Use ":memory:" for a throwaway store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &SQLiteStore{
		db:  db,
		log: log.Component("store").With("backend", "sqlite"),
	}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// migrateUp runs all pending migrations. No pending migrations is not an error.
func (s *SQLiteStore) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{log: s.log}

	// m is not closed: that would close the shared *sql.DB.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// SchemaVersion returns the applied migration version.
func (s *SQLiteStore) SchemaVersion() (uint, error) {
	var version uint
	err := s.db.QueryRow(`SELECT version FROM schema_migrations LIMIT 1`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// Put upserts a record.
func (s *SQLiteStore) Put(ns Namespace, key string, record any) error {
	key, err := normalizeKey(ns, key)
	if err != nil {
		return wrap("put", ns, key, err)
	}
	body, err := json.Marshal(record)
	if err != nil {
		return wrap("put", ns, key, fmt.Errorf("marshal: %w", err))
	}

	var routine sql.NullString
	var ts sql.NullInt64
	if ns == NamespaceResult {
		name, stamp, _ := SplitResultKey(key)
		routine = sql.NullString{String: name, Valid: true}
		ts = sql.NullInt64{Int64: stamp, Valid: true}
	}

	_, err = s.db.Exec(`
		INSERT INTO records (namespace, key, routine, ts, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (namespace, key) DO UPDATE SET
			routine = excluded.routine,
			ts = excluded.ts,
			body = excluded.body,
			updated_at = excluded.updated_at`,
		string(ns), key, routine, ts, string(body), time.Now().UnixMilli())
	if err != nil {
		return wrap("put", ns, key, err)
	}
	s.log.Debug("record saved", "namespace", ns, "key", key)
	return nil
}

// Get loads and decodes a record.
func (s *SQLiteStore) Get(ns Namespace, key string, into any) (bool, error) {
	key, err := normalizeKey(ns, key)
	if errors.Is(err, ErrBlankKey) {
		return false, nil
	}
	if err != nil {
		return false, wrap("get", ns, key, err)
	}

	var body string
	err = s.db.QueryRow(`SELECT body FROM records WHERE namespace = ? AND key = ?`, string(ns), key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrap("get", ns, key, err)
	}
	if err := json.Unmarshal([]byte(body), into); err != nil {
		return false, wrap("get", ns, key, fmt.Errorf("decode: %w", err))
	}
	return true, nil
}

// Delete removes a record.
func (s *SQLiteStore) Delete(ns Namespace, key string) (bool, error) {
	key, err := normalizeKey(ns, key)
	if errors.Is(err, ErrBlankKey) {
		return false, nil
	}
	if err != nil {
		return false, wrap("delete", ns, key, err)
	}

	res, err := s.db.Exec(`DELETE FROM records WHERE namespace = ? AND key = ?`, string(ns), key)
	if err != nil {
		return false, wrap("delete", ns, key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrap("delete", ns, key, err)
	}
	return n > 0, nil
}

// List returns the keys of a pose or routine namespace.
func (s *SQLiteStore) List(ns Namespace) ([]string, error) {
	if ns != NamespacePose && ns != NamespaceRoutine {
		return nil, wrap("list", ns, "", ErrUnknownNamespace)
	}

	rows, err := s.db.Query(`SELECT key FROM records WHERE namespace = ? ORDER BY key`, string(ns))
	if err != nil {
		return nil, wrap("list", ns, "", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, wrap("list", ns, "", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// ListResultTimestamps returns a routine's result timestamps, newest first.
func (s *SQLiteStore) ListResultTimestamps(routineName string) ([]int64, error) {
	routineName = CleanName(routineName)

	rows, err := s.db.Query(`
		SELECT ts FROM records
		WHERE namespace = ? AND routine = ?
		ORDER BY ts DESC`, string(NamespaceResult), routineName)
	if err != nil {
		return nil, wrap("list", NamespaceResult, routineName, err)
	}
	defer rows.Close()

	timestamps := []int64{}
	for rows.Next() {
		var ts int64
		if err := rows.Scan(&ts); err != nil {
			return nil, wrap("list", NamespaceResult, routineName, err)
		}
		timestamps = append(timestamps, ts)
	}
	return timestamps, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// migrateLogger implements migrate.Logger on top of slog.
type migrateLogger struct {
	log *slog.Logger
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.log.Debug(fmt.Sprintf("[migrate] "+format, v...))
}

func (l *migrateLogger) Verbose() bool {
	return false
}

var _ Store = (*SQLiteStore)(nil)
