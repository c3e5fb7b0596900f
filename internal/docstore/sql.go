package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/loveeagles/planner/internal/logger"
)

// Dialect names the SQL backend behind a SQLStore.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// SQLStore is a Store backed by SQLite (embedded, WAL mode) or PostgreSQL.
//
// Every document lives in a single documents table keyed by (path, id).
// The seq column is assigned on first insert and preserved on update, which
// is what gives List its arrival order.
type SQLStore struct {
	db      *sqlx.DB
	dialect Dialect
	file    string // SQLite file; empty for PostgreSQL
	logger  *log.Logger
	hub     *hub

	// writeMu serializes commit + publish so the change feed sees commits
	// in order.
	writeMu sync.Mutex
	// version is the last store_meta version this process wrote or observed.
	version atomic.Int64
	closed  atomic.Bool
}

// Open opens the store described by dsn. A dsn starting with postgres:// or
// postgresql:// selects PostgreSQL; anything else is a SQLite file path.
//
// The schema is created if missing. The caller MUST call Close.
func Open(dsn string, l *log.Logger) (*SQLStore, error) {
	return OpenContext(context.Background(), dsn, l)
}

// OpenContext opens the store with context support.
func OpenContext(ctx context.Context, dsn string, l *log.Logger) (*SQLStore, error) {
	l = logger.Named(l, "docstore")

	var (
		s   *SQLStore
		err error
	)
	if isPostgresDSN(dsn) {
		s, err = openPostgres(ctx, dsn)
	} else {
		s, err = openSQLite(ctx, dsn)
	}
	if err != nil {
		return nil, err
	}
	s.logger = l
	s.hub = newHub(l)

	if err := s.initSchema(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	v, err := s.readVersion(ctx)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.version.Store(v)

	l.Debug("store opened", "dialect", s.dialect, "file", s.file)
	return s, nil
}

func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func openSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// busy_timeout goes in the DSN so every pooled connection gets it.
	db, err := sqlx.Open("sqlite3", "file:"+path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pragmas := []struct{ stmt, what string }{
		{"PRAGMA journal_mode=WAL", "enable WAL mode"},
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p.stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to %s: %w", p.what, err)
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &SQLStore{db: db, dialect: DialectSQLite, file: abs}, nil
}

func openPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &SQLStore{db: db, dialect: DialectPostgres}, nil
}

func (s *SQLStore) schema() []string {
	seq := "seq INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.dialect == DialectPostgres {
		seq = "seq BIGSERIAL PRIMARY KEY"
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS documents (
			` + seq + `,
			path TEXT NOT NULL,
			id TEXT NOT NULL,
			data TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			UNIQUE (path, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_path ON documents(path, seq)`,
		`CREATE TABLE IF NOT EXISTS store_meta (
			key TEXT PRIMARY KEY,
			value BIGINT NOT NULL
		)`,
		`INSERT INTO store_meta (key, value) VALUES ('version', 0)
			ON CONFLICT (key) DO NOTHING`,
	}
}

// initSchema is idempotent.
func (s *SQLStore) initSchema(ctx context.Context) error {
	for _, stmt := range s.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// Dialect returns the backend in use.
func (s *SQLStore) Dialect() Dialect {
	return s.dialect
}

// File returns the SQLite database file, or "" for PostgreSQL.
func (s *SQLStore) File() string {
	return s.file
}

// DB returns the underlying connection pool.
func (s *SQLStore) DB() *sqlx.DB {
	return s.db
}

func (s *SQLStore) checkOpen(path Path) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := path.Validate(); err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	return nil
}

// Set upserts value at (path, id). The stored record carries id under "id".
func (s *SQLStore) Set(ctx context.Context, path Path, id string, value Record) error {
	if err := s.checkOpen(path); err != nil {
		return err
	}
	if id == "" {
		return errors.New("document id is required")
	}

	doc := value.Clone()
	if doc == nil {
		doc = Record{}
	}
	doc["id"] = id
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document %s/%s: %w", path, id, err)
	}

	query := s.db.Rebind(`
	INSERT INTO documents (path, id, data, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (path, id) DO UPDATE SET
		data = excluded.data,
		updated_at = excluded.updated_at
	`)

	return s.write(ctx, Change{Path: path, ID: id, Op: OpSet}, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query, path.String(), id, string(data), time.Now().UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("failed to upsert document %s/%s: %w", path, id, err)
		}
		return nil
	})
}

// Delete removes the document at (path, id).
// Returns nil if the document doesn't exist (idempotent).
func (s *SQLStore) Delete(ctx context.Context, path Path, id string) error {
	if err := s.checkOpen(path); err != nil {
		return err
	}
	query := s.db.Rebind(`DELETE FROM documents WHERE path = ? AND id = ?`)
	return s.write(ctx, Change{Path: path, ID: id, Op: OpDelete}, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, query, path.String(), id); err != nil {
			return fmt.Errorf("failed to delete document %s/%s: %w", path, id, err)
		}
		return nil
	})
}

// write runs fn and bumps the store version in one transaction, then
// announces c on the change feed.
func (s *SQLStore) write(ctx context.Context, c Change, fn func(tx *sqlx.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	var v int64
	bump := s.db.Rebind(`UPDATE store_meta SET value = value + 1 WHERE key = 'version' RETURNING value`)
	if err := tx.GetContext(ctx, &v, bump); err != nil {
		return fmt.Errorf("failed to bump store version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.version.Store(v)
	s.hub.publish(c)
	return nil
}

// Get returns the document at (path, id) or ErrNotFound.
func (s *SQLStore) Get(ctx context.Context, path Path, id string) (Record, error) {
	if err := s.checkOpen(path); err != nil {
		return nil, err
	}

	var data string
	query := s.db.Rebind(`SELECT data FROM documents WHERE path = ? AND id = ?`)
	err := s.db.GetContext(ctx, &data, query, path.String(), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s/%s: %w", path, id, err)
	}
	return decodeRecord(id, data)
}

type documentRow struct {
	ID   string `db:"id"`
	Data string `db:"data"`
}

// List returns the documents under path in arrival order.
func (s *SQLStore) List(ctx context.Context, path Path) ([]Record, error) {
	if err := s.checkOpen(path); err != nil {
		return nil, err
	}

	var rows []documentRow
	query := s.db.Rebind(`SELECT id, data FROM documents WHERE path = ? ORDER BY seq`)
	if err := s.db.SelectContext(ctx, &rows, query, path.String()); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", path, err)
	}

	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		r, err := decodeRecord(row.ID, row.Data)
		if err != nil {
			// One bad row must not hide the rest of the collection.
			s.logger.Warn("skipping undecodable document", "path", path, "id", row.ID, "err", err)
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Paths returns every path that currently holds at least one document.
func (s *SQLStore) Paths(ctx context.Context) ([]Path, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	var raw []string
	if err := s.db.SelectContext(ctx, &raw, `SELECT DISTINCT path FROM documents ORDER BY path`); err != nil {
		return nil, fmt.Errorf("failed to list paths: %w", err)
	}
	paths := make([]Path, 0, len(raw))
	for _, r := range raw {
		p, err := ParsePath(r)
		if err != nil {
			s.logger.Warn("skipping invalid path", "path", r, "err", err)
			continue
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func decodeRecord(id, data string) (Record, error) {
	var r Record
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", id, err)
	}
	if r == nil {
		r = Record{}
	}
	r["id"] = id
	return r, nil
}

// Subscribe registers fn for changes under path. fn runs on the store's
// dispatch goroutine and must not call the returned cancel func.
func (s *SQLStore) Subscribe(path Path, fn func(Change)) (cancel func()) {
	return s.hub.subscribe(path, fn)
}

func (s *SQLStore) readVersion(ctx context.Context) (int64, error) {
	var v int64
	if err := s.db.GetContext(ctx, &v, `SELECT value FROM store_meta WHERE key = 'version'`); err != nil {
		return 0, fmt.Errorf("failed to read store version: %w", err)
	}
	return v, nil
}

// Refresh checks whether another process has committed since the last
// write or refresh seen by this store and, if so, announces an OpExternal
// change. It reports whether a change was announced.
func (s *SQLStore) Refresh(ctx context.Context) (bool, error) {
	if s.closed.Load() {
		return false, ErrClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	v, err := s.readVersion(ctx)
	if err != nil {
		return false, err
	}
	if v == s.version.Load() {
		return false, nil
	}
	s.version.Store(v)
	s.logger.Debug("external change detected", "version", v)
	s.hub.publish(Change{Op: OpExternal})
	return true, nil
}

// Close stops the change feed and closes the database.
// For SQLite a WAL checkpoint is attempted first.
func (s *SQLStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.hub != nil {
		s.hub.close()
	}

	if s.dialect == DialectSQLite {
		if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil && s.logger != nil {
			s.logger.Warn("failed to checkpoint WAL", "err", err)
		}
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
