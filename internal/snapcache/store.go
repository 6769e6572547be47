// Package snapcache persists workspace snapshots in SQLite so stateless
// transports can rebuild a TTL-expired registry without refetching the
// workspace when the upstream snapshot is still fresh.
//
// The cache is best-effort: every read degrades to a miss, and the
// read-through provider falls back to the wrapped fetch on any error.
package snapcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/linctx/linctx/internal/workspace"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// ErrMiss reports that no fresh snapshot is cached.
var ErrMiss = fmt.Errorf("snapcache: miss")

// Config holds snapshot cache configuration.
type Config struct {
	DataDir string

	// MaxAge bounds how stale a cached snapshot may be before Get
	// reports a miss.
	MaxAge time.Duration
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir: filepath.Join(home, ".linctx"),
		MaxAge:  10 * time.Minute,
	}
}

// Store is the snapshot cache backed by SQLite.
type Store struct {
	db  *sql.DB
	cfg Config
}

// New opens (or creates) the cache database and runs migrations.
func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("snapcache: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "snapshots.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("snapcache: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("snapcache: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("snapcache: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS snapshots (
			id         TEXT PRIMARY KEY,
			workspace  TEXT NOT NULL,
			payload    TEXT NOT NULL,
			fetched_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_snap_workspace ON snapshots(workspace, fetched_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Put stores a snapshot for a workspace. Older rows for the same
// workspace are removed — only the latest snapshot is ever read.
func (s *Store) Put(workspaceName string, snap *workspace.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("snapcache: marshal snapshot: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("snapcache: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM snapshots WHERE workspace = ?`, workspaceName); err != nil {
		return fmt.Errorf("snapcache: prune workspace rows: %w", err)
	}
	_, err = tx.Exec(
		`INSERT INTO snapshots (id, workspace, payload, fetched_at) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), workspaceName, string(payload), snap.FetchedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("snapcache: insert snapshot: %w", err)
	}
	return tx.Commit()
}

// Get returns the latest cached snapshot for a workspace, or ErrMiss if
// none exists or the newest one is older than MaxAge.
func (s *Store) Get(workspaceName string) (*workspace.Snapshot, error) {
	var payload, fetchedAt string
	err := s.db.QueryRow(
		`SELECT payload, fetched_at FROM snapshots WHERE workspace = ? ORDER BY fetched_at DESC LIMIT 1`,
		workspaceName,
	).Scan(&payload, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("snapcache: query snapshot: %w", err)
	}

	ts, err := time.Parse(time.RFC3339, fetchedAt)
	if err != nil || (s.cfg.MaxAge > 0 && time.Since(ts) > s.cfg.MaxAge) {
		return nil, ErrMiss
	}

	var snap workspace.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, fmt.Errorf("snapcache: unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Prune removes all snapshots older than MaxAge.
func (s *Store) Prune() (int, error) {
	if s.cfg.MaxAge <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-s.cfg.MaxAge).UTC().Format(time.RFC3339)
	res, err := s.db.Exec(`DELETE FROM snapshots WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("snapcache: prune: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Provider wraps a workspace.Provider with read-through snapshot
// caching. Issue listing and mutations pass through untouched.
type Provider struct {
	workspace.Provider
	store         *Store
	workspaceName string
}

// Wrap builds a caching provider. workspaceName keys the cache rows.
func Wrap(inner workspace.Provider, store *Store, workspaceName string) *Provider {
	return &Provider{Provider: inner, store: store, workspaceName: workspaceName}
}

// FetchSnapshot serves from cache when fresh, otherwise fetches and
// caches. Cache failures degrade to a plain fetch.
func (p *Provider) FetchSnapshot(ctx context.Context) (*workspace.Snapshot, error) {
	if snap, err := p.store.Get(p.workspaceName); err == nil {
		return snap, nil
	}

	snap, err := p.Provider.FetchSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	if putErr := p.store.Put(p.workspaceName, snap); putErr != nil {
		// Cache write failure is not a fetch failure.
		return snap, nil
	}
	return snap, nil
}
