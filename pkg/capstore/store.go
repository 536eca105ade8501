// Package capstore persists host and domain capabilities between runs.
//
// Capabilities rarely change, while fetching them from a remote host can
// be slow. A Store keeps the XML documents in SQLite keyed by connection
// URI, and Wrap puts it in front of a connection.
package capstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// Kinds of cached documents.
const (
	KindCapabilities       = "capabilities"
	KindDomainCapabilities = "domcaps"
)

var errNotOpen = errors.New("capabilities cache not opened")

// Entry is one cached document.
type Entry struct {
	ID        string
	URI       string
	Kind      string
	Query     string
	XML       string
	FetchedAt time.Time
}

// Store is a SQLite backed capabilities cache.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens the cache database at path, creating it and its parent
// directory when missing. Use ":memory:" for a throwaway cache.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capabilities cache: %w", err)
	}
	// one connection keeps an in-memory database alive and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping capabilities cache: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure capabilities cache: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Get returns the cached XML for uri, kind and query. The boolean is false
// on a cache miss.
func (s *Store) Get(ctx context.Context, uri, kind, query string) (string, bool, error) {
	if s.db == nil {
		return "", false, errNotOpen
	}

	var xml string
	err := s.db.QueryRowContext(ctx,
		`SELECT xml FROM capabilities WHERE uri = ? AND kind = ? AND query = ?`,
		uri, kind, query,
	).Scan(&xml)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cached %s: %w", kind, err)
	}
	return xml, true, nil
}

// Put stores xml for uri, kind and query, replacing an older copy.
func (s *Store) Put(ctx context.Context, uri, kind, query, xml string) error {
	if s.db == nil {
		return errNotOpen
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO capabilities (id, uri, kind, query, xml, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (uri, kind, query) DO UPDATE SET
		   xml = excluded.xml,
		   fetched_at = excluded.fetched_at`,
		uuid.New().String(), uri, kind, query, xml, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to cache %s: %w", kind, err)
	}
	return nil
}

// Entries lists the cached documents of uri, oldest first.
func (s *Store) Entries(ctx context.Context, uri string) ([]Entry, error) {
	if s.db == nil {
		return nil, errNotOpen
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, uri, kind, query, xml, fetched_at FROM capabilities
		 WHERE uri = ? ORDER BY fetched_at, kind, query`,
		uri,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list cached capabilities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.URI, &e.Kind, &e.Query, &e.XML, &e.FetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cached capabilities: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Purge drops every cached document of uri and returns how many were removed.
func (s *Store) Purge(ctx context.Context, uri string) (int64, error) {
	if s.db == nil {
		return 0, errNotOpen
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM capabilities WHERE uri = ?`, uri)
	if err != nil {
		return 0, fmt.Errorf("failed to purge cached capabilities: %w", err)
	}
	return res.RowsAffected()
}
