// Package store implements schaltwerk's persistence layer: a single local
// SQLite database holding session metadata, git-stats snapshots, archived
// specs, and per-project/global configuration. All mutating methods route
// through a single in-process mutex, making the Store the one writer,
// regardless of how many goroutines call it concurrently; readers use the
// shared underlying *sql.DB connection pool directly.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/denisbrodbeck/machineid"
	_ "modernc.org/sqlite"

	"github.com/schaltwerk/schaltwerk/internal/apperrors"
	"github.com/schaltwerk/schaltwerk/internal/logging"
)

// Store is the persistence layer described by spec §4.A.
type Store struct {
	db      *sql.DB
	writeMu sync.Mutex
	path    string
}

// Open opens (creating if absent) the SQLite database at path, applies
// pending migrations, and returns a ready Store. path may be ":memory:" for
// tests.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("%s?_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, apperrors.IoFailure("opening sqlite database", err)
	}
	// A single physical writer connection avoids SQLITE_BUSY under WAL when
	// multiple goroutines hold statements open; reads still fan out fine
	// because modernc.org/sqlite serializes per *sql.DB handle internally.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, apperrors.IoFailure("setting journal_mode", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, apperrors.IoFailure("enabling foreign_keys", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if id, err := machineid.ID(); err == nil {
		logging.Debug(ctx, "store opened", "path", path, "machine_id_tag", id)
	} else {
		logging.Debug(ctx, "store opened", "path", path)
	}

	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// withWrite serializes f against every other write, per spec §4.A's
// single-writer requirement. Archive pruning runs inside the same lock as
// its triggering insert by calling enforceArchiveLimitLocked directly rather
// than through Store's exported method.
func (s *Store) withWrite(f func() error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return f()
}
