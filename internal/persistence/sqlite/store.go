// Package sqlite implements the persistence gateway on SQLite via the
// modernc.org driver. Every guard check runs inside the same transaction as
// the write it protects; with writes serialized on a single connection the
// overlap and capacity checks cannot race.
package sqlite

import (
	"sync/atomic"
	"time"
)

// timeLayout is the storage format for row timestamps. Calendar dates use
// the plain YYYY-MM-DD form from the dates package.
const timeLayout = time.RFC3339

// Store implements persistence.Gateway.
type Store struct {
	pool *Pool
	// leaveLocked is process state, deliberately not persisted: the lock
	// resets to open on every restart.
	leaveLocked atomic.Bool
	now         func() time.Time
}

// Open opens (or creates) the roster database behind dsn.
func Open(dsn string) (*Store, error) {
	pool, err := OpenPool(dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, now: time.Now}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.pool.Close()
}

// SetLeaveLock stores the new lock state and returns it.
func (s *Store) SetLeaveLock(locked bool) bool {
	s.leaveLocked.Store(locked)
	return locked
}

// LeaveLocked reports whether withdrawal from started instances is blocked.
func (s *Store) LeaveLocked() bool {
	return s.leaveLocked.Load()
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}

func parseTimestamp(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
