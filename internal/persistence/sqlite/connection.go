package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/example/cleaning-roster/internal/persistence"
)

// busyRetries is how often a transaction blocked by a locked database is
// retried before the error surfaces.
const busyRetries = 3

// busyRetryDelay is the initial backoff between busy retries; it doubles on
// every attempt.
const busyRetryDelay = 50 * time.Millisecond

// Pool wraps the SQLite handle and provides the transactional envelope all
// gateway mutations run in.
type Pool struct {
	db *sql.DB
}

// OpenPool opens the database behind dsn. Writes are serialized through a
// single connection so that every check-then-act guard observes committed
// state.
func OpenPool(dsn string) (*Pool, error) {
	// The pragma lives in the DSN so the driver re-applies it to every
	// connection; a plain Exec would stop enforcing cascades the moment
	// database/sql replaced the pooled connection.
	if !strings.Contains(dsn, "_pragma=foreign_keys") {
		separator := "?"
		if strings.Contains(dsn, "?") {
			separator = "&"
		}
		dsn += separator + "_pragma=foreign_keys(1)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", dsn, err)
	}
	db.SetMaxOpenConns(1)
	return &Pool{db: db}, nil
}

// DB exposes the underlying handle for reads.
func (p *Pool) DB() *sql.DB { return p.db }

// Close releases the database handle.
func (p *Pool) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// Ping verifies the database is reachable.
func (p *Pool) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// WithTransaction runs fn inside a transaction, committing on success and
// rolling back on error or panic. Transient busy errors restart the whole
// transaction with backoff.
func (p *Pool) WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	delay := busyRetryDelay
	var err error
	for attempt := 0; ; attempt++ {
		err = p.runTransaction(ctx, fn)
		if err == nil || !isBusyError(err) || attempt >= busyRetries {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}
}

func (p *Pool) runTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("sqlite: rollback after %w: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit transaction: %w", err)
	}
	return nil
}

// mapError translates driver failures into persistence sentinels so callers
// can match with errors.Is. Guard sentinels pass through untouched.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if persistence.IsGuardError(err) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return err
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", persistence.ErrDuplicate, err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %v", persistence.ErrForeignKeyViolation, err)
	case strings.Contains(msg, "CHECK constraint failed"):
		return fmt.Errorf("%w: %v", persistence.ErrConstraintViolation, err)
	}
	return err
}

func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
