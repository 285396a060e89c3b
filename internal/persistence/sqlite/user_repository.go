package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/cleaning-roster/internal/persistence"
)

// UpsertUser inserts the user or updates the existing row with the same
// external identity. The update is skipped entirely when neither the display
// name nor the role flag changed, so the result's change count lets callers
// suppress audit noise for no-op syncs.
func (s *Store) UpsertUser(ctx context.Context, user persistence.User) (persistence.UpsertResult, error) {
	var result persistence.UpsertResult

	err := s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		existing, err := scanUser(tx.QueryRow(
			"SELECT id, external_id, display_name, has_role, created_at, updated_at FROM users WHERE external_id = ?",
			user.ExternalID,
		))
		switch {
		case errors.Is(err, sql.ErrNoRows):
			now := s.timestamp()
			if _, err := tx.Exec(
				"INSERT INTO users (id, external_id, display_name, has_role, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
				user.ID, user.ExternalID, user.DisplayName, boolToInt(user.HasRole), now, now,
			); err != nil {
				return mapError(err)
			}
			inserted := user
			inserted.CreatedAt = parseTimestamp(now)
			inserted.UpdatedAt = inserted.CreatedAt
			result = persistence.UpsertResult{
				Change:  persistence.Change{Count: 1, NewID: user.ID},
				Created: true,
				User:    inserted,
			}
			return nil
		case err != nil:
			return mapError(err)
		}

		if existing.DisplayName == user.DisplayName && existing.HasRole == user.HasRole {
			result = persistence.UpsertResult{User: existing}
			return nil
		}

		now := s.timestamp()
		if _, err := tx.Exec(
			"UPDATE users SET display_name = ?, has_role = ?, updated_at = ? WHERE id = ?",
			user.DisplayName, boolToInt(user.HasRole), now, existing.ID,
		); err != nil {
			return mapError(err)
		}

		updated := existing
		updated.DisplayName = user.DisplayName
		updated.HasRole = user.HasRole
		updated.UpdatedAt = parseTimestamp(now)
		result = persistence.UpsertResult{
			Change: persistence.Change{Count: 1},
			User:   updated,
		}
		return nil
	})
	if err != nil {
		return persistence.UpsertResult{}, err
	}
	return result, nil
}

// UserByExternalID returns nil without error when the user does not exist.
func (s *Store) UserByExternalID(ctx context.Context, externalID string) (*persistence.User, error) {
	user, err := scanUser(s.pool.DB().QueryRowContext(ctx,
		"SELECT id, external_id, display_name, has_role, created_at, updated_at FROM users WHERE external_id = ?",
		externalID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

// ListUsers returns every known user ordered by display name.
func (s *Store) ListUsers(ctx context.Context) ([]persistence.User, error) {
	rows, err := s.pool.DB().QueryContext(ctx,
		"SELECT id, external_id, display_name, has_role, created_at, updated_at FROM users ORDER BY display_name, external_id",
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var users []persistence.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, mapError(err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return users, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (persistence.User, error) {
	var (
		user                 persistence.User
		hasRole              int
		createdAt, updatedAt string
	)
	if err := row.Scan(&user.ID, &user.ExternalID, &user.DisplayName, &hasRole, &createdAt, &updatedAt); err != nil {
		return persistence.User{}, err
	}
	user.HasRole = hasRole != 0
	user.CreatedAt = parseTimestamp(createdAt)
	user.UpdatedAt = parseTimestamp(updatedAt)
	return user, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// lookupUserTx resolves an acting user inside a transaction, mapping a miss
// to the guard sentinel.
func lookupUserTx(tx *sql.Tx, externalID string) (persistence.User, error) {
	user, err := scanUser(tx.QueryRow(
		"SELECT id, external_id, display_name, has_role, created_at, updated_at FROM users WHERE external_id = ?",
		externalID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.User{}, fmt.Errorf("%w: %s", persistence.ErrUserNotFound, externalID)
	}
	if err != nil {
		return persistence.User{}, mapError(err)
	}
	return user, nil
}
