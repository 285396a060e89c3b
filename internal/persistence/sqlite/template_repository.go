package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/cleaning-roster/internal/persistence"
)

// CreateTemplate inserts a new cleaning template.
func (s *Store) CreateTemplate(ctx context.Context, template persistence.Template) (persistence.Change, error) {
	var change persistence.Change

	err := s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		now := s.timestamp()
		if _, err := tx.Exec(
			"INSERT INTO templates (id, max_participants, place, name, instructions, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			template.ID, template.MaxParticipants, template.Place, template.Name, template.Instructions, now, now,
		); err != nil {
			return mapError(err)
		}
		change = persistence.Change{Count: 1, NewID: template.ID}
		return nil
	})
	if err != nil {
		return persistence.Change{}, err
	}
	return change, nil
}

// UpdateTemplate replaces the template's fields directly. Instances already
// above a reduced max_participants stay untouched; capacity is enforced at
// join time only.
func (s *Store) UpdateTemplate(ctx context.Context, template persistence.Template) (persistence.Change, error) {
	var change persistence.Change

	err := s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.Exec(
			"UPDATE templates SET max_participants = ?, place = ?, name = ?, instructions = ?, updated_at = ? WHERE id = ?",
			template.MaxParticipants, template.Place, template.Name, template.Instructions, s.timestamp(), template.ID,
		)
		if err != nil {
			return mapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", persistence.ErrTemplateNotFound, template.ID)
		}
		change = persistence.Change{Count: affected}
		return nil
	})
	if err != nil {
		return persistence.Change{}, err
	}
	return change, nil
}

// DeleteTemplate removes a template that no instance references.
func (s *Store) DeleteTemplate(ctx context.Context, id string) (persistence.Change, error) {
	var change persistence.Change

	err := s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var references int
		if err := tx.QueryRow("SELECT COUNT(*) FROM instances WHERE template_id = ?", id).Scan(&references); err != nil {
			return mapError(err)
		}
		if references > 0 {
			return fmt.Errorf("%w: %s has %d instances", persistence.ErrTemplateInUse, id, references)
		}

		result, err := tx.Exec("DELETE FROM templates WHERE id = ?", id)
		if err != nil {
			return mapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", persistence.ErrTemplateNotFound, id)
		}
		change = persistence.Change{Count: affected}
		return nil
	})
	if err != nil {
		return persistence.Change{}, err
	}
	return change, nil
}

// TemplateByID returns nil without error when the template does not exist.
func (s *Store) TemplateByID(ctx context.Context, id string) (*persistence.Template, error) {
	template, err := scanTemplate(s.pool.DB().QueryRowContext(ctx,
		"SELECT id, max_participants, place, name, instructions, created_at, updated_at FROM templates WHERE id = ?",
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	return &template, nil
}

// ListTemplates returns every template ordered by name.
func (s *Store) ListTemplates(ctx context.Context) ([]persistence.Template, error) {
	rows, err := s.pool.DB().QueryContext(ctx,
		"SELECT id, max_participants, place, name, instructions, created_at, updated_at FROM templates ORDER BY name, id",
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var templates []persistence.Template
	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, mapError(err)
		}
		templates = append(templates, template)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return templates, nil
}

func scanTemplate(row rowScanner) (persistence.Template, error) {
	var (
		template             persistence.Template
		createdAt, updatedAt string
	)
	if err := row.Scan(&template.ID, &template.MaxParticipants, &template.Place, &template.Name, &template.Instructions, &createdAt, &updatedAt); err != nil {
		return persistence.Template{}, err
	}
	template.CreatedAt = parseTimestamp(createdAt)
	template.UpdatedAt = parseTimestamp(updatedAt)
	return template, nil
}
