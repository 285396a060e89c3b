package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/cleaning-roster/internal/dates"
	"github.com/example/cleaning-roster/internal/persistence"
)

// CreateInstance inserts one instance after checking the overlap invariant
// against every existing instance of the same template. The check and the
// insert share one transaction.
func (s *Store) CreateInstance(ctx context.Context, spec persistence.InstanceSpec) (persistence.Change, error) {
	var change persistence.Change

	err := s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		change, err = s.createInstanceTx(tx, spec)
		return err
	})
	if err != nil {
		return persistence.Change{}, err
	}
	return change, nil
}

// CreateInstances applies the specs in order inside a single transaction.
// Each spec's overlap check sees the specs inserted before it, and any
// failure rolls back the entire batch.
func (s *Store) CreateInstances(ctx context.Context, specs []persistence.InstanceSpec) ([]persistence.Change, error) {
	changes := make([]persistence.Change, 0, len(specs))

	err := s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, spec := range specs {
			change, err := s.createInstanceTx(tx, spec)
			if err != nil {
				return err
			}
			changes = append(changes, change)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}

func (s *Store) createInstanceTx(tx *sql.Tx, spec persistence.InstanceSpec) (persistence.Change, error) {
	span := dates.Span{Start: spec.DateStart, End: spec.DateEnd}
	if !span.Valid() {
		return persistence.Change{}, fmt.Errorf("%w: invalid range [%s, %s]", persistence.ErrConstraintViolation, spec.DateStart, spec.DateEnd)
	}

	var templateExists int
	if err := tx.QueryRow("SELECT COUNT(*) FROM templates WHERE id = ?", spec.TemplateID).Scan(&templateExists); err != nil {
		return persistence.Change{}, mapError(err)
	}
	if templateExists == 0 {
		return persistence.Change{}, fmt.Errorf("%w: %s", persistence.ErrTemplateNotFound, spec.TemplateID)
	}

	var overlapping int
	err := tx.QueryRow(
		"SELECT COUNT(*) FROM instances WHERE template_id = ? AND NOT (date_end < ? OR date_start > ?)",
		spec.TemplateID, string(spec.DateStart), string(spec.DateEnd),
	).Scan(&overlapping)
	if err != nil {
		return persistence.Change{}, mapError(err)
	}
	if overlapping > 0 {
		return persistence.Change{}, fmt.Errorf("%w: template %s in [%s, %s]", persistence.ErrOverlap, spec.TemplateID, spec.DateStart, spec.DateEnd)
	}

	now := s.timestamp()
	if _, err := tx.Exec(
		"INSERT INTO instances (id, template_id, date_start, date_end, started, finished, thread_ref, sent_next_week, created_at, updated_at) VALUES (?, ?, ?, ?, 0, 0, ?, 0, ?, ?)",
		spec.ID, spec.TemplateID, string(spec.DateStart), string(spec.DateEnd), spec.ThreadRef, now, now,
	); err != nil {
		return persistence.Change{}, mapError(err)
	}

	return persistence.Change{Count: 1, NewID: spec.ID}, nil
}

// StartInstance marks the instance started. The write is unconditional and
// idempotent; callers decide whether a start is due.
func (s *Store) StartInstance(ctx context.Context, id string) (persistence.Change, error) {
	var change persistence.Change

	err := s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.Exec("UPDATE instances SET started = 1, updated_at = ? WHERE id = ?", s.timestamp(), id)
		if err != nil {
			return mapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", persistence.ErrInstanceNotFound, id)
		}
		change = persistence.Change{Count: affected}
		return nil
	})
	if err != nil {
		return persistence.Change{}, err
	}
	return change, nil
}

// FinishInstance marks the instance finished on behalf of an actor who must
// be a known user and a current participant.
func (s *Store) FinishInstance(ctx context.Context, actorExternalID, instanceID string) (persistence.FinishResult, error) {
	var result persistence.FinishResult

	err := s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		actor, err := lookupUserTx(tx, actorExternalID)
		if err != nil {
			return err
		}

		header, err := lookupInstanceHeaderTx(tx, instanceID)
		if err != nil {
			return err
		}

		var participant int
		if err := tx.QueryRow(
			"SELECT COUNT(*) FROM participants WHERE instance_id = ? AND user_id = ?",
			instanceID, actor.ID,
		).Scan(&participant); err != nil {
			return mapError(err)
		}
		if participant == 0 {
			return fmt.Errorf("%w: %s in instance %s", persistence.ErrNotParticipant, actorExternalID, instanceID)
		}

		res, err := tx.Exec("UPDATE instances SET finished = 1, updated_at = ? WHERE id = ?", s.timestamp(), instanceID)
		if err != nil {
			return mapError(err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: rows affected: %w", err)
		}
		result = persistence.FinishResult{
			Change:    persistence.Change{Count: affected},
			ThreadRef: header.threadRef,
		}
		return nil
	})
	if err != nil {
		return persistence.FinishResult{}, err
	}
	return result, nil
}

// Join runs the guard sequence and inserts the participant link. The insert
// uses INSERT OR IGNORE so a racing duplicate degrades to a no-op instead of
// an error.
func (s *Store) Join(ctx context.Context, actorExternalID, instanceID string, today dates.Date) (persistence.JoinResult, error) {
	var result persistence.JoinResult

	err := s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		actor, err := lookupUserTx(tx, actorExternalID)
		if err != nil {
			return err
		}

		header, err := lookupInstanceHeaderTx(tx, instanceID)
		if err != nil {
			return err
		}

		if header.finished {
			return fmt.Errorf("%w: %s", persistence.ErrAlreadyFinished, instanceID)
		}

		var joined int
		if err := tx.QueryRow(
			"SELECT COUNT(*) FROM participants WHERE instance_id = ? AND user_id = ?",
			instanceID, actor.ID,
		).Scan(&joined); err != nil {
			return mapError(err)
		}
		if joined > 0 {
			return fmt.Errorf("%w: %s in instance %s", persistence.ErrAlreadyJoined, actorExternalID, instanceID)
		}

		var count int
		if err := tx.QueryRow(
			"SELECT COUNT(*) FROM participants WHERE instance_id = ?", instanceID,
		).Scan(&count); err != nil {
			return mapError(err)
		}
		if count >= header.maxParticipants {
			return fmt.Errorf("%w: instance %s holds %d of %d", persistence.ErrCapacityExceeded, instanceID, count, header.maxParticipants)
		}

		if header.dateEnd.Before(today) {
			return fmt.Errorf("%w: %s ended %s", persistence.ErrInstancePast, instanceID, header.dateEnd)
		}

		res, err := tx.Exec(
			"INSERT OR IGNORE INTO participants (instance_id, user_id) VALUES (?, ?)",
			instanceID, actor.ID,
		)
		if err != nil {
			return mapError(err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: rows affected: %w", err)
		}

		result = persistence.JoinResult{
			Change:         persistence.Change{Count: affected},
			User:           actor,
			ThreadRef:      header.threadRef,
			AlreadyStarted: header.started,
		}
		return nil
	})
	if err != nil {
		return persistence.JoinResult{}, err
	}
	return result, nil
}

// Leave runs the guard sequence and removes the participant link.
func (s *Store) Leave(ctx context.Context, actorExternalID, instanceID string) (persistence.LeaveResult, error) {
	var result persistence.LeaveResult

	err := s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		actor, err := lookupUserTx(tx, actorExternalID)
		if err != nil {
			return err
		}

		header, err := lookupInstanceHeaderTx(tx, instanceID)
		if err != nil {
			return err
		}

		var joined int
		if err := tx.QueryRow(
			"SELECT COUNT(*) FROM participants WHERE instance_id = ? AND user_id = ?",
			instanceID, actor.ID,
		).Scan(&joined); err != nil {
			return mapError(err)
		}
		if joined == 0 {
			return fmt.Errorf("%w: %s in instance %s", persistence.ErrNotParticipant, actorExternalID, instanceID)
		}

		if header.finished {
			return fmt.Errorf("%w: %s", persistence.ErrAlreadyFinished, instanceID)
		}

		if header.started && s.LeaveLocked() {
			return fmt.Errorf("%w: instance %s", persistence.ErrLeaveLocked, instanceID)
		}

		res, err := tx.Exec(
			"DELETE FROM participants WHERE instance_id = ? AND user_id = ?",
			instanceID, actor.ID,
		)
		if err != nil {
			return mapError(err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: rows affected: %w", err)
		}

		result = persistence.LeaveResult{
			Change:    persistence.Change{Count: affected},
			User:      actor,
			ThreadRef: header.threadRef,
		}
		return nil
	})
	if err != nil {
		return persistence.LeaveResult{}, err
	}
	return result, nil
}

// RemoveInstance deletes the instance; participant links cascade.
func (s *Store) RemoveInstance(ctx context.Context, id string) (persistence.Change, error) {
	var change persistence.Change

	err := s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.Exec("DELETE FROM instances WHERE id = ?", id)
		if err != nil {
			return mapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", persistence.ErrInstanceNotFound, id)
		}
		change = persistence.Change{Count: affected}
		return nil
	})
	if err != nil {
		return persistence.Change{}, err
	}
	return change, nil
}

// MarkNextWeekNotified records that the upcoming-week reminder went out so
// repeated sweeps in the same week stay silent for the instance.
func (s *Store) MarkNextWeekNotified(ctx context.Context, id string) (persistence.Change, error) {
	var change persistence.Change

	err := s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.Exec("UPDATE instances SET sent_next_week = 1, updated_at = ? WHERE id = ?", s.timestamp(), id)
		if err != nil {
			return mapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", persistence.ErrInstanceNotFound, id)
		}
		change = persistence.Change{Count: affected}
		return nil
	})
	if err != nil {
		return persistence.Change{}, err
	}
	return change, nil
}

// InstanceByID returns the denormalized view, or nil without error when the
// instance does not exist.
func (s *Store) InstanceByID(ctx context.Context, id string) (*persistence.InstanceDetail, error) {
	details, err := s.queryInstanceDetails(ctx, "WHERE i.id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return nil, nil
	}
	return &details[0], nil
}

// ListInstances returns instances whose inclusive date range intersects
// span, ordered by start date.
func (s *Store) ListInstances(ctx context.Context, span dates.Span) ([]persistence.InstanceDetail, error) {
	return s.queryInstanceDetails(ctx,
		"WHERE NOT (i.date_end < ? OR i.date_start > ?)",
		string(span.Start), string(span.End),
	)
}

// ListInstancesForTemplate returns every instance of the template.
func (s *Store) ListInstancesForTemplate(ctx context.Context, templateID string) ([]persistence.InstanceDetail, error) {
	return s.queryInstanceDetails(ctx, "WHERE i.template_id = ?", templateID)
}

// instanceHeader is the slice of instance state the write guards consult.
type instanceHeader struct {
	id              string
	started         bool
	finished        bool
	dateEnd         dates.Date
	threadRef       string
	maxParticipants int
}

func lookupInstanceHeaderTx(tx *sql.Tx, id string) (instanceHeader, error) {
	var (
		header            instanceHeader
		started, finished int
		dateEnd           string
	)
	err := tx.QueryRow(`
		SELECT i.id, i.started, i.finished, i.date_end, i.thread_ref, t.max_participants
		FROM instances i
		JOIN templates t ON t.id = i.template_id
		WHERE i.id = ?`, id,
	).Scan(&header.id, &started, &finished, &dateEnd, &header.threadRef, &header.maxParticipants)
	if errors.Is(err, sql.ErrNoRows) {
		return instanceHeader{}, fmt.Errorf("%w: %s", persistence.ErrInstanceNotFound, id)
	}
	if err != nil {
		return instanceHeader{}, mapError(err)
	}
	header.started = started != 0
	header.finished = finished != 0
	header.dateEnd = dates.Date(dateEnd)
	return header, nil
}

// queryInstanceDetails materializes the instance-with-template view and then
// loads each roster with an explicit second query, grouping in application
// code rather than through serialized aggregates.
func (s *Store) queryInstanceDetails(ctx context.Context, where string, args ...any) ([]persistence.InstanceDetail, error) {
	query := fmt.Sprintf(`
		SELECT i.id, i.template_id, i.date_start, i.date_end, i.started, i.finished, i.thread_ref, i.sent_next_week, i.created_at, i.updated_at,
		       t.id, t.max_participants, t.place, t.name, t.instructions, t.created_at, t.updated_at
		FROM instances i
		JOIN templates t ON t.id = i.template_id
		%s
		ORDER BY i.date_start, i.id`, where)

	rows, err := s.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var details []persistence.InstanceDetail
	for rows.Next() {
		var (
			detail                          persistence.InstanceDetail
			dateStart, dateEnd              string
			started, finished, sentNextWeek int
			instCreated, instUpdated        string
			tmplCreated, tmplUpdated        string
		)
		err := rows.Scan(
			&detail.ID, &detail.TemplateID, &dateStart, &dateEnd, &started, &finished, &detail.ThreadRef, &sentNextWeek, &instCreated, &instUpdated,
			&detail.Template.ID, &detail.Template.MaxParticipants, &detail.Template.Place, &detail.Template.Name, &detail.Template.Instructions, &tmplCreated, &tmplUpdated,
		)
		if err != nil {
			return nil, mapError(err)
		}
		detail.DateStart = dates.Date(dateStart)
		detail.DateEnd = dates.Date(dateEnd)
		detail.Started = started != 0
		detail.Finished = finished != 0
		detail.SentNextWeek = sentNextWeek != 0
		detail.CreatedAt = parseTimestamp(instCreated)
		detail.UpdatedAt = parseTimestamp(instUpdated)
		detail.Template.CreatedAt = parseTimestamp(tmplCreated)
		detail.Template.UpdatedAt = parseTimestamp(tmplUpdated)
		details = append(details, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	for i := range details {
		participants, err := s.loadParticipants(ctx, details[i].ID)
		if err != nil {
			return nil, err
		}
		details[i].Participants = participants
	}

	return details, nil
}

func (s *Store) loadParticipants(ctx context.Context, instanceID string) ([]persistence.User, error) {
	rows, err := s.pool.DB().QueryContext(ctx, `
		SELECT u.id, u.external_id, u.display_name, u.has_role, u.created_at, u.updated_at
		FROM participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.instance_id = ?
		ORDER BY u.display_name, u.external_id`, instanceID)
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
