// ABOUTME: Therapy session persistence for the SQLite store
// ABOUTME: Sessions are checked against their patient's owner on create and soft-deleted

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const sessionColumns = `id, patient_id, user_id, start_time, end_time, notes, value, status,
	created_at, updated_at, deleted_at`

// CreateSession inserts a session for an active patient owned by session.UserID.
// Returns ErrNotFound if the patient is missing, deleted, or owned by someone else,
// and ErrInvalidTimeRange if the session does not start before it ends.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *Session) error {
	// Stored at second precision, so compare what will actually be written.
	session.StartTime = session.StartTime.UTC().Truncate(time.Second)
	session.EndTime = session.EndTime.UTC().Truncate(time.Second)
	if !session.StartTime.Before(session.EndTime) {
		return ErrInvalidTimeRange
	}
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.Status == "" {
		session.Status = SessionStatusScheduled
	}
	now := s.now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = session.CreatedAt
	}

	err := s.withTx(ctx, func(ctx context.Context, tx dbtx) error {
		var owner string
		err := tx.QueryRowContext(ctx, `
			SELECT user_id FROM patients WHERE id = ? AND deleted_at IS NULL
		`, session.PatientID).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("checking patient: %w", err)
		}
		if owner != session.UserID {
			return ErrNotFound
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO sessions (id, patient_id, user_id, start_time, end_time, notes, value,
			                      status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			session.ID,
			session.PatientID,
			session.UserID,
			formatTime(session.StartTime),
			formatTime(session.EndTime),
			nullString(session.Notes),
			session.Value,
			session.Status,
			formatTime(session.CreatedAt),
			formatTime(session.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("inserting session: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("created session", "id", session.ID, "patient_id", session.PatientID)
	return nil
}

// GetSession retrieves an active session owned by userID, whether or not its
// patient is still active.
func (s *SQLiteStore) GetSession(ctx context.Context, id, userID string) (*Session, error) {
	var session *Session
	err := s.withConn(ctx, func(ctx context.Context, q dbtx) error {
		var err error
		session, err = getActiveSession(ctx, q, id, userID)
		return err
	})
	return session, err
}

// ListSessionsByPatient returns the patient's active sessions, most recent start first.
func (s *SQLiteStore) ListSessionsByPatient(ctx context.Context, patientID, userID string) ([]*Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE patient_id = ? AND deleted_at IS NULL
	`
	args := []any{patientID}
	if userID != "" {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY start_time DESC, id ASC`

	sessions := []*Session{}
	err := s.withConn(ctx, func(ctx context.Context, q dbtx) error {
		rows, err := q.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("querying sessions: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			session, err := scanSession(rows)
			if err != nil {
				return err
			}
			sessions = append(sessions, session)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating session rows: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// UpdateSession applies the non-nil fields of upd to an active session owned by userID.
// The merged start and end times are validated before writing.
func (s *SQLiteStore) UpdateSession(ctx context.Context, id, userID string, upd SessionUpdate) error {
	err := s.withTx(ctx, func(ctx context.Context, tx dbtx) error {
		session, err := getActiveSession(ctx, tx, id, userID)
		if err != nil {
			return err
		}

		if upd.StartTime != nil {
			session.StartTime = upd.StartTime.UTC().Truncate(time.Second)
		}
		if upd.EndTime != nil {
			session.EndTime = upd.EndTime.UTC().Truncate(time.Second)
		}
		if upd.Notes != nil {
			session.Notes = *upd.Notes
		}
		if upd.Value != nil {
			session.Value = *upd.Value
		}
		if upd.Status != nil {
			session.Status = *upd.Status
		}
		if !session.StartTime.Before(session.EndTime) {
			return ErrInvalidTimeRange
		}
		session.UpdatedAt = s.now()

		_, err = tx.ExecContext(ctx, `
			UPDATE sessions
			SET start_time = ?, end_time = ?, notes = ?, value = ?, status = ?, updated_at = ?
			WHERE id = ? AND user_id = ? AND deleted_at IS NULL
		`,
			formatTime(session.StartTime),
			formatTime(session.EndTime),
			nullString(session.Notes),
			session.Value,
			session.Status,
			formatTime(session.UpdatedAt),
			id,
			userID,
		)
		if err != nil {
			return fmt.Errorf("updating session: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("updated session", "id", id)
	return nil
}

// DeleteSession soft-deletes an active session owned by userID.
// Returns ErrNotFound if no such session exists.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id, userID string) error {
	err := s.withConn(ctx, func(ctx context.Context, q dbtx) error {
		now := formatTime(s.now())
		result, err := q.ExecContext(ctx, `
			UPDATE sessions
			SET deleted_at = ?, updated_at = ?
			WHERE id = ? AND user_id = ? AND deleted_at IS NULL
		`, now, now, id, userID)
		if err != nil {
			return fmt.Errorf("deleting session: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("getting rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("deleted session", "id", id)
	return nil
}

func getActiveSession(ctx context.Context, q dbtx, id, userID string) (*Session, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE id = ? AND user_id = ? AND deleted_at IS NULL
	`, id, userID)
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("querying session: %w", err)
		}
		return nil, ErrNotFound
	}
	return scanSession(rows)
}

func scanSession(rows *sql.Rows) (*Session, error) {
	var session Session
	var notes, status, deletedAt sql.NullString
	var value sql.NullFloat64
	var startTime, endTime, createdAt, updatedAt string

	if err := rows.Scan(
		&session.ID,
		&session.PatientID,
		&session.UserID,
		&startTime,
		&endTime,
		&notes,
		&value,
		&status,
		&createdAt,
		&updatedAt,
		&deletedAt,
	); err != nil {
		return nil, fmt.Errorf("scanning session row: %w", err)
	}

	session.Notes = notes.String
	session.Value = value.Float64
	session.Status = SessionStatusScheduled
	if status.Valid && status.String != "" {
		session.Status = status.String
	}

	var err error
	if session.StartTime, err = parseTime(startTime); err != nil {
		return nil, fmt.Errorf("parsing start_time: %w", err)
	}
	if session.EndTime, err = parseTime(endTime); err != nil {
		return nil, fmt.Errorf("parsing end_time: %w", err)
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if session.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	if session.DeletedAt, err = parseNullTime(deletedAt); err != nil {
		return nil, fmt.Errorf("parsing deleted_at: %w", err)
	}

	return &session, nil
}

// Ensure SQLiteStore implements SessionStore.
var _ SessionStore = (*SQLiteStore)(nil)
