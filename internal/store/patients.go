// ABOUTME: Patient persistence for the SQLite store
// ABOUTME: Owner-scoped CRUD where deletion only stamps deleted_at

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const patientColumns = `id, user_id, name, email, phone, cpf, birth_date, address,
	created_at, updated_at, deleted_at`

// CreatePatient inserts a patient for an existing user.
// Returns ErrNotFound if the owning user does not exist.
func (s *SQLiteStore) CreatePatient(ctx context.Context, patient *Patient) error {
	if patient.ID == "" {
		patient.ID = uuid.New().String()
	}
	now := s.now()
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = now
	}
	if patient.UpdatedAt.IsZero() {
		patient.UpdatedAt = patient.CreatedAt
	}

	err := s.withTx(ctx, func(ctx context.Context, tx dbtx) error {
		if err := userExists(ctx, tx, patient.UserID); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO patients (id, user_id, name, email, phone, cpf, birth_date, address,
			                      created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			patient.ID,
			patient.UserID,
			patient.Name,
			nullString(patient.Email),
			nullString(patient.Phone),
			nullString(patient.CPF),
			nullTime(patient.BirthDate),
			nullString(patient.Address),
			formatTime(patient.CreatedAt),
			formatTime(patient.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("inserting patient: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("created patient", "id", patient.ID, "user_id", patient.UserID)
	return nil
}

// GetPatient retrieves an active patient owned by userID.
func (s *SQLiteStore) GetPatient(ctx context.Context, id, userID string) (*Patient, error) {
	var patient *Patient
	err := s.withConn(ctx, func(ctx context.Context, q dbtx) error {
		var err error
		patient, err = getActivePatient(ctx, q, id, userID)
		return err
	})
	return patient, err
}

// ListPatients returns the user's active patients ordered by name (byte order,
// so case-sensitive) with id as the tie-break.
func (s *SQLiteStore) ListPatients(ctx context.Context, userID string) ([]*Patient, error) {
	patients := []*Patient{}
	err := s.withConn(ctx, func(ctx context.Context, q dbtx) error {
		rows, err := q.QueryContext(ctx, `
			SELECT `+patientColumns+`
			FROM patients
			WHERE user_id = ? AND deleted_at IS NULL
			ORDER BY name COLLATE BINARY ASC, id ASC
		`, userID)
		if err != nil {
			return fmt.Errorf("querying patients: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanPatient(rows)
			if err != nil {
				return err
			}
			patients = append(patients, p)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating patient rows: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return patients, nil
}

// UpdatePatient applies the non-nil fields of upd to an active patient owned by userID.
// Returns ErrNotFound if no such patient exists.
func (s *SQLiteStore) UpdatePatient(ctx context.Context, id, userID string, upd PatientUpdate) error {
	err := s.withTx(ctx, func(ctx context.Context, tx dbtx) error {
		p, err := getActivePatient(ctx, tx, id, userID)
		if err != nil {
			return err
		}

		if upd.Name != nil {
			p.Name = *upd.Name
		}
		if upd.Email != nil {
			p.Email = *upd.Email
		}
		if upd.Phone != nil {
			p.Phone = *upd.Phone
		}
		if upd.CPF != nil {
			p.CPF = *upd.CPF
		}
		if upd.Address != nil {
			p.Address = *upd.Address
		}
		if upd.ClearBirthDate {
			p.BirthDate = nil
		} else if upd.BirthDate != nil {
			p.BirthDate = upd.BirthDate
		}
		p.UpdatedAt = s.now()

		_, err = tx.ExecContext(ctx, `
			UPDATE patients
			SET name = ?, email = ?, phone = ?, cpf = ?, birth_date = ?, address = ?, updated_at = ?
			WHERE id = ? AND user_id = ? AND deleted_at IS NULL
		`,
			p.Name,
			nullString(p.Email),
			nullString(p.Phone),
			nullString(p.CPF),
			nullTime(p.BirthDate),
			nullString(p.Address),
			formatTime(p.UpdatedAt),
			id,
			userID,
		)
		if err != nil {
			return fmt.Errorf("updating patient: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("updated patient", "id", id)
	return nil
}

// DeletePatient soft-deletes an active patient owned by userID. The patient's
// sessions are left untouched. Deleting twice returns ErrNotFound.
func (s *SQLiteStore) DeletePatient(ctx context.Context, id, userID string) error {
	err := s.withConn(ctx, func(ctx context.Context, q dbtx) error {
		now := formatTime(s.now())
		result, err := q.ExecContext(ctx, `
			UPDATE patients
			SET deleted_at = ?, updated_at = ?
			WHERE id = ? AND user_id = ? AND deleted_at IS NULL
		`, now, now, id, userID)
		if err != nil {
			return fmt.Errorf("deleting patient: %w", err)
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

	s.logger.Debug("deleted patient", "id", id)
	return nil
}

func userExists(ctx context.Context, q dbtx, userID string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("checking user: %w", err)
	}
	return nil
}

func getActivePatient(ctx context.Context, q dbtx, id, userID string) (*Patient, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE id = ? AND user_id = ? AND deleted_at IS NULL
	`, id, userID)
	if err != nil {
		return nil, fmt.Errorf("querying patient: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("querying patient: %w", err)
		}
		return nil, ErrNotFound
	}
	return scanPatient(rows)
}

func scanPatient(rows *sql.Rows) (*Patient, error) {
	var p Patient
	var email, phone, cpf, birthDate, address, deletedAt sql.NullString
	var createdAt, updatedAt string

	if err := rows.Scan(
		&p.ID,
		&p.UserID,
		&p.Name,
		&email,
		&phone,
		&cpf,
		&birthDate,
		&address,
		&createdAt,
		&updatedAt,
		&deletedAt,
	); err != nil {
		return nil, fmt.Errorf("scanning patient row: %w", err)
	}

	p.Email = email.String
	p.Phone = phone.String
	p.CPF = cpf.String
	p.Address = address.String

	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	if p.BirthDate, err = parseBirthDate(birthDate); err != nil {
		return nil, fmt.Errorf("parsing birth_date: %w", err)
	}
	if p.DeletedAt, err = parseNullTime(deletedAt); err != nil {
		return nil, fmt.Errorf("parsing deleted_at: %w", err)
	}

	return &p, nil
}

// parseBirthDate also accepts plain dates written by older clients.
func parseBirthDate(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.DateOnly, ns.String); err == nil {
		return &t, nil
	}
	return parseNullTime(ns)
}

// Ensure SQLiteStore implements PatientStore.
var _ PatientStore = (*SQLiteStore)(nil)
