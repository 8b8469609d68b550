// ABOUTME: User and settings persistence for the SQLite store
// ABOUTME: Users are created together with their default settings in one transaction

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// CreateUser inserts a user and its settings atomically. Either both rows are
// written or neither is. Returns ErrEmailExists when the email is taken.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *User, settings *Settings) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	if settings == nil {
		settings = DefaultSettings(user.ID)
	}
	if settings.ID == "" {
		settings.ID = uuid.New().String()
	}
	settings.UserID = user.ID

	err := s.withTx(ctx, func(ctx context.Context, tx dbtx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, name, email, password_hash, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, user.ID, user.Name, user.Email, user.PasswordHash, formatTime(user.CreatedAt))
		if err != nil {
			if isUniqueConstraintError(err) {
				return ErrEmailExists
			}
			return fmt.Errorf("inserting user: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO settings (id, user_id, theme, currency, notifications_enabled,
			                      session_duration, default_session_value)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, settings.ID, settings.UserID, settings.Theme, settings.Currency,
			settings.NotificationsEnabled, settings.SessionDuration, settings.DefaultSessionValue)
		if err != nil {
			return fmt.Errorf("inserting settings: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("created user", "id", user.ID)
	return nil
}

// GetUser retrieves a user by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*User, error) {
	var user *User
	err := s.withConn(ctx, func(ctx context.Context, q dbtx) error {
		var err error
		user, err = scanUser(q.QueryRowContext(ctx, `
			SELECT id, name, email, password_hash, created_at
			FROM users
			WHERE id = ?
		`, id))
		return err
	})
	return user, err
}

// GetUserByEmail retrieves a user by email, ignoring case.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user *User
	err := s.withConn(ctx, func(ctx context.Context, q dbtx) error {
		var err error
		user, err = scanUser(q.QueryRowContext(ctx, `
			SELECT id, name, email, password_hash, created_at
			FROM users
			WHERE email = ?
		`, email))
		return err
	})
	return user, err
}

func scanUser(row *sql.Row) (*User, error) {
	var user User
	var createdAt string

	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	user.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &user, nil
}

// GetSettings returns the user's settings. NULL columns read as their defaults.
// Returns ErrNotFound if the user has no settings row.
func (s *SQLiteStore) GetSettings(ctx context.Context, userID string) (*Settings, error) {
	var settings *Settings
	err := s.withConn(ctx, func(ctx context.Context, q dbtx) error {
		var err error
		settings, err = getSettings(ctx, q, userID)
		return err
	})
	return settings, err
}

// UpdateSettings applies the non-nil fields of upd and returns the result.
func (s *SQLiteStore) UpdateSettings(ctx context.Context, userID string, upd SettingsUpdate) (*Settings, error) {
	var settings *Settings
	err := s.withTx(ctx, func(ctx context.Context, tx dbtx) error {
		current, err := getSettings(ctx, tx, userID)
		if err != nil {
			return err
		}

		if upd.Theme != nil {
			current.Theme = *upd.Theme
		}
		if upd.Currency != nil {
			current.Currency = *upd.Currency
		}
		if upd.NotificationsEnabled != nil {
			current.NotificationsEnabled = *upd.NotificationsEnabled
		}
		if upd.SessionDuration != nil {
			current.SessionDuration = *upd.SessionDuration
		}
		if upd.DefaultSessionValue != nil {
			current.DefaultSessionValue = *upd.DefaultSessionValue
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE settings
			SET theme = ?, currency = ?, notifications_enabled = ?,
			    session_duration = ?, default_session_value = ?
			WHERE user_id = ?
		`, current.Theme, current.Currency, current.NotificationsEnabled,
			current.SessionDuration, current.DefaultSessionValue, userID)
		if err != nil {
			return fmt.Errorf("updating settings: %w", err)
		}

		settings = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("updated settings", "user_id", userID)
	return settings, nil
}

func getSettings(ctx context.Context, q dbtx, userID string) (*Settings, error) {
	var settings Settings
	var theme, currency sql.NullString
	var notifications sql.NullBool
	var duration sql.NullInt64
	var value sql.NullFloat64

	err := q.QueryRowContext(ctx, `
		SELECT id, user_id, theme, currency, notifications_enabled,
		       session_duration, default_session_value
		FROM settings
		WHERE user_id = ?
	`, userID).Scan(
		&settings.ID,
		&settings.UserID,
		&theme,
		&currency,
		&notifications,
		&duration,
		&value,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying settings: %w", err)
	}

	settings.Theme = DefaultTheme
	if theme.Valid {
		settings.Theme = theme.String
	}
	settings.Currency = DefaultCurrency
	if currency.Valid {
		settings.Currency = currency.String
	}
	settings.NotificationsEnabled = DefaultNotifications
	if notifications.Valid {
		settings.NotificationsEnabled = notifications.Bool
	}
	settings.SessionDuration = DefaultSessionDuration
	if duration.Valid {
		settings.SessionDuration = int(duration.Int64)
	}
	settings.DefaultSessionValue = DefaultSessionValue
	if value.Valid {
		settings.DefaultSessionValue = value.Float64
	}

	return &settings, nil
}

// Ensure SQLiteStore implements IdentityStore.
var _ IdentityStore = (*SQLiteStore)(nil)
