// ABOUTME: Store interfaces and data types for psyflow persistence
// ABOUTME: Defines User, Settings, Patient, Session and the per-entity store contracts

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist, is soft-deleted,
// or is not owned by the requesting user.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when registering an email that is already taken.
var ErrEmailExists = errors.New("email already registered")

// ErrInvalidTimeRange is returned when a session would end before it starts.
var ErrInvalidTimeRange = errors.New("start time must be before end time")

// Settings defaults, mirrored by the column defaults in the schema.
const (
	DefaultTheme           = "light"
	DefaultCurrency        = "BRL"
	DefaultNotifications   = true
	DefaultSessionDuration = 50 // minutes
	DefaultSessionValue    = 0.0
)

// Session status values
const (
	SessionStatusScheduled = "scheduled"
	SessionStatusCompleted = "completed"
	SessionStatusCanceled  = "canceled"
	SessionStatusNoShow    = "no-show"
)

// ValidSessionStatuses lists every status a session may be saved with.
var ValidSessionStatuses = []string{
	SessionStatusScheduled,
	SessionStatusCompleted,
	SessionStatusCanceled,
	SessionStatusNoShow,
}

// IsValidSessionStatus reports whether status is one of ValidSessionStatuses.
func IsValidSessionStatus(status string) bool {
	for _, s := range ValidSessionStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// User is a practitioner account.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string // bcrypt hash, never leaves the auth layer
	CreatedAt    time.Time
}

// Settings holds the per-user preferences. Exactly one row exists per user.
type Settings struct {
	ID                   string
	UserID               string
	Theme                string
	Currency             string
	NotificationsEnabled bool
	SessionDuration      int // minutes
	DefaultSessionValue  float64
}

// DefaultSettings returns the settings a new user starts with.
func DefaultSettings(userID string) *Settings {
	return &Settings{
		UserID:               userID,
		Theme:                DefaultTheme,
		Currency:             DefaultCurrency,
		NotificationsEnabled: DefaultNotifications,
		SessionDuration:      DefaultSessionDuration,
		DefaultSessionValue:  DefaultSessionValue,
	}
}

// SettingsUpdate carries the fields to change. Nil fields are left untouched.
type SettingsUpdate struct {
	Theme                *string
	Currency             *string
	NotificationsEnabled *bool
	SessionDuration      *int
	DefaultSessionValue  *float64
}

// Patient is a person under care, owned by a single user.
// Optional text fields are stored as NULL when empty.
type Patient struct {
	ID        string
	UserID    string
	Name      string
	Email     string
	Phone     string
	CPF       string
	BirthDate *time.Time
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time // nil while active
}

// PatientUpdate carries the fields to change. Nil fields are left untouched,
// a pointer to "" clears an optional field.
type PatientUpdate struct {
	Name           *string
	Email          *string
	Phone          *string
	CPF            *string
	Address        *string
	BirthDate      *time.Time
	ClearBirthDate bool
}

// Session is a therapy appointment. UserID always equals the owning patient's UserID.
type Session struct {
	ID        string
	PatientID string
	UserID    string
	StartTime time.Time
	EndTime   time.Time
	Notes     string
	Value     float64
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time // nil while active
}

// SessionUpdate carries the fields to change. Nil fields are left untouched.
type SessionUpdate struct {
	StartTime *time.Time
	EndTime   *time.Time
	Notes     *string
	Value     *float64
	Status    *string
}

// IdentityStore persists users and their settings.
type IdentityStore interface {
	// CreateUser inserts the user and its settings in one transaction.
	// A nil settings argument means DefaultSettings.
	CreateUser(ctx context.Context, user *User, settings *Settings) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	GetSettings(ctx context.Context, userID string) (*Settings, error)
	UpdateSettings(ctx context.Context, userID string, upd SettingsUpdate) (*Settings, error)
}

// PatientStore persists patients. All reads skip soft-deleted rows.
type PatientStore interface {
	CreatePatient(ctx context.Context, patient *Patient) error
	GetPatient(ctx context.Context, id, userID string) (*Patient, error)
	ListPatients(ctx context.Context, userID string) ([]*Patient, error)
	UpdatePatient(ctx context.Context, id, userID string, upd PatientUpdate) error
	DeletePatient(ctx context.Context, id, userID string) error
}

// SessionStore persists therapy sessions. All reads skip soft-deleted rows.
type SessionStore interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id, userID string) (*Session, error)
	// ListSessionsByPatient returns the patient's sessions, most recent first.
	// An empty userID skips the owner filter.
	ListSessionsByPatient(ctx context.Context, patientID, userID string) ([]*Session, error)
	UpdateSession(ctx context.Context, id, userID string, upd SessionUpdate) error
	DeleteSession(ctx context.Context, id, userID string) error
}

// Store is the full persistence surface used by the gateway.
type Store interface {
	IdentityStore
	PatientStore
	SessionStore

	// Close releases any resources held by the store
	Close() error
}
