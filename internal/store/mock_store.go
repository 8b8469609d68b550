// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite and to inject storage failures

package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockStore is an in-memory Store implementation for testing.
// When Err is set every method returns it unchanged, which lets callers
// exercise their storage-failure paths.
type MockStore struct {
	mu       sync.RWMutex
	users    map[string]*User     // keyed by user ID
	emails   map[string]string    // keyed by lowercased email -> user ID
	settings map[string]*Settings // keyed by user ID
	patients map[string]*Patient  // keyed by patient ID
	sessions map[string]*Session  // keyed by session ID

	Err error
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		users:    make(map[string]*User),
		emails:   make(map[string]string),
		settings: make(map[string]*Settings),
		patients: make(map[string]*Patient),
		sessions: make(map[string]*Session),
	}
}

func (m *MockStore) now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// CreateUser stores a user and its settings.
func (m *MockStore) CreateUser(ctx context.Context, user *User, settings *Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}

	key := strings.ToLower(user.Email)
	if _, exists := m.emails[key]; exists {
		return ErrEmailExists
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = m.now()
	}
	if settings == nil {
		settings = DefaultSettings(user.ID)
	}
	if settings.ID == "" {
		settings.ID = uuid.New().String()
	}
	settings.UserID = user.ID

	// Make copies to avoid external modification
	u := *user
	st := *settings
	m.users[u.ID] = &u
	m.emails[key] = u.ID
	m.settings[u.ID] = &st

	return nil
}

// GetUser retrieves a user by ID.
func (m *MockStore) GetUser(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	result := *u
	return &result, nil
}

// GetUserByEmail retrieves a user by email, ignoring case.
func (m *MockStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}

	id, ok := m.emails[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	result := *m.users[id]
	return &result, nil
}

// GetSettings returns the user's settings.
func (m *MockStore) GetSettings(ctx context.Context, userID string) (*Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}

	st, ok := m.settings[userID]
	if !ok {
		return nil, ErrNotFound
	}
	result := *st
	return &result, nil
}

// UpdateSettings applies the non-nil fields of upd.
func (m *MockStore) UpdateSettings(ctx context.Context, userID string, upd SettingsUpdate) (*Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	st, ok := m.settings[userID]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Theme != nil {
		st.Theme = *upd.Theme
	}
	if upd.Currency != nil {
		st.Currency = *upd.Currency
	}
	if upd.NotificationsEnabled != nil {
		st.NotificationsEnabled = *upd.NotificationsEnabled
	}
	if upd.SessionDuration != nil {
		st.SessionDuration = *upd.SessionDuration
	}
	if upd.DefaultSessionValue != nil {
		st.DefaultSessionValue = *upd.DefaultSessionValue
	}
	result := *st
	return &result, nil
}

// CreatePatient stores a patient for an existing user.
func (m *MockStore) CreatePatient(ctx context.Context, patient *Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.users[patient.UserID]; !ok {
		return ErrNotFound
	}

	if patient.ID == "" {
		patient.ID = uuid.New().String()
	}
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = m.now()
	}
	if patient.UpdatedAt.IsZero() {
		patient.UpdatedAt = patient.CreatedAt
	}

	p := *patient
	m.patients[p.ID] = &p
	return nil
}

func (m *MockStore) activePatient(id, userID string) (*Patient, bool) {
	p, ok := m.patients[id]
	if !ok || p.DeletedAt != nil || p.UserID != userID {
		return nil, false
	}
	return p, true
}

// GetPatient retrieves an active patient owned by userID.
func (m *MockStore) GetPatient(ctx context.Context, id, userID string) (*Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}

	p, ok := m.activePatient(id, userID)
	if !ok {
		return nil, ErrNotFound
	}
	result := *p
	return &result, nil
}

// ListPatients returns the user's active patients ordered by name, then ID.
func (m *MockStore) ListPatients(ctx context.Context, userID string) ([]*Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}

	result := []*Patient{}
	for _, p := range m.patients {
		if p.UserID == userID && p.DeletedAt == nil {
			cp := *p
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// UpdatePatient applies the non-nil fields of upd.
func (m *MockStore) UpdatePatient(ctx context.Context, id, userID string, upd PatientUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}

	p, ok := m.activePatient(id, userID)
	if !ok {
		return ErrNotFound
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
		bd := *upd.BirthDate
		p.BirthDate = &bd
	}
	p.UpdatedAt = m.now()
	return nil
}

// DeletePatient stamps DeletedAt on an active patient.
func (m *MockStore) DeletePatient(ctx context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}

	p, ok := m.activePatient(id, userID)
	if !ok {
		return ErrNotFound
	}
	now := m.now()
	p.DeletedAt = &now
	p.UpdatedAt = now
	return nil
}

// CreateSession stores a session for an active patient owned by session.UserID.
func (m *MockStore) CreateSession(ctx context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}

	session.StartTime = session.StartTime.UTC().Truncate(time.Second)
	session.EndTime = session.EndTime.UTC().Truncate(time.Second)
	if !session.StartTime.Before(session.EndTime) {
		return ErrInvalidTimeRange
	}
	if _, ok := m.activePatient(session.PatientID, session.UserID); !ok {
		return ErrNotFound
	}

	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.Status == "" {
		session.Status = SessionStatusScheduled
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = m.now()
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = session.CreatedAt
	}

	s := *session
	m.sessions[s.ID] = &s
	return nil
}

func (m *MockStore) activeSession(id, userID string) (*Session, bool) {
	s, ok := m.sessions[id]
	if !ok || s.DeletedAt != nil || s.UserID != userID {
		return nil, false
	}
	return s, true
}

// GetSession retrieves an active session owned by userID.
func (m *MockStore) GetSession(ctx context.Context, id, userID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}

	s, ok := m.activeSession(id, userID)
	if !ok {
		return nil, ErrNotFound
	}
	result := *s
	return &result, nil
}

// ListSessionsByPatient returns the patient's active sessions, most recent first.
func (m *MockStore) ListSessionsByPatient(ctx context.Context, patientID, userID string) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}

	result := []*Session{}
	for _, s := range m.sessions {
		if s.PatientID != patientID || s.DeletedAt != nil {
			continue
		}
		if userID != "" && s.UserID != userID {
			continue
		}
		cp := *s
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartTime.Equal(result[j].StartTime) {
			return result[i].StartTime.After(result[j].StartTime)
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// UpdateSession applies the non-nil fields of upd after validating the merged range.
func (m *MockStore) UpdateSession(ctx context.Context, id, userID string, upd SessionUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}

	s, ok := m.activeSession(id, userID)
	if !ok {
		return ErrNotFound
	}

	merged := *s
	if upd.StartTime != nil {
		merged.StartTime = upd.StartTime.UTC().Truncate(time.Second)
	}
	if upd.EndTime != nil {
		merged.EndTime = upd.EndTime.UTC().Truncate(time.Second)
	}
	if upd.Notes != nil {
		merged.Notes = *upd.Notes
	}
	if upd.Value != nil {
		merged.Value = *upd.Value
	}
	if upd.Status != nil {
		merged.Status = *upd.Status
	}
	if !merged.StartTime.Before(merged.EndTime) {
		return ErrInvalidTimeRange
	}
	merged.UpdatedAt = m.now()

	*s = merged
	return nil
}

// DeleteSession stamps DeletedAt on an active session.
func (m *MockStore) DeleteSession(ctx context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}

	s, ok := m.activeSession(id, userID)
	if !ok {
		return ErrNotFound
	}
	now := m.now()
	s.DeletedAt = &now
	s.UpdatedAt = now
	return nil
}

// Close is a no-op for the mock store.
func (m *MockStore) Close() error {
	return nil
}

// Ensure MockStore implements Store interface
var _ Store = (*MockStore)(nil)
