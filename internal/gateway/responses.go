// ABOUTME: Response envelope and the JSON views of store entities
// ABOUTME: Password hashes never leave this package; empty lists encode as []

package gateway

import (
	"encoding/json"
	"time"

	"github.com/2389/psyflow/internal/store"
)

// Response is the envelope every command returns.
// Exactly one of Data and Error is meaningful, selected by Success.
type Response struct {
	// ID echoes the request id on the stdio transport.
	ID      json.RawMessage `json:"id,omitempty"`
	Success bool            `json:"success"`
	Data    any             `json:"data"`
	Error   *string         `json:"error"`

	// Kind classifies a failure for in-process callers. Not serialized.
	Kind ErrorKind `json:"-"`
}

func succeed(data any) Response {
	return Response{Success: true, Data: data}
}

func fail(kind ErrorKind, message string) Response {
	return Response{Success: false, Error: &message, Kind: kind}
}

// User is the public view of an account.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Settings is the public view of a user's preferences.
type Settings struct {
	ID                   string  `json:"id"`
	UserID               string  `json:"userId"`
	Theme                string  `json:"theme"`
	Currency             string  `json:"currency"`
	NotificationsEnabled bool    `json:"notificationsEnabled"`
	SessionDuration      int     `json:"sessionDuration"`
	DefaultSessionValue  float64 `json:"defaultSessionValue"`
}

// Patient is the public view of a patient record. Absent optional fields are null.
type Patient struct {
	ID        string  `json:"id"`
	UserID    string  `json:"userId"`
	Name      string  `json:"name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	CPF       *string `json:"cpf"`
	BirthDate *string `json:"birthDate"`
	Address   *string `json:"address"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}

// Session is the public view of a therapy session.
type Session struct {
	ID        string  `json:"id"`
	PatientID string  `json:"patientId"`
	UserID    string  `json:"userId"`
	StartTime string  `json:"startTime"`
	EndTime   string  `json:"endTime"`
	Notes     *string `json:"notes"`
	Value     float64 `json:"value"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}

// RenderedNotes carries a session's notes converted to HTML.
type RenderedNotes struct {
	ID   string `json:"id"`
	HTML string `json:"html"`
}

func newUser(u *store.User) User {
	return User{ID: u.ID, Name: u.Name, Email: u.Email}
}

func newSettings(s *store.Settings) Settings {
	return Settings{
		ID:                   s.ID,
		UserID:               s.UserID,
		Theme:                s.Theme,
		Currency:             s.Currency,
		NotificationsEnabled: s.NotificationsEnabled,
		SessionDuration:      s.SessionDuration,
		DefaultSessionValue:  s.DefaultSessionValue,
	}
}

func newPatient(p *store.Patient) Patient {
	out := Patient{
		ID:        p.ID,
		UserID:    p.UserID,
		Name:      p.Name,
		Email:     optional(p.Email),
		Phone:     optional(p.Phone),
		CPF:       optional(p.CPF),
		Address:   optional(p.Address),
		CreatedAt: formatTime(p.CreatedAt),
		UpdatedAt: formatTime(p.UpdatedAt),
	}
	if p.BirthDate != nil {
		d := p.BirthDate.Format(time.DateOnly)
		out.BirthDate = &d
	}
	return out
}

func newPatients(ps []*store.Patient) []Patient {
	out := make([]Patient, 0, len(ps))
	for _, p := range ps {
		out = append(out, newPatient(p))
	}
	return out
}

func newSession(s *store.Session) Session {
	return Session{
		ID:        s.ID,
		PatientID: s.PatientID,
		UserID:    s.UserID,
		StartTime: formatTime(s.StartTime),
		EndTime:   formatTime(s.EndTime),
		Notes:     optional(s.Notes),
		Value:     s.Value,
		Status:    s.Status,
		CreatedAt: formatTime(s.CreatedAt),
		UpdatedAt: formatTime(s.UpdatedAt),
	}
}

func newSessions(ss []*store.Session) []Session {
	out := make([]Session, 0, len(ss))
	for _, s := range ss {
		out = append(out, newSession(s))
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
