// ABOUTME: Typed request payloads for every gateway command
// ABOUTME: Decoding rejects wrong-typed fields and validation runs before storage access

package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/2389/psyflow/internal/store"
)

// validator is implemented by requests with field rules beyond JSON types.
type validator interface {
	validate() error
}

// decode unmarshals payload into a T and validates it. An empty or null
// payload decodes as the zero value, so required-field checks still apply.
func decode[T any](payload json.RawMessage) (*T, error) {
	var req T

	body := bytes.TrimSpace(payload)
	if len(body) > 0 && !bytes.Equal(body, []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			return nil, decodeError(err)
		}
		if _, err := dec.Token(); !errors.Is(err, io.EOF) {
			return nil, invalid("", "payload is not valid JSON")
		}
	}

	if v, ok := any(&req).(validator); ok {
		if err := v.validate(); err != nil {
			return nil, err
		}
	}
	return &req, nil
}

func decodeError(err error) error {
	// The decoder reports unknown keys only through its message.
	if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		return invalid("", "unknown field "+field)
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return invalid(typeErr.Field, fmt.Sprintf("must be a %s", jsonTypeName(typeErr.Type.Kind().String())))
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return invalid("", "payload is not valid JSON")
	}
	return invalid("", "payload must be a JSON object")
}

func jsonTypeName(kind string) string {
	switch kind {
	case "string":
		return "string"
	case "bool":
		return "boolean"
	case "int", "int64":
		return "integer"
	case "float64":
		return "number"
	default:
		return kind
	}
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid(field, "is required")
	}
	return nil
}

// parseTimestamp accepts RFC3339 with optional fractional seconds.
func parseTimestamp(field, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, invalid(field, "must be an RFC3339 timestamp")
	}
	return t.UTC(), nil
}

// parseDate accepts YYYY-MM-DD or a full RFC3339 timestamp. A timestamp keeps
// the calendar day of its own offset.
func parseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, invalid(field, "must be a date (YYYY-MM-DD)")
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

func checkStatus(status string) error {
	if !store.IsValidSessionStatus(status) {
		return invalid("status", "must be one of "+strings.Join(store.ValidSessionStatuses, ", "))
	}
	return nil
}

func checkValue(value float64) error {
	if value < 0 {
		return invalid("value", "must not be negative")
	}
	return nil
}

// RegisterRequest creates an account. Empty credentials are rejected by the auth service.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest authenticates an account.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserRequest addresses data owned by a single user.
type UserRequest struct {
	UserID string `json:"userId"`
}

func (r *UserRequest) validate() error {
	return required("userId", r.UserID)
}

// EntityRequest addresses one patient or session of a user.
type EntityRequest struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
}

func (r *EntityRequest) validate() error {
	if err := required("id", r.ID); err != nil {
		return err
	}
	return required("userId", r.UserID)
}

// UpdateSettingsRequest changes the fields present in the payload.
type UpdateSettingsRequest struct {
	UserID               string   `json:"userId"`
	Theme                *string  `json:"theme"`
	Currency             *string  `json:"currency"`
	NotificationsEnabled *bool    `json:"notificationsEnabled"`
	SessionDuration      *int     `json:"sessionDuration"`
	DefaultSessionValue  *float64 `json:"defaultSessionValue"`
}

func (r *UpdateSettingsRequest) validate() error {
	if err := required("userId", r.UserID); err != nil {
		return err
	}
	if r.Theme != nil && strings.TrimSpace(*r.Theme) == "" {
		return invalid("theme", "cannot be empty")
	}
	if r.Currency != nil && strings.TrimSpace(*r.Currency) == "" {
		return invalid("currency", "cannot be empty")
	}
	if r.SessionDuration != nil && *r.SessionDuration <= 0 {
		return invalid("sessionDuration", "must be positive")
	}
	if r.DefaultSessionValue != nil && *r.DefaultSessionValue < 0 {
		return invalid("defaultSessionValue", "must not be negative")
	}
	return nil
}

func (r *UpdateSettingsRequest) update() store.SettingsUpdate {
	return store.SettingsUpdate{
		Theme:                r.Theme,
		Currency:             r.Currency,
		NotificationsEnabled: r.NotificationsEnabled,
		SessionDuration:      r.SessionDuration,
		DefaultSessionValue:  r.DefaultSessionValue,
	}
}

// CreatePatientRequest creates a patient for userId.
type CreatePatientRequest struct {
	UserID    string  `json:"userId"`
	Name      string  `json:"name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	CPF       *string `json:"cpf"`
	BirthDate *string `json:"birthDate"`
	Address   *string `json:"address"`

	birthDate *time.Time
}

func (r *CreatePatientRequest) validate() error {
	if err := required("userId", r.UserID); err != nil {
		return err
	}
	if err := required("name", r.Name); err != nil {
		return err
	}
	if r.BirthDate != nil && strings.TrimSpace(*r.BirthDate) != "" {
		d, err := parseDate("birthDate", *r.BirthDate)
		if err != nil {
			return err
		}
		r.birthDate = &d
	}
	return nil
}

func (r *CreatePatientRequest) patient() *store.Patient {
	return &store.Patient{
		UserID:    r.UserID,
		Name:      strings.TrimSpace(r.Name),
		Email:     deref(r.Email),
		Phone:     deref(r.Phone),
		CPF:       deref(r.CPF),
		BirthDate: r.birthDate,
		Address:   deref(r.Address),
	}
}

// UpdatePatientRequest changes the fields present in the payload. An explicit
// empty string clears an optional field; omitted or null fields are kept.
type UpdatePatientRequest struct {
	ID        string  `json:"id"`
	UserID    string  `json:"userId"`
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	CPF       *string `json:"cpf"`
	BirthDate *string `json:"birthDate"`
	Address   *string `json:"address"`

	upd store.PatientUpdate
}

func (r *UpdatePatientRequest) validate() error {
	if err := required("id", r.ID); err != nil {
		return err
	}
	if err := required("userId", r.UserID); err != nil {
		return err
	}

	r.upd = store.PatientUpdate{
		Email:   trimmed(r.Email),
		Phone:   trimmed(r.Phone),
		CPF:     trimmed(r.CPF),
		Address: trimmed(r.Address),
	}
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		if name == "" {
			return invalid("name", "cannot be empty")
		}
		r.upd.Name = &name
	}
	if r.BirthDate != nil {
		if strings.TrimSpace(*r.BirthDate) == "" {
			r.upd.ClearBirthDate = true
		} else {
			d, err := parseDate("birthDate", *r.BirthDate)
			if err != nil {
				return err
			}
			r.upd.BirthDate = &d
		}
	}
	return nil
}

// CreateSessionRequest schedules a session for one of userId's patients.
type CreateSessionRequest struct {
	UserID    string   `json:"userId"`
	PatientID string   `json:"patientId"`
	StartTime string   `json:"startTime"`
	EndTime   string   `json:"endTime"`
	Notes     *string  `json:"notes"`
	Value     *float64 `json:"value"`
	Status    *string  `json:"status"`

	start, end time.Time
}

func (r *CreateSessionRequest) validate() error {
	for _, f := range []struct{ name, value string }{
		{"userId", r.UserID},
		{"patientId", r.PatientID},
		{"startTime", r.StartTime},
		{"endTime", r.EndTime},
	} {
		if err := required(f.name, f.value); err != nil {
			return err
		}
	}

	var err error
	if r.start, err = parseTimestamp("startTime", r.StartTime); err != nil {
		return err
	}
	if r.end, err = parseTimestamp("endTime", r.EndTime); err != nil {
		return err
	}
	if r.Value != nil {
		if err := checkValue(*r.Value); err != nil {
			return err
		}
	}
	if status := deref(r.Status); status != "" {
		if err := checkStatus(status); err != nil {
			return err
		}
	}
	return nil
}

func (r *CreateSessionRequest) session() *store.Session {
	s := &store.Session{
		PatientID: r.PatientID,
		UserID:    r.UserID,
		StartTime: r.start,
		EndTime:   r.end,
		Status:    store.SessionStatusScheduled,
	}
	if r.Notes != nil {
		s.Notes = *r.Notes
	}
	if r.Value != nil {
		s.Value = *r.Value
	}
	// An empty status means the default.
	if status := deref(r.Status); status != "" {
		s.Status = status
	}
	return s
}

// ListSessionsRequest lists a patient's sessions. UserID narrows the listing
// to sessions owned by that user when present.
type ListSessionsRequest struct {
	PatientID string `json:"patientId"`
	UserID    string `json:"userId"`
}

func (r *ListSessionsRequest) validate() error {
	return required("patientId", r.PatientID)
}

// UpdateSessionRequest changes the fields present in the payload.
type UpdateSessionRequest struct {
	ID        string   `json:"id"`
	UserID    string   `json:"userId"`
	StartTime *string  `json:"startTime"`
	EndTime   *string  `json:"endTime"`
	Notes     *string  `json:"notes"`
	Value     *float64 `json:"value"`
	Status    *string  `json:"status"`

	upd store.SessionUpdate
}

func (r *UpdateSessionRequest) validate() error {
	if err := required("id", r.ID); err != nil {
		return err
	}
	if err := required("userId", r.UserID); err != nil {
		return err
	}

	r.upd = store.SessionUpdate{Notes: r.Notes, Value: r.Value, Status: r.Status}
	if r.StartTime != nil {
		t, err := parseTimestamp("startTime", *r.StartTime)
		if err != nil {
			return err
		}
		r.upd.StartTime = &t
	}
	if r.EndTime != nil {
		t, err := parseTimestamp("endTime", *r.EndTime)
		if err != nil {
			return err
		}
		r.upd.EndTime = &t
	}
	if r.Value != nil {
		if err := checkValue(*r.Value); err != nil {
			return err
		}
	}
	if r.Status != nil {
		if err := checkStatus(*r.Status); err != nil {
			return err
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
