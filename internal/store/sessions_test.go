// ABOUTME: Tests for therapy session persistence
// ABOUTME: Covers time range checks, owner scoping, ordering and soft delete

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sessionBase = time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)

func createTestSession(t *testing.T, store *SQLiteStore, patient *Patient, start time.Time) *Session {
	t.Helper()

	session := &Session{
		PatientID: patient.ID,
		UserID:    patient.UserID,
		StartTime: start,
		EndTime:   start.Add(50 * time.Minute),
		Value:     150,
	}
	if err := store.CreateSession(context.Background(), session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	return session
}

func TestCreateAndGetSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store, "ana@example.com")
	patient := createTestPatient(t, store, user.ID, "Bruno")

	session := &Session{
		PatientID: patient.ID,
		UserID:    user.ID,
		StartTime: sessionBase,
		EndTime:   sessionBase.Add(50 * time.Minute),
		Notes:     "First session",
		Value:     200,
	}
	require.NoError(t, store.CreateSession(ctx, session))
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, SessionStatusScheduled, session.Status)

	got, err := store.GetSession(ctx, session.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, patient.ID, got.PatientID)
	assert.Equal(t, user.ID, got.UserID)
	assert.True(t, sessionBase.Equal(got.StartTime))
	assert.True(t, sessionBase.Add(50*time.Minute).Equal(got.EndTime))
	assert.Equal(t, "First session", got.Notes)
	assert.Equal(t, 200.0, got.Value)
	assert.Equal(t, SessionStatusScheduled, got.Status)
	assert.Nil(t, got.DeletedAt)
}

func TestCreateSession_InvalidTimeRange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store, "ana@example.com")
	patient := createTestPatient(t, store, user.ID, "Bruno")

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
	}{
		{"end before start", sessionBase, sessionBase.Add(-time.Hour)},
		{"equal times", sessionBase, sessionBase},
		{"equal after truncation", sessionBase, sessionBase.Add(500 * time.Millisecond)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.CreateSession(ctx, &Session{
				PatientID: patient.ID,
				UserID:    user.ID,
				StartTime: tt.start,
				EndTime:   tt.end,
			})
			assert.ErrorIs(t, err, ErrInvalidTimeRange)
		})
	}

	sessions, err := store.ListSessionsByPatient(ctx, patient.ID, user.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestCreateSession_PatientChecks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	owner := createTestUser(t, store, "ana@example.com")
	other := createTestUser(t, store, "caio@example.com")
	patient := createTestPatient(t, store, owner.ID, "Bruno")

	newSession := func(patientID, userID string) *Session {
		return &Session{
			PatientID: patientID,
			UserID:    userID,
			StartTime: sessionBase,
			EndTime:   sessionBase.Add(time.Hour),
		}
	}

	// Unknown patient
	assert.ErrorIs(t, store.CreateSession(ctx, newSession("missing", owner.ID)), ErrNotFound)

	// Patient owned by another user
	assert.ErrorIs(t, store.CreateSession(ctx, newSession(patient.ID, other.ID)), ErrNotFound)

	// Deleted patient
	require.NoError(t, store.DeletePatient(ctx, patient.ID, owner.ID))
	assert.ErrorIs(t, store.CreateSession(ctx, newSession(patient.ID, owner.ID)), ErrNotFound)
}

func TestListSessionsByPatient_MostRecentFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store, "ana@example.com")
	patient := createTestPatient(t, store, user.ID, "Bruno")
	otherPatient := createTestPatient(t, store, user.ID, "Carla")

	early := createTestSession(t, store, patient, sessionBase)
	late := createTestSession(t, store, patient, sessionBase.Add(7*24*time.Hour))
	middle := createTestSession(t, store, patient, sessionBase.Add(24*time.Hour))
	createTestSession(t, store, otherPatient, sessionBase)

	sessions, err := store.ListSessionsByPatient(ctx, patient.ID, user.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	assert.Equal(t, late.ID, sessions[0].ID)
	assert.Equal(t, middle.ID, sessions[1].ID)
	assert.Equal(t, early.ID, sessions[2].ID)
}

func TestListSessionsByPatient_SameStartTieBreakByID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store, "ana@example.com")
	patient := createTestPatient(t, store, user.ID, "Bruno")

	for _, id := range []string{"s-b", "s-a"} {
		require.NoError(t, store.CreateSession(ctx, &Session{
			ID:        id,
			PatientID: patient.ID,
			UserID:    user.ID,
			StartTime: sessionBase,
			EndTime:   sessionBase.Add(time.Hour),
		}))
	}

	sessions, err := store.ListSessionsByPatient(ctx, patient.ID, user.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "s-a", sessions[0].ID)
	assert.Equal(t, "s-b", sessions[1].ID)
}

func TestListSessionsByPatient_OwnerFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	owner := createTestUser(t, store, "ana@example.com")
	other := createTestUser(t, store, "caio@example.com")
	patient := createTestPatient(t, store, owner.ID, "Bruno")
	createTestSession(t, store, patient, sessionBase)

	sessions, err := store.ListSessionsByPatient(ctx, patient.ID, other.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	// Without a user filter every active session of the patient is returned
	sessions, err = store.ListSessionsByPatient(ctx, patient.ID, "")
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestListSessionsByPatient_UnknownPatient(t *testing.T) {
	store := newTestStore(t)

	sessions, err := store.ListSessionsByPatient(context.Background(), "missing", "")
	require.NoError(t, err)
	assert.NotNil(t, sessions)
	assert.Empty(t, sessions)
}

func TestSessionsSurvivePatientDeletion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store, "ana@example.com")
	patient := createTestPatient(t, store, user.ID, "Bruno")
	session := createTestSession(t, store, patient, sessionBase)

	require.NoError(t, store.DeletePatient(ctx, patient.ID, user.ID))

	sessions, err := store.ListSessionsByPatient(ctx, patient.ID, user.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, session.ID, sessions[0].ID)

	got, err := store.GetSession(ctx, session.ID, user.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DeletedAt)
}

func TestUpdateSession_Partial(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store, "ana@example.com")
	patient := createTestPatient(t, store, user.ID, "Bruno")
	session := createTestSession(t, store, patient, sessionBase)

	notes := "Discussed sleep"
	status := SessionStatusCompleted
	require.NoError(t, store.UpdateSession(ctx, session.ID, user.ID, SessionUpdate{Notes: &notes, Status: &status}))

	got, err := store.GetSession(ctx, session.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Discussed sleep", got.Notes)
	assert.Equal(t, SessionStatusCompleted, got.Status)
	assert.Equal(t, 150.0, got.Value)
	assert.True(t, sessionBase.Equal(got.StartTime))
}

func TestUpdateSession_MergedRangeValidated(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store, "ana@example.com")
	patient := createTestPatient(t, store, user.ID, "Bruno")
	session := createTestSession(t, store, patient, sessionBase)

	// Moving only the start past the stored end is rejected
	start := sessionBase.Add(2 * time.Hour)
	err := store.UpdateSession(ctx, session.ID, user.ID, SessionUpdate{StartTime: &start})
	assert.ErrorIs(t, err, ErrInvalidTimeRange)

	got, err := store.GetSession(ctx, session.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, sessionBase.Equal(got.StartTime))

	// Moving both together is fine
	end := start.Add(time.Hour)
	require.NoError(t, store.UpdateSession(ctx, session.ID, user.ID, SessionUpdate{StartTime: &start, EndTime: &end}))

	got, err = store.GetSession(ctx, session.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, start.Equal(got.StartTime))
	assert.True(t, end.Equal(got.EndTime))
}

func TestUpdateSession_OtherOwner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	owner := createTestUser(t, store, "ana@example.com")
	other := createTestUser(t, store, "caio@example.com")
	patient := createTestPatient(t, store, owner.ID, "Bruno")
	session := createTestSession(t, store, patient, sessionBase)

	notes := "hijack"
	err := store.UpdateSession(ctx, session.ID, other.ID, SessionUpdate{Notes: &notes})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	owner := createTestUser(t, store, "ana@example.com")
	other := createTestUser(t, store, "caio@example.com")
	patient := createTestPatient(t, store, owner.ID, "Bruno")
	session := createTestSession(t, store, patient, sessionBase)

	assert.ErrorIs(t, store.DeleteSession(ctx, session.ID, other.ID), ErrNotFound)

	require.NoError(t, store.DeleteSession(ctx, session.ID, owner.ID))

	_, err := store.GetSession(ctx, session.ID, owner.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	sessions, err := store.ListSessionsByPatient(ctx, patient.ID, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	assert.ErrorIs(t, store.DeleteSession(ctx, session.ID, owner.ID), ErrNotFound)
}

func TestScanSession_NullStatusDefaultsToScheduled(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store, "ana@example.com")
	patient := createTestPatient(t, store, user.ID, "Bruno")
	session := createTestSession(t, store, patient, sessionBase)

	_, err := store.db.Exec(`UPDATE sessions SET status = '' WHERE id = ?`, session.ID)
	require.NoError(t, err)

	got, err := store.GetSession(ctx, session.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, SessionStatusScheduled, got.Status)
}
