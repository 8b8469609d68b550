// ABOUTME: Tests for patient persistence
// ABOUTME: Covers owner scoping, soft delete, ordering and partial updates

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGetPatient(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store, "ana@example.com")

	birth := time.Date(1985, 1, 2, 0, 0, 0, 0, time.UTC)
	patient := &Patient{
		UserID:    user.ID,
		Name:      "Bruno",
		Email:     "bruno@example.com",
		Phone:     "+55 11 99999-0000",
		CPF:       "123.456.789-00",
		BirthDate: &birth,
		Address:   "Rua B, 20",
	}
	require.NoError(t, store.CreatePatient(ctx, patient))
	assert.NotEmpty(t, patient.ID)
	assert.False(t, patient.CreatedAt.IsZero())
	assert.True(t, patient.CreatedAt.Equal(patient.UpdatedAt))

	got, err := store.GetPatient(ctx, patient.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, patient.Name, got.Name)
	assert.Equal(t, patient.Email, got.Email)
	assert.Equal(t, patient.Phone, got.Phone)
	assert.Equal(t, patient.CPF, got.CPF)
	assert.Equal(t, patient.Address, got.Address)
	require.NotNil(t, got.BirthDate)
	assert.True(t, birth.Equal(*got.BirthDate))
	assert.Nil(t, got.DeletedAt)
}

func TestCreatePatient_OptionalFieldsStoredAsNull(t *testing.T) {
	store := newTestStore(t)
	user := createTestUser(t, store, "ana@example.com")
	patient := createTestPatient(t, store, user.ID, "Bruno")

	var nulls int
	err := store.db.QueryRow(`
		SELECT COUNT(*) FROM patients
		WHERE id = ? AND email IS NULL AND phone IS NULL AND cpf IS NULL
		  AND birth_date IS NULL AND address IS NULL
	`, patient.ID).Scan(&nulls)
	require.NoError(t, err)
	assert.Equal(t, 1, nulls)
}

func TestCreatePatient_UnknownUser(t *testing.T) {
	store := newTestStore(t)

	err := store.CreatePatient(context.Background(), &Patient{UserID: "missing", Name: "Bruno"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetPatient_OtherOwner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	owner := createTestUser(t, store, "ana@example.com")
	other := createTestUser(t, store, "caio@example.com")
	patient := createTestPatient(t, store, owner.ID, "Bruno")

	_, err := store.GetPatient(ctx, patient.ID, other.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListPatients_OrderAndScope(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store, "ana@example.com")
	other := createTestUser(t, store, "caio@example.com")

	createTestPatient(t, store, user.ID, "carla")
	createTestPatient(t, store, user.ID, "Bruno")
	createTestPatient(t, store, user.ID, "Alice")
	createTestPatient(t, store, other.ID, "Aaron")

	patients, err := store.ListPatients(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, patients, 3)

	// Byte order puts uppercase before lowercase
	assert.Equal(t, "Alice", patients[0].Name)
	assert.Equal(t, "Bruno", patients[1].Name)
	assert.Equal(t, "carla", patients[2].Name)
}

func TestListPatients_SameNameTieBreakByID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store, "ana@example.com")

	require.NoError(t, store.CreatePatient(ctx, &Patient{ID: "p-b", UserID: user.ID, Name: "Bruno"}))
	require.NoError(t, store.CreatePatient(ctx, &Patient{ID: "p-a", UserID: user.ID, Name: "Bruno"}))

	patients, err := store.ListPatients(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, patients, 2)
	assert.Equal(t, "p-a", patients[0].ID)
	assert.Equal(t, "p-b", patients[1].ID)
}

func TestListPatients_EmptyIsNotNil(t *testing.T) {
	store := newTestStore(t)
	user := createTestUser(t, store, "ana@example.com")

	patients, err := store.ListPatients(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NotNil(t, patients)
	assert.Empty(t, patients)
}

func TestDeletePatient_SoftDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store, "ana@example.com")
	kept := createTestPatient(t, store, user.ID, "Alice")
	deleted := createTestPatient(t, store, user.ID, "Bruno")

	require.NoError(t, store.DeletePatient(ctx, deleted.ID, user.ID))

	patients, err := store.ListPatients(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, patients, 1)
	assert.Equal(t, kept.ID, patients[0].ID)

	_, err = store.GetPatient(ctx, deleted.ID, user.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// The row is still there, only stamped
	var deletedAt string
	err = store.db.QueryRow(`SELECT deleted_at FROM patients WHERE id = ?`, deleted.ID).Scan(&deletedAt)
	require.NoError(t, err)
	assert.NotEmpty(t, deletedAt)
}

func TestDeletePatient_Twice(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store, "ana@example.com")
	patient := createTestPatient(t, store, user.ID, "Bruno")

	require.NoError(t, store.DeletePatient(ctx, patient.ID, user.ID))
	assert.ErrorIs(t, store.DeletePatient(ctx, patient.ID, user.ID), ErrNotFound)
}

func TestDeletePatient_OtherOwner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	owner := createTestUser(t, store, "ana@example.com")
	other := createTestUser(t, store, "caio@example.com")
	patient := createTestPatient(t, store, owner.ID, "Bruno")

	assert.ErrorIs(t, store.DeletePatient(ctx, patient.ID, other.ID), ErrNotFound)

	_, err := store.GetPatient(ctx, patient.ID, owner.ID)
	assert.NoError(t, err)
}

func TestUpdatePatient_Partial(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store, "ana@example.com")

	patient := &Patient{UserID: user.ID, Name: "Bruno", Email: "bruno@example.com", Phone: "1234"}
	require.NoError(t, store.CreatePatient(ctx, patient))

	// Force an older updated_at so the bump is observable at second precision
	_, err := store.db.Exec(`UPDATE patients SET updated_at = '2020-01-01T00:00:00Z' WHERE id = ?`, patient.ID)
	require.NoError(t, err)

	name := "Bruno Souza"
	empty := ""
	require.NoError(t, store.UpdatePatient(ctx, patient.ID, user.ID, PatientUpdate{Name: &name, Phone: &empty}))

	got, err := store.GetPatient(ctx, patient.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bruno Souza", got.Name)
	assert.Equal(t, "bruno@example.com", got.Email)
	assert.Empty(t, got.Phone)
	assert.True(t, got.UpdatedAt.After(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, patient.CreatedAt.Equal(got.CreatedAt))
}

func TestUpdatePatient_ClearBirthDate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store, "ana@example.com")

	birth := time.Date(1985, 1, 2, 0, 0, 0, 0, time.UTC)
	patient := &Patient{UserID: user.ID, Name: "Bruno", BirthDate: &birth}
	require.NoError(t, store.CreatePatient(ctx, patient))

	require.NoError(t, store.UpdatePatient(ctx, patient.ID, user.ID, PatientUpdate{ClearBirthDate: true}))

	got, err := store.GetPatient(ctx, patient.ID, user.ID)
	require.NoError(t, err)
	assert.Nil(t, got.BirthDate)
}

func TestUpdatePatient_DeletedOrForeign(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	owner := createTestUser(t, store, "ana@example.com")
	other := createTestUser(t, store, "caio@example.com")
	patient := createTestPatient(t, store, owner.ID, "Bruno")

	name := "Changed"
	assert.ErrorIs(t, store.UpdatePatient(ctx, patient.ID, other.ID, PatientUpdate{Name: &name}), ErrNotFound)

	require.NoError(t, store.DeletePatient(ctx, patient.ID, owner.ID))
	assert.ErrorIs(t, store.UpdatePatient(ctx, patient.ID, owner.ID, PatientUpdate{Name: &name}), ErrNotFound)
}
