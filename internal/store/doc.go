// Package store provides persistent storage for psyflow using SQLite.
//
// # Architecture
//
// The store package uses an interface-driven architecture with one interface per
// entity group:
//
//   - IdentityStore: Users and their settings
//   - PatientStore: Patients owned by a user
//   - SessionStore: Therapy sessions owned by a patient and its user
//
// SQLiteStore implements all interfaces in a single struct, allowing easy
// composition while maintaining clear interface boundaries.
//
// # Data Models
//
//   - User: Practitioner account with a bcrypt password hash
//   - Settings: One row per user, created in the same transaction as the user
//   - Patient: Person under care; soft-deleted via deleted_at
//   - Session: Appointment for a patient; soft-deleted via deleted_at
//
// # Concurrency
//
// The store holds a single connection guarded by a mutex. Each exported method
// acquires the mutex once and releases it on every return path, so operations
// are fully serialized. Multi-statement writes run inside one transaction.
//
// # SQLite Configuration
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// Two drivers are supported: "sqlite" (modernc.org/sqlite, the default) and
// "sqlite3" (github.com/mattn/go-sqlite3, requires cgo).
//
// Timestamps are stored as RFC3339 UTC text, so ordering by the column text is
// chronological.
//
// # Error Handling
//
//   - ErrNotFound: Entity missing, soft-deleted, or owned by another user
//   - ErrEmailExists: Registration with an email already in use
//   - ErrInvalidTimeRange: Session start is not before its end
//
// # Testing
//
// Use NewSQLiteStore with a path under t.TempDir() for integration tests.
package store
