// ABOUTME: Registration and login on top of the identity store
// ABOUTME: Login failures share one generic error so accounts cannot be enumerated

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/2389/psyflow/internal/store"
)

// Authentication errors
var (
	// ErrInvalidCredentials covers unknown emails, wrong passwords and unusable hashes alike.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrMissingCredentials = errors.New("email and password are required")
)

// Service registers and authenticates users.
type Service struct {
	users  store.IdentityStore
	hasher *Hasher
	logger *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewService creates an auth service over the given identity store.
func NewService(users store.IdentityStore, hasher *Hasher, logger *slog.Logger) *Service {
	if hasher == nil {
		hasher = defaultHasher
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:  users,
		hasher: hasher,
		logger: logger.With("component", "auth"),
	}
}

// Register creates a user with default settings. The user and settings rows are
// written in one transaction. Returns store.ErrEmailExists for a taken email.
func (s *Service) Register(ctx context.Context, name, email, password string) (*store.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &store.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user, nil); err != nil {
		return nil, err
	}

	s.logger.Info("registered user", "user_id", user.ID)
	return user, nil
}

// Login returns the user whose password matches. Every authentication failure
// returns ErrInvalidCredentials; only storage failures differ.
func (s *Service) Login(ctx context.Context, email, password string) (*store.User, error) {
	email = strings.TrimSpace(email)

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Do a dummy bcrypt comparison to maintain constant timing
			s.hasher.Verify(password, s.dummy())
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.logger.Debug("login rejected", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// dummy returns a hash at the configured cost for timing-safe misses.
func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("psyflow-timing-parity")
		if err != nil {
			s.logger.Error("failed to build dummy hash", "error", err)
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}
