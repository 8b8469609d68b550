// Package auth provides password hashing and user authentication for psyflow.
//
// # Credentials
//
// Passwords are hashed with bcrypt at a fixed cost (DefaultCost unless
// auth.bcrypt_cost is configured). The hash string embeds algorithm, cost and
// salt, so verification only needs the stored value:
//
//	hash, err := auth.HashPassword("secret123")
//	ok := auth.VerifyPassword("secret123", hash) // true
//
// VerifyPassword never returns an error. Wrong passwords and malformed hashes
// both report false.
//
// # Registration and Login
//
// Service wraps a store.IdentityStore:
//
//	svc := auth.NewService(st, hasher, logger)
//	user, err := svc.Register(ctx, "Ana", "ana@example.com", "secret123")
//	user, err = svc.Login(ctx, "ana@example.com", "secret123")
//
// Register rejects an empty email or password with ErrMissingCredentials before
// touching storage. Login returns ErrInvalidCredentials for an unknown email, a
// wrong password, or an unusable stored hash, and performs a dummy bcrypt
// comparison for unknown emails so response timing does not reveal which
// accounts exist.
package auth
