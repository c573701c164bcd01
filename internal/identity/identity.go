// Package identity issues and verifies the bearer credentials that scope
// read access to call records.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrInvalidToken covers every verification failure: malformed,
	// expired, wrong issuer or audience, bad signature. Callers get one
	// rejection; the specific cause goes to logs only.
	ErrInvalidToken = errors.New("invalid token")

	// ErrNotConfigured is returned when no signing keys were provided.
	ErrNotConfigured = errors.New("identity provider not configured")
)

// Identity is the request-scoped result of a verified credential. It is
// never persisted.
type Identity struct {
	Subject string
	Email   string
}

// Verifier validates a bearer token and resolves the identity behind it.
// Every request is verified independently; implementations must not cache
// results.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}
