// Package repository defines the record store interface and errors.
package repository

import (
	"context"

	"github.com/callsight/callsight/internal/domain/model"
)

// Store provides access to phone mappings, client accounts, and call
// records. It is the narrow contract the rest of the system depends on;
// any implementation with these semantics substitutes, including the
// in-memory store used as a test double.
type Store interface {
	// GetMapping resolves a phone number to its provisioned mapping.
	// Returns ErrNotFound when the number is unprovisioned. A mapping
	// with an empty ClientID is returned as-is; the caller decides how
	// to treat malformed provisioning.
	GetMapping(ctx context.Context, phoneNumber string) (model.Mapping, error)

	// PutMapping creates or replaces a phone-to-client mapping.
	// Provisioning is an operator concern; ingestion never calls this.
	PutMapping(ctx context.Context, m model.Mapping) error

	// PutCall writes a call record under clientID, keyed by the record's
	// conversation id. Writes are unconditional upserts: the same
	// conversation id overwrites in full (last-write-wins).
	PutCall(ctx context.Context, clientID string, rec model.CallRecord) error

	// ListCalls returns every call record scoped to clientID, newest
	// receipt first.
	ListCalls(ctx context.Context, clientID string) ([]model.CallRecord, error)

	// CreateClient stores a new client account. Returns ErrEmailTaken
	// when the email is already registered.
	CreateClient(ctx context.Context, c model.Client) error

	// GetClientByEmail looks up an account by email. Returns ErrNotFound
	// when no account exists.
	GetClientByEmail(ctx context.Context, email string) (model.Client, error)

	// Close releases any underlying resources.
	Close()
}
