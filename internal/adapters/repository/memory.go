package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/callsight/callsight/internal/domain/model"
)

// MemoryStore is a mutex-guarded in-memory Store. It is the default when
// no database DSN is configured and the substitute used throughout tests.
// Call records are stored per client, keyed by conversation id, so PutCall
// is naturally an upsert.
type MemoryStore struct {
	mu       sync.RWMutex
	mappings map[string]model.Mapping
	clients  map[string]model.Client // keyed by client id
	emails   map[string]string       // lowercased email -> client id
	calls    map[string]map[string]model.CallRecord
}

// NewMemoryStore creates an empty MemoryStore and applies options.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		mappings: make(map[string]model.Mapping),
		clients:  make(map[string]model.Client),
		emails:   make(map[string]string),
		calls:    make(map[string]map[string]model.CallRecord),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetMapping resolves a phone number to its mapping.
func (s *MemoryStore) GetMapping(_ context.Context, phoneNumber string) (model.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.mappings[phoneNumber]
	if !ok {
		return model.Mapping{}, ErrNotFound
	}
	return m, nil
}

// PutMapping creates or replaces a mapping.
func (s *MemoryStore) PutMapping(_ context.Context, m model.Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mappings[m.PhoneNumber] = m
	return nil
}

// PutCall upserts a call record under clientID.
func (s *MemoryStore) PutCall(_ context.Context, clientID string, rec model.CallRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byConv, ok := s.calls[clientID]
	if !ok {
		byConv = make(map[string]model.CallRecord)
		s.calls[clientID] = byConv
	}
	byConv[rec.ConversationID] = rec
	return nil
}

// ListCalls returns the client's records, newest receipt first.
func (s *MemoryStore) ListCalls(_ context.Context, clientID string) ([]model.CallRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byConv := s.calls[clientID]
	out := make([]model.CallRecord, 0, len(byConv))
	for _, rec := range byConv {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ReceivedAt.After(out[j].ReceivedAt)
	})
	return out, nil
}

// CreateClient stores a new account, enforcing email uniqueness.
func (s *MemoryStore) CreateClient(_ context.Context, c model.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(c.Email)
	if _, taken := s.emails[key]; taken {
		return ErrEmailTaken
	}
	s.clients[c.ID] = c
	s.emails[key] = c.ID
	return nil
}

// GetClientByEmail looks up an account by email (case-insensitive).
func (s *MemoryStore) GetClientByEmail(_ context.Context, email string) (model.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[strings.ToLower(email)]
	if !ok {
		return model.Client{}, ErrNotFound
	}
	return s.clients[id], nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() {}
