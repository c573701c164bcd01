// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	repository "github.com/callsight/callsight/internal/adapters/repository"
	"github.com/callsight/callsight/internal/domain/model"
	"github.com/callsight/callsight/internal/domain/signature"
	"github.com/callsight/callsight/internal/identity"
	"github.com/callsight/callsight/pkg/logger"
	"github.com/callsight/callsight/pkg/metrics"
)

// ErrInvalidCredentials is returned by Login for any bad email/password
// combination. Callers must not reveal which half failed.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service implements the API dependencies for the call-record system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	verifier *signature.Verifier
	tokens   *identity.TokenProvider
	hasher   *identity.Hasher

	// Configuration
	webhookSecret string
	replayWindow  time.Duration
	databaseDSN   string
	seedMappings  map[string]string
	tokenPrivPEM  string
	tokenPubPEM   string
	tokenIssuer   string
	tokenAudience string
	tokenTTL      time.Duration
	bcryptCost    int

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore injects a pre-built store, bypassing DSN-based selection.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithWebhookSecret sets the shared secret for signature verification.
func WithWebhookSecret(secret string) Option {
	return func(s *Service) {
		s.webhookSecret = secret
	}
}

// WithReplayWindow sets the webhook freshness window.
func WithReplayWindow(window time.Duration) Option {
	return func(s *Service) {
		if window > 0 {
			s.replayWindow = window
		}
	}
}

// WithDatabaseDSN selects the Postgres store.
func WithDatabaseDSN(dsn string) Option {
	return func(s *Service) {
		s.databaseDSN = dsn
	}
}

// WithSeedMappings seeds phone-to-client mappings into the memory store.
func WithSeedMappings(mappings map[string]string) Option {
	return func(s *Service) {
		s.seedMappings = mappings
	}
}

// WithTokenPEM sets the PEM material for the token provider. Both empty
// leaves the identity provider unconfigured; login and the read API then
// report a configuration error.
func WithTokenPEM(privatePEM, publicPEM string) Option {
	return func(s *Service) {
		s.tokenPrivPEM = privatePEM
		s.tokenPubPEM = publicPEM
	}
}

// WithTokenSettings sets issuer, audience, and access token lifetime.
func WithTokenSettings(issuer, audience string, ttl time.Duration) Option {
	return func(s *Service) {
		if issuer != "" {
			s.tokenIssuer = issuer
		}
		if audience != "" {
			s.tokenAudience = audience
		}
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// WithBcryptCost tunes the password hashing work factor.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost > 0 {
			s.bcryptCost = cost
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		replayWindow:  signature.DefaultReplayWindow,
		tokenIssuer:   "callsight",
		tokenAudience: "callsight-dashboard",
		tokenTTL:      time.Hour,
		bcryptCost:    12,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the service components. Initialization is idempotent:
// a second Start is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	if s.store == nil {
		if s.databaseDSN != "" {
			st, err := repository.NewPostgresStore(ctx, s.databaseDSN)
			if err != nil {
				return fmt.Errorf("init postgres store: %w", err)
			}
			s.store = st
			s.logger.Info(ctx, "using postgres store")
		} else {
			s.store = repository.NewMemoryStore(repository.WithMappings(s.seedMappings))
			s.logger.Info(ctx, "using in-memory store", logger.Int("seedMappings", len(s.seedMappings)))
		}
	}

	s.verifier = signature.NewVerifier(s.webhookSecret, s.replayWindow)
	if s.webhookSecret == "" {
		s.logger.Warn(ctx, "webhook secret not configured; deliveries will be rejected")
	}

	s.hasher = identity.NewHasher(s.bcryptCost)

	if s.tokenPrivPEM != "" && s.tokenPubPEM != "" {
		tokens, err := identity.NewTokenProviderFromPEM(
			s.tokenPrivPEM, s.tokenPubPEM,
			s.tokenIssuer, s.tokenAudience, s.tokenTTL,
		)
		if err != nil {
			return fmt.Errorf("init token provider: %w", err)
		}
		s.tokens = tokens
	} else {
		s.logger.Warn(ctx, "token keys not configured; login and the read API are disabled")
	}

	s.started = true
	s.logger.Info(ctx, "call-record service started",
		logger.Duration("replayWindow", s.replayWindow),
		logger.Duration("tokenTTL", s.tokenTTL),
	)
	return nil
}

// Stop releases service resources. Safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if s.store != nil {
		s.store.Close()
	}
	s.started = false
	s.logger.Info(context.Background(), "call-record service stopped")
}

// VerifyWebhook checks a delivery's signature and freshness. Pure check;
// the HTTP layer maps each sentinel kind to its status code.
func (s *Service) VerifyWebhook(header string, body []byte, now time.Time) error {
	return s.verifier.Verify(header, body, now)
}

// Ingest processes a verified delivery. Every returned outcome is an
// acknowledged success; only decode and store failures surface as errors.
func (s *Service) Ingest(ctx context.Context, body []byte) (model.IngestOutcome, error) {
	var event model.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return 0, fmt.Errorf("decode webhook event: %w", err)
	}

	if event.Type != model.EventTypeTranscription {
		s.logger.Debug(ctx, "ignoring unrecognized event type", logger.String("type", event.Type))
		metrics.RecordWebhookOutcome(model.OutcomeIgnored.String())
		return model.OutcomeIgnored, nil
	}

	agentNumber := event.AgentNumber()
	if agentNumber == "" {
		return 0, errors.New("event missing agent number")
	}
	conversationID := event.ConversationID()
	if conversationID == "" {
		return 0, errors.New("event missing conversation id")
	}

	mapping, err := s.store.GetMapping(ctx, agentNumber)
	if errors.Is(err, repository.ErrNotFound) {
		// Permanent provisioning gap: acknowledge so the provider stops
		// retrying, and leave the trail in logs and metrics.
		s.logger.Error(ctx, "no client mapping for phone number",
			logger.String("agentNumber", agentNumber),
			logger.String("conversationID", conversationID),
		)
		metrics.RecordWebhookOutcome(model.OutcomeUnmapped.String())
		return model.OutcomeUnmapped, nil
	}
	if err != nil {
		return 0, fmt.Errorf("resolve mapping: %w", err)
	}
	if mapping.ClientID == "" {
		s.logger.Error(ctx, "client mapping is missing its client id",
			logger.String("agentNumber", agentNumber),
		)
		metrics.RecordWebhookOutcome(model.OutcomeBadMapping.String())
		return model.OutcomeBadMapping, nil
	}

	rec := model.CallRecord{
		ConversationID: conversationID,
		Payload:        event.Data,
		ReceivedAt:     time.Now().UTC(),
	}
	start := time.Now()
	if err := s.store.PutCall(ctx, mapping.ClientID, rec); err != nil {
		return 0, fmt.Errorf("store call record: %w", err)
	}
	metrics.RecordStoreLatency("put_call", float64(time.Since(start).Milliseconds()))
	metrics.RecordWebhookOutcome(model.OutcomeStored.String())

	s.logger.Info(ctx, "stored call record",
		logger.String("clientID", mapping.ClientID),
		logger.String("conversationID", conversationID),
	)
	return model.OutcomeStored, nil
}

// ListCalls returns the documents for the given client, newest first.
// The client id must come from a verified identity, never caller input.
func (s *Service) ListCalls(ctx context.Context, clientID string) ([]map[string]any, error) {
	start := time.Now()
	records, err := s.store.ListCalls(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list calls: %w", err)
	}
	metrics.RecordStoreLatency("list_calls", float64(time.Since(start).Milliseconds()))

	docs := make([]map[string]any, len(records))
	for i, rec := range records {
		docs[i] = rec.Document()
	}
	return docs, nil
}

// Signup creates a client account. Input must already be validated.
func (s *Service) Signup(ctx context.Context, email, password string) (model.Client, error) {
	hash, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return model.Client{}, fmt.Errorf("hash password: %w", err)
	}
	client := model.Client{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateClient(ctx, client); err != nil {
		return model.Client{}, err
	}
	metrics.RecordSignup()
	s.logger.Info(ctx, "created client account", logger.String("clientID", client.ID))
	return client, nil
}

// Login verifies credentials and issues an access token.
func (s *Service) Login(ctx context.Context, email, password string) (string, time.Time, error) {
	if s.tokens == nil {
		return "", time.Time{}, identity.ErrNotConfigured
	}
	client, err := s.store.GetClientByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return "", time.Time{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("look up client: %w", err)
	}
	if err := s.hasher.Compare(client.PasswordHash, []byte(password)); err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}
	token, expiresAt, err := s.tokens.IssueAccess(client.ID, client.Email)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("issue token: %w", err)
	}
	return token, expiresAt, nil
}

// TokenVerifier exposes the identity verifier for the auth middleware.
// Returns nil when no keys were configured.
func (s *Service) TokenVerifier() identity.Verifier {
	if s.tokens == nil {
		return nil
	}
	return s.tokens
}
