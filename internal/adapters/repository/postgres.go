package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/callsight/callsight/internal/domain/model"
)

// uniqueViolation is the Postgres error code for duplicate keys.
const uniqueViolation = "23505"

const schemaDDL = `
CREATE TABLE IF NOT EXISTS phone_client_map (
	phone_number TEXT PRIMARY KEY,
	client_id    TEXT
);
CREATE TABLE IF NOT EXISTS clients (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS calls (
	client_id       TEXT NOT NULL,
	conversation_id TEXT NOT NULL,
	payload         JSONB NOT NULL,
	received_at     TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (client_id, conversation_id)
);
`

// PostgresStore is a Store backed by a pgx connection pool. Call writes
// use INSERT ... ON CONFLICT DO UPDATE so redelivered conversations
// replace the previous record in full.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn, verifies the connection, and ensures
// the schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &PostgresStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// GetMapping resolves a phone number to its mapping.
func (s *PostgresStore) GetMapping(ctx context.Context, phoneNumber string) (model.Mapping, error) {
	var clientID *string
	err := s.pool.QueryRow(ctx,
		`SELECT client_id FROM phone_client_map WHERE phone_number = $1`,
		phoneNumber,
	).Scan(&clientID)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Mapping{}, ErrNotFound
	}
	if err != nil {
		return model.Mapping{}, fmt.Errorf("get mapping: %w", err)
	}
	m := model.Mapping{PhoneNumber: phoneNumber}
	if clientID != nil {
		m.ClientID = *clientID
	}
	return m, nil
}

// PutMapping creates or replaces a mapping.
func (s *PostgresStore) PutMapping(ctx context.Context, m model.Mapping) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO phone_client_map (phone_number, client_id) VALUES ($1, $2)
		 ON CONFLICT (phone_number) DO UPDATE SET client_id = EXCLUDED.client_id`,
		m.PhoneNumber, m.ClientID,
	)
	if err != nil {
		return fmt.Errorf("put mapping: %w", err)
	}
	return nil
}

// PutCall upserts a call record under clientID.
func (s *PostgresStore) PutCall(ctx context.Context, clientID string, rec model.CallRecord) error {
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return fmt.Errorf("encode call payload: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO calls (client_id, conversation_id, payload, received_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (client_id, conversation_id)
		 DO UPDATE SET payload = EXCLUDED.payload, received_at = EXCLUDED.received_at`,
		clientID, rec.ConversationID, payload, rec.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("put call: %w", err)
	}
	return nil
}

// ListCalls returns the client's records, newest receipt first.
func (s *PostgresStore) ListCalls(ctx context.Context, clientID string) ([]model.CallRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT conversation_id, payload, received_at FROM calls
		 WHERE client_id = $1 ORDER BY received_at DESC`,
		clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("list calls: %w", err)
	}
	defer rows.Close()

	var out []model.CallRecord
	for rows.Next() {
		var rec model.CallRecord
		var payload []byte
		if err := rows.Scan(&rec.ConversationID, &payload, &rec.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		if err := json.Unmarshal(payload, &rec.Payload); err != nil {
			return nil, fmt.Errorf("decode call payload: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list calls: %w", err)
	}
	return out, nil
}

// CreateClient stores a new account, translating unique violations on the
// email column into ErrEmailTaken.
func (s *PostgresStore) CreateClient(ctx context.Context, c model.Client) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO clients (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		c.ID, strings.ToLower(c.Email), c.PasswordHash, c.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}

// GetClientByEmail looks up an account by email.
func (s *PostgresStore) GetClientByEmail(ctx context.Context, email string) (model.Client, error) {
	var c model.Client
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM clients WHERE email = $1`,
		strings.ToLower(email),
	).Scan(&c.ID, &c.Email, &c.PasswordHash, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Client{}, ErrNotFound
	}
	if err != nil {
		return model.Client{}, fmt.Errorf("get client: %w", err)
	}
	return c, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
