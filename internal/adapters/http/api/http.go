// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/callsight/callsight/internal/domain/model"
	"github.com/callsight/callsight/internal/identity"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// VerifyWebhook validates a delivery's signature header against the
	// raw body. Pure check; sentinel kinds map to status codes here.
	VerifyWebhook(header string, body []byte, now time.Time) error

	// Ingest processes a verified delivery.
	Ingest(ctx context.Context, body []byte) (model.IngestOutcome, error)

	// ListCalls returns call documents scoped to a client.
	ListCalls(ctx context.Context, clientID string) ([]map[string]any, error)

	// Signup creates a client account from validated input.
	Signup(ctx context.Context, email, password string) (model.Client, error)

	// Login verifies credentials and issues an access token.
	Login(ctx context.Context, email, password string) (string, time.Time, error)

	// TokenVerifier resolves bearer tokens; nil when unconfigured.
	TokenVerifier() identity.Verifier
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	webhookHandler *WebhookHandler
	signupHandler  *SignupHandler
	loginHandler   *LoginHandler
	callsHandler   *CallsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		webhookHandler: NewWebhookHandler(deps),
		signupHandler:  NewSignupHandler(deps),
		loginHandler:   NewLoginHandler(deps),
		callsHandler:   NewCallsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux, deps Dependencies) {
	_ = ctx
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/webhook/elevenlabs", MetricsMiddleware(s.webhookHandler.HandleWebhook, "webhook"))
	mux.HandleFunc("/signup", MetricsMiddleware(s.signupHandler.HandleSignup, "signup"))
	mux.HandleFunc("/login", MetricsMiddleware(s.loginHandler.HandleLogin, "login"))
	mux.HandleFunc("/me/calls", MetricsMiddleware(
		RequireAuth(deps.TokenVerifier(), s.callsHandler.HandleListCalls), "me_calls"))
}

type errorResponse struct {
	Error   string              `json:"error"`
	Details map[string][]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeText sends one of the fixed plain-text acknowledgments the webhook
// provider contract specifies.
func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}
