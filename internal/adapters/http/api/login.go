package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	service "github.com/callsight/callsight/internal/app"
	"github.com/callsight/callsight/internal/identity"
	"github.com/callsight/callsight/pkg/logger"
)

// LoginDependencies defines the interface for credential exchange.
type LoginDependencies interface {
	Login(ctx context.Context, email, password string) (string, time.Time, error)
}

// LoginHandler exchanges client credentials for an access token.
type LoginHandler struct {
	deps LoginDependencies
}

// NewLoginHandler creates a new login handler.
func NewLoginHandler(deps LoginDependencies) *LoginHandler {
	return &LoginHandler{deps: deps}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HandleLogin handles POST /login requests. Unknown email and wrong
// password share one response so the endpoint does not leak which
// accounts exist.
func (h *LoginHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	const op = "api.login"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "Invalid input",
			Details: map[string][]string{"body": {"Request body must be valid JSON."}},
		})
		return
	}

	token, expiresAt, err := h.deps.Login(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Invalid email or password."})
		case errors.Is(err, identity.ErrNotConfigured):
			logger.Get().Error(ctx, "login requested but token signing is not configured")
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "An unexpected error occurred."})
		default:
			logger.Get().Error(ctx, "login failed", logger.Error(Wrap(op, err)))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "An unexpected error occurred."})
		}
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expiresAt})
}
