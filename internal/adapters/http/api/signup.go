package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/callsight/callsight/internal/adapters/repository"
	"github.com/callsight/callsight/internal/domain/model"
	"github.com/callsight/callsight/internal/domain/signup"
	"github.com/callsight/callsight/pkg/logger"
)

// SignupDependencies defines the interface for account creation.
type SignupDependencies interface {
	Signup(ctx context.Context, email, password string) (model.Client, error)
}

// SignupHandler handles client account registration.
type SignupHandler struct {
	deps SignupDependencies
}

// NewSignupHandler creates a new signup handler.
func NewSignupHandler(deps SignupDependencies) *SignupHandler {
	return &SignupHandler{deps: deps}
}

type signupResponse struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// HandleSignup handles POST /signup requests. Invalid input answers with
// per-field messages so dashboard forms can surface them inline; a taken
// email is the only conflict the endpoint distinguishes.
func (h *SignupHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	const op = "api.signup"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()

	var req signup.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "Invalid input",
			Details: map[string][]string{"body": {"Request body must be valid JSON."}},
		})
		return
	}

	if fields := signup.Validate(req); fields != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid input", Details: fields})
		return
	}

	client, err := h.deps.Signup(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			writeJSON(w, http.StatusConflict, errorResponse{
				Error: "The email address is already in use by another account.",
			})
			return
		}
		logger.Get().Error(ctx, "signup failed", logger.Error(Wrap(op, err)))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "An unexpected error occurred."})
		return
	}

	writeJSON(w, http.StatusCreated, signupResponse{UID: client.ID, Email: client.Email})
}
