package api

import (
	"context"
	"net/http"

	"github.com/callsight/callsight/pkg/logger"
)

// CallsDependencies defines the interface for reading stored calls.
type CallsDependencies interface {
	ListCalls(ctx context.Context, clientID string) ([]map[string]any, error)
}

// CallsHandler serves the authenticated call history endpoint.
type CallsHandler struct {
	deps CallsDependencies
}

// NewCallsHandler creates a new calls handler.
func NewCallsHandler(deps CallsDependencies) *CallsHandler {
	return &CallsHandler{deps: deps}
}

// HandleListCalls handles GET /me/calls requests. RequireAuth has already
// resolved the caller, so the client scope comes from the request context
// and never from request input.
func (h *CallsHandler) HandleListCalls(w http.ResponseWriter, r *http.Request) {
	const op = "api.calls"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()

	id, ok := IdentityFrom(ctx)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "An unexpected error occurred."})
		return
	}

	calls, err := h.deps.ListCalls(ctx, id.Subject)
	if err != nil {
		logger.Get().Error(ctx, "listing calls failed", logger.Error(Wrap(op, err)))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "An unexpected error occurred."})
		return
	}
	if calls == nil {
		calls = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, calls)
}
