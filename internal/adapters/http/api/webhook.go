package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/callsight/callsight/internal/domain/model"
	"github.com/callsight/callsight/internal/domain/signature"
	"github.com/callsight/callsight/pkg/logger"
	"github.com/callsight/callsight/pkg/metrics"
)

// SignatureHeader carries the provider's timestamp and HMAC tokens.
const SignatureHeader = "Elevenlabs-Signature"

// WebhookDependencies defines the interface for webhook processing.
type WebhookDependencies interface {
	VerifyWebhook(header string, body []byte, now time.Time) error
	Ingest(ctx context.Context, body []byte) (model.IngestOutcome, error)
}

// WebhookHandler handles provider webhook deliveries.
type WebhookHandler struct {
	deps WebhookDependencies
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(deps WebhookDependencies) *WebhookHandler {
	return &WebhookHandler{deps: deps}
}

// HandleWebhook handles POST /webhook/elevenlabs requests.
//
// The body must reach verification in exact original byte form, so it is
// read raw here and never pre-parsed. Each verification failure answers
// with its own status so the provider's operators can tell configuration,
// forgery, and clock problems apart; every post-verification branch is a
// 200 except store failures, whose 500 doubles as the provider's retry
// signal.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	const op = "api.webhook"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()
	metrics.RecordWebhookReceived()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		metrics.RecordWebhookRejected("body_unavailable")
		writeText(w, http.StatusBadRequest, "Could not verify request.")
		return
	}

	if err := h.deps.VerifyWebhook(r.Header.Get(SignatureHeader), body, time.Now()); err != nil {
		h.rejectDelivery(ctx, w, err)
		return
	}

	outcome, err := h.deps.Ingest(ctx, body)
	if err != nil {
		logger.Get().Error(ctx, "webhook ingestion failed", logger.Error(Wrap(op, err)))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Something went wrong on the server!"})
		return
	}

	switch outcome {
	case model.OutcomeUnmapped:
		writeText(w, http.StatusOK, "Event received, but no client mapping found.")
	case model.OutcomeBadMapping:
		writeText(w, http.StatusOK, "Event received, but client document is malformed.")
	default:
		// Stored and ignored deliveries share the plain acknowledgment.
		writeText(w, http.StatusOK, "Event received")
	}
}

// rejectDelivery translates verifier sentinels to the webhook contract.
func (h *WebhookHandler) rejectDelivery(ctx context.Context, w http.ResponseWriter, err error) {
	log := logger.Get()
	switch {
	case errors.Is(err, signature.ErrSecretNotConfigured):
		log.Error(ctx, "webhook secret not configured")
		metrics.RecordWebhookRejected("secret_not_configured")
		writeText(w, http.StatusInternalServerError, "Webhook secret not configured.")
	case errors.Is(err, signature.ErrMissingSignature):
		log.Warn(ctx, "webhook delivery missing signature header")
		metrics.RecordWebhookRejected("signature_missing")
		writeText(w, http.StatusUnauthorized, "Signature missing.")
	case errors.Is(err, signature.ErrMalformedHeader):
		log.Warn(ctx, "webhook delivery has malformed signature header")
		metrics.RecordWebhookRejected("malformed_header")
		writeText(w, http.StatusBadRequest, "Malformed signature header.")
	case errors.Is(err, signature.ErrStaleTimestamp):
		// Distinct from a bad signature so replay and clock-skew issues
		// are separable from forgeries in logs.
		log.Warn(ctx, "webhook delivery timestamp expired")
		metrics.RecordWebhookRejected("stale_timestamp")
		writeText(w, http.StatusForbidden, "Request expired.")
	case errors.Is(err, signature.ErrBodyUnavailable):
		log.Warn(ctx, "webhook delivery body unavailable for verification")
		metrics.RecordWebhookRejected("body_unavailable")
		writeText(w, http.StatusBadRequest, "Could not verify request.")
	default:
		log.Warn(ctx, "webhook delivery signature invalid")
		metrics.RecordWebhookRejected("invalid_signature")
		writeText(w, http.StatusUnauthorized, "Invalid signature.")
	}
}
