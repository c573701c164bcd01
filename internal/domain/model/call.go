// Package model contains domain models passed between layers.
package model

import "time"

// EventTypeTranscription is the only webhook event kind this system persists.
// Other kinds are acknowledged and ignored so new provider events never turn
// into delivery failures.
const EventTypeTranscription = "post_call_transcription"

// CallPayload is the provider's event data, treated as an opaque document.
// Only conversation_id and metadata.phone_call.agent_number are interpreted;
// everything else (transcript, metadata, analysis, ...) passes through.
type CallPayload map[string]any

// WebhookEvent mirrors the provider's webhook envelope.
type WebhookEvent struct {
	Type string      `json:"type"`
	Data CallPayload `json:"data"`
}

// ConversationID returns the unique call identifier, or "" if absent.
func (e WebhookEvent) ConversationID() string {
	s, _ := e.Data["conversation_id"].(string)
	return s
}

// AgentNumber returns data.metadata.phone_call.agent_number, or "" if any
// intermediate object is absent or the wrong shape.
func (e WebhookEvent) AgentNumber() string {
	meta, _ := e.Data["metadata"].(map[string]any)
	phoneCall, _ := meta["phone_call"].(map[string]any)
	s, _ := phoneCall["agent_number"].(string)
	return s
}

// Mapping resolves a provisioned phone line to the owning client account.
// Provisioning happens out-of-band; ingestion only ever reads these.
type Mapping struct {
	PhoneNumber string `json:"phone_number"`
	ClientID    string `json:"client_id"`
}

// CallRecord is a persisted call, keyed by (client id, conversation id).
// Writes are whole-record replaces: re-delivering a conversation id
// overwrites the previous record (last-write-wins).
type CallRecord struct {
	ConversationID string
	Payload        CallPayload
	ReceivedAt     time.Time
}

// Document renders the record the way the dashboard consumes it: the
// original payload fields plus the record key and server receipt time.
func (r CallRecord) Document() map[string]any {
	doc := make(map[string]any, len(r.Payload)+2)
	for k, v := range r.Payload {
		doc[k] = v
	}
	doc["id"] = r.ConversationID
	doc["receivedAt"] = r.ReceivedAt.UTC().Format(time.RFC3339Nano)
	return doc
}

// Client is a signed-up account. The ID doubles as the storage scope for
// the account's call records.
type Client struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// IngestOutcome describes which branch the ingestor took for an accepted
// delivery. Every outcome is acknowledged with HTTP 200; the distinction
// exists for logs, metrics, and the fixed acknowledgment text.
type IngestOutcome int

const (
	// OutcomeStored means a call record was written.
	OutcomeStored IngestOutcome = iota
	// OutcomeIgnored means the event kind is not modeled here.
	OutcomeIgnored
	// OutcomeUnmapped means no client is provisioned for the phone line.
	OutcomeUnmapped
	// OutcomeBadMapping means the mapping exists but carries no client id.
	OutcomeBadMapping
)

// String returns a stable label for logs and metrics.
func (o IngestOutcome) String() string {
	switch o {
	case OutcomeStored:
		return "stored"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeUnmapped:
		return "unmapped"
	case OutcomeBadMapping:
		return "bad_mapping"
	default:
		return "unknown"
	}
}
