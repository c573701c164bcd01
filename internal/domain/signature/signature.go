// Package signature verifies webhook signatures of the form
// "t=<unix_seconds>,v0=<hex_hmac>". Verification is a pure function of the
// header, the raw body bytes, the shared secret, and the caller's clock.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

// DefaultReplayWindow is how old a signed request may be before it is
// rejected as a possible replay.
const DefaultReplayWindow = 30 * time.Minute

// Sentinel kinds for verification failures. The HTTP layer maps each to a
// distinct status so operators can tell clock problems from forgeries.
var (
	ErrSecretNotConfigured = errors.New("webhook secret not configured")
	ErrMissingSignature    = errors.New("signature missing")
	ErrMalformedHeader     = errors.New("malformed signature header")
	ErrStaleTimestamp      = errors.New("request timestamp expired")
	ErrBodyUnavailable     = errors.New("raw body unavailable")
	ErrInvalidSignature    = errors.New("invalid signature")
)

// Parse extracts the timestamp and signature tokens from the header.
// Parsing is deliberately permissive: unknown keys are ignored, and only
// the absence of t or v0 is an error.
func Parse(header string) (timestamp, sig string, err error) {
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, "t="):
			timestamp = part[len("t="):]
		case strings.HasPrefix(part, "v0="):
			sig = part[len("v0="):]
		}
	}
	if timestamp == "" || sig == "" {
		return "", "", ErrMalformedHeader
	}
	return timestamp, sig, nil
}

// Sign computes the lowercase hex HMAC-SHA256 over "<timestamp>.<body>".
// Shared with the test-webhook generator so both sides agree on the scheme.
func Sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verifier checks webhook deliveries against a shared secret and a replay
// window. It holds no mutable state and is safe for concurrent use.
type Verifier struct {
	secret string
	window time.Duration
}

// NewVerifier builds a Verifier. A non-positive window falls back to
// DefaultReplayWindow. An empty secret is permitted at construction time;
// Verify reports it as a configuration error on first use.
func NewVerifier(secret string, window time.Duration) *Verifier {
	if window <= 0 {
		window = DefaultReplayWindow
	}
	return &Verifier{secret: secret, window: window}
}

// Verify runs the ordered checks; the first failure wins.
//
// The timestamp check only rejects requests older than the window.
// Future-dated timestamps pass, matching the provider's published scheme.
// The final comparison uses hmac.Equal so a mismatch costs the same time
// regardless of where the first differing byte sits.
func (v *Verifier) Verify(header string, body []byte, now time.Time) error {
	if v.secret == "" {
		return ErrSecretNotConfigured
	}
	if header == "" {
		return ErrMissingSignature
	}

	timestamp, sig, err := Parse(header)
	if err != nil {
		return err
	}
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrMalformedHeader
	}

	if now.Sub(time.Unix(ts, 0)) > v.window {
		return ErrStaleTimestamp
	}

	if len(body) == 0 {
		return ErrBodyUnavailable
	}

	expected := Sign(v.secret, timestamp, body)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return ErrInvalidSignature
	}
	return nil
}
