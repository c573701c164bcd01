package testevents

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/callsight/callsight/internal/domain/model"
	"github.com/callsight/callsight/internal/domain/signature"
	"github.com/callsight/callsight/pkg/logger"
)

// Constants for random number generation.
const (
	percentDivisor    = 100
	callDurationMax   = 1800
	transcriptPhrases = 6
	staleOffset       = 45 * time.Minute
)

// Delivery kinds.
const (
	kindValid    = "valid"
	kindTampered = "tampered"
	kindStale    = "stale"
)

var agentLines = []string{
	"Thank you for calling, how can I help you today?",
	"Let me pull up your account details.",
	"I can certainly help you with that billing question.",
	"Is there anything else I can do for you?",
	"I've scheduled a follow-up call for next week.",
	"Your request has been escalated to our support team.",
}

// randInt returns a random int in [0, n) using crypto/rand.
func randInt(n int64) int64 {
	v, _ := rand.Int(rand.Reader, big.NewInt(n))
	return v.Int64()
}

// generateDeliveries creates signed webhook deliveries, mixing in tampered
// and stale ones at the configured rates.
func generateDeliveries(ctx context.Context, config *Config, stats *Stats) ([]Delivery, error) {
	logger.Get().Info(ctx, "generating webhook deliveries",
		logger.Int("numEvents", config.NumEvents),
		logger.Int("tamperedPct", config.TamperedPct),
		logger.Int("stalePct", config.StalePct))

	deliveries := make([]Delivery, config.NumEvents)

	type deliveryResult struct {
		index    int
		delivery Delivery
		err      error
	}

	resultChan := make(chan deliveryResult, config.NumEvents)

	// Use worker pool for delivery generation
	workerCount := minInt(config.Workers, config.NumEvents)
	perWorker := config.NumEvents / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * perWorker
		end := start + perWorker
		if worker == workerCount-1 {
			end = config.NumEvents // Last worker gets the remainder
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- deliveryResult{index: i, err: ctx.Err()}
					return
				default:
					d, err := generateSingleDelivery(config, i)
					resultChan <- deliveryResult{index: i, delivery: d, err: err}
				}
			}
		}(start, end)
	}

	for i := 0; i < config.NumEvents; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during delivery generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate delivery %d: %w", result.index, result.err)
			}
			deliveries[result.index] = result.delivery
		}
	}

	stats.DeliveriesGenerated = len(deliveries)
	logger.Get().Info(ctx, "generated deliveries successfully", logger.Int("count", len(deliveries)))

	return deliveries, nil
}

// generateSingleDelivery builds one signed transcription event.
func generateSingleDelivery(config *Config, index int) (Delivery, error) {
	conversationID := "conv_" + uuid.New().String()
	agentNumber := config.PhoneNumbers[index%len(config.PhoneNumbers)]

	event := map[string]any{
		"type": model.EventTypeTranscription,
		"data": map[string]any{
			"conversation_id": conversationID,
			"metadata": map[string]any{
				"phone_call":         map[string]any{"agent_number": agentNumber},
				"call_duration_secs": randInt(callDurationMax),
			},
			"transcript": []map[string]any{
				{"role": "agent", "message": agentLines[randInt(transcriptPhrases)]},
				{"role": "user", "message": "Customer reply " + strconv.Itoa(index)},
			},
		},
	}
	body, err := json.Marshal(event)
	if err != nil {
		return Delivery{}, fmt.Errorf("marshal event: %w", err)
	}

	kind := pickKind(config)
	signedAt := time.Now()
	if kind == kindStale {
		signedAt = signedAt.Add(-staleOffset)
	}
	ts := strconv.FormatInt(signedAt.Unix(), 10)
	header := "t=" + ts + ",v0=" + signature.Sign(config.Secret, ts, body)

	if kind == kindTampered {
		// Corrupt the body after signing so the signature no longer matches.
		body = append(body[:len(body)-1], ' ', '}')
	}

	return Delivery{
		ConversationID: conversationID,
		AgentNumber:    agentNumber,
		Header:         header,
		Body:           string(body),
		Kind:           kind,
	}, nil
}

// pickKind selects the delivery kind according to the configured mix.
func pickKind(config *Config) string {
	roll := int(randInt(percentDivisor))
	switch {
	case roll < config.TamperedPct:
		return kindTampered
	case roll < config.TamperedPct+config.StalePct:
		return kindStale
	default:
		return kindValid
	}
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
