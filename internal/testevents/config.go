package testevents

import "time"

// Config holds configuration for the webhook delivery test
type Config struct {
	BaseURL      string        // Base URL of the service
	Secret       string        // Webhook signing secret shared with the service
	NumEvents    int           // Number of deliveries to generate
	Workers      int           // Number of concurrent workers
	Timeout      time.Duration // HTTP request timeout
	PhoneNumbers []string      // Agent numbers to rotate through
	TamperedPct  int           // Percentage of deliveries with a corrupted body
	StalePct     int           // Percentage of deliveries with an expired timestamp
	OutputFile   string        // Output file for generated deliveries
	LogFile      string        // Log file for test output
	Verbose      bool          // Enable verbose logging
}

// Delivery is one signed webhook request ready to be submitted.
type Delivery struct {
	ConversationID string `json:"conversation_id"`
	AgentNumber    string `json:"agent_number"`
	Header         string `json:"signature_header"`
	Body           string `json:"body"`
	Kind           string `json:"kind"` // valid, tampered or stale
}

// Stats holds test statistics
type Stats struct {
	DeliveriesGenerated int
	DeliveriesSubmitted int
	DeliveriesStored    int
	DeliveriesUnmapped  int
	DeliveriesRejected  int
	DeliveriesFailed    int
	StartTime           time.Time
	EndTime             time.Time
	Duration            time.Duration
}
