package testevents

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/callsight/callsight/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "test_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the webhook test tool.
func ShowHelp() {
	os.Stdout.WriteString(`Callsight Webhook Test Tool
===========================

A concurrent tool for exercising the webhook ingestion endpoint with
signed, tampered and expired deliveries.

Usage:
  go run cmd/test-webhooks/main.go -secret <webhook secret> [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:8081")
  -secret string
        Webhook signing secret shared with the service (required)
  -events int
        Number of deliveries to generate and submit (default 1000)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -phones string
        Comma-separated agent numbers to rotate through
  -tampered int
        Percentage of deliveries with a corrupted body (default 5)
  -stale int
        Percentage of deliveries with an expired timestamp (default 5)
  -output string
        Output file for generated deliveries (default: generated_deliveries_TIMESTAMP.json)
  -log string
        Log file for test output (default: test_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Exercise a local service with the default mix
  go run cmd/test-webhooks/main.go -secret whsec_dev

  # Heavier load against a staging host
  go run cmd/test-webhooks/main.go -secret whsec_dev -events 50000 -workers 16 -url http://staging:8081

  # Only valid deliveries for known numbers
  go run cmd/test-webhooks/main.go -secret whsec_dev -tampered 0 -stale 0 -phones "+15550100,+15550200"
`)
}
