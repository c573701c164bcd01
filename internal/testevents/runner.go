package testevents

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/callsight/callsight/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete webhook delivery test.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting webhook delivery test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("deliveries", config.NumEvents),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Int("tamperedPct", config.TamperedPct),
		logger.Int("stalePct", config.StalePct),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate signed deliveries
	deliveries, err := generateDeliveries(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("delivery generation failed: %w", err)
	}

	// Step 3: Submit deliveries concurrently
	if err := submitDeliveries(ctx, config, deliveries, stats); err != nil {
		return fmt.Errorf("delivery submission failed: %w", err)
	}

	// Step 4: Verify the rejection mix matches what was generated
	if err := verifyResults(ctx, deliveries, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 5: Save deliveries to file
	if err := saveDeliveriesToFile(ctx, config, deliveries); err != nil {
		logger.Get().Warn(ctx, "failed to save deliveries to file", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "test completed successfully")
	return nil
}

// verifyResults checks the service rejected at least as many deliveries as
// were deliberately broken. Unmapped acknowledgments depend on the
// service's provisioning, so they only get reported, not asserted.
func verifyResults(ctx context.Context, deliveries []Delivery, stats *Stats) error {
	var broken int
	for _, d := range deliveries {
		if d.Kind != kindValid {
			broken++
		}
	}

	logger.Get().Info(ctx, "verifying submission results",
		logger.Int("brokenGenerated", broken),
		logger.Int("rejected", stats.DeliveriesRejected))

	if stats.DeliveriesRejected < broken {
		return fmt.Errorf("expected at least %d rejections, saw %d", broken, stats.DeliveriesRejected)
	}
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Accept any 200 response as healthy (the service returns Prometheus metrics)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveDeliveriesToFile saves the generated deliveries to a JSON file.
func saveDeliveriesToFile(ctx context.Context, config *Config, deliveries []Delivery) error {
	if len(deliveries) == 0 {
		return fmt.Errorf("no deliveries to save")
	}

	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_deliveries_" + timestamp + ".json"
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(deliveries); err != nil {
		return fmt.Errorf("failed to encode deliveries: %w", err)
	}

	logger.Get().Info(ctx, "deliveries saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	var successRate, deliveriesPerSecond float64

	if stats.DeliveriesSubmitted > 0 {
		successRate = float64(stats.DeliveriesStored+stats.DeliveriesUnmapped) /
			float64(stats.DeliveriesSubmitted) * 100
	}

	if stats.Duration > 0 {
		deliveriesPerSecond = float64(stats.DeliveriesSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("deliveriesGenerated", stats.DeliveriesGenerated),
		logger.Int("deliveriesSubmitted", stats.DeliveriesSubmitted),
		logger.Int("deliveriesStored", stats.DeliveriesStored),
		logger.Int("deliveriesUnmapped", stats.DeliveriesUnmapped),
		logger.Int("deliveriesRejected", stats.DeliveriesRejected),
		logger.Int("deliveriesFailed", stats.DeliveriesFailed),
		logger.String("duration", stats.Duration.String()),
		logger.Any("acceptRate", successRate),
		logger.Any("deliveriesPerSecond", deliveriesPerSecond))
}
