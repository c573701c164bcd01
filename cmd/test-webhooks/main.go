package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/callsight/callsight/internal/testevents"
)

// Default configuration constants.
const (
	defaultNumEvents   = 1000
	defaultTamperedPct = 5
	defaultStalePct    = 5
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:8081", "Base URL of the service")
		secret      = flag.String("secret", "", "Webhook signing secret shared with the service")
		numEvents   = flag.Int("events", defaultNumEvents, "Number of deliveries to generate and submit")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		phones      = flag.String("phones", "+15550100,+15550200,+15559999", "Comma-separated agent numbers to rotate through")
		tamperedPct = flag.Int("tampered", defaultTamperedPct, "Percentage of deliveries with a corrupted body")
		stalePct    = flag.Int("stale", defaultStalePct, "Percentage of deliveries with an expired timestamp")
		outputFile  = flag.String("output", "", "Output file for generated deliveries (default: generated_deliveries_TIMESTAMP.json)")
		logFile     = flag.String("log", "", "Log file for test output (default: test_log_TIMESTAMP.log)")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testevents.ShowHelp()
		return
	}

	if *secret == "" {
		os.Stderr.WriteString("A webhook secret is required; see -help\n")
		return
	}

	// Setup logging
	if err := testevents.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	// Create test configuration
	config := &testevents.Config{
		BaseURL:      *baseURL,
		Secret:       *secret,
		NumEvents:    *numEvents,
		Workers:      *workers,
		Timeout:      *timeout,
		PhoneNumbers: strings.Split(*phones, ","),
		TamperedPct:  *tamperedPct,
		StalePct:     *stalePct,
		OutputFile:   *outputFile,
		LogFile:      *logFile,
		Verbose:      *verbose,
	}

	// Run the test
	if err := testevents.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		return
	}
}
