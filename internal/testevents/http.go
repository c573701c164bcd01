package testevents

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// SignatureHeader is the header name the service verifies.
const SignatureHeader = "Elevenlabs-Signature"

// Submission result labels.
const (
	resultStored   = "stored"
	resultUnmapped = "unmapped"
	resultRejected = "rejected"
	resultFailed   = "failed"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(url string) (*http.Response, error) {
	return c.client.Get(url)
}

// PostDelivery submits one signed webhook request.
func (c *HTTPClient) PostDelivery(ctx context.Context, url string, d Delivery) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(d.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, d.Header)
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submitDeliveries submits deliveries concurrently using worker pools
func submitDeliveries(ctx context.Context, config *Config, deliveries []Delivery, stats *Stats) error {
	log.Printf("Submitting %d deliveries with %d workers...", len(deliveries), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/webhook/elevenlabs"

	// Counters for statistics
	var (
		stored    int64
		unmapped  int64
		rejected  int64
		failed    int64
		submitted int64
	)

	// Progress reporting
	var lastReport time.Time
	reportInterval := 1 * time.Second

	// Create worker pool
	deliveryChan := make(chan Delivery, config.Workers*2)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for d := range deliveryChan {
				select {
				case <-ctx.Done():
					return
				default:
					result := submitSingleDelivery(ctx, client, url, d)

					atomic.AddInt64(&submitted, 1)
					switch result {
					case resultStored:
						atomic.AddInt64(&stored, 1)
					case resultUnmapped:
						atomic.AddInt64(&unmapped, 1)
					case resultRejected:
						atomic.AddInt64(&rejected, 1)
					case resultFailed:
						atomic.AddInt64(&failed, 1)
					}

					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						total := atomic.LoadInt64(&submitted)
						st := atomic.LoadInt64(&stored)
						un := atomic.LoadInt64(&unmapped)
						rej := atomic.LoadInt64(&rejected)
						fail := atomic.LoadInt64(&failed)

						if config.Verbose {
							log.Printf("Progress: %d/%d submitted (stored: %d, unmapped: %d, rejected: %d, failed: %d)",
								total, len(deliveries), st, un, rej, fail)
						} else {
							fmt.Printf("\rSubmitted: %d/%d (stored: %d, unmapped: %d, rejected: %d, failed: %d)",
								total, len(deliveries), st, un, rej, fail)
						}
					}
				}
			}
		}()
	}

	// Send deliveries to workers
	go func() {
		defer close(deliveryChan)
		for _, d := range deliveries {
			select {
			case <-ctx.Done():
				return
			case deliveryChan <- d:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	if !config.Verbose {
		fmt.Println() // New line after progress indicator
	}

	stats.DeliveriesSubmitted = int(atomic.LoadInt64(&submitted))
	stats.DeliveriesStored = int(atomic.LoadInt64(&stored))
	stats.DeliveriesUnmapped = int(atomic.LoadInt64(&unmapped))
	stats.DeliveriesRejected = int(atomic.LoadInt64(&rejected))
	stats.DeliveriesFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`Delivery submission completed:
   Stored: %d
   Unmapped: %d
   Rejected: %d
   Failed: %d
`, stats.DeliveriesStored, stats.DeliveriesUnmapped, stats.DeliveriesRejected, stats.DeliveriesFailed)

	return nil
}

// submitSingleDelivery submits one delivery and classifies the response.
func submitSingleDelivery(ctx context.Context, client *HTTPClient, url string, d Delivery) string {
	resp, err := client.PostDelivery(ctx, url, d)
	if err != nil {
		return resultFailed
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return resultFailed
	}

	switch resp.StatusCode {
	case http.StatusOK:
		if strings.Contains(string(body), "no client mapping") {
			return resultUnmapped
		}
		return resultStored
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		// Expected for tampered and stale deliveries
		return resultRejected
	default:
		return resultFailed
	}
}
