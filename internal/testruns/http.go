package testruns

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	return c.send(ctx, http.MethodPost, url, body)
}

// Put performs a PUT request with JSON body
func (c *HTTPClient) Put(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	return c.send(ctx, http.MethodPut, url, body)
}

func (c *HTTPClient) send(ctx context.Context, method, url string, body interface{}) (*http.Response, error) {
	jsonData, err := marshalJSON(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// marshalJSON marshals a struct to JSON
func marshalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// unmarshalJSON unmarshals JSON to a struct
func unmarshalJSON(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// ensureVariant creates or updates the variant the runs target.
func ensureVariant(ctx context.Context, config *Config) error {
	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/variants/" + config.VariantID

	body := map[string]interface{}{
		"unrestricted_tier": config.Tier,
		"zero_aid_tier":     config.Tier,
	}

	resp, err := client.Put(ctx, url, body)
	if err != nil {
		return fmt.Errorf("failed to upsert variant: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != StatusOK {
		payload, _ := readResponseBody(resp)
		return fmt.Errorf("variant upsert failed with HTTP %d: %s", resp.StatusCode, string(payload))
	}
	return nil
}

// submitRuns submits runs concurrently using worker pools
func submitRuns(ctx context.Context, config *Config, runs []RunSubmission, stats *Stats) error {
	log.Printf("submitting %d runs with %d workers...", len(runs), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/runs"

	// Counters for statistics
	var (
		successful int64
		duplicate  int64
		failed     int64
		submitted  int64
	)

	// Progress reporting
	var lastReport time.Time
	reportInterval := 1 * time.Second

	// Create worker pool
	runChan := make(chan RunSubmission, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for run := range runChan {
				select {
				case <-ctx.Done():
					return
				default:
					result := submitSingleRun(ctx, client, url, run)

					// Update counters
					atomic.AddInt64(&submitted, 1)
					switch result {
					case "success":
						atomic.AddInt64(&successful, 1)
					case "duplicate":
						atomic.AddInt64(&duplicate, 1)
					case "failed":
						atomic.AddInt64(&failed, 1)
					}

					// Progress reporting
					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						total := atomic.LoadInt64(&submitted)
						succ := atomic.LoadInt64(&successful)
						dup := atomic.LoadInt64(&duplicate)
						fail := atomic.LoadInt64(&failed)

						log.Printf("progress: %d/%d submitted (success: %d, duplicate: %d, failed: %d)",
							total, len(runs), succ, dup, fail)
					}
				}
			}
		}()
	}

	// Send runs to workers
	go func() {
		defer close(runChan)
		for _, run := range runs {
			select {
			case <-ctx.Done():
				return
			case runChan <- run:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Update stats
	stats.RunsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.RunsSuccessful = int(atomic.LoadInt64(&successful))
	stats.RunsDuplicate = int(atomic.LoadInt64(&duplicate))
	stats.RunsFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`run submission completed:
   Successful: %d
   Duplicate: %d
   Failed: %d
`, stats.RunsSuccessful, stats.RunsDuplicate, stats.RunsFailed)

	return nil
}

// submitSingleRun submits a single run and returns the result
func submitSingleRun(ctx context.Context, client *HTTPClient, url string, run RunSubmission) string {
	resp, err := client.Post(ctx, url, run)
	if err != nil {
		return "failed"
	}
	defer resp.Body.Close()

	// Read response body
	body, err := readResponseBody(resp)
	if err != nil {
		return "failed"
	}

	// Parse response based on status code
	switch resp.StatusCode {
	case StatusCreated:
		// Created - new run
		return "success"
	case StatusOK:
		// OK - duplicate submission token
		var ack AckResponse
		if err := unmarshalJSON(body, &ack); err == nil && ack.Duplicate {
			return "duplicate"
		}
		return "duplicate" // Assume duplicate for 200 even if parsing fails
	default:
		// Error
		return "failed"
	}
}
