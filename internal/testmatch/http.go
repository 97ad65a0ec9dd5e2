package testmatch

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
func (c *HTTPClient) Get(url string) (*http.Response, error) {
	return c.client.Get(url)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(url string, body interface{}) (*http.Response, error) {
	jsonData, err := marshalJSON(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
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

// registerCandidates registers candidates concurrently using worker pools
func registerCandidates(ctx context.Context, config *Config, candidates []Candidate, stats *Stats) error {
	log.Printf("Registering %d candidates with %d workers...", len(candidates), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/candidates"

	// Counters for statistics
	var (
		successful int64
		failed     int64
		submitted  int64
	)

	// Progress reporting
	var lastReport time.Time
	reportInterval := 1 * time.Second

	// Create worker pool
	candidateChan := make(chan Candidate, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for candidate := range candidateChan {
				select {
				case <-ctx.Done():
					return
				default:
					if postRegistration(client, url, candidate) {
						atomic.AddInt64(&successful, 1)
					} else {
						atomic.AddInt64(&failed, 1)
					}
					atomic.AddInt64(&submitted, 1)

					// Progress reporting
					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						total := atomic.LoadInt64(&submitted)
						succ := atomic.LoadInt64(&successful)
						fail := atomic.LoadInt64(&failed)
						log.Printf("Progress: %d/%d registered (success: %d, failed: %d)",
							total, len(candidates), succ, fail)
					}
				}
			}
		}()
	}

	// Send candidates to workers
	go func() {
		defer close(candidateChan)
		for _, candidate := range candidates {
			select {
			case <-ctx.Done():
				return
			case candidateChan <- candidate:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Update stats
	stats.CandidatesRegistered = int(atomic.LoadInt64(&successful))
	stats.CandidatesFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`Candidate registration completed:
   Successful: %d
   Failed: %d
`, stats.CandidatesRegistered, stats.CandidatesFailed)

	if stats.CandidatesRegistered == 0 {
		return fmt.Errorf("no candidates were registered")
	}
	return nil
}

// postRegistration posts a registration payload and reports success
func postRegistration(client *HTTPClient, url string, payload interface{}) bool {
	resp, err := client.Post(url, payload)
	if err != nil {
		return false
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return false
	}
	if resp.StatusCode != StatusCreated {
		return false
	}
	var registered RegisteredResponse
	if err := unmarshalJSON(body, &registered); err == nil && registered.Status == "registered" {
		return true
	}
	return true // Assume success for 201 even if parsing fails
}

// submitRatings submits peer ratings concurrently using worker pools
func submitRatings(ctx context.Context, config *Config, ratings []Rating, stats *Stats) error {
	log.Printf("Submitting %d peer ratings with %d workers...", len(ratings), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/ratings"

	var (
		successful int64
		failed     int64
	)

	ratingChan := make(chan Rating, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for r := range ratingChan {
				select {
				case <-ctx.Done():
					return
				default:
					resp, err := client.Post(url, r)
					if err != nil {
						atomic.AddInt64(&failed, 1)
						continue
					}
					_, _ = readResponseBody(resp)
					if resp.StatusCode == StatusCreated {
						atomic.AddInt64(&successful, 1)
					} else {
						atomic.AddInt64(&failed, 1)
					}
				}
			}
		}()
	}

	go func() {
		defer close(ratingChan)
		for _, r := range ratings {
			select {
			case <-ctx.Done():
				return
			case ratingChan <- r:
			}
		}
	}()

	wg.Wait()

	stats.RatingsSubmitted = int(atomic.LoadInt64(&successful))
	stats.RatingsFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`Rating submission completed:
   Successful: %d
   Failed: %d
`, stats.RatingsSubmitted, stats.RatingsFailed)

	return nil
}
