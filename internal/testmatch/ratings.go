package testmatch

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
)

// retrieveGlobalRatings retrieves aggregate ratings for all candidates concurrently.
func retrieveGlobalRatings(ctx context.Context, config *Config, candidates []Candidate, stats *Stats) (map[string]GlobalRating, error) {
	log.Printf("Retrieving global ratings for %d candidates with %d workers...", len(candidates), config.Workers)

	client := newHTTPClient(config.Timeout)

	var (
		mu        sync.Mutex
		globals   = make(map[string]GlobalRating, len(candidates))
		retrieved int64
		failed    int64
	)

	indexChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for index := range indexChan {
				select {
				case <-ctx.Done():
					return
				default:
					candidateID := candidates[index].ID
					global, err := retrieveSingleGlobal(client, config.BaseURL, candidateID)
					if err != nil {
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Printf("Failed to get global rating for %s: %v", candidateID, err)
						}
						continue
					}
					mu.Lock()
					globals[candidateID] = global
					mu.Unlock()
					atomic.AddInt64(&retrieved, 1)
				}
			}
		}()
	}

	go func() {
		defer close(indexChan)
		for i := range candidates {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	wg.Wait()

	stats.GlobalsRetrieved = int(atomic.LoadInt64(&retrieved))

	log.Printf(`Global rating retrieval completed:
   Retrieved: %d
   Failed: %d
`, stats.GlobalsRetrieved, int(atomic.LoadInt64(&failed)))

	return globals, nil
}

// retrieveSingleGlobal retrieves the aggregate rating for a single candidate.
func retrieveSingleGlobal(client *HTTPClient, baseURL, candidateID string) (GlobalRating, error) {
	url := fmt.Sprintf("%s/ratings/%s/global", baseURL, candidateID)

	resp, err := client.Get(url)
	if err != nil {
		return GlobalRating{}, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return GlobalRating{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return GlobalRating{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var global GlobalRating
	if err := unmarshalJSON(body, &global); err != nil {
		return GlobalRating{}, fmt.Errorf("failed to parse response: %w", err)
	}

	return global, nil
}

// runMatch requests a ranked match of the pool against the project.
func runMatch(ctx context.Context, config *Config, projectID string, stats *Stats) ([]MatchEntry, error) {
	log.Printf("Running match for project %s (top %d)...", projectID, config.TopN)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/match"

	resp, err := client.Post(url, map[string]interface{}{
		"project_id": projectID,
		"top_n":      config.TopN,
	})
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var matchResp MatchResponse
	if err := unmarshalJSON(body, &matchResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	stats.MatchResults = len(matchResp.Results)
	log.Printf("Retrieved %d match results", len(matchResp.Results))

	return matchResp.Results, nil
}
