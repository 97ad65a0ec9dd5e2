package testmatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/convergehq/converge/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete match pool test.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting converge match test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("candidates", config.NumCandidates),
		logger.Int("ratings", config.NumRatings),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Int("topN", config.TopN),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate the pool
	candidates, err := generateCandidates(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("candidate generation failed: %w", err)
	}
	project := generateProject()

	// Step 3: Register the project
	if err := registerProject(ctx, config, project); err != nil {
		return fmt.Errorf("project registration failed: %w", err)
	}

	// Step 4: Register candidates concurrently
	if err := registerCandidates(ctx, config, candidates, stats); err != nil {
		return fmt.Errorf("candidate registration failed: %w", err)
	}

	// Step 5: Submit peer ratings concurrently
	ratings := generateRatings(config, candidates, project.ID)
	if err := submitRatings(ctx, config, ratings, stats); err != nil {
		return fmt.Errorf("rating submission failed: %w", err)
	}

	// Step 6: Let writes settle before matching
	logger.Get().Info(ctx, "waiting for submissions to settle")
	time.Sleep(MatchSettleDelay)

	// Step 7: Retrieve aggregate ratings concurrently
	globals, err := retrieveGlobalRatings(ctx, config, candidates, stats)
	if err != nil {
		return fmt.Errorf("global rating retrieval failed: %w", err)
	}

	// Step 8: Run the match
	results, err := runMatch(ctx, config, project.ID, stats)
	if err != nil {
		return fmt.Errorf("match run failed: %w", err)
	}

	// Step 9: Verify results
	if err := verifyResults(config, results, globals); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 10: Save candidates to file
	if err := saveCandidatesToFile(ctx, config, candidates); err != nil {
		logger.Get().Warn(ctx, "failed to save candidates to file", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "test completed successfully")
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
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// registerProject registers the target project.
func registerProject(ctx context.Context, config *Config, project Project) error {
	logger.Get().Info(ctx, "registering project",
		logger.String("projectID", project.ID),
		logger.String("title", project.Title))

	client := newHTTPClient(config.Timeout)
	if !postRegistration(client, config.BaseURL+"/projects", project) {
		return fmt.Errorf("project registration rejected")
	}
	return nil
}

// saveCandidatesToFile saves the generated candidates to a JSON file.
func saveCandidatesToFile(ctx context.Context, config *Config, candidates []Candidate) error {
	if len(candidates) == 0 {
		return fmt.Errorf("no candidates to save")
	}

	// Determine output filename
	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_candidates_" + timestamp + ".json"
	}

	// Ensure the directory exists
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write candidates to file
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	// Write JSON array
	if _, err := file.WriteString("[\n"); err != nil {
		return fmt.Errorf("failed to write opening bracket: %w", err)
	}

	for i, candidate := range candidates {
		jsonData, err := marshalJSON(candidate)
		if err != nil {
			return fmt.Errorf("failed to marshal candidate %d: %w", i, err)
		}

		if _, err := file.Write(jsonData); err != nil {
			return fmt.Errorf("failed to write candidate %d: %w", i, err)
		}

		// Add comma except for last candidate
		if i < len(candidates)-1 {
			if _, err := file.WriteString(","); err != nil {
				return fmt.Errorf("failed to write comma: %w", err)
			}
		}
		_, _ = file.WriteString("\n")
	}

	if _, err := file.WriteString("]\n"); err != nil {
		return fmt.Errorf("failed to write closing bracket: %w", err)
	}

	logger.Get().Info(ctx, "candidates saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	var successRate, registrationsPerSecond float64

	attempted := stats.CandidatesRegistered + stats.CandidatesFailed
	if attempted > 0 {
		successRate = float64(stats.CandidatesRegistered) / float64(attempted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		registrationsPerSecond = float64(attempted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("candidatesGenerated", stats.CandidatesGenerated),
		logger.Int("candidatesRegistered", stats.CandidatesRegistered),
		logger.Int("candidatesFailed", stats.CandidatesFailed),
		logger.Int("ratingsSubmitted", stats.RatingsSubmitted),
		logger.Int("ratingsFailed", stats.RatingsFailed),
		logger.Int("globalsRetrieved", stats.GlobalsRetrieved),
		logger.Int("matchResults", stats.MatchResults),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("registrationsPerSecond", registrationsPerSecond))
}
