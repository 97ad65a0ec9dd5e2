package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/convergehq/converge/internal/testmatch"
)

// Default configuration constants.
const (
	defaultNumCandidates = 500
	defaultNumRatings    = 2000
	defaultTopN          = 20
	defaultWorkers       = 2 // multiplier for runtime.NumCPU()
	defaultTimeout       = 30 * time.Second
	defaultTestTimeout   = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		candidates = flag.Int("candidates", defaultNumCandidates, "Number of candidates to generate and register")
		ratings    = flag.Int("ratings", defaultNumRatings, "Number of peer ratings to submit")
		topN       = flag.Int("top", defaultTopN, "Number of match results to request")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Output file for generated candidates (default: generated_candidates_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file for test output (default: test_log_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testmatch.ShowHelp()
		return
	}

	// Setup logging
	if err := testmatch.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	// Create test configuration
	config := &testmatch.Config{
		BaseURL:       *baseURL,
		NumCandidates: *candidates,
		NumRatings:    *ratings,
		TopN:          *topN,
		Workers:       *workers,
		Timeout:       *timeout,
		OutputFile:    *outputFile,
		LogFile:       *logFile,
		Verbose:       *verbose,
	}

	// Run the test
	if err := testmatch.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		return
	}
}
