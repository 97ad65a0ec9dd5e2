package testmatch

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/convergehq/converge/pkg/logger"
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

// ShowHelp prints usage information for the match test tool.
func ShowHelp() {
	os.Stdout.WriteString(`Converge Match Test Tool
========================

A concurrent tool for seeding the Converge matching service with candidates
and peer ratings, then verifying a match run against the pool.

Usage:
  go run cmd/test-match/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -candidates int
        Number of candidates to generate and register (default 500)
  -ratings int
        Number of peer ratings to submit (default 2000)
  -top int
        Number of match results to request (default 20)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for generated candidates (default: generated_candidates_TIMESTAMP.json)
  -log string
        Log file for test output (default: test_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Test with default settings
  go run cmd/test-match/main.go

  # Seed a bigger pool with more workers
  go run cmd/test-match/main.go -candidates 5000 -ratings 20000 -workers 16

  # Test with verbose output
  go run cmd/test-match/main.go -verbose -candidates 1000

  # Test against a remote instance
  go run cmd/test-match/main.go -url http://converge.internal:9080 -top 50
`)
}
