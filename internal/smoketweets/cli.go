// Package smoketweets is an end-to-end smoke client for a running tweets
// server.
package smoketweets

import (
	"fmt"
	"os"

	"github.com/okian/tweets/pkg/logger"
)

// SetupLogging initializes the process logger for the smoke client.
func SetupLogging(format, level string) error {
	if err := logger.InitWithFormat(format, os.Stdout); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := logger.SetLevelString(level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return nil
}

// ShowHelp prints usage information for the smoke client.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Tweets Smoke Client
===================

Drives every tweet route against a running server and verifies the answers.

Usage:
  go run ./cmd/smoke-tweets [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:8080")
  -prefix string
        Path prefix of the tweet routes (default "/tweets")
  -tweets int
        Number of tweets to create (default 200)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 10s)
  -log-format string
        text or json (default "text")
  -verbose
        Log every created tweet
  -help
        Show this help message

Examples:
  go run ./cmd/smoke-tweets -tweets 1000 -workers 16
  go run ./cmd/smoke-tweets -url http://localhost:9000 -prefix /api/tweets
`)
}
