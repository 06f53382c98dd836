package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/tweets/internal/smoketweets"
)

// Default configuration constants.
const (
	defaultNumTweets   = 200
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 10 * time.Second
	defaultTestTimeout = 5 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:8080", "Base URL of the service")
		prefix    = flag.String("prefix", "/tweets", "Path prefix of the tweet routes")
		numTweets = flag.Int("tweets", defaultNumTweets, "Number of tweets to create")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFormat = flag.String("log-format", "text", "Log format: text or json")
		verbose   = flag.Bool("verbose", false, "Log every created tweet")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		smoketweets.ShowHelp()
		return
	}

	level := "info"
	if *verbose {
		level = "debug"
	}
	if err := smoketweets.SetupLogging(*logFormat, level); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	cfg := &smoketweets.Config{
		BaseURL:    *baseURL,
		PathPrefix: *prefix,
		NumTweets:  *numTweets,
		Workers:    *workers,
		Timeout:    *timeout,
		Verbose:    *verbose,
	}

	if _, err := smoketweets.Run(ctx, cfg); err != nil {
		_, _ = os.Stderr.WriteString("Smoke run failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
