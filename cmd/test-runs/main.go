package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/paceboard/paceboard/internal/testruns"
)

// Default configuration constants.
const (
	defaultNumRuns     = 10000
	defaultTopN        = 50
	defaultTier        = 5
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:8080", "Base URL of the service")
		numRuns    = flag.Int("runs", defaultNumRuns, "Number of runs to generate and submit")
		variantID  = flag.String("variant", "loadtest", "Variant ID the runs target")
		tier       = flag.Int("tier", defaultTier, "Tier the variant is created with")
		topN       = flag.Int("top", defaultTopN, "Number of top entries to fetch from leaderboard")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Output file for generated runs (default: generated_runs_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file for test output (default: test_log_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testruns.ShowHelp()
		return
	}

	// Setup logging
	if err := testruns.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	// Create test configuration
	config := &testruns.Config{
		BaseURL:   *baseURL,
		NumRuns:   *numRuns,
		TopN:      *topN,
		Workers:   *workers,
		Timeout:   *timeout,
		VariantID: *variantID,
		Tier:      *tier,
		Output:    *outputFile,
		LogFile:   *logFile,
		Verbose:   *verbose,
	}

	// Run the test
	if err := testruns.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		return
	}
}
