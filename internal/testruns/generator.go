package testruns

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/paceboard/paceboard/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	paceBucketDivisor  = 8
	aidUsageDivisor    = 10
	statusDivisor      = 20
)

// Constants for completion time buckets, in seconds. Lower is faster.
const (
	eliteMin     = 30.0
	eliteRange   = 5.0
	topMin       = 35.0
	topRange     = 10.0
	strongMin    = 45.0
	strongRange  = 15.0
	averageMin   = 60.0
	averageRange = 25.0
	casualMin    = 85.0
	casualRange  = 35.0
	slowMin      = 120.0
	slowRange    = 60.0
	wideMin      = 30.0
	wideRange    = 150.0
)

// Constants for pace bucket cases.
const (
	caseAveragePace = 0
	caseStrongPace  = 1
	caseCasualPace  = 2
	caseElitePace   = 3
	caseSlowPace    = 4
	caseTopPace     = 5
	caseSecondAvg   = 6
	caseWideRange   = 7
)

// Aid usage distribution: roughly a third of runs use aids.
const aidUsageThreshold = 3

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// generateRuns creates the specified number of runs with unique player IDs.
func generateRuns(ctx context.Context, config *Config, stats *Stats) ([]RunSubmission, error) {
	logger.Get().Info(ctx, "generating runs with unique player IDs", logger.Int("numRuns", config.NumRuns))

	runs := make([]RunSubmission, config.NumRuns)

	// Pre-allocate player IDs to ensure uniqueness
	playerIDs := make([]string, config.NumRuns)
	for i := 0; i < config.NumRuns; i++ {
		playerIDs[i] = uuid.New().String()
	}

	// Generate runs concurrently
	type runResult struct {
		index int
		run   RunSubmission
		err   error
	}

	resultChan := make(chan runResult, config.NumRuns)

	// Use worker pool for run generation
	workerCount := minInt(config.Workers, config.NumRuns)
	runsPerWorker := config.NumRuns / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * runsPerWorker
		end := start + runsPerWorker
		if worker == workerCount-1 {
			end = config.NumRuns // Last worker gets remaining runs
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- runResult{index: i, err: ctx.Err()}
					return
				default:
					run := generateSingleRun(config.VariantID, playerIDs[i])
					resultChan <- runResult{index: i, run: run, err: nil}
				}
			}
		}(start, end)
	}

	// Collect results
	for i := 0; i < config.NumRuns; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during run generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate run %d: %w", result.index, result.err)
			}
			runs[result.index] = result.run
		}
	}

	stats.RunsGenerated = len(runs)
	logger.Get().Info(ctx, "generated runs successfully", logger.Int("count", len(runs)))

	return runs, nil
}

// generateSingleRun creates a single run submission for the given player.
func generateSingleRun(variantID, playerID string) RunSubmission {
	return RunSubmission{
		SubmissionID: uuid.New().String(),
		PlayerID:     playerID,
		ServerID:     "test-server",
		VariantID:    variantID,
		AidUsage:     generateAidUsage(),
		Time:         generateVariedTime(),
		Status:       generateStatus(),
		SubmittedAt:  time.Now().UTC().Format(time.RFC3339),
	}
}

// generateVariedTime draws a completion time from a mix of pace buckets so
// the resulting board has a realistic long-tailed distribution.
func generateVariedTime() float64 {
	randNum, _ := rand.Int(rand.Reader, big.NewInt(paceBucketDivisor))
	switch randNum.Int64() {
	case caseAveragePace, caseSecondAvg:
		// Average pace (60 - 85s) - most common
		return averageMin + getRandomFloat()*averageRange
	case caseStrongPace:
		// Strong pace (45 - 60s)
		return strongMin + getRandomFloat()*strongRange
	case caseCasualPace:
		// Casual pace (85 - 120s)
		return casualMin + getRandomFloat()*casualRange
	case caseElitePace:
		// Elite pace (30 - 35s) - rare
		return eliteMin + getRandomFloat()*eliteRange
	case caseSlowPace:
		// Slow completions (120 - 180s) - rare
		return slowMin + getRandomFloat()*slowRange
	case caseTopPace:
		// Top pace (35 - 45s)
		return topMin + getRandomFloat()*topRange
	case caseWideRange:
		// Random across full range (30 - 180s)
		return wideMin + getRandomFloat()*wideRange
	default:
		return wideMin + getRandomFloat()*wideRange
	}
}

// generateAidUsage flags roughly a third of runs as aid-assisted, which
// keeps them off the zero-aid board.
func generateAidUsage() uint32 {
	n, _ := rand.Int(rand.Reader, big.NewInt(aidUsageDivisor))
	if n.Int64() < aidUsageThreshold {
		return uint32(n.Int64() + 1)
	}
	return 0
}

// generateStatus marks one run in twenty as pending review.
func generateStatus() string {
	n, _ := rand.Int(rand.Reader, big.NewInt(statusDivisor))
	if n.Int64() == 0 {
		return "pending_review"
	}
	return "legitimate"
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
