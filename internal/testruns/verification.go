package testruns

import (
	"fmt"
	"log"
	"sort"
)

// verifyResults verifies the consistency of personal bests and the leaderboard.
func verifyResults(config *Config, bests, leaderboard []Entry, stats *Stats) error {
	log.Println("verifying results...")

	if len(bests) == 0 {
		return fmt.Errorf("no personal bests to verify")
	}

	// Sort bests by completion time (ascending) to get top pace
	sortedBests := make([]Entry, len(bests))
	copy(sortedBests, bests)
	sort.Slice(sortedBests, func(i, j int) bool {
		return sortedBests[i].Time < sortedBests[j].Time
	})

	// Verify leaderboard consistency if we have leaderboard data
	if len(leaderboard) > 0 {
		if err := verifyLeaderboardConsistency(sortedBests, leaderboard); err != nil {
			log.Printf("leaderboard consistency warning: %v", err)
		} else {
			log.Println("leaderboard consistency verified")
		}
	}

	// Display top performers
	displayTopPerformers(sortedBests, leaderboard, config.Verbose)

	log.Println("result verification completed")
	return nil
}

// verifyLeaderboardConsistency checks if the leaderboard matches the fastest
// personal bests and honors the ordering invariants.
func verifyLeaderboardConsistency(sortedBests, leaderboard []Entry) error {
	if len(leaderboard) == 0 {
		return fmt.Errorf("empty leaderboard")
	}

	// Check if top entry in leaderboard matches the fastest personal best
	topBest := sortedBests[0]
	topLeaderboard := leaderboard[0]

	if topBest.PlayerID != topLeaderboard.PlayerID {
		return fmt.Errorf("top leaderboard entry (%s) does not match fastest player (%s)",
			topLeaderboard.PlayerID, topBest.PlayerID)
	}

	if topBest.Time != topLeaderboard.Time {
		return fmt.Errorf("top leaderboard time (%.3f) does not match fastest time (%.3f)",
			topLeaderboard.Time, topBest.Time)
	}

	// Ranks are zero-based and gapless; times never decrease down the page.
	for i := 0; i < len(leaderboard); i++ {
		if leaderboard[i].Rank != i {
			return fmt.Errorf("rank gap at position %d: expected %d, got %d", i, i, leaderboard[i].Rank)
		}
		if i > 0 && leaderboard[i].Time < leaderboard[i-1].Time {
			return fmt.Errorf("leaderboard not sorted by time: entry %d is faster than entry %d", i, i-1)
		}
	}

	return nil
}

// displayTopPerformers shows the fastest players from bests and leaderboard.
func displayTopPerformers(sortedBests, leaderboard []Entry, verbose bool) {
	topN := 10
	if len(sortedBests) < topN {
		topN = len(sortedBests)
	}

	log.Printf("top %d players by personal best:", topN)
	for i := 0; i < topN; i++ {
		entry := sortedBests[i]
		log.Printf("   %d. %s - Time: %.3fs", i+1, entry.PlayerID, entry.Time)
	}

	if len(leaderboard) > 0 {
		leaderboardTopN := topN
		if len(leaderboard) < leaderboardTopN {
			leaderboardTopN = len(leaderboard)
		}

		log.Printf("top %d leaderboard entries:", leaderboardTopN)
		for i := 0; i < leaderboardTopN; i++ {
			entry := leaderboard[i]
			if entry.Points != nil {
				log.Printf("   #%d %s - Time: %.3fs, Points: %.2f", entry.Rank, entry.PlayerID, entry.Time, *entry.Points)
			} else {
				log.Printf("   #%d %s - Time: %.3fs", entry.Rank, entry.PlayerID, entry.Time)
			}
		}
	}

	if verbose {
		// Show some statistics
		if len(sortedBests) > 0 {
			avgTime := calculateAverageTime(sortedBests)
			fastest := sortedBests[0].Time
			slowest := sortedBests[len(sortedBests)-1].Time

			log.Printf(`time statistics:
   Average: %.3fs
   Fastest: %.3fs
   Slowest: %.3fs
`, avgTime, fastest, slowest)
		}
	}
}

// calculateAverageTime calculates the average completion time.
func calculateAverageTime(bests []Entry) float64 {
	if len(bests) == 0 {
		return 0
	}

	sum := 0.0
	for _, entry := range bests {
		sum += entry.Time
	}

	return sum / float64(len(bests))
}
