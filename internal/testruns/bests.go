package testruns

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// retrieveBests retrieves the personal best for every player concurrently.
func retrieveBests(ctx context.Context, config *Config, runs []RunSubmission, stats *Stats) ([]Entry, error) {
	log.Printf("retrieving personal bests for %d players with %d workers...", len(runs), config.Workers)

	client := newHTTPClient(config.Timeout)

	// Extract player IDs
	playerIDs := make([]string, len(runs))
	for i, run := range runs {
		playerIDs[i] = run.PlayerID
	}

	// Results storage
	bests := make([]Entry, len(playerIDs))
	var (
		retrieved int64
		failed    int64
	)

	// Progress reporting
	var lastReport time.Time
	reportInterval := 1 * time.Second

	// Create worker pool
	playerChan := make(chan int, config.Workers*WorkerChannelMultiplier) // Send indices instead of IDs
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for index := range playerChan {
				select {
				case <-ctx.Done():
					return
				default:
					playerID := playerIDs[index]
					entry, err := retrieveSingleBest(ctx, client, config, playerID)

					if err != nil {
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Printf("failed to get best for %s: %v", playerID, err)
						}
					} else {
						bests[index] = entry
						atomic.AddInt64(&retrieved, 1)
					}

					// Progress reporting
					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						total := atomic.LoadInt64(&retrieved) + atomic.LoadInt64(&failed)
						ret := atomic.LoadInt64(&retrieved)
						fail := atomic.LoadInt64(&failed)

						log.Printf("personal bests: %d/%d retrieved (success: %d, failed: %d)",
							total, len(playerIDs), ret, fail)
					}
				}
			}
		}()
	}

	// Send player indices to workers
	go func() {
		defer close(playerChan)
		for i := range playerIDs {
			select {
			case <-ctx.Done():
				return
			case playerChan <- i:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Filter out empty entries (failed retrievals and pending runs)
	validBests := make([]Entry, 0, len(bests))
	for _, entry := range bests {
		if entry.PlayerID != "" { // Empty PlayerID indicates failed retrieval
			validBests = append(validBests, entry)
		}
	}

	// Update stats
	stats.BestsRetrieved = len(validBests)

	log.Printf(`personal best retrieval completed:
   Retrieved: %d
   Failed: %d
`, len(validBests), int(atomic.LoadInt64(&failed)))

	return validBests, nil
}

// retrieveSingleBest retrieves the unrestricted personal best for one player.
func retrieveSingleBest(ctx context.Context, client *HTTPClient, config *Config, playerID string) (Entry, error) {
	url := fmt.Sprintf("%s/pb/%s?variant=%s&kind=unrestricted", config.BaseURL, playerID, config.VariantID)

	resp, err := client.Get(ctx, url)
	if err != nil {
		return Entry{}, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return Entry{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var entry Entry
	if err := unmarshalJSON(body, &entry); err != nil {
		return Entry{}, fmt.Errorf("failed to parse response: %w", err)
	}

	return entry, nil
}

// getLeaderboard retrieves the top N leaderboard entries.
func getLeaderboard(ctx context.Context, config *Config, stats *Stats) ([]Entry, error) {
	log.Printf("getting top %d leaderboard entries...", config.TopN)

	client := newHTTPClient(config.Timeout)
	url := fmt.Sprintf("%s/leaderboard?variant=%s&kind=unrestricted&page=1&per_page=%d", config.BaseURL, config.VariantID, config.TopN)

	resp, err := client.Get(ctx, url)
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

	var leaderboard []Entry
	if err := unmarshalJSON(body, &leaderboard); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	stats.LeaderboardEntries = len(leaderboard)
	log.Printf("retrieved %d leaderboard entries", len(leaderboard))

	return leaderboard, nil
}
