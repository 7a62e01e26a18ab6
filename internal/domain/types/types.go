// Package types contains common types used across the application
package types

// LeaderboardEntry represents one row of a leaderboard page.
type LeaderboardEntry struct {
	Rank     int      `json:"rank"`
	PlayerID string   `json:"player_id"`
	RunID    uint64   `json:"run_id"`
	Time     float64  `json:"time"`
	Points   *float64 `json:"points,omitempty"`
}

// PersonalBest represents a player's best run on one board.
type PersonalBest struct {
	PlayerID string   `json:"player_id"`
	RunID    uint64   `json:"run_id"`
	Time     float64  `json:"time"`
	Rank     int      `json:"rank"`
	Points   *float64 `json:"points,omitempty"`
}
