package testruns

import "time"

// Config holds configuration for the run test
type Config struct {
	BaseURL   string        // Base URL of the service
	NumRuns   int           // Number of runs to generate
	TopN      int           // Number of top entries to fetch
	Workers   int           // Number of concurrent workers
	Timeout   time.Duration // HTTP request timeout
	VariantID string        // Variant the runs are submitted to
	Tier      int           // Tier the variant is created with
	Output    string        // Output file for runs
	LogFile   string        // Log file for test output
	Verbose   bool          // Enable verbose logging
}

// RunSubmission represents a run to be submitted
type RunSubmission struct {
	SubmissionID string  `json:"submission_id"`
	PlayerID     string  `json:"player_id"`
	ServerID     string  `json:"server_id"`
	VariantID    string  `json:"variant_id"`
	AidUsage     uint32  `json:"aid_usage"`
	Time         float64 `json:"time"`
	Status       string  `json:"status"`
	SubmittedAt  string  `json:"submitted_at"`
}

// Entry represents a leaderboard entry
type Entry struct {
	Rank     int      `json:"rank"`
	PlayerID string   `json:"player_id"`
	RunID    uint64   `json:"run_id"`
	Time     float64  `json:"time"`
	Points   *float64 `json:"points,omitempty"`
}

// AckResponse represents the response from run submission
type AckResponse struct {
	RunID     uint64 `json:"run_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds test statistics
type Stats struct {
	RunsGenerated      int
	RunsSubmitted      int
	RunsSuccessful     int
	RunsDuplicate      int
	RunsFailed         int
	BestsRetrieved     int
	LeaderboardEntries int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
