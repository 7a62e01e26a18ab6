package testruns

import "time"

// HTTP status code constants.
const (
	StatusOK      = 200
	StatusCreated = 201
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	RecomputeSettleDelay = 5 * time.Second
	PercentageMultiplier = 100
)
