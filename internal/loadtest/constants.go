package loadtest

import "time"

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	DefaultSettleAfter   = 30 * time.Second
	settlePollInterval   = 50 * time.Millisecond
	tokenTTL             = time.Hour
	PercentageMultiplier = 100
)
