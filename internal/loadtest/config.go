// Package loadtest drives a running planner over HTTP: members rate sets
// concurrently, then every member's plan is fetched and checked.
package loadtest

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL     string        // Base URL of the service
	GroupID     string        // group whose members rate
	DayID       string        // day whose sets are rated
	Members     []string      // member IDs of the group
	Sets        []string      // performance IDs of the day
	Writes      int           // number of rating writes to generate
	RetryRatio  float64       // share of writes resent with the same idempotency key
	Workers     int           // concurrent HTTP workers
	Timeout     time.Duration // HTTP request timeout
	JWTSecret   string        // signs bearer tokens when set; X-Member-ID otherwise
	Seed        uint64        // random seed for the write mix
	SettleAfter time.Duration // upper bound on waiting for the queue to drain
	Verbose     bool
}

// Stats holds run statistics.
type Stats struct {
	WritesGenerated int
	WritesSubmitted int
	WritesApplied   int
	WritesDuplicate int
	WritesFailed    int
	PlansFetched    int
	Blocks          int
	Splits          int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
