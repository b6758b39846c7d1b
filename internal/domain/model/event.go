package model

import "time"

// RatingChange is published after a member's rating was written or cleared.
type RatingChange struct {
	ID            string
	MemberID      string
	PerformanceID string
	DayID         string
	Tier          Tier // zero when Cleared
	Cleared       bool
	At            time.Time
}
