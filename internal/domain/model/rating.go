package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownTier is returned by ParseTier for unrecognized names.
var ErrUnknownTier = errors.New("unknown tier")

// Tier is a member's interest level in a performance. The zero value is not
// a tier: "no opinion" is modelled as the absence of a Rating.
type Tier int

// Tiers from lowest to highest interest.
const (
	TierCurious    Tier = iota + 1 // tier C
	TierInterested                 // tier B
	TierMustGo                     // tier A
)

// Valid reports whether t is one of the three tiers.
func (t Tier) Valid() bool { return t >= TierCurious && t <= TierMustGo }

// String returns the API name of the tier.
func (t Tier) String() string {
	switch t {
	case TierCurious:
		return "curious"
	case TierInterested:
		return "interested"
	case TierMustGo:
		return "must_go"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Color returns the storage name of the tier (green/yellow/red).
func (t Tier) Color() string {
	switch t {
	case TierCurious:
		return "red"
	case TierInterested:
		return "yellow"
	case TierMustGo:
		return "green"
	default:
		return ""
	}
}

// ParseTier accepts both API names and storage colors, case-insensitively.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "curious", "red", "c":
		return TierCurious, nil
	case "interested", "yellow", "b":
		return TierInterested, nil
	case "must_go", "must-go", "mustgo", "green", "a":
		return TierMustGo, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownTier, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Tier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTier, int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tier) UnmarshalText(b []byte) error {
	v, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Rating is one member's tier for one performance.
type Rating struct {
	MemberID      string
	PerformanceID string
	Tier          Tier
	UpdatedAt     time.Time
}
