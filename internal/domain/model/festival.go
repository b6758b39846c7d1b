// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Festival window defaults applied when the organizer left them blank.
const (
	DefaultWindowStart = "12:00"
	DefaultWindowEnd   = "23:59"
)

// Window is the festival's daily opening and closing time of day ("HH:MM").
// Both bounds are optional.
type Window struct {
	Start string
	End   string
}

// WithDefaults fills missing bounds.
func (w Window) WithDefaults() Window {
	if strings.TrimSpace(w.Start) == "" {
		w.Start = DefaultWindowStart
	}
	if strings.TrimSpace(w.End) == "" {
		w.End = DefaultWindowEnd
	}
	return w
}

// Festival is a multi-day event.
type Festival struct {
	ID     string
	Name   string
	Year   int
	Window Window
}

// Day is one festival day; performances and stages hang off a day.
type Day struct {
	ID         string
	FestivalID string
	Name       string
	Date       string // optional, YYYY-MM-DD
}

// Stage labels where a performance happens.
type Stage struct {
	ID    string
	DayID string
	Name  string
	Order int
}

// Performance (a "set") is a single timed artist appearance on one stage.
type Performance struct {
	ID         string
	DayID      string
	StageID    string
	ArtistName string
	Start      string // HH:MM
	End        string // HH:MM, empty when unknown
}

// HasEnd reports whether the organizer supplied an end time.
func (p Performance) HasEnd() bool { return strings.TrimSpace(p.End) != "" }

// Member is a participant profile from the group roster.
type Member struct {
	ID          string
	Username    string
	DisplayName string
	AvatarURL   string
}

// Name returns the display name, falling back to the username.
func (m Member) Name() string {
	if strings.TrimSpace(m.DisplayName) != "" {
		return m.DisplayName
	}
	return m.Username
}

// Initials returns up to two upper-case initials used for avatar badges.
func (m Member) Initials() string {
	parts := strings.Fields(m.Name())
	switch len(parts) {
	case 0:
		return "?"
	case 1:
		return strings.ToUpper(firstRunes(parts[0], 2))
	default:
		return strings.ToUpper(firstRunes(parts[0], 1) + firstRunes(parts[len(parts)-1], 1))
	}
}

func firstRunes(s string, n int) string {
	var b strings.Builder
	for i := 0; i < n && s != ""; i++ {
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError || !unicode.IsPrint(r) {
			break
		}
		b.WriteRune(r)
		s = s[size:]
	}
	return b.String()
}

// Group is a set of members planning a festival together.
type Group struct {
	ID         string
	Name       string
	InviteCode string
	MemberIDs  []string // join order
}
