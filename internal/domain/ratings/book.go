// Package ratings provides a read-only view over member ratings for one
// roster and one set of performances.
package ratings

import (
	"errors"

	"github.com/okian/stagely/internal/domain/model"
)

// Sentinel reasons for ratings left out of a Book.
var (
	ErrUnknownMember      = errors.New("rating references unknown member")
	ErrUnknownPerformance = errors.New("rating references unknown performance")
)

// Skipped records a rating that was ignored while building a Book.
type Skipped struct {
	Rating model.Rating
	Reason error
}

// Vote is one member's tier on a performance.
type Vote struct {
	Member model.Member
	Tier   model.Tier
}

type key struct {
	member      string
	performance string
}

// Book is a sparse (member, performance) -> tier mapping. It is immutable
// once built and safe to share between goroutines.
type Book struct {
	roster  []model.Member
	entries map[key]model.Rating
	skipped []Skipped
}

// NewBook restricts ratings to the given roster and performances. Ratings
// for members outside the roster or for unknown performances are skipped,
// since roster and ratings are fetched independently and can disagree. When
// a pair appears twice the most recently updated rating wins.
func NewBook(roster []model.Member, performances []model.Performance, rs []model.Rating) Book {
	members := make(map[string]struct{}, len(roster))
	for _, m := range roster {
		members[m.ID] = struct{}{}
	}
	perfs := make(map[string]struct{}, len(performances))
	for _, p := range performances {
		perfs[p.ID] = struct{}{}
	}

	b := Book{
		roster:  roster,
		entries: make(map[key]model.Rating, len(rs)),
	}
	for _, r := range rs {
		switch {
		case !r.Tier.Valid():
			continue
		case !has(members, r.MemberID):
			b.skipped = append(b.skipped, Skipped{Rating: r, Reason: ErrUnknownMember})
			continue
		case !has(perfs, r.PerformanceID):
			b.skipped = append(b.skipped, Skipped{Rating: r, Reason: ErrUnknownPerformance})
			continue
		}
		k := key{member: r.MemberID, performance: r.PerformanceID}
		if prev, ok := b.entries[k]; ok && prev.UpdatedAt.After(r.UpdatedAt) {
			continue
		}
		b.entries[k] = r
	}
	return b
}

func has(set map[string]struct{}, id string) bool {
	_, ok := set[id]
	return ok
}

// Tier returns the member's tier for a performance, if any.
func (b Book) Tier(memberID, performanceID string) (model.Tier, bool) {
	r, ok := b.entries[key{member: memberID, performance: performanceID}]
	if !ok {
		return 0, false
	}
	return r.Tier, true
}

// Votes returns every roster member's vote on a performance, in roster order.
func (b Book) Votes(performanceID string) []Vote {
	var votes []Vote
	for _, m := range b.roster {
		if t, ok := b.Tier(m.ID, performanceID); ok {
			votes = append(votes, Vote{Member: m, Tier: t})
		}
	}
	return votes
}

// Len returns the number of ratings in the book.
func (b Book) Len() int { return len(b.entries) }

// Skipped returns the ratings ignored while building the book.
func (b Book) Skipped() []Skipped { return b.skipped }
