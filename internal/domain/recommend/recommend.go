// Package recommend marks, for one viewer, which winners of each itinerary
// block to attend.
package recommend

import (
	"sort"

	"github.com/okian/stagely/internal/domain/cluster"
	"github.com/okian/stagely/internal/domain/itinerary"
	"github.com/okian/stagely/internal/domain/model"
	"github.com/okian/stagely/internal/domain/ratings"
)

// DefaultGapThreshold is the gap difference, in minutes, below which two
// candidates are considered equally walkable.
const DefaultGapThreshold = 5

// Recommender runs the personal recommendation pass.
type Recommender struct {
	gapThreshold int
}

// Option applies a configuration option to the Recommender.
type Option func(*Recommender)

// WithGapThreshold sets the gap materiality threshold in minutes.
// Negative values are ignored.
func WithGapThreshold(minutes int) Option {
	return func(r *Recommender) {
		if minutes >= 0 {
			r.gapThreshold = minutes
		}
	}
}

// New creates a Recommender.
func New(opts ...Option) *Recommender {
	r := &Recommender{gapThreshold: DefaultGapThreshold}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GapThreshold returns the configured threshold in minutes.
func (r *Recommender) GapThreshold() int { return r.gapThreshold }

// Recommend returns copies of blocks with Recommended filled for viewer.
// Blocks are walked in order carrying the end of the last recommendation,
// which starts at the festival opening (axis minute 0) or at the earliest
// winner start when a set begins before opening.
//
// Per block: the viewer's own must-go/interested winners come first; a
// single winner is recommended as is; otherwise the winner that starts
// after the last recommendation ends is preferred, then the larger gap when
// the difference exceeds the threshold, then the higher score.
func (r *Recommender) Recommend(blocks []itinerary.Block, viewer string, book ratings.Book) []itinerary.Block {
	out := make([]itinerary.Block, len(blocks))
	lastEnd := earliestStart(blocks)
	for i, b := range blocks {
		b.Recommended = nil
		picks := r.pick(b.Winners, viewer, book, lastEnd)
		for _, p := range picks {
			b.Recommended = append(b.Recommended, p.ID())
		}
		if len(picks) > 0 {
			lastEnd = maxEnd(picks)
		}
		out[i] = b
	}
	return out
}

func (r *Recommender) pick(winners []cluster.Item, viewer string, book ratings.Book, lastEnd int) []cluster.Item {
	if len(winners) == 0 {
		return nil
	}
	if viewer != "" {
		var personal []cluster.Item
		for _, w := range winners {
			if t, ok := book.Tier(viewer, w.ID()); ok && t >= model.TierInterested {
				personal = append(personal, w)
			}
		}
		if len(personal) > 0 {
			return personal
		}
	}
	if len(winners) == 1 {
		return winners[:1]
	}

	ranked := make([]cluster.Item, len(winners))
	copy(ranked, winners)
	sort.SliceStable(ranked, func(i, j int) bool {
		return r.better(ranked[i], ranked[j], lastEnd)
	})
	return ranked[:1]
}

// better reports whether a ranks strictly ahead of b.
func (r *Recommender) better(a, b cluster.Item, lastEnd int) bool {
	gapA := a.Span.Start - lastEnd
	gapB := b.Span.Start - lastEnd
	if (gapA >= 0) != (gapB >= 0) {
		return gapA >= 0
	}
	if abs(gapA-gapB) > r.gapThreshold {
		return gapA > gapB
	}
	return a.Score > b.Score
}

func earliestStart(blocks []itinerary.Block) int {
	start := 0
	for _, b := range blocks {
		for _, w := range b.Winners {
			if w.Span.Start < start {
				start = w.Span.Start
			}
		}
	}
	return start
}

func maxEnd(items []cluster.Item) int {
	end := items[0].Span.End
	for _, it := range items[1:] {
		if it.Span.End > end {
			end = it.Span.End
		}
	}
	return end
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
