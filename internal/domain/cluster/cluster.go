// Package cluster groups scored performances into decision points: runs of
// sets that overlap by more than a tolerance and therefore compete.
package cluster

import (
	"sort"

	"github.com/okian/stagely/internal/domain/consensus"
	"github.com/okian/stagely/internal/domain/timeline"
)

// DefaultOverlapTolerance is the overlap, in minutes, up to which two sets
// are still treated as sequential.
const DefaultOverlapTolerance = 30

// Item is a scored performance placed on the festival axis.
type Item struct {
	consensus.Summary
	Span timeline.Span
}

// ID returns the performance ID.
func (i Item) ID() string { return i.Performance.ID }

// Cluster is a non-empty run of competing items ordered by start.
type Cluster struct {
	Anchor int // earliest start, axis minutes
	Items  []Item
}

// Clusterer partitions items into clusters.
type Clusterer struct {
	tolerance int
}

// Option applies a configuration option to the Clusterer.
type Option func(*Clusterer)

// WithOverlapTolerance sets the tolerance in minutes. Negative values are ignored.
func WithOverlapTolerance(minutes int) Option {
	return func(c *Clusterer) {
		if minutes >= 0 {
			c.tolerance = minutes
		}
	}
}

// New creates a Clusterer.
func New(opts ...Option) *Clusterer {
	c := &Clusterer{tolerance: DefaultOverlapTolerance}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tolerance returns the overlap tolerance in minutes.
func (c *Clusterer) Tolerance() int { return c.tolerance }

// Place converts summaries into items on the axis, dropping those with a
// zero score. Input order is preserved.
func Place(axis timeline.Axis, summaries []consensus.Summary) []Item {
	items := make([]Item, 0, len(summaries))
	for _, s := range summaries {
		if s.Score <= 0 {
			continue
		}
		items = append(items, Item{Summary: s, Span: axis.Span(s.Performance)})
	}
	return items
}

// Cluster sorts items by start (stable) and chains each item onto the open
// cluster while it starts more than the tolerance before the cluster's
// running end. Items with a non-positive score are ignored. The input slice
// is not modified.
func (c *Clusterer) Cluster(items []Item) []Cluster {
	sorted := make([]Item, 0, len(items))
	for _, it := range items {
		if it.Score > 0 {
			sorted = append(sorted, it)
		}
	}
	if len(sorted) == 0 {
		return nil
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Span.Start < sorted[j].Span.Start })

	var out []Cluster
	current := Cluster{Anchor: sorted[0].Span.Start, Items: []Item{sorted[0]}}
	end := sorted[0].Span.End
	for _, it := range sorted[1:] {
		if end-it.Span.Start > c.tolerance {
			current.Items = append(current.Items, it)
			if it.Span.End > end {
				end = it.Span.End
			}
			continue
		}
		out = append(out, current)
		current = Cluster{Anchor: it.Span.Start, Items: []Item{it}}
		end = it.Span.End
	}
	return append(out, current)
}
