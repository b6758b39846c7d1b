// Package planner runs the full itinerary pipeline for one festival day:
// ratings are aggregated into consensus scores, scored sets are clustered
// into decision points, clusters are resolved into blocks and blocks are
// personalised for the viewer.
package planner

import (
	"github.com/okian/stagely/internal/domain/cluster"
	"github.com/okian/stagely/internal/domain/consensus"
	"github.com/okian/stagely/internal/domain/itinerary"
	"github.com/okian/stagely/internal/domain/model"
	"github.com/okian/stagely/internal/domain/ratings"
	"github.com/okian/stagely/internal/domain/recommend"
	"github.com/okian/stagely/internal/domain/timeline"
)

// Input is one snapshot of everything a plan depends on.
type Input struct {
	Window       model.Window
	Stages       []model.Stage
	Performances []model.Performance
	Members      []model.Member
	Ratings      []model.Rating
	Viewer       string // member ID, empty for an anonymous view
}

// HeatCell is one performance of the unresolved heat map.
type HeatCell struct {
	consensus.Summary
	Stage    string
	Position timeline.Position
}

// Plan is the computed view of a day.
type Plan struct {
	Slots   []string
	HeatMap []HeatCell
	Blocks  []itinerary.Block
	Skipped []ratings.Skipped
}

// Splits counts blocks with more than one winner.
func (p Plan) Splits() int {
	n := 0
	for _, b := range p.Blocks {
		if b.Split() {
			n++
		}
	}
	return n
}

// Planner is stateless apart from its settings and safe for concurrent use.
type Planner struct {
	weights   consensus.Weights
	tolerance int
	gap       int
	step      int
}

// Option applies a configuration option to the Planner.
type Option func(*Planner)

// WithWeights sets the tier weights. Invalid weights are ignored.
func WithWeights(w consensus.Weights) Option {
	return func(p *Planner) {
		if w.Validate() == nil {
			p.weights = w
		}
	}
}

// WithOverlapTolerance sets the clustering tolerance in minutes.
func WithOverlapTolerance(minutes int) Option {
	return func(p *Planner) {
		if minutes >= 0 {
			p.tolerance = minutes
		}
	}
}

// WithGapThreshold sets the recommendation gap threshold in minutes.
func WithGapThreshold(minutes int) Option {
	return func(p *Planner) {
		if minutes >= 0 {
			p.gap = minutes
		}
	}
}

// WithSlotStep sets the heat map slot size in minutes.
func WithSlotStep(minutes int) Option {
	return func(p *Planner) {
		if minutes > 0 {
			p.step = minutes
		}
	}
}

// New creates a Planner.
func New(opts ...Option) *Planner {
	p := &Planner{
		weights:   consensus.DefaultWeights,
		tolerance: cluster.DefaultOverlapTolerance,
		gap:       recommend.DefaultGapThreshold,
		step:      timeline.DefaultStepMinutes,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Axis returns the presentation axis for a window.
func (p *Planner) Axis(w model.Window) timeline.Axis {
	return timeline.NewAxis(w, p.step)
}

// HeatMap builds the consensus summary of every performance, in input order.
func (p *Planner) HeatMap(in Input) ([]HeatCell, ratings.Book) {
	axis := p.Axis(in.Window)
	book := ratings.NewBook(in.Members, in.Performances, in.Ratings)
	summaries := consensus.NewAggregator(consensus.WithWeights(p.weights)).Aggregate(in.Performances, book)

	stages := make(map[string]string, len(in.Stages))
	for _, s := range in.Stages {
		stages[s.ID] = s.Name
	}
	cells := make([]HeatCell, len(summaries))
	for i, s := range summaries {
		cells[i] = HeatCell{
			Summary:  s,
			Stage:    stages[s.Performance.StageID],
			Position: axis.Position(s.Performance),
		}
	}
	return cells, book
}

// Plan runs the whole pipeline. It never fails: malformed times and
// dangling ratings degrade to empty or partial results.
func (p *Planner) Plan(in Input) Plan {
	axis := p.Axis(in.Window)
	cells, book := p.HeatMap(in)

	summaries := make([]consensus.Summary, len(cells))
	for i, c := range cells {
		summaries[i] = c.Summary
	}
	clusters := cluster.New(cluster.WithOverlapTolerance(p.tolerance)).Cluster(cluster.Place(axis, summaries))
	blocks := itinerary.ResolveAll(clusters)
	blocks = recommend.New(recommend.WithGapThreshold(p.gap)).Recommend(blocks, in.Viewer, book)

	return Plan{
		Slots:   axis.Slots(),
		HeatMap: cells,
		Blocks:  blocks,
		Skipped: book.Skipped(),
	}
}
