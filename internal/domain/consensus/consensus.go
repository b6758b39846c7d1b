// Package consensus aggregates member ratings into per-performance scores.
package consensus

import (
	"errors"
	"fmt"

	"github.com/okian/stagely/internal/domain/model"
	"github.com/okian/stagely/internal/domain/ratings"
)

// ErrInvalidWeights is returned when weights are not strictly ordered
// must-go > interested > curious > 0.
var ErrInvalidWeights = errors.New("invalid tier weights")

// Weights are the per-vote points of each tier.
type Weights struct {
	MustGo     int `koanf:"must_go"`
	Interested int `koanf:"interested"`
	Curious    int `koanf:"curious"`
}

// DefaultWeights scores must-go 3, interested 2, curious 1.
var DefaultWeights = Weights{MustGo: 3, Interested: 2, Curious: 1}

// Validate checks the ordering the resolver relies on.
func (w Weights) Validate() error {
	if w.Curious <= 0 || w.Interested <= w.Curious || w.MustGo <= w.Interested {
		return fmt.Errorf("%w: must_go=%d interested=%d curious=%d", ErrInvalidWeights, w.MustGo, w.Interested, w.Curious)
	}
	return nil
}

// Of returns the weight of a single vote.
func (w Weights) Of(t model.Tier) int {
	switch t {
	case model.TierMustGo:
		return w.MustGo
	case model.TierInterested:
		return w.Interested
	case model.TierCurious:
		return w.Curious
	default:
		return 0
	}
}

// Tally counts votes per tier.
type Tally struct {
	MustGo     int
	Interested int
	Curious    int
}

// Total returns the number of votes.
func (t Tally) Total() int { return t.MustGo + t.Interested + t.Curious }

func (t *Tally) add(tier model.Tier) {
	switch tier {
	case model.TierMustGo:
		t.MustGo++
	case model.TierInterested:
		t.Interested++
	case model.TierCurious:
		t.Curious++
	}
}

// Summary is a performance with its consensus: tally, weighted score and the
// voters behind it.
type Summary struct {
	Performance model.Performance
	Tally       Tally
	Score       int
	Voters      []ratings.Vote
}

// Aggregator computes summaries. It holds no state between calls.
type Aggregator struct {
	weights Weights
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithWeights overrides the tier weights. Invalid weights are ignored.
func WithWeights(w Weights) Option {
	return func(a *Aggregator) {
		if w.Validate() == nil {
			a.weights = w
		}
	}
}

// NewAggregator creates an aggregator using DefaultWeights unless overridden.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{weights: DefaultWeights}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Weights returns the weights in use.
func (a *Aggregator) Weights() Weights { return a.weights }

// Aggregate returns one summary per performance, in input order. A
// performance nobody rated has a zero tally and score 0.
func (a *Aggregator) Aggregate(performances []model.Performance, book ratings.Book) []Summary {
	out := make([]Summary, 0, len(performances))
	for _, p := range performances {
		s := Summary{Performance: p, Voters: book.Votes(p.ID)}
		for _, v := range s.Voters {
			s.Tally.add(v.Tier)
			s.Score += a.weights.Of(v.Tier)
		}
		out = append(out, s)
	}
	return out
}
