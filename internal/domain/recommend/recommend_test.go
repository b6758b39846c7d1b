package recommend_test

import (
	"testing"
	"time"

	"github.com/okian/stagely/internal/domain/cluster"
	"github.com/okian/stagely/internal/domain/consensus"
	"github.com/okian/stagely/internal/domain/itinerary"
	"github.com/okian/stagely/internal/domain/model"
	"github.com/okian/stagely/internal/domain/ratings"
	"github.com/okian/stagely/internal/domain/recommend"
	"github.com/okian/stagely/internal/domain/timeline"
	. "github.com/smartystreets/goconvey/convey"
)

var axis = timeline.NewAxis(model.Window{}, 15)

func item(id, start, end string, score int) cluster.Item {
	p := model.Performance{ID: id, Start: start, End: end}
	return cluster.Item{
		Summary: consensus.Summary{Performance: p, Score: score},
		Span:    axis.Span(p),
	}
}

func block(items ...cluster.Item) itinerary.Block {
	return itinerary.Block{Anchor: items[0].Span.Start, Winners: items}
}

func book(perfs []cluster.Item, rs ...model.Rating) ratings.Book {
	ps := make([]model.Performance, len(perfs))
	for i, it := range perfs {
		ps[i] = it.Performance
	}
	return ratings.NewBook([]model.Member{{ID: "me"}, {ID: "you"}}, ps, rs)
}

func rate(perf string, t model.Tier) model.Rating {
	return model.Rating{MemberID: "me", PerformanceID: perf, Tier: t, UpdatedAt: time.Unix(1, 0)}
}

func TestRecommend(t *testing.T) {
	Convey("Given a recommender with default settings", t, func() {
		r := recommend.New()
		So(r.GapThreshold(), ShouldEqual, recommend.DefaultGapThreshold)

		early := item("early", "18:00", "19:50", 1)
		a := item("a", "20:00", "21:00", 6)
		b := item("b", "20:03", "21:00", 3)
		all := []cluster.Item{early, a, b}

		Convey("When there are no blocks", func() {
			So(r.Recommend(nil, "me", book(nil)), ShouldBeEmpty)
		})

		Convey("When a block has one winner", func() {
			out := r.Recommend([]itinerary.Block{block(early)}, "", book(all))
			Convey("Then it is recommended unconditionally", func() {
				So(out[0].Recommended, ShouldResemble, []string{"early"})
				So(out[0].IsRecommended("early"), ShouldBeTrue)
			})
		})

		Convey("When the viewer rated a lower-scoring winner", func() {
			out := r.Recommend([]itinerary.Block{block(a, b)}, "me", book(all, rate("b", model.TierInterested)))
			Convey("Then the personal pick wins", func() {
				So(out[0].Recommended, ShouldResemble, []string{"b"})
			})
		})

		Convey("When the viewer rated several winners highly", func() {
			out := r.Recommend([]itinerary.Block{block(a, b)}, "me",
				book(all, rate("a", model.TierMustGo), rate("b", model.TierMustGo)))
			Convey("Then all of them are recommended", func() {
				So(out[0].Recommended, ShouldResemble, []string{"a", "b"})
			})
		})

		Convey("When the viewer only marked a winner as curious", func() {
			long := item("long", "20:30", "22:00", 3)
			out := r.Recommend([]itinerary.Block{block(early), block(a, long)}, "me",
				book([]cluster.Item{early, a, long}, rate("a", model.TierCurious)))
			Convey("Then the walkability rules decide", func() {
				So(out[1].Recommended, ShouldResemble, []string{"long"})
			})
		})

		Convey("When gaps differ by less than the threshold", func() {
			out := r.Recommend([]itinerary.Block{block(early), block(a, b)}, "", book(all))
			Convey("Then the higher score wins", func() {
				So(out[1].Recommended, ShouldResemble, []string{"a"})
			})
		})

		Convey("When one winner overlaps the previous recommendation", func() {
			prev := item("prev", "18:00", "20:10", 1)
			late := item("late", "20:15", "21:15", 1)
			out := r.Recommend([]itinerary.Block{block(prev), block(a, late)}, "", book([]cluster.Item{prev, a, late}))
			Convey("Then the winner starting after it is preferred", func() {
				So(out[1].Recommended, ShouldResemble, []string{"late"})
			})
		})

		Convey("When the tied winners have no prior block", func() {
			x := item("x", "20:00", "21:00", 5)
			y := item("y", "20:15", "21:15", 5)
			out := r.Recommend([]itinerary.Block{block(x, y)}, "", book([]cluster.Item{x, y}))
			Convey("Then the larger gap from the opening wins", func() {
				So(out[0].Recommended, ShouldResemble, []string{"y"})
			})
		})

		Convey("When a tied winner starts just before opening", func() {
			x := item("x", "11:58", "13:00", 6)
			y := item("y", "12:01", "13:00", 5)
			out := r.Recommend([]itinerary.Block{block(x, y)}, "", book([]cluster.Item{x, y}))
			Convey("Then it is not treated as overlapping an earlier pick", func() {
				So(x.Span.Start, ShouldEqual, -2)
				So(out[0].Recommended, ShouldResemble, []string{"x"})
			})
		})

		Convey("When the threshold is raised", func() {
			x := item("x", "20:00", "21:00", 6)
			y := item("y", "20:15", "21:15", 5)
			out := recommend.New(recommend.WithGapThreshold(20)).Recommend([]itinerary.Block{block(x, y)}, "", book([]cluster.Item{x, y}))
			Convey("Then the score decides", func() {
				So(out[0].Recommended, ShouldResemble, []string{"x"})
			})
		})

		Convey("When the input blocks carry stale recommendations", func() {
			in := []itinerary.Block{block(a, b)}
			in[0].Recommended = []string{"stale"}
			out := r.Recommend(in, "", book(all))
			Convey("Then they are replaced and the input is untouched", func() {
				So(out[0].Recommended, ShouldResemble, []string{"a"})
				So(in[0].Recommended, ShouldResemble, []string{"stale"})
			})
		})
	})
}
