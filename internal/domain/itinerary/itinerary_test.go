package itinerary_test

import (
	"math/rand"
	"testing"

	"github.com/okian/stagely/internal/domain/cluster"
	"github.com/okian/stagely/internal/domain/consensus"
	"github.com/okian/stagely/internal/domain/itinerary"
	"github.com/okian/stagely/internal/domain/model"
	"github.com/okian/stagely/internal/domain/timeline"
	. "github.com/smartystreets/goconvey/convey"
)

var axis = timeline.NewAxis(model.Window{}, 15)

func item(id, start, end string, tally consensus.Tally) cluster.Item {
	p := model.Performance{ID: id, Start: start, End: end}
	w := consensus.DefaultWeights
	return cluster.Item{
		Summary: consensus.Summary{
			Performance: p,
			Tally:       tally,
			Score:       tally.MustGo*w.MustGo + tally.Interested*w.Interested + tally.Curious*w.Curious,
		},
		Span: axis.Span(p),
	}
}

func winnerIDs(b itinerary.Block) []string {
	out := make([]string, len(b.Winners))
	for i, w := range b.Winners {
		out[i] = w.ID()
	}
	return out
}

func TestResolve(t *testing.T) {
	Convey("Given conflict clusters", t, func() {
		Convey("When the cluster is empty", func() {
			_, ok := itinerary.Resolve(cluster.Cluster{})
			So(ok, ShouldBeFalse)
			So(itinerary.ResolveAll([]cluster.Cluster{{}}), ShouldBeEmpty)
		})

		Convey("When the cluster has one performance", func() {
			a := item("a", "18:00", "19:00", consensus.Tally{Curious: 1})
			b, ok := itinerary.Resolve(cluster.Cluster{Anchor: a.Span.Start, Items: []cluster.Item{a}})

			Convey("Then that performance is the only winner", func() {
				So(ok, ShouldBeTrue)
				So(winnerIDs(b), ShouldResemble, []string{"a"})
				So(b.Split(), ShouldBeFalse)
				So(b.AnchorTime, ShouldEqual, "18:00")
			})
		})

		Convey("When both competing sets carry must-go votes", func() {
			a := item("a", "18:00", "19:30", consensus.Tally{MustGo: 1})
			bb := item("b", "18:45", "19:45", consensus.Tally{MustGo: 1})
			out := cluster.New().Cluster([]cluster.Item{a, bb})
			So(len(out), ShouldEqual, 1)
			blk, _ := itinerary.Resolve(out[0])

			Convey("Then the block splits between them", func() {
				So(winnerIDs(blk), ShouldResemble, []string{"a", "b"})
				So(blk.Split(), ShouldBeTrue)
			})
		})

		Convey("When a must-go set is outscored", func() {
			popular := item("popular", "20:00", "21:00", consensus.Tally{Interested: 3})
			lone := item("lone", "20:10", "21:00", consensus.Tally{MustGo: 1})
			quiet := item("quiet", "20:15", "21:00", consensus.Tally{Interested: 2})
			blk, _ := itinerary.Resolve(cluster.Cluster{Items: []cluster.Item{popular, lone, quiet}})

			Convey("Then it is still kept as a split winner and the plain loser is dropped", func() {
				So(winnerIDs(blk), ShouldResemble, []string{"popular", "lone"})
			})
		})

		Convey("When the top score is tied", func() {
			a := item("a", "20:00", "21:00", consensus.Tally{Interested: 2, Curious: 1})
			bb := item("b", "20:15", "21:15", consensus.Tally{Interested: 2, Curious: 1})
			c := item("c", "20:20", "21:15", consensus.Tally{Curious: 4})
			blk, _ := itinerary.Resolve(cluster.Cluster{Items: []cluster.Item{a, bb, c}})

			Convey("Then every tied set is a winner, earliest first", func() {
				So(a.Score, ShouldEqual, 5)
				So(winnerIDs(blk), ShouldResemble, []string{"a", "b"})
			})
		})

		Convey("When several unrelated must-go votes compete", func() {
			items := []cluster.Item{
				item("top", "18:00", "20:00", consensus.Tally{Interested: 4}),
				item("x", "18:10", "19:00", consensus.Tally{MustGo: 1}),
				item("y", "18:20", "19:00", consensus.Tally{MustGo: 1}),
				item("z", "18:30", "19:00", consensus.Tally{MustGo: 1}),
			}
			blk, _ := itinerary.Resolve(cluster.Cluster{Items: items})

			Convey("Then the split is not capped", func() {
				So(len(blk.Winners), ShouldEqual, 4)
			})
		})
	})
}

func TestResolveProperties(t *testing.T) {
	Convey("Given random clusters", t, func() {
		rng := rand.New(rand.NewSource(11))
		for round := 0; round < 100; round++ {
			n := 1 + rng.Intn(6)
			items := make([]cluster.Item, n)
			for i := range items {
				items[i] = item(string(rune('a'+i)), "18:00", "19:00", consensus.Tally{
					MustGo:     rng.Intn(2),
					Interested: rng.Intn(3),
					Curious:    1 + rng.Intn(3),
				})
			}
			blk, ok := itinerary.Resolve(cluster.Cluster{Items: items})
			So(ok, ShouldBeTrue)

			best := items[0]
			for _, it := range items[1:] {
				if it.Score > best.Score {
					best = it
				}
			}
			So(blk.Winners[0].ID(), ShouldEqual, best.ID())

			in := map[string]bool{}
			for _, w := range blk.Winners {
				in[w.ID()] = true
			}
			for _, it := range items {
				if it.Tally.MustGo > 0 || it.Score == best.Score {
					So(in[it.ID()], ShouldBeTrue)
				}
			}
		}
	})
}
