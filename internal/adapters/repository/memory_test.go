package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/stagely/internal/adapters/repository"
	"github.com/okian/stagely/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func testSeed() repository.Seed {
	return repository.Seed{
		Festivals: []model.Festival{{ID: "f1", Name: "Fest", Year: 2026, Window: model.Window{Start: "14:00"}}},
		Days:      []model.Day{{ID: "d1", FestivalID: "f1", Name: "Friday", Date: "2026-07-03"}},
		Stages: []model.Stage{
			{ID: "s2", DayID: "d1", Name: "Tent", Order: 2},
			{ID: "s1", DayID: "d1", Name: "Main", Order: 1},
		},
		Performances: []model.Performance{
			{ID: "p2", DayID: "d1", StageID: "s2", ArtistName: "Later", Start: "20:00", End: "21:00"},
			{ID: "p1", DayID: "d1", StageID: "s1", ArtistName: "Early", Start: "18:00", End: "19:00"},
		},
		Members: []model.Member{{ID: "m1", Username: "ana"}, {ID: "m2", Username: "bo"}, {ID: "m3", Username: "cy"}},
		Groups:  []model.Group{{ID: "g1", Name: "Crew", InviteCode: "abc", MemberIDs: []string{"m2", "m1"}}},
		Ratings: []model.Rating{{MemberID: "m1", PerformanceID: "p1", Tier: model.TierMustGo, UpdatedAt: time.Unix(10, 0)}},
	}
}

func TestMemoryStoreCatalog(t *testing.T) {
	ctx := context.Background()

	Convey("Given a memory store loaded with a seed", t, func() {
		s := repository.NewMemoryStore()
		So(s.Load(ctx, testSeed()), ShouldBeNil)
		So(s.Ping(ctx), ShouldBeNil)

		Convey("Then catalog reads return ordered data", func() {
			f, err := s.Festival(ctx, "f1")
			So(err, ShouldBeNil)
			So(f.Window.Start, ShouldEqual, "14:00")

			stages, _ := s.Stages(ctx, "d1")
			So(stages[0].Name, ShouldEqual, "Main")

			perfs, _ := s.Performances(ctx, "d1")
			So(perfs[0].ID, ShouldEqual, "p1")
			So(perfs[1].ID, ShouldEqual, "p2")

			members, err := s.Members(ctx, "g1")
			So(err, ShouldBeNil)
			So(members[0].ID, ShouldEqual, "m2")
			So(len(members), ShouldEqual, 2)
		})

		Convey("Then unknown ids are ErrNotFound", func() {
			_, err := s.Festival(ctx, "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			_, err = s.Day(ctx, "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			_, err = s.Performance(ctx, "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			_, err = s.Members(ctx, "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When a seed has a dangling reference", func() {
			bad := repository.Seed{Performances: []model.Performance{{ID: "px", DayID: "d1", StageID: "ghost", Start: "12:00"}}}
			err := s.Load(ctx, bad)

			Convey("Then nothing is loaded", func() {
				So(errors.Is(err, repository.ErrInvalidSeed), ShouldBeTrue)
				_, err := s.Performance(ctx, "px")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When a seed has a malformed time", func() {
			bad := repository.Seed{Performances: []model.Performance{{ID: "px", DayID: "d1", StageID: "s1", Start: "8pm"}}}
			So(errors.Is(s.Load(ctx, bad), repository.ErrInvalidSeed), ShouldBeTrue)
		})
	})
}

func TestMemoryStoreRatings(t *testing.T) {
	ctx := context.Background()

	Convey("Given a memory store with a fixed clock", t, func() {
		now := time.Date(2026, 7, 3, 12, 0, 0, 0, time.UTC)
		s := repository.NewMemoryStore(repository.WithClock(func() time.Time { return now }))
		So(s.Load(ctx, testSeed()), ShouldBeNil)

		Convey("When a rating is written", func() {
			So(s.PutRating(ctx, model.Rating{MemberID: "m2", PerformanceID: "p2", Tier: model.TierCurious}), ShouldBeNil)

			Convey("Then it can be read back stamped with the clock", func() {
				r, err := s.Rating(ctx, "m2", "p2")
				So(err, ShouldBeNil)
				So(r.Tier, ShouldEqual, model.TierCurious)
				So(r.UpdatedAt, ShouldEqual, now)

				rs, _ := s.Ratings(ctx, []string{"m1", "m2"}, []string{"p1", "p2"})
				So(len(rs), ShouldEqual, 2)
			})

			Convey("Then deleting it reports it existed once", func() {
				ok, err := s.DeleteRating(ctx, "m2", "p2")
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				ok, _ = s.DeleteRating(ctx, "m2", "p2")
				So(ok, ShouldBeFalse)
				_, err = s.Rating(ctx, "m2", "p2")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When a rating references an unknown set", func() {
			err := s.PutRating(ctx, model.Rating{MemberID: "m1", PerformanceID: "ghost", Tier: model.TierCurious})
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When members write concurrently", func() {
			var wg sync.WaitGroup
			for _, m := range []string{"m1", "m2", "m3"} {
				wg.Add(1)
				go func(m string) {
					defer wg.Done()
					for i := 0; i < 50; i++ {
						_ = s.PutRating(ctx, model.Rating{MemberID: m, PerformanceID: "p2", Tier: model.Tier(1 + i%3)})
					}
				}(m)
			}
			wg.Wait()

			rs, err := s.Ratings(ctx, []string{"m1", "m2", "m3"}, []string{"p2"})
			So(err, ShouldBeNil)
			So(len(rs), ShouldEqual, 3)
		})
	})
}
