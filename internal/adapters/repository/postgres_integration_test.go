//go:build integration

package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/okian/stagely/internal/adapters/repository"
	"github.com/okian/stagely/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("stagely"),
		postgres.WithUsername("stagely"),
		postgres.WithPassword("stagely"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	return dsn
}

func TestPostgresStore(t *testing.T) {
	dsn := startPostgres(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	s, err := repository.OpenPostgres(ctx, dsn, repository.WithMigrate(true))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	Convey("Given a migrated and seeded database", t, func() {
		So(s.Migrate(ctx), ShouldBeNil)
		So(s.Load(ctx, testSeed()), ShouldBeNil)

		Convey("Then catalog reads mirror the seed", func() {
			f, err := s.Festival(ctx, "f1")
			So(err, ShouldBeNil)
			So(f.Window, ShouldResemble, model.Window{Start: "14:00"})

			d, err := s.Day(ctx, "d1")
			So(err, ShouldBeNil)
			So(d.Date, ShouldEqual, "2026-07-03")

			stages, err := s.Stages(ctx, "d1")
			So(err, ShouldBeNil)
			So(stages[0].ID, ShouldEqual, "s1")

			perfs, err := s.Performances(ctx, "d1")
			So(err, ShouldBeNil)
			So(perfs[0].ID, ShouldEqual, "p1")

			g, err := s.Group(ctx, "g1")
			So(err, ShouldBeNil)
			So(g.MemberIDs, ShouldResemble, []string{"m2", "m1"})

			members, err := s.Members(ctx, "g1")
			So(err, ShouldBeNil)
			So(len(members), ShouldEqual, 2)
		})

		Convey("Then ratings round-trip through upsert and delete", func() {
			So(s.PutRating(ctx, model.Rating{MemberID: "m2", PerformanceID: "p2", Tier: model.TierInterested}), ShouldBeNil)
			So(s.PutRating(ctx, model.Rating{MemberID: "m2", PerformanceID: "p2", Tier: model.TierMustGo}), ShouldBeNil)

			r, err := s.Rating(ctx, "m2", "p2")
			So(err, ShouldBeNil)
			So(r.Tier, ShouldEqual, model.TierMustGo)

			rs, err := s.Ratings(ctx, []string{"m1", "m2"}, []string{"p1", "p2"})
			So(err, ShouldBeNil)
			So(len(rs), ShouldEqual, 2)

			ok, err := s.DeleteRating(ctx, "m2", "p2")
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
		})

		Convey("Then unknown references map to ErrNotFound", func() {
			err := s.PutRating(ctx, model.Rating{MemberID: "ghost", PerformanceID: "p1", Tier: model.TierCurious})
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			_, err = s.Group(ctx, "ghost")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}
