package types_test

import (
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/stagely/internal/domain/model"
	"github.com/okian/stagely/internal/domain/planner"
	"github.com/okian/stagely/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func fixture() planner.Input {
	at := time.Unix(100, 0)
	return planner.Input{
		Window: model.Window{Start: "14:00", End: "23:00"},
		Stages: []model.Stage{{ID: "main", Name: "Main"}, {ID: "tent", Name: "Tent"}},
		Performances: []model.Performance{
			{ID: "a", StageID: "main", ArtistName: "Alpha", Start: "18:00", End: "19:00"},
			{ID: "b", StageID: "tent", ArtistName: "Bravo", Start: "18:00", End: "19:00"},
			{ID: "c", StageID: "main", ArtistName: "Charlie", Start: "21:00", End: "22:00"},
		},
		Members: []model.Member{{ID: "m1", DisplayName: "Ada Lovelace"}, {ID: "m2", Username: "bob"}},
		Ratings: []model.Rating{
			{MemberID: "m1", PerformanceID: "a", Tier: model.TierMustGo, UpdatedAt: at},
			{MemberID: "m2", PerformanceID: "b", Tier: model.TierMustGo, UpdatedAt: at},
			{MemberID: "m2", PerformanceID: "c", Tier: model.TierCurious, UpdatedAt: at},
			{MemberID: "ghost", PerformanceID: "c", Tier: model.TierCurious, UpdatedAt: at},
		},
		Viewer: "m2",
	}
}

func TestNewPlan(t *testing.T) {
	Convey("Given a computed plan", t, func() {
		p := planner.New().Plan(fixture())
		out := types.NewPlan("g1", "d1", "m2", p)

		Convey("Then blocks carry stage names, positions and recommendations", func() {
			So(len(out.Blocks), ShouldEqual, 2)
			So(out.Splits, ShouldEqual, 1)
			So(out.Skipped, ShouldEqual, 1)

			first := out.Blocks[0]
			So(first.Time, ShouldEqual, "18:00")
			So(first.Split, ShouldBeTrue)
			So(first.Options[0].ID, ShouldEqual, "a")
			So(first.Options[0].Stage, ShouldEqual, "Main")
			So(first.Options[0].StartSlot, ShouldEqual, 16)
			So(first.Options[0].DurationSlots, ShouldEqual, 4)
			So(first.Options[1].Recommended, ShouldBeTrue)
			So(first.Options[0].Recommended, ShouldBeFalse)
		})

		Convey("Then voters are rendered as badges", func() {
			v := out.Blocks[0].Options[0].Voters[0]
			So(v.Name, ShouldEqual, "Ada Lovelace")
			So(v.Initials, ShouldEqual, "AL")
			So(v.Tier, ShouldEqual, model.TierMustGo)
		})

		Convey("Then the JSON uses wire tier names", func() {
			raw, err := json.Marshal(out)
			So(err, ShouldBeNil)
			So(string(raw), ShouldContainSubstring, `"tier":"must_go"`)
			So(string(raw), ShouldContainSubstring, `"viewer":"m2"`)

			var back types.Plan
			So(json.Unmarshal(raw, &back), ShouldBeNil)
			So(back.Blocks[0].Options[0].Voters[0].Tier, ShouldEqual, model.TierMustGo)
		})
	})
}

func TestNewHeatMap(t *testing.T) {
	Convey("Given a computed plan", t, func() {
		p := planner.New().Plan(fixture())
		hm := types.NewHeatMap("g1", "d1", p)

		Convey("Then every performance has a cell with its tally", func() {
			So(len(hm.Cells), ShouldEqual, 3)
			So(hm.Cells[1].Tally.MustGo, ShouldEqual, 1)
			So(hm.Cells[1].Score, ShouldEqual, 3)
			So(hm.Cells[1].Stage, ShouldEqual, "Tent")
			So(hm.Cells[2].Artist, ShouldEqual, "Charlie")
			So(hm.Slots[0], ShouldEqual, "14:00")
		})
	})
}

func TestNewRating(t *testing.T) {
	Convey("Given write outcomes", t, func() {
		Convey("A present rating has a tier name", func() {
			r := types.NewRating("m1", "a", model.TierInterested, true)
			So(r.Tier, ShouldEqual, "interested")
		})
		Convey("A cleared rating has none", func() {
			r := types.NewRating("m1", "a", model.TierInterested, false)
			So(r.Tier, ShouldBeEmpty)
		})
	})
}

func TestNewTimeline(t *testing.T) {
	Convey("Given a festival without a window", t, func() {
		f := model.Festival{ID: "f1", Name: "Fest"}
		tl := types.NewTimeline(f, planner.New().Axis(f.Window))

		Convey("Then the default window is used", func() {
			So(tl.Open, ShouldEqual, model.DefaultWindowStart)
			So(tl.Close, ShouldEqual, model.DefaultWindowEnd)
			So(tl.StepMin, ShouldEqual, 15)
			So(tl.Slots[0], ShouldEqual, "12:00")
		})
	})
}
