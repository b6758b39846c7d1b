package model_test

import (
	"errors"
	"testing"

	model "github.com/okian/stagely/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestTier(t *testing.T) {
	convey.Convey("Given the three rating tiers", t, func() {
		convey.Convey("Then they are strictly ordered from curious to must-go", func() {
			convey.So(model.TierCurious, convey.ShouldBeLessThan, model.TierInterested)
			convey.So(model.TierInterested, convey.ShouldBeLessThan, model.TierMustGo)
		})

		convey.Convey("When parsing API names and storage colors", func() {
			cases := map[string]model.Tier{
				"must_go":    model.TierMustGo,
				"GREEN":      model.TierMustGo,
				"interested": model.TierInterested,
				" yellow ":   model.TierInterested,
				"curious":    model.TierCurious,
				"red":        model.TierCurious,
			}
			for in, want := range cases {
				got, err := model.ParseTier(in)
				convey.So(err, convey.ShouldBeNil)
				convey.So(got, convey.ShouldEqual, want)
			}
		})

		convey.Convey("When parsing an unknown name", func() {
			_, err := model.ParseTier("none")

			convey.Convey("Then it returns ErrUnknownTier", func() {
				convey.So(errors.Is(err, model.ErrUnknownTier), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When round-tripping through text", func() {
			b, err := model.TierInterested.MarshalText()
			convey.So(err, convey.ShouldBeNil)
			var back model.Tier
			convey.So(back.UnmarshalText(b), convey.ShouldBeNil)
			convey.So(back, convey.ShouldEqual, model.TierInterested)
			convey.So(model.TierMustGo.Color(), convey.ShouldEqual, "green")
		})

		convey.Convey("When marshaling the zero tier", func() {
			_, err := model.Tier(0).MarshalText()
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(model.Tier(0).Valid(), convey.ShouldBeFalse)
		})
	})
}

func TestWindowDefaults(t *testing.T) {
	convey.Convey("Given a festival window with missing bounds", t, func() {
		w := model.Window{}.WithDefaults()

		convey.Convey("Then it defaults to noon until one minute before midnight", func() {
			convey.So(w.Start, convey.ShouldEqual, "12:00")
			convey.So(w.End, convey.ShouldEqual, "23:59")
		})

		convey.Convey("And explicit bounds are kept", func() {
			w := model.Window{Start: "22:00", End: "04:00"}.WithDefaults()
			convey.So(w.Start, convey.ShouldEqual, "22:00")
			convey.So(w.End, convey.ShouldEqual, "04:00")
		})
	})
}

func TestMember(t *testing.T) {
	convey.Convey("Given roster members", t, func() {
		convey.Convey("Then the display name wins over the username", func() {
			m := model.Member{Username: "jdoe", DisplayName: "Jane Doe"}
			convey.So(m.Name(), convey.ShouldEqual, "Jane Doe")
			convey.So(m.Initials(), convey.ShouldEqual, "JD")
		})

		convey.Convey("And a single word yields two letters", func() {
			m := model.Member{Username: "jdoe"}
			convey.So(m.Initials(), convey.ShouldEqual, "JD")
		})

		convey.Convey("And an empty profile yields a placeholder", func() {
			convey.So(model.Member{}.Initials(), convey.ShouldEqual, "?")
		})
	})
}
