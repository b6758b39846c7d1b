package timeline_test

import (
	"errors"
	"testing"

	"github.com/okian/stagely/internal/domain/model"
	"github.com/okian/stagely/internal/domain/timeline"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMinutes(t *testing.T) {
	Convey("Given times of day", t, func() {
		Convey("When they are well formed", func() {
			So(timeline.Minutes("00:00"), ShouldEqual, 0)
			So(timeline.Minutes("18:45"), ShouldEqual, 18*60+45)
			So(timeline.Minutes("23:59"), ShouldEqual, 1439)
			So(timeline.Minutes("21:30:00"), ShouldEqual, 21*60+30)
			So(timeline.Minutes("9:05"), ShouldEqual, 9*60+5)
		})

		Convey("When they are malformed or empty", func() {
			Convey("Then they parse permissively to midnight", func() {
				for _, in := range []string{"", "noon", "25:00", "12:60", "12", "12:5", "1:2:3:4"} {
					So(timeline.Minutes(in), ShouldEqual, 0)
				}
			})

			Convey("And the strict parser reports ErrInvalidTimeFormat", func() {
				_, err := timeline.ParseStrict("24:00")
				So(errors.Is(err, timeline.ErrInvalidTimeFormat), ShouldBeTrue)
				_, err = timeline.ParseStrict("")
				So(errors.Is(err, timeline.ErrInvalidTimeFormat), ShouldBeTrue)
			})
		})
	})
}

func TestEffectiveEnd(t *testing.T) {
	Convey("Given performance bounds", t, func() {
		Convey("When the end is missing", func() {
			So(timeline.EffectiveEnd("18:00", ""), ShouldEqual, 19*60)
		})

		Convey("When the end falls after midnight", func() {
			So(timeline.EffectiveEnd("23:30", "00:30"), ShouldEqual, 24*60+30)
		})

		Convey("When the end is on the same day", func() {
			So(timeline.EffectiveEnd("18:00", "19:30"), ShouldEqual, 19*60+30)
		})

		Convey("Then the end is never before the start", func() {
			times := []string{"", "00:00", "06:15", "12:00", "18:45", "23:59", "bogus"}
			for _, s := range times {
				for _, e := range times {
					So(timeline.EffectiveEnd(s, e), ShouldBeGreaterThanOrEqualTo, timeline.Minutes(s))
				}
			}
		})
	})
}

func TestAxis(t *testing.T) {
	Convey("Given an overnight festival from 22:00 to 04:00", t, func() {
		axis := timeline.NewAxis(model.Window{Start: "22:00", End: "04:00"}, 15)

		Convey("When enumerating slots", func() {
			slots := axis.Slots()

			Convey("Then they run forward through midnight without wrapping back", func() {
				So(slots[0], ShouldEqual, "22:00")
				So(slots[len(slots)-1], ShouldEqual, "04:00")
				So(len(slots), ShouldEqual, 6*4+1)
				So(slots, ShouldContain, "00:00")
			})
		})

		Convey("When placing an after-midnight set", func() {
			p := model.Performance{Start: "00:30", End: "01:30"}
			span := axis.Span(p)

			Convey("Then it sorts after the evening sets", func() {
				So(span.Start, ShouldEqual, 150)
				So(span.End, ShouldEqual, 210)
				pos := axis.Position(p)
				So(pos.StartSlot, ShouldEqual, 10)
				So(pos.DurationSlots, ShouldEqual, 4)
			})
		})

		Convey("When placing a set that straddles midnight", func() {
			span := axis.Span(model.Performance{Start: "23:30", End: "00:45"})
			So(span.Start, ShouldEqual, 90)
			So(span.Duration(), ShouldEqual, 75)
		})

		Convey("When converting offsets back to clock time", func() {
			So(axis.Clock(150), ShouldEqual, "00:30")
			So(axis.Offset("22:00"), ShouldEqual, 0)
		})

		Convey("When a time falls between closing and opening", func() {
			Convey("Then it stays before the opening instead of wrapping", func() {
				So(axis.Overnight(), ShouldBeTrue)
				So(axis.Offset("04:00"), ShouldEqual, 360)
				So(axis.Offset("10:00"), ShouldEqual, -720)
			})
		})
	})

	Convey("Given a festival with no window configured", t, func() {
		axis := timeline.NewAxis(model.Window{}, 0)

		Convey("Then it runs from noon to 23:59 in 15 minute steps", func() {
			slots := axis.Slots()
			So(axis.Open(), ShouldEqual, 12*60)
			So(axis.Step(), ShouldEqual, 15)
			So(slots[0], ShouldEqual, "12:00")
			So(slots[len(slots)-1], ShouldEqual, "23:45")
		})

		Convey("And a very short set still occupies one slot", func() {
			pos := axis.Position(model.Performance{Start: "13:00", End: "13:05"})
			So(pos.StartSlot, ShouldEqual, 4)
			So(pos.DurationSlots, ShouldEqual, 1)
		})

		Convey("And a set before opening keeps a negative offset", func() {
			So(axis.Overnight(), ShouldBeFalse)
			span := axis.Span(model.Performance{Start: "11:30", End: "13:00"})
			So(span.Start, ShouldEqual, -30)
			So(span.End, ShouldEqual, 60)

			pos := axis.Position(model.Performance{Start: "11:30", End: "13:00"})
			So(pos.StartSlot, ShouldEqual, 0)
			So(pos.DurationSlots, ShouldEqual, 4)
		})

		Convey("And a set without an end lasts an hour", func() {
			pos := axis.Position(model.Performance{Start: "13:00"})
			So(pos.DurationSlots, ShouldEqual, 4)
		})
	})
}
