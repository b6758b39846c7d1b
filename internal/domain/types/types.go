// Package types contains the read models served by the API and stored in the
// plan cache.
package types

import (
	"github.com/okian/stagely/internal/domain/consensus"
	"github.com/okian/stagely/internal/domain/itinerary"
	"github.com/okian/stagely/internal/domain/model"
	"github.com/okian/stagely/internal/domain/planner"
	"github.com/okian/stagely/internal/domain/ratings"
	"github.com/okian/stagely/internal/domain/timeline"
)

// Voter is a member badge on a performance.
type Voter struct {
	MemberID  string     `json:"member_id"`
	Name      string     `json:"name"`
	Initials  string     `json:"initials"`
	AvatarURL string     `json:"avatar_url,omitempty"`
	Tier      model.Tier `json:"tier"`
}

// Tally counts votes per tier.
type Tally struct {
	MustGo     int `json:"must_go"`
	Interested int `json:"interested"`
	Curious    int `json:"curious"`
}

// Performance is a scored set.
type Performance struct {
	ID            string  `json:"id"`
	StageID       string  `json:"stage_id"`
	Stage         string  `json:"stage,omitempty"`
	Artist        string  `json:"artist"`
	Start         string  `json:"start"`
	End           string  `json:"end,omitempty"`
	StartSlot     int     `json:"start_slot"`
	DurationSlots int     `json:"duration_slots"`
	Score         int     `json:"score"`
	Tally         Tally   `json:"tally"`
	Voters        []Voter `json:"voters"`
}

// HeatMap is the unresolved consensus overlay of a day.
type HeatMap struct {
	GroupID string        `json:"group_id"`
	DayID   string        `json:"day_id"`
	Slots   []string      `json:"slots"`
	Cells   []Performance `json:"cells"`
	Skipped int           `json:"skipped_ratings"`
}

// Pick is one winner of a block.
type Pick struct {
	Performance
	Recommended bool `json:"recommended"`
}

// Block is one decision point of the ideal path.
type Block struct {
	Time    string `json:"time"`
	Split   bool   `json:"split"`
	Options []Pick `json:"options"`
}

// Plan is the resolved ideal path of a day.
type Plan struct {
	GroupID string   `json:"group_id"`
	DayID   string   `json:"day_id"`
	Viewer  string   `json:"viewer,omitempty"`
	Slots   []string `json:"slots"`
	Blocks  []Block  `json:"blocks"`
	Splits  int      `json:"splits"`
	Skipped int      `json:"skipped_ratings"`
}

// Timeline is the presentation axis of a festival.
type Timeline struct {
	FestivalID string   `json:"festival_id"`
	Name       string   `json:"name"`
	Open       string   `json:"open"`
	Close      string   `json:"close"`
	StepMin    int      `json:"step_minutes"`
	Slots      []string `json:"slots"`
}

// RatingWrite is one rating mutation by a member. A non-empty
// IdempotencyKey makes retries of the same write no-ops.
type RatingWrite struct {
	MemberID       string
	PerformanceID  string
	IdempotencyKey string
}

// Rating is the outcome of a rating write.
type Rating struct {
	MemberID      string `json:"member_id"`
	PerformanceID string `json:"performance_id"`
	// Tier is empty when the member has no rating on the set.
	Tier      string `json:"tier,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// NewRating builds a write outcome.
func NewRating(memberID, performanceID string, t model.Tier, present bool) Rating {
	r := Rating{MemberID: memberID, PerformanceID: performanceID}
	if present {
		r.Tier = t.String()
	}
	return r
}

// NewHeatMap converts heat cells.
func NewHeatMap(groupID, dayID string, p planner.Plan) HeatMap {
	cells := make([]Performance, len(p.HeatMap))
	for i, c := range p.HeatMap {
		cells[i] = performance(c.Summary, c.Stage, c.Position)
	}
	return HeatMap{GroupID: groupID, DayID: dayID, Slots: p.Slots, Cells: cells, Skipped: len(p.Skipped)}
}

// NewPlan converts resolved blocks. Stage names and grid positions are taken
// from the heat map of the same plan.
func NewPlan(groupID, dayID, viewer string, p planner.Plan) Plan {
	cells := make(map[string]planner.HeatCell, len(p.HeatMap))
	for _, c := range p.HeatMap {
		cells[c.Performance.ID] = c
	}
	out := Plan{
		GroupID: groupID,
		DayID:   dayID,
		Viewer:  viewer,
		Slots:   p.Slots,
		Blocks:  make([]Block, len(p.Blocks)),
		Splits:  p.Splits(),
		Skipped: len(p.Skipped),
	}
	for i, b := range p.Blocks {
		out.Blocks[i] = block(b, cells)
	}
	return out
}

func block(b itinerary.Block, cells map[string]planner.HeatCell) Block {
	out := Block{Time: b.AnchorTime, Split: b.Split(), Options: make([]Pick, len(b.Winners))}
	for i, w := range b.Winners {
		c := cells[w.ID()]
		out.Options[i] = Pick{
			Performance: performance(w.Summary, c.Stage, c.Position),
			Recommended: b.IsRecommended(w.ID()),
		}
	}
	return out
}

func performance(s consensus.Summary, stage string, pos timeline.Position) Performance {
	voters := make([]Voter, len(s.Voters))
	for i, v := range s.Voters {
		voters[i] = voter(v)
	}
	return Performance{
		ID:            s.Performance.ID,
		StageID:       s.Performance.StageID,
		Stage:         stage,
		Artist:        s.Performance.ArtistName,
		Start:         s.Performance.Start,
		End:           s.Performance.End,
		StartSlot:     pos.StartSlot,
		DurationSlots: pos.DurationSlots,
		Score:         s.Score,
		Tally:         Tally{MustGo: s.Tally.MustGo, Interested: s.Tally.Interested, Curious: s.Tally.Curious},
		Voters:        voters,
	}
}

func voter(v ratings.Vote) Voter {
	return Voter{
		MemberID:  v.Member.ID,
		Name:      v.Member.Name(),
		Initials:  v.Member.Initials(),
		AvatarURL: v.Member.AvatarURL,
		Tier:      v.Tier,
	}
}

// NewTimeline builds the axis for a festival.
func NewTimeline(f model.Festival, axis timeline.Axis) Timeline {
	w := f.Window.WithDefaults()
	return Timeline{
		FestivalID: f.ID,
		Name:       f.Name,
		Open:       w.Start,
		Close:      w.End,
		StepMin:    axis.Step(),
		Slots:      axis.Slots(),
	}
}
