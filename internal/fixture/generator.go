package fixture

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/stagely/internal/adapters/repository"
	"github.com/okian/stagely/internal/domain/model"
	"github.com/okian/stagely/internal/domain/timeline"
)

// Generation defaults.
const (
	DefaultDays        = 2
	DefaultStages      = 4
	DefaultSetsPerDay  = 24
	DefaultMembers     = 6
	DefaultRatingRatio = 0.3
)

const (
	minSetMinutes = 30
	maxSetMinutes = 90
	setGranule    = 15
)

// Spec describes a random festival.
type Spec struct {
	Seed        uint64 // same seed, same festival
	Days        int
	Stages      int
	SetsPerDay  int
	Members     int
	RatingRatio float64 // share of (member, set) pairs that get a rating
	Window      model.Window
}

func (s Spec) withDefaults() Spec {
	if s.Days <= 0 {
		s.Days = DefaultDays
	}
	if s.Stages <= 0 {
		s.Stages = DefaultStages
	}
	if s.SetsPerDay <= 0 {
		s.SetsPerDay = DefaultSetsPerDay
	}
	if s.Members <= 0 {
		s.Members = DefaultMembers
	}
	if s.RatingRatio <= 0 || s.RatingRatio > 1 {
		s.RatingRatio = DefaultRatingRatio
	}
	s.Window = s.Window.WithDefaults()
	return s
}

var (
	adjectives = []string{"Electric", "Velvet", "Midnight", "Golden", "Neon", "Silent", "Wild", "Crystal"}
	nouns      = []string{"Owls", "Rivers", "Machines", "Sisters", "Pilots", "Gardens", "Ghosts", "Tides"}
	stageNames = []string{"Main", "Tent", "Forest", "Harbor", "Dome", "Garden", "Pier", "Barn"}
	firstNames = []string{"Ana", "Bo", "Cyra", "Dev", "Eli", "Fen", "Gus", "Hana", "Ivo", "Juno"}
)

// Generate builds a consistent random dataset: one festival, its days and
// stages, non-overlapping sets per stage, one group holding every member and
// a sprinkling of ratings.
func Generate(spec Spec) repository.Seed {
	spec = spec.withDefaults()
	rng := rand.New(rand.NewPCG(spec.Seed, spec.Seed^0x9e3779b97f4a7c15))
	ids := idSource(rng)
	axis := timeline.NewAxis(spec.Window, setGranule)
	span := len(axis.Slots())*setGranule - setGranule

	festivalID := ids()
	seed := repository.Seed{
		Festivals: []model.Festival{{
			ID:     festivalID,
			Name:   pick(rng, adjectives) + " Fest",
			Year:   time.Now().Year(),
			Window: spec.Window,
		}},
	}

	for d := 0; d < spec.Days; d++ {
		day := model.Day{ID: ids(), FestivalID: festivalID, Name: "Day " + strconv.Itoa(d+1)}
		seed.Days = append(seed.Days, day)

		stages := make([]model.Stage, spec.Stages)
		for i := range stages {
			stages[i] = model.Stage{ID: ids(), DayID: day.ID, Name: stageNames[i%len(stageNames)], Order: i + 1}
			if i >= len(stageNames) {
				stages[i].Name += " " + strconv.Itoa(i/len(stageNames)+1)
			}
		}
		seed.Stages = append(seed.Stages, stages...)

		// Sets are laid end to end per stage from a random start.
		cursor := make([]int, len(stages))
		for i := range cursor {
			cursor[i] = rng.IntN(4) * setGranule
		}
		for n := 0; n < spec.SetsPerDay; n++ {
			si := n % len(stages)
			length := minSetMinutes + rng.IntN((maxSetMinutes-minSetMinutes)/setGranule+1)*setGranule
			if cursor[si]+length > span {
				continue
			}
			start := cursor[si]
			cursor[si] += length + rng.IntN(3)*setGranule
			seed.Performances = append(seed.Performances, model.Performance{
				ID:         ids(),
				DayID:      day.ID,
				StageID:    stages[si].ID,
				ArtistName: "The " + pick(rng, adjectives) + " " + pick(rng, nouns),
				Start:      axis.Clock(start),
				End:        axis.Clock(start + length),
			})
		}
	}

	group := model.Group{ID: ids(), Name: "Crew", InviteCode: fmt.Sprintf("%06x", rng.Uint32()&0xffffff)}
	for i := 0; i < spec.Members; i++ {
		name := firstNames[i%len(firstNames)]
		m := model.Member{ID: ids(), Username: fmt.Sprintf("%s%d", name, i+1), DisplayName: name + " " + string(rune('A'+i%26)) + "."}
		seed.Members = append(seed.Members, m)
		group.MemberIDs = append(group.MemberIDs, m.ID)
	}
	seed.Groups = []model.Group{group}

	at := time.Unix(0, 0).UTC()
	for _, m := range seed.Members {
		for _, p := range seed.Performances {
			if rng.Float64() >= spec.RatingRatio {
				continue
			}
			seed.Ratings = append(seed.Ratings, model.Rating{
				MemberID:      m.ID,
				PerformanceID: p.ID,
				Tier:          model.Tier(1 + rng.IntN(3)),
				UpdatedAt:     at,
			})
		}
	}
	return seed
}

func pick(rng *rand.Rand, from []string) string { return from[rng.IntN(len(from))] }

// idSource yields UUIDs drawn from rng so a seed reproduces the same ids.
func idSource(rng *rand.Rand) func() string {
	return func() string {
		var b [16]byte
		for i := 0; i < len(b); i += 8 {
			v := rng.Uint64()
			for j := 0; j < 8; j++ {
				b[i+j] = byte(v >> (8 * j))
			}
		}
		id, _ := uuid.FromBytes(b[:])
		// Stamp version 4 and the RFC 4122 variant.
		id[6] = (id[6] & 0x0f) | 0x40
		id[8] = (id[8] & 0x3f) | 0x80
		return id.String()
	}
}
