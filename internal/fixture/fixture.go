// Package fixture reads festival datasets from YAML files and generates
// random ones for development and load testing.
package fixture

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/stagely/internal/adapters/repository"
	"github.com/okian/stagely/internal/domain/model"
)

const filePermission = 0o600

// Document is the on-disk fixture layout.
type Document struct {
	Festivals    []Festival    `koanf:"festivals" json:"festivals"`
	Days         []Day         `koanf:"days" json:"days"`
	Stages       []Stage       `koanf:"stages" json:"stages"`
	Performances []Performance `koanf:"performances" json:"performances"`
	Members      []Member      `koanf:"members" json:"members"`
	Groups       []Group       `koanf:"groups" json:"groups"`
	Ratings      []Rating      `koanf:"ratings" json:"ratings,omitempty"`
}

// Festival row.
type Festival struct {
	ID    string `koanf:"id" json:"id"`
	Name  string `koanf:"name" json:"name"`
	Year  int    `koanf:"year" json:"year,omitempty"`
	Start string `koanf:"start_time" json:"start_time,omitempty"`
	End   string `koanf:"end_time" json:"end_time,omitempty"`
}

// Day row.
type Day struct {
	ID       string `koanf:"id" json:"id"`
	Festival string `koanf:"festival" json:"festival"`
	Name     string `koanf:"name" json:"name"`
	Date     string `koanf:"date" json:"date,omitempty"`
}

// Stage row.
type Stage struct {
	ID    string `koanf:"id" json:"id"`
	Day   string `koanf:"day" json:"day"`
	Name  string `koanf:"name" json:"name"`
	Order int    `koanf:"order" json:"order"`
}

// Performance row.
type Performance struct {
	ID     string `koanf:"id" json:"id"`
	Day    string `koanf:"day" json:"day"`
	Stage  string `koanf:"stage" json:"stage"`
	Artist string `koanf:"artist" json:"artist"`
	Start  string `koanf:"start" json:"start"`
	End    string `koanf:"end" json:"end,omitempty"`
}

// Member row.
type Member struct {
	ID          string `koanf:"id" json:"id"`
	Username    string `koanf:"username" json:"username"`
	DisplayName string `koanf:"display_name" json:"display_name,omitempty"`
	AvatarURL   string `koanf:"avatar_url" json:"avatar_url,omitempty"`
}

// Group row; Members are listed in join order.
type Group struct {
	ID         string   `koanf:"id" json:"id"`
	Name       string   `koanf:"name" json:"name"`
	InviteCode string   `koanf:"invite_code" json:"invite_code,omitempty"`
	Members    []string `koanf:"members" json:"members"`
}

// Rating row. Tier accepts API names or storage colors; UpdatedAt is RFC 3339.
type Rating struct {
	Member      string `koanf:"member" json:"member"`
	Performance string `koanf:"performance" json:"performance"`
	Tier        string `koanf:"tier" json:"tier"`
	UpdatedAt   string `koanf:"updated_at" json:"updated_at,omitempty"`
}

// Load reads a YAML fixture file into a store seed.
func Load(path string) (repository.Seed, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return repository.Seed{}, fmt.Errorf("%w: %s: %w", ErrLoadFixture, path, err)
	}
	var doc Document
	if err := k.UnmarshalWithConf("", &doc, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return repository.Seed{}, fmt.Errorf("%w: %s: %w", ErrLoadFixture, path, err)
	}
	return doc.Seed()
}

// Seed converts the document into domain values.
func (d Document) Seed() (repository.Seed, error) {
	var s repository.Seed
	for _, f := range d.Festivals {
		s.Festivals = append(s.Festivals, model.Festival{
			ID: f.ID, Name: f.Name, Year: f.Year,
			Window: model.Window{Start: f.Start, End: f.End},
		})
	}
	for _, day := range d.Days {
		s.Days = append(s.Days, model.Day{ID: day.ID, FestivalID: day.Festival, Name: day.Name, Date: day.Date})
	}
	for _, st := range d.Stages {
		s.Stages = append(s.Stages, model.Stage{ID: st.ID, DayID: st.Day, Name: st.Name, Order: st.Order})
	}
	for _, p := range d.Performances {
		s.Performances = append(s.Performances, model.Performance{
			ID: p.ID, DayID: p.Day, StageID: p.Stage, ArtistName: p.Artist, Start: p.Start, End: p.End,
		})
	}
	for _, m := range d.Members {
		s.Members = append(s.Members, model.Member{ID: m.ID, Username: m.Username, DisplayName: m.DisplayName, AvatarURL: m.AvatarURL})
	}
	for _, g := range d.Groups {
		s.Groups = append(s.Groups, model.Group{ID: g.ID, Name: g.Name, InviteCode: g.InviteCode, MemberIDs: g.Members})
	}
	for i, r := range d.Ratings {
		tier, err := model.ParseTier(r.Tier)
		if err != nil {
			return repository.Seed{}, fmt.Errorf("%w: rating %d: %w", ErrInvalidFixture, i, err)
		}
		var at time.Time
		if r.UpdatedAt != "" {
			if at, err = time.Parse(time.RFC3339, r.UpdatedAt); err != nil {
				return repository.Seed{}, fmt.Errorf("%w: rating %d: %w", ErrInvalidFixture, i, err)
			}
		}
		s.Ratings = append(s.Ratings, model.Rating{MemberID: r.Member, PerformanceID: r.Performance, Tier: tier, UpdatedAt: at})
	}
	return s, nil
}

// FromSeed converts a seed back into a document.
func FromSeed(s repository.Seed) Document {
	var d Document
	for _, f := range s.Festivals {
		d.Festivals = append(d.Festivals, Festival{ID: f.ID, Name: f.Name, Year: f.Year, Start: f.Window.Start, End: f.Window.End})
	}
	for _, day := range s.Days {
		d.Days = append(d.Days, Day{ID: day.ID, Festival: day.FestivalID, Name: day.Name, Date: day.Date})
	}
	for _, st := range s.Stages {
		d.Stages = append(d.Stages, Stage{ID: st.ID, Day: st.DayID, Name: st.Name, Order: st.Order})
	}
	for _, p := range s.Performances {
		d.Performances = append(d.Performances, Performance{ID: p.ID, Day: p.DayID, Stage: p.StageID, Artist: p.ArtistName, Start: p.Start, End: p.End})
	}
	for _, m := range s.Members {
		d.Members = append(d.Members, Member{ID: m.ID, Username: m.Username, DisplayName: m.DisplayName, AvatarURL: m.AvatarURL})
	}
	for _, g := range s.Groups {
		d.Groups = append(d.Groups, Group{ID: g.ID, Name: g.Name, InviteCode: g.InviteCode, Members: g.MemberIDs})
	}
	for _, r := range s.Ratings {
		row := Rating{Member: r.MemberID, Performance: r.PerformanceID, Tier: r.Tier.String()}
		if !r.UpdatedAt.IsZero() {
			row.UpdatedAt = r.UpdatedAt.UTC().Format(time.RFC3339)
		}
		d.Ratings = append(d.Ratings, row)
	}
	return d
}

// Marshal renders the document as YAML.
func (d Document) Marshal() ([]byte, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var tree map[string]any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}
	return yaml.Parser().Marshal(tree)
}

// Save writes a seed as a YAML fixture.
func Save(path string, s repository.Seed) error {
	out, err := FromSeed(s).Marshal()
	if err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	if err := os.WriteFile(path, out, filePermission); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}
