package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/stagely/internal/domain/model"
	"github.com/okian/stagely/internal/domain/timeline"
	"github.com/okian/stagely/pkg/metrics"
)

type ratingKey struct {
	member      string
	performance string
}

// MemoryStore is an in-memory Store. It is safe for concurrent use.
type MemoryStore struct {
	mu           sync.RWMutex
	festivals    map[string]model.Festival
	days         map[string]model.Day
	stages       map[string][]model.Stage
	performances map[string]model.Performance
	byDay        map[string][]string
	members      map[string]model.Member
	groups       map[string]model.Group
	ratings      map[ratingKey]model.Rating

	now func() time.Time
}

// MemoryOption applies a configuration option to the MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the clock used to stamp ratings without UpdatedAt.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		festivals:    make(map[string]model.Festival),
		days:         make(map[string]model.Day),
		stages:       make(map[string][]model.Stage),
		performances: make(map[string]model.Performance),
		byDay:        make(map[string][]string),
		members:      make(map[string]model.Member),
		groups:       make(map[string]model.Group),
		ratings:      make(map[ratingKey]model.Rating),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load adds a dataset after checking its references. Nothing is applied
// when the seed is inconsistent.
func (s *MemoryStore) Load(_ context.Context, seed Seed) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(seed); err != nil {
		return err
	}
	for _, f := range seed.Festivals {
		s.festivals[f.ID] = f
	}
	for _, d := range seed.Days {
		s.days[d.ID] = d
	}
	for _, st := range seed.Stages {
		s.stages[st.DayID] = append(s.stages[st.DayID], st)
	}
	for day := range s.stages {
		sort.SliceStable(s.stages[day], func(i, j int) bool { return s.stages[day][i].Order < s.stages[day][j].Order })
	}
	for _, p := range seed.Performances {
		if _, ok := s.performances[p.ID]; !ok {
			s.byDay[p.DayID] = append(s.byDay[p.DayID], p.ID)
		}
		s.performances[p.ID] = p
	}
	for _, m := range seed.Members {
		s.members[m.ID] = m
	}
	for _, g := range seed.Groups {
		s.groups[g.ID] = g
	}
	for _, r := range seed.Ratings {
		s.ratings[ratingKey{r.MemberID, r.PerformanceID}] = r
	}
	metrics.UpdateStoreRatings(len(s.ratings))
	return nil
}

func (s *MemoryStore) check(seed Seed) error {
	festivals := idSet(len(seed.Festivals))
	for _, f := range seed.Festivals {
		festivals[f.ID] = struct{}{}
	}
	for id := range s.festivals {
		festivals[id] = struct{}{}
	}
	days := idSet(len(seed.Days))
	for id := range s.days {
		days[id] = struct{}{}
	}
	for _, d := range seed.Days {
		if _, ok := festivals[d.FestivalID]; !ok {
			return fmt.Errorf("%w: day %s references festival %s", ErrInvalidSeed, d.ID, d.FestivalID)
		}
		days[d.ID] = struct{}{}
	}
	stages := idSet(len(seed.Stages))
	for _, list := range s.stages {
		for _, st := range list {
			stages[st.ID] = struct{}{}
		}
	}
	for _, st := range seed.Stages {
		if _, ok := days[st.DayID]; !ok {
			return fmt.Errorf("%w: stage %s references day %s", ErrInvalidSeed, st.ID, st.DayID)
		}
		stages[st.ID] = struct{}{}
	}
	perfs := idSet(len(seed.Performances))
	for id := range s.performances {
		perfs[id] = struct{}{}
	}
	for _, p := range seed.Performances {
		if _, ok := days[p.DayID]; !ok {
			return fmt.Errorf("%w: performance %s references day %s", ErrInvalidSeed, p.ID, p.DayID)
		}
		if _, ok := stages[p.StageID]; !ok {
			return fmt.Errorf("%w: performance %s references stage %s", ErrInvalidSeed, p.ID, p.StageID)
		}
		if _, err := timeline.ParseStrict(p.Start); err != nil {
			return fmt.Errorf("%w: performance %s: %w", ErrInvalidSeed, p.ID, err)
		}
		if p.HasEnd() {
			if _, err := timeline.ParseStrict(p.End); err != nil {
				return fmt.Errorf("%w: performance %s: %w", ErrInvalidSeed, p.ID, err)
			}
		}
		perfs[p.ID] = struct{}{}
	}
	members := idSet(len(seed.Members))
	for id := range s.members {
		members[id] = struct{}{}
	}
	for _, m := range seed.Members {
		members[m.ID] = struct{}{}
	}
	for _, g := range seed.Groups {
		for _, id := range g.MemberIDs {
			if _, ok := members[id]; !ok {
				return fmt.Errorf("%w: group %s references member %s", ErrInvalidSeed, g.ID, id)
			}
		}
	}
	for _, r := range seed.Ratings {
		if _, ok := members[r.MemberID]; !ok {
			return fmt.Errorf("%w: rating references member %s", ErrInvalidSeed, r.MemberID)
		}
		if _, ok := perfs[r.PerformanceID]; !ok {
			return fmt.Errorf("%w: rating references performance %s", ErrInvalidSeed, r.PerformanceID)
		}
		if !r.Tier.Valid() {
			return fmt.Errorf("%w: rating %s/%s has tier %d", ErrInvalidSeed, r.MemberID, r.PerformanceID, r.Tier)
		}
	}
	return nil
}

func idSet(n int) map[string]struct{} { return make(map[string]struct{}, n) }

func (s *MemoryStore) Festival(_ context.Context, festivalID string) (model.Festival, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.festivals[festivalID]
	if !ok {
		return model.Festival{}, fmt.Errorf("festival %s: %w", festivalID, ErrNotFound)
	}
	return f, nil
}

func (s *MemoryStore) Day(_ context.Context, dayID string) (model.Day, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.days[dayID]
	if !ok {
		return model.Day{}, fmt.Errorf("day %s: %w", dayID, ErrNotFound)
	}
	return d, nil
}

func (s *MemoryStore) Stages(_ context.Context, dayID string) ([]model.Stage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Stage, len(s.stages[dayID]))
	copy(out, s.stages[dayID])
	return out, nil
}

func (s *MemoryStore) Performances(_ context.Context, dayID string) ([]model.Performance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Performance, 0, len(s.byDay[dayID]))
	for _, id := range s.byDay[dayID] {
		out = append(out, s.performances[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return timeline.Minutes(out[i].Start) < timeline.Minutes(out[j].Start)
	})
	return out, nil
}

func (s *MemoryStore) Performance(_ context.Context, performanceID string) (model.Performance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.performances[performanceID]
	if !ok {
		return model.Performance{}, fmt.Errorf("performance %s: %w", performanceID, ErrNotFound)
	}
	return p, nil
}

func (s *MemoryStore) Group(_ context.Context, groupID string) (model.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[groupID]
	if !ok {
		return model.Group{}, fmt.Errorf("group %s: %w", groupID, ErrNotFound)
	}
	return g, nil
}

func (s *MemoryStore) Members(ctx context.Context, groupID string) ([]model.Member, error) {
	g, err := s.Group(ctx, groupID)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Member, 0, len(g.MemberIDs))
	for _, id := range g.MemberIDs {
		if m, ok := s.members[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *MemoryStore) Ratings(_ context.Context, memberIDs, performanceIDs []string) ([]model.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Rating
	for _, m := range memberIDs {
		for _, p := range performanceIDs {
			if r, ok := s.ratings[ratingKey{m, p}]; ok {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (s *MemoryStore) Rating(_ context.Context, memberID, performanceID string) (model.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.ratings[ratingKey{memberID, performanceID}]
	if !ok {
		return model.Rating{}, fmt.Errorf("rating %s/%s: %w", memberID, performanceID, ErrNotFound)
	}
	return r, nil
}

func (s *MemoryStore) PutRating(_ context.Context, r model.Rating) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[r.MemberID]; !ok {
		return fmt.Errorf("member %s: %w", r.MemberID, ErrNotFound)
	}
	if _, ok := s.performances[r.PerformanceID]; !ok {
		return fmt.Errorf("performance %s: %w", r.PerformanceID, ErrNotFound)
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = s.now()
	}
	s.ratings[ratingKey{r.MemberID, r.PerformanceID}] = r
	metrics.UpdateStoreRatings(len(s.ratings))
	return nil
}

func (s *MemoryStore) DeleteRating(_ context.Context, memberID, performanceID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := ratingKey{memberID, performanceID}
	_, ok := s.ratings[k]
	delete(s.ratings, k)
	metrics.UpdateStoreRatings(len(s.ratings))
	return ok, nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
