// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/stagely/internal/adapters/cache"
	eventqueue "github.com/okian/stagely/internal/adapters/mq/queue"
	workerpool "github.com/okian/stagely/internal/adapters/mq/worker"
	"github.com/okian/stagely/internal/adapters/repository"
	"github.com/okian/stagely/internal/domain/dedupe"
	"github.com/okian/stagely/internal/domain/model"
	"github.com/okian/stagely/internal/domain/planner"
	"github.com/okian/stagely/internal/domain/ratings"
	"github.com/okian/stagely/internal/domain/types"
	"github.com/okian/stagely/pkg/logger"
	"github.com/okian/stagely/pkg/metrics"
)

// Cached views.
const (
	viewPlan    = "plan"
	viewHeatMap = "heatmap"
)

// writeStripes is the number of locks serializing writes per rating.
const writeStripes = 64

// Service implements the API dependencies for the itinerary planner.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	cache   cache.Cache
	planner *planner.Planner
	deduper dedupe.Deduper
	queue   *eventqueue.InMemoryQueue
	pool    *workerpool.Pool

	// writes to one (member, performance) pair hold the same stripe
	writes [writeStripes]sync.Mutex

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int

	started bool
	now     func() time.Time
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the catalog and rating store.
func WithStore(s repository.Store) Option {
	return func(svc *Service) {
		if s != nil {
			svc.store = s
		}
	}
}

// WithCache sets the plan cache.
func WithCache(c cache.Cache) Option {
	return func(svc *Service) {
		if c != nil {
			svc.cache = c
		}
	}
}

// WithPlanner sets the itinerary planner.
func WithPlanner(p *planner.Planner) Option {
	return func(svc *Service) {
		if p != nil {
			svc.planner = p
		}
	}
}

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of pending rating changes.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many idempotency keys are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the rating timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service. Without explicit components it runs on an empty
// in-memory store and an in-memory cache.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   10_000,
		dedupeSize:  50_000,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.cache == nil {
		s.cache = cache.NewMemory()
	}
	if s.planner == nil {
		s.planner = planner.New()
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	return s
}

// Start creates the write path components and starts the workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting planner service...")

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, workerpool.HandlerFunc(s.invalidate))
	// Workers outlive the start request; they stop when the queue is closed.
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "planner service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop drains pending rating changes and releases the store and cache.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping planner service...")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close cache: %w", err))
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	s.started = false
	s.logger.Info(ctx, "planner service stopped")
	return errors.Join(errs...)
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error { return s.store.Ping(ctx) }

// Timeline returns the presentation axis of a festival.
func (s *Service) Timeline(ctx context.Context, festivalID string) (types.Timeline, error) {
	f, err := s.store.Festival(ctx, festivalID)
	if err != nil {
		return types.Timeline{}, err
	}
	return types.NewTimeline(f, s.planner.Axis(f.Window)), nil
}

// HeatMap returns the consensus overlay of a day for a group.
func (s *Service) HeatMap(ctx context.Context, groupID, dayID string) (types.HeatMap, error) {
	var out types.HeatMap
	err := s.cached(ctx, cache.Key{View: viewHeatMap, DayID: dayID, GroupID: groupID}, &out, func() error {
		p, err := s.compute(ctx, viewHeatMap, groupID, dayID, "")
		if err != nil {
			return err
		}
		out = types.NewHeatMap(groupID, dayID, p)
		return nil
	})
	return out, err
}

// Plan returns the ideal path of a day, annotated for viewer when set.
func (s *Service) Plan(ctx context.Context, groupID, dayID, viewer string) (types.Plan, error) {
	var out types.Plan
	err := s.cached(ctx, cache.Key{View: viewPlan, DayID: dayID, GroupID: groupID, Viewer: viewer}, &out, func() error {
		p, err := s.compute(ctx, viewPlan, groupID, dayID, viewer)
		if err != nil {
			return err
		}
		out = types.NewPlan(groupID, dayID, viewer, p)
		metrics.RecordBlocks(len(out.Blocks), out.Splits)
		return nil
	})
	return out, err
}

// cached serves k from the cache or runs build and stores the result under
// the version read before building. Cache failures fall through to build.
func (s *Service) cached(ctx context.Context, k cache.Key, out any, build func() error) error {
	version, err := s.cache.Version(ctx, k.DayID)
	if err != nil {
		metrics.RecordCacheError()
		s.logger.Warn(ctx, "plan cache unavailable", logger.String("view", k.View), logger.Error(err))
		return build()
	}
	k.Version = version

	switch err := cache.GetJSON(ctx, s.cache, k, out); {
	case err == nil:
		metrics.RecordCacheHit()
		return nil
	case errors.Is(err, cache.ErrMiss):
		metrics.RecordCacheMiss()
	default:
		metrics.RecordCacheError()
		s.logger.Warn(ctx, "plan cache read failed", logger.String("view", k.View), logger.Error(err))
	}

	if err := build(); err != nil {
		return err
	}
	if err := cache.SetJSON(ctx, s.cache, k, out); err != nil {
		metrics.RecordCacheError()
		s.logger.Warn(ctx, "plan cache write failed", logger.String("view", k.View), logger.Error(err))
	}
	return nil
}

// compute loads the day snapshot and runs the planner.
func (s *Service) compute(ctx context.Context, view, groupID, dayID, viewer string) (planner.Plan, error) {
	start := time.Now()
	in, err := s.input(ctx, groupID, dayID, viewer)
	if err != nil {
		return planner.Plan{}, err
	}
	p := s.planner.Plan(in)

	for _, sk := range p.Skipped {
		reason := "unknown_performance"
		if errors.Is(sk.Reason, ratings.ErrUnknownMember) {
			reason = "unknown_member"
		}
		metrics.RecordSkippedRating(reason)
	}
	metrics.RecordPlanComputed(view)
	metrics.RecordPlanLatency(float64(time.Since(start).Milliseconds()))
	s.logger.Debug(ctx, "plan computed",
		logger.String("group_id", groupID),
		logger.String("day_id", dayID),
		logger.Int("blocks", len(p.Blocks)),
		logger.Int("skipped", len(p.Skipped)),
	)
	return p, nil
}

func (s *Service) input(ctx context.Context, groupID, dayID, viewer string) (planner.Input, error) {
	day, err := s.store.Day(ctx, dayID)
	if err != nil {
		return planner.Input{}, err
	}
	festival, err := s.store.Festival(ctx, day.FestivalID)
	if err != nil {
		return planner.Input{}, err
	}
	if _, err := s.store.Group(ctx, groupID); err != nil {
		return planner.Input{}, err
	}
	members, err := s.store.Members(ctx, groupID)
	if err != nil {
		return planner.Input{}, err
	}
	stages, err := s.store.Stages(ctx, dayID)
	if err != nil {
		return planner.Input{}, err
	}
	perfs, err := s.store.Performances(ctx, dayID)
	if err != nil {
		return planner.Input{}, err
	}

	memberIDs := make([]string, len(members))
	for i, m := range members {
		memberIDs[i] = m.ID
	}
	perfIDs := make([]string, len(perfs))
	for i, p := range perfs {
		perfIDs[i] = p.ID
	}
	rs, err := s.store.Ratings(ctx, memberIDs, perfIDs)
	if err != nil {
		return planner.Input{}, err
	}

	return planner.Input{
		Window:       festival.Window,
		Stages:       stages,
		Performances: perfs,
		Members:      members,
		Ratings:      rs,
		Viewer:       viewer,
	}, nil
}

// SetRating stores the member's tier for a performance.
func (s *Service) SetRating(ctx context.Context, w types.RatingWrite, t model.Tier) (types.Rating, error) {
	return s.write(ctx, "set", w, func() (model.Tier, bool, error) {
		return t, true, nil
	})
}

// ClearRating removes the member's rating of a performance.
func (s *Service) ClearRating(ctx context.Context, w types.RatingWrite) (types.Rating, error) {
	return s.write(ctx, "clear", w, func() (model.Tier, bool, error) {
		return 0, false, nil
	})
}

// ToggleRating advances the member's rating one step through the cycle.
func (s *Service) ToggleRating(ctx context.Context, w types.RatingWrite) (types.Rating, error) {
	return s.write(ctx, "toggle", w, func() (model.Tier, bool, error) {
		current, present, err := s.rating(ctx, w.MemberID, w.PerformanceID)
		if err != nil {
			return 0, false, err
		}
		next, ok := ratings.Next(current, present)
		return next, ok, nil
	})
}

// Rating returns the member's current rating of a performance.
func (s *Service) Rating(ctx context.Context, memberID, performanceID string) (types.Rating, error) {
	t, present, err := s.rating(ctx, memberID, performanceID)
	if err != nil {
		return types.Rating{}, err
	}
	return types.NewRating(memberID, performanceID, t, present), nil
}

func (s *Service) rating(ctx context.Context, memberID, performanceID string) (model.Tier, bool, error) {
	r, err := s.store.Rating(ctx, memberID, performanceID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return 0, false, nil
	case err != nil:
		return 0, false, err
	}
	return r.Tier, true, nil
}

// write applies a rating mutation at most once per idempotency key and
// publishes the change. next decides the resulting tier; present=false
// clears the rating.
func (s *Service) write(ctx context.Context, op string, w types.RatingWrite, next func() (model.Tier, bool, error)) (types.Rating, error) {
	if w.MemberID == "" {
		return types.Rating{}, ErrNoIdentity
	}

	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return types.Rating{}, ErrNotStarted
	}
	if s.queue.Len(ctx) >= s.queue.Cap() {
		metrics.RecordRatingWrite(op, "backpressure")
		return types.Rating{}, ErrBackpressure
	}

	key := idempotencyKey(w)
	if key != "" && s.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordRatingWrite(op, "duplicate")
		s.logger.Debug(ctx, "duplicate rating write, skipping",
			logger.String("member_id", w.MemberID), logger.String("key", w.IdempotencyKey))
		out, err := s.Rating(ctx, w.MemberID, w.PerformanceID)
		out.Duplicate = true
		return out, err
	}

	lock := s.writeLock(w.MemberID, w.PerformanceID)
	lock.Lock()
	out, err := s.apply(ctx, w, next)
	lock.Unlock()
	if err != nil {
		if key != "" {
			s.deduper.Unrecord(ctx, key)
		}
		metrics.RecordRatingWrite(op, "error")
		return types.Rating{}, err
	}
	metrics.RecordRatingWrite(op, "applied")
	return out, nil
}

// idempotencyKey scopes the client key to the member, so two members may
// pick the same key.
func idempotencyKey(w types.RatingWrite) string {
	if w.IdempotencyKey == "" {
		return ""
	}
	return w.MemberID + "\x00" + w.IdempotencyKey
}

// writeLock returns the stripe guarding one member's rating of a set, so a
// toggle reads and writes without another write in between.
func (s *Service) writeLock(memberID, performanceID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(memberID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(performanceID))
	return &s.writes[h.Sum32()%writeStripes]
}

func (s *Service) apply(ctx context.Context, w types.RatingWrite, next func() (model.Tier, bool, error)) (types.Rating, error) {
	perf, err := s.store.Performance(ctx, w.PerformanceID)
	if err != nil {
		return types.Rating{}, err
	}
	tier, present, err := next()
	if err != nil {
		return types.Rating{}, err
	}

	now := s.now()
	if present {
		err = s.store.PutRating(ctx, model.Rating{
			MemberID:      w.MemberID,
			PerformanceID: w.PerformanceID,
			Tier:          tier,
			UpdatedAt:     now,
		})
	} else {
		_, err = s.store.DeleteRating(ctx, w.MemberID, w.PerformanceID)
	}
	if err != nil {
		return types.Rating{}, err
	}

	s.publish(ctx, model.RatingChange{
		ID:            uuid.NewString(),
		MemberID:      w.MemberID,
		PerformanceID: w.PerformanceID,
		DayID:         perf.DayID,
		Tier:          tier,
		Cleared:       !present,
		At:            now,
	})
	return types.NewRating(w.MemberID, w.PerformanceID, tier, present), nil
}

// publish hands the change to the workers, invalidating inline when the
// queue refuses it.
func (s *Service) publish(ctx context.Context, e model.RatingChange) {
	if s.queue.Enqueue(ctx, e) {
		return
	}
	s.logger.Warn(ctx, "rating change not queued, invalidating inline", logger.String("day_id", e.DayID))
	if err := s.invalidate(context.WithoutCancel(ctx), e); err != nil {
		s.logger.Error(ctx, "inline invalidation failed", logger.Error(err))
	}
}

// invalidate is the worker handler: it makes every cached view of the
// changed day unreachable.
func (s *Service) invalidate(ctx context.Context, e model.RatingChange) error {
	v, err := s.cache.Bump(ctx, e.DayID)
	if err != nil {
		metrics.RecordCacheError()
		return fmt.Errorf("invalidate day %s: %w", e.DayID, err)
	}
	s.logger.Debug(ctx, "day plans invalidated",
		logger.String("day_id", e.DayID),
		logger.Int64("version", v),
		logger.String("event_id", e.ID),
	)
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}
	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["processedEvents"] = s.pool.Processed()
		stats["idempotencyKeys"] = s.deduper.Size()
		metrics.UpdateWorkerCount(s.pool.Size())
	}
	return stats
}
