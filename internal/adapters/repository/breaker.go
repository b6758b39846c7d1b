package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/okian/stagely/internal/domain/model"
	"github.com/okian/stagely/pkg/metrics"
)

// BreakerSettings configures a guarded store.
type BreakerSettings struct {
	Name             string
	FailureThreshold uint32
	Timeout          time.Duration
}

// GuardedStore wraps a Store with a circuit breaker so a failing database
// is reported as ErrUnavailable instead of stalling every request.
type GuardedStore struct {
	next Store
	cb   *gobreaker.CircuitBreaker[any]
}

// NewGuardedStore wraps next. Not-found answers and cancelled requests do not
// count as failures.
func NewGuardedStore(next Store, s BreakerSettings) *GuardedStore {
	if s.Name == "" {
		s.Name = "store"
	}
	if s.FailureThreshold == 0 {
		s.FailureThreshold = 5
	}
	settings := gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) ||
				errors.Is(err, context.Canceled) || errors.Is(err, ErrInvalidSeed)
		},
		OnStateChange: func(name string, _, to gobreaker.State) {
			metrics.UpdateBreakerState(name, int(to))
		},
	}
	metrics.UpdateBreakerState(s.Name, int(gobreaker.StateClosed))
	return &GuardedStore{next: next, cb: gobreaker.NewCircuitBreaker[any](settings)}
}

// State returns the breaker state name.
func (g *GuardedStore) State() string { return g.cb.State().String() }

func guard[T any](g *GuardedStore, fn func() (T, error)) (T, error) {
	v, err := g.cb.Execute(func() (any, error) { return fn() })
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err != nil {
		var zero T
		return zero, err
	}
	out, _ := v.(T)
	return out, nil
}

func (g *GuardedStore) Festival(ctx context.Context, id string) (model.Festival, error) {
	return guard(g, func() (model.Festival, error) { return g.next.Festival(ctx, id) })
}

func (g *GuardedStore) Day(ctx context.Context, id string) (model.Day, error) {
	return guard(g, func() (model.Day, error) { return g.next.Day(ctx, id) })
}

func (g *GuardedStore) Stages(ctx context.Context, dayID string) ([]model.Stage, error) {
	return guard(g, func() ([]model.Stage, error) { return g.next.Stages(ctx, dayID) })
}

func (g *GuardedStore) Performances(ctx context.Context, dayID string) ([]model.Performance, error) {
	return guard(g, func() ([]model.Performance, error) { return g.next.Performances(ctx, dayID) })
}

func (g *GuardedStore) Performance(ctx context.Context, id string) (model.Performance, error) {
	return guard(g, func() (model.Performance, error) { return g.next.Performance(ctx, id) })
}

func (g *GuardedStore) Group(ctx context.Context, id string) (model.Group, error) {
	return guard(g, func() (model.Group, error) { return g.next.Group(ctx, id) })
}

func (g *GuardedStore) Members(ctx context.Context, groupID string) ([]model.Member, error) {
	return guard(g, func() ([]model.Member, error) { return g.next.Members(ctx, groupID) })
}

func (g *GuardedStore) Ratings(ctx context.Context, memberIDs, performanceIDs []string) ([]model.Rating, error) {
	return guard(g, func() ([]model.Rating, error) { return g.next.Ratings(ctx, memberIDs, performanceIDs) })
}

func (g *GuardedStore) Rating(ctx context.Context, memberID, performanceID string) (model.Rating, error) {
	return guard(g, func() (model.Rating, error) { return g.next.Rating(ctx, memberID, performanceID) })
}

func (g *GuardedStore) PutRating(ctx context.Context, r model.Rating) error {
	_, err := guard(g, func() (struct{}, error) { return struct{}{}, g.next.PutRating(ctx, r) })
	return err
}

func (g *GuardedStore) DeleteRating(ctx context.Context, memberID, performanceID string) (bool, error) {
	return guard(g, func() (bool, error) { return g.next.DeleteRating(ctx, memberID, performanceID) })
}

func (g *GuardedStore) Ping(ctx context.Context) error {
	_, err := guard(g, func() (struct{}, error) { return struct{}{}, g.next.Ping(ctx) })
	return err
}

// Close closes the wrapped store.
func (g *GuardedStore) Close() error { return g.next.Close() }
