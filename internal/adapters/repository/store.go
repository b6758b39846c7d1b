// Package repository defines the festival catalog and rating store
// interfaces and their in-memory and PostgreSQL implementations.
package repository

import (
	"context"

	"github.com/okian/stagely/internal/domain/model"
)

// Catalog reads festival structure and group rosters.
type Catalog interface {
	Festival(ctx context.Context, festivalID string) (model.Festival, error)
	Day(ctx context.Context, dayID string) (model.Day, error)
	// Stages returns the stages of a day ordered for display.
	Stages(ctx context.Context, dayID string) ([]model.Stage, error)
	// Performances returns the sets of a day ordered by start.
	Performances(ctx context.Context, dayID string) ([]model.Performance, error)
	Performance(ctx context.Context, performanceID string) (model.Performance, error)
	Group(ctx context.Context, groupID string) (model.Group, error)
	// Members returns a group's roster in join order.
	Members(ctx context.Context, groupID string) ([]model.Member, error)
}

// RatingStore reads and writes member ratings.
type RatingStore interface {
	// Ratings returns every rating by the given members on the given sets.
	Ratings(ctx context.Context, memberIDs, performanceIDs []string) ([]model.Rating, error)
	// Rating returns ErrNotFound when the member has not rated the set.
	Rating(ctx context.Context, memberID, performanceID string) (model.Rating, error)
	// PutRating inserts or replaces the member's rating of a set.
	PutRating(ctx context.Context, r model.Rating) error
	// DeleteRating reports whether a rating existed.
	DeleteRating(ctx context.Context, memberID, performanceID string) (bool, error)
}

// Store is the full persistence surface used by the service.
type Store interface {
	Catalog
	RatingStore
	Ping(ctx context.Context) error
	Close() error
}

// Seed is a complete dataset used to fill a store.
type Seed struct {
	Festivals    []model.Festival
	Days         []model.Day
	Stages       []model.Stage
	Performances []model.Performance
	Members      []model.Member
	Groups       []model.Group
	Ratings      []model.Rating
}

// Loader fills a store from a Seed.
type Loader interface {
	Load(ctx context.Context, seed Seed) error
}
