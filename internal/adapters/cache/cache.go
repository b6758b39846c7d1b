// Package cache stores computed plans keyed by a per-day version, so a
// rating change on a day makes every cached plan of that day unreachable
// with a single counter bump.
package cache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Sentinel kinds for cache errors.
var (
	ErrMiss = errors.New("cache miss")
)

// Key addresses one cached view.
type Key struct {
	View    string // "plan" or "heatmap"
	DayID   string
	Version int64
	GroupID string
	Viewer  string // empty for anonymous views
}

// String renders the storage key. Components are query-escaped, so a colon
// inside an ID cannot shift it into the next field.
func (k Key) String() string {
	return strings.Join([]string{
		"stagely",
		url.QueryEscape(k.View),
		url.QueryEscape(k.DayID),
		strconv.FormatInt(k.Version, 10),
		url.QueryEscape(k.GroupID),
		url.QueryEscape(k.Viewer),
	}, ":")
}

// Cache is a versioned byte store.
type Cache interface {
	// Version returns the current version of a day, zero if never bumped.
	Version(ctx context.Context, dayID string) (int64, error)
	// Bump advances the day's version and returns the new value.
	Bump(ctx context.Context, dayID string) (int64, error)
	// Get returns ErrMiss when the key is absent or expired.
	Get(ctx context.Context, k Key) ([]byte, error)
	Set(ctx context.Context, k Key, payload []byte) error
	Close() error
}

// GetJSON reads and decodes a cached value.
func GetJSON(ctx context.Context, c Cache, k Key, v any) error {
	raw, err := c.Get(ctx, k)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode cached %s: %w", k.View, err)
	}
	return nil
}

// SetJSON encodes and stores a value.
func SetJSON(ctx context.Context, c Cache, k Key, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", k.View, err)
	}
	return c.Set(ctx, k, raw)
}
