package loadtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/stagely/pkg/logger"
)

// ErrVerification reports a plan that broke a structural guarantee.
var ErrVerification = errors.New("plan verification failed")

// Run executes the complete load run.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get().Named("loadtest")
	stats := &Stats{StartTime: time.Now()}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.SettleAfter <= 0 {
		cfg.SettleAfter = DefaultSettleAfter
	}

	log.Info(ctx, "starting planner load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("group", cfg.GroupID),
		logger.String("day", cfg.DayID),
		logger.Int("writes", cfg.Writes),
		logger.Int("workers", cfg.Workers),
		logger.Bool("jwt", cfg.JWTSecret != ""),
	)
	client := NewClient(cfg)

	// Step 1: Check service health
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate and submit writes
	writes := generateWrites(cfg)
	stats.WritesGenerated = len(writes)
	submitWrites(ctx, cfg, client, writes, stats)

	// Step 3: Wait for the change queue to drain
	if err := settle(ctx, client, cfg.SettleAfter); err != nil {
		log.Warn(ctx, "queue did not drain, plans may be stale", logger.Error(err))
	}

	// Step 4: Fetch and verify every member's plan
	for _, m := range append([]string{""}, cfg.Members...) {
		p, err := client.Plan(ctx, cfg.GroupID, cfg.DayID, m)
		if err != nil {
			return stats, fmt.Errorf("plan for %q: %w", m, err)
		}
		stats.PlansFetched++
		stats.Blocks, stats.Splits = len(p.Blocks), p.Splits
		if err := VerifyPlan(p); err != nil {
			return stats, fmt.Errorf("%w: %w", ErrVerification, err)
		}
		if cfg.Verbose {
			log.Info(ctx, "plan verified", logger.String("viewer", m), logger.Int("blocks", len(p.Blocks)))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

// settle polls /stats until no rating change is queued.
func settle(ctx context.Context, client *Client, within time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, within)
	defer cancel()
	for {
		stats, err := client.Stats(ctx)
		if err == nil {
			if n, ok := stats["queueLength"].(float64); ok && n == 0 {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(settlePollInterval):
		}
	}
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, writesPerSecond float64
	if stats.WritesSubmitted > 0 {
		successRate = float64(stats.WritesApplied+stats.WritesDuplicate) / float64(stats.WritesSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		writesPerSecond = float64(stats.WritesSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("writesGenerated", stats.WritesGenerated),
		logger.Int("writesSubmitted", stats.WritesSubmitted),
		logger.Int("writesApplied", stats.WritesApplied),
		logger.Int("writesDuplicate", stats.WritesDuplicate),
		logger.Int("writesFailed", stats.WritesFailed),
		logger.Int("plansFetched", stats.PlansFetched),
		logger.Int("blocks", stats.Blocks),
		logger.Int("splits", stats.Splits),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("writesPerSecond", writesPerSecond))
}
