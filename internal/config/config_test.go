package config_test

import (
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/okian/stagely/internal/config"
	"github.com/okian/stagely/internal/domain/consensus"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Store, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.EventQueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.OverlapToleranceMinutes, convey.ShouldEqual, 30)
			convey.So(cfg.GapThresholdMinutes, convey.ShouldEqual, 5)
			convey.So(cfg.SlotMinutes, convey.ShouldEqual, 15)
			convey.So(cfg.Weights, convey.ShouldResemble, consensus.DefaultWeights)
			convey.So(cfg.Validate(context.Background()), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a config with one bad setting", t, func() {
		ctx := context.Background()
		cases := []struct {
			name   string
			mutate func(*config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = " " }},
			{"unknown store", func(c *config.Config) { c.Store = "sqlite" }},
			{"postgres without url", func(c *config.Config) { c.Store = config.StorePostgres }},
			{"unknown log format", func(c *config.Config) { c.LogFormat = "xml" }},
			{"zero queue", func(c *config.Config) { c.EventQueueSize = 0 }},
			{"no workers", func(c *config.Config) { c.WorkerCount = 0 }},
			{"zero slot", func(c *config.Config) { c.SlotMinutes = 0 }},
			{"negative tolerance", func(c *config.Config) { c.OverlapToleranceMinutes = -1 }},
			{"negative ttl", func(c *config.Config) { c.CacheTTLSeconds = -1 }},
			{"negative breaker threshold", func(c *config.Config) { c.BreakerFailureThreshold = -1 }},
			{"negative breaker timeout", func(c *config.Config) { c.BreakerTimeoutSeconds = -5 }},
			{"weights out of order", func(c *config.Config) {
				c.Weights = consensus.Weights{MustGo: 1, Interested: 2, Curious: 3}
			}},
		}
		for _, tc := range cases {
			convey.Convey("When "+tc.name, func() {
				cfg := config.New()
				tc.mutate(cfg)
				err := cfg.Validate(ctx)

				convey.Convey("Then validation fails with ErrInvalidConfig", func() {
					convey.So(err, convey.ShouldNotBeNil)
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				})
			})
		}
	})
}
