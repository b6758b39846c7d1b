//go:build integration

package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/okian/stagely/internal/adapters/cache"
	. "github.com/smartystreets/goconvey/convey"
)

func startRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

	endpoint, err := ctr.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("endpoint: %v", err)
	}
	return endpoint
}

func TestRedisCache(t *testing.T) {
	addr := startRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c, err := cache.NewRedis(ctx, cache.RedisSettings{Addr: addr, TTL: time.Minute})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	Convey("Given a Redis cache", t, func() {
		k := cache.Key{View: "heatmap", DayID: "d1", GroupID: "g1"}

		Convey("Versions start at zero and increase", func() {
			v, err := c.Version(ctx, "d1")
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 0)
			next, err := c.Bump(ctx, "d1")
			So(err, ShouldBeNil)
			So(next, ShouldEqual, v+1)
		})

		Convey("Stored payloads are readable under the same key", func() {
			So(cache.SetJSON(ctx, c, k, payload{Blocks: 2, Day: "d1"}), ShouldBeNil)
			var got payload
			So(cache.GetJSON(ctx, c, k, &got), ShouldBeNil)
			So(got.Blocks, ShouldEqual, 2)

			k.Viewer = "nobody"
			_, err := c.Get(ctx, k)
			So(errors.Is(err, cache.ErrMiss), ShouldBeTrue)
		})
	})
}
