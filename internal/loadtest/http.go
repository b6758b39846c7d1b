package loadtest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/goccy/go-json"

	"github.com/okian/stagely/internal/adapters/http/api"
	"github.com/okian/stagely/internal/domain/types"
	"github.com/okian/stagely/pkg/logger"
)

// Client calls the planner API as a given member.
type Client struct {
	client *http.Client
	base   string
	secret string
}

// NewClient creates a client for cfg.
func NewClient(cfg *Config) *Client {
	return &Client{client: &http.Client{Timeout: cfg.Timeout}, base: cfg.BaseURL, secret: cfg.JWTSecret}
}

// do sends a request and decodes a JSON response into out when non-nil.
func (c *Client) do(ctx context.Context, method, path, member, key string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(api.HeaderIdempotencyKey, key)
	}
	if member != "" {
		if c.secret == "" {
			req.Header.Set(api.HeaderMemberID, member)
		} else {
			tok, err := api.SignToken(c.secret, member, tokenTTL)
			if err != nil {
				return 0, fmt.Errorf("sign token: %w", err)
			}
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// Health calls /healthz.
func (c *Client) Health(ctx context.Context) error {
	code, err := c.do(ctx, http.MethodGet, "/healthz", "", "", nil, nil)
	if err != nil {
		return err
	}
	if code != http.StatusOK {
		return fmt.Errorf("health check returned %d", code)
	}
	return nil
}

// Stats calls /stats.
func (c *Client) Stats(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if _, err := c.do(ctx, http.MethodGet, "/stats", "", "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Plan fetches the plan of a day as member.
func (c *Client) Plan(ctx context.Context, groupID, dayID, member string) (types.Plan, error) {
	var p types.Plan
	code, err := c.do(ctx, http.MethodGet, "/groups/"+groupID+"/days/"+dayID+"/plan", member, "", nil, &p)
	if err != nil {
		return p, err
	}
	if code != http.StatusOK {
		return p, fmt.Errorf("plan returned %d", code)
	}
	return p, nil
}

// Send submits one write and reports "applied", "duplicate" or "failed".
func (c *Client) Send(ctx context.Context, w Write) string {
	path := "/performances/" + w.Performance + "/rating"
	var (
		out  types.Rating
		code int
		err  error
	)
	switch w.Kind {
	case KindSet:
		code, err = c.do(ctx, http.MethodPut, path, w.MemberID, w.Key, map[string]string{"tier": w.Tier.String()}, &out)
	case KindClear:
		code, err = c.do(ctx, http.MethodDelete, path, w.MemberID, w.Key, nil, &out)
	default:
		code, err = c.do(ctx, http.MethodPost, path+"/toggle", w.MemberID, w.Key, nil, &out)
	}
	switch {
	case err != nil || code != http.StatusOK:
		return "failed"
	case out.Duplicate:
		return "duplicate"
	default:
		return "applied"
	}
}

// submitWrites sends writes with a worker pool.
func submitWrites(ctx context.Context, cfg *Config, client *Client, writes []Write, stats *Stats) {
	log := logger.Get().Named("loadtest")
	log.Info(ctx, "submitting writes", logger.Int("writes", len(writes)), logger.Int("workers", cfg.Workers))

	var submitted, applied, duplicate, failed atomic.Int64
	send := func(w Write) {
		submitted.Add(1)
		switch client.Send(ctx, w) {
		case "applied":
			applied.Add(1)
		case "duplicate":
			duplicate.Add(1)
		default:
			failed.Add(1)
		}
	}
	ch := make(chan Write, cfg.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for w := range ch {
				send(w)
			}
		}()
	}

	// Resends must follow their original, so writes sharing a key are
	// submitted in order after the first pass settles.
	seen := make(map[string]bool, len(writes))
	var resends []Write
	for _, w := range writes {
		if seen[w.Key] {
			resends = append(resends, w)
			continue
		}
		seen[w.Key] = true
		select {
		case <-ctx.Done():
		case ch <- w:
		}
	}
	close(ch)
	wg.Wait()

	for _, w := range resends {
		send(w)
	}

	stats.WritesSubmitted = int(submitted.Load())
	stats.WritesApplied = int(applied.Load())
	stats.WritesDuplicate = int(duplicate.Load())
	stats.WritesFailed = int(failed.Load())
	log.Info(ctx, "write submission completed",
		logger.Int("applied", stats.WritesApplied),
		logger.Int("duplicate", stats.WritesDuplicate),
		logger.Int("failed", stats.WritesFailed),
	)
}
