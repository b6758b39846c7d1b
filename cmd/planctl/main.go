// Command planctl is an operator tool for the planner: it computes plans from
// fixture files offline, generates fixtures, signs member tokens and drives
// load against a running server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	json "github.com/goccy/go-json"

	"github.com/okian/stagely/internal/adapters/http/api"
	"github.com/okian/stagely/internal/adapters/repository"
	service "github.com/okian/stagely/internal/app"
	"github.com/okian/stagely/internal/domain/cluster"
	"github.com/okian/stagely/internal/domain/planner"
	"github.com/okian/stagely/internal/domain/recommend"
	"github.com/okian/stagely/internal/fixture"
	"github.com/okian/stagely/internal/loadtest"
	"github.com/okian/stagely/pkg/logger"
)

// Default configuration constants.
const (
	defaultWrites      = 2000
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultLoadTimeout = 10 * time.Minute
	defaultTokenTTL    = 24 * time.Hour
	defaultRetryRatio  = 0.1
)

var (
	errUsage   = errors.New("usage: planctl <plan|generate|token|load> [flags]")
	errMissing = errors.New("missing required flag")
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runCommand(ctx, os.Args[1:], os.Stdout); err != nil {
		os.Stderr.WriteString("planctl: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func runCommand(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "plan":
		return planCmd(ctx, args[1:], out)
	case "generate":
		return generateCmd(args[1:], out)
	case "token":
		return tokenCmd(args[1:], out)
	case "load":
		return loadCmd(ctx, args[1:], out)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

// planCmd loads a fixture into a memory store and prints one plan as JSON.
func planCmd(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	var (
		file      = fs.String("fixture", "", "YAML fixture file (generated when empty)")
		seed      = fs.Uint64("seed", 1, "generator seed when no fixture is given")
		groupID   = fs.String("group", "", "group ID (first group when empty)")
		dayID     = fs.String("day", "", "day ID (first day when empty)")
		viewer    = fs.String("viewer", "", "member ID for personal recommendations")
		heatmap   = fs.Bool("heatmap", false, "print the heat map instead of the plan")
		tolerance = fs.Int("overlap-tolerance", cluster.DefaultOverlapTolerance, "minutes of overlap treated as sequential")
		gap       = fs.Int("gap", recommend.DefaultGapThreshold, "minimum gap in minutes worth filling")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := loadSeed(*file, *seed)
	if err != nil {
		return err
	}
	group, day, err := pick(s, *groupID, *dayID)
	if err != nil {
		return err
	}

	store := repository.NewMemoryStore()
	if err := store.Load(ctx, s); err != nil {
		return err
	}
	svc := service.New(
		service.WithStore(store),
		service.WithWorkerCount(1),
		service.WithPlanner(planner.New(
			planner.WithOverlapTolerance(*tolerance),
			planner.WithGapThreshold(*gap),
		)),
	)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop(context.WithoutCancel(ctx))

	var v any
	if *heatmap {
		v, err = svc.HeatMap(ctx, group, day)
	} else {
		v, err = svc.Plan(ctx, group, day, *viewer)
	}
	if err != nil {
		return err
	}
	return printJSON(out, v)
}

// generateCmd writes a random fixture file.
func generateCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	var (
		path    = fs.String("out", "", "output YAML file")
		seed    = fs.Uint64("seed", 1, "generator seed")
		days    = fs.Int("days", fixture.DefaultDays, "festival days")
		stages  = fs.Int("stages", fixture.DefaultStages, "stages per day")
		sets    = fs.Int("sets", fixture.DefaultSetsPerDay, "sets per day")
		members = fs.Int("members", fixture.DefaultMembers, "group members")
		ratio   = fs.Float64("ratings", fixture.DefaultRatingRatio, "share of (member, set) pairs rated")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("%w: -out", errMissing)
	}
	s := fixture.Generate(fixture.Spec{
		Seed: *seed, Days: *days, Stages: *stages, SetsPerDay: *sets,
		Members: *members, RatingRatio: *ratio,
	})
	if err := fixture.Save(*path, s); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "wrote %s: %d days, %d sets, %d members, %d ratings\n",
		*path, len(s.Days), len(s.Performances), len(s.Members), len(s.Ratings))
	return err
}

// tokenCmd prints a signed bearer token for a member.
func tokenCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	var (
		secret = fs.String("secret", os.Getenv("STAGELY_JWT_SECRET"), "HS256 signing secret")
		member = fs.String("member", "", "member ID (token subject)")
		ttl    = fs.Duration("ttl", defaultTokenTTL, "token lifetime")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *secret == "" || *member == "" {
		return fmt.Errorf("%w: -secret and -member", errMissing)
	}
	tok, err := api.SignToken(*secret, *member, *ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, tok)
	return err
}

// loadCmd rates sets of a fixture's group against a running server and
// verifies the resulting plans. The server must be seeded with the same fixture.
func loadCmd(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("load", flag.ContinueOnError)
	var (
		baseURL = fs.String("url", "http://localhost:9080", "Base URL of the service")
		file    = fs.String("fixture", "", "YAML fixture the server was seeded with")
		groupID = fs.String("group", "", "group ID (first group when empty)")
		dayID   = fs.String("day", "", "day ID (first day when empty)")
		writes  = fs.Int("writes", defaultWrites, "number of rating writes")
		retry   = fs.Float64("retry", defaultRetryRatio, "share of writes resent with the same idempotency key")
		workers = fs.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout = fs.Duration("timeout", defaultTimeout, "HTTP request timeout")
		secret  = fs.String("secret", os.Getenv("STAGELY_JWT_SECRET"), "HS256 secret; X-Member-ID is sent when empty")
		seed    = fs.Uint64("seed", 1, "write mix seed")
		verbose = fs.Bool("verbose", false, "Enable verbose logging")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("%w: -fixture", errMissing)
	}
	s, err := fixture.Load(*file)
	if err != nil {
		return err
	}
	group, day, err := pick(s, *groupID, *dayID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultLoadTimeout)
	defer cancel()

	stats, err := loadtest.Run(ctx, &loadtest.Config{
		BaseURL:    *baseURL,
		GroupID:    group,
		DayID:      day,
		Members:    groupMembers(s, group),
		Sets:       daySets(s, day),
		Writes:     *writes,
		RetryRatio: *retry,
		Workers:    *workers,
		Timeout:    *timeout,
		JWTSecret:  *secret,
		Seed:       *seed,
		Verbose:    *verbose,
	})
	if stats != nil {
		if perr := printJSON(out, stats); perr != nil {
			logger.Get().Warn(ctx, "failed to print stats", logger.Error(perr))
		}
	}
	return err
}

func loadSeed(path string, seed uint64) (repository.Seed, error) {
	if path == "" {
		return fixture.Generate(fixture.Spec{Seed: seed}), nil
	}
	return fixture.Load(path)
}

// pick resolves the group and day, defaulting to the first of each.
func pick(s repository.Seed, groupID, dayID string) (string, string, error) {
	if groupID == "" {
		if len(s.Groups) == 0 {
			return "", "", fmt.Errorf("%w: fixture has no groups", fixture.ErrInvalidFixture)
		}
		groupID = s.Groups[0].ID
	}
	if dayID == "" {
		if len(s.Days) == 0 {
			return "", "", fmt.Errorf("%w: fixture has no days", fixture.ErrInvalidFixture)
		}
		dayID = s.Days[0].ID
	}
	return groupID, dayID, nil
}

func groupMembers(s repository.Seed, groupID string) []string {
	for _, g := range s.Groups {
		if g.ID == groupID {
			return g.MemberIDs
		}
	}
	return nil
}

func daySets(s repository.Seed, dayID string) []string {
	var ids []string
	for _, p := range s.Performances {
		if p.DayID == dayID {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

func printJSON(out io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(b))
	return err
}
