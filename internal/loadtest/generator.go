package loadtest

import (
	"math/rand/v2"
	"strconv"

	"github.com/okian/stagely/internal/domain/model"
)

// Write kinds.
const (
	KindSet    = "set"
	KindClear  = "clear"
	KindToggle = "toggle"
)

// Write is one generated rating request.
type Write struct {
	Key         string
	Kind        string
	MemberID    string
	Performance string
	Tier        model.Tier
}

// generateWrites builds the write mix: mostly sets, some toggles and clears,
// plus resends of earlier writes under their original idempotency key.
func generateWrites(cfg *Config) []Write {
	if len(cfg.Members) == 0 || len(cfg.Sets) == 0 || cfg.Writes <= 0 {
		return nil
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed+1))
	writes := make([]Write, 0, cfg.Writes)
	for i := 0; i < cfg.Writes; i++ {
		if i > 0 && rng.Float64() < cfg.RetryRatio {
			writes = append(writes, writes[rng.IntN(len(writes))])
			continue
		}
		w := Write{
			Key:         "load-" + strconv.FormatUint(cfg.Seed, 10) + "-" + strconv.Itoa(i),
			MemberID:    cfg.Members[rng.IntN(len(cfg.Members))],
			Performance: cfg.Sets[rng.IntN(len(cfg.Sets))],
		}
		switch r := rng.IntN(10); {
		case r < 7:
			w.Kind = KindSet
			w.Tier = model.Tier(1 + rng.IntN(3))
		case r < 9:
			w.Kind = KindToggle
		default:
			w.Kind = KindClear
		}
		writes = append(writes, w)
	}
	return writes
}
