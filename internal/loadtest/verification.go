package loadtest

import (
	"fmt"

	"github.com/okian/stagely/internal/domain/types"
)

// VerifyPlan checks the structural guarantees of a plan. Each block needs
// options led by the top score, a split flag matching the option count and
// at least one recommendation.
func VerifyPlan(p types.Plan) error {
	for i, b := range p.Blocks {
		if len(b.Options) == 0 {
			return fmt.Errorf("block %d (%s) has no options", i, b.Time)
		}
		if b.Split != (len(b.Options) > 1) {
			return fmt.Errorf("block %d (%s) split flag disagrees with %d options", i, b.Time, len(b.Options))
		}
		first := b.Options[0]

		recommended := 0
		for _, o := range b.Options {
			if o.Score > first.Score {
				return fmt.Errorf("block %d (%s): %s outscores the leading option", i, b.Time, o.ID)
			}
			if o.Score <= 0 {
				return fmt.Errorf("block %d (%s): %s has no votes", i, b.Time, o.ID)
			}
			if o.Recommended {
				recommended++
			}
		}
		if recommended == 0 {
			return fmt.Errorf("block %d (%s) has no recommendation for %q", i, b.Time, p.Viewer)
		}
	}
	return nil
}
