package ratings

import "github.com/okian/stagely/internal/domain/model"

// Next advances the toggle cycle: none -> curious -> interested -> must-go
// -> none. present reports whether a rating exists; the returned bool is
// false when the rating should be removed.
func Next(current model.Tier, present bool) (model.Tier, bool) {
	if !present || !current.Valid() {
		return model.TierCurious, true
	}
	switch current {
	case model.TierCurious:
		return model.TierInterested, true
	case model.TierInterested:
		return model.TierMustGo, true
	default:
		return 0, false
	}
}
