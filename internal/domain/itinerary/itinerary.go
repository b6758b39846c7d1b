// Package itinerary resolves conflict clusters into itinerary blocks.
package itinerary

import (
	"sort"

	"github.com/okian/stagely/internal/domain/cluster"
	"github.com/okian/stagely/internal/domain/timeline"
)

// Block is a resolved cluster: one winner when the group agrees, several
// ("a split") when the top score is tied or a must-go vote competes.
type Block struct {
	Anchor      int    // earliest start in the cluster, axis minutes
	AnchorTime  string // same instant as HH:MM
	Winners     []cluster.Item
	Recommended []string // winner IDs recommended to the viewer
}

// Split reports whether the group did not converge on one performance.
func (b Block) Split() bool { return len(b.Winners) > 1 }

// IsRecommended reports whether the winner with id is recommended.
func (b Block) IsRecommended(id string) bool {
	for _, r := range b.Recommended {
		if r == id {
			return true
		}
	}
	return false
}

// Resolve picks the winners of one cluster. The top scorer (earliest on a
// tie) always wins; every other item joins as a split winner when it has a
// must-go vote or ties the top score. Split winners follow in descending
// score. An empty cluster yields no block.
func Resolve(c cluster.Cluster) (Block, bool) {
	if len(c.Items) == 0 {
		return Block{}, false
	}

	ranked := make([]cluster.Item, len(c.Items))
	copy(ranked, c.Items)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	top := ranked[0]
	winners := []cluster.Item{top}
	for _, it := range ranked[1:] {
		if it.Tally.MustGo > 0 || it.Score == top.Score {
			winners = append(winners, it)
		}
	}

	return Block{
		Anchor:     c.Anchor,
		AnchorTime: timeline.Format(timeline.Minutes(c.Items[0].Performance.Start)),
		Winners:    winners,
	}, true
}

// ResolveAll resolves clusters in order.
func ResolveAll(clusters []cluster.Cluster) []Block {
	blocks := make([]Block, 0, len(clusters))
	for _, c := range clusters {
		if b, ok := Resolve(c); ok {
			blocks = append(blocks, b)
		}
	}
	return blocks
}
