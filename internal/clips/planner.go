// Package clips plans and produces the per-player video deliverables: padded
// context reels, best-shot reels, and hero clips.
package clips

import (
	"fmt"
	"sort"

	"courtreel/internal/config"
	"courtreel/internal/highlights"
)

// Category identifies which deliverable a clip belongs to.
type Category string

const (
	CategoryServeContext  Category = "serve_context"
	CategoryReturnContext Category = "return_context"
	CategoryBestShot      Category = "best_shot"
	CategoryHero          Category = "hero"
)

// Clip is one padded extraction request against the job's source video.
type Clip struct {
	Category Category
	PlayerID int
	RallyIdx int
	StartMS  int64
	EndMS    int64
}

// Name returns the stable clip filename stem.
func (c Clip) Name() string {
	return fmt.Sprintf("%s_p%d_r%d_%d", c.Category, c.PlayerID, c.RallyIdx, c.StartMS)
}

// Group is one reel: the ordered clips for a (category, player) pair.
type Group struct {
	Category Category
	PlayerID int
	Clips    []Clip
}

// Name returns the stable reel filename stem.
func (g Group) Name() string {
	return fmt.Sprintf("%s_player_%d", g.Category, g.PlayerID)
}

// Plan holds every clip the engine must produce for one job.
type Plan struct {
	Groups []Group
	Heroes []Clip
}

// Build pads and groups windows, best shots, and heroes into a production
// plan. Rows without a player or without a time range are skipped; they
// cannot be attributed to a deliverable.
func Build(windows []highlights.Window, bestShots, heroes []highlights.Candidate, cfg config.Clips) Plan {
	var clips []Clip
	for _, w := range windows {
		if w.PlayerID == nil {
			continue
		}
		pad := cfg.PadServeContextMS
		category := CategoryServeContext
		if w.Type == highlights.WindowReturnContext {
			pad = cfg.PadReturnContextMS
			category = CategoryReturnContext
		}
		clips = append(clips, padClip(category, *w.PlayerID, w.RallyIdx, w.StartMS, w.EndMS, pad))
	}
	for _, c := range bestShots {
		if clip, ok := candidateClip(CategoryBestShot, c, cfg.PadBestShotMS); ok {
			clips = append(clips, clip)
		}
	}

	plan := Plan{Groups: groupClips(clips)}
	for _, h := range heroes {
		if clip, ok := candidateClip(CategoryHero, h, cfg.PadHeroMS); ok {
			plan.Heroes = append(plan.Heroes, clip)
		}
	}
	return plan
}

func candidateClip(category Category, c highlights.Candidate, pad int64) (Clip, bool) {
	if c.PlayerID == nil || c.StartMS == nil || c.EndMS == nil {
		return Clip{}, false
	}
	return padClip(category, *c.PlayerID, c.RallyIdx, *c.StartMS, *c.EndMS, pad), true
}

func padClip(category Category, player, rally int, startMS, endMS, pad int64) Clip {
	start := startMS - pad
	if start < 0 {
		start = 0
	}
	return Clip{
		Category: category,
		PlayerID: player,
		RallyIdx: rally,
		StartMS:  start,
		EndMS:    endMS + pad,
	}
}

type groupKey struct {
	category Category
	player   int
}

// groupClips buckets clips by (category, player). Context reels run in rally
// order; best-shot reels run in start time order so the reel follows the
// match chronology even when scores interleave rallies.
func groupClips(clips []Clip) []Group {
	buckets := make(map[groupKey][]Clip)
	for _, clip := range clips {
		key := groupKey{category: clip.Category, player: clip.PlayerID}
		buckets[key] = append(buckets[key], clip)
	}

	keys := make([]groupKey, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].category != keys[j].category {
			return keys[i].category < keys[j].category
		}
		return keys[i].player < keys[j].player
	})

	groups := make([]Group, 0, len(keys))
	for _, key := range keys {
		members := buckets[key]
		sort.SliceStable(members, func(i, j int) bool {
			if key.category == CategoryBestShot {
				return members[i].StartMS < members[j].StartMS
			}
			if members[i].RallyIdx != members[j].RallyIdx {
				return members[i].RallyIdx < members[j].RallyIdx
			}
			return members[i].StartMS < members[j].StartMS
		})
		groups = append(groups, Group{Category: key.category, PlayerID: key.player, Clips: members})
	}
	return groups
}
