package highlights

import (
	"math"
	"sort"
	"strings"

	"courtreel/internal/envelope"
)

// Source tags which path produced a best-shot candidate.
type Source string

const (
	// SourceVision marks highlights scored by the vision service.
	SourceVision Source = "vision"
	// SourceScored marks shots scored by the local fallback formula.
	SourceScored Source = "scored"
)

// Tier buckets a fallback score.
type Tier string

const (
	TierElite    Tier = "elite"
	TierPressure Tier = "pressure"
	TierContext  Tier = "context"
	TierDiscard  Tier = "discard"
)

// heroMarker promotes a candidate ahead of all score-ranked peers during
// hero selection.
const heroMarker = "exciting exchange"

// Candidate is one best-shot row. The two variants share the ranking fields
// (player, score, time window); the rest are variant-specific.
type Candidate struct {
	Source   Source
	VID      string
	PlayerID *int
	RallyIdx int
	StartMS  *int64
	EndMS    *int64
	Score    float64

	// Vision variant.
	ShotStartIdx *int
	ShotEndIdx   *int
	Kind         string
	RallyEnding  bool
	Description  string

	// Fallback variant.
	ShotIdx        *int
	WinnerType     string
	QualityOverall *float64
	Tier           Tier
}

// Candidates produces best-shot rows for a session, preferring
// vision-supplied highlights and falling back to local scoring when the
// service supplied none.
func Candidates(doc *envelope.Document) []Candidate {
	if doc.HasHighlights() {
		return fromVision(doc)
	}
	return scoreFallback(doc)
}

// fromVision converts service-ranked highlights, resolving each entry's
// player from the rally's shot at the highlight's start index.
func fromVision(doc *envelope.Document) []Candidate {
	candidates := make([]Candidate, 0, len(doc.Insights.Highlights))
	for _, h := range doc.Insights.Highlights {
		c := Candidate{
			Source:       SourceVision,
			VID:          doc.VID,
			StartMS:      h.StartMS,
			EndMS:        h.EndMS,
			ShotStartIdx: h.ShotStartIdx,
			ShotEndIdx:   h.ShotEndIdx,
			Kind:         h.Kind,
			RallyEnding:  h.RallyEnding,
			Description:  h.ShortDescription,
		}
		if h.Score != nil {
			c.Score = *h.Score
		}
		if h.RallyIdx != nil {
			c.RallyIdx = *h.RallyIdx
			if *h.RallyIdx < len(doc.Rallies) && h.ShotStartIdx != nil {
				shots := doc.Rallies[*h.RallyIdx].Shots
				if *h.ShotStartIdx >= 0 && *h.ShotStartIdx < len(shots) {
					c.PlayerID = shots[*h.ShotStartIdx].PlayerID
				}
			}
		}
		candidates = append(candidates, c)
	}
	return candidates
}

// scoreFallback scores every shot in every rally with the local formula.
// Rows are kept regardless of tier; the tier is advisory.
func scoreFallback(doc *envelope.Document) []Candidate {
	var candidates []Candidate
	for rallyIdx, rally := range doc.Rallies {
		for shotIdx, shot := range rally.Shots {
			idx := shotIdx
			score := ScoreShot(shot)
			candidates = append(candidates, Candidate{
				Source:         SourceScored,
				VID:            doc.VID,
				PlayerID:       shot.PlayerID,
				RallyIdx:       rallyIdx,
				ShotIdx:        &idx,
				StartMS:        shot.StartMS,
				EndMS:          shot.EndMS,
				Score:          score,
				WinnerType:     shot.WinnerType,
				QualityOverall: shot.Quality.Overall,
				Tier:           TierFor(score),
			})
		}
	}
	return candidates
}

// ScoreShot computes the fallback highlight score. The winner bonus applies
// twice for winner_type "winner": once on its own and once via the
// winner/clean branch. That stacking is long-standing behavior and feeds
// established rankings, so it stays.
func ScoreShot(shot envelope.Shot) float64 {
	score := 0.0
	if shot.Quality.Overall != nil {
		score += *shot.Quality.Overall * 2.0
	}
	if shot.WinnerType == "winner" {
		score += 3.0
	}
	switch shot.WinnerType {
	case "winner", "clean":
		score += 3.0
	case "forced_fault":
		score += 2.0
	}
	if shot.IsFinal {
		score += 1.0
	}
	if shot.IsPassing {
		score += 0.5
	}
	if shot.IsVolley {
		score += 0.5
	}
	switch shot.VerticalType {
	case "dig", "half_volley":
		score += 0.3
	}
	return score
}

// TierFor maps a fallback score to its tier.
func TierFor(score float64) Tier {
	switch {
	case score >= 3.0:
		return TierElite
	case score >= 2.0:
		return TierPressure
	case score >= 1.2:
		return TierContext
	default:
		return TierDiscard
	}
}

// SelectTop keeps the topN highest-scoring candidates per player, ordered by
// (player ascending, score descending, start_ms ascending). Candidates
// without a resolved player are dropped.
func SelectTop(candidates []Candidate, topN int) []Candidate {
	if topN <= 0 {
		return nil
	}
	withPlayer := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.PlayerID != nil {
			withPlayer = append(withPlayer, c)
		}
	}
	sortCandidates(withPlayer)

	var (
		selected []Candidate
		current  = -1
		kept     = 0
	)
	for _, c := range withPlayer {
		if *c.PlayerID != current {
			current = *c.PlayerID
			kept = 0
		}
		if kept < topN {
			selected = append(selected, c)
			kept++
		}
	}
	return selected
}

// SelectHeroes picks exactly one candidate per player for the cover clip.
// Candidates described as an exciting exchange outrank everything else;
// remaining ties break by score, then rally shot span, then duration.
func SelectHeroes(candidates []Candidate) []Candidate {
	best := make(map[int]Candidate)
	for _, c := range candidates {
		if c.PlayerID == nil {
			continue
		}
		id := *c.PlayerID
		incumbent, ok := best[id]
		if !ok || heroLess(incumbent, c) {
			best[id] = c
		}
	}

	players := make([]int, 0, len(best))
	for id := range best {
		players = append(players, id)
	}
	sort.Ints(players)

	heroes := make([]Candidate, 0, len(players))
	for _, id := range players {
		heroes = append(heroes, best[id])
	}
	return heroes
}

// heroLess reports whether challenger outranks incumbent.
func heroLess(incumbent, challenger Candidate) bool {
	im, cm := isHeroMarked(incumbent), isHeroMarked(challenger)
	if im != cm {
		return cm
	}
	if incumbent.Score != challenger.Score {
		return challenger.Score > incumbent.Score
	}
	if span := shotSpan(challenger) - shotSpan(incumbent); span != 0 {
		return span > 0
	}
	return duration(challenger) > duration(incumbent)
}

func isHeroMarked(c Candidate) bool {
	return strings.Contains(strings.ToLower(c.Description), heroMarker)
}

func shotSpan(c Candidate) int {
	if c.ShotStartIdx == nil || c.ShotEndIdx == nil {
		return 0
	}
	span := *c.ShotEndIdx - *c.ShotStartIdx
	if span < 0 {
		return 0
	}
	return span
}

func duration(c Candidate) int64 {
	if c.StartMS == nil || c.EndMS == nil {
		return 0
	}
	d := *c.EndMS - *c.StartMS
	if d < 0 {
		return 0
	}
	return d
}

func sortCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if *a.PlayerID != *b.PlayerID {
			return *a.PlayerID < *b.PlayerID
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return startOf(a) < startOf(b)
	})
}

func startOf(c Candidate) int64 {
	if c.StartMS == nil {
		return math.MaxInt64
	}
	return *c.StartMS
}
