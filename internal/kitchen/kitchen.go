// Package kitchen aggregates non-volley-zone arrival statistics per player
// and role.
package kitchen

import (
	"math"
	"sort"

	"courtreel/internal/envelope"
)

// Role values mirror the upstream aggregate keys, with "receiving"
// normalized to "returning".
const (
	RoleServing   = "serving"
	RoleReturning = "returning"
)

// Perspective values distinguish a player's own arrivals from their
// partner's.
const (
	PerspectiveOneself = "oneself"
	PerspectivePartner = "partner"
)

// Record is one (player, role, perspective) arrival ratio. Rows whose
// denominator was absent or zero are never materialized.
type Record struct {
	VID           string
	PlayerID      int
	TeamID        int
	Role          string
	Perspective   string
	Arrivals      float64
	Opportunities float64
	Pct           float64
}

// Records flattens the per-player kitchen aggregates into ratio rows.
// The ratio is numerator/denominator when the denominator is positive;
// otherwise the row is dropped rather than kept as zero.
func Records(doc *envelope.Document) []Record {
	if doc == nil || doc.Insights == nil {
		return nil
	}

	var rows []Record
	for playerID, player := range doc.Insights.PlayerData {
		teamID := playerID
		if player.Team != nil {
			teamID = *player.Team
		}
		roles := sortedKeys(player.KitchenArrivalPercentage)
		for _, roleKey := range roles {
			role := normalizeRole(roleKey)
			perspectives := player.KitchenArrivalPercentage[roleKey]
			for _, perspective := range []string{PerspectiveOneself, PerspectivePartner} {
				ratio, ok := perspectives[perspective]
				if !ok {
					continue
				}
				pct, ok := safeRatio(ratio.Numerator, ratio.Denominator)
				if !ok {
					continue
				}
				rows = append(rows, Record{
					VID:           doc.VID,
					PlayerID:      playerID,
					TeamID:        teamID,
					Role:          role,
					Perspective:   perspective,
					Arrivals:      *ratio.Numerator,
					Opportunities: *ratio.Denominator,
					Pct:           pct,
				})
			}
		}
	}
	return rows
}

// RoleKey identifies a grouped percentage.
type RoleKey struct {
	VID      string
	PlayerID int
	Role     string
}

// RolePercentages computes per-player kitchen percentages for grading.
// Only oneself-perspective rows participate. Numerators and denominators are
// summed across the group before a single division; averaging per-row
// percentages would weight low-opportunity rows too heavily.
func RolePercentages(records []Record) map[RoleKey]float64 {
	type sums struct {
		arrivals      float64
		opportunities float64
	}
	grouped := make(map[RoleKey]*sums)
	for _, rec := range records {
		if rec.Perspective != PerspectiveOneself {
			continue
		}
		key := RoleKey{VID: rec.VID, PlayerID: rec.PlayerID, Role: rec.Role}
		s := grouped[key]
		if s == nil {
			s = &sums{}
			grouped[key] = s
		}
		s.arrivals += rec.Arrivals
		s.opportunities += rec.Opportunities
	}

	result := make(map[RoleKey]float64, len(grouped))
	for key, s := range grouped {
		if s.opportunities == 0 {
			continue
		}
		result[key] = s.arrivals / s.opportunities
	}
	return result
}

// safeRatio divides and rounds to three decimals, the precision carried
// through to the kitchen stats report.
func safeRatio(num, den *float64) (float64, bool) {
	if num == nil || den == nil || *den == 0 {
		return 0, false
	}
	return math.RoundToEven(*num / *den * 1000) / 1000, true
}

func normalizeRole(key string) string {
	if key == "receiving" {
		return RoleReturning
	}
	return key
}

func sortedKeys(m map[string]map[string]envelope.Ratio) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
