// Package grading aggregates per-player serve/return metrics and assigns
// ordinal skill grades from configured threshold bands.
package grading

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"courtreel/internal/config"
	"courtreel/internal/kitchen"
	"courtreel/internal/shots"
)

// Grade labels, ordered worst to best. The ordinal positions feed the
// overall grade.
var gradeOrder = []string{"Beginner", "Intermediate", "Advanced", "Pro"}

const defaultOverallGrade = "Intermediate"

// Average is one player's aggregated metrics and grades. Nil metrics carry
// nil grades; they never silently grade as zero.
type Average struct {
	VID      string
	PlayerID int

	ServeDepthAvg    *float64
	ServeHeightAvg   *float64
	ReturnDepthAvg   *float64
	ReturnHeightAvg  *float64
	ServeKitchenPct  *float64
	ReturnKitchenPct *float64

	ServeDepthGrade   *string
	ServeHeightGrade  *string
	ServeKitchenGrade *string

	ReturnDepthGrade   *string
	ReturnHeightGrade  *string
	ReturnKitchenGrade *string

	OverallGrade string
}

// Averages computes per-player averages across classified shots and grouped
// kitchen percentages, then applies the configured grade bands. Depth values
// arrive as distance-from-net and are converted to distance-from-baseline
// before averaging.
func Averages(rows []shots.Row, kitchenPcts map[kitchen.RoleKey]float64, cfg config.Grading) []Average {
	type playerKey struct {
		vid    string
		player int
	}
	type metrics struct {
		serveDepth   []float64
		serveHeight  []float64
		returnDepth  []float64
		returnHeight []float64
	}

	grouped := make(map[playerKey]*metrics)
	var order []playerKey
	collect := func(key playerKey) *metrics {
		m := grouped[key]
		if m == nil {
			m = &metrics{}
			grouped[key] = m
			order = append(order, key)
		}
		return m
	}

	for _, row := range rows {
		if row.PlayerID == nil {
			continue
		}
		key := playerKey{vid: row.VID, player: *row.PlayerID}
		var depthDst, heightDst *[]float64
		m := collect(key)
		switch row.Role {
		case shots.RoleServe:
			depthDst, heightDst = &m.serveDepth, &m.serveHeight
		case shots.RoleReturn:
			depthDst, heightDst = &m.returnDepth, &m.returnHeight
		default:
			continue
		}
		if row.Depth != nil {
			*depthDst = append(*depthDst, config.CourtLengthFeet-*row.Depth)
		}
		if row.HeightOverNet != nil {
			*heightDst = append(*heightDst, *row.HeightOverNet)
		}
	}

	// Players may appear only in kitchen aggregates.
	for key := range kitchenPcts {
		collect(playerKey{vid: key.VID, player: key.PlayerID})
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].vid != order[j].vid {
			return order[i].vid < order[j].vid
		}
		return order[i].player < order[j].player
	})

	averages := make([]Average, 0, len(order))
	for _, key := range order {
		m := grouped[key]
		avg := Average{VID: key.vid, PlayerID: key.player}
		avg.ServeDepthAvg = meanOf(m.serveDepth)
		avg.ServeHeightAvg = meanOf(m.serveHeight)
		avg.ReturnDepthAvg = meanOf(m.returnDepth)
		avg.ReturnHeightAvg = meanOf(m.returnHeight)
		avg.ServeKitchenPct = lookupPct(kitchenPcts, key.vid, key.player, kitchen.RoleServing)
		avg.ReturnKitchenPct = lookupPct(kitchenPcts, key.vid, key.player, kitchen.RoleReturning)

		avg.ServeDepthGrade = GradeInverse(avg.ServeDepthAvg, cfg.ServeDepthBands)
		avg.ServeHeightGrade = GradeInverse(avg.ServeHeightAvg, cfg.HeightBands)
		avg.ServeKitchenGrade = GradeDirect(avg.ServeKitchenPct, cfg.ServeKitchenBands)
		avg.ReturnDepthGrade = GradeInverse(avg.ReturnDepthAvg, cfg.ServeDepthBands)
		avg.ReturnHeightGrade = GradeInverse(avg.ReturnHeightAvg, cfg.HeightBands)
		avg.ReturnKitchenGrade = GradeDirect(avg.ReturnKitchenPct, cfg.ReturnKitchenBands)

		avg.OverallGrade = OverallGrade([]*string{
			avg.ServeDepthGrade,
			avg.ServeHeightGrade,
			avg.ServeKitchenGrade,
			avg.ReturnDepthGrade,
			avg.ReturnHeightGrade,
			avg.ReturnKitchenGrade,
		})
		averages = append(averages, avg)
	}
	return averages
}

// GradeInverse grades a metric where lower is better. Bands carry ascending
// upper bounds; the first bound at or above the value wins, with "Beginner"
// as the fallthrough.
func GradeInverse(value *float64, bands []config.GradeBand) *string {
	if value == nil || math.IsNaN(*value) {
		return nil
	}
	for _, band := range bands {
		if *value <= band.Bound {
			label := band.Label
			return &label
		}
	}
	label := gradeOrder[0]
	return &label
}

// GradeDirect grades a metric where higher is better. Bands carry descending
// lower bounds; the first bound at or below the value wins, with "Beginner"
// as the fallthrough.
func GradeDirect(value *float64, bands []config.GradeBand) *string {
	if value == nil || math.IsNaN(*value) {
		return nil
	}
	for _, band := range bands {
		if *value >= band.Bound {
			label := band.Label
			return &label
		}
	}
	label := gradeOrder[0]
	return &label
}

// OverallGrade averages the component grade ordinals and rounds the mean
// half-to-even back to a label. A missing or unknown component counts as
// zero and still divides, dragging the average toward Beginner; an
// out-of-range mean falls back to Intermediate.
func OverallGrade(grades []*string) string {
	if len(grades) == 0 {
		return defaultOverallGrade
	}
	sum := 0.0
	for _, grade := range grades {
		if grade == nil {
			continue
		}
		if ord, ok := ordinalOf(*grade); ok {
			sum += float64(ord)
		}
	}
	rounded := int(math.RoundToEven(sum / float64(len(grades))))
	if rounded < 0 || rounded >= len(gradeOrder) {
		return defaultOverallGrade
	}
	return gradeOrder[rounded]
}

func ordinalOf(label string) (int, bool) {
	for i, known := range gradeOrder {
		if known == label {
			return i, true
		}
	}
	return 0, false
}

func meanOf(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	mean := stat.Mean(values, nil)
	return &mean
}

func lookupPct(pcts map[kitchen.RoleKey]float64, vid string, player int, role string) *float64 {
	value, ok := pcts[kitchen.RoleKey{VID: vid, PlayerID: player, Role: role}]
	if !ok {
		return nil
	}
	return &value
}
