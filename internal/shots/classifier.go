// Package shots classifies raw rally telemetry into per-shot rows with
// roles and trajectory metrics.
package shots

import (
	"log/slog"
	"strings"

	"courtreel/internal/envelope"
	"courtreel/internal/logging"
)

// Role describes a shot's position in the rally structure.
type Role string

const (
	RoleServe  Role = "serve"
	RoleReturn Role = "return"
	RoleRally  Role = "rally"
)

// Positional fallback used when no shot carries a serve tag.
const (
	serveIndex  = 0
	returnIndex = 1
)

// serveTagMarker is the tag-key fragment the vision service uses to flag the
// serve shot.
const serveTagMarker = "type;serve"

// Row is one classified shot. Pointer fields mirror the schema's optional
// metrics; consumers treat nil as "not measured".
type Row struct {
	VID            string
	RallyIdx       int
	ShotIdx        int
	PlayerID       *int
	ShotType       string
	Role           Role
	StartMS        *int64
	EndMS          *int64
	Depth          *float64
	HeightOverNet  *float64
	Speed          *float64
	Quality        *float64
	AdvantageScale *float64
	IsFinal        bool
	IsVolleyed     bool
}

// Classify walks every rally's shots and emits one row per shot that has
// trajectory data. Shots without trajectory are skipped but still occupy
// their index for role detection. The returned count is the number of
// skipped shots.
func Classify(doc *envelope.Document, logger *slog.Logger) ([]Row, int) {
	if logger == nil {
		logger = logging.NewNop()
	}

	var rows []Row
	skipped := 0
	for rallyIdx, rally := range doc.Rallies {
		if len(rally.Shots) == 0 {
			logger.Warn("rally has no shots", logging.Int("rally", rallyIdx))
			continue
		}
		serveIdx, tagged := findServeIndex(rally.Shots)

		for shotIdx, shot := range rally.Shots {
			if !shot.BallMovement.HasTrajectory() {
				skipped++
				continue
			}
			if shot.PlayerID == nil {
				logger.Warn("shot missing player id",
					logging.Int("rally", rallyIdx),
					logging.Int("shot", shotIdx))
			}

			shotType := shot.ShotType
			if shotType == "" {
				shotType = "unknown"
			}

			rows = append(rows, Row{
				VID:            doc.VID,
				RallyIdx:       rallyIdx,
				ShotIdx:        shotIdx,
				PlayerID:       shot.PlayerID,
				ShotType:       shotType,
				Role:           roleFor(shotIdx, serveIdx, tagged),
				StartMS:        shot.StartMS,
				EndMS:          shot.EndMS,
				Depth:          shot.BallMovement.Distance,
				HeightOverNet:  shot.BallMovement.HeightOverNet,
				Speed:          shot.BallMovement.Speed,
				Quality:        shot.Quality.Overall,
				AdvantageScale: advantageFor(shot),
				IsFinal:        shot.IsFinal,
				IsVolleyed:     shot.IsVolley,
			})
		}
	}

	if skipped > 0 {
		logger.Info("skipped shots without trajectory data", logging.Int("count", skipped))
	}
	return rows, skipped
}

// findServeIndex scans tag keys for the serve marker. The second return value
// reports whether a tagged serve was found; callers fall back to positional
// roles otherwise.
func findServeIndex(shots []envelope.Shot) (int, bool) {
	for idx, shot := range shots {
		for key := range shot.Tags {
			if strings.Contains(key, serveTagMarker) {
				return idx, true
			}
		}
	}
	return 0, false
}

func roleFor(shotIdx, serveIdx int, tagged bool) Role {
	if tagged {
		switch shotIdx {
		case serveIdx:
			return RoleServe
		case serveIdx + 1:
			return RoleReturn
		default:
			return RoleRally
		}
	}
	switch shotIdx {
	case serveIndex:
		return RoleServe
	case returnIndex:
		return RoleReturn
	default:
		return RoleRally
	}
}

// advantageFor indexes the advantage scale by the shot's player id.
func advantageFor(shot envelope.Shot) *float64 {
	if shot.PlayerID == nil || shot.AdvantageScale == nil {
		return nil
	}
	id := *shot.PlayerID
	if id < 0 || id >= len(shot.AdvantageScale) {
		return nil
	}
	value := shot.AdvantageScale[id]
	return &value
}
