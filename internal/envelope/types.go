package envelope

import "encoding/json"

// Stats is the session-level summary object.
type Stats struct {
	Session Session      `json:"session"`
	Players []PlayerData `json:"players"`
}

// Session identifies the recording the telemetry belongs to.
type Session struct {
	VID string `json:"vid"`
}

// Insights carries the per-rally telemetry and optional precomputed
// highlights.
type Insights struct {
	Rallies    []Rally      `json:"rallies"`
	Highlights []Highlight  `json:"highlights"`
	PlayerData []PlayerData `json:"player_data"`
}

// Rally is one continuous point-in-play.
type Rally struct {
	Shots []Shot `json:"shots"`
}

// Shot is a single stroke within a rally. Numeric fields are pointers because
// the upstream schema omits values it could not measure.
type Shot struct {
	PlayerID       *int                       `json:"player_id"`
	ShotType       string                     `json:"shot_type"`
	StartMS        *int64                     `json:"start_ms"`
	EndMS          *int64                     `json:"end_ms"`
	BallMovement   BallMovement               `json:"resulting_ball_movement"`
	Quality        Quality                    `json:"quality"`
	WinnerType     string                     `json:"winner_type"`
	VerticalType   string                     `json:"vertical_type"`
	IsFinal        bool                       `json:"is_final"`
	IsPassing      bool                       `json:"is_passing"`
	IsVolley       bool                       `json:"is_volley"`
	AdvantageScale []float64                  `json:"advantage_scale"`
	Tags           map[string]json.RawMessage `json:"tags"`
}

// BallMovement holds trajectory-derived metrics for a shot.
type BallMovement struct {
	Distance      *float64       `json:"distance"`
	HeightOverNet *float64       `json:"height_over_net"`
	Speed         *float64       `json:"speed"`
	Trajectory    map[string]any `json:"trajectory"`
}

// HasTrajectory reports whether the vision service resolved a trajectory for
// this movement. An empty object counts as absent.
func (m BallMovement) HasTrajectory() bool {
	return len(m.Trajectory) > 0
}

// Quality is the vision service's shot quality assessment.
type Quality struct {
	Overall *float64 `json:"overall"`
}

// Highlight is a precomputed noteworthy moment supplied by the vision
// service. Times use the s/e keys of the upstream schema.
type Highlight struct {
	RallyIdx         *int     `json:"rally_idx"`
	ShotStartIdx     *int     `json:"shot_start_idx"`
	ShotEndIdx       *int     `json:"shot_end_idx"`
	StartMS          *int64   `json:"s"`
	EndMS            *int64   `json:"e"`
	Kind             string   `json:"kind"`
	Score            *float64 `json:"score"`
	RallyEnding      bool     `json:"rally_ending"`
	ShortDescription string   `json:"short_description"`
}

// PlayerData carries per-player aggregates, keyed by position in the list.
type PlayerData struct {
	Team                     *int                        `json:"team"`
	KitchenArrivalPercentage map[string]map[string]Ratio `json:"kitchen_arrival_percentage"`
}

// Ratio is a numerator/denominator pair from the upstream aggregates.
type Ratio struct {
	Numerator   *float64 `json:"numerator"`
	Denominator *float64 `json:"denominator"`
}

// Document is the merged view of one telemetry file.
type Document struct {
	Stats    *Stats
	Insights *Insights
	Rallies  []Rally
	VID      string

	// Lines and Skipped describe parse coverage for diagnostics.
	Lines   int
	Skipped int
}

// HasHighlights reports whether the vision service supplied precomputed
// highlight entries, which selects the preferred ranking path downstream.
func (d *Document) HasHighlights() bool {
	return d != nil && d.Insights != nil && len(d.Insights.Highlights) > 0
}
