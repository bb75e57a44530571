package shots_test

import (
	"encoding/json"
	"testing"

	"courtreel/internal/envelope"
	"courtreel/internal/logging"
	"courtreel/internal/shots"
)

func intPtr(v int) *int { return &v }

func msPtr(v int64) *int64 { return &v }

func floatPtr(v float64) *float64 { return &v }

func shotWithTrajectory(player int) envelope.Shot {
	return envelope.Shot{
		PlayerID: intPtr(player),
		StartMS:  msPtr(0),
		EndMS:    msPtr(500),
		BallMovement: envelope.BallMovement{
			Trajectory: map[string]any{"points": 3},
		},
	}
}

func TestClassifyPositionalFallback(t *testing.T) {
	doc := &envelope.Document{
		VID: "v1",
		Rallies: []envelope.Rally{{
			Shots: []envelope.Shot{
				shotWithTrajectory(0),
				shotWithTrajectory(1),
				shotWithTrajectory(0),
			},
		}},
	}

	rows, skipped := shots.Classify(doc, logging.NewNop())
	if skipped != 0 {
		t.Fatalf("expected no skips, got %d", skipped)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	want := []shots.Role{shots.RoleServe, shots.RoleReturn, shots.RoleRally}
	for i, row := range rows {
		if row.Role != want[i] {
			t.Fatalf("row %d: expected role %s, got %s", i, want[i], row.Role)
		}
	}
}

func TestClassifyTagBasedServeDetection(t *testing.T) {
	tagged := shotWithTrajectory(1)
	tagged.Tags = map[string]json.RawMessage{"shot;type;serve;forehand": nil}

	doc := &envelope.Document{
		VID: "v1",
		Rallies: []envelope.Rally{{
			Shots: []envelope.Shot{
				shotWithTrajectory(0), // stray pre-serve shot
				tagged,
				shotWithTrajectory(0),
				shotWithTrajectory(1),
			},
		}},
	}

	rows, _ := shots.Classify(doc, logging.NewNop())
	want := []shots.Role{shots.RoleRally, shots.RoleServe, shots.RoleReturn, shots.RoleRally}
	for i, row := range rows {
		if row.Role != want[i] {
			t.Fatalf("row %d: expected role %s, got %s", i, want[i], row.Role)
		}
	}
}

func TestClassifySkipsShotsWithoutTrajectoryButKeepsIndices(t *testing.T) {
	noTrajectory := envelope.Shot{PlayerID: intPtr(0)}
	doc := &envelope.Document{
		VID: "v1",
		Rallies: []envelope.Rally{{
			Shots: []envelope.Shot{
				noTrajectory,
				shotWithTrajectory(1),
				shotWithTrajectory(0),
			},
		}},
	}

	rows, skipped := shots.Classify(doc, logging.NewNop())
	if skipped != 1 {
		t.Fatalf("expected 1 skipped shot, got %d", skipped)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	// The skipped shot still occupied index 0, so the retained shots keep
	// their return/rally roles.
	if rows[0].ShotIdx != 1 || rows[0].Role != shots.RoleReturn {
		t.Fatalf("unexpected first row: %#v", rows[0])
	}
	if rows[1].ShotIdx != 2 || rows[1].Role != shots.RoleRally {
		t.Fatalf("unexpected second row: %#v", rows[1])
	}
}

func TestClassifyDefaultsAndAdvantage(t *testing.T) {
	shot := shotWithTrajectory(1)
	shot.AdvantageScale = []float64{0.2, 0.8}
	shot.Quality = envelope.Quality{Overall: floatPtr(0.9)}
	shot.IsFinal = true
	shot.IsVolley = true

	noPlayer := shotWithTrajectory(0)
	noPlayer.PlayerID = nil
	noPlayer.AdvantageScale = []float64{0.5}

	doc := &envelope.Document{
		VID:     "v1",
		Rallies: []envelope.Rally{{Shots: []envelope.Shot{shot, noPlayer}}},
	}

	rows, _ := shots.Classify(doc, logging.NewNop())
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	first := rows[0]
	if first.ShotType != "unknown" {
		t.Fatalf("expected default shot type, got %q", first.ShotType)
	}
	if first.AdvantageScale == nil || *first.AdvantageScale != 0.8 {
		t.Fatalf("expected advantage 0.8, got %v", first.AdvantageScale)
	}
	if first.Quality == nil || *first.Quality != 0.9 {
		t.Fatalf("expected quality 0.9, got %v", first.Quality)
	}
	if !first.IsFinal || !first.IsVolleyed {
		t.Fatalf("expected flags carried through: %#v", first)
	}
	second := rows[1]
	if second.PlayerID != nil {
		t.Fatalf("expected nil player id, got %v", second.PlayerID)
	}
	if second.AdvantageScale != nil {
		t.Fatal("advantage must not resolve without a player id")
	}
}
