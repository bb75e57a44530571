package envelope_test

import (
	"errors"
	"strings"
	"testing"

	"courtreel/internal/envelope"
	"courtreel/internal/logging"
	"courtreel/internal/services"
	"courtreel/internal/testsupport"
)

const statsLine = `{"stats":{"session":{"vid":"match-42"}}}`

func TestParseMergesRalliesAcrossEnvelopes(t *testing.T) {
	input := strings.Join([]string{
		statsLine,
		`{"payload":{"insights":{"rallies":[{"shots":[{"player_id":0}]},{"shots":[]}]}}}`,
		`{"payload":{"insights":{"rallies":[{"shots":[{"player_id":1}]}]}}}`,
	}, "\n")

	doc, err := envelope.Parse(strings.NewReader(input), logging.NewNop())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if doc.VID != "match-42" {
		t.Fatalf("unexpected vid %q", doc.VID)
	}
	if len(doc.Rallies) != 3 {
		t.Fatalf("expected 3 merged rallies, got %d", len(doc.Rallies))
	}
	if doc.Rallies[0].Shots[0].PlayerID == nil || *doc.Rallies[0].Shots[0].PlayerID != 0 {
		t.Fatalf("unexpected first rally shot: %#v", doc.Rallies[0].Shots)
	}
	if doc.Rallies[2].Shots[0].PlayerID == nil || *doc.Rallies[2].Shots[0].PlayerID != 1 {
		t.Fatalf("unexpected last rally shot: %#v", doc.Rallies[2].Shots)
	}
}

func TestParseFindsObjectsAtTopLevelOrUnderPayload(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"top-level", `{"stats":{"session":{"vid":"v"}},"insights":{"rallies":[]}}`},
		{"payload-nested", `{"payload":{"stats":{"session":{"vid":"v"}},"insights":{"rallies":[]}}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := envelope.Parse(strings.NewReader(tc.input), logging.NewNop())
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if doc.Stats == nil || doc.VID != "v" {
				t.Fatalf("stats not located: %#v", doc)
			}
			if doc.Insights == nil {
				t.Fatal("insights not located")
			}
		})
	}
}

func TestParseSkipsMalformedLines(t *testing.T) {
	input := statsLine + "\n{not json}\n\n" + `{"insights":{"rallies":[{"shots":[]}]}}`

	doc, err := envelope.Parse(strings.NewReader(input), logging.NewNop())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if doc.Skipped != 1 {
		t.Fatalf("expected one skipped line, got %d", doc.Skipped)
	}
	if doc.Lines != 3 {
		t.Fatalf("expected 3 counted lines, got %d", doc.Lines)
	}
	if len(doc.Rallies) != 1 {
		t.Fatalf("expected 1 rally, got %d", len(doc.Rallies))
	}
}

func TestParseRejectsFullyMalformedInput(t *testing.T) {
	_, err := envelope.Parse(strings.NewReader("garbage\nmore garbage\n"), logging.NewNop())
	if err == nil {
		t.Fatal("expected error for input without valid envelopes")
	}
	if !errors.Is(err, services.ErrMalformedInput) {
		t.Fatalf("expected malformed input marker, got %v", err)
	}
}

func TestParseMissingVIDIsSoftFailure(t *testing.T) {
	doc, err := envelope.Parse(strings.NewReader(`{"insights":{"rallies":[]}}`), logging.NewNop())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if doc.VID != "" {
		t.Fatalf("expected empty vid, got %q", doc.VID)
	}
}

func TestReadLoadsFile(t *testing.T) {
	path := t.TempDir() + "/telemetry.jsonl"
	testsupport.WriteLines(t, path,
		statsLine,
		`{"payload":{"insights":{"rallies":[{"shots":[]}]}}}`,
	)

	doc, err := envelope.Read(path, logging.NewNop())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if doc.VID != "match-42" || len(doc.Rallies) != 1 {
		t.Fatalf("unexpected document: %#v", doc)
	}
}

func TestReadMissingFile(t *testing.T) {
	_, err := envelope.Read(t.TempDir()+"/nope.jsonl", logging.NewNop())
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found marker, got %v", err)
	}
}

func TestHasTrajectory(t *testing.T) {
	var m envelope.BallMovement
	if m.HasTrajectory() {
		t.Fatal("empty trajectory should count as absent")
	}
	m.Trajectory = map[string]any{"points": []any{}}
	if !m.HasTrajectory() {
		t.Fatal("non-empty trajectory should count as present")
	}
}
