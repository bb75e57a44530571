package highlights_test

import (
	"testing"

	"courtreel/internal/highlights"
	"courtreel/internal/shots"
)

func intPtr(v int) *int { return &v }

func msPtr(v int64) *int64 { return &v }

func row(rally, shot int, role shots.Role, start, end int64) shots.Row {
	return shots.Row{
		VID:      "v1",
		RallyIdx: rally,
		ShotIdx:  shot,
		PlayerID: intPtr(shot % 2),
		Role:     role,
		StartMS:  msPtr(start),
		EndMS:    msPtr(end),
	}
}

func TestBuildWindowsServeAndReturnContexts(t *testing.T) {
	rows := []shots.Row{
		row(0, 0, shots.RoleServe, 1000, 1500),
		row(0, 1, shots.RoleReturn, 1600, 2100),
		row(0, 2, shots.RoleRally, 2200, 2700),
		row(0, 3, shots.RoleRally, 2800, 3300),
		row(0, 4, shots.RoleRally, 3400, 3900),
	}

	windows := highlights.BuildWindows(rows)
	if len(windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(windows))
	}

	serve := windows[0]
	if serve.Type != highlights.WindowServeContext {
		t.Fatalf("expected serve context first, got %s", serve.Type)
	}
	if serve.StartMS != 1000 || serve.EndMS != 2100 {
		t.Fatalf("unexpected serve window: %#v", serve)
	}

	ret := windows[1]
	if ret.Type != highlights.WindowReturnContext {
		t.Fatalf("expected return context, got %s", ret.Type)
	}
	// Extends through two rally shots after the return, not the third.
	if ret.StartMS != 1000 || ret.EndMS != 3300 || ret.EndShotIdx != 3 {
		t.Fatalf("unexpected return window: %#v", ret)
	}
}

func TestBuildWindowsDegenerateServeOnly(t *testing.T) {
	rows := []shots.Row{row(0, 0, shots.RoleServe, 500, 900)}

	windows := highlights.BuildWindows(rows)
	if len(windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(windows))
	}
	for _, w := range windows {
		if w.StartMS != 500 || w.EndMS != 900 {
			t.Fatalf("expected degenerate serve-bounded window, got %#v", w)
		}
		if w.EndMS < w.StartMS {
			t.Fatalf("window end precedes start: %#v", w)
		}
	}
}

func TestBuildWindowsReturnContextFallsBackToReturn(t *testing.T) {
	rows := []shots.Row{
		row(0, 0, shots.RoleServe, 0, 400),
		row(0, 1, shots.RoleReturn, 500, 900),
	}

	windows := highlights.BuildWindows(rows)
	if len(windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(windows))
	}
	ret := windows[1]
	if ret.Type != highlights.WindowReturnContext || ret.EndMS != 900 || ret.EndShotIdx != 1 {
		t.Fatalf("unexpected return window: %#v", ret)
	}
}

func TestBuildWindowsNoServeNoWindows(t *testing.T) {
	rows := []shots.Row{
		row(0, 2, shots.RoleRally, 0, 400),
		row(0, 3, shots.RoleRally, 500, 900),
	}
	if windows := highlights.BuildWindows(rows); len(windows) != 0 {
		t.Fatalf("expected no windows without a serve, got %#v", windows)
	}
}

func TestBuildWindowsSortedAcrossRallies(t *testing.T) {
	rows := []shots.Row{
		row(1, 0, shots.RoleServe, 5000, 5400),
		row(0, 0, shots.RoleServe, 1000, 1400),
	}

	windows := highlights.BuildWindows(rows)
	if len(windows) != 4 {
		t.Fatalf("expected 4 windows, got %d", len(windows))
	}
	for i := 1; i < len(windows); i++ {
		prev, cur := windows[i-1], windows[i]
		if prev.RallyIdx > cur.RallyIdx {
			t.Fatalf("windows not ordered by rally: %#v then %#v", prev, cur)
		}
		if prev.RallyIdx == cur.RallyIdx && prev.StartMS > cur.StartMS {
			t.Fatalf("windows not ordered by start: %#v then %#v", prev, cur)
		}
	}
}
