// Package highlights derives rally context windows and ranks noteworthy
// shots for clip extraction.
package highlights

import (
	"sort"

	"courtreel/internal/shots"
)

// WindowType categorizes a context window.
type WindowType string

const (
	WindowServeContext  WindowType = "serve_context"
	WindowReturnContext WindowType = "return_context"
)

// Window is a time range within the source recording anchored on a rally's
// serve. Windows are immutable once built.
type Window struct {
	VID          string
	RallyIdx     int
	Type         WindowType
	StartMS      int64
	EndMS        int64
	PlayerID     *int
	StartShotIdx int
	EndShotIdx   int
}

// maxReturnContextRallyShots bounds how far past the return a return-context
// window extends.
const maxReturnContextRallyShots = 2

// BuildWindows derives serve-context and return-context windows per rally.
// A rally without a serve shot contributes no windows. A serve-context
// window with no return is zero-length and kept. Output is ordered by
// (vid, rally, start_ms).
func BuildWindows(rows []shots.Row) []Window {
	type rallyKey struct {
		vid   string
		rally int
	}
	grouped := make(map[rallyKey][]shots.Row)
	var order []rallyKey
	for _, row := range rows {
		key := rallyKey{vid: row.VID, rally: row.RallyIdx}
		if _, seen := grouped[key]; !seen {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], row)
	}

	var windows []Window
	for _, key := range order {
		rally := grouped[key]
		sort.SliceStable(rally, func(i, j int) bool { return rally[i].ShotIdx < rally[j].ShotIdx })

		serve := firstWithRole(rally, shots.RoleServe)
		if serve == nil {
			continue
		}
		ret := firstWithRole(rally, shots.RoleReturn)

		if w, ok := makeWindow(WindowServeContext, serve, serveContextEnd(serve, ret)); ok {
			windows = append(windows, w)
		}
		if w, ok := makeWindow(WindowReturnContext, serve, returnContextEnd(rally, serve, ret)); ok {
			windows = append(windows, w)
		}
	}

	sort.SliceStable(windows, func(i, j int) bool {
		a, b := windows[i], windows[j]
		if a.VID != b.VID {
			return a.VID < b.VID
		}
		if a.RallyIdx != b.RallyIdx {
			return a.RallyIdx < b.RallyIdx
		}
		return a.StartMS < b.StartMS
	})
	return windows
}

// serveContextEnd picks the window's final shot: the return when present,
// otherwise the serve itself (a zero-length window is valid).
func serveContextEnd(serve, ret *shots.Row) *shots.Row {
	if ret != nil {
		return ret
	}
	return serve
}

// returnContextEnd extends through up to two rally-role shots after the
// return, falling back to the return, then to the serve.
func returnContextEnd(rally []shots.Row, serve, ret *shots.Row) *shots.Row {
	after := serve.ShotIdx
	if ret != nil {
		after = ret.ShotIdx
	}
	var last *shots.Row
	count := 0
	for i := range rally {
		row := &rally[i]
		if row.Role != shots.RoleRally || row.ShotIdx <= after {
			continue
		}
		last = row
		count++
		if count == maxReturnContextRallyShots {
			break
		}
	}
	if last != nil {
		return last
	}
	if ret != nil {
		return ret
	}
	return serve
}

func makeWindow(kind WindowType, start, end *shots.Row) (Window, bool) {
	if start.StartMS == nil || end.EndMS == nil {
		return Window{}, false
	}
	return Window{
		VID:          start.VID,
		RallyIdx:     start.RallyIdx,
		Type:         kind,
		StartMS:      *start.StartMS,
		EndMS:        *end.EndMS,
		PlayerID:     start.PlayerID,
		StartShotIdx: start.ShotIdx,
		EndShotIdx:   end.ShotIdx,
	}, true
}

func firstWithRole(rally []shots.Row, role shots.Role) *shots.Row {
	for i := range rally {
		if rally[i].Role == role {
			return &rally[i]
		}
	}
	return nil
}
