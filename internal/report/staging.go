package report

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"courtreel/internal/grading"
	"courtreel/internal/highlights"
	"courtreel/internal/kitchen"
)

// PlayerDirName returns the per-player staging directory name.
func PlayerDirName(playerID int) string {
	return "Player_" + strconv.Itoa(playerID)
}

// StagePlayerData writes per-player filtered copies of the kitchen,
// best-shot, and averages artifacts under
// <stagingDir>/Player_<id>/Data/. Players are discovered from the averages.
func StagePlayerData(stagingDir string, records []kitchen.Record, candidates []highlights.Candidate, averages []grading.Average) error {
	players := make(map[int]struct{})
	for _, avg := range averages {
		players[avg.PlayerID] = struct{}{}
	}

	ids := make([]int, 0, len(players))
	for id := range players {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		dataDir := filepath.Join(stagingDir, PlayerDirName(id), "Data")
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return err
		}

		var playerRecords []kitchen.Record
		for _, rec := range records {
			if rec.PlayerID == id {
				playerRecords = append(playerRecords, rec)
			}
		}
		if len(playerRecords) > 0 {
			if _, err := WriteKitchenRecords(dataDir, playerRecords); err != nil {
				return err
			}
		}

		var playerCandidates []highlights.Candidate
		for _, c := range candidates {
			if c.PlayerID != nil && *c.PlayerID == id {
				playerCandidates = append(playerCandidates, c)
			}
		}
		if len(playerCandidates) > 0 {
			if _, err := WriteBestShots(dataDir, playerCandidates); err != nil {
				return err
			}
		}

		var playerAverages []grading.Average
		for _, avg := range averages {
			if avg.PlayerID == id {
				playerAverages = append(playerAverages, avg)
			}
		}
		if _, err := WriteAverages(dataDir, playerAverages); err != nil {
			return err
		}
	}
	return nil
}
