package highlights_test

import (
	"math"
	"testing"

	"courtreel/internal/envelope"
	"courtreel/internal/highlights"
)

func floatPtr(v float64) *float64 { return &v }

func TestScoreShotFormula(t *testing.T) {
	cases := []struct {
		name string
		shot envelope.Shot
		want float64
	}{
		{"empty", envelope.Shot{}, 0},
		{"quality only", envelope.Shot{Quality: envelope.Quality{Overall: floatPtr(0.75)}}, 1.5},
		// "winner" collects the standalone bonus and the winner/clean
		// branch bonus.
		{"winner stacks", envelope.Shot{WinnerType: "winner"}, 6},
		{"clean", envelope.Shot{WinnerType: "clean"}, 3},
		{"forced fault", envelope.Shot{WinnerType: "forced_fault"}, 2},
		{"flags", envelope.Shot{IsFinal: true, IsPassing: true, IsVolley: true}, 2},
		{"dig", envelope.Shot{VerticalType: "dig"}, 0.3},
		{"half volley", envelope.Shot{VerticalType: "half_volley"}, 0.3},
		{
			"combined",
			envelope.Shot{
				Quality:      envelope.Quality{Overall: floatPtr(1.0)},
				WinnerType:   "winner",
				IsFinal:      true,
				IsVolley:     true,
				VerticalType: "dig",
			},
			2 + 3 + 3 + 1 + 0.5 + 0.3,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := highlights.ScoreShot(tc.shot)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("ScoreShot = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTierFor(t *testing.T) {
	cases := []struct {
		score float64
		want  highlights.Tier
	}{
		{3.0, highlights.TierElite},
		{2.5, highlights.TierPressure},
		{1.2, highlights.TierContext},
		{1.1, highlights.TierDiscard},
	}
	for _, tc := range cases {
		if got := highlights.TierFor(tc.score); got != tc.want {
			t.Fatalf("TierFor(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestCandidatesPreferVisionHighlights(t *testing.T) {
	doc := &envelope.Document{
		VID: "v1",
		Insights: &envelope.Insights{
			Highlights: []envelope.Highlight{{
				RallyIdx:     intPtr(0),
				ShotStartIdx: intPtr(1),
				ShotEndIdx:   intPtr(3),
				StartMS:      msPtr(100),
				EndMS:        msPtr(900),
				Score:        floatPtr(4.2),
				Kind:         "rally",
			}},
		},
		Rallies: []envelope.Rally{{
			Shots: []envelope.Shot{
				{PlayerID: intPtr(0)},
				{PlayerID: intPtr(3)},
			},
		}},
	}

	candidates := highlights.Candidates(doc)
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	c := candidates[0]
	if c.Source != highlights.SourceVision {
		t.Fatalf("expected vision source, got %s", c.Source)
	}
	if c.PlayerID == nil || *c.PlayerID != 3 {
		t.Fatalf("expected player resolved from rally shot, got %v", c.PlayerID)
	}
	if c.Score != 4.2 {
		t.Fatalf("expected external score, got %v", c.Score)
	}
}

func TestCandidatesFallBackToScoring(t *testing.T) {
	doc := &envelope.Document{
		VID:      "v1",
		Insights: &envelope.Insights{},
		Rallies: []envelope.Rally{{
			Shots: []envelope.Shot{
				{PlayerID: intPtr(0), WinnerType: "winner", StartMS: msPtr(0), EndMS: msPtr(400)},
				{PlayerID: intPtr(1), StartMS: msPtr(500), EndMS: msPtr(800)},
			},
		}},
	}

	candidates := highlights.Candidates(doc)
	if len(candidates) != 2 {
		t.Fatalf("expected every shot scored, got %d", len(candidates))
	}
	if candidates[0].Source != highlights.SourceScored {
		t.Fatalf("expected scored source, got %s", candidates[0].Source)
	}
	if candidates[0].Score != 6 || candidates[0].Tier != highlights.TierElite {
		t.Fatalf("unexpected winner scoring: %#v", candidates[0])
	}
	if candidates[1].Tier != highlights.TierDiscard {
		t.Fatalf("expected discard tier for plain shot, got %s", candidates[1].Tier)
	}
}

func TestSelectTopOrdersAndLimitsPerPlayer(t *testing.T) {
	mk := func(player int, score float64, start int64) highlights.Candidate {
		return highlights.Candidate{PlayerID: intPtr(player), Score: score, StartMS: msPtr(start)}
	}
	candidates := []highlights.Candidate{
		mk(1, 2.0, 100),
		mk(0, 1.0, 50),
		mk(0, 3.0, 200),
		mk(0, 3.0, 100),
		{Score: 9.9}, // no player, dropped
	}

	selected := highlights.SelectTop(candidates, 2)
	if len(selected) != 3 {
		t.Fatalf("expected 3 selected, got %d", len(selected))
	}
	// Player 0 first: the two 3.0 rows, earlier start first.
	if *selected[0].PlayerID != 0 || *selected[0].StartMS != 100 {
		t.Fatalf("unexpected first selection: %#v", selected[0])
	}
	if *selected[1].PlayerID != 0 || *selected[1].StartMS != 200 {
		t.Fatalf("unexpected second selection: %#v", selected[1])
	}
	if *selected[2].PlayerID != 1 {
		t.Fatalf("unexpected third selection: %#v", selected[2])
	}
}

func TestSelectHeroesMarkerOutranksScore(t *testing.T) {
	quiet := highlights.Candidate{PlayerID: intPtr(0), Score: 9.0}
	marked := highlights.Candidate{PlayerID: intPtr(0), Score: 1.0, Description: "An Exciting Exchange at the net"}

	heroes := highlights.SelectHeroes([]highlights.Candidate{quiet, marked})
	if len(heroes) != 1 {
		t.Fatalf("expected one hero, got %d", len(heroes))
	}
	if heroes[0].Description == "" {
		t.Fatal("expected marked candidate to win despite lower score")
	}
}

func TestSelectHeroesTieBreaksOnSpanThenDuration(t *testing.T) {
	shortSpan := highlights.Candidate{
		PlayerID:     intPtr(0),
		Score:        2.5,
		ShotStartIdx: intPtr(0),
		ShotEndIdx:   intPtr(3),
		StartMS:      msPtr(0),
		EndMS:        msPtr(1000),
	}
	longSpan := highlights.Candidate{
		PlayerID:     intPtr(0),
		Score:        2.5,
		ShotStartIdx: intPtr(0),
		ShotEndIdx:   intPtr(5),
		StartMS:      msPtr(0),
		EndMS:        msPtr(500),
	}

	heroes := highlights.SelectHeroes([]highlights.Candidate{shortSpan, longSpan})
	if len(heroes) != 1 || *heroes[0].ShotEndIdx != 5 {
		t.Fatalf("expected span 5 row to win tie-break, got %#v", heroes)
	}

	// Equal spans fall through to duration.
	longSpan.ShotEndIdx = intPtr(3)
	longSpan.EndMS = msPtr(2000)
	heroes = highlights.SelectHeroes([]highlights.Candidate{shortSpan, longSpan})
	if len(heroes) != 1 || *heroes[0].EndMS != 2000 {
		t.Fatalf("expected longer duration to win, got %#v", heroes)
	}
}

func TestSelectHeroesOnePerPlayer(t *testing.T) {
	heroes := highlights.SelectHeroes([]highlights.Candidate{
		{PlayerID: intPtr(1), Score: 1},
		{PlayerID: intPtr(0), Score: 2},
		{PlayerID: intPtr(1), Score: 3},
	})
	if len(heroes) != 2 {
		t.Fatalf("expected 2 heroes, got %d", len(heroes))
	}
	if *heroes[0].PlayerID != 0 || *heroes[1].PlayerID != 1 {
		t.Fatalf("expected player order 0,1: %#v", heroes)
	}
	if heroes[1].Score != 3 {
		t.Fatalf("expected best row per player, got %#v", heroes[1])
	}
}
