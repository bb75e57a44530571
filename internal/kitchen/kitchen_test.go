package kitchen_test

import (
	"math"
	"testing"

	"courtreel/internal/envelope"
	"courtreel/internal/kitchen"
)

func ratio(num, den float64) envelope.Ratio {
	return envelope.Ratio{Numerator: &num, Denominator: &den}
}

func TestRecordsDropNullRatios(t *testing.T) {
	zero := 0.0
	doc := &envelope.Document{
		VID: "v1",
		Insights: &envelope.Insights{
			PlayerData: []envelope.PlayerData{{
				KitchenArrivalPercentage: map[string]map[string]envelope.Ratio{
					"serving": {
						"oneself": ratio(18, 20),
						"partner": {Numerator: &zero, Denominator: &zero},
					},
				},
			}},
		},
	}

	records := kitchen.Records(doc)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.Role != kitchen.RoleServing || rec.Perspective != kitchen.PerspectiveOneself {
		t.Fatalf("unexpected record: %#v", rec)
	}
	if math.Abs(rec.Pct-0.9) > 1e-9 {
		t.Fatalf("expected pct 0.9, got %v", rec.Pct)
	}
}

func TestRecordsRoundPctToThreeDecimals(t *testing.T) {
	doc := &envelope.Document{
		VID: "v1",
		Insights: &envelope.Insights{
			PlayerData: []envelope.PlayerData{{
				KitchenArrivalPercentage: map[string]map[string]envelope.Ratio{
					"serving": {"oneself": ratio(1, 3)},
				},
			}},
		},
	}

	records := kitchen.Records(doc)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Pct != 0.333 {
		t.Fatalf("expected pct rounded to 0.333, got %v", records[0].Pct)
	}
}

func TestRecordsNormalizeReceivingRole(t *testing.T) {
	doc := &envelope.Document{
		VID: "v1",
		Insights: &envelope.Insights{
			PlayerData: []envelope.PlayerData{{
				KitchenArrivalPercentage: map[string]map[string]envelope.Ratio{
					"receiving": {"oneself": ratio(14, 20)},
				},
			}},
		},
	}

	records := kitchen.Records(doc)
	if len(records) != 1 || records[0].Role != kitchen.RoleReturning {
		t.Fatalf("expected returning role, got %#v", records)
	}
}

func TestRolePercentagesSumBeforeDividing(t *testing.T) {
	// Asymmetric weights tell the two strategies apart: 9/10 and 0/90
	// summed give 9/100 = 0.09, while averaging the per-row percentages
	// would give (0.9+0)/2 = 0.45.
	records := []kitchen.Record{
		{VID: "v1", PlayerID: 0, Role: kitchen.RoleServing, Perspective: kitchen.PerspectiveOneself, Arrivals: 9, Opportunities: 10},
		{VID: "v1", PlayerID: 0, Role: kitchen.RoleServing, Perspective: kitchen.PerspectiveOneself, Arrivals: 0, Opportunities: 90},
	}

	pcts := kitchen.RolePercentages(records)
	key := kitchen.RoleKey{VID: "v1", PlayerID: 0, Role: kitchen.RoleServing}
	got, ok := pcts[key]
	if !ok {
		t.Fatal("expected grouped percentage")
	}
	if math.Abs(got-0.09) > 1e-9 {
		t.Fatalf("expected 0.09 (summed before dividing), got %v", got)
	}
}

func TestRolePercentagesIgnorePartnerPerspective(t *testing.T) {
	records := []kitchen.Record{
		{VID: "v1", PlayerID: 0, Role: kitchen.RoleServing, Perspective: kitchen.PerspectivePartner, Arrivals: 5, Opportunities: 5},
	}
	if pcts := kitchen.RolePercentages(records); len(pcts) != 0 {
		t.Fatalf("expected partner rows to be excluded, got %#v", pcts)
	}
}
