package rules

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"dealership-backend/internal/models"
	"dealership-backend/internal/testutil"
)

const rulesJSON = `[
  {"code": "base", "version": 1, "name": "Varsayılan", "type": "flat", "params": {"amount": "150"}},
  {"code": "suv", "version": 1, "name": "SUV kâr payı", "type": "percent_of_profit",
   "params": {"rate": "0.08"}, "vehicle_category": "suv", "max_amount": "2500"},
  {"code": "premium", "version": 1, "name": "Premium kademeli", "type": "tiered",
   "params": {"basis": "profit", "tiers": [{"up_to": "2000", "rate": "0.05"}, {"rate": "0.1"}]},
   "min_sale_value": "60000"}
]`

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	return path
}

func TestLoadFileInsertsRules(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewStore(db)

	if err := store.LoadFile(context.Background(), writeRules(t, rulesJSON)); err != nil {
		t.Fatalf("load: %v", err)
	}

	active, err := store.ActiveRules(context.Background())
	if err != nil {
		t.Fatalf("active rules: %v", err)
	}
	if len(active) != 3 {
		t.Fatalf("expected 3 active rules, got %d", len(active))
	}

	tiered := active[2]
	if tiered.Type != models.CommissionTypeTiered || len(tiered.Params.Tiers) != 2 {
		t.Fatalf("expected tiered params to round-trip, got %+v", tiered.Params)
	}
	if tiered.Params.Tiers[1].UpTo != nil {
		t.Fatalf("expected open last tier")
	}
}

func TestSyncIsIdempotentAndDeactivatesMissingRules(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewStore(db)
	ctx := context.Background()

	path := writeRules(t, rulesJSON)
	if err := store.LoadFile(ctx, path); err != nil {
		t.Fatalf("first load: %v", err)
	}
	if err := store.LoadFile(ctx, path); err != nil {
		t.Fatalf("second load should be idempotent: %v", err)
	}

	var count int64
	db.Model(&models.CommissionRule{}).Count(&count)
	if count != 3 {
		t.Fatalf("expected 3 rule rows after replay, got %d", count)
	}

	onlyBase := `[{"code": "base", "version": 1, "name": "Varsayılan", "type": "flat", "params": {"amount": "150.00"}}]`
	if err := store.LoadFile(ctx, writeRules(t, onlyBase)); err != nil {
		t.Fatalf("reduced load: %v", err)
	}

	active, _ := store.ActiveRules(ctx)
	if len(active) != 1 || active[0].Code != "base" {
		t.Fatalf("expected only base active, got %+v", active)
	}
	db.Model(&models.CommissionRule{}).Count(&count)
	if count != 3 {
		t.Fatalf("rules must never be deleted, got %d rows", count)
	}
}

func TestSyncRejectsChangedVersion(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewStore(db)
	ctx := context.Background()

	if err := store.LoadFile(ctx, writeRules(t, rulesJSON)); err != nil {
		t.Fatalf("load: %v", err)
	}

	changed := `[{"code": "base", "version": 1, "name": "Varsayılan", "type": "flat", "params": {"amount": "175"}}]`
	err := store.LoadFile(ctx, writeRules(t, changed))
	if !errors.Is(err, ErrInvalidRule) {
		t.Fatalf("expected ErrInvalidRule for edited version, got %v", err)
	}

	bumped := `[{"code": "base", "version": 2, "name": "Varsayılan", "type": "flat", "params": {"amount": "175"}}]`
	if err := store.LoadFile(ctx, writeRules(t, bumped)); err != nil {
		t.Fatalf("new version should load: %v", err)
	}
	active, _ := store.ActiveRules(ctx)
	if len(active) != 1 || active[0].Version != 2 {
		t.Fatalf("expected v2 active only, got %+v", active)
	}
}

func TestSyncRejectsTwoActiveVersionsOfOneCode(t *testing.T) {
	store := NewStore(testutil.NewDB(t))

	defs := `[
	  {"code": "base", "version": 1, "name": "a", "type": "flat", "params": {"amount": "1"}},
	  {"code": "base", "version": 2, "name": "b", "type": "flat", "params": {"amount": "2"}}
	]`
	if err := store.LoadFile(context.Background(), writeRules(t, defs)); !errors.Is(err, ErrInvalidRule) {
		t.Fatalf("expected ErrInvalidRule, got %v", err)
	}
}

func TestValidateRejectsBadShapes(t *testing.T) {
	base := func(typ models.CommissionType, p models.RuleParams) models.CommissionRule {
		return models.CommissionRule{Code: "x", Version: 1, Name: "x", Type: typ, Params: p}
	}

	bad := map[string]models.CommissionRule{
		"unknown type":        base("bonus", models.RuleParams{}),
		"rate above one":      base(models.CommissionTypePercentOfSale, models.RuleParams{Rate: testutil.Dec("5")}),
		"flat with rate":      base(models.CommissionTypeFlat, models.RuleParams{Amount: testutil.Dec("10"), Rate: testutil.Dec("0.1")}),
		"negative flat":       base(models.CommissionTypeFlat, models.RuleParams{Amount: testutil.Dec("-1")}),
		"tiered without tier": base(models.CommissionTypeTiered, models.RuleParams{Basis: models.TierBasisProfit}),
		"tiered bad basis":    base(models.CommissionTypeTiered, models.RuleParams{Basis: "margin", Tiers: []models.Tier{{Rate: testutil.Dec("0.1")}}}),
		"open middle tier": base(models.CommissionTypeTiered, models.RuleParams{Basis: models.TierBasisSale, Tiers: []models.Tier{
			{Rate: testutil.Dec("0.1")}, {UpTo: testutil.DecPtr("100"), Rate: testutil.Dec("0.1")},
		}}),
		"descending tiers": base(models.CommissionTypeTiered, models.RuleParams{Basis: models.TierBasisSale, Tiers: []models.Tier{
			{UpTo: testutil.DecPtr("100"), Rate: testutil.Dec("0.1")}, {UpTo: testutil.DecPtr("50"), Rate: testutil.Dec("0.1")},
		}}),
	}

	for name, r := range bad {
		if err := Validate(r); !errors.Is(err, ErrInvalidRule) {
			t.Fatalf("%s: expected ErrInvalidRule, got %v", name, err)
		}
	}

	capped := base(models.CommissionTypeFlat, models.RuleParams{Amount: testutil.Dec("10")})
	capped.MinAmount = testutil.DecPtr("50")
	capped.MaxAmount = testutil.DecPtr("20")
	if err := Validate(capped); !errors.Is(err, ErrInvalidRule) {
		t.Fatalf("expected inverted caps to fail, got %v", err)
	}
}
