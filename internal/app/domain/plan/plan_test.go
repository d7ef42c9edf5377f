package plan

import "testing"

func TestParseTier(t *testing.T) {
	for raw, want := range map[string]Tier{"free": Free, " Simple ": Simple, "PRO": Pro} {
		got, err := ParseTier(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got != want {
			t.Fatalf("parse %q: got %v, want %v", raw, got, want)
		}
	}
	if _, err := ParseTier("platinum"); err == nil {
		t.Fatalf("expected error for unknown tier")
	}
}

func TestLimitsForUnknownTierFallsBackToFree(t *testing.T) {
	if LimitsFor(Tier("PLATINUM")) != LimitsFor(Free) {
		t.Fatalf("unknown tier must not unlock paid capacity")
	}
}

func TestProTierIsUnlimited(t *testing.T) {
	limits := LimitsFor(Pro)
	for name, n := range map[string]int{
		"drivers":         limits.MaxDrivers,
		"vehicles":        limits.MaxVehicles,
		"platforms":       limits.MaxPlatforms,
		"expense types":   limits.MaxExpenseTypes,
		"payment methods": limits.MaxPaymentMethods,
		"budgets":         limits.MaxBudgets,
		"goals":           limits.MaxGoals,
		"exports":         limits.MaxMonthlyExports,
	} {
		if !IsUnlimited(n) {
			t.Fatalf("expected pro %s to be unlimited, got %d", name, n)
		}
	}
}

func TestIsUnlimited(t *testing.T) {
	if IsUnlimited(0) || IsUnlimited(3) {
		t.Fatalf("finite limits must not read as unlimited")
	}
	if !IsUnlimited(Unlimited) {
		t.Fatalf("sentinel must read as unlimited")
	}
}
