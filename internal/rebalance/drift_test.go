package rebalance

import (
	"math"
	"strings"
	"testing"

	clierr "github.com/sixthCow/rebalance-cli/internal/errors"
)

func TestComputeDrift(t *testing.T) {
	allocations := []CurrentAllocation{
		{TokenSymbol: "ETH", Chain: "ethereum", TargetPercent: 50, USDValue: 7000},
		{TokenSymbol: "USDC", Chain: "ethereum", TargetPercent: 50, USDValue: 3000},
	}

	total := ComputeDrift(allocations)
	if total != 10000 {
		t.Fatalf("total = %v, want 10000", total)
	}
	if got := allocations[0].CurrentPercent; math.Abs(got-70) > 1e-9 {
		t.Errorf("ETH current = %v, want 70", got)
	}
	if got := allocations[0].Drift; math.Abs(got-20) > 1e-9 {
		t.Errorf("ETH drift = %v, want +20", got)
	}
	if got := allocations[1].Drift; math.Abs(got+20) > 1e-9 {
		t.Errorf("USDC drift = %v, want -20", got)
	}
}

func TestComputeDriftZeroPortfolio(t *testing.T) {
	allocations := []CurrentAllocation{
		{TokenSymbol: "ETH", Chain: "ethereum", TargetPercent: 60},
		{TokenSymbol: "USDC", Chain: "ethereum", TargetPercent: 40},
	}

	total := ComputeDrift(allocations)
	if total != 0 {
		t.Fatalf("total = %v, want 0", total)
	}
	for _, entry := range allocations {
		if entry.CurrentPercent != 0 {
			t.Errorf("%s current = %v, want 0", entry.TokenSymbol, entry.CurrentPercent)
		}
		if entry.Drift != -entry.TargetPercent {
			t.Errorf("%s drift = %v, want %v", entry.TokenSymbol, entry.Drift, -entry.TargetPercent)
		}
	}
}

func TestWorstDrift(t *testing.T) {
	allocations := []CurrentAllocation{
		{Drift: 5},
		{Drift: -12.5},
		{Drift: 3},
	}
	if got := WorstDrift(allocations); got != 12.5 {
		t.Fatalf("WorstDrift = %v, want 12.5", got)
	}
	if got := WorstDrift(nil); got != 0 {
		t.Fatalf("WorstDrift(nil) = %v, want 0", got)
	}
}

func TestDecideThreshold(t *testing.T) {
	within := []CurrentAllocation{{Drift: 3}, {Drift: -3}}
	beyond := []CurrentAllocation{{Drift: 8}, {Drift: -8}}

	decision, err := Decide(StrategyThreshold, 5, within)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if decision.Rebalance {
		t.Errorf("drift within threshold should not rebalance: %+v", decision)
	}
	if !strings.Contains(decision.Reason, "within threshold") {
		t.Errorf("reason = %q", decision.Reason)
	}

	decision, err = Decide(StrategyThreshold, 5, beyond)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if !decision.Rebalance {
		t.Errorf("drift beyond threshold should rebalance: %+v", decision)
	}
	if decision.WorstDrift != 8 {
		t.Errorf("worst drift = %v, want 8", decision.WorstDrift)
	}
}

func TestDecideExactThresholdHolds(t *testing.T) {
	decision, err := Decide(StrategyThreshold, 5, []CurrentAllocation{{Drift: 5}})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if decision.Rebalance {
		t.Error("drift equal to threshold should not trigger")
	}
}

func TestDecideAlwaysOnStrategies(t *testing.T) {
	flat := []CurrentAllocation{{Drift: 0.1}}
	for _, strategy := range []Strategy{StrategyImmediate, StrategyPeriodic} {
		decision, err := Decide(strategy, 5, flat)
		if err != nil {
			t.Fatalf("Decide(%s): %v", strategy, err)
		}
		if !decision.Rebalance {
			t.Errorf("%s should always rebalance", strategy)
		}
	}
}

func TestDecideUnknownStrategy(t *testing.T) {
	_, err := Decide("martingale", 5, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if cErr, ok := clierr.As(err); !ok || cErr.Code != clierr.CodeConfig {
		t.Fatalf("want CodeConfig, got %v", err)
	}
}
