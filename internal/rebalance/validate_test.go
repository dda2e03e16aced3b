package rebalance

import (
	"strings"
	"testing"

	clierr "github.com/sixthCow/rebalance-cli/internal/errors"
)

func validRequest() PlanRequest {
	return PlanRequest{
		Owner:    "0x1111111111111111111111111111111111111111",
		Strategy: StrategyThreshold,
		Targets: []TargetAllocation{
			{TokenSymbol: "ETH", Chain: "ethereum", TargetPercent: 50},
			{TokenSymbol: "USDC", TokenAddress: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", Chain: "ethereum", TargetPercent: 50},
		},
		Chains: []ChainConfig{
			{ChainID: 1, Name: "ethereum", RPCURL: "http://localhost:8545"},
		},
	}
}

func TestValidateAccepts(t *testing.T) {
	if err := Validate(validRequest()); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*PlanRequest)
		wantMsg string
	}{
		{
			name:    "no targets",
			mutate:  func(r *PlanRequest) { r.Targets = nil },
			wantMsg: "no target allocations",
		},
		{
			name:    "missing owner",
			mutate:  func(r *PlanRequest) { r.Owner = "  " },
			wantMsg: "owner address",
		},
		{
			name:    "unknown strategy",
			mutate:  func(r *PlanRequest) { r.Strategy = "rebalance-harder" },
			wantMsg: "unsupported strategy",
		},
		{
			name:    "missing symbol",
			mutate:  func(r *PlanRequest) { r.Targets[0].TokenSymbol = "" },
			wantMsg: "missing token symbol",
		},
		{
			name:    "missing chain",
			mutate:  func(r *PlanRequest) { r.Targets[0].Chain = "" },
			wantMsg: "missing chain",
		},
		{
			name:    "negative target",
			mutate:  func(r *PlanRequest) { r.Targets[0].TargetPercent = -1; r.Targets[1].TargetPercent = 101 },
			wantMsg: "negative target",
		},
		{
			name: "duplicate entry",
			mutate: func(r *PlanRequest) {
				r.Targets[1] = TargetAllocation{TokenSymbol: "eth", Chain: "Ethereum", TargetPercent: 50}
			},
			wantMsg: "duplicate allocation",
		},
		{
			name:    "sum below 100",
			mutate:  func(r *PlanRequest) { r.Targets[1].TargetPercent = 40 },
			wantMsg: "sum to 90",
		},
		{
			name:    "sum above 100",
			mutate:  func(r *PlanRequest) { r.Targets[1].TargetPercent = 60 },
			wantMsg: "sum to 110",
		},
		{
			name:    "missing chain config",
			mutate:  func(r *PlanRequest) { r.Chains = nil },
			wantMsg: "no chain config",
		},
		{
			name: "duplicate chain config",
			mutate: func(r *PlanRequest) {
				r.Chains = append(r.Chains, ChainConfig{ChainID: 1, Name: "Ethereum"})
			},
			wantMsg: "duplicate chain config",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)
			err := Validate(req)
			if err == nil {
				t.Fatal("expected error")
			}
			cErr, ok := clierr.As(err)
			if !ok || cErr.Code != clierr.CodeConfig {
				t.Fatalf("want CodeConfig, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Errorf("error %q does not contain %q", err.Error(), tc.wantMsg)
			}
		})
	}
}

func TestValidateToleratesFloatNoise(t *testing.T) {
	req := validRequest()
	req.Targets[0].TargetPercent = 33.33
	req.Targets[1].TargetPercent = 66.675
	if err := Validate(req); err != nil {
		t.Fatalf("sum within tolerance rejected: %v", err)
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		input string
		want  Strategy
		ok    bool
	}{
		{"threshold", StrategyThreshold, true},
		{" Threshold ", StrategyThreshold, true},
		{"", StrategyThreshold, true},
		{"periodic", StrategyPeriodic, true},
		{"IMMEDIATE", StrategyImmediate, true},
		{"yolo", "", false},
	}
	for _, tc := range tests {
		got, err := ParseStrategy(tc.input)
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("ParseStrategy(%q) = %q, %v; want %q", tc.input, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Errorf("ParseStrategy(%q) should fail", tc.input)
		}
	}
}
