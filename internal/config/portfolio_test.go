package config

import (
	"os"
	"path/filepath"
	"testing"

	clierr "github.com/sixthCow/rebalance-cli/internal/errors"
	"github.com/sixthCow/rebalance-cli/internal/rebalance"
)

const samplePortfolio = `
owner: "0x1111111111111111111111111111111111111111"
strategy: threshold
threshold_percent: 7
min_rebalance_usd: 25
max_rebalance_usd: 5000
max_gas_price_gwei: 60
allocations:
  - token: ETH
    chain: ethereum
    target_percent: 40
  - token: USDC
    address: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
    chain: ethereum
    target_percent: 30
  - token: USDC
    address: "0xaf88d065e77c8cc2239327c5edb3a432268e5831"
    chain: arbitrum
    target_percent: 30
chains:
  - name: ethereum
    chain_id: 1
    rpc_url: "http://localhost:8545"
  - name: arbitrum
    chain_id: 42161
    rpc_url: "http://localhost:8546"
`

func writePortfolio(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "portfolio.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPortfolio(t *testing.T) {
	p, err := LoadPortfolio(writePortfolio(t, samplePortfolio))
	if err != nil {
		t.Fatalf("LoadPortfolio: %v", err)
	}
	if p.Owner != "0x1111111111111111111111111111111111111111" {
		t.Errorf("owner = %q", p.Owner)
	}
	if p.ThresholdPercent != 7 || p.MinRebalanceUSD != 25 || p.MaxRebalanceUSD != 5000 {
		t.Errorf("knobs = %v/%v/%v", p.ThresholdPercent, p.MinRebalanceUSD, p.MaxRebalanceUSD)
	}
	if len(p.Allocations) != 3 || len(p.Chains) != 2 {
		t.Fatalf("allocations=%d chains=%d", len(p.Allocations), len(p.Chains))
	}
	if !p.Allocations[0].IsNative() {
		t.Error("ETH entry without address should be native")
	}
	if p.Allocations[1].IsNative() {
		t.Error("USDC entry with address should not be native")
	}
	if p.Chains[1].ChainID != 42161 {
		t.Errorf("chain id = %d", p.Chains[1].ChainID)
	}

	req, err := p.PlanRequest()
	if err != nil {
		t.Fatalf("PlanRequest: %v", err)
	}
	if req.Strategy != rebalance.StrategyThreshold {
		t.Errorf("strategy = %q", req.Strategy)
	}
	if err := rebalance.Validate(req); err != nil {
		t.Errorf("converted request should validate: %v", err)
	}
}

func TestLoadPortfolioDefaults(t *testing.T) {
	minimal := `
owner: "0x1111111111111111111111111111111111111111"
allocations:
  - token: ETH
    chain: ethereum
    target_percent: 100
chains:
  - name: ethereum
    chain_id: 1
`
	p, err := LoadPortfolio(writePortfolio(t, minimal))
	if err != nil {
		t.Fatalf("LoadPortfolio: %v", err)
	}
	if p.Strategy != "threshold" {
		t.Errorf("default strategy = %q", p.Strategy)
	}
	if p.ThresholdPercent != 5 {
		t.Errorf("default threshold = %v", p.ThresholdPercent)
	}
	if p.SwapSlippageBps != 50 || p.BridgeSlippageBps != 100 {
		t.Errorf("default slippage = %d/%d", p.SwapSlippageBps, p.BridgeSlippageBps)
	}
	if p.MinRebalanceUSD != 10 {
		t.Errorf("default min = %v", p.MinRebalanceUSD)
	}
	if p.MaxRebalanceUSD != 0 {
		t.Errorf("max should default to unlimited, got %v", p.MaxRebalanceUSD)
	}
}

func TestLoadPortfolioMissingFile(t *testing.T) {
	_, err := LoadPortfolio(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error")
	}
	if cErr, ok := clierr.As(err); !ok || cErr.Code != clierr.CodeConfig {
		t.Fatalf("want CodeConfig, got %v", err)
	}
}

func TestLoadPortfolioBadYAML(t *testing.T) {
	_, err := LoadPortfolio(writePortfolio(t, "owner: [unclosed"))
	if err == nil {
		t.Fatal("expected error")
	}
	if cErr, ok := clierr.As(err); !ok || cErr.Code != clierr.CodeConfig {
		t.Fatalf("want CodeConfig, got %v", err)
	}
}

func TestPlanRequestRejectsBadStrategy(t *testing.T) {
	p := Portfolio{Strategy: "martingale"}
	if _, err := p.PlanRequest(); err == nil {
		t.Fatal("expected strategy error")
	}
}
