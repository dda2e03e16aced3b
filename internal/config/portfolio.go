package config

import (
	"fmt"
	"os"

	clierr "github.com/sixthCow/rebalance-cli/internal/errors"
	"github.com/sixthCow/rebalance-cli/internal/rebalance"
	"gopkg.in/yaml.v3"
)

// Portfolio is the on-disk description of what the user wants to hold:
// target allocations, the chains they live on, and the knobs that tune
// planning and execution.
type Portfolio struct {
	Owner             string                       `yaml:"owner"`
	Strategy          string                       `yaml:"strategy"`
	ThresholdPercent  float64                      `yaml:"threshold_percent"`
	SwapSlippageBps   int64                        `yaml:"swap_slippage_bps"`
	BridgeSlippageBps int64                        `yaml:"bridge_slippage_bps"`
	MinRebalanceUSD   float64                      `yaml:"min_rebalance_usd"`
	MaxRebalanceUSD   float64                      `yaml:"max_rebalance_usd"`
	MaxGasPriceGwei   float64                      `yaml:"max_gas_price_gwei"`
	Allocations       []rebalance.TargetAllocation `yaml:"allocations"`
	Chains            []rebalance.ChainConfig      `yaml:"chains"`
}

func LoadPortfolio(path string) (Portfolio, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return Portfolio{}, clierr.Wrap(clierr.CodeConfig, fmt.Sprintf("read portfolio file %s", path), err)
	}
	var p Portfolio
	if err := yaml.Unmarshal(buf, &p); err != nil {
		return Portfolio{}, clierr.Wrap(clierr.CodeConfig, "parse portfolio yaml", err)
	}
	p.applyDefaults()
	return p, nil
}

func (p *Portfolio) applyDefaults() {
	if p.Strategy == "" {
		p.Strategy = string(rebalance.StrategyThreshold)
	}
	if p.ThresholdPercent <= 0 {
		p.ThresholdPercent = 5
	}
	if p.SwapSlippageBps <= 0 {
		p.SwapSlippageBps = 50
	}
	if p.BridgeSlippageBps <= 0 {
		p.BridgeSlippageBps = 100
	}
	if p.MinRebalanceUSD <= 0 {
		p.MinRebalanceUSD = 10
	}
}

// PlanRequest converts the portfolio into the request the planning
// engine consumes. Strategy parsing happens here so a bad value fails
// before any network access.
func (p Portfolio) PlanRequest() (rebalance.PlanRequest, error) {
	strategy, err := rebalance.ParseStrategy(p.Strategy)
	if err != nil {
		return rebalance.PlanRequest{}, err
	}
	return rebalance.PlanRequest{
		Targets:           p.Allocations,
		Chains:            p.Chains,
		Owner:             p.Owner,
		Strategy:          strategy,
		ThresholdPercent:  p.ThresholdPercent,
		SwapSlippageBps:   p.SwapSlippageBps,
		BridgeSlippageBps: p.BridgeSlippageBps,
		MinRebalanceUSD:   p.MinRebalanceUSD,
		MaxRebalanceUSD:   p.MaxRebalanceUSD,
		MaxGasPriceGwei:   p.MaxGasPriceGwei,
	}, nil
}
