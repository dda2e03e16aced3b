package rebalance

import (
	"fmt"
	"strings"

	clierr "github.com/sixthCow/rebalance-cli/internal/errors"
)

// Strategy selects the policy used to decide whether a portfolio
// should be rebalanced right now. Periodic scheduling itself is the
// caller's job (see the watch command); the strategy only answers
// "if asked at this moment, should I act".
type Strategy string

const (
	StrategyThreshold Strategy = "threshold"
	StrategyPeriodic  Strategy = "periodic"
	StrategyImmediate Strategy = "immediate"
)

func ParseStrategy(input string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "", string(StrategyThreshold):
		return StrategyThreshold, nil
	case string(StrategyPeriodic):
		return StrategyPeriodic, nil
	case string(StrategyImmediate):
		return StrategyImmediate, nil
	default:
		return "", clierr.New(clierr.CodeConfig, fmt.Sprintf("unsupported strategy: %s (expected threshold|periodic|immediate)", input))
	}
}

// TargetAllocation is one desired portfolio entry. An empty or
// "native" token address means the chain's native asset.
type TargetAllocation struct {
	TokenSymbol   string  `json:"token_symbol" yaml:"token"`
	TokenAddress  string  `json:"token_address,omitempty" yaml:"address"`
	Chain         string  `json:"chain" yaml:"chain"`
	TargetPercent float64 `json:"target_percent" yaml:"target_percent"`
}

func (t TargetAllocation) IsNative() bool {
	addr := strings.ToLower(strings.TrimSpace(t.TokenAddress))
	return addr == "" || addr == "native"
}

// ChainConfig describes one chain referenced by the target set.
// Router/bridge addresses are optional overrides for execution.
type ChainConfig struct {
	ChainID       int64  `json:"chain_id" yaml:"chain_id"`
	Name          string `json:"name" yaml:"name"`
	RPCURL        string `json:"rpc_url" yaml:"rpc_url"`
	RouterAddress string `json:"router_address,omitempty" yaml:"router_address"`
	BridgeAddress string `json:"bridge_address,omitempty" yaml:"bridge_address"`
}

// CurrentAllocation is the observed state for one target entry,
// recomputed fresh on every planning invocation.
type CurrentAllocation struct {
	TokenSymbol    string  `json:"token_symbol"`
	TokenAddress   string  `json:"token_address,omitempty"`
	Chain          string  `json:"chain"`
	TargetPercent  float64 `json:"target_percent"`
	Balance        float64 `json:"balance"`
	BalanceRaw     string  `json:"balance_raw"`
	Decimals       int     `json:"decimals"`
	USDValue       float64 `json:"usd_value"`
	CurrentPercent float64 `json:"current_percent"`
	Drift          float64 `json:"drift"`
	ReadError      string  `json:"read_error,omitempty"`
}

type ActionType string

const (
	ActionSwap          ActionType = "SWAP"
	ActionBridge        ActionType = "BRIDGE"
	ActionBridgeAndSwap ActionType = "BRIDGE_AND_SWAP"
)

// Action is one planned rebalancing move. Priority ascends in
// execution order; bridges are planned before swaps.
type Action struct {
	Type      ActionType `json:"type"`
	FromChain string     `json:"from_chain"`
	ToChain   string     `json:"to_chain,omitempty"`
	FromToken string     `json:"from_token"`
	ToToken   string     `json:"to_token"`
	Amount    float64    `json:"amount"`
	AmountRaw string     `json:"amount_raw"`
	USDValue  float64    `json:"usd_value"`
	Priority  int        `json:"priority"`
}

// PlanRequest carries everything one stateless planning run needs.
type PlanRequest struct {
	Targets           []TargetAllocation `json:"target_allocations"`
	Chains            []ChainConfig      `json:"chain_configs"`
	Owner             string             `json:"owner"`
	Strategy          Strategy           `json:"strategy"`
	ThresholdPercent  float64            `json:"threshold_percent"`
	SwapSlippageBps   int64              `json:"swap_slippage_bps"`
	BridgeSlippageBps int64              `json:"bridge_slippage_bps"`
	MinRebalanceUSD   float64            `json:"min_rebalance_usd"`
	MaxRebalanceUSD   float64            `json:"max_rebalance_usd,omitempty"`
	MaxGasPriceGwei   float64            `json:"max_gas_price_gwei,omitempty"`
}

type PlanResult struct {
	NeedsRebalancing     bool                `json:"needs_rebalancing"`
	Reason               string              `json:"reason"`
	TotalPortfolioUSD    float64             `json:"total_portfolio_value_usd"`
	CurrentAllocations   []CurrentAllocation `json:"current_allocations"`
	PlannedActions       []Action            `json:"planned_actions"`
	EstimatedTotalGas    uint64              `json:"estimated_total_gas"`
	EstimatedExecutionS  int64               `json:"estimated_execution_time_s"`
	WorstCaseDrift       float64             `json:"worst_case_drift"`
}

type ExecuteRequest struct {
	PlanRequest
	DryRun bool `json:"dry_run"`
}

// FailedTxHash marks an action that was attempted and failed.
// Execution continues past failed actions; the sentinel lets the
// caller see exactly which moves landed.
const FailedTxHash = "FAILED"

type ExecutedAction struct {
	Action
	TxHash         string  `json:"tx_hash"`
	ExecutedAmount float64 `json:"executed_amount"`
	GasUsed        uint64  `json:"gas_used"`
	Timestamp      string  `json:"timestamp"`
	Error          string  `json:"error,omitempty"`
}

type ExecuteResult struct {
	RebalanceComplete    bool                `json:"rebalance_complete"`
	ExecutedActions      []ExecutedAction    `json:"executed_actions"`
	FinalAllocations     []CurrentAllocation `json:"final_allocations"`
	TotalGasUsed         uint64              `json:"total_gas_used"`
	ExecutionTimeSeconds float64             `json:"execution_time_seconds"`
	Improvement          SnapshotDiff        `json:"improvement"`
}
