package rebalance

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Order is the executable form of one planned action, with token
// addresses and chain configs resolved.
type Order struct {
	Action           Action
	FromChain        ChainConfig
	ToChain          ChainConfig
	FromTokenAddress string
	ToTokenAddress   string
	Decimals         int
	ToDecimals       int
	Owner            string
	SlippageBps      int64
}

type Receipt struct {
	TxHash  string
	GasUsed uint64
}

// SwapTool executes a same-chain token swap.
type SwapTool interface {
	Name() string
	Swap(ctx context.Context, order Order) (Receipt, error)
}

// BridgeTool moves a token from one chain to another.
type BridgeTool interface {
	Name() string
	Bridge(ctx context.Context, order Order) (Receipt, error)
}

// Executor runs planned actions sequentially by priority. A failed
// action is recorded with the FAILED tx-hash sentinel and execution
// moves on to the next one; there is no rollback. In dry-run mode no
// tool is invoked and placeholder receipts are synthesized.
type Executor struct {
	swap   SwapTool
	bridge BridgeTool
	dryRun bool
	log    zerolog.Logger
	now    func() time.Time
}

func NewExecutor(swap SwapTool, bridge BridgeTool, dryRun bool, log zerolog.Logger) *Executor {
	return &Executor{
		swap:   swap,
		bridge: bridge,
		dryRun: dryRun,
		log:    log.With().Str("component", "executor").Logger(),
		now:    time.Now,
	}
}

func (e *Executor) Run(ctx context.Context, req PlanRequest, allocations []CurrentAllocation, actions []Action) ([]ExecutedAction, uint64, bool) {
	executed := make([]ExecutedAction, 0, len(actions))
	var totalGas uint64
	allOK := true

	index, err := ChainIndex(req.Chains)
	if err != nil {
		// Validation runs before execution, so this cannot happen on
		// a planned request; guard anyway.
		index = map[string]ChainConfig{}
	}

	for _, action := range actions {
		record := ExecutedAction{
			Action:    action,
			Timestamp: e.now().UTC().Format(time.RFC3339),
		}

		order, buildErr := buildOrder(action, req, allocations, index)
		if buildErr != nil {
			e.log.Error().Err(buildErr).
				Str("type", string(action.Type)).
				Int("priority", action.Priority).
				Msg("cannot build order, recording failure")
			record.TxHash = FailedTxHash
			record.Error = buildErr.Error()
			executed = append(executed, record)
			allOK = false
			continue
		}

		receipt, execErr := e.dispatch(ctx, order)
		if execErr != nil {
			e.log.Error().Err(execErr).
				Str("type", string(action.Type)).
				Str("from_chain", action.FromChain).
				Int("priority", action.Priority).
				Msg("action failed, continuing with remaining actions")
			record.TxHash = FailedTxHash
			record.Error = execErr.Error()
			executed = append(executed, record)
			allOK = false
			continue
		}

		e.log.Info().
			Str("type", string(action.Type)).
			Str("tx_hash", receipt.TxHash).
			Uint64("gas_used", receipt.GasUsed).
			Int("priority", action.Priority).
			Msg("action executed")

		record.TxHash = receipt.TxHash
		record.ExecutedAmount = action.Amount
		record.GasUsed = receipt.GasUsed
		totalGas += receipt.GasUsed
		executed = append(executed, record)
	}

	return executed, totalGas, allOK
}

func (e *Executor) dispatch(ctx context.Context, order Order) (Receipt, error) {
	if e.dryRun {
		return Receipt{
			TxHash:  placeholderTxHash(),
			GasUsed: ActionGasUnits(order.Action.Type),
		}, nil
	}

	switch order.Action.Type {
	case ActionSwap:
		return e.swap.Swap(ctx, order)
	case ActionBridge:
		return e.bridge.Bridge(ctx, order)
	default:
		return Receipt{}, fmt.Errorf("no executor for action type %s", order.Action.Type)
	}
}

func buildOrder(action Action, req PlanRequest, allocations []CurrentAllocation, index map[string]ChainConfig) (Order, error) {
	fromChain, ok := index[strings.ToLower(action.FromChain)]
	if !ok {
		return Order{}, fmt.Errorf("no chain config for %s", action.FromChain)
	}

	fromEntry, ok := findEntry(allocations, action.FromToken, action.FromChain)
	if !ok {
		return Order{}, fmt.Errorf("no portfolio entry for %s on %s", action.FromToken, action.FromChain)
	}

	order := Order{
		Action:           action,
		FromChain:        fromChain,
		FromTokenAddress: fromEntry.TokenAddress,
		Decimals:         fromEntry.Decimals,
		ToDecimals:       fromEntry.Decimals,
		Owner:            req.Owner,
		SlippageBps:      req.SwapSlippageBps,
	}

	switch action.Type {
	case ActionSwap:
		toEntry, ok := findEntry(allocations, action.ToToken, action.FromChain)
		if !ok {
			return Order{}, fmt.Errorf("no portfolio entry for %s on %s", action.ToToken, action.FromChain)
		}
		order.ToTokenAddress = toEntry.TokenAddress
		order.ToDecimals = toEntry.Decimals
	case ActionBridge:
		toChain, ok := index[strings.ToLower(action.ToChain)]
		if !ok {
			return Order{}, fmt.Errorf("no chain config for %s", action.ToChain)
		}
		order.ToChain = toChain
		order.SlippageBps = req.BridgeSlippageBps
		if toEntry, ok := findEntry(allocations, action.ToToken, action.ToChain); ok {
			order.ToTokenAddress = toEntry.TokenAddress
			order.ToDecimals = toEntry.Decimals
		}
	}

	return order, nil
}

func findEntry(allocations []CurrentAllocation, symbol, chain string) (CurrentAllocation, bool) {
	for _, entry := range allocations {
		if strings.EqualFold(entry.TokenSymbol, symbol) && strings.EqualFold(entry.Chain, chain) {
			return entry, true
		}
	}
	return CurrentAllocation{}, false
}

func placeholderTxHash() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "0x" + strings.Repeat("0", 64)
	}
	return "0x" + hex.EncodeToString(buf)
}
