package chaintools

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	clierr "github.com/sixthCow/rebalance-cli/internal/errors"
	"github.com/sixthCow/rebalance-cli/internal/execution"
	"github.com/sixthCow/rebalance-cli/internal/execution/planner"
	"github.com/sixthCow/rebalance-cli/internal/execution/signer"
	"github.com/sixthCow/rebalance-cli/internal/pricing"
	"github.com/sixthCow/rebalance-cli/internal/rebalance"
	"github.com/sixthCow/rebalance-cli/internal/registry"
)

// AllowanceReader reports the ERC-20 allowance owner has granted to
// spender on the given chain.
type AllowanceReader interface {
	Allowance(ctx context.Context, cfg rebalance.ChainConfig, token, owner, spender string) (*big.Int, error)
}

// Tools executes planned rebalancing orders on-chain: it builds
// calldata through the execution planner, signs with the local key,
// submits through the transaction loop and persists every action to
// the store. It implements both rebalance.SwapTool and
// rebalance.BridgeTool.
type Tools struct {
	signer     signer.Signer
	store      *execution.Store
	oracle     pricing.Oracle
	allowances AllowanceReader
	opts       execution.ExecuteOptions
	log        zerolog.Logger
}

func New(txSigner signer.Signer, store *execution.Store, oracle pricing.Oracle, allowances AllowanceReader, opts execution.ExecuteOptions, log zerolog.Logger) *Tools {
	return &Tools{
		signer:     txSigner,
		store:      store,
		oracle:     oracle,
		allowances: allowances,
		opts:       opts,
		log:        log.With().Str("component", "chaintools").Logger(),
	}
}

func (t *Tools) Name() string { return "onchain" }

func (t *Tools) Swap(ctx context.Context, order rebalance.Order) (rebalance.Receipt, error) {
	router := order.FromChain.RouterAddress
	if router == "" {
		if known, err := registry.ChainByID(order.FromChain.ChainID); err == nil {
			router = known.RouterAddress
		}
	}
	if router == "" {
		return rebalance.Receipt{}, clierr.New(clierr.CodeConfig, fmt.Sprintf("no swap router configured for %s", order.FromChain.Name))
	}

	buildCtx, err := t.buildContext(ctx, order)
	if err != nil {
		return rebalance.Receipt{}, err
	}
	buildCtx.Router = common.HexToAddress(router)
	buildCtx.SkipApproval = t.hasAllowance(ctx, order, router, buildCtx.AmountIn)

	return t.run(ctx, execution.IntentSwap, buildCtx, order)
}

func (t *Tools) Bridge(ctx context.Context, order rebalance.Order) (rebalance.Receipt, error) {
	bridge := order.FromChain.BridgeAddress
	if bridge == "" {
		if known, err := registry.ChainByID(order.FromChain.ChainID); err == nil {
			bridge = known.BridgeAddress
		}
	}
	if bridge == "" {
		return rebalance.Receipt{}, clierr.New(clierr.CodeConfig, fmt.Sprintf("no bridge contract configured for %s", order.FromChain.Name))
	}

	buildCtx, err := t.buildContext(ctx, order)
	if err != nil {
		return rebalance.Receipt{}, err
	}
	buildCtx.Bridge = common.HexToAddress(bridge)
	buildCtx.DestChainID = order.ToChain.ChainID
	buildCtx.SkipApproval = t.hasAllowance(ctx, order, bridge, buildCtx.AmountIn)

	return t.run(ctx, execution.IntentBridge, buildCtx, order)
}

func (t *Tools) run(ctx context.Context, intent string, buildCtx planner.BuildContext, order rebalance.Order) (rebalance.Receipt, error) {
	actionID := fmt.Sprintf("act-%d", time.Now().UnixNano())
	constraints := execution.Constraints{
		SlippageBps: order.SlippageBps,
		Simulate:    t.opts.Simulate,
	}

	action, err := planner.BuildAction(actionID, intent, buildCtx, constraints)
	if err != nil {
		return rebalance.Receipt{}, err
	}

	t.log.Info().
		Str("action_id", actionID).
		Str("intent", intent).
		Str("from_chain", order.FromChain.Name).
		Str("amount", buildCtx.AmountIn.String()).
		Msg("submitting action")

	if err := execution.ExecuteAction(ctx, t.store, &action, t.signer, t.opts); err != nil {
		return rebalance.Receipt{}, err
	}

	return rebalance.Receipt{
		TxHash:  action.LastTxHash(),
		GasUsed: action.TotalGasUsed(),
	}, nil
}

func (t *Tools) buildContext(ctx context.Context, order rebalance.Order) (planner.BuildContext, error) {
	amountIn, ok := new(big.Int).SetString(order.Action.AmountRaw, 10)
	if !ok || amountIn.Sign() <= 0 {
		return planner.BuildContext{}, clierr.New(clierr.CodeActionPlan, fmt.Sprintf("invalid raw amount %q", order.Action.AmountRaw))
	}

	nativeIn := isNativeAddress(order.FromTokenAddress)
	minOut, err := t.minAmountOut(ctx, order)
	if err != nil {
		t.log.Warn().Err(err).Str("to_token", order.Action.ToToken).Msg("cannot price output token, submitting without output floor")
		minOut = big.NewInt(0)
	}

	buildCtx := planner.BuildContext{
		Owner:        common.HexToAddress(order.Owner),
		RPCURL:       order.FromChain.RPCURL,
		ChainID:      order.FromChain.ChainID,
		NativeIn:     nativeIn,
		AmountIn:     amountIn,
		MinAmountOut: minOut,
	}
	if !nativeIn {
		buildCtx.TokenIn = common.HexToAddress(order.FromTokenAddress)
	}
	if order.ToTokenAddress != "" && !isNativeAddress(order.ToTokenAddress) {
		buildCtx.TokenOut = common.HexToAddress(order.ToTokenAddress)
	}
	return buildCtx, nil
}

// hasAllowance checks whether the spender already holds an allowance
// covering the input amount, so the approval step can be skipped. Any
// read failure keeps the approval; a redundant approve is harmless, a
// missing one reverts the operation.
func (t *Tools) hasAllowance(ctx context.Context, order rebalance.Order, spender string, amountIn *big.Int) bool {
	if t.allowances == nil || isNativeAddress(order.FromTokenAddress) {
		return false
	}
	allowance, err := t.allowances.Allowance(ctx, order.FromChain, order.FromTokenAddress, order.Owner, spender)
	if err != nil {
		t.log.Warn().Err(err).Str("spender", spender).Msg("allowance read failed, keeping approval step")
		return false
	}
	return allowance.Cmp(amountIn) >= 0
}

// minAmountOut derives an output floor from the USD size of the move:
// expected output tokens at the oracle price, reduced by the slippage
// allowance.
func (t *Tools) minAmountOut(ctx context.Context, order rebalance.Order) (*big.Int, error) {
	price, err := t.oracle.USDPrice(ctx, order.Action.ToToken)
	if err != nil {
		return nil, err
	}
	if price <= 0 {
		return nil, fmt.Errorf("non-positive price for %s", order.Action.ToToken)
	}

	expected := order.Action.USDValue / price
	floored := expected * (1 - float64(order.SlippageBps)/10_000)
	if floored <= 0 {
		return big.NewInt(0), nil
	}

	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(order.ToDecimals)), nil))
	scaled := new(big.Float).Mul(big.NewFloat(floored), scale)
	out, _ := scaled.Int(nil)
	return out, nil
}

func isNativeAddress(addr string) bool {
	clean := strings.ToLower(strings.TrimSpace(addr))
	return clean == "" || clean == "native"
}
