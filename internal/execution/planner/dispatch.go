package planner

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	clierr "github.com/sixthCow/rebalance-cli/internal/errors"
	"github.com/sixthCow/rebalance-cli/internal/execution"
	"github.com/sixthCow/rebalance-cli/internal/registry"
)

// BuildContext carries everything calldata construction needs. All
// amounts are base units; MinAmountOut already has slippage applied.
type BuildContext struct {
	Owner        common.Address
	RPCURL       string
	ChainID      int64
	Router       common.Address
	Bridge       common.Address
	DestChainID  int64
	TokenIn      common.Address
	TokenOut     common.Address
	NativeIn     bool
	SkipApproval bool
	AmountIn     *big.Int
	MinAmountOut *big.Int
}

// builder describes how one intent type becomes calldata. New
// operations are added as table rows, not as new branches in the
// build path.
type builder struct {
	stepType execution.StepType
	abiJSON  string
	method   func(BuildContext) string
	target   func(BuildContext) common.Address
	args     func(BuildContext) []any
	value    func(BuildContext) *big.Int
}

var builders = map[string]builder{
	execution.IntentSwap: {
		stepType: execution.StepTypeSwap,
		abiJSON:  registry.SwapRouterABI,
		method:   func(BuildContext) string { return "exactInputSingle" },
		target:   func(c BuildContext) common.Address { return c.Router },
		args: func(c BuildContext) []any {
			return []any{struct {
				TokenIn           common.Address
				TokenOut          common.Address
				Fee               *big.Int
				Recipient         common.Address
				AmountIn          *big.Int
				AmountOutMinimum  *big.Int
				SqrtPriceLimitX96 *big.Int
			}{
				TokenIn:           c.TokenIn,
				TokenOut:          c.TokenOut,
				Fee:               big.NewInt(3000),
				Recipient:         c.Owner,
				AmountIn:          c.AmountIn,
				AmountOutMinimum:  c.MinAmountOut,
				SqrtPriceLimitX96: big.NewInt(0),
			}}
		},
		value: func(BuildContext) *big.Int { return big.NewInt(0) },
	},
	execution.IntentBridge: {
		stepType: execution.StepTypeBridge,
		abiJSON:  registry.BridgeDepositABI,
		method: func(c BuildContext) string {
			if c.NativeIn {
				return "depositNative"
			}
			return "depositERC20"
		},
		target: func(c BuildContext) common.Address { return c.Bridge },
		args: func(c BuildContext) []any {
			if c.NativeIn {
				return []any{big.NewInt(c.DestChainID), c.Owner, c.MinAmountOut}
			}
			return []any{c.TokenIn, c.AmountIn, big.NewInt(c.DestChainID), c.Owner, c.MinAmountOut}
		},
		value: func(c BuildContext) *big.Int {
			if c.NativeIn {
				return c.AmountIn
			}
			return big.NewInt(0)
		},
	},
}

// BuildAction assembles the step list for one intent: an ERC-20
// approval when the input token needs one, then the operation itself.
// SkipApproval marks an allowance already covering the input amount.
func BuildAction(actionID, intent string, c BuildContext, constraints execution.Constraints) (execution.Action, error) {
	b, ok := builders[intent]
	if !ok {
		return execution.Action{}, clierr.New(clierr.CodeActionPlan, fmt.Sprintf("no builder for intent %s", intent))
	}
	if c.AmountIn == nil || c.AmountIn.Sign() <= 0 {
		return execution.Action{}, clierr.New(clierr.CodeActionPlan, "amount must be positive")
	}
	if c.MinAmountOut == nil {
		c.MinAmountOut = big.NewInt(0)
	}

	target := b.target(c)
	if target == (common.Address{}) {
		return execution.Action{}, clierr.New(clierr.CodeActionPlan, fmt.Sprintf("no target contract configured for %s on chain %d", intent, c.ChainID))
	}

	action := execution.NewAction(actionID, intent, fmt.Sprintf("eip155:%d", c.ChainID), constraints)
	action.ToAddress = target.Hex()
	action.InputAmount = c.AmountIn.String()

	if !c.NativeIn && !c.SkipApproval {
		approval, err := buildApprovalStep(actionID, c, target)
		if err != nil {
			return execution.Action{}, err
		}
		action.Steps = append(action.Steps, approval)
	}

	parsed, err := abi.JSON(strings.NewReader(b.abiJSON))
	if err != nil {
		return execution.Action{}, clierr.Wrap(clierr.CodeInternal, "parse operation ABI", err)
	}
	method := b.method(c)
	data, err := parsed.Pack(method, b.args(c)...)
	if err != nil {
		return execution.Action{}, clierr.Wrap(clierr.CodeActionPlan, fmt.Sprintf("encode %s calldata", method), err)
	}

	action.Steps = append(action.Steps, execution.ActionStep{
		StepID:      fmt.Sprintf("%s-%s", actionID, b.stepType),
		Type:        b.stepType,
		Status:      execution.StepStatusPending,
		ChainID:     action.ChainID,
		RPCURL:      c.RPCURL,
		Description: fmt.Sprintf("%s via %s", method, target.Hex()),
		Target:      target.Hex(),
		Data:        "0x" + common.Bytes2Hex(data),
		Value:       b.value(c).String(),
	})

	return action, nil
}
