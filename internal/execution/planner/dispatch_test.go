package planner

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	clierr "github.com/sixthCow/rebalance-cli/internal/errors"
	"github.com/sixthCow/rebalance-cli/internal/execution"
)

var (
	testOwner  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testRouter = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testBridge = common.HexToAddress("0x3333333333333333333333333333333333333333")
	testToken  = common.HexToAddress("0x4444444444444444444444444444444444444444")
)

func swapContext() BuildContext {
	return BuildContext{
		Owner:        testOwner,
		ChainID:      1,
		Router:       testRouter,
		TokenIn:      testToken,
		TokenOut:     common.HexToAddress("0x5555555555555555555555555555555555555555"),
		AmountIn:     big.NewInt(1_000_000),
		MinAmountOut: big.NewInt(990_000),
	}
}

func TestBuildSwapAction(t *testing.T) {
	action, err := BuildAction("act-1", execution.IntentSwap, swapContext(), execution.Constraints{SlippageBps: 50, Simulate: true})
	if err != nil {
		t.Fatalf("BuildAction: %v", err)
	}

	if action.ActionID != "act-1" || action.IntentType != execution.IntentSwap {
		t.Errorf("action = %+v", action)
	}
	if action.ChainID != "eip155:1" {
		t.Errorf("chain id = %q", action.ChainID)
	}
	if action.Status != execution.ActionStatusPlanned {
		t.Errorf("status = %q", action.Status)
	}
	if len(action.Steps) != 2 {
		t.Fatalf("steps = %d, want approval + swap", len(action.Steps))
	}

	approval := action.Steps[0]
	if approval.Type != execution.StepTypeApproval {
		t.Errorf("step 0 type = %q", approval.Type)
	}
	if approval.StepID != "act-1-approval" {
		t.Errorf("approval id = %q", approval.StepID)
	}
	if approval.Target != testToken.Hex() {
		t.Errorf("approval target = %q, want token contract", approval.Target)
	}
	// approve(address,uint256) selector.
	if !strings.HasPrefix(approval.Data, "0x095ea7b3") {
		t.Errorf("approval data = %.12q", approval.Data)
	}

	swap := action.Steps[1]
	if swap.Type != execution.StepTypeSwap || swap.StepID != "act-1-swap" {
		t.Errorf("swap step = %+v", swap)
	}
	if swap.Target != testRouter.Hex() {
		t.Errorf("swap target = %q", swap.Target)
	}
	if swap.Value != "0" {
		t.Errorf("swap value = %q", swap.Value)
	}
	if !strings.HasPrefix(swap.Data, "0x") || len(swap.Data) <= 10 {
		t.Errorf("swap data = %q", swap.Data)
	}
}

func TestBuildSwapNativeInSkipsApproval(t *testing.T) {
	c := swapContext()
	c.NativeIn = true
	c.TokenIn = common.Address{}

	action, err := BuildAction("act-2", execution.IntentSwap, c, execution.Constraints{})
	if err != nil {
		t.Fatalf("BuildAction: %v", err)
	}
	if len(action.Steps) != 1 {
		t.Fatalf("steps = %d, native input needs no approval", len(action.Steps))
	}
}

func TestBuildSwapExistingAllowanceSkipsApproval(t *testing.T) {
	c := swapContext()
	c.SkipApproval = true

	action, err := BuildAction("act-5", execution.IntentSwap, c, execution.Constraints{})
	if err != nil {
		t.Fatalf("BuildAction: %v", err)
	}
	if len(action.Steps) != 1 {
		t.Fatalf("steps = %d, covered allowance needs no approval", len(action.Steps))
	}
	if action.Steps[0].Type != execution.StepTypeSwap {
		t.Errorf("step type = %q", action.Steps[0].Type)
	}
}

func TestBuildBridgeERC20(t *testing.T) {
	c := BuildContext{
		Owner:        testOwner,
		ChainID:      1,
		Bridge:       testBridge,
		DestChainID:  42161,
		TokenIn:      testToken,
		AmountIn:     big.NewInt(500),
		MinAmountOut: big.NewInt(495),
	}

	action, err := BuildAction("act-3", execution.IntentBridge, c, execution.Constraints{})
	if err != nil {
		t.Fatalf("BuildAction: %v", err)
	}
	if len(action.Steps) != 2 {
		t.Fatalf("steps = %d", len(action.Steps))
	}
	send := action.Steps[1]
	if send.Type != execution.StepTypeBridge {
		t.Errorf("step type = %q", send.Type)
	}
	if send.Target != testBridge.Hex() {
		t.Errorf("target = %q", send.Target)
	}
	if send.Value != "0" {
		t.Errorf("erc20 bridge value = %q", send.Value)
	}
}

func TestBuildBridgeNativeCarriesValue(t *testing.T) {
	c := BuildContext{
		Owner:       testOwner,
		ChainID:     1,
		Bridge:      testBridge,
		DestChainID: 42161,
		NativeIn:    true,
		AmountIn:    big.NewInt(1_000_000_000),
	}

	action, err := BuildAction("act-4", execution.IntentBridge, c, execution.Constraints{})
	if err != nil {
		t.Fatalf("BuildAction: %v", err)
	}
	if len(action.Steps) != 1 {
		t.Fatalf("steps = %d", len(action.Steps))
	}
	if action.Steps[0].Value != "1000000000" {
		t.Errorf("value = %q, native deposit should carry the amount", action.Steps[0].Value)
	}
}

func TestBuildActionRejects(t *testing.T) {
	tests := []struct {
		name   string
		intent string
		mutate func(*BuildContext)
	}{
		{"unknown intent", "rebalance_teleport", func(*BuildContext) {}},
		{"zero amount", execution.IntentSwap, func(c *BuildContext) { c.AmountIn = big.NewInt(0) }},
		{"nil amount", execution.IntentSwap, func(c *BuildContext) { c.AmountIn = nil }},
		{"missing router", execution.IntentSwap, func(c *BuildContext) { c.Router = common.Address{} }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := swapContext()
			tc.mutate(&c)
			_, err := BuildAction("act-x", tc.intent, c, execution.Constraints{})
			if err == nil {
				t.Fatal("expected error")
			}
			if cErr, ok := clierr.As(err); !ok || cErr.Code != clierr.CodeActionPlan {
				t.Fatalf("want CodeActionPlan, got %v", err)
			}
		})
	}
}
