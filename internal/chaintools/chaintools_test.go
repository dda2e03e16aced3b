package chaintools

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sixthCow/rebalance-cli/internal/execution"
	"github.com/sixthCow/rebalance-cli/internal/pricing"
	"github.com/sixthCow/rebalance-cli/internal/rebalance"
)

type fakeAllowances struct {
	allowance *big.Int
	err       error
	calls     int
}

func (f *fakeAllowances) Allowance(_ context.Context, _ rebalance.ChainConfig, _, _, _ string) (*big.Int, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.allowance, nil
}

func TestIsNativeAddress(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"", true},
		{"  ", true},
		{"native", true},
		{"NATIVE", true},
		{"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", false},
	}
	for _, tc := range tests {
		if got := isNativeAddress(tc.addr); got != tc.want {
			t.Errorf("isNativeAddress(%q) = %v", tc.addr, got)
		}
	}
}

func TestMinAmountOut(t *testing.T) {
	tools := New(nil, nil, pricing.Static{"USDC": 1}, nil, execution.DefaultExecuteOptions(), zerolog.Nop())

	order := rebalance.Order{
		Action:      rebalance.Action{ToToken: "USDC", USDValue: 1000},
		ToDecimals:  6,
		SlippageBps: 50,
	}
	got, err := tools.minAmountOut(context.Background(), order)
	if err != nil {
		t.Fatalf("minAmountOut: %v", err)
	}
	// 1000 USDC expected, less 0.5 percent, in 6-decimal base units.
	want := big.NewInt(995_000_000)
	if got.Cmp(want) != 0 {
		t.Errorf("min out = %s, want %s", got, want)
	}
}

func TestMinAmountOutUnknownToken(t *testing.T) {
	tools := New(nil, nil, pricing.Static{}, nil, execution.DefaultExecuteOptions(), zerolog.Nop())
	order := rebalance.Order{Action: rebalance.Action{ToToken: "DOGE", USDValue: 100}}
	if _, err := tools.minAmountOut(context.Background(), order); err == nil {
		t.Fatal("expected pricing error")
	}
}

func TestHasAllowance(t *testing.T) {
	order := rebalance.Order{
		Owner:            "0x1111111111111111111111111111111111111111",
		FromTokenAddress: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
	}
	spender := "0x2222222222222222222222222222222222222222"
	amount := big.NewInt(1_000_000)

	tests := []struct {
		name       string
		allowances AllowanceReader
		order      rebalance.Order
		want       bool
	}{
		{"covering allowance", &fakeAllowances{allowance: big.NewInt(2_000_000)}, order, true},
		{"exact allowance", &fakeAllowances{allowance: big.NewInt(1_000_000)}, order, true},
		{"short allowance", &fakeAllowances{allowance: big.NewInt(999_999)}, order, false},
		{"read failure keeps approval", &fakeAllowances{err: errors.New("rpc flaked")}, order, false},
		{"no reader wired", nil, order, false},
		{"native input", &fakeAllowances{allowance: big.NewInt(2_000_000)}, rebalance.Order{Owner: order.Owner, FromTokenAddress: "native"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tools := New(nil, nil, pricing.Static{}, tc.allowances, execution.DefaultExecuteOptions(), zerolog.Nop())
			if got := tools.hasAllowance(context.Background(), tc.order, spender, amount); got != tc.want {
				t.Errorf("hasAllowance = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestHasAllowanceSkipsReadForNativeInput(t *testing.T) {
	allowances := &fakeAllowances{allowance: big.NewInt(1)}
	tools := New(nil, nil, pricing.Static{}, allowances, execution.DefaultExecuteOptions(), zerolog.Nop())
	order := rebalance.Order{FromTokenAddress: ""}

	tools.hasAllowance(context.Background(), order, "0x2222222222222222222222222222222222222222", big.NewInt(1))
	if allowances.calls != 0 {
		t.Errorf("allowance reads = %d, native input needs none", allowances.calls)
	}
}

func TestBuildContextRejectsBadAmount(t *testing.T) {
	tools := New(nil, nil, pricing.Static{"USDC": 1}, nil, execution.DefaultExecuteOptions(), zerolog.Nop())
	order := rebalance.Order{
		Action: rebalance.Action{AmountRaw: "not-a-number", ToToken: "USDC"},
	}
	if _, err := tools.buildContext(context.Background(), order); err == nil {
		t.Fatal("expected error for invalid raw amount")
	}
}
