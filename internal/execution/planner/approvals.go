package planner

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	clierr "github.com/sixthCow/rebalance-cli/internal/errors"
	"github.com/sixthCow/rebalance-cli/internal/execution"
	"github.com/sixthCow/rebalance-cli/internal/registry"
)

// buildApprovalStep grants the spender exactly the input amount, never
// an unlimited allowance.
func buildApprovalStep(actionID string, c BuildContext, spender common.Address) (execution.ActionStep, error) {
	erc20, err := abi.JSON(strings.NewReader(registry.ERC20MinimalABI))
	if err != nil {
		return execution.ActionStep{}, clierr.Wrap(clierr.CodeInternal, "parse erc20 ABI", err)
	}
	data, err := erc20.Pack("approve", spender, c.AmountIn)
	if err != nil {
		return execution.ActionStep{}, clierr.Wrap(clierr.CodeActionPlan, "encode approve calldata", err)
	}
	return execution.ActionStep{
		StepID:      fmt.Sprintf("%s-approval", actionID),
		Type:        execution.StepTypeApproval,
		Status:      execution.StepStatusPending,
		ChainID:     fmt.Sprintf("eip155:%d", c.ChainID),
		RPCURL:      c.RPCURL,
		Description: fmt.Sprintf("approve %s to spend %s", spender.Hex(), c.AmountIn.String()),
		Target:      c.TokenIn.Hex(),
		Data:        "0x" + common.Bytes2Hex(data),
		Value:       "0",
	}, nil
}
