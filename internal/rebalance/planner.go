package rebalance

import (
	"math"
	"math/big"
	"sort"
	"strings"
)

// driftCutoffPercent is the dead band around zero drift. Entries
// within one percent of target are neither a source nor a sink.
const driftCutoffPercent = 1.0

// PlanActions turns observed drift into an ordered action list.
//
// Two single passes, no convergence loop. First, for every token held
// on more than one chain, each overweight position is paired against
// each underweight one in encounter order, producing a BRIDGE sized
// min(excess, need) in USD. Then, per chain, overweight tokens are
// paired against underweight tokens the same way, producing SWAPs.
// Bridges carry lower priority numbers so cross-chain liquidity lands
// before the swaps that may depend on it.
func PlanActions(allocations []CurrentAllocation, totalUSD, minUSD, maxUSD float64) []Action {
	actions := make([]Action, 0)
	if totalUSD <= 0 {
		return actions
	}

	priority := 1

	for _, symbol := range tokenOrder(allocations) {
		entries := entriesForToken(allocations, symbol)
		if len(chainsOf(entries)) < 2 {
			continue
		}
		excess, needs := splitByDrift(entries)
		for _, from := range excess {
			for _, to := range needs {
				action, ok := sizeAction(from, to, totalUSD, minUSD, maxUSD)
				if !ok {
					continue
				}
				action.Type = ActionBridge
				action.ToChain = to.Chain
				action.ToToken = to.TokenSymbol
				action.Priority = priority
				priority++
				actions = append(actions, action)
			}
		}
	}

	for _, chain := range chainOrder(allocations) {
		entries := entriesForChain(allocations, chain)
		if len(entries) < 2 {
			continue
		}
		excess, needs := splitByDrift(entries)
		for _, from := range excess {
			for _, to := range needs {
				action, ok := sizeAction(from, to, totalUSD, minUSD, maxUSD)
				if !ok {
					continue
				}
				action.Type = ActionSwap
				action.ToToken = to.TokenSymbol
				action.Priority = priority
				priority++
				actions = append(actions, action)
			}
		}
	}

	sort.SliceStable(actions, func(i, j int) bool { return actions[i].Priority < actions[j].Priority })
	return actions
}

// sizeAction computes the move between one overweight and one
// underweight entry. Moves below the minimum are discarded; moves
// above the maximum are clamped to it.
func sizeAction(from, to CurrentAllocation, totalUSD, minUSD, maxUSD float64) (Action, bool) {
	excessUSD := from.Drift / 100 * totalUSD
	neededUSD := -to.Drift / 100 * totalUSD
	moveUSD := math.Min(excessUSD, neededUSD)

	if moveUSD < minUSD {
		return Action{}, false
	}
	if maxUSD > 0 && moveUSD > maxUSD {
		moveUSD = maxUSD
	}

	unitPrice := 1.0
	if from.Balance > 0 && from.USDValue > 0 {
		unitPrice = from.USDValue / from.Balance
	}
	amount := moveUSD / unitPrice

	return Action{
		FromChain: from.Chain,
		FromToken: from.TokenSymbol,
		Amount:    amount,
		AmountRaw: toBaseUnits(amount, from.Decimals),
		USDValue:  moveUSD,
	}, true
}

func toBaseUnits(amount float64, decimals int) string {
	if amount <= 0 {
		return "0"
	}
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	scaled := new(big.Float).Mul(big.NewFloat(amount), scale)
	out, _ := scaled.Int(nil)
	return out.String()
}

func splitByDrift(entries []CurrentAllocation) (excess, needs []CurrentAllocation) {
	for _, entry := range entries {
		switch {
		case entry.Drift > driftCutoffPercent:
			excess = append(excess, entry)
		case entry.Drift < -driftCutoffPercent:
			needs = append(needs, entry)
		}
	}
	return excess, needs
}

func tokenOrder(allocations []CurrentAllocation) []string {
	seen := make(map[string]bool)
	order := make([]string, 0)
	for _, entry := range allocations {
		symbol := strings.ToUpper(entry.TokenSymbol)
		if !seen[symbol] {
			seen[symbol] = true
			order = append(order, symbol)
		}
	}
	return order
}

func chainOrder(allocations []CurrentAllocation) []string {
	seen := make(map[string]bool)
	order := make([]string, 0)
	for _, entry := range allocations {
		chain := strings.ToLower(entry.Chain)
		if !seen[chain] {
			seen[chain] = true
			order = append(order, chain)
		}
	}
	return order
}

func entriesForToken(allocations []CurrentAllocation, symbol string) []CurrentAllocation {
	out := make([]CurrentAllocation, 0)
	for _, entry := range allocations {
		if strings.EqualFold(entry.TokenSymbol, symbol) {
			out = append(out, entry)
		}
	}
	return out
}

func entriesForChain(allocations []CurrentAllocation, chain string) []CurrentAllocation {
	out := make([]CurrentAllocation, 0)
	for _, entry := range allocations {
		if strings.EqualFold(entry.Chain, chain) {
			out = append(out, entry)
		}
	}
	return out
}

func chainsOf(entries []CurrentAllocation) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, entry := range entries {
		chain := strings.ToLower(entry.Chain)
		if !seen[chain] {
			seen[chain] = true
			out = append(out, chain)
		}
	}
	return out
}
