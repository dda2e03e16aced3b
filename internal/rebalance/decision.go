package rebalance

import (
	"fmt"

	clierr "github.com/sixthCow/rebalance-cli/internal/errors"
)

// Decision is the outcome of asking "should this portfolio be
// rebalanced right now".
type Decision struct {
	Rebalance  bool
	WorstDrift float64
	Reason     string
}

// Decide applies the configured strategy to the observed drift.
// THRESHOLD acts only when the worst drift exceeds the threshold.
// IMMEDIATE always acts. PERIODIC always acts when invoked; the
// schedule that decides when to invoke lives outside the core.
func Decide(strategy Strategy, thresholdPercent float64, allocations []CurrentAllocation) (Decision, error) {
	worst := WorstDrift(allocations)

	switch strategy {
	case StrategyThreshold:
		if worst > thresholdPercent {
			return Decision{
				Rebalance:  true,
				WorstDrift: worst,
				Reason:     fmt.Sprintf("worst drift %.2f%% exceeds threshold %.2f%%", worst, thresholdPercent),
			}, nil
		}
		return Decision{
			WorstDrift: worst,
			Reason:     fmt.Sprintf("worst drift %.2f%% within threshold %.2f%%", worst, thresholdPercent),
		}, nil
	case StrategyImmediate:
		return Decision{Rebalance: true, WorstDrift: worst, Reason: "immediate strategy always rebalances"}, nil
	case StrategyPeriodic:
		return Decision{Rebalance: true, WorstDrift: worst, Reason: "periodic strategy rebalances on every scheduled run"}, nil
	default:
		return Decision{}, clierr.New(clierr.CodeConfig, fmt.Sprintf("unsupported strategy: %s", strategy))
	}
}
