package rebalance

import "math"

// ComputeDrift fills in current percentages and drift for every entry
// and returns the portfolio total in USD. Drift is signed: positive
// means overweight, negative underweight. With a zero-value portfolio
// every current percentage is zero and drift is simply the negated
// target.
func ComputeDrift(allocations []CurrentAllocation) float64 {
	total := 0.0
	for _, entry := range allocations {
		total += entry.USDValue
	}

	for i := range allocations {
		current := 0.0
		if total > 0 {
			current = allocations[i].USDValue / total * 100
		}
		allocations[i].CurrentPercent = current
		allocations[i].Drift = current - allocations[i].TargetPercent
	}
	return total
}

// WorstDrift returns the largest absolute drift across the portfolio.
func WorstDrift(allocations []CurrentAllocation) float64 {
	worst := 0.0
	for _, entry := range allocations {
		if d := math.Abs(entry.Drift); d > worst {
			worst = d
		}
	}
	return worst
}
