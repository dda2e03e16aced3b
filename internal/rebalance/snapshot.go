package rebalance

import "time"

// Snapshot freezes the portfolio state at a point in time so the
// before/after comparison around an execution run is explicit. The
// value is threaded through by the caller; nothing here is stored
// between invocations.
type Snapshot struct {
	TakenAt     string              `json:"taken_at"`
	TotalUSD    float64             `json:"total_usd"`
	WorstDrift  float64             `json:"worst_drift"`
	Allocations []CurrentAllocation `json:"allocations"`
}

func TakeSnapshot(now time.Time, totalUSD float64, allocations []CurrentAllocation) Snapshot {
	copied := make([]CurrentAllocation, len(allocations))
	copy(copied, allocations)
	return Snapshot{
		TakenAt:     now.UTC().Format(time.RFC3339),
		TotalUSD:    totalUSD,
		WorstDrift:  WorstDrift(allocations),
		Allocations: copied,
	}
}

type SnapshotDiff struct {
	WorstDriftBefore float64 `json:"worst_drift_before"`
	WorstDriftAfter  float64 `json:"worst_drift_after"`
	TotalUSDDelta    float64 `json:"total_usd_delta"`
	Improved         bool    `json:"improved"`
}

// DiffSnapshots reports whether the run actually moved the portfolio
// closer to target.
func DiffSnapshots(before, after Snapshot) SnapshotDiff {
	return SnapshotDiff{
		WorstDriftBefore: before.WorstDrift,
		WorstDriftAfter:  after.WorstDrift,
		TotalUSDDelta:    after.TotalUSD - before.TotalUSD,
		Improved:         after.WorstDrift < before.WorstDrift,
	}
}
