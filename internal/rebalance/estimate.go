package rebalance

// Flat per-action costs. These are deliberately coarse planning
// figures, not quotes; real gas usage comes back with each receipt.
const (
	swapGasUnits   = 200_000
	bridgeGasUnits = 300_000
	comboGasUnits  = 500_000

	swapSeconds   = 30
	bridgeSeconds = 300
	comboSeconds  = 330
)

type GasEstimate struct {
	TotalGasUnits    uint64 `json:"total_gas_units"`
	EstimatedSeconds int64  `json:"estimated_seconds"`
}

// EstimateActions sums the flat cost of every planned action.
func EstimateActions(actions []Action) GasEstimate {
	var est GasEstimate
	for _, action := range actions {
		switch action.Type {
		case ActionSwap:
			est.TotalGasUnits += swapGasUnits
			est.EstimatedSeconds += swapSeconds
		case ActionBridge:
			est.TotalGasUnits += bridgeGasUnits
			est.EstimatedSeconds += bridgeSeconds
		case ActionBridgeAndSwap:
			est.TotalGasUnits += comboGasUnits
			est.EstimatedSeconds += comboSeconds
		}
	}
	return est
}

// ActionGasUnits returns the flat gas figure for one action type,
// used for dry-run receipts.
func ActionGasUnits(t ActionType) uint64 {
	switch t {
	case ActionBridge:
		return bridgeGasUnits
	case ActionBridgeAndSwap:
		return comboGasUnits
	default:
		return swapGasUnits
	}
}
