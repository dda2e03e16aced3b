package execution

import "time"

type ActionStatus string

type StepStatus string

type StepType string

const (
	ActionStatusPlanned   ActionStatus = "planned"
	ActionStatusRunning   ActionStatus = "running"
	ActionStatusCompleted ActionStatus = "completed"
	ActionStatusFailed    ActionStatus = "failed"
)

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusSimulated StepStatus = "simulated"
	StepStatusSubmitted StepStatus = "submitted"
	StepStatusConfirmed StepStatus = "confirmed"
	StepStatusFailed    StepStatus = "failed"
)

const (
	StepTypeApproval StepType = "approval"
	StepTypeSwap     StepType = "swap"
	StepTypeBridge   StepType = "bridge_send"
)

const (
	IntentSwap   = "rebalance_swap"
	IntentBridge = "rebalance_bridge"
)

type Constraints struct {
	SlippageBps int64  `json:"slippage_bps,omitempty"`
	Deadline    string `json:"deadline,omitempty"`
	Simulate    bool   `json:"simulate"`
}

// ActionStep is one transaction to submit: a target contract, encoded
// calldata and a native value. Steps are persisted as they progress so
// an interrupted run leaves an inspectable trail.
type ActionStep struct {
	StepID      string     `json:"step_id"`
	Type        StepType   `json:"type"`
	Status      StepStatus `json:"status"`
	ChainID     string     `json:"chain_id"`
	RPCURL      string     `json:"rpc_url,omitempty"`
	Description string     `json:"description,omitempty"`
	Target      string     `json:"target"`
	Data        string     `json:"data"`
	Value       string     `json:"value"`
	TxHash      string     `json:"tx_hash,omitempty"`
	GasUsed     uint64     `json:"gas_used,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Action groups the steps behind one rebalancing move, for example an
// ERC-20 approval followed by the router swap it enables.
type Action struct {
	ActionID    string         `json:"action_id"`
	IntentType  string         `json:"intent_type"`
	Status      ActionStatus   `json:"status"`
	ChainID     string         `json:"chain_id"`
	FromAddress string         `json:"from_address,omitempty"`
	ToAddress   string         `json:"to_address,omitempty"`
	InputAmount string         `json:"input_amount,omitempty"`
	CreatedAt   string         `json:"created_at"`
	UpdatedAt   string         `json:"updated_at"`
	Constraints Constraints    `json:"constraints"`
	Steps       []ActionStep   `json:"steps"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func NewAction(actionID, intentType, chainID string, constraints Constraints) Action {
	now := time.Now().UTC().Format(time.RFC3339)
	return Action{
		ActionID:    actionID,
		IntentType:  intentType,
		Status:      ActionStatusPlanned,
		ChainID:     chainID,
		CreatedAt:   now,
		UpdatedAt:   now,
		Constraints: constraints,
		Steps:       []ActionStep{},
	}
}

func (a *Action) Touch() {
	a.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
}

// LastTxHash returns the hash of the final submitted step, which for a
// swap or bridge action is the transaction that moved the funds.
func (a *Action) LastTxHash() string {
	for i := len(a.Steps) - 1; i >= 0; i-- {
		if a.Steps[i].TxHash != "" {
			return a.Steps[i].TxHash
		}
	}
	return ""
}

// TotalGasUsed sums gas across confirmed steps.
func (a *Action) TotalGasUsed() uint64 {
	var total uint64
	for _, step := range a.Steps {
		total += step.GasUsed
	}
	return total
}
