package rebalance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	clierr "github.com/sixthCow/rebalance-cli/internal/errors"
)

// Engine wires the reader, planner and executor into the two
// operations the CLI exposes: a read-only plan and a best-effort run.
// The engine itself is stateless; every invocation reads fresh
// balances.
type Engine struct {
	reader *BalanceReader
	chain  ChainReader
	swap   SwapTool
	bridge BridgeTool
	log    zerolog.Logger
	now    func() time.Time
}

func NewEngine(chain ChainReader, reader *BalanceReader, swap SwapTool, bridge BridgeTool, log zerolog.Logger) *Engine {
	return &Engine{
		reader: reader,
		chain:  chain,
		swap:   swap,
		bridge: bridge,
		log:    log.With().Str("component", "engine").Logger(),
		now:    time.Now,
	}
}

// Plan validates the request, reads balances, computes drift and, if
// the strategy calls for action, produces the ordered action list with
// its gas and time estimate. It performs no writes of any kind.
func (e *Engine) Plan(ctx context.Context, req PlanRequest) (PlanResult, []string, error) {
	if err := Validate(req); err != nil {
		return PlanResult{}, nil, err
	}

	allocations, warnings, err := e.reader.Read(ctx, req)
	if err != nil {
		return PlanResult{}, warnings, err
	}

	totalUSD := ComputeDrift(allocations)

	decision, err := Decide(req.Strategy, req.ThresholdPercent, allocations)
	if err != nil {
		return PlanResult{}, warnings, err
	}

	result := PlanResult{
		NeedsRebalancing:   decision.Rebalance,
		Reason:             decision.Reason,
		TotalPortfolioUSD:  totalUSD,
		CurrentAllocations: allocations,
		PlannedActions:     []Action{},
		WorstCaseDrift:     decision.WorstDrift,
	}
	if !decision.Rebalance {
		return result, warnings, nil
	}

	actions := PlanActions(allocations, totalUSD, req.MinRebalanceUSD, req.MaxRebalanceUSD)
	estimate := EstimateActions(actions)

	result.PlannedActions = actions
	result.EstimatedTotalGas = estimate.TotalGasUnits
	result.EstimatedExecutionS = estimate.EstimatedSeconds
	if len(actions) == 0 {
		// The decision stands even when every sized move falls under the
		// minimum; callers still see the drift signal, just no actions.
		result.Reason = "rebalancing needed but no action clears the minimum rebalance size"
		return result, warnings, nil
	}

	gasWarnings, err := e.checkGasCeiling(ctx, req, actions)
	warnings = append(warnings, gasWarnings...)
	if err != nil {
		return PlanResult{}, warnings, err
	}

	return result, warnings, nil
}

// checkGasCeiling compares current gas prices on every involved chain
// against the configured ceiling. A read failure is a warning, not a
// veto; a confirmed breach fails the plan before anything executes.
func (e *Engine) checkGasCeiling(ctx context.Context, req PlanRequest, actions []Action) ([]string, error) {
	if req.MaxGasPriceGwei <= 0 {
		return nil, nil
	}

	index, err := ChainIndex(req.Chains)
	if err != nil {
		return nil, err
	}

	warnings := make([]string, 0)
	checked := make(map[string]bool)
	for _, action := range actions {
		for _, chain := range []string{action.FromChain, action.ToChain} {
			if chain == "" {
				continue
			}
			key := strings.ToLower(chain)
			if checked[key] {
				continue
			}
			checked[key] = true

			cfg, ok := index[key]
			if !ok {
				continue
			}
			price, gerr := e.chain.GasPriceGwei(ctx, cfg)
			if gerr != nil {
				e.log.Warn().Err(gerr).Str("chain", chain).Msg("gas price read failed, skipping ceiling check")
				warnings = append(warnings, fmt.Sprintf("gas price unavailable on %s", chain))
				continue
			}
			if price > req.MaxGasPriceGwei {
				return warnings, clierr.New(clierr.CodeGasLimit,
					fmt.Sprintf("gas price %.2f gwei on %s exceeds ceiling %.2f gwei", price, chain, req.MaxGasPriceGwei))
			}
		}
	}
	return warnings, nil
}

// Execute plans and then runs the actions sequentially. Failed actions
// are recorded and skipped past, balances are re-read afterwards, and
// the before/after snapshots are diffed so the caller can see whether
// the run improved anything.
func (e *Engine) Execute(ctx context.Context, req ExecuteRequest) (ExecuteResult, []string, error) {
	started := e.now()

	plan, warnings, err := e.Plan(ctx, req.PlanRequest)
	if err != nil {
		return ExecuteResult{}, warnings, err
	}

	before := TakeSnapshot(e.now(), plan.TotalPortfolioUSD, plan.CurrentAllocations)

	result := ExecuteResult{
		RebalanceComplete: true,
		ExecutedActions:   []ExecutedAction{},
		FinalAllocations:  plan.CurrentAllocations,
	}

	if !plan.NeedsRebalancing || len(plan.PlannedActions) == 0 {
		result.Improvement = DiffSnapshots(before, before)
		result.ExecutionTimeSeconds = e.now().Sub(started).Seconds()
		return result, warnings, nil
	}

	executor := NewExecutor(e.swap, e.bridge, req.DryRun, e.log)
	executor.now = e.now
	executed, totalGas, allOK := executor.Run(ctx, req.PlanRequest, plan.CurrentAllocations, plan.PlannedActions)

	result.ExecutedActions = executed
	result.TotalGasUsed = totalGas
	result.RebalanceComplete = allOK

	final, readWarnings, readErr := e.reader.Read(ctx, req.PlanRequest)
	warnings = append(warnings, readWarnings...)
	if readErr != nil {
		// The actions already ran; a failed re-read degrades the
		// report rather than erasing the outcome.
		e.log.Warn().Err(readErr).Msg("post-execution balance read failed")
		warnings = append(warnings, fmt.Sprintf("post-execution read failed: %v", readErr))
		result.Improvement = DiffSnapshots(before, before)
		result.ExecutionTimeSeconds = e.now().Sub(started).Seconds()
		return result, warnings, nil
	}

	finalTotal := ComputeDrift(final)
	result.FinalAllocations = final
	after := TakeSnapshot(e.now(), finalTotal, final)
	result.Improvement = DiffSnapshots(before, after)
	result.ExecutionTimeSeconds = e.now().Sub(started).Seconds()

	return result, warnings, nil
}

// Allocations is the reader half on its own: balances and drift with
// no planning.
func (e *Engine) Allocations(ctx context.Context, req PlanRequest) ([]CurrentAllocation, float64, []string, error) {
	if err := Validate(req); err != nil {
		return nil, 0, nil, err
	}
	allocations, warnings, err := e.reader.Read(ctx, req)
	if err != nil {
		return nil, 0, warnings, err
	}
	totalUSD := ComputeDrift(allocations)
	return allocations, totalUSD, warnings, nil
}
