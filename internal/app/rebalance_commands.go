package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/sixthCow/rebalance-cli/internal/chainrpc"
	"github.com/sixthCow/rebalance-cli/internal/chaintools"
	"github.com/sixthCow/rebalance-cli/internal/config"
	clierr "github.com/sixthCow/rebalance-cli/internal/errors"
	"github.com/sixthCow/rebalance-cli/internal/execution"
	"github.com/sixthCow/rebalance-cli/internal/execution/signer"
	"github.com/sixthCow/rebalance-cli/internal/httpx"
	"github.com/sixthCow/rebalance-cli/internal/model"
	"github.com/sixthCow/rebalance-cli/internal/pricing"
	"github.com/sixthCow/rebalance-cli/internal/rebalance"
)

// loadPlanRequest reads the portfolio file referenced by settings and
// converts it into an engine request.
func (s *runtimeState) loadPlanRequest() (rebalance.PlanRequest, error) {
	portfolio, err := config.LoadPortfolio(s.settings.PortfolioPath)
	if err != nil {
		return rebalance.PlanRequest{}, err
	}
	return portfolio.PlanRequest()
}

func (s *runtimeState) newOracle() pricing.Oracle {
	httpClient := httpx.New(s.settings.Timeout, s.settings.Retries)
	base := pricing.NewHTTPOracle(httpClient, s.settings.PriceAPIURL, s.settings.PriceAPIKey)
	if s.cache == nil {
		return base
	}
	return pricing.NewCachedOracle(base, s.cache, s.settings.MaxStale, s.log)
}

// newPlanEngine builds an engine with no execution tools attached; it
// can plan and read but never submit.
func (s *runtimeState) newPlanEngine() (*rebalance.Engine, *chainrpc.Reader) {
	chainReader := chainrpc.NewReader(s.log)
	oracle := s.newOracle()
	balanceReader := rebalance.NewBalanceReader(chainReader, oracle, s.log)
	return rebalance.NewEngine(chainReader, balanceReader, nil, nil, s.log), chainReader
}

func (s *runtimeState) newPlanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Read balances, compute drift and plan rebalancing actions (read-only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := s.loadPlanRequest()
			if err != nil {
				return err
			}

			engine, chainReader := s.newPlanEngine()
			defer chainReader.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), s.settings.Timeout)
			defer cancel()

			start := time.Now()
			result, warnings, err := engine.Plan(ctx, req)
			statuses := []model.ProviderStatus{{Name: "onchain", Status: statusFromErr(err), LatencyMS: time.Since(start).Milliseconds()}}
			partial := len(warnings) > 0
			s.lastWarnings = warnings
			s.lastPartial = partial
			if err != nil {
				return err
			}
			if partial && s.settings.Strict {
				return clierr.New(clierr.CodePartialStrict, "partial results returned in strict mode")
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), result, warnings, cacheMetaBypass(), statuses, partial)
		},
	}
	return cmd
}

func (s *runtimeState) newRunCommand() *cobra.Command {
	var dryRun bool
	var noSimulate bool
	var keySource string
	var maxFeeGwei string
	var maxPriorityFeeGwei string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Plan and execute rebalancing actions sequentially by priority",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := s.loadPlanRequest()
			if err != nil {
				return err
			}

			chainReader := chainrpc.NewReader(s.log)
			defer chainReader.Close()
			oracle := s.newOracle()
			balanceReader := rebalance.NewBalanceReader(chainReader, oracle, s.log)

			var swap rebalance.SwapTool
			var bridge rebalance.BridgeTool
			if !dryRun {
				txSigner, err := signer.NewLocalSignerFromEnv(keySource)
				if err != nil {
					return clierr.Wrap(clierr.CodeSigner, "load signing key", err)
				}
				store, err := execution.OpenStore(s.settings.ActionStorePath, s.settings.ActionLockPath)
				if err != nil {
					return clierr.Wrap(clierr.CodeInternal, "open action store", err)
				}
				defer func() { _ = store.Close() }()

				opts := execution.DefaultExecuteOptions()
				opts.Simulate = !noSimulate
				opts.MaxFeeGwei = maxFeeGwei
				opts.MaxPriorityFeeGwei = maxPriorityFeeGwei

				tools := chaintools.New(txSigner, store, oracle, chainReader, opts, s.log)
				swap, bridge = tools, tools
			}

			engine := rebalance.NewEngine(chainReader, balanceReader, swap, bridge, s.log)

			// Execution outlives the per-read timeout; bound the whole
			// run by the worst-case receipt wait per action instead.
			ctx := cmd.Context()

			start := time.Now()
			result, warnings, err := engine.Execute(ctx, rebalance.ExecuteRequest{PlanRequest: req, DryRun: dryRun})
			statuses := []model.ProviderStatus{{Name: "onchain", Status: statusFromErr(err), LatencyMS: time.Since(start).Milliseconds()}}
			partial := len(warnings) > 0 || !result.RebalanceComplete
			s.lastWarnings = warnings
			s.lastPartial = partial
			if err != nil {
				return err
			}
			if partial && s.settings.Strict {
				return clierr.New(clierr.CodePartialStrict, "partial results returned in strict mode")
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), result, warnings, cacheMetaBypass(), statuses, partial)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Plan and report without submitting transactions")
	cmd.Flags().BoolVar(&noSimulate, "no-simulate", false, "Skip eth_call simulation before submitting")
	cmd.Flags().StringVar(&keySource, "key-source", "auto", "Signing key source (auto|env|file|keystore)")
	cmd.Flags().StringVar(&maxFeeGwei, "max-fee-gwei", "", "Override max fee per gas")
	cmd.Flags().StringVar(&maxPriorityFeeGwei, "max-priority-fee-gwei", "", "Override max priority fee per gas")
	return cmd
}

func (s *runtimeState) newAllocationsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "allocations",
		Short: "Show current balances and drift against targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := s.loadPlanRequest()
			if err != nil {
				return err
			}

			engine, chainReader := s.newPlanEngine()
			defer chainReader.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), s.settings.Timeout)
			defer cancel()

			start := time.Now()
			allocations, totalUSD, warnings, err := engine.Allocations(ctx, req)
			statuses := []model.ProviderStatus{{Name: "onchain", Status: statusFromErr(err), LatencyMS: time.Since(start).Milliseconds()}}
			partial := len(warnings) > 0
			s.lastWarnings = warnings
			s.lastPartial = partial
			if err != nil {
				return err
			}
			if partial && s.settings.Strict {
				return clierr.New(clierr.CodePartialStrict, "partial results returned in strict mode")
			}
			data := map[string]any{
				"total_portfolio_value_usd": totalUSD,
				"worst_drift":               rebalance.WorstDrift(allocations),
				"allocations":               allocations,
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), data, warnings, cacheMetaBypass(), statuses, partial)
		},
	}
	return cmd
}

func (s *runtimeState) newWatchCommand() *cobra.Command {
	var every string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-plan on a fixed interval until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			interval, err := time.ParseDuration(every)
			if err != nil || interval <= 0 {
				return clierr.New(clierr.CodeUsage, fmt.Sprintf("invalid --every interval: %s", every))
			}

			req, err := s.loadPlanRequest()
			if err != nil {
				return err
			}

			engine, chainReader := s.newPlanEngine()
			defer chainReader.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			runOnce := func() {
				planCtx, cancel := context.WithTimeout(ctx, s.settings.Timeout)
				defer cancel()
				result, warnings, err := engine.Plan(planCtx, req)
				if err != nil {
					s.log.Error().Err(err).Msg("scheduled plan failed")
					s.renderError("watch", err, warnings, len(warnings) > 0)
					return
				}
				_ = s.emitSuccess("watch", result, warnings, cacheMetaBypass(), nil, len(warnings) > 0)
			}

			scheduler := cron.New()
			if _, err := scheduler.AddFunc(fmt.Sprintf("@every %s", interval), runOnce); err != nil {
				return clierr.Wrap(clierr.CodeUsage, "schedule watch interval", err)
			}

			s.log.Info().Dur("every", interval).Msg("watching portfolio")
			runOnce()
			scheduler.Start()
			<-ctx.Done()
			stopCtx := scheduler.Stop()
			<-stopCtx.Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&every, "every", "5m", "Replanning interval (Go duration)")
	return cmd
}
