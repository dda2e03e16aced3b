package rebalance

import (
	"fmt"
	"math"
	"strings"

	clierr "github.com/sixthCow/rebalance-cli/internal/errors"
)

// percentTolerance absorbs float representation noise when checking
// that targets sum to 100.
const percentTolerance = 0.01

// Validate checks the request before any network access: target
// percentages must sum to 100, every referenced chain needs a config,
// and no (token, chain) pair may appear twice.
func Validate(req PlanRequest) error {
	if len(req.Targets) == 0 {
		return clierr.New(clierr.CodeConfig, "portfolio has no target allocations")
	}
	if strings.TrimSpace(req.Owner) == "" {
		return clierr.New(clierr.CodeConfig, "portfolio owner address is required")
	}
	if _, err := ParseStrategy(string(req.Strategy)); err != nil {
		return err
	}

	sum := 0.0
	seen := make(map[string]bool, len(req.Targets))
	for _, target := range req.Targets {
		if target.TokenSymbol == "" {
			return clierr.New(clierr.CodeConfig, "allocation entry missing token symbol")
		}
		if target.Chain == "" {
			return clierr.New(clierr.CodeConfig, fmt.Sprintf("allocation %s missing chain", target.TokenSymbol))
		}
		if target.TargetPercent < 0 {
			return clierr.New(clierr.CodeConfig, fmt.Sprintf("allocation %s on %s has negative target", target.TokenSymbol, target.Chain))
		}
		key := strings.ToUpper(target.TokenSymbol) + "|" + strings.ToLower(target.Chain)
		if seen[key] {
			return clierr.New(clierr.CodeConfig, fmt.Sprintf("duplicate allocation for %s on %s", target.TokenSymbol, target.Chain))
		}
		seen[key] = true
		sum += target.TargetPercent
	}
	if math.Abs(sum-100) > percentTolerance {
		return clierr.New(clierr.CodeConfig, fmt.Sprintf("target percentages sum to %.4f, expected 100", sum))
	}

	index, err := ChainIndex(req.Chains)
	if err != nil {
		return err
	}
	for _, target := range req.Targets {
		if _, ok := index[strings.ToLower(target.Chain)]; !ok {
			return clierr.New(clierr.CodeConfig, fmt.Sprintf("no chain config for %s (needed by %s)", target.Chain, target.TokenSymbol))
		}
	}

	return nil
}

// ChainIndex maps lowercase chain names to their configs.
func ChainIndex(configs []ChainConfig) (map[string]ChainConfig, error) {
	index := make(map[string]ChainConfig, len(configs))
	for _, cfg := range configs {
		name := strings.ToLower(strings.TrimSpace(cfg.Name))
		if name == "" {
			return nil, clierr.New(clierr.CodeConfig, "chain config missing name")
		}
		if _, dup := index[name]; dup {
			return nil, clierr.New(clierr.CodeConfig, fmt.Sprintf("duplicate chain config for %s", cfg.Name))
		}
		index[name] = cfg
	}
	return index, nil
}
