package rebalance

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	clierr "github.com/sixthCow/rebalance-cli/internal/errors"
	"github.com/sixthCow/rebalance-cli/internal/pricing"
)

// ChainReader abstracts per-chain balance and gas reads so the engine
// can run against a fake in tests.
type ChainReader interface {
	NativeBalance(ctx context.Context, cfg ChainConfig, owner string) (*big.Int, error)
	TokenBalance(ctx context.Context, cfg ChainConfig, token, owner string) (*big.Int, int, error)
	GasPriceGwei(ctx context.Context, cfg ChainConfig) (float64, error)
}

const nativeDecimals = 18

// perReadTimeout bounds each individual balance read so one stuck RPC
// cannot stall the whole scan.
const perReadTimeout = 15 * time.Second

// BalanceReader resolves every target allocation to its current
// on-chain balance and USD value. Reads run concurrently, one
// goroutine per entry. A failed read degrades that entry to zero and
// records the cause; only configuration errors abort the scan.
type BalanceReader struct {
	chain  ChainReader
	oracle pricing.Oracle
	log    zerolog.Logger
}

func NewBalanceReader(chain ChainReader, oracle pricing.Oracle, log zerolog.Logger) *BalanceReader {
	return &BalanceReader{
		chain:  chain,
		oracle: oracle,
		log:    log.With().Str("component", "reader").Logger(),
	}
}

func (r *BalanceReader) Read(ctx context.Context, req PlanRequest) ([]CurrentAllocation, []string, error) {
	index, err := ChainIndex(req.Chains)
	if err != nil {
		return nil, nil, err
	}

	allocations := make([]CurrentAllocation, len(req.Targets))
	warnings := make([]string, 0)

	var mu sync.Mutex
	var fatal error
	var wg sync.WaitGroup

	for i, target := range req.Targets {
		cfg, ok := index[strings.ToLower(target.Chain)]
		if !ok {
			return nil, nil, clierr.New(clierr.CodeConfig, fmt.Sprintf("no chain config for %s", target.Chain))
		}

		wg.Add(1)
		go func(i int, target TargetAllocation, cfg ChainConfig) {
			defer wg.Done()

			readCtx, cancel := context.WithTimeout(ctx, perReadTimeout)
			defer cancel()

			entry, readErr := r.readOne(readCtx, cfg, target, req.Owner)

			mu.Lock()
			defer mu.Unlock()
			allocations[i] = entry
			if readErr == nil {
				return
			}
			if cliErr, ok := clierr.As(readErr); ok && cliErr.Code == clierr.CodeConfig {
				if fatal == nil {
					fatal = readErr
				}
				return
			}
			r.log.Warn().Err(readErr).
				Str("token", target.TokenSymbol).
				Str("chain", target.Chain).
				Msg("balance read failed, treating as zero")
			warnings = append(warnings, fmt.Sprintf("%s on %s: %v", target.TokenSymbol, target.Chain, readErr))
		}(i, target, cfg)
	}

	wg.Wait()
	if fatal != nil {
		return nil, nil, fatal
	}
	return allocations, warnings, nil
}

// readOne returns a zero-valued entry alongside the error when the
// read fails, so degraded entries still carry their target data.
func (r *BalanceReader) readOne(ctx context.Context, cfg ChainConfig, target TargetAllocation, owner string) (CurrentAllocation, error) {
	entry := CurrentAllocation{
		TokenSymbol:   target.TokenSymbol,
		TokenAddress:  target.TokenAddress,
		Chain:         target.Chain,
		TargetPercent: target.TargetPercent,
		BalanceRaw:    "0",
		Decimals:      nativeDecimals,
	}

	var raw *big.Int
	var decimals int
	var err error
	if target.IsNative() {
		raw, err = r.chain.NativeBalance(ctx, cfg, owner)
		decimals = nativeDecimals
	} else {
		raw, decimals, err = r.chain.TokenBalance(ctx, cfg, target.TokenAddress, owner)
	}
	if err != nil {
		entry.ReadError = err.Error()
		return entry, err
	}

	entry.BalanceRaw = raw.String()
	entry.Decimals = decimals
	entry.Balance = toUnits(raw, decimals)

	price, err := r.oracle.USDPrice(ctx, target.TokenSymbol)
	if err != nil {
		entry.Balance = 0
		entry.BalanceRaw = "0"
		entry.ReadError = err.Error()
		return entry, err
	}
	entry.USDValue = entry.Balance * price

	return entry, nil
}

func toUnits(raw *big.Int, decimals int) float64 {
	if raw == nil || raw.Sign() == 0 {
		return 0
	}
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	value := new(big.Float).Quo(new(big.Float).SetInt(raw), scale)
	out, _ := value.Float64()
	return out
}
