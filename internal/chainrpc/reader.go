package chainrpc

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	clierr "github.com/sixthCow/rebalance-cli/internal/errors"
	"github.com/sixthCow/rebalance-cli/internal/rebalance"
	"github.com/sixthCow/rebalance-cli/internal/registry"
)

var erc20ABI = mustParseABI(registry.ERC20MinimalABI)

func mustParseABI(fragment string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(fragment))
	if err != nil {
		panic(fmt.Sprintf("parse ABI fragment: %v", err))
	}
	return parsed
}

// Reader reads balances and gas prices over JSON-RPC. Dialed clients
// are reused per RPC URL for the lifetime of the process.
type Reader struct {
	mu      sync.Mutex
	clients map[string]*ethclient.Client
	log     zerolog.Logger
}

func NewReader(log zerolog.Logger) *Reader {
	return &Reader{
		clients: make(map[string]*ethclient.Client),
		log:     log.With().Str("component", "chainrpc").Logger(),
	}
}

func (r *Reader) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, client := range r.clients {
		client.Close()
	}
	r.clients = make(map[string]*ethclient.Client)
}

// dial connects to the chain's RPC endpoint and verifies the reported
// chain id. A mismatch means the portfolio file points at the wrong
// network and is a configuration error, not a degradable read failure.
func (r *Reader) dial(ctx context.Context, cfg rebalance.ChainConfig) (*ethclient.Client, error) {
	rpcURL := cfg.RPCURL
	if rpcURL == "" {
		known, err := registry.ChainByID(cfg.ChainID)
		if err != nil {
			return nil, clierr.New(clierr.CodeConfig, fmt.Sprintf("chain %s has no rpc_url and no known default", cfg.Name))
		}
		rpcURL = known.DefaultRPCURL
	}

	r.mu.Lock()
	client, ok := r.clients[rpcURL]
	r.mu.Unlock()
	if ok {
		return client, nil
	}

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, fmt.Sprintf("dial rpc for chain %s", cfg.Name), err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, clierr.Wrap(clierr.CodeUnavailable, fmt.Sprintf("query chain id for %s", cfg.Name), err)
	}
	if cfg.ChainID != 0 && chainID.Int64() != cfg.ChainID {
		client.Close()
		return nil, clierr.New(clierr.CodeConfig, fmt.Sprintf("chain %s: rpc reports chain id %d, config says %d", cfg.Name, chainID.Int64(), cfg.ChainID))
	}

	r.mu.Lock()
	if existing, ok := r.clients[rpcURL]; ok {
		r.mu.Unlock()
		client.Close()
		return existing, nil
	}
	r.clients[rpcURL] = client
	r.mu.Unlock()
	return client, nil
}

func (r *Reader) NativeBalance(ctx context.Context, cfg rebalance.ChainConfig, owner string) (*big.Int, error) {
	client, err := r.dial(ctx, cfg)
	if err != nil {
		return nil, err
	}
	balance, err := client.BalanceAt(ctx, common.HexToAddress(owner), nil)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, fmt.Sprintf("read native balance on %s", cfg.Name), err)
	}
	return balance, nil
}

func (r *Reader) TokenBalance(ctx context.Context, cfg rebalance.ChainConfig, token, owner string) (*big.Int, int, error) {
	client, err := r.dial(ctx, cfg)
	if err != nil {
		return nil, 0, err
	}

	tokenAddr := common.HexToAddress(token)

	balance, err := r.callUint256(ctx, client, tokenAddr, "balanceOf", common.HexToAddress(owner))
	if err != nil {
		return nil, 0, clierr.Wrap(clierr.CodeUnavailable, fmt.Sprintf("read %s balance on %s", token, cfg.Name), err)
	}

	decimalsData, err := erc20ABI.Pack("decimals")
	if err != nil {
		return nil, 0, clierr.Wrap(clierr.CodeInternal, "encode decimals call", err)
	}
	raw, err := client.CallContract(ctx, ethereum.CallMsg{To: &tokenAddr, Data: decimalsData}, nil)
	if err != nil {
		return nil, 0, clierr.Wrap(clierr.CodeUnavailable, fmt.Sprintf("read %s decimals on %s", token, cfg.Name), err)
	}
	values, err := erc20ABI.Unpack("decimals", raw)
	if err != nil || len(values) != 1 {
		return nil, 0, clierr.Wrap(clierr.CodeUnavailable, "decode decimals response", err)
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return nil, 0, clierr.New(clierr.CodeUnavailable, "unexpected decimals type")
	}

	return balance, int(decimals), nil
}

func (r *Reader) Allowance(ctx context.Context, cfg rebalance.ChainConfig, token, owner, spender string) (*big.Int, error) {
	client, err := r.dial(ctx, cfg)
	if err != nil {
		return nil, err
	}
	allowance, err := r.callUint256(ctx, client, common.HexToAddress(token), "allowance", common.HexToAddress(owner), common.HexToAddress(spender))
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, fmt.Sprintf("read allowance on %s", cfg.Name), err)
	}
	return allowance, nil
}

func (r *Reader) GasPriceGwei(ctx context.Context, cfg rebalance.ChainConfig) (float64, error) {
	client, err := r.dial(ctx, cfg)
	if err != nil {
		return 0, err
	}
	price, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return 0, clierr.Wrap(clierr.CodeUnavailable, fmt.Sprintf("read gas price on %s", cfg.Name), err)
	}
	gwei := new(big.Float).Quo(new(big.Float).SetInt(price), big.NewFloat(1e9))
	out, _ := gwei.Float64()
	return out, nil
}

func (r *Reader) callUint256(ctx context.Context, client *ethclient.Client, contract common.Address, method string, args ...any) (*big.Int, error) {
	data, err := erc20ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encode %s call: %w", method, err)
	}
	raw, err := client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	values, err := erc20ABI.Unpack(method, raw)
	if err != nil || len(values) != 1 {
		return nil, fmt.Errorf("decode %s response: %w", method, err)
	}
	out, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s return type", method)
	}
	return out, nil
}
