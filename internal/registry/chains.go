package registry

import (
	"fmt"
	"sort"
	"strings"

	clierr "github.com/sixthCow/rebalance-cli/internal/errors"
)

// Chain is one EVM network the CLI knows out of the box. Portfolio
// files can reference these by name and omit the RPC URL, or define
// chains of their own.
type Chain struct {
	Name          string
	ChainID       int64
	NativeSymbol  string
	DefaultRPCURL string
	RouterAddress string
	BridgeAddress string
}

var chains = []Chain{
	{
		Name:          "ethereum",
		ChainID:       1,
		NativeSymbol:  "ETH",
		DefaultRPCURL: "https://eth.llamarpc.com",
		RouterAddress: "0xE592427A0AEce92De3Edee1F18E0157C05861564",
	},
	{
		Name:          "optimism",
		ChainID:       10,
		NativeSymbol:  "ETH",
		DefaultRPCURL: "https://mainnet.optimism.io",
		RouterAddress: "0xE592427A0AEce92De3Edee1F18E0157C05861564",
	},
	{
		Name:          "polygon",
		ChainID:       137,
		NativeSymbol:  "POL",
		DefaultRPCURL: "https://polygon-rpc.com",
		RouterAddress: "0xE592427A0AEce92De3Edee1F18E0157C05861564",
	},
	{
		Name:          "base",
		ChainID:       8453,
		NativeSymbol:  "ETH",
		DefaultRPCURL: "https://mainnet.base.org",
		RouterAddress: "0x2626664c2603336E57B271c5C0b26F421741e481",
	},
	{
		Name:          "arbitrum",
		ChainID:       42161,
		NativeSymbol:  "ETH",
		DefaultRPCURL: "https://arb1.arbitrum.io/rpc",
		RouterAddress: "0xE592427A0AEce92De3Edee1F18E0157C05861564",
	},
}

func Chains() []Chain {
	out := make([]Chain, len(chains))
	copy(out, chains)
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })
	return out
}

func ChainByName(name string) (Chain, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for _, c := range chains {
		if c.Name == needle {
			return c, nil
		}
	}
	return Chain{}, clierr.New(clierr.CodeUnsupported, fmt.Sprintf("unknown chain: %s", name))
}

func ChainByID(chainID int64) (Chain, error) {
	for _, c := range chains {
		if c.ChainID == chainID {
			return c, nil
		}
	}
	return Chain{}, clierr.New(clierr.CodeUnsupported, fmt.Sprintf("unknown chain id: %d", chainID))
}
