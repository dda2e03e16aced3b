package pricing

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	clierr "github.com/sixthCow/rebalance-cli/internal/errors"
	"github.com/sixthCow/rebalance-cli/internal/httpx"
)

// coinIDs maps common symbols to CoinGecko coin ids. Symbols missing
// from the table fall through to the lowercased symbol, which works
// for a surprising number of coins.
var coinIDs = map[string]string{
	"ETH":   "ethereum",
	"WETH":  "weth",
	"BTC":   "bitcoin",
	"WBTC":  "wrapped-bitcoin",
	"USDC":  "usd-coin",
	"USDT":  "tether",
	"DAI":   "dai",
	"MATIC": "matic-network",
	"POL":   "polygon-ecosystem-token",
	"ARB":   "arbitrum",
	"OP":    "optimism",
	"AVAX":  "avalanche-2",
	"BNB":   "binancecoin",
	"LINK":  "chainlink",
	"UNI":   "uniswap",
	"AAVE":  "aave",
}

// HTTPOracle fetches spot prices from a CoinGecko-compatible
// /simple/price endpoint.
type HTTPOracle struct {
	client  *httpx.Client
	baseURL string
	apiKey  string
}

func NewHTTPOracle(client *httpx.Client, baseURL, apiKey string) *HTTPOracle {
	return &HTTPOracle{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

func (o *HTTPOracle) Name() string { return "coingecko" }

func (o *HTTPOracle) USDPrice(ctx context.Context, symbol string) (float64, error) {
	coinID := coinIDs[strings.ToUpper(symbol)]
	if coinID == "" {
		coinID = strings.ToLower(symbol)
	}

	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", o.baseURL, url.QueryEscape(coinID))
	headers := map[string]string{}
	if o.apiKey != "" {
		headers["x-cg-demo-api-key"] = o.apiKey
	}

	var payload map[string]struct {
		USD float64 `json:"usd"`
	}
	if _, err := httpx.GetJSON(ctx, o.client, endpoint, headers, &payload); err != nil {
		return 0, err
	}

	entry, ok := payload[coinID]
	if !ok {
		return 0, clierr.New(clierr.CodeUnsupported, fmt.Sprintf("price provider has no quote for %s", symbol))
	}
	if entry.USD <= 0 {
		return 0, clierr.New(clierr.CodeUnavailable, fmt.Sprintf("price provider returned non-positive price for %s", symbol))
	}
	return entry.USD, nil
}
