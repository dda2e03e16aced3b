package pricing

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sixthCow/rebalance-cli/internal/cache"
)

// PriceTTL bounds how long a spot price is considered fresh. Prices
// move fast; anything older participates only as a stale fallback.
const PriceTTL = 30 * time.Second

// CachedOracle wraps another oracle with the shared sqlite TTL cache.
// On upstream failure a stale cached price within maxStale is served
// instead of failing the read.
type CachedOracle struct {
	inner    Oracle
	store    *cache.Store
	maxStale time.Duration
	log      zerolog.Logger
}

func NewCachedOracle(inner Oracle, store *cache.Store, maxStale time.Duration, log zerolog.Logger) *CachedOracle {
	return &CachedOracle{
		inner:    inner,
		store:    store,
		maxStale: maxStale,
		log:      log.With().Str("component", "pricing").Logger(),
	}
}

func (c *CachedOracle) Name() string { return c.inner.Name() }

func (c *CachedOracle) USDPrice(ctx context.Context, symbol string) (float64, error) {
	key := "price:usd:" + strings.ToUpper(symbol)

	if c.store != nil {
		res, err := c.store.Get(key, c.maxStale)
		if err == nil && res.Hit && !res.Stale {
			if price, perr := strconv.ParseFloat(string(res.Value), 64); perr == nil {
				return price, nil
			}
		}
	}

	price, err := c.inner.USDPrice(ctx, symbol)
	if err == nil {
		if c.store != nil {
			if serr := c.store.Set(key, []byte(strconv.FormatFloat(price, 'g', -1, 64)), PriceTTL); serr != nil {
				c.log.Warn().Err(serr).Str("symbol", symbol).Msg("price cache write failed")
			}
		}
		return price, nil
	}

	if c.store != nil {
		res, gerr := c.store.Get(key, c.maxStale)
		if gerr == nil && res.Hit && !res.TooStale {
			if price, perr := strconv.ParseFloat(string(res.Value), 64); perr == nil {
				c.log.Warn().Err(err).Str("symbol", symbol).Dur("age", res.Age).Msg("price fetch failed, serving stale cache")
				return price, nil
			}
		}
	}

	return 0, err
}
