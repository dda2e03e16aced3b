package pricing

import (
	"context"
	"fmt"
	"strings"

	clierr "github.com/sixthCow/rebalance-cli/internal/errors"
)

// Oracle resolves a token symbol to its USD unit price.
type Oracle interface {
	Name() string
	USDPrice(ctx context.Context, symbol string) (float64, error)
}

// Static is a fixed symbol -> price table, used in tests and as an
// offline fallback. Keys are matched case-insensitively.
type Static map[string]float64

func (s Static) Name() string { return "static" }

func (s Static) USDPrice(_ context.Context, symbol string) (float64, error) {
	if price, ok := s[strings.ToUpper(symbol)]; ok {
		return price, nil
	}
	if price, ok := s[strings.ToLower(symbol)]; ok {
		return price, nil
	}
	return 0, clierr.New(clierr.CodeUnsupported, fmt.Sprintf("no static price for %s", symbol))
}
