package pricing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sixthCow/rebalance-cli/internal/cache"
	clierr "github.com/sixthCow/rebalance-cli/internal/errors"
	"github.com/sixthCow/rebalance-cli/internal/httpx"
)

func TestStaticOracle(t *testing.T) {
	static := Static{"ETH": 3500, "usdc": 1}

	price, err := static.USDPrice(context.Background(), "eth")
	if err != nil || price != 3500 {
		t.Errorf("eth = %v, %v", price, err)
	}
	price, err = static.USDPrice(context.Background(), "USDC")
	if err != nil || price != 1 {
		t.Errorf("usdc = %v, %v", price, err)
	}
	if _, err := static.USDPrice(context.Background(), "DOGE"); err == nil {
		t.Error("unknown symbol should fail")
	}
}

func TestHTTPOracle(t *testing.T) {
	var gotPath, gotQuery, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("x-cg-demo-api-key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ethereum":{"usd":3421.55}}`))
	}))
	defer srv.Close()

	oracle := NewHTTPOracle(httpx.New(5*time.Second, 0), srv.URL, "demo-key")
	price, err := oracle.USDPrice(context.Background(), "ETH")
	if err != nil {
		t.Fatalf("USDPrice: %v", err)
	}
	if price != 3421.55 {
		t.Errorf("price = %v", price)
	}
	if gotPath != "/simple/price" {
		t.Errorf("path = %q", gotPath)
	}
	if gotQuery != "ids=ethereum&vs_currencies=usd" {
		t.Errorf("query = %q", gotQuery)
	}
	if gotKey != "demo-key" {
		t.Errorf("api key header = %q", gotKey)
	}
}

func TestHTTPOracleUnknownCoin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	oracle := NewHTTPOracle(httpx.New(5*time.Second, 0), srv.URL, "")
	_, err := oracle.USDPrice(context.Background(), "NOPE")
	if err == nil {
		t.Fatal("expected error")
	}
	if cErr, ok := clierr.As(err); !ok || cErr.Code != clierr.CodeUnsupported {
		t.Fatalf("want CodeUnsupported, got %v", err)
	}
}

func TestHTTPOracleRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	oracle := NewHTTPOracle(httpx.New(5*time.Second, 0), srv.URL, "")
	_, err := oracle.USDPrice(context.Background(), "ETH")
	if cErr, ok := clierr.As(err); !ok || cErr.Code != clierr.CodeRateLimited {
		t.Fatalf("want CodeRateLimited, got %v", err)
	}
}

func openTestCache(t *testing.T) *cache.Store {
	t.Helper()
	dir := t.TempDir()
	store, err := cache.Open(filepath.Join(dir, "cache.db"), filepath.Join(dir, "cache.lock"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

type countingOracle struct {
	inner Oracle
	calls atomic.Int64
	fail  atomic.Bool
}

func (c *countingOracle) Name() string { return c.inner.Name() }

func (c *countingOracle) USDPrice(ctx context.Context, symbol string) (float64, error) {
	c.calls.Add(1)
	if c.fail.Load() {
		return 0, clierr.New(clierr.CodeUnavailable, "provider down")
	}
	return c.inner.USDPrice(ctx, symbol)
}

func TestCachedOracleServesFreshHit(t *testing.T) {
	upstream := &countingOracle{inner: Static{"ETH": 3500}}
	cached := NewCachedOracle(upstream, openTestCache(t), 5*time.Minute, zerolog.Nop())

	for i := 0; i < 3; i++ {
		price, err := cached.USDPrice(context.Background(), "eth")
		if err != nil || price != 3500 {
			t.Fatalf("call %d: %v, %v", i, price, err)
		}
	}
	if n := upstream.calls.Load(); n != 1 {
		t.Errorf("upstream calls = %d, want 1 with warm cache", n)
	}
}

func TestCachedOracleStaleFallback(t *testing.T) {
	store := openTestCache(t)
	upstream := &countingOracle{inner: Static{"ETH": 3500}}
	cached := NewCachedOracle(upstream, store, 5*time.Minute, zerolog.Nop())

	// Seed an already-expired entry, then break the upstream.
	if err := store.Set("price:usd:ETH", []byte("3400"), time.Second); err != nil {
		t.Fatal(err)
	}
	time.Sleep(1100 * time.Millisecond)
	upstream.fail.Store(true)

	price, err := cached.USDPrice(context.Background(), "ETH")
	if err != nil {
		t.Fatalf("stale fallback failed: %v", err)
	}
	if price != 3400 {
		t.Errorf("price = %v, want stale cached value", price)
	}
}

func TestCachedOracleErrorsWithoutFallback(t *testing.T) {
	upstream := &countingOracle{inner: Static{"ETH": 3500}}
	upstream.fail.Store(true)
	cached := NewCachedOracle(upstream, openTestCache(t), 5*time.Minute, zerolog.Nop())

	_, err := cached.USDPrice(context.Background(), "ETH")
	if err == nil {
		t.Fatal("expected upstream error with empty cache")
	}
	if cErr, ok := clierr.As(err); !ok || cErr.Code != clierr.CodeUnavailable {
		t.Fatalf("want CodeUnavailable, got %v", err)
	}
}
