package rate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"nftmarket/internal/fetcher"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Cache holds the native-token to USD rate. A failed refresh keeps the
// previous value, which is zero until the first success.
type Cache struct {
	Endpoint   string
	CoinID     string
	HTTPClient HTTPClient
	Retrier    *fetcher.Retrier
	Logger     *zap.Logger

	mu        sync.RWMutex
	rate      decimal.Decimal
	updatedAt time.Time
}

func (c *Cache) Refresh(ctx context.Context) error {
	v, err := fetcher.Fetch(ctx, c.Retrier, "exchange rate", c.fetch)
	if err != nil {
		return err
	}
	if !v.IsPositive() {
		return fmt.Errorf("exchange rate: non-positive value %s", v)
	}
	c.mu.Lock()
	c.rate = v
	c.updatedAt = time.Now().UTC()
	c.mu.Unlock()
	if c.Logger != nil {
		c.Logger.Debug("exchange rate refreshed", zap.String("usd", v.String()))
	}
	return nil
}

func (c *Cache) Rate() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rate
}

func (c *Cache) UpdatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updatedAt
}

// Set overrides the cached rate.
func (c *Cache) Set(v decimal.Decimal) {
	c.mu.Lock()
	c.rate = v
	c.updatedAt = time.Now().UTC()
	c.mu.Unlock()
}

// USD converts a native price; nil while no rate is known.
func (c *Cache) USD(price decimal.Decimal) *float64 {
	return ConvertUSD(c.Rate(), price)
}

func ConvertUSD(rate, price decimal.Decimal) *float64 {
	if rate.IsZero() {
		return nil
	}
	v := rate.Mul(price).Round(2).InexactFloat64()
	return &v
}

func (c *Cache) fetch(ctx context.Context) (decimal.Decimal, error) {
	endpoint := strings.TrimRight(c.Endpoint, "/")
	if endpoint == "" {
		endpoint = "https://api.coingecko.com"
	}
	coin := c.CoinID
	if coin == "" {
		coin = "elrond-erd-2"
	}
	q := url.Values{}
	q.Set("ids", coin)
	q.Set("vs_currencies", "usd")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"/api/v3/simple/price?"+q.Encode(), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("price index status %d: %.200s", resp.StatusCode, string(body))
	}
	usd := gjson.GetBytes(body, gjson.Escape(coin)+".usd")
	if !usd.Exists() {
		return decimal.Zero, fmt.Errorf("price index: no usd quote for %s", coin)
	}
	return decimal.NewFromString(usd.Raw)
}
