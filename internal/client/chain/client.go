package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nftmarket/internal/cache"
	"nftmarket/internal/fetcher"
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=chain_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chain API error (%d): %s", e.Status, e.Body)
}

// Client talks to the chain's public REST gateway. Every call goes through the
// retrier; holdings and contract queries also go through the cache store.
type Client struct {
	baseURL    string
	httpClient HTTPClient
	retrier    *fetcher.Retrier
	gate       *fetcher.Gate
	store      cache.Store
	cacheTTL   time.Duration
}

type Option func(*Client)

func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

func WithRetrier(r *fetcher.Retrier) Option {
	return func(c *Client) { c.retrier = r }
}

func WithGate(g *fetcher.Gate) Option {
	return func(c *Client) { c.gate = g }
}

func WithCache(store cache.Store, ttl time.Duration) Option {
	return func(c *Client) {
		c.store = store
		c.cacheTTL = ttl
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = "https://api.elrond.com"
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DoGetGeneric GETs path relative to the gateway and returns the raw JSON body.
func (c *Client) DoGetGeneric(ctx context.Context, path string) (json.RawMessage, error) {
	return fetcher.Fetch(ctx, c.retrier, "GET "+trimQuery(path), func(ctx context.Context) (json.RawMessage, error) {
		return c.do(ctx, http.MethodGet, path, nil)
	})
}

// DoPostGeneric POSTs body as JSON. Retries repeat the POST itself.
func (c *Client) DoPostGeneric(ctx context.Context, path string, body any) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s body: %w", path, err)
	}
	return fetcher.Fetch(ctx, c.retrier, "POST "+trimQuery(path), func(ctx context.Context) (json.RawMessage, error) {
		return c.do(ctx, http.MethodPost, path, payload)
	})
}

func (c *Client) cachedGet(ctx context.Context, path string) (json.RawMessage, error) {
	key := "chain:GET:" + c.baseURL + "/" + strings.TrimLeft(path, "/")
	return cache.GetOrLoad(ctx, c.store, key, c.cacheTTL, func(ctx context.Context) ([]byte, error) {
		return c.DoGetGeneric(ctx, path)
	})
}

func (c *Client) cachedPost(ctx context.Context, path string, body any) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s body: %w", path, err)
	}
	key := "chain:POST:" + c.baseURL + "/" + strings.TrimLeft(path, "/") + ":" + string(payload)
	return cache.GetOrLoad(ctx, c.store, key, c.cacheTTL, func(ctx context.Context) ([]byte, error) {
		return c.DoPostGeneric(ctx, path, json.RawMessage(payload))
	})
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) (json.RawMessage, error) {
	if err := c.gate.Wait(ctx); err != nil {
		return nil, err
	}
	fullURL := c.baseURL + "/" + strings.TrimLeft(path, "/")
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(raw)}
	}
	return json.RawMessage(raw), nil
}

func trimQuery(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}
