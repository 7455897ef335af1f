package market

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nftmarket/internal/fetcher"
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=market_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("marketplace API error (%d): %s", e.Status, e.Body)
}

// transport is the retried HTTP layer shared by the marketplace clients.
type transport struct {
	baseURL    string
	httpClient HTTPClient
	retrier    *fetcher.Retrier
	gate       *fetcher.Gate
	userAgent  string
}

type Option func(*transport)

func WithHTTPClient(httpClient HTTPClient) Option {
	return func(t *transport) { t.httpClient = httpClient }
}

func WithRetrier(r *fetcher.Retrier) Option {
	return func(t *transport) { t.retrier = r }
}

func WithGate(g *fetcher.Gate) Option {
	return func(t *transport) { t.gate = g }
}

func WithUserAgent(ua string) Option {
	return func(t *transport) { t.userAgent = ua }
}

func newTransport(baseURL string, opts []Option) transport {
	t := transport{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

func (t transport) get(ctx context.Context, name, path, accept string) ([]byte, error) {
	return fetcher.Fetch(ctx, t.retrier, name, func(ctx context.Context) ([]byte, error) {
		return t.do(ctx, http.MethodGet, path, accept, nil)
	})
}

func (t transport) post(ctx context.Context, name, path string, payload []byte) ([]byte, error) {
	return fetcher.Fetch(ctx, t.retrier, name, func(ctx context.Context) ([]byte, error) {
		return t.do(ctx, http.MethodPost, path, "application/json", payload)
	})
}

func (t transport) do(ctx context.Context, method, path, accept string, payload []byte) ([]byte, error) {
	if err := t.gate.Wait(ctx); err != nil {
		return nil, err
	}
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", accept)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: truncate(string(raw), 512)}
	}
	return raw, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
