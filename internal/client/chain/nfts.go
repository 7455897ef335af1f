package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrUnexpectedPayload means the gateway answered with a body the client cannot read.
var ErrUnexpectedPayload = errors.New("chain: unexpected payload")

// ListedNonces returns one page of nonces of collection tokens held by a
// marketplace contract. An empty page ends the walk.
func (c *Client) ListedNonces(ctx context.Context, contract, collection string, from, size int) ([]int64, error) {
	if strings.TrimSpace(contract) == "" {
		return nil, fmt.Errorf("contract is required")
	}
	path := "accounts/" + contract + "/nfts?" + pageQuery(collection, from, size).Encode()
	raw, err := c.DoGetGeneric(ctx, path)
	if err != nil {
		return nil, err
	}
	return parseNonces(raw)
}

// AccountNFTs lists the collection tokens an account holds. Responses are cached.
func (c *Client) AccountNFTs(ctx context.Context, address, collection string, size int) ([]AccountNFT, error) {
	if strings.TrimSpace(address) == "" {
		return nil, fmt.Errorf("address is required")
	}
	q := pageQuery(collection, 0, size)
	q.Set("withScamInfo", "false")
	q.Set("computeScamInfo", "false")
	raw, err := c.cachedGet(ctx, "accounts/"+address+"/nfts?"+q.Encode())
	if err != nil {
		return nil, err
	}
	var items []AccountNFT
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode account nfts: %w", err)
	}
	return items, nil
}

func (c *Client) Transaction(ctx context.Context, hash string) (*Transaction, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil, fmt.Errorf("transaction hash is required")
	}
	raw, err := c.DoGetGeneric(ctx, "transactions/"+url.PathEscape(hash))
	if err != nil {
		return nil, err
	}
	var tx Transaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	return &tx, nil
}

// QueryContract runs a read-only contract function. Responses are cached.
func (c *Client) QueryContract(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	if req.Args == nil {
		req.Args = []string{}
	}
	raw, err := c.cachedPost(ctx, "query", req)
	if err != nil {
		return nil, err
	}
	// Some gateways wrap the result as {"data":{"data":{...}}}.
	if inner := gjson.GetBytes(raw, "data.data"); inner.IsObject() {
		raw = json.RawMessage(inner.Raw)
	}
	var out QueryResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode query response: %w", err)
	}
	return &out, nil
}

func pageQuery(collection string, from, size int) url.Values {
	q := url.Values{}
	q.Set("from", strconv.Itoa(from))
	q.Set("size", strconv.Itoa(size))
	if collection != "" {
		q.Set("collections", collection)
	}
	return q
}

func parseNonces(raw []byte) ([]int64, error) {
	res := gjson.ParseBytes(raw)
	if !res.IsArray() {
		return nil, fmt.Errorf("%w: nfts %.120s", ErrUnexpectedPayload, string(raw))
	}
	out := make([]int64, 0, len(res.Array()))
	for i, item := range res.Array() {
		nonce := item.Get("nonce")
		if nonce.Type != gjson.Number {
			return nil, fmt.Errorf("%w: nfts entry %d has no nonce: %.120s", ErrUnexpectedPayload, i, item.Raw)
		}
		out = append(out, nonce.Int())
	}
	return out, nil
}
