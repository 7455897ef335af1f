package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"nftmarket/internal/client/market"
)

var skippedApolloPrefixes = []string{"Cached", "SaleField", "Listing", "NFTField"}

func (n *Normalizer) pagePrice(ctx context.Context, identifier string) (decimal.Decimal, error) {
	data, err := n.Pages.NextData(ctx, identifier)
	if errors.Is(err, market.ErrNoNextData) {
		return decimal.Zero, fmt.Errorf("%w: %w", ErrUnexpectedShape, err)
	}
	if err != nil {
		return decimal.Zero, err
	}
	return AuctionPrice(data)
}

// AuctionPrice picks the single auction record out of a page's apollo state.
func AuctionPrice(nextData []byte) (decimal.Decimal, error) {
	state := gjson.GetBytes(nextData, "props.pageProps.apolloState")
	if !state.IsObject() {
		return decimal.Zero, fmt.Errorf("%w: no apollo state", ErrUnexpectedShape)
	}
	var keys []string
	state.ForEach(func(key, _ gjson.Result) bool {
		if isAuctionKey(key.String()) {
			keys = append(keys, key.String())
		}
		return true
	})
	if len(keys) != 1 {
		return decimal.Zero, fmt.Errorf("%w: %d auction keys", ErrUnexpectedShape, len(keys))
	}
	price := state.Get(gjson.Escape(keys[0]) + ".price")
	if !price.Exists() {
		return decimal.Zero, fmt.Errorf("%w: auction %s has no price", ErrUnexpectedShape, keys[0])
	}
	s := price.String()
	if price.Type == gjson.Number {
		s = price.Raw
	}
	return parseRaw(s)
}

func isAuctionKey(key string) bool {
	if key == "ROOT_QUERY" {
		return false
	}
	for _, p := range skippedApolloPrefixes {
		if strings.HasPrefix(key, p) {
			return false
		}
	}
	return true
}
