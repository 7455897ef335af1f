package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"nftmarket/internal/client/chain"
	"nftmarket/internal/client/market"
	"nftmarket/internal/models"
)

var (
	// ErrNotListed means the marketplace does not currently sell the item.
	ErrNotListed = errors.New("pricing: not listed")
	// ErrUnexpectedShape means an upstream payload lacked what pricing needs.
	ErrUnexpectedShape = errors.New("pricing: unexpected upstream shape")
)

// Prices are 18-decimal fixed point on chain.
const priceDecimals = 18

type PageSource interface {
	NextData(ctx context.Context, identifier string) ([]byte, error)
}

type ActivitySource interface {
	LatestActivity(ctx context.Context, identifier string) (*market.Activity, error)
}

type HistorySource interface {
	LastTransactionHash(ctx context.Context, identifier string) (string, error)
}

type TransactionSource interface {
	Transaction(ctx context.Context, hash string) (*chain.Transaction, error)
}

// Normalizer prices an item on a marketplace in native-token units.
type Normalizer struct {
	Pages    PageSource
	Activity ActivitySource
	History  HistorySource
	// NativeHistory serves the native marketplace. Nil falls back to History.
	NativeHistory HistorySource
	Transactions  TransactionSource
}

func (n *Normalizer) Price(ctx context.Context, m models.Marketplace, identifier string) (decimal.Decimal, error) {
	var (
		raw decimal.Decimal
		err error
	)
	switch m {
	case models.Deadrare:
		raw, err = n.pagePrice(ctx, identifier)
	case models.Frameit:
		raw, err = n.activityPrice(ctx, identifier)
	case models.Xoxno:
		raw, err = n.transactionPrice(ctx, n.History, identifier)
	case models.ElrondMarket:
		history := n.NativeHistory
		if history == nil {
			history = n.History
		}
		raw, err = n.transactionPrice(ctx, history, identifier)
	default:
		panic(fmt.Sprintf("pricing: unhandled marketplace %s", m))
	}
	if err != nil {
		return decimal.Zero, err
	}
	return raw.Shift(-priceDecimals), nil
}

func (n *Normalizer) activityPrice(ctx context.Context, identifier string) (decimal.Decimal, error) {
	act, err := n.Activity.LatestActivity(ctx, identifier)
	if err != nil {
		return decimal.Zero, err
	}
	if act == nil {
		return decimal.Zero, fmt.Errorf("%w: empty activity feed", ErrUnexpectedShape)
	}
	if act.Action != "Listing" {
		return decimal.Zero, fmt.Errorf("%w: latest action %q", ErrNotListed, act.Action)
	}
	return parseRaw(act.PaymentAmount.Amount.String())
}

func (n *Normalizer) transactionPrice(ctx context.Context, history HistorySource, identifier string) (decimal.Decimal, error) {
	hash, err := history.LastTransactionHash(ctx, identifier)
	if err != nil {
		return decimal.Zero, err
	}
	if hash == "" {
		return decimal.Zero, fmt.Errorf("%w: no transaction in asset history", ErrUnexpectedShape)
	}
	tx, err := n.Transactions.Transaction(ctx, hash)
	if err != nil {
		return decimal.Zero, err
	}
	v, err := DecodeListingPrice(tx.Function, tx.Data)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt(v, 0), nil
}

func parseRaw(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: missing price", ErrUnexpectedShape)
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: price %q: %v", ErrUnexpectedShape, s, err)
	}
	if !v.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: price %q", ErrUnexpectedShape, s)
	}
	return v, nil
}
