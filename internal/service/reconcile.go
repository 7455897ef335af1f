package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"nftmarket/internal/fetcher"
	"nftmarket/internal/models"
	"nftmarket/internal/repository"
)

type ListedSource interface {
	ListedNonces(ctx context.Context, contract, collection string, from, size int) ([]int64, error)
}

type Pricer interface {
	Price(ctx context.Context, m models.Marketplace, identifier string) (decimal.Decimal, error)
}

type USDConverter interface {
	USD(price decimal.Decimal) *float64
}

type ReconcileResult struct {
	Collection         string   `json:"collection"`
	Tick               int64    `json:"tick"`
	Pages              int      `json:"pages"`
	Seen               int      `json:"seen"`
	Priced             int      `json:"priced"`
	Skipped            int      `json:"skipped"`
	Swept              int64    `json:"swept"`
	SweepSkipped       bool     `json:"sweep_skipped"`
	FailedMarketplaces []string `json:"failed_marketplaces,omitempty"`
}

// Reconciler brings the stored market state of a collection in line with what
// the marketplaces currently list.
type Reconciler struct {
	Repo            repository.ListingRepository
	Listed          ListedSource
	Pricer          Pricer
	Rates           USDConverter
	Contracts       map[models.Marketplace]string
	PageSize        int
	PolitenessDelay time.Duration
	NativeToken     string
	Logger          *zap.Logger

	// Sleep defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// ReconcileCollection walks every marketplace in order for one collection and
// then clears listings that no marketplace reported during tick. The sweep is
// skipped when a marketplace could not be walked completely.
func (r *Reconciler) ReconcileCollection(ctx context.Context, collection string, tick int64) (ReconcileResult, error) {
	result := ReconcileResult{Collection: collection, Tick: tick}
	if r == nil || r.Repo == nil || r.Listed == nil || r.Pricer == nil {
		return result, fmt.Errorf("reconciler is not configured")
	}
	logger := r.logger().With(zap.String("collection", collection), zap.Int64("tick", tick))

	for _, m := range models.Marketplaces() {
		err := r.walkMarketplace(ctx, m, collection, tick, &result)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		logger.Warn("marketplace pass failed", zap.String("marketplace", m.String()), zap.Error(err))
		result.FailedMarketplaces = append(result.FailedMarketplaces, m.String())
	}

	if len(result.FailedMarketplaces) > 0 {
		result.SweepSkipped = true
		logger.Warn("delisting sweep skipped", zap.Strings("failed_marketplaces", result.FailedMarketplaces))
		return result, nil
	}

	swept, err := r.Repo.ClearStaleListings(ctx, collection, tick)
	if err != nil {
		return result, fmt.Errorf("clear stale listings: %w", err)
	}
	result.Swept = swept
	return result, nil
}

func (r *Reconciler) walkMarketplace(ctx context.Context, m models.Marketplace, collection string, tick int64, result *ReconcileResult) error {
	contract := r.Contracts[m]
	if contract == "" {
		return fmt.Errorf("no contract configured for %s", m)
	}
	size := r.PageSize
	if size <= 0 {
		size = 100
	}
	logger := r.logger().With(
		zap.String("collection", collection),
		zap.String("marketplace", m.String()),
		zap.Int64("tick", tick),
	)

	for from := 0; ; from += size {
		ids, err := r.Listed.ListedNonces(ctx, contract, collection, from, size)
		if err != nil {
			return fmt.Errorf("list page from %d: %w", from, err)
		}
		if len(ids) == 0 {
			return nil
		}
		result.Pages++
		result.Seen += len(ids)

		if _, err := r.Repo.TouchListings(ctx, collection, ids, tick); err != nil {
			return fmt.Errorf("touch page from %d: %w", from, err)
		}
		candidates, err := r.Repo.FindPricingCandidates(ctx, collection, ids, tick, m.String())
		if err != nil {
			return fmt.Errorf("find candidates page from %d: %w", from, err)
		}

		updates := make([]repository.MarketUpdate, 0, len(candidates))
		for _, listing := range candidates {
			outcome := r.price(ctx, m, listing, tick)
			switch {
			case outcome.Kind == OutcomeAborted:
				return outcome.Err
			case outcome.Skipped():
				result.Skipped++
				level := logger.Warn
				if outcome.Kind == OutcomeNotListed {
					level = logger.Debug
				}
				level("listing not priced",
					zap.String("identifier", listing.Identifier),
					zap.String("outcome", string(outcome.Kind)),
					zap.Error(outcome.Err),
				)
				continue
			}
			updates = append(updates, repository.MarketUpdate{ID: listing.ID, Market: outcome.Market})
			result.Priced++
			if err := r.sleep(ctx, r.PolitenessDelay); err != nil {
				return err
			}
		}

		if err := r.Repo.BulkSetMarket(ctx, collection, updates); err != nil {
			return fmt.Errorf("write page from %d: %w", from, err)
		}
		logger.Debug("page reconciled",
			zap.Int("page_from", from),
			zap.Int("ids", len(ids)),
			zap.Int("candidates", len(candidates)),
			zap.Int("priced", len(updates)),
		)
	}
}

func (r *Reconciler) price(ctx context.Context, m models.Marketplace, listing models.Listing, tick int64) PricingOutcome {
	price, err := r.Pricer.Price(ctx, m, listing.Identifier)
	if kind := classifyPricingError(ctx, err); kind != OutcomePriced {
		if kind == OutcomeAborted && ctx.Err() != nil {
			err = ctx.Err()
		}
		return PricingOutcome{Kind: kind, Err: err}
	}
	token := r.NativeToken
	if token == "" {
		token = "EGLD"
	}
	info := models.MarketInfo{
		Source:     m.String(),
		Identifier: listing.Identifier,
		Type:       models.MarketTypeBuy,
		Token:      token,
		Price:      price.InexactFloat64(),
		Timestamp:  tick,
	}
	if r.Rates != nil {
		info.CurrentUSD = r.Rates.USD(price)
	}
	return PricingOutcome{Kind: OutcomePriced, Market: info}
}

func (r *Reconciler) sleep(ctx context.Context, d time.Duration) error {
	if r.Sleep != nil {
		return r.Sleep(ctx, d)
	}
	return fetcher.Sleep(ctx, d)
}

func (r *Reconciler) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}
