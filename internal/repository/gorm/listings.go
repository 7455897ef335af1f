package gormrepository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"nftmarket/internal/models"
	"nftmarket/internal/repository"
)

func (s *Store) ListListings(ctx context.Context, params repository.ListListingsParams) ([]models.Listing, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyListingFilter(s.db.WithContext(ctx).Model(&models.Listing{}), params.Filter)
	query = query.Order(orderExpr(params.OrderBy, params.Asc))
	if params.OrderBy != repository.SortID {
		query = query.Order("id asc")
	}
	limit := normalizeLimit(params.Limit, 20)
	offset := normalizeOffset(params.Offset)
	var items []models.Listing
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountListings(ctx context.Context, filter repository.ListingFilter) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := applyListingFilter(s.db.WithContext(ctx).Model(&models.Listing{}), filter).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) GetListing(ctx context.Context, collection string, id int64) (*models.Listing, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Listing
	err := s.db.WithContext(ctx).Where("collection_name = ? AND id = ?", collection, id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) FindPricingCandidates(ctx context.Context, collection string, ids []int64, tick int64, source string) ([]models.Listing, error) {
	if s == nil || s.db == nil || len(ids) == 0 {
		return nil, nil
	}
	var items []models.Listing
	if err := candidatesQuery(s.db.WithContext(ctx), collection, ids, tick, source).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// candidatesQuery selects unlisted rows and rows priced earlier in tick by
// another marketplace.
func candidatesQuery(db *gorm.DB, collection string, ids []int64, tick int64, source string) *gorm.DB {
	return db.Model(&models.Listing{}).
		Where("collection_name = ? AND id IN ?", collection, uniqueIDs(ids)).
		Where("market IS NULL OR ((market->>'timestamp')::bigint = ? AND market->>'source' <> ?)", tick, source).
		Order("id asc")
}

func (s *Store) TouchListings(ctx context.Context, collection string, ids []int64, tick int64) (int64, error) {
	if s == nil || s.db == nil || len(ids) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("collection_name = ? AND id IN ?", collection, uniqueIDs(ids)).
		UpdateColumn("timestamp", tick)
	return res.RowsAffected, res.Error
}

func (s *Store) BulkSetMarket(ctx context.Context, collection string, updates []repository.MarketUpdate) error {
	if s == nil || s.db == nil || len(updates) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			raw, err := models.EncodeMarket(u.Market)
			if err != nil {
				return fmt.Errorf("encode market for %s/%d: %w", collection, u.ID, err)
			}
			err = tx.Model(&models.Listing{}).
				Where("collection_name = ? AND id = ?", collection, u.ID).
				UpdateColumn("market", raw).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) ClearStaleListings(ctx context.Context, collection string, tick int64) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := clearStale(s.db.WithContext(ctx), collection, tick)
	return res.RowsAffected, res.Error
}

// clearStale unsets rows stamped by an earlier tick. Rows never stamped keep
// their market.
func clearStale(db *gorm.DB, collection string, tick int64) *gorm.DB {
	return db.Model(&models.Listing{}).
		Where("collection_name = ? AND timestamp IS NOT NULL AND timestamp <> ?", collection, tick).
		UpdateColumns(map[string]any{
			"market":    gorm.Expr("NULL"),
			"timestamp": gorm.Expr("NULL"),
		})
}

func (s *Store) MarkClaimed(ctx context.Context, collection string, ids []int64) (int64, error) {
	if s == nil || s.db == nil || len(ids) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("collection_name = ? AND id IN ? AND is_claimed = ?", collection, uniqueIDs(ids), false).
		UpdateColumn("is_claimed", true)
	return res.RowsAffected, res.Error
}

func (s *Store) IncrementViewed(ctx context.Context, collection string, id int64) (*models.Listing, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Listing
	res := s.db.WithContext(ctx).
		Model(&item).
		Clauses(clause.Returning{}).
		Where("collection_name = ? AND id = ?", collection, id).
		UpdateColumn("viewed", gorm.Expr("viewed + ?", 1))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &item, nil
}

func (s *Store) LockListing(ctx context.Context, collection string, id int64, now time.Time) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("collection_name = ? AND id = ? AND locked_on IS NULL", collection, id).
		UpdateColumn("locked_on", now)
	return res.RowsAffected > 0, res.Error
}

func (s *Store) UnlockListing(ctx context.Context, collection string, id int64) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("collection_name = ? AND id = ? AND locked_on IS NOT NULL", collection, id).
		UpdateColumn("locked_on", gorm.Expr("NULL"))
	return res.RowsAffected > 0, res.Error
}

func applyListingFilter(query *gorm.DB, f repository.ListingFilter) *gorm.DB {
	if c := strings.TrimSpace(f.Collection); c != "" {
		query = query.Where("collection_name = ?", c)
	}
	if len(f.IDs) > 0 {
		query = query.Where("id IN ?", uniqueIDs(f.IDs))
	}
	if identifiers := cleanStrings(f.Identifiers); len(identifiers) > 0 {
		query = query.Where("identifier IN ?", identifiers)
	}
	if p := strings.TrimSpace(f.IDPrefix); p != "" {
		query = query.Where("CAST(id AS TEXT) LIKE ?", prefixPattern(p))
	}
	if p := strings.TrimSpace(f.IDNamePrefix); p != "" {
		query = query.Where("id_name LIKE ?", prefixPattern(p))
	}
	if f.IDFrom != nil {
		query = query.Where("id >= ?", *f.IDFrom)
	}
	if f.IDTo != nil {
		query = query.Where("id <= ?", *f.IDTo)
	}
	for path, value := range f.Traits {
		expr, ok := traitExpr(path)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		query = query.Where(expr+" = ?", strings.TrimSpace(value))
	}
	if stone := strings.TrimSpace(f.Stone); stone != "" {
		query = query.Where("stone = ?", stone)
	}
	if f.IsClaimed != nil {
		query = query.Where("is_claimed = ?", *f.IsClaimed)
	}
	if f.Listed != nil {
		if *f.Listed {
			query = query.Where("market IS NOT NULL AND market->>'price' IS NOT NULL")
		} else {
			query = query.Where("market IS NULL")
		}
	}
	if t := strings.TrimSpace(f.MarketType); t != "" {
		query = query.Where("market->>'type' = ?", t)
	}
	if token := strings.TrimSpace(f.ExcludeToken); token != "" {
		query = query.Where("market->>'token' IS DISTINCT FROM ?", token)
	}
	return query
}

// traitExpr renders a whitelisted dotted trait path as a jsonb text lookup.
func traitExpr(path string) (string, bool) {
	if !repository.IsTraitPath(path) {
		return "", false
	}
	return "traits #>> '{" + strings.ReplaceAll(path, ".", ",") + "}'", true
}

func orderExpr(orderBy string, asc *bool) string {
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	switch strings.TrimSpace(orderBy) {
	case repository.SortPrice:
		return "(market->>'currentUsd')::numeric " + direction + " NULLS LAST"
	case repository.SortLatest:
		return "(market->>'timestamp')::bigint " + direction + " NULLS LAST"
	case repository.SortRank:
		return "rank " + direction
	case repository.SortViewed:
		return "viewed " + direction
	case repository.SortFloor:
		return "(market->>'price')::numeric " + direction + " NULLS LAST"
	default:
		return "id " + direction
	}
}
