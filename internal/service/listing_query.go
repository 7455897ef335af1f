package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nftmarket/internal/client/chain"
	"nftmarket/internal/models"
	"nftmarket/internal/repository"
)

var (
	ErrNotFound          = errors.New("service: not found")
	ErrUnknownCollection = errors.New("service: unknown collection")
	ErrInvalidQuery      = errors.New("service: invalid query")
)

const (
	defaultPageSize   = 20
	maxPageSize       = 100
	prefixSearchLimit = 40
	// unfilteredTotal is reported instead of counting a whole collection.
	unfilteredTotal = 9999
)

type HoldingsSource interface {
	AccountNFTs(ctx context.Context, address, collection string, size int) ([]chain.AccountNFT, error)
}

type ListingQuery struct {
	Collection string
	Filter     repository.ListingFilter
	By         string
	Order      string
	Page       int
	Count      int
	MarketType string
}

type ListingPage struct {
	Items      []models.Listing `json:"nfts"`
	TotalCount int64            `json:"totalCount"`
	PageCount  int64            `json:"pageCount"`
}

type FloorResult struct {
	FloorPrice float64         `json:"floorPrice"`
	Details    *models.Listing `json:"details"`
}

// ListingQueryService serves the reconciled listings.
type ListingQueryService struct {
	Repo               repository.ListingRepository
	Claims             *ClaimChecker
	Holdings           HoldingsSource
	AllowedCollections []string
	ExcludedToken      string
	OwnerFetchLimit    int
}

// FindByMarket pages through listed records of a collection.
func (s *ListingQueryService) FindByMarket(ctx context.Context, q ListingQuery) (ListingPage, error) {
	if err := s.checkCollection(q.Collection); err != nil {
		return ListingPage{}, err
	}
	listed := true
	filter := q.Filter
	filter.Collection = q.Collection
	filter.Listed = &listed
	filter.MarketType = strings.TrimSpace(q.MarketType)
	filter.ExcludeToken = s.ExcludedToken
	return s.page(ctx, filter, q, false)
}

// FindAll pages through every record of a collection. Filtering on unclaimed
// records re-checks the claim contract and drops freshly claimed ones.
func (s *ListingQueryService) FindAll(ctx context.Context, q ListingQuery) (ListingPage, error) {
	if err := s.checkCollection(q.Collection); err != nil {
		return ListingPage{}, err
	}
	filter := q.Filter
	filter.Collection = q.Collection
	page, err := s.page(ctx, filter, q, filter.Empty())
	if err != nil {
		return ListingPage{}, err
	}
	if filter.IsClaimed != nil && !*filter.IsClaimed && s.Claims != nil {
		refreshed, err := s.Claims.Refresh(ctx, page.Items)
		if err != nil {
			return ListingPage{}, err
		}
		kept := refreshed[:0]
		for _, item := range refreshed {
			if !item.IsClaimed {
				kept = append(kept, item)
			}
		}
		page.Items = kept
	}
	return page, nil
}

// GetByID returns one record and counts the view.
func (s *ListingQueryService) GetByID(ctx context.Context, collection string, id int64) (*models.Listing, error) {
	if err := s.checkCollection(collection); err != nil {
		return nil, err
	}
	item, err := s.Repo.IncrementViewed(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrNotFound
	}
	return item, nil
}

func (s *ListingQueryService) SearchByIDPrefix(ctx context.Context, collection, prefix string) ([]models.Listing, error) {
	if err := s.checkCollection(collection); err != nil {
		return nil, err
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, fmt.Errorf("%w: empty id prefix", ErrInvalidQuery)
	}
	asc := true
	return s.Repo.ListListings(ctx, repository.ListListingsParams{
		Filter:  repository.ListingFilter{Collection: collection, IDNamePrefix: prefix},
		OrderBy: repository.SortID,
		Asc:     &asc,
		Limit:   prefixSearchLimit,
	})
}

// ElementFloor returns the cheapest listed record of an element (stone).
func (s *ListingQueryService) ElementFloor(ctx context.Context, collection, element string) (FloorResult, error) {
	if err := s.checkCollection(collection); err != nil {
		return FloorResult{}, err
	}
	element = strings.ToLower(strings.TrimSpace(element))
	if element == "" {
		return FloorResult{}, fmt.Errorf("%w: empty element", ErrInvalidQuery)
	}
	listed := true
	asc := true
	items, err := s.Repo.ListListings(ctx, repository.ListListingsParams{
		Filter:  repository.ListingFilter{Collection: collection, Stone: element, Listed: &listed},
		OrderBy: repository.SortFloor,
		Asc:     &asc,
		Limit:   1,
	})
	if err != nil {
		return FloorResult{}, err
	}
	if len(items) == 0 {
		return FloorResult{}, nil
	}
	info, err := items[0].MarketInfo()
	if err != nil {
		return FloorResult{}, err
	}
	res := FloorResult{Details: &items[0]}
	if info != nil {
		res.FloorPrice = info.Price
	}
	return res, nil
}

func (s *ListingQueryService) GetByIDs(ctx context.Context, collection string, ids []int64) ([]models.Listing, error) {
	if err := s.checkCollection(collection); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []models.Listing{}, nil
	}
	return s.Repo.ListListings(ctx, repository.ListListingsParams{
		Filter: repository.ListingFilter{Collection: collection, IDs: ids},
		Limit:  len(ids),
	})
}

func (s *ListingQueryService) GetByIdentifiers(ctx context.Context, collection string, identifiers []string) ([]models.Listing, error) {
	if err := s.checkCollection(collection); err != nil {
		return nil, err
	}
	if len(identifiers) == 0 {
		return []models.Listing{}, nil
	}
	return s.Repo.ListListings(ctx, repository.ListListingsParams{
		Filter: repository.ListingFilter{Collection: collection, Identifiers: identifiers},
		Limit:  len(identifiers),
	})
}

// FindByOwner pages through the records an account holds on chain. Semi-fungible
// records carry the held balance.
func (s *ListingQueryService) FindByOwner(ctx context.Context, address string, q ListingQuery) (ListingPage, error) {
	if err := s.checkCollection(q.Collection); err != nil {
		return ListingPage{}, err
	}
	if s.Holdings == nil {
		return ListingPage{}, fmt.Errorf("holdings source is not configured")
	}
	size := s.OwnerFetchLimit
	if size <= 0 {
		size = 1450
	}
	held, err := s.Holdings.AccountNFTs(ctx, address, q.Collection, size)
	if err != nil {
		return ListingPage{}, err
	}
	if len(held) == 0 {
		return ListingPage{Items: []models.Listing{}}, nil
	}
	ids := make([]int64, 0, len(held))
	balances := make(map[int64]int64, len(held))
	for _, nft := range held {
		ids = append(ids, nft.Nonce)
		balances[nft.Nonce] = nft.BalanceOrOne()
	}
	filter := q.Filter
	filter.Collection = q.Collection
	filter.IDs = ids
	page, err := s.page(ctx, filter, q, false)
	if err != nil {
		return ListingPage{}, err
	}
	for i := range page.Items {
		b := balances[page.Items[i].ID]
		page.Items[i].Balance = &b
	}
	return page, nil
}

func (s *ListingQueryService) page(ctx context.Context, filter repository.ListingFilter, q ListingQuery, skipCount bool) (ListingPage, error) {
	count := q.Count
	if count <= 0 {
		count = defaultPageSize
	}
	if count > maxPageSize {
		count = maxPageSize
	}
	pageNo := q.Page
	if pageNo < 1 {
		pageNo = 1
	}
	by, err := sortKey(q.By)
	if err != nil {
		return ListingPage{}, err
	}
	asc := strings.EqualFold(strings.TrimSpace(q.Order), "asc")

	items, err := s.Repo.ListListings(ctx, repository.ListListingsParams{
		Filter:  filter,
		OrderBy: by,
		Asc:     &asc,
		Limit:   count,
		Offset:  count * (pageNo - 1),
	})
	if err != nil {
		return ListingPage{}, err
	}
	if items == nil {
		items = []models.Listing{}
	}
	total := int64(unfilteredTotal)
	if !skipCount {
		total, err = s.Repo.CountListings(ctx, filter)
		if err != nil {
			return ListingPage{}, err
		}
	}
	return ListingPage{
		Items:      items,
		TotalCount: total,
		PageCount:  (total + int64(count) - 1) / int64(count),
	}, nil
}

func (s *ListingQueryService) checkCollection(collection string) error {
	collection = strings.TrimSpace(collection)
	if collection == "" {
		return fmt.Errorf("%w: empty collection", ErrUnknownCollection)
	}
	if len(s.AllowedCollections) == 0 {
		return nil
	}
	for _, c := range s.AllowedCollections {
		if c == collection {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
}

func sortKey(by string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(by)) {
	case "", repository.SortID:
		return repository.SortID, nil
	case repository.SortRank:
		return repository.SortRank, nil
	case repository.SortPrice:
		return repository.SortPrice, nil
	case repository.SortViewed:
		return repository.SortViewed, nil
	case repository.SortLatest:
		return repository.SortLatest, nil
	}
	return "", fmt.Errorf("%w: unsupported sort %q", ErrInvalidQuery, by)
}
