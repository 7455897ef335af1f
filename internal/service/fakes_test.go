package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"nftmarket/internal/models"
	"nftmarket/internal/repository"
)

type listingKey struct {
	collection string
	id         int64
}

// memRepo mirrors the gorm store's listing semantics in memory.
type memRepo struct {
	mu       sync.Mutex
	listings map[listingKey]models.Listing
	runs     map[string]models.ScrapeRun
	settings map[string]models.SystemSetting

	bulkCalls int
	touched   int
}

func newMemRepo(items ...models.Listing) *memRepo {
	r := &memRepo{
		listings: map[listingKey]models.Listing{},
		runs:     map[string]models.ScrapeRun{},
		settings: map[string]models.SystemSetting{},
	}
	for _, l := range items {
		r.listings[listingKey{l.CollectionName, l.ID}] = l
	}
	return r
}

func (r *memRepo) get(collection string, id int64) models.Listing {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listings[listingKey{collection, id}]
}

func (r *memRepo) snapshotMarkets(collection string) map[int64]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[int64]string{}
	for k, l := range r.listings {
		if k.collection == collection {
			out[k.id] = string(l.Market)
		}
	}
	return out
}

func (r *memRepo) match(l models.Listing, f repository.ListingFilter) bool {
	if f.Collection != "" && l.CollectionName != f.Collection {
		return false
	}
	if len(f.IDs) > 0 && !containsID(f.IDs, l.ID) {
		return false
	}
	if len(f.Identifiers) > 0 {
		found := false
		for _, ident := range f.Identifiers {
			if ident == l.Identifier {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	if f.IDPrefix != "" && !strings.HasPrefix(strconv.FormatInt(l.ID, 10), f.IDPrefix) {
		return false
	}
	if f.IDNamePrefix != "" && !strings.HasPrefix(l.IDName, f.IDNamePrefix) {
		return false
	}
	if f.Stone != "" && l.Stone != f.Stone {
		return false
	}
	if f.IsClaimed != nil && l.IsClaimed != *f.IsClaimed {
		return false
	}
	if f.Listed != nil && l.Listed() != *f.Listed {
		return false
	}
	info, _ := l.MarketInfo()
	if f.MarketType != "" && (info == nil || info.Type != f.MarketType) {
		return false
	}
	if f.ExcludeToken != "" && info != nil && info.Token == f.ExcludeToken {
		return false
	}
	return true
}

func (r *memRepo) ListListings(ctx context.Context, params repository.ListListingsParams) ([]models.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Listing
	for _, l := range r.listings {
		if r.match(l, params.Filter) {
			out = append(out, l)
		}
	}
	asc := params.Asc != nil && *params.Asc
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch params.OrderBy {
		case repository.SortFloor, repository.SortPrice:
			ai, _ := a.MarketInfo()
			bi, _ := b.MarketInfo()
			if ai != nil && bi != nil && ai.Price != bi.Price {
				if asc {
					return ai.Price < bi.Price
				}
				return ai.Price > bi.Price
			}
		case repository.SortViewed:
			if a.Viewed != b.Viewed {
				if asc {
					return a.Viewed < b.Viewed
				}
				return a.Viewed > b.Viewed
			}
		}
		if asc {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})
	if params.Offset > 0 {
		if params.Offset >= len(out) {
			return nil, nil
		}
		out = out[params.Offset:]
	}
	if params.Limit > 0 && len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

func (r *memRepo) CountListings(ctx context.Context, filter repository.ListingFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, l := range r.listings {
		if r.match(l, filter) {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) GetListing(ctx context.Context, collection string, id int64) (*models.Listing, error) {
	l := r.get(collection, id)
	if l.CollectionName == "" {
		return nil, nil
	}
	return &l, nil
}

func (r *memRepo) FindPricingCandidates(ctx context.Context, collection string, ids []int64, tick int64, source string) ([]models.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Listing
	for _, id := range ids {
		l, ok := r.listings[listingKey{collection, id}]
		if !ok {
			continue
		}
		info, _ := l.MarketInfo()
		if info == nil || (info.Timestamp == tick && info.Source != source) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRepo) TouchListings(ctx context.Context, collection string, ids []int64, tick int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, id := range ids {
		k := listingKey{collection, id}
		l, ok := r.listings[k]
		if !ok {
			continue
		}
		ts := tick
		l.Timestamp = &ts
		r.listings[k] = l
		n++
	}
	r.touched += int(n)
	return n, nil
}

func (r *memRepo) BulkSetMarket(ctx context.Context, collection string, updates []repository.MarketUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bulkCalls++
	for _, u := range updates {
		k := listingKey{collection, u.ID}
		l, ok := r.listings[k]
		if !ok {
			continue
		}
		raw, err := models.EncodeMarket(u.Market)
		if err != nil {
			return err
		}
		l.Market = raw
		r.listings[k] = l
	}
	return nil
}

func (r *memRepo) ClearStaleListings(ctx context.Context, collection string, tick int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, l := range r.listings {
		if k.collection != collection || l.Timestamp == nil || *l.Timestamp == tick {
			continue
		}
		l.Market = nil
		l.Timestamp = nil
		r.listings[k] = l
		n++
	}
	return n, nil
}

func (r *memRepo) MarkClaimed(ctx context.Context, collection string, ids []int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, id := range ids {
		k := listingKey{collection, id}
		l, ok := r.listings[k]
		if !ok || l.IsClaimed {
			continue
		}
		l.IsClaimed = true
		r.listings[k] = l
		n++
	}
	return n, nil
}

func (r *memRepo) IncrementViewed(ctx context.Context, collection string, id int64) (*models.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := listingKey{collection, id}
	l, ok := r.listings[k]
	if !ok {
		return nil, nil
	}
	l.Viewed++
	r.listings[k] = l
	return &l, nil
}

func (r *memRepo) LockListing(ctx context.Context, collection string, id int64, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := listingKey{collection, id}
	l, ok := r.listings[k]
	if !ok || l.LockedOn != nil {
		return false, nil
	}
	l.LockedOn = &now
	r.listings[k] = l
	return true, nil
}

func (r *memRepo) UnlockListing(ctx context.Context, collection string, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := listingKey{collection, id}
	l, ok := r.listings[k]
	if !ok || l.LockedOn == nil {
		return false, nil
	}
	l.LockedOn = nil
	r.listings[k] = l
	return true, nil
}

func (r *memRepo) GetScrapeRun(ctx context.Context, scope string) (*models.ScrapeRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[scope]
	if !ok {
		return nil, nil
	}
	return &run, nil
}

func (r *memRepo) SaveScrapeRun(ctx context.Context, run *models.ScrapeRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.Scope] = *run
	return nil
}

func (r *memRepo) ListScrapeRuns(ctx context.Context) ([]models.ScrapeRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.ScrapeRun, 0, len(r.runs))
	for _, run := range r.runs {
		out = append(out, run)
	}
	return out, nil
}

func (r *memRepo) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.settings[key]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (r *memRepo) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings[item.Key] = *item
	return nil
}

func (r *memRepo) ListSystemSettings(ctx context.Context) ([]models.SystemSetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.SystemSetting, 0, len(r.settings))
	for _, item := range r.settings {
		out = append(out, item)
	}
	return out, nil
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// fakeMarkets serves listed nonces per contract, paging like the chain gateway.
type fakeMarkets struct {
	mu     sync.Mutex
	listed map[string][]int64
	fail   map[string]error
	calls  []string
}

func (f *fakeMarkets) ListedNonces(ctx context.Context, contract, collection string, from, size int) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, contract+"@"+strconv.Itoa(from))
	if err := f.fail[contract]; err != nil {
		return nil, err
	}
	ids := f.listed[contract]
	if from >= len(ids) {
		return nil, nil
	}
	end := from + size
	if end > len(ids) {
		end = len(ids)
	}
	return append([]int64(nil), ids[from:end]...), nil
}

// fakePricer prices by marketplace and identifier.
type fakePricer struct {
	mu     sync.Mutex
	prices map[models.Marketplace]map[string]decimal.Decimal
	errs   map[string]error
	calls  []string
}

func (p *fakePricer) Price(ctx context.Context, m models.Marketplace, identifier string) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, m.String()+":"+identifier)
	if err := p.errs[identifier]; err != nil {
		return decimal.Zero, err
	}
	if v, ok := p.prices[m][identifier]; ok {
		return v, nil
	}
	return decimal.Zero, errNotPriced
}

var errNotPriced = errors.New("fake pricer: no price")

type fixedRate decimal.Decimal

func (r fixedRate) USD(price decimal.Decimal) *float64 {
	rate := decimal.Decimal(r)
	if rate.IsZero() {
		return nil
	}
	v := rate.Mul(price).Round(2).InexactFloat64()
	return &v
}

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func listing(collection string, id int64) models.Listing {
	return models.Listing{
		CollectionName: collection,
		ID:             id,
		Identifier:     collection + "-" + strconv.FormatInt(id, 16),
		IDName:         strconv.FormatInt(id, 10),
	}
}
