package repository

import (
	"context"
	"time"

	"nftmarket/internal/models"
)

// TraitPaths is the whitelist of trait attributes a listing query may filter on.
var TraitPaths = []string{
	"background.name",
	"crown.name",
	"crown.level",
	"hairstyle.name",
	"hairstyle.color",
	"eyes.name",
	"eyes.color",
	"weapon.name",
	"weapon.level",
	"armor.name",
	"armor.level",
	"nose.name",
	"mouth.name",
	"mouth.color",
}

func IsTraitPath(path string) bool {
	for _, p := range TraitPaths {
		if p == path {
			return true
		}
	}
	return false
}

// ListingFilter narrows listings; zero values mean "no constraint".
type ListingFilter struct {
	Collection  string
	IDs         []int64
	Identifiers []string
	// IDPrefix matches the decimal rendering of the id.
	IDPrefix string
	// IDNamePrefix matches the id_name column.
	IDNamePrefix string
	IDFrom       *int64
	IDTo         *int64
	Traits       map[string]string
	Stone        string
	IsClaimed    *bool
	Listed       *bool
	MarketType   string
	ExcludeToken string
}

// Empty reports whether the filter constrains nothing beyond the collection.
func (f ListingFilter) Empty() bool {
	return len(f.IDs) == 0 &&
		len(f.Identifiers) == 0 &&
		f.IDPrefix == "" &&
		f.IDNamePrefix == "" &&
		f.IDFrom == nil &&
		f.IDTo == nil &&
		len(f.Traits) == 0 &&
		f.Stone == "" &&
		f.IsClaimed == nil &&
		f.Listed == nil &&
		f.MarketType == "" &&
		f.ExcludeToken == ""
}

const (
	SortID     = "id"
	SortRank   = "rank"
	SortPrice  = "price"
	SortViewed = "viewed"
	SortLatest = "latest"
	// SortFloor orders by native price; used for floor lookups.
	SortFloor  = "floor"
)

type ListListingsParams struct {
	Filter  ListingFilter
	OrderBy string
	Asc     *bool
	Limit   int
	Offset  int
}

// MarketUpdate sets the market of one listing in a page batch.
type MarketUpdate struct {
	ID     int64
	Market models.MarketInfo
}

type ListingRepository interface {
	ListListings(ctx context.Context, params ListListingsParams) ([]models.Listing, error)
	CountListings(ctx context.Context, filter ListingFilter) (int64, error)
	GetListing(ctx context.Context, collection string, id int64) (*models.Listing, error)

	// FindPricingCandidates returns the listings among ids that the marketplace
	// should price during tick: unlisted ones, and ones priced earlier in the same
	// tick by another marketplace.
	FindPricingCandidates(ctx context.Context, collection string, ids []int64, tick int64, source string) ([]models.Listing, error)
	TouchListings(ctx context.Context, collection string, ids []int64, tick int64) (int64, error)
	BulkSetMarket(ctx context.Context, collection string, updates []MarketUpdate) error
	ClearStaleListings(ctx context.Context, collection string, tick int64) (int64, error)

	MarkClaimed(ctx context.Context, collection string, ids []int64) (int64, error)
	IncrementViewed(ctx context.Context, collection string, id int64) (*models.Listing, error)
	LockListing(ctx context.Context, collection string, id int64, now time.Time) (bool, error)
	UnlockListing(ctx context.Context, collection string, id int64) (bool, error)
}

type ScrapeRunRepository interface {
	GetScrapeRun(ctx context.Context, scope string) (*models.ScrapeRun, error)
	SaveScrapeRun(ctx context.Context, run *models.ScrapeRun) error
	ListScrapeRuns(ctx context.Context) ([]models.ScrapeRun, error)
}

type SettingsRepository interface {
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
	ListSystemSettings(ctx context.Context) ([]models.SystemSetting, error)
}

type Repository interface {
	ListingRepository
	ScrapeRunRepository
	SettingsRepository
}
