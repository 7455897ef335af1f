package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const (
	MarketTypeBuy = "buy"
	MarketTypeBid = "bid"
)

// Bid is only present on auction listings.
type Bid struct {
	Min           float64  `json:"min"`
	Current       float64  `json:"current"`
	DeadlineParts [4]int64 `json:"deadlineParts"`
}

// MarketInfo is the listing state of a record on one marketplace.
type MarketInfo struct {
	Source     string   `json:"source"`
	Identifier string   `json:"identifier"`
	Type       string   `json:"type"`
	Bid        *Bid     `json:"bid"`
	Token      string   `json:"token"`
	Price      float64  `json:"price"`
	CurrentUSD *float64 `json:"currentUsd"`
	// Timestamp is the tick at which the listing was priced.
	Timestamp int64 `json:"timestamp"`
}

// Listing is one NFT of a tracked collection. Records are ingested out of band;
// the scraper only maintains Market, Timestamp and IsClaimed.
type Listing struct {
	CollectionName string         `gorm:"primaryKey;type:text" json:"collectionName"`
	ID             int64          `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Identifier     string         `gorm:"type:text;not null;index" json:"identifier"`
	IDName         string         `gorm:"type:text;not null;index" json:"idName"`
	AssetType      *string        `gorm:"type:text" json:"assetType,omitempty"`
	Rarity         float64        `gorm:"not null;default:0" json:"rarity"`
	Rank           int            `gorm:"not null;default:0;index" json:"rank"`
	Vril           *float64       `json:"vril,omitempty"`
	Stone          string         `gorm:"type:text;index" json:"stone"`
	Traits         datatypes.JSON `gorm:"type:jsonb" json:"traits,omitempty"`
	Market         datatypes.JSON `gorm:"type:jsonb" json:"market,omitempty"`
	Timestamp      *int64         `gorm:"index" json:"timestamp,omitempty"`
	Viewed         int64          `gorm:"not null;default:0" json:"viewed"`
	IsClaimed      bool           `gorm:"not null;default:false" json:"isClaimed"`
	LockedOn       *time.Time     `gorm:"type:timestamptz" json:"lockedOn,omitempty"`

	// Balance is filled from on-chain holdings for semi-fungible tokens.
	Balance *int64 `gorm:"-" json:"balance,omitempty"`
}

func (Listing) TableName() string {
	return "listings"
}

// MarketInfo decodes the market column; nil means the record is not listed.
func (l Listing) MarketInfo() (*MarketInfo, error) {
	if len(l.Market) == 0 || string(l.Market) == "null" {
		return nil, nil
	}
	var info MarketInfo
	if err := json.Unmarshal(l.Market, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (l Listing) Listed() bool {
	return len(l.Market) > 0 && string(l.Market) != "null"
}

func EncodeMarket(info MarketInfo) (datatypes.JSON, error) {
	raw, err := json.Marshal(info)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
