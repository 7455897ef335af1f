package db

import (
	"nftmarket/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	if err := db.Gorm.AutoMigrate(
		&models.Listing{},
		&models.ScrapeRun{},
		&models.SystemSetting{},
	); err != nil {
		return err
	}
	// The sweep and candidate queries filter on market presence per collection.
	return db.Gorm.Exec(`CREATE INDEX IF NOT EXISTS idx_listings_collection_market_null ON listings (collection_name) WHERE market IS NULL`).Error
}
