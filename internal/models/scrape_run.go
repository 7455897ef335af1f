package models

import (
	"time"

	"gorm.io/datatypes"
)

// ScrapeRun keeps the latest reconciliation outcome per job and collection.
type ScrapeRun struct {
	Scope         string         `gorm:"primaryKey;type:text" json:"scope"`
	Job           string         `gorm:"type:text;index;not null" json:"job"`
	Collection    string         `gorm:"type:text;not null" json:"collection"`
	LastRunID     string         `gorm:"type:text" json:"last_run_id"`
	LastTick      int64          `json:"last_tick"`
	LastAttemptAt *time.Time     `gorm:"type:timestamptz" json:"last_attempt_at,omitempty"`
	LastSuccessAt *time.Time     `gorm:"type:timestamptz" json:"last_success_at,omitempty"`
	LastError     *string        `gorm:"type:text" json:"last_error,omitempty"`
	StatsJSON     datatypes.JSON `gorm:"type:jsonb" json:"stats,omitempty"`
}

func (ScrapeRun) TableName() string {
	return "scrape_runs"
}

func ScrapeRunScope(job, collection string) string {
	return job + ":" + collection
}
