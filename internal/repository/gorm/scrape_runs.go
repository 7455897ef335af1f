package gormrepository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"nftmarket/internal/models"
)

func (s *Store) GetScrapeRun(ctx context.Context, scope string) (*models.ScrapeRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var run models.ScrapeRun
	err := s.db.WithContext(ctx).First(&run, "scope = ?", scope).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *Store) SaveScrapeRun(ctx context.Context, run *models.ScrapeRun) error {
	if s == nil || s.db == nil || run == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "scope"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"job",
			"collection",
			"last_run_id",
			"last_tick",
			"last_attempt_at",
			"last_success_at",
			"last_error",
			"stats_json",
		}),
	}).Create(run).Error
}

func (s *Store) ListScrapeRuns(ctx context.Context) ([]models.ScrapeRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var runs []models.ScrapeRun
	if err := s.db.WithContext(ctx).Order("scope asc").Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
