package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"

	"nftmarket/internal/models"
	"nftmarket/internal/repository"
)

const featureScrapePrefix = "feature.scrape."

// JobFeatureKey is the system setting that switches a scrape job on or off.
func JobFeatureKey(job string) string {
	return featureScrapePrefix + strings.TrimSpace(job)
}

type SystemSettingsService struct {
	Repo repository.SettingsRepository
}

// EnsureDefaultSwitches creates missing switches. Existing values are kept.
func (s *SystemSettingsService) EnsureDefaultSwitches(ctx context.Context, defaults map[string]bool) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	now := time.Now().UTC()
	for key, enabled := range defaults {
		existing, err := s.Repo.GetSystemSettingByKey(ctx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		raw, _ := json.Marshal(enabled)
		item := &models.SystemSetting{
			Key:         key,
			Value:       datatypes.JSON(raw),
			Description: "feature switch",
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.Repo.UpsertSystemSetting(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (s *SystemSettingsService) IsEnabled(ctx context.Context, key string, fallback bool) bool {
	if s == nil || s.Repo == nil {
		return fallback
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}
	item, err := s.Repo.GetSystemSettingByKey(ctx, key)
	if err != nil || item == nil || len(item.Value) == 0 {
		return fallback
	}
	var enabled bool
	if err := json.Unmarshal(item.Value, &enabled); err != nil {
		return fallback
	}
	return enabled
}

func (s *SystemSettingsService) SetEnabled(ctx context.Context, key string, enabled bool) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	raw, _ := json.Marshal(enabled)
	now := time.Now().UTC()
	item := &models.SystemSetting{
		Key:         key,
		Value:       datatypes.JSON(raw),
		Description: "feature switch",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return s.Repo.UpsertSystemSetting(ctx, item)
}

func (s *SystemSettingsService) List(ctx context.Context) ([]models.SystemSetting, error) {
	if s == nil || s.Repo == nil {
		return nil, nil
	}
	return s.Repo.ListSystemSettings(ctx)
}
