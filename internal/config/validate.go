package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the settings the scraper cannot run without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Chain.BaseURL) == "" {
		return errors.New("chain.base_url is required")
	}
	if c.Fetch.MaxAttempts < 1 {
		return errors.New("fetch.max_attempts must be >= 1")
	}
	if c.Scrape.PageSize < 1 {
		return errors.New("scrape.page_size must be >= 1")
	}

	seen := map[string]struct{}{}
	for i, job := range c.Jobs {
		name := strings.TrimSpace(job.Name)
		if name == "" {
			return fmt.Errorf("jobs[%d].name is required", i)
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("jobs[%d].name %q is duplicated", i, name)
		}
		seen[name] = struct{}{}
		if strings.TrimSpace(job.Schedule) == "" {
			return fmt.Errorf("jobs[%d].schedule is required", i)
		}
		if len(job.Collections) == 0 || len(job.Collections) > 2 {
			return fmt.Errorf("jobs[%d].collections must list one or two collections, got %d", i, len(job.Collections))
		}
	}
	return nil
}
