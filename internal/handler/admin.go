package handler

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	cronrunner "nftmarket/internal/cron"
	"nftmarket/internal/repository"
	"nftmarket/internal/service"
)

// TickRunner is implemented by *service.Scheduler.
type TickRunner interface {
	Tick(ctx context.Context) (service.TickResult, error)
	Running() bool
}

// MergeLocker is implemented by *service.MergeLockService.
type MergeLocker interface {
	Lock(ctx context.Context, id int64) (bool, error)
	Unlock(ctx context.Context, id int64) (bool, error)
	ForceUnlock(ctx context.Context, id int64) error
}

type JobLister interface {
	Entries() []cronrunner.JobEntry
}

type AdminHandler struct {
	Jobs     map[string]TickRunner
	Cron     JobLister
	Runs     repository.ScrapeRunRepository
	Locks    MergeLocker
	Settings *service.SystemSettingsService
	// Auth guards every admin route when set.
	Auth   gin.HandlerFunc
	Logger *zap.Logger
}

func (h *AdminHandler) Register(r *gin.Engine) {
	g := r.Group("/api/admin")
	if h.Auth != nil {
		g.Use(h.Auth)
	}
	g.POST("/scrape/:job", h.scrape)
	g.GET("/runs", h.runs)
	g.GET("/jobs", h.jobs)
	g.PUT("/jobs/:job/enabled", h.setEnabled)
	g.POST("/lock/:id", h.lock)
	g.POST("/unlock/:id", h.unlock)
	g.POST("/unlock-force/:id", h.unlockForce)
}

// @Summary Run one scrape tick now
// @Tags admin
// @Security BearerAuth
// @Param job path string true "job name"
// @Success 200 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Router /api/admin/scrape/{job} [post]
func (h *AdminHandler) scrape(c *gin.Context) {
	name := strings.TrimSpace(c.Param("job"))
	job, ok := h.Jobs[name]
	if !ok {
		Error(c, http.StatusNotFound, "unknown job", nil)
		return
	}
	// The tick outlives a dropped client.
	res, err := job.Tick(context.WithoutCancel(c.Request.Context()))
	if errors.Is(err, service.ErrTickInProgress) {
		Error(c, http.StatusConflict, err.Error(), nil)
		return
	}
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("manual tick failed", zap.String("job", name), zap.Error(err))
		}
		Error(c, http.StatusBadGateway, err.Error(), map[string]any{"run_id": res.RunID})
		return
	}
	Ok(c, res, nil)
}

// @Summary Last run per job and collection
// @Tags admin
// @Security BearerAuth
// @Success 200 {object} apiResponse
// @Router /api/admin/runs [get]
func (h *AdminHandler) runs(c *gin.Context) {
	if h.Runs == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Runs.ListScrapeRuns(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"total": len(items)})
}

type jobView struct {
	Name     string `json:"name"`
	Schedule string `json:"schedule,omitempty"`
	Enabled  bool   `json:"enabled"`
	Running  bool   `json:"running"`
	Next     any    `json:"next,omitempty"`
}

// @Summary Scrape jobs with their schedule and switch
// @Tags admin
// @Security BearerAuth
// @Success 200 {object} apiResponse
// @Router /api/admin/jobs [get]
func (h *AdminHandler) jobs(c *gin.Context) {
	entries := map[string]cronrunner.JobEntry{}
	if h.Cron != nil {
		for _, e := range h.Cron.Entries() {
			entries[e.Name] = e
		}
	}
	out := make([]jobView, 0, len(h.Jobs))
	for name, job := range h.Jobs {
		v := jobView{
			Name:    name,
			Enabled: h.Settings.IsEnabled(c.Request.Context(), service.JobFeatureKey(name), true),
			Running: job.Running(),
		}
		if e, ok := entries[name]; ok {
			v.Schedule = e.Schedule
			if !e.Next.IsZero() {
				v.Next = e.Next
			}
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	Ok(c, out, nil)
}

type enabledRequest struct {
	Enabled *bool `json:"enabled"`
}

// @Summary Switch a scrape job on or off
// @Tags admin
// @Security BearerAuth
// @Param job path string true "job name"
// @Param body body enabledRequest true "switch"
// @Success 200 {object} apiResponse
// @Router /api/admin/jobs/{job}/enabled [put]
func (h *AdminHandler) setEnabled(c *gin.Context) {
	name := strings.TrimSpace(c.Param("job"))
	if _, ok := h.Jobs[name]; !ok {
		Error(c, http.StatusNotFound, "unknown job", nil)
		return
	}
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings unavailable", nil)
		return
	}
	var req enabledRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if err := h.Settings.SetEnabled(c.Request.Context(), service.JobFeatureKey(name), *req.Enabled); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"job": name, "enabled": *req.Enabled}, nil)
}

// @Summary Lock a record for merging
// @Tags admin
// @Security BearerAuth
// @Param id path int true "record id"
// @Success 200 {object} apiResponse
// @Router /api/admin/lock/{id} [post]
func (h *AdminHandler) lock(c *gin.Context) {
	h.withLock(c, func(ctx context.Context, id int64) (any, error) {
		locked, err := h.Locks.Lock(ctx, id)
		return gin.H{"id": id, "locked": locked}, err
	})
}

// @Summary Release a merge lock
// @Tags admin
// @Security BearerAuth
// @Param id path int true "record id"
// @Success 200 {object} apiResponse
// @Router /api/admin/unlock/{id} [post]
func (h *AdminHandler) unlock(c *gin.Context) {
	h.withLock(c, func(ctx context.Context, id int64) (any, error) {
		released, err := h.Locks.Unlock(ctx, id)
		return gin.H{"id": id, "unlocked": released}, err
	})
}

// @Summary Clear a merge lock unconditionally
// @Tags admin
// @Security BearerAuth
// @Param id path int true "record id"
// @Success 200 {object} apiResponse
// @Router /api/admin/unlock-force/{id} [post]
func (h *AdminHandler) unlockForce(c *gin.Context) {
	h.withLock(c, func(ctx context.Context, id int64) (any, error) {
		return gin.H{"id": id, "unlocked": true}, h.Locks.ForceUnlock(ctx, id)
	})
}

func (h *AdminHandler) withLock(c *gin.Context, fn func(ctx context.Context, id int64) (any, error)) {
	if h.Locks == nil {
		Error(c, http.StatusInternalServerError, "locks unavailable", nil)
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	data, err := fn(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, data, nil)
}
