package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nftmarket/internal/models"
	"nftmarket/internal/repository"
)

var ErrTickInProgress = errors.New("service: tick already in progress")

type RateRefresher interface {
	Refresh(ctx context.Context) error
}

type CollectionReconciler interface {
	ReconcileCollection(ctx context.Context, collection string, tick int64) (ReconcileResult, error)
}

type TickResult struct {
	RunID      string          `json:"run_id"`
	Job        string          `json:"job"`
	Collection string          `json:"collection"`
	Tick       int64           `json:"tick"`
	StartedAt  time.Time       `json:"started_at"`
	Duration   time.Duration   `json:"duration"`
	Result     ReconcileResult `json:"result"`
}

// TickGuard admits one reconciliation cycle at a time. Schedulers that share a
// reconciler must share a guard.
type TickGuard struct {
	running atomic.Bool
}

func (g *TickGuard) TryAcquire() bool {
	return g.running.CompareAndSwap(false, true)
}

func (g *TickGuard) Release() {
	g.running.Store(false)
}

func (g *TickGuard) Running() bool {
	return g.running.Load()
}

// Scheduler runs reconciliation ticks for one job. Ticks never overlap: a tick
// that fires while another is running under the same Guard is dropped. With two
// collections the job alternates between them.
type Scheduler struct {
	Name        string
	Collections []string
	Rates       RateRefresher
	Reconciler  CollectionReconciler
	Runs        repository.ScrapeRunRepository
	Settings    *SystemSettingsService
	Logger      *zap.Logger
	Now         func() time.Time
	// Guard is shared by every job of the process. A nil Guard only
	// serialises this job's own ticks.
	Guard *TickGuard

	local   TickGuard
	running atomic.Bool
	mu      sync.Mutex
	turn    int
}

// Running reports whether this job's own tick is in flight.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

func (s *Scheduler) guard() *TickGuard {
	if s.Guard != nil {
		return s.Guard
	}
	return &s.local
}

// Run is the cron entry point. It honours the job's runtime switch.
func (s *Scheduler) Run(ctx context.Context) {
	logger := s.logger()
	if !s.Settings.IsEnabled(ctx, JobFeatureKey(s.Name), true) {
		logger.Debug("scrape job disabled", zap.String("job", s.Name))
		return
	}
	res, err := s.Tick(ctx)
	switch {
	case errors.Is(err, ErrTickInProgress):
		logger.Debug("tick skipped, previous tick still running", zap.String("job", s.Name))
	case err != nil:
		logger.Error("tick failed", zap.String("job", s.Name), zap.String("run_id", res.RunID), zap.String("collection", res.Collection), zap.Error(err))
	default:
		logger.Info("tick done",
			zap.String("job", s.Name),
			zap.String("run_id", res.RunID),
			zap.String("collection", res.Collection),
			zap.Int64("tick", res.Tick),
			zap.Int("pages", res.Result.Pages),
			zap.Int("seen", res.Result.Seen),
			zap.Int("priced", res.Result.Priced),
			zap.Int("skipped", res.Result.Skipped),
			zap.Int64("swept", res.Result.Swept),
			zap.Duration("duration", res.Duration),
		)
	}
}

// Tick runs one reconciliation pass unless one is already running.
func (s *Scheduler) Tick(ctx context.Context) (res TickResult, err error) {
	guard := s.guard()
	if !guard.TryAcquire() {
		return TickResult{}, ErrTickInProgress
	}
	defer guard.Release()
	s.running.Store(true)
	defer s.running.Store(false)
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("tick panic: %v", p)
			s.logger().Error("tick panicked", zap.String("job", s.Name), zap.Any("panic", p), zap.Stack("stack"))
			s.recordRun(ctx, res, err)
		}
	}()

	if s.Reconciler == nil {
		return TickResult{}, fmt.Errorf("job %s has no reconciler", s.Name)
	}
	collection, err := s.nextCollection()
	if err != nil {
		return TickResult{}, err
	}

	now := s.now()
	res = TickResult{
		RunID:      uuid.NewString(),
		Job:        s.Name,
		Collection: collection,
		StartedAt:  now,
	}
	logger := s.logger().With(zap.String("job", s.Name), zap.String("run_id", res.RunID), zap.String("collection", collection))

	if s.Rates != nil {
		if err := s.Rates.Refresh(ctx); err != nil {
			logger.Warn("exchange rate refresh failed, keeping previous rate", zap.Error(err))
		}
	}

	res.Tick = s.now().UnixMilli()
	res.Result, err = s.Reconciler.ReconcileCollection(ctx, collection, res.Tick)
	res.Duration = s.now().Sub(now)
	s.recordRun(ctx, res, err)
	return res, err
}

func (s *Scheduler) nextCollection() (string, error) {
	if len(s.Collections) == 0 {
		return "", fmt.Errorf("job %s has no collections", s.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.Collections[s.turn%len(s.Collections)]
	s.turn++
	return c, nil
}

func (s *Scheduler) recordRun(ctx context.Context, res TickResult, tickErr error) {
	if s.Runs == nil || res.Collection == "" {
		return
	}
	scope := models.ScrapeRunScope(s.Name, res.Collection)
	attempt := res.StartedAt
	if attempt.IsZero() {
		attempt = s.now()
	}
	run := &models.ScrapeRun{
		Scope:         scope,
		Job:           s.Name,
		Collection:    res.Collection,
		LastRunID:     res.RunID,
		LastTick:      res.Tick,
		LastAttemptAt: &attempt,
		StatsJSON:     mustJSON(res.Result),
	}
	var problems []string
	if tickErr != nil {
		problems = append(problems, tickErr.Error())
	}
	if len(res.Result.FailedMarketplaces) > 0 {
		problems = append(problems, "marketplaces failed: "+strings.Join(res.Result.FailedMarketplaces, ","))
	}
	if len(problems) == 0 {
		run.LastSuccessAt = &attempt
	} else {
		run.LastError = strPtr(strings.Join(problems, "; "))
		if prev, err := s.Runs.GetScrapeRun(ctx, scope); err == nil && prev != nil {
			run.LastSuccessAt = prev.LastSuccessAt
		}
	}
	// Record the run even when the tick was cancelled.
	if err := s.Runs.SaveScrapeRun(context.WithoutCancel(ctx), run); err != nil {
		s.logger().Warn("save scrape run failed", zap.String("scope", scope), zap.Error(err))
	}
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Scheduler) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
