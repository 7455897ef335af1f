package cronrunner

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// JobEntry describes a registered job for the admin API.
type JobEntry struct {
	Name     string    `json:"name"`
	Schedule string    `json:"schedule"`
	Next     time.Time `json:"next"`
	Prev     time.Time `json:"prev"`
}

type Runner struct {
	cron    *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context

	mu   sync.Mutex
	jobs map[string]registered
}

type registered struct {
	id       cron.EntryID
	schedule string
}

func New(logger *zap.Logger, baseCtx context.Context) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Runner{
		cron:    cron.New(cron.WithSeconds()),
		logger:  logger,
		baseCtx: baseCtx,
		jobs:    map[string]registered{},
	}
}

// Add registers a named job. Schedules use six fields (seconds first) or
// descriptors such as "@every 1m".
func (r *Runner) Add(name, spec string, job func(context.Context)) (cron.EntryID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[name]; ok {
		return 0, fmt.Errorf("cron job %q already registered", name)
	}
	id, err := r.cron.AddFunc(spec, func() {
		job(r.baseCtx)
	})
	if err != nil {
		return 0, fmt.Errorf("cron job %q: %w", name, err)
	}
	r.jobs[name] = registered{id: id, schedule: spec}
	if r.logger != nil {
		r.logger.Info("cron job registered", zap.String("job", name), zap.String("schedule", spec))
	}
	return id, nil
}

func (r *Runner) Entries() []JobEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]JobEntry, 0, len(r.jobs))
	for name, reg := range r.jobs {
		e := r.cron.Entry(reg.id)
		out = append(out, JobEntry{Name: name, Schedule: reg.schedule, Next: e.Next, Prev: e.Prev})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Runner) Start() {
	if r.logger != nil {
		r.logger.Info("cron started", zap.Int("jobs", len(r.jobs)))
	}
	r.cron.Start()
}

// Stop waits for running jobs to return.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	if r.logger != nil {
		r.logger.Info("cron stopped")
	}
}
