package fetcher

import (
	"context"
	"sync"
	"time"
)

// Gate enforces a minimum time between successive calls sharing it.
type Gate struct {
	Interval time.Duration

	mu   sync.Mutex
	last time.Time
}

func NewGate(interval time.Duration) *Gate {
	return &Gate{Interval: interval}
}

// Wait blocks until Interval has elapsed since the previous Wait returned.
func (g *Gate) Wait(ctx context.Context) error {
	if g == nil || g.Interval <= 0 {
		return ctx.Err()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if wait := time.Until(g.last.Add(g.Interval)); wait > 0 {
		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
	}
	g.last = time.Now()
	return nil
}
