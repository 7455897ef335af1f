package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"nftmarket/internal/config"
)

var ErrRetriesExhausted = errors.New("fetcher: retries exhausted")

const (
	DefaultMaxAttempts = 4
	DefaultBackoff     = time.Second
)

// Retrier runs a call up to MaxAttempts times with a fixed Backoff between
// attempts. It is used for every transport call against the chain and the
// marketplaces; semantic failures are decided by callers after a successful call.
type Retrier struct {
	MaxAttempts int
	Backoff     time.Duration
	Logger      *zap.Logger

	// Sleep defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

func NewRetrier(cfg config.FetchConfig, logger *zap.Logger) *Retrier {
	return &Retrier{
		MaxAttempts: cfg.MaxAttempts,
		Backoff:     cfg.Backoff,
		Logger:      logger,
	}
}

func (r *Retrier) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	attempts := DefaultMaxAttempts
	backoff := DefaultBackoff
	sleep := sleepCtx
	logger := zap.NewNop()
	if r != nil {
		if r.MaxAttempts > 0 {
			attempts = r.MaxAttempts
		}
		if r.Backoff > 0 {
			backoff = r.Backoff
		}
		if r.Sleep != nil {
			sleep = r.Sleep
		}
		if r.Logger != nil {
			logger = r.Logger
		}
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			logger.Debug("retrying call",
				zap.String("call", name),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr),
			)
			if err := sleep(ctx, backoff); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
	}
	return fmt.Errorf("%s: %w after %d attempts: %w", name, ErrRetriesExhausted, attempts, lastErr)
}

// Fetch is Do for calls that produce a value.
func Fetch[T any](ctx context.Context, r *Retrier, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := r.Do(ctx, name, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	return sleepCtx(ctx, d)
}
