package pipeline

import (
	"context"
	"time"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
	maxAttempts    = 4
)

// Watch runs once immediately and then once per trigger until ctx is
// cancelled. A failed run is retried with exponential backoff, since a
// harvester may still be writing the artifact; after maxAttempts the loop
// waits for the next trigger.
func (p *Pipeline) Watch(ctx context.Context, triggers <-chan struct{}) error {
	p.logger.Info("watch started")
	p.metrics.WatchActive.Set(1)
	defer p.metrics.WatchActive.Set(0)

	if !p.runWithRetry(ctx) {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("watch stopping", "reason", ctx.Err())
			return nil
		case _, ok := <-triggers:
			if !ok {
				p.logger.Info("watch stopping", "reason", "trigger channel closed")
				return nil
			}
			if !p.runWithRetry(ctx) {
				return nil
			}
		}
	}
}

// runWithRetry returns false if the loop should stop.
func (p *Pipeline) runWithRetry(ctx context.Context) bool {
	backoff := initialBackoff
	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return false
		}
		_, err := p.RunOnce(ctx)
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		if attempt == maxAttempts {
			p.logger.Error("run failed, waiting for next trigger", "error", err, "attempts", attempt)
			return true
		}
		p.logger.Warn("run failed, retrying", "error", err, "attempt", attempt, "backoff", backoff)
		if !sleepWithContext(ctx, backoff) {
			return false
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
