package e32

import (
	"context"
	"fmt"
	"time"

	"github.com/mbalug7/lora-e32/hal"
)

// poll samples AUX until cond accepts a level, the timeout elapses or ctx
// ends. Sleeps are capped at the remaining time, so the last sample is
// taken no later than one poll interval after the deadline.
func (obj *Driver) poll(ctx context.Context, timeout time.Duration, cond func(hal.Level) bool) bool {
	deadline := time.Now().Add(timeout)
	for {
		if cond(obj.lines.Status()) {
			return true
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		wait := obj.cfg.pollInterval
		if wait > remaining {
			wait = remaining
		}
		if !sleep(ctx, wait) {
			return false
		}
	}
}

func (obj *Driver) waitForLevel(ctx context.Context, level hal.Level, timeout time.Duration) bool {
	return obj.poll(ctx, timeout, func(l hal.Level) bool { return l == level })
}

// waitForBusyThenReady needs AUX Low at least once and then High again
// inside the same window. A line that simply stays High never satisfies it.
func (obj *Driver) waitForBusyThenReady(ctx context.Context, timeout time.Duration) bool {
	sawBusy := false
	return obj.poll(ctx, timeout, func(l hal.Level) bool {
		if l == hal.Low {
			sawBusy = true
			return false
		}
		return sawBusy
	})
}

// WaitForLevel blocks until AUX reads level or the timeout elapses.
func (obj *Driver) WaitForLevel(ctx context.Context, level hal.Level, timeout time.Duration) bool {
	if err := obj.lock(); err != nil {
		return false
	}
	defer obj.unlock()
	return obj.waitForLevel(ctx, level, timeout)
}

// linkErr builds the error for a wait that returned false. A cancelled
// context takes precedence over the timeout.
func (obj *Driver) linkErr(ctx context.Context, op string, kind error, chunk int, start time.Time) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return &LinkError{Op: op, Kind: kind, Chunk: chunk, Elapsed: time.Since(start)}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
