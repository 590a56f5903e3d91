package e32

import (
	"context"
	"testing"
	"time"

	"github.com/mbalug7/lora-e32/hal"
)

func TestWaitForLevelTimeoutBound(t *testing.T) {
	poll := 5 * time.Millisecond
	d, radio := openStub(t, WithPollInterval(poll))
	radio.Stick(true)

	for _, timeout := range []time.Duration{0, 12 * time.Millisecond, 40 * time.Millisecond} {
		start := time.Now()
		if d.WaitForLevel(context.Background(), hal.High, timeout) {
			t.Fatalf("WaitForLevel(High, %s) = true on a stuck line", timeout)
		}
		elapsed := time.Since(start)
		if elapsed < timeout {
			t.Errorf("WaitForLevel(High, %s) returned after %s", timeout, elapsed)
		}
		// one poll interval plus scheduling slack
		if limit := timeout + poll + 25*time.Millisecond; elapsed > limit {
			t.Errorf("WaitForLevel(High, %s) took %s, limit %s", timeout, elapsed, limit)
		}
	}
}

func TestWaitForLevelImmediate(t *testing.T) {
	d, _ := openStub(t)
	if !d.WaitForLevel(context.Background(), hal.High, 0) {
		t.Error("WaitForLevel(High, 0) = false on an idle module")
	}
}

func TestWaitForLevelCancelled(t *testing.T) {
	d, radio := openStub(t)
	radio.Stick(true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if d.WaitForLevel(ctx, hal.High, time.Second) {
		t.Fatal("WaitForLevel() = true with a cancelled context")
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("cancelled wait took %s", elapsed)
	}
}

func TestWaitForBusyThenReady(t *testing.T) {
	d, radio := openStub(t)
	ctx := context.Background()

	// idle high never counts as a completed transmission
	if d.waitForBusyThenReady(ctx, 20*time.Millisecond) {
		t.Error("waitForBusyThenReady() = true without a busy period")
	}

	radio.Deliver([]byte("x"))
	if !d.waitForBusyThenReady(ctx, 50*time.Millisecond) {
		t.Error("waitForBusyThenReady() = false across a busy period")
	}

	radio.Stick(true)
	if d.waitForBusyThenReady(ctx, 20*time.Millisecond) {
		t.Error("waitForBusyThenReady() = true while stuck busy")
	}
}
