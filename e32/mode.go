package e32

import (
	"context"
	"fmt"
	"time"

	"github.com/mbalug7/lora-e32/hal"
)

// setMode drives M0/M1, waits for AUX to report ready and lets the module
// settle. The mode is only recorded once all three steps have passed.
func (obj *Driver) setMode(ctx context.Context, mode hal.Mode) error {
	m0, m1, ok := hal.LinesForMode(mode)
	if !ok {
		return fmt.Errorf("unknown chip mode %d", mode)
	}
	obj.known = false
	if err := obj.lines.SetSelect(m0, m1); err != nil {
		return fmt.Errorf("failed to set chip mode %s: %w", hal.ModeName(mode), err)
	}
	start := time.Now()
	if !obj.waitForLevel(ctx, hal.High, obj.cfg.modeTimeout) {
		return obj.linkErr(ctx, "set mode "+hal.ModeName(mode), ErrModeTransitionTimeout, -1, start)
	}
	if !sleep(ctx, obj.cfg.settleDelay) {
		return fmt.Errorf("set mode %s: %w", hal.ModeName(mode), ctx.Err())
	}
	obj.mode, obj.known = mode, true
	return nil
}

func (obj *Driver) enterNormal(ctx context.Context) error {
	return obj.setMode(ctx, hal.ModeNormal)
}

func (obj *Driver) enterConfig(ctx context.Context) error {
	return obj.setMode(ctx, hal.ModeConfig)
}

// ensureNormal is a no-op when normal mode was already confirmed.
func (obj *Driver) ensureNormal(ctx context.Context) error {
	if obj.known && obj.mode == hal.ModeNormal {
		return nil
	}
	return obj.enterNormal(ctx)
}

// SetMode switches the module to mode. Serial I/O must not be attempted in
// a mode the caller has not confirmed through this call.
func (obj *Driver) SetMode(ctx context.Context, mode hal.Mode) error {
	if err := obj.lock(); err != nil {
		return err
	}
	defer obj.unlock()
	return obj.setMode(ctx, mode)
}

// Mode reports the mode selected by the levels currently driven on M0/M1.
func (obj *Driver) Mode() hal.Mode {
	m0, m1 := obj.lines.Selected()
	return hal.ModeFromLines(m0, m1)
}
