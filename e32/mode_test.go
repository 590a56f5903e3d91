package e32

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mbalug7/lora-e32/hal"
	"github.com/mbalug7/lora-e32/hal/stub"
)

func TestSetMode(t *testing.T) {
	tests := []struct {
		mode   hal.Mode
		m0, m1 hal.Level
	}{
		{hal.ModeNormal, hal.Low, hal.Low},
		{hal.ModeWakeUp, hal.High, hal.Low},
		{hal.ModePowerSave, hal.Low, hal.High},
		{hal.ModeSleep, hal.High, hal.High},
	}
	d, radio := openStub(t)
	for _, tt := range tests {
		t.Run(hal.ModeName(tt.mode), func(t *testing.T) {
			if err := d.SetMode(context.Background(), tt.mode); err != nil {
				t.Fatalf("SetMode() error = %v", err)
			}
			if got := d.Mode(); got != tt.mode {
				t.Errorf("Mode() = %s, want %s", hal.ModeName(got), hal.ModeName(tt.mode))
			}
			if m0, m1 := d.lines.Selected(); m0 != tt.m0 || m1 != tt.m1 {
				t.Errorf("M0/M1 = %s/%s, want %s/%s", m0, m1, tt.m0, tt.m1)
			}
			if got := radio.Mode(); got != tt.mode {
				t.Errorf("module mode = %s, want %s", hal.ModeName(got), hal.ModeName(tt.mode))
			}
		})
	}
}

func TestSetModeTimeout(t *testing.T) {
	d, radio := openStub(t, WithModeTimeout(15*time.Millisecond))
	radio.Stick(true)

	err := d.SetMode(context.Background(), hal.ModeSleep)
	if !errors.Is(err, ErrModeTransitionTimeout) {
		t.Fatalf("SetMode() error = %v, want ErrModeTransitionTimeout", err)
	}
	var linkErr *LinkError
	if !errors.As(err, &linkErr) {
		t.Fatalf("SetMode() error %T is not a *LinkError", err)
	}
	if linkErr.Chunk != -1 {
		t.Errorf("Chunk = %d, want -1", linkErr.Chunk)
	}
	if linkErr.Elapsed < 15*time.Millisecond {
		t.Errorf("Elapsed = %s, want at least the mode timeout", linkErr.Elapsed)
	}
}

func TestSetModeSelectError(t *testing.T) {
	d, radio := openStub(t)
	boom := errors.New("line write failed")
	radio.FailSelect(boom)

	if err := d.SetMode(context.Background(), hal.ModeSleep); !errors.Is(err, boom) {
		t.Fatalf("SetMode() error = %v, want %v", err, boom)
	}
	// the failed transition must not leave normal mode marked as confirmed
	radio.FailSelect(nil)
	radio.ClearEvents()
	if err := d.Send(context.Background(), []byte("x")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	events := radio.Events()
	if len(events) == 0 || events[0].Kind != stub.EventSelect {
		t.Errorf("Send() after a failed transition did not reselect normal mode")
	}
}
