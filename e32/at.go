package e32

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mbalug7/lora-e32/hal"
)

const (
	atTerminator = "\r\n"
	atError      = "ERROR"
)

// ATSettings are the parameters written by the text dialect.
type ATSettings struct {
	Address   int
	NetworkID int
	// Parameter is spreading factor, bandwidth, coding rate and preamble.
	Parameter [4]int
	Power     int
}

func DefaultATSettings() ATSettings {
	return ATSettings{
		Address:   0,
		NetworkID: 0,
		Parameter: [4]int{12, 7, 1, 4},
		Power:     15,
	}
}

// Commands returns the configuration commands in the order they are sent.
func (s ATSettings) Commands() []string {
	return []string{
		fmt.Sprintf("AT+ADDRESS=%d", s.Address),
		fmt.Sprintf("AT+NETWORKID=%d", s.NetworkID),
		fmt.Sprintf("AT+PARAMETER=%d,%d,%d,%d", s.Parameter[0], s.Parameter[1], s.Parameter[2], s.Parameter[3]),
		fmt.Sprintf("AT+POWER=%d", s.Power),
	}
}

type atDialect struct {
	settings ATSettings
}

// AT is the newline terminated text dialect. A command fails when its
// response contains ERROR within the response window.
func AT(settings ATSettings) Dialect {
	return &atDialect{settings: settings}
}

func (a *atDialect) Name() string { return "at" }

func (a *atDialect) configure(ctx context.Context, d *Driver) error {
	for _, cmd := range a.settings.Commands() {
		if _, err := d.command(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

func (a *atDialect) parameters(ctx context.Context, d *Driver) ([]byte, error) {
	resp, err := d.command(ctx, "AT+PARAMETER?")
	return []byte(resp), err
}

func (a *atDialect) version(ctx context.Context, d *Driver) ([]byte, error) {
	resp, err := d.command(ctx, "AT+VER?")
	return []byte(resp), err
}

func (a *atDialect) reset(ctx context.Context, d *Driver) error {
	if _, err := d.command(ctx, "AT+RESET"); err != nil {
		return err
	}
	d.known = false
	return d.enterNormal(ctx)
}

// command sends one text command once AUX reports ready and collects its
// response.
func (obj *Driver) command(ctx context.Context, cmd string) (string, error) {
	if err := obj.ensureNormal(ctx); err != nil {
		return "", err
	}
	start := time.Now()
	if !obj.waitForLevel(ctx, hal.High, obj.cfg.readyTimeout) {
		return "", obj.linkErr(ctx, cmd, ErrLinkNotReady, -1, start)
	}
	if err := obj.resetInput(); err != nil {
		return "", err
	}
	if err := obj.write([]byte(cmd + atTerminator)); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", cmd, err)
	}
	resp, err := obj.collect(ctx, obj.cfg.atResponseWindow)
	if err != nil {
		return resp, fmt.Errorf("failed to read %s response: %w", cmd, err)
	}
	if strings.Contains(resp, atError) {
		return resp, &CommandRejectedError{Command: cmd, Response: resp}
	}
	return strings.TrimSpace(resp), nil
}

// collect gathers response text until a complete line has arrived or the
// window closes.
func (obj *Driver) collect(ctx context.Context, window time.Duration) (string, error) {
	deadline := time.Now().Add(window)
	var out []byte
	buf := make([]byte, 128)
	for {
		k, err := obj.readSome(buf)
		if err != nil {
			return string(out), err
		}
		out = append(out, buf[:k]...)
		if k > 0 && bytes.HasSuffix(out, []byte(atTerminator)) {
			return string(out), nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return string(out), nil
		}
		if k == 0 {
			wait := obj.cfg.pollInterval
			if wait > remaining {
				wait = remaining
			}
			if !sleep(ctx, wait) {
				return string(out), ctx.Err()
			}
		}
	}
}

// RSSI queries the last packet's signal strength. Only the AT dialect
// supports it.
func (obj *Driver) RSSI(ctx context.Context) (string, error) {
	if err := obj.lock(); err != nil {
		return "", err
	}
	defer obj.unlock()
	if _, ok := obj.cfg.dialect.(*atDialect); !ok {
		return "", fmt.Errorf("rssi: %w", ErrUnsupported)
	}
	return obj.command(ctx, "AT+RRSI?")
}
