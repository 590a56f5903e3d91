package e32

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mbalug7/lora-e32/hal"
)

// ConfigureFrame writes frame in config mode and confirms it by reading the
// configuration back. The readback must be 6 bytes and carry the written
// options byte, otherwise a *ConfigurationRejectedError holding the raw
// response is returned. On success the module is back in normal mode and
// the decoded readback is returned.
func (obj *Driver) ConfigureFrame(ctx context.Context, frame ConfigFrame) (ConfigFrame, error) {
	if err := obj.lock(); err != nil {
		return ConfigFrame{}, err
	}
	defer obj.unlock()
	return obj.configureFrame(ctx, frame)
}

func (obj *Driver) configureFrame(ctx context.Context, frame ConfigFrame) (ConfigFrame, error) {
	if err := obj.enterConfig(ctx); err != nil {
		return ConfigFrame{}, err
	}
	if err := obj.resetBuffers(); err != nil {
		return ConfigFrame{}, err
	}
	written := frame.Bytes()
	if err := obj.write(written); err != nil {
		return ConfigFrame{}, fmt.Errorf("failed to write config to the chip: %w", err)
	}
	start := time.Now()
	if !obj.waitForLevel(ctx, hal.High, obj.cfg.responseTimeout) {
		return ConfigFrame{}, obj.linkErr(ctx, "write configuration", ErrLinkNotReady, -1, start)
	}
	if !sleep(ctx, obj.cfg.configGap) {
		return ConfigFrame{}, ctx.Err()
	}
	if err := obj.resetInput(); err != nil {
		return ConfigFrame{}, err
	}

	resp, err := obj.query(ctx, cmdReadConfig, configFrameLen)
	if err != nil {
		return ConfigFrame{}, fmt.Errorf("failed to receive set config response: %w", err)
	}
	if len(resp) != configFrameLen || resp[5] != frame.Options {
		rejected := &ConfigurationRejectedError{Written: written, Response: resp}
		if err := obj.enterNormal(ctx); err != nil {
			return ConfigFrame{}, errors.Join(rejected, err)
		}
		return ConfigFrame{}, rejected
	}
	readback, err := ParseConfigFrame(resp)
	if err != nil {
		return ConfigFrame{}, err
	}
	obj.frame = readback

	if err := obj.enterNormal(ctx); err != nil {
		return readback, err
	}
	return readback, nil
}

// query writes a three byte repeated command and reads up to n bytes back.
func (obj *Driver) query(ctx context.Context, cmd byte, n int) ([]byte, error) {
	if err := obj.write([]byte{cmd, cmd, cmd}); err != nil {
		return nil, err
	}
	return obj.readExact(ctx, n, obj.cfg.responseTimeout)
}

// readRegisters reads one of the module's fixed-size answers in config mode
// and returns to normal mode afterwards.
func (obj *Driver) readRegisters(ctx context.Context, cmd byte, n int) ([]byte, error) {
	if err := obj.enterConfig(ctx); err != nil {
		return nil, err
	}
	if err := obj.resetInput(); err != nil {
		return nil, err
	}
	data, err := obj.query(ctx, cmd, n)
	if err != nil {
		return nil, fmt.Errorf("failed to read config from serial: %w", err)
	}
	if err := obj.enterNormal(ctx); err != nil {
		return data, err
	}
	return data, nil
}

func (obj *Driver) readParameters(ctx context.Context) (ConfigFrame, error) {
	data, err := obj.readRegisters(ctx, cmdReadConfig, configFrameLen)
	if err != nil {
		return ConfigFrame{}, err
	}
	frame, err := ParseConfigFrame(data)
	if err != nil {
		return ConfigFrame{}, err
	}
	obj.frame = frame
	return frame, nil
}

func (obj *Driver) readVersion(ctx context.Context) (Version, error) {
	// Some firmware answers with 4 bytes, some pad to 6; the read waits
	// for 6 and accepts what arrived.
	data, err := obj.readRegisters(ctx, cmdReadVersion, 6)
	if err != nil {
		return Version{}, err
	}
	return ParseVersion(data)
}

// restart sends C4 C4 C4 and waits for the module to come back before
// returning to normal mode.
func (obj *Driver) restart(ctx context.Context) error {
	if err := obj.enterConfig(ctx); err != nil {
		return err
	}
	if err := obj.resetBuffers(); err != nil {
		return err
	}
	if err := obj.write([]byte{cmdReset, cmdReset, cmdReset}); err != nil {
		return fmt.Errorf("failed to write reset command: %w", err)
	}
	obj.known = false
	if !sleep(ctx, obj.cfg.settleDelay) {
		return ctx.Err()
	}
	start := time.Now()
	if !obj.waitForLevel(ctx, hal.High, obj.cfg.modeTimeout) {
		return obj.linkErr(ctx, "restart", ErrModeTransitionTimeout, -1, start)
	}
	return obj.enterNormal(ctx)
}

// ReadParameters reads the 6 byte configuration with C1 C1 C1.
func (obj *Driver) ReadParameters(ctx context.Context) (ConfigFrame, error) {
	if err := obj.lock(); err != nil {
		return ConfigFrame{}, err
	}
	defer obj.unlock()
	return obj.readParameters(ctx)
}

// ReadVersion reads the version block with C3 C3 C3.
func (obj *Driver) ReadVersion(ctx context.Context) (Version, error) {
	if err := obj.lock(); err != nil {
		return Version{}, err
	}
	defer obj.unlock()
	return obj.readVersion(ctx)
}
