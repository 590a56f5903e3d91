// Package e32 drives an EBYTE E32 style half-duplex UART radio: mode
// switching over M0/M1, AUX synchronisation, the configuration handshake
// and chunked transfers bounded by the module's 58 byte frame.
//
// The package never logs. Every failure is returned as a typed error that
// matches one of the Err* sentinels with errors.Is.
package e32

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mbalug7/lora-e32/hal"
)

// Driver owns the module's lines and UART for its whole lifetime. All
// operations are serialized; the AUX line and the UART buffers are shared
// by every protocol step.
type Driver struct {
	mu     sync.Mutex
	lines  hal.Lines
	port   hal.Port
	cfg    settings
	mode   hal.Mode
	known  bool
	frame  ConfigFrame
	closed bool

	// bytes received after the last decoded packet
	pending []byte
}

// Open takes ownership of lines and port, puts the module into normal mode
// and runs the dialect's configuration handshake. If any step fails both
// lines and port are released before the error is returned.
func Open(ctx context.Context, lines hal.Lines, port hal.Port, opts ...Option) (*Driver, error) {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}
	obj := &Driver{
		lines: lines,
		port:  port,
		cfg:   cfg,
	}
	if cfg.chunkSize < 1 || cfg.chunkSize > MaxChunkSize {
		return nil, errors.Join(fmt.Errorf("%w: %d", ErrInvalidChunkSize, cfg.chunkSize), obj.release())
	}

	if err := obj.init(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to initialize module: %w", err), obj.release())
	}
	return obj, nil
}

func (obj *Driver) init(ctx context.Context) error {
	if err := obj.enterNormal(ctx); err != nil {
		return err
	}
	if obj.cfg.skipConfigure {
		return nil
	}
	return obj.cfg.dialect.configure(ctx, obj)
}

// Close stops driving the mode lines and closes the UART. It is safe to
// call more than once.
func (obj *Driver) Close() error {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	if obj.closed {
		return nil
	}
	return obj.release()
}

func (obj *Driver) release() error {
	obj.closed = true
	obj.known = false
	var errs []error
	if err := obj.port.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close serial port: %w", err))
	}
	if err := obj.lines.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to release gpio lines: %w", err))
	}
	return errors.Join(errs...)
}

// lock acquires the driver for one protocol operation.
func (obj *Driver) lock() error {
	obj.mu.Lock()
	if obj.closed {
		obj.mu.Unlock()
		return ErrClosed
	}
	return nil
}

func (obj *Driver) unlock() { obj.mu.Unlock() }

func (obj *Driver) Dialect() Dialect { return obj.cfg.dialect }

func (obj *Driver) Checksum() Checksum { return obj.cfg.checksum }

func (obj *Driver) ChunkSize() int { return obj.cfg.chunkSize }

// Configure re-runs the dialect's configuration handshake.
func (obj *Driver) Configure(ctx context.Context) error {
	if err := obj.lock(); err != nil {
		return err
	}
	defer obj.unlock()
	return obj.cfg.dialect.configure(ctx, obj)
}

// Parameters returns the module's current configuration as the dialect
// reports it: the 6 byte frame for Binary, the response text for AT.
func (obj *Driver) Parameters(ctx context.Context) ([]byte, error) {
	if err := obj.lock(); err != nil {
		return nil, err
	}
	defer obj.unlock()
	return obj.cfg.dialect.parameters(ctx, obj)
}

// Version returns the module's raw version response.
func (obj *Driver) Version(ctx context.Context) ([]byte, error) {
	if err := obj.lock(); err != nil {
		return nil, err
	}
	defer obj.unlock()
	return obj.cfg.dialect.version(ctx, obj)
}

// Restart soft-resets the module and returns it to normal mode.
func (obj *Driver) Restart(ctx context.Context) error {
	if err := obj.lock(); err != nil {
		return err
	}
	defer obj.unlock()
	return obj.cfg.dialect.reset(ctx, obj)
}

// Frame returns the configuration the module last confirmed, by a
// handshake or a parameter readback. It is the zero frame before either and
// under the AT dialect.
func (obj *Driver) Frame() ConfigFrame {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	return obj.frame
}

// Configuration describes the last configuration the module confirmed.
func (obj *Driver) Configuration() string {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	if obj.frame.Head == 0 {
		return "unconfirmed"
	}
	return obj.frame.String()
}
