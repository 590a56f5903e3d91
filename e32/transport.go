package e32

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// readSome performs one port read. Backends that report a read timeout as
// io.EOF are treated as having returned nothing.
func (obj *Driver) readSome(buf []byte) (int, error) {
	n, err := obj.port.Read(buf)
	if errors.Is(err, io.EOF) {
		err = nil
	}
	if err != nil {
		return n, fmt.Errorf("failed to read from serial: %w", err)
	}
	return n, nil
}

// readExact reads until n bytes arrived or the timeout elapsed and returns
// whatever it got. Callers must check the length.
func (obj *Driver) readExact(ctx context.Context, n int, timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		k, err := obj.readSome(buf[:n-len(out)])
		if err != nil {
			return out, err
		}
		out = append(out, buf[:k]...)
		if len(out) >= n {
			break
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		if k == 0 {
			wait := obj.cfg.pollInterval
			if wait > remaining {
				wait = remaining
			}
			if !sleep(ctx, wait) {
				return out, ctx.Err()
			}
		}
	}
	return out, nil
}

// drain reads until the port has nothing more to give.
func (obj *Driver) drain(ctx context.Context) ([]byte, error) {
	var out []byte
	buf := make([]byte, 256)
	for {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		k, err := obj.readSome(buf)
		if err != nil {
			return out, err
		}
		if k == 0 {
			return out, nil
		}
		out = append(out, buf[:k]...)
	}
}

func (obj *Driver) write(p []byte) error {
	n, err := obj.port.Write(p)
	if err != nil {
		return fmt.Errorf("failed to write to serial: %w", err)
	}
	if n != len(p) {
		return fmt.Errorf("failed to write to serial: %w (%d of %d bytes)", io.ErrShortWrite, n, len(p))
	}
	return nil
}

// resetBuffers discards unread input and unsent output so a handshake step
// never parses stale bytes.
func (obj *Driver) resetBuffers() error {
	if err := obj.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("failed to reset input buffer: %w", err)
	}
	if err := obj.port.ResetOutputBuffer(); err != nil {
		return fmt.Errorf("failed to reset output buffer: %w", err)
	}
	return nil
}

func (obj *Driver) resetInput() error {
	if err := obj.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("failed to reset input buffer: %w", err)
	}
	return nil
}
