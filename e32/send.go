package e32

import (
	"context"
	"fmt"
	"time"

	"github.com/mbalug7/lora-e32/hal"
)

// MaxChunkSize is the largest write the module transmits as one frame.
const MaxChunkSize = 58

// Chunks splits payload into consecutive slices of at most size bytes.
// Only the last one may be shorter.
func Chunks(payload []byte, size int) [][]byte {
	if size <= 0 || len(payload) == 0 {
		return nil
	}
	out := make([][]byte, 0, (len(payload)+size-1)/size)
	for i := 0; i < len(payload); i += size {
		end := i + size
		if end > len(payload) {
			end = len(payload)
		}
		out = append(out, payload[i:end:end])
	}
	return out
}

// Send transmits payload in chunks of the configured size.
func (obj *Driver) Send(ctx context.Context, payload []byte) error {
	if err := obj.lock(); err != nil {
		return err
	}
	defer obj.unlock()
	return obj.send(ctx, payload, obj.cfg.chunkSize)
}

// SendChunked transmits payload in chunks of at most maxChunk bytes.
func (obj *Driver) SendChunked(ctx context.Context, payload []byte, maxChunk int) error {
	if maxChunk <= 0 || maxChunk > MaxChunkSize {
		return fmt.Errorf("%w: %d (allowed 1..%d)", ErrInvalidChunkSize, maxChunk, MaxChunkSize)
	}
	if err := obj.lock(); err != nil {
		return err
	}
	defer obj.unlock()
	return obj.send(ctx, payload, maxChunk)
}

// send gates every chunk on AUX: ready before the write, then a busy to
// ready edge confirming the module put it on air. The first failure aborts
// the whole payload.
func (obj *Driver) send(ctx context.Context, payload []byte, size int) error {
	return obj.sendChunks(ctx, Chunks(payload, size))
}

func (obj *Driver) sendChunks(ctx context.Context, chunks [][]byte) error {
	if err := obj.ensureNormal(ctx); err != nil {
		return err
	}
	for i, chunk := range chunks {
		start := time.Now()
		if !obj.waitForLevel(ctx, hal.High, obj.cfg.readyTimeout) {
			return obj.linkErr(ctx, "send", ErrLinkNotReady, i, start)
		}
		if err := obj.write(chunk); err != nil {
			return fmt.Errorf("failed to send chunk %d: %w", i, err)
		}
		start = time.Now()
		if !obj.waitForBusyThenReady(ctx, obj.cfg.transmitTimeout) {
			return obj.linkErr(ctx, "send", ErrTransmitIncomplete, i, start)
		}
	}
	return nil
}

// fixedPrefixLen is the target address and channel leading every frame in
// fixed transmission.
const fixedPrefixLen = 3

// SendFixed sends payload to one module in fixed transmission. Every chunk
// carries the target address and channel, so it holds at most
// MaxChunkSize-3 payload bytes. The module must be configured with
// TRANSMISSION_FIXED.
func (obj *Driver) SendFixed(ctx context.Context, addressHigh, addressLow, channel byte, payload []byte) error {
	if err := obj.lock(); err != nil {
		return err
	}
	defer obj.unlock()
	if !obj.frame.FixedTransmission() {
		return fmt.Errorf("can't send fixed message while module has transparent transmission: %w", ErrUnsupported)
	}

	size := obj.cfg.chunkSize
	if size > MaxChunkSize-fixedPrefixLen {
		size = MaxChunkSize - fixedPrefixLen
	}
	chunks := Chunks(payload, size)
	for i, c := range chunks {
		framed := make([]byte, 0, fixedPrefixLen+len(c))
		framed = append(framed, addressHigh, addressLow, channel)
		chunks[i] = append(framed, c...)
	}
	return obj.sendChunks(ctx, chunks)
}
