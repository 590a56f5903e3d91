package e32

import (
	"context"
	"time"

	"github.com/mbalug7/lora-e32/hal"
)

// Receive collects one burst using the configured receive timeout and
// inter-packet window. A nil slice with a nil error means nothing arrived.
func (obj *Driver) Receive(ctx context.Context) ([]byte, error) {
	if err := obj.lock(); err != nil {
		return nil, err
	}
	defer obj.unlock()
	return obj.receive(ctx, obj.cfg.receiveTimeout, obj.cfg.interPacketWindow)
}

// ReceiveWithin collects one burst. Data is drained whenever AUX is ready;
// once something has arrived, the burst ends when AUX does not drop to busy
// within window. An idle link returns nil after about overall.
func (obj *Driver) ReceiveWithin(ctx context.Context, overall, window time.Duration) ([]byte, error) {
	if err := obj.lock(); err != nil {
		return nil, err
	}
	defer obj.unlock()
	return obj.receive(ctx, overall, window)
}

func (obj *Driver) receive(ctx context.Context, overall, window time.Duration) ([]byte, error) {
	if err := obj.ensureNormal(ctx); err != nil {
		return nil, err
	}
	deadline := time.Now().Add(overall)
	var acc []byte
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		if !obj.waitForLevel(ctx, hal.High, remaining) {
			break
		}
		data, err := obj.drain(ctx)
		if err != nil {
			return acc, err
		}
		acc = append(acc, data...)

		if len(acc) == 0 {
			wait := obj.cfg.pollInterval
			if r := time.Until(deadline); wait > r {
				wait = r
			}
			if !sleep(ctx, wait) {
				break
			}
			continue
		}

		watch := window
		if r := time.Until(deadline); watch > r {
			watch = r
		}
		if watch <= 0 || !obj.waitForLevel(ctx, hal.Low, watch) {
			break
		}
	}
	if err := ctx.Err(); err != nil {
		return acc, err
	}
	if len(acc) == 0 {
		return nil, nil
	}
	return acc, nil
}
