package sink

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/mbalug7/lora-e32/e32"
)

// failingHook answers every command locally and fails the one named fail.
type failingHook struct {
	fail string
	seen []string
}

func (h *failingHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *failingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.seen = append(h.seen, cmd.Name())
		if cmd.Name() == h.fail {
			err := errors.New("READONLY You can't write against a read only replica.")
			cmd.SetErr(err)
			return err
		}
		return nil
	}
}

func (h *failingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func newHooked(t *testing.T, fail string) (*Redis, *failingHook, *test.Hook) {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { client.Close() })
	h := &failingHook{fail: fail}
	client.AddHook(h)

	log, entries := test.NewNullLogger()
	opts := Options{Channel: "lora_packets", List: "lora_history", ListSize: 10}
	return &Redis{client: client, opts: opts, log: log}, h, entries
}

func TestPublishLogsFailedTrim(t *testing.T) {
	r, h, entries := newHooked(t, "ltrim")
	msg := NewMessage(&e32.Packet{Payload: []byte("x")}, e32.CRC16XMODEM, time.Now())

	if err := r.Publish(context.Background(), msg); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if got := strings.Join(h.seen, ","); got != "publish,lpush,ltrim" {
		t.Errorf("commands = %s", got)
	}
	last := entries.LastEntry()
	if last == nil || last.Level != logrus.WarnLevel || !strings.Contains(last.Message, "failed to trim list lora_history") {
		t.Errorf("last log entry = %+v", last)
	}
}

func TestPublishFailsOnChannel(t *testing.T) {
	r, h, _ := newHooked(t, "publish")
	msg := NewMessage(&e32.Packet{Payload: []byte("x")}, e32.CRC16XMODEM, time.Now())

	if err := r.Publish(context.Background(), msg); err == nil {
		t.Fatal("Publish() error = nil, want the publish failure")
	}
	if len(h.seen) != 1 {
		t.Errorf("commands after failed publish = %v", h.seen)
	}
}
