// Package sink forwards received packets to Redis: every packet is
// published on a pub/sub channel and optionally kept in a capped list.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/mbalug7/lora-e32/e32"
)

// Message is the JSON document published for each packet.
type Message struct {
	Name       string    `json:"name,omitempty"`
	Payload    []byte    `json:"payload"`
	Length     int       `json:"length"`
	Checksum   uint32    `json:"checksum"`
	Algorithm  string    `json:"algorithm"`
	ReceivedAt time.Time `json:"received_at"`
}

func NewMessage(pkt *e32.Packet, sum e32.Checksum, at time.Time) Message {
	return Message{
		Name:       pkt.Name,
		Payload:    pkt.Payload,
		Length:     len(pkt.Payload),
		Checksum:   pkt.Checksum,
		Algorithm:  sum.Name(),
		ReceivedAt: at.UTC(),
	}
}

type Options struct {
	Addr     string
	Password string
	DB       int
	Channel  string
	List     string
	ListSize int64
}

type Redis struct {
	client *redis.Client
	opts   Options
	log    *logrus.Logger
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, opts Options, log *logrus.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Infof("redis connected at %s", opts.Addr)
	return &Redis{client: client, opts: opts, log: log}, nil
}

// Publish sends msg on the channel and pushes it to the list. A failed list
// write or trim is logged, not returned.
func (obj *Redis) Publish(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	if obj.opts.Channel != "" {
		if err := obj.client.Publish(ctx, obj.opts.Channel, data).Err(); err != nil {
			return fmt.Errorf("failed to publish message: %w", err)
		}
	}

	if obj.opts.List == "" {
		return nil
	}
	if err := obj.client.LPush(ctx, obj.opts.List, data).Err(); err != nil {
		obj.log.Warnf("failed to push to list %s: %v", obj.opts.List, err)
		return nil
	}
	if obj.opts.ListSize > 0 {
		if err := obj.client.LTrim(ctx, obj.opts.List, 0, obj.opts.ListSize-1).Err(); err != nil {
			obj.log.Warnf("failed to trim list %s: %v", obj.opts.List, err)
		}
	}
	return nil
}

func (obj *Redis) Close() error {
	return obj.client.Close()
}
