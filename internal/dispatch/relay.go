package dispatch

import (
	"context"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

// ChannelPrefix namespaces room channels on Redis pub/sub.
const ChannelPrefix = "notifications:"

func Channel(room string) string { return ChannelPrefix + room }

// RedisRelay feeds the local hub from Redis pub/sub so every API instance
// sees notifications published anywhere.
type RedisRelay struct {
	client *redis.Client
	hub    *Hub
	logger *slog.Logger
}

func NewRedisRelay(client *redis.Client, hub *Hub, logger *slog.Logger) *RedisRelay {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisRelay{client: client, hub: hub, logger: logger}
}

// Run blocks until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.PSubscribe(ctx, ChannelPrefix+"*")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	r.logger.Info("redis relay subscribed", "pattern", ChannelPrefix+"*")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			room := strings.TrimPrefix(msg.Channel, ChannelPrefix)
			r.hub.Deliver(room, msg.Payload)
		}
	}
}
