package bus

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultChannel is the Redis pub/sub channel carrying hub events.
const DefaultChannel = "atrium:events"

// Redis is the cross-process bus transport over Redis pub/sub. Every
// process sees every event; routers filter by participation themselves.
type Redis struct {
	client  *redis.Client
	channel string
	logger  zerolog.Logger
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, redisURL, channel string, logger zerolog.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	if channel == "" {
		channel = DefaultChannel
	}
	return &Redis{client: client, channel: channel, logger: logger}, nil
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Publish serializes the event and publishes it on the shared channel.
func (r *Redis) Publish(ctx context.Context, ev Event) error {
	data, err := Encode(ev)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, data).Err()
}

// Subscribe starts a pub/sub consumer invoking h for each decoded event.
// Undecodable payloads are logged and skipped.
func (r *Redis) Subscribe(h Handler) func() {
	ps := r.client.Subscribe(context.Background(), r.channel)

	go func() {
		for msg := range ps.Channel() {
			ev, err := Decode([]byte(msg.Payload))
			if err != nil {
				r.logger.Warn().Err(err).Msg("dropping undecodable bus event")
				continue
			}
			h(context.Background(), ev)
		}
	}()

	return func() {
		if err := ps.Close(); err != nil {
			r.logger.Warn().Err(err).Msg("closing bus subscription")
		}
	}
}
