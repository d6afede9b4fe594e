package publisher

import (
	"context"
	"encoding/base64"
	"strconv"

	"math/rand"

	"github.com/redis/go-redis/v9"

	"sjsage522/keypriceworker/logger"
)

// RedisPublisher implements Publisher using Redis streams
type RedisPublisher struct {
	client          *redis.Client
	ctx             context.Context
	streamPrefix    string
	streamCount     int
	streamMaxLength int
}

// NewRedisPublisher creates a new Redis publisher
func NewRedisPublisher(ctx context.Context, addr string, db int, streamPrefix string, streamCount int, streamMaxLength int) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	if streamCount < 1 {
		streamCount = 1
	}

	return &RedisPublisher{
		client:          client,
		ctx:             ctx,
		streamPrefix:    streamPrefix,
		streamCount:     streamCount,
		streamMaxLength: streamMaxLength,
	}
}

// Ping checks the Redis connection
func (p *RedisPublisher) Ping() error {
	return p.client.Ping(p.ctx).Err()
}

// Stream returns the stream a message is written to. With a stream count
// of 10, names go from prefix:0 to prefix:9.
func (p *RedisPublisher) Stream() string {
	if p.streamCount == 1 {
		return p.streamPrefix + ":0"
	}
	return p.streamPrefix + ":" + strconv.Itoa(rand.Intn(p.streamCount))
}

// Publish publishes a message to a Redis stream.
// The message is base64 encoded before publishing.
func (p *RedisPublisher) Publish(key string, message []byte) error {
	encodedMessage := base64.StdEncoding.EncodeToString(message)
	stream := p.Stream()

	logger.ForPublisher().Debug().
		Str("stream", stream).
		Str("key", key).
		Int("bytes", len(message)).
		Msg("Publishing message")

	return p.client.XAdd(p.ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			key: encodedMessage,
		},
	}).Err()
}

// TrimStreams trims all streams to the configured maximum length
func (p *RedisPublisher) TrimStreams() error {
	streams, err := p.client.Keys(p.ctx, p.streamPrefix+":*").Result()
	if err != nil {
		return err
	}

	for _, stream := range streams {
		if err := p.client.XTrimMaxLen(p.ctx, stream, int64(p.streamMaxLength)).Err(); err != nil {
			return err
		}
	}

	return nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
