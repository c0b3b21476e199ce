// Package stream is the Redis Streams transport for worker jobs.
package stream

import (
	"context"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	StreamCampaign = "campaign:jobs"
	StreamReply    = "reply:jobs"
)

// Streams lists every stream the worker consumes.
var Streams = []string{StreamCampaign, StreamReply}

type RedisStream struct {
	client *redis.Client
	group  string
	log    zerolog.Logger
}

func NewRedisStream(client *redis.Client, group string, log zerolog.Logger) *RedisStream {
	return &RedisStream{
		client: client,
		group:  group,
		log:    log,
	}
}

func (s *RedisStream) CreateGroup(ctx context.Context, stream string) error {
	err := s.client.XGroupCreateMkStream(ctx, stream, s.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (s *RedisStream) Publish(ctx context.Context, stream string, data any) (string, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{"data": jsonData},
	}).Result()
}

func (s *RedisStream) Ack(ctx context.Context, stream, id string) error {
	return s.client.XAck(ctx, stream, s.group, id).Err()
}

// Pending returns the total pending count across all job streams.
func (s *RedisStream) Pending(ctx context.Context) (int64, error) {
	var total int64
	for _, stream := range Streams {
		info, err := s.client.XPending(ctx, stream, s.group).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return 0, err
		}
		total += info.Count
	}
	return total, nil
}

// read blocks for up to five seconds waiting for new messages on any
// stream.
func (s *RedisStream) read(ctx context.Context, consumer string) ([]redis.XStream, error) {
	streams := make([]string, 0, len(Streams)*2)
	streams = append(streams, Streams...)
	for range Streams {
		streams = append(streams, ">")
	}

	return s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: consumer,
		Streams:  streams,
		Count:    10,
		Block:    5 * time.Second,
	}).Result()
}
