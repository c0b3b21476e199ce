package stream

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"campaign_worker/adapter/in/worker"
)

// Consumer reads jobs from the worker streams and dispatches them. Stuck
// pending messages are reclaimed; jobs that keep failing move to a dead
// letter stream.
type Consumer struct {
	stream  *RedisStream
	handler *worker.Handler
	name    string
	log     zerolog.Logger

	pendingCheckInterval time.Duration
	pendingIdleTime      time.Duration
	maxRetries           int
}

func NewConsumer(stream *RedisStream, handler *worker.Handler, name string, log zerolog.Logger) *Consumer {
	return &Consumer{
		stream:               stream,
		handler:              handler,
		name:                 name,
		log:                  log,
		pendingCheckInterval: 30 * time.Second,
		pendingIdleTime:      2 * time.Minute,
		maxRetries:           3,
	}
}

// Run consumes until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Info().
		Str("group", c.stream.group).
		Str("consumer", c.name).
		Strs("streams", Streams).
		Msg("starting consumer")

	for _, stream := range Streams {
		if err := c.stream.CreateGroup(ctx, stream); err != nil {
			c.log.Error().Err(err).Str("stream", stream).Msg("failed to create consumer group")
		}
	}

	go c.processPendingMessages(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		result, err := c.stream.read(ctx, c.name)
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			c.log.Error().Err(err).Msg("error reading from streams")
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range result {
			for _, msg := range stream.Messages {
				if err := c.processMessage(ctx, stream.Stream, msg); err != nil {
					c.log.Error().
						Err(err).
						Str("stream", stream.Stream).
						Str("id", msg.ID).
						Msg("error processing message")
					continue
				}

				if err := c.stream.Ack(ctx, stream.Stream, msg.ID); err != nil {
					c.log.Error().
						Err(err).
						Str("stream", stream.Stream).
						Str("id", msg.ID).
						Msg("error acknowledging message")
				}
			}
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, stream string, msg redis.XMessage) error {
	data, ok := msg.Values["data"].(string)
	if !ok {
		// Malformed entry; ack so it does not stay pending forever.
		return c.stream.Ack(ctx, stream, msg.ID)
	}

	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		c.log.Error().Err(err).Str("id", msg.ID).Msg("failed to unmarshal job")
		return c.stream.Ack(ctx, stream, msg.ID)
	}

	return c.handler.Process(ctx, &worker.Message{
		ID:        job.ID,
		Type:      job.Type,
		Payload:   job.Payload,
		CreatedAt: job.CreatedAt,
	})
}

// processPendingMessages periodically reclaims messages another consumer
// picked up but never acknowledged.
func (c *Consumer) processPendingMessages(ctx context.Context) {
	ticker := time.NewTicker(c.pendingCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.claimAndProcessPending(ctx)
		}
	}
}

func (c *Consumer) claimAndProcessPending(ctx context.Context) {
	for _, stream := range Streams {
		pending, err := c.stream.client.XPendingExt(ctx, &redis.XPendingExtArgs{
			Stream: stream,
			Group:  c.stream.group,
			Start:  "-",
			End:    "+",
			Count:  100,
		}).Result()
		if err != nil {
			if err != redis.Nil {
				c.log.Error().Err(err).Str("stream", stream).Msg("error listing pending messages")
			}
			continue
		}

		for _, p := range pending {
			if p.Idle < c.pendingIdleTime {
				continue
			}

			if int(p.RetryCount) >= c.maxRetries {
				c.log.Warn().
					Str("stream", stream).
					Str("id", p.ID).
					Int64("retries", p.RetryCount).
					Msg("message exceeded max retries, moving to dead letter stream")
				if err := c.moveToDeadLetter(ctx, stream, p.ID); err != nil {
					c.log.Error().Err(err).Str("id", p.ID).Msg("error moving message to dead letter stream")
				}
				c.stream.Ack(ctx, stream, p.ID)
				continue
			}

			claimed, err := c.stream.client.XClaim(ctx, &redis.XClaimArgs{
				Stream:   stream,
				Group:    c.stream.group,
				Consumer: c.name,
				MinIdle:  c.pendingIdleTime,
				Messages: []string{p.ID},
			}).Result()
			if err != nil {
				if err != redis.Nil {
					c.log.Error().Err(err).Str("id", p.ID).Msg("error claiming pending message")
				}
				continue
			}

			for _, msg := range claimed {
				c.log.Info().
					Str("stream", stream).
					Str("id", msg.ID).
					Int64("retry", p.RetryCount).
					Msg("reprocessing pending message")
				if err := c.processMessage(ctx, stream, msg); err != nil {
					c.log.Error().Err(err).Str("id", msg.ID).Msg("error reprocessing pending message")
					continue
				}
				c.stream.Ack(ctx, stream, msg.ID)
			}
		}
	}
}

func (c *Consumer) moveToDeadLetter(ctx context.Context, stream, id string) error {
	msgs, err := c.stream.client.XRange(ctx, stream, id, id).Result()
	if err != nil || len(msgs) == 0 {
		return err
	}

	return c.stream.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream + ":dead",
		Values: msgs[0].Values,
	}).Err()
}
