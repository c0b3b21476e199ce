package worker

import (
	"context"
	"time"

	"campaign_worker/pkg/logger"
)

// ReplyCheckPublisher enqueues reply-check sweeps.
type ReplyCheckPublisher interface {
	PublishReplyCheck(ctx context.Context) (string, error)
}

// ReplyCheckScheduler publishes a reply.check job on a fixed interval.
// Publishing through the stream instead of polling directly means a
// sweep survives worker restarts and lands on whichever consumer is
// least busy.
type ReplyCheckScheduler struct {
	producer ReplyCheckPublisher
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewReplyCheckScheduler(producer ReplyCheckPublisher, interval time.Duration) *ReplyCheckScheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ReplyCheckScheduler{
		producer: producer,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start starts the scheduler.
func (s *ReplyCheckScheduler) Start() {
	logger.Info("[ReplyCheckScheduler] Starting with interval %v", s.interval)
	go s.run()
}

// Stop stops the scheduler.
func (s *ReplyCheckScheduler) Stop() {
	logger.Info("[ReplyCheckScheduler] Stopping...")
	s.cancel()
}

func (s *ReplyCheckScheduler) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			logger.Info("[ReplyCheckScheduler] Stopped")
			return
		case <-ticker.C:
			s.publish()
		}
	}
}

func (s *ReplyCheckScheduler) publish() {
	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()

	id, err := s.producer.PublishReplyCheck(ctx)
	if err != nil {
		logger.Error("[ReplyCheckScheduler] Failed to publish reply check: %v", err)
		return
	}
	logger.Debug("[ReplyCheckScheduler] Published reply check %s", id)
}
