package worker

import (
	"context"
	"time"

	"campaign_worker/core/domain"
	"campaign_worker/core/port/out"
	"campaign_worker/core/service/reply"
	"campaign_worker/pkg/apperr"
	"campaign_worker/pkg/logger"
)

// ReplyProcessor handles reply.check and reply.check_user jobs.
type ReplyProcessor struct {
	poller  *reply.Poller
	backend out.Backend
	log     *logger.Logger
}

func NewReplyProcessor(poller *reply.Poller, backend out.Backend) *ReplyProcessor {
	return &ReplyProcessor{
		poller:  poller,
		backend: backend,
		log:     logger.WithField("component", "reply_processor"),
	}
}

// ProcessCheckAll sweeps every user with an auto-reply campaign.
func (p *ReplyProcessor) ProcessCheckAll(ctx context.Context, msg *Message) error {
	start := time.Now()
	if err := p.poller.RunPass(ctx); err != nil {
		return err
	}
	p.log.WithDuration(time.Since(start)).Info("reply check pass finished")
	return nil
}

// ProcessCheckUser checks a single user on demand.
func (p *ReplyProcessor) ProcessCheckUser(ctx context.Context, msg *Message) error {
	payload, err := ParsePayload[ReplyCheckUserPayload](msg)
	if err != nil {
		return apperr.BadRequest("invalid reply.check_user payload: " + err.Error())
	}
	if payload.UserID == "" {
		return apperr.BadRequest("reply.check_user requires user_id")
	}

	// An inline token skips the listing lookup; the trigger already knows
	// which credentials to poll with.
	if payload.AccessToken != "" {
		token := domain.TokenInfo{
			AccessToken:  payload.AccessToken,
			RefreshToken: payload.RefreshToken,
		}
		if payload.TokenExpiry != "" {
			expiry, err := time.Parse(time.RFC3339, payload.TokenExpiry)
			if err != nil {
				p.log.WithField("user_id", payload.UserID).Warn("unparseable token_expiry %q", payload.TokenExpiry)
			} else {
				token.Expiry = expiry
			}
		}
		return p.poller.RunUser(ctx, payload.UserID, token)
	}

	users, err := p.backend.UsersWithAutoReply(ctx)
	if err != nil {
		return err
	}
	for _, user := range users {
		if user.UserID == payload.UserID {
			return p.poller.RunUser(ctx, user.UserID, user.Token)
		}
	}

	p.log.WithField("user_id", payload.UserID).Warn("user has no auto-reply campaigns, nothing to check")
	return nil
}
