package stream

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Job is the wire envelope for one queued task.
type Job struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

type Producer struct {
	stream *RedisStream
}

func NewProducer(stream *RedisStream) *Producer {
	return &Producer{stream: stream}
}

// CampaignSendParams is everything a campaign send job carries. The token
// triple rides in the payload because the worker holds no token store.
type CampaignSendParams struct {
	CampaignID      string
	UserID          string
	ContactSourceID string
	TemplateID      string
	AccessToken     string
	RefreshToken    string
	TokenExpiry     string
	BackendURL      string
}

func (p *Producer) PublishCampaignSend(ctx context.Context, params *CampaignSendParams) (string, error) {
	job := &Job{
		ID:   uuid.New().String(),
		Type: "campaign.send",
		Payload: map[string]any{
			"campaign_id":       params.CampaignID,
			"user_id":           params.UserID,
			"contact_source_id": params.ContactSourceID,
			"template_id":       params.TemplateID,
			"access_token":      params.AccessToken,
			"refresh_token":     params.RefreshToken,
			"token_expiry":      params.TokenExpiry,
			"backend_url":       params.BackendURL,
		},
		CreatedAt: time.Now(),
	}
	return p.stream.Publish(ctx, StreamCampaign, job)
}

// PublishReplyCheck queues a sweep over every auto-reply user.
func (p *Producer) PublishReplyCheck(ctx context.Context) (string, error) {
	job := &Job{
		ID:        uuid.New().String(),
		Type:      "reply.check",
		Payload:   map[string]any{},
		CreatedAt: time.Now(),
	}
	return p.stream.Publish(ctx, StreamReply, job)
}

// ReplyCheckParams scopes an on-demand reply check to one user. The token
// triple is optional; without it the worker resolves credentials from the
// backend's auto-reply user listing.
type ReplyCheckParams struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	TokenExpiry  string
}

// PublishReplyCheckUser queues a reply check for a single user.
func (p *Producer) PublishReplyCheckUser(ctx context.Context, params *ReplyCheckParams) (string, error) {
	job := &Job{
		ID:   uuid.New().String(),
		Type: "reply.check_user",
		Payload: map[string]any{
			"user_id":       params.UserID,
			"access_token":  params.AccessToken,
			"refresh_token": params.RefreshToken,
			"token_expiry":  params.TokenExpiry,
		},
		CreatedAt: time.Now(),
	}
	return p.stream.Publish(ctx, StreamReply, job)
}
