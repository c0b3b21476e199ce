package worker

import (
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of a job.
type JobType = string

const (
	// Campaign jobs
	JobCampaignSend JobType = "campaign.send"

	// Reply jobs
	JobReplyCheck     = "reply.check"
	JobReplyCheckUser = "reply.check_user"
)

type Message struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
	Retries   int            `json:"retries"`
}

func NewMessage(jobType string, payload map[string]any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      jobType,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
}

// CampaignSendPayload triggers one bulk send run. The OAuth token triple
// rides in the job because the worker keeps no token store of its own.
type CampaignSendPayload struct {
	CampaignID      string `json:"campaign_id"`
	UserID          string `json:"user_id"`
	ContactSourceID string `json:"contact_source_id"`
	TemplateID      string `json:"template_id"`
	AccessToken     string `json:"access_token"`
	RefreshToken    string `json:"refresh_token,omitempty"`
	TokenExpiry     string `json:"token_expiry,omitempty"` // RFC 3339
	BackendURL      string `json:"backend_url,omitempty"`
}

// ReplyCheckUserPayload scopes a reply check to one user. The token triple
// is optional: when present it is used directly, otherwise the worker
// resolves the token from the backend's auto-reply user listing.
type ReplyCheckUserPayload struct {
	UserID       string `json:"user_id"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenExpiry  string `json:"token_expiry,omitempty"` // RFC 3339
}
