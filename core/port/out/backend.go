package out

import (
	"context"
	"time"

	"campaign_worker/core/domain"
)

// ContactPage is one page of contacts from the backend. Total is the
// source-wide count the backend reports with every page.
type ContactPage struct {
	Contacts []domain.Contact `json:"contacts"`
	Total    int              `json:"total"`
}

// EmailLogEntry records the outcome of one campaign send.
type EmailLogEntry struct {
	CampaignID   string    `json:"campaign_id"`
	ContactID    string    `json:"contact_id"`
	ContactEmail string    `json:"contact_email"`
	Status       string    `json:"status"` // sent, failed
	MessageID    string    `json:"message_id,omitempty"`
	ThreadID     string    `json:"thread_id,omitempty"`
	Error        string    `json:"error,omitempty"`
	SentAt       time.Time `json:"sent_at"`
}

// AutoReplyUser is one user the scheduled reply check has to visit. The
// backend owns the token store, so the user's current token triple rides
// along with the listing.
type AutoReplyUser struct {
	UserID string           `json:"user_id"`
	Token  domain.TokenInfo `json:"token"`
}

// InboundReply is a contact message recorded against a conversation.
type InboundReply struct {
	ConversationID string    `json:"conversation_id"`
	MessageID      string    `json:"message_id"`
	Subject        string    `json:"subject"`
	Body           string    `json:"body"`
	ReceivedAt     time.Time `json:"received_at"`
}

// AutoReplyRecord is a worker-generated reply recorded against a
// conversation after it has been sent.
type AutoReplyRecord struct {
	ConversationID string           `json:"conversation_id"`
	MessageID      string           `json:"message_id"`
	Subject        string           `json:"subject"`
	Body           string           `json:"body"`
	Sentiment      domain.Sentiment `json:"sentiment,omitempty"`
	BookingURL     string           `json:"booking_url,omitempty"`
}

// BookingRequest is a passthrough meeting booking for the backend calendar.
type BookingRequest struct {
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	AttendeeEmail string `json:"attendee_email"`
	AttendeeName  string `json:"attendee_name"`
	Notes         string `json:"notes,omitempty"`
}

// Backend is the external REST service that owns all durable state:
// contacts, templates, campaign status, conversations and the calendar.
// Calls are authenticated with an internal X-User-Id header.
type Backend interface {
	GetContacts(ctx context.Context, userID, sourceID string, page, pageSize int) (*ContactPage, error)
	GetTemplate(ctx context.Context, userID, templateID string) (*domain.Template, error)

	UpdateCampaignStatus(ctx context.Context, userID, campaignID string, status domain.CampaignStatus, errMsg string) error
	UpdateCampaignProgress(ctx context.Context, userID, campaignID string, processed, sent, failed int) error
	LogEmail(ctx context.Context, userID string, entry *EmailLogEntry) error

	UsersWithAutoReply(ctx context.Context) ([]AutoReplyUser, error)
	AutoReplyCampaigns(ctx context.Context, userID string) ([]*domain.AutoReplyCampaign, error)
	OpenConversations(ctx context.Context, userID, campaignID string) ([]*domain.Conversation, error)
	ConversationHistory(ctx context.Context, userID, conversationID string, limit int) ([]domain.ConversationMessage, error)
	MessageExists(ctx context.Context, userID, providerMessageID string) (bool, error)
	RecordReply(ctx context.Context, userID string, reply *InboundReply) error
	RecordAutoReply(ctx context.Context, userID string, record *AutoReplyRecord) error

	GetAvailability(ctx context.Context, userID string, daysAhead int, timezone string) ([]domain.AvailabilitySlot, error)
	BookMeeting(ctx context.Context, userID string, req *BookingRequest) (*domain.BookingResult, error)
}
