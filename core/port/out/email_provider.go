package out

import (
	"context"
	"time"
)

// SendRequest describes one outgoing email. ThreadID, InReplyTo and
// References are set only when continuing an existing thread.
type SendRequest struct {
	To         string
	From       string
	Subject    string
	Body       string
	ThreadID   string
	InReplyTo  string
	References string
}

// SendResult is the outcome of one send. The provider adapter never
// propagates an error across this boundary: failures come back as
// Success=false with Error text.
type SendResult struct {
	Success   bool
	MessageID string
	ThreadID  string
	Error     string
}

// ProviderMessage is a mail-provider message with the headers and body the
// worker cares about already extracted.
type ProviderMessage struct {
	ID         string
	ThreadID   string
	From       string
	To         string
	Subject    string
	MessageID  string // RFC 822 Message-Id header
	References string
	Snippet    string
	BodyText   string
	ReceivedAt time.Time
}

// ProviderThread is a full provider thread, oldest message first.
type ProviderThread struct {
	ID       string
	Messages []*ProviderMessage
}

// EmailProvider is the mail provider's REST surface: send one raw message,
// and read inbox/thread/message data back.
type EmailProvider interface {
	Send(ctx context.Context, accessToken string, req *SendRequest) *SendResult
	ListMessages(ctx context.Context, accessToken, query string, max int64) ([]*ProviderMessage, error)
	GetMessage(ctx context.Context, accessToken, messageID string) (*ProviderMessage, error)
	GetThread(ctx context.Context, accessToken, threadID string) (*ProviderThread, error)
}
