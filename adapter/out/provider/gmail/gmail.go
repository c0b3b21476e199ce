// Package gmail implements the mail provider port on top of the Gmail API.
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"campaign_worker/core/port/out"
	"campaign_worker/pkg/logger"

	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Adapter implements out.EmailProvider for Gmail. It is stateless: every
// call carries the access token of the user it acts for, so one adapter
// serves all users.
type Adapter struct {
	cb  *gobreaker.CircuitBreaker
	log *logger.Logger
}

func NewAdapter() *Adapter {
	log := logger.WithField("component", "gmail_adapter")

	cbSettings := gobreaker.Settings{
		Name:        "gmail-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker %s: %s -> %s", name, from.String(), to.String())
		},
	}

	return &Adapter{
		cb:  gobreaker.NewCircuitBreaker(cbSettings),
		log: log,
	}
}

func (a *Adapter) getService(ctx context.Context, accessToken string) (*gmail.Service, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 60*time.Second)
		defer cancel()
	}

	// Tokens are refreshed upstream, so a static source is enough here.
	return gmail.NewService(ctx, option.WithTokenSource(
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}),
	))
}

// Send builds and sends one raw MIME message. Failures never cross this
// boundary as errors: the caller gets Success=false with the cause text.
func (a *Adapter) Send(ctx context.Context, accessToken string, req *out.SendRequest) *out.SendResult {
	svc, err := a.getService(ctx, accessToken)
	if err != nil {
		return &out.SendResult{Error: fmt.Sprintf("gmail service init: %v", err)}
	}

	msg := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(buildRawMessage(req))),
	}
	if req.ThreadID != "" {
		msg.ThreadId = req.ThreadID
	}

	var sent *gmail.Message
	err = a.execute(ctx, "send", func() error {
		var callErr error
		sent, callErr = svc.Users.Messages.Send("me", msg).Context(ctx).Do()
		return callErr
	})
	if err != nil {
		return &out.SendResult{Error: err.Error()}
	}

	return &out.SendResult{
		Success:   true,
		MessageID: sent.Id,
		ThreadID:  sent.ThreadId,
	}
}

// ListMessages runs a Gmail search query and resolves each hit to a full
// message.
func (a *Adapter) ListMessages(ctx context.Context, accessToken, query string, max int64) ([]*out.ProviderMessage, error) {
	svc, err := a.getService(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	req := svc.Users.Messages.List("me")
	if query != "" {
		req = req.Q(query)
	}
	if max > 0 {
		req = req.MaxResults(max)
	}

	var resp *gmail.ListMessagesResponse
	err = a.execute(ctx, "list", func() error {
		var callErr error
		resp, callErr = req.Context(ctx).Do()
		return callErr
	})
	if err != nil {
		return nil, err
	}

	messages := make([]*out.ProviderMessage, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		full, err := a.getMessage(ctx, svc, m.Id)
		if err != nil {
			a.log.WithError(err).Warn("skipping unfetchable message %s", m.Id)
			continue
		}
		messages = append(messages, full)
	}
	return messages, nil
}

// GetMessage retrieves one full message.
func (a *Adapter) GetMessage(ctx context.Context, accessToken, messageID string) (*out.ProviderMessage, error) {
	svc, err := a.getService(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return a.getMessage(ctx, svc, messageID)
}

func (a *Adapter) getMessage(ctx context.Context, svc *gmail.Service, messageID string) (*out.ProviderMessage, error) {
	var msg *gmail.Message
	err := a.execute(ctx, "get_message", func() error {
		var callErr error
		msg, callErr = svc.Users.Messages.Get("me", messageID).Format("full").Context(ctx).Do()
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return parseMessage(msg), nil
}

// GetThread retrieves a full thread, oldest message first.
func (a *Adapter) GetThread(ctx context.Context, accessToken, threadID string) (*out.ProviderThread, error) {
	svc, err := a.getService(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	var thread *gmail.Thread
	err = a.execute(ctx, "get_thread", func() error {
		var callErr error
		thread, callErr = svc.Users.Threads.Get("me", threadID).Format("full").Context(ctx).Do()
		return callErr
	})
	if err != nil {
		return nil, err
	}

	result := &out.ProviderThread{
		ID:       thread.Id,
		Messages: make([]*out.ProviderMessage, 0, len(thread.Messages)),
	}
	for _, msg := range thread.Messages {
		result.Messages = append(result.Messages, parseMessage(msg))
	}
	return result, nil
}

// execute wraps one API call with circuit breaker protection. Client
// errors (4xx except 429) must not trip the breaker.
func (a *Adapter) execute(ctx context.Context, operation string, fn func() error) error {
	_, err := a.cb.Execute(func() (interface{}, error) {
		if err := fn(); err != nil {
			if apiErr, ok := err.(*googleapi.Error); ok {
				switch apiErr.Code {
				case 400, 401, 403, 404:
					return nil, &nonCircuitError{err: err}
				}
			}
			return nil, err
		}
		return nil, nil
	})

	if nce, ok := err.(*nonCircuitError); ok {
		return nce.err
	}
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		a.log.Warn("gmail circuit open, %s rejected", operation)
	}
	return err
}

type nonCircuitError struct {
	err error
}

func (e *nonCircuitError) Error() string { return e.err.Error() }
func (e *nonCircuitError) Unwrap() error { return e.err }

// Helper functions

func buildRawMessage(req *out.SendRequest) string {
	var sb strings.Builder

	sb.WriteString("To: " + req.To + "\r\n")
	if req.From != "" {
		sb.WriteString("From: " + req.From + "\r\n")
	}
	sb.WriteString("Subject: " + req.Subject + "\r\n")
	if req.InReplyTo != "" {
		sb.WriteString("In-Reply-To: " + req.InReplyTo + "\r\n")
	}
	if req.References != "" {
		sb.WriteString("References: " + req.References + "\r\n")
	}
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(req.Body)

	return sb.String()
}

func parseMessage(msg *gmail.Message) *out.ProviderMessage {
	pm := &out.ProviderMessage{
		ID:         msg.Id,
		ThreadID:   msg.ThreadId,
		Snippet:    msg.Snippet,
		ReceivedAt: time.Unix(msg.InternalDate/1000, 0),
	}

	if msg.Payload != nil {
		pm.From = getHeader(msg.Payload, "From")
		pm.To = getHeader(msg.Payload, "To")
		pm.Subject = getHeader(msg.Payload, "Subject")
		pm.MessageID = getHeader(msg.Payload, "Message-Id")
		pm.References = getHeader(msg.Payload, "References")
		pm.BodyText = extractTextBody(msg.Payload)
	}

	return pm
}

// getHeader does a case-insensitive header lookup. Gmail reports some
// headers as Message-ID and some as Message-Id depending on the sender.
func getHeader(payload *gmail.MessagePart, name string) string {
	for _, header := range payload.Headers {
		if strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}

// extractTextBody prefers text/plain over text/html over a direct body.
func extractTextBody(payload *gmail.MessagePart) string {
	if text := findPart(payload, "text/plain"); text != "" {
		return text
	}
	if html := findPart(payload, "text/html"); html != "" {
		return html
	}
	if payload.Body != nil && payload.Body.Data != "" {
		return decodeBody(payload.Body.Data)
	}
	return ""
}

func findPart(payload *gmail.MessagePart, mimeType string) string {
	if payload == nil {
		return ""
	}
	if payload.MimeType == mimeType && payload.Body != nil && payload.Body.Data != "" {
		return decodeBody(payload.Body.Data)
	}
	for _, part := range payload.Parts {
		if text := findPart(part, mimeType); text != "" {
			return text
		}
	}
	return ""
}

func decodeBody(data string) string {
	decoded, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		// Some senders pad their payloads.
		decoded, err = base64.URLEncoding.DecodeString(data)
		if err != nil {
			return ""
		}
	}
	return string(decoded)
}

// Ensure Adapter implements out.EmailProvider
var _ out.EmailProvider = (*Adapter)(nil)
