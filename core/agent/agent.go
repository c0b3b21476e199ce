// Package agent generates reply decisions for inbound campaign messages.
package agent

import (
	"context"
	"strings"
	"time"

	"campaign_worker/core/agent/tools"
	"campaign_worker/core/domain"
	"campaign_worker/pkg/logger"
)

// TextGenerator is the slice of the LLM client the agent needs.
type TextGenerator interface {
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	CompleteWithTools(ctx context.Context, systemPrompt, userPrompt string, defs []tools.ToolDefinition, run tools.RunFunc, maxSteps int) (*tools.Transcript, error)
}

// ReplyContext carries everything known about the inbound message the
// agent is deciding on.
type ReplyContext struct {
	UserID       string
	ContactEmail string
	ContactName  string
	Subject      string
	Body         string
	History      []domain.ConversationMessage
	CustomPrompt string
}

const fallbackBody = `Thanks for getting back to us! We've received your message and someone
will follow up with you shortly.`

// ReplyAgent turns an inbound message into a reply decision. It never
// returns an error: any provider or tool failure collapses to a static
// fallback reply.
type ReplyAgent struct {
	llm          TextGenerator
	registry     *tools.Registry
	executor     *tools.Executor
	maxToolSteps int
	log          *logger.Logger
}

// NewReplyAgent creates the agent. A nil generator means no API key is
// configured and every decision is the static fallback. A nil or empty
// registry disables the calendar tools.
func NewReplyAgent(llm TextGenerator, registry *tools.Registry, maxToolSteps int) *ReplyAgent {
	if maxToolSteps <= 0 {
		maxToolSteps = 5
	}
	var executor *tools.Executor
	if registry != nil {
		executor = tools.NewExecutor(registry)
	}
	return &ReplyAgent{
		llm:          llm,
		registry:     registry,
		executor:     executor,
		maxToolSteps: maxToolSteps,
		log:          logger.WithField("component", "reply_agent"),
	}
}

// GenerateReply produces the decision for one inbound message.
func (a *ReplyAgent) GenerateReply(ctx context.Context, rc *ReplyContext) *domain.AgentResponse {
	sentiment := ClassifySentiment(rc.Body)

	if a.llm == nil {
		return a.fallback(rc)
	}

	if a.toolsEnabled() {
		return a.generateWithTools(ctx, rc, sentiment)
	}
	return a.generatePlain(ctx, rc, sentiment)
}

func (a *ReplyAgent) toolsEnabled() bool {
	return a.registry != nil && a.registry.Len() > 0
}

func (a *ReplyAgent) generatePlain(ctx context.Context, rc *ReplyContext, sentiment domain.Sentiment) *domain.AgentResponse {
	system := buildSystemPrompt(rc, false)
	user := buildUserPrompt(rc, time.Now())

	text, err := a.llm.CompleteWithSystem(ctx, system, user)
	if err != nil {
		a.log.WithError(err).Warn("text generation failed, using fallback reply")
		return a.fallback(rc)
	}

	if strings.Contains(text, noReplyToken) {
		return &domain.AgentResponse{ShouldReply: false, Sentiment: sentiment}
	}

	return &domain.AgentResponse{
		Subject:     replySubject(rc.Subject),
		Body:        strings.TrimSpace(text),
		ShouldReply: true,
		Sentiment:   sentiment,
	}
}

func (a *ReplyAgent) generateWithTools(ctx context.Context, rc *ReplyContext, sentiment domain.Sentiment) *domain.AgentResponse {
	system := buildSystemPrompt(rc, true)
	user := buildUserPrompt(rc, time.Now())

	transcript, err := a.llm.CompleteWithTools(ctx, system, user,
		a.executor.GetAvailableTools(), a.executor.Runner(rc.UserID), a.maxToolSteps)
	if err != nil {
		a.log.WithError(err).Warn("tool-assisted generation failed, using fallback reply")
		return a.fallback(rc)
	}

	// A booking made during the tool loop must reach the recipient even
	// when the model returns no closing text.
	bookingURL, bookingID := extractBooking(transcript.Calls)

	body := strings.TrimSpace(transcript.Content)
	if body == "" {
		body = fallbackBody
	}
	if bookingURL != "" && !strings.Contains(body, bookingURL) {
		body += "\n\nYou can find the meeting details here: " + bookingURL
	}

	return &domain.AgentResponse{
		Subject:     replySubject(rc.Subject),
		Body:        body,
		ShouldReply: true,
		Sentiment:   sentiment,
		BookingURL:  bookingURL,
		BookingID:   bookingID,
	}
}

func (a *ReplyAgent) fallback(rc *ReplyContext) *domain.AgentResponse {
	return &domain.AgentResponse{
		Subject:     replySubject(rc.Subject),
		Body:        fallbackBody,
		ShouldReply: true,
		Sentiment:   domain.SentimentNeutral,
	}
}

// extractBooking scans every tool-call result for a successful booking.
func extractBooking(calls []tools.ExecutedCall) (url, id string) {
	for _, ec := range calls {
		if ec.Result == nil || !ec.Result.Success {
			continue
		}
		data, ok := ec.Result.Data.(map[string]any)
		if !ok {
			continue
		}
		if u, ok := data["booking_url"].(string); ok && u != "" {
			url = u
			if i, ok := data["booking_id"].(string); ok {
				id = i
			}
		}
	}
	return url, id
}
