// Package reply polls Gmail threads for inbound messages and drives
// auto-replies.
package reply

import (
	"context"
	"strings"

	"campaign_worker/core/agent"
	"campaign_worker/core/domain"
	"campaign_worker/core/port/out"
	"campaign_worker/core/service/auth"
	"campaign_worker/pkg/logger"
)

// ReplyGenerator is the slice of the agent the poller needs.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, rc *agent.ReplyContext) *domain.AgentResponse
}

// Poller runs one reply-check pass at a time. A pass fans out over users
// and campaigns best-effort: failures are logged and do not stop the
// other users or campaigns.
type Poller struct {
	backend      out.Backend
	provider     out.EmailProvider
	tokens       *auth.TokenService
	agent        ReplyGenerator
	historyLimit int
	log          *logger.Logger
}

func NewPoller(backend out.Backend, provider out.EmailProvider, tokens *auth.TokenService, agent ReplyGenerator, historyLimit int) *Poller {
	if historyLimit <= 0 {
		historyLimit = 20
	}
	return &Poller{
		backend:      backend,
		provider:     provider,
		tokens:       tokens,
		agent:        agent,
		historyLimit: historyLimit,
		log:          logger.WithField("component", "reply_poller"),
	}
}

// RunPass checks every user that has at least one auto-reply-enabled
// campaign.
func (p *Poller) RunPass(ctx context.Context) error {
	users, err := p.backend.UsersWithAutoReply(ctx)
	if err != nil {
		return err
	}

	for _, user := range users {
		if err := p.RunUser(ctx, user.UserID, user.Token); err != nil {
			p.log.WithField("user_id", user.UserID).WithError(err).Error("reply check failed for user")
		}
	}
	return nil
}

// RunUser checks all auto-reply campaigns of one user. A token refresh
// failure aborts the whole user iteration.
func (p *Poller) RunUser(ctx context.Context, userID string, token domain.TokenInfo) error {
	valid, err := p.tokens.GetValidAccessToken(ctx, token)
	if err != nil {
		return err
	}

	campaigns, err := p.backend.AutoReplyCampaigns(ctx, userID)
	if err != nil {
		return err
	}

	log := p.log.WithField("user_id", userID)
	for _, camp := range campaigns {
		if err := p.checkCampaign(ctx, userID, valid.AccessToken, camp); err != nil {
			log.WithField("campaign_id", camp.ID).WithError(err).Error("reply check failed for campaign")
		}
	}
	return nil
}

func (p *Poller) checkCampaign(ctx context.Context, userID, accessToken string, camp *domain.AutoReplyCampaign) error {
	conversations, err := p.backend.OpenConversations(ctx, userID, camp.ID)
	if err != nil {
		return err
	}

	log := p.log.WithFields(map[string]any{"user_id": userID, "campaign_id": camp.ID})
	for _, convo := range conversations {
		if convo.ThreadID == "" {
			continue
		}
		if err := p.checkConversation(ctx, userID, accessToken, camp, convo); err != nil {
			log.WithField("conversation_id", convo.ID).WithError(err).Warn("conversation check failed")
		}
	}
	return nil
}

func (p *Poller) checkConversation(ctx context.Context, userID, accessToken string, camp *domain.AutoReplyCampaign, convo *domain.Conversation) error {
	thread, err := p.provider.GetThread(ctx, accessToken, convo.ThreadID)
	if err != nil {
		return err
	}

	log := p.log.WithFields(map[string]any{"user_id": userID, "conversation_id": convo.ID})
	repliesSent := convo.AutoRepliesSent

	for _, msg := range thread.Messages {
		if !fromContact(msg, convo.ContactEmail) {
			continue
		}

		// Idempotency: a recorded provider message id is done.
		exists, err := p.backend.MessageExists(ctx, userID, msg.ID)
		if err != nil {
			log.WithError(err).Warn("message-exists lookup failed for %s", msg.ID)
			continue
		}
		if exists {
			continue
		}

		// Recording the inbound reply happens unconditionally,
		// independent of whether auto-reply is enabled.
		if err := p.backend.RecordReply(ctx, userID, &out.InboundReply{
			ConversationID: convo.ID,
			MessageID:      msg.ID,
			Subject:        msg.Subject,
			Body:           msg.BodyText,
			ReceivedAt:     msg.ReceivedAt,
		}); err != nil {
			log.WithError(err).Warn("failed to record inbound reply %s", msg.ID)
			continue
		}

		if !camp.AutoReplyEnabled || repliesSent >= camp.MaxRepliesPerThread {
			continue
		}

		history, err := p.backend.ConversationHistory(ctx, userID, convo.ID, p.historyLimit)
		if err != nil {
			log.WithError(err).Warn("failed to fetch conversation history")
			history = nil
		}

		response := p.agent.GenerateReply(ctx, &agent.ReplyContext{
			UserID:       userID,
			ContactEmail: convo.ContactEmail,
			ContactName:  convo.ContactName,
			Subject:      msg.Subject,
			Body:         msg.BodyText,
			History:      history,
			CustomPrompt: camp.CustomPrompt,
		})
		if !response.ShouldReply {
			continue
		}

		result := p.provider.Send(ctx, accessToken, &out.SendRequest{
			To:         convo.ContactEmail,
			Subject:    response.Subject,
			Body:       response.Body,
			ThreadID:   msg.ThreadID,
			InReplyTo:  msg.MessageID,
			References: appendReference(msg.References, msg.MessageID),
		})
		if !result.Success {
			log.Error("auto-reply send failed: %s", result.Error)
			continue
		}

		if err := p.backend.RecordAutoReply(ctx, userID, &out.AutoReplyRecord{
			ConversationID: convo.ID,
			MessageID:      result.MessageID,
			Subject:        response.Subject,
			Body:           response.Body,
			Sentiment:      response.Sentiment,
			BookingURL:     response.BookingURL,
		}); err != nil {
			log.WithError(err).Warn("failed to record auto-reply")
		}
		repliesSent++
		log.Info("auto-reply sent to %s (%d/%d)", convo.ContactEmail, repliesSent, camp.MaxRepliesPerThread)
	}
	return nil
}

// fromContact reports whether the message was sent by the conversation's
// contact, matched on the From header.
func fromContact(msg *out.ProviderMessage, contactEmail string) bool {
	if contactEmail == "" {
		return false
	}
	return strings.Contains(strings.ToLower(msg.From), strings.ToLower(contactEmail))
}

// appendReference extends the References chain with the replied-to
// message id.
func appendReference(references, messageID string) string {
	if messageID == "" {
		return references
	}
	if references == "" {
		return messageID
	}
	return references + " " + messageID
}
