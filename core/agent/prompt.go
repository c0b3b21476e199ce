package agent

import (
	"fmt"
	"strings"
	"time"
)

const (
	historyWindow = 5
	historyMaxLen = 300
	inboundMaxLen = 2000
	noReplyToken  = "SHOULD_NOT_REPLY"
)

const defaultInstructions = `You are an email assistant replying on behalf of a sales outreach sender.
Write a short, friendly, professional reply to the contact's latest message.
Stay consistent with the earlier conversation. Do not invent facts about
the sender's product or pricing. Do not include a subject line, greetings
headers or signatures beyond a simple sign-off.`

const noToolsAddendum = `If the contact clearly asks to stop receiving emails or to unsubscribe,
respond with exactly ` + noReplyToken + ` and nothing else.`

const toolsAddendum = `You can check the sender's calendar availability and book meetings using
the provided tools. If the contact wants to meet, fetch availability first,
offer concrete slots, and book only a time the contact has agreed to.
Always write a reply to the contact.`

func buildSystemPrompt(rc *ReplyContext, toolsEnabled bool) string {
	instructions := rc.CustomPrompt
	if instructions == "" {
		instructions = defaultInstructions
	}

	var sb strings.Builder
	sb.WriteString(instructions)
	sb.WriteString("\n\n")
	if toolsEnabled {
		sb.WriteString(toolsAddendum)
	} else {
		sb.WriteString(noToolsAddendum)
	}
	return sb.String()
}

func buildUserPrompt(rc *ReplyContext, now time.Time) string {
	var sb strings.Builder

	name := rc.ContactName
	if name == "" {
		name = rc.ContactEmail
	}
	fmt.Fprintf(&sb, "Contact: %s <%s>\n", name, rc.ContactEmail)
	fmt.Fprintf(&sb, "Today's date: %s\n\n", now.Format("Monday, January 2, 2006"))

	if len(rc.History) > 0 {
		sb.WriteString("Conversation so far (most recent last):\n")
		history := rc.History
		if len(history) > historyWindow {
			history = history[len(history)-historyWindow:]
		}
		for _, msg := range history {
			role := "Sender"
			if msg.Direction == "inbound" {
				role = "Contact"
			}
			fmt.Fprintf(&sb, "- %s: %s\n", role, truncate(msg.Body, historyMaxLen))
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "Latest message from the contact:\nSubject: %s\n\n%s\n\nWrite the reply body:",
		rc.Subject, truncate(rc.Body, inboundMaxLen))

	return sb.String()
}

func truncate(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen] + "..."
}

// replySubject prefixes the inbound subject for the threaded reply.
func replySubject(subject string) string {
	trimmed := strings.TrimSpace(subject)
	if trimmed == "" {
		return "Re: your message"
	}
	if strings.HasPrefix(strings.ToLower(trimmed), "re:") {
		return trimmed
	}
	return "Re: " + trimmed
}
