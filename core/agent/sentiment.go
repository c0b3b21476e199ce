package agent

import (
	"strings"

	"campaign_worker/core/domain"
)

// Keyword lists for the inbound-message classifier. Negative wins over
// urgent wins over positive; anything else is neutral.
var (
	negativeKeywords = []string{
		"unsubscribe",
		"not interested",
		"no interest",
		"stop emailing",
		"stop contacting",
		"remove me",
		"take me off",
		"do not contact",
		"don't contact",
		"leave me alone",
		"spam",
	}
	urgentKeywords = []string{
		"urgent",
		"asap",
		"immediately",
		"right away",
		"as soon as possible",
		"time sensitive",
		"emergency",
	}
	positiveKeywords = []string{
		"interested",
		"sounds good",
		"sounds great",
		"let's talk",
		"lets talk",
		"tell me more",
		"happy to",
		"would love",
		"looking forward",
		"let's schedule",
		"book a",
	}
)

// ClassifySentiment derives a coarse tone tag from inbound message text.
// It is informational only and independent of what the model generates.
func ClassifySentiment(text string) domain.Sentiment {
	lower := strings.ToLower(text)

	for _, kw := range negativeKeywords {
		if strings.Contains(lower, kw) {
			return domain.SentimentNegative
		}
	}
	for _, kw := range urgentKeywords {
		if strings.Contains(lower, kw) {
			return domain.SentimentUrgent
		}
	}
	for _, kw := range positiveKeywords {
		if strings.Contains(lower, kw) {
			return domain.SentimentPositive
		}
	}
	return domain.SentimentNeutral
}
