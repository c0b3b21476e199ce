package domain

import "time"

// Sentiment is a coarse keyword-derived classification of an inbound
// message's tone. It is informational only.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
	SentimentUrgent   Sentiment = "urgent"
)

// AgentResponse is the decision produced for one inbound message. It is
// ephemeral: produced once and consumed immediately by the poller.
type AgentResponse struct {
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	ShouldReply bool      `json:"should_reply"`
	Sentiment   Sentiment `json:"sentiment"`
	BookingURL  string    `json:"booking_url,omitempty"`
	BookingID   string    `json:"booking_id,omitempty"`
}

// AvailabilitySlot is a free calendar slot as returned by the backend
// availability endpoint.
type AvailabilitySlot struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Timezone string    `json:"timezone"`
}

// BookingResult is the outcome of a backend booking call.
type BookingResult struct {
	Success    bool   `json:"success"`
	BookingURL string `json:"booking_url,omitempty"`
	BookingID  string `json:"booking_id,omitempty"`
	Error      string `json:"error,omitempty"`
}
