package domain

import "time"

// Conversation is the backend's record of an ongoing thread with one
// contact under one campaign. AutoRepliesSent gates whether another
// auto-reply may be sent (AutoRepliesSent < MaxRepliesPerThread).
type Conversation struct {
	ID              string `json:"id"`
	ThreadID        string `json:"thread_id"`
	ContactEmail    string `json:"contact_email"`
	ContactName     string `json:"contact_name,omitempty"`
	AutoRepliesSent int    `json:"auto_replies_sent"`
	Status          string `json:"status"`
}

// ConversationMessage is one entry of a conversation history fetched from
// the backend. Direction is "inbound" (from the contact) or "outbound".
type ConversationMessage struct {
	Direction string    `json:"direction"`
	Subject   string    `json:"subject,omitempty"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
