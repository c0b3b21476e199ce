package domain

// CampaignStatus is the lifecycle status reported back to the backend.
type CampaignStatus string

const (
	CampaignRunning   CampaignStatus = "running"
	CampaignCompleted CampaignStatus = "completed"
	CampaignFailed    CampaignStatus = "failed"
)

// CampaignJob is the immutable input to one campaign send run. The worker
// owns no durable campaign state; status and counts live in the backend and
// are mutated only through webhook calls.
type CampaignJob struct {
	CampaignID      string
	UserID          string
	ContactSourceID string
	TemplateID      string
	Token           TokenInfo
	BackendURL      string
}

// CampaignResult summarizes one completed run. Total reflects the count the
// backend reported on the first contact page.
type CampaignResult struct {
	Success bool `json:"success"`
	Sent    int  `json:"sent"`
	Failed  int  `json:"failed"`
	Total   int  `json:"total"`
}

// Template holds the subject/body pair fetched from the backend. Both may
// contain {{field}} placeholders.
type Template struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// AutoReplyCampaign is the auto-reply configuration of a campaign. Subject
// and body are context hints for the agent, not literal reply text.
type AutoReplyCampaign struct {
	ID                  string `json:"id"`
	UserID              string `json:"user_id"`
	AutoReplyEnabled    bool   `json:"auto_reply_enabled"`
	AutoReplySubject    string `json:"auto_reply_subject"`
	AutoReplyBody       string `json:"auto_reply_body"`
	MaxRepliesPerThread int    `json:"max_replies_per_thread"`
	CustomPrompt        string `json:"custom_prompt"`
}
