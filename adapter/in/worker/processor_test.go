package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"campaign_worker/core/domain"
	"campaign_worker/core/port/out"
	"campaign_worker/core/service/auth"
	"campaign_worker/core/service/campaign"
	"campaign_worker/core/service/reply"
)

type fakeBackend struct {
	users      []out.AutoReplyUser
	usersErr   error
	contactErr error

	usersCalled  bool
	campaignsFor []string
	statuses     []domain.CampaignStatus
}

func (f *fakeBackend) GetContacts(ctx context.Context, userID, sourceID string, page, pageSize int) (*out.ContactPage, error) {
	if f.contactErr != nil {
		return nil, f.contactErr
	}
	return &out.ContactPage{}, nil
}

func (f *fakeBackend) GetTemplate(ctx context.Context, userID, templateID string) (*domain.Template, error) {
	return &domain.Template{ID: templateID, Subject: "Hello", Body: "Hi there."}, nil
}

func (f *fakeBackend) UpdateCampaignStatus(ctx context.Context, userID, campaignID string, status domain.CampaignStatus, errMsg string) error {
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeBackend) UpdateCampaignProgress(ctx context.Context, userID, campaignID string, processed, sent, failed int) error {
	return nil
}

func (f *fakeBackend) LogEmail(ctx context.Context, userID string, entry *out.EmailLogEntry) error {
	return nil
}

func (f *fakeBackend) UsersWithAutoReply(ctx context.Context) ([]out.AutoReplyUser, error) {
	f.usersCalled = true
	return f.users, f.usersErr
}

func (f *fakeBackend) AutoReplyCampaigns(ctx context.Context, userID string) ([]*domain.AutoReplyCampaign, error) {
	f.campaignsFor = append(f.campaignsFor, userID)
	return nil, nil
}

func (f *fakeBackend) OpenConversations(ctx context.Context, userID, campaignID string) ([]*domain.Conversation, error) {
	return nil, nil
}

func (f *fakeBackend) ConversationHistory(ctx context.Context, userID, conversationID string, limit int) ([]domain.ConversationMessage, error) {
	return nil, nil
}

func (f *fakeBackend) MessageExists(ctx context.Context, userID, providerMessageID string) (bool, error) {
	return false, nil
}

func (f *fakeBackend) RecordReply(ctx context.Context, userID string, r *out.InboundReply) error {
	return nil
}

func (f *fakeBackend) RecordAutoReply(ctx context.Context, userID string, record *out.AutoReplyRecord) error {
	return nil
}

func (f *fakeBackend) GetAvailability(ctx context.Context, userID string, daysAhead int, timezone string) ([]domain.AvailabilitySlot, error) {
	return nil, nil
}

func (f *fakeBackend) BookMeeting(ctx context.Context, userID string, req *out.BookingRequest) (*domain.BookingResult, error) {
	return &domain.BookingResult{Success: true}, nil
}

type fakeProvider struct{}

func (f *fakeProvider) Send(ctx context.Context, accessToken string, req *out.SendRequest) *out.SendResult {
	return &out.SendResult{Success: true, MessageID: "m-1"}
}

func (f *fakeProvider) ListMessages(ctx context.Context, accessToken, query string, max int64) ([]*out.ProviderMessage, error) {
	return nil, nil
}

func (f *fakeProvider) GetMessage(ctx context.Context, accessToken, messageID string) (*out.ProviderMessage, error) {
	return nil, nil
}

func (f *fakeProvider) GetThread(ctx context.Context, accessToken, threadID string) (*out.ProviderThread, error) {
	return nil, nil
}

func newReplyProcessor(backend *fakeBackend) *ReplyProcessor {
	tokens := auth.NewTokenService("id", "secret", 5*time.Minute)
	poller := reply.NewPoller(backend, &fakeProvider{}, tokens, nil, 20)
	return NewReplyProcessor(poller, backend)
}

func TestProcessCheckUserInlineToken(t *testing.T) {
	backend := &fakeBackend{}
	p := newReplyProcessor(backend)

	msg := NewMessage(JobReplyCheckUser, map[string]any{
		"user_id":      "user-1",
		"access_token": "tok-inline",
		"token_expiry": time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	if err := p.ProcessCheckUser(context.Background(), msg); err != nil {
		t.Fatalf("ProcessCheckUser: %v", err)
	}

	if backend.usersCalled {
		t.Error("inline token must skip the auto-reply user lookup")
	}
	if len(backend.campaignsFor) != 1 || backend.campaignsFor[0] != "user-1" {
		t.Errorf("campaigns fetched for %v, want [user-1]", backend.campaignsFor)
	}
}

func TestProcessCheckUserLookupFallback(t *testing.T) {
	backend := &fakeBackend{
		users: []out.AutoReplyUser{
			{UserID: "user-1", Token: domain.TokenInfo{AccessToken: "tok-stored"}},
		},
	}
	p := newReplyProcessor(backend)

	msg := NewMessage(JobReplyCheckUser, map[string]any{"user_id": "user-1"})
	if err := p.ProcessCheckUser(context.Background(), msg); err != nil {
		t.Fatalf("ProcessCheckUser: %v", err)
	}

	if !backend.usersCalled {
		t.Error("tokenless job must resolve the token from the backend listing")
	}
	if len(backend.campaignsFor) != 1 || backend.campaignsFor[0] != "user-1" {
		t.Errorf("campaigns fetched for %v, want [user-1]", backend.campaignsFor)
	}
}

func TestProcessCheckUserUnknownUser(t *testing.T) {
	backend := &fakeBackend{}
	p := newReplyProcessor(backend)

	msg := NewMessage(JobReplyCheckUser, map[string]any{"user_id": "nobody"})
	if err := p.ProcessCheckUser(context.Background(), msg); err != nil {
		t.Fatalf("unknown user is not an error: %v", err)
	}
	if len(backend.campaignsFor) != 0 {
		t.Errorf("no campaigns should be fetched, got %v", backend.campaignsFor)
	}
}

func TestProcessCheckUserRequiresUserID(t *testing.T) {
	p := newReplyProcessor(&fakeBackend{})

	msg := NewMessage(JobReplyCheckUser, map[string]any{})
	if err := p.ProcessCheckUser(context.Background(), msg); err == nil {
		t.Fatal("expected an error for a payload without user_id")
	}
}

func TestProcessSendAbortedRunIsHandled(t *testing.T) {
	backend := &fakeBackend{contactErr: errors.New("backend down")}
	tokens := auth.NewTokenService("id", "secret", 5*time.Minute)
	p := NewCampaignProcessor(
		func(baseURL string) out.Backend { return backend },
		&fakeProvider{},
		tokens,
		campaign.Config{PageSize: 50, TokenCheckEvery: 20},
	)

	msg := NewMessage(JobCampaignSend, map[string]any{
		"campaign_id":  "camp-1",
		"user_id":      "user-1",
		"template_id":  "tpl-1",
		"access_token": "tok",
	})

	// The run marks the campaign failed in the backend; retrying the job
	// would duplicate the sends that preceded the abort.
	if err := p.ProcessSend(context.Background(), msg); err != nil {
		t.Fatalf("aborted run must not surface an error: %v", err)
	}

	want := []domain.CampaignStatus{domain.CampaignRunning, domain.CampaignFailed}
	if len(backend.statuses) != 2 || backend.statuses[0] != want[0] || backend.statuses[1] != want[1] {
		t.Errorf("statuses = %v, want %v", backend.statuses, want)
	}
}
