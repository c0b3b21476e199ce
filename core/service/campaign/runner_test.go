package campaign

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"campaign_worker/core/domain"
	"campaign_worker/core/port/out"
	"campaign_worker/core/service/auth"
	"campaign_worker/pkg/apperr"
)

type fakeBackend struct {
	pages       []out.ContactPage
	templateErr error
	contactErr  map[int]error

	statuses  []domain.CampaignStatus
	progress  [][3]int
	logs      []out.EmailLogEntry
	logErrFor map[string]error
}

func (f *fakeBackend) GetContacts(ctx context.Context, userID, sourceID string, page, pageSize int) (*out.ContactPage, error) {
	if err := f.contactErr[page]; err != nil {
		return nil, err
	}
	if page > len(f.pages) {
		return &out.ContactPage{}, nil
	}
	return &f.pages[page-1], nil
}

func (f *fakeBackend) GetTemplate(ctx context.Context, userID, templateID string) (*domain.Template, error) {
	if f.templateErr != nil {
		return nil, f.templateErr
	}
	return &domain.Template{
		ID:      templateID,
		Subject: "Hello {{name}}",
		Body:    "Hi {{name}}, greetings from us.",
	}, nil
}

func (f *fakeBackend) UpdateCampaignStatus(ctx context.Context, userID, campaignID string, status domain.CampaignStatus, errMsg string) error {
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeBackend) UpdateCampaignProgress(ctx context.Context, userID, campaignID string, processed, sent, failed int) error {
	f.progress = append(f.progress, [3]int{processed, sent, failed})
	return nil
}

func (f *fakeBackend) LogEmail(ctx context.Context, userID string, entry *out.EmailLogEntry) error {
	if err := f.logErrFor[entry.ContactEmail]; err != nil {
		return err
	}
	f.logs = append(f.logs, *entry)
	return nil
}

func (f *fakeBackend) UsersWithAutoReply(ctx context.Context) ([]out.AutoReplyUser, error) {
	return nil, nil
}

func (f *fakeBackend) AutoReplyCampaigns(ctx context.Context, userID string) ([]*domain.AutoReplyCampaign, error) {
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

func (f *fakeBackend) RecordReply(ctx context.Context, userID string, reply *out.InboundReply) error {
	return nil
}

func (f *fakeBackend) RecordAutoReply(ctx context.Context, userID string, record *out.AutoReplyRecord) error {
	return nil
}

func (f *fakeBackend) GetAvailability(ctx context.Context, userID string, daysAhead int, timezone string) ([]domain.AvailabilitySlot, error) {
	return nil, nil
}

func (f *fakeBackend) BookMeeting(ctx context.Context, userID string, req *out.BookingRequest) (*domain.BookingResult, error) {
	return nil, nil
}

type fakeProvider struct {
	failFor map[string]string
	sends   []out.SendRequest
}

func (f *fakeProvider) Send(ctx context.Context, accessToken string, req *out.SendRequest) *out.SendResult {
	f.sends = append(f.sends, *req)
	if msg, ok := f.failFor[req.To]; ok {
		return &out.SendResult{Success: false, Error: msg}
	}
	return &out.SendResult{
		Success:   true,
		MessageID: "msg-" + req.To,
		ThreadID:  "thread-" + req.To,
	}
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

func makeContacts(start, count int) []domain.Contact {
	contacts := make([]domain.Contact, count)
	for i := range contacts {
		n := start + i
		contacts[i] = domain.Contact{
			ID:    fmt.Sprintf("c%d", n),
			Email: fmt.Sprintf("contact%d@example.com", n),
			Name:  fmt.Sprintf("Contact %d", n),
		}
	}
	return contacts
}

func testJob() *domain.CampaignJob {
	return &domain.CampaignJob{
		CampaignID:      "camp-1",
		UserID:          "user-1",
		ContactSourceID: "src-1",
		TemplateID:      "tmpl-1",
		Token:           domain.TokenInfo{AccessToken: "tok"},
	}
}

func newTestRunner(backend *fakeBackend, provider *fakeProvider, pageSize int) *Runner {
	tokens := auth.NewTokenService("id", "secret", 5*time.Minute)
	return NewRunner(backend, provider, tokens, Config{
		PageSize:        pageSize,
		TokenCheckEvery: 20,
	})
}

func TestRunnerSingleShortPage(t *testing.T) {
	backend := &fakeBackend{
		pages: []out.ContactPage{{Contacts: makeContacts(1, 3), Total: 3}},
	}
	provider := &fakeProvider{}
	runner := newTestRunner(backend, provider, 5)

	result, err := runner.Run(context.Background(), testJob())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Sent != 3 || result.Failed != 0 || result.Total != 3 {
		t.Errorf("got sent=%d failed=%d total=%d, want 3/0/3", result.Sent, result.Failed, result.Total)
	}
	if len(provider.sends) != 3 {
		t.Errorf("expected 3 sends, got %d", len(provider.sends))
	}

	wantStatuses := []domain.CampaignStatus{domain.CampaignRunning, domain.CampaignCompleted}
	if len(backend.statuses) != 2 || backend.statuses[0] != wantStatuses[0] || backend.statuses[1] != wantStatuses[1] {
		t.Errorf("status transitions = %v, want %v", backend.statuses, wantStatuses)
	}
}

func TestRunnerPaginationStopsOnShortPage(t *testing.T) {
	backend := &fakeBackend{
		pages: []out.ContactPage{
			{Contacts: makeContacts(1, 2), Total: 3},
			{Contacts: makeContacts(3, 1), Total: 3},
		},
	}
	provider := &fakeProvider{}
	runner := newTestRunner(backend, provider, 2)

	result, err := runner.Run(context.Background(), testJob())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Sent != 3 {
		t.Errorf("sent = %d, want 3", result.Sent)
	}
	if len(backend.progress) != 2 {
		t.Fatalf("expected one progress update per page, got %d", len(backend.progress))
	}
	if backend.progress[1] != [3]int{3, 3, 0} {
		t.Errorf("final progress = %v, want [3 3 0]", backend.progress[1])
	}
}

func TestRunnerTotalFromFirstPage(t *testing.T) {
	// Later pages report a drifted total; page 1 wins.
	backend := &fakeBackend{
		pages: []out.ContactPage{
			{Contacts: makeContacts(1, 2), Total: 10},
			{Contacts: makeContacts(3, 1), Total: 99},
		},
	}
	runner := newTestRunner(backend, &fakeProvider{}, 2)

	result, err := runner.Run(context.Background(), testJob())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Total != 10 {
		t.Errorf("total = %d, want 10 (from page 1)", result.Total)
	}
}

func TestRunnerFailedSendContinues(t *testing.T) {
	backend := &fakeBackend{
		pages: []out.ContactPage{{Contacts: makeContacts(1, 3), Total: 3}},
	}
	provider := &fakeProvider{
		failFor: map[string]string{"contact2@example.com": "quota exceeded"},
	}
	runner := newTestRunner(backend, provider, 5)

	result, err := runner.Run(context.Background(), testJob())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Sent != 2 || result.Failed != 1 {
		t.Errorf("got sent=%d failed=%d, want 2/1", result.Sent, result.Failed)
	}
	if !result.Success {
		t.Error("a run with partial failures still completes successfully")
	}

	var failedLog *out.EmailLogEntry
	for i := range backend.logs {
		if backend.logs[i].Status == "failed" {
			failedLog = &backend.logs[i]
		}
	}
	if failedLog == nil {
		t.Fatal("expected a failed email log entry")
	}
	if failedLog.Error != "quota exceeded" {
		t.Errorf("failed log error = %q, want %q", failedLog.Error, "quota exceeded")
	}
}

func TestRunnerLogFailureCountsAsFailed(t *testing.T) {
	backend := &fakeBackend{
		pages:     []out.ContactPage{{Contacts: makeContacts(1, 2), Total: 2}},
		logErrFor: map[string]error{"contact1@example.com": errors.New("backend down")},
	}
	runner := newTestRunner(backend, &fakeProvider{}, 5)

	result, err := runner.Run(context.Background(), testJob())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Sent != 1 || result.Failed != 1 {
		t.Errorf("got sent=%d failed=%d, want 1/1", result.Sent, result.Failed)
	}
}

func TestRunnerTemplateFetchAborts(t *testing.T) {
	backend := &fakeBackend{templateErr: errors.New("404")}
	runner := newTestRunner(backend, &fakeProvider{}, 5)

	_, err := runner.Run(context.Background(), testJob())
	if err == nil {
		t.Fatal("expected error for template fetch failure")
	}
	if !apperr.IsCode(err, apperr.CodeTemplateFetch) {
		t.Errorf("error code = %v, want %s", err, apperr.CodeTemplateFetch)
	}
	if len(backend.statuses) != 2 || backend.statuses[1] != domain.CampaignFailed {
		t.Errorf("statuses = %v, want running then failed", backend.statuses)
	}
}

func TestRunnerContactFetchAborts(t *testing.T) {
	backend := &fakeBackend{
		pages:      []out.ContactPage{{Contacts: makeContacts(1, 2), Total: 4}},
		contactErr: map[int]error{2: errors.New("connection reset")},
	}
	provider := &fakeProvider{}
	runner := newTestRunner(backend, provider, 2)

	_, err := runner.Run(context.Background(), testJob())
	if !apperr.IsCode(err, apperr.CodeContactFetch) {
		t.Fatalf("error = %v, want contact fetch code", err)
	}
	// Page 1 was fully sent before the abort.
	if len(provider.sends) != 2 {
		t.Errorf("expected 2 sends before abort, got %d", len(provider.sends))
	}
	if backend.statuses[len(backend.statuses)-1] != domain.CampaignFailed {
		t.Errorf("final status = %v, want failed", backend.statuses[len(backend.statuses)-1])
	}
}

func TestRunnerRendersTemplatePerContact(t *testing.T) {
	backend := &fakeBackend{
		pages: []out.ContactPage{{Contacts: makeContacts(1, 1), Total: 1}},
	}
	provider := &fakeProvider{}
	runner := newTestRunner(backend, provider, 5)

	if _, err := runner.Run(context.Background(), testJob()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := provider.sends[0].Subject; got != "Hello Contact 1" {
		t.Errorf("subject = %q, want %q", got, "Hello Contact 1")
	}
}

func TestRunnerEmptyFirstPage(t *testing.T) {
	backend := &fakeBackend{
		pages: []out.ContactPage{{Contacts: nil, Total: 0}},
	}
	runner := newTestRunner(backend, &fakeProvider{}, 5)

	result, err := runner.Run(context.Background(), testJob())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Sent != 0 || result.Failed != 0 || result.Total != 0 {
		t.Errorf("got sent=%d failed=%d total=%d, want zeros", result.Sent, result.Failed, result.Total)
	}
	if backend.statuses[len(backend.statuses)-1] != domain.CampaignCompleted {
		t.Error("empty campaign should still complete")
	}
}
