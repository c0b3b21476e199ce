// Package backendapi is the REST client for the backend service that owns
// all durable state.
package backendapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"campaign_worker/core/domain"
	"campaign_worker/core/port/out"
	"campaign_worker/pkg/apperr"
	"campaign_worker/pkg/httputil"
	"campaign_worker/pkg/logger"

	"github.com/goccy/go-json"
)

// Client implements out.Backend against the backend's internal REST API.
// Requests are authenticated with the X-User-Id header; the backend
// trusts the worker network.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    httputil.BackendClient(),
		log:     logger.WithField("component", "backend_client"),
	}
}

// WithBase returns a client bound to another base URL, sharing the
// pooled transport. Campaign jobs may carry a per-job backend override.
func (c *Client) WithBase(baseURL string) *Client {
	if baseURL == "" || baseURL == c.baseURL {
		return c
	}
	return &Client{baseURL: baseURL, http: c.http, log: c.log}
}

func (c *Client) do(ctx context.Context, method, path, userID string, body, result any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperr.Internal(err, "encode request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperr.Internal(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.BackendError(method+" "+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return apperr.NotFound(method + " " + path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apperr.BackendError(
			method+" "+path,
			fmt.Errorf("status %d: %s", resp.StatusCode, string(data)),
		)
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return apperr.BackendError("decode "+path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path, userID string, result any) error {
	return c.do(ctx, http.MethodGet, path, userID, nil, result)
}

func (c *Client) post(ctx context.Context, path, userID string, body, result any) error {
	return c.do(ctx, http.MethodPost, path, userID, body, result)
}

// Campaign data

func (c *Client) GetContacts(ctx context.Context, userID, sourceID string, page, pageSize int) (*out.ContactPage, error) {
	q := url.Values{}
	q.Set("source_id", sourceID)
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))

	var result out.ContactPage
	if err := c.get(ctx, "/api/internal/contacts?"+q.Encode(), userID, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetTemplate(ctx context.Context, userID, templateID string) (*domain.Template, error) {
	var result domain.Template
	if err := c.get(ctx, "/api/internal/templates/"+url.PathEscape(templateID), userID, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Status reporting

func (c *Client) UpdateCampaignStatus(ctx context.Context, userID, campaignID string, status domain.CampaignStatus, errMsg string) error {
	body := map[string]any{
		"campaign_id": campaignID,
		"status":      status,
	}
	if errMsg != "" {
		body["error"] = errMsg
	}
	return c.post(ctx, "/api/internal/webhooks/campaign-status", userID, body, nil)
}

func (c *Client) UpdateCampaignProgress(ctx context.Context, userID, campaignID string, processed, sent, failed int) error {
	body := map[string]any{
		"campaign_id": campaignID,
		"processed":   processed,
		"sent":        sent,
		"failed":      failed,
	}
	return c.post(ctx, "/api/internal/webhooks/campaign-progress", userID, body, nil)
}

func (c *Client) LogEmail(ctx context.Context, userID string, entry *out.EmailLogEntry) error {
	return c.post(ctx, "/api/internal/email-logs", userID, entry, nil)
}

// Auto-reply data

func (c *Client) UsersWithAutoReply(ctx context.Context) ([]out.AutoReplyUser, error) {
	var result struct {
		Users []out.AutoReplyUser `json:"users"`
	}
	if err := c.get(ctx, "/api/internal/users-with-auto-reply", "", &result); err != nil {
		return nil, err
	}
	return result.Users, nil
}

func (c *Client) AutoReplyCampaigns(ctx context.Context, userID string) ([]*domain.AutoReplyCampaign, error) {
	var result struct {
		Campaigns []*domain.AutoReplyCampaign `json:"campaigns"`
	}
	if err := c.get(ctx, "/api/internal/auto-reply-campaigns", userID, &result); err != nil {
		return nil, err
	}
	return result.Campaigns, nil
}

func (c *Client) OpenConversations(ctx context.Context, userID, campaignID string) ([]*domain.Conversation, error) {
	var result struct {
		Conversations []*domain.Conversation `json:"conversations"`
	}
	path := "/api/internal/campaigns/" + url.PathEscape(campaignID) + "/conversations"
	if err := c.get(ctx, path, userID, &result); err != nil {
		return nil, err
	}
	return result.Conversations, nil
}

func (c *Client) ConversationHistory(ctx context.Context, userID, conversationID string, limit int) ([]domain.ConversationMessage, error) {
	var result struct {
		Messages []domain.ConversationMessage `json:"messages"`
	}
	path := "/api/internal/conversations/" + url.PathEscape(conversationID) + "/messages?limit=" + strconv.Itoa(limit)
	if err := c.get(ctx, path, userID, &result); err != nil {
		return nil, err
	}
	return result.Messages, nil
}

func (c *Client) MessageExists(ctx context.Context, userID, providerMessageID string) (bool, error) {
	var result struct {
		Exists bool `json:"exists"`
	}
	path := "/api/internal/messages/" + url.PathEscape(providerMessageID) + "/exists"
	if err := c.get(ctx, path, userID, &result); err != nil {
		return false, err
	}
	return result.Exists, nil
}

func (c *Client) RecordReply(ctx context.Context, userID string, reply *out.InboundReply) error {
	return c.post(ctx, "/api/internal/replies", userID, reply, nil)
}

func (c *Client) RecordAutoReply(ctx context.Context, userID string, record *out.AutoReplyRecord) error {
	return c.post(ctx, "/api/internal/auto-replies", userID, record, nil)
}

// Calendar passthrough

func (c *Client) GetAvailability(ctx context.Context, userID string, daysAhead int, timezone string) ([]domain.AvailabilitySlot, error) {
	q := url.Values{}
	q.Set("days_ahead", strconv.Itoa(daysAhead))
	if timezone != "" {
		q.Set("timezone", timezone)
	}

	var result struct {
		Slots []domain.AvailabilitySlot `json:"slots"`
	}
	if err := c.get(ctx, "/api/internal/calendar/availability?"+q.Encode(), userID, &result); err != nil {
		return nil, err
	}
	return result.Slots, nil
}

func (c *Client) BookMeeting(ctx context.Context, userID string, req *out.BookingRequest) (*domain.BookingResult, error) {
	var result domain.BookingResult
	if err := c.post(ctx, "/api/internal/calendar/book", userID, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Ensure Client implements out.Backend
var _ out.Backend = (*Client)(nil)
