package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"campaign_worker/core/agent/tools"
	"campaign_worker/core/domain"
)

type fakeGenerator struct {
	plainText  string
	plainErr   error
	transcript *tools.Transcript
	toolsErr   error
}

func (f *fakeGenerator) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f.plainText, f.plainErr
}

func (f *fakeGenerator) CompleteWithTools(ctx context.Context, systemPrompt, userPrompt string, defs []tools.ToolDefinition, run tools.RunFunc, maxSteps int) (*tools.Transcript, error) {
	return f.transcript, f.toolsErr
}

type stubTool struct{ name string }

func (s *stubTool) Name() string                      { return s.name }
func (s *stubTool) Description() string               { return "stub" }
func (s *stubTool) Parameters() []tools.ParameterSpec { return nil }
func (s *stubTool) Execute(ctx context.Context, userID string, args map[string]any) (*tools.ToolResult, error) {
	return &tools.ToolResult{Success: true}, nil
}

func replyCtx() *ReplyContext {
	return &ReplyContext{
		UserID:       "user-1",
		ContactEmail: "ann@example.com",
		ContactName:  "Ann",
		Subject:      "Quick question",
		Body:         "Can you tell me more about pricing?",
	}
}

func TestGenerateReplyFallbackWithoutGenerator(t *testing.T) {
	agent := NewReplyAgent(nil, nil, 5)

	resp := agent.GenerateReply(context.Background(), replyCtx())
	if !resp.ShouldReply {
		t.Fatal("fallback must still reply")
	}
	if resp.Body != fallbackBody {
		t.Errorf("body = %q, want the static fallback", resp.Body)
	}
	if resp.Subject != "Re: Quick question" {
		t.Errorf("subject = %q", resp.Subject)
	}
}

func TestGenerateReplyFallbackOnError(t *testing.T) {
	agent := NewReplyAgent(&fakeGenerator{plainErr: errors.New("rate limited")}, nil, 5)

	resp := agent.GenerateReply(context.Background(), replyCtx())
	if !resp.ShouldReply || resp.Body != fallbackBody {
		t.Error("generation errors collapse to the fallback reply")
	}
}

func TestGenerateReplyNoReplySentinel(t *testing.T) {
	gen := &fakeGenerator{plainText: "SHOULD_NOT_REPLY"}
	agent := NewReplyAgent(gen, nil, 5)

	rc := replyCtx()
	rc.Body = "Please unsubscribe me."
	resp := agent.GenerateReply(context.Background(), rc)
	if resp.ShouldReply {
		t.Fatal("sentinel output must suppress the reply")
	}
	if resp.Sentiment != domain.SentimentNegative {
		t.Errorf("sentiment = %v, want negative", resp.Sentiment)
	}
}

func TestGenerateReplyPlain(t *testing.T) {
	gen := &fakeGenerator{plainText: "  Happy to help with pricing.\n"}
	agent := NewReplyAgent(gen, nil, 5)

	resp := agent.GenerateReply(context.Background(), replyCtx())
	if !resp.ShouldReply {
		t.Fatal("expected a reply")
	}
	if resp.Body != "Happy to help with pricing." {
		t.Errorf("body not trimmed: %q", resp.Body)
	}
}

func TestGenerateReplyAppendsBookingURL(t *testing.T) {
	registry := tools.NewRegistry()
	registry.Register(&stubTool{name: "book_meeting"})

	gen := &fakeGenerator{
		transcript: &tools.Transcript{
			Content: "I've booked our call for Tuesday.",
			Calls: []tools.ExecutedCall{
				{
					Call: tools.ToolCall{Name: "book_meeting"},
					Result: &tools.ToolResult{
						Success: true,
						Data: map[string]any{
							"booking_url": "https://cal.example.com/b/123",
							"booking_id":  "123",
						},
					},
				},
			},
		},
	}
	agent := NewReplyAgent(gen, registry, 5)

	resp := agent.GenerateReply(context.Background(), replyCtx())
	if !resp.ShouldReply {
		t.Fatal("expected a reply")
	}
	if resp.BookingURL != "https://cal.example.com/b/123" || resp.BookingID != "123" {
		t.Errorf("booking = %q/%q", resp.BookingURL, resp.BookingID)
	}
	if !strings.Contains(resp.Body, "https://cal.example.com/b/123") {
		t.Errorf("booking url missing from body: %q", resp.Body)
	}
}

func TestGenerateReplyBookingURLNotDuplicated(t *testing.T) {
	registry := tools.NewRegistry()
	registry.Register(&stubTool{name: "book_meeting"})

	gen := &fakeGenerator{
		transcript: &tools.Transcript{
			Content: "All set: https://cal.example.com/b/123 has the details.",
			Calls: []tools.ExecutedCall{
				{
					Result: &tools.ToolResult{
						Success: true,
						Data:    map[string]any{"booking_url": "https://cal.example.com/b/123"},
					},
				},
			},
		},
	}
	agent := NewReplyAgent(gen, registry, 5)

	resp := agent.GenerateReply(context.Background(), replyCtx())
	if strings.Count(resp.Body, "https://cal.example.com/b/123") != 1 {
		t.Errorf("booking url duplicated in body: %q", resp.Body)
	}
}

func TestGenerateReplyToolsAlwaysReply(t *testing.T) {
	registry := tools.NewRegistry()
	registry.Register(&stubTool{name: "get_calendar_availability"})

	// The tool-enabled prompt never uses the sentinel; even opt-out text
	// gets a reply (the model is told to acknowledge it).
	gen := &fakeGenerator{transcript: &tools.Transcript{Content: "Understood, I've noted your request."}}
	agent := NewReplyAgent(gen, registry, 5)

	rc := replyCtx()
	rc.Body = "Please unsubscribe me."
	resp := agent.GenerateReply(context.Background(), rc)
	if !resp.ShouldReply {
		t.Error("tool-enabled agent always replies")
	}
	if resp.Sentiment != domain.SentimentNegative {
		t.Errorf("sentiment = %v, want negative", resp.Sentiment)
	}
}

func TestGenerateReplyEmptyToolContentFallsBack(t *testing.T) {
	registry := tools.NewRegistry()
	registry.Register(&stubTool{name: "book_meeting"})

	gen := &fakeGenerator{transcript: &tools.Transcript{Content: "   "}}
	agent := NewReplyAgent(gen, registry, 5)

	resp := agent.GenerateReply(context.Background(), replyCtx())
	if resp.Body != fallbackBody {
		t.Errorf("empty model output must fall back, got %q", resp.Body)
	}
}

func TestGenerateReplyBookingSurvivesEmptyContent(t *testing.T) {
	registry := tools.NewRegistry()
	registry.Register(&stubTool{name: "book_meeting"})

	// A booking succeeded but the model produced no closing text; the link
	// still has to reach the contact.
	gen := &fakeGenerator{
		transcript: &tools.Transcript{
			Content: "",
			Calls: []tools.ExecutedCall{
				{
					Call: tools.ToolCall{Name: "book_meeting"},
					Result: &tools.ToolResult{
						Success: true,
						Data: map[string]any{
							"booking_url": "https://cal.example.com/b/456",
							"booking_id":  "456",
						},
					},
				},
			},
		},
	}
	agent := NewReplyAgent(gen, registry, 5)

	resp := agent.GenerateReply(context.Background(), replyCtx())
	if !resp.ShouldReply {
		t.Fatal("expected a reply")
	}
	if !strings.HasPrefix(resp.Body, fallbackBody) {
		t.Errorf("body should start from the fallback text, got %q", resp.Body)
	}
	if !strings.Contains(resp.Body, "https://cal.example.com/b/456") {
		t.Errorf("booking url missing from body: %q", resp.Body)
	}
	if resp.BookingURL != "https://cal.example.com/b/456" || resp.BookingID != "456" {
		t.Errorf("booking = %q/%q", resp.BookingURL, resp.BookingID)
	}
}

func TestReplySubject(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Quick question", "Re: Quick question"},
		{"Re: Quick question", "Re: Quick question"},
		{"RE: Quick question", "RE: Quick question"},
		{"", "Re: your message"},
		{"  spaced  ", "Re: spaced"},
	}
	for _, tt := range tests {
		if got := replySubject(tt.in); got != tt.want {
			t.Errorf("replySubject(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
