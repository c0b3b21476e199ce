package tools

import (
	"context"
	"errors"
	"testing"
	"time"

	"campaign_worker/core/domain"
	"campaign_worker/core/port/out"
)

type fakeCalendarBackend struct {
	out.Backend

	slots    []domain.AvailabilitySlot
	availErr error

	booked  *out.BookingRequest
	booking *domain.BookingResult
	bookErr error
}

func (f *fakeCalendarBackend) GetAvailability(ctx context.Context, userID string, daysAhead int, timezone string) ([]domain.AvailabilitySlot, error) {
	if f.availErr != nil {
		return nil, f.availErr
	}
	return f.slots, nil
}

func (f *fakeCalendarBackend) BookMeeting(ctx context.Context, userID string, req *out.BookingRequest) (*domain.BookingResult, error) {
	f.booked = req
	if f.bookErr != nil {
		return nil, f.bookErr
	}
	return f.booking, nil
}

func TestAvailabilityToolNormalizesSlots(t *testing.T) {
	start := time.Date(2026, 9, 3, 14, 0, 0, 0, time.UTC)
	backend := &fakeCalendarBackend{
		slots: []domain.AvailabilitySlot{
			{Start: start, End: start.Add(30 * time.Minute), Timezone: "Europe/Berlin"},
			{Start: start.Add(time.Hour), End: start.Add(90 * time.Minute)},
		},
	}
	tool := NewAvailabilityTool(backend)

	result, err := tool.Execute(context.Background(), "user-1", map[string]any{"days_ahead": float64(7)})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !result.Success {
		t.Fatalf("result not successful: %s", result.Error)
	}

	slots := result.Data.(map[string]any)["slots"].([]TimeSlot)
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	first := slots[0]
	if first.Date != "2026-09-03" || first.Time != "14:00" {
		t.Errorf("slot date/time = %s %s", first.Date, first.Time)
	}
	if first.DurationMinutes != 30 {
		t.Errorf("duration = %d, want 30", first.DurationMinutes)
	}
	if first.Timezone != "Europe/Berlin" {
		t.Errorf("timezone = %s", first.Timezone)
	}
	if slots[1].Timezone != "UTC" {
		t.Errorf("missing timezone should default to UTC, got %s", slots[1].Timezone)
	}
}

func TestAvailabilityToolCapsSlots(t *testing.T) {
	start := time.Now().Truncate(time.Hour)
	backend := &fakeCalendarBackend{}
	for i := 0; i < maxSlotsReturned+10; i++ {
		s := start.Add(time.Duration(i) * time.Hour)
		backend.slots = append(backend.slots, domain.AvailabilitySlot{Start: s, End: s.Add(30 * time.Minute)})
	}
	tool := NewAvailabilityTool(backend)

	result, err := tool.Execute(context.Background(), "user-1", nil)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	slots := result.Data.(map[string]any)["slots"].([]TimeSlot)
	if len(slots) != maxSlotsReturned {
		t.Errorf("got %d slots, want cap of %d", len(slots), maxSlotsReturned)
	}
}

func TestAvailabilityToolBackendError(t *testing.T) {
	tool := NewAvailabilityTool(&fakeCalendarBackend{availErr: errors.New("calendar unavailable")})

	result, err := tool.Execute(context.Background(), "user-1", nil)
	if err != nil {
		t.Fatalf("backend errors must come back as failed results, got error %v", err)
	}
	if result.Success {
		t.Fatal("expected failed result")
	}
	if result.Error != "calendar unavailable" {
		t.Errorf("error = %q", result.Error)
	}
}

func TestBookMeetingTool(t *testing.T) {
	backend := &fakeCalendarBackend{
		booking: &domain.BookingResult{
			Success:    true,
			BookingURL: "https://cal.example.com/b/42",
			BookingID:  "42",
		},
	}
	tool := NewBookMeetingTool(backend)

	args := map[string]any{
		"start_time":     "2026-09-03T14:00:00Z",
		"end_time":       "2026-09-03T14:30:00Z",
		"attendee_email": "ann@example.com",
		"attendee_name":  "Ann",
	}
	result, err := tool.Execute(context.Background(), "user-1", args)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !result.Success {
		t.Fatalf("booking failed: %s", result.Error)
	}

	data := result.Data.(map[string]any)
	if data["booking_url"] != "https://cal.example.com/b/42" || data["booking_id"] != "42" {
		t.Errorf("booking data = %v", data)
	}
	if backend.booked.AttendeeEmail != "ann@example.com" {
		t.Errorf("request attendee = %q", backend.booked.AttendeeEmail)
	}
}

func TestBookMeetingToolRejection(t *testing.T) {
	tool := NewBookMeetingTool(&fakeCalendarBackend{
		booking: &domain.BookingResult{Success: false, Error: "slot taken"},
	})

	result, err := tool.Execute(context.Background(), "user-1", map[string]any{
		"start_time":     "2026-09-03T14:00:00Z",
		"end_time":       "2026-09-03T14:30:00Z",
		"attendee_email": "ann@example.com",
		"attendee_name":  "Ann",
	})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if result.Success || result.Error != "slot taken" {
		t.Errorf("result = %+v, want failure with rejection text", result)
	}
}

func TestExecutorValidatesRequiredParams(t *testing.T) {
	registry := NewRegistry()
	registry.Register(NewBookMeetingTool(&fakeCalendarBackend{}))
	executor := NewExecutor(registry)

	result := executor.Execute(context.Background(), "user-1", &ToolCall{
		Name: "book_meeting",
		Args: map[string]any{"start_time": "2026-09-03T14:00:00Z"},
	})
	if result.Success {
		t.Fatal("missing required params must fail")
	}
	if result.Error != "missing required parameter: end_time" {
		t.Errorf("error = %q", result.Error)
	}
}

func TestExecutorUnknownTool(t *testing.T) {
	executor := NewExecutor(NewRegistry())

	result := executor.Execute(context.Background(), "user-1", &ToolCall{Name: "launch_rocket"})
	if result.Success {
		t.Fatal("unknown tool must fail")
	}
	if result.Error != "tool not found: launch_rocket" {
		t.Errorf("error = %q", result.Error)
	}
}
