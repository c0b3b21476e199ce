package tools

import (
	"context"
	"fmt"
	"time"

	"campaign_worker/core/port/out"
)

const (
	defaultDaysAhead = 30
	maxSlotsReturned = 30
)

// TimeSlot is a normalized availability slot as presented to the model.
type TimeSlot struct {
	Date            string `json:"date"`
	Time            string `json:"time"`
	Start           string `json:"start"`
	End             string `json:"end"`
	DurationMinutes int    `json:"duration_minutes"`
	Timezone        string `json:"timezone"`
}

// AvailabilityTool fetches free calendar slots from the backend.
type AvailabilityTool struct {
	backend out.Backend
}

func NewAvailabilityTool(backend out.Backend) *AvailabilityTool {
	return &AvailabilityTool{backend: backend}
}

func (t *AvailabilityTool) Name() string { return "get_calendar_availability" }

func (t *AvailabilityTool) Description() string {
	return "Get free calendar slots that can be offered to the contact for a meeting. Returns date, time, start/end timestamps, duration and timezone for each slot."
}

func (t *AvailabilityTool) Parameters() []ParameterSpec {
	return []ParameterSpec{
		{Name: "days_ahead", Type: "number", Description: "How many days ahead to look for free slots", Default: defaultDaysAhead},
		{Name: "timezone", Type: "string", Description: "IANA timezone for the returned slots, e.g. Europe/Berlin"},
	}
}

func (t *AvailabilityTool) Execute(ctx context.Context, userID string, args map[string]any) (*ToolResult, error) {
	daysAhead := getIntArg(args, "days_ahead", defaultDaysAhead)
	if daysAhead <= 0 {
		daysAhead = defaultDaysAhead
	}
	timezone := getStringArg(args, "timezone", "")

	slots, err := t.backend.GetAvailability(ctx, userID, daysAhead, timezone)
	if err != nil {
		return &ToolResult{Success: false, Error: err.Error()}, nil
	}

	normalized := make([]TimeSlot, 0, maxSlotsReturned)
	for _, slot := range slots {
		if len(normalized) >= maxSlotsReturned {
			break
		}
		tz := slot.Timezone
		if tz == "" {
			tz = "UTC"
		}
		normalized = append(normalized, TimeSlot{
			Date:            slot.Start.Format("2006-01-02"),
			Time:            slot.Start.Format("15:04"),
			Start:           slot.Start.Format(time.RFC3339),
			End:             slot.End.Format(time.RFC3339),
			DurationMinutes: int(slot.End.Sub(slot.Start).Minutes()),
			Timezone:        tz,
		})
	}

	return &ToolResult{
		Success: true,
		Data:    map[string]any{"slots": normalized},
		Message: fmt.Sprintf("Found %d available slots", len(normalized)),
	}, nil
}

// BookMeetingTool books a meeting through the backend calendar.
type BookMeetingTool struct {
	backend out.Backend
}

func NewBookMeetingTool(backend out.Backend) *BookMeetingTool {
	return &BookMeetingTool{backend: backend}
}

func (t *BookMeetingTool) Name() string { return "book_meeting" }

func (t *BookMeetingTool) Description() string {
	return "Book a meeting with the contact at an agreed time. Use a slot from get_calendar_availability. Returns a booking confirmation with a link."
}

func (t *BookMeetingTool) Parameters() []ParameterSpec {
	return []ParameterSpec{
		{Name: "start_time", Type: "string", Description: "Meeting start (ISO 8601)", Required: true},
		{Name: "end_time", Type: "string", Description: "Meeting end (ISO 8601)", Required: true},
		{Name: "attendee_email", Type: "string", Description: "Contact's email address", Required: true},
		{Name: "attendee_name", Type: "string", Description: "Contact's name", Required: true},
		{Name: "notes", Type: "string", Description: "Optional notes for the meeting"},
	}
}

func (t *BookMeetingTool) Execute(ctx context.Context, userID string, args map[string]any) (*ToolResult, error) {
	req := &out.BookingRequest{
		StartTime:     getStringArg(args, "start_time", ""),
		EndTime:       getStringArg(args, "end_time", ""),
		AttendeeEmail: getStringArg(args, "attendee_email", ""),
		AttendeeName:  getStringArg(args, "attendee_name", ""),
		Notes:         getStringArg(args, "notes", ""),
	}

	result, err := t.backend.BookMeeting(ctx, userID, req)
	if err != nil {
		return &ToolResult{Success: false, Error: err.Error()}, nil
	}
	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = "booking was rejected by the calendar"
		}
		return &ToolResult{Success: false, Error: msg}, nil
	}

	return &ToolResult{
		Success: true,
		Data: map[string]any{
			"booking_url": result.BookingURL,
			"booking_id":  result.BookingID,
		},
		Message: fmt.Sprintf("Meeting booked for %s", req.StartTime),
	}, nil
}

// Argument helpers

func getStringArg(args map[string]any, name, fallback string) string {
	if v, ok := args[name].(string); ok && v != "" {
		return v
	}
	return fallback
}

func getIntArg(args map[string]any, name string, fallback int) int {
	switch v := args[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}
