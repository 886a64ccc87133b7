package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/onboardhq/hr-assistant/knowledge"
	"github.com/onboardhq/hr-assistant/msgraph"
)

// fakeRetriever scripts knowledge base answers.
type fakeRetriever struct {
	answer   string
	err      error
	gotQuery string
}

func (r *fakeRetriever) Query(ctx context.Context, query string) (string, error) {
	r.gotQuery = query
	return r.answer, r.err
}

// fakeCalendar records calendar calls and scripts their outcomes.
type fakeCalendar struct {
	createErr error
	gotInput  msgraph.EventInput

	events  []msgraph.Event
	listErr error
	gotDays int
}

func (c *fakeCalendar) CreateCalendarEvent(ctx context.Context, in msgraph.EventInput) (*msgraph.Event, error) {
	c.gotInput = in
	if c.createErr != nil {
		return nil, c.createErr
	}
	return &msgraph.Event{ID: "event-1", Subject: in.Subject}, nil
}

func (c *fakeCalendar) ListCalendarEvents(ctx context.Context, daysAhead, maxResults int) ([]msgraph.Event, error) {
	c.gotDays = daysAhead
	return c.events, c.listErr
}

func fixedNow() time.Time {
	return time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
}

func toolTestAgent(retriever knowledge.Retriever, calendar Calendar) *Agent {
	return &Agent{retriever: retriever, calendar: calendar, now: fixedNow}
}

func TestExecuteToolUnknownTool(t *testing.T) {
	a := toolTestAgent(&fakeRetriever{}, &fakeCalendar{})
	result := a.executeTool(context.Background(), "delete_everything", "{}")
	require.Contains(t, result, "Unknown tool")
}

func TestQueryKnowledgeBase(t *testing.T) {
	retriever := &fakeRetriever{answer: "[Leave Policy]\nParental leave is 16 weeks."}
	a := toolTestAgent(retriever, &fakeCalendar{})

	result := a.executeTool(context.Background(), "hr_knowledge_base", `{"query": "parental leave"}`)
	require.Equal(t, retriever.answer, result)
	require.Equal(t, "parental leave", retriever.gotQuery)
}

func TestQueryKnowledgeBaseMissingQuery(t *testing.T) {
	a := toolTestAgent(&fakeRetriever{}, &fakeCalendar{})
	result := a.executeTool(context.Background(), "hr_knowledge_base", `{}`)
	require.Contains(t, result, "query argument is required")
}

func TestQueryKnowledgeBaseUnavailable(t *testing.T) {
	retriever := &fakeRetriever{err: knowledge.ErrUnavailable}
	a := toolTestAgent(retriever, &fakeCalendar{})

	result := a.executeTool(context.Background(), "hr_knowledge_base", `{"query": "benefits"}`)
	require.Contains(t, result, "not available at the moment")
}

func TestQueryKnowledgeBaseNoRetriever(t *testing.T) {
	a := toolTestAgent(nil, &fakeCalendar{})
	result := a.executeTool(context.Background(), "hr_knowledge_base", `{"query": "benefits"}`)
	require.Contains(t, result, "not available at the moment")
}

func TestCreateCalendarEventTool(t *testing.T) {
	calendar := &fakeCalendar{}
	a := toolTestAgent(&fakeRetriever{}, calendar)

	result := a.executeTool(context.Background(), "create_calendar_event",
		`{"title": "Benefits session", "time": "2026-09-01 14:00", "duration_minutes": 30, "location": "Room 4.01", "reminder_minutes": 30}`)

	require.Contains(t, result, "Calendar event created: Benefits session")
	require.Contains(t, result, "Room 4.01")
	require.Contains(t, result, "Reminder set for 30 minutes before")

	require.Equal(t, "Benefits session", calendar.gotInput.Subject)
	require.Equal(t, time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC), calendar.gotInput.Start)
	require.Equal(t, 30*time.Minute, calendar.gotInput.Duration)
	require.Equal(t, "Room 4.01", calendar.gotInput.Location)
	require.Equal(t, 30, calendar.gotInput.ReminderMinutes)
}

func TestCreateCalendarEventToolDefaults(t *testing.T) {
	calendar := &fakeCalendar{}
	a := toolTestAgent(&fakeRetriever{}, calendar)

	result := a.executeTool(context.Background(), "create_calendar_event",
		`{"title": "Standup", "time": "2026-09-01T09:00:00Z"}`)

	require.Contains(t, result, "Calendar event created")
	require.Equal(t, time.Hour, calendar.gotInput.Duration)
	require.Equal(t, 15, calendar.gotInput.ReminderMinutes)
}

func TestCreateCalendarEventToolClampsAbsurdDuration(t *testing.T) {
	calendar := &fakeCalendar{}
	a := toolTestAgent(&fakeRetriever{}, calendar)

	a.executeTool(context.Background(), "create_calendar_event",
		`{"title": "Offsite", "time": "2026-09-01 09:00", "duration_minutes": 99999}`)

	require.Equal(t, time.Hour, calendar.gotInput.Duration)
}

func TestCreateCalendarEventToolValidation(t *testing.T) {
	a := toolTestAgent(&fakeRetriever{}, &fakeCalendar{})

	result := a.executeTool(context.Background(), "create_calendar_event", `{"time": "2026-09-01 09:00"}`)
	require.Contains(t, result, "'title' is required")

	result = a.executeTool(context.Background(), "create_calendar_event", `{"title": "Standup"}`)
	require.Contains(t, result, "'time' is required")

	result = a.executeTool(context.Background(), "create_calendar_event", `{"title": "Standup", "time": "next tuesday-ish"}`)
	require.Contains(t, result, "unable to parse datetime")

	result = a.executeTool(context.Background(), "create_calendar_event", `not json`)
	require.Contains(t, result, "invalid JSON")
}

func TestCreateCalendarEventToolRejectsPastTime(t *testing.T) {
	a := toolTestAgent(&fakeRetriever{}, &fakeCalendar{})

	result := a.executeTool(context.Background(), "create_calendar_event",
		`{"title": "Retro", "time": "2020-01-01 09:00"}`)
	require.Contains(t, result, "in the past")
}

func TestCreateCalendarEventToolNotSignedIn(t *testing.T) {
	calendar := &fakeCalendar{createErr: msgraph.ErrAuthenticationRequired}
	a := toolTestAgent(&fakeRetriever{}, calendar)

	result := a.executeTool(context.Background(), "create_calendar_event",
		`{"title": "Standup", "time": "2026-09-01 09:00"}`)
	require.Equal(t, signInMessage, result)
}

func TestCreateCalendarEventToolTokenRevoked(t *testing.T) {
	calendar := &fakeCalendar{createErr: fmt.Errorf("creating event: %w", msgraph.ErrUnauthorised)}
	a := toolTestAgent(&fakeRetriever{}, calendar)

	result := a.executeTool(context.Background(), "create_calendar_event",
		`{"title": "Standup", "time": "2026-09-01 09:00"}`)
	require.Equal(t, signInMessage, result)
}

func TestListCalendarEventsTool(t *testing.T) {
	calendar := &fakeCalendar{events: []msgraph.Event{
		graphEvent(t, "Team standup", "2026-09-01T09:00:00Z"),
		graphEvent(t, "", "2026-09-02T13:30:00Z"),
	}}
	a := toolTestAgent(&fakeRetriever{}, calendar)

	result := a.executeTool(context.Background(), "list_calendar_events", `{"days": 3}`)
	require.Equal(t, 3, calendar.gotDays)
	require.Contains(t, result, "Upcoming events (next 3 days)")
	require.Contains(t, result, "- 2026-09-01 09:00 - Team standup")
	require.Contains(t, result, "- 2026-09-02 13:30 - No title")
}

func TestListCalendarEventsToolDefaultsDays(t *testing.T) {
	calendar := &fakeCalendar{}
	a := toolTestAgent(&fakeRetriever{}, calendar)

	result := a.executeTool(context.Background(), "list_calendar_events", `{}`)
	require.Equal(t, 7, calendar.gotDays)
	require.Contains(t, result, "No events found in the next 7 days")
}

func TestListCalendarEventsToolNotSignedIn(t *testing.T) {
	calendar := &fakeCalendar{listErr: msgraph.ErrAuthenticationRequired}
	a := toolTestAgent(&fakeRetriever{}, calendar)

	result := a.executeTool(context.Background(), "list_calendar_events", `{}`)
	require.Equal(t, signInMessage, result)
}

func TestListCalendarEventsToolTokenRevoked(t *testing.T) {
	calendar := &fakeCalendar{listErr: msgraph.ErrUnauthorised}
	a := toolTestAgent(&fakeRetriever{}, calendar)

	result := a.executeTool(context.Background(), "list_calendar_events", `{}`)
	require.Equal(t, signInMessage, result)
}

func TestListCalendarEventsToolOtherFailure(t *testing.T) {
	calendar := &fakeCalendar{listErr: errors.New("graph down")}
	a := toolTestAgent(&fakeRetriever{}, calendar)

	result := a.executeTool(context.Background(), "list_calendar_events", `{}`)
	require.Contains(t, result, "Failed to list events")
}

func TestParseEventTime(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2026-09-01T14:00:00Z", time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC)},
		{"2026-09-01T16:00:00+02:00", time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC)},
		{"2026-09-01T14:00:00", time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC)},
		{"2026-09-01 14:00:00", time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC)},
		{"2026-09-01 14:00", time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC)},
		{"2026-09-01", time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)},
		{"  2026-09-01 14:00  ", time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC)},
	}
	for _, tc := range tests {
		got, err := ParseEventTime(tc.input)
		require.NoError(t, err, "input %q", tc.input)
		require.True(t, got.Equal(tc.want), "input %q: got %v", tc.input, got)
	}
}

func TestParseEventTimeRejectsGarbage(t *testing.T) {
	_, err := ParseEventTime("sometime next week")
	require.Error(t, err)
}

// graphEvent builds an Event through its wire form, matching what the Graph
// client decodes.
func graphEvent(t *testing.T, subject, start string) msgraph.Event {
	t.Helper()
	var event msgraph.Event
	payload := fmt.Sprintf(`{"subject": %q, "start": {"dateTime": %q, "timeZone": "UTC"}}`, subject, start)
	require.NoError(t, json.Unmarshal([]byte(payload), &event))
	return event
}
