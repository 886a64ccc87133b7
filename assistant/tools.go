package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/onboardhq/hr-assistant/msgraph"
)

// Calendar is the slice of the Graph client the tools need.
type Calendar interface {
	CreateCalendarEvent(ctx context.Context, in msgraph.EventInput) (*msgraph.Event, error)
	ListCalendarEvents(ctx context.Context, daysAhead, maxResults int) ([]msgraph.Event, error)
}

const signInMessage = "The user is not signed in to their Microsoft account. " +
	"Ask them to sign in from the sidebar before using calendar features."

func (a *Agent) toolDefinitions() []openai.Tool {
	return []openai.Tool{
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name: "hr_knowledge_base",
				Description: "Search the company's HR knowledge base for information about HR policies, " +
					"onboarding procedures, first-week tasks, benefits, or contact information.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"query": {"type": "string", "description": "A clear, specific question about HR topics"}
					},
					"required": ["query"]
				}`),
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name: "create_calendar_event",
				Description: "Create a calendar event on the user's Microsoft Calendar. " +
					"Use this when the user explicitly asks to create a calendar event or reminder.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"title": {"type": "string", "description": "Event title"},
						"time": {"type": "string", "description": "Event start time, RFC3339 or YYYY-MM-DD HH:MM"},
						"description": {"type": "string", "description": "Optional event description"},
						"duration_minutes": {"type": "integer", "description": "Event duration, default 60"},
						"location": {"type": "string", "description": "Optional event location"},
						"reminder_minutes": {"type": "integer", "description": "Reminder lead time, default 15"}
					},
					"required": ["title", "time"]
				}`),
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "list_calendar_events",
				Description: "List the user's upcoming calendar events.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"days": {"type": "integer", "description": "Number of days to look ahead, default 7"}
					}
				}`),
			},
		},
	}
}

// executeTool dispatches one tool call. Tool failures come back as text for
// the model, never as errors: the agent loop must keep going.
func (a *Agent) executeTool(ctx context.Context, name, arguments string) string {
	switch name {
	case "hr_knowledge_base":
		return a.queryKnowledgeBase(ctx, arguments)
	case "create_calendar_event":
		return a.createCalendarEvent(ctx, arguments)
	case "list_calendar_events":
		return a.listCalendarEvents(ctx, arguments)
	default:
		return fmt.Sprintf("Unknown tool: %s", name)
	}
}

func (a *Agent) queryKnowledgeBase(ctx context.Context, arguments string) string {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil || args.Query == "" {
		return "Error: the query argument is required."
	}
	if a.retriever == nil {
		return "I'm sorry, the knowledge base is not available at the moment."
	}

	answer, err := a.retriever.Query(ctx, args.Query)
	if err != nil {
		log.Warn().Err(err).Msg("knowledge base query failed")
		return "I'm sorry, the knowledge base is not available at the moment."
	}
	return answer
}

func (a *Agent) createCalendarEvent(ctx context.Context, arguments string) string {
	var args struct {
		Title           string `json:"title"`
		Time            string `json:"time"`
		Description     string `json:"description"`
		DurationMinutes int    `json:"duration_minutes"`
		Location        string `json:"location"`
		ReminderMinutes int    `json:"reminder_minutes"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "Error: invalid JSON in event details."
	}
	if args.Title == "" {
		return "Error: event 'title' is required."
	}
	if args.Time == "" {
		return "Error: event 'time' is required."
	}

	eventTime, err := ParseEventTime(args.Time)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	if eventTime.Before(a.now().UTC()) {
		return fmt.Sprintf("Error: event time '%s' is in the past.", eventTime.Format("2006-01-02 15:04"))
	}

	duration := args.DurationMinutes
	if duration <= 0 || duration > 1440 {
		duration = 60
	}
	reminder := args.ReminderMinutes
	if reminder <= 0 {
		reminder = 15
	}

	_, err = a.calendar.CreateCalendarEvent(ctx, msgraph.EventInput{
		Subject:         args.Title,
		Start:           eventTime,
		Duration:        time.Duration(duration) * time.Minute,
		Body:            args.Description,
		Location:        args.Location,
		ReminderMinutes: reminder,
	})
	if err != nil {
		if msgraph.IsAuthenticationRequired(err) {
			return signInMessage
		}
		log.Error().Err(err).Msg("failed to create calendar event")
		return fmt.Sprintf("Failed to create calendar event: %v", err)
	}

	msg := fmt.Sprintf("Calendar event created: %s on %s (%d minutes",
		args.Title, eventTime.Format("Monday, January 2, 2006 at 3:04 PM"), duration)
	if args.Location != "" {
		msg += ", " + args.Location
	}
	msg += fmt.Sprintf("). Reminder set for %d minutes before.", reminder)
	return msg
}

func (a *Agent) listCalendarEvents(ctx context.Context, arguments string) string {
	var args struct {
		Days int `json:"days"`
	}
	_ = json.Unmarshal([]byte(arguments), &args)
	if args.Days <= 0 {
		args.Days = 7
	}

	events, err := a.calendar.ListCalendarEvents(ctx, args.Days, 50)
	if err != nil {
		if msgraph.IsAuthenticationRequired(err) {
			return signInMessage
		}
		log.Error().Err(err).Msg("failed to list calendar events")
		return fmt.Sprintf("Failed to list events: %v", err)
	}
	if len(events) == 0 {
		return fmt.Sprintf("No events found in the next %d days.", args.Days)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Upcoming events (next %d days):\n", args.Days)
	for _, event := range events {
		subject := event.Subject
		if subject == "" {
			subject = "No title"
		}
		if start, err := event.StartTime(); err == nil {
			fmt.Fprintf(&b, "- %s - %s\n", start.Format("2006-01-02 15:04"), subject)
		} else {
			fmt.Fprintf(&b, "- %s\n", subject)
		}
	}
	return b.String()
}

// ParseEventTime accepts RFC3339 plus the formats models tend to emit.
// Times without an offset are treated as UTC.
func ParseEventTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range []string{
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse datetime %q", value)
}
