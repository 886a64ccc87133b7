package msgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/onboardhq/hr-assistant/internal/utils"
)

// Microsoft Graph API base URL.
const graphBaseURL = "https://graph.microsoft.com/v1.0"

// Graph allows roughly 10k requests per 10 minutes; stay well under that.
const (
	graphRequestsPerSecond = 10.0
	graphBurstSize         = 15
)

// TokenProvider supplies a bearer token for Graph requests. The only contract
// is a valid, non-empty token string or ErrAuthenticationRequired.
type TokenProvider interface {
	AcquireToken(ctx context.Context) (string, error)
}

// Client is a bearer-token-authenticated Microsoft Graph client for the
// profile and calendar operations the assistant exposes.
type Client struct {
	baseURL string
	tokens  TokenProvider
	client  *http.Client
	limiter *rate.Limiter
}

func NewClient(tokens TokenProvider) *Client {
	return &Client{
		baseURL: graphBaseURL,
		tokens:  tokens,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(graphRequestsPerSecond), graphBurstSize),
	}
}

// NewClientWithBaseURL is used by tests to point the client at a fake Graph.
func NewClientWithBaseURL(tokens TokenProvider, baseURL string) *Client {
	c := NewClient(tokens)
	c.baseURL = baseURL
	return c
}

// doRequest issues one authenticated request. A 401 means the cached token is
// no longer accepted and re-authentication must happen upstream.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, payload, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	token, err := c.tokens.AcquireToken(ctx)
	if err != nil {
		return err
	}

	var body io.Reader = http.NoBody
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("graph request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Error().Int("status", resp.StatusCode).Str("endpoint", endpoint).
			Str("body", string(text)).Msg("graph request failed")
		if err := WrapError(resp.StatusCode); err != nil {
			return fmt.Errorf("graph request failed with status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("graph request failed with status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// UserProfile is the authenticated user's basic profile.
type UserProfile struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
}

// Email returns the user's address, falling back to the principal name.
func (u *UserProfile) Email() string {
	if u.Mail != "" {
		return u.Mail
	}
	return u.UserPrincipalName
}

// GetUserProfile fetches the authenticated user's profile.
func (c *Client) GetUserProfile(ctx context.Context) (*UserProfile, error) {
	var profile UserProfile
	if err := c.doRequest(ctx, http.MethodGet, "me", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// dateTimeTimeZone is Graph's event time representation.
type dateTimeTimeZone struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type itemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type eventLocation struct {
	DisplayName string `json:"displayName"`
}

// Event mirrors the Graph calendar event fields the assistant cares about.
type Event struct {
	ID                         string           `json:"id,omitempty"`
	Subject                    string           `json:"subject"`
	Start                      dateTimeTimeZone `json:"start"`
	End                        dateTimeTimeZone `json:"end"`
	Body                       *itemBody        `json:"body,omitempty"`
	Location                   *eventLocation   `json:"location,omitempty"`
	IsReminderOn               bool             `json:"isReminderOn"`
	ReminderMinutesBeforeStart int              `json:"reminderMinutesBeforeStart"`
}

// StartTime parses the event's start instant. Graph returns times without an
// offset plus a separate zone name; the assistant requests UTC windows.
func (e *Event) StartTime() (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, e.Start.DateTime); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05.9999999", e.Start.DateTime)
}

// EventInput describes a calendar event to create. Times are UTC throughout.
type EventInput struct {
	Subject         string
	Start           time.Time
	Duration        time.Duration
	Body            string
	Location        string
	ReminderMinutes int
}

// CreateCalendarEvent creates an event on the user's default calendar.
func (c *Client) CreateCalendarEvent(ctx context.Context, in EventInput) (*Event, error) {
	if in.Duration <= 0 {
		in.Duration = time.Hour
	}
	if in.ReminderMinutes <= 0 {
		in.ReminderMinutes = 15
	}

	start := in.Start.UTC()
	end := start.Add(in.Duration)

	event := Event{
		Subject:                    in.Subject,
		Start:                      dateTimeTimeZone{DateTime: start.Format(time.RFC3339), TimeZone: "UTC"},
		End:                        dateTimeTimeZone{DateTime: end.Format(time.RFC3339), TimeZone: "UTC"},
		IsReminderOn:               true,
		ReminderMinutesBeforeStart: in.ReminderMinutes,
	}
	if in.Body != "" {
		event.Body = utils.Ptr(itemBody{ContentType: "Text", Content: in.Body})
	}
	if in.Location != "" {
		event.Location = utils.Ptr(eventLocation{DisplayName: in.Location})
	}

	var created Event
	if err := c.doRequest(ctx, http.MethodPost, "me/events", event, &created); err != nil {
		return nil, err
	}
	log.Info().Str("subject", in.Subject).Msg("created calendar event")
	return &created, nil
}

// ListCalendarEvents returns events in the next daysAhead days, UTC window.
func (c *Client) ListCalendarEvents(ctx context.Context, daysAhead, maxResults int) ([]Event, error) {
	if daysAhead <= 0 {
		daysAhead = 7
	}
	if maxResults <= 0 {
		maxResults = 50
	}

	now := time.Now().UTC()
	endpoint := fmt.Sprintf("me/calendar/calendarView?startDateTime=%s&endDateTime=%s&$top=%d&$orderby=start/dateTime",
		url.QueryEscape(now.Format(time.RFC3339)),
		url.QueryEscape(now.AddDate(0, 0, daysAhead).Format(time.RFC3339)),
		maxResults,
	)

	var result struct {
		Value []Event `json:"value"`
	}
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &result); err != nil {
		return nil, err
	}
	return result.Value, nil
}
