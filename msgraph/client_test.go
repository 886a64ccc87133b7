package msgraph_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/onboardhq/hr-assistant/msgraph"
)

// staticTokenProvider hands out a fixed bearer token, or the error if set.
type staticTokenProvider struct {
	token string
	err   error
}

func (p staticTokenProvider) AcquireToken(ctx context.Context) (string, error) {
	return p.token, p.err
}

func TestGetUserProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/me", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "user-1",
			"displayName": "Jane Doe",
			"mail": "jane.doe@example.com",
			"userPrincipalName": "jane.doe@outlook.com"
		}`))
	}))
	defer srv.Close()

	client := msgraph.NewClientWithBaseURL(staticTokenProvider{token: "test-token"}, srv.URL)

	profile, err := client.GetUserProfile(context.Background())
	require.NoError(t, err)
	require.Equal(t, "user-1", profile.ID)
	require.Equal(t, "Jane Doe", profile.DisplayName)
	require.Equal(t, "jane.doe@example.com", profile.Email())
}

func TestUserProfileEmailFallsBackToPrincipalName(t *testing.T) {
	profile := &msgraph.UserProfile{UserPrincipalName: "jane.doe@outlook.com"}
	require.Equal(t, "jane.doe@outlook.com", profile.Email())
}

func TestGetUserProfileNotAuthenticated(t *testing.T) {
	client := msgraph.NewClientWithBaseURL(staticTokenProvider{err: msgraph.ErrAuthenticationRequired}, "http://127.0.0.1:1")

	_, err := client.GetUserProfile(context.Background())
	require.ErrorIs(t, err, msgraph.ErrAuthenticationRequired)
}

func TestGetUserProfileStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, msgraph.ErrUnauthorised},
		{http.StatusForbidden, msgraph.ErrForbidden},
		{http.StatusNotFound, msgraph.ErrNotFound},
		{http.StatusTooManyRequests, msgraph.ErrRateLimited},
		{http.StatusBadRequest, msgraph.ErrBadRequest},
		{http.StatusInternalServerError, msgraph.ErrServerError},
	}

	for _, tc := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))

		client := msgraph.NewClientWithBaseURL(staticTokenProvider{token: "test-token"}, srv.URL)
		_, err := client.GetUserProfile(context.Background())
		require.ErrorIs(t, err, tc.want, "status %d", tc.status)

		srv.Close()
	}
}

func TestCreateCalendarEventDefaults(t *testing.T) {
	var got msgraph.Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/me/events", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		got.ID = "event-1"
		json.NewEncoder(w).Encode(got)
	}))
	defer srv.Close()

	client := msgraph.NewClientWithBaseURL(staticTokenProvider{token: "test-token"}, srv.URL)

	start := time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC)
	created, err := client.CreateCalendarEvent(context.Background(), msgraph.EventInput{
		Subject: "1:1 with manager",
		Start:   start,
	})
	require.NoError(t, err)
	require.Equal(t, "event-1", created.ID)

	require.Equal(t, "1:1 with manager", got.Subject)
	require.Equal(t, "UTC", got.Start.TimeZone)
	require.Equal(t, start.Format(time.RFC3339), got.Start.DateTime)
	// Duration defaults to one hour, reminder to 15 minutes.
	require.Equal(t, start.Add(time.Hour).Format(time.RFC3339), got.End.DateTime)
	require.True(t, got.IsReminderOn)
	require.Equal(t, 15, got.ReminderMinutesBeforeStart)
	require.Nil(t, got.Body)
	require.Nil(t, got.Location)
}

func TestCreateCalendarEventFullInput(t *testing.T) {
	var got msgraph.Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(got)
	}))
	defer srv.Close()

	client := msgraph.NewClientWithBaseURL(staticTokenProvider{token: "test-token"}, srv.URL)

	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	_, err := client.CreateCalendarEvent(context.Background(), msgraph.EventInput{
		Subject:         "Benefits onboarding",
		Start:           start,
		Duration:        30 * time.Minute,
		Body:            "Bring your ID documents",
		Location:        "Room 4.01",
		ReminderMinutes: 30,
	})
	require.NoError(t, err)

	require.Equal(t, start.Add(30*time.Minute).Format(time.RFC3339), got.End.DateTime)
	require.NotNil(t, got.Body)
	require.Equal(t, "Bring your ID documents", got.Body.Content)
	require.NotNil(t, got.Location)
	require.Equal(t, "Room 4.01", got.Location.DisplayName)
	require.Equal(t, 30, got.ReminderMinutesBeforeStart)
}

func TestListCalendarEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/me/calendar/calendarView", r.URL.Path)
		require.NotEmpty(t, r.URL.Query().Get("startDateTime"))
		require.NotEmpty(t, r.URL.Query().Get("endDateTime"))
		require.Equal(t, "5", r.URL.Query().Get("$top"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"value": [
			{"subject": "Team standup", "start": {"dateTime": "2026-09-01T09:00:00.0000000", "timeZone": "UTC"}},
			{"subject": "HR induction", "start": {"dateTime": "2026-09-02T13:30:00Z", "timeZone": "UTC"}}
		]}`))
	}))
	defer srv.Close()

	client := msgraph.NewClientWithBaseURL(staticTokenProvider{token: "test-token"}, srv.URL)

	events, err := client.ListCalendarEvents(context.Background(), 7, 5)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "Team standup", events[0].Subject)

	// Graph returns both fractional-second and RFC 3339 time encodings.
	start, err := events[0].StartTime()
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC), start)

	start, err = events[1].StartTime()
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 9, 2, 13, 30, 0, 0, time.UTC), start)
}
