package gcal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"edger/internal/service"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.URL.Path = strings.TrimPrefix(r.URL.Path, "/calendar/v3")
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), srv.Client(), option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestCalendars(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/me/calendarList", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"items": []map[string]any{
			{"id": "me@example.com", "summary": "Me", "primary": true, "accessRole": "owner"},
			{"id": "team@group.calendar.google.com", "summary": "Team", "accessRole": "reader", "backgroundColor": "#9fe1e7"},
		}})
	})
	c := newTestClient(t, mux)

	cals, err := c.Calendars(context.Background())
	require.NoError(t, err)
	require.Len(t, cals, 2)
	assert.True(t, cals[0].Primary)
	assert.Equal(t, "owner", cals[0].AccessRole)
	assert.Equal(t, "Team", cals[1].Summary)
	assert.Equal(t, "#9fe1e7", cals[1].BackgroundColor)
}

func TestEvents(t *testing.T) {
	var query map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		query = map[string]string{
			"singleEvents": q.Get("singleEvents"),
			"orderBy":      q.Get("orderBy"),
			"maxResults":   q.Get("maxResults"),
			"timeMin":      q.Get("timeMin"),
			"timeMax":      q.Get("timeMax"),
		}
		writeJSON(w, map[string]any{"items": []map[string]any{
			{
				"id":        "e1",
				"summary":   "Standup",
				"start":     map[string]string{"dateTime": "2026-10-19T09:00:00Z"},
				"end":       map[string]string{"dateTime": "2026-10-19T09:15:00Z"},
				"attendees": []map[string]string{{"email": "bob@example.com", "responseStatus": "accepted"}},
				"organizer": map[string]string{"email": "me@example.com"},
				"reminders": map[string]any{"useDefault": false, "overrides": []map[string]any{{"method": "popup", "minutes": 10}}},
			},
			{
				"id":      "e2",
				"summary": "Holiday",
				"start":   map[string]string{"date": "2026-10-20"},
				"end":     map[string]string{"date": "2026-10-21"},
			},
		}})
	})
	c := newTestClient(t, mux)

	from := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)
	events, err := c.Events(context.Background(), "", from, to, 0)
	require.NoError(t, err)

	assert.Equal(t, "true", query["singleEvents"])
	assert.Equal(t, "startTime", query["orderBy"])
	assert.Equal(t, "250", query["maxResults"])
	assert.Equal(t, "2026-10-19T00:00:00Z", query["timeMin"])
	assert.Equal(t, "2026-10-26T00:00:00Z", query["timeMax"])

	require.Len(t, events, 2)
	e := events[0]
	assert.Equal(t, "primary", e.CalendarID)
	assert.Equal(t, time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC), e.Start.DateTime.UTC())
	assert.False(t, e.Start.AllDay())
	require.Len(t, e.Attendees, 1)
	assert.Equal(t, "accepted", e.Attendees[0].ResponseStatus)
	require.NotNil(t, e.Organizer)
	require.NotNil(t, e.Reminders)
	assert.Equal(t, []service.ReminderOverride{{Method: "popup", Minutes: 10}}, e.Reminders.Overrides)

	assert.True(t, events[1].Start.AllDay())
	assert.Equal(t, "2026-10-20", events[1].Start.Date)
}

func TestCreateEvent(t *testing.T) {
	var body map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("POST /calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, map[string]any{
			"id":      "new1",
			"summary": body["summary"],
			"start":   body["start"],
			"end":     body["end"],
		})
	})
	c := newTestClient(t, mux)

	start := time.Date(2026, 10, 20, 14, 0, 0, 0, time.UTC)
	ev, err := c.CreateEvent(context.Background(), service.PrimaryCalendar, service.EventRequest{
		Summary:   "Write report",
		Start:     service.EventTime{DateTime: start, TimeZone: "UTC"},
		End:       service.EventTime{DateTime: start.Add(time.Hour), TimeZone: "UTC"},
		Attendees: []string{"bob@example.com"},
		ColorID:   "11",
		Reminders: &service.Reminders{Overrides: []service.ReminderOverride{
			{Method: "popup", Minutes: 30},
			{Method: "email", Minutes: 60},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "new1", ev.ID)
	assert.Equal(t, start, ev.Start.DateTime.UTC())

	assert.Equal(t, "Write report", body["summary"])
	assert.Equal(t, "11", body["colorId"])
	reminders := body["reminders"].(map[string]any)
	assert.Equal(t, false, reminders["useDefault"])
	assert.Len(t, reminders["overrides"], 2)
	assert.Len(t, body["attendees"], 1)
}

func TestUpdateEvent_SendsOnlySetFields(t *testing.T) {
	var body map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /calendars/cal1/events/e1", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, map[string]any{"id": "e1", "summary": "Kept"})
	})
	c := newTestClient(t, mux)

	start := time.Date(2026, 10, 21, 10, 0, 0, 0, time.UTC)
	ev, err := c.UpdateEvent(context.Background(), "cal1", "e1", service.EventRequest{
		Start: service.EventTime{DateTime: start},
		End:   service.EventTime{DateTime: start.Add(30 * time.Minute)},
	})
	require.NoError(t, err)
	assert.Equal(t, "cal1", ev.CalendarID)

	assert.NotContains(t, body, "summary")
	assert.NotContains(t, body, "reminders")
	assert.Contains(t, body, "start")
}

func TestDeleteEvent(t *testing.T) {
	var deleted bool
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /calendars/primary/events/e1", func(w http.ResponseWriter, r *http.Request) {
		deleted = true
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("DELETE /calendars/primary/events/gone", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Not Found"}}`))
	})
	c := newTestClient(t, mux)

	require.NoError(t, c.DeleteEvent(context.Background(), "", "e1"))
	assert.True(t, deleted)

	err := c.DeleteEvent(context.Background(), "", "gone")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestFreeBusy(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /freeBusy", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req["items"], 2)
		writeJSON(w, map[string]any{"calendars": map[string]any{
			"primary": map[string]any{"busy": []map[string]string{
				{"start": "2026-10-20T09:00:00Z", "end": "2026-10-20T10:00:00Z"},
			}},
			"other": map[string]any{"errors": []map[string]string{{"domain": "global", "reason": "notFound"}}},
		}})
	})
	c := newTestClient(t, mux)

	from := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	resp, err := c.FreeBusy(context.Background(), service.FreeBusyRequest{
		TimeMin: from,
		TimeMax: from.Add(24 * time.Hour),
		Items:   []string{"primary", "other"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Calendars["primary"].Busy, 1)
	assert.Equal(t, time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC), resp.Calendars["primary"].Busy[0].Start.UTC())
	assert.Equal(t, "notFound", resp.Calendars["other"].Errors[0].Reason)
}
