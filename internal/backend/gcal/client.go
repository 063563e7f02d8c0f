// Package gcal implements service.Calendar using the Google Calendar API.
package gcal

import (
	"context"
	"fmt"
	"net/http"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"edger/internal/backend/google"
	"edger/internal/service"
)

// DefaultMaxEvents is the events listing size when none is given.
const DefaultMaxEvents = 250

// Client implements service.Calendar using the Google Calendar API.
type Client struct {
	svc    *calendar.Service
	caller *google.Caller
}

var _ service.Calendar = (*Client)(nil)

// New creates a Calendar client on top of an authorised HTTP client.
func New(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &Client{svc: svc, caller: google.NewCaller(google.CalendarAPI)}, nil
}

// SetErrorHandlers installs quota and API error hooks.
func (c *Client) SetErrorHandlers(h *google.ErrorHandlers) {
	c.caller.SetErrorHandlers(h)
}

// Calendars lists the user's calendars in API order.
func (c *Client) Calendars(ctx context.Context) ([]service.CalendarInfo, error) {
	var resp *calendar.CalendarList
	err := c.caller.Do(ctx, "calendarList.list", func(ctx context.Context) error {
		var err error
		resp, err = c.svc.CalendarList.List().Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]service.CalendarInfo, 0, len(resp.Items))
	for _, e := range resp.Items {
		out = append(out, service.CalendarInfo{
			ID:              e.Id,
			Summary:         e.Summary,
			Description:     e.Description,
			Primary:         e.Primary,
			AccessRole:      e.AccessRole,
			BackgroundColor: e.BackgroundColor,
			ForegroundColor: e.ForegroundColor,
		})
	}
	return out, nil
}

// Events lists expanded single events ordered by start time.
func (c *Client) Events(ctx context.Context, calendarID string, timeMin, timeMax time.Time, maxResults int) ([]service.Event, error) {
	if calendarID == "" {
		calendarID = service.PrimaryCalendar
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxEvents
	}

	var resp *calendar.Events
	err := c.caller.Do(ctx, "events.list", func(ctx context.Context) error {
		call := c.svc.Events.List(calendarID).
			SingleEvents(true).
			OrderBy("startTime").
			MaxResults(int64(maxResults)).
			Context(ctx)
		if !timeMin.IsZero() {
			call = call.TimeMin(timeMin.Format(time.RFC3339Nano))
		}
		if !timeMax.IsZero() {
			call = call.TimeMax(timeMax.Format(time.RFC3339Nano))
		}
		var err error
		resp, err = call.Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]service.Event, 0, len(resp.Items))
	for _, e := range resp.Items {
		out = append(out, convertEvent(calendarID, e))
	}
	return out, nil
}

// CreateEvent inserts an event.
func (c *Client) CreateEvent(ctx context.Context, calendarID string, req service.EventRequest) (service.Event, error) {
	if calendarID == "" {
		calendarID = service.PrimaryCalendar
	}

	var created *calendar.Event
	err := c.caller.Do(ctx, "events.insert", func(ctx context.Context) error {
		var err error
		created, err = c.svc.Events.Insert(calendarID, toAPIEvent(req)).Context(ctx).Do()
		return err
	})
	if err != nil {
		return service.Event{}, err
	}
	return convertEvent(calendarID, created), nil
}

// UpdateEvent patches an event. Zero fields of req are not sent.
func (c *Client) UpdateEvent(ctx context.Context, calendarID, eventID string, req service.EventRequest) (service.Event, error) {
	if calendarID == "" {
		calendarID = service.PrimaryCalendar
	}

	var updated *calendar.Event
	err := c.caller.Do(ctx, "events.patch", func(ctx context.Context) error {
		var err error
		updated, err = c.svc.Events.Patch(calendarID, eventID, toAPIEvent(req)).Context(ctx).Do()
		return err
	})
	if err != nil {
		return service.Event{}, err
	}
	return convertEvent(calendarID, updated), nil
}

// DeleteEvent deletes an event.
func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if calendarID == "" {
		calendarID = service.PrimaryCalendar
	}
	return c.caller.Do(ctx, "events.delete", func(ctx context.Context) error {
		return c.svc.Events.Delete(calendarID, eventID).Context(ctx).Do()
	})
}

// FreeBusy queries busy intervals for the requested calendars.
func (c *Client) FreeBusy(ctx context.Context, req service.FreeBusyRequest) (service.FreeBusyResponse, error) {
	apiReq := &calendar.FreeBusyRequest{
		TimeMin: req.TimeMin.Format(time.RFC3339),
		TimeMax: req.TimeMax.Format(time.RFC3339),
	}
	for _, id := range req.Items {
		apiReq.Items = append(apiReq.Items, &calendar.FreeBusyRequestItem{Id: id})
	}

	var resp *calendar.FreeBusyResponse
	err := c.caller.Do(ctx, "freebusy.query", func(ctx context.Context) error {
		var err error
		resp, err = c.svc.Freebusy.Query(apiReq).Context(ctx).Do()
		return err
	})
	if err != nil {
		return service.FreeBusyResponse{}, err
	}

	out := service.FreeBusyResponse{Calendars: make(map[string]service.BusyCalendar, len(resp.Calendars))}
	for id, cal := range resp.Calendars {
		var bc service.BusyCalendar
		for _, p := range cal.Busy {
			bc.Busy = append(bc.Busy, service.Interval{Start: parseTime(p.Start), End: parseTime(p.End)})
		}
		for _, e := range cal.Errors {
			bc.Errors = append(bc.Errors, service.FreeBusyError{Domain: e.Domain, Reason: e.Reason})
		}
		out.Calendars[id] = bc
	}
	return out, nil
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func convertTime(dt *calendar.EventDateTime) service.EventTime {
	if dt == nil {
		return service.EventTime{}
	}
	return service.EventTime{
		DateTime: parseTime(dt.DateTime),
		Date:     dt.Date,
		TimeZone: dt.TimeZone,
	}
}

func toAPITime(t service.EventTime) *calendar.EventDateTime {
	if t.IsZero() {
		return nil
	}
	dt := &calendar.EventDateTime{}
	// time.Local has no IANA name; the RFC 3339 offset carries the zone.
	if t.TimeZone != "Local" {
		dt.TimeZone = t.TimeZone
	}
	if t.AllDay() {
		dt.Date = t.Date
	} else {
		dt.DateTime = t.DateTime.Format(time.RFC3339)
	}
	return dt
}

func convertEvent(calendarID string, e *calendar.Event) service.Event {
	out := service.Event{
		ID:          e.Id,
		CalendarID:  calendarID,
		Summary:     e.Summary,
		Description: e.Description,
		Location:    e.Location,
		Start:       convertTime(e.Start),
		End:         convertTime(e.End),
		Status:      e.Status,
		ColorID:     e.ColorId,
		Recurrence:  e.Recurrence,
		HTMLLink:    e.HtmlLink,
	}
	for _, a := range e.Attendees {
		out.Attendees = append(out.Attendees, service.Person{
			Email:          a.Email,
			DisplayName:    a.DisplayName,
			ResponseStatus: a.ResponseStatus,
		})
	}
	if e.Creator != nil {
		out.Creator = &service.Person{Email: e.Creator.Email, DisplayName: e.Creator.DisplayName}
	}
	if e.Organizer != nil {
		out.Organizer = &service.Person{Email: e.Organizer.Email, DisplayName: e.Organizer.DisplayName}
	}
	if e.Reminders != nil {
		r := &service.Reminders{UseDefault: e.Reminders.UseDefault}
		for _, o := range e.Reminders.Overrides {
			r.Overrides = append(r.Overrides, service.ReminderOverride{Method: o.Method, Minutes: o.Minutes})
		}
		out.Reminders = r
	}
	return out
}

func toAPIEvent(req service.EventRequest) *calendar.Event {
	e := &calendar.Event{
		Summary:     req.Summary,
		Description: req.Description,
		Location:    req.Location,
		Start:       toAPITime(req.Start),
		End:         toAPITime(req.End),
		ColorId:     req.ColorID,
	}
	for _, email := range req.Attendees {
		e.Attendees = append(e.Attendees, &calendar.EventAttendee{Email: email})
	}
	if req.Reminders != nil {
		r := &calendar.EventReminders{
			UseDefault:      req.Reminders.UseDefault,
			ForceSendFields: []string{"UseDefault"},
		}
		for _, o := range req.Reminders.Overrides {
			r.Overrides = append(r.Overrides, &calendar.EventReminder{Method: o.Method, Minutes: o.Minutes})
		}
		e.Reminders = r
	}
	return e
}
