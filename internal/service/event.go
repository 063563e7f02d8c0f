package service

import "time"

// PrimaryCalendar is the alias of the user's main calendar.
const PrimaryCalendar = "primary"

// DateLayout is the layout of all-day event dates.
const DateLayout = "2006-01-02"

// CalendarInfo is an entry of the user's calendar list.
type CalendarInfo struct {
	ID              string
	Summary         string
	Description     string
	Primary         bool
	AccessRole      string // owner, writer, reader, freeBusyReader
	BackgroundColor string
	ForegroundColor string
}

// EventTime is the start or end of an event.
// Timed events set DateTime; all-day events set Date.
type EventTime struct {
	DateTime time.Time
	Date     string
	TimeZone string
}

// AllDay reports whether the time is a date without a time of day.
func (t EventTime) AllDay() bool {
	return t.DateTime.IsZero() && t.Date != ""
}

// IsZero reports whether neither field is set.
func (t EventTime) IsZero() bool {
	return t.DateTime.IsZero() && t.Date == ""
}

// Time returns the instant of t. All-day dates resolve to midnight in loc.
func (t EventTime) Time(loc *time.Location) time.Time {
	if !t.DateTime.IsZero() {
		return t.DateTime
	}
	if t.Date == "" {
		return time.Time{}
	}
	if loc == nil {
		loc = time.Local
	}
	d, err := time.ParseInLocation(DateLayout, t.Date, loc)
	if err != nil {
		return time.Time{}
	}
	return d
}

// Person is an event creator, organizer or attendee.
type Person struct {
	Email          string
	DisplayName    string
	ResponseStatus string // attendees only: needsAction, declined, tentative, accepted
}

// ReminderOverride is one explicit reminder.
type ReminderOverride struct {
	Method  string // email or popup
	Minutes int64
}

// Reminders configures event notifications.
type Reminders struct {
	UseDefault bool
	Overrides  []ReminderOverride
}

// Event is a Google Calendar event.
type Event struct {
	ID          string
	CalendarID  string
	Summary     string
	Description string
	Location    string
	Start       EventTime
	End         EventTime
	Attendees   []Person
	Creator     *Person
	Organizer   *Person
	Status      string // confirmed, tentative, cancelled
	ColorID     string
	Recurrence  []string
	Reminders   *Reminders
	HTMLLink    string
}

// EventRequest creates or patches an event. For patches, zero fields are
// left unchanged.
type EventRequest struct {
	Summary     string
	Description string
	Location    string
	Start       EventTime
	End         EventTime
	Attendees   []string
	Reminders   *Reminders
	ColorID     string
}

// FreeBusyRequest asks for busy intervals of the listed calendars.
type FreeBusyRequest struct {
	TimeMin time.Time
	TimeMax time.Time
	Items   []string
}

// Interval is a busy period.
type Interval struct {
	Start time.Time
	End   time.Time
}

// FreeBusyError is a per-calendar query failure.
type FreeBusyError struct {
	Domain string
	Reason string
}

// BusyCalendar is the free/busy answer for one calendar.
type BusyCalendar struct {
	Busy   []Interval
	Errors []FreeBusyError
}

// FreeBusyResponse maps calendar ids to their busy intervals.
type FreeBusyResponse struct {
	Calendars map[string]BusyCalendar
}
