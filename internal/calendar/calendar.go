// Package calendar builds agenda queries and scheduling helpers on top of
// service.Calendar.
package calendar

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"edger/internal/service"
)

// DefaultDuration is the length of an event created for a task.
const DefaultDuration = 60 * time.Minute

// Priority colour ids of the Google Calendar palette.
var priorityColors = map[string]string{
	"low":    "10",
	"medium": "5",
	"high":   "11",
}

// Reminders attached to events created for tasks.
var taskReminders = service.Reminders{
	Overrides: []service.ReminderOverride{
		{Method: "popup", Minutes: 30},
		{Method: "email", Minutes: 60},
	},
}

// EventsForWeek returns events of one calendar in [start, start+7d).
func EventsForWeek(ctx context.Context, c service.Calendar, start time.Time, calendarID string) ([]service.Event, error) {
	return c.Events(ctx, calendarID, start, start.AddDate(0, 0, 7), 0)
}

// DayBounds returns the first and last instant of the day containing t.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	end := time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
	return start, end
}

// EventsForDay returns events of one calendar on the local day of date.
func EventsForDay(ctx context.Context, c service.Calendar, date time.Time, calendarID string) ([]service.Event, error) {
	start, end := DayBounds(date)
	return c.Events(ctx, calendarID, start, end, 0)
}

// AllEventsForWeek returns the week's events of every calendar, fetched
// concurrently and concatenated in calendar list order.
func AllEventsForWeek(ctx context.Context, c service.Calendar, start time.Time) ([]service.Event, error) {
	cals, err := c.Calendars(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(cals))
	for i, cal := range cals {
		ids[i] = cal.ID
	}
	return fetchAll(ctx, c, ids, start, start.AddDate(0, 0, 7))
}

// EventsForRange returns events of the selected calendars in [start, end),
// merged and sorted by start.
func EventsForRange(ctx context.Context, c service.Calendar, sel *Selection, start, end time.Time) ([]service.Event, error) {
	events, err := fetchAll(ctx, c, sel.Selected(), start, end)
	if err != nil {
		return nil, err
	}
	SortEvents(events, start.Location())
	return events, nil
}

func fetchAll(ctx context.Context, c service.Calendar, ids []string, start, end time.Time) ([]service.Event, error) {
	byCalendar := make([][]service.Event, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			events, err := c.Events(ctx, id, start, end, 0)
			if err != nil {
				return fmt.Errorf("calendar %s: %w", id, err)
			}
			byCalendar[i] = events
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []service.Event
	for _, events := range byCalendar {
		all = append(all, events...)
	}
	return all, nil
}

// SortEvents orders events by start. All-day dates resolve in loc.
func SortEvents(events []service.Event, loc *time.Location) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Time(loc).Before(events[j].Start.Time(loc))
	})
}

// EventFromTask builds the event request for a scheduled task.
// priority is a level as returned by schedule.PriorityLevel.
func EventFromTask(title, description string, start time.Time, duration time.Duration, priority string, loc *time.Location) service.EventRequest {
	if duration <= 0 {
		duration = DefaultDuration
	}
	if loc == nil {
		loc = time.Local
	}
	start = start.In(loc)
	reminders := taskReminders
	reminders.Overrides = append([]service.ReminderOverride(nil), taskReminders.Overrides...)

	return service.EventRequest{
		Summary:     title,
		Description: description,
		Start:       service.EventTime{DateTime: start, TimeZone: loc.String()},
		End:         service.EventTime{DateTime: start.Add(duration), TimeZone: loc.String()},
		Reminders:   &reminders,
		ColorID:     priorityColors[priority],
	}
}

// FindAvailableSlot returns the first start at or after preferred that leaves
// duration free between timed events. All-day events do not block.
func FindAvailableSlot(events []service.Event, preferred time.Time, duration time.Duration) time.Time {
	if duration <= 0 {
		duration = DefaultDuration
	}

	var timed []service.Event
	for _, e := range events {
		if !e.Start.DateTime.IsZero() {
			timed = append(timed, e)
		}
	}
	sort.SliceStable(timed, func(i, j int) bool {
		return timed[i].Start.DateTime.Before(timed[j].Start.DateTime)
	})

	cursor := preferred
	for _, e := range timed {
		if !cursor.Add(duration).After(e.Start.DateTime) {
			return cursor
		}
		if end := e.End.DateTime; end.After(cursor) {
			cursor = end
		}
	}
	return cursor
}

// FormatEventTime renders "All day" or a "3:00 PM - 4:00 PM" range in loc.
func FormatEventTime(e service.Event, loc *time.Location) string {
	if e.Start.DateTime.IsZero() {
		return "All day"
	}
	if loc == nil {
		loc = time.Local
	}
	const layout = "3:04 PM"
	start := e.Start.DateTime.In(loc).Format(layout)
	if e.End.DateTime.IsZero() {
		return start
	}
	return start + " - " + e.End.DateTime.In(loc).Format(layout)
}

// IsEventToday reports whether e starts on the calendar day of now.
func IsEventToday(e service.Event, now time.Time) bool {
	if e.Start.DateTime.IsZero() {
		return e.Start.Date == now.Format(service.DateLayout)
	}
	s := e.Start.DateTime.In(now.Location())
	return s.Year() == now.Year() && s.YearDay() == now.YearDay()
}

// EventDuration returns the length of a timed event. All-day events yield 0.
func EventDuration(e service.Event) time.Duration {
	if e.Start.DateTime.IsZero() || e.End.DateTime.IsZero() {
		return 0
	}
	return e.End.DateTime.Sub(e.Start.DateTime)
}
