package schedule

import (
	"context"
	"errors"
	"time"

	"edger/internal/calendar"
	"edger/internal/logger"
	"edger/internal/service"
)

// Result is the outcome of creating a task. Event is nil when no calendar
// event was created.
type Result struct {
	Task  service.TaskRequest
	Event *service.Event

	// CalendarErr is why a task that called for an event did not get one.
	CalendarErr error
}

// Integrator creates backend tasks together with calendar events.
// Calendar and Links may be nil; tasks are then created without events.
type Integrator struct {
	*Planner
	Backend  service.Backend
	Calendar service.Calendar
	Links    service.Links

	// OnCalendarUpdate is called with every event created for a task.
	OnCalendarUpdate func(service.Event)
}

// CreateTaskWithCalendar creates the task on the backend, then tries to put
// it on the primary calendar. Backend errors are returned; calendar errors
// leave Result.Event nil and are reported in Result.CalendarErr.
func (in *Integrator) CreateTaskWithCalendar(ctx context.Context, task service.TaskRequest) (Result, error) {
	if err := in.Backend.CreateTask(ctx, task); err != nil {
		return Result{}, err
	}

	res := Result{Task: task}
	ev, err := in.createEvent(ctx, task)
	if err != nil {
		logger.Warn("could not create calendar event for task %q: %v", task.Title, err)
		res.CalendarErr = err
		return res, nil
	}
	if ev == nil {
		return res, nil
	}
	res.Event = ev

	if in.Links != nil {
		link := service.Link{
			EventID:    ev.ID,
			CalendarID: service.PrimaryCalendar,
			TaskTitle:  task.Title,
			Start:      ev.Start.Time(in.Location),
			End:        ev.End.Time(in.Location),
			CreatedAt:  in.Now(),
		}
		if err := in.Links.SaveLink(ctx, link); err != nil {
			logger.Warn("could not record link for task %q: %v", task.Title, err)
		}
	}
	if in.OnCalendarUpdate != nil {
		in.OnCalendarUpdate(*ev)
	}
	return res, nil
}

func (in *Integrator) createEvent(ctx context.Context, task service.TaskRequest) (*service.Event, error) {
	if !ShouldCreateEvent(task) {
		return nil, nil
	}
	start, ok := in.Start(task)
	if !ok {
		return nil, nil
	}
	if in.Calendar == nil {
		return nil, service.ErrNotConnected
	}

	req := calendar.EventFromTask(task.Title, Description(task), start, Duration(task), PriorityLevel(task.Context.Priority), in.Location)
	ev, err := in.Calendar.CreateEvent(ctx, service.PrimaryCalendar, req)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// FindOptimalTimeSlot returns the first free slot this week that fits the
// task. Any lookup failure falls back to the next available slot.
func (in *Integrator) FindOptimalTimeSlot(ctx context.Context, task service.TaskRequest) time.Time {
	now := in.now()
	preferred := in.NextAvailableSlot(now)
	if in.Calendar == nil {
		return preferred
	}

	events, err := calendar.AllEventsForWeek(ctx, in.Calendar, now)
	if err != nil {
		logger.Warn("could not load this week's events: %v", err)
		return preferred
	}
	return calendar.FindAvailableSlot(events, preferred, Duration(task))
}

// RescheduleTask moves an event to newStart and updates its stored link.
func (in *Integrator) RescheduleTask(ctx context.Context, calendarID, eventID string, newStart time.Time, duration time.Duration) (service.Event, error) {
	if in.Calendar == nil {
		return service.Event{}, service.ErrNotConnected
	}
	if duration <= 0 {
		duration = DefaultDuration
	}
	if calendarID == "" {
		calendarID = service.PrimaryCalendar
	}

	newStart = newStart.In(in.Location)
	tz := in.Location.String()
	ev, err := in.Calendar.UpdateEvent(ctx, calendarID, eventID, service.EventRequest{
		Start: service.EventTime{DateTime: newStart, TimeZone: tz},
		End:   service.EventTime{DateTime: newStart.Add(duration), TimeZone: tz},
	})
	if err != nil {
		return service.Event{}, err
	}

	if in.Links != nil {
		link, err := in.Links.LinkByEvent(ctx, eventID)
		switch {
		case err == nil:
			link.Start = newStart
			link.End = newStart.Add(duration)
			if err := in.Links.SaveLink(ctx, link); err != nil {
				logger.Warn("could not update link for event %s: %v", eventID, err)
			}
		case !errors.Is(err, service.ErrNotFound):
			logger.Warn("could not look up link for event %s: %v", eventID, err)
		}
	}
	return ev, nil
}
