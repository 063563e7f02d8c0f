package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"edger/internal/calendar"
	"edger/internal/config"
	"edger/internal/exitcode"
	"edger/internal/output"
	"edger/internal/service"
)

func init() {
	Register(&CalendarsCmd{})
	Register(&EventsCmd{})
	Register(&AddEventCmd{})
	Register(&MoveEventCmd{})
	Register(&RmEventCmd{})
	Register(&FreeBusyCmd{})
}

// CalendarsCmd lists the user's calendars.
type CalendarsCmd struct{}

func (c *CalendarsCmd) Name() string         { return "calendars" }
func (c *CalendarsCmd) Aliases() []string    { return nil }
func (c *CalendarsCmd) Synopsis() string     { return "List calendars and their agenda letters" }
func (c *CalendarsCmd) Usage() string        { return "edger calendars [common flags]" }
func (c *CalendarsCmd) Needs() service.Needs { return service.NeedsGoogle }

func (c *CalendarsCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *CalendarsCmd) Run(ctx context.Context, cfg *config.Config, svc *service.Service, args []string, out, errOut io.Writer) int {
	if err := requireGoogle(svc); err != nil {
		return fail(errOut, err)
	}
	cals, err := svc.Calendar.Calendars(ctx)
	if err != nil {
		return fail(errOut, err)
	}
	letters := calendarLetters(cals)
	for _, cal := range cals {
		marker := ""
		switch {
		case cal.Primary:
			marker = "*"
		case letters[cal.ID] != 0:
			marker = string(letters[cal.ID])
		}
		output.FormatCalendar(out, marker, cal)
	}
	return exitcode.Success
}

// EventsCmd prints the agenda.
type EventsCmd struct {
	day       bool
	week      bool
	date      string
	calendars stringList
}

func (c *EventsCmd) Name() string      { return "events" }
func (c *EventsCmd) Aliases() []string { return []string{"agenda", "cal"} }
func (c *EventsCmd) Synopsis() string  { return "Show the agenda (default: the next 7 days)" }
func (c *EventsCmd) Usage() string {
	return "edger events [common flags] [--day|--week] [--date YYYY-MM-DD] [--calendar <id>]..."
}
func (c *EventsCmd) Needs() service.Needs { return service.NeedsGoogle }

func (c *EventsCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.day, "day", false, "show a single day")
	fs.BoolVar(&c.week, "week", false, "show seven days")
	fs.StringVar(&c.date, "date", "", "first day (YYYY-MM-DD, default today)")
	fs.Var(&c.calendars, "calendar", "calendar id to include (repeatable, default all)")
}

func (c *EventsCmd) Run(ctx context.Context, cfg *config.Config, svc *service.Service, args []string, out, errOut io.Writer) int {
	if err := requireGoogle(svc); err != nil {
		return fail(errOut, err)
	}
	if c.day && c.week {
		return fail(errOut, usageErrorf("--day and --week are mutually exclusive"))
	}
	loc, err := location(cfg)
	if err != nil {
		return fail(errOut, err)
	}
	day, err := parseDay(c.date, loc, now())
	if err != nil {
		return fail(errOut, err)
	}

	start, end := calendar.DayBounds(day)
	if !c.day {
		end = start.AddDate(0, 0, 7)
	}
	groups, err := buildAgenda(ctx, svc.Calendar, start, end, c.calendars)
	if err != nil {
		return fail(errOut, err)
	}

	if !printAgenda(out, groups, loc) && !cfg.Quiet {
		fmt.Fprintln(out, "no events found")
	}
	return exitcode.Success
}

// printAgenda prints groups with day headers and reports whether any event
// was printed.
func printAgenda(w io.Writer, groups []agendaGroup, loc *time.Location) bool {
	printed := false
	for _, g := range groups {
		if len(g.Events) == 0 {
			continue
		}
		if g.Letter != 0 {
			output.FormatSection(w, g.Calendar.Summary)
		}
		var lastDay string
		for i, e := range g.Events {
			if d := e.Start.Time(loc).In(loc).Format(service.DateLayout); d != lastDay {
				output.FormatDayHeader(w, e.Start.Time(loc).In(loc))
				lastDay = d
			}
			ref := fmt.Sprintf("%d", i+1)
			if g.Letter != 0 {
				ref = fmt.Sprintf("%c%d", g.Letter, i+1)
			}
			output.FormatEvent(w, ref, e, loc)
		}
		printed = true
	}
	return printed
}

// AddEventCmd creates a calendar event.
type AddEventCmd struct {
	start       string
	duration    time.Duration
	calendarID  string
	description string
	location    string
	attendees   stringList
}

func (c *AddEventCmd) Name() string      { return "addevent" }
func (c *AddEventCmd) Aliases() []string { return nil }
func (c *AddEventCmd) Synopsis() string  { return "Create a calendar event" }
func (c *AddEventCmd) Usage() string {
	return "edger addevent [common flags] --start <YYYY-MM-DD HH:MM> [--duration 1h] [--calendar <id>] [--description <d>] [--location <l>] [--attendee <email>]... <summary...>"
}
func (c *AddEventCmd) Needs() service.Needs { return service.NeedsGoogle }

func (c *AddEventCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.start, "start", "", "start time")
	fs.DurationVar(&c.duration, "duration", calendar.DefaultDuration, "event length")
	fs.StringVar(&c.calendarID, "calendar", service.PrimaryCalendar, "calendar id")
	fs.StringVar(&c.description, "description", "", "event description")
	fs.StringVar(&c.location, "location", "", "event location")
	fs.Var(&c.attendees, "attendee", "attendee email (repeatable)")
}

func (c *AddEventCmd) Run(ctx context.Context, cfg *config.Config, svc *service.Service, args []string, out, errOut io.Writer) int {
	if err := requireGoogle(svc); err != nil {
		return fail(errOut, err)
	}
	summary := strings.TrimSpace(strings.Join(args, " "))
	if summary == "" {
		return fail(errOut, usageErrorf("summary required"))
	}
	if c.duration <= 0 {
		return fail(errOut, usageErrorf("invalid duration: %s", c.duration))
	}
	loc, err := location(cfg)
	if err != nil {
		return fail(errOut, err)
	}
	start, err := parseStart(c.start, loc, now())
	if err != nil {
		return fail(errOut, err)
	}

	tz := loc.String()
	ev, err := svc.Calendar.CreateEvent(ctx, c.calendarID, service.EventRequest{
		Summary:     summary,
		Description: c.description,
		Location:    c.location,
		Start:       service.EventTime{DateTime: start, TimeZone: tz},
		End:         service.EventTime{DateTime: start.Add(c.duration), TimeZone: tz},
		Attendees:   c.attendees,
	})
	if err != nil {
		return fail(errOut, err)
	}
	if !cfg.Quiet {
		output.FormatEventDetail(out, ev, loc)
	}
	return exitcode.Success
}

// MoveEventCmd moves an event to a new start time.
type MoveEventCmd struct {
	start      string
	duration   time.Duration
	calendarID string
	date       string
}

func (c *MoveEventCmd) Name() string      { return "moveevent" }
func (c *MoveEventCmd) Aliases() []string { return []string{"mv"} }
func (c *MoveEventCmd) Synopsis() string  { return "Move an event, keeping its length unless --duration is given" }
func (c *MoveEventCmd) Usage() string {
	return "edger moveevent [common flags] --start <YYYY-MM-DD HH:MM> [--duration 1h] [--date YYYY-MM-DD | --calendar <id>] <ref>"
}
func (c *MoveEventCmd) Needs() service.Needs { return service.NeedsGoogle }

func (c *MoveEventCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.start, "start", "", "new start time")
	fs.DurationVar(&c.duration, "duration", 0, "new length")
	fs.StringVar(&c.calendarID, "calendar", "", "calendar id; <ref> is then an event id")
	fs.StringVar(&c.date, "date", "", "first day of the agenda <ref> points into")
}

func (c *MoveEventCmd) Run(ctx context.Context, cfg *config.Config, svc *service.Service, args []string, out, errOut io.Writer) int {
	if err := requireGoogle(svc); err != nil {
		return fail(errOut, err)
	}
	loc, err := location(cfg)
	if err != nil {
		return fail(errOut, err)
	}
	start, err := parseStart(c.start, loc, now())
	if err != nil {
		return fail(errOut, err)
	}
	day, err := parseDay(c.date, loc, now())
	if err != nil {
		return fail(errOut, err)
	}
	target, rest, err := resolveEvent(ctx, svc.Calendar, c.calendarID, day, args)
	if err != nil {
		return fail(errOut, err)
	}
	if len(rest) > 0 {
		return fail(errOut, usageErrorf("unexpected argument: %s", rest[0]))
	}

	duration := c.duration
	if duration <= 0 {
		duration = calendar.EventDuration(target.Event)
	}
	ev, err := newIntegrator(cfg, svc, loc).RescheduleTask(ctx, target.CalendarID, target.Event.ID, start, duration)
	if err != nil {
		return fail(errOut, err)
	}
	if !cfg.Quiet {
		output.FormatEventDetail(out, ev, loc)
	}
	return exitcode.Success
}

// RmEventCmd deletes an event.
type RmEventCmd struct {
	calendarID string
	date       string
}

func (c *RmEventCmd) Name() string      { return "rmevent" }
func (c *RmEventCmd) Aliases() []string { return nil }
func (c *RmEventCmd) Synopsis() string  { return "Delete a calendar event" }
func (c *RmEventCmd) Usage() string {
	return "edger rmevent [common flags] [--date YYYY-MM-DD | --calendar <id>] <ref>"
}
func (c *RmEventCmd) Needs() service.Needs { return service.NeedsGoogle }

func (c *RmEventCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.calendarID, "calendar", "", "calendar id; <ref> is then an event id")
	fs.StringVar(&c.date, "date", "", "first day of the agenda <ref> points into")
}

func (c *RmEventCmd) Run(ctx context.Context, cfg *config.Config, svc *service.Service, args []string, out, errOut io.Writer) int {
	if err := requireGoogle(svc); err != nil {
		return fail(errOut, err)
	}
	loc, err := location(cfg)
	if err != nil {
		return fail(errOut, err)
	}
	day, err := parseDay(c.date, loc, now())
	if err != nil {
		return fail(errOut, err)
	}
	target, rest, err := resolveEvent(ctx, svc.Calendar, c.calendarID, day, args)
	if err != nil {
		return fail(errOut, err)
	}
	if len(rest) > 0 {
		return fail(errOut, usageErrorf("unexpected argument: %s", rest[0]))
	}

	if err := svc.Calendar.DeleteEvent(ctx, target.CalendarID, target.Event.ID); err != nil {
		return fail(errOut, err)
	}
	if svc.Links != nil {
		if err := svc.Links.DeleteLink(ctx, target.Event.ID); err != nil {
			return fail(errOut, err)
		}
	}
	return ok(cfg, out)
}

// FreeBusyCmd prints busy intervals of every calendar.
type FreeBusyCmd struct {
	date string
	days int
}

func (c *FreeBusyCmd) Name() string      { return "freebusy" }
func (c *FreeBusyCmd) Aliases() []string { return []string{"busy"} }
func (c *FreeBusyCmd) Synopsis() string  { return "Show busy times across calendars" }
func (c *FreeBusyCmd) Usage() string {
	return "edger freebusy [common flags] [--date YYYY-MM-DD] [--days <n>]"
}
func (c *FreeBusyCmd) Needs() service.Needs { return service.NeedsGoogle }

func (c *FreeBusyCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.date, "date", "", "first day (YYYY-MM-DD, default today)")
	fs.IntVar(&c.days, "days", 1, "number of days")
}

func (c *FreeBusyCmd) Run(ctx context.Context, cfg *config.Config, svc *service.Service, args []string, out, errOut io.Writer) int {
	if err := requireGoogle(svc); err != nil {
		return fail(errOut, err)
	}
	if c.days < 1 {
		return fail(errOut, usageErrorf("invalid number of days: %d", c.days))
	}
	loc, err := location(cfg)
	if err != nil {
		return fail(errOut, err)
	}
	day, err := parseDay(c.date, loc, now())
	if err != nil {
		return fail(errOut, err)
	}

	cals, err := svc.Calendar.Calendars(ctx)
	if err != nil {
		return fail(errOut, err)
	}
	start, _ := calendar.DayBounds(day)
	req := service.FreeBusyRequest{TimeMin: start, TimeMax: start.AddDate(0, 0, c.days)}
	for _, cal := range cals {
		req.Items = append(req.Items, cal.ID)
	}
	resp, err := svc.Calendar.FreeBusy(ctx, req)
	if err != nil {
		return fail(errOut, err)
	}

	for _, cal := range cals {
		bc := resp.Calendars[cal.ID]
		fmt.Fprintln(out, cal.Summary)
		switch {
		case len(bc.Errors) > 0:
			fmt.Fprintf(out, "    unavailable (%s)\n", bc.Errors[0].Reason)
		case len(bc.Busy) == 0:
			fmt.Fprintln(out, "    free")
		default:
			for _, iv := range bc.Busy {
				output.FormatBusy(out, iv, loc)
			}
		}
	}
	return exitcode.Success
}
