// Package schedule decides when tasks land on the calendar and keeps the
// task/event links up to date.
package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"edger/internal/service"
)

// Durations of events created for tasks.
const (
	DefaultDuration  = 60 * time.Minute
	EmailDuration    = 30 * time.Minute
	PriorityDuration = 90 * time.Minute
)

// Trailer ends every generated event description.
const Trailer = "🤖 Created automatically by Deadline Edger"

// timeWords in a period make a task calendar-worthy.
var timeWords = []string{"today", "tomorrow", "this week", "next week", "deadline"}

var deadlinePattern = regexp.MustCompile(`(?i)\b(\d{1,2})/(\d{1,2})\b|\b(\d{1,2})\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)`)

var monthAbbrev = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// Planner turns task periods into calendar slots within working hours.
type Planner struct {
	Now          func() time.Time
	Location     *time.Location
	WorkdayStart int // hour, inclusive
	WorkdayEnd   int // hour, exclusive
}

// NewPlanner creates a planner for the given working hours in loc.
func NewPlanner(loc *time.Location, workdayStart, workdayEnd int) *Planner {
	if loc == nil {
		loc = time.Local
	}
	return &Planner{Now: time.Now, Location: loc, WorkdayStart: workdayStart, WorkdayEnd: workdayEnd}
}

func (p *Planner) now() time.Time {
	return p.Now().In(p.Location)
}

func (p *Planner) at(t time.Time, hour int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, p.Location)
}

// ShouldCreateEvent reports whether a task gets a calendar event: its period
// names a time, or its priority is exactly high or urgent.
func ShouldCreateEvent(task service.TaskRequest) bool {
	period := strings.ToLower(task.Period)
	for _, w := range timeWords {
		if strings.Contains(period, w) {
			return true
		}
	}
	priority := strings.ToLower(task.Context.Priority)
	return priority == "high" || priority == "urgent"
}

// Duration returns the event length for a task.
func Duration(task service.TaskRequest) time.Duration {
	priority := strings.ToLower(task.Context.Priority)
	switch {
	case task.Type == service.TaskEmail:
		return EmailDuration
	case priority == "high" || priority == "urgent":
		return PriorityDuration
	}
	return DefaultDuration
}

// PriorityLevel maps a free-form priority onto low, medium or high.
func PriorityLevel(priority string) string {
	p := strings.ToLower(priority)
	switch {
	case strings.Contains(p, "high"), strings.Contains(p, "urgent"), strings.Contains(p, "critical"):
		return "high"
	case strings.Contains(p, "low"), strings.Contains(p, "optional"):
		return "low"
	}
	return "medium"
}

// Start derives the event start from the task period. ok is false when the
// period names no time, even for high priority tasks.
func (p *Planner) Start(task service.TaskRequest) (start time.Time, ok bool) {
	period := strings.ToLower(task.Period)
	now := p.now()

	switch {
	case strings.Contains(period, "today"):
		return p.NextAvailableSlot(now), true
	case strings.Contains(period, "tomorrow"):
		return p.at(now.AddDate(0, 0, 1), p.WorkdayStart), true
	case strings.Contains(period, "this week"):
		return p.NextWeekday(), true
	case strings.Contains(period, "next week"):
		return p.at(now.AddDate(0, 0, 7), p.WorkdayStart), true
	case strings.Contains(period, "deadline"):
		if d, ok := p.ParseDeadline(period); ok {
			return d, true
		}
		return p.NextAvailableSlot(now), true
	}
	return time.Time{}, false
}

// ParseDeadline finds the first "M/D" or "D mon" date in s and returns it at
// the start of the workday. Dates already past resolve to next year.
func (p *Planner) ParseDeadline(s string) (time.Time, bool) {
	m := deadlinePattern.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}

	var month time.Month
	var day int
	if m[1] != "" {
		mm, _ := strconv.Atoi(m[1])
		day, _ = strconv.Atoi(m[2])
		month = time.Month(mm)
	} else {
		day, _ = strconv.Atoi(m[3])
		month = monthAbbrev[strings.ToLower(m[4])]
	}
	if month < time.January || month > time.December || day < 1 {
		return time.Time{}, false
	}

	now := p.now()
	d := time.Date(now.Year(), month, day, p.WorkdayStart, 0, 0, 0, p.Location)
	if d.Day() != day {
		// Normalised overflow such as 2/31.
		return time.Time{}, false
	}
	if d.Before(now) {
		d = d.AddDate(1, 0, 0)
	}
	return d, true
}

// NextAvailableSlot returns the next full hour after max(from, now), moved
// into working hours.
func (p *Planner) NextAvailableSlot(from time.Time) time.Time {
	now := p.now()
	if from.Before(now) {
		from = now
	}
	from = from.In(p.Location)

	slot := time.Date(from.Year(), from.Month(), from.Day(), from.Hour(), 0, 0, 0, p.Location).Add(time.Hour)
	switch {
	case slot.Hour() < p.WorkdayStart:
		slot = p.at(slot, p.WorkdayStart)
	case slot.Hour() >= p.WorkdayEnd:
		slot = p.at(slot.AddDate(0, 0, 1), p.WorkdayStart)
	}
	return slot
}

// NextWeekday returns the start of the workday on the next weekday.
// Saturday and Sunday both move to Monday.
func (p *Planner) NextWeekday() time.Time {
	now := p.now()
	days := 1
	if now.Weekday() == time.Saturday {
		days = 2
	}
	return p.at(now.AddDate(0, 0, days), p.WorkdayStart)
}

// Description renders the event description for a task.
func Description(task service.TaskRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n\n", task.Title)
	fmt.Fprintf(&b, "Type: %s\n", task.Type)
	fmt.Fprintf(&b, "Priority: %s\n", task.Context.Priority)
	fmt.Fprintf(&b, "Period: %s\n\n", task.Period)
	fmt.Fprintf(&b, "Details: %s\n", task.Context.Prompt)
	if task.Context.URL != "" {
		fmt.Fprintf(&b, "\nURL: %s", task.Context.URL)
	}
	b.WriteString("\n\n" + Trailer)
	return b.String()
}
