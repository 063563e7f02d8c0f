package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"
	"unicode"

	"edger/internal/calendar"
	"edger/internal/service"
)

// Ref is a parsed listing reference.
type Ref struct {
	Letter    rune // 0 if no letter, 'a'-'z' otherwise
	Num       int  // 1-based position
	HasLetter bool // true if a calendar letter was provided
}

// ErrRefRequired indicates no reference was provided.
var ErrRefRequired = &UsageError{msg: "reference required"}

// ParseRef parses an agenda reference from args and returns how many
// arguments it consumed.
//
// Parsing rules:
// 1. If first arg is all digits → primary calendar reference
// 2. If first arg is <letter><digits> (e.g., a1, b12) → combined reference
// 3. If first arg is single letter and second arg is all digits → separated reference (a 1)
// 4. If first arg is single letter with no second arg → error: reference required
// 5. Otherwise → error: invalid reference: <ref>
func ParseRef(args []string) (Ref, int, error) {
	if len(args) == 0 {
		return Ref{}, 0, ErrRefRequired
	}

	first := args[0]

	if isAllDigits(first) {
		num, err := strconv.Atoi(first)
		if err != nil || num < 1 {
			return Ref{}, 0, usageErrorf("invalid reference: %s", first)
		}
		return Ref{Num: num}, 1, nil
	}

	if len(first) > 0 && isLetter(rune(first[0])) {
		letter := rune(first[0])

		if len(first) > 1 && isAllDigits(first[1:]) {
			num, err := strconv.Atoi(first[1:])
			if err != nil || num < 1 {
				return Ref{}, 0, usageErrorf("invalid reference: %s", first)
			}
			return Ref{Letter: letter, Num: num, HasLetter: true}, 1, nil
		}

		if len(first) == 1 {
			if len(args) < 2 {
				return Ref{}, 0, ErrRefRequired
			}
			if isAllDigits(args[1]) {
				num, err := strconv.Atoi(args[1])
				if err != nil || num < 1 {
					return Ref{}, 0, usageErrorf("invalid reference: %s", args[1])
				}
				return Ref{Letter: letter, Num: num, HasLetter: true}, 2, nil
			}
			return Ref{}, 0, usageErrorf("invalid reference: %s", first)
		}
	}

	return Ref{}, 0, usageErrorf("invalid reference: %s", first)
}

func (r Ref) String() string {
	if r.HasLetter {
		return fmt.Sprintf("%c%d", r.Letter, r.Num)
	}
	return strconv.Itoa(r.Num)
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// isLetter returns true if r is a lowercase letter a-z.
func isLetter(r rune) bool {
	return r >= 'a' && r <= 'z'
}

// agendaGroup is the events of one calendar in an agenda listing.
// The primary calendar has no letter.
type agendaGroup struct {
	Letter   rune
	Calendar service.CalendarInfo
	Events   []service.Event
}

// calendarLetters assigns a-z to the non-primary calendars in calendar list
// order. Letters do not depend on the window or the selection, so a ref
// printed by one listing resolves to the same calendar in any other.
func calendarLetters(cals []service.CalendarInfo) map[string]rune {
	letters := make(map[string]rune)
	letter := 'a'
	for _, cal := range cals {
		if cal.Primary {
			continue
		}
		if letter > 'z' {
			break
		}
		letters[cal.ID] = letter
		letter++
	}
	return letters
}

// buildAgenda lists events in [start, end) grouped by calendar.
// The primary calendar comes first, then the lettered calendars in list
// order. only restricts the calendars when non-empty.
func buildAgenda(ctx context.Context, c service.Calendar, start, end time.Time, only []string) ([]agendaGroup, error) {
	cals, err := c.Calendars(ctx)
	if err != nil {
		return nil, err
	}
	sel := calendar.NewSelection(cals)
	if len(only) > 0 {
		for _, id := range only {
			if !sel.IsSelected(id) {
				return nil, usageErrorf("unknown calendar: %s", id)
			}
		}
		sel.Only(only...)
	}

	events, err := calendar.EventsForRange(ctx, c, sel, start, end)
	if err != nil {
		return nil, err
	}
	byCalendar := make(map[string][]service.Event)
	for _, e := range events {
		byCalendar[e.CalendarID] = append(byCalendar[e.CalendarID], e)
	}

	letters := calendarLetters(cals)
	var groups []agendaGroup
	for _, cal := range cals {
		if cal.Primary && sel.IsSelected(cal.ID) {
			groups = append(groups, agendaGroup{Calendar: cal, Events: byCalendar[cal.ID]})
		}
	}
	for _, cal := range cals {
		letter, ok := letters[cal.ID]
		if !ok || !sel.IsSelected(cal.ID) {
			continue
		}
		groups = append(groups, agendaGroup{Letter: letter, Calendar: cal, Events: byCalendar[cal.ID]})
	}
	return groups, nil
}

// resolveRef returns the event ref points at in groups.
func resolveRef(groups []agendaGroup, ref Ref) (service.Event, error) {
	for _, g := range groups {
		if g.Letter != ref.Letter {
			continue
		}
		if ref.Num > len(g.Events) {
			return service.Event{}, usageErrorf("event not found: %s", ref)
		}
		return g.Events[ref.Num-1], nil
	}
	if ref.HasLetter {
		return service.Event{}, usageErrorf("calendar letter not found: %c", ref.Letter)
	}
	return service.Event{}, usageErrorf("event not found: %s", ref)
}

// eventTarget identifies the event a command acts on.
type eventTarget struct {
	CalendarID string
	Event      service.Event
}

// resolveEvent resolves args to an event. With calendarID set the first
// argument is an event id in that calendar; otherwise it is an agenda
// reference into the week starting on day. It returns the remaining args.
func resolveEvent(ctx context.Context, c service.Calendar, calendarID string, day time.Time, args []string) (eventTarget, []string, error) {
	if calendarID != "" {
		if len(args) == 0 {
			return eventTarget{}, nil, ErrRefRequired
		}
		return eventTarget{CalendarID: calendarID, Event: service.Event{ID: args[0], CalendarID: calendarID}}, args[1:], nil
	}

	ref, n, err := ParseRef(args)
	if err != nil {
		return eventTarget{}, nil, err
	}
	start, _ := calendar.DayBounds(day)
	groups, err := buildAgenda(ctx, c, start, start.AddDate(0, 0, 7), nil)
	if err != nil {
		return eventTarget{}, nil, err
	}
	ev, err := resolveRef(groups, ref)
	if err != nil {
		return eventTarget{}, nil, err
	}
	return eventTarget{CalendarID: ev.CalendarID, Event: ev}, args[n:], nil
}

// resolveMessage resolves a listing number against page, or takes ref as a
// message id.
func resolveMessage(ref string, page service.MessagePage) (string, error) {
	if ref == "" {
		return "", ErrRefRequired
	}
	if !isAllDigits(ref) {
		return ref, nil
	}
	num, err := strconv.Atoi(ref)
	if err != nil || num < 1 {
		return "", usageErrorf("invalid reference: %s", ref)
	}
	if num > len(page.Messages) {
		return "", usageErrorf("message not found: %d", num)
	}
	return page.Messages[num-1].ID, nil
}
