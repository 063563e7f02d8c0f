// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"edger/internal/calendar"
	"edger/internal/service"
)

const (
	// ListSeparator is the separator line for list sections.
	ListSeparator = "------------"

	// DateTimeLayout renders message and slot times.
	DateTimeLayout = "Mon Jan 2 3:04 PM"

	// DayLayout renders agenda day headers.
	DayLayout = "Mon, Jan 2"

	senderWidth = 22
)

// FormatSection formats a section header between separators.
func FormatSection(w io.Writer, title string) {
	fmt.Fprintln(w, ListSeparator)
	fmt.Fprintln(w, normalizeTitle(title))
	fmt.Fprintln(w, ListSeparator)
}

// FormatMessageLine formats one listing line.
// Format: "{N:>4} {*| } {DATE}  {SENDER:<22}  {SUBJECT}\n", where * marks unread.
func FormatMessageLine(w io.Writer, num int, m service.Message, loc *time.Location) {
	marker := " "
	if m.IsUnread() {
		marker = "*"
	}
	date := ""
	if d := m.Date(); !d.IsZero() {
		date = d.In(loc).Format("Jan 02 15:04")
	}
	fmt.Fprintf(w, "%4d %s %-12s  %-*s  %s\n", num, marker, date, senderWidth, truncate(senderName(m.From()), senderWidth), normalizeTitle(m.Subject()))
}

// FormatMessage formats a full message: headers, a blank line, then the body.
func FormatMessage(w io.Writer, m service.Message, loc *time.Location) {
	fmt.Fprintf(w, "From:    %s\n", m.From())
	if to := m.To(); to != "" {
		fmt.Fprintf(w, "To:      %s\n", to)
	}
	if d := m.Date(); !d.IsZero() {
		fmt.Fprintf(w, "Date:    %s\n", d.In(loc).Format(DateTimeLayout))
	}
	fmt.Fprintf(w, "Subject: %s\n", m.Subject())
	if len(m.LabelIDs) > 0 {
		fmt.Fprintf(w, "Labels:  %s\n", strings.Join(m.LabelIDs, ", "))
	}
	fmt.Fprintln(w)
	body := strings.TrimRight(m.Body(), "\r\n ")
	fmt.Fprintln(w, body)
}

// FormatThread formats every message of a thread, separated by section lines.
func FormatThread(w io.Writer, th service.Thread, loc *time.Location) {
	for i, m := range th.Messages {
		fmt.Fprintln(w, ListSeparator)
		fmt.Fprintf(w, "[%d/%d]\n", i+1, len(th.Messages))
		FormatMessage(w, m, loc)
	}
}

// FormatLabel formats a label line: name, id and any non-zero counters.
func FormatLabel(w io.Writer, l service.Label) {
	line := fmt.Sprintf("%-24s %s", normalizeTitle(l.Name), l.ID)
	if l.MessagesTotal > 0 || l.MessagesUnread > 0 {
		line += fmt.Sprintf("  (%d unread / %d)", l.MessagesUnread, l.MessagesTotal)
	}
	fmt.Fprintln(w, strings.TrimRight(line, " "))
}

// FormatCalendar formats a calendar line for the calendars command.
func FormatCalendar(w io.Writer, letter string, c service.CalendarInfo) {
	name := normalizeTitle(c.Summary)
	if c.Primary {
		name += " [primary]"
	}
	fmt.Fprintf(w, "%2s  %s  (%s)\n", letter, name, c.AccessRole)
}

// FormatDayHeader formats the header of one agenda day.
func FormatDayHeader(w io.Writer, day time.Time) {
	fmt.Fprintln(w, day.Format(DayLayout))
}

// FormatEvent formats an agenda line.
// Format: "{REF:>4}  {TIME:<19}  {SUMMARY}\n"
func FormatEvent(w io.Writer, ref string, e service.Event, loc *time.Location) {
	fmt.Fprintf(w, "%4s  %-19s  %s\n", ref, calendar.FormatEventTime(e, loc), normalizeTitle(e.Summary))
}

// FormatEventDetail formats a single event with its location and link.
func FormatEventDetail(w io.Writer, e service.Event, loc *time.Location) {
	fmt.Fprintln(w, normalizeTitle(e.Summary))
	start := e.Start.Time(loc)
	if e.Start.AllDay() {
		fmt.Fprintf(w, "  When:     %s, all day\n", start.Format(DayLayout))
	} else {
		fmt.Fprintf(w, "  When:     %s (%s)\n", start.In(loc).Format(DateTimeLayout), calendar.FormatEventTime(e, loc))
	}
	if e.Location != "" {
		fmt.Fprintf(w, "  Where:    %s\n", e.Location)
	}
	if e.HTMLLink != "" {
		fmt.Fprintf(w, "  Link:     %s\n", e.HTMLLink)
	}
	fmt.Fprintf(w, "  Id:       %s\n", e.ID)
}

// FormatBusy formats a busy interval.
func FormatBusy(w io.Writer, iv service.Interval, loc *time.Location) {
	fmt.Fprintf(w, "    %s - %s\n", iv.Start.In(loc).Format(DateTimeLayout), iv.End.In(loc).Format("3:04 PM"))
}

// FormatTask formats a backend task line and, when linked, its calendar slot.
// Format: "{N:>4}  [{TYPE}] {TITLE}  ({PERIOD}, {PRIORITY})\n"
func FormatTask(w io.Writer, num int, t service.Task, link *service.Link, loc *time.Location) {
	fmt.Fprintf(w, "%4d  [%s] %s%s\n", num, t.Type, normalizeTitle(t.Title), taskMeta(t.Period, t.Context.Priority))
	if link != nil {
		fmt.Fprintf(w, "        scheduled %s\n", link.Start.In(loc).Format(DateTimeLayout))
	}
}

// FormatSuggestion formats a task proposed by the agent.
func FormatSuggestion(w io.Writer, num int, t service.TaskRequest) {
	fmt.Fprintf(w, "%4d  [%s] %s%s\n", num, t.Type, normalizeTitle(t.Title), taskMeta(t.Period, t.Context.Priority))
	if p := strings.TrimSpace(t.Context.Prompt); p != "" {
		fmt.Fprintf(w, "        %s\n", normalizeTitle(p))
	}
}

func taskMeta(period, priority string) string {
	var parts []string
	if period != "" {
		parts = append(parts, period)
	}
	if priority != "" {
		parts = append(parts, priority)
	}
	if len(parts) == 0 {
		return ""
	}
	return "  (" + strings.Join(parts, ", ") + ")"
}

func senderName(from string) string {
	a := service.ParseAddress(from)
	if a.Name != "" {
		return a.Name
	}
	return a.Email
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

// normalizeTitle normalizes a title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
