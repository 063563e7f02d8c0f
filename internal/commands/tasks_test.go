package commands_test

import (
	"strings"
	"testing"

	"edger/internal/commands"
	"edger/internal/exitcode"
	"edger/internal/schedule"
	"edger/internal/service"
	"edger/internal/testutil"
)

func reportTask() service.Task {
	return service.Task{
		ID:      1,
		Type:    service.TaskTodo,
		Title:   "Write report",
		Period:  "today",
		Context: service.TaskContext{Prompt: "Quarterly numbers", Priority: "high"},
	}
}

// Tests for tasks command
func TestTasksCommand(t *testing.T) {
	f := testutil.NewFakes()
	f.Backend.TaskList = []service.Task{
		reportTask(),
		{ID: 2, Type: service.TaskEmail, Title: "Reply to Bob"},
	}
	_ = f.Links.SaveLink(t.Context(), service.Link{
		EventID:    "evt-9",
		CalendarID: service.PrimaryCalendar,
		TaskTitle:  "Write report",
		Start:      at(19, 15, 0),
		End:        at(19, 16, 30),
	})

	stdout, stderr, code := runCommand(t, &commands.TasksCmd{}, f.Service(), nil, false)

	expectSuccess(t, stderr, code)
	expected := "   1  [TODO] Write report  (today, high)\n" +
		"        scheduled Mon Oct 19 3:00 PM\n" +
		"   2  [EMAIL] Reply to Bob\n"
	if stdout != expected {
		t.Errorf("expected:\n%s\ngot:\n%s", expected, stdout)
	}
}

func TestTasksCommand_Empty(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.TasksCmd{}, testutil.NewFakes().Service(), nil, false)

	expectSuccess(t, stderr, code)
	if stdout != "no tasks found\n" {
		t.Errorf("expected 'no tasks found\\n', got %q", stdout)
	}
}

func TestTasksCommand_NoSession(t *testing.T) {
	_, stderr, code := runCommand(t, &commands.TasksCmd{}, nil, nil, false)

	expectError(t, stderr, code, exitcode.AuthError, "No authentication token available")
}

func TestTasksCommand_BackendUnauthorized(t *testing.T) {
	f := testutil.NewFakes()
	f.Backend.TasksErr = service.ErrUnauthorized

	_, _, code := runCommand(t, &commands.TasksCmd{}, f.Service(), nil, false)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
}

// Tests for addtask command
func TestAddTaskCommand_Scheduled(t *testing.T) {
	f := testutil.NewFakes()

	stdout, stderr, code := runCommand(t, &commands.AddTaskCmd{}, f.Service(),
		[]string{"--period", "today", "--priority", "high", "Write", "report"}, false)

	expectSuccess(t, stderr, code)
	if stdout != "ok, scheduled Mon Oct 19 10:00 AM\n" {
		t.Errorf("expected scheduled output, got %q", stdout)
	}

	if len(f.Backend.Created) != 1 {
		t.Fatalf("expected 1 task created, got %d", len(f.Backend.Created))
	}
	task := f.Backend.Created[0]
	if task.Title != "Write report" || task.Type != service.TaskTodo || task.Context.Prompt != "Write report" {
		t.Errorf("unexpected task %+v", task)
	}

	ev, ok := f.Calendar.Event(service.PrimaryCalendar, "evt-1")
	if !ok {
		t.Fatal("expected calendar event")
	}
	if !ev.End.DateTime.Equal(at(19, 11, 30)) {
		t.Errorf("expected 90 minute event for a high priority task, ends %v", ev.End.DateTime)
	}
	if !strings.HasSuffix(ev.Description, schedule.Trailer) {
		t.Errorf("expected description trailer, got %q", ev.Description)
	}

	link, err := f.Links.LinkByTask(t.Context(), "Write report")
	if err != nil {
		t.Fatalf("expected link: %v", err)
	}
	if link.EventID != "evt-1" || !link.Start.Equal(at(19, 10, 0)) {
		t.Errorf("unexpected link %+v", link)
	}
}

func TestAddTaskCommand_NotCalendarWorthy(t *testing.T) {
	f := testutil.NewFakes()

	stdout, stderr, code := runCommand(t, &commands.AddTaskCmd{}, f.Service(), []string{"Buy milk"}, false)

	expectSuccess(t, stderr, code)
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}
	if _, ok := f.Calendar.Event(service.PrimaryCalendar, "evt-1"); ok {
		t.Error("expected no calendar event")
	}
}

func TestAddTaskCommand_NoCalendar(t *testing.T) {
	f := testutil.NewFakes()

	stdout, stderr, code := runCommand(t, &commands.AddTaskCmd{}, f.Service(), []string{"--no-calendar", "--period", "tomorrow", "Call mum"}, false)

	expectSuccess(t, stderr, code)
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}
	if len(f.Backend.Created) != 1 {
		t.Errorf("expected task to be created, got %d", len(f.Backend.Created))
	}
	if _, ok := f.Calendar.Event(service.PrimaryCalendar, "evt-1"); ok {
		t.Error("expected no calendar event")
	}
}

func TestAddTaskCommand_WithoutGoogle(t *testing.T) {
	f := testutil.NewFakes()
	f.Calendar = nil
	f.Mail = nil

	stdout, stderr, code := runCommand(t, &commands.AddTaskCmd{}, f.Service(), []string{"--period", "today", "Write report"}, false)

	expectSuccess(t, stderr, code)
	expected := "ok, not scheduled: " + service.ErrNotConnected.Error() + "\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

func TestAddTaskCommand_CalendarFailureKeepsTask(t *testing.T) {
	f := testutil.NewFakes()
	f.Calendar.CreateErr = service.ErrQuotaExceeded

	stdout, stderr, code := runCommand(t, &commands.AddTaskCmd{}, f.Service(), []string{"--period", "today", "Write report"}, false)

	expectSuccess(t, stderr, code)
	if stdout != "ok, not scheduled: quota exceeded\n" {
		t.Errorf("expected the missing event to be reported, got %q", stdout)
	}
	if len(f.Backend.Created) != 1 {
		t.Errorf("expected task to be created, got %d", len(f.Backend.Created))
	}
}

func TestAddTaskCommand_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no title", nil, "title required"},
		{"blank title", []string{"  "}, "title required"},
		{"bad type", []string{"--type", "call", "Ring Bob"}, "invalid task type: call"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := testutil.NewFakes()
			_, stderr, code := runCommand(t, &commands.AddTaskCmd{}, f.Service(), tt.args, false)

			expectError(t, stderr, code, exitcode.UserError, tt.wantErr)
			if len(f.Backend.Created) != 0 {
				t.Error("expected no task to be created")
			}
		})
	}
}

func TestAddTaskCommand_BackendError(t *testing.T) {
	f := testutil.NewFakes()
	f.Backend.CreateErr = service.ErrForbidden

	_, _, code := runCommand(t, &commands.AddTaskCmd{}, f.Service(), []string{"--period", "today", "Write report"}, false)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if _, ok := f.Calendar.Event(service.PrimaryCalendar, "evt-1"); ok {
		t.Error("expected no calendar event when the task was not created")
	}
}

// Tests for slot command
func TestSlotCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.SlotCmd{}, testutil.NewFakes().Service(), nil, false)

	expectSuccess(t, stderr, code)
	if stdout != "Mon Oct 19 10:00 AM - 11:00 AM (1h0m0s)\n" {
		t.Errorf("unexpected slot %q", stdout)
	}
}

func TestSlotCommand_AvoidsEvents(t *testing.T) {
	f := testutil.NewFakes()
	f.Calendar.AddEvent(service.PrimaryCalendar, "std", "Standup", at(19, 10, 0), at(19, 10, 30))

	stdout, stderr, code := runCommand(t, &commands.SlotCmd{}, f.Service(), []string{"--type", "EMAIL", "Reply"}, false)

	expectSuccess(t, stderr, code)
	if stdout != "Mon Oct 19 10:30 AM - 11:00 AM (30m0s)\n" {
		t.Errorf("unexpected slot %q", stdout)
	}
}

// Tests for reschedule command
func TestRescheduleCommand(t *testing.T) {
	f := testutil.NewFakes()
	f.Calendar.AddEvent(service.PrimaryCalendar, "evt-7", "Write report", at(19, 10, 0), at(19, 11, 30))
	_ = f.Links.SaveLink(t.Context(), service.Link{
		EventID:    "evt-7",
		CalendarID: service.PrimaryCalendar,
		TaskTitle:  "Write report",
		Start:      at(19, 10, 0),
		End:        at(19, 11, 30),
	})

	stdout, stderr, code := runCommand(t, &commands.RescheduleCmd{}, f.Service(), []string{"--start", "2026-10-20 09:00", "write", "report"}, false)

	expectSuccess(t, stderr, code)
	expected := "Write report\n" +
		"  When:     Tue Oct 20 9:00 AM (9:00 AM - 10:30 AM)\n" +
		"  Id:       evt-7\n"
	if stdout != expected {
		t.Errorf("expected:\n%s\ngot:\n%s", expected, stdout)
	}

	link, _ := f.Links.LinkByEvent(t.Context(), "evt-7")
	if !link.Start.Equal(at(20, 9, 0)) || !link.End.Equal(at(20, 10, 30)) {
		t.Errorf("link not updated: %v - %v", link.Start, link.End)
	}
}

func TestRescheduleCommand_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no title", []string{"--start", "10:00"}, "task title required"},
		{"no start", []string{"Write report"}, "--start is required"},
		{"no link", []string{"--start", "10:00", "Nope"}, "no calendar event for task: Nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, code := runCommand(t, &commands.RescheduleCmd{}, testutil.NewFakes().Service(), tt.args, false)
			expectError(t, stderr, code, exitcode.UserError, tt.wantErr)
		})
	}
}
