package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"edger/internal/config"
	"edger/internal/exitcode"
	"edger/internal/logger"
	"edger/internal/output"
	"edger/internal/schedule"
	"edger/internal/service"
)

func init() {
	Register(&TasksCmd{})
	Register(&AddTaskCmd{})
	Register(&SlotCmd{})
	Register(&RescheduleCmd{})
}

// newIntegrator wires the scheduling rules to the collaborators in svc.
func newIntegrator(cfg *config.Config, svc *service.Service, loc *time.Location) *schedule.Integrator {
	p := schedule.NewPlanner(loc, cfg.Settings.WorkdayStart, cfg.Settings.WorkdayEnd)
	p.Now = now
	in := &schedule.Integrator{Planner: p}
	if svc != nil {
		in.Backend = svc.Backend
		in.Calendar = svc.Calendar
		in.Links = svc.Links
	}
	return in
}

// taskFlags describe a task on the command line.
type taskFlags struct {
	taskType string
	priority string
	period   string
	prompt   string
	url      string
}

func (t *taskFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&t.taskType, "type", string(service.TaskTodo), "EMAIL, WEB or TODO")
	fs.StringVar(&t.priority, "priority", "medium", "low, medium or high")
	fs.StringVar(&t.period, "period", "", "when, e.g. today, tomorrow, this week, deadline 12/24")
	fs.StringVar(&t.prompt, "prompt", "", "instructions for the agent (default: the title)")
	fs.StringVar(&t.url, "url", "", "page for WEB tasks")
}

func (t *taskFlags) request(args []string) (service.TaskRequest, error) {
	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		return service.TaskRequest{}, usageErrorf("title required")
	}
	typ := service.TaskType(strings.ToUpper(t.taskType))
	if !typ.Valid() {
		return service.TaskRequest{}, usageErrorf("invalid task type: %s", t.taskType)
	}
	prompt := t.prompt
	if prompt == "" {
		prompt = title
	}
	return service.TaskRequest{
		Title:  title,
		Type:   typ,
		Period: t.period,
		Context: service.TaskContext{
			Prompt:   prompt,
			Priority: t.priority,
			URL:      t.url,
		},
	}, nil
}

// TasksCmd lists backend tasks.
type TasksCmd struct{}

func (c *TasksCmd) Name() string      { return "tasks" }
func (c *TasksCmd) Aliases() []string { return nil }
func (c *TasksCmd) Synopsis() string  { return "List tasks and their calendar slots" }
func (c *TasksCmd) Usage() string     { return "edger tasks [common flags]" }
func (c *TasksCmd) Needs() service.Needs {
	return service.NeedsBackend
}

func (c *TasksCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *TasksCmd) Run(ctx context.Context, cfg *config.Config, svc *service.Service, args []string, out, errOut io.Writer) int {
	if err := requireBackend(svc); err != nil {
		return fail(errOut, err)
	}
	loc, err := location(cfg)
	if err != nil {
		return fail(errOut, err)
	}
	tasks, err := svc.Backend.Tasks(ctx)
	if err != nil {
		return fail(errOut, err)
	}
	if len(tasks) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no tasks found")
		}
		return exitcode.Success
	}

	for i, t := range tasks {
		output.FormatTask(out, i+1, t, taskLink(ctx, svc.Links, t.Title), loc)
	}
	return exitcode.Success
}

// taskLink returns the newest event link of a task, if any.
func taskLink(ctx context.Context, links service.Links, title string) *service.Link {
	if links == nil {
		return nil
	}
	l, err := links.LinkByTask(ctx, title)
	if err != nil {
		if !errors.Is(err, service.ErrNotFound) {
			logger.Warn("could not look up calendar link for %q: %v", title, err)
		}
		return nil
	}
	return &l
}

// AddTaskCmd creates a task and, when its period or priority calls for it,
// a calendar event.
type AddTaskCmd struct {
	task       taskFlags
	noCalendar bool
}

func (c *AddTaskCmd) Name() string      { return "addtask" }
func (c *AddTaskCmd) Aliases() []string { return []string{"task"} }
func (c *AddTaskCmd) Synopsis() string  { return "Create a task and schedule it on the calendar" }
func (c *AddTaskCmd) Usage() string {
	return "edger addtask [common flags] [--type TODO] [--priority medium] [--period <p>] [--prompt <p>] [--url <u>] [--no-calendar] <title...>"
}
func (c *AddTaskCmd) Needs() service.Needs {
	return service.NeedsBackend | service.WantsGoogle
}

func (c *AddTaskCmd) RegisterFlags(fs *flag.FlagSet) {
	c.task.register(fs)
	fs.BoolVar(&c.noCalendar, "no-calendar", false, "do not create a calendar event")
}

func (c *AddTaskCmd) Run(ctx context.Context, cfg *config.Config, svc *service.Service, args []string, out, errOut io.Writer) int {
	if err := requireBackend(svc); err != nil {
		return fail(errOut, err)
	}
	req, err := c.task.request(args)
	if err != nil {
		return fail(errOut, err)
	}
	loc, err := location(cfg)
	if err != nil {
		return fail(errOut, err)
	}

	in := newIntegrator(cfg, svc, loc)
	if c.noCalendar {
		in.Calendar = nil
	}
	res, err := in.CreateTaskWithCalendar(ctx, req)
	if err != nil {
		return fail(errOut, err)
	}

	if cfg.Quiet {
		return exitcode.Success
	}
	switch {
	case res.Event != nil:
		fmt.Fprintf(out, "ok, scheduled %s\n", res.Event.Start.Time(loc).In(loc).Format(output.DateTimeLayout))
	case res.CalendarErr != nil && !c.noCalendar:
		fmt.Fprintf(out, "ok, not scheduled: %v\n", res.CalendarErr)
	default:
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// SlotCmd suggests when a task would fit on the calendar.
type SlotCmd struct {
	task taskFlags
}

func (c *SlotCmd) Name() string      { return "slot" }
func (c *SlotCmd) Aliases() []string { return nil }
func (c *SlotCmd) Synopsis() string  { return "Find the next free slot this week for a task" }
func (c *SlotCmd) Usage() string {
	return "edger slot [common flags] [--type TODO] [--priority medium] [title...]"
}
func (c *SlotCmd) Needs() service.Needs { return service.WantsGoogle }

func (c *SlotCmd) RegisterFlags(fs *flag.FlagSet) { c.task.register(fs) }

func (c *SlotCmd) Run(ctx context.Context, cfg *config.Config, svc *service.Service, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		args = []string{"slot"}
	}
	req, err := c.task.request(args)
	if err != nil {
		return fail(errOut, err)
	}
	loc, err := location(cfg)
	if err != nil {
		return fail(errOut, err)
	}

	slot := newIntegrator(cfg, svc, loc).FindOptimalTimeSlot(ctx, req)
	d := schedule.Duration(req)
	fmt.Fprintf(out, "%s - %s (%s)\n", slot.In(loc).Format(output.DateTimeLayout), slot.Add(d).In(loc).Format("3:04 PM"), d)
	return exitcode.Success
}

// RescheduleCmd moves the calendar event of a task.
type RescheduleCmd struct {
	start    string
	duration time.Duration
}

func (c *RescheduleCmd) Name() string      { return "reschedule" }
func (c *RescheduleCmd) Aliases() []string { return nil }
func (c *RescheduleCmd) Synopsis() string  { return "Move the calendar event created for a task" }
func (c *RescheduleCmd) Usage() string {
	return "edger reschedule [common flags] --start <YYYY-MM-DD HH:MM> [--duration 1h] <task title...>"
}
func (c *RescheduleCmd) Needs() service.Needs { return service.NeedsGoogle }

func (c *RescheduleCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.start, "start", "", "new start time")
	fs.DurationVar(&c.duration, "duration", 0, "new length (default: unchanged)")
}

func (c *RescheduleCmd) Run(ctx context.Context, cfg *config.Config, svc *service.Service, args []string, out, errOut io.Writer) int {
	if err := requireGoogle(svc); err != nil {
		return fail(errOut, err)
	}
	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		return fail(errOut, usageErrorf("task title required"))
	}
	loc, err := location(cfg)
	if err != nil {
		return fail(errOut, err)
	}
	start, err := parseStart(c.start, loc, now())
	if err != nil {
		return fail(errOut, err)
	}
	if svc.Links == nil {
		return fail(errOut, fmt.Errorf("link store not available"))
	}

	link, err := svc.Links.LinkByTask(ctx, title)
	if errors.Is(err, service.ErrNotFound) {
		return fail(errOut, usageErrorf("no calendar event for task: %s", title))
	}
	if err != nil {
		return fail(errOut, err)
	}

	duration := c.duration
	if duration <= 0 {
		duration = link.End.Sub(link.Start)
	}
	ev, err := newIntegrator(cfg, svc, loc).RescheduleTask(ctx, link.CalendarID, link.EventID, start, duration)
	if err != nil {
		return fail(errOut, err)
	}
	if !cfg.Quiet {
		output.FormatEventDetail(out, ev, loc)
	}
	return exitcode.Success
}
