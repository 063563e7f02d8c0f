package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"edger/internal/calendar"
	"edger/internal/config"
	"edger/internal/exitcode"
	"edger/internal/output"
	"edger/internal/service"
)

const (
	dashMessages = 5
	dashTasks    = 5
)

func init() {
	Register(&DashCmd{})
}

// DashCmd prints today's overview.
type DashCmd struct{}

func (c *DashCmd) Name() string      { return "dash" }
func (c *DashCmd) Aliases() []string { return []string{"dashboard"} }
func (c *DashCmd) Synopsis() string  { return "Today's agenda, unread mail and tasks (default command)" }
func (c *DashCmd) Usage() string     { return "edger dash [common flags]" }
func (c *DashCmd) Needs() service.Needs {
	return service.WantsGoogle | service.WantsBackend
}

func (c *DashCmd) RegisterFlags(fs *flag.FlagSet) {}

// dashData is what the dashboard shows. Each section carries its own error.
type dashData struct {
	agenda    []agendaGroup
	agendaErr error

	unread      []service.Message
	unreadCount int64
	unreadErr   error

	tasks    []service.Task
	tasksErr error
}

func (c *DashCmd) Run(ctx context.Context, cfg *config.Config, svc *service.Service, args []string, out, errOut io.Writer) int {
	loc, err := location(cfg)
	if err != nil {
		return fail(errOut, err)
	}
	today := now().In(loc)
	connected := svc.Connected()
	hasBackend := svc != nil && svc.Backend != nil

	var d dashData
	var g errgroup.Group
	if connected {
		g.Go(func() error {
			start, end := calendar.DayBounds(today)
			d.agenda, d.agendaErr = buildAgenda(ctx, svc.Calendar, start, end, nil)
			return nil
		})
		g.Go(func() error {
			q := service.MessageQuery{Q: "is:unread", LabelIDs: []string{service.LabelInbox}, MaxResults: dashMessages}
			var page service.MessagePage
			d.unread, page, d.unreadErr = service.ListAndFetch(ctx, svc.Mail, q, service.FormatMetadata)
			d.unreadCount = page.ResultSizeEstimate
			return nil
		})
	}
	if hasBackend {
		g.Go(func() error {
			d.tasks, d.tasksErr = svc.Backend.Tasks(ctx)
			return nil
		})
	}
	_ = g.Wait()

	code := exitcode.Success
	report := func(section string, err error) {
		fmt.Fprintf(errOut, "error: %s: %v\n", section, err)
		if ec := ExitCode(err); ec > code {
			code = ec
		}
	}

	output.FormatSection(out, "Today, "+today.Format(output.DayLayout))
	switch {
	case !connected:
		fmt.Fprintln(out, "Google not connected (run: edger login)")
	case d.agendaErr != nil:
		report("calendar", d.agendaErr)
	case !printAgenda(out, d.agenda, loc):
		fmt.Fprintln(out, "no events today")
	}

	if connected {
		if d.unreadErr != nil {
			output.FormatSection(out, "Inbox")
			report("inbox", d.unreadErr)
		} else {
			output.FormatSection(out, fmt.Sprintf("Inbox (%d unread)", d.unreadCount))
			for i, m := range d.unread {
				output.FormatMessageLine(out, i+1, m, loc)
			}
			if len(d.unread) == 0 {
				fmt.Fprintln(out, "no unread messages")
			}
		}
	}

	output.FormatSection(out, "Tasks")
	switch {
	case !hasBackend:
		fmt.Fprintln(out, "No backend session (set api_token in config.toml)")
	case d.tasksErr != nil:
		report("tasks", d.tasksErr)
	case len(d.tasks) == 0:
		fmt.Fprintln(out, "no tasks found")
	default:
		for i, t := range d.tasks {
			if i == dashTasks {
				fmt.Fprintf(out, "... %d more (run: edger tasks)\n", len(d.tasks)-dashTasks)
				break
			}
			output.FormatTask(out, i+1, t, taskLink(ctx, svc.Links, t.Title), loc)
		}
	}
	return code
}
