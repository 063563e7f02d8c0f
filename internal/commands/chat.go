package commands

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"edger/internal/chat"
	"edger/internal/config"
	"edger/internal/exitcode"
	"edger/internal/output"
	"edger/internal/schedule"
	"edger/internal/service"
)

func init() {
	Register(&ChatCmd{})
}

// ChatCmd talks to the agent, one message or a line-based session.
type ChatCmd struct {
	// In is read in interactive mode. Defaults to os.Stdin.
	In io.Reader

	create bool
}

func (c *ChatCmd) Name() string      { return "chat" }
func (c *ChatCmd) Aliases() []string { return []string{"ask"} }
func (c *ChatCmd) Synopsis() string  { return "Chat with the agent; it can suggest tasks" }
func (c *ChatCmd) Usage() string {
	return "edger chat [common flags] [--create] [message...]"
}
func (c *ChatCmd) Needs() service.Needs {
	return service.NeedsBackend | service.WantsGoogle
}

func (c *ChatCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.create, "create", false, "create every suggested task")
}

// chatRun is the state of one chat invocation.
type chatRun struct {
	cfg         *config.Config
	loc         *time.Location
	session     *chat.Session
	integrator  *schedule.Integrator
	styles      *output.ChatStyles
	out         io.Writer
	suggestions []service.TaskRequest
	fresh       bool
}

func (c *ChatCmd) Run(ctx context.Context, cfg *config.Config, svc *service.Service, args []string, out, errOut io.Writer) int {
	if err := requireBackend(svc); err != nil {
		return fail(errOut, err)
	}
	loc, err := location(cfg)
	if err != nil {
		return fail(errOut, err)
	}

	r := &chatRun{
		cfg:        cfg,
		loc:        loc,
		session:    chat.NewSession(svc.Backend),
		integrator: newIntegrator(cfg, svc, loc),
		styles:     output.NewChatStyles(out),
		out:        out,
	}
	r.session.OnTaskSuggest = func(tasks []service.TaskRequest) {
		r.suggestions = tasks
		r.fresh = true
	}

	if len(args) > 0 {
		if err := r.send(ctx, strings.Join(args, " ")); err != nil {
			return fail(errOut, err)
		}
		return r.afterReply(ctx, c.create)
	}

	in := c.In
	if in == nil {
		in = os.Stdin
	}
	if !cfg.Quiet {
		r.styles.FormatHint(out, "Type a message. Commands: /create <n>, /tasks, /clear, /quit")
	}
	scanner := bufio.NewScanner(in)
	for {
		if ctx.Err() != nil {
			return exitcode.Success
		}
		fmt.Fprint(errOut, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(errOut)
			if err := scanner.Err(); err != nil {
				return fail(errOut, err)
			}
			return exitcode.Success
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := r.command(ctx, line); quit {
				return exitcode.Success
			}
			continue
		}
		if err := r.send(ctx, line); err != nil {
			r.styles.FormatError(out, err)
			continue
		}
		r.afterReply(ctx, c.create)
	}
}

func (r *chatRun) send(ctx context.Context, text string) error {
	r.fresh = false
	reply, err := r.session.Send(ctx, text)
	if err != nil {
		return err
	}
	if reply != nil {
		r.styles.FormatChatMessage(r.out, *reply)
	}
	return nil
}

// afterReply lists or creates the tasks suggested by the last reply.
func (r *chatRun) afterReply(ctx context.Context, create bool) int {
	if !r.fresh {
		return exitcode.Success
	}
	if create {
		code := exitcode.Success
		for i := range r.suggestions {
			if c := r.createSuggestion(ctx, i); c != exitcode.Success {
				code = c
			}
		}
		return code
	}
	r.styles.FormatSuggestions(r.out, r.suggestions)
	if !r.cfg.Quiet {
		r.styles.FormatHint(r.out, "Create them with /create <n> or chat --create.")
	}
	return exitcode.Success
}

// command runs a slash command and reports whether the session should end.
func (r *chatRun) command(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/clear":
		r.session.Clear()
		r.suggestions = nil
		r.styles.FormatHint(r.out, "conversation cleared")
	case "/tasks":
		if len(r.suggestions) == 0 {
			r.styles.FormatHint(r.out, "no suggested tasks")
			break
		}
		r.styles.FormatSuggestions(r.out, r.suggestions)
	case "/create":
		if len(r.suggestions) == 0 {
			r.styles.FormatHint(r.out, "no suggested tasks")
			break
		}
		if len(fields) < 2 || fields[1] == "all" {
			for i := range r.suggestions {
				r.createSuggestion(ctx, i)
			}
			break
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 || n > len(r.suggestions) {
			r.styles.FormatError(r.out, usageErrorf("no suggested task %s", fields[1]))
			break
		}
		r.createSuggestion(ctx, n-1)
	default:
		r.styles.FormatError(r.out, usageErrorf("unknown command: %s", fields[0]))
	}
	return false
}

func (r *chatRun) createSuggestion(ctx context.Context, i int) int {
	task := r.suggestions[i]
	res, err := r.integrator.CreateTaskWithCalendar(ctx, task)
	if err != nil {
		r.styles.FormatError(r.out, err)
		return ExitCode(err)
	}
	switch {
	case res.Event != nil:
		r.styles.FormatHint(r.out, "created %q, scheduled %s", task.Title, res.Event.Start.Time(r.loc).In(r.loc).Format(output.DateTimeLayout))
	case res.CalendarErr != nil:
		r.styles.FormatHint(r.out, "created %q, not scheduled: %v", task.Title, res.CalendarErr)
	default:
		r.styles.FormatHint(r.out, "created %q", task.Title)
	}
	return exitcode.Success
}
