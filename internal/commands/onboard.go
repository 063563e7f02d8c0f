package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"edger/internal/config"
	"edger/internal/exitcode"
	"edger/internal/service"
)

func init() {
	Register(&OnboardCmd{})
	Register(&PushTokenCmd{})
}

// OnboardCmd submits or checks the one-time onboarding answers.
type OnboardCmd struct {
	status      bool
	preferences stringList
	contextKVs  stringList
	calendarURL string
	withGoogle  bool
}

func (c *OnboardCmd) Name() string      { return "onboard" }
func (c *OnboardCmd) Aliases() []string { return nil }
func (c *OnboardCmd) Synopsis() string  { return "Submit onboarding answers to the backend" }
func (c *OnboardCmd) Usage() string {
	return "edger onboard [common flags] [--status] [--preference <p>]... [--context <k=v>]... [--calendar-url <url>] [--with-google]"
}
func (c *OnboardCmd) Needs() service.Needs {
	return service.NeedsBackend | service.WantsGoogle
}

func (c *OnboardCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.status, "status", false, "only report whether onboarding is complete")
	fs.Var(&c.preferences, "preference", "a preference (repeatable)")
	fs.Var(&c.contextKVs, "context", "context entry as key=value (repeatable)")
	fs.StringVar(&c.calendarURL, "calendar-url", "", "calendar URL to share with the agent")
	fs.BoolVar(&c.withGoogle, "with-google", false, "include the Google tokens")
}

func (c *OnboardCmd) Run(ctx context.Context, cfg *config.Config, svc *service.Service, args []string, out, errOut io.Writer) int {
	if err := requireBackend(svc); err != nil {
		return fail(errOut, err)
	}

	if c.status {
		onboarded, err := svc.Backend.OnboardingStatus(ctx)
		if err != nil {
			return fail(errOut, err)
		}
		if onboarded {
			fmt.Fprintln(out, "onboarded")
		} else {
			fmt.Fprintln(out, "not onboarded")
		}
		return exitcode.Success
	}

	data := service.Onboarding{
		Context:     make(map[string]any, len(c.contextKVs)),
		Preferences: append([]string{}, c.preferences...),
		CalendarURL: c.calendarURL,
	}
	for _, kv := range c.contextKVs {
		k, v, found := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !found || k == "" {
			return fail(errOut, usageErrorf("invalid context entry: %s (want key=value)", kv))
		}
		data.Context[k] = strings.TrimSpace(v)
	}
	if c.withGoogle {
		if svc.Tokens == nil {
			return fail(errOut, service.ErrNotConnected)
		}
		tokens := *svc.Tokens
		data.GoogleToken = &tokens
	}

	if err := svc.Backend.SubmitOnboarding(ctx, data); err != nil {
		return fail(errOut, err)
	}
	return ok(cfg, out)
}

// PushTokenCmd forwards the stored Google tokens to the backend.
type PushTokenCmd struct{}

func (c *PushTokenCmd) Name() string      { return "pushtoken" }
func (c *PushTokenCmd) Aliases() []string { return nil }
func (c *PushTokenCmd) Synopsis() string  { return "Send the Google tokens to the backend" }
func (c *PushTokenCmd) Usage() string     { return "edger pushtoken [common flags]" }
func (c *PushTokenCmd) Needs() service.Needs {
	return service.NeedsBackend | service.NeedsGoogle
}

func (c *PushTokenCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *PushTokenCmd) Run(ctx context.Context, cfg *config.Config, svc *service.Service, args []string, out, errOut io.Writer) int {
	if err := requireBackend(svc); err != nil {
		return fail(errOut, err)
	}
	if svc.Tokens == nil {
		return fail(errOut, service.ErrNotConnected)
	}
	if err := svc.Backend.SubmitToken(ctx, *svc.Tokens); err != nil {
		return fail(errOut, err)
	}
	return ok(cfg, out)
}
