package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"edger/internal/backend/google"
	"edger/internal/config"
	"edger/internal/exitcode"
	"edger/internal/output"
	"edger/internal/service"
)

func init() {
	Register(&StatusCmd{})
}

// StatusCmd reports the Google connection and backend session.
type StatusCmd struct{}

func (c *StatusCmd) Name() string      { return "status" }
func (c *StatusCmd) Aliases() []string { return nil }
func (c *StatusCmd) Synopsis() string  { return "Show Google connection and backend session" }
func (c *StatusCmd) Usage() string     { return "edger status [common flags]" }
func (c *StatusCmd) Needs() service.Needs {
	return service.WantsGoogle | service.WantsBackend
}

func (c *StatusCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *StatusCmd) Run(ctx context.Context, cfg *config.Config, svc *service.Service, args []string, out, errOut io.Writer) int {
	loc, err := location(cfg)
	if err != nil {
		return fail(errOut, err)
	}

	if svc != nil && svc.Account != nil {
		fmt.Fprintf(out, "Google:     connected as %s\n", accountLabel(*svc.Account))
	} else {
		fmt.Fprintln(out, "Google:     not connected (run: edger login)")
	}
	if svc != nil && svc.Tokens != nil {
		t := svc.Tokens
		switch exp := t.Expiry(); {
		case exp.IsZero():
			fmt.Fprintln(out, "Token:      no expiry")
		case t.Expired(now()):
			fmt.Fprintf(out, "Token:      expired %s (refreshes on next use)\n", exp.In(loc).Format(output.DateTimeLayout))
		default:
			fmt.Fprintf(out, "Token:      expires %s\n", exp.In(loc).Format(output.DateTimeLayout))
		}
		if missing := google.MissingScopes(t.Scope); len(missing) > 0 {
			fmt.Fprintf(out, "Scopes:     missing %s\n", strings.Join(missing, " "))
		} else {
			fmt.Fprintln(out, "Scopes:     all granted")
		}
	}

	fmt.Fprintf(out, "Backend:    %s\n", cfg.Settings.APIURL)
	if svc == nil || svc.Backend == nil {
		fmt.Fprintln(out, "Session:    none (set api_token in config.toml or EDGER_API_TOKEN)")
		return exitcode.Success
	}
	fmt.Fprintln(out, "Session:    configured")

	onboarded, err := svc.Backend.OnboardingStatus(ctx)
	switch {
	case err != nil:
		fmt.Fprintf(out, "Onboarded:  unknown (%v)\n", err)
	case onboarded:
		fmt.Fprintln(out, "Onboarded:  yes")
	default:
		fmt.Fprintln(out, "Onboarded:  no (run: edger onboard)")
	}
	return exitcode.Success
}

func accountLabel(a service.Account) string {
	if a.Name != "" && a.Email != "" {
		return fmt.Sprintf("%s (%s)", a.Email, a.Name)
	}
	if a.Email != "" {
		return a.Email
	}
	return a.ID
}
