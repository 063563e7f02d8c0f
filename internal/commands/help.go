package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"edger/internal/config"
	"edger/internal/exitcode"
	"edger/internal/service"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
// Registry defaults to DefaultRegistry.
type HelpCmd struct {
	Registry *Registry
}

func (c *HelpCmd) Name() string         { return "help" }
func (c *HelpCmd) Aliases() []string    { return nil }
func (c *HelpCmd) Synopsis() string     { return "Print usage" }
func (c *HelpCmd) Usage() string        { return "edger help [command]" }
func (c *HelpCmd) Needs() service.Needs { return 0 }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, svc *service.Service, args []string, out, errOut io.Writer) int {
	reg := c.Registry
	if reg == nil {
		reg = DefaultRegistry
	}

	if len(args) > 0 {
		cmd, ok := reg.Find(args[0])
		if !ok {
			return fail(errOut, usageErrorf("unknown command: %s", args[0]))
		}
		fmt.Fprintf(out, "Usage: %s\n\n%s\n", cmd.Usage(), cmd.Synopsis())
		fmt.Fprint(out, commonFlagsText)
		return exitcode.Success
	}

	fmt.Fprintln(out, "Usage:")
	fmt.Fprintln(out, "  edger                    Show the dashboard")
	for _, cmd := range reg.All() {
		fmt.Fprintf(out, "  %s\n", cmd.Usage())
		fmt.Fprintf(out, "      %s\n", cmd.Synopsis())
	}
	fmt.Fprint(out, commonFlagsText)
	return exitcode.Success
}

const commonFlagsText = `
Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
