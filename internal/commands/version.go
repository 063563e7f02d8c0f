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

// Version is the application version.
var Version = "0.1.0"

func init() {
	Register(&VersionCmd{})
}

// VersionCmd implements the version command.
type VersionCmd struct{}

func (c *VersionCmd) Name() string         { return "version" }
func (c *VersionCmd) Aliases() []string    { return nil }
func (c *VersionCmd) Synopsis() string     { return "Print version" }
func (c *VersionCmd) Usage() string        { return "edger version" }
func (c *VersionCmd) Needs() service.Needs { return 0 }

func (c *VersionCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *VersionCmd) Run(ctx context.Context, cfg *config.Config, svc *service.Service, args []string, out, errOut io.Writer) int {
	fmt.Fprintf(out, "edger %s\n", Version)
	return exitcode.Success
}
