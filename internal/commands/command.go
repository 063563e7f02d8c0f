// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"io"

	"edger/internal/config"
	"edger/internal/service"
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// Needs reports which collaborators the command requires.
	// Commands like help, version and logout need none.
	Needs() service.Needs

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// cfg is always provided (config dir, paths, settings).
	// svc is nil when Needs() is zero; otherwise only the requested
	// collaborators are guaranteed to be set.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, cfg *config.Config, svc *service.Service, args []string, out, errOut io.Writer) int
}
