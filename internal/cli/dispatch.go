// Package cli parses the command line and dispatches to commands.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"edger/internal/commands"
	"edger/internal/config"
	"edger/internal/exitcode"
	"edger/internal/logger"
	"edger/internal/service"
)

// DefaultCommand runs when no command is given.
const DefaultCommand = "dash"

// ServiceFactory builds the collaborators a command asked for.
// It returns service.ErrNotConnected or service.ErrNoSession when a required
// collaborator cannot be built.
type ServiceFactory func(ctx context.Context, cfg *config.Config, needs service.Needs) (*service.Service, error)

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  ServiceFactory
}

// NewDispatcher creates a new dispatcher with the given registry and service factory.
func NewDispatcher(registry *commands.Registry, factory ServiceFactory) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		factory:  factory,
	}
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		return d.dispatch(ctx, DefaultCommand, nil, out, errOut)
	}

	cmdName := args[0]

	// Flags require a command
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	return d.dispatch(ctx, cmdName, args[1:], out, errOut)
}

func (d *Dispatcher) dispatch(ctx context.Context, cmdName string, args []string, out, errOut io.Writer) int {
	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args, out, errOut)
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves

	// Common flags
	var configDir string
	var quiet bool
	var debug bool

	fs.StringVar(&configDir, "config", "", "")
	fs.BoolVar(&quiet, "quiet", false, "")
	fs.BoolVar(&debug, "debug", false, "")

	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", flagError(err))
		return exitcode.UserError
	}

	// A dash after the first positional would have been parsed as a flag
	positionalArgs := fs.Args()
	if len(positionalArgs) > 0 && strings.HasPrefix(positionalArgs[0], "-") && positionalArgs[0] != "-" {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positionalArgs[0])
		return exitcode.UserError
	}

	logger.SetVerbose(debug)
	logger.Section(cmd.Name())

	cfg, err := config.New(configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet = quiet
	cfg.Debug = debug

	var svc *service.Service
	if needs := cmd.Needs(); needs != 0 {
		if d.factory == nil {
			// Pre-flight checks only; commands see a nil service.
			if code, ok := preflight(cfg, needs, errOut); !ok {
				return code
			}
		} else {
			svc, err = d.factory(ctx, cfg, needs)
			if err != nil {
				fmt.Fprintf(errOut, "error: %v\n", err)
				return commands.ExitCode(err)
			}
			if svc != nil && svc.Close != nil {
				defer func() {
					if err := svc.Close(); err != nil {
						logger.Warn("close: %v", err)
					}
				}()
			}
		}
	}

	return cmd.Run(ctx, cfg, svc, positionalArgs, out, errOut)
}

// flagError turns a flag package error into the CLI's wording.
func flagError(err error) string {
	errStr := err.Error()

	if strings.HasPrefix(errStr, "flag needs an argument:") {
		flagName := strings.TrimSpace(strings.TrimPrefix(errStr, "flag needs an argument:"))
		return "flag needs an argument: " + flagName
	}
	if strings.HasPrefix(errStr, "flag provided but not defined:") {
		flagName := strings.TrimSpace(strings.TrimPrefix(errStr, "flag provided but not defined:"))
		return "unknown flag: " + flagName
	}
	return errStr
}

// preflight reports missing files for required collaborators.
func preflight(cfg *config.Config, needs service.Needs, errOut io.Writer) (int, bool) {
	if needs.Has(service.NeedsGoogle) {
		if !cfg.HasOAuthClient() {
			fmt.Fprintf(errOut, "error: oauth_client.json not found in %s\n", cfg.Dir)
			return exitcode.AuthError, false
		}
		if !cfg.HasToken() {
			fmt.Fprintf(errOut, "error: %v\n", service.ErrNotConnected)
			return exitcode.AuthError, false
		}
	}
	if needs.Has(service.NeedsBackend) && !cfg.HasSession() {
		fmt.Fprintf(errOut, "error: %v\n", service.ErrNoSession)
		return exitcode.AuthError, false
	}
	return exitcode.Success, true
}
