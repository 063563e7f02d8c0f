package commands

import (
	"errors"
	"fmt"
	"io"
	"time"

	"edger/internal/config"
	"edger/internal/exitcode"
	"edger/internal/service"
)

// UsageError is a mistake in the command line.
type UsageError struct {
	msg string
}

func (e *UsageError) Error() string { return e.msg }

func usageErrorf(format string, args ...any) error {
	return &UsageError{msg: fmt.Sprintf(format, args...)}
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	var usage *UsageError
	switch {
	case err == nil:
		return exitcode.Success
	case errors.As(err, &usage), errors.Is(err, service.ErrNotFound):
		return exitcode.UserError
	case errors.Is(err, service.ErrNotConnected),
		errors.Is(err, service.ErrNoSession),
		errors.Is(err, service.ErrUnauthorized),
		errors.Is(err, service.ErrForbidden):
		return exitcode.AuthError
	default:
		return exitcode.BackendError
	}
}

// fail prints err and returns its exit code.
func fail(errOut io.Writer, err error) int {
	fmt.Fprintf(errOut, "error: %v\n", err)
	return ExitCode(err)
}

// ok prints "ok" unless quiet.
func ok(cfg *config.Config, out io.Writer) int {
	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// now is the command clock.
var now = time.Now

// location returns the configured display time zone.
func location(cfg *config.Config) (*time.Location, error) {
	loc, err := cfg.Settings.Location()
	if err != nil {
		return nil, usageErrorf("%v", err)
	}
	return loc, nil
}

func requireGoogle(svc *service.Service) error {
	if !svc.Connected() {
		return service.ErrNotConnected
	}
	return nil
}

func requireBackend(svc *service.Service) error {
	if svc == nil || svc.Backend == nil {
		return service.ErrNoSession
	}
	return nil
}
