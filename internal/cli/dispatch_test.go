package cli_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"edger/internal/cli"
	"edger/internal/commands"
	"edger/internal/config"
	"edger/internal/exitcode"
	"edger/internal/service"
	"edger/internal/testutil"
)

// testFactory creates a service factory that returns the given fakes and
// records the needs it was called with.
func testFactory(f *testutil.Fakes, got *service.Needs) cli.ServiceFactory {
	return func(ctx context.Context, cfg *config.Config, needs service.Needs) (*service.Service, error) {
		if got != nil {
			*got = needs
		}
		return f.Service(), nil
	}
}

func run(t *testing.T, factory cli.ServiceFactory, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(config.EnvAPIToken, "")

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)
	var outBuf, errBuf bytes.Buffer
	code = dispatcher.Run(context.Background(), args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	_, stderr, code := run(t, testFactory(testutil.NewFakes(), nil), "unknowncmd")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: unknowncmd\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_FlagBeforeCommand(t *testing.T) {
	_, stderr, code := run(t, testFactory(testutil.NewFakes(), nil), "--quiet")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: --quiet\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_HelpCommand(t *testing.T) {
	stdout, stderr, code := run(t, nil, "help")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if !strings.Contains(stdout, "Usage:") {
		t.Error("expected help output to contain 'Usage:'")
	}
}

func TestDispatcher_VersionCommand(t *testing.T) {
	stdout, stderr, code := run(t, nil, "version")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "edger 0.1.0\n" {
		t.Errorf("expected 'edger 0.1.0\\n', got %q", stdout)
	}
}

func TestDispatcher_UnknownFlag(t *testing.T) {
	_, stderr, code := run(t, nil, "help", "--unknown")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown flag: -unknown\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_FlagNeedsArgument(t *testing.T) {
	_, stderr, code := run(t, nil, "inbox", "--label")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: flag needs an argument: -label\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_AliasResolves(t *testing.T) {
	fakes := testutil.NewFakes()
	fakes.Mail.AddMessage("m1", "Alice <alice@example.com>", "Hello", "hi there", service.LabelInbox)

	stdout, stderr, code := run(t, testFactory(fakes, nil), "mail")

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if !strings.Contains(stdout, "Hello") {
		t.Errorf("expected inbox listing, got %q", stdout)
	}
}

func TestDispatcher_NoArgsRunsDashboard(t *testing.T) {
	var needs service.Needs
	stdout, stderr, code := run(t, testFactory(testutil.NewFakes(), &needs))

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if !strings.Contains(stdout, "Today, ") {
		t.Errorf("expected dashboard output, got %q", stdout)
	}
	if !needs.Has(service.WantsGoogle) || !needs.Has(service.WantsBackend) {
		t.Errorf("expected dashboard to want google and backend, got %b", needs)
	}
}

func TestDispatcher_FactoryErrorExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"not connected", service.ErrNotConnected, exitcode.AuthError},
		{"no session", service.ErrNoSession, exitcode.AuthError},
		{"other", errors.New("disk full"), exitcode.BackendError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := func(ctx context.Context, cfg *config.Config, needs service.Needs) (*service.Service, error) {
				return nil, tt.err
			}
			_, stderr, code := run(t, factory, "inbox")

			if code != tt.code {
				t.Errorf("expected exit code %d, got %d", tt.code, code)
			}
			if stderr != "error: "+tt.err.Error()+"\n" {
				t.Errorf("unexpected stderr %q", stderr)
			}
		})
	}
}

func TestDispatcher_NoNeedsSkipsFactory(t *testing.T) {
	called := false
	factory := func(ctx context.Context, cfg *config.Config, needs service.Needs) (*service.Service, error) {
		called = true
		return nil, errors.New("should not be called")
	}

	_, _, code := run(t, factory, "version")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if called {
		t.Error("factory called for a command without needs")
	}
}

func TestDispatcher_ClosesService(t *testing.T) {
	closed := false
	fakes := testutil.NewFakes()
	factory := func(ctx context.Context, cfg *config.Config, needs service.Needs) (*service.Service, error) {
		svc := fakes.Service()
		svc.Close = func() error {
			closed = true
			return nil
		}
		return svc, nil
	}

	if _, _, code := run(t, factory, "labels"); code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if !closed {
		t.Error("expected service to be closed after the command")
	}
}

func TestDispatcher_PreflightWithoutFactory(t *testing.T) {
	dir := t.TempDir()

	_, stderr, code := run(t, nil, "inbox", "--config", dir)
	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if stderr != "error: oauth_client.json not found in "+dir+"\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}

	if err := os.WriteFile(filepath.Join(dir, config.OAuthClientFile), []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}
	_, stderr, code = run(t, nil, "inbox", "--config", dir)
	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if stderr != "error: not connected to Google (run: edger login)\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestDispatcher_QuietFlag(t *testing.T) {
	fakes := testutil.NewFakes()
	fakes.Mail.AddMessage("m1", "Alice <alice@example.com>", "Hello", "hi", service.LabelInbox, service.LabelUnread)

	stdout, stderr, code := run(t, testFactory(fakes, nil), "mark", "--quiet", "read", "1")

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stdout != "" {
		t.Errorf("expected no output with --quiet, got %q", stdout)
	}
}

func TestDispatcher_ConfigDirEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.EnvFile), []byte("EDGER_TIMEZONE=Europe/Berlin\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvTimezone, "")
	if err := os.Unsetenv(config.EnvTimezone); err != nil {
		t.Fatal(err)
	}

	var timezone string
	factory := func(ctx context.Context, cfg *config.Config, needs service.Needs) (*service.Service, error) {
		timezone = cfg.Settings.Timezone
		return testutil.NewFakes().Service(), nil
	}
	_, stderr, code := run(t, factory, "labels", "--config", dir)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if timezone != "Europe/Berlin" {
		t.Errorf("expected timezone from %s/.env, got %q", dir, timezone)
	}
}
