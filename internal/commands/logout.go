package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"time"

	"edger/internal/backend/google"
	"edger/internal/config"
	"edger/internal/exitcode"
	"edger/internal/logger"
	"edger/internal/service"
)

const revokeTimeout = 10 * time.Second

func init() {
	Register(&LogoutCmd{})
}

// LogoutCmd implements the logout command.
type LogoutCmd struct{}

func (c *LogoutCmd) Name() string         { return "logout" }
func (c *LogoutCmd) Aliases() []string    { return []string{"disconnect"} }
func (c *LogoutCmd) Synopsis() string     { return "Revoke and remove stored Google credentials" }
func (c *LogoutCmd) Usage() string        { return "edger logout [common flags]" }
func (c *LogoutCmd) Needs() service.Needs { return 0 }

func (c *LogoutCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LogoutCmd) Run(ctx context.Context, cfg *config.Config, svc *service.Service, args []string, out, errOut io.Writer) int {
	if !cfg.HasToken() {
		if !cfg.Quiet {
			fmt.Fprintln(out, "not logged in")
		}
		return exitcode.Success
	}

	store := google.NewTokenStore(cfg.TokenPath())
	tokens, err := store.Load()
	switch {
	case err == nil:
		revokeCtx, cancel := context.WithTimeout(ctx, revokeTimeout)
		defer cancel()
		if err := google.Revoke(revokeCtx, http.DefaultClient, tokens.AccessToken); err != nil {
			logger.Warn("could not revoke token: %v", err)
		}
	case errors.Is(err, service.ErrNotConnected):
		// expired token already discarded by Load
	default:
		logger.Warn("could not read token for revocation: %v", err)
	}

	if err := cfg.RemoveToken(); err != nil {
		fmt.Fprintf(errOut, "error: failed to remove token: %v\n", err)
		return exitcode.AuthError
	}

	return ok(cfg, out)
}
