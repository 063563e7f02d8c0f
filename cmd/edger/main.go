// Package main is the entry point for the edger CLI.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"edger/internal/backend/agentapi"
	"edger/internal/backend/gcal"
	"edger/internal/backend/gmail"
	"edger/internal/backend/google"
	"edger/internal/cli"
	"edger/internal/commands"
	"edger/internal/config"
	"edger/internal/logger"
	"edger/internal/service"
	"edger/internal/store"
)

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// The config directory's .env is loaded by config.New once --config is
	// known. Variables already set win over both files.
	config.LoadEnv(".env")

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, newService)

	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// newService builds the collaborators a command asked for.
func newService(ctx context.Context, cfg *config.Config, needs service.Needs) (*service.Service, error) {
	svc := &service.Service{}

	if needs.Has(service.NeedsGoogle) || needs.Has(service.WantsGoogle) {
		if err := connectGoogle(ctx, cfg, svc); err != nil {
			if needs.Has(service.NeedsGoogle) {
				return nil, err
			}
			if !errors.Is(err, service.ErrNotConnected) {
				logger.Warn("google: %v", err)
			}
		}
	}

	if needs.Has(service.NeedsBackend) || needs.Has(service.WantsBackend) {
		if cfg.HasSession() {
			svc.Backend = agentapi.New(cfg.Settings.APIURL, cfg.Settings.APIToken, nil)
		} else if needs.Has(service.NeedsBackend) {
			return nil, service.ErrNoSession
		}
	}

	if err := cfg.EnsureDir(); err != nil {
		return nil, err
	}
	links, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return nil, err
	}
	svc.Links = links
	svc.Close = links.Close
	return svc, nil
}

// connectGoogle fills the Gmail and Calendar clients of svc.
// It returns service.ErrNotConnected when no usable token is stored.
func connectGoogle(ctx context.Context, cfg *config.Config, svc *service.Service) error {
	if !cfg.HasToken() {
		return service.ErrNotConnected
	}
	oauthConfig, err := google.LoadOAuthConfig(cfg.OAuthClientPath())
	if err != nil {
		return err
	}
	tokenStore := google.NewTokenStore(cfg.TokenPath())
	tokens, err := tokenStore.Load()
	if err != nil {
		return err
	}
	session, err := google.Connect(ctx, oauthConfig, tokenStore)
	if err != nil {
		return err
	}

	handlers := &google.ErrorHandlers{
		OnQuotaExceeded: func() { logger.Warn("Google API quota exceeded, backing off") },
		OnAPIError:      func(message string) { logger.Debug("google: %s", message) },
	}
	mail, err := gmail.New(ctx, session.HTTPClient)
	if err != nil {
		return err
	}
	mail.SetErrorHandlers(handlers)
	cal, err := gcal.New(ctx, session.HTTPClient)
	if err != nil {
		return err
	}
	cal.SetErrorHandlers(handlers)

	account, err := google.LoadAccount(cfg.AccountPath())
	if err != nil {
		// Profiles saved by older logins may be missing
		account, err = google.FetchAccount(ctx, session.HTTPClient)
		if err != nil {
			return err
		}
		logger.Info("fetched Google profile for %s", account.Email)
		if err := google.SaveAccount(cfg.AccountPath(), account); err != nil {
			logger.Warn("could not save %s: %v", config.AccountFile, err)
		}
	}

	svc.Mail = mail
	svc.Calendar = cal
	svc.Account = &account
	svc.Tokens = &tokens
	return nil
}
