package google

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"edger/internal/logger"
	"edger/internal/service"
)

// FromOAuth2 converts an oauth2 token into the persisted token shape.
// fallbackScope is used when the token carries no "scope" extra, which is
// the case for refreshed tokens.
func FromOAuth2(tok *oauth2.Token, fallbackScope string) service.GoogleTokens {
	scope := fallbackScope
	if s, ok := tok.Extra("scope").(string); ok && s != "" {
		scope = s
	}
	tokenType := tok.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	var expiry int64
	if !tok.Expiry.IsZero() {
		expiry = tok.Expiry.UnixMilli()
	}
	return service.GoogleTokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Scope:        scope,
		TokenType:    tokenType,
		ExpiryDate:   expiry,
	}
}

// ToOAuth2 converts the persisted token shape into an oauth2 token.
func ToOAuth2(t service.GoogleTokens) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.Expiry(),
	}
}

// TokenStore persists the single active token set in token.json.
type TokenStore struct {
	path string
	now  func() time.Time
}

// NewTokenStore creates a store for the token file at path.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path, now: time.Now}
}

// Path returns the token file path.
func (s *TokenStore) Path() string { return s.path }

// Load reads the stored tokens. A missing file, or an expired access token
// without a refresh token, yields service.ErrNotConnected; the expired file
// is removed.
func (s *TokenStore) Load() (service.GoogleTokens, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return service.GoogleTokens{}, service.ErrNotConnected
		}
		return service.GoogleTokens{}, fmt.Errorf("failed to read token.json: %w", err)
	}

	var t service.GoogleTokens
	if err := json.Unmarshal(data, &t); err != nil {
		return service.GoogleTokens{}, fmt.Errorf("invalid token.json: %w", err)
	}
	if t.AccessToken == "" {
		return service.GoogleTokens{}, fmt.Errorf("invalid token.json: missing access_token")
	}

	if t.Expired(s.now()) && t.RefreshToken == "" {
		logger.Debug("stored token expired at %s, discarding", t.Expiry().Format(time.RFC3339))
		_ = os.Remove(s.path)
		return service.GoogleTokens{}, service.ErrNotConnected
	}
	return t, nil
}

// Save replaces the stored tokens. The file is written with mode 0600.
func (s *TokenStore) Save(t service.GoogleTokens) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

// Remove deletes the stored tokens. A missing file is not an error.
func (s *TokenStore) Remove() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// persistingSource writes refreshed tokens back to the store.
type persistingSource struct {
	base  oauth2.TokenSource
	store *TokenStore

	mu    sync.Mutex
	last  string
	scope string
}

// NewPersistingTokenSource wraps base so refreshed tokens are saved to store.
// current is the token set base was seeded with.
func NewPersistingTokenSource(base oauth2.TokenSource, store *TokenStore, current service.GoogleTokens) oauth2.TokenSource {
	return &persistingSource{
		base:  base,
		store: store,
		last:  current.AccessToken,
		scope: current.Scope,
	}
}

// Token implements oauth2.TokenSource.
func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken != p.last {
		t := FromOAuth2(tok, p.scope)
		if err := p.store.Save(t); err != nil {
			logger.Warn("failed to persist refreshed token: %v", err)
		} else {
			logger.Debug("persisted refreshed token, expires %s", t.Expiry().Format(time.RFC3339))
		}
		p.last = tok.AccessToken
	}
	return tok, nil
}
