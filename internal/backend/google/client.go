package google

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
)

// LoadOAuthConfig reads the desktop OAuth client file and binds edger's scopes.
func LoadOAuthConfig(path string) (*oauth2.Config, error) {
	clientJSON, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth_client.json: %w", err)
	}
	cfg, err := googleoauth.ConfigFromJSON(clientJSON, Scopes()...)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth_client.json: %w", err)
	}
	return cfg, nil
}

// Session is an authorised connection to Google for one user.
type Session struct {
	HTTPClient  *http.Client
	TokenSource oauth2.TokenSource
	Store       *TokenStore
}

// Connect loads the stored tokens and returns an auto-refreshing session.
// Refreshed tokens are written back to the store.
func Connect(ctx context.Context, oauthConfig *oauth2.Config, store *TokenStore) (*Session, error) {
	tokens, err := store.Load()
	if err != nil {
		return nil, err
	}

	base := oauthConfig.TokenSource(ctx, ToOAuth2(tokens))
	ts := oauth2.ReuseTokenSource(ToOAuth2(tokens), NewPersistingTokenSource(base, store, tokens))

	return &Session{
		HTTPClient:  oauth2.NewClient(ctx, ts),
		TokenSource: ts,
		Store:       store,
	}, nil
}
