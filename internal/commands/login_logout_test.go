package commands_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"edger/internal/backend/google"
	"edger/internal/commands"
	"edger/internal/config"
	"edger/internal/exitcode"
	"edger/internal/service"
	"edger/internal/testutil"
)

func writeOAuthClient(t *testing.T, cfg *config.Config, tokenURL string) {
	t.Helper()
	client := fmt.Sprintf(`{"installed":{"client_id":"client-id","client_secret":"client-secret","auth_uri":"https://accounts.example.com/auth","token_uri":%q,"redirect_uris":["http://localhost"]}}`, tokenURL)
	if err := os.WriteFile(filepath.Join(cfg.Dir, config.OAuthClientFile), []byte(client), 0600); err != nil {
		t.Fatal(err)
	}
}

func swapURL(t *testing.T, target *string, value string) {
	t.Helper()
	prev := *target
	*target = value
	t.Cleanup(func() { *target = prev })
}

// Tests for login command
func TestLoginCommand_NoOAuthClient(t *testing.T) {
	cfg := testConfig(t, false)

	_, stderr, code := runWithConfig(t, &commands.LoginCmd{}, cfg, nil, nil)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if !strings.HasPrefix(stderr, "error: oauth_client.json not found in "+cfg.Dir+"\n") {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if !strings.Contains(stderr, "Desktop app") {
		t.Error("expected setup instructions")
	}
}

func TestLoginCommand_AlreadyLoggedIn(t *testing.T) {
	cfg := testConfig(t, false)
	writeOAuthClient(t, cfg, "https://oauth.example.com/token")
	if err := google.NewTokenStore(cfg.TokenPath()).Save(service.GoogleTokens{AccessToken: "access", TokenType: "Bearer"}); err != nil {
		t.Fatal(err)
	}

	stdout, stderr, code := runWithConfig(t, &commands.LoginCmd{}, cfg, nil, nil)

	expectSuccess(t, stderr, code)
	if stdout != "already logged in\n" {
		t.Errorf("expected 'already logged in\\n', got %q", stdout)
	}
}

func TestLoginCommand_Cancelled(t *testing.T) {
	cfg := testConfig(t, false)
	writeOAuthClient(t, cfg, "https://oauth.example.com/token")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout, stderr bytes.Buffer
	code := (&commands.LoginCmd{}).Run(ctx, cfg, nil, nil, &stdout, &stderr)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if !strings.Contains(stderr.String(), "Open this URL in your browser:\n") {
		t.Errorf("expected consent URL on stderr, got %q", stderr.String())
	}
	if !strings.HasSuffix(stderr.String(), "error: cancelled\n") {
		t.Errorf("expected cancellation, got %q", stderr.String())
	}
	if cfg.HasToken() {
		t.Error("expected no token to be saved")
	}
}

func TestLoginCommand_FullFlow(t *testing.T) {
	cfg := testConfig(t, false)

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.Form.Get("code") != "auth-code" || r.Form.Get("code_verifier") == "" {
			http.Error(w, "bad exchange", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "new-access",
			"refresh_token": "new-refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"scope":         strings.Join(google.Scopes(), " "),
		})
	}))
	defer tokenSrv.Close()

	userSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer new-access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":"42","email":"me@example.com","name":"Me"}`))
	}))
	defer userSrv.Close()
	swapURL(t, &google.UserInfoURL, userSrv.URL)

	writeOAuthClient(t, cfg, tokenSrv.URL)

	var challenge string
	t.Cleanup(commands.SetBrowserOpener(func(authURL string) error {
		u, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		q := u.Query()
		challenge = q.Get("code_challenge")
		callback := q.Get("redirect_uri") + "?" + url.Values{"state": {q.Get("state")}, "code": {"auth-code"}}.Encode()
		resp, err := http.Get(callback)
		if err != nil {
			return err
		}
		return resp.Body.Close()
	}))

	f := testutil.NewFakes()
	stdout, stderr, code := runWithConfig(t, &commands.LoginCmd{}, cfg, f.Service(), nil)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stdout != "connected as me@example.com\n" {
		t.Errorf("unexpected stdout %q", stdout)
	}
	if challenge == "" {
		t.Error("expected a PKCE challenge in the consent URL")
	}

	tokens, err := google.NewTokenStore(cfg.TokenPath()).Load()
	if err != nil {
		t.Fatalf("expected stored token: %v", err)
	}
	if tokens.AccessToken != "new-access" || tokens.RefreshToken != "new-refresh" {
		t.Errorf("unexpected tokens %+v", tokens)
	}
	account, err := google.LoadAccount(cfg.AccountPath())
	if err != nil || account.Email != "me@example.com" {
		t.Errorf("expected stored profile, got %+v (%v)", account, err)
	}
	if len(f.Backend.Tokens) != 1 || f.Backend.Tokens[0].RefreshToken != "new-refresh" {
		t.Errorf("expected tokens forwarded to the backend, got %+v", f.Backend.Tokens)
	}
}

// Tests for logout command
func TestLogoutCommand_NotLoggedIn(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.LogoutCmd{}, nil, nil, false)

	expectSuccess(t, stderr, code)
	if stdout != "not logged in\n" {
		t.Errorf("expected 'not logged in\\n', got %q", stdout)
	}
}

func TestLogoutCommand_RevokesAndRemoves(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"revoked", http.StatusOK},
		{"revoke fails", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var revoked string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_ = r.ParseForm()
				revoked = r.Form.Get("token")
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()
			swapURL(t, &google.RevokeURL, srv.URL)

			cfg := testConfig(t, false)
			if err := google.NewTokenStore(cfg.TokenPath()).Save(service.GoogleTokens{AccessToken: "access", RefreshToken: "refresh"}); err != nil {
				t.Fatal(err)
			}
			if err := google.SaveAccount(cfg.AccountPath(), service.Account{Email: "me@example.com"}); err != nil {
				t.Fatal(err)
			}

			stdout, stderr, code := runWithConfig(t, &commands.LogoutCmd{}, cfg, nil, nil)

			expectSuccess(t, stderr, code)
			if stdout != "ok\n" {
				t.Errorf("expected 'ok\\n', got %q", stdout)
			}
			if revoked != "access" {
				t.Errorf("expected access token to be revoked, got %q", revoked)
			}
			if cfg.HasToken() {
				t.Error("expected token file to be removed")
			}
			if _, err := os.Stat(cfg.AccountPath()); !os.IsNotExist(err) {
				t.Error("expected profile to be removed")
			}
		})
	}
}
