package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"edger/internal/service"
)

// Endpoints outside the discovery-based client libraries.
var (
	UserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	RevokeURL   = "https://oauth2.googleapis.com/revoke"
)

// FetchAccount loads the user's profile with an authorised client.
func FetchAccount(ctx context.Context, client *http.Client) (service.Account, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, UserInfoURL, http.NoBody)
	if err != nil {
		return service.Account{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return service.Account{}, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return service.Account{}, fmt.Errorf("user info request failed with status %d", resp.StatusCode)
	}

	var a service.Account
	if err := json.NewDecoder(resp.Body).Decode(&a); err != nil {
		return service.Account{}, fmt.Errorf("decode user info: %w", err)
	}
	return a, nil
}

// Revoke invalidates accessToken at Google.
func Revoke(ctx context.Context, client *http.Client, accessToken string) error {
	form := url.Values{"token": {accessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, RevokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke token: status %d", resp.StatusCode)
	}
	return nil
}

// LoadAccount reads the stored profile.
func LoadAccount(path string) (service.Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return service.Account{}, service.ErrNotConnected
		}
		return service.Account{}, err
	}
	var a service.Account
	if err := json.Unmarshal(data, &a); err != nil {
		return service.Account{}, fmt.Errorf("invalid account.json: %w", err)
	}
	return a, nil
}

// SaveAccount writes the profile with mode 0600.
func SaveAccount(path string, a service.Account) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
