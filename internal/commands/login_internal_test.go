package commands

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallbackRouter(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantCode string
		wantErr  string
		status   int
	}{
		{"success", "?state=s1&code=abc", "abc", "", http.StatusOK},
		{"denied", "?state=s1&error=access_denied", "", "authorization denied: access_denied", http.StatusBadRequest},
		{"state mismatch", "?state=other&code=abc", "", "invalid state in callback", http.StatusBadRequest},
		{"no code", "?state=s1", "", "no code in callback", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codeCh := make(chan string, 1)
			errCh := make(chan error, 1)
			h := callbackRouter("s1", codeCh, errCh)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback"+tt.query, nil))

			assert.Equal(t, tt.status, rec.Code)
			if tt.wantErr != "" {
				require.Len(t, errCh, 1)
				assert.EqualError(t, <-errCh, tt.wantErr)
				assert.Empty(t, codeCh)
				return
			}
			require.Len(t, codeCh, 1)
			assert.Equal(t, tt.wantCode, <-codeCh)
		})
	}
}

func TestCallbackRouter_SecondCallbackDropped(t *testing.T) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	h := callbackRouter("s1", codeCh, errCh)

	for _, code := range []string{"first", "second"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s1&code="+code, nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, "first", <-codeCh)
	assert.Empty(t, codeCh)
}

func TestCallbackRouter_OtherPaths(t *testing.T) {
	h := callbackRouter("s1", make(chan string, 1), make(chan error, 1))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/callback?state=s1&code=x", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
