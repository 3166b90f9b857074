package session

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cafepanel/internal/resource"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPAuthenticatorSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)
		var creds Credentials
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "mudur@kafe.test", creds.Email)
		_, _ = io.WriteString(w, `{"token":"jwt","tokenExpiresAt":1893456000000,"role":"manager","tenantId":4}`)
	}))
	t.Cleanup(srv.Close)

	auth := NewHTTPAuthenticator(srv.URL+"/", srv.Client())
	s, err := auth.Authenticate(context.Background(), Credentials{Email: " mudur@kafe.test ", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "jwt", s.Token)
	assert.Equal(t, RoleManager, s.Role)
	assert.Equal(t, int64(4), s.TenantID)
	assert.Zero(t, s.BranchID)
}

func TestHTTPAuthenticatorUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	_, err := NewHTTPAuthenticator(srv.URL, srv.Client()).Authenticate(context.Background(), Credentials{Email: "a@b.c", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestHTTPAuthenticatorServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "boom")
	}))
	t.Cleanup(srv.Close)

	_, err := NewHTTPAuthenticator(srv.URL, srv.Client()).Authenticate(context.Background(), Credentials{Email: "a@b.c", Password: "x"})
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, resource.StatusCode(err))
}

func TestHTTPAuthenticatorRequiresCredentials(t *testing.T) {
	_, err := NewHTTPAuthenticator("http://127.0.0.1:1", nil).Authenticate(context.Background(), Credentials{Email: "a@b.c"})
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestLocalAuthenticator(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	auth := LocalAuthenticator{Role: RoleStaff, TenantID: 7, Now: func() time.Time { return now }}

	s, err := auth.Authenticate(context.Background(), Credentials{Email: "demo@kafe.test"})
	require.NoError(t, err)
	assert.Len(t, s.Token, 64)
	assert.Equal(t, RoleStaff, s.Role)
	assert.Equal(t, int64(7), s.TenantID)
	assert.Equal(t, now.Add(12*time.Hour), s.ExpiresAt().UTC())

	other, err := auth.Authenticate(context.Background(), Credentials{Email: "demo@kafe.test"})
	require.NoError(t, err)
	assert.NotEqual(t, s.Token, other.Token)
}

func TestLocalAuthenticatorRejectsUnknownRole(t *testing.T) {
	_, err := LocalAuthenticator{Role: "owner"}.Authenticate(context.Background(), Credentials{Email: "x"})
	assert.Error(t, err)
}
