package session

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cafepanel/internal/resource"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	ErrInvalidCredentials = errors.New("session: invalid credentials")
	ErrMissingCredentials = errors.New("session: email and password are required")
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Authenticator interface {
	Authenticate(ctx context.Context, creds Credentials) (Session, error)
}

// HTTPAuthenticator exchanges credentials at POST {baseURL}/auth/login.
type HTTPAuthenticator struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPAuthenticator(baseURL string, client *http.Client) *HTTPAuthenticator {
	if client == nil {
		client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport), Timeout: 15 * time.Second}
	}
	return &HTTPAuthenticator{baseURL: strings.TrimRight(baseURL, "/"), httpClient: client}
}

func (a *HTTPAuthenticator) Authenticate(ctx context.Context, creds Credentials) (Session, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		return Session{}, ErrMissingCredentials
	}
	body, err := json.Marshal(creds)
	if err != nil {
		return Session{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return Session{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return Session{}, fmt.Errorf("POST /auth/login: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return Session{}, ErrInvalidCredentials
	}
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return Session{}, &resource.StatusError{
			Method:     http.MethodPost,
			Path:       "/auth/login",
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	var s Session
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return Session{}, fmt.Errorf("POST /auth/login: decode response: %w", err)
	}
	if s.Token == "" {
		return Session{}, fmt.Errorf("POST /auth/login: response carried no token")
	}
	return s, nil
}

// LocalAuthenticator signs anyone in without a server: the token is random
// and the expiry is decided on the device. It backs the offline demo mode.
type LocalAuthenticator struct {
	Role     Role
	TenantID int64
	BranchID int64
	TTL      time.Duration
	Now      func() time.Time
}

func (a LocalAuthenticator) Authenticate(ctx context.Context, creds Credentials) (Session, error) {
	if strings.TrimSpace(creds.Email) == "" {
		return Session{}, ErrMissingCredentials
	}
	role := a.Role
	if role == "" {
		role = RoleAdmin
	}
	if !role.Valid() {
		return Session{}, fmt.Errorf("session: unknown role %q", role)
	}
	ttl := a.TTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	token, err := randomToken(32)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:          token,
		TokenExpiresAt: now().Add(ttl).UnixMilli(),
		Role:           role,
		TenantID:       a.TenantID,
		BranchID:       a.BranchID,
	}, nil
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
