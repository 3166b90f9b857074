package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"cafepanel/internal/printer"
	"cafepanel/internal/resource"
	"cafepanel/internal/session"

	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	var (
		email    string
		password string
		demo     bool
		role     string
		tenantID int64
		branchID int64
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and save the session on this device",
		Long: `Sign in against the panel API. With --demo no server is contacted: a
local session is created with the configured (or flagged) role and tenant.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if password == "" {
				password = os.Getenv("CAFEPANEL_PASSWORD")
			}
			creds := session.Credentials{Email: email, Password: password}

			var (
				s   session.Session
				err error
			)
			if demo {
				s, err = a.demoLogin(ctx, cmd, creds, role, tenantID, branchID)
			} else {
				printer.Step("Signing in to %s", a.cfg.APIURL)
				s, err = a.manager.Login(ctx, creds)
			}
			if err != nil {
				return loginError(err)
			}
			printer.Success("Signed in as %s (%s)", strings.TrimSpace(email), s.Role)
			printer.Info("Session valid until %s", s.ExpiresAt().Local().Format(time.RFC1123))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (or CAFEPANEL_PASSWORD)")
	cmd.Flags().BoolVar(&demo, "demo", false, "create an offline demo session")
	cmd.Flags().StringVar(&role, "role", "", "demo role: admin, manager or staff")
	cmd.Flags().Int64Var(&tenantID, "tenant", 0, "demo tenant id")
	cmd.Flags().Int64Var(&branchID, "branch", 0, "demo branch id")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) demoLogin(ctx context.Context, cmd *cobra.Command, creds session.Credentials, role string, tenantID, branchID int64) (session.Session, error) {
	auth := session.LocalAuthenticator{
		Role:     session.Role(a.cfg.Demo.Role),
		TenantID: a.cfg.Demo.TenantID,
		BranchID: a.cfg.Demo.BranchID,
		Now:      a.now,
	}
	if role != "" {
		auth.Role = session.Role(role)
	}
	if cmd.Flags().Changed("tenant") {
		auth.TenantID = tenantID
	}
	if cmd.Flags().Changed("branch") {
		auth.BranchID = branchID
	}
	s, err := auth.Authenticate(ctx, creds)
	if err != nil {
		return session.Session{}, err
	}
	if err := a.manager.Start(ctx, s); err != nil {
		return session.Session{}, err
	}
	printer.Warning("Demo session: nothing was checked against the server")
	return s, nil
}

func loginError(err error) error {
	switch {
	case errors.Is(err, session.ErrInvalidCredentials):
		return printer.Error("Sign-in failed", "The email or password is not correct.", nil)
	case errors.Is(err, session.ErrMissingCredentials):
		return printer.Error("Missing credentials", "Both --email and a password are required.", []string{
			"Pass --password or set CAFEPANEL_PASSWORD",
		})
	case resource.StatusCode(err) == http.StatusTooManyRequests:
		return printer.Error("Too many attempts", "The server is rate limiting sign-ins. Wait a minute and retry.", nil)
	case resource.StatusCode(err) == 0 && !errors.Is(err, session.ErrExpired):
		return printer.Error("Sign-in failed", err.Error(), []string{
			"Check that the API is reachable (--api-url or CAFEPANEL_API_URL)",
		})
	default:
		return printer.Error("Sign-in failed", err.Error(), nil)
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the token and forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, ok := a.manager.Current(); ok {
				if err := a.revoke(ctx); err != nil {
					printer.Warning("Server did not revoke the token: %v", err)
				}
			}
			if err := a.manager.Logout(ctx); err != nil {
				return printer.Error("Could not clear the saved session", err.Error(), nil)
			}
			printer.Success("Signed out")
			return nil
		},
	}
}

// revoke asks the server to deny the current token. Demo tokens are not
// JWTs and the server answers 401, which is reported and ignored.
func (a *app) revoke(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(a.cfg.APIURL, "/")+"/auth/logout", nil)
	if err != nil {
		return err
	}
	a.manager.RequestEditor()(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("POST /auth/logout: %s", resp.Status)
	}
	return nil
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.requireSession(cmd.Context())
			if err != nil {
				return err
			}
			pairs := map[string]string{
				"role":    string(s.Role),
				"expires": s.ExpiresAt().Local().Format(time.RFC1123),
				"api":     a.cfg.APIURL,
			}
			if s.TenantID > 0 {
				pairs["tenant"] = strconv.FormatInt(s.TenantID, 10)
			}
			if s.BranchID > 0 {
				pairs["branch"] = strconv.FormatInt(s.BranchID, 10)
			}
			printer.KeyValues(pairs)
			return nil
		},
	}
}
