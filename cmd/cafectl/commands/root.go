// Package commands implements the cafectl command tree.
package commands

import (
	"context"
	"fmt"
	"time"

	"cafepanel/internal/cliconfig"
	"cafepanel/internal/printer"
	"cafepanel/internal/session"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// app carries what every subcommand needs once the root pre-run has
// loaded the configuration and hydrated the session.
type app struct {
	cfgFile string
	apiURL  string

	cfg     *cliconfig.Config
	manager *session.Manager
	closers []func() error

	now func() time.Time
}

func Execute(version, commit, date string) error {
	root := newRootCmd(&app{now: time.Now})
	root.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
	return root.Execute()
}

func newRootCmd(a *app) *cobra.Command {
	if a.now == nil {
		a.now = time.Now
	}
	root := &cobra.Command{
		Use:   "cafectl",
		Short: "Manage café menus, tables and orders from the terminal",
		Long: `cafectl talks to the café panel API. Resource commands go through the
optimistic CRUD store, so a rejected change is rolled back and reported.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:       true,
		SilenceErrors:      true,
		FParseErrWhitelist: cobra.FParseErrWhitelist{},
	}

	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file path (default ~/.config/cafepanel/config.yaml)")
	root.PersistentFlags().StringVar(&a.apiURL, "api-url", "", "override the panel API base URL")

	root.AddCommand(newLoginCmd(a))
	root.AddCommand(newLogoutCmd(a))
	root.AddCommand(newWhoamiCmd(a))
	root.AddCommand(newDashboardCmd(a))
	root.AddCommand(newConfigCmd(a))
	for _, cmd := range resourceCommands(a) {
		root.AddCommand(cmd)
	}
	return root
}

func (a *app) setup(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := cliconfig.Load(a.cfgFile)
	if err != nil {
		return printer.Error("Invalid configuration", err.Error(), []string{"Fix the file or run: cafectl config init --force"})
	}
	if a.apiURL != "" {
		cfg.APIURL = a.apiURL
	}
	a.cfg = cfg

	storage, err := a.openStorage(ctx)
	if err != nil {
		return printer.Error("Session storage unavailable", err.Error(), nil)
	}
	a.manager = session.NewManager(storage,
		session.WithAuthenticator(session.NewHTTPAuthenticator(cfg.APIURL, nil)),
		session.WithClock(a.now),
	)
	if _, _, err := a.manager.Hydrate(ctx); err != nil {
		return printer.Error("Could not read the saved session", err.Error(), nil)
	}
	return nil
}

func (a *app) openStorage(ctx context.Context) (session.Storage, error) {
	if a.cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: a.cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("connect to redis %s: %w", a.cfg.RedisAddr, err)
		}
		a.closers = append(a.closers, rdb.Close)
		return session.NewRedisStorage(rdb, "cafectl"), nil
	}
	return session.NewFileStorage(a.cfg.SessionDir)
}

func (a *app) close() error {
	var first error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// requireSession fails with a login hint when nobody is signed in or the
// saved session has expired.
func (a *app) requireSession(ctx context.Context) (session.Session, error) {
	ok, err := a.manager.Resume(ctx)
	if err != nil {
		return session.Session{}, err
	}
	if ok {
		if s, ok := a.manager.Current(); ok {
			return s, nil
		}
	}
	return session.Session{}, printer.Error("Not signed in", "There is no active session, or it has expired.", []string{
		"Sign in: cafectl login --email you@example.com",
		"Try offline: cafectl login --demo --email demo@example.com",
	})
}
