package commands

import (
	"os"
	"strconv"

	"cafepanel/internal/cliconfig"
	"cafepanel/internal/printer"

	"github.com/spf13/cobra"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the cafectl configuration",
		// Overrides the root pre-run: a broken file must not stop `config init`.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newConfigInitCmd(a), newConfigShowCmd(a))
	return cmd
}

func newConfigInitCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfgFile
			if path == "" {
				path = cliconfig.DefaultPath()
			}
			if path == "" {
				return printer.Error("No config path", "The home directory is unknown.", []string{"Pass --config <path>"})
			}
			if _, err := os.Stat(path); err == nil && !force {
				return printer.Error("Config already exists", path, []string{"Re-run with --force to overwrite it"})
			}
			cfg := cliconfig.DefaultConfig()
			if a.apiURL != "" {
				cfg.APIURL = a.apiURL
			}
			if err := cliconfig.Save(path, cfg); err != nil {
				return printer.Error("Could not write config", err.Error(), nil)
			}
			printer.Success("Wrote %s", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cliconfig.Load(a.cfgFile)
			if err != nil {
				return printer.Error("Invalid configuration", err.Error(), nil)
			}
			if a.apiURL != "" {
				cfg.APIURL = a.apiURL
			}
			pairs := map[string]string{
				"api_url":     cfg.APIURL,
				"page_size":   strconv.Itoa(cfg.PageSize),
				"demo.role":   cfg.Demo.Role,
				"demo.tenant": strconv.FormatInt(cfg.Demo.TenantID, 10),
			}
			if cfg.RedisAddr != "" {
				pairs["session"] = "redis " + cfg.RedisAddr
			} else {
				pairs["session"] = cfg.SessionDir
			}
			printer.KeyValues(pairs)
			return nil
		},
	}
}
