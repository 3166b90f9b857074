// Package cliconfig loads cafectl settings. Sources, highest first:
// environment (CAFEPANEL_API_URL, CAFEPANEL_SESSION_DIR, ...), the file
// named by --config, then ~/.config/cafepanel/config.yaml.
package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

type DemoConfig struct {
	Role     string `yaml:"role"`
	TenantID int64  `yaml:"tenant_id"`
	BranchID int64  `yaml:"branch_id"`
}

type Config struct {
	APIURL string `yaml:"api_url"`

	// SessionDir holds the persisted session file. Ignored when RedisAddr
	// is set.
	SessionDir string `yaml:"session_dir"`
	RedisAddr  string `yaml:"redis_addr"`

	PageSize int `yaml:"page_size"`

	Demo DemoConfig `yaml:"demo"`
}

func DefaultConfig() *Config {
	cfg := &Config{
		APIURL:   "http://localhost:8080",
		PageSize: 20,
		Demo:     DemoConfig{Role: "admin", TenantID: 1},
	}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.SessionDir = filepath.Join(home, ".config", "cafepanel", "session")
	}
	return cfg
}

// DefaultPath is ~/.config/cafepanel/config.yaml, or "" when the home
// directory is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "cafepanel", "config.yaml")
}

// Load reads path (DefaultPath when empty). A missing file is not an
// error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultPath()
	}
	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("invalid config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if cfg.PageSize <= 0 {
		cfg.PageSize = 20
	}
	return cfg, nil
}

// Save writes cfg as YAML, creating the parent directory.
func Save(path string, cfg *Config) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CAFEPANEL_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("CAFEPANEL_SESSION_DIR"); v != "" {
		cfg.SessionDir = v
	}
	if v := os.Getenv("CAFEPANEL_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("CAFEPANEL_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PageSize = n
		}
	}
}
