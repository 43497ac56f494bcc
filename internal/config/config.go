// Package config handles loading partnerdesk configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
)

// Environment prefixes for per-section overrides, e.g.
// PARTNERDESK_BACKEND_URL or PARTNERDESK_SERVER_API_PORT.
const (
	EnvHome          = "PARTNERDESK_HOME"
	EnvBackendPrefix = "PARTNERDESK_BACKEND"
	EnvConsolePrefix = "PARTNERDESK_CONSOLE"
	EnvServerPrefix  = "PARTNERDESK_SERVER"
)

// BackendConfig points the console at the registry REST API.
type BackendConfig struct {
	URL           string        `toml:"url"`
	AllowInsecure bool          `toml:"allow_insecure" split_words:"true"` // permit http://
	Timeout       time.Duration `toml:"timeout"`                           // per request
	RetryMax      int           `toml:"retry_max" split_words:"true"`      // retries for reads
}

// ConsoleConfig holds console behaviour.
type ConsoleConfig struct {
	UploadRoles []string `toml:"upload_roles" split_words:"true"` // roles shown upload controls
	DownloadDir string   `toml:"download_dir" split_words:"true"`
}

// ServerConfig holds the development backend's settings.
type ServerConfig struct {
	APIPort     int           `toml:"api_port" split_words:"true"`
	BindAddr    string        `toml:"bind_addr" split_words:"true"`
	Database    string        `toml:"database"`
	CORSOrigins []string      `toml:"cors_origins" split_words:"true"`
	RateLimit   float64       `toml:"rate_limit" split_words:"true"` // requests/sec per client IP
	SessionTTL  time.Duration `toml:"session_ttl" split_words:"true"`
	SeedSample  bool          `toml:"seed_sample" split_words:"true"` // load sample partners into an empty database

	// PurgeSchedule is a 5-field cron expression for deleting expired
	// sessions. Empty disables the job.
	PurgeSchedule string `toml:"purge_schedule" split_words:"true"`
}

// Config represents the partnerdesk configuration.
type Config struct {
	Backend BackendConfig `toml:"backend"`
	Console ConsoleConfig `toml:"console"`
	Server  ServerConfig  `toml:"server"`

	// Computed paths (not from config file)
	HomeDir    string `toml:"-"`
	ConfigPath string `toml:"-"`
}

// DefaultHome returns the default partnerdesk home directory.
// Respects the PARTNERDESK_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv(EnvHome); h != "" {
		return expandPath(h)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".partnerdesk"
	}
	return filepath.Join(home, ".partnerdesk")
}

// NewDefaultConfig returns a configuration with default values rooted at
// homeDir.
func NewDefaultConfig(homeDir string) *Config {
	return &Config{
		HomeDir:    homeDir,
		ConfigPath: filepath.Join(homeDir, "config.toml"),
		Backend: BackendConfig{
			Timeout:  30 * time.Second,
			RetryMax: 3,
		},
		Console: ConsoleConfig{
			UploadRoles: []string{"Admin"},
			DownloadDir: filepath.Join(homeDir, "downloads"),
		},
		Server: ServerConfig{
			APIPort:       8090,
			BindAddr:      "127.0.0.1",
			RateLimit:     20,
			SessionTTL:    12 * time.Hour,
			SeedSample:    true,
			PurgeSchedule: "*/15 * * * *",
		},
	}
}

// Load reads the configuration. An explicit path must exist; otherwise
// config.toml in homeDir (or DefaultHome) is read when present. With an
// explicit path and no homeDir, the file's directory becomes the home.
// Environment overrides are applied last.
func Load(path, homeDir string) (*Config, error) {
	explicit := path != ""
	if homeDir != "" {
		homeDir = expandPath(homeDir)
	}

	if explicit {
		path = expandPath(path)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config file not found: %s", path)
			}
			return nil, fmt.Errorf("stat config: %w", err)
		}
		if homeDir == "" {
			abs, err := filepath.Abs(filepath.Dir(path))
			if err != nil {
				return nil, fmt.Errorf("resolve config dir: %w", err)
			}
			homeDir = abs
		}
	}
	if homeDir == "" {
		homeDir = DefaultHome()
	}
	if !explicit {
		path = filepath.Join(homeDir, "config.toml")
	}

	cfg := NewDefaultConfig(homeDir)
	cfg.ConfigPath = path

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, decodeError(path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	cfg.Console.DownloadDir = resolvePath(cfg.Console.DownloadDir, homeDir)
	if cfg.Server.Database != "" {
		cfg.Server.Database = resolvePath(cfg.Server.Database, homeDir)
	}
	if cfg.Backend.Timeout <= 0 {
		cfg.Backend.Timeout = 30 * time.Second
	}

	return cfg, nil
}

// applyEnv overlays PARTNERDESK_<SECTION>_<FIELD> variables. Unset
// variables leave the file or default value in place.
func applyEnv(cfg *Config) error {
	if err := envconfig.Process(EnvBackendPrefix, &cfg.Backend); err != nil {
		return fmt.Errorf("backend environment: %w", err)
	}
	if err := envconfig.Process(EnvConsolePrefix, &cfg.Console); err != nil {
		return fmt.Errorf("console environment: %w", err)
	}
	if err := envconfig.Process(EnvServerPrefix, &cfg.Server); err != nil {
		return fmt.Errorf("server environment: %w", err)
	}
	return nil
}

// decodeError adds a hint for Windows paths written with backslashes in
// double-quoted TOML strings.
func decodeError(path string, err error) error {
	msg := err.Error()
	if strings.Contains(msg, "invalid escape") || strings.Contains(msg, "hexadecimal digits") {
		return fmt.Errorf("decode config %s: %w\n\nhint: use forward slashes (C:/Users/me/partnerdesk) "+
			"or single quotes ('C:\\Users\\me\\partnerdesk') for Windows paths", path, err)
	}
	return fmt.Errorf("decode config %s: %w", path, err)
}

// DatabasePath returns the development backend's SQLite database path.
func (c *Config) DatabasePath() string {
	if c.Server.Database != "" {
		return c.Server.Database
	}
	return filepath.Join(c.HomeDir, "devserver.db")
}

// SessionDir returns the directory holding the session file.
func (c *Config) SessionDir() string {
	return c.HomeDir
}

// ListenAddr returns the development backend's listen address.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddr, c.Server.APIPort)
}

// resolvePath expands ~ and makes relative paths relative to base.
func resolvePath(path, base string) string {
	path = expandPath(path)
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	if len(path) > 1 && path[1] != '/' && path[1] != filepath.Separator {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
