package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Telegram contains bot API connection settings.
type Telegram struct {
	Token          string  `toml:"token"`
	BotUsername    string  `toml:"bot_username"`
	PollTimeout    int     `toml:"poll_timeout"`
	RequestTimeout int     `toml:"request_timeout"`
	Workers        int     `toml:"workers"`
	SendRate       float64 `toml:"send_rate"`
}

// Admin lists the Telegram user IDs allowed to run the admin workflow.
type Admin struct {
	IDs []int64 `toml:"ids"`
}

// Channel is a membership group the access gate checks.
type Channel struct {
	ID   int64  `toml:"id"`
	Link string `toml:"link"`
}

// Access contains configuration for the entitlement gate.
type Access struct {
	Enabled        bool      `toml:"enabled"`
	TimeoutSeconds int       `toml:"timeout_seconds"`
	Channels       []Channel `toml:"channels"`
}

// Announce contains configuration for the public announcement channel.
type Announce struct {
	ChannelID int64 `toml:"channel_id"`
}

// Storage contains configuration for the catalog document backend.
type Storage struct {
	Driver     string `toml:"driver"`
	Dir        string `toml:"dir"`
	Document   string `toml:"document"`
	SQLitePath string `toml:"sqlite_path"`
}

// Tokens contains configuration for the one-time token registry.
type Tokens struct {
	MaxUsers int `toml:"max_users"`
}

// API contains configuration for the HTTP health/metrics surface.
type API struct {
	Bind string `toml:"bind"`
	// Token, when set, is required as a bearer token on /api routes.
	Token string `toml:"token"`
}

// Backup contains configuration for scheduled catalog snapshots.
type Backup struct {
	Enabled  bool   `toml:"enabled"`
	Dir      string `toml:"dir"`
	Schedule string `toml:"schedule"`
	Keep     int    `toml:"keep"`
}

// Notifications contains configuration for ntfy operator alerts.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	Dir           string `toml:"dir"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for kinobot.
//
// Configuration sections by subsystem:
//   - Telegram: bot token, username for deep links, polling and send limits
//   - Admin: static allow-list of administrator user IDs
//   - Access: membership channels checked before content is delivered
//   - Announce: public channel that mirrors published entries
//   - Storage: catalog document backend (file or sqlite)
//   - Tokens: bounds for the in-memory one-time token registry
//   - API: health and metrics HTTP bind address
//   - Backup: scheduled catalog snapshots
//   - Notifications: ntfy operator alerts
//   - Logging: log format, level, directory, and retention
type Config struct {
	Telegram      Telegram      `toml:"telegram"`
	Admin         Admin         `toml:"admin"`
	Access        Access        `toml:"access"`
	Announce      Announce      `toml:"announce"`
	Storage       Storage       `toml:"storage"`
	Tokens        Tokens        `toml:"tokens"`
	API           API           `toml:"api"`
	Backup        Backup        `toml:"backup"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("kinobot.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Storage.Dir, c.Logging.Dir}
	if c.Backup.Enabled {
		dirs = append(dirs, c.Backup.Dir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// IsAdmin reports whether userID is on the admin allow-list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admin.IDs {
		if id == userID {
			return true
		}
	}
	return false
}

// LockPath is the flock file guarding single-instance access to the data directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Storage.Dir, "kinobot.lock")
}

// AccessTimeout returns the per-check entitlement timeout.
func (c *Config) AccessTimeout() time.Duration {
	return time.Duration(c.Access.TimeoutSeconds) * time.Second
}

// RequestTimeout returns the timeout applied to outbound Telegram calls.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Telegram.RequestTimeout) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
