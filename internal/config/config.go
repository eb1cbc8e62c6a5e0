// Package config loads plexpresence settings from TOML files and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	appName        = "plexpresence"
	configFileName = "config.toml"
	logFileName    = "plexpresence.log"

	DefaultPollingIntervalMs = 5000
	DefaultUpdateIntervalMs  = 5000
	DefaultClientID          = "807024921858277376"
	DefaultLogLevel          = "info"
	DefaultLogMaxSizeMB      = 10
	DefaultLogMaxBackups     = 3
)

// ErrNoConfig is returned by Load when no config file exists.
var ErrNoConfig = errors.New("no config file found")

// Config is the complete plexpresence configuration.
type Config struct {
	Plex    PlexConfig    `koanf:"plex"`
	Discord DiscordConfig `koanf:"discord"`
	Log     LogConfig     `koanf:"log"`

	// Secondary mirrors of the Discord status, all off by default
	Notify NotifyConfig `koanf:"notify"`
	Mpris  MprisConfig  `koanf:"mpris"`
	Lastfm LastfmConfig `koanf:"lastfm"`
}

// PlexConfig identifies the account and the server to watch.
type PlexConfig struct {
	Username          string `koanf:"username"`
	Password          string `koanf:"password"`
	Token             string `koanf:"token"` // skips sign-in when set
	ServerName        string `koanf:"server_name"`
	PollingIntervalMs int    `koanf:"polling_interval_ms"`
}

// DiscordConfig holds the presence application identity.
type DiscordConfig struct {
	ClientID         string `koanf:"client_id"`
	UpdateIntervalMs int    `koanf:"update_interval_ms"`
}

// LogConfig controls log level and the rotating log file.
type LogConfig struct {
	Level      string `koanf:"level"` // "debug", "info", "warn", "error"
	File       string `koanf:"file"`  // empty means the xdg state dir
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
}

// NotifyConfig enables desktop notifications on track start.
type NotifyConfig struct {
	Enabled bool `koanf:"enabled"`
}

// MprisConfig enables the read-only MPRIS mirror.
type MprisConfig struct {
	Enabled bool `koanf:"enabled"`
}

// LastfmConfig enables Last.fm "now playing" updates.
type LastfmConfig struct {
	APIKey     string `koanf:"api_key"`
	APISecret  string `koanf:"api_secret"`
	SessionKey string `koanf:"session_key"`
}

// Default returns the configuration written to a fresh template.
func Default() *Config {
	return &Config{
		Plex: PlexConfig{
			PollingIntervalMs: DefaultPollingIntervalMs,
		},
		Discord: DiscordConfig{
			ClientID:         DefaultClientID,
			UpdateIntervalMs: DefaultUpdateIntervalMs,
		},
		Log: LogConfig{
			Level:      DefaultLogLevel,
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
		},
	}
}

// Load reads every config file that exists, later ones overriding earlier
// ones, then applies environment overrides. explicitPath, if not empty,
// must exist. Returns ErrNoConfig when no file was found.
func Load(explicitPath string) (*Config, error) {
	k := koanf.New(".")

	found := false
	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
			found = true
		}
	}

	if explicitPath != "" {
		path := expandPath(explicitPath)
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		found = true
	}

	if !found {
		return nil, ErrNoConfig
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	applyEnv(cfg)

	if cfg.Log.File != "" {
		cfg.Log.File = expandPath(cfg.Log.File)
	}

	return cfg, nil
}

// LoadEnv reads a .env file from the working directory, if any.
func LoadEnv() {
	_ = godotenv.Load() // absent .env is fine, values come from the environment
}

// applyEnv lets secrets come from the environment instead of the file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("PLEX_PASSWORD"); v != "" {
		cfg.Plex.Password = v
	}
	if v := os.Getenv("PLEX_TOKEN"); v != "" {
		cfg.Plex.Token = v
	}
}

// Path returns the user config file location.
func Path() string {
	return filepath.Join(xdg.ConfigHome, appName, configFileName)
}

func getConfigPaths() []string {
	return []string{
		// 1. $XDG_CONFIG_HOME/plexpresence/config.toml
		Path(),
		// 2. ./config.toml (pwd, highest priority)
		configFileName,
	}
}

// WriteTemplate writes the default configuration to Path and returns it.
func WriteTemplate() (string, error) {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}

	data, err := toml.Parser().Marshal(templateMap(Default()))
	if err != nil {
		return "", fmt.Errorf("marshal template: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write template: %w", err)
	}
	return path, nil
}

func templateMap(c *Config) map[string]any {
	return map[string]any{
		"plex": map[string]any{
			"username":            c.Plex.Username,
			"password":            c.Plex.Password,
			"token":               c.Plex.Token,
			"server_name":         c.Plex.ServerName,
			"polling_interval_ms": c.Plex.PollingIntervalMs,
		},
		"discord": map[string]any{
			"client_id":          c.Discord.ClientID,
			"update_interval_ms": c.Discord.UpdateIntervalMs,
		},
		"log": map[string]any{
			"level":       c.Log.Level,
			"file":        c.Log.File,
			"max_size_mb": c.Log.MaxSizeMB,
			"max_backups": c.Log.MaxBackups,
		},
		"notify": map[string]any{
			"enabled": c.Notify.Enabled,
		},
		"mpris": map[string]any{
			"enabled": c.Mpris.Enabled,
		},
		"lastfm": map[string]any{
			"api_key":     c.Lastfm.APIKey,
			"api_secret":  c.Lastfm.APISecret,
			"session_key": c.Lastfm.SessionKey,
		},
	}
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// Validate reports every setting that prevents the daemon from starting.
func (c *Config) Validate() error {
	var errs []error
	if c.Plex.Token == "" && (c.Plex.Username == "" || c.Plex.Password == "") {
		errs = append(errs, errors.New("plex: username and password, or token, are required"))
	}
	if strings.TrimSpace(c.Plex.ServerName) == "" {
		errs = append(errs, errors.New("plex: server_name is required"))
	}
	if c.Plex.PollingIntervalMs <= 0 {
		errs = append(errs, errors.New("plex: polling_interval_ms must be positive"))
	}
	if c.Discord.ClientID == "" {
		errs = append(errs, errors.New("discord: client_id is required"))
	}
	if c.Discord.UpdateIntervalMs <= 0 {
		errs = append(errs, errors.New("discord: update_interval_ms must be positive"))
	}
	return errors.Join(errs...)
}

// PollingInterval is the delay between two session polls.
func (c *Config) PollingInterval() time.Duration {
	return time.Duration(c.Plex.PollingIntervalMs) * time.Millisecond
}

// PublishInterval bounds the publisher's wait for an event.
func (c *Config) PublishInterval() time.Duration {
	return time.Duration(c.Discord.UpdateIntervalMs) * time.Millisecond
}

// LogFile returns the log file path, defaulting to the xdg state dir.
func (c *Config) LogFile() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	return xdg.StateFile(filepath.Join(appName, logFileName))
}

// HasLastfmConfig returns true if Last.fm now playing is configured.
func (c *Config) HasLastfmConfig() bool {
	return c.Lastfm.APIKey != "" && c.Lastfm.APISecret != "" && c.Lastfm.SessionKey != ""
}
