package config

import (
	"os"
	"path/filepath"
	"time"
)

// VersionCode is the integer build number sent with every API request and
// stamped into the synchronized data file.
const VersionCode = 300

// Config holds immutable runtime settings, resolved once at startup.
// Mutable user state (email, game directory) lives in internal/settings.
type Config struct {
	Endpoint            string        // base URL of the remote service
	DataDir             string        // settings, backups and logs live here
	StatusCheckInterval time.Duration // sleep between sync cycles
	BackupPeriod        time.Duration // minimum gap between backups per account
	BackupExpiry        time.Duration // backups older than this are deleted
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.Endpoint = "https://app-server.addonsync.io/v2"
	c.DataDir = defaultDataDir()
	c.StatusCheckInterval = 10 * time.Minute
	c.BackupPeriod = time.Hour
	c.BackupExpiry = 30 * 24 * time.Hour
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present). Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

// LogPath is the application log file inside the data directory.
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "addonsync.log")
}

// BackupDir is where backup archives are kept.
func (c *Config) BackupDir() string {
	return filepath.Join(c.DataDir, "Backups")
}

// SettingsPath is the persisted mutable-settings file.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.DataDir, "settings.json")
}

func defaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "AddonSync")
}
