// Package config loads tinynotes configuration: defaults, then an optional
// YAML file, then a .env file, then TINYNOTES_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const appName = "tinynotes"

// Keys of the settings table that override Schedule on startup.
const (
	SettingSnapMinutes        = "snap_minutes"
	SettingMinDurationMinutes = "min_duration_minutes"
	SettingDayStartHour       = "day_start_hour"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Sync     SyncConfig     `yaml:"sync"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Log      LogConfig      `yaml:"log"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, postgres
	DSN    string `yaml:"dsn"`
}

// SyncConfig sets how long the synced and error states stay visible.
type SyncConfig struct {
	SyncedLinger time.Duration `yaml:"synced_linger"`
	ErrorLinger  time.Duration `yaml:"error_linger"`
}

type ScheduleConfig struct {
	SnapMinutes            int `yaml:"snap_minutes"`
	MinDurationMinutes     int `yaml:"min_duration_minutes"`
	DefaultDurationMinutes int `yaml:"default_duration_minutes"`
	DayStartHour           int `yaml:"day_start_hour"`
}

type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`
}

// Dir returns ~/.config/tinynotes, or a relative directory when the user
// config dir is unknown.
func Dir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "." + appName
	}
	return filepath.Join(base, appName)
}

func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

func Default() *Config {
	dir := Dir()
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    filepath.Join(dir, appName+".db"),
		},
		Sync: SyncConfig{
			SyncedLinger: 3 * time.Second,
			ErrorLinger:  5 * time.Second,
		},
		Schedule: ScheduleConfig{
			SnapMinutes:            30,
			MinDurationMinutes:     30,
			DefaultDurationMinutes: 30,
			DayStartHour:           6,
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(dir, appName+".log"),
		},
	}
}

// Load builds the configuration. An empty path means DefaultPath; a missing
// file or .env is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TINYNOTES_DB_DRIVER"); v != "" {
		c.Database.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("TINYNOTES_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("TINYNOTES_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("TINYNOTES_LOG_FILE"); v != "" {
		c.Log.File = v
	}
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("config: database dsn is empty")
	}
	if c.Sync.SyncedLinger <= 0 || c.Sync.ErrorLinger <= 0 {
		return errors.New("config: sync lingers must be positive")
	}
	return c.Schedule.Validate()
}

func (s ScheduleConfig) Validate() error {
	if s.SnapMinutes <= 0 || s.SnapMinutes > 60*24 {
		return fmt.Errorf("config: snap_minutes %d out of range", s.SnapMinutes)
	}
	if s.MinDurationMinutes <= 0 || s.DefaultDurationMinutes <= 0 {
		return errors.New("config: durations must be positive")
	}
	if s.DayStartHour < 0 || s.DayStartHour > 23 {
		return fmt.Errorf("config: day_start_hour %d out of range", s.DayStartHour)
	}
	return nil
}

// WithSettings returns s overridden by the settings table. get follows
// store.GetIntSetting: it returns fallback when a key is unset or invalid.
// Out-of-range overrides are ignored.
func (s ScheduleConfig) WithSettings(get func(key string, fallback int) int) ScheduleConfig {
	next := s
	next.SnapMinutes = get(SettingSnapMinutes, s.SnapMinutes)
	next.MinDurationMinutes = get(SettingMinDurationMinutes, s.MinDurationMinutes)
	next.DayStartHour = get(SettingDayStartHour, s.DayStartHour)
	if next.Validate() != nil {
		return s
	}
	return next
}
