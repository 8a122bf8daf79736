package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// AgendaItem is one entry of the move-day agenda shown on the page.
type AgendaItem struct {
	Title  string `yaml:"title" json:"title"`
	Detail string `yaml:"detail" json:"detail"`
}

// EventConfig holds the copy used for the announcement and the exported event.
type EventConfig struct {
	Title        string       `yaml:"title" json:"title"`
	Description  string       `yaml:"description" json:"description"`
	Location     string       `yaml:"location" json:"location"`
	MapURL       string       `yaml:"map_url" json:"map_url"`
	ContactEmail string       `yaml:"contact_email" json:"contact_email"`
	Capacity     int          `yaml:"capacity" json:"capacity"`
	Agenda       []AgendaItem `yaml:"agenda" json:"agenda"`
}

// LoggingConfig selects log level ("debug", "info", "warn", "error") and
// format ("json" or "text").
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// CaptureConfig controls the headless-browser page preview.
type CaptureConfig struct {
	// URL of the page to capture. Empty means http://<listen>/.
	URL            string `yaml:"url" json:"url"`
	Output         string `yaml:"output" json:"output"`
	Width          int    `yaml:"width" json:"width"`
	Height         int    `yaml:"height" json:"height"`
	TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the page and API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone the move-day rule is evaluated in
	// (e.g. "Asia/Kolkata"). Empty means the host's local zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// MoveDay is the day of month of the move (1..28).
	MoveDay int `yaml:"move_day" json:"move_day"`

	// MoveTime is the local time of day, "HH:MM" or "HH:MM:SS".
	MoveTime string `yaml:"move_time" json:"move_time"`

	// DurationMinutes is the length of the exported calendar event.
	DurationMinutes int `yaml:"duration_minutes" json:"duration_minutes"`

	// RefreshCron is a cron spec (e.g. "@every 1m", "*/5 * * * *") for
	// re-resolving the target once it has passed.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// StrictEscaping turns on RFC 5545 TEXT escaping in exports.
	StrictEscaping bool `yaml:"strict_escaping" json:"strict_escaping"`

	Event   EventConfig   `yaml:"event" json:"event"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Capture CaptureConfig `yaml:"capture" json:"capture"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen      = "127.0.0.1:8080"
	defaultTimezone    = "Asia/Kolkata"
	defaultMoveDay     = 27
	defaultMoveTime    = "10:45"
	defaultDuration    = 60
	defaultRefreshCron = "@every 1m"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:          defaultListen,
		Timezone:        defaultTimezone,
		MoveDay:         defaultMoveDay,
		MoveTime:        defaultMoveTime,
		DurationMinutes: defaultDuration,
		RefreshCron:     defaultRefreshCron,
		StrictEscaping:  false,
		Event:           DefaultEvent(),
		Logging:         LoggingConfig{Level: "info", Format: "json"},
		Capture: CaptureConfig{
			Output:         "./cache/preview.png",
			Width:          1200,
			Height:         630,
			TimeoutSeconds: 30,
		},
		BasicAuth: nil,
	}
}

// DefaultEvent returns the announcement copy of the Kosmo One move.
func DefaultEvent() EventConfig {
	return EventConfig{
		Title:        "Office Move Day – Kosmo One",
		Description:  "We are moving to Kosmo One. 30-seater office. See you there!",
		Location:     "Kosmo One - 6th Floor (Opulence spaces, One Indiabulls Park Tower,Tower-B)",
		MapURL:       "https://maps.app.goo.gl/BZPCvE8MNUBkUesLA",
		ContactEmail: "hr@bauratec.com",
		Capacity:     30,
		Agenda: []AgendaItem{
			{Title: "27th Morning", Detail: "Welcome Address By Founder & floor walkthrough."},
		},
	}
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly. An explicitly empty
// timezone is kept (host local).
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.MoveDay == 0 {
		c.MoveDay = defaultMoveDay
	}
	if c.MoveTime == "" {
		c.MoveTime = defaultMoveTime
	}
	if c.DurationMinutes <= 0 {
		c.DurationMinutes = defaultDuration
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}

	def := DefaultEvent()
	if c.Event.Title == "" {
		c.Event.Title = def.Title
	}
	if c.Event.Description == "" {
		c.Event.Description = def.Description
	}
	if c.Event.Location == "" {
		c.Event.Location = def.Location
	}
	if c.Event.Capacity < 0 {
		c.Event.Capacity = 0
	}
	if c.Event.Agenda == nil {
		c.Event.Agenda = []AgendaItem{}
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	if c.Capture.Output == "" {
		c.Capture.Output = "./cache/preview.png"
	}
	if c.Capture.Width <= 0 {
		c.Capture.Width = 1200
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = 630
	}
	if c.Capture.TimeoutSeconds <= 0 {
		c.Capture.TimeoutSeconds = 30
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	if c.MoveDay < 1 || c.MoveDay > 28 {
		return fmt.Errorf("config: move_day %d outside 1..28", c.MoveDay)
	}
	if _, _, _, err := c.ClockTime(); err != nil {
		return err
	}
	if c.DurationMinutes <= 0 {
		return fmt.Errorf("config: duration_minutes must be positive, got %d", c.DurationMinutes)
	}
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		return fmt.Errorf("config: refresh %q: %w", c.RefreshCron, err)
	}
	return nil
}

// Location resolves Timezone; empty means time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// ClockTime parses MoveTime ("HH:MM" or "HH:MM:SS").
func (c *Config) ClockTime() (hour, minute, second int, err error) {
	parts := strings.Split(strings.TrimSpace(c.MoveTime), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, 0, fmt.Errorf("config: move_time %q: want HH:MM or HH:MM:SS", c.MoveTime)
	}
	vals := [3]int{}
	limits := [3]int{23, 59, 59}
	for i, p := range parts {
		n, convErr := strconv.Atoi(p)
		if convErr != nil || n < 0 || n > limits[i] {
			return 0, 0, 0, fmt.Errorf("config: move_time %q: bad field %q", c.MoveTime, p)
		}
		vals[i] = n
	}
	return vals[0], vals[1], vals[2], nil
}

// Duration returns the exported event length.
func (c *Config) Duration() time.Duration {
	return time.Duration(c.DurationMinutes) * time.Minute
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults and validate
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	// Start from defaults so keys missing from the file keep default values
	// (notably timezone, where empty is meaningful).
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".officemove-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
