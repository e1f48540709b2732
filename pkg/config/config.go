// Package config loads idlewatch settings from a YAML file, the
// environment and, in the CLI, flags, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/idlewatch/pkg/logging"
)

// Transition names usable in NotifyOn.
const (
	TransitionIdle   = "idle"
	TransitionActive = "active"
	TransitionHide   = "hide"
	TransitionShow   = "show"
)

// Page modes.
var pageModes = []string{"auto", "terminal", "tmux", "none"}

// Config holds all configuration for idlewatch
type Config struct {
	// Detector settings
	IdleCheckPeriod         time.Duration `yaml:"idle_check_period"`
	KeepTracking            bool          `yaml:"keep_tracking"`
	TrackEvents             []string      `yaml:"track_events"`
	VisibilityCheckInterval time.Duration `yaml:"visibility_check_interval"`

	// Page selects how focus is detected: auto, terminal, tmux or none.
	Page string `yaml:"page"`

	// OSActivity also counts input anywhere on the machine as activity.
	OSActivity     bool          `yaml:"os_activity"`
	OSPollInterval time.Duration `yaml:"os_poll_interval"`

	// Notification settings
	NtfyTopic  string   `yaml:"ntfy_topic"`
	NtfyServer string   `yaml:"ntfy_server"`
	NotifyOn   []string `yaml:"notify_on"`
	Quiet      bool     `yaml:"quiet"`

	// Rate limiting
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Batching
	BatchWindow time.Duration `yaml:"batch_window"`

	// StatusLine draws the idle/focus state on the terminal's last line.
	StatusLine bool `yaml:"status_line"`

	// Watch runs without a child process, printing transitions to stdout
	// instead of sending them to ntfy.
	Watch bool `yaml:"watch"`

	// Command runs instead of $SHELL when no command is given.
	Command []string `yaml:"command"`

	Log logging.Config `yaml:"log"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Window      time.Duration `yaml:"window"`
	MaxMessages int           `yaml:"max_messages"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		IdleCheckPeriod:         60 * time.Second,
		KeepTracking:            true,
		VisibilityCheckInterval: time.Second,
		Page:                    "auto",
		OSPollInterval:          5 * time.Second,
		NtfyServer:              "https://ntfy.sh",
		NotifyOn:                []string{TransitionIdle},
		RateLimit: RateLimitConfig{
			Window:      1 * time.Minute,
			MaxMessages: 5,
		},
		BatchWindow: 5 * time.Second,
	}
}

// Load loads configuration from file and environment
func Load() (*Config, error) {
	return LoadWith(nil)
}

// LoadWith loads configuration like Load, letting override adjust it (from
// command line flags, say) before it is validated.
func LoadWith(override func(*Config)) (*Config, error) {
	cfg := DefaultConfig()

	configPath := getConfigPath()
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if override != nil {
		override(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Notifies reports whether a transition should be sent as a notification.
func (c *Config) Notifies(transition string) bool {
	return slices.Contains(c.NotifyOn, transition)
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if path := os.Getenv("IDLEWATCH_CONFIG"); path != "" {
		return path
	}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "idlewatch", "config.yaml")
	}

	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "idlewatch", "config.yaml")
	}

	return ""
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(cfg *Config, path string) error {
	// #nosec G304 - The config file path comes from trusted sources (env var or standard locations)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// loadFromEnv loads configuration from environment variables
func loadFromEnv(cfg *Config) error {
	if topic := os.Getenv("IDLEWATCH_TOPIC"); topic != "" {
		cfg.NtfyTopic = topic
	}

	if server := os.Getenv("IDLEWATCH_SERVER"); server != "" {
		cfg.NtfyServer = server
	}

	if page := os.Getenv("IDLEWATCH_PAGE"); page != "" {
		cfg.Page = page
	}

	if notifyOn := os.Getenv("IDLEWATCH_NOTIFY_ON"); notifyOn != "" {
		cfg.NotifyOn = splitList(notifyOn)
	}

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"IDLEWATCH_IDLE_CHECK_PERIOD", &cfg.IdleCheckPeriod},
		{"IDLEWATCH_VISIBILITY_CHECK_INTERVAL", &cfg.VisibilityCheckInterval},
		{"IDLEWATCH_OS_POLL_INTERVAL", &cfg.OSPollInterval},
	}
	for _, d := range durations {
		value := os.Getenv(d.name)
		if value == "" {
			continue
		}
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.name, err)
		}
		*d.dst = parsed
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"IDLEWATCH_QUIET", &cfg.Quiet},
		{"IDLEWATCH_KEEP_TRACKING", &cfg.KeepTracking},
		{"IDLEWATCH_OS_ACTIVITY", &cfg.OSActivity},
		{"IDLEWATCH_STATUS_LINE", &cfg.StatusLine},
	}
	for _, b := range bools {
		value := os.Getenv(b.name)
		if value == "" {
			continue
		}
		parsed, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", b.name, value, err)
		}
		*b.dst = parsed
	}

	if debug := os.Getenv("IDLEWATCH_DEBUG"); debug != "" {
		on, err := parseBool(debug)
		if err != nil {
			return fmt.Errorf("invalid IDLEWATCH_DEBUG value %q: %w", debug, err)
		}
		if on {
			cfg.Log.Level = "debug"
		}
	}

	if logFile := os.Getenv("IDLEWATCH_LOG_FILE"); logFile != "" {
		cfg.Log.Output = logFile
	}

	return nil
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	default:
		return false, ErrInvalidBool
	}
}

// splitList splits a comma-separated list, dropping empty entries.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the configuration. Errors wrap the package sentinels.
func (c *Config) Validate() error {
	if c.IdleCheckPeriod <= 0 {
		return ErrInvalidIdleCheckPeriod
	}

	if c.VisibilityCheckInterval < 0 {
		return fmt.Errorf("visibility_check_interval %w", ErrNegativeValue)
	}

	if c.OSPollInterval < 0 {
		return fmt.Errorf("os_poll_interval %w", ErrNegativeValue)
	}

	if !slices.Contains(pageModes, c.Page) {
		return fmt.Errorf("%w %q (use %s)", ErrUnknownPage, c.Page, strings.Join(pageModes, ", "))
	}

	for _, transition := range c.NotifyOn {
		switch transition {
		case TransitionIdle, TransitionActive, TransitionHide, TransitionShow:
		default:
			return fmt.Errorf("notify_on: %w %q", ErrUnknownTransition, transition)
		}
	}

	if c.NtfyTopic == "" && !c.Quiet && !c.Watch {
		return ErrMissingTopic
	}

	if c.RateLimit.MaxMessages < 0 {
		return fmt.Errorf("rate_limit.max_messages %w", ErrNegativeValue)
	}

	if c.RateLimit.Window < 0 {
		return fmt.Errorf("rate_limit.window %w", ErrNegativeValue)
	}

	if c.BatchWindow < 0 {
		return fmt.Errorf("batch_window %w", ErrNegativeValue)
	}

	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}

	return nil
}
