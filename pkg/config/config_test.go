package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

// isolate points config loading at an empty location and clears overrides.
func isolate(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"IDLEWATCH_TOPIC", "IDLEWATCH_SERVER", "IDLEWATCH_PAGE", "IDLEWATCH_NOTIFY_ON",
		"IDLEWATCH_IDLE_CHECK_PERIOD", "IDLEWATCH_VISIBILITY_CHECK_INTERVAL", "IDLEWATCH_OS_POLL_INTERVAL",
		"IDLEWATCH_QUIET", "IDLEWATCH_KEEP_TRACKING", "IDLEWATCH_OS_ACTIVITY", "IDLEWATCH_STATUS_LINE",
		"IDLEWATCH_DEBUG", "IDLEWATCH_LOG_FILE",
	} {
		t.Setenv(name, "")
	}
	t.Setenv("IDLEWATCH_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.NtfyServer != "https://ntfy.sh" {
		t.Errorf("expected NtfyServer to be https://ntfy.sh but got %s", cfg.NtfyServer)
	}
	if cfg.IdleCheckPeriod != 60*time.Second {
		t.Errorf("expected IdleCheckPeriod to be 60s but got %v", cfg.IdleCheckPeriod)
	}
	if !cfg.KeepTracking {
		t.Error("expected KeepTracking to be true by default")
	}
	if cfg.Page != "auto" {
		t.Errorf("expected Page to be auto but got %s", cfg.Page)
	}
	if !cfg.Notifies(TransitionIdle) || cfg.Notifies(TransitionActive) {
		t.Errorf("expected only idle notifications by default, got %v", cfg.NotifyOn)
	}
	if cfg.Log.Level != "" {
		t.Errorf("expected logging off by default, got level %q", cfg.Log.Level)
	}
}

func TestLoadFromEnv(t *testing.T) {
	tests := []struct {
		name      string
		envVars   map[string]string
		checkFunc func(*testing.T, *Config)
		wantErr   error
	}{
		{
			name: "valid environment variables",
			envVars: map[string]string{
				"IDLEWATCH_TOPIC":             "test-topic",
				"IDLEWATCH_SERVER":            "https://test.server",
				"IDLEWATCH_IDLE_CHECK_PERIOD": "5m",
				"IDLEWATCH_KEEP_TRACKING":     "false",
				"IDLEWATCH_PAGE":              "tmux",
				"IDLEWATCH_NOTIFY_ON":         " idle , active ,,",
				"IDLEWATCH_OS_ACTIVITY":       "yes",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.NtfyTopic != "test-topic" {
					t.Errorf("expected NtfyTopic to be test-topic but got %s", cfg.NtfyTopic)
				}
				if cfg.NtfyServer != "https://test.server" {
					t.Errorf("expected NtfyServer to be https://test.server but got %s", cfg.NtfyServer)
				}
				if cfg.IdleCheckPeriod != 5*time.Minute {
					t.Errorf("expected IdleCheckPeriod to be 5m but got %v", cfg.IdleCheckPeriod)
				}
				if cfg.KeepTracking {
					t.Error("expected KeepTracking to be false")
				}
				if cfg.Page != "tmux" {
					t.Errorf("expected Page to be tmux but got %s", cfg.Page)
				}
				if !reflect.DeepEqual(cfg.NotifyOn, []string{"idle", "active"}) {
					t.Errorf("expected NotifyOn [idle active] but got %v", cfg.NotifyOn)
				}
				if !cfg.OSActivity {
					t.Error("expected OSActivity to be true")
				}
			},
		},
		{
			name: "debug turns on logging",
			envVars: map[string]string{
				"IDLEWATCH_QUIET":    "true",
				"IDLEWATCH_DEBUG":    "1",
				"IDLEWATCH_LOG_FILE": "/tmp/idlewatch.log",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.Log.Level != "debug" {
					t.Errorf("expected log level debug but got %q", cfg.Log.Level)
				}
				if cfg.Log.Output != "/tmp/idlewatch.log" {
					t.Errorf("expected log output to be the file but got %q", cfg.Log.Output)
				}
			},
		},
		{
			name: "invalid period",
			envVars: map[string]string{
				"IDLEWATCH_IDLE_CHECK_PERIOD": "invalid",
			},
			wantErr: errAny,
		},
		{
			name: "invalid quiet value",
			envVars: map[string]string{
				"IDLEWATCH_QUIET": "maybe",
			},
			wantErr: ErrInvalidBool,
		},
		{
			name: "missing topic",
			envVars: map[string]string{
				"IDLEWATCH_QUIET": "no",
			},
			wantErr: ErrMissingTopic,
		},
		{
			name: "unknown page",
			envVars: map[string]string{
				"IDLEWATCH_QUIET": "true",
				"IDLEWATCH_PAGE":  "browser",
			},
			wantErr: ErrUnknownPage,
		},
		{
			name: "unknown transition",
			envVars: map[string]string{
				"IDLEWATCH_QUIET":     "true",
				"IDLEWATCH_NOTIFY_ON": "idle,sleep",
			},
			wantErr: ErrUnknownTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := Load()

			if tt.wantErr != nil {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				if tt.wantErr != errAny && !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v but got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.checkFunc != nil {
				tt.checkFunc(t, cfg)
			}
		})
	}
}

// errAny matches any error.
var errAny = errors.New("any error")

func TestLoadFromFile(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		checkFunc func(*testing.T, *Config)
		wantErr   bool
	}{
		{
			name: "valid config file",
			content: `
ntfy_topic: "file-topic"
idle_check_period: 10s
keep_tracking: false
track_events: [keydown, scroll]
visibility_check_interval: 500ms
page: none
status_line: true
command: ["htop", "-d", "10"]
rate_limit:
  window: 30s
  max_messages: 2
log:
  level: info
  format: json
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.NtfyTopic != "file-topic" {
					t.Errorf("expected NtfyTopic to be file-topic but got %s", cfg.NtfyTopic)
				}
				if cfg.IdleCheckPeriod != 10*time.Second {
					t.Errorf("expected IdleCheckPeriod to be 10s but got %v", cfg.IdleCheckPeriod)
				}
				if cfg.KeepTracking {
					t.Error("expected KeepTracking to be false")
				}
				if !reflect.DeepEqual(cfg.TrackEvents, []string{"keydown", "scroll"}) {
					t.Errorf("unexpected TrackEvents %v", cfg.TrackEvents)
				}
				if cfg.VisibilityCheckInterval != 500*time.Millisecond {
					t.Errorf("expected VisibilityCheckInterval to be 500ms but got %v", cfg.VisibilityCheckInterval)
				}
				if cfg.Page != "none" || !cfg.StatusLine {
					t.Errorf("unexpected page %q / status line %v", cfg.Page, cfg.StatusLine)
				}
				if !reflect.DeepEqual(cfg.Command, []string{"htop", "-d", "10"}) {
					t.Errorf("unexpected Command %v", cfg.Command)
				}
				if cfg.RateLimit.Window != 30*time.Second || cfg.RateLimit.MaxMessages != 2 {
					t.Errorf("unexpected RateLimit %+v", cfg.RateLimit)
				}
				if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
					t.Errorf("unexpected Log %+v", cfg.Log)
				}
				// Untouched keys keep their defaults.
				if cfg.NtfyServer != "https://ntfy.sh" {
					t.Errorf("expected default NtfyServer but got %s", cfg.NtfyServer)
				}
			},
		},
		{
			name:    "invalid yaml",
			content: "invalid: yaml: content:\n  bad indentation",
			wantErr: true,
		},
		{
			name:    "invalid log level",
			content: "quiet: true\nlog:\n  level: chatty\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)

			configPath := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.content), 0600); err != nil {
				t.Fatalf("failed to write config file: %v", err)
			}
			t.Setenv("IDLEWATCH_CONFIG", configPath)

			cfg, err := Load()

			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.checkFunc != nil {
				tt.checkFunc(t, cfg)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func(mutate func(*Config)) *Config {
		cfg := DefaultConfig()
		cfg.NtfyTopic = "test-topic"
		if mutate != nil {
			mutate(cfg)
		}
		return cfg
	}

	tests := []struct {
		name    string
		cfg     *Config
		wantErr error
	}{
		{name: "valid config", cfg: valid(nil)},
		{name: "missing topic when not quiet", cfg: valid(func(c *Config) { c.NtfyTopic = "" }), wantErr: ErrMissingTopic},
		{name: "missing topic allowed when quiet", cfg: valid(func(c *Config) { c.NtfyTopic = ""; c.Quiet = true })},
		{name: "missing topic allowed in watch mode", cfg: valid(func(c *Config) { c.NtfyTopic = ""; c.Watch = true })},
		{name: "zero period", cfg: valid(func(c *Config) { c.IdleCheckPeriod = 0 }), wantErr: ErrInvalidIdleCheckPeriod},
		{name: "negative visibility interval", cfg: valid(func(c *Config) { c.VisibilityCheckInterval = -time.Second }), wantErr: ErrNegativeValue},
		{name: "negative batch window", cfg: valid(func(c *Config) { c.BatchWindow = -time.Second }), wantErr: ErrNegativeValue},
		{name: "negative max messages", cfg: valid(func(c *Config) { c.RateLimit.MaxMessages = -1 }), wantErr: ErrNegativeValue},
		{name: "every transition", cfg: valid(func(c *Config) { c.NotifyOn = []string{"idle", "active", "hide", "show"} })},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()

			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v but got %v", tt.wantErr, err)
			}
		})
	}
}

func TestGetConfigPath(t *testing.T) {
	tests := []struct {
		name        string
		envVars     map[string]string
		wantContain string
	}{
		{
			name: "explicit config path",
			envVars: map[string]string{
				"IDLEWATCH_CONFIG": "/custom/path/config.yaml",
			},
			wantContain: "/custom/path/config.yaml",
		},
		{
			name: "XDG config path",
			envVars: map[string]string{
				"XDG_CONFIG_HOME": "/xdg/config",
			},
			wantContain: "/xdg/config/idlewatch/config.yaml",
		},
		{
			name: "home directory fallback",
			envVars: map[string]string{
				"HOME": "/home/someone",
			},
			wantContain: ".config/idlewatch/config.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("IDLEWATCH_CONFIG", "")
			t.Setenv("XDG_CONFIG_HOME", "")
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			path := getConfigPath()
			if !strings.Contains(path, tt.wantContain) {
				t.Errorf("expected path to contain %q but got %q", tt.wantContain, path)
			}
		})
	}
}

func TestLoadWith(t *testing.T) {
	isolate(t)

	if _, err := Load(); !errors.Is(err, ErrMissingTopic) {
		t.Fatalf("Load() without topic error = %v, want %v", err, ErrMissingTopic)
	}

	cfg, err := LoadWith(func(c *Config) {
		c.Watch = true
		c.IdleCheckPeriod = 5 * time.Second
	})
	if err != nil {
		t.Fatalf("LoadWith() error = %v", err)
	}
	if !cfg.Watch || cfg.IdleCheckPeriod != 5*time.Second {
		t.Errorf("override not applied: %+v", cfg)
	}

	if _, err := LoadWith(func(c *Config) { c.Watch, c.IdleCheckPeriod = true, 0 }); !errors.Is(err, ErrInvalidIdleCheckPeriod) {
		t.Errorf("overrides should be validated, got %v", err)
	}
}
