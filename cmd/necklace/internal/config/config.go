// Package config loads the daemon configuration.
//
// Settings live in ~/.necklace/config.yaml; secrets come from the
// environment, optionally seeded from ~/.necklace/.env. A missing
// config file is fine: every setting has a default, only the Gemini
// API key is mandatory.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// appDir is the directory name under the user's home.
const appDir = ".necklace"

// Config is the daemon configuration.
type Config struct {
	// Backend selects the reasoning backend: "gemini" or "openai".
	Backend string `yaml:"backend"`

	// Model is the reasoning model name.
	Model string `yaml:"model"`

	// ButtonPin is the GPIO pin of the push-to-talk button.
	ButtonPin int `yaml:"button_pin"`

	// UseButton enables the physical trigger; false switches to
	// automatic silence-triggered capture.
	UseButton bool `yaml:"use_button"`

	// InputDevice and OutputDevice are audio device indexes; -1 means
	// auto-detect.
	InputDevice  int `yaml:"input_device"`
	OutputDevice int `yaml:"output_device"`

	// AlarmDir is the alarm database directory.
	AlarmDir string `yaml:"alarm_dir"`

	// Relay configures the companion-phone voice messaging service.
	Relay RelayConfig `yaml:"relay"`

	// Secrets, environment only.
	GeminiAPIKey string `yaml:"-"`
	TTSAPIKey    string `yaml:"-"`
	OpenAIAPIKey string `yaml:"-"`
	GmailToken   string `yaml:"-"`
}

// RelayConfig points at the voice note relay.
type RelayConfig struct {
	BaseURL  string `yaml:"base_url"`
	PushURL  string `yaml:"push_url"`
	DeviceID string `yaml:"device_id"`
	Token    string `yaml:"-"`
}

// Enabled reports whether voice messaging is configured.
func (r RelayConfig) Enabled() bool {
	return r.BaseURL != "" && r.DeviceID != ""
}

// Dir returns the configuration directory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, appDir), nil
}

// Load reads the configuration from the default location.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(dir)
}

// LoadFrom reads the configuration rooted at dir.
func LoadFrom(dir string) (*Config, error) {
	// Seed the environment; absence of the file is not an error.
	godotenv.Load(filepath.Join(dir, ".env"))

	cfg := &Config{
		Backend:      "gemini",
		Model:        "gemini-2.5-flash",
		ButtonPin:    5,
		UseButton:    true,
		InputDevice:  -1,
		OutputDevice: -1,
		AlarmDir:     filepath.Join(dir, "alarms"),
	}

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config.yaml: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read config.yaml: %w", err)
	}

	cfg.GeminiAPIKey = os.Getenv("GOOGLE_API_KEY")
	cfg.TTSAPIKey = os.Getenv("GOOGLE_TTS_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.GmailToken = os.Getenv("GMAIL_TOKEN")
	cfg.Relay.Token = os.Getenv("RELAY_TOKEN")

	return cfg, nil
}

// Validate checks the settings a run cannot start without.
func (c *Config) Validate() error {
	switch c.Backend {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GOOGLE_API_KEY is not set")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is not set")
		}
	default:
		return fmt.Errorf("unknown backend %q (want gemini or openai)", c.Backend)
	}
	return nil
}
