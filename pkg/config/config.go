package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Provider identifiers accepted in ExtractConfig.Provider.
const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
	ProviderAnthropic  = "anthropic"
)

type Config struct {
	Session SessionConfig `json:"session"`
	Extract ExtractConfig `json:"extract"`
	Media   MediaConfig   `json:"media"`
	Ledger  LedgerConfig  `json:"ledger"`
	Log     LogConfig     `json:"log"`
}

type SessionConfig struct {
	BridgeURL            string `env:"FINZAP_SESSION_BRIDGE_URL"             json:"bridge_url"`
	AuthDir              string `env:"FINZAP_SESSION_AUTH_DIR"               json:"auth_dir"`
	ConnectTimeoutSecs   int    `env:"FINZAP_SESSION_CONNECT_TIMEOUT_SECS"   json:"connect_timeout_secs"`
	MaxReconnectAttempts int    `env:"FINZAP_SESSION_MAX_RECONNECT_ATTEMPTS" json:"max_reconnect_attempts"`
	ReconnectDelayMs     int    `env:"FINZAP_SESSION_RECONNECT_DELAY_MS"     json:"reconnect_delay_ms"`
}

type ExtractConfig struct {
	Provider    string         `env:"FINZAP_EXTRACT_PROVIDER"     json:"provider"`
	TimeoutSecs int            `env:"FINZAP_EXTRACT_TIMEOUT_SECS" json:"timeout_secs"`
	OpenAI      ProviderConfig `envPrefix:"FINZAP_EXTRACT_OPENAI_"     json:"openai"`
	OpenRouter  ProviderConfig `envPrefix:"FINZAP_EXTRACT_OPENROUTER_" json:"openrouter"`
	Gemini      ProviderConfig `envPrefix:"FINZAP_EXTRACT_GEMINI_"     json:"gemini"`
	Anthropic   ProviderConfig `envPrefix:"FINZAP_EXTRACT_ANTHROPIC_"  json:"anthropic"`
}

type ProviderConfig struct {
	APIKey  string `env:"API_KEY"  json:"api_key"`
	APIBase string `env:"API_BASE" json:"api_base,omitempty"`
	Model   string `env:"MODEL"    json:"model"`
}

type MediaConfig struct {
	TempDir       string `env:"FINZAP_MEDIA_TEMP_DIR"        json:"temp_dir"`
	SweepSchedule string `env:"FINZAP_MEDIA_SWEEP_SCHEDULE"  json:"sweep_schedule"`
	MaxAgeMinutes int    `env:"FINZAP_MEDIA_MAX_AGE_MINUTES" json:"max_age_minutes"`
}

type LedgerConfig struct {
	Path string `env:"FINZAP_LEDGER_PATH" json:"path"`
}

type LogConfig struct {
	Level string `env:"FINZAP_LOG_LEVEL" json:"level"`
}

// DefaultConfig mirrors the operational defaults of the original bot:
// five reconnect attempts five seconds apart, temp media swept every
// 30 minutes once older than one hour.
func DefaultConfig() *Config {
	return &Config{
		Session: SessionConfig{
			BridgeURL:            "ws://127.0.0.1:8765/session",
			AuthDir:              "./auth_info",
			ConnectTimeoutSecs:   60,
			MaxReconnectAttempts: 5,
			ReconnectDelayMs:     5000,
		},
		Extract: ExtractConfig{
			Provider:    ProviderOpenAI,
			TimeoutSecs: 60,
			OpenAI:      ProviderConfig{Model: "gpt-4o"},
			OpenRouter:  ProviderConfig{Model: "meta-llama/llama-3.2-11b-vision-instruct"},
			Gemini:      ProviderConfig{Model: "gemini-1.5-flash"},
			Anthropic:   ProviderConfig{Model: "claude-sonnet-4.6"},
		},
		Media: MediaConfig{
			TempDir:       "./temp",
			SweepSchedule: "*/30 * * * *",
			MaxAgeMinutes: 60,
		},
		Ledger: LedgerConfig{
			Path: "./transacoes.json",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads the JSON config at path (a missing file yields defaults)
// and applies FINZAP_* environment overrides on top.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// SelectedProvider returns the ProviderConfig for the configured extraction
// provider.
func (c *Config) SelectedProvider() (ProviderConfig, error) {
	switch c.Extract.Provider {
	case ProviderOpenAI:
		return c.Extract.OpenAI, nil
	case ProviderOpenRouter:
		return c.Extract.OpenRouter, nil
	case ProviderGemini:
		return c.Extract.Gemini, nil
	case ProviderAnthropic:
		return c.Extract.Anthropic, nil
	default:
		return ProviderConfig{}, fmt.Errorf("unknown extraction provider %q", c.Extract.Provider)
	}
}

// Validate checks the startup-fatal conditions: a known provider with
// credentials and a model, and sane reconnect bounds.
func (c *Config) Validate() error {
	pc, err := c.SelectedProvider()
	if err != nil {
		return err
	}
	if pc.APIKey == "" {
		return fmt.Errorf("no API key configured for provider %q", c.Extract.Provider)
	}
	if pc.Model == "" {
		return fmt.Errorf("no model configured for provider %q", c.Extract.Provider)
	}
	if c.Session.BridgeURL == "" {
		return errors.New("session bridge_url is required")
	}
	if c.Session.MaxReconnectAttempts <= 0 {
		return errors.New("session max_reconnect_attempts must be positive")
	}
	if c.Session.ReconnectDelayMs <= 0 {
		return errors.New("session reconnect_delay_ms must be positive")
	}
	return nil
}
