// Package config loads runtime configuration from an optional YAML file and
// environment variables. Environment values win.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Anthropic AnthropicConfig `yaml:"anthropic"`
	Chat      ChatConfig      `yaml:"chat"`
	HTTP      HTTPConfig      `yaml:"http"`
	Settings  SettingsConfig  `yaml:"settings"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type AnthropicConfig struct {
	APIKey    string `yaml:"api_key"`
	KeyParam  string `yaml:"key_param"` // SSM parameter holding the key
	BaseURL   string `yaml:"base_url"`
	Version   string `yaml:"version"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
	Timeout   string `yaml:"timeout"`
}

type ChatConfig struct {
	MaxMessageLength int    `yaml:"max_message_length"`
	DebugResponses   bool   `yaml:"debug_responses"`
	FallbackEmail    string `yaml:"fallback_email"`
}

type HTTPConfig struct {
	ListenAddr     string  `yaml:"listen_addr"`
	AllowedOrigin  string  `yaml:"allowed_origin"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

type SettingsConfig struct {
	Table string `yaml:"table"` // empty selects the in-memory store
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Anthropic: AnthropicConfig{
			Model:     "claude-3-5-haiku-latest",
			MaxTokens: 300,
			Timeout:   "30s",
		},
		Chat: ChatConfig{
			MaxMessageLength: 4000,
		},
		HTTP: HTTPConfig{
			ListenAddr:     ":8080",
			AllowedOrigin:  "*",
			RateLimitRPS:   0, // off; set RATE_LIMIT_RPS to enable per-IP limiting
			RateLimitBurst: 5,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads path (optional) and then the process environment.
func Load(path string) (Config, error) {
	return LoadFrom(path, os.LookupEnv)
}

// LoadFrom is Load with an injectable environment lookup.
func LoadFrom(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	applyEnv(&cfg, lookup)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				*dst = f
			}
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				*dst = b
			}
		}
	}

	str("ANTHROPIC_API_KEY", &cfg.Anthropic.APIKey)
	str("ANTHROPIC_KEY_PARAM", &cfg.Anthropic.KeyParam)
	str("ANTHROPIC_BASE_URL", &cfg.Anthropic.BaseURL)
	str("ANTHROPIC_VERSION", &cfg.Anthropic.Version)
	str("ANTHROPIC_MODEL", &cfg.Anthropic.Model)
	integer("ANTHROPIC_MAX_TOKENS", &cfg.Anthropic.MaxTokens)
	str("ANTHROPIC_TIMEOUT", &cfg.Anthropic.Timeout)

	integer("MAX_MESSAGE_LENGTH", &cfg.Chat.MaxMessageLength)
	boolean("DEBUG_RESPONSES", &cfg.Chat.DebugResponses)
	str("FALLBACK_EMAIL", &cfg.Chat.FallbackEmail)

	str("LISTEN_ADDR", &cfg.HTTP.ListenAddr)
	str("ALLOWED_ORIGIN", &cfg.HTTP.AllowedOrigin)
	float("RATE_LIMIT_RPS", &cfg.HTTP.RateLimitRPS)
	integer("RATE_LIMIT_BURST", &cfg.HTTP.RateLimitBurst)

	str("SETTINGS_TABLE", &cfg.Settings.Table)
	str("LOG_LEVEL", &cfg.Logging.Level)
}

func (c Config) Validate() error {
	var errs []error
	hasKey := strings.TrimSpace(c.Anthropic.APIKey) != ""
	hasParam := strings.TrimSpace(c.Anthropic.KeyParam) != ""
	switch {
	case !hasKey && !hasParam:
		errs = append(errs, errors.New("one of ANTHROPIC_API_KEY or ANTHROPIC_KEY_PARAM is required"))
	case hasKey && hasParam:
		errs = append(errs, errors.New("ANTHROPIC_API_KEY and ANTHROPIC_KEY_PARAM are mutually exclusive"))
	}
	if strings.TrimSpace(c.Anthropic.Model) == "" {
		errs = append(errs, errors.New("anthropic model must not be empty"))
	}
	if c.Anthropic.MaxTokens <= 0 {
		errs = append(errs, errors.New("anthropic max tokens must be positive"))
	}
	if _, err := c.Anthropic.TimeoutDuration(); err != nil {
		errs = append(errs, err)
	}
	if c.Chat.MaxMessageLength <= 0 {
		errs = append(errs, errors.New("max message length must be positive"))
	}
	if c.HTTP.RateLimitRPS < 0 {
		errs = append(errs, errors.New("rate limit must not be negative"))
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// TimeoutDuration parses Timeout; it must be positive.
func (a AnthropicConfig) TimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(a.Timeout))
	if err != nil {
		return 0, fmt.Errorf("anthropic timeout %q: %w", a.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("anthropic timeout %q must be positive", a.Timeout)
	}
	return d, nil
}

// SlogLevel returns the configured level, defaulting to info.
func (l LoggingConfig) SlogLevel() slog.Level {
	lvl, err := parseLevel(l.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", s, err)
	}
	return lvl, nil
}
