// Package config resolves runtime settings: built-in defaults, then an
// optional YAML file named by RA_CONFIG, then RA_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

const (
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultAnthropicModel = "claude-3-7-sonnet-latest"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Provider        string        `yaml:"provider"`
	APIKey          string        `yaml:"api_key"`
	Model           string        `yaml:"model"`
	BaseURL         string        `yaml:"base_url"`
	AssistantName   string        `yaml:"assistant_name"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	PollTimeout     time.Duration `yaml:"poll_timeout"`
	MaxToolRounds   int           `yaml:"max_tool_rounds"`
	TokenBudget     int           `yaml:"token_budget"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`
	HTTPTimeout     time.Duration `yaml:"http_timeout"`
	UserAgent       string        `yaml:"user_agent"` // empty keeps the tools' browser agent
	ExportRoot      string        `yaml:"export_root"`
	Log             LogConfig     `yaml:"log"`
}

type LogConfig struct {
	Level   string `yaml:"level"`  // debug|info|warn|error
	Format  string `yaml:"format"` // text|json
	NoColor bool   `yaml:"no_color"`
}

func Default() Config {
	return Config{
		Provider:        ProviderOpenAI,
		AssistantName:   "Research Assistant",
		PollInterval:    time.Second,
		PollTimeout:     2 * time.Minute,
		MaxToolRounds:   16,
		TokenBudget:     60000,
		MaxOutputTokens: 4096,
		HTTPTimeout:     30 * time.Second,
		ExportRoot:      "exports",
		Log:             LogConfig{Level: "info", Format: "text"},
	}
}

// Load resolves the configuration from the process environment.
func Load() (Config, error) {
	cfg := Default()
	if path, ok := os.LookupEnv("RA_CONFIG"); ok && path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := Parse(data, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	cfg.fillDerived(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes a single YAML document over cfg. Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parse config: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return fmt.Errorf("parse config: multiple YAML documents are not supported")
		}
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalid, key, v, err)
		}
		*dst = d
		return nil
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalid, key, v, err)
		}
		*dst = n
		return nil
	}

	str("RA_PROVIDER", &cfg.Provider)
	str("RA_API_KEY", &cfg.APIKey)
	str("RA_MODEL", &cfg.Model)
	str("RA_BASE_URL", &cfg.BaseURL)
	str("RA_ASSISTANT_NAME", &cfg.AssistantName)
	str("RA_USER_AGENT", &cfg.UserAgent)
	str("RA_EXPORT_ROOT", &cfg.ExportRoot)
	str("RA_LOG_LEVEL", &cfg.Log.Level)
	str("RA_LOG_FORMAT", &cfg.Log.Format)
	if _, ok := lookup("NO_COLOR"); ok {
		cfg.Log.NoColor = true
	}
	return errors.Join(
		dur("RA_POLL_INTERVAL", &cfg.PollInterval),
		dur("RA_POLL_TIMEOUT", &cfg.PollTimeout),
		dur("RA_HTTP_TIMEOUT", &cfg.HTTPTimeout),
		num("RA_MAX_TOOL_ROUNDS", &cfg.MaxToolRounds),
		num("RA_TOKEN_BUDGET", &cfg.TokenBudget),
		num("RA_MAX_OUTPUT_TOKENS", &cfg.MaxOutputTokens),
	)
}

// fillDerived sets the provider-specific model and the vendor API key variable.
func (c *Config) fillDerived(lookup lookupFunc) {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Model == "" {
		switch c.Provider {
		case ProviderAnthropic:
			c.Model = DefaultAnthropicModel
		default:
			c.Model = DefaultOpenAIModel
		}
	}
	if c.APIKey != "" {
		return
	}
	key := "OPENAI_API_KEY"
	if c.Provider == ProviderAnthropic {
		key = "ANTHROPIC_API_KEY"
	}
	if v, ok := lookup(key); ok {
		c.APIKey = strings.TrimSpace(v)
	}
}

// Validate checks ranges and enumerations. A missing API key is not an
// error here; the CLI asks for one interactively.
func (c Config) Validate() error {
	var errs []error
	if c.Provider != ProviderOpenAI && c.Provider != ProviderAnthropic {
		errs = append(errs, fmt.Errorf("%w: provider %q (want %s or %s)", ErrInvalid, c.Provider, ProviderOpenAI, ProviderAnthropic))
	}
	if strings.TrimSpace(c.AssistantName) == "" {
		errs = append(errs, fmt.Errorf("%w: assistant_name is empty", ErrInvalid))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("%w: poll_interval must be positive", ErrInvalid))
	}
	if c.PollTimeout < c.PollInterval {
		errs = append(errs, fmt.Errorf("%w: poll_timeout must be at least poll_interval", ErrInvalid))
	}
	if c.MaxToolRounds < 1 {
		errs = append(errs, fmt.Errorf("%w: max_tool_rounds must be at least 1", ErrInvalid))
	}
	if c.TokenBudget < 1 {
		errs = append(errs, fmt.Errorf("%w: token_budget must be at least 1", ErrInvalid))
	}
	if c.MaxOutputTokens < 1 {
		errs = append(errs, fmt.Errorf("%w: max_output_tokens must be at least 1", ErrInvalid))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: http_timeout must be positive", ErrInvalid))
	}
	if strings.TrimSpace(c.ExportRoot) == "" {
		errs = append(errs, fmt.Errorf("%w: export_root is empty", ErrInvalid))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("%w: log.format %q (want text or json)", ErrInvalid, c.Log.Format))
	}
	return errors.Join(errs...)
}
