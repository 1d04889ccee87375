package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config is the process-wide, read-only configuration built once at startup.
type Config struct {
	LLMProvider string `yaml:"llm_provider"`

	GoogleAPIKey  string `yaml:"google_api_key"`
	GeminiModel   string `yaml:"gemini_model"`
	GeminiBaseURL string `yaml:"gemini_base_url"`

	OpenAIAPIKey  string `yaml:"openai_api_key"`
	OpenAIModel   string `yaml:"openai_model"`
	OpenAIBaseURL string `yaml:"openai_base_url"`

	OpenWeatherAPIKey string `yaml:"openweather_api_key"`
	WeatherBaseURL    string `yaml:"weather_base_url"`

	// ParamPrefix enables SSM lookup of any API key left empty.
	ParamPrefix string `yaml:"param_prefix"`

	Port           string `yaml:"port"`
	StaticDir      string `yaml:"static_dir"`
	LogLevel       string `yaml:"log_level"`
	LLMTimeout     int    `yaml:"llm_timeout_seconds"`
	WeatherTimeout int    `yaml:"weather_timeout_seconds"`
}

// TokenGetter reads {"token":"..."} secrets by parameter name.
type TokenGetter interface {
	GetToken(ctx context.Context, name string) (string, error)
}

// Load reads the optional YAML file at path, applies environment overrides
// and defaults. An empty path skips the file. Secrets are not validated here;
// call ResolveSecrets and Validate once the param store is available.
func Load(path string, getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := &Config{}
	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}
	if err := applyEnv(cfg, getenv); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	strs := map[string]*string{
		"LLM_PROVIDER":        &cfg.LLMProvider,
		"GOOGLE_API_KEY":      &cfg.GoogleAPIKey,
		"GEMINI_MODEL":        &cfg.GeminiModel,
		"GEMINI_BASE_URL":     &cfg.GeminiBaseURL,
		"OPENAI_API_KEY":      &cfg.OpenAIAPIKey,
		"OPENAI_MODEL":        &cfg.OpenAIModel,
		"OPENAI_BASE_URL":     &cfg.OpenAIBaseURL,
		"OPENWEATHER_API_KEY": &cfg.OpenWeatherAPIKey,
		"WEATHER_BASE_URL":    &cfg.WeatherBaseURL,
		"PARAM_PREFIX":        &cfg.ParamPrefix,
		"PORT":                &cfg.Port,
		"STATIC_DIR":          &cfg.StaticDir,
		"LOG_LEVEL":           &cfg.LogLevel,
	}
	for key, dst := range strs {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"LLM_TIMEOUT_SECONDS":     &cfg.LLMTimeout,
		"WEATHER_TIMEOUT_SECONDS": &cfg.WeatherTimeout,
	}
	for key, dst := range ints {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s must be an integer, got %q", key, v)
		}
		*dst = n
	}
	return nil
}

func applyDefaults(cfg *Config) {
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = ProviderGemini
	}
	cfg.ParamPrefix = strings.TrimRight(strings.TrimSpace(cfg.ParamPrefix), "/")
	if cfg.Port == "" {
		cfg.Port = "8000"
	}
	if cfg.StaticDir == "" {
		cfg.StaticDir = "static"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = 30
	}
	if cfg.WeatherTimeout <= 0 {
		cfg.WeatherTimeout = 10
	}
}

type secretRef struct {
	dst  *string
	name string
}

// ResolveSecrets fills empty API keys from the param store under ParamPrefix.
// Only keys the selected provider needs are fetched.
func (c *Config) ResolveSecrets(ctx context.Context, getter TokenGetter) error {
	if c.ParamPrefix == "" {
		return nil
	}
	if getter == nil {
		return errors.New("config: token getter must not be nil when a param prefix is set")
	}
	wanted := []secretRef{{&c.OpenWeatherAPIKey, "/openweather-api-key"}}
	switch c.LLMProvider {
	case ProviderGemini:
		wanted = append(wanted, secretRef{&c.GoogleAPIKey, "/google-api-key"})
	case ProviderOpenAI:
		wanted = append(wanted, secretRef{&c.OpenAIAPIKey, "/open-ai-token"})
	}
	for _, w := range wanted {
		if *w.dst != "" {
			continue
		}
		tok, err := getter.GetToken(ctx, c.ParamPrefix+w.name)
		if err != nil {
			return fmt.Errorf("config: resolve %s: %w", w.name, err)
		}
		*w.dst = tok
	}
	return nil
}

// Validate checks that everything needed to serve requests is present.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderGemini:
		if c.GoogleAPIKey == "" {
			return errors.New("config: GOOGLE_API_KEY is required for the gemini provider")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return errors.New("config: OPENAI_API_KEY is required for the openai provider")
		}
	default:
		return fmt.Errorf("config: unknown llm provider %q", c.LLMProvider)
	}
	if c.OpenWeatherAPIKey == "" {
		return errors.New("config: OPENWEATHER_API_KEY is required")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

func (c *Config) LLMTimeoutDuration() time.Duration {
	return time.Duration(c.LLMTimeout) * time.Second
}

func (c *Config) WeatherTimeoutDuration() time.Duration {
	return time.Duration(c.WeatherTimeout) * time.Second
}

func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: invalid log level %q", c.LogLevel)
	}
	return lvl, nil
}
