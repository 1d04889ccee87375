package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func envFrom(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

type fakeTokens struct {
	vals  map[string]string
	err   error
	asked []string
}

func (f *fakeTokens) GetToken(_ context.Context, name string) (string, error) {
	f.asked = append(f.asked, name)
	if f.err != nil {
		return "", f.err
	}
	return f.vals[name], nil
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", envFrom(nil))
	require.NoError(t, err)
	require.Equal(t, ProviderGemini, cfg.LLMProvider)
	require.Equal(t, "8000", cfg.Port)
	require.Equal(t, "static", cfg.StaticDir)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, 30*time.Second, cfg.LLMTimeoutDuration())
	require.Equal(t, 10*time.Second, cfg.WeatherTimeoutDuration())
}

func TestLoad_EnvOverrides(t *testing.T) {
	cfg, err := Load("", envFrom(map[string]string{
		"LLM_PROVIDER":            " OpenAI ",
		"OPENAI_API_KEY":          "sk-env",
		"OPENWEATHER_API_KEY":     "owm-env",
		"PARAM_PREFIX":            "/weather-chat/",
		"PORT":                    "9090",
		"WEATHER_TIMEOUT_SECONDS": "3",
	}))
	require.NoError(t, err)
	require.Equal(t, ProviderOpenAI, cfg.LLMProvider)
	require.Equal(t, "sk-env", cfg.OpenAIAPIKey)
	require.Equal(t, "owm-env", cfg.OpenWeatherAPIKey)
	require.Equal(t, "/weather-chat", cfg.ParamPrefix)
	require.Equal(t, "9090", cfg.Port)
	require.Equal(t, 3*time.Second, cfg.WeatherTimeoutDuration())
	require.NoError(t, cfg.Validate())
}

func TestLoad_InvalidInt(t *testing.T) {
	_, err := Load("", envFrom(map[string]string{"LLM_TIMEOUT_SECONDS": "soon"}))
	require.Error(t, err)
	require.Contains(t, err.Error(), "LLM_TIMEOUT_SECONDS")
}

func TestLoad_YAMLFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
google_api_key: g-file
openweather_api_key: owm-file
gemini_model: gemini-file
static_dir: web/static
llm_timeout_seconds: 12
`), 0o600))

	cfg, err := Load(path, envFrom(map[string]string{"OPENWEATHER_API_KEY": "owm-env"}))
	require.NoError(t, err)
	require.Equal(t, "g-file", cfg.GoogleAPIKey)
	require.Equal(t, "owm-env", cfg.OpenWeatherAPIKey)
	require.Equal(t, "gemini-file", cfg.GeminiModel)
	require.Equal(t, "web/static", cfg.StaticDir)
	require.Equal(t, 12*time.Second, cfg.LLMTimeoutDuration())
	require.NoError(t, cfg.Validate())
}

func TestLoad_FileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), envFrom(nil))
	require.ErrorContains(t, err, "read file")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [unterminated"), 0o600))
	_, err = Load(path, envFrom(nil))
	require.ErrorContains(t, err, "parse yaml")
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{"gemini key missing", Config{LLMProvider: ProviderGemini, OpenWeatherAPIKey: "w", LogLevel: "info"}, "GOOGLE_API_KEY"},
		{"openai key missing", Config{LLMProvider: ProviderOpenAI, GoogleAPIKey: "g", OpenWeatherAPIKey: "w", LogLevel: "info"}, "OPENAI_API_KEY"},
		{"weather key missing", Config{LLMProvider: ProviderGemini, GoogleAPIKey: "g", LogLevel: "info"}, "OPENWEATHER_API_KEY"},
		{"unknown provider", Config{LLMProvider: "bard", OpenWeatherAPIKey: "w", LogLevel: "info"}, "unknown llm provider"},
		{"bad log level", Config{LLMProvider: ProviderGemini, GoogleAPIKey: "g", OpenWeatherAPIKey: "w", LogLevel: "loud"}, "log level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestSlogLevel(t *testing.T) {
	cfg := Config{LogLevel: "debug"}
	lvl, err := cfg.SlogLevel()
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, lvl)
}

func TestResolveSecrets_NoPrefixIsNoop(t *testing.T) {
	cfg := Config{LLMProvider: ProviderGemini}
	require.NoError(t, cfg.ResolveSecrets(context.Background(), nil))
	require.Empty(t, cfg.GoogleAPIKey)
}

func TestResolveSecrets_FillsOnlyMissingKeys(t *testing.T) {
	tokens := &fakeTokens{vals: map[string]string{
		"/weather-chat/google-api-key":      "g-ssm",
		"/weather-chat/openweather-api-key": "owm-ssm",
	}}
	cfg := Config{LLMProvider: ProviderGemini, ParamPrefix: "/weather-chat", OpenWeatherAPIKey: "owm-env"}
	require.NoError(t, cfg.ResolveSecrets(context.Background(), tokens))
	require.Equal(t, "g-ssm", cfg.GoogleAPIKey)
	require.Equal(t, "owm-env", cfg.OpenWeatherAPIKey)
	require.Equal(t, []string{"/weather-chat/google-api-key"}, tokens.asked)
}

func TestResolveSecrets_OpenAIProvider(t *testing.T) {
	tokens := &fakeTokens{vals: map[string]string{
		"/p/open-ai-token":       "sk-ssm",
		"/p/openweather-api-key": "owm-ssm",
	}}
	cfg := Config{LLMProvider: ProviderOpenAI, ParamPrefix: "/p"}
	require.NoError(t, cfg.ResolveSecrets(context.Background(), tokens))
	require.Equal(t, "sk-ssm", cfg.OpenAIAPIKey)
	require.Equal(t, "owm-ssm", cfg.OpenWeatherAPIKey)
	require.Empty(t, cfg.GoogleAPIKey)
}

func TestResolveSecrets_Errors(t *testing.T) {
	cfg := Config{LLMProvider: ProviderGemini, ParamPrefix: "/p"}
	require.Error(t, cfg.ResolveSecrets(context.Background(), nil))

	err := cfg.ResolveSecrets(context.Background(), &fakeTokens{err: errors.New("ssm unavailable")})
	require.ErrorContains(t, err, "ssm unavailable")
	require.ErrorContains(t, err, "/openweather-api-key")
}
