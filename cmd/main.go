package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"weather-chat/handler"
	"weather-chat/internal/config"
	"weather-chat/internal/domain"
	"weather-chat/internal/integrations/gemini"
	"weather-chat/internal/integrations/openai"
	"weather-chat/internal/integrations/openweather"
	"weather-chat/internal/integrations/paramstore"
	"weather-chat/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"), os.Getenv)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	if cfg.ParamPrefix != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			slog.Error("failed to load AWS config", "err", err)
			os.Exit(1)
		}
		ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
		if err != nil {
			slog.Error("failed to create SSM client", "err", err)
			os.Exit(1)
		}
		if err := cfg.ResolveSecrets(ctx, ssmClient); err != nil {
			slog.Error("failed to resolve secrets", "err", err)
			os.Exit(1)
		}
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}

	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// ---- Clients ----
	llm, err := newTextGenerator(cfg)
	if err != nil {
		slog.Error("failed to create LLM client", "provider", cfg.LLMProvider, "err", err)
		os.Exit(1)
	}
	weatherClient, err := openweather.NewClient(cfg.OpenWeatherAPIKey,
		openweather.WithBaseURL(cfg.WeatherBaseURL),
		openweather.WithHTTPClient(&http.Client{Timeout: cfg.WeatherTimeoutDuration()}),
		openweather.WithIcons(domain.DefaultIcons()),
	)
	if err != nil {
		slog.Error("failed to create weather client", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	chatService, err := usecase.NewChatService(llm, weatherClient, usecase.WithLogger(logger))
	if err != nil {
		slog.Error("failed to create chat service", "err", err)
		os.Exit(1)
	}
	h, err := handler.NewHandler(chatService, handler.WithStaticDir(cfg.StaticDir), handler.WithLogger(logger))
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		lambda.Start(h.Handle)
		return
	}
	if err := serve(h, ":"+cfg.Port); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func newTextGenerator(cfg *config.Config) (usecase.TextGenerator, error) {
	httpClient := &http.Client{Timeout: cfg.LLMTimeoutDuration()}
	if cfg.LLMProvider == config.ProviderOpenAI {
		opts := []openai.Option{
			openai.WithModel(cfg.OpenAIModel),
			openai.WithHTTPClient(httpClient),
		}
		if cfg.OpenAIBaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAIBaseURL))
		}
		return openai.NewClient(cfg.OpenAIAPIKey, opts...)
	}
	opts := []gemini.Option{
		gemini.WithModel(cfg.GeminiModel),
		gemini.WithHTTPClient(httpClient),
	}
	if cfg.GeminiBaseURL != "" {
		opts = append(opts, gemini.WithBaseURL(cfg.GeminiBaseURL))
	}
	return gemini.NewClient(cfg.GoogleAPIKey, opts...)
}

// serve runs the HTTP server until SIGINT/SIGTERM, then drains in-flight
// requests for up to 10 seconds.
func serve(h *handler.Handler, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		slog.Info("shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
