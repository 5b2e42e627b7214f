package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opsdesk/triagent/internal/api"
	"github.com/opsdesk/triagent/internal/config"
	"github.com/opsdesk/triagent/internal/events"
	"github.com/opsdesk/triagent/internal/learning"
	"github.com/opsdesk/triagent/internal/llm"
	"github.com/opsdesk/triagent/internal/processor"
	"github.com/opsdesk/triagent/internal/runstore"
	"github.com/opsdesk/triagent/internal/skills"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("triagent starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Skill store
	skillStore, err := skills.NewStore(cfg.SkillsDir, cfg.DataDir, slog.Default())
	if err != nil {
		slog.Error("failed to open skill store", "error", err)
		os.Exit(1)
	}

	// Model client
	client, err := buildLLMClient(cfg)
	if err != nil {
		slog.Error("failed to build model client", "error", err)
		os.Exit(1)
	}

	// Run store: Postgres when configured, files otherwise
	var runs runstore.Store
	if cfg.DatabaseURL != "" {
		pg, err := runstore.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		runs = pg
		slog.Info("database connected")
	} else {
		fs, err := runstore.NewFileStore(cfg.DataDir)
		if err != nil {
			slog.Error("failed to open run store", "error", err)
			os.Exit(1)
		}
		runs = fs
		slog.Info("file run store ready", "dir", cfg.DataDir)
	}

	// Events (optional — triagent works without NATS, just no event stream)
	var publisher *events.Client
	if cfg.NatsURL != "" {
		publisher, err = events.NewClient(cfg.NatsURL, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS not configured — running without event stream")
	}

	opts := llm.Options{MaxTokens: cfg.LLMMaxTokens, Temperature: cfg.LLMTemperature}

	// Learning engine and processor, the main pipeline. A nil publisher
	// is fine: events.Client drops events when NATS is not configured.
	learner := learning.NewEngine(client, skillStore, publisher, opts, slog.Default())
	proc := processor.New(skillStore, client, learner, publisher, cfg.Workers, opts, slog.Default())

	// HTTP API
	srv := api.NewServer(cfg.Port, cfg.APIToken, runs, skillStore, proc, publisher, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("triagent ready", "port", cfg.Port, "provider", cfg.LLMProvider, "workers", cfg.Workers)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("triagent stopped")
}

func buildLLMClient(cfg config.Config) (llm.Client, error) {
	timeout := time.Duration(cfg.LLMTimeoutSecs) * time.Second

	switch cfg.LLMProvider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			slog.Error("ANTHROPIC_API_KEY is required with LLM_PROVIDER=anthropic")
			os.Exit(1)
		}
		slog.Info("anthropic client ready", "model", cfg.AnthropicModel)
		return llm.NewAnthropic(cfg.AnthropicAPIKey, cfg.AnthropicModel), nil
	default:
		client := llm.NewOllama(cfg.OllamaURL, cfg.OllamaModel, timeout)
		if err := client.CheckConnection(context.Background()); err != nil {
			// Non-fatal: the model may come up after us.
			slog.Warn("ollama not reachable yet", "url", cfg.OllamaURL, "model", cfg.OllamaModel, "error", err)
		} else {
			slog.Info("ollama client ready", "url", cfg.OllamaURL, "model", cfg.OllamaModel)
		}
		return client, nil
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
