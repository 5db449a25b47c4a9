// Package main runs the quiz HTTP service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/jsamuelsen/tech-quiz-service/internal/adapters/clients"
	"github.com/jsamuelsen/tech-quiz-service/internal/adapters/clients/acl"
	"github.com/jsamuelsen/tech-quiz-service/internal/adapters/http"
	"github.com/jsamuelsen/tech-quiz-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen/tech-quiz-service/internal/app"
	"github.com/jsamuelsen/tech-quiz-service/internal/platform/config"
	"github.com/jsamuelsen/tech-quiz-service/internal/platform/logging"
	"github.com/jsamuelsen/tech-quiz-service/internal/platform/telemetry"
	"github.com/jsamuelsen/tech-quiz-service/internal/ports"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	logging.SetDefault(logger)

	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
	)

	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	httpClient, err := clients.New(&clients.Config{
		BaseURL:     cfg.Services.Questions.BaseURL,
		ServiceName: cfg.Services.Questions.Name,
		Timeout:     cfg.Client.Timeout,
		Retry:       cfg.Client.Retry,
		Circuit:     cfg.Client.CircuitBreaker,
		Transport:   cfg.Client.Transport,
		UserAgent:   cfg.App.Name + "/" + Version,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("creating HTTP client: %w", err)
	}

	questions := acl.NewQuestionClient(acl.QuestionClientConfig{
		Client: httpClient,
		Path:   cfg.Services.Questions.Path,
		Logger: logger,
	})

	sessions := app.NewSessionManager(app.SessionManagerConfig{
		Source:        questions,
		Logger:        logger,
		FetchTimeout:  cfg.Quiz.FetchTimeout,
		SessionTTL:    cfg.Quiz.SessionTTL,
		SweepInterval: cfg.Quiz.SweepInterval,
		MaxSessions:   cfg.Quiz.MaxSessions,
	})

	// Neither check is critical: a failing question source shows up as failed
	// rounds, and a full session table still serves existing quizzes.
	healthRegistry := ports.NewHealthRegistry()
	for _, checker := range []ports.HealthChecker{questions, sessions} {
		if err := healthRegistry.RegisterOptional(checker); err != nil {
			return fmt.Errorf("registering health check: %w", err)
		}
	}

	server := http.New(&cfg.Server, logger)
	http.SetupRouter(server.Engine(), http.RouterConfig{
		Logger:         logger,
		ServiceName:    cfg.App.Name,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		HealthHandler:  handlers.NewHealthHandler(healthRegistry, handlers.NewBuildInfo(Version, Commit, BuildTime)),
		QuizHandler:    handlers.NewQuizHandler(sessions),
		StreamHandler:  handlers.NewQuizStreamHandler(sessions, cfg.Server.AllowedOrigins),
		Timeout:        cfg.Server.RequestTimeout,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx) })
	g.Go(func() error { return sessions.Run(gctx) })

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("shutdown complete")

	return nil
}
