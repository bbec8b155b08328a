package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"expensechat/internal/cli"
	apphttp "expensechat/internal/http"
	"expensechat/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	// The categorizer and its model are loaded here, before the listener
	// accepts its first request.
	app, err := cli.NewApp(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}
	app.StartCacheCleanup(cfg.SummaryCacheTTL)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Chat:               app.Chat,
		Expenses:           app.Expenses,
		Summaries:          app.Summaries,
		Categorizer:        app.Categorizer,
		Ready:              app.Backend.Backend,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
	})

	_, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := app.Close(); err != nil {
			logger.Error("Failed to close backend", "error", err)
		}
	})

	logger.Info("Starting expensechat server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"model", app.Categorizer.HasModel())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
