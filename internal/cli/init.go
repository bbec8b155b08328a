// Package cli holds the startup steps shared by the cmd binaries.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"expensechat/internal/categorize"
	"expensechat/internal/config"
	"expensechat/internal/log"
	"expensechat/internal/model"
)

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default. An unknown level falls back to info.
func SetupLogger(component string) *log.Logger {
	level, err := log.ParseLevel(os.Getenv("LOG_LEVEL"))
	cfg := log.DefaultConfig()
	cfg.Level = level
	cfg.Component = component
	if f := os.Getenv("LOG_FORMAT"); f != "" {
		cfg.Format = f
	}

	logger := log.New(cfg)
	log.SetDefault(logger)
	if err != nil {
		logger.Warn("Unknown log level, using info", "error", err)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and runs the base validation
// plus any extra checks. It exits the process on failure.
func LoadAndValidateConfig(logger *log.Logger, extra ...func(*config.Config) error) *config.Config {
	cfg := config.Load()
	checks := append([]func(*config.Config) error{(*config.Config).Validate}, extra...)
	for _, check := range checks {
		if err := check(cfg); err != nil {
			logger.Error("Configuration validation failed", "error", err)
			os.Exit(1)
		}
	}
	return cfg
}

// NewCategorizer loads the optional model artifact and alias table named in
// cfg. A missing or broken artifact leaves the keyword rules in charge.
func NewCategorizer(cfg *config.Config, logger *log.Logger) (*categorize.Engine, error) {
	aliases, err := categorize.LoadAliases(cfg.AliasesPath)
	if err != nil {
		return nil, fmt.Errorf("load aliases: %w", err)
	}
	return categorize.NewEngine(model.Load(cfg.ModelPath, logger), aliases, logger), nil
}

// GracefulShutdown cancels the returned context on SIGINT or SIGTERM, then
// runs cleanup with at most timeout to finish. done is closed afterwards.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received",
			log.FieldOperation, log.OpShutdown,
			"signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
	}()

	return ctx, done
}
