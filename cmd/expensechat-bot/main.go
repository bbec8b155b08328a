package main

import (
	"context"
	"os"
	"time"

	"expensechat/internal/bot"
	"expensechat/internal/cli"
	"expensechat/internal/config"
	"expensechat/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentBot)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateBot)

	app, err := cli.NewApp(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}
	app.StartCacheCleanup(cfg.SummaryCacheTTL)

	b, err := bot.NewBot(cfg.TelegramToken, bot.Services{
		Chat:        app.Chat,
		Expenses:    app.Expenses,
		Summaries:   app.Summaries,
		Categorizer: app.Categorizer,
		Formatter:   app.Formatter,
	}, logger)
	if err != nil {
		logger.Error("Failed to start Telegram bot", "error", err)
		_ = app.Close()
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

	logger.Info("Starting expensechat bot", "backend", cfg.DataBackend)
	if err := b.Start(ctx); err != nil {
		logger.Error("Bot stopped with error", "error", err)
	}

	if ctx.Err() != nil {
		<-done
	}
	if err := app.Close(); err != nil {
		logger.Error("Failed to close backend", "error", err)
	}
	logger.Info("Bot stopped")
}
