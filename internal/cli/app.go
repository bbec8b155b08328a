package cli

import (
	"context"
	"fmt"
	"time"

	"expensechat/internal/aggregate"
	"expensechat/internal/backend"
	"expensechat/internal/cache"
	"expensechat/internal/categorize"
	"expensechat/internal/config"
	"expensechat/internal/log"
	"expensechat/internal/reply"
	"expensechat/internal/services"
)

// summaryCacheSize bounds the number of cached owner+granularity summaries.
const summaryCacheSize = 1000

// App is the wired set of services every front end shares.
type App struct {
	Backend     *backend.BackendResult
	Categorizer *categorize.Engine
	Formatter   reply.Formatter
	Chat        *services.ChatService
	Expenses    *services.ExpenseService
	Summaries   *services.SummaryService
	Caches      *cache.Manager
}

// NewApp opens the configured backend and builds the services on top of it.
// The categorizer, including its optional model, is ready before this returns.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	return newApp(ctx, cfg, logger, backend.NewFactory(logger))
}

func newApp(ctx context.Context, cfg *config.Config, logger *log.Logger, factory backend.Factory) (*App, error) {
	if logger == nil {
		logger = log.Default()
	}
	categorizer, err := NewCategorizer(cfg, logger)
	if err != nil {
		return nil, err
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := factory.CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	var summaryCache cache.Cache[aggregate.Summary]
	caches := cache.NewManager(logger)
	if cfg.SummaryCacheTTL > 0 {
		lru := cache.NewLRUCache[aggregate.Summary](summaryCacheSize, cfg.SummaryCacheTTL)
		caches.Register(lru)
		summaryCache = lru
	}

	formatter := reply.New(cfg.CurrencySymbol)
	summaries := services.NewSummaryService(res.Backend, summaryCache)

	logger.InfoContext(ctx, "Services ready",
		log.FieldOperation, log.OpStartup,
		"backend", bcfg.Type.String(),
		"model", categorizer.HasModel(),
		"publisher", res.Publisher != nil)

	return &App{
		Backend:     res,
		Categorizer: categorizer,
		Formatter:   formatter,
		Chat:        services.NewChatService(res.Backend, formatter),
		Expenses:    services.NewExpenseService(res.Backend, categorizer, res.Publisher, summaries),
		Summaries:   summaries,
		Caches:      caches,
	}, nil
}

// StartCacheCleanup sweeps expired summaries at half their TTL.
func (a *App) StartCacheCleanup(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	a.Caches.StartCleanup(ttl / 2)
}

// Close stops the cache sweeper and releases the backend.
func (a *App) Close() error {
	a.Caches.Stop()
	return a.Backend.Close()
}
