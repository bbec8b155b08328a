package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"expensechat/internal/amqp"
	"expensechat/internal/core"
	"expensechat/internal/log"
	"expensechat/internal/sheets"
	"expensechat/internal/store"

	"golang.org/x/sync/errgroup"
)

// Source is what the worker needs from the record store.
type Source interface {
	Get(ctx context.Context, id int64) (core.Expense, error)
	store.ExportQueue
}

// ExportWorker copies stored expenses to the spreadsheet, either as they are
// announced over AMQP or through a periodic sweep of unexported rows. The
// two paths can see the same record at once; each ID is exported by one
// goroutine at a time and only while it is still unexported.
type ExportWorker struct {
	source      Source
	exporter    sheets.Exporter
	batchSize   int
	concurrency int
	logger      *log.Logger

	mu       sync.Mutex
	inFlight map[int64]struct{}

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewExportWorker(source Source, exporter sheets.Exporter, batchSize, concurrency int) *ExportWorker {
	if batchSize < 1 {
		batchSize = 50
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &ExportWorker{
		source:      source,
		exporter:    exporter,
		batchSize:   batchSize,
		concurrency: concurrency,
		logger:      log.Default().WithComponent(log.ComponentWorker),
		inFlight:    make(map[int64]struct{}),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// HandleExpenseCreated is the amqp.Handler for "expense created" messages.
// A record that no longer exists is acknowledged and skipped.
func (w *ExportWorker) HandleExpenseCreated(ctx context.Context, msg *amqp.ExpenseCreatedMessage) error {
	w.logger.InfoContext(ctx, "Processing expense created message",
		log.FieldExpenseID, msg.ID,
		log.FieldOwner, msg.Owner)

	e, err := w.source.Get(ctx, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		w.logger.WarnContext(ctx, "Expense from message not found, skipping", log.FieldExpenseID, msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get expense from storage: %w", err)
	}
	_, err = w.export(ctx, e)
	return err
}

// ProcessPending exports up to one batch of unexported records with bounded
// concurrency. It returns how many were exported; individual failures are
// logged and left pending for the next sweep.
func (w *ExportWorker) ProcessPending(ctx context.Context) (int, error) {
	pending, err := w.source.PendingExport(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("get pending expenses: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	w.logger.InfoContext(ctx, "Processing pending expenses", "count", len(pending))

	var exported atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, e := range pending {
		g.Go(func() error {
			ok, err := w.export(gctx, e)
			if err != nil {
				w.logger.ErrorContext(gctx, "Failed to export expense",
					log.FieldExpenseID, e.ID,
					log.FieldError, err)
				return nil
			}
			if ok {
				exported.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(exported.Load()), err
	}

	w.logger.InfoContext(ctx, "Pending export completed",
		"total", len(pending),
		"exported", exported.Load())
	return int(exported.Load()), ctx.Err()
}

// claim marks id as being exported; false means another goroutine has it.
func (w *ExportWorker) claim(id int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, busy := w.inFlight[id]; busy {
		return false
	}
	w.inFlight[id] = struct{}{}
	return true
}

func (w *ExportWorker) release(id int64) {
	w.mu.Lock()
	delete(w.inFlight, id)
	w.mu.Unlock()
}

// export appends e to the spreadsheet and marks it exported. It reports
// false without error when e is already in flight or already exported.
func (w *ExportWorker) export(ctx context.Context, e core.Expense) (bool, error) {
	if !w.claim(e.ID) {
		w.logger.DebugContext(ctx, "Expense already being exported, skipping", log.FieldExpenseID, e.ID)
		return false, nil
	}
	defer w.release(e.ID)

	// a sweep may have listed e before another path marked it
	done, err := w.source.IsExported(ctx, e.ID)
	if err != nil {
		return false, fmt.Errorf("check export state: %w", err)
	}
	if done {
		w.logger.DebugContext(ctx, "Expense already exported, skipping", log.FieldExpenseID, e.ID)
		return false, nil
	}

	ref, err := w.exporter.Export(ctx, e)
	if err != nil {
		return false, fmt.Errorf("export to sheets: %w", err)
	}
	if err := w.source.MarkExported(ctx, e.ID); err != nil {
		// the row is written; a later sweep may append it again
		w.logger.ErrorContext(ctx, "Failed to mark as exported",
			log.FieldExpenseID, e.ID,
			log.FieldError, err)
		return true, nil
	}

	w.logger.InfoContext(ctx, "Successfully exported expense",
		log.FieldOperation, log.OpExport,
		log.FieldExpenseID, e.ID,
		"sheets_ref", ref,
		log.FieldAmount, e.Amount.String())
	return true, nil
}

// Start runs one sweep immediately and then one every interval until Stop
// is called or ctx ends.
func (w *ExportWorker) Start(ctx context.Context, interval time.Duration) {
	go func() {
		defer close(w.done)

		w.sweep(ctx)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stop:
				return
			case <-ticker.C:
				w.sweep(ctx)
			}
		}
	}()
}

func (w *ExportWorker) sweep(ctx context.Context) {
	if _, err := w.ProcessPending(ctx); err != nil && ctx.Err() == nil {
		w.logger.ErrorContext(ctx, "Export sweep failed", log.FieldError, err)
	}
}

// Stop ends the sweep loop and waits for the current sweep to finish.
// It must only be called after Start.
func (w *ExportWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.done
}
