package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"expensechat/internal/amqp"
	"expensechat/internal/core"
	"expensechat/internal/store/memory"
)

// blockingExporter holds the export of one ID until release is closed.
type blockingExporter struct {
	fakeExporter
	blockID int64
	entered chan struct{}
	release chan struct{}
}

func (b *blockingExporter) Export(ctx context.Context, e core.Expense) (string, error) {
	if e.ID == b.blockID {
		close(b.entered)
		<-b.release
	}
	return b.fakeExporter.Export(ctx, e)
}

func (f *fakeExporter) rowsFor(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.rows {
		if r == id {
			n++
		}
	}
	return n
}

// staleSource lists pending records from a snapshot taken before any export.
type staleSource struct {
	*memory.Store
	snapshot []core.Expense
}

func (s *staleSource) PendingExport(context.Context, int) ([]core.Expense, error) {
	return s.snapshot, nil
}

type fakeExporter struct {
	mu     sync.Mutex
	rows   []int64
	failOn map[int64]bool
}

func (f *fakeExporter) Export(_ context.Context, e core.Expense) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[e.ID] {
		return "", errors.New("quota exceeded")
	}
	f.rows = append(f.rows, e.ID)
	return "Sheet1!A1:G1", nil
}

func (f *fakeExporter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func seed(t *testing.T, n int) *memory.Store {
	t.Helper()
	st := memory.New()
	for i := 0; i < n; i++ {
		_, err := st.Insert(context.Background(), core.Expense{
			Owner: "alice", Title: "coffee", Amount: core.Money{Cents: 250},
			Category: core.Food, Date: core.NewDate(2025, 10, 1+i),
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	return st
}

func TestHandleExpenseCreated(t *testing.T) {
	st := seed(t, 2)
	exp := &fakeExporter{}
	w := NewExportWorker(st, exp, 10, 2)
	ctx := context.Background()

	if err := w.HandleExpenseCreated(ctx, amqp.NewExpenseCreatedMessage(2, "alice")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if exp.count() != 1 || exp.rows[0] != 2 {
		t.Fatalf("expected row for id 2, got %v", exp.rows)
	}
	pending, _ := st.PendingExport(ctx, 0)
	if len(pending) != 1 || pending[0].ID != 1 {
		t.Fatalf("expected only id 1 pending, got %+v", pending)
	}
}

func TestHandleExpenseCreatedMissingRecord(t *testing.T) {
	w := NewExportWorker(memory.New(), &fakeExporter{}, 10, 1)
	if err := w.HandleExpenseCreated(context.Background(), amqp.NewExpenseCreatedMessage(42, "alice")); err != nil {
		t.Fatalf("missing record should be skipped, got %v", err)
	}
}

func TestHandleExpenseCreatedExportError(t *testing.T) {
	st := seed(t, 1)
	w := NewExportWorker(st, &fakeExporter{failOn: map[int64]bool{1: true}}, 10, 1)
	if err := w.HandleExpenseCreated(context.Background(), amqp.NewExpenseCreatedMessage(1, "alice")); err == nil {
		t.Fatal("expected export error")
	}
	pending, _ := st.PendingExport(context.Background(), 0)
	if len(pending) != 1 {
		t.Fatalf("failed export must stay pending, got %d", len(pending))
	}
}

func TestProcessPending(t *testing.T) {
	st := seed(t, 7)
	exp := &fakeExporter{failOn: map[int64]bool{3: true}}
	w := NewExportWorker(st, exp, 5, 3)
	ctx := context.Background()

	n, err := w.ProcessPending(ctx)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if n != 4 {
		t.Fatalf("first batch: exported %d, want 4", n)
	}

	n, err = w.ProcessPending(ctx)
	if err != nil || n != 2 {
		t.Fatalf("second batch: exported %d, err %v", n, err)
	}

	pending, _ := st.PendingExport(ctx, 0)
	if len(pending) != 1 || pending[0].ID != 3 {
		t.Fatalf("expected only the failing id left, got %+v", pending)
	}
}

func TestProcessPendingEmpty(t *testing.T) {
	w := NewExportWorker(memory.New(), &fakeExporter{}, 0, 0)
	if n, err := w.ProcessPending(context.Background()); n != 0 || err != nil {
		t.Fatalf("got %d, %v", n, err)
	}
}

func TestStartSweepsImmediately(t *testing.T) {
	st := seed(t, 3)
	exp := &fakeExporter{}
	w := NewExportWorker(st, exp, 10, 2)

	w.Start(context.Background(), time.Hour)
	deadline := time.Now().Add(2 * time.Second)
	for exp.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	w.Stop()
	w.Stop()

	if exp.count() != 3 {
		t.Fatalf("expected startup sweep to export 3 rows, got %d", exp.count())
	}
}

func TestMessageAndSweepExportOnce(t *testing.T) {
	st := seed(t, 3)
	exp := &blockingExporter{blockID: 1, entered: make(chan struct{}), release: make(chan struct{})}
	w := NewExportWorker(st, exp, 10, 3)
	ctx := context.Background()

	handled := make(chan error, 1)
	go func() { handled <- w.HandleExpenseCreated(ctx, amqp.NewExpenseCreatedMessage(1, "alice")) }()
	<-exp.entered

	// id 1 is mid-export on the message path
	n, err := w.ProcessPending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("sweep exported %d, want 2", n)
	}

	close(exp.release)
	if err := <-handled; err != nil {
		t.Fatal(err)
	}
	if got := exp.rowsFor(1); got != 1 {
		t.Fatalf("id 1 appended %d times", got)
	}
}

func TestSweepSkipsRecordsExportedSinceListing(t *testing.T) {
	st := seed(t, 2)
	ctx := context.Background()
	snapshot, _ := st.PendingExport(ctx, 0)
	exp := &fakeExporter{}
	w := NewExportWorker(&staleSource{Store: st, snapshot: snapshot}, exp, 10, 1)

	if err := w.HandleExpenseCreated(ctx, amqp.NewExpenseCreatedMessage(1, "alice")); err != nil {
		t.Fatal(err)
	}
	n, err := w.ProcessPending(ctx)
	if err != nil || n != 1 {
		t.Fatalf("sweep exported %d, %v; want 1", n, err)
	}
	if exp.rowsFor(1) != 1 || exp.rowsFor(2) != 1 {
		t.Fatalf("rows = %v", exp.rows)
	}
}
