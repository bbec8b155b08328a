package backend

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"expensechat/internal/amqp"
	"expensechat/internal/config"
	"expensechat/internal/core"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", AMQPURL: "amqp://h", AMQPExchange: "e", AMQPQueue: "q"})
	if err != nil || cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "x.db" || cfg.AMQPQueue != "q" {
		t.Fatalf("got %+v, %v", cfg, err)
	}
}

func TestInvalidTypeListsBackends(t *testing.T) {
	_, err := FromAppConfig(&config.Config{DataBackend: "postgres"})
	if err == nil || !strings.Contains(err.Error(), `"postgres" (valid: sqlite, memory)`) {
		t.Fatalf("FromAppConfig error = %v", err)
	}
	err = Config{Type: "sheets"}.Validate()
	if err == nil || !strings.Contains(err.Error(), "valid: sqlite, memory") {
		t.Fatalf("Validate error = %v", err)
	}
	for _, bt := range GetBackendTypes() {
		if !bt.IsValid() {
			t.Fatalf("%s must be valid", bt)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "a.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"unknown", Config{Type: "sheets"}, true},
		{"amqp without queue", Config{Type: MemoryBackend, AMQPURL: "amqp://h", AMQPExchange: "e"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func exercise(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()
	if err := b.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	id, err := b.Insert(ctx, core.Expense{
		Owner: "alice", Title: "tea", Amount: core.Money{Cents: 90},
		Category: core.Food, Date: core.NewDate(2025, 10, 15),
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	pending, err := b.PendingExport(ctx, 10)
	if err != nil || len(pending) != 1 || pending[0].ID != id {
		t.Fatalf("pending = %+v, %v", pending, err)
	}
	if err := b.MarkExported(ctx, id); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if pending, _ := b.PendingExport(ctx, 10); len(pending) != 0 {
		t.Fatalf("still pending: %+v", pending)
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatal(err)
	}
	if res.Publisher != nil {
		t.Fatal("publisher must be nil without AMQP")
	}
	exercise(t, res.Backend)
	if err := res.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestCreateSQLiteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "expenses.db")
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()
	exercise(t, res.Backend)
}

func TestUnreachableBrokerDisablesPublishing(t *testing.T) {
	f := NewFactory(nil).(*DefaultFactory)
	dialed := false
	f.dial = func(string, string, string) (*amqp.Client, error) {
		dialed = true
		return nil, errors.New("connection refused")
	}
	res, err := f.CreateBackend(context.Background(), Config{
		Type: MemoryBackend, AMQPURL: "amqp://localhost:1/", AMQPExchange: "e", AMQPQueue: "q",
	})
	if err != nil {
		t.Fatalf("broker failure must not fail startup: %v", err)
	}
	if !dialed || res.Publisher != nil {
		t.Fatalf("dialed=%v publisher=%v", dialed, res.Publisher)
	}
}
