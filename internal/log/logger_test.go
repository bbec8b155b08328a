package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"info":    slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestJSONLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Format: "json", Output: &buf}).WithComponent(ComponentChat)
	l.Info("answered", FieldIntent, "total")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if rec[FieldComponent] != ComponentChat {
		t.Fatalf("component = %v", rec[FieldComponent])
	}
	if rec[FieldIntent] != "total" {
		t.Fatalf("intent = %v", rec[FieldIntent])
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != ComponentApp {
		t.Fatalf("expected default app logger, got %+v", l)
	}
}

func TestNewContextCarriesRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Format: "json", Output: &buf})

	ctx := NewContext(context.Background(), base.With(FieldRequestID, "req-1"))
	FromContext(ctx).WithComponent(ComponentHTTP).Info("inside")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if rec[FieldRequestID] != "req-1" || rec[FieldComponent] != ComponentHTTP {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestStatusLevel(t *testing.T) {
	if StatusLevel(200) != slog.LevelInfo || StatusLevel(404) != slog.LevelWarn || StatusLevel(503) != slog.LevelError {
		t.Fatalf("unexpected status levels")
	}
}
