package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"expensechat/internal/cli"
	"expensechat/internal/config"
	"expensechat/internal/log"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func newCtl(t *testing.T) (*ctl, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	cfg := &config.Config{
		DataBackend:    config.BackendSQLite,
		SQLiteDBPath:   filepath.Join(t.TempDir(), "ctl.db"),
		CurrencySymbol: "₹",
	}
	logCfg := log.DefaultConfig()
	logCfg.Output = &errOut
	return &ctl{out: &out, errOut: &errOut, cfg: cfg, logger: log.New(logCfg), open: cli.NewApp}, &out, &errOut
}

func TestUsage(t *testing.T) {
	c, out, _ := newCtl(t)
	if code := c.run(context.Background(), nil); code != 0 {
		t.Fatalf("code = %d", code)
	}
	if !strings.Contains(out.String(), "Usage:") {
		t.Fatalf("no usage printed: %q", out.String())
	}
}

func TestUnknownCommand(t *testing.T) {
	c, _, errOut := newCtl(t)
	if code := c.run(context.Background(), []string{"frobnicate"}); code != 2 {
		t.Fatalf("code = %d", code)
	}
	if !strings.Contains(errOut.String(), "Unknown command: frobnicate") {
		t.Fatalf("stderr = %q", errOut.String())
	}
}

func TestCategorize(t *testing.T) {
	c, out, _ := newCtl(t)
	if code := c.run(context.Background(), []string{"categorize", "uber", "to", "airport"}); code != 0 {
		t.Fatalf("code = %d", code)
	}
	if got := strings.TrimSpace(out.String()); got != "Travel" {
		t.Fatalf("got %q", got)
	}

	if code := c.run(context.Background(), []string{"categorize"}); code != 2 {
		t.Fatalf("empty text: code = %d", code)
	}
}

func TestAddAskSummary(t *testing.T) {
	c, out, errOut := newCtl(t)
	ctx := context.Background()

	code := c.run(ctx, []string{"add", "--owner", "alice", "--amount", "12.50", "--date", "2025-10-15", "pizza", "night"})
	if code != 0 {
		t.Fatalf("add: code %d, stderr %q", code, errOut.String())
	}
	if !strings.Contains(out.String(), `Saved #1 ₹12.50 "pizza night" as Food on 2025-10-15`) {
		t.Fatalf("add output = %q", out.String())
	}

	out.Reset()
	if code := c.run(ctx, []string{"ask", "--owner", "alice", "total", "food"}); code != 0 {
		t.Fatalf("ask: code %d, stderr %q", code, errOut.String())
	}
	if got := strings.TrimSpace(out.String()); got != "Total expenses: ₹12.50" {
		t.Fatalf("ask output = %q", got)
	}

	out.Reset()
	if code := c.run(ctx, []string{"summary", "--owner", "alice", "--filter", "monthly"}); code != 0 {
		t.Fatalf("summary: code %d, stderr %q", code, errOut.String())
	}
	want := "Monthly summary for alice\nM1 15-10-2025: ₹12.50\nTotal: ₹12.50\n"
	if out.String() != want {
		t.Fatalf("summary output:\n%q\nwant\n%q", out.String(), want)
	}
}

func TestUsageErrors(t *testing.T) {
	c, _, _ := newCtl(t)
	ctx := context.Background()
	cases := [][]string{
		{"ask", "total"},
		{"add", "--owner", "alice", "pizza"},
		{"add", "--owner", "alice", "--amount", "abc", "pizza"},
		{"add", "--owner", "alice", "--amount", "1", "--category", "Toys", "pizza"},
		{"add", "--owner", "alice", "--amount", "1", "--date", "15/10/2025", "pizza"},
		{"summary"},
		{"summary", "--owner", "alice", "--filter", "hourly"},
	}
	for _, args := range cases {
		if code := c.run(ctx, args); code != 2 {
			t.Errorf("%v: code = %d, want 2", args, code)
		}
	}
}
