package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"expensechat/internal/aggregate"
	"expensechat/internal/cache"
	"expensechat/internal/core"
	"expensechat/internal/query"
	"expensechat/internal/reply"
	"expensechat/internal/store"
	"expensechat/internal/store/memory"
)

func storeFilter(owner string) store.Filter { return store.Filter{Owner: owner} }

type countingReader struct {
	store.Reader
	calls int
	err   error
}

func (c *countingReader) Query(ctx context.Context, f store.Filter) ([]core.Expense, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.Reader.Query(ctx, f)
}

// seeded returns a store with alice's history; "today" is 2025-10-15.
func seeded(t *testing.T) *memory.Store {
	t.Helper()
	st := memory.New()
	add := func(owner string, y, m, d int, cents int64, c core.Category) {
		if _, err := st.Insert(context.Background(), core.Expense{
			Owner: owner, Title: "x", Date: core.NewDate(y, m, d), Amount: core.Money{Cents: cents}, Category: c,
		}); err != nil {
			t.Fatal(err)
		}
	}
	add("alice", 2025, 10, 15, 1000, core.Travel)
	add("alice", 2025, 10, 15, 550, core.Food)
	add("alice", 2025, 10, 14, 200, core.Food)
	add("alice", 2025, 10, 2, 3000, core.Utilities)
	add("alice", 2025, 9, 20, 4000, core.Travel)
	add("alice", 2025, 8, 1, 125, core.Food)
	add("bob", 2025, 10, 15, 99999, core.Travel)
	return st
}

func newChat(r store.Reader) *ChatService {
	c := NewChatService(r, reply.New("₹"))
	c.now = fixedNow
	return c
}

func TestAnswer(t *testing.T) {
	chat := newChat(seeded(t))
	cases := []struct {
		q      string
		intent query.Intent
		want   string
	}{
		{"Total travel expenses today", query.Total, "Total expenses: ₹10.00"},
		{"how much did I spend today", query.Total, "Total expenses: ₹15.50"},
		{"total yesterday", query.Total, "Total expenses: ₹2.00"},
		{"total this month", query.Total, "Total expenses: ₹47.50"},
		{"how much last month", query.Total, "Total expenses: ₹40.00"},
		{"total food", query.Total, "Total expenses: ₹8.75"},
		{"total sharing", query.Total, "Total expenses: ₹0.00"},
		{"spending by category this month", query.CategoryBreakdown, "Utilities: ₹30.00\nTravel: ₹10.00\nFood: ₹7.50"},
		{"categories", query.CategoryBreakdown, "Travel: ₹50.00\nUtilities: ₹30.00\nFood: ₹8.75"},
		{"categories for sharing", query.CategoryBreakdown, reply.NoExpensesText},
		{"Show food expenses this month", query.Unrecognized, reply.HelpText},
		{"hello there", query.Unrecognized, reply.HelpText},
	}
	for _, tc := range cases {
		got, err := chat.Answer(context.Background(), "alice", tc.q)
		if err != nil {
			t.Fatalf("%q: %v", tc.q, err)
		}
		if got.Intent != tc.intent {
			t.Errorf("%q: intent %v, want %v", tc.q, got.Intent, tc.intent)
		}
		if got.Text != tc.want {
			t.Errorf("%q:\n got %q\nwant %q", tc.q, got.Text, tc.want)
		}
	}
}

func TestTrendIgnoresParsedFilters(t *testing.T) {
	chat := newChat(seeded(t))
	want := "Monthly Trend: 8: ₹1.25 → 9: ₹40.00 → 10: ₹47.50"

	for _, q := range []string{"trend", "food trend today", "travel trend last month"} {
		got, err := chat.Answer(context.Background(), "alice", q)
		if err != nil {
			t.Fatal(err)
		}
		if got.Text != want {
			t.Errorf("%q: got %q, want %q", q, got.Text, want)
		}
	}

	got, _ := chat.Answer(context.Background(), "carol", "trend")
	if got.Text != "Monthly Trend: no expenses yet" {
		t.Errorf("empty trend: %q", got.Text)
	}
}

func TestUnrecognizedSkipsStore(t *testing.T) {
	r := &countingReader{Reader: seeded(t)}
	chat := newChat(r)
	if _, err := chat.Answer(context.Background(), "alice", "Show food expenses this month"); err != nil {
		t.Fatal(err)
	}
	if r.calls != 0 {
		t.Fatalf("store queried %d times for an unrecognized question", r.calls)
	}
}

func TestAnswerPropagatesStoreErrors(t *testing.T) {
	chat := newChat(&countingReader{Reader: memory.New(), err: errors.New("db gone")})
	for _, q := range []string{"total", "trend", "categories"} {
		if _, err := chat.Answer(context.Background(), "alice", q); err == nil {
			t.Errorf("%q: expected error", q)
		}
	}
}

func TestSummaryCaching(t *testing.T) {
	r := &countingReader{Reader: seeded(t)}
	sums := NewSummaryService(r, cache.NewLRUCache[aggregate.Summary](10, time.Hour))
	ctx := context.Background()

	s1, err := sums.Summary(ctx, "alice", aggregate.Month)
	if err != nil {
		t.Fatal(err)
	}
	if len(s1.Groups) != 3 || s1.Groups[0].Serial != "M1" || s1.Total.Cents != 8875 {
		t.Fatalf("unexpected summary: %+v", s1)
	}
	if _, err := sums.Summary(ctx, "alice", aggregate.Month); err != nil {
		t.Fatal(err)
	}
	if r.calls != 1 {
		t.Fatalf("expected cached second call, store hit %d times", r.calls)
	}

	if _, err := sums.Summary(ctx, "alice", aggregate.Day); err != nil {
		t.Fatal(err)
	}
	sums.Invalidate("alice")
	if _, err := sums.Summary(ctx, "alice", aggregate.Month); err != nil {
		t.Fatal(err)
	}
	if r.calls != 3 {
		t.Fatalf("expected 3 store calls, got %d", r.calls)
	}
}

func TestSummaryWithoutCache(t *testing.T) {
	r := &countingReader{Reader: seeded(t)}
	sums := NewSummaryService(r, nil)
	for i := 0; i < 2; i++ {
		s, err := sums.Summary(context.Background(), "alice", aggregate.Year)
		if err != nil || len(s.Groups) != 1 || s.Groups[0].Serial != "Y1" {
			t.Fatalf("summary = %+v, %v", s, err)
		}
	}
	if r.calls != 2 {
		t.Fatalf("calls = %d", r.calls)
	}
	sums.Invalidate("alice") // no-op without cache
}
