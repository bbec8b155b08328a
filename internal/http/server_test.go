package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"expensechat/internal/aggregate"
	"expensechat/internal/cache"
	"expensechat/internal/categorize"
	"expensechat/internal/model"
	"expensechat/internal/reply"
	"expensechat/internal/services"
	"expensechat/internal/store/memory"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func newTestServer(t *testing.T, ready Pinger, ratePerMinute int, trusted ...string) *Server {
	t.Helper()
	st := memory.New()
	engine := categorize.NewEngine(model.Absent(), nil, nil)
	sums := services.NewSummaryService(st, cache.NewLRUCache[aggregate.Summary](16, time.Minute))
	srv := NewServer(":0", Deps{
		Chat:               services.NewChatService(st, reply.New("₹")),
		Expenses:           services.NewExpenseService(st, engine, nil, sums),
		Summaries:          sums,
		Categorizer:        engine,
		Ready:              ready,
		RateLimitPerMinute: ratePerMinute,
		TrustedProxies:     trusted,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, fakePinger{}, 0)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get("X-Content-Type-Options") != "nosniff" || rr.Header().Get("X-Request-ID") == "" {
			t.Fatalf("%s missing middleware headers: %v", path, rr.Header())
		}
	}

	down := newTestServer(t, fakePinger{err: errors.New("disk full")}, 0)
	if rr := do(t, down, http.MethodGet, "/readyz", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestCreateExpenseAndChat(t *testing.T) {
	srv := newTestServer(t, nil, 0)

	rr := do(t, srv, http.MethodPost, "/api/expenses",
		`{"owner":"alice","title":"uber to airport","amount":"12,50"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	created := decode[expenseResponse](t, rr)
	if created.ID != 1 || created.Category != "Travel" || created.Amount != "12.50" || created.Date == "" {
		t.Fatalf("unexpected expense: %+v", created)
	}

	rr = do(t, srv, http.MethodPost, "/api/chat", `{"owner":"alice","query":"Total travel expenses today"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("chat status=%d", rr.Code)
	}
	ans := decode[chatResponse](t, rr)
	if ans.Response != "Total expenses: ₹12.50" || ans.Intent != "total" {
		t.Fatalf("unexpected answer: %+v", ans)
	}

	rr = do(t, srv, http.MethodPost, "/api/chat", `{"owner":"alice","query":"hello"}`)
	if ans := decode[chatResponse](t, rr); ans.Response != reply.HelpText || ans.Intent != "unrecognized" {
		t.Fatalf("unexpected help answer: %+v", ans)
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	srv := newTestServer(t, nil, 0)
	cases := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"owner":`, http.StatusBadRequest},
		{"unknown field", `{"owner":"a","title":"x","amount":"1","bogus":1}`, http.StatusBadRequest},
		{"zero amount", `{"owner":"a","title":"x","amount":"0"}`, http.StatusUnprocessableEntity},
		{"negative amount", `{"owner":"a","title":"x","amount":"-3"}`, http.StatusUnprocessableEntity},
		{"missing title", `{"owner":"a","title":"  ","amount":"3"}`, http.StatusUnprocessableEntity},
		{"missing owner", `{"title":"x","amount":"3"}`, http.StatusUnprocessableEntity},
		{"bad category", `{"owner":"a","title":"x","amount":"3","category":"Groceries"}`, http.StatusUnprocessableEntity},
		{"bad date", `{"owner":"a","title":"x","amount":"3","date":"15-10-2025"}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/expenses", tc.body)
			if rr.Code != tc.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tc.want, rr.Body.String())
			}
			if decode[errorResponse](t, rr).Error == "" {
				t.Fatal("missing error message")
			}
		})
	}

	if rr := do(t, srv, http.MethodGet, "/api/expenses", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestCategorize(t *testing.T) {
	srv := newTestServer(t, nil, 0)
	for text, want := range map[string]string{
		"I had pizza today": "Food",
		"":                  "Other",
		"zzz":               "Other",
	} {
		rr := do(t, srv, http.MethodPost, "/api/categorize", `{"text":`+strconvQuote(text)+`}`)
		if got := decode[categorizeResponse](t, rr).Category; string(got) != want {
			t.Errorf("%q: got %s, want %s", text, got, want)
		}
	}
}

func TestSummary(t *testing.T) {
	srv := newTestServer(t, nil, 0)
	for _, body := range []string{
		`{"owner":"bob","title":"pizza","amount":"100.50","date":"2025-09-30"}`,
		`{"owner":"bob","title":"bus","amount":"20","date":"2025-10-01"}`,
	} {
		if rr := do(t, srv, http.MethodPost, "/api/expenses", body); rr.Code != http.StatusCreated {
			t.Fatalf("seed: %d %s", rr.Code, rr.Body.String())
		}
	}

	rr := do(t, srv, http.MethodGet, "/api/summary?owner=bob", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	sum := decode[summaryResponse](t, rr)
	if sum.Filter != "daily" || sum.Total != "120.50" || len(sum.Groups) != 2 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if g := sum.Groups[0]; g.Serial != "D1" || g.Range != "30-09-2025" || g.Total != "100.50" || g.Count != 1 {
		t.Fatalf("unexpected first group: %+v", g)
	}

	rr = do(t, srv, http.MethodGet, "/api/summary?owner=bob&filter=monthly", "")
	if sum := decode[summaryResponse](t, rr); len(sum.Groups) != 2 || sum.Groups[1].Serial != "M2" {
		t.Fatalf("unexpected monthly summary: %+v", sum)
	}

	if rr := do(t, srv, http.MethodGet, "/api/summary?owner=bob&filter=hourly", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown filter, got %d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/api/summary", ""); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 without owner, got %d", rr.Code)
	}
}

func TestRateLimitAppliesToPostOnly(t *testing.T) {
	srv := newTestServer(t, nil, 2)
	body := `{"text":"pizza"}`
	for i := 0; i < 2; i++ {
		if rr := do(t, srv, http.MethodPost, "/api/categorize", body); rr.Code != http.StatusOK {
			t.Fatalf("request %d: %d", i, rr.Code)
		}
	}
	rr := do(t, srv, http.MethodPost, "/api/categorize", body)
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 429 with Retry-After, got %d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK {
		t.Fatalf("GET must not be limited, got %d", rr.Code)
	}

	metrics := do(t, srv, http.MethodGet, "/metrics", "").Body.String()
	if !strings.Contains(metrics, "rate_limit_hits_total 1") || !strings.Contains(metrics, "http_requests_total") {
		t.Fatalf("unexpected metrics:\n%s", metrics)
	}
}

func TestTrustedProxyRateLimitsForwardedClient(t *testing.T) {
	post := func(srv *Server, forwardedFor string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/categorize", strings.NewReader(`{"text":"pizza"}`))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "203.0.113.9:41000"
		req.Header.Set("X-Forwarded-For", forwardedFor)
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, req)
		return rr.Code
	}

	// Untrusted peer: every forwarded client shares the proxy's budget.
	srv := newTestServer(t, nil, 1)
	if code := post(srv, "198.51.100.1"); code != http.StatusOK {
		t.Fatalf("first request: %d", code)
	}
	if code := post(srv, "198.51.100.2"); code != http.StatusTooManyRequests {
		t.Fatalf("untrusted proxy must not split budgets, got %d", code)
	}

	srv = newTestServer(t, nil, 1, "203.0.113.0/24", "not-a-cidr")
	if code := post(srv, "198.51.100.1"); code != http.StatusOK {
		t.Fatalf("client 1: %d", code)
	}
	if code := post(srv, "198.51.100.2"); code != http.StatusOK {
		t.Fatalf("client 2 has its own budget behind a trusted proxy, got %d", code)
	}
	if code := post(srv, "198.51.100.1"); code != http.StatusTooManyRequests {
		t.Fatalf("client 1 must be limited, got %d", code)
	}
}

func strconvQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
