package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"bilancio/internal/budget"
	"bilancio/internal/ids"
	"bilancio/internal/log"
	"bilancio/internal/middleware/ratelimit"
	"bilancio/internal/period"
	"bilancio/internal/storage"
	"bilancio/internal/storage/memory"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type brokenKV struct{ *memory.Store }

func (brokenKV) Set(context.Context, string, string) error { return errors.New("disk full") }

type fixture struct {
	srv   *Server
	clock *testClock
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	return newFixtureWithKV(t, memory.New(), opts...)
}

func newFixtureWithKV(t *testing.T, kv storage.KV, opts ...Option) *fixture {
	t.Helper()
	clock := &testClock{t: time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC)}
	store := budget.NewStore(kv,
		budget.WithPeriodCalculator(period.New(period.WithClock(clock.now))),
		budget.WithIDGenerator(ids.NewSequence("exp")),
	)
	srv := NewServer(":0", store, log.NewNop(), opts...)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return &fixture{srv: srv, clock: clock}
}

func (f *fixture) do(t *testing.T, method, path, form string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(form))
	if form != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rr := httptest.NewRecorder()
	f.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v (%q)", err, rr.Body.String())
	}
	return body
}

func TestHealthAndReady(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := f.do(t, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestEmptyBudget(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodGet, "/api/budget", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := decode(t, rr)
	if body["period"] != "2024-02" || body["income"] != float64(0) || body["remaining"] != float64(0) {
		t.Errorf("unexpected body %v", body)
	}
	if exp, ok := body["expenses"].([]any); !ok || len(exp) != 0 {
		t.Errorf("expenses = %v, want empty list", body["expenses"])
	}
	if _, ok := body["rollover"]; ok {
		t.Errorf("no rollover expected on a fresh budget")
	}
}

func TestBudgetScenario(t *testing.T) {
	f := newFixture(t)

	if rr := f.do(t, http.MethodPost, "/api/income", "amount=1000"); rr.Code != http.StatusOK {
		t.Fatalf("income status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr := f.do(t, http.MethodPost, "/api/expenses", "category=Rent&amount=500&note=february")
	if rr.Code != http.StatusCreated {
		t.Fatalf("expense status=%d body=%s", rr.Code, rr.Body.String())
	}
	created := decode(t, rr)
	if created["warning"] != "no_limit" {
		t.Errorf("warning = %v, want no_limit", created["warning"])
	}
	expense := created["expense"].(map[string]any)
	if expense["id"] != "exp-1" || expense["date"] != "2024-02-10" || expense["amount"] != float64(500) || expense["note"] != "february" {
		t.Errorf("unexpected expense %v", expense)
	}

	rr = f.do(t, http.MethodPost, "/api/limits", "category=Rent&limit=600")
	if rr.Code != http.StatusOK {
		t.Fatalf("limit status=%d body=%s", rr.Code, rr.Body.String())
	}

	body := decode(t, f.do(t, http.MethodGet, "/api/budget", ""))
	if body["remaining"] != float64(500) || body["total"] != float64(500) {
		t.Errorf("totals wrong: %v", body)
	}
	cats := body["categories"].([]any)
	if len(cats) != 1 {
		t.Fatalf("categories = %v", cats)
	}
	rent := cats[0].(map[string]any)
	if rent["category"] != "Rent" || rent["spent"] != float64(500) || rent["limit"] != float64(600) || rent["status"] != "ok" {
		t.Errorf("unexpected category row %v", rent)
	}
	if rent["percent"] != 83.3 {
		t.Errorf("percent = %v, want 83.3", rent["percent"])
	}
}

func TestExpenseWarnings(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/limits", "category=Food&limit=100")

	steps := []struct {
		amount string
		want   string
	}{
		{"80", "ok"},
		{"11", "near"},
		{"9", "near"},
		{"1", "over"},
	}
	for _, s := range steps {
		rr := f.do(t, http.MethodPost, "/api/expenses", "category=Food&amount="+s.amount)
		if rr.Code != http.StatusCreated {
			t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
		}
		if got := decode(t, rr)["warning"]; got != s.want {
			t.Errorf("amount %s: warning = %v, want %s", s.amount, got, s.want)
		}
	}
}

func TestAmountAcceptsComma(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodPost, "/api/income", "amount=12,34")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if got := decode(t, rr)["income"]; got != 12.34 {
		t.Errorf("income = %v, want 12.34", got)
	}
}

func TestJSONBody(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/expenses", strings.NewReader(`{"category":"Food","amount":12.5,"note":"lunch"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	f.srv.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	expense := decode(t, rr)["expense"].(map[string]any)
	if expense["amount"] != 12.5 || expense["category"] != "Food" {
		t.Errorf("unexpected expense %v", expense)
	}
}

func TestValidationErrors(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		path string
		form string
	}{
		{"non numeric income", "/api/income", "amount=abc"},
		{"negative income", "/api/income", "amount=-5"},
		{"zero income", "/api/income", "amount=0"},
		{"missing amount", "/api/income", ""},
		{"blank category", "/api/expenses", "category=+++&amount=10"},
		{"zero expense", "/api/expenses", "category=Food&amount=0"},
		{"negative limit", "/api/limits", "category=Food&limit=-1"},
		{"blank limit category", "/api/limits", "category=&limit=10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(t, http.MethodPost, tt.path, tt.form)
			if rr.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d (%s)", rr.Code, rr.Body.String())
			}
			if msg, _ := decode(t, rr)["error"].(string); msg == "" {
				t.Errorf("missing error message")
			}
		})
	}

	body := decode(t, f.do(t, http.MethodGet, "/api/budget", ""))
	if body["income"] != float64(0) || len(body["expenses"].([]any)) != 0 || len(body["categories"].([]any)) != 0 {
		t.Errorf("rejected requests changed the budget: %v", body)
	}
}

func TestMalformedJSONIsBadRequest(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/income", strings.NewReader(`{"amount":`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	f.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestWrongMethod(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		method, path, allow string
	}{
		{http.MethodGet, "/api/income", "POST"},
		{http.MethodGet, "/api/expenses", "POST"},
		{http.MethodPost, "/api/budget", "GET"},
		{http.MethodGet, "/api/expenses/exp-1", "DELETE"},
		{http.MethodGet, "/api/reset", "POST"},
	}
	for _, tt := range tests {
		rr := f.do(t, tt.method, tt.path, "")
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: expected 405, got %d", tt.method, tt.path, rr.Code)
			continue
		}
		if got := rr.Header().Get("Allow"); got != tt.allow {
			t.Errorf("%s %s: Allow = %q, want %q", tt.method, tt.path, got, tt.allow)
		}
	}
}

func TestDeleteExpense(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/expenses", "category=Food&amount=10")
	f.do(t, http.MethodPost, "/api/expenses", "category=Food&amount=20")

	for i := 0; i < 2; i++ {
		rr := f.do(t, http.MethodDelete, "/api/expenses/exp-1", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("delete %d status=%d", i, rr.Code)
		}
		body := decode(t, rr)
		if body["total"] != float64(20) || len(body["expenses"].([]any)) != 1 {
			t.Errorf("delete %d: unexpected body %v", i, body)
		}
	}
}

func TestReset(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/income", "amount=10")
	f.do(t, http.MethodPost, "/api/expenses", "category=Food&amount=5")
	f.do(t, http.MethodPost, "/api/limits", "category=Food&limit=50")

	rr := f.do(t, http.MethodPost, "/api/reset", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := decode(t, rr)
	if body["income"] != float64(0) || len(body["expenses"].([]any)) != 0 || len(body["categories"].([]any)) != 0 {
		t.Errorf("budget not reset: %v", body)
	}
}

func TestPersistenceFailureIsServiceUnavailable(t *testing.T) {
	f := newFixtureWithKV(t, brokenKV{memory.New()})

	rr := f.do(t, http.MethodPost, "/api/income", "amount=10")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d (%s)", rr.Code, rr.Body.String())
	}
	if rr := f.do(t, http.MethodGet, "/api/budget", ""); decode(t, rr)["income"] != float64(0) {
		t.Errorf("failed write must not be visible")
	}
}

func TestRolloverNoticeShownOnce(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/income", "amount=1000")

	f.clock.set(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	body := decode(t, f.do(t, http.MethodGet, "/api/budget", ""))
	notice, ok := body["rollover"].(map[string]any)
	if !ok {
		t.Fatalf("expected rollover notice, got %v", body)
	}
	if notice["previous_period"] != "2024-02" || notice["period"] != "2024-03" {
		t.Errorf("unexpected notice %v", notice)
	}
	if body["income"] != float64(0) {
		t.Errorf("new month must start empty: %v", body)
	}

	body = decode(t, f.do(t, http.MethodGet, "/api/budget", ""))
	if _, ok := body["rollover"]; ok {
		t.Errorf("rollover notice repeated: %v", body)
	}
}

func TestRateLimitOnMutations(t *testing.T) {
	f := newFixture(t, WithRateLimit(ratelimit.Config{RequestsPerMinute: 1}))

	if rr := f.do(t, http.MethodPost, "/api/income", "amount=1"); rr.Code != http.StatusOK {
		t.Fatalf("first request status=%d", rr.Code)
	}
	rr := f.do(t, http.MethodPost, "/api/income", "amount=1")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if decode(t, rr)["error"] == nil {
		t.Errorf("429 body should carry an error message")
	}
	if rr := f.do(t, http.MethodGet, "/api/budget", ""); rr.Code != http.StatusOK {
		t.Errorf("reads must not be limited, got %d", rr.Code)
	}
}

func TestUnknownPathAndHeaders(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodGet, "/nope", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("security headers missing")
	}
	if !strings.HasPrefix(rr.Header().Get("X-Request-ID"), "req_") {
		t.Errorf("request id header missing")
	}
}
