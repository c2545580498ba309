package v1

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fintrackhq/fintrack/internal/filter"
	"github.com/fintrackhq/fintrack/internal/insight"
	"github.com/fintrackhq/fintrack/internal/pager"
	"github.com/fintrackhq/fintrack/internal/service/expense"
	"github.com/fintrackhq/fintrack/internal/service/income"
	"github.com/fintrackhq/fintrack/internal/storage/memory"
)

func setup(t *testing.T) (*Server, uuid.UUID) {
	t.Helper()
	store := memory.New()
	p := pager.Paginator{Mode: pager.ModeOffset}
	expSvc := expense.New(store, store, p, nil)
	incSvc := income.New(store, store, p, nil)
	insSvc := insight.New(expSvc, incSvc)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(expSvc, incSvc, insSvc, store, store, Config{
		Currency: "PEN",
		Policy:   filter.Policy{MaxLimit: 100},
		Mode:     pager.ModeOffset,
	}, logger)
	return s, uuid.New()
}

func doReq(t *testing.T, s *Server, owner uuid.UUID, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if owner != uuid.Nil {
		req.Header.Set("X-User-Id", owner.String())
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// createExpense posts an expense and returns the generated id.
func createExpense(t *testing.T, s *Server, owner uuid.UUID, amount int64, eff int64) string {
	t.Helper()
	rec := doReq(t, s, owner, http.MethodPost, "/expenses", map[string]any{
		"amount_minor":   amount,
		"description":    "lunch",
		"category":       "FOOD",
		"payment_method": "CASH",
		"payment_date":   eff,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create expense: status %d body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &resp)
	if resp.ID == "" {
		t.Fatalf("create response missing id: %s", rec.Body.String())
	}
	return resp.ID
}

func getExpense(t *testing.T, s *Server, owner uuid.UUID, id string) map[string]any {
	t.Helper()
	rec := doReq(t, s, owner, http.MethodGet, "/expenses/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get expense: %d %s", rec.Code, rec.Body.String())
	}
	var got map[string]any
	decodeBody(t, rec, &got)
	return got
}

func TestIdentityRequired(t *testing.T) {
	s, _ := setup(t)
	rec := doReq(t, s, uuid.Nil, http.MethodGet, "/expenses", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/expenses", nil)
	req.Header.Set("X-User-Id", "not-a-uuid")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for malformed identity, got %d", w.Code)
	}
}

func TestExpenseRoundTrip(t *testing.T) {
	s, owner := setup(t)

	id := createExpense(t, s, owner, 2500, time.Now().UnixMilli())

	got := getExpense(t, s, owner, id)
	if got["id"] != id || got["amount_minor"].(float64) != 2500 {
		t.Errorf("round trip mismatch: %v", got)
	}
	if got["status"] != "ACTIVE" {
		t.Errorf("status = %v", got["status"])
	}
	if got["amount"] == "" {
		t.Error("formatted amount missing")
	}

	// Another owner cannot see it.
	rec := doReq(t, s, uuid.New(), http.MethodGet, "/expenses/"+id, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("cross-owner get should be 404, got %d", rec.Code)
	}
}

func TestExpenseListEnvelope(t *testing.T) {
	s, owner := setup(t)
	base := time.Now().UnixMilli()
	for i := int64(0); i < 25; i++ {
		createExpense(t, s, owner, 100, base+i)
	}

	rec := doReq(t, s, owner, http.MethodGet, "/expenses?limit=10&page=3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}
	var env struct {
		Data       []map[string]any `json:"data"`
		Pagination struct {
			TotalPages  int    `json:"total_pages"`
			Total       int    `json:"total"`
			TotalAmount string `json:"total_amount"`
		} `json:"pagination"`
	}
	decodeBody(t, rec, &env)
	if env.Pagination.Total != 25 || env.Pagination.TotalPages != 3 {
		t.Errorf("pagination math: %+v", env.Pagination)
	}
	if len(env.Data) != 5 {
		t.Errorf("page 3 of 10 over 25 should hold 5, got %d", len(env.Data))
	}
	if env.Pagination.TotalAmount == "" {
		t.Error("total amount missing")
	}

	// No limit: everything in one page.
	rec = doReq(t, s, owner, http.MethodGet, "/expenses", nil)
	decodeBody(t, rec, &env)
	if len(env.Data) != 25 || env.Pagination.TotalPages != 1 {
		t.Errorf("unlimited list: data=%d pages=%d", len(env.Data), env.Pagination.TotalPages)
	}

	// Validation failures surface as 400.
	rec = doReq(t, s, owner, http.MethodGet, "/expenses?limit=0", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("limit=0 should be 400, got %d", rec.Code)
	}
	rec = doReq(t, s, owner, http.MethodGet, "/expenses?limit=101", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("limit=101 should be 400, got %d", rec.Code)
	}
	rec = doReq(t, s, owner, http.MethodGet, "/expenses?startDate=200&endDate=100", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("inverted range should be 400, got %d", rec.Code)
	}
}

func TestExpensePatchAndDelete(t *testing.T) {
	s, owner := setup(t)
	id := createExpense(t, s, owner, 1000, time.Now().UnixMilli())

	rec := doReq(t, s, owner, http.MethodPatch, "/expenses/"+id, map[string]any{
		"amount_minor": 2000,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: %d %s", rec.Code, rec.Body.String())
	}
	var got map[string]any
	decodeBody(t, rec, &got)
	if got["amount_minor"].(float64) != 2000 {
		t.Errorf("amount not patched: %v", got)
	}
	if got["description"] != "lunch" || got["category"] != "FOOD" {
		t.Error("unpatched fields must be preserved")
	}

	// Delete requires a known reason.
	rec = doReq(t, s, owner, http.MethodDelete, "/expenses/"+id, map[string]any{"reason": "WHATEVER"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown reason should be 400, got %d", rec.Code)
	}

	rec = doReq(t, s, owner, http.MethodDelete, "/expenses/"+id, map[string]any{"reason": "DUPLICATE"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body.String())
	}
	if rec.Body.Len() != 0 {
		t.Errorf("delete body should be empty, got %q", rec.Body.String())
	}

	rec = doReq(t, s, owner, http.MethodGet, "/expenses/"+id, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete should be 404, got %d", rec.Code)
	}
	rec = doReq(t, s, owner, http.MethodDelete, "/expenses/"+id, map[string]any{"reason": "OTHER"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete should be 404, got %d", rec.Code)
	}

	// Deleted records drop out of lists.
	rec = doReq(t, s, owner, http.MethodGet, "/expenses", nil)
	var list struct {
		Data []map[string]any `json:"data"`
	}
	decodeBody(t, rec, &list)
	if len(list.Data) != 0 {
		t.Errorf("deleted expense leaked into list: %v", list.Data)
	}
}

func TestExpenseIdempotencyHeader(t *testing.T) {
	s, owner := setup(t)
	body := map[string]any{
		"amount_minor":   700,
		"category":       "FOOD",
		"payment_method": "CASH",
	}
	post := func(key string) *httptest.ResponseRecorder {
		b, _ := json.Marshal(body)
		req := httptest.NewRequest(http.MethodPost, "/expenses", bytes.NewReader(b))
		req.Header.Set("X-User-Id", owner.String())
		if key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		return rec
	}

	// First request with Idempotency-Key creates.
	rec1 := post("k-1")
	if rec1.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec1.Code, rec1.Body.String())
	}
	var e1 struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec1, &e1)

	// Second request with the same key replays: 200 and the same id.
	rec2 := post("k-1")
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200 on replay, got %d: %s", rec2.Code, rec2.Body.String())
	}
	var e2 struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec2, &e2)
	if e1.ID != e2.ID {
		t.Fatalf("idempotency mismatch: %s vs %s", e1.ID, e2.ID)
	}

	// Without the header a new record is created.
	rec3 := post("")
	if rec3.Code != http.StatusCreated {
		t.Fatalf("expected 201 without key, got %d", rec3.Code)
	}
	var e3 struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec3, &e3)
	if e3.ID == e1.ID {
		t.Fatal("expected new expense without idempotency header")
	}

	// An expense key must not replay as an income.
	ib, _ := json.Marshal(map[string]any{
		"amount_minor": 900,
		"category":     "SALARY",
		"status":       "RECEIVED",
	})
	req := httptest.NewRequest(http.MethodPost, "/incomes", bytes.NewReader(ib))
	req.Header.Set("X-User-Id", owner.String())
	req.Header.Set("Idempotency-Key", "k-1")
	rec4 := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec4, req)
	if rec4.Code != http.StatusCreated {
		t.Fatalf("income with an expense's key should create, got %d: %s", rec4.Code, rec4.Body.String())
	}
}

func TestIncomeLifecycle(t *testing.T) {
	s, owner := setup(t)

	rec := doReq(t, s, owner, http.MethodPost, "/incomes", map[string]any{
		"amount_minor": 500000,
		"description":  "september salary",
		"category":     "SALARY",
		"status":       "RECEIVED",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create income: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &created)

	rec = doReq(t, s, owner, http.MethodGet, "/incomes/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get income: %d", rec.Code)
	}
	var got map[string]any
	decodeBody(t, rec, &got)
	if got["received_date"] == nil {
		t.Error("received date should default")
	}
	if got["effective_date"] != got["received_date"] {
		t.Error("effective date should follow received date")
	}

	// Projected without a projected date is rejected.
	rec = doReq(t, s, owner, http.MethodPost, "/incomes", map[string]any{
		"amount_minor": 1000,
		"category":     "BUSINESS",
		"status":       "PROJECTED",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("projected without date should be 400, got %d", rec.Code)
	}

	rec = doReq(t, s, owner, http.MethodDelete, "/incomes/"+created.ID, map[string]any{"reason": "CANCELLED"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete income: %d", rec.Code)
	}
	rec = doReq(t, s, owner, http.MethodGet, "/incomes/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete should be 404, got %d", rec.Code)
	}
}

type summaryBody struct {
	TotalExpenses    string  `json:"total_expenses"`
	TotalIncomes     string  `json:"total_incomes"`
	Balance          string  `json:"balance"`
	ExpenseVariation float64 `json:"expense_variation_pct"`
	TopCategory      struct {
		Category string `json:"category"`
	} `json:"top_category"`
	LastExpenses []map[string]any `json:"last_expenses"`
}

func TestDashboardSummary(t *testing.T) {
	s, owner := setup(t)

	march := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC).UnixMilli()
	april := time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC).UnixMilli()
	createExpense(t, s, owner, 1000, march)
	createExpense(t, s, owner, 1500, april)

	rec := doReq(t, s, owner, http.MethodPost, "/incomes", map[string]any{
		"amount_minor":  10000,
		"category":      "SALARY",
		"status":        "RECEIVED",
		"received_date": april,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create income: %d", rec.Code)
	}

	rec = doReq(t, s, owner, http.MethodGet, "/metrics/dashboard-summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary: %d %s", rec.Code, rec.Body.String())
	}
	var sum summaryBody
	decodeBody(t, rec, &sum)
	if sum.TotalExpenses == "" || sum.TotalIncomes == "" || sum.Balance == "" {
		t.Errorf("summary totals missing: %+v", sum)
	}
	// April 1500 vs March 1000.
	if sum.ExpenseVariation != 50 {
		t.Errorf("variation = %v, want 50", sum.ExpenseVariation)
	}
	if sum.TopCategory.Category != "FOOD" {
		t.Errorf("top category = %s", sum.TopCategory.Category)
	}
	if len(sum.LastExpenses) != 2 {
		t.Errorf("last expenses: %d", len(sum.LastExpenses))
	}
}

func TestDashboardSummaryPeriod(t *testing.T) {
	s, owner := setup(t)

	march := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC).UnixMilli()
	april := time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC).UnixMilli()
	createExpense(t, s, owner, 1000, march)
	createExpense(t, s, owner, 1500, april)

	rec := doReq(t, s, owner, http.MethodGet, "/metrics/dashboard-summary?period=2026-03", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary with period: %d %s", rec.Code, rec.Body.String())
	}
	var sum summaryBody
	decodeBody(t, rec, &sum)
	if len(sum.LastExpenses) != 1 {
		t.Fatalf("period filter should keep only the March expense, got %d", len(sum.LastExpenses))
	}
	if sum.LastExpenses[0]["amount_minor"].(float64) != 1000 {
		t.Errorf("wrong record in period window: %v", sum.LastExpenses[0])
	}
	// Single month in range: no previous month to compare against.
	if sum.ExpenseVariation != 0 {
		t.Errorf("variation = %v, want 0", sum.ExpenseVariation)
	}

	rec = doReq(t, s, owner, http.MethodGet, "/metrics/dashboard-summary?period=march-2026", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed period should be 400, got %d", rec.Code)
	}
}

func TestDashboardChart(t *testing.T) {
	s, owner := setup(t)
	now := time.Now()
	createExpense(t, s, owner, 1000, now.AddDate(0, -1, 0).UnixMilli())
	createExpense(t, s, owner, 2000, now.UnixMilli())

	rec := doReq(t, s, owner, http.MethodGet, "/metrics/dashboard-chart", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("chart: %d %s", rec.Code, rec.Body.String())
	}
	var buckets []struct {
		Month    string `json:"month"`
		Expenses string `json:"expenses"`
	}
	decodeBody(t, rec, &buckets)
	if len(buckets) != 2 {
		t.Fatalf("expected 2 month buckets, got %d", len(buckets))
	}
	if buckets[0].Month >= buckets[1].Month {
		t.Error("months should ascend")
	}

	png := doReq(t, s, owner, http.MethodGet, "/metrics/dashboard-chart.png", nil)
	if png.Code != http.StatusOK {
		t.Fatalf("chart png: %d", png.Code)
	}
	if ct := png.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %s", ct)
	}
	if png.Body.Len() == 0 {
		t.Error("empty png body")
	}
}

func TestMalformedIDIs400(t *testing.T) {
	s, owner := setup(t)
	rec := doReq(t, s, owner, http.MethodGet, "/expenses/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", rec.Code)
	}
}

func TestUnknownExpenseIs404(t *testing.T) {
	s, owner := setup(t)
	rec := doReq(t, s, owner, http.MethodGet, fmt.Sprintf("/expenses/%s", uuid.New()), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSingleRouteHandler(t *testing.T) {
	s, owner := setup(t)
	h, err := s.RouteHandler("postExpenses")
	if err != nil {
		t.Fatalf("route handler: %v", err)
	}

	body, _ := json.Marshal(map[string]any{
		"amount_minor":   100,
		"category":       "FOOD",
		"payment_method": "CASH",
	})
	req := httptest.NewRequest(http.MethodPost, "/expenses", bytes.NewReader(body))
	req.Header.Set("X-User-Id", owner.String())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("single-route create: %d %s", rec.Code, rec.Body.String())
	}

	// Other routes are not mounted.
	req = httptest.NewRequest(http.MethodGet, "/expenses", nil)
	req.Header.Set("X-User-Id", owner.String())
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed && rec.Code != http.StatusNotFound {
		t.Fatalf("unmounted route should 404/405, got %d", rec.Code)
	}

	if _, err := s.RouteHandler("getNope"); err == nil {
		t.Fatal("unknown route id should error")
	}
}
