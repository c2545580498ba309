package dispatch

import (
	"net/http"
	"strings"
	"testing"
)

func noop(w http.ResponseWriter, r *http.Request) {}

func TestRouteID(t *testing.T) {
	cases := []struct {
		method, path, want string
	}{
		{"PATCH", "/expenses/{id}", "patchExpensesByid"},
		{"GET", "/expenses/{id}", "getExpensesByid"},
		{"DELETE", "/expenses/{id}", "deleteExpensesByid"},
		{"POST", "/expenses", "postExpenses"},
		{"GET", "/expenses", "getExpenses"},
		{"GET", "/metrics/dashboard-summary", "getMetricsDashboard-summary"},
		{"GET", "/metrics/dashboard-chart", "getMetricsDashboard-chart"},
		{"GET", "/", "get"},
		{"POST", "incomes", "postIncomes"},
	}
	for _, c := range cases {
		if got := RouteID(c.method, c.path); got != c.want {
			t.Errorf("RouteID(%s, %s) = %q, want %q", c.method, c.path, got, c.want)
		}
	}
}

func TestRegistryOrderAndLookup(t *testing.T) {
	r := NewRegistry().
		Post("/expenses", noop, Options{Description: "create expense"}).
		Get("/expenses", noop, Options{}).
		Get("/expenses/{id}", noop, Options{}).
		Patch("/expenses/{id}", noop, Options{}).
		Delete("/expenses/{id}", noop, Options{}).
		Post("/incomes", noop, Options{}).
		Get("/incomes", noop, Options{}).
		Get("/metrics/dashboard-summary", noop, Options{MemorySize: 256}).
		Get("/metrics/dashboard-chart", noop, Options{})

	routes := r.Routes()
	if len(routes) != 9 {
		t.Fatalf("expected 9 routes, got %d", len(routes))
	}
	if routes[0].ID != "postExpenses" || routes[8].ID != "getMetricsDashboard-chart" {
		t.Fatalf("registration order not preserved: first=%s last=%s", routes[0].ID, routes[8].ID)
	}

	seen := make(map[string]bool)
	for _, rt := range routes {
		if seen[rt.ID] {
			t.Fatalf("duplicate id %q in route table", rt.ID)
		}
		seen[rt.ID] = true
	}

	def, err := r.Lookup("getMetricsDashboard-summary")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if def.Options.MemorySize != 256 {
		t.Errorf("options not carried through, got %+v", def.Options)
	}

	if _, err := r.Lookup("getNope"); err == nil {
		t.Error("expected error for unknown id")
	}
}

func TestRegistryDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate route id")
		}
	}()
	NewRegistry().
		Get("/expenses/{id}", noop, Options{}).
		Get("/expenses/{id}", noop, Options{})
}

func TestResolveResourceTreeMemoizes(t *testing.T) {
	c := NewTreeCache()
	leaf1 := c.ResolveResourceTree("/expenses/{id}")
	leaf2 := c.ResolveResourceTree("/expenses")
	leaf3 := c.ResolveResourceTree("/expenses/{id}")

	if leaf1 == nil || leaf2 == nil {
		t.Fatal("expected non-nil leaves")
	}
	if leaf1 != leaf3 {
		t.Error("same path should resolve to the same node")
	}
	if leaf1.Parent != leaf2 {
		t.Error("/expenses/{id} should hang off the /expenses node")
	}
	if c.Size() != 2 {
		t.Errorf("expected 2 distinct nodes, got %d", c.Size())
	}

	c.ResolveResourceTree("/metrics/dashboard-summary")
	c.ResolveResourceTree("/metrics/dashboard-chart")
	if c.Size() != 5 {
		t.Errorf("expected 5 distinct nodes, got %d", c.Size())
	}
	if len(c.Roots()) != 2 {
		t.Errorf("expected 2 roots, got %d", len(c.Roots()))
	}
}

func TestExtractPathParams(t *testing.T) {
	params := map[string]string{"id": "abc", "kind": "expense"}

	vals, err := ExtractPathParams(params, "kind", "id")
	if err != nil {
		t.Fatalf("ExtractPathParams: %v", err)
	}
	if vals[0] != "expense" || vals[1] != "abc" {
		t.Errorf("values out of order: %v", vals)
	}

	_, err = ExtractPathParams(params, "owner")
	if err == nil {
		t.Fatal("expected error for missing key")
	}
	if got := err.Error(); !strings.Contains(got, "owner") {
		t.Errorf("error should name the missing key, got %q", got)
	}
}
