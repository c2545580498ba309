// Package v1 wires the HTTP surface of the fintrack service. Handlers stay
// thin and delegate lifecycle rules to the service layer; the dispatch
// registry owns the route table.
package v1

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/fintrackhq/fintrack/internal/dispatch"
	"github.com/fintrackhq/fintrack/internal/filter"
	"github.com/fintrackhq/fintrack/internal/insight"
	"github.com/fintrackhq/fintrack/internal/pager"
	"github.com/fintrackhq/fintrack/internal/service/expense"
	"github.com/fintrackhq/fintrack/internal/service/income"
)

// ReadyChecker reports whether the storage backend can serve traffic.
type ReadyChecker interface {
	Ready(ctx context.Context) error
}

// Config carries the handler-level knobs.
type Config struct {
	Currency  string
	Policy    filter.Policy
	Mode      pager.Mode
	JWTSecret string
}

// Server composes the services behind the chi router.
type Server struct {
	expenses *expense.Service
	incomes  *income.Service
	insights *insight.Service
	ready    ReadyChecker
	idem     IdempotencyStore
	cfg      Config
	log      *slog.Logger
	reg      *dispatch.Registry
	tree     *dispatch.TreeCache
	rt       *chi.Mux
}

// New constructs the HTTP server with routes and middleware.
func New(expenses *expense.Service, incomes *income.Service, insights *insight.Service,
	ready ReadyChecker, idem IdempotencyStore, cfg Config, logger *slog.Logger) *Server {

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(metricsMiddleware)

	s := &Server{
		expenses: expenses,
		incomes:  incomes,
		insights: insights,
		ready:    ready,
		idem:     idem,
		cfg:      cfg,
		log:      logger,
		rt:       r,
	}
	s.reg = s.buildRegistry()
	s.tree = dispatch.NewTreeCache()
	for _, rt := range s.reg.Routes() {
		s.tree.ResolveResourceTree(rt.Path)
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// Registry exposes the route table for deployment tooling.
func (s *Server) Registry() *dispatch.Registry { return s.reg }

// Tree exposes the resolved resource hierarchy.
func (s *Server) Tree() *dispatch.TreeCache { return s.tree }

// buildRegistry declares every API route with its deployment metadata. The
// derived ids double as deployment unit names.
func (s *Server) buildRegistry() *dispatch.Registry {
	auth := s.authOwner
	return dispatch.NewRegistry().
		Post("/expenses", auth(s.postExpense),
			dispatch.Options{Timeout: 10 * time.Second, MemorySize: 256, Description: "Create an expense"}).
		Get("/expenses", auth(s.withListFilters(s.listExpenses)),
			dispatch.Options{Timeout: 15 * time.Second, MemorySize: 256, Description: "List expenses"}).
		Get("/expenses/{id}", auth(s.getExpense),
			dispatch.Options{Timeout: 10 * time.Second, MemorySize: 128, Description: "Fetch one expense"}).
		Patch("/expenses/{id}", auth(s.patchExpense),
			dispatch.Options{Timeout: 10 * time.Second, MemorySize: 256, Description: "Merge-patch an expense"}).
		Delete("/expenses/{id}", auth(s.deleteExpense),
			dispatch.Options{Timeout: 10 * time.Second, MemorySize: 128, Description: "Soft-delete an expense"}).
		Post("/incomes", auth(s.postIncome),
			dispatch.Options{Timeout: 10 * time.Second, MemorySize: 256, Description: "Create an income"}).
		Get("/incomes", auth(s.withListFilters(s.listIncomes)),
			dispatch.Options{Timeout: 15 * time.Second, MemorySize: 256, Description: "List incomes"}).
		Get("/incomes/{id}", auth(s.getIncome),
			dispatch.Options{Timeout: 10 * time.Second, MemorySize: 128, Description: "Fetch one income"}).
		Patch("/incomes/{id}", auth(s.patchIncome),
			dispatch.Options{Timeout: 10 * time.Second, MemorySize: 256, Description: "Merge-patch an income"}).
		Delete("/incomes/{id}", auth(s.deleteIncome),
			dispatch.Options{Timeout: 10 * time.Second, MemorySize: 128, Description: "Soft-delete an income"}).
		Get("/metrics/dashboard-summary", auth(s.withListFilters(s.dashboardSummary)),
			dispatch.Options{Timeout: 20 * time.Second, MemorySize: 512, Description: "Dashboard totals and recent records"}).
		Get("/metrics/dashboard-chart", auth(s.dashboardChart),
			dispatch.Options{Timeout: 20 * time.Second, MemorySize: 512, Description: "Monthly expense/income series"}).
		Get("/metrics/dashboard-chart.png", auth(s.dashboardChartPNG),
			dispatch.Options{Timeout: 25 * time.Second, MemorySize: 512, Description: "Monthly series rendered as PNG"})
}

// routes mounts the registered routes plus the unauthenticated aux
// endpoints.
func (s *Server) routes() {
	for _, rt := range s.reg.Routes() {
		s.rt.Method(rt.Method, rt.Path, rt.Handler)
	}
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Method(http.MethodGet, "/metrics", metricsHandler())
}

// RouteHandler serves exactly one registered route, for deployments that
// run a single route per process. Aux endpoints stay mounted so probes and
// scrapes keep working.
func (s *Server) RouteHandler(id string) (http.Handler, error) {
	def, err := s.reg.Lookup(id)
	if err != nil {
		return nil, fmt.Errorf("single-route mode: %w", err)
	}
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(s.log))
	r.Use(recoverer(s.log))
	r.Use(metricsMiddleware)
	r.Method(def.Method, def.Path, def.Handler)
	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metricsHandler())
	return r, nil
}
