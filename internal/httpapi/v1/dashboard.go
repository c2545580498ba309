package v1

import (
	"net/http"

	"github.com/fintrackhq/fintrack/internal/charts"
	"github.com/fintrackhq/fintrack/internal/fintrack"
)

func (s *Server) dashboardSummary(w http.ResponseWriter, r *http.Request) {
	f := filtersFrom(r)
	rng := fintrack.DateRange{Start: f.StartDate, End: f.EndDate}
	if period := r.URL.Query().Get("period"); period != "" {
		var err error
		rng, err = s.insights.MonthRange(period)
		if err != nil {
			respondErr(w, s.log, err)
			return
		}
	}
	sum, err := s.insights.Summary(r.Context(), ownerFrom(r), rng)
	if err != nil {
		respondErr(w, s.log, err)
		return
	}

	lastExpenses := make([]expenseResponse, 0, len(sum.LastExpenses))
	for _, e := range sum.LastExpenses {
		lastExpenses = append(lastExpenses, s.toExpenseResponse(e))
	}
	lastIncomes := make([]incomeResponse, 0, len(sum.LastIncomes))
	for _, in := range sum.LastIncomes {
		lastIncomes = append(lastIncomes, s.toIncomeResponse(in))
	}

	toJSON(w, http.StatusOK, summaryResponse{
		TotalExpenses:    s.formatAmount(sum.TotalExpensesMinor),
		TotalIncomes:     s.formatAmount(sum.TotalIncomesMinor),
		Balance:          s.formatAmount(sum.BalanceMinor),
		Currency:         s.cfg.Currency,
		ExpenseVariation: sum.ExpenseVariation,
		TopCategory: topCategory{
			Category: sum.TopCategory,
			Amount:   s.formatAmount(sum.TopCategoryMinor),
		},
		LastExpenses: lastExpenses,
		LastIncomes:  lastIncomes,
	})
}

func (s *Server) dashboardChart(w http.ResponseWriter, r *http.Request) {
	buckets, err := s.insights.Chart(r.Context(), ownerFrom(r))
	if err != nil {
		respondErr(w, s.log, err)
		return
	}
	toJSON(w, http.StatusOK, s.toChartBuckets(buckets))
}

func (s *Server) dashboardChartPNG(w http.ResponseWriter, r *http.Request) {
	buckets, err := s.insights.Chart(r.Context(), ownerFrom(r))
	if err != nil {
		respondErr(w, s.log, err)
		return
	}
	if len(buckets) == 0 {
		notFound(w)
		return
	}
	png, err := charts.MonthlyPNG(buckets)
	if err != nil {
		respondErr(w, s.log, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
