package v1

import (
	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/fintrackhq/fintrack/internal/fintrack"
	"github.com/fintrackhq/fintrack/internal/insight"
	"github.com/fintrackhq/fintrack/internal/pager"
)

type postExpenseRequest struct {
	AmountMinor   int64  `json:"amount_minor"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	PaymentMethod string `json:"payment_method"`
	PaymentDate   *int64 `json:"payment_date"`
}

type patchExpenseRequest struct {
	AmountMinor   *int64  `json:"amount_minor"`
	Description   *string `json:"description"`
	Category      *string `json:"category"`
	PaymentMethod *string `json:"payment_method"`
	PaymentDate   *int64  `json:"payment_date"`
}

type deleteRequest struct {
	Reason string `json:"reason"`
}

type postIncomeRequest struct {
	AmountMinor   int64  `json:"amount_minor"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	Status        string `json:"status"`
	ProjectedDate *int64 `json:"projected_date"`
	ReceivedDate  *int64 `json:"received_date"`
}

type patchIncomeRequest struct {
	AmountMinor   *int64  `json:"amount_minor"`
	Description   *string `json:"description"`
	Category      *string `json:"category"`
	Status        *string `json:"status"`
	ProjectedDate *int64  `json:"projected_date"`
	ReceivedDate  *int64  `json:"received_date"`
}

type expenseResponse struct {
	ID              uuid.UUID          `json:"id"`
	AmountMinor     int64              `json:"amount_minor"`
	Amount          string             `json:"amount"`
	Currency        string             `json:"currency"`
	Description     string             `json:"description"`
	Category        string             `json:"category"`
	PaymentMethod   string             `json:"payment_method"`
	PaymentDate     int64              `json:"payment_date"`
	CreationDate    int64              `json:"creation_date"`
	LastUpdatedDate int64              `json:"last_updated_date"`
	Status          string             `json:"status"`
	OnDelete        *fintrack.Deletion `json:"on_delete,omitempty"`
}

type incomeResponse struct {
	ID              uuid.UUID          `json:"id"`
	AmountMinor     int64              `json:"amount_minor"`
	Amount          string             `json:"amount"`
	Currency        string             `json:"currency"`
	Description     string             `json:"description"`
	Category        string             `json:"category"`
	Status          string             `json:"status"`
	ProjectedDate   *int64             `json:"projected_date,omitempty"`
	ReceivedDate    *int64             `json:"received_date,omitempty"`
	EffectiveDate   int64              `json:"effective_date"`
	CreationDate    int64              `json:"creation_date"`
	LastUpdatedDate int64              `json:"last_updated_date"`
	OnDelete        *fintrack.Deletion `json:"on_delete,omitempty"`
}

type pagination struct {
	TotalPages  int    `json:"total_pages,omitempty"`
	Total       int    `json:"total,omitempty"`
	TotalAmount string `json:"total_amount,omitempty"`
	NextToken   string `json:"next_token,omitempty"`
}

// idResponse is the create-endpoint body: the generated id only.
type idResponse struct {
	ID uuid.UUID `json:"id"`
}

type listEnvelope struct {
	Data       any        `json:"data"`
	Pagination pagination `json:"pagination"`
}

type summaryResponse struct {
	TotalExpenses    string            `json:"total_expenses"`
	TotalIncomes     string            `json:"total_incomes"`
	Balance          string            `json:"balance"`
	Currency         string            `json:"currency"`
	ExpenseVariation float64           `json:"expense_variation_pct"`
	TopCategory      topCategory       `json:"top_category"`
	LastExpenses     []expenseResponse `json:"last_expenses"`
	LastIncomes      []incomeResponse  `json:"last_incomes"`
}

type topCategory struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
}

type chartBucket struct {
	Month    string `json:"month"`
	Expenses string `json:"expenses"`
	Incomes  string `json:"incomes"`
}

// formatAmount renders minor units as a decimal string via the money
// package; arithmetic never happens on the formatted value.
func (s *Server) formatAmount(minor int64) string {
	amt, err := money.NewAmountFromMinorUnits(s.cfg.Currency, minor)
	if err != nil {
		return ""
	}
	return amt.String()
}

func (s *Server) toExpenseResponse(e fintrack.Expense) expenseResponse {
	return expenseResponse{
		ID:              e.ID,
		AmountMinor:     e.AmountMinor,
		Amount:          s.formatAmount(e.AmountMinor),
		Currency:        s.cfg.Currency,
		Description:     e.Description,
		Category:        string(e.Category),
		PaymentMethod:   string(e.PaymentMethod),
		PaymentDate:     e.PaymentDate,
		CreationDate:    e.CreationDate,
		LastUpdatedDate: e.LastUpdatedDate,
		Status:          string(e.Status),
		OnDelete:        e.OnDelete,
	}
}

func (s *Server) toIncomeResponse(in fintrack.Income) incomeResponse {
	return incomeResponse{
		ID:              in.ID,
		AmountMinor:     in.AmountMinor,
		Amount:          s.formatAmount(in.AmountMinor),
		Currency:        s.cfg.Currency,
		Description:     in.Description,
		Category:        string(in.Category),
		Status:          string(in.Status),
		ProjectedDate:   in.ProjectedDate,
		ReceivedDate:    in.ReceivedDate,
		EffectiveDate:   in.EffectiveDate,
		CreationDate:    in.CreationDate,
		LastUpdatedDate: in.LastUpdatedDate,
		OnDelete:        in.OnDelete,
	}
}

// buildPagination derives the envelope math. Total pages only exist in
// offset mode: ceil(total/limit) with a limit, one page of everything
// without, zero pages for an empty set.
func (s *Server) buildPagination(total int, totalMinor int64, nextToken string, limit *int) pagination {
	p := pagination{NextToken: nextToken}
	if s.cfg.Mode == pager.ModeCursor {
		return p
	}
	p.Total = total
	p.TotalAmount = s.formatAmount(totalMinor)
	switch {
	case total == 0:
		p.TotalPages = 0
	case limit == nil:
		p.TotalPages = 1
	default:
		p.TotalPages = (total + *limit - 1) / *limit
	}
	return p
}

func (s *Server) toChartBuckets(buckets []insight.MonthBucket) []chartBucket {
	out := make([]chartBucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, chartBucket{
			Month:    b.Month,
			Expenses: s.formatAmount(b.ExpensesMinor),
			Incomes:  s.formatAmount(b.IncomesMinor),
		})
	}
	return out
}
