package insight

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fintrackhq/fintrack/internal/errs"
	"github.com/fintrackhq/fintrack/internal/fintrack"
	"github.com/fintrackhq/fintrack/internal/pager"
)

// ExpenseReader is the slice of the expense service the dashboard needs.
type ExpenseReader interface {
	ListAll(ctx context.Context, owner uuid.UUID, rng fintrack.DateRange) ([]fintrack.Expense, error)
}

// IncomeReader is the slice of the income service the dashboard needs.
type IncomeReader interface {
	ListAll(ctx context.Context, owner uuid.UUID, rng fintrack.DateRange) ([]fintrack.Income, error)
}

// Summary is the dashboard headline: totals, balance, month-over-month
// expense variation, the dominant expense category and the most recent
// records. Amounts are minor units.
type Summary struct {
	TotalExpensesMinor int64
	TotalIncomesMinor  int64
	BalanceMinor       int64
	ExpenseVariation   float64
	TopCategory        string
	TopCategoryMinor   int64
	LastExpenses       []fintrack.Expense
	LastIncomes        []fintrack.Income
}

// MonthBucket is one point of the dashboard chart.
type MonthBucket struct {
	Month         string
	ExpensesMinor int64
	IncomesMinor  int64
}

// Service computes dashboard aggregates from the expense and income read
// sides.
type Service struct {
	expenses ExpenseReader
	incomes  IncomeReader
	loc      *time.Location
	// lastRecords caps the recent-record lists on the summary.
	lastRecords int
	// lastMonths is the chart window.
	lastMonths int
	now        func() time.Time
}

func New(expenses ExpenseReader, incomes IncomeReader, opts ...Option) *Service {
	s := &Service{
		expenses:    expenses,
		incomes:     incomes,
		loc:         time.UTC,
		lastRecords: 5,
		lastMonths:  6,
		now:         time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type Option func(*Service)

func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithLastRecords(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.lastRecords = n
		}
	}
}

func WithLastMonths(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.lastMonths = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// MonthRange resolves a "YYYY-MM" period to the inclusive millisecond range
// of that calendar month in the configured location.
func (s *Service) MonthRange(period string) (fintrack.DateRange, error) {
	t, err := time.ParseInLocation("2006-01", period, s.loc)
	if err != nil {
		return fintrack.DateRange{}, fmt.Errorf("%w: period must be YYYY-MM", errs.ErrInvalid)
	}
	start := t.UnixMilli()
	end := t.AddDate(0, 1, 0).UnixMilli() - 1
	return fintrack.DateRange{Start: &start, End: &end}, nil
}

// fetch reads both record kinds concurrently. Either failure fails the call;
// the summary never renders from half the data.
func (s *Service) fetch(ctx context.Context, owner uuid.UUID, rng fintrack.DateRange) ([]fintrack.Expense, []fintrack.Income, error) {
	var (
		expenses []fintrack.Expense
		incomes  []fintrack.Income
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		expenses, err = s.expenses.ListAll(ctx, owner, rng)
		if err != nil {
			return fmt.Errorf("list expenses: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		incomes, err = s.incomes.ListAll(ctx, owner, rng)
		if err != nil {
			return fmt.Errorf("list incomes: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return expenses, incomes, nil
}

// Summary builds the dashboard headline over the given range. Variation
// compares the two most recent months present in the fetched expenses.
func (s *Service) Summary(ctx context.Context, owner uuid.UUID, rng fintrack.DateRange) (Summary, error) {
	expenses, incomes, err := s.fetch(ctx, owner, rng)
	if err != nil {
		return Summary{}, err
	}
	pager.Sort(expenses)
	pager.Sort(incomes)

	out := Summary{
		TotalExpensesMinor: SumMinor(expenses),
		TotalIncomesMinor:  SumMinor(incomes),
	}
	out.BalanceMinor = out.TotalIncomesMinor - out.TotalExpensesMinor
	out.TopCategory, out.TopCategoryMinor = TopCategory(expenses)

	byMonth := GroupByMonth(expenses, s.loc)
	if keys := sortedMonthKeys(byMonth); len(keys) >= 2 {
		cur := SumMinor(byMonth[keys[len(keys)-1]])
		prev := SumMinor(byMonth[keys[len(keys)-2]])
		out.ExpenseVariation = Variation(cur, prev)
	}

	out.LastExpenses = head(expenses, s.lastRecords)
	out.LastIncomes = head(incomes, s.lastRecords)
	return out, nil
}

// Chart returns per-month buckets for the trailing window, ascending by
// month. Months with no records are omitted.
func (s *Service) Chart(ctx context.Context, owner uuid.UUID) ([]MonthBucket, error) {
	now := s.now().In(s.loc)
	firstOfWindow := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc).
		AddDate(0, -(s.lastMonths - 1), 0)
	start := firstOfWindow.UnixMilli()
	end := now.UnixMilli()
	rng := fintrack.DateRange{Start: &start, End: &end}

	expenses, incomes, err := s.fetch(ctx, owner, rng)
	if err != nil {
		return nil, err
	}

	expByMonth := GroupByMonth(expenses, s.loc)
	incByMonth := GroupByMonth(incomes, s.loc)

	months := make(map[string]struct{}, len(expByMonth)+len(incByMonth))
	for k := range expByMonth {
		months[k] = struct{}{}
	}
	for k := range incByMonth {
		months[k] = struct{}{}
	}

	keys := make([]string, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buckets := make([]MonthBucket, 0, len(keys))
	for _, k := range keys {
		buckets = append(buckets, MonthBucket{
			Month:         k,
			ExpensesMinor: SumMinor(expByMonth[k]),
			IncomesMinor:  SumMinor(incByMonth[k]),
		})
	}
	return buckets, nil
}

func head[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
