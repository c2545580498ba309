package expense

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fintrackhq/fintrack/internal/errs"
	"github.com/fintrackhq/fintrack/internal/events"
	"github.com/fintrackhq/fintrack/internal/filter"
	"github.com/fintrackhq/fintrack/internal/fintrack"
	"github.com/fintrackhq/fintrack/internal/pager"
)

// Repo is the read side of expense storage.
type Repo interface {
	GetExpense(ctx context.Context, owner, id uuid.UUID) (fintrack.Expense, error)
	QueryExpensesPage(ctx context.Context, owner uuid.UUID, rng fintrack.DateRange,
		limit int, start *pager.Key) ([]fintrack.Expense, *pager.Key, error)
}

// Writer is the write side of expense storage.
type Writer interface {
	InsertExpense(ctx context.Context, e fintrack.Expense) error
	UpdateExpense(ctx context.Context, e fintrack.Expense) error
}

// CreateInput carries the caller-supplied fields of a new expense.
type CreateInput struct {
	AmountMinor   int64
	Description   string
	Category      fintrack.ExpenseCategory
	PaymentMethod fintrack.PaymentMethod
	// PaymentDate defaults to the current time when nil.
	PaymentDate *int64
}

// Service owns expense lifecycle rules: validation, soft delete, the
// terminal DELETED state and event emission.
type Service struct {
	repo      Repo
	writer    Writer
	paginator pager.Paginator
	pub       events.Publisher
	now       func() time.Time
}

func New(repo Repo, writer Writer, paginator pager.Paginator, pub events.Publisher) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{repo: repo, writer: writer, paginator: paginator, pub: pub, now: time.Now}
}

// WithClock overrides the timestamp source. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func validate(e fintrack.Expense) error {
	if e.AmountMinor <= 0 {
		return fmt.Errorf("%w: amount must be positive", errs.ErrInvalid)
	}
	if !e.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", errs.ErrInvalid, e.Category)
	}
	if !e.PaymentMethod.Valid() {
		return fmt.Errorf("%w: unknown payment method %q", errs.ErrInvalid, e.PaymentMethod)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, owner uuid.UUID, in CreateInput) (fintrack.Expense, error) {
	nowMs := s.now().UnixMilli()
	e := fintrack.Expense{
		ID:              uuid.New(),
		OwnerID:         owner,
		AmountMinor:     in.AmountMinor,
		Description:     in.Description,
		Category:        in.Category,
		PaymentMethod:   in.PaymentMethod,
		PaymentDate:     nowMs,
		CreationDate:    nowMs,
		LastUpdatedDate: nowMs,
		Status:          fintrack.StatusActive,
	}
	if in.PaymentDate != nil {
		e.PaymentDate = *in.PaymentDate
	}
	if err := validate(e); err != nil {
		return fintrack.Expense{}, err
	}
	if err := s.writer.InsertExpense(ctx, e); err != nil {
		return fintrack.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	s.pub.Publish(ctx, events.Event{
		Name: events.ExpenseCreated, OwnerID: owner, RecordID: e.ID,
		AmountMinor: e.AmountMinor, OccurredAt: nowMs,
	})
	return e, nil
}

// query closes over owner and range so the paginator only deals in pages.
func (s *Service) query(owner uuid.UUID, rng fintrack.DateRange) pager.QueryFunc[fintrack.Expense] {
	return func(ctx context.Context, limit int, start *pager.Key) ([]fintrack.Expense, *pager.Key, error) {
		return s.repo.QueryExpensesPage(ctx, owner, rng, limit, start)
	}
}

func (s *Service) List(ctx context.Context, owner uuid.UUID, f filter.ListFilters) (pager.Result[fintrack.Expense], error) {
	rng := fintrack.DateRange{Start: f.StartDate, End: f.EndDate}
	req := pager.Request{Limit: f.Limit, Page: f.Page, NextToken: f.NextToken}
	return pager.List(ctx, s.paginator, s.query(owner, rng), req)
}

// ListAll drains the full scan for aggregation callers.
func (s *Service) ListAll(ctx context.Context, owner uuid.UUID, rng fintrack.DateRange) ([]fintrack.Expense, error) {
	all, err := pager.CollectAll(ctx, s.query(owner, rng), s.paginator.MaxPages)
	if err != nil {
		return nil, err
	}
	pager.Sort(all)
	return all, nil
}

func (s *Service) Get(ctx context.Context, owner, id uuid.UUID) (fintrack.Expense, error) {
	e, err := s.repo.GetExpense(ctx, owner, id)
	if err != nil {
		return fintrack.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	if e.Status == fintrack.StatusDeleted {
		return fintrack.Expense{}, errs.ErrNotFound
	}
	return e, nil
}

func (s *Service) Update(ctx context.Context, owner, id uuid.UUID, patch fintrack.ExpensePatch) (fintrack.Expense, error) {
	if patch.Empty() {
		return fintrack.Expense{}, fmt.Errorf("%w: empty patch", errs.ErrInvalid)
	}
	existing, err := s.Get(ctx, owner, id)
	if err != nil {
		return fintrack.Expense{}, err
	}
	next := patch.Apply(existing)
	if err := validate(next); err != nil {
		return fintrack.Expense{}, err
	}
	next.LastUpdatedDate = s.now().UnixMilli()
	// Conditional write: a concurrent delete between Get and here surfaces
	// as ErrNotFound from the store, never as a resurrected record.
	if err := s.writer.UpdateExpense(ctx, next); err != nil {
		return fintrack.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	s.pub.Publish(ctx, events.Event{
		Name: events.ExpenseUpdated, OwnerID: owner, RecordID: next.ID,
		AmountMinor: next.AmountMinor, OccurredAt: next.LastUpdatedDate,
	})
	return next, nil
}

func (s *Service) Delete(ctx context.Context, owner, id uuid.UUID, reason fintrack.DeleteReason) (fintrack.Expense, error) {
	if !reason.Valid() {
		return fintrack.Expense{}, fmt.Errorf("%w: unknown delete reason %q", errs.ErrInvalid, reason)
	}
	existing, err := s.Get(ctx, owner, id)
	if err != nil {
		return fintrack.Expense{}, err
	}
	nowMs := s.now().UnixMilli()
	existing.Status = fintrack.StatusDeleted
	existing.OnDelete = &fintrack.Deletion{DeletionDate: nowMs, Reason: reason}
	existing.LastUpdatedDate = nowMs
	if err := s.writer.UpdateExpense(ctx, existing); err != nil {
		return fintrack.Expense{}, fmt.Errorf("delete expense: %w", err)
	}
	s.pub.Publish(ctx, events.Event{
		Name: events.ExpenseDeleted, OwnerID: owner, RecordID: existing.ID,
		AmountMinor: existing.AmountMinor, OccurredAt: nowMs,
	})
	return existing, nil
}
