package income

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

// Repo is the read side of income storage.
type Repo interface {
	GetIncome(ctx context.Context, owner, id uuid.UUID) (fintrack.Income, error)
	QueryIncomesPage(ctx context.Context, owner uuid.UUID, rng fintrack.DateRange,
		limit int, start *pager.Key) ([]fintrack.Income, *pager.Key, error)
}

// Writer is the write side of income storage.
type Writer interface {
	InsertIncome(ctx context.Context, in fintrack.Income) error
	UpdateIncome(ctx context.Context, in fintrack.Income) error
}

// CreateInput carries the caller-supplied fields of a new income. Status
// drives the date rules: PROJECTED requires a projected date, RECEIVED
// defaults the received date to now.
type CreateInput struct {
	AmountMinor   int64
	Description   string
	Category      fintrack.IncomeCategory
	Status        fintrack.Status
	ProjectedDate *int64
	ReceivedDate  *int64
}

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

func validate(in fintrack.Income) error {
	if in.AmountMinor <= 0 {
		return fmt.Errorf("%w: amount must be positive", errs.ErrInvalid)
	}
	if !in.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", errs.ErrInvalid, in.Category)
	}
	switch in.Status {
	case fintrack.StatusProjected:
		if in.ProjectedDate == nil {
			return fmt.Errorf("%w: projected income requires projected_date", errs.ErrInvalid)
		}
	case fintrack.StatusReceived:
	case fintrack.StatusDeleted:
	default:
		return fmt.Errorf("%w: unknown income status %q", errs.ErrInvalid, in.Status)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, owner uuid.UUID, in CreateInput) (fintrack.Income, error) {
	nowMs := s.now().UnixMilli()
	rec := fintrack.Income{
		ID:              uuid.New(),
		OwnerID:         owner,
		AmountMinor:     in.AmountMinor,
		Description:     in.Description,
		Category:        in.Category,
		Status:          in.Status,
		ProjectedDate:   in.ProjectedDate,
		ReceivedDate:    in.ReceivedDate,
		CreationDate:    nowMs,
		LastUpdatedDate: nowMs,
	}
	if rec.Status == "" {
		rec.Status = fintrack.StatusReceived
	}
	if rec.Status == fintrack.StatusReceived && rec.ReceivedDate == nil {
		rec.ReceivedDate = &nowMs
	}
	if rec.Status == fintrack.StatusDeleted {
		return fintrack.Income{}, fmt.Errorf("%w: cannot create a deleted income", errs.ErrInvalid)
	}
	if err := validate(rec); err != nil {
		return fintrack.Income{}, err
	}
	rec.EffectiveDate = rec.ResolveEffectiveDate()
	if err := s.writer.InsertIncome(ctx, rec); err != nil {
		return fintrack.Income{}, fmt.Errorf("insert income: %w", err)
	}
	s.pub.Publish(ctx, events.Event{
		Name: events.IncomeCreated, OwnerID: owner, RecordID: rec.ID,
		AmountMinor: rec.AmountMinor, OccurredAt: nowMs,
	})
	return rec, nil
}

func (s *Service) query(owner uuid.UUID, rng fintrack.DateRange) pager.QueryFunc[fintrack.Income] {
	return func(ctx context.Context, limit int, start *pager.Key) ([]fintrack.Income, *pager.Key, error) {
		return s.repo.QueryIncomesPage(ctx, owner, rng, limit, start)
	}
}

func (s *Service) List(ctx context.Context, owner uuid.UUID, f filter.ListFilters) (pager.Result[fintrack.Income], error) {
	rng := fintrack.DateRange{Start: f.StartDate, End: f.EndDate}
	req := pager.Request{Limit: f.Limit, Page: f.Page, NextToken: f.NextToken}
	return pager.List(ctx, s.paginator, s.query(owner, rng), req)
}

func (s *Service) ListAll(ctx context.Context, owner uuid.UUID, rng fintrack.DateRange) ([]fintrack.Income, error) {
	all, err := pager.CollectAll(ctx, s.query(owner, rng), s.paginator.MaxPages)
	if err != nil {
		return nil, err
	}
	pager.Sort(all)
	return all, nil
}

func (s *Service) Get(ctx context.Context, owner, id uuid.UUID) (fintrack.Income, error) {
	rec, err := s.repo.GetIncome(ctx, owner, id)
	if err != nil {
		return fintrack.Income{}, fmt.Errorf("get income: %w", err)
	}
	if rec.Status == fintrack.StatusDeleted {
		return fintrack.Income{}, errs.ErrNotFound
	}
	return rec, nil
}

func (s *Service) Update(ctx context.Context, owner, id uuid.UUID, patch fintrack.IncomePatch) (fintrack.Income, error) {
	if patch.Empty() {
		return fintrack.Income{}, fmt.Errorf("%w: empty patch", errs.ErrInvalid)
	}
	if patch.Status != nil && *patch.Status == fintrack.StatusDeleted {
		return fintrack.Income{}, fmt.Errorf("%w: deletion goes through the delete operation", errs.ErrInvalid)
	}
	existing, err := s.Get(ctx, owner, id)
	if err != nil {
		return fintrack.Income{}, err
	}
	next := patch.Apply(existing)
	if next.Status == fintrack.StatusReceived && next.ReceivedDate == nil {
		nowMs := s.now().UnixMilli()
		next.ReceivedDate = &nowMs
		next.EffectiveDate = next.ResolveEffectiveDate()
	}
	if err := validate(next); err != nil {
		return fintrack.Income{}, err
	}
	next.LastUpdatedDate = s.now().UnixMilli()
	if err := s.writer.UpdateIncome(ctx, next); err != nil {
		return fintrack.Income{}, fmt.Errorf("update income: %w", err)
	}
	s.pub.Publish(ctx, events.Event{
		Name: events.IncomeUpdated, OwnerID: owner, RecordID: next.ID,
		AmountMinor: next.AmountMinor, OccurredAt: next.LastUpdatedDate,
	})
	return next, nil
}

func (s *Service) Delete(ctx context.Context, owner, id uuid.UUID, reason fintrack.DeleteReason) (fintrack.Income, error) {
	if !reason.Valid() {
		return fintrack.Income{}, fmt.Errorf("%w: unknown delete reason %q", errs.ErrInvalid, reason)
	}
	existing, err := s.Get(ctx, owner, id)
	if err != nil {
		return fintrack.Income{}, err
	}
	nowMs := s.now().UnixMilli()
	existing.Status = fintrack.StatusDeleted
	existing.OnDelete = &fintrack.Deletion{DeletionDate: nowMs, Reason: reason}
	existing.LastUpdatedDate = nowMs
	if err := s.writer.UpdateIncome(ctx, existing); err != nil {
		return fintrack.Income{}, fmt.Errorf("delete income: %w", err)
	}
	s.pub.Publish(ctx, events.Event{
		Name: events.IncomeDeleted, OwnerID: owner, RecordID: existing.ID,
		AmountMinor: existing.AmountMinor, OccurredAt: nowMs,
	})
	return existing, nil
}
