package expense_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fintrackhq/fintrack/internal/errs"
	"github.com/fintrackhq/fintrack/internal/filter"
	"github.com/fintrackhq/fintrack/internal/fintrack"
	"github.com/fintrackhq/fintrack/internal/pager"
	"github.com/fintrackhq/fintrack/internal/service/expense"
	"github.com/fintrackhq/fintrack/internal/storage/memory"
)

func setup(t *testing.T) (*expense.Service, uuid.UUID) {
	t.Helper()
	store := memory.New()
	svc := expense.New(store, store, pager.Paginator{Mode: pager.ModeOffset}, nil)
	return svc, uuid.New()
}

func create(t *testing.T, svc *expense.Service, owner uuid.UUID, amount int64, eff int64) fintrack.Expense {
	t.Helper()
	e, err := svc.Create(context.Background(), owner, expense.CreateInput{
		AmountMinor:   amount,
		Description:   "groceries",
		Category:      fintrack.ExpenseCategoryFood,
		PaymentMethod: fintrack.PaymentMethodCash,
		PaymentDate:   &eff,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return e
}

func TestCreateDefaultsAndValidates(t *testing.T) {
	svc, owner := setup(t)
	ctx := context.Background()

	before := time.Now().UnixMilli()
	e, err := svc.Create(ctx, owner, expense.CreateInput{
		AmountMinor:   1500,
		Category:      fintrack.ExpenseCategoryTransport,
		PaymentMethod: fintrack.PaymentMethodYape,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if e.PaymentDate < before {
		t.Error("payment date should default to now")
	}
	if e.Status != fintrack.StatusActive {
		t.Errorf("status = %s", e.Status)
	}

	_, err = svc.Create(ctx, owner, expense.CreateInput{
		AmountMinor:   0,
		Category:      fintrack.ExpenseCategoryFood,
		PaymentMethod: fintrack.PaymentMethodCash,
	})
	if !errors.Is(err, errs.ErrInvalid) {
		t.Errorf("zero amount should be invalid, got %v", err)
	}

	_, err = svc.Create(ctx, owner, expense.CreateInput{
		AmountMinor:   100,
		Category:      "SNACKS",
		PaymentMethod: fintrack.PaymentMethodCash,
	})
	if !errors.Is(err, errs.ErrInvalid) {
		t.Errorf("unknown category should be invalid, got %v", err)
	}
}

func TestUpdateMergePatch(t *testing.T) {
	svc, owner := setup(t)
	ctx := context.Background()
	e := create(t, svc, owner, 1000, 500)

	amount := int64(2000)
	got, err := svc.Update(ctx, owner, e.ID, fintrack.ExpensePatch{AmountMinor: &amount})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.AmountMinor != 2000 {
		t.Errorf("amount = %d", got.AmountMinor)
	}
	if got.Description != "groceries" || got.Category != fintrack.ExpenseCategoryFood {
		t.Error("unpatched fields must be preserved")
	}
	if got.ID != e.ID || got.CreationDate != e.CreationDate {
		t.Error("identity and creation date must never change")
	}

	_, err = svc.Update(ctx, owner, e.ID, fintrack.ExpensePatch{})
	if !errors.Is(err, errs.ErrInvalid) {
		t.Errorf("empty patch should be invalid, got %v", err)
	}
}

func TestDeleteIsTerminal(t *testing.T) {
	svc, owner := setup(t)
	ctx := context.Background()
	e := create(t, svc, owner, 1000, 500)

	got, err := svc.Delete(ctx, owner, e.ID, fintrack.DeleteReasonDuplicate)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got.Status != fintrack.StatusDeleted || got.OnDelete == nil {
		t.Fatalf("delete should set tombstone fields: %+v", got)
	}
	if got.OnDelete.Reason != fintrack.DeleteReasonDuplicate {
		t.Errorf("reason = %s", got.OnDelete.Reason)
	}

	if _, err := svc.Get(ctx, owner, e.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("get after delete should be not found, got %v", err)
	}
	if _, err := svc.Delete(ctx, owner, e.ID, fintrack.DeleteReasonOther); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("second delete should be not found, got %v", err)
	}
	amount := int64(5)
	if _, err := svc.Update(ctx, owner, e.ID, fintrack.ExpensePatch{AmountMinor: &amount}); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("update after delete should be not found, got %v", err)
	}

	_, err = svc.Delete(ctx, owner, e.ID, "BECAUSE")
	if !errors.Is(err, errs.ErrInvalid) {
		t.Errorf("unknown reason should be invalid, got %v", err)
	}
}

func TestListPagesAndTotals(t *testing.T) {
	svc, owner := setup(t)
	ctx := context.Background()

	for i := int64(0); i < 30; i++ {
		create(t, svc, owner, 100, 1000+i)
	}

	limit := 10
	res, err := svc.List(ctx, owner, filter.ListFilters{Limit: &limit})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.Total != 30 || res.TotalMinor != 3000 {
		t.Errorf("totals over all records: %d/%d", res.Total, res.TotalMinor)
	}
	if len(res.Data) != 10 {
		t.Fatalf("page length %d", len(res.Data))
	}
	if res.Data[0].PaymentDate != 1029 {
		t.Errorf("newest first, got eff=%d", res.Data[0].PaymentDate)
	}
}

func TestListAllDrainsEveryPage(t *testing.T) {
	svc, owner := setup(t)
	ctx := context.Background()

	// More than one default store page.
	for i := int64(0); i < 60; i++ {
		create(t, svc, owner, 10, 2000+i)
	}
	all, err := svc.ListAll(ctx, owner, fintrack.DateRange{})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 60 {
		t.Fatalf("expected 60, got %d", len(all))
	}
}
