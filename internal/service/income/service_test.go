package income_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fintrackhq/fintrack/internal/errs"
	"github.com/fintrackhq/fintrack/internal/fintrack"
	"github.com/fintrackhq/fintrack/internal/pager"
	"github.com/fintrackhq/fintrack/internal/service/income"
	"github.com/fintrackhq/fintrack/internal/storage/memory"
)

func setup(t *testing.T) (*income.Service, uuid.UUID) {
	t.Helper()
	store := memory.New()
	svc := income.New(store, store, pager.Paginator{Mode: pager.ModeOffset}, nil)
	return svc, uuid.New()
}

func TestCreateReceivedDefaultsReceivedDate(t *testing.T) {
	svc, owner := setup(t)
	before := time.Now().UnixMilli()

	rec, err := svc.Create(context.Background(), owner, income.CreateInput{
		AmountMinor: 500000,
		Category:    fintrack.IncomeCategorySalary,
		Status:      fintrack.StatusReceived,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.ReceivedDate == nil || *rec.ReceivedDate < before {
		t.Error("received date should default to now")
	}
	if rec.EffectiveDate != *rec.ReceivedDate {
		t.Error("effective date should come from received date")
	}
}

func TestCreateProjectedRequiresDate(t *testing.T) {
	svc, owner := setup(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, owner, income.CreateInput{
		AmountMinor: 1000,
		Category:    fintrack.IncomeCategoryBusiness,
		Status:      fintrack.StatusProjected,
	})
	if !errors.Is(err, errs.ErrInvalid) {
		t.Fatalf("projected without date should be invalid, got %v", err)
	}

	projected := time.Now().AddDate(0, 1, 0).UnixMilli()
	rec, err := svc.Create(ctx, owner, income.CreateInput{
		AmountMinor:   1000,
		Category:      fintrack.IncomeCategoryBusiness,
		Status:        fintrack.StatusProjected,
		ProjectedDate: &projected,
	})
	if err != nil {
		t.Fatalf("create projected: %v", err)
	}
	if rec.EffectiveDate != projected {
		t.Error("effective date should fall back to projected date")
	}
}

func TestPatchToReceivedRecomputesEffectiveDate(t *testing.T) {
	svc, owner := setup(t)
	ctx := context.Background()

	projected := int64(1000)
	rec, err := svc.Create(ctx, owner, income.CreateInput{
		AmountMinor:   2000,
		Category:      fintrack.IncomeCategoryGift,
		Status:        fintrack.StatusProjected,
		ProjectedDate: &projected,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	received := fintrack.StatusReceived
	got, err := svc.Update(ctx, owner, rec.ID, fintrack.IncomePatch{Status: &received})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Status != fintrack.StatusReceived {
		t.Errorf("status = %s", got.Status)
	}
	if got.ReceivedDate == nil {
		t.Fatal("received date should be defaulted on transition")
	}
	if got.EffectiveDate != *got.ReceivedDate {
		t.Error("effective date should move to the received date")
	}
}

func TestPatchCannotDelete(t *testing.T) {
	svc, owner := setup(t)
	ctx := context.Background()

	rec, err := svc.Create(ctx, owner, income.CreateInput{
		AmountMinor: 100,
		Category:    fintrack.IncomeCategoryOther,
		Status:      fintrack.StatusReceived,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	deleted := fintrack.StatusDeleted
	if _, err := svc.Update(ctx, owner, rec.ID, fintrack.IncomePatch{Status: &deleted}); !errors.Is(err, errs.ErrInvalid) {
		t.Fatalf("patching to DELETED should be rejected, got %v", err)
	}
}

func TestDeleteIsTerminal(t *testing.T) {
	svc, owner := setup(t)
	ctx := context.Background()

	rec, err := svc.Create(ctx, owner, income.CreateInput{
		AmountMinor: 100,
		Category:    fintrack.IncomeCategorySalary,
		Status:      fintrack.StatusReceived,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Delete(ctx, owner, rec.ID, fintrack.DeleteReasonCancelled); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, owner, rec.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("get after delete should be not found, got %v", err)
	}
	if _, err := svc.Delete(ctx, owner, rec.ID, fintrack.DeleteReasonOther); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("second delete should be not found, got %v", err)
	}
}
