package fintrack

import (
	"github.com/google/uuid"
)

// ExpenseCategory enumerates the closed set of expense categories.
type ExpenseCategory string

const (
	ExpenseCategoryFood          ExpenseCategory = "FOOD"
	ExpenseCategoryTransport     ExpenseCategory = "TRANSPORT"
	ExpenseCategoryEntertainment ExpenseCategory = "ENTERTAINMENT"
	ExpenseCategoryUtilities     ExpenseCategory = "UTILITIES"
	ExpenseCategoryHealthcare    ExpenseCategory = "HEALTHCARE"
	ExpenseCategoryEducation     ExpenseCategory = "EDUCATION"
	ExpenseCategoryShopping      ExpenseCategory = "SHOPPING"
	ExpenseCategoryTravel        ExpenseCategory = "TRAVEL"
	ExpenseCategoryOther         ExpenseCategory = "OTHER"
)

// Valid reports whether c is a known expense category.
func (c ExpenseCategory) Valid() bool {
	switch c {
	case ExpenseCategoryFood, ExpenseCategoryTransport, ExpenseCategoryEntertainment,
		ExpenseCategoryUtilities, ExpenseCategoryHealthcare, ExpenseCategoryEducation,
		ExpenseCategoryShopping, ExpenseCategoryTravel, ExpenseCategoryOther:
		return true
	}
	return false
}

// PaymentMethod enumerates how an expense was paid.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodCreditCard   PaymentMethod = "CREDIT_CARD"
	PaymentMethodDebitCard    PaymentMethod = "DEBIT_CARD"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodYape         PaymentMethod = "YAPE"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCreditCard, PaymentMethodDebitCard,
		PaymentMethodBankTransfer, PaymentMethodYape:
		return true
	}
	return false
}

// IncomeCategory enumerates the closed set of income categories. It is
// disjoint from ExpenseCategory.
type IncomeCategory string

const (
	IncomeCategorySalary     IncomeCategory = "SALARY"
	IncomeCategoryBusiness   IncomeCategory = "BUSINESS"
	IncomeCategoryInvestment IncomeCategory = "INVESTMENT"
	IncomeCategoryGift       IncomeCategory = "GIFT"
	IncomeCategoryOther      IncomeCategory = "OTHER"
)

func (c IncomeCategory) Valid() bool {
	switch c {
	case IncomeCategorySalary, IncomeCategoryBusiness, IncomeCategoryInvestment,
		IncomeCategoryGift, IncomeCategoryOther:
		return true
	}
	return false
}

// Status is the lifecycle state of a monetary record. DELETED is terminal:
// records never transition back and never leave the store (soft delete).
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusProjected Status = "PROJECTED"
	StatusReceived  Status = "RECEIVED"
	StatusDeleted   Status = "DELETED"
)

// DeleteReason is required when soft-deleting a record.
type DeleteReason string

const (
	DeleteReasonDuplicate     DeleteReason = "DUPLICATE"
	DeleteReasonWrongAmount   DeleteReason = "WRONG_AMOUNT"
	DeleteReasonWrongCategory DeleteReason = "WRONG_CATEGORY"
	DeleteReasonCancelled     DeleteReason = "CANCELLED"
	DeleteReasonOther         DeleteReason = "OTHER"
)

func (r DeleteReason) Valid() bool {
	switch r {
	case DeleteReasonDuplicate, DeleteReasonWrongAmount, DeleteReasonWrongCategory,
		DeleteReasonCancelled, DeleteReasonOther:
		return true
	}
	return false
}

// Deletion captures the audit trail of a soft delete.
type Deletion struct {
	DeletionDate int64        `json:"deletion_date"`
	Reason       DeleteReason `json:"reason"`
}

// DateRange is an inclusive range over effective dates in epoch millis.
// Nil bounds are open ends.
type DateRange struct {
	Start *int64
	End   *int64
}

// Record is the read-side view shared by expenses and incomes. The pager and
// the aggregation engine operate on it without caring which kind they hold.
type Record interface {
	RecordID() uuid.UUID
	// EffectiveAt is the date used for ordering, range filtering and month
	// bucketing, in epoch millis.
	EffectiveAt() int64
	CreatedAt() int64
	// Amount in minor units (cents).
	Amount() int64
	CategoryCode() string
}

// Expense is a single spend record belonging to one owner.
type Expense struct {
	ID            uuid.UUID
	OwnerID       uuid.UUID
	AmountMinor   int64
	Description   string
	Category      ExpenseCategory
	PaymentMethod PaymentMethod
	// PaymentDate is the expense's effective date in epoch millis.
	PaymentDate     int64
	CreationDate    int64
	LastUpdatedDate int64
	Status          Status
	OnDelete        *Deletion
}

func (e Expense) RecordID() uuid.UUID  { return e.ID }
func (e Expense) EffectiveAt() int64   { return e.PaymentDate }
func (e Expense) CreatedAt() int64     { return e.CreationDate }
func (e Expense) Amount() int64        { return e.AmountMinor }
func (e Expense) CategoryCode() string { return string(e.Category) }

// Income is money received (or projected) by one owner.
type Income struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	AmountMinor int64
	Description string
	Category    IncomeCategory
	Status      Status
	// ProjectedDate/ReceivedDate are optional; EffectiveDate is derived from
	// them at write time (received, else projected, else creation).
	ProjectedDate   *int64
	ReceivedDate    *int64
	EffectiveDate   int64
	CreationDate    int64
	LastUpdatedDate int64
	OnDelete        *Deletion
}

func (i Income) RecordID() uuid.UUID  { return i.ID }
func (i Income) EffectiveAt() int64   { return i.EffectiveDate }
func (i Income) CreatedAt() int64     { return i.CreationDate }
func (i Income) Amount() int64        { return i.AmountMinor }
func (i Income) CategoryCode() string { return string(i.Category) }

// ResolveEffectiveDate applies the fallback chain for an income's effective
// date: received date, else projected date, else creation date.
func (i Income) ResolveEffectiveDate() int64 {
	if i.ReceivedDate != nil {
		return *i.ReceivedDate
	}
	if i.ProjectedDate != nil {
		return *i.ProjectedDate
	}
	return i.CreationDate
}
