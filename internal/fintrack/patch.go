package fintrack

// ExpensePatch is a merge-patch over an expense: nil fields preserve the
// existing value, non-nil fields overwrite it.
type ExpensePatch struct {
	AmountMinor   *int64
	Description   *string
	Category      *ExpenseCategory
	PaymentMethod *PaymentMethod
	PaymentDate   *int64
}

// Apply merges the patch into a copy of existing and returns it. Identity,
// ownership and audit fields are never patched.
func (p ExpensePatch) Apply(existing Expense) Expense {
	out := existing
	if p.AmountMinor != nil {
		out.AmountMinor = *p.AmountMinor
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Category != nil {
		out.Category = *p.Category
	}
	if p.PaymentMethod != nil {
		out.PaymentMethod = *p.PaymentMethod
	}
	if p.PaymentDate != nil {
		out.PaymentDate = *p.PaymentDate
	}
	return out
}

// Empty reports whether the patch carries no changes.
func (p ExpensePatch) Empty() bool {
	return p.AmountMinor == nil && p.Description == nil && p.Category == nil &&
		p.PaymentMethod == nil && p.PaymentDate == nil
}

// IncomePatch is the merge-patch counterpart for incomes.
type IncomePatch struct {
	AmountMinor   *int64
	Description   *string
	Category      *IncomeCategory
	Status        *Status
	ProjectedDate *int64
	ReceivedDate  *int64
}

// Apply merges the patch into a copy of existing, then re-derives the
// effective date since the fallback inputs may have changed.
func (p IncomePatch) Apply(existing Income) Income {
	out := existing
	if p.AmountMinor != nil {
		out.AmountMinor = *p.AmountMinor
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Category != nil {
		out.Category = *p.Category
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.ProjectedDate != nil {
		out.ProjectedDate = p.ProjectedDate
	}
	if p.ReceivedDate != nil {
		out.ReceivedDate = p.ReceivedDate
	}
	out.EffectiveDate = out.ResolveEffectiveDate()
	return out
}

func (p IncomePatch) Empty() bool {
	return p.AmountMinor == nil && p.Description == nil && p.Category == nil &&
		p.Status == nil && p.ProjectedDate == nil && p.ReceivedDate == nil
}
