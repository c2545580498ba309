package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/fintrackhq/fintrack/internal/errs"
	"github.com/fintrackhq/fintrack/internal/fintrack"
	"github.com/fintrackhq/fintrack/internal/pager"
)

// DefaultPageSize is the page served when a query passes limit <= 0. Small
// enough that multi-page continuation is the normal case, like a real
// secondary-index scan.
const DefaultPageSize = 25

// idxKey is one entry of the per-owner secondary index, ordered by effective
// date descending then id ascending.
type idxKey struct {
	eff int64
	id  uuid.UUID
}

func idxLess(a, b idxKey) bool {
	if a.eff != b.eff {
		return a.eff > b.eff
	}
	return a.id.String() < b.id.String()
}

// collection is one record kind's primary map plus its owner-scoped sorted
// index.
type collection[T fintrack.Record] struct {
	byID  map[uuid.UUID]map[uuid.UUID]T
	index map[uuid.UUID][]idxKey
}

func newCollection[T fintrack.Record]() collection[T] {
	return collection[T]{
		byID:  make(map[uuid.UUID]map[uuid.UUID]T),
		index: make(map[uuid.UUID][]idxKey),
	}
}

// insertIdx keeps the owner's index sorted with a binary-search insert.
func (c *collection[T]) insertIdx(owner uuid.UUID, k idxKey) {
	idx := c.index[owner]
	i := sort.Search(len(idx), func(i int) bool { return !idxLess(idx[i], k) })
	idx = append(idx, idxKey{})
	copy(idx[i+1:], idx[i:])
	idx[i] = k
	c.index[owner] = idx
}

func (c *collection[T]) removeIdx(owner uuid.UUID, k idxKey) {
	idx := c.index[owner]
	i := sort.Search(len(idx), func(i int) bool { return !idxLess(idx[i], k) })
	if i < len(idx) && idx[i] == k {
		c.index[owner] = append(idx[:i], idx[i+1:]...)
	}
}

func (c *collection[T]) insert(owner uuid.UUID, rec T) {
	if c.byID[owner] == nil {
		c.byID[owner] = make(map[uuid.UUID]T)
	}
	c.byID[owner][rec.RecordID()] = rec
	c.insertIdx(owner, idxKey{eff: rec.EffectiveAt(), id: rec.RecordID()})
}

func (c *collection[T]) get(owner, id uuid.UUID) (T, bool) {
	rec, ok := c.byID[owner][id]
	return rec, ok
}

// update replaces an existing record, moving its index entry when the
// effective date changed.
func (c *collection[T]) update(owner uuid.UUID, prev, next T) {
	c.byID[owner][next.RecordID()] = next
	if prev.EffectiveAt() != next.EffectiveAt() {
		c.removeIdx(owner, idxKey{eff: prev.EffectiveAt(), id: prev.RecordID()})
		c.insertIdx(owner, idxKey{eff: next.EffectiveAt(), id: next.RecordID()})
	}
}

// query walks the owner's index from just after start, applies the date
// range, skips deleted rows and returns up to limit live records plus the
// continuation key when in-range entries remain.
func (c *collection[T]) query(owner uuid.UUID, rng fintrack.DateRange, limit int,
	start *pager.Key, deleted func(T) bool) ([]T, *pager.Key) {

	if limit <= 0 {
		limit = DefaultPageSize
	}
	idx := c.index[owner]

	from := 0
	if start != nil {
		k := idxKey{eff: start.EffectiveDate, id: start.ID}
		from = sort.Search(len(idx), func(i int) bool { return !idxLess(idx[i], k) })
		if from < len(idx) && idx[from] == k {
			from++
		}
	}

	out := make([]T, 0, limit)
	for i := from; i < len(idx); i++ {
		k := idx[i]
		if rng.End != nil && k.eff > *rng.End {
			continue
		}
		if rng.Start != nil && k.eff < *rng.Start {
			// Index is effective-date descending; everything past here is
			// older than the range.
			break
		}
		if len(out) == limit {
			return out, &pager.Key{EffectiveDate: idx[i-1].eff, ID: idx[i-1].id}
		}
		rec := c.byID[owner][k.id]
		if deleted(rec) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Store is the in-memory backend. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	expenses collection[fintrack.Expense]
	incomes  collection[fintrack.Income]
	// idem: owner -> idempotency key -> record id
	idem map[uuid.UUID]map[string]uuid.UUID
}

func New() *Store {
	return &Store{
		expenses: newCollection[fintrack.Expense](),
		incomes:  newCollection[fintrack.Income](),
		idem:     make(map[uuid.UUID]map[string]uuid.UUID),
	}
}

// Ready reports storage health; the in-memory store is always ready.
func (s *Store) Ready(ctx context.Context) error { return nil }

func expenseDeleted(e fintrack.Expense) bool { return e.Status == fintrack.StatusDeleted }
func incomeDeleted(i fintrack.Income) bool   { return i.Status == fintrack.StatusDeleted }

func (s *Store) InsertExpense(ctx context.Context, e fintrack.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses.insert(e.OwnerID, e)
	return nil
}

func (s *Store) GetExpense(ctx context.Context, owner, id uuid.UUID) (fintrack.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.expenses.get(owner, id)
	if !ok {
		return fintrack.Expense{}, errs.ErrNotFound
	}
	return e, nil
}

// UpdateExpense is conditional: the row must exist and not be soft-deleted,
// otherwise ErrNotFound. Mirrors a conditional write on the primary key.
func (s *Store) UpdateExpense(ctx context.Context, e fintrack.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.expenses.get(e.OwnerID, e.ID)
	if !ok || prev.Status == fintrack.StatusDeleted {
		return errs.ErrNotFound
	}
	s.expenses.update(e.OwnerID, prev, e)
	return nil
}

func (s *Store) QueryExpensesPage(ctx context.Context, owner uuid.UUID, rng fintrack.DateRange,
	limit int, start *pager.Key) ([]fintrack.Expense, *pager.Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out, next := s.expenses.query(owner, rng, limit, start, expenseDeleted)
	return out, next, nil
}

func (s *Store) InsertIncome(ctx context.Context, in fintrack.Income) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incomes.insert(in.OwnerID, in)
	return nil
}

func (s *Store) GetIncome(ctx context.Context, owner, id uuid.UUID) (fintrack.Income, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	in, ok := s.incomes.get(owner, id)
	if !ok {
		return fintrack.Income{}, errs.ErrNotFound
	}
	return in, nil
}

func (s *Store) UpdateIncome(ctx context.Context, in fintrack.Income) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.incomes.get(in.OwnerID, in.ID)
	if !ok || prev.Status == fintrack.StatusDeleted {
		return errs.ErrNotFound
	}
	s.incomes.update(in.OwnerID, prev, in)
	return nil
}

func (s *Store) QueryIncomesPage(ctx context.Context, owner uuid.UUID, rng fintrack.DateRange,
	limit int, start *pager.Key) ([]fintrack.Income, *pager.Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out, next := s.incomes.query(owner, rng, limit, start, incomeDeleted)
	return out, next, nil
}

// GetRecordByIdempotencyKey resolves a record id previously saved under the
// owner's idempotency key.
func (s *Store) GetRecordByIdempotencyKey(ctx context.Context, owner uuid.UUID, key string) (uuid.UUID, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.idem[owner][key]
	return id, ok, nil
}

// SaveIdempotencyKey stores a mapping from (owner, key) to a record id. The
// first write wins.
func (s *Store) SaveIdempotencyKey(ctx context.Context, owner uuid.UUID, key string, recordID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idem[owner] == nil {
		s.idem[owner] = make(map[string]uuid.UUID)
	}
	if _, exists := s.idem[owner][key]; !exists {
		s.idem[owner][key] = recordID
	}
	return nil
}
