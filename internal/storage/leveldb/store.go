// Package leveldb persists records in a local LevelDB database, emulating a
// document table with an (owner, effectiveDate) secondary index through
// composite keys.
//
// Key layout:
//
//	E/<owner>/<id>                      primary expense row (JSON)
//	e/<owner>/<^effectiveDate>/<id>     expense index entry
//	I/<owner>/<id>                      primary income row (JSON)
//	i/<owner>/<^effectiveDate>/<id>     income index entry
//	k/<owner>/<key>                     idempotency key -> record id
//
// The effective date is stored bitwise-inverted in fixed-width hex so a
// plain ascending key scan yields records newest first.
package leveldb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/fintrackhq/fintrack/internal/errs"
	"github.com/fintrackhq/fintrack/internal/fintrack"
	"github.com/fintrackhq/fintrack/internal/pager"
)

// DefaultPageSize bounds index scans when the caller passes limit <= 0.
const DefaultPageSize = 100

type Store struct {
	db *leveldb.DB
}

func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ready probes the database with a cheap property read.
func (s *Store) Ready(ctx context.Context) error {
	_, err := s.db.GetProperty("leveldb.stats")
	return err
}

func invEff(eff int64) string {
	return fmt.Sprintf("%016x", ^uint64(eff))
}

func primaryKey(kind byte, owner, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%c/%s/%s", kind, owner, id))
}

func indexKey(kind byte, owner uuid.UUID, eff int64, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%c/%s/%s/%s", kind, owner, invEff(eff), id))
}

// indexEntry recovers (eff, id) from an index key.
func indexEntry(key []byte) (int64, uuid.UUID, error) {
	parts := strings.Split(string(key), "/")
	if len(parts) != 4 {
		return 0, uuid.Nil, fmt.Errorf("malformed index key %q", key)
	}
	var inv uint64
	if _, err := fmt.Sscanf(parts[2], "%016x", &inv); err != nil {
		return 0, uuid.Nil, fmt.Errorf("malformed index date in %q: %w", key, err)
	}
	id, err := uuid.Parse(parts[3])
	if err != nil {
		return 0, uuid.Nil, fmt.Errorf("malformed index id in %q: %w", key, err)
	}
	return int64(^inv), id, nil
}

// scanRange maps a date range onto index-key bounds. Inverted dates flip the
// ends: the range end (newest) becomes the scan start.
func scanRange(kind byte, owner uuid.UUID, rng fintrack.DateRange, start *pager.Key) *util.Range {
	prefix := fmt.Sprintf("%c/%s/", kind, owner)
	lo := prefix
	hi := prefix + "\xff"
	if rng.End != nil {
		lo = prefix + invEff(*rng.End)
	}
	if rng.Start != nil {
		// One past every id under the range start's inverted date.
		hi = prefix + invEff(*rng.Start) + "/\xff"
	}
	if start != nil {
		// Resume one past the continuation entry.
		after := string(indexKey(kind, owner, start.EffectiveDate, start.ID)) + "\x00"
		if after > lo {
			lo = after
		}
	}
	return &util.Range{Start: []byte(lo), Limit: []byte(hi)}
}

type decoded interface {
	fintrack.Expense | fintrack.Income
}

func getRecord[T decoded](db *leveldb.DB, key []byte) (T, error) {
	var rec T
	raw, err := db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return rec, errs.ErrNotFound
	}
	if err != nil {
		return rec, fmt.Errorf("leveldb get: %w", err)
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return rec, fmt.Errorf("decode record %s: %w", key, err)
	}
	return rec, nil
}

func (s *Store) queryPage(kind, idxKind byte, owner uuid.UUID, rng fintrack.DateRange,
	limit int, start *pager.Key, collect func(raw []byte) (bool, error)) (*pager.Key, error) {

	if limit <= 0 {
		limit = DefaultPageSize
	}
	iter := s.db.NewIterator(scanRange(idxKind, owner, rng, start), nil)
	defer iter.Release()

	live := 0
	var lastEff int64
	var lastID uuid.UUID
	for iter.Next() {
		eff, id, err := indexEntry(iter.Key())
		if err != nil {
			return nil, err
		}
		if live == limit {
			return &pager.Key{EffectiveDate: lastEff, ID: lastID}, nil
		}
		raw, err := s.db.Get(primaryKey(kind, owner, id), nil)
		if err != nil {
			return nil, fmt.Errorf("leveldb get indexed row: %w", err)
		}
		ok, err := collect(raw)
		if err != nil {
			return nil, err
		}
		if ok {
			live++
		}
		lastEff, lastID = eff, id
	}
	return nil, iter.Error()
}

func (s *Store) InsertExpense(ctx context.Context, e fintrack.Expense) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode expense: %w", err)
	}
	batch := new(leveldb.Batch)
	batch.Put(primaryKey('E', e.OwnerID, e.ID), raw)
	batch.Put(indexKey('e', e.OwnerID, e.PaymentDate, e.ID), nil)
	return s.db.Write(batch, nil)
}

func (s *Store) GetExpense(ctx context.Context, owner, id uuid.UUID) (fintrack.Expense, error) {
	return getRecord[fintrack.Expense](s.db, primaryKey('E', owner, id))
}

// UpdateExpense rewrites the row and, when the payment date moved, relocates
// its index entry in the same batch. Missing or soft-deleted rows are
// ErrNotFound.
func (s *Store) UpdateExpense(ctx context.Context, e fintrack.Expense) error {
	prev, err := s.GetExpense(ctx, e.OwnerID, e.ID)
	if err != nil {
		return err
	}
	if prev.Status == fintrack.StatusDeleted {
		return errs.ErrNotFound
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode expense: %w", err)
	}
	batch := new(leveldb.Batch)
	batch.Put(primaryKey('E', e.OwnerID, e.ID), raw)
	if prev.PaymentDate != e.PaymentDate {
		batch.Delete(indexKey('e', e.OwnerID, prev.PaymentDate, e.ID))
		batch.Put(indexKey('e', e.OwnerID, e.PaymentDate, e.ID), nil)
	}
	return s.db.Write(batch, nil)
}

func (s *Store) QueryExpensesPage(ctx context.Context, owner uuid.UUID, rng fintrack.DateRange,
	limit int, start *pager.Key) ([]fintrack.Expense, *pager.Key, error) {

	var out []fintrack.Expense
	next, err := s.queryPage('E', 'e', owner, rng, limit, start, func(raw []byte) (bool, error) {
		var e fintrack.Expense
		if err := json.Unmarshal(raw, &e); err != nil {
			return false, fmt.Errorf("decode expense: %w", err)
		}
		if e.Status == fintrack.StatusDeleted {
			return false, nil
		}
		out = append(out, e)
		return true, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, next, nil
}

func (s *Store) InsertIncome(ctx context.Context, in fintrack.Income) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode income: %w", err)
	}
	batch := new(leveldb.Batch)
	batch.Put(primaryKey('I', in.OwnerID, in.ID), raw)
	batch.Put(indexKey('i', in.OwnerID, in.EffectiveDate, in.ID), nil)
	return s.db.Write(batch, nil)
}

func (s *Store) GetIncome(ctx context.Context, owner, id uuid.UUID) (fintrack.Income, error) {
	return getRecord[fintrack.Income](s.db, primaryKey('I', owner, id))
}

func (s *Store) UpdateIncome(ctx context.Context, in fintrack.Income) error {
	prev, err := s.GetIncome(ctx, in.OwnerID, in.ID)
	if err != nil {
		return err
	}
	if prev.Status == fintrack.StatusDeleted {
		return errs.ErrNotFound
	}
	raw, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode income: %w", err)
	}
	batch := new(leveldb.Batch)
	batch.Put(primaryKey('I', in.OwnerID, in.ID), raw)
	if prev.EffectiveDate != in.EffectiveDate {
		batch.Delete(indexKey('i', in.OwnerID, prev.EffectiveDate, in.ID))
		batch.Put(indexKey('i', in.OwnerID, in.EffectiveDate, in.ID), nil)
	}
	return s.db.Write(batch, nil)
}

func idemKey(owner uuid.UUID, key string) []byte {
	return []byte(fmt.Sprintf("k/%s/%s", owner, key))
}

// GetRecordByIdempotencyKey resolves a record id previously saved under the
// owner's idempotency key.
func (s *Store) GetRecordByIdempotencyKey(ctx context.Context, owner uuid.UUID, key string) (uuid.UUID, bool, error) {
	raw, err := s.db.Get(idemKey(owner, key), nil)
	if err == leveldb.ErrNotFound {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("leveldb get idempotency key: %w", err)
	}
	id, err := uuid.ParseBytes(raw)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("malformed idempotency mapping for %q: %w", key, err)
	}
	return id, true, nil
}

// SaveIdempotencyKey stores a mapping from (owner, key) to a record id. The
// first write wins.
func (s *Store) SaveIdempotencyKey(ctx context.Context, owner uuid.UUID, key string, recordID uuid.UUID) error {
	k := idemKey(owner, key)
	if ok, err := s.db.Has(k, nil); err != nil {
		return fmt.Errorf("leveldb check idempotency key: %w", err)
	} else if ok {
		return nil
	}
	return s.db.Put(k, []byte(recordID.String()), nil)
}

func (s *Store) QueryIncomesPage(ctx context.Context, owner uuid.UUID, rng fintrack.DateRange,
	limit int, start *pager.Key) ([]fintrack.Income, *pager.Key, error) {

	var out []fintrack.Income
	next, err := s.queryPage('I', 'i', owner, rng, limit, start, func(raw []byte) (bool, error) {
		var in fintrack.Income
		if err := json.Unmarshal(raw, &in); err != nil {
			return false, fmt.Errorf("decode income: %w", err)
		}
		if in.Status == fintrack.StatusDeleted {
			return false, nil
		}
		out = append(out, in)
		return true, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, next, nil
}
