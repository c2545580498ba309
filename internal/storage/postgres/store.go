package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fintrackhq/fintrack/internal/errs"
	"github.com/fintrackhq/fintrack/internal/fintrack"
	"github.com/fintrackhq/fintrack/internal/pager"
)

// DefaultPageSize bounds keyset queries when the caller passes limit <= 0.
const DefaultPageSize = 100

// Store is the Postgres backend. Rows are soft-deleted: status flips to
// DELETED and the deletion columns fill in, nothing is ever removed.
type Store struct {
	pool *pgxpool.Pool
}

// Open applies migrations, then connects a pgx pool and verifies it with a
// ping.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if err := runMigrations(dsn); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) Ready(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func deletionCols(rec *fintrack.Deletion) (any, any) {
	if rec == nil {
		return nil, nil
	}
	return rec.DeletionDate, string(rec.Reason)
}

func scanDeletion(date *int64, reason *string) *fintrack.Deletion {
	if date == nil {
		return nil
	}
	d := &fintrack.Deletion{DeletionDate: *date}
	if reason != nil {
		d.Reason = fintrack.DeleteReason(*reason)
	}
	return d
}

const expenseCols = `id, owner_id, amount_minor, description, category, payment_method,
	payment_date, creation_date, last_updated_date, status, deletion_date, delete_reason`

func scanExpense(row pgx.Row) (fintrack.Expense, error) {
	var (
		e            fintrack.Expense
		deletionDate *int64
		deleteReason *string
	)
	err := row.Scan(&e.ID, &e.OwnerID, &e.AmountMinor, &e.Description, &e.Category,
		&e.PaymentMethod, &e.PaymentDate, &e.CreationDate, &e.LastUpdatedDate,
		&e.Status, &deletionDate, &deleteReason)
	if err != nil {
		return fintrack.Expense{}, err
	}
	e.OnDelete = scanDeletion(deletionDate, deleteReason)
	return e, nil
}

func (s *Store) InsertExpense(ctx context.Context, e fintrack.Expense) error {
	delDate, delReason := deletionCols(e.OnDelete)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO expenses (`+expenseCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.OwnerID, e.AmountMinor, e.Description, string(e.Category),
		string(e.PaymentMethod), e.PaymentDate, e.CreationDate, e.LastUpdatedDate,
		string(e.Status), delDate, delReason)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

func (s *Store) GetExpense(ctx context.Context, owner, id uuid.UUID) (fintrack.Expense, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+expenseCols+` FROM expenses WHERE owner_id = $1 AND id = $2`,
		owner, id)
	e, err := scanExpense(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return fintrack.Expense{}, errs.ErrNotFound
	}
	if err != nil {
		return fintrack.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// UpdateExpense writes conditionally: the row must still exist and not be
// soft-deleted. Zero rows affected means the record vanished underneath the
// caller and surfaces as ErrNotFound.
func (s *Store) UpdateExpense(ctx context.Context, e fintrack.Expense) error {
	delDate, delReason := deletionCols(e.OnDelete)
	tag, err := s.pool.Exec(ctx, `
		UPDATE expenses
		SET amount_minor = $3, description = $4, category = $5, payment_method = $6,
			payment_date = $7, last_updated_date = $8, status = $9,
			deletion_date = $10, delete_reason = $11
		WHERE owner_id = $1 AND id = $2 AND status <> 'DELETED'`,
		e.OwnerID, e.ID, e.AmountMinor, e.Description, string(e.Category),
		string(e.PaymentMethod), e.PaymentDate, e.LastUpdatedDate, string(e.Status),
		delDate, delReason)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (s *Store) QueryExpensesPage(ctx context.Context, owner uuid.UUID, rng fintrack.DateRange,
	limit int, start *pager.Key) ([]fintrack.Expense, *pager.Key, error) {

	if limit <= 0 {
		limit = DefaultPageSize
	}
	query := `SELECT ` + expenseCols + ` FROM expenses
		WHERE owner_id = $1 AND status <> 'DELETED'`
	args := []any{owner}
	if rng.Start != nil {
		args = append(args, *rng.Start)
		query += fmt.Sprintf(" AND payment_date >= $%d", len(args))
	}
	if rng.End != nil {
		args = append(args, *rng.End)
		query += fmt.Sprintf(" AND payment_date <= $%d", len(args))
	}
	if start != nil {
		args = append(args, start.EffectiveDate, start.ID)
		query += fmt.Sprintf(` AND (payment_date < $%d
			OR (payment_date = $%d AND id > $%d))`, len(args)-1, len(args)-1, len(args))
	}
	args = append(args, limit+1)
	query += fmt.Sprintf(" ORDER BY payment_date DESC, id ASC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var out []fintrack.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("query expenses: %w", err)
	}
	// The extra row only signals that another page exists.
	if len(out) > limit {
		out = out[:limit]
		last := out[limit-1]
		return out, &pager.Key{EffectiveDate: last.PaymentDate, ID: last.ID}, nil
	}
	return out, nil, nil
}

const incomeCols = `id, owner_id, amount_minor, description, category, status,
	projected_date, received_date, effective_date, creation_date, last_updated_date,
	deletion_date, delete_reason`

func scanIncome(row pgx.Row) (fintrack.Income, error) {
	var (
		in           fintrack.Income
		deletionDate *int64
		deleteReason *string
	)
	err := row.Scan(&in.ID, &in.OwnerID, &in.AmountMinor, &in.Description, &in.Category,
		&in.Status, &in.ProjectedDate, &in.ReceivedDate, &in.EffectiveDate,
		&in.CreationDate, &in.LastUpdatedDate, &deletionDate, &deleteReason)
	if err != nil {
		return fintrack.Income{}, err
	}
	in.OnDelete = scanDeletion(deletionDate, deleteReason)
	return in, nil
}

func (s *Store) InsertIncome(ctx context.Context, in fintrack.Income) error {
	delDate, delReason := deletionCols(in.OnDelete)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO incomes (`+incomeCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		in.ID, in.OwnerID, in.AmountMinor, in.Description, string(in.Category),
		string(in.Status), in.ProjectedDate, in.ReceivedDate, in.EffectiveDate,
		in.CreationDate, in.LastUpdatedDate, delDate, delReason)
	if err != nil {
		return fmt.Errorf("insert income: %w", err)
	}
	return nil
}

func (s *Store) GetIncome(ctx context.Context, owner, id uuid.UUID) (fintrack.Income, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+incomeCols+` FROM incomes WHERE owner_id = $1 AND id = $2`,
		owner, id)
	in, err := scanIncome(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return fintrack.Income{}, errs.ErrNotFound
	}
	if err != nil {
		return fintrack.Income{}, fmt.Errorf("get income: %w", err)
	}
	return in, nil
}

func (s *Store) UpdateIncome(ctx context.Context, in fintrack.Income) error {
	delDate, delReason := deletionCols(in.OnDelete)
	tag, err := s.pool.Exec(ctx, `
		UPDATE incomes
		SET amount_minor = $3, description = $4, category = $5, status = $6,
			projected_date = $7, received_date = $8, effective_date = $9,
			last_updated_date = $10, deletion_date = $11, delete_reason = $12
		WHERE owner_id = $1 AND id = $2 AND status <> 'DELETED'`,
		in.OwnerID, in.ID, in.AmountMinor, in.Description, string(in.Category),
		string(in.Status), in.ProjectedDate, in.ReceivedDate, in.EffectiveDate,
		in.LastUpdatedDate, delDate, delReason)
	if err != nil {
		return fmt.Errorf("update income: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (s *Store) QueryIncomesPage(ctx context.Context, owner uuid.UUID, rng fintrack.DateRange,
	limit int, start *pager.Key) ([]fintrack.Income, *pager.Key, error) {

	if limit <= 0 {
		limit = DefaultPageSize
	}
	query := `SELECT ` + incomeCols + ` FROM incomes
		WHERE owner_id = $1 AND status <> 'DELETED'`
	args := []any{owner}
	if rng.Start != nil {
		args = append(args, *rng.Start)
		query += fmt.Sprintf(" AND effective_date >= $%d", len(args))
	}
	if rng.End != nil {
		args = append(args, *rng.End)
		query += fmt.Sprintf(" AND effective_date <= $%d", len(args))
	}
	if start != nil {
		args = append(args, start.EffectiveDate, start.ID)
		query += fmt.Sprintf(` AND (effective_date < $%d
			OR (effective_date = $%d AND id > $%d))`, len(args)-1, len(args)-1, len(args))
	}
	args = append(args, limit+1)
	query += fmt.Sprintf(" ORDER BY effective_date DESC, id ASC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("query incomes: %w", err)
	}
	defer rows.Close()

	var out []fintrack.Income
	for rows.Next() {
		in, err := scanIncome(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("scan income: %w", err)
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("query incomes: %w", err)
	}
	if len(out) > limit {
		out = out[:limit]
		last := out[limit-1]
		return out, &pager.Key{EffectiveDate: last.EffectiveDate, ID: last.ID}, nil
	}
	return out, nil, nil
}

// GetRecordByIdempotencyKey resolves a record id previously saved under the
// owner's idempotency key.
func (s *Store) GetRecordByIdempotencyKey(ctx context.Context, owner uuid.UUID, key string) (uuid.UUID, bool, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx,
		`SELECT record_id FROM idempotency_keys WHERE owner_id = $1 AND key = $2`,
		owner, key).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("get idempotency key: %w", err)
	}
	return id, true, nil
}

// SaveIdempotencyKey stores a mapping from (owner, key) to a record id. The
// first write wins.
func (s *Store) SaveIdempotencyKey(ctx context.Context, owner uuid.UUID, key string, recordID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO idempotency_keys (owner_id, key, record_id, creation_date)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (owner_id, key) DO NOTHING`,
		owner, key, recordID, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save idempotency key: %w", err)
	}
	return nil
}
