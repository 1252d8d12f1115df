package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ficmart/paygate/internal/domain"
	"github.com/ficmart/paygate/internal/ports"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Store implements ports.PaymentStore over Postgres. Grounded on
// internal/adapters/postgres/repository.go's pool-or-tx Executor
// pattern and scanPayment helper.
type Store struct {
	pool *DB
	q    Executor
}

// NewStore builds a Store bound to the pool (not a transaction).
func NewStore(db *DB) *Store {
	return &Store{pool: db, q: db.Pool}
}

func (s *Store) Insert(ctx context.Context, p *domain.Payment) error {
	details, err := json.Marshal(p.Details)
	if err != nil {
		return fmt.Errorf("marshal payment details: %w", err)
	}

	query := `
		INSERT INTO payments (id, amount, currency, status, idempotency_key, details, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.q.Exec(ctx, query,
		p.ID, p.Amount, p.Currency, p.Status, p.IdempotencyKey, details, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return ports.ErrIdempotencyKeyExists
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, p *domain.Payment) error {
	details, err := json.Marshal(p.Details)
	if err != nil {
		return fmt.Errorf("marshal payment details: %w", err)
	}

	query := `UPDATE payments SET status = $1, details = $2, updated_at = $3 WHERE id = $4`
	cmdTag, err := s.q.Exec(ctx, query, p.Status, details, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.NewNotFoundError(fmt.Sprintf("payment %s not found", p.ID))
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `
		SELECT id, amount, currency, status, idempotency_key, details, created_at, updated_at
		FROM payments WHERE id = $1
	`
	row := s.q.QueryRow(ctx, query, id)
	return scanPayment(row)
}

func (s *Store) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error) {
	query := `
		SELECT id, amount, currency, status, idempotency_key, details, created_at, updated_at
		FROM payments WHERE idempotency_key = $1
	`
	row := s.q.QueryRow(ctx, query, key)
	return scanPayment(row)
}

// FindAndLockByIdempotencyKey acquires a row lock for the life of the
// enclosing transaction, closing the race between two concurrent
// requests carrying the same idempotency key (spec.md §3 invariant 1).
func (s *Store) FindAndLockByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error) {
	query := `
		SELECT id, amount, currency, status, idempotency_key, details, created_at, updated_at
		FROM payments WHERE idempotency_key = $1
		FOR UPDATE
	`
	row := s.q.QueryRow(ctx, query, key)
	return scanPayment(row)
}

func (s *Store) InsertAudit(ctx context.Context, a *domain.PaymentAudit) error {
	query := `
		INSERT INTO payment_audit_logs (payment_id, idempotency_key, action, payload, "timestamp")
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.q.Exec(ctx, query, a.PaymentID, a.IdempotencyKey, a.Action, a.Payload, a.Timestamp)
	if err != nil {
		return fmt.Errorf("insert audit row: %w", err)
	}
	return nil
}

// WithTx runs fn inside one SERIALIZABLE transaction (spec.md §3
// invariant 1 requires either serializable isolation or a
// unique-constraint fallback; this store carries both). This is
// spec.md §9's "explicit transaction boundary" reimplementation of the
// teacher's lazily-self-referencing WithTx.
func (s *Store) WithTx(ctx context.Context, fn func(tx ports.PaymentStore) error) error {
	tx, err := s.pool.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	txStore := &Store{pool: s.pool, q: tx}
	if err := fn(txStore); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	var details []byte
	err := row.Scan(&p.ID, &p.Amount, &p.Currency, &p.Status, &p.IdempotencyKey, &details, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("payment not found")
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &p.Details); err != nil {
			return nil, fmt.Errorf("unmarshal payment details: %w", err)
		}
	}
	return &p, nil
}
