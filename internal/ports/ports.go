// Package ports defines the seams spec.md §2 names: the store, the bank
// client, and the processor/registry dispatch.
package ports

import (
	"context"

	"github.com/ficmart/paygate/internal/domain"
	"github.com/google/uuid"
)

// BankClient is component A: one call to the external bank simulator,
// with retries/circuit-breaking/fallback already applied by the
// implementation (spec.md §4.1). It never returns an error to the
// caller for a transport failure — that is folded into the returned
// BankResponse's indeterminate flag.
type BankClient interface {
	ProcessPayment(ctx context.Context, req domain.BankRequest) (domain.BankResponse, error)
}

// Processor is component B's capability record (spec.md §9: polymorphic
// dispatch reimplemented as a registry of capability records).
type Processor interface {
	// Supports reports whether this processor handles the given
	// payment type (case-insensitive).
	Supports(paymentType string) bool

	// Process validates the request, calls the bank, and classifies
	// the outcome into an internal, un-filtered ProcessorResponse.
	Process(ctx context.Context, req *domain.PaymentRequest) (*domain.ProcessorResponse, error)

	// MapDetailsToResponse projects a persisted details map plus an
	// in-progress response into the merchant-safe response fields this
	// processor owns (spec.md §4.2.1).
	MapDetailsToResponse(details map[string]any, resp *domain.PaymentResponse)
}

// ProcessorRegistry is component C.
type ProcessorRegistry interface {
	// Select returns the first registered processor supporting
	// paymentType, or (nil, false) if none matches.
	Select(paymentType string) (Processor, bool)
}

// PaymentStore is component D (spec.md §4.4). Insert, Update and
// FindAndLockByIdempotencyKey run inside a transaction started by
// WithTx at SERIALIZABLE isolation. The two plain reads and InsertAudit
// are also called outside any transaction (the REQUEST_RECEIVED audit
// row is written that way).
type PaymentStore interface {
	// Insert creates a new payment row. Implementations must map a
	// unique-constraint violation on idempotency_key to
	// ErrIdempotencyKeyExists.
	Insert(ctx context.Context, p *domain.Payment) error

	// Update persists status, details, and updated_at for an existing
	// payment by ID.
	Update(ctx context.Context, p *domain.Payment) error

	// FindByID returns the payment or a domain.NotFound error.
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)

	// FindByIdempotencyKey is a non-locking read.
	FindByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error)

	// FindAndLockByIdempotencyKey acquires a write lock on the matching
	// row for the duration of the enclosing transaction.
	FindAndLockByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error)

	// InsertAudit appends an audit row.
	InsertAudit(ctx context.Context, a *domain.PaymentAudit) error

	// WithTx runs fn inside one SERIALIZABLE transaction, passing a
	// PaymentStore bound to that transaction. This is spec.md §9's
	// "explicit transaction boundary" reimplementation.
	WithTx(ctx context.Context, fn func(tx PaymentStore) error) error
}

// ErrIdempotencyKeyExists is returned by Insert when idempotency_key
// already has a row (the unique-constraint violation spec.md §3
// invariant 1 requires).
var ErrIdempotencyKeyExists = errIdempotencyKeyExists{}

type errIdempotencyKeyExists struct{}

func (errIdempotencyKeyExists) Error() string { return "idempotency key already exists" }
