// Package domain holds the core payment gateway types: no I/O, just the
// data model and its invariants. Its only third-party dependency is
// github.com/google/uuid for identifiers.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the lifecycle state of a Payment.
type PaymentStatus string

const (
	StatusPending               PaymentStatus = "PENDING"
	StatusAuthorized            PaymentStatus = "AUTHORIZED"
	StatusDeclined              PaymentStatus = "DECLINED"
	StatusPendingReconciliation PaymentStatus = "PENDING_RECONCILIATION"
)

// Payment is the persistent record of one merchant payment request.
type Payment struct {
	ID             uuid.UUID
	Amount         int64
	Currency       string
	Status         PaymentStatus
	IdempotencyKey string
	Details        map[string]any

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanTransitionTo enforces the one-way PENDING -> terminal state machine.
// Terminal statuses (anything but PENDING) never transition again.
func (p *Payment) CanTransitionTo(target PaymentStatus) error {
	if p.Status != StatusPending {
		return NewInvalidTransitionError(p.Status, target)
	}
	switch target {
	case StatusAuthorized, StatusDeclined, StatusPendingReconciliation:
		return nil
	default:
		return NewInvalidTransitionError(p.Status, target)
	}
}

// IsTerminal reports whether no further transition is possible.
func (p *Payment) IsTerminal() bool {
	return p.Status != StatusPending
}
