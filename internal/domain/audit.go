package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction names the point in the pipeline an audit row was written at.
type AuditAction string

const (
	ActionRequestReceived  AuditAction = "REQUEST_RECEIVED"
	ActionProcessCompleted AuditAction = "PROCESS_COMPLETED"
)

// PaymentAudit is an append-only record of the payment pipeline.
// PaymentID is nil for the REQUEST_RECEIVED row, written before the
// Payment row exists on a first-seen idempotency key.
type PaymentAudit struct {
	ID             int64
	PaymentID      *uuid.UUID
	IdempotencyKey string
	Action         AuditAction
	Payload        string // already-scrubbed JSON
	Timestamp      time.Time
}
