// Package service is component E: the payment pipeline heart. Grounded
// on internal/core/service/authorize.go's constructor-injected shape
// and internal/application/services/authorize.go for the
// find-then-lock idempotency protocol, since the "wired" stack's own
// Authorize body was never filled in (DESIGN.md).
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ficmart/paygate/internal/domain"
	"github.com/ficmart/paygate/internal/ports"
	"github.com/google/uuid"
)

// PaymentService implements handle_payment/get_payment_by_id (spec.md
// §4.5).
type PaymentService struct {
	store    ports.PaymentStore
	registry ports.ProcessorRegistry
	logger   *slog.Logger
}

func NewPaymentService(store ports.PaymentStore, registry ports.ProcessorRegistry, logger *slog.Logger) *PaymentService {
	return &PaymentService{store: store, registry: registry, logger: logger}
}

// HandlePayment is the core state machine (spec.md §4.5). Insert,
// processor selection/execution, and the final Update all run inside
// one serializable transaction, so a validation failure discovered
// only after Insert rolls back the PENDING row along with it — the
// insert is not durable until the whole unit of work succeeds. This
// also keeps a concurrent replayer from ever observing a row this
// request's own transaction inserted but then abandoned.
//
// On a lost insert race (tx.Insert fails with
// ErrIdempotencyKeyExists), the callback returns that error
// immediately instead of issuing another statement on the same tx:
// Postgres aborts a transaction after any statement error, including
// the 23505 a unique-violation produces, so every later statement on
// that same tx/connection would fail with 25P02 ("current transaction
// is aborted") until rollback. Returning the error lets WithTx's
// deferred rollback run, then the replay read happens in a brand new
// transaction via findAndMap — the same pattern
// _examples/.../authorize.go follows: tx.Rollback(ctx) immediately on
// ErrDuplicateIdempotencyKey, then a separate read.
//
// The REQUEST_RECEIVED audit is written outside this transaction, so
// it is never rolled back — the propagation policy spec.md §7
// describes.
func (s *PaymentService) HandlePayment(ctx context.Context, idempotencyKey string, req *domain.PaymentRequest) (*domain.PaymentResponse, error) {
	s.writeAudit(ctx, nil, idempotencyKey, domain.ActionRequestReceived, scrubRequest(req))

	existing, err := s.store.FindByIdempotencyKey(ctx, idempotencyKey)
	if err != nil {
		if !isNotFound(err) {
			return nil, domain.NewUnexpectedError(err)
		}
	}
	if existing != nil {
		return s.findAndMap(ctx, idempotencyKey)
	}

	var resp *domain.PaymentResponse
	var lostRace bool
	err = s.store.WithTx(ctx, func(tx ports.PaymentStore) error {
		now := time.Now().UTC()
		payment := &domain.Payment{
			ID:             uuid.New(),
			Amount:         req.Amount,
			Currency:       req.Currency,
			Status:         domain.StatusPending,
			IdempotencyKey: idempotencyKey,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.Insert(ctx, payment); err != nil {
			if err == ports.ErrIdempotencyKeyExists {
				lostRace = true
			}
			return err
		}

		proc, ok := s.registry.Select(req.Type)
		if !ok {
			return domain.NewInvalidArgumentError(fmt.Sprintf("Unsupported payment type: %s", req.Type))
		}

		procResp, err := proc.Process(ctx, req)
		if err != nil {
			return err
		}

		payment.Status = procResp.Status
		payment.Details = processorResponseToDetails(procResp)
		payment.UpdatedAt = time.Now().UTC()
		if err := tx.Update(ctx, payment); err != nil {
			return domain.NewUnexpectedError(err)
		}

		s.writeAuditTx(ctx, tx, &payment.ID, idempotencyKey, domain.ActionProcessCompleted, marshalAny(procResp))

		resp = mapToResponse(payment, proc)
		return nil
	})
	if err != nil {
		if lostRace {
			return s.findAndMap(ctx, idempotencyKey)
		}
		if _, ok := err.(*domain.DomainError); ok {
			return nil, err
		}
		return nil, domain.NewUnexpectedError(err)
	}
	return resp, nil
}

// GetPaymentByID implements spec.md §4.5's get_payment_by_id: a plain,
// non-locking read.
func (s *PaymentService) GetPaymentByID(ctx context.Context, id uuid.UUID) (*domain.PaymentResponse, error) {
	payment, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	proc, _ := s.processorFor(payment)
	return mapToResponse(payment, proc), nil
}

// findAndMap is the replay path: a nested serializable transaction
// that takes a pessimistic row lock before projecting the stored row,
// so it observes the latest committed state even if a finalizing
// writer is mid-commit on the same row (spec.md §5).
func (s *PaymentService) findAndMap(ctx context.Context, idempotencyKey string) (*domain.PaymentResponse, error) {
	var resp *domain.PaymentResponse
	err := s.store.WithTx(ctx, func(tx ports.PaymentStore) error {
		r, err := s.mapLocked(ctx, tx, idempotencyKey)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	return resp, err
}

func (s *PaymentService) mapLocked(ctx context.Context, tx ports.PaymentStore, idempotencyKey string) (*domain.PaymentResponse, error) {
	payment, err := tx.FindAndLockByIdempotencyKey(ctx, idempotencyKey)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.NewConsistencyError("replay could not locate payment it just observed", err)
		}
		return nil, domain.NewUnexpectedError(err)
	}
	proc, _ := s.processorFor(payment)
	return mapToResponse(payment, proc), nil
}

func (s *PaymentService) processorFor(payment *domain.Payment) (ports.Processor, bool) {
	paymentType := "UNKNOWN"
	if payment.Details != nil {
		if t, ok := payment.Details["type"].(string); ok && t != "" {
			paymentType = t
		}
	}
	return s.registry.Select(paymentType)
}

// writeAudit persists an audit row outside any transaction, logging
// and swallowing a failure (spec.md §4.5.2/§7: audit failures must
// never fail the payment).
func (s *PaymentService) writeAudit(ctx context.Context, paymentID *uuid.UUID, idempotencyKey string, action domain.AuditAction, payload string) {
	err := s.store.InsertAudit(ctx, &domain.PaymentAudit{
		PaymentID:      paymentID,
		IdempotencyKey: idempotencyKey,
		Action:         action,
		Payload:        payload,
		Timestamp:      time.Now().UTC(),
	})
	if err != nil {
		s.logger.Error("failed to write audit row", "action", action, "idempotency_key", idempotencyKey, "error", err)
	}
}

func (s *PaymentService) writeAuditTx(ctx context.Context, tx ports.PaymentStore, paymentID *uuid.UUID, idempotencyKey string, action domain.AuditAction, payload string) {
	err := tx.InsertAudit(ctx, &domain.PaymentAudit{
		PaymentID:      paymentID,
		IdempotencyKey: idempotencyKey,
		Action:         action,
		Payload:        payload,
		Timestamp:      time.Now().UTC(),
	})
	if err != nil {
		s.logger.Error("failed to write audit row", "action", action, "idempotency_key", idempotencyKey, "error", err)
	}
}

// scrubRequest implements spec.md §4.5.2: card_number/cvv replaced
// before serialization, raw PAN/CVV never committed to the audit
// trail.
func scrubRequest(req *domain.PaymentRequest) string {
	scrubbed := make(map[string]any, len(req.Data))
	for k, v := range req.Data {
		scrubbed[k] = v
	}
	if _, ok := scrubbed["card_number"]; ok {
		scrubbed["card_number"] = "****"
	}
	if _, ok := scrubbed["cvv"]; ok {
		scrubbed["cvv"] = "***"
	}

	payload := map[string]any{
		"amount":   req.Amount,
		"currency": req.Currency,
		"data":     scrubbed,
	}
	return marshalAny(payload)
}

func marshalAny(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// processorResponseToDetails flattens a ProcessorResponse into the
// JSON-persisted details map (spec.md §3: "masked PAN, expiry,
// processor-provided fields, and the human-readable message").
func processorResponseToDetails(r *domain.ProcessorResponse) map[string]any {
	details := map[string]any{
		"message":            r.Message,
		"type":               r.Type,
		"masked_card_number": r.MaskedCardNumber,
		"card_type":          r.CardType,
		"expiry_month":       r.ExpiryMonth,
		"expiry_year":        r.ExpiryYear,
	}
	if r.AuthorizationCode != "" {
		details["authorization_code"] = r.AuthorizationCode
	}
	return details
}

// mapToResponse implements spec.md §4.5.1.
func mapToResponse(payment *domain.Payment, proc ports.Processor) *domain.PaymentResponse {
	resp := &domain.PaymentResponse{
		PaymentID: payment.ID.String(),
		Status:    string(payment.Status),
		Amount:    payment.Amount,
		Currency:  payment.Currency,
	}
	if payment.Details != nil {
		if proc != nil {
			proc.MapDetailsToResponse(payment.Details, resp)
		}
		if message, ok := payment.Details["message"].(string); ok {
			resp.Message = message
		}
	}
	return resp
}

func isNotFound(err error) bool {
	de, ok := err.(*domain.DomainError)
	return ok && de.Code == domain.ErrCodeNotFound
}
