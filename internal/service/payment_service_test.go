package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/ficmart/paygate/internal/domain"
	"github.com/ficmart/paygate/internal/ports"
	"github.com/ficmart/paygate/internal/processor"
	"github.com/google/uuid"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func cardRequest() *domain.PaymentRequest {
	return &domain.PaymentRequest{
		Type:     "CARD",
		Amount:   1000,
		Currency: "USD",
		Data: map[string]any{
			"card_number":  "4234567890123456",
			"cvv":          "123",
			"expiry_month": 12,
			"expiry_year":  2030,
		},
	}
}

func TestHandlePayment_Success(t *testing.T) {
	store := NewMockStore()
	bank := &MockBankClient{}
	registry := processor.NewRegistry(processor.NewCardProcessor(bank))
	svc := NewPaymentService(store, registry, testLogger())

	resp, err := svc.HandlePayment(context.Background(), "idem-1", cardRequest())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.Status != string(domain.StatusAuthorized) {
		t.Errorf("expected AUTHORIZED, got %s", resp.Status)
	}
	if resp.LastFourCardDigits != "3456" {
		t.Errorf("expected last four 3456, got %s", resp.LastFourCardDigits)
	}
	if store.AuditCount() != 2 {
		t.Errorf("expected 2 audit rows, got %d", store.AuditCount())
	}
}

func TestHandlePayment_Replay(t *testing.T) {
	store := NewMockStore()
	bank := &MockBankClient{}
	registry := processor.NewRegistry(processor.NewCardProcessor(bank))
	svc := NewPaymentService(store, registry, testLogger())

	ctx := context.Background()
	first, err := svc.HandlePayment(ctx, "idem-2", cardRequest())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	second, err := svc.HandlePayment(ctx, "idem-2", cardRequest())
	if err != nil {
		t.Fatalf("expected no error on replay, got %v", err)
	}

	if first.PaymentID != second.PaymentID {
		t.Errorf("expected same payment_id on replay, got %s and %s", first.PaymentID, second.PaymentID)
	}
	if bank.Calls() != 1 {
		t.Errorf("expected bank to be called exactly once, got %d", bank.Calls())
	}
	if store.AuditCount() != 3 {
		t.Errorf("expected 3 audit rows (2 initial + 1 replay request-received), got %d", store.AuditCount())
	}
}

func TestHandlePayment_UnsupportedType(t *testing.T) {
	store := NewMockStore()
	registry := processor.NewRegistry(processor.NewCardProcessor(&MockBankClient{}))
	svc := NewPaymentService(store, registry, testLogger())

	req := cardRequest()
	req.Type = "CRYPTO"

	_, err := svc.HandlePayment(context.Background(), "idem-3", req)
	if err == nil {
		t.Fatal("expected error for unsupported type")
	}
	de, ok := err.(*domain.DomainError)
	if !ok || de.Code != domain.ErrCodeInvalidArgument {
		t.Errorf("expected InvalidArgument error, got %v", err)
	}

	// Insert and processor dispatch share one transaction, so a
	// validation failure rolls the insert back too: no row survives to
	// consume the idempotency key (spec.md §7).
	_, findErr := store.FindByIdempotencyKey(context.Background(), "idem-3")
	if findErr == nil {
		t.Fatal("expected no row to remain after a rolled-back transaction")
	}
	de, ok = findErr.(*domain.DomainError)
	if !ok || de.Code != domain.ErrCodeNotFound {
		t.Errorf("expected NotFound, got %v", findErr)
	}
}

// TestHandlePayment_LostInsertRace exercises the branch where this
// request's own Insert loses the unique-constraint race to a
// concurrent winner. The loser must replay the winner's already
// committed payment, not surface a 500 — the doomed transaction must
// never be reused for the replay read.
func TestHandlePayment_LostInsertRace(t *testing.T) {
	store := NewMockStore()
	winnerID := uuid.New()
	winner := &domain.Payment{
		ID:             winnerID,
		Amount:         1000,
		Currency:       "USD",
		Status:         domain.StatusAuthorized,
		IdempotencyKey: "idem-race-unit",
		Details:        map[string]any{"type": "CARD", "masked_card_number": "**** **** **** 3456", "message": "Success"},
	}

	var findCalls int
	store.FindByIdempotencyKeyFn = func(ctx context.Context, key string) (*domain.Payment, error) {
		findCalls++
		if findCalls == 1 {
			// The pre-insert check races ahead of the concurrent winner:
			// nothing has committed yet from this request's view.
			return nil, domain.NewNotFoundError("payment not found")
		}
		return winner, nil
	}
	store.InsertFn = func(ctx context.Context, p *domain.Payment) error {
		// By the time this request's transaction tries to insert, the
		// concurrent winner has already committed under the same key.
		return ports.ErrIdempotencyKeyExists
	}

	registry := processor.NewRegistry(processor.NewCardProcessor(&MockBankClient{}))
	svc := NewPaymentService(store, registry, testLogger())

	resp, err := svc.HandlePayment(context.Background(), "idem-race-unit", cardRequest())
	if err != nil {
		t.Fatalf("expected the loser to replay the winner's payment without error, got %v", err)
	}
	if resp.PaymentID != winnerID.String() {
		t.Errorf("expected payment_id %s, got %s", winnerID, resp.PaymentID)
	}
	if resp.Status != string(domain.StatusAuthorized) {
		t.Errorf("expected AUTHORIZED, got %s", resp.Status)
	}
}

func TestHandlePayment_Indeterminate(t *testing.T) {
	store := NewMockStore()
	bank := &MockBankClient{
		ProcessPaymentFn: func(ctx context.Context, req domain.BankRequest) (domain.BankResponse, error) {
			return domain.BankResponse{"indeterminate": true}, nil
		},
	}
	registry := processor.NewRegistry(processor.NewCardProcessor(bank))
	svc := NewPaymentService(store, registry, testLogger())

	resp, err := svc.HandlePayment(context.Background(), "idem-4", cardRequest())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.Status != string(domain.StatusPendingReconciliation) {
		t.Errorf("expected PENDING_RECONCILIATION, got %s", resp.Status)
	}
	if resp.Message != "Bank timeout" {
		t.Errorf("expected message 'Bank timeout', got %s", resp.Message)
	}
}

func TestGetPaymentByID_NotFound(t *testing.T) {
	store := NewMockStore()
	registry := processor.NewRegistry(processor.NewCardProcessor(&MockBankClient{}))
	svc := NewPaymentService(store, registry, testLogger())

	_, err := svc.GetPaymentByID(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected not-found error")
	}
	de, ok := err.(*domain.DomainError)
	if !ok || de.Code != domain.ErrCodeNotFound {
		t.Errorf("expected NotFound error, got %v", err)
	}
}
