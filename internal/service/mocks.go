package service

import (
	"context"
	"sync"

	"github.com/ficmart/paygate/internal/domain"
	"github.com/ficmart/paygate/internal/ports"
	"github.com/google/uuid"
)

// MockStore is a fake ports.PaymentStore with per-method overrides,
// grounded on internal/core/service/mocks.go's Fn-field pattern.
type MockStore struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	payments map[uuid.UUID]*domain.Payment
	byKey    map[string]uuid.UUID
	audits   []*domain.PaymentAudit

	InsertFn                      func(ctx context.Context, p *domain.Payment) error
	UpdateFn                      func(ctx context.Context, p *domain.Payment) error
	FindByIDFn                    func(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	FindByIdempotencyKeyFn        func(ctx context.Context, key string) (*domain.Payment, error)
	FindAndLockByIdempotencyKeyFn func(ctx context.Context, key string) (*domain.Payment, error)
	WithTxFn                      func(ctx context.Context, fn func(tx ports.PaymentStore) error) error
}

func NewMockStore() *MockStore {
	return &MockStore{
		payments: make(map[uuid.UUID]*domain.Payment),
		byKey:    make(map[string]uuid.UUID),
	}
}

func (m *MockStore) Insert(ctx context.Context, p *domain.Payment) error {
	if m.InsertFn != nil {
		return m.InsertFn(ctx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byKey[p.IdempotencyKey]; exists {
		return ports.ErrIdempotencyKeyExists
	}
	cp := *p
	m.payments[p.ID] = &cp
	m.byKey[p.IdempotencyKey] = p.ID
	return nil
}

func (m *MockStore) Update(ctx context.Context, p *domain.Payment) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[p.ID]; !ok {
		return domain.NewNotFoundError("payment not found")
	}
	cp := *p
	m.payments[p.ID] = &cp
	return nil
}

func (m *MockStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	if m.FindByIDFn != nil {
		return m.FindByIDFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, domain.NewNotFoundError("payment not found")
	}
	cp := *p
	return &cp, nil
}

func (m *MockStore) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error) {
	if m.FindByIdempotencyKeyFn != nil {
		return m.FindByIdempotencyKeyFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byKey[key]
	if !ok {
		return nil, domain.NewNotFoundError("payment not found")
	}
	cp := *m.payments[id]
	return &cp, nil
}

func (m *MockStore) FindAndLockByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error) {
	if m.FindAndLockByIdempotencyKeyFn != nil {
		return m.FindAndLockByIdempotencyKeyFn(ctx, key)
	}
	return m.FindByIdempotencyKey(ctx, key)
}

func (m *MockStore) InsertAudit(ctx context.Context, a *domain.PaymentAudit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits = append(m.audits, a)
	return nil
}

func (m *MockStore) AuditCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.audits)
}

// WithTx holds a transaction-scoped lock for the duration of fn,
// standing in for Postgres SERIALIZABLE isolation plus FOR UPDATE row
// locking: only one simulated transaction runs at a time, so a
// contending reader always observes the finalized state of whichever
// transaction committed first (spec.md §5). It also rolls back every
// side effect fn made if fn returns an error, mirroring
// internal/store/postgres.Store.WithTx's deferred tx.Rollback(ctx) —
// without this, TestHandlePayment_UnsupportedType and the conflict
// branch of HandlePayment would pass against the mock while doing the
// wrong thing against real Postgres.
func (m *MockStore) WithTx(ctx context.Context, fn func(tx ports.PaymentStore) error) error {
	if m.WithTxFn != nil {
		return m.WithTxFn(ctx, fn)
	}
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshotPayments := make(map[uuid.UUID]*domain.Payment, len(m.payments))
	for k, v := range m.payments {
		cp := *v
		snapshotPayments[k] = &cp
	}
	snapshotByKey := make(map[string]uuid.UUID, len(m.byKey))
	for k, v := range m.byKey {
		snapshotByKey[k] = v
	}
	snapshotAudits := append([]*domain.PaymentAudit(nil), m.audits...)
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.payments = snapshotPayments
		m.byKey = snapshotByKey
		m.audits = snapshotAudits
		m.mu.Unlock()
		return err
	}
	return nil
}

// MockBankClient is a fake ports.BankClient.
type MockBankClient struct {
	mu               sync.Mutex
	calls            int
	ProcessPaymentFn func(ctx context.Context, req domain.BankRequest) (domain.BankResponse, error)
}

func (m *MockBankClient) ProcessPayment(ctx context.Context, req domain.BankRequest) (domain.BankResponse, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.ProcessPaymentFn != nil {
		return m.ProcessPaymentFn(ctx, req)
	}
	return domain.BankResponse{"authorized": true, "authorization_code": "auth-123"}, nil
}

func (m *MockBankClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
