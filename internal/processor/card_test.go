package processor

import (
	"context"
	"testing"
	"time"

	"github.com/ficmart/paygate/internal/domain"
)

// stubBank is a minimal ports.BankClient fake, local to this package so
// the processor tests don't reach into internal/service's mocks.
type stubBank struct {
	resp   domain.BankResponse
	err    error
	called bool
}

func (b *stubBank) ProcessPayment(ctx context.Context, req domain.BankRequest) (domain.BankResponse, error) {
	b.called = true
	return b.resp, b.err
}

func validCardRequest() *domain.PaymentRequest {
	return &domain.PaymentRequest{
		Type:     "CARD",
		Amount:   1500,
		Currency: "USD",
		Data: map[string]any{
			"card_number":  "4234567890123456",
			"cvv":          "123",
			"expiry_month": 12,
			"expiry_year":  time.Now().Year() + 1,
		},
	}
}

// TestCardProcessor_Process_Outcomes drives spec.md §8's classification
// table (S1/S2/S3 and the indeterminate case) straight through
// CardProcessor.Process rather than through the service-layer mocks.
func TestCardProcessor_Process_Outcomes(t *testing.T) {
	cases := []struct {
		name           string
		bankResp       domain.BankResponse
		wantStatus     domain.PaymentStatus
		wantMessage    string
		wantAuthorized bool
	}{
		{
			name:        "S1 authorized",
			bankResp:    domain.BankResponse{"authorized": true, "authorization_code": "auth-1"},
			wantStatus:  domain.StatusAuthorized,
			wantMessage: "Success",
		},
		{
			name:        "S2 decline",
			bankResp:    domain.BankResponse{"authorized": false},
			wantStatus:  domain.StatusDeclined,
			wantMessage: "Declined",
		},
		{
			name:        "S3 malformed bank response",
			bankResp:    domain.BankResponse{},
			wantStatus:  domain.StatusPendingReconciliation,
			wantMessage: "Malformed bank response",
		},
		{
			name:        "indeterminate takes priority over authorized",
			bankResp:    domain.BankResponse{"indeterminate": true, "authorized": true},
			wantStatus:  domain.StatusPendingReconciliation,
			wantMessage: "Bank timeout",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bank := &stubBank{resp: tc.bankResp}
			proc := NewCardProcessor(bank)

			resp, err := proc.Process(context.Background(), validCardRequest())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.Status != tc.wantStatus {
				t.Errorf("expected status %s, got %s", tc.wantStatus, resp.Status)
			}
			if resp.Message != tc.wantMessage {
				t.Errorf("expected message %q, got %q", tc.wantMessage, resp.Message)
			}
			if !bank.called {
				t.Error("expected the bank to be called")
			}
		})
	}
}

// TestCardProcessor_Process_ValidationRejections exercises spec.md §8's
// S6: a rejected validation must never reach the bank.
func TestCardProcessor_Process_ValidationRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(req *domain.PaymentRequest)
		wantMsg string
	}{
		{
			name:    "unsupported currency",
			mutate:  func(r *domain.PaymentRequest) { r.Currency = "JPY" },
			wantMsg: "unsupported currency: JPY",
		},
		{
			name:    "missing card number",
			mutate:  func(r *domain.PaymentRequest) { delete(r.Data, "card_number") },
			wantMsg: "card_number is required and must be 14-19 digits",
		},
		{
			name:    "short card number",
			mutate:  func(r *domain.PaymentRequest) { r.Data["card_number"] = "123" },
			wantMsg: "card_number is required and must be 14-19 digits",
		},
		{
			name:    "non-numeric card number",
			mutate:  func(r *domain.PaymentRequest) { r.Data["card_number"] = "4234-5678-9012-3456" },
			wantMsg: "card_number is required and must be 14-19 digits",
		},
		{
			name:    "missing cvv",
			mutate:  func(r *domain.PaymentRequest) { delete(r.Data, "cvv") },
			wantMsg: "cvv is required and must be 3-4 digits",
		},
		{
			name:    "non-numeric cvv",
			mutate:  func(r *domain.PaymentRequest) { r.Data["cvv"] = "abc" },
			wantMsg: "cvv is required and must be 3-4 digits",
		},
		{
			name:    "expiry month out of range",
			mutate:  func(r *domain.PaymentRequest) { r.Data["expiry_month"] = 13 },
			wantMsg: "expiry_month is required and must be 1-12",
		},
		{
			name:    "missing expiry year",
			mutate:  func(r *domain.PaymentRequest) { delete(r.Data, "expiry_year") },
			wantMsg: "expiry_year is required",
		},
		{
			name: "expired card",
			mutate: func(r *domain.PaymentRequest) {
				r.Data["expiry_month"] = 1
				r.Data["expiry_year"] = time.Now().Year() - 1
			},
			wantMsg: "card has expired",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bank := &stubBank{resp: domain.BankResponse{"authorized": true}}
			proc := NewCardProcessor(bank)

			req := validCardRequest()
			tc.mutate(req)

			_, err := proc.Process(context.Background(), req)
			if err == nil {
				t.Fatal("expected a validation error")
			}
			de, ok := err.(*domain.DomainError)
			if !ok || de.Code != domain.ErrCodeInvalidArgument {
				t.Fatalf("expected InvalidArgument error, got %v", err)
			}
			if de.Message != tc.wantMsg {
				t.Errorf("expected message %q, got %q", tc.wantMsg, de.Message)
			}
			if bank.called {
				t.Error("expected the bank never to be called for a rejected request")
			}
		})
	}
}

// TestCardProcessor_Process_ExpiryAcceptsNumericStrings covers the
// int-or-numeric-string coercion spec.md §4.2 requires for
// expiry_month/expiry_year.
func TestCardProcessor_Process_ExpiryAcceptsNumericStrings(t *testing.T) {
	bank := &stubBank{resp: domain.BankResponse{"authorized": true}}
	proc := NewCardProcessor(bank)

	req := validCardRequest()
	req.Data["expiry_month"] = "12"
	req.Data["expiry_year"] = "2999"

	resp, err := proc.Process(context.Background(), req)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.ExpiryMonth != 12 || resp.ExpiryYear != 2999 {
		t.Errorf("expected expiry 12/2999, got %d/%d", resp.ExpiryMonth, resp.ExpiryYear)
	}
}

func TestCardProcessor_MapDetailsToResponse(t *testing.T) {
	proc := NewCardProcessor(&stubBank{})
	details := map[string]any{
		"masked_card_number": "**** **** **** 3456",
		"card_type":          "VISA",
		"type":               "CARD",
		"authorization_code": "auth-1",
		"expiry_month":       float64(12),
		"expiry_year":        float64(2030),
		"message":            "Success",
	}

	resp := &domain.PaymentResponse{}
	proc.MapDetailsToResponse(details, resp)

	if resp.LastFourCardDigits != "3456" {
		t.Errorf("expected last four 3456, got %s", resp.LastFourCardDigits)
	}
	if resp.ExpiryMonth != 12 || resp.ExpiryYear != 2030 {
		t.Errorf("expected expiry 12/2030, got %d/%d", resp.ExpiryMonth, resp.ExpiryYear)
	}
	// type/card_type/masked_card_number/authorization_code have no field
	// in PaymentResponse, so they cannot leak (spec.md §8 property 3);
	// what is checked here is that Message is left to mapToResponse.
	if resp.Message != "" {
		t.Error("MapDetailsToResponse must not set Message; mapToResponse owns that field")
	}
}

func TestMaskPAN(t *testing.T) {
	if got := maskPAN("4234567890123456"); got != "**** **** **** 3456" {
		t.Errorf("expected masked PAN, got %s", got)
	}
	if got := maskPAN("12"); got != "**** **** **** 12" {
		t.Errorf("expected short input preserved verbatim, got %s", got)
	}
}

func TestCardBrand(t *testing.T) {
	cases := map[string]string{
		"4234567890123456": "VISA",
		"5234567890123456": "MASTERCARD",
		"6234567890123456": "UNKNOWN",
		"":                 "UNKNOWN",
	}
	for number, want := range cases {
		if got := cardBrand(number); got != want {
			t.Errorf("cardBrand(%q) = %s, want %s", number, got, want)
		}
	}
}

func TestCardProcessor_Supports(t *testing.T) {
	proc := NewCardProcessor(&stubBank{})
	if !proc.Supports("CARD") || !proc.Supports("card") {
		t.Error("expected Supports to match CARD case-insensitively")
	}
	if proc.Supports("CRYPTO") {
		t.Error("expected Supports to reject other payment types")
	}
}
