// Package processor is component B/C: the card-payment strategy and
// the registry that dispatches to it by declared payment type. Styled
// on internal/core/service's constructor-injected service shape, since
// the teacher never actually shipped a processor/strategy layer of its
// own (DESIGN.md).
package processor

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ficmart/paygate/internal/domain"
	"github.com/ficmart/paygate/internal/ports"
)

var (
	cardNumberPattern = regexp.MustCompile(`^[0-9]{14,19}$`)
	cvvPattern        = regexp.MustCompile(`^[0-9]{3,4}$`)

	// supportedCurrencies extends spec.md's {USD, EUR, GBP} with CAD and
	// AUD (SPEC_FULL.md §4.2a): additive, so it does not conflict with
	// anything the spec forbids.
	supportedCurrencies = map[string]bool{
		"USD": true, "EUR": true, "GBP": true, "CAD": true, "AUD": true,
	}
)

// CardProcessor implements ports.Processor for payment type "CARD".
type CardProcessor struct {
	bank ports.BankClient
}

// NewCardProcessor builds the card strategy around a resilient bank
// client (component A).
func NewCardProcessor(bank ports.BankClient) *CardProcessor {
	return &CardProcessor{bank: bank}
}

func (p *CardProcessor) Supports(paymentType string) bool {
	return strings.EqualFold(paymentType, "CARD")
}

func (p *CardProcessor) Process(ctx context.Context, req *domain.PaymentRequest) (*domain.ProcessorResponse, error) {
	cardNumber, cvv, expiryMonth, expiryYear, err := p.validate(req)
	if err != nil {
		return nil, err
	}

	bankReq := domain.BankRequest{
		"amount":      req.Amount,
		"currency":    req.Currency,
		"card_number": cardNumber,
		"expiry_date": fmt.Sprintf("%02d/%04d", expiryMonth, expiryYear),
		"cvv":         cvv,
	}

	bankResp, err := p.bank.ProcessPayment(ctx, bankReq)
	if err != nil {
		return nil, domain.NewUnexpectedError(err)
	}

	status, message := classify(bankResp)

	resp := &domain.ProcessorResponse{
		Status:            status,
		Message:           message,
		Type:              "CARD",
		MaskedCardNumber:  maskPAN(cardNumber),
		CardType:          cardBrand(cardNumber),
		ExpiryMonth:       expiryMonth,
		ExpiryYear:        expiryYear,
		Amount:            req.Amount,
		Currency:          req.Currency,
		AuthorizationCode: bankResp.AuthorizationCode(),
	}
	return resp, nil
}

// MapDetailsToResponse projects a persisted details map into the
// merchant-safe response surface: last_four_card_digits, expiry_month,
// expiry_year only (spec.md §4.2). type/card_type/masked_card_number/
// authorization_code are deliberately never copied.
func (p *CardProcessor) MapDetailsToResponse(details map[string]any, resp *domain.PaymentResponse) {
	if masked, ok := details["masked_card_number"].(string); ok && len(masked) >= 4 {
		resp.LastFourCardDigits = masked[len(masked)-4:]
	}
	if month, ok := toInt(details["expiry_month"]); ok {
		resp.ExpiryMonth = month
	}
	if year, ok := toInt(details["expiry_year"]); ok {
		resp.ExpiryYear = year
	}
}

// classify implements spec.md §4.2's precise three-outcome rule: a
// bank answer that is unknown must never be reported as declined.
func classify(resp domain.BankResponse) (domain.PaymentStatus, string) {
	if resp.Indeterminate() {
		return domain.StatusPendingReconciliation, "Bank timeout"
	}
	authorized, present := resp.Authorized()
	if !present {
		return domain.StatusPendingReconciliation, "Malformed bank response"
	}
	if authorized {
		return domain.StatusAuthorized, "Success"
	}
	return domain.StatusDeclined, "Declined"
}

func (p *CardProcessor) validate(req *domain.PaymentRequest) (cardNumber, cvv string, expiryMonth, expiryYear int, err error) {
	if !supportedCurrencies[strings.ToUpper(req.Currency)] {
		return "", "", 0, 0, domain.NewInvalidArgumentError(fmt.Sprintf("unsupported currency: %s", req.Currency))
	}

	cardNumber = req.GetString("card_number")
	if cardNumber == "" || !cardNumberPattern.MatchString(cardNumber) {
		return "", "", 0, 0, domain.NewInvalidArgumentError("card_number is required and must be 14-19 digits")
	}

	cvv = req.GetString("cvv")
	if cvv == "" || !cvvPattern.MatchString(cvv) {
		return "", "", 0, 0, domain.NewInvalidArgumentError("cvv is required and must be 3-4 digits")
	}

	month, ok := req.GetInt("expiry_month")
	if !ok || month < 1 || month > 12 {
		return "", "", 0, 0, domain.NewInvalidArgumentError("expiry_month is required and must be 1-12")
	}

	year, ok := req.GetInt("expiry_year")
	if !ok {
		return "", "", 0, 0, domain.NewInvalidArgumentError("expiry_year is required")
	}

	now := time.Now()
	if year < now.Year() || (year == now.Year() && month < int(now.Month())) {
		return "", "", 0, 0, domain.NewInvalidArgumentError("card has expired")
	}

	return cardNumber, cvv, month, year, nil
}

// maskPAN reduces a PAN to its last four digits (spec.md §4.2).
func maskPAN(cardNumber string) string {
	if len(cardNumber) < 4 {
		return "**** **** **** " + cardNumber
	}
	return "**** **** **** " + cardNumber[len(cardNumber)-4:]
}

// cardBrand is a minimal BIN-range heuristic (spec.md §4.2: leading
// digit only).
func cardBrand(cardNumber string) string {
	if cardNumber == "" {
		return "UNKNOWN"
	}
	switch cardNumber[0] {
	case '4':
		return "VISA"
	case '5':
		return "MASTERCARD"
	default:
		return "UNKNOWN"
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}
