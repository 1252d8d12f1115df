// Package httpapi is component F: the HTTP surface (spec.md §6).
// Grounded on internal/adapters/handler/http.go's constructor-injected
// handler and route-registration shape.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/ficmart/paygate/internal/domain"
	"github.com/go-playground/validator"
	"github.com/google/uuid"
)

// PaymentService is the seam this handler depends on (component E).
type PaymentService interface {
	HandlePayment(ctx context.Context, idempotencyKey string, req *domain.PaymentRequest) (*domain.PaymentResponse, error)
	GetPaymentByID(ctx context.Context, id uuid.UUID) (*domain.PaymentResponse, error)
}

// PaymentHandler wires the HTTP surface to the payment service.
type PaymentHandler struct {
	service  PaymentService
	validate *validator.Validate
	schema   *schemaValidator
	logger   *slog.Logger
}

// NewPaymentHandler builds the handler. schema validation is
// best-effort: if the embedded OpenAPI document fails to load, the
// handler still serves requests behind go-playground/validator alone.
func NewPaymentHandler(service PaymentService, logger *slog.Logger) *PaymentHandler {
	schema, err := newSchemaValidator()
	if err != nil {
		logger.Warn("openapi schema validator unavailable", "error", err)
		schema = nil
	}
	return &PaymentHandler{
		service:  service,
		validate: validator.New(),
		schema:   schema,
		logger:   logger,
	}
}

func (h *PaymentHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/payments/process", h.HandleProcessPayment)
	mux.HandleFunc("GET /v1/payments/{id}", h.HandleGetPayment)
	mux.HandleFunc("GET /healthz", h.HandleHealthz)
}

// processPaymentRequest is the wire shape of POST /v1/payments/process
// (spec.md §6). Additional keys beyond these named fields are
// preserved via the inline UnmarshalJSON below, matching "additional
// keys are preserved in the request bag."
type processPaymentRequest struct {
	Amount   int64  `json:"amount" validate:"required,gt=0"`
	Currency string `json:"currency" validate:"required"`
	Type     string `json:"type" validate:"required"`

	raw map[string]any
}

func (p *processPaymentRequest) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.raw = raw

	if v, ok := raw["amount"].(float64); ok {
		p.Amount = int64(v)
	}
	if v, ok := raw["currency"].(string); ok {
		p.Currency = v
	}
	if v, ok := raw["type"].(string); ok {
		p.Type = v
	}
	return nil
}

// HandleProcessPayment implements POST /v1/payments/process.
// @Summary      Process a payment
// @Description  Validates and dispatches a merchant payment request to the card processor.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        X-Idempotency-Key  header    string                  true  "Unique key to prevent duplicate processing"
// @Param        request            body      processPaymentRequest   true  "Payment request"
// @Success      201                {object}  domain.PaymentResponse
// @Failure      400                {object}  apiError
// @Failure      500                {object}  apiError
// @Router       /v1/payments/process [post]
func (h *PaymentHandler) HandleProcessPayment(w http.ResponseWriter, r *http.Request) {
	idemKey := r.Header.Get("X-Idempotency-Key")
	if idemKey == "" {
		respondValidationFailed(w, map[string]string{"X-Idempotency-Key": "header is required"})
		return
	}

	if h.schema != nil {
		if err := h.schema.validateProcessBody(r); err != nil {
			respondValidationFailed(w, map[string]string{"body": err.Error()})
			return
		}
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondValidationFailed(w, map[string]string{"body": "could not read request body"})
		return
	}

	var req processPaymentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondValidationFailed(w, map[string]string{"body": "malformed JSON"})
		return
	}

	if err := h.validate.Struct(req); err != nil {
		respondValidationFailed(w, fieldErrors(err))
		return
	}

	paymentReq := &domain.PaymentRequest{
		Type:     req.Type,
		Amount:   req.Amount,
		Currency: req.Currency,
		Data:     req.raw,
	}

	resp, err := h.service.HandlePayment(r.Context(), idemKey, paymentReq)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, resp)
}

// HandleGetPayment implements GET /v1/payments/{id}.
// @Summary      Get a payment
// @Description  Fetch the merchant-visible state of a previously submitted payment.
// @Tags         payments
// @Produce      json
// @Param        id   path      string  true  "Payment ID"
// @Success      200  {object}  domain.PaymentResponse
// @Failure      404  {object}  apiError
// @Router       /v1/payments/{id} [get]
func (h *PaymentHandler) HandleGetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondWithError(w, domain.NewInvalidArgumentError(fmt.Sprintf("invalid payment id: %s", r.PathValue("id"))))
		return
	}

	resp, err := h.service.GetPaymentByID(r.Context(), id)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// HandleHealthz is the ambient liveness endpoint (SPEC_FULL.md §6).
func (h *PaymentHandler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func fieldErrors(err error) map[string]string {
	errs := map[string]string{}
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			errs[fe.Field()] = fe.Tag()
		}
		return errs
	}
	errs["_"] = err.Error()
	return errs
}
