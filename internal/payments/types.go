package payments

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Method identifies a payment provider a shop can enable.
type Method string

const (
	MethodEsewa          Method = "ESEWA"
	MethodKhalti         Method = "KHALTI"
	MethodBankTransfer   Method = "BANK_TRANSFER"
	MethodCashOnDelivery Method = "COD"
)

// Methods lists every supported method in a stable order.
var Methods = []Method{MethodEsewa, MethodKhalti, MethodBankTransfer, MethodCashOnDelivery}

// ParseMethod accepts the canonical name case-insensitively, plus a few aliases used in URLs.
func ParseMethod(s string) (Method, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ESEWA":
		return MethodEsewa, nil
	case "KHALTI":
		return MethodKhalti, nil
	case "BANK_TRANSFER", "BANK-TRANSFER", "BANK":
		return MethodBankTransfer, nil
	case "COD", "CASH_ON_DELIVERY", "CASH-ON-DELIVERY":
		return MethodCashOnDelivery, nil
	}
	return "", fmt.Errorf("%w: unsupported payment method %q", ErrValidation, s)
}

func (m Method) Valid() bool {
	for _, v := range Methods {
		if v == m {
			return true
		}
	}
	return false
}

// Manual reports whether payments of this method are settled by an operator
// rather than by a provider callback.
func (m Method) Manual() bool {
	return m == MethodBankTransfer || m == MethodCashOnDelivery
}

// Status of a Payment row.
type Status string

const (
	StatusInitiated Status = "INITIATED"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCanceled  Status = "CANCELED"
	StatusRefunded  Status = "REFUNDED"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s != StatusInitiated
}

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusInitiated, StatusCompleted, StatusFailed, StatusCanceled, StatusRefunded:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown payment status %q", ErrValidation, s)
}

// Canonical verification states reported by adapters.
const (
	StateCompleted      = "COMPLETED"
	StateFailed         = "FAILED"
	StatePending        = "PENDING"
	StateRefunded       = "REFUNDED"
	StateError          = "ERROR"
	StateAmountMismatch = "AMOUNT_MISMATCH"
)

const DefaultCurrency = "NPR"

// GatewayConfig is one shop's encrypted credentials for one method.
type GatewayConfig struct {
	ID                   uuid.UUID `json:"id"`
	ShopID               uuid.UUID `json:"shop_id"`
	Method               Method    `json:"payment_method"`
	EncryptedCredentials string    `json:"-"`
	Active               bool      `json:"active"`
	Deleted              bool      `json:"-"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Payment is the ledger row of a single payment attempt.
type Payment struct {
	ID                 uuid.UUID       `json:"id"`
	ShopID             uuid.UUID       `json:"shop_id"`
	Method             Method          `json:"payment_method"`
	OrderID            uuid.UUID       `json:"order_id"`
	AmountMinor        int64           `json:"amount_minor"`
	Currency           string          `json:"currency"`
	GatewayRequestID   *string         `json:"gateway_request_id,omitempty"`
	GatewayTxnID       *string         `json:"gateway_txn_id,omitempty"`
	Status             Status          `json:"status"`
	RawCallbackPayload json.RawMessage `json:"raw_callback_payload,omitempty"`
	ReturnURL          string          `json:"return_url"`
	FailureURL         string          `json:"failure_url"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func (p *Payment) RequestID() string {
	if p.GatewayRequestID == nil {
		return ""
	}
	return *p.GatewayRequestID
}

func (p *Payment) TxnID() string {
	if p.GatewayTxnID == nil {
		return ""
	}
	return *p.GatewayTxnID
}

// InitiateRequest is what an adapter needs to start a payment with its provider.
type InitiateRequest struct {
	ShopID      uuid.UUID
	OrderID     uuid.UUID
	AmountMinor int64
	ReturnURL   string
	FailureURL  string
}

// InitiateResponse carries everything the caller needs to send the customer on.
// RedirectTarget is either a form action (eSewa), a hosted page (Khalti) or the
// shop's own return page for manual methods.
type InitiateResponse struct {
	PaymentID        uuid.UUID         `json:"payment_id"`
	RedirectTarget   string            `json:"redirect_target"`
	Fields           map[string]string `json:"fields,omitempty"`
	GatewayRequestID string            `json:"gateway_request_id"`
}

// VerifyRequest asks an adapter to confirm an attempt with its provider.
type VerifyRequest struct {
	ShopID           uuid.UUID
	OrderID          uuid.UUID
	GatewayRequestID string
	AmountMinor      int64
	Params           map[string]string
}

// VerifyResult is the outcome of a verification. Failures to reach the provider are
// reported here as Status=ERROR, not as errors.
type VerifyResult struct {
	Success      bool   `json:"success"`
	GatewayTxnID string `json:"gateway_txn_id,omitempty"`
	Status       string `json:"status"`
	// AmountMinor is the amount the provider reports, 0 when unknown.
	AmountMinor int64 `json:"-"`
}

// target is the payment status a verification result asks for, or "" for none.
func (r VerifyResult) target() Status {
	switch {
	case r.Success:
		return StatusCompleted
	case r.Status == StateFailed:
		return StatusFailed
	default:
		return ""
	}
}
