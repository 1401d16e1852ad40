package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ConfigStore persists gateway configs. Every read excludes soft-deleted rows.
// Reads return (nil, nil) when nothing matches.
type ConfigStore interface {
	Create(ctx context.Context, cfg *GatewayConfig) error
	GetByID(ctx context.Context, id uuid.UUID) (*GatewayConfig, error)
	GetByShopAndMethod(ctx context.Context, shopID uuid.UUID, method Method) (*GatewayConfig, error)
	ListByShop(ctx context.Context, shopID uuid.UUID) ([]*GatewayConfig, error)
	// Update writes encrypted credentials and the active flag.
	Update(ctx context.Context, cfg *GatewayConfig) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// PaymentStore persists payments. Reads return (nil, nil) when nothing matches.
type PaymentStore interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	GetByRequestID(ctx context.Context, method Method, requestID string) (*Payment, error)
	GetByTxnID(ctx context.Context, method Method, txnID string) (*Payment, error)
	// LockByID reads the row for update. It must run inside Storage.WithTx.
	LockByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	// Update writes status, gateway ids and the raw callback payload.
	Update(ctx context.Context, p *Payment) error
	List(ctx context.Context, f ListFilter) ([]*Payment, int, error)
}

// LogStore is the append-only audit trail of a payment.
type LogStore interface {
	Append(ctx context.Context, paymentID uuid.UUID, logType string, payload []byte) error
}

type ListFilter struct {
	Status *Status
	Method *Method
	// Methods, when non-empty, restricts the listing to any of these methods.
	Methods []Method
	// Started selects only rows that received a gateway request id.
	Started bool
	Since   *time.Time
	// Before selects rows created strictly before this instant.
	Before *time.Time
	// After continues a listing strictly past this row in (created_at, id) order.
	After  *ListCursor
	Limit  int
	Offset int
}

// ListCursor is the position of a payment in listing order.
type ListCursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// CursorOf returns the listing position of p.
func CursorOf(p *Payment) *ListCursor {
	return &ListCursor{CreatedAt: p.CreatedAt, ID: p.ID}
}

// Repos is the set of stores bound to one connection or transaction.
type Repos struct {
	Configs  ConfigStore
	Payments PaymentStore
	Logs     LogStore
}

// Storage gives access to the stores, either directly or inside a transaction.
// fn's Repos are only valid until fn returns; returning an error rolls back.
type Storage interface {
	Repos() Repos
	WithTx(ctx context.Context, fn func(r Repos) error) error
}

// Cipher protects credentials at rest.
type Cipher interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(encoded string) ([]byte, error)
}

// Publisher emits payment status events after a transition commits.
type Publisher interface {
	Publish(ctx context.Context, subject string, v any) error
}

// Log types recorded in the payment audit trail.
const (
	LogInitiated    = "INITIATED"
	LogInitFailed   = "INITIATE_FAILED"
	LogCallback     = "CALLBACK"
	LogEsewaReturn  = "ESEWA_RETURN"
	LogReconcile    = "RECONCILE"
	LogAdminCancel  = "ADMIN_CANCEL"
	LogAdminConfirm = "ADMIN_CONFIRM"
)
