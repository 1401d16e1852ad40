package paymentsrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"pasal/internal/infra/dbx"
	"pasal/internal/payments"
)

type Repository struct{ q dbx.Querier }

func NewRepository(q dbx.Querier) *Repository { return &Repository{q: q} }

var _ payments.PaymentStore = (*Repository)(nil)

const selectColumns = `
	SELECT id, shop_id, payment_method, order_id, amount_minor, currency,
	       gateway_request_id, gateway_txn_id, status, raw_callback_payload,
	       return_url, failure_url, created_at, updated_at
	FROM payments`

func scanPayment(row pgx.Row, extra ...any) (*payments.Payment, error) {
	var p payments.Payment
	dest := []any{
		&p.ID, &p.ShopID, &p.Method, &p.OrderID, &p.AmountMinor, &p.Currency,
		&p.GatewayRequestID, &p.GatewayTxnID, &p.Status, &p.RawCallbackPayload,
		&p.ReturnURL, &p.FailureURL, &p.CreatedAt, &p.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) getOne(ctx context.Context, what, query string, args ...any) (*payments.Payment, error) {
	p, err := scanPayment(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment %s: %w", what, err)
	}
	return p, nil
}

func (r *Repository) Create(ctx context.Context, p *payments.Payment) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO payments (
			id, shop_id, payment_method, order_id, amount_minor, currency,
			gateway_request_id, status, return_url, failure_url, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, COALESCE(NULLIF($6, ''), 'NPR'), $7, $8, $9, $10, $11, $12)
	`, p.ID, p.ShopID, p.Method, p.OrderID, p.AmountMinor, p.Currency,
		p.GatewayRequestID, p.Status, p.ReturnURL, p.FailureURL, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*payments.Payment, error) {
	return r.getOne(ctx, "by id", selectColumns+` WHERE id = $1`, id)
}

func (r *Repository) GetByRequestID(ctx context.Context, method payments.Method, requestID string) (*payments.Payment, error) {
	return r.getOne(ctx, "by request id", selectColumns+`
		WHERE payment_method = $1 AND gateway_request_id = $2`, method, requestID)
}

func (r *Repository) GetByTxnID(ctx context.Context, method payments.Method, txnID string) (*payments.Payment, error) {
	return r.getOne(ctx, "by txn id", selectColumns+`
		WHERE payment_method = $1 AND gateway_txn_id = $2
		ORDER BY created_at DESC
		LIMIT 1`, method, txnID)
}

func (r *Repository) LockByID(ctx context.Context, id uuid.UUID) (*payments.Payment, error) {
	return r.getOne(ctx, "for update", selectColumns+` WHERE id = $1 FOR UPDATE`, id)
}

func (r *Repository) Update(ctx context.Context, p *payments.Payment) error {
	var raw any
	if len(p.RawCallbackPayload) > 0 {
		raw = []byte(p.RawCallbackPayload)
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE payments
		   SET status = $2,
		       gateway_request_id = $3,
		       gateway_txn_id = $4,
		       raw_callback_payload = $5::jsonb,
		       updated_at = $6
		 WHERE id = $1
	`, p.ID, p.Status, p.GatewayRequestID, p.GatewayTxnID, raw, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: payment %s", payments.ErrNotFound, p.ID)
	}
	return nil
}

// List returns payments matching f, oldest first, with the total match count
// for pagination.
func (r *Repository) List(ctx context.Context, f payments.ListFilter) ([]*payments.Payment, int, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	var status, method *string
	if f.Status != nil {
		s := string(*f.Status)
		status = &s
	}
	if f.Method != nil {
		m := string(*f.Method)
		method = &m
	}
	var methods []string
	for _, m := range f.Methods {
		methods = append(methods, string(m))
	}
	var (
		afterAt *time.Time
		afterID *uuid.UUID
	)
	if f.After != nil {
		afterAt, afterID = &f.After.CreatedAt, &f.After.ID
	}

	rows, err := r.q.Query(ctx, `
SELECT
  id, shop_id, payment_method, order_id, amount_minor, currency,
  gateway_request_id, gateway_txn_id, status, raw_callback_payload,
  return_url, failure_url, created_at, updated_at,
  COUNT(*) OVER() AS total_count
FROM payments
WHERE
  ($1::text IS NULL OR status = $1)
  AND ($2::text IS NULL OR payment_method = $2)
  AND ($3::timestamptz IS NULL OR created_at >= $3)
  AND ($4::timestamptz IS NULL OR created_at < $4)
  AND ($7::text[] IS NULL OR payment_method = ANY($7))
  AND (NOT $8::bool OR gateway_request_id IS NOT NULL)
  AND ($9::timestamptz IS NULL OR (created_at, id) > ($9::timestamptz, $10::uuid))
ORDER BY created_at ASC, id ASC
LIMIT $5 OFFSET $6
`, status, method, f.Since, f.Before, f.Limit, f.Offset, methods, f.Started, afterAt, afterID)
	if err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var (
		out   []*payments.Payment
		total int
	)
	for rows.Next() {
		var t int
		p, err := scanPayment(rows, &t)
		if err != nil {
			return nil, 0, fmt.Errorf("scan payment: %w", err)
		}
		total = t
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}
	return out, total, nil
}
