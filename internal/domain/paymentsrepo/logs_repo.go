package paymentsrepo

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"pasal/internal/infra/dbx"
	"pasal/internal/payments"
)

type LogsRepository struct{ q dbx.Querier }

func NewLogsRepository(q dbx.Querier) *LogsRepository {
	return &LogsRepository{q: q}
}

var _ payments.LogStore = (*LogsRepository)(nil)

func (r *LogsRepository) Append(ctx context.Context, paymentID uuid.UUID, logType string, payload []byte) error {
	var jb any
	if len(payload) > 0 {
		jb = payload
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO payment_logs (payment_id, log_type, payload)
		VALUES ($1, $2, $3::jsonb)
	`, paymentID, logType, jb)
	if err != nil {
		return fmt.Errorf("insert payment_log: %w", err)
	}
	return nil
}

// PaymentLog is one audit entry as stored.
type PaymentLog struct {
	ID        int64
	PaymentID uuid.UUID
	LogType   string
	Payload   []byte
}

// ListByPayment returns a payment's audit trail, oldest first.
func (r *LogsRepository) ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]PaymentLog, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, payment_id, log_type, payload
		FROM payment_logs WHERE payment_id = $1 ORDER BY id ASC
	`, paymentID)
	if err != nil {
		return nil, fmt.Errorf("list payment_logs: %w", err)
	}
	defer rows.Close()

	var out []PaymentLog
	for rows.Next() {
		var l PaymentLog
		if err := rows.Scan(&l.ID, &l.PaymentID, &l.LogType, &l.Payload); err != nil {
			return nil, fmt.Errorf("scan payment_log: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
