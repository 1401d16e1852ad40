package gatewayconfigs

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"pasal/internal/infra/dbx"
	"pasal/internal/payments"
)

// Repository is the Postgres payments.ConfigStore. Soft-deleted rows are never
// returned.
type Repository struct{ q dbx.Querier }

func NewRepository(q dbx.Querier) *Repository { return &Repository{q: q} }

var _ payments.ConfigStore = (*Repository)(nil)

const selectColumns = `
	SELECT id, shop_id, payment_method, encrypted_credentials, active, deleted, created_at, updated_at
	FROM gateway_configs`

func scanConfig(row pgx.Row) (*payments.GatewayConfig, error) {
	var c payments.GatewayConfig
	if err := row.Scan(&c.ID, &c.ShopID, &c.Method, &c.EncryptedCredentials, &c.Active, &c.Deleted, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) Create(ctx context.Context, cfg *payments.GatewayConfig) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO gateway_configs (id, shop_id, payment_method, encrypted_credentials, active, deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7)
	`, cfg.ID, cfg.ShopID, cfg.Method, cfg.EncryptedCredentials, cfg.Active, cfg.CreatedAt, cfg.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return fmt.Errorf("%w: shop %s already has a %s config", payments.ErrConfiguration, cfg.ShopID, cfg.Method)
		}
		return fmt.Errorf("create gateway config: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*payments.GatewayConfig, error) {
	c, err := scanConfig(r.q.QueryRow(ctx, selectColumns+` WHERE id = $1 AND NOT deleted`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get gateway config: %w", err)
	}
	return c, nil
}

func (r *Repository) GetByShopAndMethod(ctx context.Context, shopID uuid.UUID, method payments.Method) (*payments.GatewayConfig, error) {
	c, err := scanConfig(r.q.QueryRow(ctx, selectColumns+`
		WHERE shop_id = $1 AND payment_method = $2 AND NOT deleted`, shopID, method))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get gateway config by shop: %w", err)
	}
	return c, nil
}

func (r *Repository) ListByShop(ctx context.Context, shopID uuid.UUID) ([]*payments.GatewayConfig, error) {
	rows, err := r.q.Query(ctx, selectColumns+`
		WHERE shop_id = $1 AND NOT deleted
		ORDER BY created_at ASC`, shopID)
	if err != nil {
		return nil, fmt.Errorf("list gateway configs: %w", err)
	}
	defer rows.Close()

	var out []*payments.GatewayConfig
	for rows.Next() {
		c, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scan gateway config: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) Update(ctx context.Context, cfg *payments.GatewayConfig) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE gateway_configs
		   SET encrypted_credentials = $2, active = $3, updated_at = $4
		 WHERE id = $1 AND NOT deleted
	`, cfg.ID, cfg.EncryptedCredentials, cfg.Active, cfg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update gateway config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: gateway config %s", payments.ErrNotFound, cfg.ID)
	}
	return nil
}

func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE gateway_configs
		   SET deleted = TRUE, active = FALSE, updated_at = now()
		 WHERE id = $1 AND NOT deleted
	`, id)
	if err != nil {
		return fmt.Errorf("delete gateway config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: gateway config %s", payments.ErrNotFound, id)
	}
	return nil
}
