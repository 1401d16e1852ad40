package accesscontrol

import (
	"context"

	"github.com/google/uuid"

	"pasal/internal/infra/dbx"
)

type Store interface {
	GetUserRoles(ctx context.Context, userID int64) ([]Role, error)
	UserHasRole(ctx context.Context, userID int64, roleName RoleName) (bool, error)
	// OwnsShop reports whether userID is the owner of shopID.
	OwnsShop(ctx context.Context, userID int64, shopID uuid.UUID) (bool, error)
}

type Repository struct {
	db dbx.Querier
}

func NewRepository(db dbx.Querier) Store {
	return &Repository{db: db}
}

func (r *Repository) GetUserRoles(ctx context.Context, userID int64) ([]Role, error) {
	query := `
        SELECT r.id, r.name, COALESCE(r.description, ''), r.created_at, r.updated_at
        FROM roles r
        JOIN user_roles ur ON ur.role_id = r.id
        WHERE ur.user_id = $1
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *Repository) UserHasRole(ctx context.Context, userID int64, roleName RoleName) (bool, error) {
	var exists bool
	query := `
        SELECT EXISTS (
            SELECT 1
            FROM user_roles ur
            JOIN roles r ON ur.role_id = r.id
            WHERE ur.user_id = $1 AND r.name = $2
        )
    `
	err := r.db.QueryRow(ctx, query, userID, string(roleName)).Scan(&exists)
	return exists, err
}

func (r *Repository) OwnsShop(ctx context.Context, userID int64, shopID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
        SELECT EXISTS (SELECT 1 FROM shops WHERE id = $1 AND owner_id = $2)
    `, shopID, userID).Scan(&exists)
	return exists, err
}
