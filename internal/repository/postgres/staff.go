package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/qline/booking-api/internal/model"
	apperrors "github.com/qline/booking-api/pkg/errors"
)

const staffColumns = `
	id, username, email, password_hash, role, branch_id, is_active,
	created_at, updated_at, deleted_at
`

func (r *staffRepository) GetByUsername(ctx context.Context, username string) (*model.StaffUser, error) {
	query := `SELECT ` + staffColumns + `
		FROM staff_users
		WHERE username = $1 AND is_active = true AND deleted_at IS NULL
	`
	var user model.StaffUser
	err := r.db.GetContext(ctx, &user, query, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("staff user")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get staff user: %w", err)
	}
	return &user, nil
}

func (r *staffRepository) Get(ctx context.Context, id uuid.UUID) (*model.StaffUser, error) {
	query := `SELECT ` + staffColumns + `
		FROM staff_users
		WHERE id = $1 AND deleted_at IS NULL
	`
	var user model.StaffUser
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("staff user")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get staff user: %w", err)
	}
	return &user, nil
}
