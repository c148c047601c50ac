package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/qline/booking-api/internal/model"
	apperrors "github.com/qline/booking-api/pkg/errors"
)

func (r *branchRepository) GetBranch(ctx context.Context, id uuid.UUID) (*model.Branch, error) {
	query := `
		SELECT id, name, address, is_active,
			   cancellation_hours, reschedule_limit_hours, max_advance_booking_days,
			   reminders_enabled, emergency_mode,
			   created_at, updated_at, deleted_at
		FROM branches
		WHERE id = $1 AND deleted_at IS NULL
	`
	var branch model.Branch
	err := r.db.GetContext(ctx, &branch, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("branch")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get branch: %w", err)
	}
	return &branch, nil
}

func (r *branchRepository) ListBranches(ctx context.Context) ([]*model.Branch, error) {
	query := `
		SELECT id, name, address, is_active,
			   cancellation_hours, reschedule_limit_hours, max_advance_booking_days,
			   reminders_enabled, emergency_mode,
			   created_at, updated_at, deleted_at
		FROM branches
		WHERE is_active = true AND deleted_at IS NULL
		ORDER BY name ASC
	`
	var branches []*model.Branch
	if err := r.db.SelectContext(ctx, &branches, query); err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	return branches, nil
}

func (r *branchRepository) UpdateBranchPolicy(ctx context.Context, branch *model.Branch) error {
	query := `
		UPDATE branches
		SET cancellation_hours = $1, reschedule_limit_hours = $2,
			max_advance_booking_days = $3, reminders_enabled = $4,
			emergency_mode = $5, updated_at = $6
		WHERE id = $7 AND deleted_at IS NULL
	`
	branch.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		branch.CancellationHours,
		branch.RescheduleLimitHours,
		branch.MaxAdvanceBookingDays,
		branch.RemindersEnabled,
		branch.EmergencyMode,
		branch.UpdatedAt,
		branch.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update branch policy: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("branch")
	}
	return nil
}

func (r *branchRepository) GetService(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	query := `
		SELECT id, branch_id, name, description, duration, is_active,
			   created_at, updated_at, deleted_at
		FROM services
		WHERE id = $1 AND deleted_at IS NULL
	`
	var service model.Service
	err := r.db.GetContext(ctx, &service, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("service")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	return &service, nil
}

func (r *branchRepository) ListServices(ctx context.Context, branchID uuid.UUID) ([]*model.Service, error) {
	query := `
		SELECT id, branch_id, name, description, duration, is_active,
			   created_at, updated_at, deleted_at
		FROM services
		WHERE branch_id = $1 AND is_active = true AND deleted_at IS NULL
		ORDER BY name ASC
	`
	var services []*model.Service
	if err := r.db.SelectContext(ctx, &services, query, branchID); err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return services, nil
}

func (r *branchRepository) ListSchedules(ctx context.Context, serviceID uuid.UUID) ([]*model.Schedule, error) {
	query := `
		SELECT id, service_id, day_of_week, start_time, end_time
		FROM schedules
		WHERE service_id = $1
		ORDER BY day_of_week ASC
	`
	var schedules []*model.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, serviceID); err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	return schedules, nil
}

func (r *branchRepository) GetServicePoint(ctx context.Context, id uuid.UUID) (*model.ServicePoint, error) {
	query := `
		SELECT id, branch_id, name, is_active, created_at, updated_at, deleted_at
		FROM service_points
		WHERE id = $1 AND deleted_at IS NULL
	`
	var sp model.ServicePoint
	err := r.db.GetContext(ctx, &sp, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("service point")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service point: %w", err)
	}
	return &sp, nil
}

func (r *branchRepository) ListServicePoints(ctx context.Context, branchID uuid.UUID) ([]*model.ServicePoint, error) {
	query := `
		SELECT id, branch_id, name, is_active, created_at, updated_at, deleted_at
		FROM service_points
		WHERE branch_id = $1 AND is_active = true AND deleted_at IS NULL
		ORDER BY name ASC
	`
	var points []*model.ServicePoint
	if err := r.db.SelectContext(ctx, &points, query, branchID); err != nil {
		return nil, fmt.Errorf("failed to list service points: %w", err)
	}
	return points, nil
}
