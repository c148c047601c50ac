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

const appointmentColumns = `
	id, confirmation_code, branch_id, service_id, user_id,
	customer_name, customer_email,
	scheduled_at, attended_at, status, rescheduled_from_id, rescheduled_at,
	cancel_reason, created_at, updated_at, deleted_at
`

func (r *appointmentRepository) Create(ctx context.Context, apt *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, confirmation_code, branch_id, service_id, user_id,
			customer_name, customer_email, scheduled_at, status,
			rescheduled_from_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	apt.CreatedAt = time.Now()
	apt.UpdatedAt = apt.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		apt.ID,
		apt.ConfirmationCode,
		apt.BranchID,
		apt.ServiceID,
		apt.UserID,
		apt.CustomerName,
		apt.CustomerEmail,
		apt.ScheduledAt,
		apt.Status,
		apt.RescheduledFromID,
		apt.CreatedAt,
		apt.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return apperrors.Conflict("appointment slot or confirmation code already taken")
	}
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1 AND deleted_at IS NULL`

	var apt model.Appointment
	err := r.db.GetContext(ctx, &apt, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("appointment")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &apt, nil
}

func (r *appointmentRepository) GetByConfirmationCode(ctx context.Context, code string) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE confirmation_code = $1 AND deleted_at IS NULL`

	var apt model.Appointment
	err := r.db.GetContext(ctx, &apt, query, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("appointment")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment by code: %w", err)
	}
	return &apt, nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE deleted_at IS NULL`
	args := []interface{}{}
	argCount := 1

	if filters.BranchID != uuid.Nil {
		query += fmt.Sprintf(" AND branch_id = $%d", argCount)
		args = append(args, filters.BranchID)
		argCount++
	}
	if filters.ServiceID != uuid.Nil {
		query += fmt.Sprintf(" AND service_id = $%d", argCount)
		args = append(args, filters.ServiceID)
		argCount++
	}
	if filters.UserID != uuid.Nil {
		query += fmt.Sprintf(" AND user_id = $%d", argCount)
		args = append(args, filters.UserID)
		argCount++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}
	if !filters.StartDate.IsZero() {
		query += fmt.Sprintf(" AND scheduled_at >= $%d", argCount)
		args = append(args, filters.StartDate)
		argCount++
	}
	if !filters.EndDate.IsZero() {
		query += fmt.Sprintf(" AND scheduled_at < $%d", argCount)
		args = append(args, filters.EndDate)
		argCount++
	}

	query += " ORDER BY scheduled_at ASC"

	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ExistsAtSlot(ctx context.Context, serviceID uuid.UUID, scheduledAt time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE service_id = $1
			AND scheduled_at = $2
			AND status NOT IN ('cancelled', 'completed', 'no_show')
			AND deleted_at IS NULL
		)
	`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, serviceID, scheduledAt); err != nil {
		return false, fmt.Errorf("failed to check slot: %w", err)
	}
	return exists, nil
}

// UpdateStatusFrom flips status only when the row currently holds one of the
// expected statuses. A false return means the caller lost the race or the
// appointment was never in the expected state.
func (r *appointmentRepository) UpdateStatusFrom(ctx context.Context, id uuid.UUID, from []model.AppointmentStatus, to model.AppointmentStatus) (bool, error) {
	query := `
		UPDATE appointments
		SET status = $1, updated_at = $2
		WHERE id = $3 AND deleted_at IS NULL AND status IN (`
	args := []interface{}{to, time.Now(), id}
	for i, s := range from {
		if i > 0 {
			query += ", "
		}
		query += fmt.Sprintf("$%d", len(args)+1)
		args = append(args, s)
	}
	query += ")"

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update appointment status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *appointmentRepository) CheckIn(ctx context.Context, id uuid.UUID, attendedAt time.Time) (bool, error) {
	query := `
		UPDATE appointments
		SET status = $1, attended_at = $2, updated_at = $3
		WHERE id = $4 AND status = $5 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query,
		model.AppointmentStatusCheckedIn, attendedAt, time.Now(),
		id, model.AppointmentStatusScheduled,
	)
	if err != nil {
		return false, fmt.Errorf("failed to check in appointment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *appointmentRepository) Cancel(ctx context.Context, id uuid.UUID, reason *string) (bool, error) {
	query := `
		UPDATE appointments
		SET status = $1, cancel_reason = $2, updated_at = $3
		WHERE id = $4 AND status = $5 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query,
		model.AppointmentStatusCancelled, reason, time.Now(),
		id, model.AppointmentStatusScheduled,
	)
	if err != nil {
		return false, fmt.Errorf("failed to cancel appointment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// Reschedule writes the audit entry first and the scheduled_at mutation
// second, in the same transaction, guarded on the pre-mutation value. A
// reader can therefore never observe the new scheduled_at without its audit
// entry, and two concurrent reschedules cannot both pass the guard.
func (r *appointmentRepository) Reschedule(ctx context.Context, entry *model.RescheduleHistoryEntry, rescheduledAt time.Time) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	historyQuery := `
		INSERT INTO reschedule_history (
			id, appointment_id, original_scheduled_at, new_scheduled_at,
			reason, actor_id, actor_name, actor_role, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if _, err := tx.ExecContext(ctx, historyQuery,
		entry.ID,
		entry.AppointmentID,
		entry.OriginalScheduledAt,
		entry.NewScheduledAt,
		entry.Reason,
		entry.ActorID,
		entry.ActorName,
		entry.ActorRole,
		entry.CreatedAt,
	); err != nil {
		return false, fmt.Errorf("failed to insert reschedule history: %w", err)
	}

	updateQuery := `
		UPDATE appointments
		SET scheduled_at = $1, rescheduled_at = $2, updated_at = $3
		WHERE id = $4 AND status = $5 AND scheduled_at = $6 AND deleted_at IS NULL
	`
	result, err := tx.ExecContext(ctx, updateQuery,
		entry.NewScheduledAt, rescheduledAt, time.Now(),
		entry.AppointmentID, model.AppointmentStatusScheduled, entry.OriginalScheduledAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update scheduled_at: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		// Lost the race; roll the audit entry back with the transaction.
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit reschedule: %w", err)
	}
	return true, nil
}

func (r *appointmentRepository) ListRescheduleHistory(ctx context.Context, appointmentID uuid.UUID) ([]*model.RescheduleHistoryEntry, error) {
	query := `
		SELECT id, appointment_id, original_scheduled_at, new_scheduled_at,
			   reason, actor_id, actor_name, actor_role, created_at
		FROM reschedule_history
		WHERE appointment_id = $1
		ORDER BY created_at ASC
	`
	var entries []*model.RescheduleHistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, appointmentID); err != nil {
		return nil, fmt.Errorf("failed to list reschedule history: %w", err)
	}
	return entries, nil
}

func (r *appointmentRepository) ListScheduledBetween(ctx context.Context, from, to time.Time) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE status = $1
		AND scheduled_at >= $2 AND scheduled_at < $3
		AND deleted_at IS NULL
		ORDER BY scheduled_at ASC
	`
	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, model.AppointmentStatusScheduled, from, to); err != nil {
		return nil, fmt.Errorf("failed to list scheduled appointments: %w", err)
	}
	return appointments, nil
}
