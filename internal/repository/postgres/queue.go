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

const queueColumns = `
	id, appointment_id, service_point_id, branch_id, confirmation_code,
	status, created_at, called_at, updated_at
`

// Admit inserts the entry only if the appointment has no other non-terminal
// entry. The existence check and the insert run in one transaction; a partial
// unique index on (appointment_id) WHERE status IN ('waiting','serving')
// backs the invariant against writers outside this code path.
func (r *queueRepository) Admit(ctx context.Context, entry *model.QueueEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	existsQuery := `
		SELECT EXISTS (
			SELECT 1 FROM queue_entries
			WHERE appointment_id = $1 AND status IN ('waiting', 'serving')
		)
	`
	if err := tx.GetContext(ctx, &exists, existsQuery, entry.AppointmentID); err != nil {
		return fmt.Errorf("failed to check active queue entry: %w", err)
	}
	if exists {
		return apperrors.Conflict("appointment already has an active queue entry")
	}

	insertQuery := `
		INSERT INTO queue_entries (
			id, appointment_id, service_point_id, branch_id, confirmation_code,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	entry.CreatedAt = time.Now()
	entry.UpdatedAt = entry.CreatedAt

	if _, err := tx.ExecContext(ctx, insertQuery,
		entry.ID,
		entry.AppointmentID,
		entry.ServicePointID,
		entry.BranchID,
		entry.ConfirmationCode,
		entry.Status,
		entry.CreatedAt,
		entry.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("appointment already has an active queue entry")
		}
		return fmt.Errorf("failed to insert queue entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit queue admission: %w", err)
	}
	return nil
}

func (r *queueRepository) Get(ctx context.Context, id uuid.UUID) (*model.QueueEntry, error) {
	query := `SELECT ` + queueColumns + ` FROM queue_entries WHERE id = $1`

	var entry model.QueueEntry
	err := r.db.GetContext(ctx, &entry, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("queue entry")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queue entry: %w", err)
	}
	return &entry, nil
}

func (r *queueRepository) GetActiveByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.QueueEntry, error) {
	query := `SELECT ` + queueColumns + `
		FROM queue_entries
		WHERE appointment_id = $1 AND status IN ('waiting', 'serving')
	`
	var entry model.QueueEntry
	err := r.db.GetContext(ctx, &entry, query, appointmentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("queue entry")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active queue entry: %w", err)
	}
	return &entry, nil
}

func (r *queueRepository) List(ctx context.Context, filters *model.QueueFilters) ([]*model.QueueEntry, error) {
	query := `SELECT ` + queueColumns + ` FROM queue_entries WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if filters.BranchID != uuid.Nil {
		query += fmt.Sprintf(" AND branch_id = $%d", argCount)
		args = append(args, filters.BranchID)
		argCount++
	}
	if filters.ServicePointID != uuid.Nil {
		query += fmt.Sprintf(" AND service_point_id = $%d", argCount)
		args = append(args, filters.ServicePointID)
		argCount++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}

	// FIFO within a service point: staff always see oldest first.
	query += " ORDER BY created_at ASC"

	var entries []*model.QueueEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list queue entries: %w", err)
	}
	return entries, nil
}

// Snapshot returns all non-terminal entries for a branch, the unit of input
// for one call-out engine evaluation.
func (r *queueRepository) Snapshot(ctx context.Context, branchID uuid.UUID) ([]*model.QueueEntry, error) {
	query := `SELECT ` + queueColumns + `
		FROM queue_entries
		WHERE branch_id = $1 AND status IN ('waiting', 'serving')
		ORDER BY created_at ASC
	`
	var entries []*model.QueueEntry
	if err := r.db.SelectContext(ctx, &entries, query, branchID); err != nil {
		return nil, fmt.Errorf("failed to snapshot queue: %w", err)
	}
	return entries, nil
}

func (r *queueRepository) AdvanceFrom(ctx context.Context, id uuid.UUID, from, to model.QueueEntryStatus, calledAt *time.Time) (bool, error) {
	query := `
		UPDATE queue_entries
		SET status = $1, called_at = COALESCE($2, called_at), updated_at = $3
		WHERE id = $4 AND status = $5
	`
	result, err := r.db.ExecContext(ctx, query, to, calledAt, time.Now(), id, from)
	if err != nil {
		return false, fmt.Errorf("failed to advance queue entry: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// Transfer moves the entry to another service point in place. created_at and
// called_at are untouched so wait accounting and call-out dedup survive.
func (r *queueRepository) Transfer(ctx context.Context, id, servicePointID uuid.UUID) (bool, error) {
	query := `
		UPDATE queue_entries
		SET service_point_id = $1, updated_at = $2
		WHERE id = $3 AND status IN ('waiting', 'serving')
	`
	result, err := r.db.ExecContext(ctx, query, servicePointID, time.Now(), id)
	if err != nil {
		return false, fmt.Errorf("failed to transfer queue entry: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}
