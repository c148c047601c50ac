package model

import "github.com/google/uuid"

// StaffUser is an operator account (staff or admin) able to log in and
// process queues. Regular end users book without an account record here.
type StaffUser struct {
	Base
	Username     string     `db:"username" json:"username"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         Role       `db:"role" json:"role"`
	BranchID     *uuid.UUID `db:"branch_id" json:"branch_id,omitempty"`
	IsActive     bool       `db:"is_active" json:"is_active"`
}
