package model

import (
	"github.com/google/uuid"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleStaff Role = "staff"
	RoleAdmin Role = "admin"
)

// Actor describes who is performing a guarded operation. It is used purely
// for authorization scoping, never for business-rule computation.
type Actor struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Role     Role      `json:"role"`
	// BranchID is set only for staff and limits their scope to one branch.
	BranchID *uuid.UUID `json:"branch_id,omitempty"`
}

// CanActOn reports whether the actor may operate on the given appointment:
// admins may act on any appointment, staff on appointments within their
// assigned branch, and regular users only on appointments they own.
func (a Actor) CanActOn(apt *Appointment) bool {
	switch a.Role {
	case RoleAdmin:
		return true
	case RoleStaff:
		return a.BranchID != nil && *a.BranchID == apt.BranchID
	default:
		return a.ID == apt.UserID
	}
}

// IsStaff reports whether the actor holds staff or admin privileges.
func (a Actor) IsStaff() bool {
	return a.Role == RoleStaff || a.Role == RoleAdmin
}
