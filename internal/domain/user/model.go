package user

import (
	"time"

	"github.com/google/uuid"
)

// Roles understood by the authorization layer.
const (
	RoleAdmin      = "admin"
	RoleDataClerk  = "data_clerk"
	RoleClinician  = "clinician"
	RoleCaseWorker = "case_worker"
)

var validRoles = map[string]bool{
	RoleAdmin: true, RoleDataClerk: true, RoleClinician: true, RoleCaseWorker: true,
}

func ValidRole(role string) bool { return validRoles[role] }

// User is a staff account. FacilityID is nil for unscoped accounts
// (admins and the reserved system actor).
type User struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         string     `db:"role" json:"role"`
	FacilityID   *uuid.UUID `db:"facility_id" json:"facility_id,omitempty"`
	Active       bool       `db:"active" json:"active"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}
