// Package auth issues and verifies the service's own HS256 access
// tokens and carries the authenticated user through the request
// context.
package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const (
	UserIDKey     contextKey = "user_id"
	UserRoleKey   contextKey = "user_role"
	FacilityIDKey contextKey = "facility_id"
)

// Claims are the JWT claims embedded in an access token.
type Claims struct {
	jwt.RegisteredClaims
	Role       string `json:"role"`
	FacilityID string `json:"facility_id,omitempty"`
}

// UserIDFromContext returns the authenticated user's ID, or uuid.Nil.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	s, _ := ctx.Value(UserIDKey).(string)
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// RoleFromContext returns the authenticated user's role, or "".
func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(UserRoleKey).(string)
	return role
}

// FacilityFromContext returns the facility the user is scoped to, or
// uuid.Nil for unscoped users (admins).
func FacilityFromContext(ctx context.Context) uuid.UUID {
	s, _ := ctx.Value(FacilityIDKey).(string)
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}
