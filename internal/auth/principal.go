package auth

import (
	"context"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin        Role = "admin"
	RoleDentist      Role = "dentist"
	RoleReceptionist Role = "receptionist"
)

func ValidRole(r Role) bool {
	return r == RoleAdmin || r == RoleDentist || r == RoleReceptionist
}

// Principal is the authenticated caller as established upstream (the
// gateway terminates sessions; this service only consumes the result).
// DentistID is set for dentist-scoped callers.
type Principal struct {
	Role      Role
	DentistID uuid.UUID
}

// CanManageCalendar reports whether the principal may read or mutate the
// given dentist's calendar. Admins and receptionists reach every calendar;
// a dentist reaches only their own. An admin viewing a dentist's schedule
// passes the same check the dentist would, so view reuse is a capability
// substitution, not shared session state.
func (p Principal) CanManageCalendar(dentistID uuid.UUID) bool {
	switch p.Role {
	case RoleAdmin, RoleReceptionist:
		return true
	case RoleDentist:
		return p.DentistID == dentistID
	}
	return false
}

type contextKey struct{}

func NewContext(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok
}
