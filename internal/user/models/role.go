package models

import (
	"time"

	id "cohort/pkg/domain"
)

// Role is a capability within one organization. The original design scoped
// roles to an arbitrary resource type; only organizations ever appear, so the
// assignment is a plain (user, organization, role) record.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleMember    Role = "member"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleMember:
		return true
	}
	return false
}

// RoleAssignment grants a role to a user within an organization.
type RoleAssignment struct {
	UserID         id.UserID
	OrganizationID id.OrganizationID
	Role           Role
	GrantedAt      time.Time
}

// HasRole reports whether the assignments grant the role in the organization.
func HasRole(assignments []RoleAssignment, role Role, orgID id.OrganizationID) bool {
	for _, a := range assignments {
		if a.OrganizationID == orgID && a.Role == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the assignments grant at least one of the named
// roles in the organization. Role names come from space rule documents, so
// unknown names simply never match.
func HasAnyRole(assignments []RoleAssignment, roles []string, orgID id.OrganizationID) bool {
	for _, name := range roles {
		if HasRole(assignments, Role(name), orgID) {
			return true
		}
	}
	return false
}
