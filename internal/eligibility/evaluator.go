// Package eligibility implements the pure access-eligibility evaluator.
//
// The three entry points (CanAccessSpace, CanPerformActivity, and CanJoin)
// are total, side-effect free functions over pre-loaded snapshots. Callers
// load the records and the request clock; nothing here touches storage or the
// wall clock, so the same inputs always produce the same decision. Results are
// advisory for rendering and authoritative only at the moment of evaluation:
// writers must re-check, since age, roles, and consent change between read and
// write.
package eligibility

import (
	"time"

	agegroup "cohort/internal/agegroup/models"
	consent "cohort/internal/consent/models"
	organization "cohort/internal/organization/models"
	space "cohort/internal/space/models"
	user "cohort/internal/user/models"
)

// DenyReason identifies the first failing check. The checks short-circuit in a
// fixed order so logs and tests are deterministic; the boolean outcome does
// not depend on the order.
type DenyReason string

const (
	DenyNone               DenyReason = ""
	DenySpaceInactive      DenyReason = "space_inactive"
	DenyOrganization       DenyReason = "organization_mismatch"
	DenyCapacity           DenyReason = "capacity_reached"
	DenyAgeGroup           DenyReason = "age_group_mismatch"
	DenyRole               DenyReason = "missing_required_role"
	DenyTimeWindow         DenyReason = "outside_time_window"
	DenyConsent            DenyReason = "parental_consent_missing"
	DenyActivityRestricted DenyReason = "activity_restricted"
	DenyActivityNotAllowed DenyReason = "activity_not_allowed"
	DenyBirthDateMissing   DenyReason = "birth_date_missing"
	DenyAgeBounds          DenyReason = "age_outside_bounds"
	DenyAgeGroupNotAllowed DenyReason = "age_group_not_allowed"
)

// Decision is an allow/deny verdict with the first deny reason.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

func allow() Decision            { return Decision{Allowed: true} }
func deny(r DenyReason) Decision { return Decision{Allowed: false, Reason: r} }

// AccessRequest is the consistent snapshot an access evaluation runs against.
// Consent and UserAgeGroup may be nil (no record / no bracket covers the
// user's age); both resolve to a denial of the corresponding check rather
// than an error.
type AccessRequest struct {
	User             *user.User
	Roles            []user.RoleAssignment
	Consent          *consent.ParentalConsent
	Space            *space.Space
	SpaceAgeGroup    *agegroup.AgeGroup
	UserAgeGroup     *agegroup.AgeGroup
	ParticipantCount int
	Now              time.Time
}

// CanAccessSpace evaluates the seven ordered deny checks:
//
//  1. space is inactive
//  2. user's organization differs from the space's
//  3. no capacity remains
//  4. user's age bracket is not the space's bracket (identity, not overlap)
//  5. user holds none of the space's required roles in that organization
//  6. current hour is outside the effective time window
//  7. user is a minor, the effective rules require consent, and no given
//     consent record exists
func CanAccessSpace(req AccessRequest) Decision {
	sp, g := req.Space, req.SpaceAgeGroup

	if !sp.IsActive {
		return deny(DenySpaceInactive)
	}
	if !req.User.MemberOf(sp.OrganizationID) {
		return deny(DenyOrganization)
	}
	if limit := sp.MaxParticipants(); limit != nil && req.ParticipantCount >= *limit {
		return deny(DenyCapacity)
	}
	// Bracket identity: a user aged into a neighboring bracket is ineligible
	// for a space built for their old one until an admin reassigns it.
	if req.UserAgeGroup == nil || req.UserAgeGroup.ID != sp.AgeGroupID {
		return deny(DenyAgeGroup)
	}
	if !user.HasAnyRole(req.Roles, sp.RequiredRoles(), sp.OrganizationID) {
		return deny(DenyRole)
	}
	if !sp.EffectiveTimeRestrictions(g).Contains(req.Now.Hour()) {
		return deny(DenyTimeWindow)
	}
	if req.User.MinorAt(req.Now) && sp.EffectiveRequiresParentalConsent(g) {
		if req.Consent == nil || !req.Consent.ConsentGiven {
			return deny(DenyConsent)
		}
	}
	return allow()
}

// CanPerformActivity allows an activity only when space access is allowed,
// the activity is not on the effective restricted list, and the effective
// allow list is empty (everything not restricted is permitted) or contains
// the activity.
func CanPerformActivity(req AccessRequest, activity string) Decision {
	if d := CanAccessSpace(req); !d.Allowed {
		return d
	}
	g := req.SpaceAgeGroup
	for _, restricted := range req.Space.EffectiveRestrictedActivities(g) {
		if restricted == activity {
			return deny(DenyActivityRestricted)
		}
	}
	allowed := req.Space.EffectiveAllowedActivities(g)
	if len(allowed) == 0 {
		return allow()
	}
	for _, a := range allowed {
		if a == activity {
			return allow()
		}
	}
	return deny(DenyActivityNotAllowed)
}

// JoinRequest is the snapshot the organization-level join gate runs against.
type JoinRequest struct {
	User         *user.User
	Organization *organization.Organization
	UserAgeGroup *agegroup.AgeGroup
	Consent      *consent.ParentalConsent
	Now          time.Time
}

// CanJoin gates admission into an organization: a derivable age inside the
// settings bounds, an admissible age bracket when the organization restricts
// brackets, and given parental consent when required for minors.
func CanJoin(req JoinRequest) Decision {
	age, ok := req.User.AgeAt(req.Now)
	if !ok {
		return deny(DenyBirthDateMissing)
	}
	settings := req.Organization.Settings
	if age < settings.MinimumAge || age > settings.MaximumAge {
		return deny(DenyAgeBounds)
	}
	if req.Organization.RestrictsAgeGroups() {
		if req.UserAgeGroup == nil || !req.Organization.AllowsAgeGroup(req.UserAgeGroup.ID) {
			return deny(DenyAgeGroupNotAllowed)
		}
	}
	if settings.RequiresParentalConsent && req.User.MinorAt(req.Now) {
		if req.Consent == nil || !req.Consent.ConsentGiven {
			return deny(DenyConsent)
		}
	}
	return allow()
}
