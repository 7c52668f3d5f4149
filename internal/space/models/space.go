package models

import (
	"strings"
	"time"

	agegroup "cohort/internal/agegroup/models"
	"cohort/internal/rules"
	id "cohort/pkg/domain"
	dErrors "cohort/pkg/domain-errors"
)

// Space is a tenant-scoped, age-gated participation space. It belongs to
// exactly one organization and one age group; its access-rules document may
// override the age group's defaults per field.
type Space struct {
	ID             id.SpaceID
	Name           string
	Description    string
	OrganizationID id.OrganizationID
	AgeGroupID     id.AgeGroupID
	IsActive       bool
	AccessRules    rules.SpaceAccessRules
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func New(name, description string, orgID id.OrganizationID, groupID id.AgeGroupID, accessRules rules.SpaceAccessRules, now time.Time) (*Space, error) {
	name = strings.TrimSpace(name)

	fields := map[string]string{}
	if len(name) < 2 || len(name) > 100 {
		fields["name"] = "must be between 2 and 100 characters"
	}
	if len(description) > 1000 {
		fields["description"] = "must be at most 1000 characters"
	}
	if orgID == 0 {
		fields["organization_id"] = "is required"
	}
	if groupID == 0 {
		fields["age_group_id"] = "is required"
	}
	if len(fields) > 0 {
		return nil, dErrors.NewValidation(fields)
	}
	return &Space{
		Name:           name,
		Description:    description,
		OrganizationID: orgID,
		AgeGroupID:     groupID,
		IsActive:       true,
		AccessRules:    accessRules,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// DefaultFor builds the batch-created space for an age group when an
// organization is provisioned. The group's rule defaults are copied into the
// space document so later edits to the group do not silently retune existing
// spaces.
func DefaultFor(orgID id.OrganizationID, g *agegroup.AgeGroup, now time.Time) *Space {
	capacity := 100
	consent := g.Rules.RequiresParentalConsent
	allowed := append([]string{}, g.Rules.AllowedActivities...)
	restricted := append([]string{}, g.Rules.RestrictedActivities...)
	filter := g.Rules.ContentFilterLevel
	var window *rules.TimeWindow
	if g.Rules.TimeRestrictions != nil {
		w := *g.Rules.TimeRestrictions
		window = &w
	}
	return &Space{
		Name:           g.Name + " Space",
		Description:    "Participation space for " + g.Name,
		OrganizationID: orgID,
		AgeGroupID:     g.ID,
		IsActive:       true,
		AccessRules: rules.SpaceAccessRules{
			RequiredRoles:           []string{"member"},
			MaxParticipants:         &capacity,
			RequiresParentalConsent: &consent,
			AllowedActivities:       &allowed,
			RestrictedActivities:    &restricted,
			ContentFilterLevel:      &filter,
			TimeRestrictions:        window,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// The Effective* accessors resolve the two-level override: a key present in
// the space document fully replaces the age group's value, an absent key
// falls back to the group. This is per-field resolution, never a merge.

func (s *Space) RequiredRoles() []string {
	if s.AccessRules.RequiredRoles != nil {
		return s.AccessRules.RequiredRoles
	}
	return rules.DefaultRequiredRoles
}

// MaxParticipants returns the capacity cap, or nil when uncapped. Capacity is
// space-local and never inherited (age groups have no notion of it).
func (s *Space) MaxParticipants() *int {
	return s.AccessRules.MaxParticipants
}

func (s *Space) EffectiveAllowedActivities(g *agegroup.AgeGroup) []string {
	if s.AccessRules.AllowedActivities != nil {
		return *s.AccessRules.AllowedActivities
	}
	return g.Rules.AllowedActivities
}

func (s *Space) EffectiveRestrictedActivities(g *agegroup.AgeGroup) []string {
	if s.AccessRules.RestrictedActivities != nil {
		return *s.AccessRules.RestrictedActivities
	}
	return g.Rules.RestrictedActivities
}

func (s *Space) EffectiveContentFilterLevel(g *agegroup.AgeGroup) string {
	if s.AccessRules.ContentFilterLevel != nil {
		return *s.AccessRules.ContentFilterLevel
	}
	return g.Rules.ContentFilterLevel
}

func (s *Space) EffectiveRequiresParentalConsent(g *agegroup.AgeGroup) bool {
	if s.AccessRules.RequiresParentalConsent != nil {
		return *s.AccessRules.RequiresParentalConsent
	}
	return g.Rules.RequiresParentalConsent
}

func (s *Space) EffectiveTimeRestrictions(g *agegroup.AgeGroup) *rules.TimeWindow {
	if s.AccessRules.TimeRestrictions != nil {
		return s.AccessRules.TimeRestrictions
	}
	return g.Rules.TimeRestrictions
}
