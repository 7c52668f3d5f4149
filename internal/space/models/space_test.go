package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agegroup "cohort/internal/agegroup/models"
	"cohort/internal/rules"
	dErrors "cohort/pkg/domain-errors"
)

var now = time.Date(2025, 6, 16, 12, 0, 0, 0, time.UTC)

func teenGroup() *agegroup.AgeGroup {
	return &agegroup.AgeGroup{
		ID: 2, Name: "Teens (13-17)", MinAge: 13, MaxAge: 17,
		Rules: rules.AgeGroupRules{
			RequiresParentalConsent: true,
			ContentFilterLevel:      rules.FilterModerate,
			AllowedActivities:       []string{"educational", "creative", "social"},
			RestrictedActivities:    []string{"adult_content"},
			TimeRestrictions:        &rules.TimeWindow{StartHour: 6, EndHour: 22},
		},
	}
}

func TestNewValidation(t *testing.T) {
	_, err := New("X", "", 0, 0, rules.SpaceAccessRules{}, now)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	fields := dErrors.FieldsOf(err)
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "organization_id")
	assert.Contains(t, fields, "age_group_id")
}

func TestDefaultForCopiesGroupDefaults(t *testing.T) {
	g := teenGroup()
	sp := DefaultFor(3, g, now)

	assert.Equal(t, "Teens (13-17) Space", sp.Name)
	assert.True(t, sp.IsActive)
	assert.Equal(t, g.ID, sp.AgeGroupID)

	require.NotNil(t, sp.AccessRules.RequiresParentalConsent)
	assert.True(t, *sp.AccessRules.RequiresParentalConsent)
	require.NotNil(t, sp.AccessRules.MaxParticipants)
	assert.Equal(t, 100, *sp.AccessRules.MaxParticipants)
	require.NotNil(t, sp.AccessRules.AllowedActivities)
	assert.Equal(t, g.Rules.AllowedActivities, *sp.AccessRules.AllowedActivities)

	// copies, not aliases: editing the group later must not retune the space
	g.Rules.AllowedActivities[0] = "changed"
	g.Rules.TimeRestrictions.EndHour = 23
	assert.Equal(t, "educational", (*sp.AccessRules.AllowedActivities)[0])
	assert.Equal(t, 22, sp.AccessRules.TimeRestrictions.EndHour)
}

func TestEffectiveResolutionFallsBackPerField(t *testing.T) {
	g := teenGroup()
	sp := &Space{AgeGroupID: g.ID, IsActive: true}

	// absent keys inherit from the group
	assert.Equal(t, g.Rules.AllowedActivities, sp.EffectiveAllowedActivities(g))
	assert.Equal(t, g.Rules.ContentFilterLevel, sp.EffectiveContentFilterLevel(g))
	assert.True(t, sp.EffectiveRequiresParentalConsent(g))
	assert.Equal(t, g.Rules.TimeRestrictions, sp.EffectiveTimeRestrictions(g))

	// required roles never inherit; absent resolves to ["member"]
	assert.Equal(t, rules.DefaultRequiredRoles, sp.RequiredRoles())

	// capacity is space-local
	assert.Nil(t, sp.MaxParticipants())
}

func TestEffectiveResolutionReplacesWholeField(t *testing.T) {
	g := teenGroup()
	empty := []string{}
	noConsent := false
	strict := rules.FilterStrict
	sp := &Space{
		AgeGroupID: g.ID,
		AccessRules: rules.SpaceAccessRules{
			RequiredRoles:           []string{"moderator"},
			AllowedActivities:       &empty,
			RequiresParentalConsent: &noConsent,
			ContentFilterLevel:      &strict,
			TimeRestrictions:        &rules.TimeWindow{StartHour: 8, EndHour: 18},
		},
	}

	// a present key replaces the group value even when empty
	assert.Empty(t, sp.EffectiveAllowedActivities(g))
	assert.False(t, sp.EffectiveRequiresParentalConsent(g))
	assert.Equal(t, rules.FilterStrict, sp.EffectiveContentFilterLevel(g))
	assert.Equal(t, []string{"moderator"}, sp.RequiredRoles())
	assert.Equal(t, 8, sp.EffectiveTimeRestrictions(g).StartHour)

	// restricted list absent: still inherited
	assert.Equal(t, g.Rules.RestrictedActivities, sp.EffectiveRestrictedActivities(g))
}
