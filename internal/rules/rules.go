// Package rules parses the schemaless policy documents attached to age
// groups, organizations, and participation spaces into typed structures.
//
// Parsing is resilient by contract: malformed or absent documents resolve to
// the zero document ("no custom rules") and never surface an error. The typed
// structs are parsed once at the load boundary; nothing re-parses raw JSON ad
// hoc.
package rules

import (
	"encoding/json"

	id "cohort/pkg/domain"
	pstrings "cohort/pkg/platform/strings"
)

// Content filter levels, loosest to strictest ordering is not meaningful;
// they are opaque labels to the evaluator.
const (
	FilterStrict   = "strict"
	FilterModerate = "moderate"
	FilterStandard = "standard"
)

// AgeGroupRules is the typed view of an age group's participation_rules
// document. Defaults are applied at parse time: no consent requirement,
// standard filtering, no activity lists, no time window.
type AgeGroupRules struct {
	RequiresParentalConsent bool
	ContentFilterLevel      string
	AllowedActivities       []string
	RestrictedActivities    []string
	TimeRestrictions        *TimeWindow
}

// OrganizationSettings is the typed view of an organization's settings
// document. Absent keys resolve to the widest possible membership: ages 0-120,
// no consent requirement, no age-group restriction.
type OrganizationSettings struct {
	MinimumAge              int
	MaximumAge              int
	RequiresParentalConsent bool
	AllowedAgeGroupIDs      []id.AgeGroupID
}

// SpaceAccessRules is the typed view of a space's access_rules document.
//
// Pointer and nil-slice fields distinguish "key absent" from "key present but
// empty": an absent key falls back to the space's age group, a present key
// fully replaces the age-group value. This is per-field override, not a
// document merge.
type SpaceAccessRules struct {
	RequiredRoles           []string // nil resolves to ["member"], never inherited
	MaxParticipants         *int     // nil means uncapped
	AllowedActivities       *[]string
	RestrictedActivities    *[]string
	ContentFilterLevel      *string
	RequiresParentalConsent *bool
	TimeRestrictions        *TimeWindow
}

// DefaultRequiredRoles applies when a space document omits required_roles.
var DefaultRequiredRoles = []string{"member"}

type rawTimeWindow struct {
	StartHour *int `json:"start_hour,omitempty"`
	EndHour   *int `json:"end_hour,omitempty"`
}

type rawAgeGroupRules struct {
	RequiresParentalConsent *bool          `json:"requires_parental_consent,omitempty"`
	ContentFilterLevel      *string        `json:"content_filter_level,omitempty"`
	AllowedActivities       *[]string      `json:"allowed_activities,omitempty"`
	RestrictedActivities    *[]string      `json:"restricted_activities,omitempty"`
	TimeRestrictions        *rawTimeWindow `json:"time_restrictions,omitempty"`
}

type rawOrganizationSettings struct {
	MinimumAge              *int    `json:"minimum_age,omitempty"`
	MaximumAge              *int    `json:"maximum_age,omitempty"`
	RequiresParentalConsent *bool   `json:"requires_parental_consent,omitempty"`
	AllowedAgeGroupIDs      []int64 `json:"allowed_age_group_ids,omitempty"`
}

type rawSpaceAccessRules struct {
	RequiredRoles           []string       `json:"required_roles,omitempty"`
	MaxParticipants         *int           `json:"max_participants,omitempty"`
	AllowedActivities       *[]string      `json:"allowed_activities,omitempty"`
	RestrictedActivities    *[]string      `json:"restricted_activities,omitempty"`
	ContentFilterLevel      *string        `json:"content_filter_level,omitempty"`
	RequiresParentalConsent *bool          `json:"requires_parental_consent,omitempty"`
	TimeRestrictions        *rawTimeWindow `json:"time_restrictions,omitempty"`
}

// ParseAgeGroupRules decodes a participation_rules document, failing open to
// the defaults on empty or malformed input.
func ParseAgeGroupRules(doc []byte) AgeGroupRules {
	out := AgeGroupRules{
		ContentFilterLevel:   FilterStandard,
		AllowedActivities:    []string{},
		RestrictedActivities: []string{},
	}
	var raw rawAgeGroupRules
	if len(doc) == 0 || json.Unmarshal(doc, &raw) != nil {
		return out
	}
	if raw.RequiresParentalConsent != nil {
		out.RequiresParentalConsent = *raw.RequiresParentalConsent
	}
	if raw.ContentFilterLevel != nil && *raw.ContentFilterLevel != "" {
		out.ContentFilterLevel = *raw.ContentFilterLevel
	}
	if raw.AllowedActivities != nil {
		out.AllowedActivities = pstrings.DedupeAndTrim(*raw.AllowedActivities)
	}
	if raw.RestrictedActivities != nil {
		out.RestrictedActivities = pstrings.DedupeAndTrim(*raw.RestrictedActivities)
	}
	out.TimeRestrictions = windowFromRaw(raw.TimeRestrictions, false)
	return out
}

// ParseOrganizationSettings decodes a settings document, failing open to the
// widest membership bounds on empty or malformed input.
func ParseOrganizationSettings(doc []byte) OrganizationSettings {
	out := OrganizationSettings{MinimumAge: 0, MaximumAge: 120}
	var raw rawOrganizationSettings
	if len(doc) == 0 || json.Unmarshal(doc, &raw) != nil {
		return out
	}
	if raw.MinimumAge != nil {
		out.MinimumAge = *raw.MinimumAge
	}
	if raw.MaximumAge != nil {
		out.MaximumAge = *raw.MaximumAge
	}
	if raw.RequiresParentalConsent != nil {
		out.RequiresParentalConsent = *raw.RequiresParentalConsent
	}
	for _, gid := range raw.AllowedAgeGroupIDs {
		out.AllowedAgeGroupIDs = append(out.AllowedAgeGroupIDs, id.AgeGroupID(gid))
	}
	return out
}

// ParseSpaceAccessRules decodes an access_rules document, failing open to the
// all-absent document (every field inherited) on empty or malformed input.
func ParseSpaceAccessRules(doc []byte) SpaceAccessRules {
	var out SpaceAccessRules
	var raw rawSpaceAccessRules
	if len(doc) == 0 || json.Unmarshal(doc, &raw) != nil {
		return out
	}
	out.RequiredRoles = pstrings.DedupeAndTrimLower(raw.RequiredRoles)
	out.MaxParticipants = raw.MaxParticipants
	if raw.AllowedActivities != nil {
		v := pstrings.DedupeAndTrim(*raw.AllowedActivities)
		out.AllowedActivities = &v
	}
	if raw.RestrictedActivities != nil {
		v := pstrings.DedupeAndTrim(*raw.RestrictedActivities)
		out.RestrictedActivities = &v
	}
	out.ContentFilterLevel = raw.ContentFilterLevel
	out.RequiresParentalConsent = raw.RequiresParentalConsent
	// A present-but-empty window at space level replaces the age group's
	// window with the full day, which is behaviorally unrestricted.
	out.TimeRestrictions = windowFromRaw(raw.TimeRestrictions, true)
	return out
}

func windowFromRaw(raw *rawTimeWindow, keepEmpty bool) *TimeWindow {
	if raw == nil {
		return nil
	}
	if raw.StartHour == nil && raw.EndHour == nil {
		if !keepEmpty {
			return nil
		}
		return &TimeWindow{StartHour: 0, EndHour: 23}
	}
	w := &TimeWindow{StartHour: 0, EndHour: 23}
	if raw.StartHour != nil {
		w.StartHour = *raw.StartHour
	}
	if raw.EndHour != nil {
		w.EndHour = *raw.EndHour
	}
	return w
}

// Encode renders the rules back into their stored document form.
func (r AgeGroupRules) Encode() []byte {
	raw := rawAgeGroupRules{
		RequiresParentalConsent: &r.RequiresParentalConsent,
		ContentFilterLevel:      &r.ContentFilterLevel,
		AllowedActivities:       &r.AllowedActivities,
		RestrictedActivities:    &r.RestrictedActivities,
		TimeRestrictions:        windowToRaw(r.TimeRestrictions),
	}
	return mustMarshal(raw)
}

// Encode renders the settings back into their stored document form.
func (s OrganizationSettings) Encode() []byte {
	ids := make([]int64, 0, len(s.AllowedAgeGroupIDs))
	for _, gid := range s.AllowedAgeGroupIDs {
		ids = append(ids, int64(gid))
	}
	raw := rawOrganizationSettings{
		MinimumAge:              &s.MinimumAge,
		MaximumAge:              &s.MaximumAge,
		RequiresParentalConsent: &s.RequiresParentalConsent,
		AllowedAgeGroupIDs:      ids,
	}
	return mustMarshal(raw)
}

// Encode renders the access rules back into their stored document form,
// preserving which keys are absent so inheritance survives a round trip.
func (r SpaceAccessRules) Encode() []byte {
	raw := rawSpaceAccessRules{
		RequiredRoles:           r.RequiredRoles,
		MaxParticipants:         r.MaxParticipants,
		AllowedActivities:       r.AllowedActivities,
		RestrictedActivities:    r.RestrictedActivities,
		ContentFilterLevel:      r.ContentFilterLevel,
		RequiresParentalConsent: r.RequiresParentalConsent,
		TimeRestrictions:        windowToRaw(r.TimeRestrictions),
	}
	return mustMarshal(raw)
}

func windowToRaw(w *TimeWindow) *rawTimeWindow {
	if w == nil {
		return nil
	}
	start, end := w.StartHour, w.EndHour
	return &rawTimeWindow{StartHour: &start, EndHour: &end}
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// All raw shapes are plain data; marshal cannot fail.
		return []byte("{}")
	}
	return b
}
