package models

import (
	"regexp"
	"strings"
	"time"

	"cohort/internal/rules"
	id "cohort/pkg/domain"
	dErrors "cohort/pkg/domain-errors"
)

// domainPattern accepts hostname-like tenant domains: label of 3-63
// alphanumeric/hyphen characters followed by a dotted TLD.
var domainPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]{1,61}[a-zA-Z0-9]\.[a-zA-Z]{2,}$`)

// Organization is the tenant aggregate. It owns its participation spaces and
// analytics snapshots (cascade-delete at the storage layer) and gates
// membership through its settings document.
//
// Invariants:
//   - Name is 2-100 characters
//   - Domain is unique and hostname-like
//   - Settings is always present; creation applies DefaultSettings when the
//     caller supplies none
type Organization struct {
	ID          id.OrganizationID
	Name        string
	Domain      string
	Description string
	Settings    rules.OrganizationSettings
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DefaultSettings is applied when an organization is created without an
// explicit settings document: widest age bounds, consent required for minors,
// no age-group restriction.
func DefaultSettings() rules.OrganizationSettings {
	return rules.OrganizationSettings{
		MinimumAge:              0,
		MaximumAge:              120,
		RequiresParentalConsent: true,
	}
}

func New(name, domain, description string, settings *rules.OrganizationSettings, now time.Time) (*Organization, error) {
	name = strings.TrimSpace(name)
	domain = strings.ToLower(strings.TrimSpace(domain))

	fields := map[string]string{}
	if len(name) < 2 || len(name) > 100 {
		fields["name"] = "must be between 2 and 100 characters"
	}
	if !domainPattern.MatchString(domain) {
		fields["domain"] = "must be a valid domain (e.g. example.org)"
	}
	if len(description) > 1000 {
		fields["description"] = "must be at most 1000 characters"
	}
	if settings != nil && settings.MinimumAge > settings.MaximumAge {
		fields["settings.minimum_age"] = "must not exceed maximum_age"
	}
	if len(fields) > 0 {
		return nil, dErrors.NewValidation(fields)
	}

	effective := DefaultSettings()
	if settings != nil {
		effective = *settings
	}
	return &Organization{
		Name:        name,
		Domain:      domain,
		Description: description,
		Settings:    effective,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// RestrictsAgeGroups reports whether membership is limited to an explicit
// age-group allow list.
func (o *Organization) RestrictsAgeGroups() bool {
	return len(o.Settings.AllowedAgeGroupIDs) > 0
}

// AllowsAgeGroup reports whether the group is admissible under the settings.
// An empty allow list admits every group.
func (o *Organization) AllowsAgeGroup(groupID id.AgeGroupID) bool {
	if !o.RestrictsAgeGroups() {
		return true
	}
	for _, allowed := range o.Settings.AllowedAgeGroupIDs {
		if allowed == groupID {
			return true
		}
	}
	return false
}
