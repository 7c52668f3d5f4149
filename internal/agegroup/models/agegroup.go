package models

import (
	"fmt"
	"time"

	"cohort/internal/rules"
	id "cohort/pkg/domain"
	dErrors "cohort/pkg/domain-errors"
)

// AgeGroup is a shared, read-mostly age bracket with default participation
// rules. Spaces and users reference it without owning it; deleting a group
// cascades to its dependent spaces at the storage layer.
//
// Invariants:
//   - Name is 2-50 characters
//   - 0 <= MinAge < MaxAge <= 150
type AgeGroup struct {
	ID        id.AgeGroupID
	Name      string
	MinAge    int
	MaxAge    int
	Rules     rules.AgeGroupRules
	CreatedAt time.Time
	UpdatedAt time.Time
}

func New(name string, minAge, maxAge int, r rules.AgeGroupRules, now time.Time) (*AgeGroup, error) {
	fields := map[string]string{}
	if len(name) < 2 || len(name) > 50 {
		fields["name"] = "must be between 2 and 50 characters"
	}
	if minAge < 0 || minAge >= 150 {
		fields["min_age"] = "must be in [0, 150)"
	}
	if maxAge <= 0 || maxAge > 150 {
		fields["max_age"] = "must be in (0, 150]"
	}
	if minAge >= maxAge {
		fields["min_age"] = "must be less than max_age"
	}
	if len(fields) > 0 {
		return nil, dErrors.NewValidation(fields)
	}
	return &AgeGroup{
		Name:      name,
		MinAge:    minAge,
		MaxAge:    maxAge,
		Rules:     r,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IncludesAge reports whether the age falls inside the bracket, inclusive on
// both ends.
func (g *AgeGroup) IncludesAge(age int) bool {
	return age >= g.MinAge && age <= g.MaxAge
}

// AgeRange renders the bracket bounds for display.
func (g *AgeGroup) AgeRange() string {
	return fmt.Sprintf("%d-%d", g.MinAge, g.MaxAge)
}

// DefaultGroups returns the six canonical brackets seeded at setup. The
// analytics aggregator buckets members by the same labels.
func DefaultGroups(now time.Time) []*AgeGroup {
	mk := func(name string, minAge, maxAge int, r rules.AgeGroupRules) *AgeGroup {
		return &AgeGroup{
			Name: name, MinAge: minAge, MaxAge: maxAge, Rules: r,
			CreatedAt: now, UpdatedAt: now,
		}
	}
	return []*AgeGroup{
		mk("Children (0-12)", 0, 12, rules.AgeGroupRules{
			RequiresParentalConsent: true,
			ContentFilterLevel:      rules.FilterStrict,
			AllowedActivities:       []string{"educational", "creative"},
			RestrictedActivities:    []string{"social_media"},
			TimeRestrictions:        &rules.TimeWindow{StartHour: 6, EndHour: 20},
		}),
		mk("Teens (13-17)", 13, 17, rules.AgeGroupRules{
			RequiresParentalConsent: true,
			ContentFilterLevel:      rules.FilterModerate,
			AllowedActivities:       []string{"educational", "creative", "social"},
			RestrictedActivities:    []string{"adult_content"},
			TimeRestrictions:        &rules.TimeWindow{StartHour: 6, EndHour: 22},
		}),
		mk("Young Adults (18-25)", 18, 25, rules.AgeGroupRules{
			ContentFilterLevel: rules.FilterStandard,
			AllowedActivities:  []string{"all"},
		}),
		mk("Adults (26-35)", 26, 35, rules.AgeGroupRules{
			ContentFilterLevel: rules.FilterStandard,
			AllowedActivities:  []string{"all"},
		}),
		mk("Middle-aged (36-50)", 36, 50, rules.AgeGroupRules{
			ContentFilterLevel: rules.FilterStandard,
			AllowedActivities:  []string{"all"},
		}),
		mk("Seniors (50+)", 50, 120, rules.AgeGroupRules{
			ContentFilterLevel: rules.FilterStandard,
			AllowedActivities:  []string{"all"},
		}),
	}
}
