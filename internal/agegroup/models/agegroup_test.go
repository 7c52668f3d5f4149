package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cohort/internal/rules"
	dErrors "cohort/pkg/domain-errors"
)

var now = time.Date(2025, 6, 16, 12, 0, 0, 0, time.UTC)

func TestNewValidation(t *testing.T) {
	_, err := New("Teens", 13, 17, rules.AgeGroupRules{}, now)
	require.NoError(t, err)

	tests := []struct {
		name   string
		gName  string
		minAge int
		maxAge int
	}{
		{"short name", "T", 13, 17},
		{"negative min", "Teens", -1, 17},
		{"max too high", "Teens", 13, 200},
		{"inverted bounds", "Teens", 17, 13},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.gName, tt.minAge, tt.maxAge, rules.AgeGroupRules{}, now)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func TestIncludesAge(t *testing.T) {
	g := &AgeGroup{MinAge: 13, MaxAge: 17}
	assert.False(t, g.IncludesAge(12))
	assert.True(t, g.IncludesAge(13))
	assert.True(t, g.IncludesAge(17))
	assert.False(t, g.IncludesAge(18))
}

func TestDefaultGroups(t *testing.T) {
	groups := DefaultGroups(now)
	require.Len(t, groups, 6)

	// contiguous coverage for every minor and adult age up to 120
	for age := 0; age <= 120; age++ {
		covered := false
		for _, g := range groups {
			if g.IncludesAge(age) {
				covered = true
				break
			}
		}
		assert.True(t, covered, "age %d not covered", age)
	}

	// minors' brackets require consent, adult brackets do not
	assert.True(t, groups[0].Rules.RequiresParentalConsent)
	assert.True(t, groups[1].Rules.RequiresParentalConsent)
	for _, g := range groups[2:] {
		assert.False(t, g.Rules.RequiresParentalConsent, g.Name)
	}
}
