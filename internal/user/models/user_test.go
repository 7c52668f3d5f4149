package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewNormalizes(t *testing.T) {
	now := date(2025, 6, 16)
	u, err := New("  Adam@Example.ORG ", "  Adam ", " Adult  ", date(2000, 3, 1), now)
	require.NoError(t, err)
	assert.Equal(t, "adam@example.org", u.Email)
	assert.Equal(t, "Adam", u.FirstName)
	assert.Equal(t, "Adam Adult", u.FullName())
}

func TestNewValidation(t *testing.T) {
	now := date(2025, 6, 16)

	tests := []struct {
		name  string
		email string
		first string
		last  string
		dob   time.Time
		field string
	}{
		{"bad email", "nope", "Adam", "Adult", date(2000, 3, 1), "email"},
		{"short first name", "a@example.org", "A", "Adult", date(2000, 3, 1), "first_name"},
		{"short last name", "a@example.org", "Adam", "B", date(2000, 3, 1), "last_name"},
		{"zero birth date", "a@example.org", "Adam", "Adult", time.Time{}, "date_of_birth"},
		{"future birth date", "a@example.org", "Adam", "Adult", date(2030, 1, 1), "date_of_birth"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.email, tt.first, tt.last, tt.dob, now)
			require.Error(t, err)
		})
	}
}

func TestAgeAt(t *testing.T) {
	dob := date(2000, 6, 15)
	u := &User{DateOfBirth: dob}

	t.Run("day before birthday", func(t *testing.T) {
		age, ok := u.AgeAt(date(2025, 6, 14))
		require.True(t, ok)
		assert.Equal(t, 24, age)
	})

	t.Run("on the birthday", func(t *testing.T) {
		age, ok := u.AgeAt(date(2025, 6, 15))
		require.True(t, ok)
		assert.Equal(t, 25, age)
	})

	t.Run("no birth date", func(t *testing.T) {
		_, ok := (&User{}).AgeAt(date(2025, 6, 15))
		assert.False(t, ok)
	})
}

// A Feb 29 birthday normalizes to Mar 1 in non-leap years, so the birthday
// has not happened yet on Feb 28.
func TestAgeAtLeapYearBirthday(t *testing.T) {
	u := &User{DateOfBirth: date(2008, 2, 29)}

	age, ok := u.AgeAt(date(2025, 2, 28))
	require.True(t, ok)
	assert.Equal(t, 16, age)

	age, ok = u.AgeAt(date(2025, 3, 1))
	require.True(t, ok)
	assert.Equal(t, 17, age)

	// leap year: birthday falls on the actual Feb 29
	age, ok = u.AgeAt(date(2024, 2, 29))
	require.True(t, ok)
	assert.Equal(t, 16, age)
}

func TestMinorAt(t *testing.T) {
	now := date(2025, 6, 16)
	assert.True(t, (&User{DateOfBirth: date(2010, 3, 1)}).MinorAt(now))
	assert.False(t, (&User{DateOfBirth: date(2000, 3, 1)}).MinorAt(now))
	// no birth date: not a minor, just no derivable age
	assert.False(t, (&User{}).MinorAt(now))
}

func TestMemberOf(t *testing.T) {
	u := &User{OrganizationID: 3}
	assert.True(t, u.MemberOf(3))
	assert.False(t, u.MemberOf(4))
	assert.False(t, (&User{}).MemberOf(0))
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate(" 2010-03-01 ")
	require.NoError(t, err)
	assert.Equal(t, date(2010, 3, 1), got)

	_, err = ParseDate("01/03/2010")
	assert.Error(t, err)
}
