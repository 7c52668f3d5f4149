package models

import (
	"strings"
	"time"

	id "cohort/pkg/domain"
	dErrors "cohort/pkg/domain-errors"
	"cohort/pkg/email"
)

// AdultAge is the threshold below which a member is a minor and parental
// consent rules apply.
const AdultAge = 18

// User is a platform member. OrganizationID is zero while the user has not
// joined a tenant; the join gate (eligibility.CanJoin) runs before it is set.
type User struct {
	ID             id.UserID
	Email          string
	FirstName      string
	LastName       string
	DateOfBirth    time.Time
	OrganizationID id.OrganizationID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func New(emailAddr, firstName, lastName string, dateOfBirth time.Time, now time.Time) (*User, error) {
	fields := map[string]string{}
	if !email.Valid(emailAddr) {
		fields["email"] = "must be a valid email address"
	}
	if l := len(strings.TrimSpace(firstName)); l < 2 || l > 50 {
		fields["first_name"] = "must be between 2 and 50 characters"
	}
	if l := len(strings.TrimSpace(lastName)); l < 2 || l > 50 {
		fields["last_name"] = "must be between 2 and 50 characters"
	}
	if dateOfBirth.IsZero() {
		fields["date_of_birth"] = "is required"
	} else if dateOfBirth.After(now) {
		fields["date_of_birth"] = "cannot be in the future"
	}
	if len(fields) > 0 {
		return nil, dErrors.NewValidation(fields)
	}
	return &User{
		Email:       email.Normalize(emailAddr),
		FirstName:   strings.TrimSpace(firstName),
		LastName:    strings.TrimSpace(lastName),
		DateOfBirth: dateOfBirth,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ParseDate parses a YYYY-MM-DD birth date in UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", strings.TrimSpace(s))
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// HasBirthDate reports whether an age can be derived at all.
func (u *User) HasBirthDate() bool {
	return !u.DateOfBirth.IsZero()
}

// AgeAt computes the user's age in whole years on the given date, with the
// hasn't-had-birthday-yet-this-year correction. A Feb 29 birthday counts from
// Mar 1 in non-leap years (time.Date normalization).
// Returns false when no birth date is recorded.
func (u *User) AgeAt(today time.Time) (int, bool) {
	if !u.HasBirthDate() {
		return 0, false
	}
	dob := u.DateOfBirth
	age := today.Year() - dob.Year()
	anniversary := time.Date(today.Year(), dob.Month(), dob.Day(), 0, 0, 0, 0, today.Location())
	y, m, d := today.Date()
	todayMidnight := time.Date(y, m, d, 0, 0, 0, 0, today.Location())
	if anniversary.After(todayMidnight) {
		age--
	}
	if age < 0 {
		age = 0
	}
	return age, true
}

// MinorAt reports whether the user is under the adult age on the given date.
// Users without a birth date are not treated as minors; they simply have no
// derivable age (and fail age-gated checks for that reason instead).
func (u *User) MinorAt(today time.Time) bool {
	age, ok := u.AgeAt(today)
	return ok && age < AdultAge
}

// MemberOf reports whether the user belongs to the given organization.
func (u *User) MemberOf(orgID id.OrganizationID) bool {
	return u.OrganizationID != 0 && u.OrganizationID == orgID
}
