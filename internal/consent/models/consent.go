package models

import (
	"strings"
	"time"

	id "cohort/pkg/domain"
	dErrors "cohort/pkg/domain-errors"
	"cohort/pkg/email"
)

// Validity is how long an approval is considered current before it needs
// renewal. Expiry is computed and reported but deliberately not consulted by
// the access evaluator.
const Validity = 365 * 24 * time.Hour

// Statuses derived from the record's state.
const (
	StatusApproved     = "approved"
	StatusPending      = "pending"
	StatusNotSubmitted = "not_submitted"
)

// ParentalConsent records a parent's approval for a minor. Exactly one record
// exists per minor (created empty at registration); a missing record is
// treated as consent not given, never as an error.
type ParentalConsent struct {
	ID            id.ConsentID
	UserID        id.UserID
	ParentEmail   string
	ParentName    string
	ConsentGiven  bool
	ConsentDate   *time.Time
	TermsAccepted bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewPending creates the empty record attached to a minor at registration.
func NewPending(userID id.UserID, now time.Time) *ParentalConsent {
	return &ParentalConsent{
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Submit fills in the parent's details. The record stays unapproved until
// Approve runs.
func (c *ParentalConsent) Submit(parentEmail, parentName string, termsAccepted bool, now time.Time) error {
	parentName = strings.TrimSpace(parentName)

	fields := map[string]string{}
	if !email.Valid(parentEmail) {
		fields["parent_email"] = "must be a valid email address"
	}
	if l := len(parentName); l < 2 || l > 100 {
		fields["parent_name"] = "must be between 2 and 100 characters"
	}
	if len(fields) > 0 {
		return dErrors.NewValidation(fields)
	}
	c.ParentEmail = email.Normalize(parentEmail)
	c.ParentName = parentName
	c.TermsAccepted = termsAccepted
	c.UpdatedAt = now
	return nil
}

// Status reports the record's lifecycle position.
func (c *ParentalConsent) Status() string {
	switch {
	case c.ConsentGiven:
		return StatusApproved
	case c.ParentEmail != "":
		return StatusPending
	default:
		return StatusNotSubmitted
	}
}

// CanBeApproved is the approval precondition: terms accepted and both parent
// fields present. Violating it is a caller error, not a system fault.
func (c *ParentalConsent) CanBeApproved() bool {
	return c.TermsAccepted && c.ParentEmail != "" && c.ParentName != ""
}

// Approve transitions consent_given to true and stamps the consent date.
func (c *ParentalConsent) Approve(now time.Time) error {
	if !c.CanBeApproved() {
		return dErrors.New(dErrors.CodeInvariantViolation,
			"consent cannot be approved: terms must be accepted and parent details present")
	}
	c.ConsentGiven = true
	c.ConsentDate = &now
	c.UpdatedAt = now
	return nil
}

// Revoke withdraws a previously given consent. The consent date records the
// revocation time.
func (c *ParentalConsent) Revoke(now time.Time) {
	c.ConsentGiven = false
	c.ConsentDate = &now
	c.UpdatedAt = now
}

// Expired reports whether the approval is older than the validity period.
func (c *ParentalConsent) Expired(now time.Time) bool {
	if c.ConsentDate == nil {
		return false
	}
	return c.ConsentDate.Before(now.Add(-Validity))
}

// NeedsRenewal reports whether a fresh approval should be requested.
func (c *ParentalConsent) NeedsRenewal(now time.Time) bool {
	return c.ConsentDate == nil || c.Expired(now)
}
