// Package notify delivers parental notification events to the external
// notification collaborator.
//
// Delivery is fire-and-forget by contract: a failed or slow delivery must
// never block or roll back the consent state change that triggered it, so
// every implementation logs failures and swallows them.
package notify

import (
	"context"
	"time"

	id "cohort/pkg/domain"
)

// Event kinds mirror the consent status transitions parents are told about.
const (
	KindConsentRequested = "consent_requested"
	KindConsentApproved  = "consent_approved"
	KindConsentRevoked   = "consent_revoked"
)

// ConsentEvent describes a consent status change destined for the parent
// address on file.
type ConsentEvent struct {
	Kind        string    `json:"kind"`
	UserID      id.UserID `json:"user_id"`
	UserName    string    `json:"user_name"`
	ParentEmail string    `json:"parent_email"`
	ParentName  string    `json:"parent_name"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Notifier publishes consent events. Implementations are best-effort.
type Notifier interface {
	ConsentStatusChanged(ctx context.Context, event ConsentEvent) error
}
