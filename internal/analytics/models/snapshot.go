package models

import (
	"math"
	"time"

	id "cohort/pkg/domain"
)

// Bracket labels for the age distribution. These are the same six canonical
// brackets the default age groups are seeded with.
var BracketLabels = []string{
	"Children (0-12)",
	"Teens (13-17)",
	"Young Adults (18-25)",
	"Adults (26-35)",
	"Middle-aged (36-50)",
	"Seniors (50+)",
}

// BracketForAge maps an age to its canonical bracket label. Ages above 50 all
// fall into the seniors bucket.
func BracketForAge(age int) string {
	switch {
	case age <= 12:
		return BracketLabels[0]
	case age <= 17:
		return BracketLabels[1]
	case age <= 25:
		return BracketLabels[2]
	case age <= 35:
		return BracketLabels[3]
	case age <= 50:
		return BracketLabels[4]
	default:
		return BracketLabels[5]
	}
}

// Snapshot is a point-in-time reporting artifact for one organization. It is
// regenerated wholesale on demand, never incrementally maintained, and is
// advisory only: access decisions never read it.
type Snapshot struct {
	ID               id.SnapshotID
	OrganizationID   id.OrganizationID
	TotalMembers     int
	ActiveMembers    int
	AgeDistribution  map[string]int
	RoleDistribution map[string]int
	LastUpdated      time.Time
}

// ActivityRate is the percentage of members counted as active, rounded to two
// decimals.
func (s *Snapshot) ActivityRate() float64 {
	if s.TotalMembers == 0 {
		return 0
	}
	return round2(float64(s.ActiveMembers) / float64(s.TotalMembers) * 100)
}

// GrowthRate is the percentage change in total members relative to a previous
// snapshot, rounded to two decimals. Missing or empty baselines yield zero.
func (s *Snapshot) GrowthRate(previous *Snapshot) float64 {
	if previous == nil || previous.TotalMembers == 0 {
		return 0
	}
	delta := float64(s.TotalMembers - previous.TotalMembers)
	return round2(delta / float64(previous.TotalMembers) * 100)
}

// TopAgeBracket returns the bracket with the most members, or "" when the
// distribution is empty. Ties resolve to the canonical bracket order.
func (s *Snapshot) TopAgeBracket() string {
	return dominantKey(s.AgeDistribution, BracketLabels)
}

// RoleLabels orders the role distribution keys for deterministic tie-breaks.
var RoleLabels = []string{"admin", "moderator", "member"}

// DominantRole returns the most-assigned role, or "" when none are assigned.
func (s *Snapshot) DominantRole() string {
	return dominantKey(s.RoleDistribution, RoleLabels)
}

func dominantKey(dist map[string]int, order []string) string {
	best, bestCount := "", 0
	for _, key := range order {
		if count := dist[key]; count > bestCount {
			best, bestCount = key, count
		}
	}
	return best
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
