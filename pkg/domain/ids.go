// Package domain defines the typed identifiers shared across the platform.
//
// All persisted entities are keyed by integer identifiers assigned by the
// storage layer. Wrapping them in distinct types keeps user and space ids from
// being swapped silently at call sites.
package domain

import "strconv"

type (
	UserID         int64
	OrganizationID int64
	SpaceID        int64
	AgeGroupID     int64
	ConsentID      int64
	SnapshotID     int64
)

func (id UserID) IsZero() bool         { return id == 0 }
func (id OrganizationID) IsZero() bool { return id == 0 }
func (id SpaceID) IsZero() bool        { return id == 0 }
func (id AgeGroupID) IsZero() bool     { return id == 0 }
func (id ConsentID) IsZero() bool      { return id == 0 }
func (id SnapshotID) IsZero() bool     { return id == 0 }

func (id UserID) String() string         { return strconv.FormatInt(int64(id), 10) }
func (id OrganizationID) String() string { return strconv.FormatInt(int64(id), 10) }
func (id SpaceID) String() string        { return strconv.FormatInt(int64(id), 10) }
func (id AgeGroupID) String() string     { return strconv.FormatInt(int64(id), 10) }

// ParseID parses a decimal identifier as carried in URLs and JWT subjects.
// Returns false for anything that is not a positive integer.
func ParseID(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
