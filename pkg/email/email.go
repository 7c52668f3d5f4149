// Package email validates and normalizes the parent contact addresses stored
// on consent records.
package email

import (
	"regexp"
	"strings"
)

var addressPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Valid reports whether s looks like a deliverable address. Delivery itself is
// the notification collaborator's problem; this only rejects obvious typos.
func Valid(s string) bool {
	return addressPattern.MatchString(strings.TrimSpace(s))
}

// Normalize trims whitespace and lowercases the domain part.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	at := strings.LastIndexByte(s, '@')
	if at < 0 {
		return s
	}
	return s[:at+1] + strings.ToLower(s[at+1:])
}
