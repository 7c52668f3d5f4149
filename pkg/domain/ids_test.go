package domain

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int64
		ok    bool
	}{
		{name: "simple", input: "42", want: 42, ok: true},
		{name: "large", input: "9223372036854775807", want: 9223372036854775807, ok: true},
		{name: "zero rejected", input: "0"},
		{name: "negative rejected", input: "-7"},
		{name: "empty rejected", input: ""},
		{name: "non numeric rejected", input: "abc"},
		{name: "trailing garbage rejected", input: "42x"},
		{name: "leading whitespace rejected", input: " 42"},
		{name: "overflow rejected", input: "9223372036854775808"},
		{name: "hex rejected", input: "0x2a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseID(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIDStringRoundTrip(t *testing.T) {
	got, ok := ParseID(UserID(123).String())
	assert.True(t, ok)
	assert.Equal(t, int64(123), got)
}

func TestIsZero(t *testing.T) {
	assert.True(t, OrganizationID(0).IsZero())
	assert.False(t, OrganizationID(1).IsZero())
	assert.True(t, UserID(0).IsZero())
	assert.False(t, SpaceID(3).IsZero())
}

func FuzzParseID(f *testing.F) {
	f.Add("1")
	f.Add("0")
	f.Add("-1")
	f.Add("")
	f.Add("9223372036854775807")
	f.Add("not-a-number")

	f.Fuzz(func(t *testing.T, s string) {
		n, ok := ParseID(s)
		if !ok {
			if n != 0 {
				t.Fatalf("ParseID(%q) rejected input but returned %d", s, n)
			}
			return
		}
		if n <= 0 {
			t.Fatalf("ParseID(%q) accepted non-positive value %d", s, n)
		}
		if strconv.FormatInt(n, 10) != s {
			t.Fatalf("ParseID(%q) = %d does not round-trip", s, n)
		}
	})
}
