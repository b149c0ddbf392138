// Package ident implements the opaque 15/18-character record identifier
// used throughout amaxa: canonicalization to the 18-character form,
// equality independent of which form was supplied, and key-prefix
// extraction for polymorphic reference classification.
package ident

import (
	"regexp"

	"github.com/briannabrownOE/amaxa/pkg/errors"
)

var (
	re15 = regexp.MustCompile(`^[A-Za-z0-9]{15}$`)
	re18 = regexp.MustCompile(`^[A-Za-z0-9]{18}$`)

	checksumAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ012345"
)

// ID is a canonicalized 18-character record identifier. The zero value is
// not a valid ID; always construct one via FromString.
type ID struct {
	canonical string
}

// FromString parses s, which must match [A-Za-z0-9]{15} or
// [A-Za-z0-9]{18}, and returns its canonical 18-character form. A 15-char
// input has its checksum computed; an 18-char input is accepted as-is
// (its checksum is not re-verified, matching the reference
// implementation, which trusts ids already carrying a suffix).
func FromString(s string) (ID, error) {
	switch {
	case re18.MatchString(s):
		return ID{canonical: s}, nil
	case re15.MatchString(s):
		return ID{canonical: s + checksumSuffix(s)}, nil
	default:
		return ID{}, errors.NewValueError("ident", "%q is not a valid 15 or 18 character record id", s)
	}
}

// MustFromString is FromString but panics on error; useful in tests and
// for compile-time-known literal ids.
func MustFromString(s string) ID {
	id, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return id
}

// checksumSuffix computes the three-character checksum suffix for a
// 15-character prefix. The prefix is split into three 5-character
// chunks; each chunk contributes one output character, chosen from
// checksumAlphabet by a 5-bit mask where bit i (weight 2^i) is set iff
// the i-th character of that chunk (0-indexed) is an uppercase letter.
func checksumSuffix(prefix15 string) string {
	out := make([]byte, 0, 3)
	for chunk := 0; chunk < 3; chunk++ {
		mask := 0
		for i := 0; i < 5; i++ {
			c := prefix15[chunk*5+i]
			if c >= 'A' && c <= 'Z' {
				mask |= 1 << uint(i)
			}
		}
		out = append(out, checksumAlphabet[mask])
	}
	return string(out)
}

// String returns the canonical 18-character form.
func (id ID) String() string {
	return id.canonical
}

// IsZero reports whether id is the zero value (never produced by
// FromString).
func (id ID) IsZero() bool {
	return id.canonical == ""
}

// Prefix returns the three-character key prefix identifying the id's
// object type within a tenant.
func (id ID) Prefix() string {
	if len(id.canonical) < 3 {
		return ""
	}
	return id.canonical[:3]
}

// Equal reports whether id and other refer to the same record,
// comparing canonical 18-character forms.
func (id ID) Equal(other ID) bool {
	return id.canonical == other.canonical
}

// EqualString reports whether s, taken as a 15 or 18 character id,
// refers to the same record as id. An unparsable s is never equal.
func (id ID) EqualString(s string) bool {
	other, err := FromString(s)
	if err != nil {
		return false
	}
	return id.Equal(other)
}
