// Package version implements the dotted client/server version tag used
// throughout the wire protocol, plus the build version of this binary.
//
// The comparable dotted version mirrors rpipe's original Python Version
// class (see original_source/rpipe/server/util.py callers): a tuple of
// dot-separated non-negative integers, compared component-wise.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// mainpkg is the canonical import path this binary was built under.
var mainpkg = "github.com/rpipe-project/rpipe-server"

// build is the server build version, overridden at link time via
// -ldflags "-X .../internal/version.build=...".
var build = "8.1.0"

// Package returns the canonical import path of this module.
func Package() string { return mainpkg }

// Build returns the version this binary was built from.
func Build() string { return build }

// Version is a dotted, comparable wire version such as "8.1.0".
type Version struct {
	parts []int
	raw   string
}

// Parse parses a dotted version string into a Version. Non-numeric or empty
// components are rejected, matching the strictness of the original
// implementation's Version parser.
func Parse(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{}, fmt.Errorf("version: empty version string")
	}
	fields := strings.Split(s, ".")
	parts := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("version: invalid component %q in %q", f, s)
		}
		parts[i] = n
	}
	return Version{parts: parts, raw: s}, nil
}

// MustParse panics if s does not parse; for use with compile-time constants.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the original dotted representation.
func (v Version) String() string { return v.raw }

// IsZero reports whether v is the unparsed zero value.
func (v Version) IsZero() bool { return v.parts == nil }

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than
// other. Missing trailing components compare as zero, so "8.1" == "8.1.0".
func (v Version) Compare(other Version) int {
	n := len(v.parts)
	if len(other.parts) > n {
		n = len(other.parts)
	}
	for i := 0; i < n; i++ {
		a, b := 0, 0
		if i < len(v.parts) {
			a = v.parts[i]
		}
		if i < len(other.parts) {
			b = other.parts[i]
		}
		if a != b {
			if a < b {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Less reports whether v < other.
func (v Version) Less(other Version) bool { return v.Compare(other) < 0 }

// Equal reports whether v == other.
func (v Version) Equal(other Version) bool { return v.Compare(other) == 0 }
