package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Comparator is a version comparison operator
type Comparator string

const (
	CompEqual        Comparator = "=="
	CompNotEqual     Comparator = "!="
	CompGreaterEqual Comparator = ">="
	CompLessEqual    Comparator = "<="
	CompGreater      Comparator = ">"
	CompLess         Comparator = "<"
	CompCompatible   Comparator = "~="
)

// Specifier is a single version clause such as ">=1.16" or "==1.4.*".
// Wildcard is set for "==X.*" and "!=X.*" forms; a wildcard version keeps
// only the written release segments.
type Specifier struct {
	Op       Comparator `json:"op"`
	Version  *Version   `json:"version"`
	Wildcard bool       `json:"wildcard,omitempty"`
}

var specifierPattern = regexp.MustCompile(`^(==|!=|>=|<=|~=|>|<)\s*(.+?)\s*$`)

// ParseSpecifier parses a single specifier clause
func ParseSpecifier(s string) (*Specifier, error) {
	m := specifierPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil, fmt.Errorf("invalid specifier %q", s)
	}

	op := Comparator(m[1])
	raw := m[2]

	wildcard := false
	if strings.HasSuffix(raw, ".*") {
		if op != CompEqual && op != CompNotEqual {
			return nil, fmt.Errorf("wildcard version not allowed with %s in %q", op, s)
		}
		wildcard = true
		raw = strings.TrimSuffix(raw, ".*")
	}

	v, err := ParseVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid specifier %q: %w", s, err)
	}

	if op == CompCompatible {
		if len(v.Release) < 2 {
			return nil, fmt.Errorf("compatible release clause requires at least two release segments in %q", s)
		}
		if v.Local != "" {
			return nil, fmt.Errorf("compatible release clause cannot carry a local version in %q", s)
		}
	}

	return &Specifier{Op: op, Version: v, Wildcard: wildcard}, nil
}

// String returns the normalized form of the specifier
func (s *Specifier) String() string {
	if s.Wildcard {
		return fmt.Sprintf("%s%s.*", s.Op, s.Version)
	}
	return fmt.Sprintf("%s%s", s.Op, s.Version)
}

// Match reports whether v satisfies the specifier
func (s *Specifier) Match(v *Version) bool {
	switch s.Op {
	case CompEqual:
		if s.Wildcard {
			return matchesReleasePrefix(v, s.Version)
		}
		return v.Compare(s.Version) == 0
	case CompNotEqual:
		if s.Wildcard {
			return !matchesReleasePrefix(v, s.Version)
		}
		return v.Compare(s.Version) != 0
	case CompGreaterEqual:
		return v.Compare(s.Version) >= 0
	case CompLessEqual:
		return v.Compare(s.Version) <= 0
	case CompGreater:
		return v.Compare(s.Version) > 0
	case CompLess:
		return v.Compare(s.Version) < 0
	case CompCompatible:
		if v.Compare(s.Version) < 0 {
			return false
		}
		prefix := &Version{Epoch: s.Version.Epoch, Release: s.Version.TruncatedRelease(), Post: -1, Dev: -1}
		return matchesReleasePrefix(v, prefix)
	default:
		return false
	}
}

// matchesReleasePrefix reports whether v's epoch and leading release
// segments equal those of prefix.
func matchesReleasePrefix(v, prefix *Version) bool {
	if v.Epoch != prefix.Epoch {
		return false
	}
	for i := range prefix.Release {
		if v.releaseSegment(i) != prefix.Release[i] {
			return false
		}
	}
	return true
}
