package domain

import (
	"regexp"
	"strings"
)

// VerifyStatus tracks whether a requirement resolves against the package index
type VerifyStatus string

const (
	VerifyUnverified   VerifyStatus = "unverified"   // Loaded but not yet checked
	VerifyInProgress   VerifyStatus = "verifying"    // Currently being checked
	VerifyOK           VerifyStatus = "verified"     // At least one released version satisfies
	VerifyUnresolvable VerifyStatus = "unresolvable" // No released version satisfies
)

// Requirement is a single dependency line from a manifest
type Requirement struct {
	Name       string       `json:"name"`           // name as written
	Canonical  string       `json:"canonical_name"` // PEP 503 normalized
	Extras     []string     `json:"extras,omitempty"`
	Specifiers []*Specifier `json:"specifiers,omitempty"`
	Marker     string       `json:"marker,omitempty"` // environment marker, kept opaque
	Group      string       `json:"group,omitempty"`  // comment header the line appeared under
	Line       int          `json:"line"`             // 1-based line number in the source file

	// Verification fields
	Status       VerifyStatus `json:"status"`
	LastVerified string       `json:"last_verified,omitempty"` // RFC 3339
}

var canonicalSeparators = regexp.MustCompile(`[-_.]+`)

// CanonicalName normalizes a package name per PEP 503: lowercase with
// runs of ".", "-" and "_" collapsed to a single "-".
func CanonicalName(name string) string {
	return strings.ToLower(canonicalSeparators.ReplaceAllString(name, "-"))
}

// NewRequirement creates a requirement with the canonical name derived
func NewRequirement(name string) *Requirement {
	return &Requirement{
		Name:      name,
		Canonical: CanonicalName(name),
		Status:    VerifyUnverified,
	}
}

// Matches reports whether v satisfies every specifier on the requirement
func (r *Requirement) Matches(v *Version) bool {
	for _, s := range r.Specifiers {
		if !s.Match(v) {
			return false
		}
	}
	return true
}

// HasLowerBound reports whether any clause constrains the version from below
func (r *Requirement) HasLowerBound() bool {
	for _, s := range r.Specifiers {
		switch s.Op {
		case CompGreaterEqual, CompGreater, CompCompatible:
			return true
		case CompEqual:
			if !s.Wildcard {
				return true
			}
		}
	}
	return false
}

// String renders the requirement as a manifest line (without group or marker
// comments), in normalized form.
func (r *Requirement) String() string {
	var b strings.Builder
	b.WriteString(r.Name)

	if len(r.Extras) > 0 {
		b.WriteByte('[')
		b.WriteString(strings.Join(r.Extras, ","))
		b.WriteByte(']')
	}

	for i, s := range r.Specifiers {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s.String())
	}

	if r.Marker != "" {
		b.WriteString("; ")
		b.WriteString(r.Marker)
	}

	return b.String()
}
