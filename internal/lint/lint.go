// Package lint checks a dependency manifest against the properties the file
// format promises: every non-blank, non-comment line matches the specifier
// grammar, and no two lines carry conflicting constraints for the same
// package. A few hygiene rules ride along.
package lint

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/johny-c/lagom/internal/domain"
)

// Rule identifiers
const (
	RuleGrammar       = "grammar"
	RuleConflict      = "conflict"
	RuleDuplicate     = "duplicate"
	RuleCanonicalName = "canonical-name"
	RuleNoLowerBound  = "no-lower-bound"
)

// Rule checks one property of a manifest
type Rule interface {
	ID() string
	Check(m *domain.Manifest) []*domain.Finding
}

// Linter runs a configured set of rules over a manifest
type Linter struct {
	rules []Rule
}

// DefaultRules returns the full rule set in reporting order
func DefaultRules() []Rule {
	return []Rule{
		grammarRule{},
		conflictRule{},
		duplicateRule{},
		canonicalNameRule{},
		lowerBoundRule{},
	}
}

// New creates a linter with the default rules minus the disabled IDs.
// The grammar and conflict rules cannot be disabled.
func New(disabled []string) *Linter {
	off := make(map[string]bool, len(disabled))
	for _, id := range disabled {
		off[id] = true
	}
	off[RuleGrammar] = false
	off[RuleConflict] = false

	var rules []Rule
	for _, r := range DefaultRules() {
		if !off[r.ID()] {
			rules = append(rules, r)
		}
	}
	return &Linter{rules: rules}
}

// Run checks the manifest with every rule and returns findings sorted by
// line, then rule.
func (l *Linter) Run(m *domain.Manifest) []*domain.Finding {
	var findings []*domain.Finding
	for _, rule := range l.rules {
		findings = append(findings, rule.Check(m)...)
	}

	now := time.Now()
	for _, f := range findings {
		f.ID = uuid.NewString()
		f.ManifestID = m.ID
		f.Status = domain.FindingOpen
		f.CreatedAt = now
	}

	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Line != findings[j].Line {
			return findings[i].Line < findings[j].Line
		}
		return findings[i].Rule < findings[j].Rule
	})

	return findings
}

// grammarRule surfaces lines that failed the dependency-specifier grammar
type grammarRule struct{}

func (grammarRule) ID() string { return RuleGrammar }

func (grammarRule) Check(m *domain.Manifest) []*domain.Finding {
	var out []*domain.Finding
	for _, inv := range m.Invalid {
		out = append(out, &domain.Finding{
			Rule:     RuleGrammar,
			Severity: domain.SeverityError,
			Line:     inv.Line,
			Message:  fmt.Sprintf("line does not match the dependency specifier grammar: %s", inv.Reason),
		})
	}
	return out
}

// conflictRule checks constraint satisfiability per package. Requirements
// with differing environment markers are analyzed separately: they may
// legitimately overlap.
type conflictRule struct{}

func (conflictRule) ID() string { return RuleConflict }

func (conflictRule) Check(m *domain.Manifest) []*domain.Finding {
	groups := make(map[string][]*domain.Requirement)
	var order []string
	for _, r := range m.Requirements {
		key := r.Canonical + "\x00" + r.Marker
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}

	var out []*domain.Finding
	for _, key := range order {
		reqs := groups[key]
		cs := Merge(reqs[0].Canonical, reqs)
		ok, reason := cs.Check()
		if ok {
			continue
		}
		out = append(out, &domain.Finding{
			Rule:     RuleConflict,
			Severity: domain.SeverityError,
			Package:  reqs[0].Canonical,
			Line:     cs.Lines[len(cs.Lines)-1],
			Message:  fmt.Sprintf("conflicting constraints for %s (lines %s): %s", reqs[0].Canonical, joinLines(cs.Lines), reason),
		})
	}
	return out
}

// duplicateRule flags a canonical name appearing on more than one
// marker-free line.
type duplicateRule struct{}

func (duplicateRule) ID() string { return RuleDuplicate }

func (duplicateRule) Check(m *domain.Manifest) []*domain.Finding {
	byName := make(map[string][]*domain.Requirement)
	var order []string
	for _, r := range m.Requirements {
		if r.Marker != "" {
			continue
		}
		if _, seen := byName[r.Canonical]; !seen {
			order = append(order, r.Canonical)
		}
		byName[r.Canonical] = append(byName[r.Canonical], r)
	}

	var out []*domain.Finding
	for _, name := range order {
		reqs := byName[name]
		if len(reqs) < 2 {
			continue
		}
		var lines []int
		for _, r := range reqs {
			lines = append(lines, r.Line)
		}
		out = append(out, &domain.Finding{
			Rule:     RuleDuplicate,
			Severity: domain.SeverityWarning,
			Package:  name,
			Line:     lines[len(lines)-1],
			Message:  fmt.Sprintf("%s is listed %d times (lines %s)", name, len(reqs), joinLines(lines)),
		})
	}
	return out
}

// canonicalNameRule flags names spelled differently from their PEP 503 form
type canonicalNameRule struct{}

func (canonicalNameRule) ID() string { return RuleCanonicalName }

func (canonicalNameRule) Check(m *domain.Manifest) []*domain.Finding {
	var out []*domain.Finding
	for _, r := range m.Requirements {
		if r.Name == r.Canonical {
			continue
		}
		out = append(out, &domain.Finding{
			Rule:     RuleCanonicalName,
			Severity: domain.SeverityWarning,
			Package:  r.Canonical,
			Line:     r.Line,
			Message:  fmt.Sprintf("%q is not in canonical form; prefer %q", r.Name, r.Canonical),
		})
	}
	return out
}

// lowerBoundRule flags requirements with no minimum-version clause
type lowerBoundRule struct{}

func (lowerBoundRule) ID() string { return RuleNoLowerBound }

func (lowerBoundRule) Check(m *domain.Manifest) []*domain.Finding {
	var out []*domain.Finding
	for _, r := range m.Requirements {
		if r.HasLowerBound() {
			continue
		}
		out = append(out, &domain.Finding{
			Rule:     RuleNoLowerBound,
			Severity: domain.SeverityWarning,
			Package:  r.Canonical,
			Line:     r.Line,
			Message:  fmt.Sprintf("%s has no minimum version constraint", r.Canonical),
		})
	}
	return out
}

func joinLines(lines []int) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = fmt.Sprintf("%d", l)
	}
	return strings.Join(parts, ", ")
}
