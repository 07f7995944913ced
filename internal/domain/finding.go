package domain

import "time"

// Severity classifies a lint finding
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// FindingStatus tracks the resolution workflow of a finding
type FindingStatus string

const (
	FindingOpen     FindingStatus = "open"
	FindingResolved FindingStatus = "resolved"
)

// Finding is a single lint result against a manifest line
type Finding struct {
	ID         string        `json:"id"`
	ManifestID string        `json:"manifest_id,omitempty"`
	Rule       string        `json:"rule"`
	Severity   Severity      `json:"severity"`
	Package    string        `json:"package,omitempty"` // canonical name, when attributable
	Line       int           `json:"line,omitempty"`
	Message    string        `json:"message"`
	Status     FindingStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	ResolvedAt *time.Time    `json:"resolved_at,omitempty"`
	ResolvedBy string        `json:"resolved_by,omitempty"`
}

// Resolve marks the finding resolved by the given actor
func (f *Finding) Resolve(by string) {
	now := time.Now()
	f.Status = FindingResolved
	f.ResolvedAt = &now
	f.ResolvedBy = by
}

// CountBySeverity tallies findings per severity, counting open findings only
func CountBySeverity(findings []*Finding) map[Severity]int {
	counts := make(map[Severity]int)
	for _, f := range findings {
		if f.Status == FindingOpen {
			counts[f.Severity]++
		}
	}
	return counts
}
