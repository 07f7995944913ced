package domain

import "time"

// InvalidLine records a line that failed the dependency-specifier grammar.
// Parsing never aborts on bad lines; they are carried for the linter.
type InvalidLine struct {
	Line   int    `json:"line"`
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

// Manifest is a parsed dependency manifest file
type Manifest struct {
	ID           string         `json:"id"`
	Path         string         `json:"path"`
	Hash         string         `json:"hash"` // sha256 of the source bytes
	Requirements []*Requirement `json:"requirements"`
	Invalid      []InvalidLine  `json:"invalid,omitempty"`
	Groups       []string       `json:"groups,omitempty"` // header order as encountered
	LoadedAt     time.Time      `json:"loaded_at"`
}

// NewManifest creates an empty manifest for the given path
func NewManifest(path string) *Manifest {
	return &Manifest{
		Path:     path,
		LoadedAt: time.Now(),
	}
}

// Add appends a requirement, recording its group the first time it appears
func (m *Manifest) Add(r *Requirement) {
	if r.Group != "" && !m.hasGroup(r.Group) {
		m.Groups = append(m.Groups, r.Group)
	}
	m.Requirements = append(m.Requirements, r)
}

func (m *Manifest) hasGroup(name string) bool {
	for _, g := range m.Groups {
		if g == name {
			return true
		}
	}
	return false
}

// ByName returns all requirements sharing a canonical name
func (m *Manifest) ByName(canonical string) []*Requirement {
	var out []*Requirement
	for _, r := range m.Requirements {
		if r.Canonical == canonical {
			out = append(out, r)
		}
	}
	return out
}

// CanonicalNames returns the distinct canonical names in first-seen order
func (m *Manifest) CanonicalNames() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range m.Requirements {
		if !seen[r.Canonical] {
			seen[r.Canonical] = true
			out = append(out, r.Canonical)
		}
	}
	return out
}
