package lint

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johny-c/lagom/internal/domain"
	"github.com/johny-c/lagom/internal/reqfile"
)

func lintString(t *testing.T, input string, disabled ...string) []*domain.Finding {
	t.Helper()
	m, err := reqfile.Parse(strings.NewReader(input))
	require.NoError(t, err)
	return New(disabled).Run(m)
}

func rulesOf(findings []*domain.Finding) []string {
	var out []string
	for _, f := range findings {
		out = append(out, f.Rule)
	}
	return out
}

func TestLinterCleanManifest(t *testing.T) {
	findings := lintString(t, `# common
numpy>=1.16.4
scipy>=1.3.0

# RL
gym>=0.12.5
`)
	assert.Empty(t, findings)
}

func TestLinterGrammar(t *testing.T) {
	findings := lintString(t, `numpy>=1.16
not a valid line !!!
-r extra.txt
`)
	require.Len(t, findings, 2)
	for _, f := range findings {
		assert.Equal(t, RuleGrammar, f.Rule)
		assert.Equal(t, domain.SeverityError, f.Severity)
		assert.Equal(t, domain.FindingOpen, f.Status)
		assert.NotEmpty(t, f.ID)
	}
	assert.Equal(t, 2, findings[0].Line)
	assert.Equal(t, 3, findings[1].Line)
}

func TestLinterConflict(t *testing.T) {
	findings := lintString(t, `numpy>=1.16
numpy<1.0
`, RuleDuplicate, RuleNoLowerBound)

	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, RuleConflict, f.Rule)
	assert.Equal(t, domain.SeverityError, f.Severity)
	assert.Equal(t, "numpy", f.Package)
	assert.Contains(t, f.Message, "lines 1, 2")
}

func TestLinterConflictMarkerExemption(t *testing.T) {
	// Same package, disjoint constraints, but different environment
	// markers: not a conflict.
	findings := lintString(t, `dataclasses>=0.6,<0.7; python_version < "3.7"
dataclasses>=0.8; python_version >= "3.7"
`, RuleNoLowerBound)

	assert.NotContains(t, rulesOf(findings), RuleConflict)
}

func TestLinterDuplicate(t *testing.T) {
	findings := lintString(t, `numpy>=1.16
numpy>=1.17
`)
	rules := rulesOf(findings)
	assert.Contains(t, rules, RuleDuplicate)
	assert.NotContains(t, rules, RuleConflict)
}

func TestLinterCanonicalName(t *testing.T) {
	findings := lintString(t, "sphinx_rtd_theme>=0.4.3\n")
	require.Len(t, findings, 1)
	assert.Equal(t, RuleCanonicalName, findings[0].Rule)
	assert.Equal(t, "sphinx-rtd-theme", findings[0].Package)
}

func TestLinterNoLowerBound(t *testing.T) {
	findings := lintString(t, "gym\npyglet<2.0\n")
	require.Len(t, findings, 2)
	assert.Equal(t, RuleNoLowerBound, findings[0].Rule)
	assert.Equal(t, domain.SeverityWarning, findings[0].Severity)
}

func TestLinterDisabledRules(t *testing.T) {
	findings := lintString(t, "gym\n", RuleNoLowerBound)
	assert.Empty(t, findings)

	// Grammar and conflict cannot be disabled
	findings = lintString(t, "not a valid line !!!\n", RuleGrammar)
	require.Len(t, findings, 1)
	assert.Equal(t, RuleGrammar, findings[0].Rule)
}

func TestLinterSortsByLine(t *testing.T) {
	findings := lintString(t, `gym
bad line !!!
pyglet<2.0
`)
	require.Len(t, findings, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{findings[0].Line, findings[1].Line, findings[2].Line})
}
