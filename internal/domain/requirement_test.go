package domain

import "testing"

func TestCanonicalName(t *testing.T) {
	for in, want := range map[string]string{
		"numpy":            "numpy",
		"scikit-learn":     "scikit-learn",
		"scikit_learn":     "scikit-learn",
		"Scikit.Learn":     "scikit-learn",
		"opencv--python":   "opencv-python",
		"Sphinx_RTD.Theme": "sphinx-rtd-theme",
	} {
		if got := CanonicalName(in); got != want {
			t.Errorf("CanonicalName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRequirementMatches(t *testing.T) {
	r := NewRequirement("numpy")
	s1, _ := ParseSpecifier(">=1.16")
	s2, _ := ParseSpecifier("<2.0")
	r.Specifiers = []*Specifier{s1, s2}

	t.Run("satisfies all clauses", func(t *testing.T) {
		if !r.Matches(MustParseVersion("1.18.5")) {
			t.Error("expected 1.18.5 to match >=1.16,<2.0")
		}
	})

	t.Run("fails one clause", func(t *testing.T) {
		if r.Matches(MustParseVersion("2.0")) {
			t.Error("expected 2.0 not to match >=1.16,<2.0")
		}
		if r.Matches(MustParseVersion("1.15")) {
			t.Error("expected 1.15 not to match >=1.16,<2.0")
		}
	})

	t.Run("no specifiers matches everything", func(t *testing.T) {
		bare := NewRequirement("gym")
		if !bare.Matches(MustParseVersion("0.1")) {
			t.Error("expected bare requirement to match any version")
		}
	})
}

func TestRequirementHasLowerBound(t *testing.T) {
	cases := []struct {
		specs []string
		want  bool
	}{
		{[]string{">=1.16"}, true},
		{[]string{">1.0"}, true},
		{[]string{"~=1.4.2"}, true},
		{[]string{"==1.2.3"}, true},
		{[]string{"<2.0"}, false},
		{[]string{"!=1.5"}, false},
		{[]string{"==1.4.*"}, false},
		{nil, false},
	}

	for _, tc := range cases {
		r := NewRequirement("pkg")
		for _, raw := range tc.specs {
			s, err := ParseSpecifier(raw)
			if err != nil {
				t.Fatalf("ParseSpecifier(%q): %v", raw, err)
			}
			r.Specifiers = append(r.Specifiers, s)
		}
		if got := r.HasLowerBound(); got != tc.want {
			t.Errorf("HasLowerBound(%v) = %v, want %v", tc.specs, got, tc.want)
		}
	}
}

func TestRequirementString(t *testing.T) {
	r := NewRequirement("gym")
	r.Extras = []string{"atari", "box2d"}
	s1, _ := ParseSpecifier(">=0.12.0")
	s2, _ := ParseSpecifier("<1.0")
	r.Specifiers = []*Specifier{s1, s2}
	r.Marker = `python_version >= "3.6"`

	want := `gym[atari,box2d]>=0.12.0,<1.0; python_version >= "3.6"`
	if got := r.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestManifestGroups(t *testing.T) {
	m := NewManifest("requirements.txt")

	r1 := NewRequirement("numpy")
	r1.Group = "common"
	r2 := NewRequirement("scipy")
	r2.Group = "common"
	r3 := NewRequirement("gym")
	r3.Group = "RL"

	m.Add(r1)
	m.Add(r2)
	m.Add(r3)

	if len(m.Groups) != 2 || m.Groups[0] != "common" || m.Groups[1] != "RL" {
		t.Errorf("unexpected groups: %v", m.Groups)
	}
	if len(m.ByName("numpy")) != 1 {
		t.Errorf("expected one numpy requirement")
	}
	names := m.CanonicalNames()
	if len(names) != 3 {
		t.Errorf("expected 3 distinct names, got %v", names)
	}
}
