package domain

import "testing"

func TestParseVersion(t *testing.T) {
	t.Run("plain release", func(t *testing.T) {
		v, err := ParseVersion("1.16.0")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(v.Release) != 3 || v.Release[0] != 1 || v.Release[1] != 16 || v.Release[2] != 0 {
			t.Errorf("unexpected release segments: %v", v.Release)
		}
		if v.Epoch != 0 || v.Pre != nil || v.Post != -1 || v.Dev != -1 {
			t.Errorf("unexpected components: %+v", v)
		}
	})

	t.Run("epoch", func(t *testing.T) {
		v, err := ParseVersion("2!1.0")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v.Epoch != 2 {
			t.Errorf("expected epoch 2, got %d", v.Epoch)
		}
	})

	t.Run("pre release aliases normalize", func(t *testing.T) {
		for in, want := range map[string]string{
			"1.0alpha1":   "1.0a1",
			"1.0-beta.2":  "1.0b2",
			"1.0preview3": "1.0rc3",
			"1.0c4":       "1.0rc4",
			"1.0rc1":      "1.0rc1",
		} {
			v, err := ParseVersion(in)
			if err != nil {
				t.Fatalf("ParseVersion(%q): %v", in, err)
			}
			if v.String() != want {
				t.Errorf("ParseVersion(%q).String() = %q, want %q", in, v.String(), want)
			}
		}
	})

	t.Run("post and dev", func(t *testing.T) {
		v, err := ParseVersion("1.0.post2.dev3")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v.Post != 2 || v.Dev != 3 {
			t.Errorf("expected post=2 dev=3, got post=%d dev=%d", v.Post, v.Dev)
		}
	})

	t.Run("local tag", func(t *testing.T) {
		v, err := ParseVersion("1.0+ubuntu-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v.Local != "ubuntu.1" {
			t.Errorf("expected local 'ubuntu.1', got %q", v.Local)
		}
	})

	t.Run("leading v prefix", func(t *testing.T) {
		if _, err := ParseVersion("v1.2.3"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("rejects garbage", func(t *testing.T) {
		for _, in := range []string{"", "abc", "1.0.0.x", ">=1.0", "1..0"} {
			if _, err := ParseVersion(in); err == nil {
				t.Errorf("ParseVersion(%q) should have failed", in)
			}
		}
	})
}

func TestVersionCompare(t *testing.T) {
	// Ordered strictly ascending per PEP 440
	ordered := []string{
		"0.9",
		"1.0.dev1",
		"1.0a1.dev1",
		"1.0a1",
		"1.0a2",
		"1.0b1",
		"1.0rc1",
		"1.0",
		"1.0+local",
		"1.0.post1.dev1",
		"1.0.post1",
		"1.0.1",
		"1.1",
		"2.0",
		"1!0.5",
	}

	for i := 0; i < len(ordered)-1; i++ {
		a := MustParseVersion(ordered[i])
		b := MustParseVersion(ordered[i+1])
		if a.Compare(b) >= 0 {
			t.Errorf("expected %s < %s", ordered[i], ordered[i+1])
		}
		if b.Compare(a) <= 0 {
			t.Errorf("expected %s > %s", ordered[i+1], ordered[i])
		}
	}

	t.Run("zero padding", func(t *testing.T) {
		if !MustParseVersion("1.0").Equal(MustParseVersion("1.0.0")) {
			t.Error("expected 1.0 == 1.0.0")
		}
		if !MustParseVersion("1").Equal(MustParseVersion("1.0.0.0")) {
			t.Error("expected 1 == 1.0.0.0")
		}
	})

	t.Run("equality ignores spelling", func(t *testing.T) {
		if !MustParseVersion("1.0alpha1").Equal(MustParseVersion("1.0a1")) {
			t.Error("expected 1.0alpha1 == 1.0a1")
		}
	})
}

func TestVersionIsPreRelease(t *testing.T) {
	if !MustParseVersion("1.0rc1").IsPreRelease() {
		t.Error("expected 1.0rc1 to be a pre-release")
	}
	if !MustParseVersion("1.0.dev1").IsPreRelease() {
		t.Error("expected 1.0.dev1 to be a pre-release")
	}
	if MustParseVersion("1.0.post1").IsPreRelease() {
		t.Error("expected 1.0.post1 not to be a pre-release")
	}
}
