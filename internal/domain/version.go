package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// PrePhase identifies a pre-release phase in canonical form
type PrePhase string

const (
	PreAlpha     PrePhase = "a"
	PreBeta      PrePhase = "b"
	PreReleaseRC PrePhase = "rc"
)

// phaseRank orders pre-release phases: a < b < rc
var phaseRank = map[PrePhase]int{
	PreAlpha:     0,
	PreBeta:      1,
	PreReleaseRC: 2,
}

// PreRelease is the pre-release component of a version (e.g. "rc1" in 2.0rc1)
type PreRelease struct {
	Phase  PrePhase `json:"phase"`
	Number int      `json:"number"`
}

// Version is a PEP 440 version. Post and Dev are -1 when absent.
type Version struct {
	Epoch   int         `json:"epoch,omitempty"`
	Release []int       `json:"release"`
	Pre     *PreRelease `json:"pre,omitempty"`
	Post    int         `json:"post,omitempty"`
	Dev     int         `json:"dev,omitempty"`
	Local   string      `json:"local,omitempty"`
}

// versionPattern accepts the PEP 440 grammar, including the spelled-out
// pre/post aliases (alpha, beta, c, preview, rev, r) that normalize away.
var versionPattern = regexp.MustCompile(`(?i)^v?` +
	`(?:(\d+)!)?` + // epoch
	`(\d+(?:\.\d+)*)` + // release segments
	`(?:[-_.]?(a|b|c|rc|alpha|beta|pre|preview)[-_.]?(\d*))?` + // pre
	`(?:(?:-(\d+))|(?:[-_.]?(post|rev|r)[-_.]?(\d*)))?` + // post
	`(?:[-_.]?(dev)[-_.]?(\d*))?` + // dev
	`(?:\+([a-z0-9]+(?:[-_.][a-z0-9]+)*))?$`) // local

// prePhaseAliases maps spelled-out phase names to canonical form
var prePhaseAliases = map[string]PrePhase{
	"a": PreAlpha, "alpha": PreAlpha,
	"b": PreBeta, "beta": PreBeta,
	"c": PreReleaseRC, "rc": PreReleaseRC, "pre": PreReleaseRC, "preview": PreReleaseRC,
}

// ParseVersion parses a PEP 440 version string
func ParseVersion(s string) (*Version, error) {
	m := versionPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil, fmt.Errorf("invalid version %q", s)
	}

	v := &Version{Post: -1, Dev: -1}

	if m[1] != "" {
		epoch, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("invalid epoch in %q: %w", s, err)
		}
		v.Epoch = epoch
	}

	for _, seg := range strings.Split(m[2], ".") {
		n, err := strconv.Atoi(seg)
		if err != nil {
			return nil, fmt.Errorf("invalid release segment in %q: %w", s, err)
		}
		v.Release = append(v.Release, n)
	}

	if m[3] != "" {
		phase := prePhaseAliases[strings.ToLower(m[3])]
		num := 0
		if m[4] != "" {
			num, _ = strconv.Atoi(m[4])
		}
		v.Pre = &PreRelease{Phase: phase, Number: num}
	}

	if m[5] != "" {
		// Implicit post release: "1.0-1"
		v.Post, _ = strconv.Atoi(m[5])
	} else if m[6] != "" {
		v.Post = 0
		if m[7] != "" {
			v.Post, _ = strconv.Atoi(m[7])
		}
	}

	if m[8] != "" {
		v.Dev = 0
		if m[9] != "" {
			v.Dev, _ = strconv.Atoi(m[9])
		}
	}

	if m[10] != "" {
		v.Local = strings.ToLower(strings.NewReplacer("-", ".", "_", ".").Replace(m[10]))
	}

	return v, nil
}

// MustParseVersion parses a version and panics on error. For tests and constants.
func MustParseVersion(s string) *Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the normalized form of the version
func (v *Version) String() string {
	var b strings.Builder

	if v.Epoch != 0 {
		fmt.Fprintf(&b, "%d!", v.Epoch)
	}

	for i, seg := range v.Release {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(seg))
	}

	if v.Pre != nil {
		fmt.Fprintf(&b, "%s%d", v.Pre.Phase, v.Pre.Number)
	}
	if v.Post >= 0 {
		fmt.Fprintf(&b, ".post%d", v.Post)
	}
	if v.Dev >= 0 {
		fmt.Fprintf(&b, ".dev%d", v.Dev)
	}
	if v.Local != "" {
		fmt.Fprintf(&b, "+%s", v.Local)
	}

	return b.String()
}

// releaseSegment returns the i-th release segment, zero-padded past the end
func (v *Version) releaseSegment(i int) int {
	if i < len(v.Release) {
		return v.Release[i]
	}
	return 0
}

// releaseGroup orders the release-suffix combinations within one release:
// dev-only < pre-release < final and post releases.
func (v *Version) releaseGroup() int {
	switch {
	case v.Pre != nil:
		return 1 + phaseRank[v.Pre.Phase]
	case v.Post < 0 && v.Dev >= 0:
		return 0
	default:
		return 4
	}
}

// Compare returns -1, 0, or 1 ordering v against other per PEP 440
func (v *Version) Compare(other *Version) int {
	if v.Epoch != other.Epoch {
		return cmpInt(v.Epoch, other.Epoch)
	}

	segs := len(v.Release)
	if len(other.Release) > segs {
		segs = len(other.Release)
	}
	for i := 0; i < segs; i++ {
		if c := cmpInt(v.releaseSegment(i), other.releaseSegment(i)); c != 0 {
			return c
		}
	}

	if c := cmpInt(v.releaseGroup(), other.releaseGroup()); c != 0 {
		return c
	}
	if v.Pre != nil && other.Pre != nil {
		if c := cmpInt(v.Pre.Number, other.Pre.Number); c != 0 {
			return c
		}
	}
	if c := cmpInt(v.Post, other.Post); c != 0 {
		return c
	}

	// A dev release sorts before its non-dev counterpart
	vDev, oDev := v.Dev, other.Dev
	if vDev < 0 && oDev >= 0 {
		return 1
	}
	if vDev >= 0 && oDev < 0 {
		return -1
	}
	if c := cmpInt(vDev, oDev); c != 0 {
		return c
	}

	return compareLocal(v.Local, other.Local)
}

// Equal reports whether two versions compare equal
func (v *Version) Equal(other *Version) bool {
	return v.Compare(other) == 0
}

// IsPreRelease reports whether the version is a pre or dev release
func (v *Version) IsPreRelease() bool {
	return v.Pre != nil || v.Dev >= 0
}

// TruncatedRelease returns the release segments with the last one dropped,
// used to derive the upper bound of a compatible-release clause.
func (v *Version) TruncatedRelease() []int {
	if len(v.Release) <= 1 {
		return nil
	}
	out := make([]int, len(v.Release)-1)
	copy(out, v.Release[:len(v.Release)-1])
	return out
}

// compareLocal orders local version tags: absent sorts first, then
// segment-wise with numeric segments before and among themselves.
func compareLocal(a, b string) int {
	if a == b {
		return 0
	}
	if a == "" {
		return -1
	}
	if b == "" {
		return 1
	}

	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aErr := strconv.Atoi(as[i])
		bn, bErr := strconv.Atoi(bs[i])
		switch {
		case aErr == nil && bErr == nil:
			if c := cmpInt(an, bn); c != 0 {
				return c
			}
		case aErr == nil:
			return 1 // numeric segments sort above alphanumeric
		case bErr == nil:
			return -1
		default:
			if c := strings.Compare(as[i], bs[i]); c != 0 {
				return c
			}
		}
	}
	return cmpInt(len(as), len(bs))
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
