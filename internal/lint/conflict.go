package lint

import (
	"fmt"
	"strings"

	"github.com/johny-c/lagom/internal/domain"
)

// Bound is one end of a version interval
type Bound struct {
	Version   *domain.Version
	Inclusive bool
}

// ConstraintSet is the conjunction of every specifier clause applied to one
// package, folded into an interval plus exact pins and exclusions.
type ConstraintSet struct {
	Name       string
	Lines      []int
	Lower      *Bound
	Upper      *Bound
	Pins       []*domain.Version
	Exclusions []*domain.Specifier
}

// Merge folds the specifiers of all given requirements into one constraint
// set. Callers group requirements by canonical name (and marker) first.
func Merge(name string, reqs []*domain.Requirement) *ConstraintSet {
	cs := &ConstraintSet{Name: name}

	for _, r := range reqs {
		cs.Lines = append(cs.Lines, r.Line)
		for _, s := range r.Specifiers {
			cs.apply(s)
		}
	}

	return cs
}

func (cs *ConstraintSet) apply(s *domain.Specifier) {
	switch s.Op {
	case domain.CompGreaterEqual:
		cs.tightenLower(&Bound{Version: s.Version, Inclusive: true})
	case domain.CompGreater:
		cs.tightenLower(&Bound{Version: s.Version, Inclusive: false})
	case domain.CompLessEqual:
		cs.tightenUpper(&Bound{Version: s.Version, Inclusive: true})
	case domain.CompLess:
		cs.tightenUpper(&Bound{Version: s.Version, Inclusive: false})
	case domain.CompCompatible:
		cs.tightenLower(&Bound{Version: s.Version, Inclusive: true})
		cs.tightenUpper(&Bound{Version: releaseCeiling(s.Version.Epoch, s.Version.TruncatedRelease())})
	case domain.CompEqual:
		if s.Wildcard {
			cs.tightenLower(&Bound{Version: releaseFloor(s.Version.Epoch, s.Version.Release), Inclusive: true})
			cs.tightenUpper(&Bound{Version: releaseCeiling(s.Version.Epoch, s.Version.Release)})
		} else {
			cs.Pins = append(cs.Pins, s.Version)
		}
	case domain.CompNotEqual:
		cs.Exclusions = append(cs.Exclusions, s)
	}
}

func (cs *ConstraintSet) tightenLower(b *Bound) {
	if cs.Lower == nil {
		cs.Lower = b
		return
	}
	c := b.Version.Compare(cs.Lower.Version)
	if c > 0 || (c == 0 && !b.Inclusive) {
		cs.Lower = b
	}
}

func (cs *ConstraintSet) tightenUpper(b *Bound) {
	if cs.Upper == nil {
		cs.Upper = b
		return
	}
	c := b.Version.Compare(cs.Upper.Version)
	if c < 0 || (c == 0 && !b.Inclusive) {
		cs.Upper = b
	}
}

// releaseFloor is the smallest version carrying the given release prefix
func releaseFloor(epoch int, release []int) *domain.Version {
	return &domain.Version{Epoch: epoch, Release: append([]int(nil), release...), Post: -1, Dev: 0}
}

// releaseCeiling is the smallest version above every version carrying the
// given release prefix: the prefix with its last segment bumped, as a dev
// release so that pre-releases of the bumped version are excluded too.
func releaseCeiling(epoch int, release []int) *domain.Version {
	bumped := append([]int(nil), release...)
	if len(bumped) == 0 {
		bumped = []int{1}
	} else {
		bumped[len(bumped)-1]++
	}
	return &domain.Version{Epoch: epoch, Release: bumped, Post: -1, Dev: 0}
}

// Check reports whether the constraint set is satisfiable. The returned
// reason is empty when it is.
func (cs *ConstraintSet) Check() (bool, string) {
	if cs.Lower != nil && cs.Upper != nil {
		c := cs.Lower.Version.Compare(cs.Upper.Version)
		if c > 0 || (c == 0 && !(cs.Lower.Inclusive && cs.Upper.Inclusive)) {
			return false, fmt.Sprintf("lower bound %s exceeds upper bound %s",
				cs.describeBound(cs.Lower, ">"), cs.describeBound(cs.Upper, "<"))
		}
	}

	if len(cs.Pins) > 0 {
		pin := cs.Pins[0]
		for _, other := range cs.Pins[1:] {
			if !pin.Equal(other) {
				return false, fmt.Sprintf("pinned to both ==%s and ==%s", pin, other)
			}
		}
		if cs.Lower != nil {
			c := pin.Compare(cs.Lower.Version)
			if c < 0 || (c == 0 && !cs.Lower.Inclusive) {
				return false, fmt.Sprintf("pin ==%s is below bound %s", pin, cs.describeBound(cs.Lower, ">"))
			}
		}
		if cs.Upper != nil {
			c := pin.Compare(cs.Upper.Version)
			if c > 0 || (c == 0 && !cs.Upper.Inclusive) {
				return false, fmt.Sprintf("pin ==%s is above bound %s", pin, cs.describeBound(cs.Upper, "<"))
			}
		}
		for _, ex := range cs.Exclusions {
			if !ex.Match(pin) {
				return false, fmt.Sprintf("pin ==%s collides with exclusion %s", pin, ex)
			}
		}
		return true, ""
	}

	// Point interval: the single admissible version must survive exclusions
	if cs.Lower != nil && cs.Upper != nil &&
		cs.Lower.Inclusive && cs.Upper.Inclusive &&
		cs.Lower.Version.Equal(cs.Upper.Version) {
		for _, ex := range cs.Exclusions {
			if !ex.Match(cs.Lower.Version) {
				return false, fmt.Sprintf("only admissible version %s collides with exclusion %s",
					cs.Lower.Version, ex)
			}
		}
		return true, ""
	}

	// A wildcard exclusion can empty a bounded interval outright
	for _, ex := range cs.Exclusions {
		if !ex.Wildcard || cs.Lower == nil || cs.Upper == nil {
			continue
		}
		exLow := releaseFloor(ex.Version.Epoch, ex.Version.Release)
		exHigh := releaseCeiling(ex.Version.Epoch, ex.Version.Release)
		if exLow.Compare(cs.Lower.Version) <= 0 && cs.Upper.Version.Compare(exHigh) <= 0 {
			return false, fmt.Sprintf("exclusion %s covers the whole admissible range", ex)
		}
	}

	return true, ""
}

// String renders the merged constraint for reporting, e.g. ">=1.16, <2.0, !=1.19".
func (cs *ConstraintSet) String() string {
	var parts []string
	if len(cs.Pins) > 0 {
		parts = append(parts, "=="+cs.Pins[0].String())
	}
	if cs.Lower != nil {
		parts = append(parts, cs.describeBound(cs.Lower, ">"))
	}
	if cs.Upper != nil {
		parts = append(parts, cs.describeBound(cs.Upper, "<"))
	}
	for _, ex := range cs.Exclusions {
		parts = append(parts, ex.String())
	}
	if len(parts) == 0 {
		return "any"
	}
	return strings.Join(parts, ", ")
}

func (cs *ConstraintSet) describeBound(b *Bound, dir string) string {
	op := dir
	if b.Inclusive {
		op += "="
	}
	return op + b.Version.String()
}
