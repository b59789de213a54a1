package typesystem

import "github.com/swarm-lang/swarm/internal/swarmerr"

// DisambiguateStatically narrows an Ambiguous placeholder to a concrete
// type, or fails with a TYPE_AMBIGUOUS error (spec §4.1). Types that are
// already concrete pass through unchanged. An Ambiguous with zero or more
// than one candidate remaining is unresolvable at this point in the pass —
// that is the caller's error to raise, since only the caller (type
// analysis) knows the position to attach.
func DisambiguateStatically(t Type) (Type, *swarmerr.Error) {
	amb, ok := t.(Ambiguous)
	if !ok {
		if !IsConcrete(t) {
			return nil, swarmerr.New(swarmerr.TypeAmbiguous, "type %s is not concrete", t.String())
		}
		return t, nil
	}
	if len(amb.Constraints) != 1 || len(amb.Constraints[0].Candidates) != 1 {
		return nil, swarmerr.New(swarmerr.TypeAmbiguous, "ambiguous type could not be narrowed to a single candidate")
	}
	candidate := amb.Constraints[0].Candidates[0]
	if !IsConcrete(candidate) {
		return DisambiguateStatically(candidate)
	}
	return candidate, nil
}
