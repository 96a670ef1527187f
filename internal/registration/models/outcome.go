package models

import (
	"fmt"
	"slices"
)

// OutcomeKind tags the active MatchOutcome variant.
type OutcomeKind int

const (
	NoMatch OutcomeKind = iota
	SingleOwnerMatch
	AnimalOnlyMatch
	MultipleOwnersMatch
)

func (k OutcomeKind) String() string {
	switch k {
	case SingleOwnerMatch:
		return "single_owner"
	case AnimalOnlyMatch:
		return "animal_only"
	case MultipleOwnersMatch:
		return "multiple_owners"
	default:
		return "no_match"
	}
}

func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// MatchOutcome is a tagged variant over the four classification results.
// Build it with the constructors below; the zero value is NoMatch.
type MatchOutcome struct {
	kind       OutcomeKind
	candidates []Candidate
	selected   int
}

func NoMatchOutcome() MatchOutcome {
	return MatchOutcome{kind: NoMatch}
}

func SingleOwnerOutcome(c Candidate) MatchOutcome {
	return MatchOutcome{kind: SingleOwnerMatch, candidates: []Candidate{c}}
}

func AnimalOnlyOutcome(c Candidate) MatchOutcome {
	return MatchOutcome{kind: AnimalOnlyMatch, candidates: []Candidate{c}}
}

// MultipleOwnersOutcome requires at least two rows and selects the first.
func MultipleOwnersOutcome(rows []Candidate) (MatchOutcome, error) {
	if len(rows) < 2 {
		return MatchOutcome{}, fmt.Errorf("multiple owners match needs at least 2 rows, got %d", len(rows))
	}
	return MatchOutcome{kind: MultipleOwnersMatch, candidates: slices.Clone(rows)}, nil
}

func (o MatchOutcome) Kind() OutcomeKind {
	return o.kind
}

// Candidates returns a copy of the candidate rows.
func (o MatchOutcome) Candidates() []Candidate {
	return slices.Clone(o.candidates)
}

// Selected returns the active candidate. NoMatch has none.
func (o MatchOutcome) Selected() (Candidate, bool) {
	if o.kind == NoMatch || len(o.candidates) == 0 {
		return Candidate{}, false
	}
	return o.candidates[o.selected], true
}

func (o MatchOutcome) SelectedIndex() int {
	return o.selected
}

// IsAmbiguous reports whether the operator should be asked to pick an owner.
func (o MatchOutcome) IsAmbiguous() bool {
	return o.kind == MultipleOwnersMatch
}

// WithSelection returns a copy selecting row i of a MultipleOwnersMatch.
func (o MatchOutcome) WithSelection(i int) (MatchOutcome, error) {
	if o.kind != MultipleOwnersMatch {
		return o, fmt.Errorf("owner selection requires a multiple owners match, have %s", o.kind)
	}
	if i < 0 || i >= len(o.candidates) {
		return o, fmt.Errorf("owner selection %d out of range [0,%d)", i, len(o.candidates))
	}
	o.candidates = slices.Clone(o.candidates)
	o.selected = i
	return o, nil
}

// Equal reports whether two outcomes carry the same variant, rows and selection.
func (o MatchOutcome) Equal(other MatchOutcome) bool {
	return o.kind == other.kind &&
		o.selected == other.selected &&
		slices.Equal(o.candidates, other.candidates)
}
