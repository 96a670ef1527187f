package models

import (
	id "vetdesk/pkg/domain"
)

// LockState is derived from the match outcome and input mode.
type LockState int

const (
	// Unlocked: no identity text yet, or automatic identity generation is on.
	Unlocked LockState = iota
	// LockedOnMatch: a candidate was found; governed fields are read-only.
	LockedOnMatch
	// EditableNew: identity text present, no match; fields are editable.
	EditableNew
)

func (s LockState) String() string {
	switch s {
	case LockedOnMatch:
		return "locked_on_match"
	case EditableNew:
		return "editable_new"
	default:
		return "unlocked"
	}
}

func (s LockState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Field names a FormRecord field.
type Field string

const (
	FieldAnimalKind     Field = "animal_kind_id"
	FieldSpecies        Field = "species_id"
	FieldName           Field = "name"
	FieldBirthDate      Field = "birth_date"
	FieldIdentityNumber Field = "identity_number"
	FieldDeathDate      Field = "death_date"
	FieldDeceased       Field = "deceased"
	FieldOwner          Field = "owner_id"
)

// GovernedFields move together under the lock.
var GovernedFields = []Field{FieldAnimalKind, FieldSpecies, FieldName, FieldBirthDate}

func (f Field) IsGoverned() bool {
	switch f {
	case FieldAnimalKind, FieldSpecies, FieldName, FieldBirthDate:
		return true
	}
	return false
}

// FormRecord is the draft being built for submission.
type FormRecord struct {
	OwnerID        id.OwnerID
	AnimalKindID   id.AnimalKindID
	SpeciesID      id.SpeciesID
	Name           string
	IdentityNumber string
	BirthDate      string
	DeathDate      string
	Deceased       bool
}

// ClearGoverned empties the four lock-governed fields.
func (f *FormRecord) ClearGoverned() {
	f.AnimalKindID = id.AnimalKindID{}
	f.SpeciesID = id.SpeciesID{}
	f.Name = ""
	f.BirthDate = ""
}
