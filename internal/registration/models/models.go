// Package models defines the registration engine's data model: search
// candidates, match outcomes, the draft form and its lock state.
package models

import (
	id "vetdesk/pkg/domain"
)

// Mode selects how an identity fragment is interpreted.
type Mode string

const (
	// ModeByOwnerIdentity treats the fragment as an owner's government identity number.
	ModeByOwnerIdentity Mode = "owner"
	// ModeByAnimalIdentity treats the fragment as an animal tag or identity number.
	ModeByAnimalIdentity Mode = "animal"
)

func (m Mode) IsValid() bool {
	return m == ModeByOwnerIdentity || m == ModeByAnimalIdentity
}

// Candidate is a normalized search result. It is never mutated after the
// classifier builds it; a new search produces fresh candidates.
type Candidate struct {
	AnimalID     id.AnimalID
	OwnerID      id.OwnerID
	AnimalKindID id.AnimalKindID
	SpeciesID    id.SpeciesID
	SpeciesName  string
	AnimalName   string
	BirthDate    string
	// IdentityNumber is the animal's identity number.
	IdentityNumber string
}

// SearchResult is a Directory Service search response. OwnerRows lists every
// owner associated with the match; Animal is set when the animal exists
// independently of any owner row.
type SearchResult struct {
	OwnerRows []Candidate
	Animal    *Candidate
}

type AnimalKind struct {
	ID   id.AnimalKindID
	Name string
}

type Species struct {
	ID           id.SpeciesID
	AnimalKindID id.AnimalKindID
	Name         string
}

// AttachRequest is the createOrAttachAnimal payload. A nil ExistingAnimalID
// creates a new animal.
type AttachRequest struct {
	Form             FormRecord
	OwnerID          id.OwnerID
	ExistingAnimalID id.AnimalID
}

// AttachPrompt is shown to the operator before attaching an animal that is
// registered to other owners.
type AttachPrompt struct {
	AnimalID       id.AnimalID
	IdentityNumber string
	OtherOwners    []id.OwnerID
	Message        string
}

// SavedRecord is handed to the surface's onSaved callback.
type SavedRecord struct {
	AnimalID id.AnimalID
	OwnerID  id.OwnerID
	Form     FormRecord
	// Attached is true when an existing animal was linked to the owner.
	Attached bool
}
