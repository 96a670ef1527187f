// Package domain holds the typed identifiers shared across vetdesk. Each id is
// a distinct UUID-backed type so an owner id can never be passed where an
// animal id is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "vetdesk/pkg/domain-errors"
)

type (
	OwnerID      uuid.UUID
	AnimalID     uuid.UUID
	AnimalKindID uuid.UUID
	SpeciesID    uuid.UUID
	SessionID    uuid.UUID
)

func parseUUID(kind, raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, kind+" is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "invalid "+kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, kind+" must not be nil")
	}
	return parsed, nil
}

func ParseOwnerID(raw string) (OwnerID, error) {
	u, err := parseUUID("owner_id", raw)
	return OwnerID(u), err
}

func ParseAnimalID(raw string) (AnimalID, error) {
	u, err := parseUUID("animal_id", raw)
	return AnimalID(u), err
}

func ParseAnimalKindID(raw string) (AnimalKindID, error) {
	u, err := parseUUID("animal_kind_id", raw)
	return AnimalKindID(u), err
}

func ParseSpeciesID(raw string) (SpeciesID, error) {
	u, err := parseUUID("species_id", raw)
	return SpeciesID(u), err
}

func ParseSessionID(raw string) (SessionID, error) {
	u, err := parseUUID("session_id", raw)
	return SessionID(u), err
}

// Optional parsers treat the empty string as an absent id. Directory payloads
// use them for nullable references.

func OptionalOwnerID(raw string) (OwnerID, error) {
	if raw == "" {
		return OwnerID{}, nil
	}
	return ParseOwnerID(raw)
}

func OptionalAnimalID(raw string) (AnimalID, error) {
	if raw == "" {
		return AnimalID{}, nil
	}
	return ParseAnimalID(raw)
}

func OptionalAnimalKindID(raw string) (AnimalKindID, error) {
	if raw == "" {
		return AnimalKindID{}, nil
	}
	return ParseAnimalKindID(raw)
}

func OptionalSpeciesID(raw string) (SpeciesID, error) {
	if raw == "" {
		return SpeciesID{}, nil
	}
	return ParseSpeciesID(raw)
}

func (id OwnerID) String() string      { return uuid.UUID(id).String() }
func (id AnimalID) String() string     { return uuid.UUID(id).String() }
func (id AnimalKindID) String() string { return uuid.UUID(id).String() }
func (id SpeciesID) String() string    { return uuid.UUID(id).String() }
func (id SessionID) String() string    { return uuid.UUID(id).String() }

func (id OwnerID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id AnimalID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id AnimalKindID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id SpeciesID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// Wire renders an id for JSON payloads; nil ids become the empty string.
func (id OwnerID) Wire() string      { return wire(uuid.UUID(id)) }
func (id AnimalID) Wire() string     { return wire(uuid.UUID(id)) }
func (id AnimalKindID) Wire() string { return wire(uuid.UUID(id)) }
func (id SpeciesID) Wire() string    { return wire(uuid.UUID(id)) }

func wire(u uuid.UUID) string {
	if u == uuid.Nil {
		return ""
	}
	return u.String()
}

// NewSessionID returns a random session id.
func NewSessionID() SessionID {
	return SessionID(uuid.New())
}
