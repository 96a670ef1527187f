package directory

import (
	"vetdesk/internal/registration/models"
	id "vetdesk/pkg/domain"
	dErrors "vetdesk/pkg/domain-errors"
)

// Wire types of the Directory Service JSON API. Identifiers travel as UUID
// strings; an empty string is the absent id.

type CandidateDTO struct {
	AnimalID       string `json:"animal_id,omitempty"`
	OwnerID        string `json:"owner_id,omitempty"`
	AnimalKindID   string `json:"animal_kind_id,omitempty"`
	SpeciesID      string `json:"species_id,omitempty"`
	SpeciesName    string `json:"species_name,omitempty"`
	AnimalName     string `json:"animal_name,omitempty"`
	BirthDate      string `json:"birth_date,omitempty"`
	IdentityNumber string `json:"identity_number,omitempty"`
}

type SearchResponse struct {
	OwnerRows []CandidateDTO `json:"owner_rows"`
	Animal    *CandidateDTO  `json:"animal,omitempty"`
}

type AnimalKindDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type SpeciesDTO struct {
	ID           string `json:"id"`
	AnimalKindID string `json:"animal_kind_id"`
	Name         string `json:"name"`
}

type FormDTO struct {
	OwnerID        string `json:"owner_id"`
	AnimalKindID   string `json:"animal_kind_id"`
	SpeciesID      string `json:"species_id"`
	Name           string `json:"name"`
	IdentityNumber string `json:"identity_number,omitempty"`
	BirthDate      string `json:"birth_date,omitempty"`
	DeathDate      string `json:"death_date,omitempty"`
	Deceased       bool   `json:"deceased"`
}

type CreateAnimalRequest struct {
	Form             FormDTO `json:"form"`
	OwnerID          string  `json:"owner_id"`
	ExistingAnimalID string  `json:"existing_animal_id,omitempty"`
}

type CreateAnimalResponse struct {
	ID string `json:"id"`
}

func badData(err error, what string) error {
	return dErrors.Wrap(err, dErrors.CodeTransport, "directory returned a malformed "+what)
}

func FromCandidate(c models.Candidate) CandidateDTO {
	return CandidateDTO{
		AnimalID:       c.AnimalID.Wire(),
		OwnerID:        c.OwnerID.Wire(),
		AnimalKindID:   c.AnimalKindID.Wire(),
		SpeciesID:      c.SpeciesID.Wire(),
		SpeciesName:    c.SpeciesName,
		AnimalName:     c.AnimalName,
		BirthDate:      c.BirthDate,
		IdentityNumber: c.IdentityNumber,
	}
}

func (d CandidateDTO) ToModel() (models.Candidate, error) {
	animalID, err := id.OptionalAnimalID(d.AnimalID)
	if err != nil {
		return models.Candidate{}, badData(err, "animal id")
	}
	ownerID, err := id.OptionalOwnerID(d.OwnerID)
	if err != nil {
		return models.Candidate{}, badData(err, "owner id")
	}
	kindID, err := id.OptionalAnimalKindID(d.AnimalKindID)
	if err != nil {
		return models.Candidate{}, badData(err, "animal kind id")
	}
	speciesID, err := id.OptionalSpeciesID(d.SpeciesID)
	if err != nil {
		return models.Candidate{}, badData(err, "species id")
	}
	return models.Candidate{
		AnimalID:       animalID,
		OwnerID:        ownerID,
		AnimalKindID:   kindID,
		SpeciesID:      speciesID,
		SpeciesName:    d.SpeciesName,
		AnimalName:     d.AnimalName,
		BirthDate:      d.BirthDate,
		IdentityNumber: d.IdentityNumber,
	}, nil
}

func (r SearchResponse) ToModel() (models.SearchResult, error) {
	result := models.SearchResult{OwnerRows: make([]models.Candidate, 0, len(r.OwnerRows))}
	for _, row := range r.OwnerRows {
		c, err := row.ToModel()
		if err != nil {
			return models.SearchResult{}, err
		}
		result.OwnerRows = append(result.OwnerRows, c)
	}
	if r.Animal != nil {
		animal, err := r.Animal.ToModel()
		if err != nil {
			return models.SearchResult{}, err
		}
		result.Animal = &animal
	}
	return result, nil
}

func (d AnimalKindDTO) ToModel() (models.AnimalKind, error) {
	kindID, err := id.ParseAnimalKindID(d.ID)
	if err != nil {
		return models.AnimalKind{}, badData(err, "animal kind")
	}
	return models.AnimalKind{ID: kindID, Name: d.Name}, nil
}

func (d SpeciesDTO) ToModel() (models.Species, error) {
	speciesID, err := id.ParseSpeciesID(d.ID)
	if err != nil {
		return models.Species{}, badData(err, "species")
	}
	kindID, err := id.OptionalAnimalKindID(d.AnimalKindID)
	if err != nil {
		return models.Species{}, badData(err, "species kind")
	}
	return models.Species{ID: speciesID, AnimalKindID: kindID, Name: d.Name}, nil
}

func FromForm(f models.FormRecord) FormDTO {
	return FormDTO{
		OwnerID:        f.OwnerID.Wire(),
		AnimalKindID:   f.AnimalKindID.Wire(),
		SpeciesID:      f.SpeciesID.Wire(),
		Name:           f.Name,
		IdentityNumber: f.IdentityNumber,
		BirthDate:      f.BirthDate,
		DeathDate:      f.DeathDate,
		Deceased:       f.Deceased,
	}
}

func (d FormDTO) ToModel() (models.FormRecord, error) {
	ownerID, err := id.OptionalOwnerID(d.OwnerID)
	if err != nil {
		return models.FormRecord{}, err
	}
	kindID, err := id.OptionalAnimalKindID(d.AnimalKindID)
	if err != nil {
		return models.FormRecord{}, err
	}
	speciesID, err := id.OptionalSpeciesID(d.SpeciesID)
	if err != nil {
		return models.FormRecord{}, err
	}
	return models.FormRecord{
		OwnerID:        ownerID,
		AnimalKindID:   kindID,
		SpeciesID:      speciesID,
		Name:           d.Name,
		IdentityNumber: d.IdentityNumber,
		BirthDate:      d.BirthDate,
		DeathDate:      d.DeathDate,
		Deceased:       d.Deceased,
	}, nil
}
