package handler

import (
	"strings"

	"vetdesk/internal/registration"
	"vetdesk/internal/registration/models"
	id "vetdesk/pkg/domain"
	dErrors "vetdesk/pkg/domain-errors"
)

// Surface names the screen a registration is opened from.
type Surface string

const (
	// SurfaceAnimal searches by the animal's identity number.
	SurfaceAnimal Surface = "animal"
	// SurfacePatient searches by the owner's government identity number.
	SurfacePatient Surface = "patient"
)

func (s Surface) Mode() (models.Mode, bool) {
	switch s {
	case SurfaceAnimal:
		return models.ModeByAnimalIdentity, true
	case SurfacePatient:
		return models.ModeByOwnerIdentity, true
	default:
		return "", false
	}
}

const maxFragmentLen = 64

// CreateRequest is the body of POST /registrations.
type CreateRequest struct {
	Surface string `json:"surface"`
	OwnerID string `json:"owner_id"`

	mode  models.Mode
	owner id.OwnerID
}

func (r *CreateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	mode, ok := Surface(strings.TrimSpace(r.Surface)).Mode()
	if !ok {
		return dErrors.NewField(dErrors.CodeValidation, "surface", `surface must be "animal" or "patient"`)
	}
	r.mode = mode
	owner, err := id.OptionalOwnerID(strings.TrimSpace(r.OwnerID))
	if err != nil {
		return dErrors.NewField(dErrors.CodeValidation, "owner_id", "invalid owner id")
	}
	r.owner = owner
	return nil
}

// FragmentRequest is the body of PUT /registrations/{id}/fragment.
type FragmentRequest struct {
	Fragment string `json:"fragment"`
}

func (r *FragmentRequest) Validate() error {
	if len(r.Fragment) > maxFragmentLen {
		return dErrors.NewField(dErrors.CodeValidation, "fragment", "identity number is too long")
	}
	return nil
}

// AutomaticRequest is the body of PUT /registrations/{id}/automatic.
type AutomaticRequest struct {
	Enabled *bool `json:"enabled"`
}

func (r *AutomaticRequest) Validate() error {
	if r.Enabled == nil {
		return dErrors.NewField(dErrors.CodeValidation, "enabled", "enabled is required")
	}
	return nil
}

// OwnerSelectionRequest is the body of POST /registrations/{id}/owner-selection.
type OwnerSelectionRequest struct {
	Index *int `json:"index"`
}

func (r *OwnerSelectionRequest) Validate() error {
	if r.Index == nil || *r.Index < 0 {
		return dErrors.NewField(dErrors.CodeValidation, "index", "index must be a non-negative integer")
	}
	return nil
}

// FormPatch is the body of PATCH /registrations/{id}/form. Absent fields are
// left untouched.
type FormPatch struct {
	OwnerID      *string `json:"owner_id"`
	AnimalKindID *string `json:"animal_kind_id"`
	SpeciesID    *string `json:"species_id"`
	Name         *string `json:"name"`
	BirthDate    *string `json:"birth_date"`
	Deceased     *bool   `json:"deceased"`
	DeathDate    *string `json:"death_date"`

	owner *id.OwnerID
}

func (r *FormPatch) Validate() error {
	if r.OwnerID != nil {
		owner, err := id.ParseOwnerID(strings.TrimSpace(*r.OwnerID))
		if err != nil {
			return dErrors.NewField(dErrors.CodeValidation, "owner_id", "invalid owner id")
		}
		r.owner = &owner
	}
	if r.DeathDate != nil && r.Deceased != nil && !*r.Deceased && *r.DeathDate != "" {
		return dErrors.NewField(dErrors.CodeValidation, "death_date", "a living animal has no death date")
	}
	return nil
}

func (r *FormPatch) patch() registration.Patch {
	p := registration.Patch{Owner: r.owner}
	edits := []struct {
		field models.Field
		value *string
	}{
		{models.FieldAnimalKind, r.AnimalKindID},
		{models.FieldSpecies, r.SpeciesID},
		{models.FieldName, r.Name},
		{models.FieldBirthDate, r.BirthDate},
	}
	for _, edit := range edits {
		if edit.value != nil {
			p.Changes = append(p.Changes, registration.FieldChange{Field: edit.field, Value: *edit.value})
		}
	}
	switch {
	case r.Deceased != nil && !*r.Deceased:
		p.Changes = append(p.Changes, registration.FieldChange{Field: models.FieldDeceased, Value: "false"})
	case r.Deceased != nil && (r.DeathDate == nil || *r.DeathDate == ""):
		p.Changes = append(p.Changes, registration.FieldChange{Field: models.FieldDeceased, Value: "true"})
	case r.DeathDate != nil:
		p.Changes = append(p.Changes, registration.FieldChange{Field: models.FieldDeathDate, Value: *r.DeathDate})
	}
	return p
}

// SubmitRequest is the body of POST /registrations/{id}/submit.
type SubmitRequest struct {
	// ConfirmAttach answers the "registered elsewhere" prompt in advance.
	ConfirmAttach bool `json:"confirm_attach"`
}

func (r *SubmitRequest) Validate() error { return nil }
