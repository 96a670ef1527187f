package handler

import (
	"vetdesk/internal/registration/lock"
	"vetdesk/internal/registration/models"
)

// SessionResponse renders a registration form.
type SessionResponse struct {
	ID             string            `json:"id"`
	Surface        string            `json:"surface"`
	LockState      string            `json:"lock_state"`
	Automatic      bool              `json:"automatic"`
	Fragment       string            `json:"fragment"`
	Outcome        OutcomeResponse   `json:"outcome"`
	Form           FormResponse      `json:"form"`
	Editable       map[string]bool   `json:"editable"`
	SpeciesOptions []SpeciesResponse `json:"species_options"`
}

type OutcomeResponse struct {
	Kind          string              `json:"kind"`
	Candidates    []CandidateResponse `json:"candidates"`
	SelectedIndex *int                `json:"selected_index,omitempty"`
}

type CandidateResponse struct {
	AnimalID       string `json:"animal_id,omitempty"`
	OwnerID        string `json:"owner_id,omitempty"`
	AnimalKindID   string `json:"animal_kind_id,omitempty"`
	SpeciesName    string `json:"species_name,omitempty"`
	AnimalName     string `json:"animal_name,omitempty"`
	BirthDate      string `json:"birth_date,omitempty"`
	IdentityNumber string `json:"identity_number,omitempty"`
}

type FormResponse struct {
	OwnerID        string `json:"owner_id"`
	AnimalKindID   string `json:"animal_kind_id"`
	SpeciesID      string `json:"species_id"`
	Name           string `json:"name"`
	IdentityNumber string `json:"identity_number"`
	BirthDate      string `json:"birth_date"`
	DeathDate      string `json:"death_date"`
	Deceased       bool   `json:"deceased"`
}

type SpeciesResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type AnimalKindResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type SubmitResponse struct {
	AnimalID string `json:"animal_id"`
	Attached bool   `json:"attached"`
}

// FromView converts an engine snapshot to a response.
func FromView(session *Session, view lock.View) *SessionResponse {
	editable := make(map[string]bool, len(view.Editable))
	for field, ok := range view.Editable {
		editable[string(field)] = ok
	}
	options := make([]SpeciesResponse, 0, len(view.SpeciesOptions))
	for _, s := range view.SpeciesOptions {
		options = append(options, SpeciesResponse{ID: s.ID.String(), Name: s.Name})
	}
	return &SessionResponse{
		ID:             session.ID.String(),
		Surface:        string(session.Surface),
		LockState:      view.State.String(),
		Automatic:      view.Automatic,
		Fragment:       view.Fragment,
		Outcome:        fromOutcome(view.Outcome),
		Form:           fromForm(view.Form),
		Editable:       editable,
		SpeciesOptions: options,
	}
}

func fromOutcome(o models.MatchOutcome) OutcomeResponse {
	candidates := o.Candidates()
	resp := OutcomeResponse{
		Kind:       o.Kind().String(),
		Candidates: make([]CandidateResponse, 0, len(candidates)),
	}
	for _, c := range candidates {
		resp.Candidates = append(resp.Candidates, CandidateResponse{
			AnimalID:       c.AnimalID.Wire(),
			OwnerID:        c.OwnerID.Wire(),
			AnimalKindID:   c.AnimalKindID.Wire(),
			SpeciesName:    c.SpeciesName,
			AnimalName:     c.AnimalName,
			BirthDate:      c.BirthDate,
			IdentityNumber: c.IdentityNumber,
		})
	}
	if _, ok := o.Selected(); ok {
		idx := o.SelectedIndex()
		resp.SelectedIndex = &idx
	}
	return resp
}

func fromForm(f models.FormRecord) FormResponse {
	return FormResponse{
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
