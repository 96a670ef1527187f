// Package lock decides which registration fields are editable and which are
// filled from a matched candidate.
//
// The controller is a plain state machine without I/O or locking; the engine
// serializes calls and performs the Directory lookups that feed Settle.
package lock

import (
	"slices"
	"strings"
	"time"

	"vetdesk/internal/registration/models"
	"vetdesk/internal/registration/species"
	id "vetdesk/pkg/domain"
	dErrors "vetdesk/pkg/domain-errors"
)

type Controller struct {
	mode      models.Mode
	state     models.LockState
	automatic bool
	fragment  string
	outcome   models.MatchOutcome
	species   []models.Species
	form      models.FormRecord
}

func New(mode models.Mode, owner id.OwnerID) *Controller {
	return &Controller{
		mode: mode,
		form: models.FormRecord{OwnerID: owner},
	}
}

// View is a read-only snapshot for rendering.
type View struct {
	Mode           models.Mode
	State          models.LockState
	Automatic      bool
	Fragment       string
	Outcome        models.MatchOutcome
	Form           models.FormRecord
	Editable       map[models.Field]bool
	SpeciesOptions []models.Species
}

func (c *Controller) View() View {
	editable := make(map[models.Field]bool, len(models.GovernedFields)+2)
	for _, f := range models.GovernedFields {
		editable[f] = c.Editable(f)
	}
	editable[models.FieldDeceased] = c.Editable(models.FieldDeceased)
	editable[models.FieldDeathDate] = c.Editable(models.FieldDeathDate)
	return View{
		Mode:           c.mode,
		State:          c.state,
		Automatic:      c.automatic,
		Fragment:       c.fragment,
		Outcome:        c.outcome,
		Form:           c.form,
		Editable:       editable,
		SpeciesOptions: slices.Clone(c.species),
	}
}

func (c *Controller) State() models.LockState     { return c.state }
func (c *Controller) Automatic() bool             { return c.automatic }
func (c *Controller) Fragment() string            { return c.fragment }
func (c *Controller) Outcome() models.MatchOutcome { return c.outcome }
func (c *Controller) Form() models.FormRecord     { return c.form }

// Candidate returns the candidate the form is locked on.
func (c *Controller) Candidate() (models.Candidate, bool) {
	if c.state != models.LockedOnMatch {
		return models.Candidate{}, false
	}
	return c.outcome.Selected()
}

// Editable reports whether the operator may change field. The four governed
// fields are editable in automatic mode or while creating a new record; the
// remaining fields always are.
func (c *Controller) Editable(field models.Field) bool {
	if !field.IsGoverned() {
		return true
	}
	return c.automatic || c.state == models.EditableNew
}

// Searchable reports whether the current fragment should be looked up.
func (c *Controller) Searchable() bool {
	return !c.automatic && strings.TrimSpace(c.fragment) != ""
}

// FragmentChanged records a keystroke. Clearing the fragment in manual mode
// resets synchronously to Unlocked; typing into an unlocked form opens it for
// manual entry pending classification. It reports whether visible state changed.
func (c *Controller) FragmentChanged(fragment string) bool {
	before := c.View()
	c.fragment = fragment
	if c.mode == models.ModeByAnimalIdentity && !c.automatic {
		c.form.IdentityNumber = strings.TrimSpace(fragment)
	}

	switch {
	case c.automatic:
	case strings.TrimSpace(fragment) == "":
		c.clearMatch()
		c.form.IdentityNumber = ""
		c.state = models.Unlocked
	case c.state == models.Unlocked:
		c.state = models.EditableNew
	}
	return !viewsEqual(before, c.View())
}

// Settle applies a classification of the current fragment. A match locks the
// form and fills the governed fields from the selected candidate; NoMatch
// leaves (or returns) the form editable for a new record. Repeating an
// identical settlement changes nothing.
func (c *Controller) Settle(outcome models.MatchOutcome, sel species.Selection) bool {
	if !c.Searchable() {
		return false
	}

	candidate, matched := outcome.Selected()
	if !matched {
		if c.state == models.LockedOnMatch {
			c.clearMatch()
			c.state = models.EditableNew
			c.outcome = outcome
			return true
		}
		changed := !c.outcome.Equal(outcome)
		c.outcome = outcome
		return changed
	}

	speciesID := id.SpeciesID{}
	if sel.Selected != nil {
		speciesID = sel.Selected.ID
	}
	if c.state == models.LockedOnMatch && c.outcome.Equal(outcome) &&
		c.form.SpeciesID == speciesID && slices.Equal(c.species, sel.Options) {
		return false
	}

	c.state = models.LockedOnMatch
	c.outcome = outcome
	c.species = slices.Clone(sel.Options)
	c.form.AnimalKindID = candidate.AnimalKindID
	c.form.SpeciesID = speciesID
	c.form.Name = candidate.AnimalName
	c.form.BirthDate = candidate.BirthDate
	if c.mode == models.ModeByOwnerIdentity {
		c.form.IdentityNumber = candidate.IdentityNumber
	}
	return true
}

// SearchAnother drops the match and the fragment so the operator can start over.
func (c *Controller) SearchAnother() bool {
	before := c.View()
	c.fragment = ""
	c.form.IdentityNumber = ""
	c.clearMatch()
	c.state = models.Unlocked
	return !viewsEqual(before, c.View())
}

// SetAutomatic toggles automatic identity generation. Automatic mode bypasses
// identity-based locking: the form is Unlocked and every field editable.
func (c *Controller) SetAutomatic(on bool) bool {
	if c.automatic == on {
		return false
	}
	c.automatic = on
	c.fragment = ""
	c.form.IdentityNumber = ""
	if on {
		c.clearMatch()
	}
	c.state = models.Unlocked
	return true
}

// SetSpeciesOptions installs the species list of the currently selected kind.
func (c *Controller) SetSpeciesOptions(list []models.Species) {
	c.species = slices.Clone(list)
}

func (c *Controller) SpeciesOptions() []models.Species {
	return slices.Clone(c.species)
}

// Clone returns an independent copy, used to roll back a partly applied patch.
func (c *Controller) Clone() *Controller {
	cp := *c
	cp.species = slices.Clone(c.species)
	return &cp
}

func (c *Controller) SetOwner(owner id.OwnerID) {
	c.form.OwnerID = owner
}

// Edit changes one field. Locked fields are rejected with a validation error.
// Changing the animal kind clears the species and its option list.
func (c *Controller) Edit(field models.Field, value string) error {
	if !c.Editable(field) {
		return dErrors.NewField(dErrors.CodeValidation, string(field), "field is locked to the matched record")
	}
	value = strings.TrimSpace(value)

	switch field {
	case models.FieldAnimalKind:
		kindID, err := id.OptionalAnimalKindID(value)
		if err != nil {
			return dErrors.NewField(dErrors.CodeValidation, string(field), "invalid animal kind")
		}
		if kindID != c.form.AnimalKindID {
			c.form.AnimalKindID = kindID
			c.form.SpeciesID = id.SpeciesID{}
			c.species = nil
		}
	case models.FieldSpecies:
		speciesID, err := id.OptionalSpeciesID(value)
		if err != nil {
			return dErrors.NewField(dErrors.CodeValidation, string(field), "invalid species")
		}
		if !speciesID.IsNil() && len(c.species) > 0 && !slices.ContainsFunc(c.species, func(s models.Species) bool {
			return s.ID == speciesID
		}) {
			return dErrors.NewField(dErrors.CodeValidation, string(field), "species does not belong to the selected animal kind")
		}
		c.form.SpeciesID = speciesID
	case models.FieldName:
		c.form.Name = value
	case models.FieldBirthDate:
		if err := validDate(field, value); err != nil {
			return err
		}
		if err := deathAfterBirth(value, c.form.DeathDate); err != nil {
			return err
		}
		c.form.BirthDate = value
	case models.FieldDeathDate:
		if err := validDate(field, value); err != nil {
			return err
		}
		if err := deathAfterBirth(c.form.BirthDate, value); err != nil {
			return err
		}
		c.form.DeathDate = value
		if value != "" {
			c.form.Deceased = true
		}
	case models.FieldDeceased:
		deceased := value == "true"
		if !deceased && value != "false" {
			return dErrors.NewField(dErrors.CodeValidation, string(field), "deceased must be true or false")
		}
		c.form.Deceased = deceased
		if !deceased {
			c.form.DeathDate = ""
		}
	default:
		return dErrors.NewField(dErrors.CodeValidation, string(field), "field cannot be edited")
	}
	return nil
}

// Reset discards the draft after a save or an already-registered stop. The
// owner is kept.
func (c *Controller) Reset() {
	owner := c.form.OwnerID
	*c = Controller{mode: c.mode, form: models.FormRecord{OwnerID: owner}}
}

func (c *Controller) clearMatch() {
	c.outcome = models.NoMatchOutcome()
	c.species = nil
	c.form.ClearGoverned()
}

func validDate(field models.Field, value string) error {
	if value == "" {
		return nil
	}
	if _, err := time.Parse(time.DateOnly, value); err != nil {
		return dErrors.NewField(dErrors.CodeValidation, string(field), "date must be YYYY-MM-DD")
	}
	return nil
}

func deathAfterBirth(birth, death string) error {
	if birth == "" || death == "" {
		return nil
	}
	// DateOnly strings order lexically.
	if death < birth {
		return dErrors.NewField(dErrors.CodeValidation, string(models.FieldDeathDate), "death date precedes birth date")
	}
	return nil
}

func viewsEqual(a, b View) bool {
	return a.State == b.State &&
		a.Automatic == b.Automatic &&
		a.Fragment == b.Fragment &&
		a.Outcome.Equal(b.Outcome) &&
		a.Form == b.Form &&
		slices.Equal(a.SpeciesOptions, b.SpeciesOptions)
}
