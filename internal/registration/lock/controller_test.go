package lock

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetdesk/internal/registration/models"
	"vetdesk/internal/registration/species"
	id "vetdesk/pkg/domain"
	dErrors "vetdesk/pkg/domain-errors"
	"vetdesk/pkg/testutil"
)

var (
	dogKind  = id.AnimalKindID(uuid.New())
	labrador = models.Species{ID: id.SpeciesID(uuid.New()), AnimalKindID: dogKind, Name: "Labrador"}
	beagle   = models.Species{ID: id.SpeciesID(uuid.New()), AnimalKindID: dogKind, Name: "Beagle"}
)

func rex() models.Candidate {
	return models.Candidate{
		AnimalID:       id.AnimalID(uuid.New()),
		OwnerID:        id.OwnerID(uuid.New()),
		AnimalKindID:   dogKind,
		SpeciesName:    "Labrador",
		AnimalName:     "Rex",
		BirthDate:      "2019-04-01",
		IdentityNumber: "982000123456789",
	}
}

func dogSpecies() species.Selection {
	return species.Select([]models.Species{labrador, beagle}, "Labrador", id.SpeciesID{})
}

func TestController_TypingOpensForm(t *testing.T) {
	c := New(models.ModeByAnimalIdentity, id.OwnerID(uuid.New()))
	assert.Equal(t, models.Unlocked, c.State())
	assert.False(t, c.Editable(models.FieldName), "manual unlocked form waits for an identity")

	assert.True(t, c.FragmentChanged("1234"))
	assert.Equal(t, models.EditableNew, c.State())
	assert.True(t, c.Editable(models.FieldName))
	assert.Equal(t, "1234", c.Form().IdentityNumber)
}

func TestController_MatchLocksAndFills(t *testing.T) {
	testutil.Given(t, "an editable draft with a typed identity", func(t *testing.T) {
		c := New(models.ModeByAnimalIdentity, id.OwnerID(uuid.New()))
		c.FragmentChanged("982000123456789")
		require.NoError(t, c.Edit(models.FieldName, "typed"))
		cand := rex()

		testutil.When(t, "a single owner match settles", func(t *testing.T) {
			assert.True(t, c.Settle(models.SingleOwnerOutcome(cand), dogSpecies()))

			testutil.Then(t, "governed fields are locked and auto-filled", func(t *testing.T) {
				assert.Equal(t, models.LockedOnMatch, c.State())
				for _, f := range models.GovernedFields {
					assert.False(t, c.Editable(f), f)
				}
				assert.True(t, c.Editable(models.FieldDeathDate))
				form := c.Form()
				assert.Equal(t, dogKind, form.AnimalKindID)
				assert.Equal(t, labrador.ID, form.SpeciesID)
				assert.Equal(t, "Rex", form.Name)
				assert.Equal(t, "2019-04-01", form.BirthDate)
				got, ok := c.Candidate()
				require.True(t, ok)
				assert.Equal(t, cand, got)
			})
		})

		testutil.When(t, "the same match settles again", func(t *testing.T) {
			assert.False(t, c.Settle(models.SingleOwnerOutcome(cand), dogSpecies()))
		})

		testutil.When(t, "a locked field is edited", func(t *testing.T) {
			err := c.Edit(models.FieldName, "Max")
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.Equal(t, "Rex", c.Form().Name)
		})
	})
}

func TestController_OwnerModeFillsIdentityFromCandidate(t *testing.T) {
	c := New(models.ModeByOwnerIdentity, id.OwnerID(uuid.New()))
	c.FragmentChanged("12345678901")
	cand := rex()
	c.Settle(models.SingleOwnerOutcome(cand), dogSpecies())
	assert.Equal(t, cand.IdentityNumber, c.Form().IdentityNumber)
}

func TestController_NoMatchAfterLockReopens(t *testing.T) {
	c := New(models.ModeByAnimalIdentity, id.OwnerID(uuid.New()))
	c.FragmentChanged("982000123456789")
	c.Settle(models.AnimalOnlyOutcome(rex()), dogSpecies())
	require.Equal(t, models.LockedOnMatch, c.State())

	c.FragmentChanged("98200012345678")
	assert.Equal(t, models.LockedOnMatch, c.State(), "lock holds until the new fragment settles")

	assert.True(t, c.Settle(models.NoMatchOutcome(), species.Selection{}))
	assert.Equal(t, models.EditableNew, c.State())
	assert.Empty(t, c.Form().Name)
	assert.True(t, c.Form().AnimalKindID.IsNil())
	_, ok := c.Candidate()
	assert.False(t, ok)
}

func TestController_NoMatchWhileEditableKeepsDraft(t *testing.T) {
	c := New(models.ModeByAnimalIdentity, id.OwnerID(uuid.New()))
	c.FragmentChanged("1")
	require.NoError(t, c.Edit(models.FieldName, "Bella"))

	assert.False(t, c.Settle(models.NoMatchOutcome(), species.Selection{}))
	assert.Equal(t, models.EditableNew, c.State())
	assert.Equal(t, "Bella", c.Form().Name)
}

func TestController_ClearingFragmentResets(t *testing.T) {
	c := New(models.ModeByAnimalIdentity, id.OwnerID(uuid.New()))
	c.FragmentChanged("982000123456789")
	c.Settle(models.SingleOwnerOutcome(rex()), dogSpecies())

	assert.True(t, c.FragmentChanged(""))
	assert.Equal(t, models.Unlocked, c.State())
	assert.Empty(t, c.Form().Name)
	assert.Empty(t, c.Form().IdentityNumber)
	assert.Empty(t, c.SpeciesOptions())
	assert.False(t, c.Searchable())
}

func TestController_SearchAnother(t *testing.T) {
	owner := id.OwnerID(uuid.New())
	c := New(models.ModeByAnimalIdentity, owner)
	c.FragmentChanged("982000123456789")
	c.Settle(models.SingleOwnerOutcome(rex()), dogSpecies())

	assert.True(t, c.SearchAnother())
	assert.Equal(t, models.Unlocked, c.State())
	assert.Empty(t, c.Fragment())
	assert.Equal(t, models.FormRecord{OwnerID: owner}, c.Form())
}

func TestController_AutomaticBypassesLocking(t *testing.T) {
	c := New(models.ModeByAnimalIdentity, id.OwnerID(uuid.New()))
	c.FragmentChanged("982000123456789")
	c.Settle(models.SingleOwnerOutcome(rex()), dogSpecies())

	assert.True(t, c.SetAutomatic(true))
	assert.Equal(t, models.Unlocked, c.State())
	for _, f := range models.GovernedFields {
		assert.True(t, c.Editable(f), f)
	}
	assert.False(t, c.Searchable())

	c.FragmentChanged("982000123456789")
	assert.False(t, c.Settle(models.SingleOwnerOutcome(rex()), dogSpecies()), "automatic mode never locks")
	assert.Equal(t, models.Unlocked, c.State())

	assert.False(t, c.SetAutomatic(true))
	assert.True(t, c.SetAutomatic(false))
	assert.False(t, c.Editable(models.FieldName))
}

func TestController_OwnerReselectionStaysLocked(t *testing.T) {
	c := New(models.ModeByAnimalIdentity, id.OwnerID(uuid.New()))
	c.FragmentChanged("982000123456789")
	first, second := rex(), rex()
	second.AnimalName = "Rexy"
	outcome, err := models.MultipleOwnersOutcome([]models.Candidate{first, second})
	require.NoError(t, err)
	c.Settle(outcome, dogSpecies())
	assert.Equal(t, "Rex", c.Form().Name)

	next, err := outcome.WithSelection(1)
	require.NoError(t, err)
	assert.True(t, c.Settle(next, dogSpecies()))
	assert.Equal(t, models.LockedOnMatch, c.State())
	assert.Equal(t, "Rexy", c.Form().Name)
}

func TestController_Edit(t *testing.T) {
	c := New(models.ModeByAnimalIdentity, id.OwnerID(uuid.New()))
	c.FragmentChanged("1")

	t.Run("kind change clears species", func(t *testing.T) {
		require.NoError(t, c.Edit(models.FieldAnimalKind, dogKind.String()))
		c.SetSpeciesOptions([]models.Species{labrador, beagle})
		require.NoError(t, c.Edit(models.FieldSpecies, beagle.ID.String()))
		assert.Equal(t, beagle.ID, c.Form().SpeciesID)

		require.NoError(t, c.Edit(models.FieldAnimalKind, uuid.NewString()))
		assert.True(t, c.Form().SpeciesID.IsNil())
		assert.Empty(t, c.SpeciesOptions())
	})

	t.Run("species outside options rejected", func(t *testing.T) {
		c.SetSpeciesOptions([]models.Species{labrador})
		err := c.Edit(models.FieldSpecies, beagle.ID.String())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("dates", func(t *testing.T) {
		assert.Error(t, c.Edit(models.FieldBirthDate, "01/02/2020"))
		require.NoError(t, c.Edit(models.FieldBirthDate, "2020-02-01"))
		assert.Error(t, c.Edit(models.FieldDeathDate, "2019-12-31"))
		require.NoError(t, c.Edit(models.FieldDeathDate, "2024-05-05"))
		assert.True(t, c.Form().Deceased)

		require.NoError(t, c.Edit(models.FieldDeceased, "false"))
		assert.Empty(t, c.Form().DeathDate)
		assert.Error(t, c.Edit(models.FieldDeceased, "maybe"))
	})

	t.Run("unknown field", func(t *testing.T) {
		assert.Error(t, c.Edit(models.FieldIdentityNumber, "x"))
	})
}

func TestController_ResetKeepsOwner(t *testing.T) {
	owner := id.OwnerID(uuid.New())
	c := New(models.ModeByOwnerIdentity, owner)
	c.FragmentChanged("12345678901")
	c.Settle(models.SingleOwnerOutcome(rex()), dogSpecies())

	c.Reset()
	assert.Equal(t, models.Unlocked, c.State())
	assert.Equal(t, models.FormRecord{OwnerID: owner}, c.Form())
}
