// Package registration holds step definitions for registration scenarios.
package registration

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/cucumber/godog"

	"vetdesk/e2e/world"
	"vetdesk/internal/registration/handler"
	"vetdesk/internal/registration/models"
	id "vetdesk/pkg/domain"
)

type steps struct {
	tc *world.TestContext
}

// RegisterSteps registers registration step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc *world.TestContext) {
	s := &steps{tc: tc}

	ctx.Step(`^the directory knows the kind "([^"]*)" with species "([^"]*)"$`, s.directoryKnowsKind)
	ctx.Step(`^the directory knows the owner "([^"]*)"$`, s.directoryKnowsOwner)
	ctx.Step(`^the owner "([^"]*)" has a "([^"]*)" "([^"]*)" named "([^"]*)" with identity "([^"]*)"$`, s.ownerHasAnimal)
	ctx.Step(`^an ownerless "([^"]*)" "([^"]*)" named "([^"]*)" with identity "([^"]*)"$`, s.ownerlessAnimal)
	ctx.Step(`^I open an? "([^"]*)" registration for owner "([^"]*)"$`, s.openRegistration)
	ctx.Step(`^I type "([^"]*)" into the search field$`, s.typeFragment)
	ctx.Step(`^I fill the form with kind "([^"]*)" species "([^"]*)" name "([^"]*)" born "([^"]*)"$`, s.fillForm)
	ctx.Step(`^I submit the form$`, s.submit(false))
	ctx.Step(`^I submit the form confirming the attach$`, s.submit(true))
	ctx.Step(`^the form becomes "([^"]*)"$`, s.formBecomes)
	ctx.Step(`^the form name is "([^"]*)"$`, s.formNameIs)
	ctx.Step(`^the response status is (\d+)$`, s.statusIs)
	ctx.Step(`^the response status is (\d+) with error "([^"]*)"$`, s.statusWithError)
	ctx.Step(`^the animal "([^"]*)" belongs to "([^"]*)"$`, s.animalBelongsTo)
}

func (s *steps) directoryKnowsKind(kind, speciesName string) error {
	k := s.tc.Directory.AddKind(kind)
	s.tc.Kinds[kind] = k
	s.tc.Species[speciesName] = s.tc.Directory.AddSpecies(k.ID, speciesName)
	return nil
}

func (s *steps) directoryKnowsOwner(identityNumber string) error {
	s.tc.Owner(identityNumber)
	return nil
}

func (s *steps) candidate(kind, speciesName, name, identityNumber string) (models.Candidate, error) {
	k, ok := s.tc.Kinds[kind]
	if !ok {
		return models.Candidate{}, fmt.Errorf("unknown kind %q", kind)
	}
	sp, ok := s.tc.Species[speciesName]
	if !ok {
		return models.Candidate{}, fmt.Errorf("unknown species %q", speciesName)
	}
	return models.Candidate{
		AnimalKindID:   k.ID,
		SpeciesID:      sp.ID,
		SpeciesName:    sp.Name,
		AnimalName:     name,
		IdentityNumber: identityNumber,
	}, nil
}

func (s *steps) ownerHasAnimal(owner, kind, speciesName, name, identityNumber string) error {
	c, err := s.candidate(kind, speciesName, name, identityNumber)
	if err != nil {
		return err
	}
	s.tc.Animals[identityNumber] = s.tc.Directory.AddAnimal(c, s.tc.Owner(owner))
	return nil
}

func (s *steps) ownerlessAnimal(kind, speciesName, name, identityNumber string) error {
	c, err := s.candidate(kind, speciesName, name, identityNumber)
	if err != nil {
		return err
	}
	s.tc.Animals[identityNumber] = s.tc.Directory.AddAnimal(c)
	return nil
}

func (s *steps) openRegistration(ctx context.Context, surface, owner string) error {
	err := s.tc.Do(ctx, http.MethodPost, "/registrations", map[string]string{
		"surface":  surface,
		"owner_id": s.tc.Owner(owner).String(),
	})
	if err != nil {
		return err
	}
	if s.tc.LastStatus != http.StatusCreated {
		return fmt.Errorf("open registration: status %d: %s", s.tc.LastStatus, s.tc.LastBody)
	}
	var view handler.SessionResponse
	if err := s.tc.Decode(&view); err != nil {
		return err
	}
	s.tc.SessionID = view.ID
	return nil
}

func (s *steps) typeFragment(ctx context.Context, fragment string) error {
	err := s.tc.Do(ctx, http.MethodPut, "/registrations/"+s.tc.SessionID+"/fragment",
		map[string]string{"fragment": fragment})
	if err != nil {
		return err
	}
	if s.tc.LastStatus != http.StatusOK {
		return fmt.Errorf("set fragment: status %d: %s", s.tc.LastStatus, s.tc.LastBody)
	}
	return s.tc.Settle()
}

func (s *steps) fillForm(ctx context.Context, kind, speciesName, name, birthDate string) error {
	patches := []map[string]string{
		{"animal_kind_id": s.tc.Kinds[kind].ID.String()},
		{"species_id": s.tc.Species[speciesName].ID.String(), "name": name, "birth_date": birthDate},
	}
	for _, patch := range patches {
		if err := s.tc.Do(ctx, http.MethodPatch, "/registrations/"+s.tc.SessionID+"/form", patch); err != nil {
			return err
		}
		if s.tc.LastStatus != http.StatusOK {
			return fmt.Errorf("patch form: status %d: %s", s.tc.LastStatus, s.tc.LastBody)
		}
	}
	return nil
}

func (s *steps) submit(confirm bool) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		s.tc.LastAnimalID = ""
		err := s.tc.Do(ctx, http.MethodPost, "/registrations/"+s.tc.SessionID+"/submit",
			map[string]bool{"confirm_attach": confirm})
		if err != nil {
			return err
		}
		if s.tc.LastStatus == http.StatusCreated {
			var resp handler.SubmitResponse
			if err := s.tc.Decode(&resp); err != nil {
				return err
			}
			s.tc.LastAnimalID = resp.AnimalID
		}
		return nil
	}
}

func (s *steps) formBecomes(ctx context.Context, state string) error {
	view, err := s.tc.Session(ctx)
	if err != nil {
		return err
	}
	if view.LockState != state {
		return fmt.Errorf("expected lock state %q, got %q", state, view.LockState)
	}
	return nil
}

func (s *steps) formNameIs(ctx context.Context, name string) error {
	view, err := s.tc.Session(ctx)
	if err != nil {
		return err
	}
	if view.Form.Name != name {
		return fmt.Errorf("expected name %q, got %q", name, view.Form.Name)
	}
	return nil
}

func (s *steps) statusIs(status int) error {
	if s.tc.LastStatus != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, s.tc.LastStatus, s.tc.LastBody)
	}
	return nil
}

func (s *steps) statusWithError(status int, code string) error {
	if err := s.statusIs(status); err != nil {
		return err
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := s.tc.Decode(&body); err != nil {
		return err
	}
	if body.Error != code {
		return fmt.Errorf("expected error %q, got %q", code, body.Error)
	}
	return nil
}

func (s *steps) animalBelongsTo(identityNumber, owners string) error {
	animalID, err := id.ParseAnimalID(s.tc.LastAnimalID)
	if err != nil {
		return fmt.Errorf("no saved animal: %w", err)
	}
	if seeded, ok := s.tc.Animals[identityNumber]; ok && seeded != animalID {
		return fmt.Errorf("saved animal %s, expected %s", animalID, seeded)
	}

	var want []id.OwnerID
	for _, identity := range strings.Split(owners, ",") {
		want = append(want, s.tc.Owner(identity))
	}
	got := s.tc.Directory.Owners(animalID)
	if !slices.Equal(got, want) {
		return fmt.Errorf("animal %s owners: expected %v, got %v", identityNumber, want, got)
	}
	return nil
}
