// Package ports declares the registration engine's collaborators.
package ports

import (
	"context"

	"vetdesk/internal/registration/models"
	id "vetdesk/pkg/domain"
)

//go:generate mockgen -source=ports.go -destination=../mocks/mocks.go -package=mocks

// Directory is the Directory Service as seen by the engine.
type Directory interface {
	SearchByOwnerIdentity(ctx context.Context, identityNumber string) (models.SearchResult, error)
	SearchByAnimalIdentity(ctx context.Context, identityNumber string) (models.SearchResult, error)
	ListAnimalKinds(ctx context.Context) ([]models.AnimalKind, error)
	ListSpecies(ctx context.Context, animalKindID id.AnimalKindID) ([]models.Species, error)
	CreateOrAttachAnimal(ctx context.Context, req models.AttachRequest) (id.AnimalID, error)
}

// Reporter receives conditions the engine recovered from on its own, such
// as a failed search that degraded to "no match".
type Reporter interface {
	ReportDegraded(ctx context.Context, operation string, err error, attrs ...any)
}

// Confirmer asks the operator whether to attach an animal that is already
// registered to other owners. It blocks until the operator answers.
type Confirmer interface {
	ConfirmAttach(ctx context.Context, prompt models.AttachPrompt) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt models.AttachPrompt) (bool, error)

func (f ConfirmFunc) ConfirmAttach(ctx context.Context, prompt models.AttachPrompt) (bool, error) {
	return f(ctx, prompt)
}
