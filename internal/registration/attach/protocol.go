// Package attach runs the save-time ownership re-check and commits a
// registration to the Directory Service.
package attach

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"vetdesk/internal/platform/logger"
	"vetdesk/internal/platform/metrics"
	"vetdesk/internal/registration/models"
	"vetdesk/internal/registration/ports"
	id "vetdesk/pkg/domain"
	dErrors "vetdesk/pkg/domain-errors"
)

// Submission results recorded in vetdesk_registration_submissions_total.
const (
	ResultCreated      = "created"
	ResultAttached     = "attached"
	ResultAlreadyOwned = "already_owned"
	ResultDeclined     = "declined"
	ResultInvalid      = "invalid"
	ResultFailed       = "failed"
)

// Lookup is the strict search used for the re-check.
type Lookup interface {
	Lookup(ctx context.Context, fragment string, mode models.Mode) (models.MatchOutcome, error)
}

// Request is the draft being saved.
type Request struct {
	Form      models.FormRecord
	Automatic bool
	Fragment  string
	// Candidate is the engine's active candidate, if the form is locked.
	Candidate *models.Candidate
}

type Protocol struct {
	directory ports.Directory
	lookup    Lookup
	reporter  ports.Reporter
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type Option func(*Protocol)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Protocol) {
		p.logger = logger
	}
}

// WithReporter sets the sink for re-checks that failed and were skipped.
func WithReporter(reporter ports.Reporter) Option {
	return func(p *Protocol) {
		p.reporter = reporter
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Protocol) {
		p.metrics = m
	}
}

func New(directory ports.Directory, lookup Lookup, opts ...Option) (*Protocol, error) {
	if directory == nil {
		return nil, fmt.Errorf("directory is required")
	}
	if lookup == nil {
		return nil, fmt.Errorf("lookup is required")
	}
	p := &Protocol{
		directory: directory,
		lookup:    lookup,
		logger:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Validate checks the save preconditions without touching the network.
func Validate(req Request) error {
	form := req.Form
	switch {
	case form.OwnerID.IsNil():
		return dErrors.NewField(dErrors.CodeValidation, string(models.FieldOwner), "owner is required")
	case !req.Automatic && strings.TrimSpace(req.Fragment) == "":
		return dErrors.NewField(dErrors.CodeValidation, string(models.FieldIdentityNumber), "identity number is required unless generated automatically")
	case form.AnimalKindID.IsNil():
		return dErrors.NewField(dErrors.CodeValidation, string(models.FieldAnimalKind), "animal kind is required")
	case form.SpeciesID.IsNil():
		return dErrors.NewField(dErrors.CodeValidation, string(models.FieldSpecies), "species is required")
	case strings.TrimSpace(form.Name) == "":
		return dErrors.NewField(dErrors.CodeValidation, string(models.FieldName), "name is required")
	}
	return nil
}

// Save validates req, re-checks current ownership of the identity number and
// creates or attaches the animal.
//
// An animal already registered to the requesting owner fails with
// CodeAlreadyOwned. An animal registered to other owners is attached only
// after confirmer accepts; a decline (or a nil confirmer) fails with
// CodeForeignOwner. Neither calls the Directory's write endpoint.
func (p *Protocol) Save(ctx context.Context, req Request, confirmer ports.Confirmer) (models.SavedRecord, error) {
	if err := Validate(req); err != nil {
		p.metrics.IncrementSubmission(ResultInvalid)
		return models.SavedRecord{}, err
	}

	existing, err := p.resolveExisting(ctx, req, confirmer)
	if err != nil {
		return models.SavedRecord{}, err
	}

	animalID, err := p.directory.CreateOrAttachAnimal(ctx, models.AttachRequest{
		Form:             req.Form,
		OwnerID:          req.Form.OwnerID,
		ExistingAnimalID: existing,
	})
	if err != nil {
		p.metrics.IncrementSubmission(ResultFailed)
		if _, ok := dErrors.As(err); ok {
			return models.SavedRecord{}, err
		}
		return models.SavedRecord{}, dErrors.Wrap(err, dErrors.CodeTransport, "saving the animal failed")
	}

	attached := !existing.IsNil()
	result := ResultCreated
	if attached {
		result = ResultAttached
	}
	p.metrics.IncrementSubmission(result)
	p.logger.InfoContext(ctx, "animal registered",
		"animal_id", animalID.String(),
		"owner_id", req.Form.OwnerID.String(),
		"attached", attached,
	)
	return models.SavedRecord{
		AnimalID: animalID,
		OwnerID:  req.Form.OwnerID,
		Form:     req.Form,
		Attached: attached,
	}, nil
}

// resolveExisting returns the animal to attach to, or a nil id for a new animal.
func (p *Protocol) resolveExisting(ctx context.Context, req Request, confirmer ports.Confirmer) (id.AnimalID, error) {
	identity := strings.TrimSpace(req.Form.IdentityNumber)
	if identity == "" {
		// Nothing to re-check by; the locked candidate still names its owner.
		if req.Candidate != nil && !req.Candidate.OwnerID.IsNil() {
			return p.checkOwners(ctx, []models.Candidate{*req.Candidate}, req, confirmer, identity)
		}
		return candidateAnimal(req.Candidate), nil
	}

	outcome, err := p.lookup.Lookup(ctx, identity, models.ModeByAnimalIdentity)
	if err != nil {
		if ctx.Err() != nil {
			return id.AnimalID{}, dErrors.Wrap(ctx.Err(), dErrors.CodeTransport, "save cancelled")
		}
		if p.reporter != nil {
			p.reporter.ReportDegraded(ctx, "attach_recheck", err, "identity_number", identity)
		}
		return candidateAnimal(req.Candidate), nil
	}

	switch outcome.Kind() {
	case models.NoMatch:
		return id.AnimalID{}, nil
	case models.AnimalOnlyMatch:
		animal, _ := outcome.Selected()
		return animal.AnimalID, nil
	}

	return p.checkOwners(ctx, outcome.Candidates(), req, confirmer, identity)
}

// checkOwners stops on an owner overlap and gates attaching to foreign owners
// behind the confirmer.
func (p *Protocol) checkOwners(ctx context.Context, rows []models.Candidate, req Request, confirmer ports.Confirmer, identity string) (id.AnimalID, error) {
	owners := make([]id.OwnerID, 0, len(rows))
	for _, row := range rows {
		if row.OwnerID == req.Form.OwnerID {
			p.metrics.IncrementSubmission(ResultAlreadyOwned)
			return id.AnimalID{}, dErrors.New(dErrors.CodeAlreadyOwned, "this animal is already registered to this owner")
		}
		owners = append(owners, row.OwnerID)
	}

	target := attachTarget(rows, req.Candidate)
	prompt := models.AttachPrompt{
		AnimalID:       target,
		IdentityNumber: identity,
		OtherOwners:    owners,
		Message:        "This animal is registered to another owner. Attach it to this owner as well?",
	}
	accepted := false
	if confirmer != nil {
		var err error
		accepted, err = confirmer.ConfirmAttach(ctx, prompt)
		if err != nil {
			p.metrics.IncrementSubmission(ResultDeclined)
			return id.AnimalID{}, dErrors.Wrap(err, dErrors.CodeForeignOwner, "attach was not confirmed")
		}
	}
	if !accepted {
		p.metrics.IncrementSubmission(ResultDeclined)
		return id.AnimalID{}, dErrors.New(dErrors.CodeForeignOwner, prompt.Message)
	}
	return target, nil
}

// attachTarget prefers the row the operator locked on; otherwise the first row.
func attachTarget(rows []models.Candidate, active *models.Candidate) id.AnimalID {
	if active != nil {
		for _, row := range rows {
			if row.AnimalID == active.AnimalID {
				return row.AnimalID
			}
		}
	}
	return rows[0].AnimalID
}

func candidateAnimal(c *models.Candidate) id.AnimalID {
	if c == nil {
		return id.AnimalID{}
	}
	return c.AnimalID
}
