// Package match classifies Directory Service search results into match outcomes.
package match

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"vetdesk/internal/platform/logger"
	"vetdesk/internal/platform/metrics"
	"vetdesk/internal/registration/models"
	"vetdesk/internal/registration/ports"
	dErrors "vetdesk/pkg/domain-errors"
)

type Classifier struct {
	directory ports.Directory
	reporter  ports.Reporter
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type Option func(*Classifier)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) {
		c.logger = logger
	}
}

// WithReporter sets the sink for searches that failed and degraded to NoMatch.
func WithReporter(reporter ports.Reporter) Option {
	return func(c *Classifier) {
		c.reporter = reporter
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Classifier) {
		c.metrics = m
	}
}

func New(directory ports.Directory, opts ...Option) (*Classifier, error) {
	if directory == nil {
		return nil, fmt.Errorf("directory is required")
	}
	c := &Classifier{
		directory: directory,
		logger:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Classify looks fragment up and classifies the response. A transport
// failure is reported and degrades to NoMatch so the operator can still
// create a new record. A cancelled ctx also yields NoMatch but is not reported.
func (c *Classifier) Classify(ctx context.Context, fragment string, mode models.Mode) models.MatchOutcome {
	outcome, err := c.Lookup(ctx, fragment, mode)
	if err != nil {
		if ctx.Err() == nil {
			c.metrics.IncrementSearchFailure(string(mode))
			if c.reporter != nil {
				c.reporter.ReportDegraded(ctx, "classify", err, "mode", mode)
			}
		}
		return models.NoMatchOutcome()
	}
	return outcome
}

// Lookup is Classify without the fail-open policy: transport failures are
// returned as CodeTransport errors.
func (c *Classifier) Lookup(ctx context.Context, fragment string, mode models.Mode) (models.MatchOutcome, error) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return models.NoMatchOutcome(), nil
	}

	var (
		result models.SearchResult
		err    error
	)
	switch mode {
	case models.ModeByOwnerIdentity:
		result, err = c.directory.SearchByOwnerIdentity(ctx, fragment)
	case models.ModeByAnimalIdentity:
		result, err = c.directory.SearchByAnimalIdentity(ctx, fragment)
	default:
		return models.NoMatchOutcome(), dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unknown lookup mode %q", mode))
	}
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeTransport) {
			return models.NoMatchOutcome(), err
		}
		return models.NoMatchOutcome(), dErrors.Wrap(err, dErrors.CodeTransport, "identity search failed")
	}

	outcome := Outcome(result)
	c.metrics.IncrementSearchOutcome(string(mode), outcome.Kind().String())
	c.logger.DebugContext(ctx, "identity search classified",
		"mode", mode,
		"outcome", outcome.Kind(),
		"owner_rows", len(result.OwnerRows),
	)
	return outcome, nil
}

// Outcome applies the classification rules in order, first match wins:
//
//  1. no owner rows, no animal payload  -> NoMatch
//  2. one owner row, no animal payload  -> SingleOwnerMatch
//  3. no owner rows, animal payload     -> AnimalOnlyMatch
//  4. two or more owner rows            -> MultipleOwnersMatch, first row selected
//
// One owner row together with an animal payload is a SingleOwnerMatch whose
// blank animal fields are filled from the payload.
func Outcome(result models.SearchResult) models.MatchOutcome {
	owners := len(result.OwnerRows)
	switch {
	case owners == 0 && result.Animal == nil:
		return models.NoMatchOutcome()
	case owners == 1 && result.Animal == nil:
		return models.SingleOwnerOutcome(result.OwnerRows[0])
	case owners == 0:
		return models.AnimalOnlyOutcome(*result.Animal)
	case owners >= 2:
		outcome, _ := models.MultipleOwnersOutcome(result.OwnerRows)
		return outcome
	default:
		return models.SingleOwnerOutcome(fillFrom(result.OwnerRows[0], *result.Animal))
	}
}

func fillFrom(row, animal models.Candidate) models.Candidate {
	if row.AnimalID.IsNil() {
		row.AnimalID = animal.AnimalID
	}
	if row.AnimalKindID.IsNil() {
		row.AnimalKindID = animal.AnimalKindID
	}
	if row.SpeciesID.IsNil() {
		row.SpeciesID = animal.SpeciesID
	}
	if row.SpeciesName == "" {
		row.SpeciesName = animal.SpeciesName
	}
	if row.AnimalName == "" {
		row.AnimalName = animal.AnimalName
	}
	if row.BirthDate == "" {
		row.BirthDate = animal.BirthDate
	}
	if row.IdentityNumber == "" {
		row.IdentityNumber = animal.IdentityNumber
	}
	return row
}
