// Package species loads the species list that depends on a selected animal kind.
package species

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/singleflight"

	"vetdesk/internal/platform/logger"
	"vetdesk/internal/platform/metrics"
	"vetdesk/internal/registration/models"
	"vetdesk/internal/registration/ports"
	id "vetdesk/pkg/domain"
	dErrors "vetdesk/pkg/domain-errors"
)

// Cache stores species lists per animal kind.
type Cache interface {
	Get(ctx context.Context, kindID id.AnimalKindID) ([]models.Species, bool, error)
	Set(ctx context.Context, kindID id.AnimalKindID, list []models.Species) error
}

// Selection is a loaded species list with the entry pre-selected for a candidate.
type Selection struct {
	Options  []models.Species
	Selected *models.Species
}

// DefaultFlightTimeout bounds a shared Directory request once no caller is
// tied to it.
const DefaultFlightTimeout = 10 * time.Second

type Loader struct {
	directory     ports.Directory
	cache         Cache
	group         singleflight.Group
	flightTimeout time.Duration
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

type Option func(*Loader)

func WithCache(cache Cache) Option {
	return func(l *Loader) {
		l.cache = cache
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Loader) {
		l.metrics = m
	}
}

// WithFlightTimeout sets the deadline of a shared species request.
func WithFlightTimeout(d time.Duration) Option {
	return func(l *Loader) {
		l.flightTimeout = d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

func New(directory ports.Directory, opts ...Option) (*Loader, error) {
	if directory == nil {
		return nil, fmt.Errorf("directory is required")
	}
	l := &Loader{
		directory:     directory,
		flightTimeout: DefaultFlightTimeout,
		logger:        logger.Discard(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Load returns the species of an animal kind. A nil kind yields an empty list
// without contacting the Directory Service. Concurrent loads of the same kind
// share one request.
func (l *Loader) Load(ctx context.Context, kindID id.AnimalKindID) ([]models.Species, error) {
	if kindID.IsNil() {
		return []models.Species{}, nil
	}

	if l.cache != nil {
		list, ok, err := l.cache.Get(ctx, kindID)
		switch {
		case err != nil:
			l.logger.WarnContext(ctx, "species cache read failed", "animal_kind_id", kindID, "error", err)
		case ok:
			l.metrics.IncrementSpeciesCache("hit")
			return slices.Clone(list), nil
		default:
			l.metrics.IncrementSpeciesCache("miss")
		}
	}

	// The shared request outlives any single caller; each caller only stops
	// waiting when its own context ends.
	ch := l.group.DoChan(kindID.String(), func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.flightTimeout)
		defer cancel()
		list, err := l.directory.ListSpecies(flightCtx, kindID)
		if err != nil {
			return nil, err
		}
		if l.cache != nil {
			if err := l.cache.Set(flightCtx, kindID, list); err != nil {
				l.logger.WarnContext(ctx, "species cache write failed", "animal_kind_id", kindID, "error", err)
			}
		}
		return list, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTransport, "load species")
	}
	if res.Err != nil {
		if dErrors.HasCode(res.Err, dErrors.CodeTransport) {
			return nil, res.Err
		}
		return nil, dErrors.Wrap(res.Err, dErrors.CodeTransport, "load species")
	}
	v := res.Val
	return slices.Clone(v.([]models.Species)), nil
}

// Resolve loads the species of kindID and pre-selects the entry whose name
// equals speciesName exactly. Without an exact match nothing is selected.
// When speciesName is empty, fallbackID selects by identifier instead.
func (l *Loader) Resolve(ctx context.Context, kindID id.AnimalKindID, speciesName string, fallbackID id.SpeciesID) (Selection, error) {
	list, err := l.Load(ctx, kindID)
	if err != nil {
		return Selection{}, err
	}
	return Select(list, speciesName, fallbackID), nil
}

// Select picks the pre-selected entry out of list.
func Select(list []models.Species, speciesName string, fallbackID id.SpeciesID) Selection {
	sel := Selection{Options: list}
	for i := range list {
		if speciesName != "" && list[i].Name == speciesName {
			sel.Selected = &list[i]
			return sel
		}
		if speciesName == "" && !fallbackID.IsNil() && list[i].ID == fallbackID {
			sel.Selected = &list[i]
			return sel
		}
	}
	return sel
}
