// Package registration drives one animal registration form: debounced
// identity lookups, match-based locking, the species cascade and the
// save-time attachment protocol.
//
// An Engine is bound to a single form. The "animal" surface searches by the
// animal's identity number, the "patient" surface by the owner's.
package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"vetdesk/internal/platform/logger"
	"vetdesk/internal/platform/metrics"
	"vetdesk/internal/registration/attach"
	"vetdesk/internal/registration/debounce"
	"vetdesk/internal/registration/lock"
	"vetdesk/internal/registration/match"
	"vetdesk/internal/registration/models"
	"vetdesk/internal/registration/observability"
	"vetdesk/internal/registration/ports"
	"vetdesk/internal/registration/species"
	id "vetdesk/pkg/domain"
	dErrors "vetdesk/pkg/domain-errors"
	"vetdesk/pkg/platform/sentinel"
)

// DefaultDebounceDelay is the pause after the last keystroke before searching.
const DefaultDebounceDelay = 500 * time.Millisecond

const identityField = "identity"

// ErrClosed is returned by every mutating call after Close.
var ErrClosed = fmt.Errorf("registration closed: %w", sentinel.ErrInvalidState)

type Engine struct {
	mode      models.Mode
	directory ports.Directory
	delay     time.Duration
	afterFunc debounce.AfterFunc
	reporter  ports.Reporter
	metrics   *metrics.Metrics
	logger    *slog.Logger

	scheduler  *debounce.Scheduler
	classifier *match.Classifier
	species    *species.Loader
	protocol   *attach.Protocol

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	ctrl     *lock.Controller
	seq      uint64
	kindSeq  uint64
	saving   bool
	closed   bool
	onSaved  func(models.SavedRecord)
	onChange func(lock.View)
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithReporter sets the sink for degraded searches and re-checks. Defaults to
// a LogReporter on the engine's logger.
func WithReporter(reporter ports.Reporter) Option {
	return func(e *Engine) {
		e.reporter = reporter
	}
}

func WithDebounceDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.delay = d
	}
}

// WithAfterFunc replaces the debounce timer source, for tests.
func WithAfterFunc(fn debounce.AfterFunc) Option {
	return func(e *Engine) {
		e.afterFunc = fn
	}
}

// WithSpeciesLoader shares a loader (and its cache) between engines.
func WithSpeciesLoader(loader *species.Loader) Option {
	return func(e *Engine) {
		e.species = loader
	}
}

// WithOnChange registers a callback invoked with a fresh snapshot whenever
// an asynchronous search changed the form.
func WithOnChange(fn func(lock.View)) Option {
	return func(e *Engine) {
		e.onChange = fn
	}
}

// WithBaseContext sets the context the engine's own lookups derive from. Its
// values, such as the request id, reach the Directory; its cancellation does not.
func WithBaseContext(ctx context.Context) Option {
	return func(e *Engine) {
		e.ctx = ctx
	}
}

func New(directory ports.Directory, mode models.Mode, owner id.OwnerID, opts ...Option) (*Engine, error) {
	if directory == nil {
		return nil, fmt.Errorf("directory is required")
	}
	if !mode.IsValid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unknown lookup mode %q", mode))
	}

	e := &Engine{
		mode:      mode,
		directory: directory,
		delay:     DefaultDebounceDelay,
		logger:    logger.Discard(),
		ctrl:      lock.New(mode, owner),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.reporter == nil {
		e.reporter = observability.NewLogReporter(e.logger)
	}

	var schedOpts []debounce.Option
	if e.afterFunc != nil {
		schedOpts = append(schedOpts, debounce.WithAfterFunc(e.afterFunc))
	}
	e.scheduler = debounce.New(e.delay, schedOpts...)

	var err error
	e.classifier, err = match.New(directory,
		match.WithLogger(e.logger),
		match.WithReporter(e.reporter),
		match.WithMetrics(e.metrics),
	)
	if err != nil {
		return nil, err
	}
	if e.species == nil {
		e.species, err = species.New(directory, species.WithLogger(e.logger), species.WithMetrics(e.metrics))
		if err != nil {
			return nil, err
		}
	}
	e.protocol, err = attach.New(directory, e.classifier,
		attach.WithLogger(e.logger),
		attach.WithReporter(e.reporter),
		attach.WithMetrics(e.metrics),
	)
	if err != nil {
		return nil, err
	}

	base := context.Background()
	if e.ctx != nil {
		base = context.WithoutCancel(e.ctx)
	}
	e.ctx, e.cancel = context.WithCancel(base)
	return e, nil
}

func (e *Engine) Mode() models.Mode {
	return e.mode
}

// OnSaved registers the callback invoked after a successful save.
func (e *Engine) OnSaved(fn func(models.SavedRecord)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onSaved = fn
}

// SetFragment records the identity text. An empty fragment resets the form at
// once; anything else is searched after the debounce delay. Every call
// invalidates searches still in flight for earlier fragments.
func (e *Engine) SetFragment(fragment string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}

	e.seq++
	e.ctrl.FragmentChanged(fragment)
	if !e.ctrl.Searchable() {
		e.scheduler.Cancel(identityField)
		return nil
	}
	seq := e.seq
	e.scheduler.Schedule(identityField, fragment, func(f string) {
		e.startSearch(seq, f)
	})
	return nil
}

func (e *Engine) startSearch(seq uint64, fragment string) {
	e.mu.Lock()
	if e.closed || seq != e.seq {
		e.mu.Unlock()
		return
	}
	e.wg.Add(1)
	e.mu.Unlock()

	go e.search(seq, fragment)
}

// search classifies fragment and resolves the candidate's species, then
// applies both together if no newer request superseded it.
func (e *Engine) search(seq uint64, fragment string) {
	defer e.wg.Done()
	ctx := e.ctx

	outcome := e.classifier.Classify(ctx, fragment, e.mode)
	sel := e.resolveSpecies(ctx, outcome)

	e.mu.Lock()
	if e.closed || seq != e.seq {
		e.mu.Unlock()
		e.metrics.IncrementStaleResponse()
		e.logger.DebugContext(ctx, "stale search response dropped", "mode", e.mode)
		return
	}
	changed := e.ctrl.Settle(outcome, sel)
	view := e.ctrl.View()
	onChange := e.onChange
	e.mu.Unlock()

	e.logger.DebugContext(ctx, "search settled",
		"mode", e.mode,
		"outcome", outcome.Kind(),
		"lock_state", view.State,
	)
	if changed && onChange != nil {
		onChange(view)
	}
}

// resolveSpecies loads the species list for the selected candidate. When the
// list cannot be loaded the candidate's own species id is kept.
func (e *Engine) resolveSpecies(ctx context.Context, outcome models.MatchOutcome) species.Selection {
	candidate, ok := outcome.Selected()
	if !ok || candidate.AnimalKindID.IsNil() {
		return species.Selection{}
	}
	sel, err := e.species.Resolve(ctx, candidate.AnimalKindID, candidate.SpeciesName, candidate.SpeciesID)
	if err != nil {
		if ctx.Err() == nil {
			e.reporter.ReportDegraded(ctx, "species", err, "animal_kind_id", candidate.AnimalKindID.String())
		}
		if candidate.SpeciesID.IsNil() {
			return species.Selection{}
		}
		return species.Selection{Selected: &models.Species{
			ID:           candidate.SpeciesID,
			AnimalKindID: candidate.AnimalKindID,
			Name:         candidate.SpeciesName,
		}}
	}
	return sel
}

// SetAutomaticMode toggles automatic identity generation.
func (e *Engine) SetAutomaticMode(on bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if e.ctrl.SetAutomatic(on) {
		e.seq++
		e.scheduler.Cancel(identityField)
	}
	return nil
}

// SearchAnother abandons the current match and clears the fragment.
func (e *Engine) SearchAnother() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.seq++
	e.scheduler.Cancel(identityField)
	e.ctrl.SearchAnother()
	return nil
}

// SelectOwner switches the locked candidate to another row of a
// MultipleOwnersMatch and reloads its species.
func (e *Engine) SelectOwner(ctx context.Context, index int) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	current := e.ctrl.Outcome()
	if e.ctrl.State() != models.LockedOnMatch || !current.IsAmbiguous() {
		e.mu.Unlock()
		return dErrors.New(dErrors.CodeBadRequest, "no owner selection is pending")
	}
	next, err := current.WithSelection(index)
	if err != nil {
		e.mu.Unlock()
		return dErrors.Wrap(err, dErrors.CodeBadRequest, err.Error())
	}
	seq := e.seq
	e.mu.Unlock()

	sel := e.resolveSpecies(ctx, next)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if seq != e.seq {
		e.metrics.IncrementStaleResponse()
		return dErrors.New(dErrors.CodeConflict, "the identity changed while selecting an owner")
	}
	e.ctrl.Settle(next, sel)
	return nil
}

// Edit changes one form field. Choosing an animal kind loads its species.
func (e *Engine) Edit(ctx context.Context, field models.Field, value string) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	before := e.ctrl.Form().AnimalKindID
	if err := e.ctrl.Edit(field, value); err != nil {
		e.mu.Unlock()
		return err
	}
	kind := e.ctrl.Form().AnimalKindID
	if field != models.FieldAnimalKind || kind == before || kind.IsNil() {
		e.mu.Unlock()
		return nil
	}
	e.kindSeq++
	seq := e.kindSeq
	e.mu.Unlock()

	list, err := e.species.Load(ctx, kind)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed && seq == e.kindSeq && e.ctrl.Form().AnimalKindID == kind {
		e.ctrl.SetSpeciesOptions(list)
	}
	return nil
}

// FieldChange is one assignment within a Patch.
type FieldChange struct {
	Field models.Field
	Value string
}

// Patch groups form changes that land together or not at all.
type Patch struct {
	Owner   *id.OwnerID
	Changes []FieldChange
}

// kindChange reports the animal kind p selects when it differs from current.
func (p Patch) kindChange(current id.AnimalKindID) (id.AnimalKindID, bool) {
	for i := len(p.Changes) - 1; i >= 0; i-- {
		if p.Changes[i].Field != models.FieldAnimalKind {
			continue
		}
		kind, err := id.OptionalAnimalKindID(strings.TrimSpace(p.Changes[i].Value))
		if err != nil || kind.IsNil() || kind == current {
			return id.AnimalKindID{}, false
		}
		return kind, true
	}
	return id.AnimalKindID{}, false
}

// Apply applies every change of p in order. The species of a newly chosen
// kind are loaded first so a species in the same patch is checked against
// them. If any change is rejected the form is restored and nothing lands.
func (e *Engine) Apply(ctx context.Context, p Patch) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	kind, reload := p.kindChange(e.ctrl.Form().AnimalKindID)
	e.mu.Unlock()

	var list []models.Species
	if reload {
		var err error
		if list, err = e.species.Load(ctx, kind); err != nil {
			return err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	snapshot := e.ctrl.Clone()
	rollback := func(err error) error {
		e.ctrl = snapshot
		return err
	}

	if p.Owner != nil {
		e.ctrl.SetOwner(*p.Owner)
	}
	kindChanged := false
	for _, change := range p.Changes {
		before := e.ctrl.Form().AnimalKindID
		if err := e.ctrl.Edit(change.Field, change.Value); err != nil {
			return rollback(err)
		}
		after := e.ctrl.Form().AnimalKindID
		if after == before || after.IsNil() {
			continue
		}
		if !reload || after != kind {
			return rollback(dErrors.New(dErrors.CodeConflict, "the animal kind changed while applying the edit"))
		}
		e.ctrl.SetSpeciesOptions(list)
		kindChanged = true
	}
	if kindChanged {
		// Species loads still running for an earlier kind must not land.
		e.kindSeq++
	}
	return nil
}

// SetDeath records whether the animal is deceased and when it died.
func (e *Engine) SetDeath(deceased bool, date string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if !deceased {
		return e.ctrl.Edit(models.FieldDeceased, "false")
	}
	if date == "" {
		return e.ctrl.Edit(models.FieldDeceased, "true")
	}
	return e.ctrl.Edit(models.FieldDeathDate, date)
}

func (e *Engine) SetOwner(owner id.OwnerID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.ctrl.SetOwner(owner)
	return nil
}

// Submit saves the draft. On success, and when the animal already belongs
// to the owner, the form is reset; any other failure leaves it intact.
func (e *Engine) Submit(ctx context.Context, confirmer ports.Confirmer) (models.SavedRecord, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return models.SavedRecord{}, ErrClosed
	}
	if e.saving {
		e.mu.Unlock()
		return models.SavedRecord{}, dErrors.New(dErrors.CodeConflict, "a save is already in progress")
	}
	req := attach.Request{
		Form:      e.ctrl.Form(),
		Automatic: e.ctrl.Automatic(),
		Fragment:  e.ctrl.Fragment(),
	}
	if candidate, ok := e.ctrl.Candidate(); ok {
		req.Candidate = &candidate
	}
	e.saving = true
	e.mu.Unlock()

	saved, err := e.protocol.Save(ctx, req, confirmer)

	e.mu.Lock()
	e.saving = false
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeAlreadyOwned) && !e.closed {
			e.resetLocked()
		}
		e.mu.Unlock()
		return models.SavedRecord{}, err
	}
	if !e.closed {
		e.resetLocked()
	}
	onSaved := e.onSaved
	e.mu.Unlock()

	if onSaved != nil {
		onSaved(saved)
	}
	return saved, nil
}

func (e *Engine) resetLocked() {
	e.seq++
	e.kindSeq++
	e.scheduler.Cancel(identityField)
	e.ctrl.Reset()
}

func (e *Engine) LockState() models.LockState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctrl.State()
}

func (e *Engine) Snapshot() lock.View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctrl.View()
}

// Close stops pending searches and cancels in-flight Directory calls. Results
// arriving afterwards are dropped. Close is idempotent.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.seq++
	e.mu.Unlock()

	e.scheduler.Stop()
	e.cancel()
}

// Wait blocks until in-flight searches have finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// IsClosed reports whether err came from a closed engine.
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}
