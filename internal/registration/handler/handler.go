// Package handler exposes registration sessions over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vetdesk/internal/registration"
	"vetdesk/internal/registration/models"
	"vetdesk/internal/registration/ports"
	id "vetdesk/pkg/domain"
	dErrors "vetdesk/pkg/domain-errors"
	"vetdesk/pkg/platform/httputil"
	"vetdesk/pkg/platform/sentinel"
	"vetdesk/pkg/requestcontext"
)

// EngineFactory opens an engine for a new session. opts come after the
// factory's own options.
type EngineFactory func(mode models.Mode, owner id.OwnerID, opts ...registration.Option) (*registration.Engine, error)

// KindLister lists the animal-kind catalogue.
type KindLister interface {
	ListAnimalKinds(ctx context.Context) ([]models.AnimalKind, error)
}

// SpeciesLister lists the species of an animal kind.
type SpeciesLister interface {
	Load(ctx context.Context, kindID id.AnimalKindID) ([]models.Species, error)
}

// Handler wires registration endpoints to per-session engines.
type Handler struct {
	newEngine EngineFactory
	sessions  *InMemorySessionStore
	kinds     KindLister
	species   SpeciesLister
	logger    *slog.Logger
}

// New constructs a registration handler with its dependencies.
func New(newEngine EngineFactory, sessions *InMemorySessionStore, kinds KindLister, species SpeciesLister, logger *slog.Logger) *Handler {
	return &Handler{
		newEngine: newEngine,
		sessions:  sessions,
		kinds:     kinds,
		species:   species,
		logger:    logger,
	}
}

// Register mounts registration endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/animal-kinds", h.HandleListKinds)
	r.Get("/animal-kinds/{id}/species", h.HandleListSpecies)

	r.Route("/registrations", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Delete("/", h.HandleDelete)
			r.Put("/fragment", h.HandleFragment)
			r.Put("/automatic", h.HandleAutomatic)
			r.Post("/search-another", h.HandleSearchAnother)
			r.Post("/owner-selection", h.HandleOwnerSelection)
			r.Patch("/form", h.HandlePatchForm)
			r.Post("/submit", h.HandleSubmit)
		})
	})
}

// HandleCreate handles POST /registrations.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	owner := req.owner
	if owner.IsNil() {
		owner = requestcontext.OwnerID(ctx)
	}

	// Debounced searches outlive this request but keep its id for the Directory.
	engine, err := h.newEngine(req.mode, owner, registration.WithBaseContext(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to open registration", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	session := &Session{
		ID:        id.NewSessionID(),
		Surface:   Surface(req.Surface),
		Engine:    engine,
		CreatedAt: time.Now(),
	}
	engine.OnSaved(func(record models.SavedRecord) {
		h.logger.Info("registration saved",
			"session_id", session.ID.String(),
			"animal_id", record.AnimalID.String(),
			"owner_id", record.OwnerID.String(),
			"attached", record.Attached,
		)
	})
	h.sessions.Add(session)

	h.logger.InfoContext(ctx, "registration opened",
		"request_id", requestID,
		"session_id", session.ID.String(),
		"surface", session.Surface,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromView(session, engine.Snapshot()))
}

// HandleGet handles GET /registrations/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromView(session, session.Engine.Snapshot()))
}

// HandleDelete handles DELETE /registrations/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID, err := id.ParseSessionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.sessions.Close(sessionID); err != nil {
		httputil.WriteError(w, notFound(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleFragment handles PUT /registrations/{id}/fragment.
func (h *Handler) HandleFragment(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, session *Session) error {
		req, ok := httputil.DecodeAndPrepare[FragmentRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
		if !ok {
			return errResponded
		}
		return session.Engine.SetFragment(req.Fragment)
	})
}

// HandleAutomatic handles PUT /registrations/{id}/automatic.
func (h *Handler) HandleAutomatic(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, session *Session) error {
		req, ok := httputil.DecodeAndPrepare[AutomaticRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
		if !ok {
			return errResponded
		}
		return session.Engine.SetAutomaticMode(*req.Enabled)
	})
}

// HandleSearchAnother handles POST /registrations/{id}/search-another.
func (h *Handler) HandleSearchAnother(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(_ context.Context, session *Session) error {
		return session.Engine.SearchAnother()
	})
}

// HandleOwnerSelection handles POST /registrations/{id}/owner-selection.
func (h *Handler) HandleOwnerSelection(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, session *Session) error {
		req, ok := httputil.DecodeAndPrepare[OwnerSelectionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
		if !ok {
			return errResponded
		}
		return session.Engine.SelectOwner(ctx, *req.Index)
	})
}

// HandlePatchForm handles PATCH /registrations/{id}/form. Edits apply in
// field order; if one is rejected none of them land.
func (h *Handler) HandlePatchForm(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, session *Session) error {
		req, ok := httputil.DecodeAndPrepare[FormPatch](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
		if !ok {
			return errResponded
		}
		return session.Engine.Apply(ctx, req.patch())
	})
}

// HandleSubmit handles POST /registrations/{id}/submit. An animal registered
// to other owners is attached only when confirm_attach is true; otherwise the
// response is 409 conflict_foreign_owner and the client may resubmit.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	session, ok := h.session(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	confirm := ports.ConfirmFunc(func(_ context.Context, prompt models.AttachPrompt) (bool, error) {
		h.logger.InfoContext(ctx, "attach confirmation requested",
			"request_id", requestID,
			"session_id", session.ID.String(),
			"animal_id", prompt.AnimalID.String(),
			"other_owners", len(prompt.OtherOwners),
			"confirmed", req.ConfirmAttach,
		)
		return req.ConfirmAttach, nil
	})

	saved, err := session.Engine.Submit(ctx, confirm)
	if err != nil {
		h.logger.WarnContext(ctx, "registration save rejected",
			"request_id", requestID,
			"session_id", session.ID.String(),
			"error", err,
		)
		httputil.WriteError(w, engineError(err))
		return
	}

	h.logger.InfoContext(ctx, "registration submitted",
		"request_id", requestID,
		"session_id", session.ID.String(),
		"animal_id", saved.AnimalID.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, SubmitResponse{
		AnimalID: saved.AnimalID.String(),
		Attached: saved.Attached,
	})
}

// HandleListKinds handles GET /animal-kinds.
func (h *Handler) HandleListKinds(w http.ResponseWriter, r *http.Request) {
	kinds, err := h.kinds.ListAnimalKinds(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := make([]AnimalKindResponse, 0, len(kinds))
	for _, k := range kinds {
		resp = append(resp, AnimalKindResponse{ID: k.ID.String(), Name: k.Name})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleListSpecies handles GET /animal-kinds/{id}/species.
func (h *Handler) HandleListSpecies(w http.ResponseWriter, r *http.Request) {
	kindID, err := id.ParseAnimalKindID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	list, err := h.species.Load(r.Context(), kindID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := make([]SpeciesResponse, 0, len(list))
	for _, s := range list {
		resp = append(resp, SpeciesResponse{ID: s.ID.String(), Name: s.Name})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// errResponded signals that a request helper already wrote the response.
var errResponded = errors.New("response written")

// mutate resolves the session, applies fn and renders the resulting view.
func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, session *Session) error) {
	ctx := r.Context()
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := fn(ctx, session); err != nil {
		if errors.Is(err, errResponded) {
			return
		}
		httputil.WriteError(w, engineError(err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromView(session, session.Engine.Snapshot()))
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	sessionID, err := id.ParseSessionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	session, err := h.sessions.Get(sessionID)
	if err != nil {
		httputil.WriteError(w, notFound(err))
		return nil, false
	}
	return session, true
}

func notFound(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "registration not found")
	}
	return err
}

func engineError(err error) error {
	if registration.IsClosed(err) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "registration closed")
	}
	return err
}
