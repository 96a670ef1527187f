// Package directorytest provides an in-memory Directory Service for tests and
// local runs.
package directorytest

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"vetdesk/internal/directory"
	jwttoken "vetdesk/internal/jwt_token"
	"vetdesk/internal/registration/models"
	id "vetdesk/pkg/domain"
	dErrors "vetdesk/pkg/domain-errors"
	"vetdesk/pkg/platform/httputil"
	"vetdesk/pkg/platform/middleware/metadata"
)

type animal struct {
	candidate models.Candidate
	owners    []id.OwnerID
}

// Server is a fake Directory Service. Seed it with AddKind, AddSpecies,
// AddOwner and AddAnimal, then serve Router().
type Server struct {
	mu        sync.Mutex
	kinds     []models.AnimalKind
	species   map[id.AnimalKindID][]models.Species
	owners    map[string][]id.OwnerID
	animals   []*animal
	tokens    *jwttoken.JWTService
	failures  []int
	requests  map[string]int
	requestID []string
}

type Option func(*Server)

// WithTokens rejects requests without a valid bearer token.
func WithTokens(tokens *jwttoken.JWTService) Option {
	return func(s *Server) {
		s.tokens = tokens
	}
}

func New(opts ...Option) *Server {
	s := &Server{
		species:  make(map[id.AnimalKindID][]models.Species),
		owners:   make(map[string][]id.OwnerID),
		requests: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) AddKind(name string) models.AnimalKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	kind := models.AnimalKind{ID: id.AnimalKindID(uuid.New()), Name: name}
	s.kinds = append(s.kinds, kind)
	return kind
}

func (s *Server) AddSpecies(kindID id.AnimalKindID, name string) models.Species {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp := models.Species{ID: id.SpeciesID(uuid.New()), AnimalKindID: kindID, Name: name}
	s.species[kindID] = append(s.species[kindID], sp)
	return sp
}

// AddOwner registers an owner under a government identity number.
func (s *Server) AddOwner(identityNumber string) id.OwnerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner := id.OwnerID(uuid.New())
	s.owners[identityNumber] = append(s.owners[identityNumber], owner)
	return owner
}

// AddAnimal stores an animal with the given owners. OwnerID on c is ignored.
func (s *Server) AddAnimal(c models.Candidate, owners ...id.OwnerID) id.AnimalID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.AnimalID.IsNil() {
		c.AnimalID = id.AnimalID(uuid.New())
	}
	c.OwnerID = id.OwnerID{}
	s.animals = append(s.animals, &animal{candidate: c, owners: slices.Clone(owners)})
	return c.AnimalID
}

// Owners returns the owners of an animal.
func (s *Server) Owners(animalID id.AnimalID) []id.OwnerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.animals {
		if a.candidate.AnimalID == animalID {
			return slices.Clone(a.owners)
		}
	}
	return nil
}

// FailNext makes the next len(statuses) requests fail with those statuses.
func (s *Server) FailNext(statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, statuses...)
}

// Requests reports how many requests were received for "METHOD /path".
func (s *Server) Requests(pattern string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[pattern]
}

// RequestIDs lists the X-Request-ID values received, in order.
func (s *Server) RequestIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requestID)
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.intercept)
	r.Get("/owners/search", s.searchOwners)
	r.Get("/animals/search", s.searchAnimals)
	r.Get("/animal-kinds", s.listKinds)
	r.Get("/animal-kinds/{id}/species", s.listSpecies)
	r.Post("/animals", s.createAnimal)
	return r
}

func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests[r.Method+" "+r.URL.Path]++
		if requestID := r.Header.Get(metadata.HeaderRequestID); requestID != "" {
			s.requestID = append(s.requestID, requestID)
		}
		var status int
		if len(s.failures) > 0 {
			status, s.failures = s.failures[0], s.failures[1:]
		}
		s.mu.Unlock()

		if status != 0 {
			httputil.WriteJSON(w, status, httputil.ErrorResponse{Error: "injected_failure", ErrorDescription: http.StatusText(status)})
			return
		}
		if s.tokens != nil {
			if _, err := s.tokens.ValidateAuthHeader(r.Header.Get("Authorization")); err != nil {
				httputil.WriteError(w, err)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) searchOwners(w http.ResponseWriter, r *http.Request) {
	identity := strings.TrimSpace(r.URL.Query().Get("identity"))
	s.mu.Lock()
	defer s.mu.Unlock()

	owners, ok := s.owners[identity]
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no owner with this identity"))
		return
	}
	resp := directory.SearchResponse{OwnerRows: []directory.CandidateDTO{}}
	for _, owner := range owners {
		for _, a := range s.animals {
			if slices.Contains(a.owners, owner) {
				row := a.candidate
				row.OwnerID = owner
				resp.OwnerRows = append(resp.OwnerRows, directory.FromCandidate(row))
			}
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) searchAnimals(w http.ResponseWriter, r *http.Request) {
	identity := strings.TrimSpace(r.URL.Query().Get("identity"))
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := directory.SearchResponse{OwnerRows: []directory.CandidateDTO{}}
	for _, a := range s.animals {
		if identity == "" || a.candidate.IdentityNumber != identity {
			continue
		}
		if len(a.owners) == 0 && resp.Animal == nil {
			dto := directory.FromCandidate(a.candidate)
			resp.Animal = &dto
			continue
		}
		for _, owner := range a.owners {
			row := a.candidate
			row.OwnerID = owner
			resp.OwnerRows = append(resp.OwnerRows, directory.FromCandidate(row))
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) listKinds(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp := make([]directory.AnimalKindDTO, 0, len(s.kinds))
	for _, k := range s.kinds {
		resp = append(resp, directory.AnimalKindDTO{ID: k.ID.String(), Name: k.Name})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) listSpecies(w http.ResponseWriter, r *http.Request) {
	kindID, err := id.ParseAnimalKindID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.ContainsFunc(s.kinds, func(k models.AnimalKind) bool { return k.ID == kindID }) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "unknown animal kind"))
		return
	}
	resp := make([]directory.SpeciesDTO, 0, len(s.species[kindID]))
	for _, sp := range s.species[kindID] {
		resp = append(resp, directory.SpeciesDTO{ID: sp.ID.String(), AnimalKindID: sp.AnimalKindID.String(), Name: sp.Name})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) createAnimal(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.DecodeJSON[directory.CreateAnimalRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	form, err := req.Form.ToModel()
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid form"))
		return
	}
	owner, err := id.ParseOwnerID(req.OwnerID)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid owner"))
		return
	}
	existing, err := id.OptionalAnimalID(req.ExistingAnimalID)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid existing animal"))
		return
	}
	if form.AnimalKindID.IsNil() || form.SpeciesID.IsNil() || strings.TrimSpace(form.Name) == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "animal kind, species and name are required"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !existing.IsNil() {
		for _, a := range s.animals {
			if a.candidate.AnimalID != existing {
				continue
			}
			if slices.Contains(a.owners, owner) {
				httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, "animal already belongs to this owner"))
				return
			}
			a.owners = append(a.owners, owner)
			httputil.WriteJSON(w, http.StatusOK, directory.CreateAnimalResponse{ID: existing.String()})
			return
		}
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "unknown animal"))
		return
	}

	identity := form.IdentityNumber
	if identity == "" {
		identity = fmt.Sprintf("AUTO-%06d", len(s.animals)+1)
	}
	speciesName := ""
	for _, sp := range s.species[form.AnimalKindID] {
		if sp.ID == form.SpeciesID {
			speciesName = sp.Name
		}
	}
	created := &animal{
		candidate: models.Candidate{
			AnimalID:       id.AnimalID(uuid.New()),
			AnimalKindID:   form.AnimalKindID,
			SpeciesID:      form.SpeciesID,
			SpeciesName:    speciesName,
			AnimalName:     form.Name,
			BirthDate:      form.BirthDate,
			IdentityNumber: identity,
		},
		owners: []id.OwnerID{owner},
	}
	s.animals = append(s.animals, created)
	httputil.WriteJSON(w, http.StatusCreated, directory.CreateAnimalResponse{ID: created.candidate.AnimalID.String()})
}
