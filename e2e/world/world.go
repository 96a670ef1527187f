// Package world holds the state shared by e2e step definitions: an in-process
// registration API backed by a fake Directory Service.
package world

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"vetdesk/internal/directory"
	"vetdesk/internal/directory/directorytest"
	"vetdesk/internal/platform/logger"
	"vetdesk/internal/platform/metrics"
	"vetdesk/internal/registration"
	"vetdesk/internal/registration/handler"
	"vetdesk/internal/registration/models"
	"vetdesk/internal/registration/species"
	id "vetdesk/pkg/domain"
	"vetdesk/pkg/platform/middleware/metadata"
)

// DebounceDelay is short so scenarios settle quickly on the real clock.
const DebounceDelay = 10 * time.Millisecond

// TestContext is the per-scenario world.
type TestContext struct {
	Directory *directorytest.Server
	Kinds     map[string]models.AnimalKind
	Species   map[string]models.Species
	Owners    map[string]id.OwnerID
	Animals   map[string]id.AnimalID

	SessionID    string
	LastStatus   int
	LastBody     []byte
	LastAnimalID string

	upstream *httptest.Server
	api      *httptest.Server
	sessions *handler.InMemorySessionStore
	client   *http.Client
}

// New boots the fake directory and the registration API.
func New() (*TestContext, error) {
	fake := directorytest.New()
	upstream := httptest.NewServer(fake.Router())

	dir, err := directory.New(upstream.URL)
	if err != nil {
		upstream.Close()
		return nil, err
	}
	m := metrics.New(prometheus.NewRegistry())
	loader, err := species.New(dir, species.WithMetrics(m))
	if err != nil {
		upstream.Close()
		return nil, err
	}

	sessions := handler.NewInMemorySessionStore(m)
	newEngine := func(mode models.Mode, owner id.OwnerID, opts ...registration.Option) (*registration.Engine, error) {
		base := []registration.Option{
			registration.WithMetrics(m),
			registration.WithDebounceDelay(DebounceDelay),
			registration.WithSpeciesLoader(loader),
		}
		return registration.New(dir, mode, owner, append(base, opts...)...)
	}
	r := chi.NewRouter()
	r.Use(metadata.RequestID)
	handler.New(newEngine, sessions, dir, loader, logger.Discard()).Register(r)

	return &TestContext{
		Directory: fake,
		Kinds:     make(map[string]models.AnimalKind),
		Species:   make(map[string]models.Species),
		Owners:    make(map[string]id.OwnerID),
		Animals:   make(map[string]id.AnimalID),
		upstream:  upstream,
		api:       httptest.NewServer(r),
		sessions:  sessions,
		client:    &http.Client{Timeout: 5 * time.Second},
	}, nil
}

// Close releases sessions and both servers.
func (tc *TestContext) Close() {
	tc.sessions.CloseAll()
	tc.api.Close()
	tc.upstream.Close()
}

// Owner returns the id of the owner with the identity number, adding the
// owner to the directory on first use.
func (tc *TestContext) Owner(identityNumber string) id.OwnerID {
	if owner, ok := tc.Owners[identityNumber]; ok {
		return owner
	}
	owner := tc.Directory.AddOwner(identityNumber)
	tc.Owners[identityNumber] = owner
	return owner
}

// Do sends a JSON request to the registration API and records the response.
func (tc *TestContext) Do(ctx context.Context, method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, tc.api.URL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := tc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tc.LastStatus = resp.StatusCode
	tc.LastBody, err = io.ReadAll(resp.Body)
	return err
}

// Decode unmarshals the last response body.
func (tc *TestContext) Decode(v any) error {
	if err := json.Unmarshal(tc.LastBody, v); err != nil {
		return fmt.Errorf("decode %q: %w", tc.LastBody, err)
	}
	return nil
}

// Session fetches the current view of the open registration.
func (tc *TestContext) Session(ctx context.Context) (*handler.SessionResponse, error) {
	if err := tc.Do(ctx, http.MethodGet, "/registrations/"+tc.SessionID, nil); err != nil {
		return nil, err
	}
	if tc.LastStatus != http.StatusOK {
		return nil, fmt.Errorf("get registration: status %d: %s", tc.LastStatus, tc.LastBody)
	}
	var view handler.SessionResponse
	if err := tc.Decode(&view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Settle waits past the debounce delay and for in-flight searches to finish.
func (tc *TestContext) Settle() error {
	sessionID, err := id.ParseSessionID(tc.SessionID)
	if err != nil {
		return err
	}
	session, err := tc.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	time.Sleep(3 * DebounceDelay)
	session.Engine.Wait()
	return nil
}
