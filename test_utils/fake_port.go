package testing_init

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/port-labs/port-sync-engine/pkg/port"
	"github.com/port-labs/port-sync-engine/pkg/port/cli"
)

// FakePortServer fakes the slice of the Port API the engine touches during
// bootstrap: authentication and integration CRUD. State is in-memory and
// scoped to one test.
type FakePortServer struct {
	*httptest.Server

	mu           sync.Mutex
	integrations map[string]*port.Integration
	patches      []port.Integration
}

func NewFakePortServer(t *testing.T) *FakePortServer {
	f := &FakePortServer{integrations: map[string]*port.Integration{}}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/auth/access_token", f.handleAuth)
	mux.HandleFunc("/v1/integration", f.handleCreate)
	mux.HandleFunc("/v1/integration/", f.handleIntegration)
	f.Server = httptest.NewServer(mux)

	// The token source is process-global and may still point at a previous
	// test's server.
	cli.ResetTokenSource()
	t.Cleanup(func() {
		f.Close()
		cli.ResetTokenSource()
	})
	return f
}

// SetIntegration seeds a pre-existing integration.
func (f *FakePortServer) SetIntegration(i *port.Integration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.integrations[i.InstallationId] = i
}

// Integration returns the stored integration for the state key, or nil.
func (f *FakePortServer) Integration(stateKey string) *port.Integration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.integrations[stateKey]
}

// Patches returns every PATCH body received, in order.
func (f *FakePortServer) Patches() []port.Integration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]port.Integration(nil), f.patches...)
}

func (f *FakePortServer) handleAuth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, port.AccessTokenResponse{
		Ok:          true,
		AccessToken: "fake-token",
		ExpiresIn:   3600,
		TokenType:   "Bearer",
	})
}

func (f *FakePortServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var i port.Integration
	if err := json.NewDecoder(r.Body).Decode(&i); err != nil {
		writeJSON(w, http.StatusBadRequest, port.ResponseBody{OK: false})
		return
	}

	f.mu.Lock()
	f.integrations[i.InstallationId] = &i
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, port.ResponseBody{OK: true, Integration: i})
}

func (f *FakePortServer) handleIntegration(w http.ResponseWriter, r *http.Request) {
	stateKey := strings.TrimPrefix(r.URL.Path, "/v1/integration/")

	f.mu.Lock()
	defer f.mu.Unlock()

	existing, ok := f.integrations[stateKey]

	switch r.Method {
	case http.MethodGet:
		if !ok {
			writeJSON(w, http.StatusNotFound, port.ResponseBody{OK: false})
			return
		}
		writeJSON(w, http.StatusOK, port.ResponseBody{OK: true, Integration: *existing})
	case http.MethodPatch:
		var patch port.Integration
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeJSON(w, http.StatusBadRequest, port.ResponseBody{OK: false})
			return
		}
		if !ok {
			writeJSON(w, http.StatusNotFound, port.ResponseBody{OK: false})
			return
		}
		f.patches = append(f.patches, patch)
		if patch.Version != "" {
			existing.Version = patch.Version
		}
		if patch.EventListener != nil {
			existing.EventListener = patch.EventListener
		}
		if patch.Config != nil {
			existing.Config = patch.Config
		}
		writeJSON(w, http.StatusOK, port.ResponseBody{OK: true, Integration: *existing})
	case http.MethodDelete:
		delete(f.integrations, stateKey)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
