/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package endpoint

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// fakeControlPlane is an in-memory control plane used by the client and
// deployment tests. Created endpoints start initializing and turn running
// after getsUntilRunning GET requests, unless failOnStart is set.
type fakeControlPlane struct {
	t *testing.T

	mu               sync.Mutex
	endpoints        map[string]*Endpoint
	getCounts        map[string]int
	getsUntilRunning int
	failOnStart      bool

	deleteFailures int
	deleteHits     int

	logs string

	server *httptest.Server
}

func newFakeControlPlane(t *testing.T) *fakeControlPlane {
	f := &fakeControlPlane{
		t:         t,
		endpoints: map[string]*Endpoint{},
		getCounts: map[string]int{},
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeControlPlane) client() *Client {
	return NewClient(f.server.URL, "test-token")
}

func (f *fakeControlPlane) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		f.t.Errorf("failed to encode response: %v", err)
	}
}

func (f *fakeControlPlane) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer test-token" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/v2/whoami":
		f.writeJSON(w, Identity{
			Name: "alice",
			Orgs: []Org{
				{Name: "big-org", CanPay: true},
				{Name: "broke-org", CanPay: false},
			},
		})

	case r.Method == http.MethodPost && len(parts) == 3 && parts[0] == "v2" && parts[1] == "endpoint":
		var req CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		state := StateInitializing
		if f.failOnStart {
			state = StateFailed
		}
		ep := &Endpoint{
			Name:     req.Name,
			Type:     req.Type,
			Status:   Status{State: state},
			Compute:  req.Compute,
			Model:    req.Model,
			Provider: req.Provider,
		}
		f.endpoints[req.Name] = ep
		w.WriteHeader(http.StatusCreated)
		f.writeJSON(w, ep)

	case r.Method == http.MethodGet && len(parts) == 4 && parts[0] == "v2" && parts[1] == "endpoint":
		name := parts[3]
		ep, ok := f.endpoints[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		f.getCounts[name]++
		if ep.Status.State == StateInitializing && f.getCounts[name] > f.getsUntilRunning {
			ep.Status = Status{State: StateRunning, URL: "https://" + name + ".endpoints.test"}
		}
		f.writeJSON(w, ep)

	case r.Method == http.MethodPost && len(parts) == 5 && parts[4] == "resume":
		name := parts[3]
		ep, ok := f.endpoints[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		ep.Status = Status{State: StateInitializing}
		f.getCounts[name] = 0
		f.writeJSON(w, ep)

	case r.Method == http.MethodDelete && len(parts) == 4 && parts[0] == "v2" && parts[1] == "endpoint":
		f.deleteHits++
		if f.deleteFailures > 0 {
			f.deleteFailures--
			http.Error(w, "transient failure", http.StatusInternalServerError)
			return
		}
		name := parts[3]
		if _, ok := f.endpoints[name]; !ok {
			http.NotFound(w, r)
			return
		}
		delete(f.endpoints, name)
		w.WriteHeader(http.StatusNoContent)

	case r.Method == http.MethodGet && len(parts) == 4 && parts[0] == "endpoint" && parts[3] == "logs":
		_, _ = w.Write([]byte(f.logs))

	case r.Method == http.MethodGet && len(parts) == 3 && parts[0] == "provider" && parts[1] == "quotas":
		f.writeJSON(w, QuotaSnapshot{
			Vendors: []VendorQuota{{
				Name: "aws",
				Quotas: []InstanceQuota{
					{InstanceType: "nvidia-a10g", MaxAccelerators: 4, UsedAccelerators: len(f.endpoints)},
				},
			}},
		})

	default:
		http.NotFound(w, r)
	}
}
