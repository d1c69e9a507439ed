//go:build e2e
// +build e2e

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

package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/defilantech/autobench/pkg/benchmark"
	"github.com/defilantech/autobench/pkg/config"
	"github.com/defilantech/autobench/pkg/endpoint"
	"github.com/defilantech/autobench/pkg/k6"
	"github.com/defilantech/autobench/pkg/report"
	"github.com/defilantech/autobench/pkg/scenario"
	"github.com/defilantech/autobench/pkg/scheduler"
)

const summaryJSON = `{
  "state": {"testRunDurationMs": 10000},
  "root_group": {"checks": [{"name": "response is ok", "passes": 95, "fails": 5}]},
  "metrics": {
    "time_to_first_token": {"values": {"p(90)": 350.0}},
    "inter_token_latency": {"values": {"p(90)": 30.0}},
    "end_to_end_latency": {"values": {"p(90)": 6000.0}},
    "tokens_received": {"values": {"count": 20000}},
    "tokens_throughput": {"values": {"count": 20000}}
  }
}`

// controlPlane is the in-process stand-in for the endpoint API.
type controlPlane struct {
	mu        sync.Mutex
	endpoints map[string]*endpoint.Endpoint
	maxAccel  int
	deletes   int
	server    *httptest.Server
}

func newControlPlane(maxAccel int) *controlPlane {
	cp := &controlPlane{
		endpoints: map[string]*endpoint.Endpoint{},
		maxAccel:  maxAccel,
	}
	cp.server = httptest.NewServer(http.HandlerFunc(cp.handle))
	return cp
}

func (cp *controlPlane) handle(w http.ResponseWriter, r *http.Request) {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	writeJSON := func(v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}

	switch {
	case r.Method == http.MethodGet && parts[0] == "provider":
		writeJSON(endpoint.QuotaSnapshot{Vendors: []endpoint.VendorQuota{{
			Name: "aws",
			Quotas: []endpoint.InstanceQuota{{
				InstanceType:     "nvidia-a10g",
				MaxAccelerators:  cp.maxAccel,
				UsedAccelerators: len(cp.endpoints),
			}},
		}}})

	case r.Method == http.MethodPost && len(parts) == 3 && parts[1] == "endpoint":
		var req endpoint.CreateRequest
		Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
		ep := &endpoint.Endpoint{
			Name:     req.Name,
			Type:     req.Type,
			Status:   endpoint.Status{State: endpoint.StateRunning, URL: "https://" + req.Name + ".endpoints.test"},
			Compute:  req.Compute,
			Model:    req.Model,
			Provider: req.Provider,
		}
		cp.endpoints[req.Name] = ep
		w.WriteHeader(http.StatusCreated)
		writeJSON(ep)

	case r.Method == http.MethodGet && len(parts) == 4 && parts[1] == "endpoint":
		ep, ok := cp.endpoints[parts[3]]
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(ep)

	case r.Method == http.MethodDelete && len(parts) == 4 && parts[1] == "endpoint":
		delete(cp.endpoints, parts[3])
		cp.deletes++
		w.WriteHeader(http.StatusNoContent)

	default:
		http.NotFound(w, r)
	}
}

var _ = Describe("Benchmark pipeline", Ordered, func() {
	var (
		cp        *controlPlane
		client    *endpoint.Client
		runner    *k6.Runner
		outputDir string
	)

	BeforeAll(func() {
		cp = newControlPlane(4)
		client = endpoint.NewClient(cp.server.URL, "e2e-token")

		By("installing a stand-in k6 binary")
		binDir, err := os.MkdirTemp("", "autobench-e2e")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = os.RemoveAll(binDir) })

		binary := filepath.Join(binDir, "fake-k6")
		script := "#!/bin/sh\ncat <<'EOF'\n" + summaryJSON + "\nEOF\n"
		Expect(os.WriteFile(binary, []byte(script), 0o755)).To(Succeed())
		runner = k6.NewRunner(binary)

		outputDir, err = os.MkdirTemp("", "autobench-e2e-results")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = os.RemoveAll(outputDir) })
	})

	AfterAll(func() {
		cp.server.Close()
	})

	It("runs a benchmark end to end and reports on it", func() {
		By("building deployments and scenarios")
		var scenarios []*scenario.Scenario
		for i := 0; i < 2; i++ {
			dep := endpoint.NewDeployment(client, config.DeploymentConfig{
				Runtime: config.RuntimeConfig{ModelID: "test-model", MaxTotalTokens: 4096},
				Instance: config.InstanceConfig{
					Vendor:       "aws",
					Region:       "us-east-1",
					NumGPUs:      1,
					InstanceType: "nvidia-a10g",
					InstanceSize: "x1",
				},
				Namespace: "e2e-org",
			})
			dep.WaitPollInterval = 5 * time.Millisecond
			dep.WaitTimeout = 2 * time.Second

			for _, rate := range []int{1, 10} {
				exec := k6.NewConstantArrivalRateExecutor(200, 500, rate, "10s")
				scenarios = append(scenarios, scenario.New(dep, exec, runner, "/tmp/prompts.json"))
			}
		}

		b, err := benchmark.New(scenarios)
		Expect(err).NotTo(HaveOccurred())
		Expect(b.Groups).To(HaveLen(2))
		for _, g := range b.Groups {
			g.Quiescence = time.Millisecond
		}

		By("running the scheduler")
		sched := scheduler.New(client, "e2e-org")
		sched.Tick = 20 * time.Millisecond
		sched.LogDelay = time.Millisecond
		sched.DeleteDelay = time.Millisecond

		result, err := b.Run(context.Background(), sched, outputDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.ScenarioGroupResults).To(HaveLen(2))
		for _, gr := range result.ScenarioGroupResults {
			Expect(gr.DeploymentStatus.Status).To(Equal(scenario.StatusSuccess))
			Expect(gr.ScenarioResults).To(HaveLen(2))
		}

		By("verifying every endpoint was torn down")
		cp.mu.Lock()
		Expect(cp.endpoints).To(BeEmpty())
		Expect(cp.deletes).To(Equal(2))
		cp.mu.Unlock()

		By("loading the saved results back")
		loaded, err := benchmark.Load(result.OutputDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.BenchmarkID).To(Equal(b.ID))
		Expect(loaded.ScenarioGroupResults[0].ScenarioResults[0].K6Script).To(ContainSubstring("constant-arrival-rate"))

		By("gathering report rows")
		rows, err := report.Gather(loaded)
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(4))
		Expect(rows[0].TokensThroughput).To(BeNumerically("~", 2000, 1))
	})
})
