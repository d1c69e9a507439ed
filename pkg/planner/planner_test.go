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

package planner

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/defilantech/autobench/pkg/config"
)

type fakeCatalog struct {
	rows []config.InstanceConfig
	err  error
}

func (f *fakeCatalog) ListGPUOptions(_ context.Context) ([]config.InstanceConfig, error) {
	return f.rows, f.err
}

type fakeRecommender struct {
	// configs maps instance ID to the recommendation; a missing entry
	// means infeasible.
	configs map[string]config.RuntimeConfig
	err     error
}

func (f *fakeRecommender) Recommend(_ context.Context, modelID string, gpuMemoryGB, numGPUs int) (*config.RuntimeConfig, error) {
	if f.err != nil {
		return nil, f.err
	}
	if cfg, ok := f.configs[instanceKey(gpuMemoryGB, numGPUs)]; ok {
		return &cfg, nil
	}
	return nil, nil
}

func instanceKey(gpuMemoryGB, numGPUs int) string {
	return fmt.Sprintf("%d/%d", gpuMemoryGB, numGPUs)
}

func row(id, vendor, region, instanceType string, numGPUs int, price float64) config.InstanceConfig {
	return config.InstanceConfig{
		ID:           id,
		Vendor:       vendor,
		Region:       region,
		Accelerator:  "gpu",
		NumGPUs:      numGPUs,
		GPUMemoryGB:  24 * numGPUs,
		InstanceType: instanceType,
		InstanceSize: "x1",
		PricePerHour: price,
	}
}

func TestPlanFiltersAndRanks(t *testing.T) {
	cat := &fakeCatalog{rows: []config.InstanceConfig{
		row("gcp-a10g", "gcp", "us-central1", "nvidia-a10g", 1, 1.1),
		row("aws-a10g-us", "aws", "us-east-1", "nvidia-a10g", 1, 1.3),
		row("aws-a10g-eu", "aws", "eu-west-1", "nvidia-a10g", 1, 1.2),
		row("aws-a100", "aws", "us-east-1", "nvidia-a100", 1, 4.0),
		row("aws-t4", "aws", "us-east-1", "nvidia-t4", 1, 0.5),
	}}

	p := New(cat, &fakeRecommender{})
	instances, err := p.Plan(context.Background(), []string{"nvidia-a10g", "nvidia-a100"}, "aws", "us")
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	// One row per (num_gpus, instance_type), ordered by instance type
	// ("nvidia-a100" sorts before "nvidia-a10g"): the preferred-vendor,
	// preferred-region row wins for a10g; t4 is filtered out entirely.
	if len(instances) != 2 {
		t.Fatalf("expected 2 instances, got %d: %+v", len(instances), instances)
	}
	if instances[0].ID != "aws-a100" {
		t.Errorf("first instance = %s, want aws-a100", instances[0].ID)
	}
	if instances[1].ID != "aws-a10g-us" {
		t.Errorf("second instance = %s, want aws-a10g-us", instances[1].ID)
	}
}

func TestPlanOrdersByGPUCountThenType(t *testing.T) {
	cat := &fakeCatalog{rows: []config.InstanceConfig{
		row("a100-x4", "aws", "us-east-1", "nvidia-a100", 4, 16.0),
		row("a10g-x1", "aws", "us-east-1", "nvidia-a10g", 1, 1.3),
		row("a100-x1", "aws", "us-east-1", "nvidia-a100", 1, 4.0),
	}}

	p := New(cat, &fakeRecommender{})
	instances, err := p.Plan(context.Background(), []string{"nvidia-a10g", "nvidia-a100"}, "aws", "us")
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	want := []string{"a100-x1", "a10g-x1", "a100-x4"}
	if len(instances) != len(want) {
		t.Fatalf("expected %d instances, got %d", len(want), len(instances))
	}
	for i, id := range want {
		if instances[i].ID != id {
			t.Errorf("instances[%d] = %s, want %s", i, instances[i].ID, id)
		}
	}
}

func TestPlanPriceBreaksTies(t *testing.T) {
	cat := &fakeCatalog{rows: []config.InstanceConfig{
		row("expensive", "aws", "us-east-1", "nvidia-a10g", 1, 1.5),
		row("cheap", "aws", "us-west-2", "nvidia-a10g", 1, 1.2),
	}}

	p := New(cat, &fakeRecommender{})
	instances, err := p.Plan(context.Background(), []string{"nvidia-a10g"}, "aws", "us")
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(instances) != 1 || instances[0].ID != "cheap" {
		t.Errorf("expected the cheaper row to win, got %+v", instances)
	}
}

func TestPlanCatalogError(t *testing.T) {
	p := New(&fakeCatalog{err: errors.New("catalog down")}, &fakeRecommender{})
	if _, err := p.Plan(context.Background(), []string{"nvidia-a10g"}, "aws", "us"); err == nil {
		t.Error("expected a catalog fetch error to propagate")
	}
}

func TestViableSkipsInfeasible(t *testing.T) {
	instances := []config.InstanceConfig{
		row("small", "aws", "us-east-1", "nvidia-t4", 1, 0.5),
		row("large", "aws", "us-east-1", "nvidia-a100", 2, 8.0),
	}
	rec := &fakeRecommender{configs: map[string]config.RuntimeConfig{
		instanceKey(48, 2): {ModelID: "big-model", MaxTotalTokens: 4096},
	}}

	pairs, err := New(&fakeCatalog{}, rec).Viable(context.Background(), "big-model", instances)
	if err != nil {
		t.Fatalf("Viable failed: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("expected 1 viable pair, got %d", len(pairs))
	}
	if pairs[0].Instance.ID != "large" {
		t.Errorf("viable instance = %s, want large", pairs[0].Instance.ID)
	}
	if pairs[0].Runtime.MaxTotalTokens != 4096 {
		t.Errorf("runtime not carried over: %+v", pairs[0].Runtime)
	}
}

func TestViableRecommenderError(t *testing.T) {
	instances := []config.InstanceConfig{row("a", "aws", "us-east-1", "nvidia-a10g", 1, 1.3)}
	rec := &fakeRecommender{err: errors.New("bad response")}

	if _, err := New(&fakeCatalog{}, rec).Viable(context.Background(), "m", instances); err == nil {
		t.Error("expected a recommender error to propagate")
	}
}
