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

// Package planner turns the raw compute catalog into a ranked, deduplicated
// set of instances that can run a given model.
package planner

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"k8s.io/klog/v2"

	"github.com/defilantech/autobench/pkg/config"
)

// CatalogLister lists available GPU compute options.
type CatalogLister interface {
	ListGPUOptions(ctx context.Context) ([]config.InstanceConfig, error)
}

// ConfigRecommender returns a runtime config for a model on a given amount
// of GPU memory, or nil when the combination is infeasible.
type ConfigRecommender interface {
	Recommend(ctx context.Context, modelID string, gpuMemoryGB, numGPUs int) (*config.RuntimeConfig, error)
}

// ViablePair is an instance that the recommender confirmed can run the
// model, together with the runtime config it recommended.
type ViablePair struct {
	Instance config.InstanceConfig `json:"instance_config"`
	Runtime  config.RuntimeConfig  `json:"runtime_config"`
}

// Planner ranks catalog rows and filters them through the recommender.
type Planner struct {
	Catalog     CatalogLister
	Recommender ConfigRecommender
}

// New creates a Planner over the given catalog and recommender clients.
func New(catalog CatalogLister, recommender ConfigRecommender) *Planner {
	return &Planner{Catalog: catalog, Recommender: recommender}
}

// Plan filters the catalog to the requested GPU types, ranks rows so that
// the preferred vendor and region sort first (price breaking ties), and
// keeps one row per (num_gpus, instance_type) pair.
func (p *Planner) Plan(ctx context.Context, gpuTypes []string, preferredVendor, preferredRegionPrefix string) ([]config.InstanceConfig, error) {
	options, err := p.Catalog.ListGPUOptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch compute catalog: %w", err)
	}

	wanted := make(map[string]bool, len(gpuTypes))
	for _, t := range gpuTypes {
		wanted[t] = true
	}

	var rows []config.InstanceConfig
	for _, row := range options {
		if wanted[row.InstanceType] {
			rows = append(rows, row)
		}
	}

	sortRows(rows, preferredVendor, preferredRegionPrefix)

	// Keep the first (cheapest preferred) row per (num_gpus, instance_type).
	seen := make(map[string]bool, len(rows))
	deduped := rows[:0]
	for _, row := range rows {
		key := fmt.Sprintf("%d/%s", row.NumGPUs, row.InstanceType)
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, row)
	}

	klog.V(2).Infof("Planner: %d catalog rows matched %d GPU types, %d after dedup",
		len(rows), len(gpuTypes), len(deduped))
	return deduped, nil
}

func sortRows(rows []config.InstanceConfig, preferredVendor, preferredRegionPrefix string) {
	vendorKey := func(r config.InstanceConfig) int {
		if r.Vendor == preferredVendor {
			return 0
		}
		return 1
	}
	regionKey := func(r config.InstanceConfig) int {
		if strings.HasPrefix(r.Region, preferredRegionPrefix) {
			return 0
		}
		return 1
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.NumGPUs != b.NumGPUs {
			return a.NumGPUs < b.NumGPUs
		}
		if a.InstanceType != b.InstanceType {
			return a.InstanceType < b.InstanceType
		}
		if vendorKey(a) != vendorKey(b) {
			return vendorKey(a) < vendorKey(b)
		}
		if regionKey(a) != regionKey(b) {
			return regionKey(a) < regionKey(b)
		}
		return a.PricePerHour < b.PricePerHour
	})
}

// Viable queries the recommender for each instance and keeps the pairs the
// recommender produced a config for. Infeasible instances are skipped, not
// treated as errors.
func (p *Planner) Viable(ctx context.Context, modelID string, instances []config.InstanceConfig) ([]ViablePair, error) {
	var pairs []ViablePair
	for _, instance := range instances {
		runtime, err := p.Recommender.Recommend(ctx, modelID, instance.GPUMemoryGB, instance.NumGPUs)
		if err != nil {
			return nil, fmt.Errorf("recommender query failed for instance %s: %w", instance.ID, err)
		}
		if runtime == nil {
			klog.V(2).Infof("Instance %s cannot run model %s, excluding from benchmark", instance.ID, modelID)
			continue
		}
		pairs = append(pairs, ViablePair{Instance: instance, Runtime: *runtime})
	}

	klog.V(2).Infof("Planner: %d of %d instances viable for model %s", len(pairs), len(instances), modelID)
	return pairs, nil
}
