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

// Package benchmark groups scenarios by deployment, runs them through the
// scheduler and persists the results.
package benchmark

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/defilantech/autobench/pkg/endpoint"
	"github.com/defilantech/autobench/pkg/scenario"
	"github.com/defilantech/autobench/pkg/scheduler"
)

// Benchmark is one submission: scenarios grouped per deployment, ready for
// the scheduler.
type Benchmark struct {
	ID     string
	Groups []*scenario.Group
}

// New builds a benchmark from scenarios, grouping them by deployment while
// preserving submission order within each group.
func New(scenarios []*scenario.Scenario) (*Benchmark, error) {
	byDeployment := map[*endpoint.Deployment][]*scenario.Scenario{}
	var order []*endpoint.Deployment
	for _, s := range scenarios {
		if _, seen := byDeployment[s.Deployment]; !seen {
			order = append(order, s.Deployment)
		}
		byDeployment[s.Deployment] = append(byDeployment[s.Deployment], s)
	}

	groups := make([]*scenario.Group, 0, len(order))
	for _, dep := range order {
		g, err := scenario.NewGroup(dep, byDeployment[dep])
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}

	id := strings.Split(uuid.NewString(), "-")[0]
	return &Benchmark{ID: id, Groups: groups}, nil
}

// ValidateOutput checks up front that the benchmark can be saved under
// outputRoot, so a collision surfaces before any endpoint is deployed.
func (b *Benchmark) ValidateOutput(outputRoot string) error {
	probe := Result{BenchmarkID: b.ID}
	if _, err := os.Stat(probe.Dir(outputRoot)); err == nil {
		return fmt.Errorf("benchmark directory %s already exists", probe.Dir(outputRoot))
	}
	return nil
}

// Run schedules every group, assembles the result and saves it under
// outputRoot. The result is returned even when saving fails.
func (b *Benchmark) Run(ctx context.Context, sched *scheduler.Scheduler, outputRoot string) (*Result, error) {
	if err := b.ValidateOutput(outputRoot); err != nil {
		return nil, err
	}
	klog.Infof("Starting benchmark %s with %d scenario group(s)", b.ID, len(b.Groups))

	groupResults, err := sched.Run(ctx, b.Groups)
	if err != nil {
		return nil, fmt.Errorf("benchmark %s failed: %w", b.ID, err)
	}

	result := &Result{
		BenchmarkID:          b.ID,
		ScenarioGroupResults: groupResults,
	}
	if err := result.Save(outputRoot); err != nil {
		return result, err
	}
	return result, nil
}
