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

package scenario

import (
	"context"
	"fmt"
	"time"

	"k8s.io/klog/v2"

	"github.com/defilantech/autobench/pkg/endpoint"
)

// Group runs a set of scenarios serially against one deployment, with a
// quiescence pause between scenarios so each one starts from an idle
// endpoint.
type Group struct {
	Deployment *endpoint.Deployment
	Scenarios  []*Scenario

	// Quiescence is the pause between consecutive scenarios.
	Quiescence time.Duration
}

// NewGroup builds a group after checking every scenario targets the given
// deployment.
func NewGroup(dep *endpoint.Deployment, scenarios []*Scenario) (*Group, error) {
	for _, s := range scenarios {
		if s.Deployment != dep {
			return nil, fmt.Errorf("scenario %s targets deployment %s, group belongs to %s",
				s.ID, s.Deployment.DeploymentID, dep.DeploymentID)
		}
	}
	return &Group{
		Deployment: dep,
		Scenarios:  scenarios,
		Quiescence: 10 * time.Second,
	}, nil
}

// Run executes each scenario in order. A scenario hitting a non-running
// deployment is recorded as failed and stops the group, since the
// remaining scenarios would fail the same way. Other scenario failures are
// recorded and the group moves on.
func (g *Group) Run(ctx context.Context) ([]Result, error) {
	results := make([]Result, 0, len(g.Scenarios))
	for i, s := range g.Scenarios {
		if i > 0 {
			klog.V(2).Infof("Waiting %s before next scenario on %s", g.Quiescence, g.Deployment.DeploymentID)
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(g.Quiescence):
			}
		}

		result, err := s.Run(ctx)
		results = append(results, result)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// Details snapshots the deployment the group ran against.
func (g *Group) Details() *DeploymentDetails {
	details := &DeploymentDetails{
		RuntimeConfig:  g.Deployment.Config.Runtime,
		InstanceConfig: g.Deployment.Config.Instance,
	}
	if g.Deployment.Endpoint != nil {
		details.EndpointDetails = g.Deployment.Endpoint.Raw
	}
	return details
}
