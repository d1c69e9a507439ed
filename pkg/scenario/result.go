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
	"encoding/json"

	"github.com/defilantech/autobench/pkg/config"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// RunStatus is the outcome of one run attempt: a status constant plus, on
// failure, the error text.
type RunStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Result is the record of a single scenario execution. Metrics holds the
// k6 summary verbatim so downstream reporting never loses fields.
type Result struct {
	ScenarioID        string          `json:"scenario_id"`
	DeploymentID      string          `json:"deployment_id"`
	ExecutorType      string          `json:"executor_type"`
	ExecutorVariables map[string]any  `json:"executor_variables"`
	K6Script          string          `json:"k6_script"`
	Metrics           json.RawMessage `json:"metrics,omitempty"`
	Status            RunStatus       `json:"status"`
}

// DeploymentStatus is the deployment-level outcome for a scenario group,
// including whether the endpoint's logs showed an out-of-memory error.
type DeploymentStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	OOM    bool   `json:"oom"`
}

// DeploymentDetails snapshots the deployment a group ran against. The
// endpoint descriptor is kept raw, exactly as the control plane sent it.
type DeploymentDetails struct {
	RuntimeConfig   config.RuntimeConfig  `json:"runtime_config"`
	InstanceConfig  config.InstanceConfig `json:"instance_config"`
	EndpointDetails json.RawMessage       `json:"endpoint_details"`
}

// GroupResult collects the results of every scenario that ran against one
// deployment, plus the deployment's own outcome.
type GroupResult struct {
	DeploymentID      string             `json:"deployment_id"`
	ScenarioResults   []Result           `json:"scenario_results"`
	DeploymentDetails *DeploymentDetails `json:"deployment_details"`
	DeploymentStatus  DeploymentStatus   `json:"deployment_status"`
}
