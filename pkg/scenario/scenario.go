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

// Package scenario runs individual load-test scenarios and scenario groups
// against a deployed endpoint, producing structured results.
package scenario

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/defilantech/autobench/pkg/endpoint"
	"github.com/defilantech/autobench/pkg/k6"
)

// ErrDeploymentNotRunning indicates a scenario was asked to run against a
// deployment whose endpoint is not in the running state.
var ErrDeploymentNotRunning = errors.New("deployment is not running")

// Scenario binds one executor configuration to a deployment and a dataset.
type Scenario struct {
	ID         string
	Deployment *endpoint.Deployment
	Executor   *k6.Executor
	Runner     *k6.Runner
	DataFile   string
}

// New creates a scenario with a fresh ID.
func New(dep *endpoint.Deployment, exec *k6.Executor, runner *k6.Runner, dataFile string) *Scenario {
	return &Scenario{
		ID:         uuid.NewString(),
		Deployment: dep,
		Executor:   exec,
		Runner:     runner,
		DataFile:   dataFile,
	}
}

func (s *Scenario) failedResult(script string, err error) Result {
	return Result{
		ScenarioID:        s.ID,
		DeploymentID:      s.Deployment.DeploymentID,
		ExecutorType:      s.Executor.Name,
		ExecutorVariables: s.Executor.Variables,
		K6Script:          script,
		Status:            RunStatus{Status: StatusFailed, Error: err.Error()},
	}
}

// Run renders the scenario's script against the deployment's live URL and
// executes it. A non-running deployment yields a failed result and
// ErrDeploymentNotRunning so the group can stop early; every other failure
// is recorded in the result alone.
func (s *Scenario) Run(ctx context.Context) (Result, error) {
	if !s.Deployment.IsRunning(ctx) {
		err := fmt.Errorf("%w: %s", ErrDeploymentNotRunning, s.Deployment.DeploymentID)
		return s.failedResult("", err), err
	}

	s.Executor.UpdateVariables(map[string]any{
		"host":      s.Deployment.Endpoint.Status.URL,
		"data_file": s.DataFile,
	})

	scriptPath, err := s.Executor.RenderScript()
	if err != nil {
		return s.failedResult("", err), nil
	}
	defer func() { _ = os.Remove(scriptPath) }()

	script, err := os.ReadFile(scriptPath)
	if err != nil {
		return s.failedResult("", err), nil
	}

	klog.Infof("Running scenario %s (%s) against %s", s.ID, s.Executor.Name, s.Deployment.DeploymentID)
	outcome, err := s.Runner.Run(ctx, scriptPath)
	if err != nil {
		return s.failedResult(string(script), err), nil
	}

	if outcome.ExitCode != 0 {
		err := fmt.Errorf("k6 exited with code %d: %s", outcome.ExitCode, string(outcome.Stderr))
		return s.failedResult(string(script), err), nil
	}

	if !json.Valid(outcome.Stdout) || len(outcome.Stdout) == 0 {
		return s.failedResult(string(script), errors.New("Failed to parse output as JSON")), nil
	}

	return Result{
		ScenarioID:        s.ID,
		DeploymentID:      s.Deployment.DeploymentID,
		ExecutorType:      s.Executor.Name,
		ExecutorVariables: s.Executor.Variables,
		K6Script:          string(script),
		Metrics:           json.RawMessage(outcome.Stdout),
		Status:            RunStatus{Status: StatusSuccess},
	}, nil
}
