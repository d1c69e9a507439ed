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

package benchmark

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"k8s.io/klog/v2"

	"github.com/defilantech/autobench/pkg/scenario"
)

// Result is a full benchmark run: every group result under one benchmark
// ID. OutputDir is set once the result has been saved or loaded.
type Result struct {
	BenchmarkID          string                 `json:"benchmark_id"`
	ScenarioGroupResults []scenario.GroupResult `json:"scenario_group_results"`

	OutputDir string `json:"-"`
}

// Dir returns the directory this result persists under, relative to the
// given output root.
func (r *Result) Dir(outputRoot string) string {
	return filepath.Join(outputRoot, "benchmark_"+r.BenchmarkID)
}

func scriptPath(scenarioID string) string {
	return filepath.Join("scripts", scenarioID+".js")
}

// Save writes the result under <outputRoot>/benchmark_<id>/: the rendered
// scripts as individual files under scripts/, and results.json with each
// k6_script field replaced by the script's relative path. Saving over an
// existing benchmark directory is refused.
func (r *Result) Save(outputRoot string) error {
	dir := r.Dir(outputRoot)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("benchmark directory %s already exists", dir)
	}
	if err := os.MkdirAll(filepath.Join(dir, "scripts"), 0o755); err != nil {
		return fmt.Errorf("failed to create benchmark directory: %w", err)
	}

	// Copy the tree so rewriting script fields never touches the live
	// result.
	out := Result{
		BenchmarkID:          r.BenchmarkID,
		ScenarioGroupResults: make([]scenario.GroupResult, len(r.ScenarioGroupResults)),
	}
	for gi, group := range r.ScenarioGroupResults {
		groupCopy := group
		groupCopy.ScenarioResults = make([]scenario.Result, len(group.ScenarioResults))
		for si, sr := range group.ScenarioResults {
			rel := scriptPath(sr.ScenarioID)
			if err := os.WriteFile(filepath.Join(dir, rel), []byte(sr.K6Script), 0o644); err != nil {
				return fmt.Errorf("failed to write script for scenario %s: %w", sr.ScenarioID, err)
			}
			sr.K6Script = rel
			groupCopy.ScenarioResults[si] = sr
		}
		out.ScenarioGroupResults[gi] = groupCopy
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "results.json"), data, 0o644); err != nil {
		return fmt.Errorf("failed to write results.json: %w", err)
	}

	r.OutputDir = dir
	klog.Infof("Benchmark results saved to %s", dir)
	return nil
}

// Load reads a saved benchmark directory back into a Result, re-inlining
// the scripts referenced from results.json.
func Load(dir string) (*Result, error) {
	data, err := os.ReadFile(filepath.Join(dir, "results.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read results.json: %w", err)
	}

	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode results.json: %w", err)
	}

	for gi := range r.ScenarioGroupResults {
		group := &r.ScenarioGroupResults[gi]
		for si := range group.ScenarioResults {
			sr := &group.ScenarioResults[si]
			if sr.K6Script == "" {
				continue
			}
			script, err := os.ReadFile(filepath.Join(dir, sr.K6Script))
			if err != nil {
				return nil, fmt.Errorf("failed to read script for scenario %s: %w", sr.ScenarioID, err)
			}
			sr.K6Script = string(script)
		}
	}

	r.OutputDir = dir
	return &r, nil
}
